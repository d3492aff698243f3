package chat

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/personachat-backend/internal/data/repos/testutil"
	"github.com/yungbote/personachat-backend/internal/platform/dbctx"
)

func TestUploadedFileRepoOwnershipAndAttach(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewUploadedFileRepo(db, testutil.Logger(t))

	owner := uuid.New()
	p := testutil.SeedPersona(t, ctx, db, "ada", "", true)
	conv := testutil.SeedConversation(t, ctx, db, owner, p.ID)
	otherConv := testutil.SeedConversation(t, ctx, db, owner, p.ID)
	f := testutil.SeedFile(t, ctx, db, owner, nil)

	if got, _ := repo.GetForConversation(dbc, f.ID, uuid.New(), conv.ID); got != nil {
		t.Fatalf("stranger: want nil")
	}
	got, err := repo.GetForConversation(dbc, f.ID, owner, conv.ID)
	if err != nil || got == nil {
		t.Fatalf("owner unattached: err=%v row=%v", err, got)
	}
	if err := repo.AttachToConversation(dbc, f.ID, conv.ID); err != nil {
		t.Fatalf("AttachToConversation: %v", err)
	}
	if got, _ := repo.GetForConversation(dbc, f.ID, owner, conv.ID); got == nil {
		t.Fatalf("attached same conversation: want row")
	}
	if got, _ := repo.GetForConversation(dbc, f.ID, owner, otherConv.ID); got != nil {
		t.Fatalf("attached other conversation: want nil")
	}
}
