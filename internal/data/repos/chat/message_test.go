package chat

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/personachat-backend/internal/data/repos/testutil"
	types "github.com/yungbote/personachat-backend/internal/domain"
	"github.com/yungbote/personachat-backend/internal/platform/dbctx"
)

func TestMessageRepoSoftDeleteAfter(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewMessageRepo(db, testutil.Logger(t))

	p := testutil.SeedPersona(t, ctx, db, "ada", "", true)
	conv := testutil.SeedConversation(t, ctx, db, uuid.New(), p.ID)

	base := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	m1 := testutil.SeedMessage(t, ctx, db, conv, types.RoleUser, "hi", base)
	a1 := testutil.SeedMessage(t, ctx, db, conv, types.RoleAssistant, "hello", base.Add(time.Second))
	u2 := testutil.SeedMessage(t, ctx, db, conv, types.RoleUser, "how are you", base.Add(2*time.Second))
	testutil.SeedMessage(t, ctx, db, conv, types.RoleAssistant, "fine", base.Add(3*time.Second))

	n, err := repo.SoftDeleteAfter(dbc, conv.ID, m1.CreatedAt)
	if err != nil {
		t.Fatalf("SoftDeleteAfter: %v", err)
	}
	if n != 3 {
		t.Fatalf("deleted: want=3 got=%d", n)
	}

	live, err := repo.ListByConversation(dbc, conv.ID, 0)
	if err != nil {
		t.Fatalf("ListByConversation: %v", err)
	}
	if len(live) != 1 || live[0].ID != m1.ID {
		t.Fatalf("live lineage: want only m1 got=%d rows", len(live))
	}

	got, err := repo.GetByID(dbc, a1.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil || !got.IsDeleted() {
		t.Fatalf("GetByID: want soft-deleted row, got=%v", got)
	}
	if got, _ := repo.GetByID(dbc, u2.ID); got == nil || !got.IsDeleted() {
		t.Fatalf("u2: want soft-deleted")
	}
	if got, _ := repo.GetByID(dbc, uuid.New()); got != nil {
		t.Fatalf("missing id: want nil got=%v", got)
	}
}

func TestMessageRepoLineageAndFirstUserMessage(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewMessageRepo(db, testutil.Logger(t))

	p := testutil.SeedPersona(t, ctx, db, "grace", "", true)
	conv := testutil.SeedConversation(t, ctx, db, uuid.New(), p.ID)

	base := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	testutil.SeedMessage(t, ctx, db, conv, types.RoleAssistant, "welcome", base)
	u1 := testutil.SeedMessage(t, ctx, db, conv, types.RoleUser, "first question", base.Add(time.Second))
	testutil.SeedMessage(t, ctx, db, conv, types.RoleAssistant, "answer", base.Add(2*time.Second))

	first, err := repo.FirstUserMessage(dbc, conv.ID)
	if err != nil {
		t.Fatalf("FirstUserMessage: %v", err)
	}
	if first == nil || first.ID != u1.ID {
		t.Fatalf("FirstUserMessage: want=%s got=%v", u1.ID, first)
	}

	lineage, err := repo.ListLineageUpTo(dbc, conv.ID, u1.CreatedAt)
	if err != nil {
		t.Fatalf("ListLineageUpTo: %v", err)
	}
	if len(lineage) != 2 || lineage[1].ID != u1.ID {
		t.Fatalf("lineage: want 2 rows ending with u1 got=%d", len(lineage))
	}
}

func TestMessageRepoUpdateFields(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewMessageRepo(db, testutil.Logger(t))

	p := testutil.SeedPersona(t, ctx, db, "linus", "", true)
	conv := testutil.SeedConversation(t, ctx, db, uuid.New(), p.ID)
	m := testutil.SeedMessage(t, ctx, db, conv, types.RoleUser, "before", time.Now())

	if err := repo.UpdateFields(dbc, m.ID, map[string]interface{}{"content": "after", "edited": true}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	got, err := repo.GetByID(dbc, m.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: err=%v row=%v", err, got)
	}
	if got.Content != "after" || !got.Edited {
		t.Fatalf("want content=after edited=true got content=%q edited=%v", got.Content, got.Edited)
	}
}
