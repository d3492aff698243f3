package services

import (
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/personachat-backend/internal/data/repos/testutil"
	types "github.com/yungbote/personachat-backend/internal/domain"
	"github.com/yungbote/personachat-backend/internal/platform/apierr"
)

func TestConversationLifecycle(t *testing.T) {
	h := newChatHarness(t, nil)
	p := testutil.SeedPersona(t, h.ctx, h.db, "ada", "", true)
	conv := testutil.SeedConversation(t, h.ctx, h.db, h.userID, p.ID)
	other := testutil.SeedConversation(t, h.ctx, h.db, uuid.New(), p.ID)

	list, err := h.convs.List(h.dbc(), ListConversationsInput{UserID: h.userID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, conv.ID, list[0].ID)

	renamed, err := h.convs.Rename(h.dbc(), h.userID, conv.ID, "  Reading   list ")
	require.NoError(t, err)
	require.Equal(t, "Reading list", *renamed.Title)

	archived, err := h.convs.SetArchived(h.dbc(), h.userID, conv.ID, true)
	require.NoError(t, err)
	require.NotNil(t, archived.ArchivedAt)

	list, err = h.convs.List(h.dbc(), ListConversationsInput{UserID: h.userID})
	require.NoError(t, err)
	require.Empty(t, list)
	list, err = h.convs.List(h.dbc(), ListConversationsInput{UserID: h.userID, IncludeArchived: true})
	require.NoError(t, err)
	require.Len(t, list, 1)

	restored, err := h.convs.SetArchived(h.dbc(), h.userID, conv.ID, false)
	require.NoError(t, err)
	require.Nil(t, restored.ArchivedAt)

	require.NoError(t, h.convs.Delete(h.dbc(), h.userID, conv.ID))
	_, err = h.convs.GetMessages(h.dbc(), h.userID, conv.ID, 0)
	require.True(t, apierr.HasCode(err, CodeConversationNotFound))

	_, err = h.convs.Rename(h.dbc(), h.userID, other.ID, "mine now")
	ae, ok := apierr.As(err)
	require.True(t, ok)
	require.Equal(t, http.StatusNotFound, ae.Status)

	require.Len(t, h.auditEvents(t, AuditConversationRenamed), 1)
	require.Len(t, h.auditEvents(t, AuditConversationArchived), 1)
	require.Len(t, h.auditEvents(t, AuditConversationUnarchived), 1)
	require.Len(t, h.auditEvents(t, AuditConversationDeleted), 1)
}

func TestConversationRenameValidation(t *testing.T) {
	h := newChatHarness(t, nil)
	p := testutil.SeedPersona(t, h.ctx, h.db, "ada", "", true)
	conv := testutil.SeedConversation(t, h.ctx, h.db, h.userID, p.ID)

	_, err := h.convs.Rename(h.dbc(), h.userID, conv.ID, " ")
	require.True(t, apierr.HasCode(err, CodeInvalidRequest))

	long := make([]rune, maxConversationTitleRunes+1)
	for i := range long {
		long[i] = 'a'
	}
	_, err = h.convs.Rename(h.dbc(), h.userID, conv.ID, string(long))
	require.True(t, apierr.HasCode(err, CodeInvalidRequest))
}

func TestGetMessagesHidesDiscardedBranch(t *testing.T) {
	h := newChatHarness(t, nil)
	p := testutil.SeedPersona(t, h.ctx, h.db, "ada", "", true)
	conv := testutil.SeedConversation(t, h.ctx, h.db, h.userID, p.ID)
	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	first := testutil.SeedMessage(t, h.ctx, h.db, conv, types.RoleUser, "hi", base)
	gone := testutil.SeedMessage(t, h.ctx, h.db, conv, types.RoleAssistant, "old reply", base.Add(time.Minute))
	require.NoError(t, h.db.Delete(&types.Message{}, "id = ?", gone.ID).Error)

	msgs, err := h.convs.GetMessages(h.dbc(), h.userID, conv.ID, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, first.ID, msgs[0].ID)
}
