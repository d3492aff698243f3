package services

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/personachat-backend/internal/data/repos/testutil"
	types "github.com/yungbote/personachat-backend/internal/domain"
	"github.com/yungbote/personachat-backend/internal/modules/chat/breaker"
	"github.com/yungbote/personachat-backend/internal/modules/chat/webhook"
	"github.com/yungbote/personachat-backend/internal/platform/apierr"
	"github.com/yungbote/personachat-backend/internal/platform/dbctx"
)

func TestSendMessageFailOnceThenSucceed(t *testing.T) {
	stub := newWebhookStub(t,
		stubReply{status: http.StatusBadGateway, body: `upstream down`},
		stubReply{status: http.StatusOK, body: `{"reply":"Hello from Ada"}`},
	)
	h := newChatHarness(t, stub)
	p := h.persona(t, "ada")

	res, err := h.svc.SendMessage(h.dbc(), SendMessageInput{
		PersonaID: p.ID,
		UserID:    h.userID,
		Message:   "hi there",
	})
	require.NoError(t, err)
	require.Equal(t, "Hello from Ada", res.Reply)
	require.Equal(t, 2, stub.calls())

	msgs := h.liveMessages(t, res.ConversationID)
	require.Len(t, msgs, 2)
	require.Equal(t, types.RoleUser, msgs[0].Role)
	require.Equal(t, types.RoleAssistant, msgs[1].Role)
	require.Equal(t, "Hello from Ada", msgs[1].Content)
	require.True(t, msgs[1].CreatedAt.After(msgs[0].CreatedAt))

	snap := h.breakers.Get(p.ID.String()).Snapshot()
	require.Equal(t, breaker.StateClosed, snap.State)
	require.Equal(t, 0, snap.Failures)

	sent := stub.lastPayload()
	require.Equal(t, "hi there", sent.Message)
	require.Equal(t, res.ConversationID.String(), sent.ConversationID)
	require.Equal(t, res.SessionID, sent.SessionID)
	require.Regexp(t, `^chs_[0-9a-f]{32}$`, res.SessionID)

	var session types.ChatSession
	require.NoError(t, h.db.Where("session_id = ?", res.SessionID).First(&session).Error)
	require.Equal(t, types.SessionStatusCompleted, session.Status)
	require.NotNil(t, session.EndedAt)

	events := h.auditEvents(t, AuditChatMessageSent)
	require.Len(t, events, 1)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(events[0].Payload, &payload))
	require.EqualValues(t, len("hi there"), payload["message_length"])
	require.NotContains(t, payload, "content")
}

func TestSendMessageExhaustionKeepsUserMessage(t *testing.T) {
	stub := newWebhookStub(t, stubReply{status: http.StatusServiceUnavailable, body: `busy`})
	h := newChatHarness(t, stub)
	p := h.persona(t, "ada")

	_, err := h.svc.SendMessage(h.dbc(), SendMessageInput{PersonaID: p.ID, UserID: h.userID, Message: "anyone?"})
	require.Error(t, err)
	require.True(t, apierr.HasCode(err, webhook.CodeWebhookFailed), "got %v", err)
	require.Equal(t, 3, stub.calls())

	snap := h.breakers.Get(p.ID.String()).Snapshot()
	require.Equal(t, 1, snap.Failures)
	require.Equal(t, breaker.StateClosed, snap.State)

	var msgs []*types.Message
	require.NoError(t, h.db.Where("user_id = ?", h.userID).Find(&msgs).Error)
	require.Len(t, msgs, 1)
	require.Equal(t, types.RoleUser, msgs[0].Role)

	var sessions []*types.ChatSession
	require.NoError(t, h.db.Find(&sessions).Error)
	require.Len(t, sessions, 1)
	require.Equal(t, types.SessionStatusFailed, sessions[0].Status)
}

func TestSendMessageCallerCancelMarksSessionFailed(t *testing.T) {
	stub := newWebhookStub(t, stubReply{status: http.StatusBadGateway, body: `slow`})
	h := newChatHarness(t, stub)
	p := h.persona(t, "ada")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stub.setOnRequest(cancel)

	_, err := h.svc.SendMessage(dbctx.Context{Ctx: ctx}, SendMessageInput{PersonaID: p.ID, UserID: h.userID, Message: "still there?"})
	require.Error(t, err)
	require.True(t, apierr.HasCode(err, webhook.CodeRequestCancelled), "got %v", err)
	require.Equal(t, 1, stub.calls())

	snap := h.breakers.Get(p.ID.String()).Snapshot()
	require.Equal(t, 0, snap.Failures)
	require.Equal(t, breaker.StateClosed, snap.State)

	var sessions []*types.ChatSession
	require.NoError(t, h.db.Find(&sessions).Error)
	require.Len(t, sessions, 1)
	require.Equal(t, types.SessionStatusFailed, sessions[0].Status)
	require.NotNil(t, sessions[0].EndedAt)
}

func TestSendMessageRejectsWhenBreakerOpen(t *testing.T) {
	stub := newWebhookStub(t)
	h := newChatHarness(t, stub)
	p := h.persona(t, "ada")
	br := h.breakers.Get(p.ID.String())
	for i := 0; i < 5; i++ {
		br.OnFailure()
	}

	_, err := h.svc.SendMessage(h.dbc(), SendMessageInput{PersonaID: p.ID, UserID: h.userID, Message: "hello"})
	ae, ok := apierr.As(err)
	require.True(t, ok)
	require.Equal(t, CodePersonaUnavailable, ae.Code)
	require.Equal(t, http.StatusServiceUnavailable, ae.Status)
	require.Equal(t, 0, stub.calls())

	var count int64
	require.NoError(t, h.db.Model(&types.Conversation{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestSendMessageValidation(t *testing.T) {
	h := newChatHarness(t, newWebhookStub(t))
	active := h.persona(t, "ada")
	inactive := testutil.SeedPersona(t, h.ctx, h.db, "sleepy", "", false)
	unconfigured := testutil.SeedPersona(t, h.ctx, h.db, "blank", "", true)

	cases := []struct {
		name string
		in   SendMessageInput
		code string
	}{
		{"empty message", SendMessageInput{PersonaID: active.ID, UserID: h.userID, Message: "   "}, CodeInvalidRequest},
		{"missing persona", SendMessageInput{PersonaID: uuid.New(), UserID: h.userID, Message: "hi"}, CodePersonaNotFound},
		{"inactive persona", SendMessageInput{PersonaID: inactive.ID, UserID: h.userID, Message: "hi"}, CodePersonaInactive},
		{"webhook not configured", SendMessageInput{PersonaID: unconfigured.ID, UserID: h.userID, Message: "hi"}, webhook.CodeNotConfigured},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.svc.SendMessage(h.dbc(), tc.in)
			require.True(t, apierr.HasCode(err, tc.code), "want %s got %v", tc.code, err)
		})
	}

	var count int64
	require.NoError(t, h.db.Model(&types.Message{}).Count(&count).Error)
	require.Zero(t, count)
	require.Len(t, h.auditEvents(t, webhook.AuditConfigurationError), 1)
}

func TestSendMessageRejectsForeignFileBeforeWriting(t *testing.T) {
	stub := newWebhookStub(t)
	h := newChatHarness(t, stub)
	p := h.persona(t, "ada")
	foreign := testutil.SeedFile(t, h.ctx, h.db, uuid.New(), nil)

	_, err := h.svc.SendMessage(h.dbc(), SendMessageInput{
		PersonaID: p.ID,
		UserID:    h.userID,
		Message:   "see attached",
		FileID:    &foreign.ID,
	})
	require.True(t, apierr.HasCode(err, CodeFileNotFound), "got %v", err)
	require.Equal(t, 0, stub.calls())

	var count int64
	require.NoError(t, h.db.Model(&types.Conversation{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestSendMessageAttachesOwnFile(t *testing.T) {
	h := newChatHarness(t, newWebhookStub(t))
	p := h.persona(t, "ada")
	f := testutil.SeedFile(t, h.ctx, h.db, h.userID, nil)

	res, err := h.svc.SendMessage(h.dbc(), SendMessageInput{PersonaID: p.ID, UserID: h.userID, Message: "see attached", FileID: &f.ID})
	require.NoError(t, err)

	var stored types.UploadedFile
	require.NoError(t, h.db.First(&stored, "id = ?", f.ID).Error)
	require.NotNil(t, stored.ConversationID)
	require.Equal(t, res.ConversationID, *stored.ConversationID)
}

func TestSendMessageSupersedesConversationOfOtherPersona(t *testing.T) {
	h := newChatHarness(t, newWebhookStub(t))
	ada := h.persona(t, "ada")
	bob := h.persona(t, "bob")
	stale := testutil.SeedConversation(t, h.ctx, h.db, h.userID, bob.ID)

	res, err := h.svc.SendMessage(h.dbc(), SendMessageInput{
		PersonaID:      ada.ID,
		UserID:         h.userID,
		Message:        "switching personas",
		ConversationID: &stale.ID,
	})
	require.NoError(t, err)
	require.NotEqual(t, stale.ID, res.ConversationID)

	var conv types.Conversation
	require.NoError(t, h.db.First(&conv, "id = ?", res.ConversationID).Error)
	require.Equal(t, ada.ID, conv.PersonaID)
	require.Empty(t, h.liveMessages(t, stale.ID))
}

func TestSendMessageReusesOwnConversation(t *testing.T) {
	h := newChatHarness(t, newWebhookStub(t))
	p := h.persona(t, "ada")

	first, err := h.svc.SendMessage(h.dbc(), SendMessageInput{PersonaID: p.ID, UserID: h.userID, Message: "one"})
	require.NoError(t, err)
	second, err := h.svc.SendMessage(h.dbc(), SendMessageInput{PersonaID: p.ID, UserID: h.userID, Message: "two", ConversationID: &first.ConversationID})
	require.NoError(t, err)
	require.Equal(t, first.ConversationID, second.ConversationID)
	require.Len(t, h.liveMessages(t, first.ConversationID), 4)
}

func TestSendMessageTitleFromWebhook(t *testing.T) {
	stub := newWebhookStub(t, stubReply{status: http.StatusOK, body: `[{"json":{"output":"Sure!","suggestedTitle":"Weekend Trip Ideas"}}]`})
	h := newChatHarness(t, stub)
	p := h.persona(t, "ada")

	res, err := h.svc.SendMessage(h.dbc(), SendMessageInput{PersonaID: p.ID, UserID: h.userID, Message: "plan my weekend"})
	require.NoError(t, err)
	require.Equal(t, "Sure!", res.Reply)
	require.NotNil(t, res.Title)
	require.Equal(t, "Weekend Trip Ideas", *res.Title)
}

func TestSendMessageHeuristicTitleFromFirstMessage(t *testing.T) {
	h := newChatHarness(t, newWebhookStub(t))
	p := h.persona(t, "ada")

	res, err := h.svc.SendMessage(h.dbc(), SendMessageInput{PersonaID: p.ID, UserID: h.userID, Message: "recipes for sourdough bread"})
	require.NoError(t, err)
	require.NotNil(t, res.Title)
	require.NotEmpty(t, *res.Title)

	var conv types.Conversation
	require.NoError(t, h.db.First(&conv, "id = ?", res.ConversationID).Error)
	require.Equal(t, *res.Title, *conv.Title)
}

func TestSendMessageDoesNotClobberUserTitle(t *testing.T) {
	stub := newWebhookStub(t, stubReply{status: http.StatusOK, body: `{"reply":"ok","title":"Something Else"}`})
	h := newChatHarness(t, stub)
	p := h.persona(t, "ada")
	conv := testutil.SeedConversation(t, h.ctx, h.db, h.userID, p.ID)
	require.NoError(t, h.db.Model(conv).Update("title", "My Project Plan").Error)

	res, err := h.svc.SendMessage(h.dbc(), SendMessageInput{PersonaID: p.ID, UserID: h.userID, Message: "next step?", ConversationID: &conv.ID})
	require.NoError(t, err)
	require.NotNil(t, res.Title)
	require.Equal(t, "My Project Plan", *res.Title)

	var stored types.Conversation
	require.NoError(t, h.db.First(&stored, "id = ?", conv.ID).Error)
	require.Equal(t, "My Project Plan", *stored.Title)
}

func TestSendMessageReplacesPlaceholderTitle(t *testing.T) {
	stub := newWebhookStub(t, stubReply{status: http.StatusOK, body: `{"reply":"ok","title":"Garden Planning"}`})
	h := newChatHarness(t, stub)
	p := h.persona(t, "ada")
	conv := testutil.SeedConversation(t, h.ctx, h.db, h.userID, p.ID)
	require.NoError(t, h.db.Model(conv).Update("title", "Chat with Ada").Error)

	res, err := h.svc.SendMessage(h.dbc(), SendMessageInput{PersonaID: p.ID, UserID: h.userID, Message: "tomatoes?", ConversationID: &conv.ID})
	require.NoError(t, err)
	require.Equal(t, "Garden Planning", *res.Title)
}

// seedBranch writes [M, A1, U2, A2] one minute apart and returns them in order.
func seedBranch(t *testing.T, h *chatHarness, p *types.Persona) (*types.Conversation, []*types.Message) {
	t.Helper()
	conv := testutil.SeedConversation(t, h.ctx, h.db, h.userID, p.ID)
	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	msgs := []*types.Message{
		testutil.SeedMessage(t, h.ctx, h.db, conv, types.RoleUser, "M", base),
		testutil.SeedMessage(t, h.ctx, h.db, conv, types.RoleAssistant, "A1", base.Add(time.Minute)),
		testutil.SeedMessage(t, h.ctx, h.db, conv, types.RoleUser, "U2", base.Add(2*time.Minute)),
		testutil.SeedMessage(t, h.ctx, h.db, conv, types.RoleAssistant, "A2", base.Add(3*time.Minute)),
	}
	return conv, msgs
}

func TestEditMessageBranches(t *testing.T) {
	stub := newWebhookStub(t, stubReply{status: http.StatusOK, body: `{"reply":"A1 prime"}`})
	h := newChatHarness(t, stub)
	p := h.persona(t, "ada")
	conv, msgs := seedBranch(t, h, p)

	res, err := h.svc.EditMessage(h.dbc(), EditMessageInput{MessageID: msgs[0].ID, UserID: h.userID, Content: "M prime"})
	require.NoError(t, err)
	require.Equal(t, int64(3), res.SoftDeleted)
	require.Equal(t, "A1 prime", res.AssistantContent)
	require.Equal(t, conv.ID, res.ConversationID)

	live := h.liveMessages(t, conv.ID)
	require.Len(t, live, 2)
	require.Equal(t, msgs[0].ID, live[0].ID)
	require.Equal(t, "M prime", live[0].Content)
	require.True(t, live[0].Edited)
	require.Equal(t, res.AssistantMessageID, live[1].ID)

	var deleted int64
	require.NoError(t, h.db.Unscoped().Model(&types.Message{}).
		Where("conversation_id = ? AND deleted_at IS NOT NULL", conv.ID).Count(&deleted).Error)
	require.Equal(t, int64(3), deleted)

	sent := stub.lastPayload()
	require.True(t, sent.IsEdit)
	require.Equal(t, msgs[0].ID.String(), sent.EditedMessageID)
	require.Len(t, sent.History, 1)
	require.Equal(t, "M prime", sent.History[0].Content)

	var edits []*types.MessageEdit
	require.NoError(t, h.db.Where("message_id = ?", msgs[0].ID).Find(&edits).Error)
	require.Len(t, edits, 1)
	require.Equal(t, "M", edits[0].PreviousContent)

	var session types.ChatSession
	require.NoError(t, h.db.Where("session_id = ?", res.SessionID).First(&session).Error)
	require.True(t, session.IsEdit)

	events := h.auditEvents(t, AuditChatMessageEdited)
	require.Len(t, events, 1)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(events[0].Payload, &payload))
	require.Equal(t, "M", payload["previous_content"])
	require.Equal(t, "M prime", payload["new_content"])
}

func TestEditMessageCommitsWhenRegenerationFails(t *testing.T) {
	stub := newWebhookStub(t, stubReply{status: http.StatusInternalServerError, body: `boom`})
	h := newChatHarness(t, stub)
	p := h.persona(t, "ada")
	conv, msgs := seedBranch(t, h, p)

	res, err := h.svc.EditMessage(h.dbc(), EditMessageInput{MessageID: msgs[2].ID, UserID: h.userID, Content: "U2 prime"})
	require.NoError(t, err)
	require.Empty(t, res.AssistantContent)
	require.Equal(t, int64(1), res.SoftDeleted)
	require.Equal(t, 3, stub.calls())

	live := h.liveMessages(t, conv.ID)
	require.Len(t, live, 4)
	require.Equal(t, "U2 prime", live[2].Content)
	require.Equal(t, "", live[3].Content)

	// Edits never charge the breaker.
	snap := h.breakers.Get(p.ID.String()).Snapshot()
	require.Equal(t, 0, snap.Failures)
}

func TestEditMessagePreconditions(t *testing.T) {
	h := newChatHarness(t, newWebhookStub(t))
	p := h.persona(t, "ada")
	_, msgs := seedBranch(t, h, p)

	_, err := h.svc.EditMessage(h.dbc(), EditMessageInput{MessageID: msgs[1].ID, UserID: h.userID, Content: "x"})
	ae, ok := apierr.As(err)
	require.True(t, ok)
	require.Equal(t, CodeMessageNotEditable, ae.Code)
	require.Equal(t, http.StatusBadRequest, ae.Status)

	_, err = h.svc.EditMessage(h.dbc(), EditMessageInput{MessageID: msgs[0].ID, UserID: uuid.New(), Content: "x"})
	ae, ok = apierr.As(err)
	require.True(t, ok)
	require.Equal(t, CodeMessageNotEditable, ae.Code)
	require.Equal(t, http.StatusForbidden, ae.Status)

	_, err = h.svc.EditMessage(h.dbc(), EditMessageInput{MessageID: uuid.New(), UserID: h.userID, Content: "x"})
	require.True(t, apierr.HasCode(err, CodeMessageNotFound))

	_, err = h.svc.EditMessage(h.dbc(), EditMessageInput{MessageID: msgs[0].ID, UserID: h.userID, Content: "  "})
	require.True(t, apierr.HasCode(err, CodeInvalidRequest))

	// Discarded branch messages are no longer editable.
	_, err = h.svc.EditMessage(h.dbc(), EditMessageInput{MessageID: msgs[0].ID, UserID: h.userID, Content: "M prime"})
	require.NoError(t, err)
	_, err = h.svc.EditMessage(h.dbc(), EditMessageInput{MessageID: msgs[2].ID, UserID: h.userID, Content: "U2 prime"})
	require.True(t, apierr.HasCode(err, CodeMessageNotFound))
}

func TestEditMessageWindow(t *testing.T) {
	stub := newWebhookStub(t)
	h := newChatHarness(t, stub)
	p := h.persona(t, "ada")
	_, msgs := seedBranch(t, h, p)

	svc := h.svc.(*personaChatService)
	svc.editWindow = 30 * time.Minute

	_, err := h.svc.EditMessage(h.dbc(), EditMessageInput{MessageID: msgs[0].ID, UserID: h.userID, Content: "late"})
	ae, ok := apierr.As(err)
	require.True(t, ok)
	require.Equal(t, CodeEditWindowExpired, ae.Code)
	require.Equal(t, http.StatusForbidden, ae.Status)
	require.Equal(t, 0, stub.calls())
}
