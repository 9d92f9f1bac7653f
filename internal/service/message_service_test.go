package service

import (
	"testing"

	"marketsync/internal/domain"
	"marketsync/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newThread(t *testing.T) (*world, string) {
	t.Helper()
	w := newWorld()
	b, err := w.booking.Create("client", "provider")
	require.NoError(t, err)
	w.hub.sent = nil
	w.notifs.rows = nil
	w.pusher.sent = nil
	return w, b.ID
}

func TestSendPublishesAndNotifies(t *testing.T) {
	w, booking := newThread(t)
	ref := uuid.NewString()

	m, created, err := w.chat.Send(booking, "provider", SendMessageInput{ReceiverID: "client", Content: "  on my way ", ClientRef: ref})

	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "on my way", m.Content)
	assert.Equal(t, domain.MessageTypeText, m.MessageType)
	require.NotNil(t, m.ClientRef)
	assert.Equal(t, ref, *m.ClientRef)

	pushed := w.hub.on(domain.TableMessages)
	require.Len(t, pushed, 1)
	assert.Equal(t, booking, pushed[0].Scope)
	assert.Equal(t, domain.EventInsert, pushed[0].Kind)
	assert.Equal(t, m.ID, pushed[0].Record.(models.ChatMessage).ID)

	require.Len(t, w.notifs.rows, 1)
	assert.Equal(t, "client", w.notifs.rows[0].UserID)
	assert.Equal(t, domain.NotifNewMessage, w.notifs.rows[0].Type)
	assert.Equal(t, "Bob: on my way", w.notifs.rows[0].Message)
}

func TestSendIsIdempotentOnClientRef(t *testing.T) {
	w, booking := newThread(t)
	in := SendMessageInput{ReceiverID: "client", Content: "hi", ClientRef: uuid.NewString()}

	first, created, err := w.chat.Send(booking, "provider", in)
	require.NoError(t, err)
	require.True(t, created)

	again, created, err := w.chat.Send(booking, "provider", in)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)
	assert.Len(t, w.messages.rows, 1)
	assert.Len(t, w.hub.on(domain.TableMessages), 1)
}

func TestSendRejectsForeignClientRef(t *testing.T) {
	w, booking := newThread(t)
	ref := uuid.NewString()
	_, _, err := w.chat.Send(booking, "provider", SendMessageInput{ReceiverID: "client", Content: "hi", ClientRef: ref})
	require.NoError(t, err)

	_, _, err = w.chat.Send(booking, "client", SendMessageInput{ReceiverID: "provider", Content: "hi", ClientRef: ref})

	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSendChecksParticipants(t *testing.T) {
	w, booking := newThread(t)

	_, _, err := w.chat.Send(booking, "mallory", SendMessageInput{ReceiverID: "client", Content: "hi"})
	assert.ErrorIs(t, err, ErrForbidden)

	_, _, err = w.chat.Send(booking, "provider", SendMessageInput{ReceiverID: "mallory", Content: "hi"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, _, err = w.chat.Send(booking, "provider", SendMessageInput{ReceiverID: "client", Content: "   "})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, _, err = w.chat.Send("missing", "provider", SendMessageInput{ReceiverID: "client", Content: "hi"})
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Empty(t, w.messages.rows)
	assert.Empty(t, w.hub.sent)
}

func TestMarkThreadReadPublishesUpdates(t *testing.T) {
	w, booking := newThread(t)
	for _, c := range []string{"one", "two"} {
		_, _, err := w.chat.Send(booking, "provider", SendMessageInput{ReceiverID: "client", Content: c})
		require.NoError(t, err)
	}
	_, _, err := w.chat.Send(booking, "client", SendMessageInput{ReceiverID: "provider", Content: "mine"})
	require.NoError(t, err)
	w.hub.sent = nil

	n, err := w.chat.MarkThreadRead(booking, "client", "provider")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	pushed := w.hub.on(domain.TableMessages)
	require.Len(t, pushed, 2)
	for _, p := range pushed {
		assert.Equal(t, domain.EventUpdate, p.Kind)
		rec := p.Record.(models.ChatMessage)
		assert.True(t, rec.IsRead)
		assert.Equal(t, "provider", rec.SenderID)
	}

	n, err = w.chat.MarkThreadRead(booking, "client", "provider")
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = w.chat.MarkThreadRead(booking, "client", "client")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestListRequiresParticipant(t *testing.T) {
	w, booking := newThread(t)
	_, _, err := w.chat.Send(booking, "provider", SendMessageInput{ReceiverID: "client", Content: "hi"})
	require.NoError(t, err)

	list, err := w.chat.List(booking, "client", 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = w.chat.List(booking, "mallory", 0)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAttachmentPreview(t *testing.T) {
	w, booking := newThread(t)

	_, _, err := w.chat.Send(booking, "provider", SendMessageInput{ReceiverID: "client", Content: "https://cdn/x.png", MessageType: domain.MessageTypeImage})

	require.NoError(t, err)
	assert.Equal(t, "Bob: sent a photo", w.notifs.rows[0].Message)
}
