package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketsync/internal/domain"
)

var t1 = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func quote(id string, at time.Time) Notification {
	return Notification{ID: id, UserID: "u1", Type: domain.NotifQuoteReceived, TargetURL: "/q/1", CreatedAt: at}
}

type notificationFixture struct {
	query  *fakeQuery[Notification]
	feed   *fakeFeed[Notification]
	writer *fakeNotificationWriter
	alerts *alertLog
	sync   *NotificationSync
}

func newNotificationFixture(t *testing.T, records ...Notification) *notificationFixture {
	t.Helper()
	f := &notificationFixture{
		query:  &fakeQuery[Notification]{records: records},
		feed:   &fakeFeed[Notification]{},
		writer: &fakeNotificationWriter{},
		alerts: &alertLog{},
	}
	f.sync = NewNotificationSync(f.query, f.feed, f.writer, f.alerts)
	require.NoError(t, f.sync.Activate(context.Background(), "u1"))
	return f
}

func TestNotificationDuplicateRowsGroup(t *testing.T) {
	f := newNotificationFixture(t)

	f.feed.emit(KindInsert, quote("a", t1))
	f.feed.emit(KindInsert, quote("b", t1))

	groups := f.sync.Groups()
	require.Len(t, groups, 1)
	assert.Len(t, groups[0].Members, 2)
	assert.Equal(t, 1, f.sync.UnreadCount())
	assert.Equal(t, []string{"a"}, f.alerts.got())

	require.NoError(t, f.sync.MarkGroupRead(context.Background(), "a"))

	for _, n := range f.sync.Snapshot() {
		assert.True(t, n.IsRead, n.ID)
	}
	assert.Zero(t, f.sync.UnreadCount())
	require.Len(t, f.writer.setRead, 1)
	assert.ElementsMatch(t, []string{"a", "b"}, f.writer.setRead[0])
}

func TestNotificationNoDoubleCount(t *testing.T) {
	f := newNotificationFixture(t)
	for _, id := range []string{"a", "b", "c", "d"} {
		f.feed.emit(KindInsert, quote(id, t1))
	}
	assert.Equal(t, 1, f.sync.UnreadCount())

	f.feed.emit(KindInsert, quote("e", t1.Add(time.Millisecond)))
	assert.Equal(t, 2, f.sync.UnreadCount())
}

func TestNotificationTimestampSkewIsDistinctGroup(t *testing.T) {
	f := newNotificationFixture(t)
	f.feed.emit(KindInsert, quote("a", t1))
	f.feed.emit(KindInsert, quote("b", t1.Add(time.Millisecond)))

	assert.Len(t, f.sync.Groups(), 2)
}

func TestNotificationGroupsNewestFirst(t *testing.T) {
	older := Notification{ID: "o", Type: domain.NotifBookingRequested, TargetURL: "/b/1", CreatedAt: t1}
	f := newNotificationFixture(t, older, quote("a", t1.Add(time.Hour)))

	groups := f.sync.Groups()
	require.Len(t, groups, 2)
	assert.Equal(t, "a", groups[0].Latest.ID)
	assert.Equal(t, "o", groups[1].Latest.ID)
}

func TestNotificationMarkReadFlipsOneRow(t *testing.T) {
	f := newNotificationFixture(t, quote("a", t1), quote("b", t1))

	require.NoError(t, f.sync.MarkRead(context.Background(), "a"))

	a, _ := f.sync.store.Get("a")
	b, _ := f.sync.store.Get("b")
	assert.True(t, a.IsRead)
	assert.False(t, b.IsRead)
	// the group still has an unread member
	assert.Equal(t, 1, f.sync.UnreadCount())
	assert.Equal(t, [][]string{{"a"}}, f.writer.setRead)
}

func TestNotificationMarkReadRollsBack(t *testing.T) {
	f := newNotificationFixture(t, quote("a", t1), quote("b", t1))
	f.writer.err = errBoom

	err := f.sync.MarkGroupRead(context.Background(), "b")

	assert.True(t, IsTransport(err))
	for _, n := range f.sync.Snapshot() {
		assert.False(t, n.IsRead, n.ID)
	}
	assert.Equal(t, 1, f.sync.UnreadCount())
}

func TestNotificationMarkReadUnknownID(t *testing.T) {
	f := newNotificationFixture(t)

	err := f.sync.MarkRead(context.Background(), "nope")

	assert.True(t, IsValidation(err))
	assert.Empty(t, f.writer.setRead)
}

func TestNotificationMarkReadAlreadyReadSkipsRPC(t *testing.T) {
	read := quote("a", t1)
	read.IsRead = true
	f := newNotificationFixture(t, read)

	require.NoError(t, f.sync.MarkRead(context.Background(), "a"))
	assert.Empty(t, f.writer.setRead)
}

func TestNotificationMarkAllRead(t *testing.T) {
	other := Notification{ID: "m", Type: domain.NotifNewMessage, TargetURL: "/chat/1", CreatedAt: t1}
	f := newNotificationFixture(t, quote("a", t1), quote("b", t1), other)
	require.Equal(t, 2, f.sync.UnreadCount())

	require.NoError(t, f.sync.MarkAllRead(context.Background()))

	assert.Zero(t, f.sync.UnreadCount())
	assert.Equal(t, 1, f.writer.allCalls)
}

func TestNotificationMarkAllReadRollsBack(t *testing.T) {
	read := Notification{ID: "r", Type: domain.NotifNewMessage, TargetURL: "/chat/1", CreatedAt: t1, IsRead: true}
	f := newNotificationFixture(t, quote("a", t1), read)
	f.writer.err = errBoom

	err := f.sync.MarkAllRead(context.Background())

	assert.True(t, IsTransport(err))
	assert.Equal(t, 1, f.sync.UnreadCount())
	r, _ := f.sync.store.Get("r")
	// rows that were read before stay read
	assert.True(t, r.IsRead)
}

func TestNotificationRollbackKeepsRowsTheFeedConfirmed(t *testing.T) {
	other := Notification{ID: "m", UserID: "u1", Type: domain.NotifNewMessage, TargetURL: "/chat/1", CreatedAt: t1.Add(time.Minute)}
	f := newNotificationFixture(t, quote("a", t1), other)
	f.writer.err = errBoom
	f.writer.onCall = func() {
		// another device marked "a" read while our batch call was pending
		confirmed := quote("a", t1)
		confirmed.IsRead = true
		f.feed.emit(KindUpdate, confirmed)
	}

	err := f.sync.MarkAllRead(context.Background())

	assert.True(t, IsTransport(err))
	a, _ := f.sync.store.Get("a")
	assert.True(t, a.IsRead)
	m, _ := f.sync.store.Get("m")
	assert.False(t, m.IsRead)
	assert.Equal(t, 1, f.sync.UnreadCount())
	assert.Empty(t, f.sync.inflight)
}

func TestNotificationMarkReadRollbackSkipsConfirmedRow(t *testing.T) {
	f := newNotificationFixture(t, quote("a", t1))
	f.writer.err = errBoom
	f.writer.onCall = func() {
		confirmed := quote("a", t1)
		confirmed.IsRead = true
		f.feed.emit(KindUpdate, confirmed)
	}

	require.Error(t, f.sync.MarkRead(context.Background(), "a"))

	assert.Zero(t, f.sync.UnreadCount())

	// a later failure with no feed traffic still reverts
	f.writer.onCall = nil
	f.feed.emit(KindInsert, quote("b", t1.Add(time.Hour)))
	require.Error(t, f.sync.MarkRead(context.Background(), "b"))
	b, _ := f.sync.store.Get("b")
	assert.False(t, b.IsRead)
}

func TestNotificationBackgroundDoesNotAlert(t *testing.T) {
	f := newNotificationFixture(t)
	f.sync.SetForeground(false)

	f.feed.emit(KindInsert, quote("a", t1))

	assert.Empty(t, f.alerts.got())
	assert.Equal(t, 1, f.sync.UnreadCount())

	f.sync.SetForeground(true)
	f.feed.emit(KindInsert, quote("b", t1.Add(time.Second)))
	assert.Equal(t, []string{"b"}, f.alerts.got())
}

func TestNotificationRedeliveryDoesNotAlertTwice(t *testing.T) {
	f := newNotificationFixture(t)

	f.feed.emit(KindInsert, quote("a", t1))
	f.feed.emit(KindInsert, quote("a", t1))
	f.feed.emit(KindUpdate, quote("a", t1))

	assert.Equal(t, []string{"a"}, f.alerts.got())
}

func TestNotificationFetchedRowsDoNotAlert(t *testing.T) {
	f := newNotificationFixture(t, quote("a", t1))

	// a late duplicate of a group the fetch already loaded
	f.feed.emit(KindInsert, quote("b", t1))

	assert.Empty(t, f.alerts.got())
	assert.Equal(t, 1, f.sync.UnreadCount())
}
