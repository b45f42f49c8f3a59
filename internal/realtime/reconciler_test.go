package realtime

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/chucklechain/server/internal/models"
	"github.com/chucklechain/server/internal/store/sqlitestore"
	"github.com/chucklechain/server/pkg/wire"
	"github.com/stretchr/testify/require"
)

func openSQLite(t *testing.T) *sqlitestore.Store {
	t.Helper()
	st, err := sqlitestore.Open(filepath.Join(t.TempDir(), "realtime.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close(context.Background()) })
	return st
}

func seedChat(t *testing.T, st *sqlitestore.Store, from, to string, texts ...string) models.Conversation {
	t.Helper()
	ctx := context.Background()
	conv, _, err := st.FindOrCreateConversation(ctx, from, to, "conv-"+from+"-"+to, testEpoch)
	require.NoError(t, err)
	for i, text := range texts {
		require.NoError(t, st.CreateMessage(ctx, models.Message{
			ID:             conv.ID + "-m" + string(rune('0'+i)),
			ConversationID: conv.ID,
			SenderID:       from,
			Text:           text,
			CreatedAt:      testEpoch.Add(time.Duration(i) * time.Second),
		}))
	}
	return conv
}

func TestReconciler_ReceiptsToOnlineSenderOnce(t *testing.T) {
	h := newHarness()
	st := openSQLite(t)
	conv := seedChat(t, st, "alice", "bob", "one", "two")

	alice := h.connect("alice", "a1")
	alice.reset()
	rec := NewReconciler(st, h.sessions, h.router, fixedClock())

	res, err := rec.MarkConversationRead(context.Background(), conv.ID, "bob")
	require.NoError(t, err)
	require.Len(t, res.Flipped, 2)
	require.Equal(t, 2, res.Delivered)

	receipts := alice.named(wire.EventMessageRead)
	require.Len(t, receipts, 2)
	first := receipts[0].(wire.MessageReadPayload)
	require.Equal(t, conv.ID, first.ConversationID)
	require.Equal(t, "bob", first.ReadBy)
	require.Equal(t, wire.Timestamp(testEpoch), first.Timestamp)

	again, err := rec.MarkConversationRead(context.Background(), conv.ID, "bob")
	require.NoError(t, err)
	require.Empty(t, again.Flipped)
	require.Zero(t, again.Delivered)
	require.Len(t, alice.named(wire.EventMessageRead), 2)
}

func TestReconciler_OfflineSenderStillFlips(t *testing.T) {
	h := newHarness()
	st := openSQLite(t)
	conv := seedChat(t, st, "alice", "bob", "while you were out")
	rec := NewReconciler(st, h.sessions, h.router, fixedClock())

	res, err := rec.MarkConversationRead(context.Background(), conv.ID, "bob")
	require.NoError(t, err)
	require.Len(t, res.Flipped, 1)
	require.Zero(t, res.Delivered)

	msg, err := st.GetMessage(context.Background(), res.Flipped[0])
	require.NoError(t, err)
	require.True(t, msg.Read)
	require.NotNil(t, msg.ReadAt)
}

func TestReconciler_OwnMessagesAreNotFlipped(t *testing.T) {
	h := newHarness()
	st := openSQLite(t)
	conv := seedChat(t, st, "alice", "bob", "mine")
	rec := NewReconciler(st, h.sessions, h.router, fixedClock())

	res, err := rec.MarkConversationRead(context.Background(), conv.ID, "alice")
	require.NoError(t, err)
	require.Empty(t, res.Flipped)
}

func TestReconciler_RejectsUnknownAndOutsiders(t *testing.T) {
	h := newHarness()
	st := openSQLite(t)
	conv := seedChat(t, st, "alice", "bob", "private")
	rec := NewReconciler(st, h.sessions, h.router, fixedClock())

	_, err := rec.MarkConversationRead(context.Background(), "nope", "bob")
	require.ErrorIs(t, err, ErrConversationNotFound)

	_, err = rec.MarkConversationRead(context.Background(), conv.ID, "mallory")
	require.ErrorIs(t, err, ErrNotParticipant)

	msg, err := st.GetMessage(context.Background(), conv.ID+"-m0")
	require.NoError(t, err)
	require.False(t, msg.Read)
}

func TestReconciler_ConcurrentTriggersEmitEachReceiptOnce(t *testing.T) {
	h := newHarness()
	st := openSQLite(t)
	conv := seedChat(t, st, "alice", "bob", "a", "b", "c", "d", "e")
	alice := h.connect("alice", "a1")
	alice.reset()
	rec := NewReconciler(st, h.sessions, h.router, fixedClock())

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := rec.MarkConversationRead(context.Background(), conv.ID, "bob")
			require.NoError(t, err)
			mu.Lock()
			total += len(res.Flipped)
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Equal(t, 5, total)
	require.Len(t, alice.named(wire.EventMessageRead), 5)
}
