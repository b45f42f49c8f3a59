package handlers

import (
	"context"

	"github.com/chucklechain/server/internal/realtime"
)

type readCall struct {
	conversationID string
	readerID       string
}

type fakeReconciler struct {
	calls  []readCall
	result realtime.ReadResult
	err    error
}

func (f *fakeReconciler) MarkConversationRead(_ context.Context, conversationID, readerID string) (realtime.ReadResult, error) {
	f.calls = append(f.calls, readCall{conversationID: conversationID, readerID: readerID})
	return f.result, f.err
}

type fakeOnline []string

func (f fakeOnline) OnlineUsers() []string { return f }
