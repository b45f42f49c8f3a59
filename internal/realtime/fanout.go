package realtime

import (
	"context"
	"time"

	"github.com/chucklechain/server/internal/logger"
	"github.com/chucklechain/server/internal/models"
	"github.com/chucklechain/server/internal/realtime/runtime"
	"github.com/chucklechain/server/pkg/wire"
)

// NotificationStore is the durable surface the Notifier needs.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n models.Notification) error
	GetUser(ctx context.Context, id string) (models.User, error)
}

// NotifyRequest describes one activity to report to a recipient.
type NotifyRequest struct {
	RecipientID string
	SenderID    string
	Kind        models.NotificationKind
	PostID      string
	CommentID   string
	// Content is the rendered snippet; empty uses the kind's default text.
	Content string
}

// NotifyOutcome is what a Notify call ended up doing.
type NotifyOutcome int

const (
	// NotifySkipped: self-notification or invalid request; nothing created.
	NotifySkipped NotifyOutcome = iota
	// NotifyFailed: the durable write failed; nothing delivered.
	NotifyFailed
	// NotifyDropped: stored; recipient offline.
	NotifyDropped
	// NotifyDelivered: stored and pushed live.
	NotifyDelivered
)

func (o NotifyOutcome) String() string {
	switch o {
	case NotifySkipped:
		return "skipped"
	case NotifyFailed:
		return "failed"
	case NotifyDropped:
		return "dropped"
	case NotifyDelivered:
		return "delivered"
	default:
		return "unknown"
	}
}

// DefaultContent is the snippet used when a request carries none.
func DefaultContent(kind models.NotificationKind) string {
	switch kind {
	case models.KindLike:
		return "liked your post"
	case models.KindComment:
		return "commented on your post"
	case models.KindCommentLike:
		return "liked your comment"
	case models.KindCommentReply:
		return "replied to your comment"
	case models.KindFollow:
		return "started following you"
	case models.KindTag:
		return "tagged you in a comment"
	default:
		return ""
	}
}

// Notifier records notifications durably and then pushes a fully rendered
// copy to the recipient when they are online. It is always a secondary
// effect: failures are logged, never returned.
type Notifier struct {
	store  NotificationStore
	router *Router
	queue  *runtime.Manager
	now    func() time.Time
	newID  func() string
}

// NewNotifier wires a Notifier. queue may be nil, in which case NotifyAsync
// runs inline.
func NewNotifier(st NotificationStore, router *Router, queue *runtime.Manager, now func() time.Time, newID func() string) *Notifier {
	if now == nil {
		now = time.Now
	}
	return &Notifier{store: st, router: router, queue: queue, now: now, newID: newID}
}

// Notify creates the notification and then attempts live delivery.
func (n *Notifier) Notify(ctx context.Context, req NotifyRequest) NotifyOutcome {
	if req.RecipientID == "" || req.SenderID == "" {
		return NotifySkipped
	}
	if req.RecipientID == req.SenderID {
		return NotifySkipped
	}
	if !req.Kind.Valid() {
		logger.Warnf("Notify: unknown kind %q from %s to %s", req.Kind, req.SenderID, req.RecipientID)
		return NotifySkipped
	}

	content := req.Content
	if content == "" {
		content = DefaultContent(req.Kind)
	}

	rec := models.Notification{
		ID:          n.newID(),
		RecipientID: req.RecipientID,
		SenderID:    req.SenderID,
		Kind:        req.Kind,
		PostID:      req.PostID,
		CommentID:   req.CommentID,
		Content:     content,
		CreatedAt:   n.now(),
	}
	if err := n.store.CreateNotification(ctx, rec); err != nil {
		logger.Errorf("Notify: failed to store %s notification for %s: %v", req.Kind, req.RecipientID, err)
		return NotifyFailed
	}

	sender := models.User{ID: req.SenderID}
	if u, err := n.store.GetUser(ctx, req.SenderID); err != nil {
		logger.Warnf("Notify: sender %s lookup failed; delivering without profile: %v", req.SenderID, err)
	} else {
		sender = u
	}

	if n.router.Deliver(req.RecipientID, wire.EventNewNotification, NotificationPayload(rec, sender)) == Delivered {
		return NotifyDelivered
	}
	return NotifyDropped
}

// NotifyAsync hands req to the recipient's fan-out queue so the caller's
// request can finish without waiting on the durable write or the push.
func (n *Notifier) NotifyAsync(req NotifyRequest) {
	if req.RecipientID == req.SenderID {
		return
	}
	if n.queue == nil {
		n.Notify(context.Background(), req)
		return
	}
	n.queue.Enqueue(req.RecipientID, func(ctx context.Context) {
		outcome := n.Notify(ctx, req)
		logger.Tracef("Notify %s %s->%s: %s", req.Kind, req.SenderID, req.RecipientID, outcome)
	})
}

// NotificationPayload renders a stored notification with its sender's
// profile for the wire.
func NotificationPayload(rec models.Notification, sender models.User) wire.NewNotificationPayload {
	return wire.NewNotificationPayload{
		ID:   rec.ID,
		Type: string(rec.Kind),
		User: wire.NotificationUser{
			ID:             sender.ID,
			Username:       sender.Username,
			ProfilePicture: sender.ProfilePicture,
		},
		Content:   rec.Content,
		PostID:    rec.PostID,
		Read:      rec.Read,
		Timestamp: wire.Timestamp(rec.CreatedAt),
	}
}
