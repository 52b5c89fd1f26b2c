// Package dispatch orchestrates the handling of one inbound message:
// persist, classify, persist the selection, compose, send.
package dispatch

import (
	"context"
	"time"

	"refurbot/core/logger"
	"refurbot/core/menu"
	"log/slog"
)

const component = "dispatch"

// ConversationStore is the persistence surface the dispatcher needs.
// Both writes are idempotent upserts/updates; duplicate webhook
// deliveries of the same event are safe.
type ConversationStore interface {
	RecordMessage(ctx context.Context, senderID, text string, now time.Time) error
	RecordService(ctx context.Context, senderID, service string, now time.Time) error
}

// TextSender delivers one outbound text message. One attempt, no retry.
type TextSender interface {
	SendText(ctx context.Context, to, body string) error
}

// Result reports the outcome of one dispatch. Only the send step is
// surfaced; store failures are logged side-channel and never block the
// reply.
type Result struct {
	Action  menu.Action
	Reply   string
	SendErr error
}

// Sent reports whether the outbound delivery succeeded.
func (r Result) Sent() bool {
	return r.SendErr == nil
}

// Dispatcher wires the classifier, composer, store, and send capability.
type Dispatcher struct {
	store  ConversationStore
	sender TextSender
	now    func() time.Time
}

// New constructs a Dispatcher. The store and sender handles are injected
// once at startup; there is no ambient global state.
func New(store ConversationStore, sender TextSender) *Dispatcher {
	return &Dispatcher{
		store:  store,
		sender: sender,
		now:    time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (d *Dispatcher) WithClock(now func() time.Time) *Dispatcher {
	if now != nil {
		d.now = now
	}
	return d
}

// Handle processes one inbound text message end to end. The five steps
// run in strict order: record the message, classify, record the selected
// service, compose, send. The reply is composed from the freshly
// classified action even when persistence failed, trading durability for
// availability of the chat experience.
func (d *Dispatcher) Handle(ctx context.Context, senderID, text string) Result {
	start := time.Now()
	now := d.now()

	if logger.ShouldSampleDebug() {
		logger.Debug(ctx, component, "dispatch.received",
			slog.String("sender_id", senderID),
			slog.String("payload", logger.SanitizeLimit(text, 256)),
		)
	}

	if err := d.store.RecordMessage(ctx, senderID, text, now); err != nil {
		logger.Warn(ctx, component, "dispatch.store_degraded",
			slog.String("status", "fail"),
			slog.String("sender_id", senderID),
			slog.String("cause", "record message"),
			slog.String("err", err.Error()),
		)
	}

	action := menu.Classify(text)

	if action.Kind == menu.ActionService {
		if svc, ok := menu.Lookup(action.Key); ok {
			if err := d.store.RecordService(ctx, senderID, svc.Title, now); err != nil {
				logger.Warn(ctx, component, "dispatch.store_degraded",
					slog.String("status", "fail"),
					slog.String("sender_id", senderID),
					slog.String("service", svc.Title),
					slog.String("cause", "record service"),
					slog.String("err", err.Error()),
				)
			}
		}
	}

	reply := menu.Compose(action)

	result := Result{Action: action, Reply: reply}
	if err := d.sender.SendText(ctx, senderID, reply); err != nil {
		result.SendErr = err
		logger.Error(ctx, component, "dispatch.handle",
			slog.String("status", "fail"),
			slog.String("sender_id", senderID),
			slog.String("action", actionName(action)),
			slog.String("err", err.Error()),
			slog.Duration("duration", logger.Took(start)),
		)
		return result
	}

	logger.Info(ctx, component, "dispatch.handle",
		slog.String("status", "ok"),
		slog.String("sender_id", senderID),
		slog.String("action", actionName(action)),
		slog.Duration("duration", logger.Took(start)),
	)
	return result
}

func actionName(a menu.Action) string {
	switch a.Kind {
	case menu.ActionMainMenu:
		return "main_menu"
	case menu.ActionService:
		return "service_" + a.Key
	default:
		return "unrecognized"
	}
}
