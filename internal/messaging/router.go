package messaging

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/EnigmaBots/EventPilot/internal/models"
)

// Handler processes one classified inbound event. The conversation engine
// implements this.
type Handler interface {
	HandleEvent(ctx context.Context, evt models.InboundEvent) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, evt models.InboundEvent) error

// HandleEvent calls the wrapped function.
func (f HandlerFunc) HandleEvent(ctx context.Context, evt models.InboundEvent) error {
	return f(ctx, evt)
}

// errorReplyMessage is sent when the handler itself fails on an event.
const errorReplyMessage = "⚠️ Something went wrong on our side. Please try again in a moment."

// defaultUserQueueSize bounds the per-user event queue. A user who floods
// past it has further events dropped rather than blocking other users.
const defaultUserQueueSize = 64

// Router consumes inbound events from a messaging service and dispatches
// them to the handler. Events for the same user are processed strictly in
// arrival order by a dedicated per-user worker; different users proceed
// concurrently.
type Router struct {
	msgService Service
	handler    Handler

	// queues maps canonical user IDs to their serialized event queues
	queues     map[string]chan models.InboundEvent
	mu         sync.Mutex
	consumerWG sync.WaitGroup
	workerWG   sync.WaitGroup
	closed     bool
}

// NewRouter creates a Router wiring the messaging service to the handler.
func NewRouter(msgService Service, handler Handler) *Router {
	return &Router{
		msgService: msgService,
		handler:    handler,
		queues:     make(map[string]chan models.InboundEvent),
	}
}

// Start begins consuming events from the messaging service. It returns
// immediately; consumption runs until the context is cancelled or the
// service's event channel closes.
func (r *Router) Start(ctx context.Context) {
	slog.Info("Router starting event processing")

	r.consumerWG.Add(1)
	go func() {
		defer r.consumerWG.Done()
		defer slog.Info("Router stopped event processing")

		for {
			select {
			case evt, ok := <-r.msgService.Events():
				if !ok {
					slog.Debug("Router events channel closed")
					return
				}
				r.dispatch(ctx, evt)
			case <-ctx.Done():
				slog.Debug("Router stopping due to context cancellation")
				return
			}
		}
	}()
}

// Stop waits for the consumer to finish, then closes all per-user queues and
// waits for in-flight events to drain. Call only after the consuming context
// is cancelled or the service's event channel is closed.
func (r *Router) Stop() {
	r.consumerWG.Wait()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	for _, q := range r.queues {
		close(q)
	}
	r.mu.Unlock()

	r.workerWG.Wait()
	slog.Info("Router drained")
}

// ActiveUsers returns the number of users with a live event queue.
func (r *Router) ActiveUsers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queues)
}

// dispatch routes one event onto its user's serialized queue, creating the
// queue and its worker on first contact.
func (r *Router) dispatch(ctx context.Context, evt models.InboundEvent) {
	canonical, err := r.msgService.ValidateAndCanonicalizeRecipient(evt.From)
	if err != nil {
		slog.Warn("Router dropping event with invalid sender", "error", err, "from", evt.From)
		return
	}
	evt.From = canonical

	// The enqueue stays under the lock so Stop cannot close the queue
	// between lookup and send. The send itself never blocks.
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		slog.Debug("Router dropping event, router stopped", "from", evt.From)
		return
	}
	q, exists := r.queues[canonical]
	if !exists {
		q = make(chan models.InboundEvent, defaultUserQueueSize)
		r.queues[canonical] = q
		r.workerWG.Add(1)
		go r.runUserQueue(ctx, canonical, q)
	}

	select {
	case q <- evt:
	default:
		slog.Warn("Router user queue full, dropping event", "from", evt.From, "kind", evt.Kind)
	}
}

// runUserQueue processes one user's events in order.
func (r *Router) runUserQueue(ctx context.Context, userID string, q chan models.InboundEvent) {
	defer r.workerWG.Done()
	slog.Debug("Router user queue started", "userID", userID)

	for {
		select {
		case evt, ok := <-q:
			if !ok {
				slog.Debug("Router user queue closed", "userID", userID)
				return
			}
			r.handle(ctx, evt)
		case <-ctx.Done():
			slog.Debug("Router user queue stopping", "userID", userID)
			return
		}
	}
}

// handle runs one event through the handler, replying with a generic error
// message when the handler fails.
func (r *Router) handle(ctx context.Context, evt models.InboundEvent) {
	slog.Debug("Router handling event", "from", evt.From, "kind", evt.Kind, "body_length", len(evt.Body))

	if err := r.handler.HandleEvent(ctx, evt); err != nil {
		slog.Error("Router handler failed", "error", err, "from", evt.From, "kind", evt.Kind)
		if sendErr := r.msgService.SendText(ctx, evt.From, errorReplyMessage); sendErr != nil {
			slog.Error("Router failed to send error reply", "error", sendErr, "from", evt.From)
		}
	}
}

// ClassifyBody turns a raw inbound text body into an event kind and payload
// shared by text-only transports: a leading slash marks a command, a reply
// matching the sender's pending choices becomes a selection, anything else
// stays free text.
func ClassifyBody(registry *ChoiceRegistry, from, body string) (models.EventKind, string) {
	trimmed := strings.TrimSpace(body)
	if len(trimmed) > 1 && trimmed[0] == '/' {
		return models.EventCommand, strings.ToLower(trimmed[1:])
	}
	if registry != nil {
		if token, ok := registry.Resolve(from, trimmed); ok {
			return models.EventSelection, token
		}
	}
	return models.EventText, trimmed
}
