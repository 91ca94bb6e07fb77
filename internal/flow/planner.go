package flow

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/EnigmaBots/EventPilot/internal/format"
	"github.com/EnigmaBots/EventPilot/internal/genai"
	"github.com/EnigmaBots/EventPilot/internal/models"
)

// DefaultPace is the delay between consecutive bullet lines. Purely cosmetic
// pacing for readability; it is skippable and never correctness-relevant.
const DefaultPace = time.Second

// EventPlannerFlow drives the per-user planning conversation. One inbound
// event produces at most one ordered burst of outbound messages; callers
// (the messaging router) guarantee events for the same user are serialized.
type EventPlannerFlow struct {
	sessions  *SessionManager
	gen       genai.ClientInterface
	messenger Messenger
	recorder  Recorder
	pace      time.Duration
}

// PlannerOption configures an EventPlannerFlow.
type PlannerOption func(*EventPlannerFlow)

// WithPace overrides the inter-bullet delay. Zero disables pacing.
func WithPace(d time.Duration) PlannerOption {
	return func(f *EventPlannerFlow) { f.pace = d }
}

// NewEventPlannerFlow creates the conversation engine with its dependencies.
// recorder may be nil when no interaction log is configured.
func NewEventPlannerFlow(sessions *SessionManager, gen genai.ClientInterface, messenger Messenger, recorder Recorder, opts ...PlannerOption) *EventPlannerFlow {
	f := &EventPlannerFlow{
		sessions:  sessions,
		gen:       gen,
		messenger: messenger,
		recorder:  recorder,
		pace:      DefaultPace,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// HandleEvent processes one inbound event for one user. Generation failures
// never escape: every error path inside the turn resolves to a user-visible
// message and a stable or advancing session state. A returned error means
// the transport or store itself failed.
func (f *EventPlannerFlow) HandleEvent(ctx context.Context, evt models.InboundEvent) error {
	if evt.From == "" {
		return models.ErrEmptyRecipient
	}
	slog.Debug("Flow HandleEvent", "from", evt.From, "kind", evt.Kind, "body_length", len(evt.Body))

	if evt.Kind == models.EventCommand {
		return f.handleCommand(ctx, evt)
	}

	session, err := f.sessions.GetOrCreate(ctx, evt.From)
	if err != nil {
		return err
	}

	switch evt.Kind {
	case models.EventSelection:
		return f.handleSelection(ctx, session, evt.Body)
	case models.EventText:
		return f.handleText(ctx, session, evt.Body)
	default:
		slog.Warn("Flow unknown event kind", "from", evt.From, "kind", evt.Kind)
		return f.messenger.SendText(ctx, evt.From, msgGuidance)
	}
}

func (f *EventPlannerFlow) handleCommand(ctx context.Context, evt models.InboundEvent) error {
	switch strings.ToLower(strings.TrimSpace(evt.Body)) {
	case models.CommandStart:
		if _, err := f.sessions.Restart(ctx, evt.From); err != nil {
			return err
		}
		if err := f.messenger.SendChoices(ctx, evt.From, msgGreeting, CategoryChoices()); err != nil {
			return err
		}
		return nil
	case models.CommandHelp:
		// Help never touches session state.
		return f.messenger.SendText(ctx, evt.From, msgHelp)
	case models.CommandExit:
		session, err := f.sessions.Get(ctx, evt.From)
		if err != nil {
			return err
		}
		if session == nil {
			return f.messenger.SendText(ctx, evt.From, msgStartRequired)
		}
		return f.terminate(ctx, session)
	default:
		slog.Debug("Flow unrecognized command", "from", evt.From, "command", evt.Body)
		return f.messenger.SendText(ctx, evt.From, msgGuidance)
	}
}

func (f *EventPlannerFlow) handleSelection(ctx context.Context, session *models.Session, token string) error {
	if token == ExitToken {
		return f.terminate(ctx, session)
	}

	if category, ok := models.ParseEventCategory(token); ok {
		if session.State != models.StateAwaitingCategory {
			slog.Debug("Flow category selection in wrong state", "userID", session.UserID, "state", session.State)
			return f.messenger.SendText(ctx, session.UserID, msgGuidance)
		}
		session.Category = category
		session.LastFollowUp = ""
		if err := f.sessions.Transition(session, models.StateAwaitingDescription); err != nil {
			return f.messenger.SendText(ctx, session.UserID, msgGuidance)
		}
		if err := f.sessions.Save(ctx, session); err != nil {
			return err
		}
		return f.messenger.SendText(ctx, session.UserID, descriptionPrompt(category))
	}

	if topic, ok := ParseFollowUpToken(token); ok {
		if session.State != models.StateAwaitingFollowUp {
			slog.Debug("Flow follow-up selection in wrong state", "userID", session.UserID, "state", session.State)
			return f.messenger.SendText(ctx, session.UserID, msgGuidance)
		}
		session.LastFollowUp = topic
		if err := f.sessions.Transition(session, models.StateAwaitingDescription); err != nil {
			return f.messenger.SendText(ctx, session.UserID, msgGuidance)
		}
		if err := f.sessions.Save(ctx, session); err != nil {
			return err
		}
		return f.messenger.SendText(ctx, session.UserID, followUpAck(topic))
	}

	slog.Debug("Flow unknown selection token", "userID", session.UserID, "token", token)
	return f.messenger.SendText(ctx, session.UserID, msgGuidance)
}

func (f *EventPlannerFlow) handleText(ctx context.Context, session *models.Session, body string) error {
	switch session.State {
	case models.StateAwaitingDescription:
		if len(body) > models.MaxDescriptionLength {
			return f.messenger.SendText(ctx, session.UserID, msgDescriptionTooLong)
		}
		return f.runGeneration(ctx, session, body)
	case models.StateAwaitingCategory, models.StateAwaitingFollowUp:
		// Policy: free text while a selection is expected gets a reminder.
		// Applied consistently for both selection states.
		return f.messenger.SendText(ctx, session.UserID, msgChooseFirst)
	case models.StateTerminated:
		// Absorbing: no silent generation from a terminated session.
		return f.messenger.SendText(ctx, session.UserID, msgStartRequired)
	default:
		slog.Error("Flow session in unknown state", "userID", session.UserID, "state", session.State)
		return f.messenger.SendText(ctx, session.UserID, msgGuidance)
	}
}

// runGeneration executes one full generation turn: prompt, generate, format,
// paced delivery, follow-up choices, interaction record.
func (f *EventPlannerFlow) runGeneration(ctx context.Context, session *models.Session, description string) error {
	userID := session.UserID
	turn := session.Turn

	if err := f.messenger.SendTyping(ctx, userID); err != nil {
		slog.Debug("Flow typing indicator failed", "error", err, "userID", userID)
	}

	var prompt models.PromptSpec
	if session.LastFollowUp != "" {
		prompt = BuildFollowUpPrompt(session.Category, session.LastFollowUp, description, session.LastDescription)
	} else {
		prompt = BuildPlanPrompt(session.Category, description)
	}

	raw, genErr := f.gen.Generate(ctx, prompt)

	// The generation call is the turn's suspension point: the user may have
	// restarted or exited while it ran. Re-read the session and drop the
	// result if its turn counter moved.
	current, err := f.sessions.Get(ctx, userID)
	if err != nil {
		return err
	}
	if current == nil || current.Turn != turn || current.State != models.StateAwaitingDescription {
		slog.Info("Flow dropping stale generation result", "userID", userID, "turn", turn)
		return nil
	}
	session = current
	session.LastDescription = description

	if genErr != nil {
		// The conversation must never deadlock on a provider failure: the
		// apology takes the plan's place and the flow advances as usual.
		slog.Warn("Flow generation failed, sending fallback", "error", genErr, "userID", userID)
		if err := f.messenger.SendText(ctx, userID, msgGenerationFailed); err != nil {
			return err
		}
		if err := f.sessions.Transition(session, models.StateAwaitingFollowUp); err != nil {
			return err
		}
		if err := f.sessions.Save(ctx, session); err != nil {
			return err
		}
		if err := f.messenger.SendChoices(ctx, userID, msgMoreHelp, FollowUpChoices(session.Category)); err != nil {
			return err
		}
		f.record(ctx, session, description, msgGenerationFailed)
		return nil
	}

	plan := format.Plan(raw, prompt)

	if err := f.messenger.SendText(ctx, userID, planHeader(session.Category)); err != nil {
		return err
	}
	if err := f.sendPaced(ctx, userID, plan.Lines); err != nil {
		return err
	}
	if err := f.sessions.Transition(session, models.StateAwaitingFollowUp); err != nil {
		return err
	}
	if err := f.sessions.Save(ctx, session); err != nil {
		return err
	}
	// Successful turns close with the randomized sign-off; the fallback path
	// keeps the plainer prompt.
	if err := f.messenger.SendChoices(ctx, userID, format.SignOff(), FollowUpChoices(session.Category)); err != nil {
		return err
	}

	// Record only after the whole reply is queued; the recorder contract
	// keeps log faults away from the conversation.
	f.record(ctx, session, description, strings.Join(plan.Lines, "\n"))
	return nil
}

func (f *EventPlannerFlow) terminate(ctx context.Context, session *models.Session) error {
	// Exit is honored from any state. Moving the turn counter invalidates
	// any generation call still in flight for this user.
	session.State = models.StateTerminated
	session.Turn++
	if err := f.sessions.Save(ctx, session); err != nil {
		return err
	}
	return f.messenger.SendText(ctx, session.UserID, msgFarewell)
}

// sendPaced sends lines in order with the cosmetic inter-line delay. On
// context cancellation the remaining delays are skipped, never the lines.
func (f *EventPlannerFlow) sendPaced(ctx context.Context, to string, lines []string) error {
	for i, line := range lines {
		if i > 0 && f.pace > 0 && ctx.Err() == nil {
			timer := time.NewTimer(f.pace)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
			}
		}
		if err := f.messenger.SendText(ctx, to, line); err != nil {
			return err
		}
	}
	return nil
}

func (f *EventPlannerFlow) record(ctx context.Context, session *models.Session, input, output string) {
	if f.recorder == nil {
		return
	}
	f.recorder.Record(ctx, models.LogEntry{
		UserID:    session.UserID,
		Category:  session.Category,
		Input:     input,
		Output:    output,
		Timestamp: time.Now(),
	})
}
