// Package chat is the composition root for one conversation: it assembles
// context, issues the streaming request, forwards fragments to the host, and
// reports usage and errors.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/waddleai/waddle-go/internal/api"
	"github.com/waddleai/waddle-go/internal/client"
	"github.com/waddleai/waddle-go/internal/config"
	"github.com/waddleai/waddle-go/internal/message"
	"github.com/waddleai/waddle-go/internal/prompt"
	"github.com/waddleai/waddle-go/internal/stream"
	"github.com/waddleai/waddle-go/internal/usage"
)

// TurnState tracks the per-turn state machine.
type TurnState string

const (
	StateIdle            TurnState = "idle"
	StateBuildingContext TurnState = "building_context"
	StateAwaitingCred    TurnState = "awaiting_credential"
	StateStreaming       TurnState = "streaming"
	StateCompleted       TurnState = "completed"
	StateFailed          TurnState = "failed"
	StateCancelled       TurnState = "cancelled"
)

// ErrTurnInFlight is returned when a new turn starts before the previous one
// reached a terminal state. There is no request queueing.
var ErrTurnInFlight = errors.New("a chat turn is already in flight")

// ErrorKind is the user-facing recovery action for a failed turn.
type ErrorKind string

const (
	// ErrorKindAuth prompts the user to re-enter their credential.
	ErrorKindAuth ErrorKind = "auth"
	// ErrorKindRetryLater informs the user and suggests retrying later.
	// No automatic retry is performed.
	ErrorKindRetryLater ErrorKind = "retry_later"
	// ErrorKindOther shows the raw message.
	ErrorKindOther ErrorKind = "other"
)

// Classify maps a turn error to the action the host should offer.
func Classify(err error) ErrorKind {
	var (
		authErr        *client.AuthError
		rateErr        *client.RateLimitError
		unavailableErr *client.UnavailableError
	)
	switch {
	case errors.Is(err, client.ErrNoCredential), errors.As(err, &authErr):
		return ErrorKindAuth
	case errors.As(err, &rateErr), errors.As(err, &unavailableErr):
		return ErrorKindRetryLater
	default:
		return ErrorKindOther
	}
}

// Sink receives the incremental output of a turn. Implementations adapt it
// to the host UI; callbacks arrive strictly in order on the turn's goroutine.
type Sink interface {
	OnFragment(delta string)
	OnComplete(text string)
	OnError(kind ErrorKind, err error)
}

// nopSink lets callers pass a nil sink.
type nopSink struct{}

func (nopSink) OnFragment(string)        {}
func (nopSink) OnComplete(string)        {}
func (nopSink) OnError(ErrorKind, error) {}

// Opener issues the streaming request. *client.Client satisfies it.
type Opener interface {
	OpenStream(ctx context.Context, path string, body any) (*stream.Stream, error)
	SessionID() string
}

// CredentialCheck reports whether an authenticated session exists.
// *auth.Manager's ActiveCredential satisfies it.
type CredentialCheck func() (string, bool)

// Orchestrator runs chat turns. At most one turn is in flight at a time.
type Orchestrator struct {
	opener     Opener
	credential CredentialCheck
	cfg        *config.Config
	recorder   *usage.Recorder

	mu       sync.Mutex
	state    TurnState
	inFlight bool
	history  []prompt.Turn
}

func NewOrchestrator(opener Opener, credential CredentialCheck, cfg *config.Config, recorder *usage.Recorder) *Orchestrator {
	return &Orchestrator{
		opener:     opener,
		credential: credential,
		cfg:        cfg,
		recorder:   recorder,
		state:      StateIdle,
	}
}

// State returns the current turn state.
func (o *Orchestrator) State() TurnState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s TurnState) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// History returns the conversation turns completed so far.
func (o *Orchestrator) History() []prompt.Turn {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]prompt.Turn(nil), o.history...)
}

// Reset clears the local conversation history.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.history = nil
}

// Send runs one turn to a terminal state and returns the assistant text.
// Fragments are forwarded to the sink in arrival order; cancellation is
// observed before the request is issued and after every fragment. Cancelled
// turns report neither completion nor usage.
func (o *Orchestrator) Send(ctx context.Context, userText string, host prompt.HostContext, sink Sink) (string, error) {
	if sink == nil {
		sink = nopSink{}
	}

	o.mu.Lock()
	if o.inFlight {
		o.mu.Unlock()
		return "", ErrTurnInFlight
	}
	o.inFlight = true
	o.state = StateBuildingContext
	o.mu.Unlock()

	text, err := o.run(ctx, userText, host, sink)

	o.mu.Lock()
	o.inFlight = false
	switch {
	case err == nil:
		o.state = StateCompleted
	case isCancellation(err):
		o.state = StateCancelled
	default:
		o.state = StateFailed
	}
	o.mu.Unlock()

	if err != nil && !isCancellation(err) {
		sink.OnError(Classify(err), err)
	}
	return text, err
}

func (o *Orchestrator) run(ctx context.Context, userText string, host prompt.HostContext, sink Sink) (string, error) {
	userMsg := message.NewTextMessage(message.User, userText)

	o.mu.Lock()
	history := append([]prompt.Turn(nil), o.history...)
	o.mu.Unlock()
	messages := prompt.Build(userMsg, history, host)

	// A streaming request is always associated with exactly one session at
	// send time; without one, construction fails before any network I/O.
	o.setState(StateAwaitingCred)
	if _, ok := o.credential(); !ok {
		return "", client.ErrNoCredential
	}

	wireMessages, err := api.EncodeMessages(messages)
	if err != nil {
		return "", fmt.Errorf("failed to encode messages: %w", err)
	}
	req := api.ChatRequest{
		Model:     o.cfg.DefaultModel,
		Messages:  wireMessages,
		Stream:    true,
		MaxTokens: o.cfg.MaxOutputTokens,
	}
	if o.cfg.Temperature > 0 {
		temp := o.cfg.Temperature
		req.Temperature = &temp
	}
	if o.cfg.MemoryEnabled {
		req.SessionID = o.opener.SessionID()
	}
	if !o.cfg.SecurityScanning {
		off := false
		req.SecurityScanning = &off
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	o.setState(StateStreaming)
	s, err := o.opener.OpenStream(ctx, "/v1/chat/completions", req)
	if err != nil {
		return "", err
	}
	defer s.Close()

	var sb strings.Builder
	for s.Next() {
		frag := s.Current()
		if frag.Delta != "" {
			sb.WriteString(frag.Delta)
			sink.OnFragment(frag.Delta)
		}
		if frag.FinishReason != "" {
			break
		}
	}
	if err := s.Err(); err != nil {
		// Partial text already streamed is kept by the host; we only stop
		// forwarding. Cancellation is a control signal, not a failure.
		return sb.String(), err
	}

	text := sb.String()
	assistantMsg := message.NewTextMessage(message.Assistant, text)
	o.mu.Lock()
	o.history = append(o.history, prompt.Turn{User: userMsg, Assistant: &assistantMsg})
	o.mu.Unlock()

	sink.OnComplete(text)
	if o.recorder != nil {
		// Best effort; never blocks the response path.
		o.recorder.Record(usage.EstimateTokens(text))
	}
	slog.Debug("turn completed", "chars", len(text))
	return text, nil
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
