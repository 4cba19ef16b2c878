package generation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sandevgo/recall/internal/core"
	"github.com/sandevgo/recall/pkg/log"
)

// defaultStopSequences are chat template markers that leak out of small
// local models; generation is truncated at the first one.
var defaultStopSequences = []string{
	"<|im_end|>",
	"<|im_start|>",
	"</s>",
	"<|endoftext|>",
}

type State int

const (
	StateIdle State = iota
	StateGenerating
)

type EventKind int

const (
	EventToken EventKind = iota
	EventCompleted
	EventCancelled
	EventFailed
)

// Event is one element of a generation's event stream. Token events
// carry visible text increments; exactly one terminal event follows
// them and then the channel closes.
type Event struct {
	Kind  EventKind
	RunID string
	// Token is the increment for EventToken.
	Token string
	// Text is the final response for terminal events.
	Text string
	// MessageID is the persisted assistant message, zero when nothing
	// was persisted.
	MessageID int64
	Err       error
}

type Request struct {
	SessionID int64
	Prompt    string
	Params    core.SamplingParams
	// Timeout cancels the run after the duration; zero means no limit.
	Timeout time.Duration
}

// promptBuilder assembles the full prompt for a query.
type promptBuilder interface {
	Build(ctx context.Context, sessionID int64, query string) ([]core.PromptSegment, error)
}

// Coordinator owns the generation lifecycle: one run at a time, token
// streaming, stop sequence truncation, cancellation and persistence of
// the exchange.
type Coordinator struct {
	engine     core.InferenceEngine
	builder    promptBuilder
	messages   core.MessagesRepository
	stopSeqs   []string
	maxStopLen int

	mu      sync.Mutex
	state   State
	cancel  context.CancelFunc
	runDone chan struct{}
	runID   string
}

func NewCoordinator(engine core.InferenceEngine, builder promptBuilder, messages core.MessagesRepository) *Coordinator {
	c := &Coordinator{
		engine:   engine,
		builder:  builder,
		messages: messages,
		stopSeqs: defaultStopSequences,
	}
	for _, s := range c.stopSeqs {
		if len(s) > c.maxStopLen {
			c.maxStopLen = len(s)
		}
	}
	return c
}

func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start begins a generation run. It returns ErrAlreadyGenerating while
// a previous run is active. The returned channel delivers token events
// followed by one terminal event, then closes.
func (c *Coordinator) Start(ctx context.Context, req Request) (<-chan Event, error) {
	c.mu.Lock()
	if c.state == StateGenerating {
		c.mu.Unlock()
		return nil, core.ErrAlreadyGenerating
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.state = StateGenerating
	c.cancel = cancel
	c.runDone = make(chan struct{})
	c.runID = uuid.NewString()
	runID := c.runID
	done := c.runDone
	c.mu.Unlock()

	fail := func(err error) (<-chan Event, error) {
		cancel()
		c.mu.Lock()
		c.state = StateIdle
		c.cancel = nil
		c.mu.Unlock()
		close(done)
		return nil, err
	}

	// The prompt is built before the query is persisted, so history
	// does not contain the query twice.
	prompt, err := c.builder.Build(runCtx, req.SessionID, req.Prompt)
	if err != nil {
		return fail(err)
	}

	if _, err := c.messages.AppendMessage(ctx, req.SessionID, req.Prompt, true); err != nil {
		return fail(err)
	}

	tokens, err := c.engine.Generate(runCtx, prompt, req.Params)
	if err != nil {
		return fail(err)
	}

	if req.Timeout > 0 {
		timer := time.AfterFunc(req.Timeout, cancel)
		go func() {
			<-done
			timer.Stop()
		}()
	}

	events := make(chan Event)
	go c.run(runCtx, cancel, req, tokens, events, runID, done)
	return events, nil
}

// Cancel stops the active run, if any. The run still emits its
// terminal event before the stream closes.
func (c *Coordinator) Cancel() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// LoadModel cancels any active run, waits for it to finish and then
// switches the engine's model. Loading and generating never overlap.
func (c *Coordinator) LoadModel(ctx context.Context, model string, contextLength int) error {
	for {
		c.mu.Lock()
		if c.state == StateIdle {
			defer c.mu.Unlock()
			return c.engine.LoadModel(ctx, model, contextLength)
		}
		cancel := c.cancel
		done := c.runDone
		c.mu.Unlock()

		cancel()
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Coordinator) run(ctx context.Context, cancel context.CancelFunc, req Request, tokens <-chan core.EngineToken, events chan<- Event, runID string, done chan struct{}) {
	logger := log.FromCtx(ctx).With().Str("run_id", runID).Logger()

	defer func() {
		cancel()
		c.mu.Lock()
		c.state = StateIdle
		c.cancel = nil
		c.mu.Unlock()
		close(done)
		close(events)
	}()

	var acc strings.Builder
	emitted := 0

	emitUpTo := func(limit int) {
		if limit > emitted {
			events <- Event{Kind: EventToken, RunID: runID, Token: acc.String()[emitted:limit]}
			emitted = limit
		}
	}

	finish := func(kind EventKind, text string, err error) {
		var messageID int64
		if (kind == EventCompleted || kind == EventCancelled) && text != "" {
			id, perr := c.messages.AppendMessage(context.WithoutCancel(ctx), req.SessionID, text, false)
			if perr != nil {
				logger.Error().Err(perr).Msg("failed to persist assistant message")
			} else {
				messageID = id
			}
		}
		events <- Event{Kind: kind, RunID: runID, Text: text, MessageID: messageID, Err: err}
	}

	for tok := range tokens {
		if tok.Err != nil {
			if ctx.Err() != nil || errors.Is(tok.Err, context.Canceled) || errors.Is(tok.Err, context.DeadlineExceeded) {
				logger.Info().Int("chars", emitted).Msg("generation cancelled")
				finish(EventCancelled, acc.String()[:emitted], nil)
				return
			}
			logger.Error().Err(tok.Err).Msg("generation failed")
			finish(EventFailed, "", tok.Err)
			return
		}

		if tok.Done {
			// Stream ended cleanly; a held-back stop prefix turned out
			// to be ordinary text.
			emitUpTo(acc.Len())
			finish(EventCompleted, acc.String(), nil)
			return
		}

		acc.WriteString(tok.Text)
		full := acc.String()

		if idx := c.findStop(full); idx >= 0 {
			emitUpTo(idx)
			logger.Debug().Msg("stop sequence reached")
			finish(EventCompleted, full[:idx], nil)
			return
		}

		// Hold back any tail that could still grow into a stop
		// sequence so partial markers never reach the user.
		emitUpTo(len(full) - c.stopHoldback(full))

		if ctx.Err() != nil {
			finish(EventCancelled, acc.String()[:emitted], nil)
			return
		}
	}

	// Token channel closed without a terminal marker.
	if ctx.Err() != nil {
		finish(EventCancelled, acc.String()[:emitted], nil)
		return
	}
	emitUpTo(acc.Len())
	finish(EventCompleted, acc.String(), nil)
}

// findStop returns the index of the earliest stop sequence, or -1.
func (c *Coordinator) findStop(text string) int {
	idx := -1
	for _, stop := range c.stopSeqs {
		if i := strings.Index(text, stop); i >= 0 && (idx < 0 || i < idx) {
			idx = i
		}
	}
	return idx
}

// stopHoldback measures the longest suffix of text that is a proper
// prefix of some stop sequence.
func (c *Coordinator) stopHoldback(text string) int {
	max := c.maxStopLen - 1
	if max > len(text) {
		max = len(text)
	}
	for n := max; n > 0; n-- {
		suffix := text[len(text)-n:]
		for _, stop := range c.stopSeqs {
			if strings.HasPrefix(stop, suffix) {
				return n
			}
		}
	}
	return 0
}
