package suggestion

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"texpatch/internal/editor"
	"texpatch/internal/llm"
	"texpatch/internal/patcher"
	"texpatch/model"
)

var (
	// ErrSuggestionActive is returned when a new proposal arrives while
	// another suggestion has not reached a terminal state.
	ErrSuggestionActive = errors.New("suggestion: another suggestion is still unresolved")
	// ErrNotAwaitingDecision is returned when Apply or Reject is invoked
	// in a state that does not offer it; double-triggered Apply lands
	// here and is a no-op.
	ErrNotAwaitingDecision = errors.New("suggestion: no decision pending")
	// ErrApplyDisabled is returned when Apply is invoked after the one
	// permitted fallback request failed.
	ErrApplyDisabled = errors.New("suggestion: apply is disabled, reject and edit manually")
	// ErrFallbackInFlight is returned when a second fallback request is
	// started while one is outstanding.
	ErrFallbackInFlight = errors.New("suggestion: fallback request already in flight")
)

// Coordinator drives the suggestion state machine. It is the only writer
// of the document buffer for a suggestion's lifetime and performs at most
// one write transaction per terminal resolution. All methods run on the
// caller's goroutine; only the fallback network round-trip happens
// elsewhere, and its result re-enters through CompleteFallback where it is
// checked for staleness.
type Coordinator struct {
	buf     editor.Buffer
	client  llm.Client
	modelID string
	log     *zap.Logger

	state  State
	active *Suggestion
	nextID int

	// conversation is the context captured at proposal time, carried
	// only for a potential fallback request and discarded on terminal
	// resolution.
	conversation []model.Message

	fallbackFailed bool
	cancelFallback context.CancelFunc
}

// NewCoordinator creates a coordinator over the given buffer and
// collaborator client. logger may be nil.
func NewCoordinator(buf editor.Buffer, client llm.Client, modelID string, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		buf:     buf,
		client:  client,
		modelID: modelID,
		log:     logger,
		state:   StateIdle,
	}
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State { return c.state }

// Active returns the suggestion under evaluation, or nil.
func (c *Coordinator) Active() *Suggestion { return c.active }

// CanApply reports whether the Apply action is currently offered.
func (c *Coordinator) CanApply() bool {
	return c.state == StateAwaitingDecision && !c.fallbackFailed
}

// FallbackError returns the message of a failed fallback request, if any.
func (c *Coordinator) FallbackError() string {
	if c.fallbackFailed && c.active != nil {
		return c.active.Diagnostic
	}
	return ""
}

// Propose starts a new suggestion from a proposal. The document snapshot
// and the conversation context are captured here. Only one suggestion may
// be active at a time.
func (c *Coordinator) Propose(p *model.Proposal) (*Suggestion, error) {
	if c.state != StateIdle && !c.state.Terminal() {
		return nil, ErrSuggestionActive
	}

	snapshot, err := c.buf.Text()
	if err != nil {
		return nil, fmt.Errorf("suggestion: snapshot document: %w", err)
	}

	c.nextID++
	s := &Suggestion{
		ID:              c.nextID,
		Mode:            p.Mode(),
		Hunks:           p.Hunks,
		Blocks:          p.Blocks,
		FullContent:     p.FullLatex,
		Explanation:     p.Explanation,
		OriginalContent: snapshot,
	}

	c.active = s
	c.fallbackFailed = false
	c.conversation = captureConversation(snapshot, p)
	c.log.Debug("proposal received",
		zap.Int("id", s.ID),
		zap.String("mode", string(s.Mode)),
		zap.Int("hunks", len(s.Hunks)),
		zap.Int("blocks", len(s.Blocks)))

	c.evaluate(s)
	return s, nil
}

// evaluate runs validation and simulation for the active suggestion and
// sets the resulting state. The live buffer is never touched here.
func (c *Coordinator) evaluate(s *Suggestion) {
	switch s.Mode {
	case model.ModeDiff:
		if v := patcher.Validate(s.Hunks); !v.Valid {
			s.ValidationError = v.Error
			c.state = StateInvalid
			c.log.Debug("validation failed", zap.Int("id", s.ID), zap.String("error", v.Error))
			return
		}
		res := patcher.ApplyDiff(s.OriginalContent, s.Hunks)
		if !res.Success {
			s.Diagnostic = res.Error
			c.state = StateSimulationFailed
			c.log.Debug("simulation failed", zap.Int("id", s.ID), zap.String("error", res.Error))
			return
		}
		s.Preview = res.FinalContent

	case model.ModeSearchReplace:
		res := patcher.ApplySearchReplace(s.OriginalContent, s.Blocks)
		if !res.Success {
			s.Diagnostic = res.Error
			c.state = StateSimulationFailed
			c.log.Debug("simulation failed", zap.Int("id", s.ID), zap.String("error", res.Error))
			return
		}
		s.Preview = res.FinalContent

	case model.ModeFull:
		s.Preview = s.FullContent
	}

	c.state = StateAwaitingDecision
}

// Apply resolves the user's Apply decision. It re-runs the engine against
// the original snapshot and, on success, performs the suggestion's single
// buffer mutation. A diff-mode failure transitions to FallbackRequested
// instead of a terminal state; the caller then drives the fallback
// round-trip. Invoking Apply outside AwaitingDecision is a no-op error,
// which makes double-triggering safe.
func (c *Coordinator) Apply() (State, error) {
	if c.state != StateAwaitingDecision {
		return c.state, ErrNotAwaitingDecision
	}
	if c.fallbackFailed {
		return c.state, ErrApplyDisabled
	}
	s := c.active

	switch s.Mode {
	case model.ModeDiff:
		res := patcher.ApplyDiff(s.OriginalContent, s.Hunks)
		if !res.Success {
			s.Diagnostic = res.Error
			c.state = StateFallbackRequested
			c.log.Info("diff apply failed, fallback needed",
				zap.Int("id", s.ID),
				zap.Int("failedHunk", res.FailedIndex))
			return c.state, nil
		}
		if err := c.commitReplaceAll(s, res.FinalContent); err != nil {
			return c.state, err
		}

	case model.ModeSearchReplace:
		res := patcher.ApplySearchReplace(s.OriginalContent, s.Blocks)
		if !res.Success {
			s.Diagnostic = res.Error
			c.state = StateFailed
			c.conversation = nil
			c.log.Info("search/replace apply failed",
				zap.Int("id", s.ID),
				zap.Int("failedBlock", res.FailedIndex))
			return c.state, nil
		}
		if err := c.commitSearchReplace(s, res); err != nil {
			return c.state, err
		}

	case model.ModeFull:
		if err := c.commitReplaceAll(s, s.FullContent); err != nil {
			return c.state, err
		}
	}

	c.state = StateApplied
	c.conversation = nil
	c.log.Info("suggestion applied", zap.Int("id", s.ID), zap.String("mode", string(s.Mode)))
	return c.state, nil
}

// commitReplaceAll performs the one whole-content mutation, skipping the
// write entirely when the result is identical to the snapshot.
func (c *Coordinator) commitReplaceAll(s *Suggestion, final string) error {
	if final == s.OriginalContent {
		return nil
	}
	if err := c.buf.ReplaceAll(final); err != nil {
		s.Diagnostic = err.Error()
		c.state = StateFailed
		c.conversation = nil
		return fmt.Errorf("suggestion: write buffer: %w", err)
	}
	return nil
}

// commitSearchReplace installs a successful search/replace result as one
// transaction: a batched range replace when the edits map to the
// snapshot's coordinates, a whole-content replace otherwise.
func (c *Coordinator) commitSearchReplace(s *Suggestion, res patcher.SearchReplaceResult) error {
	if res.FinalContent == s.OriginalContent {
		return nil
	}
	var err error
	if res.WholeReplace || len(res.Edits) == 0 {
		err = c.buf.ReplaceAll(res.FinalContent)
	} else {
		err = c.buf.ApplyEdits(res.Edits)
	}
	if err != nil {
		s.Diagnostic = err.Error()
		c.state = StateFailed
		c.conversation = nil
		return fmt.Errorf("suggestion: write buffer: %w", err)
	}
	return nil
}

// Reject resolves the user's Reject decision from any non-terminal state,
// cancelling an in-flight fallback request. The buffer is never touched.
func (c *Coordinator) Reject() error {
	if c.state == StateIdle || c.state.Terminal() {
		return ErrNotAwaitingDecision
	}
	if c.cancelFallback != nil {
		c.cancelFallback()
		c.cancelFallback = nil
	}
	c.state = StateRejected
	c.conversation = nil
	if c.active != nil {
		c.log.Info("suggestion rejected", zap.Int("id", c.active.ID))
	}
	return nil
}

// BeginFallback prepares the asynchronous fallback round-trip. It returns
// the context the request must run under (cancelled if the user rejects
// meanwhile), the identity token to hand back to CompleteFallback, and
// the captured conversation plus model identifier.
func (c *Coordinator) BeginFallback(parent context.Context) (ctx context.Context, id int, conversation []model.Message, modelID string, err error) {
	if c.state != StateFallbackRequested {
		return nil, 0, nil, "", ErrNotAwaitingDecision
	}
	if c.cancelFallback != nil {
		return nil, 0, nil, "", ErrFallbackInFlight
	}
	ctx, cancel := context.WithCancel(parent)
	c.cancelFallback = cancel
	return ctx, c.active.ID, c.conversation, c.modelID, nil
}

// Client returns the collaborator client used for fallback requests.
func (c *Coordinator) Client() llm.Client { return c.client }

// CompleteFallback feeds the fallback response back into the state
// machine. A response whose identity token no longer matches the active
// suggestion (the user rejected meanwhile, or a newer suggestion took
// over) is discarded without any effect.
func (c *Coordinator) CompleteFallback(id int, resp *llm.FallbackResponse, reqErr error) {
	if c.active == nil || c.active.ID != id || c.state != StateFallbackRequested {
		c.log.Debug("stale fallback response discarded", zap.Int("id", id))
		return
	}
	if c.cancelFallback != nil {
		c.cancelFallback()
		c.cancelFallback = nil
	}

	if reqErr != nil {
		// One fallback request per suggestion: after a failure the user
		// may only reject. Retrying here risks a fallback storm.
		c.fallbackFailed = true
		c.active.Diagnostic = reqErr.Error()
		c.state = StateAwaitingDecision
		c.log.Warn("fallback request failed", zap.Int("id", id), zap.Error(reqErr))
		return
	}

	// Replace, not mutate: a fresh suggestion in search/replace mode over
	// the same snapshot.
	c.nextID++
	s := &Suggestion{
		ID:              c.nextID,
		Mode:            model.ModeSearchReplace,
		Blocks:          resp.Blocks,
		Explanation:     resp.Explanation,
		OriginalContent: c.active.OriginalContent,
	}
	c.active = s

	// Simulate for the preview; the decision state is offered either way,
	// a failing apply then terminates in StateFailed.
	if res := patcher.ApplySearchReplace(s.OriginalContent, s.Blocks); res.Success {
		s.Preview = res.FinalContent
	} else {
		s.Diagnostic = res.Error
	}
	c.state = StateAwaitingDecision
	c.log.Info("fallback suggestion received", zap.Int("id", s.ID), zap.Int("blocks", len(s.Blocks)))
}

// captureConversation reconstructs the collaborator exchange that led to
// the proposal, for use in a potential fallback request.
func captureConversation(snapshot string, p *model.Proposal) []model.Message {
	var reply strings.Builder
	if p.Explanation != "" {
		reply.WriteString(p.Explanation)
		reply.WriteString("\n\n")
	}
	if len(p.Hunks) > 0 {
		reply.WriteString("```diff\n")
		reply.WriteString(strings.Join(p.Hunks, "\n"))
		reply.WriteString("\n```")
	}
	return []model.Message{
		{Role: "user", Content: "Here is the current LaTeX document:\n\n" + snapshot},
		{Role: "assistant", Content: reply.String()},
	}
}
