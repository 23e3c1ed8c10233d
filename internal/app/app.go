package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"
	"strings"

	"go.uber.org/zap"

	"texpatch/internal/cli"
	"texpatch/internal/editor"
	"texpatch/internal/fs"
	"texpatch/internal/llm"
	"texpatch/internal/logging"
	"texpatch/internal/parser"
	"texpatch/internal/patcher"
	"texpatch/internal/source"
	"texpatch/internal/suggestion"
	"texpatch/internal/ui"
	"texpatch/model"
)

// App orchestrates the entire application logic.
type App struct {
	cfg      *cli.Config
	log      *zap.Logger
	buf      editor.Buffer
	nvim     *editor.NvimBuffer
	coord    *suggestion.Coordinator
	provider *source.Provider
}

// DetailedError enhances a standard error with a stack trace.
type DetailedError struct {
	Err   error
	Stack []byte
}

func (e *DetailedError) Error() string {
	return e.Err.Error()
}

// New creates a new App instance: logger, document buffer, fallback
// client and the suggestion coordinator.
func New(cfg *cli.Config) (*App, error) {
	log, err := logging.New(cfg.LogFile)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, log: log, provider: source.New()}
	if err := a.openBuffer(); err != nil {
		return nil, err
	}
	a.coord = suggestion.NewCoordinator(a.buf, a.newClient(), cfg.Model, log)
	return a, nil
}

// openBuffer binds the live document: an explicit file argument wins,
// otherwise the surrounding Neovim instance.
func (a *App) openBuffer() error {
	if a.cfg.Document != "" {
		content, err := fs.Load(a.cfg.Document)
		if err != nil {
			return err
		}
		a.buf = editor.NewMemoryBuffer(content)
		a.log.Info("document loaded", zap.String("path", a.cfg.Document), zap.Int("bytes", len(content)))
		return nil
	}

	nb, err := editor.DialNvim()
	if err != nil {
		if errors.Is(err, editor.ErrUnavailable) {
			return fmt.Errorf("no document: not inside Neovim and no document file given")
		}
		return err
	}
	a.nvim = nb
	a.buf = nb
	a.log.Info("attached to Neovim buffer")
	return nil
}

func (a *App) newClient() llm.Client {
	client, err := llm.NewGeminiClient(context.Background(), llm.GeminiConfig{
		APIKey: os.Getenv("GEMINI_API_KEY"),
		Model:  a.cfg.Model,
	})
	if err != nil {
		a.log.Warn("fallback client unavailable", zap.Error(err))
		return llm.Unavailable(err)
	}
	return client
}

// Coordinator exposes the suggestion lifecycle to the TUI.
func (a *App) Coordinator() *suggestion.Coordinator { return a.coord }

// LoadProposal reads the collaborator's reply from the configured source
// and parses it into a proposal.
func (a *App) LoadProposal() (*model.Proposal, error) {
	raw, origin, err := a.provider.GetContent()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("source (%s) is empty, nothing to process", origin)
	}
	a.log.Debug("proposal text read", zap.String("origin", string(origin)), zap.Int("bytes", len(raw)))
	return parser.ParseProposal(raw)
}

// SaveApplied persists a file-backed document after a successful apply,
// when the user asked for it.
func (a *App) SaveApplied() error {
	if !a.cfg.Write || a.cfg.Document == "" {
		return nil
	}
	text, err := a.buf.Text()
	if err != nil {
		return err
	}
	if err := a.Save(text); err != nil {
		return err
	}
	a.log.Info("document saved", zap.String("path", a.cfg.Document))
	return nil
}

// Save writes content to the configured document file.
func (a *App) Save(content string) error {
	return fs.Save(a.cfg.Document, content)
}

// Close releases the editor connection and flushes the log.
func (a *App) Close() {
	if a.nvim != nil {
		a.nvim.Close()
	}
	_ = a.log.Sync()
}

// Execute runs the non-TUI paths (--fix and --headless).
func (a *App) Execute() (summary model.Summary, err error) {
	// Centralized panic recovery to provide stack traces for unexpected errors.
	defer func() {
		if r := recover(); r != nil {
			err = &DetailedError{
				Err:   fmt.Errorf("internal panic: %v", r),
				Stack: debug.Stack(),
			}
		}
	}()

	if a.cfg.Fix {
		return model.Summary{}, a.fixHunks()
	}
	return a.runHeadless()
}

// fixHunks renumbers the proposal's hunk headers against the current
// document and prints the corrected hunks to stdout.
func (a *App) fixHunks() error {
	p, err := a.LoadProposal()
	if err != nil {
		return err
	}
	if p.Mode() != model.ModeDiff {
		return fmt.Errorf("fix: proposal carries no diff hunks")
	}
	snapshot, err := a.buf.Text()
	if err != nil {
		return err
	}
	fixed, err := patcher.Renumber(snapshot, p.Hunks)
	if err != nil {
		return err
	}
	fmt.Print(fixed)
	return nil
}

// runHeadless drives a full suggestion resolution without the TUI.
func (a *App) runHeadless() (model.Summary, error) {
	p, err := a.LoadProposal()
	if err != nil {
		return model.Summary{}, err
	}

	s, err := a.coord.Propose(p)
	if err != nil {
		return model.Summary{}, err
	}
	summary := model.Summary{Mode: s.Mode}

	switch a.coord.State() {
	case suggestion.StateInvalid:
		ui.Error("Proposal rejected: %s", s.ValidationError)
		summary.Message = s.ValidationError
		return summary, nil
	case suggestion.StateSimulationFailed:
		ui.Error("Suggestion cannot be applied: %s", s.Diagnostic)
		summary.Message = s.Diagnostic
		return summary, nil
	}

	if s.Explanation != "" {
		ui.Header("--- Suggestion ---")
		ui.Info("%s", s.Explanation)
	}

	if !a.decide() {
		_ = a.coord.Reject()
		summary.Rejected = true
		return summary, nil
	}

	state, err := a.coord.Apply()
	if err != nil {
		return summary, err
	}
	if state == suggestion.StateFallbackRequested {
		state, err = a.runFallback()
		if err != nil {
			return summary, err
		}
	}

	switch state {
	case suggestion.StateApplied:
		if err := a.SaveApplied(); err != nil {
			return summary, err
		}
		summary.Applied = true
		summary.Mode = a.coord.Active().Mode
	case suggestion.StateRejected:
		summary.Rejected = true
	default:
		summary.Message = a.coord.Active().Diagnostic
	}
	return summary, nil
}

// runFallback performs the fallback round-trip synchronously and, when a
// usable rewrite comes back, asks for one more confirmation.
func (a *App) runFallback() (suggestion.State, error) {
	ui.Warning("Diff could not be applied; requesting a search/replace rewrite...")

	ctx, id, conversation, modelID, err := a.coord.BeginFallback(context.Background())
	if err != nil {
		return a.coord.State(), err
	}
	resp, reqErr := a.coord.Client().RequestSearchReplace(ctx, conversation, modelID)
	a.coord.CompleteFallback(id, resp, reqErr)

	if !a.coord.CanApply() {
		if msg := a.coord.FallbackError(); msg != "" {
			ui.Error("Fallback request failed: %s", msg)
		}
		return a.coord.State(), nil
	}

	ui.Success("Received a search/replace rewrite.")
	if !a.decide() {
		_ = a.coord.Reject()
		return a.coord.State(), nil
	}
	return a.coord.Apply()
}

// decide asks for confirmation unless --yes was given. Piped stdin has
// been consumed by the proposal read, so --yes is the only way to apply
// a piped proposal.
func (a *App) decide() bool {
	if a.cfg.Yes {
		return true
	}
	return ui.Confirm("Apply this suggestion?")
}
