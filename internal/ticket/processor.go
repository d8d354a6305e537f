package ticket

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/comigor/support-agent/internal/logger"

	"github.com/qmuntal/stateless"
)

// Processing states. Failed and Done are terminal.
const (
	StateReady       = "Ready"
	StateSummarizing = "Summarizing"
	StateReplying    = "Replying"
	StateDone        = "Done"
	StateFailed      = "Failed"
)

const (
	triggerSubmit     = "Submit"
	triggerSummarized = "Summarized"
	triggerReplied    = "Replied"
	triggerFailed     = "Failed"
)

// DefaultContextWindow is how many previous tickets feed the context block.
const DefaultContextWindow = 3

// Completer turns a prompt into completion text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Result holds both completions of a processed ticket.
type Result struct {
	Summary string `json:"summary"`
	Reply   string `json:"reply"`
}

// Processor builds the summary and reply prompts for a ticket and runs them
// through the completer, one after the other.
type Processor struct {
	completer     Completer
	contextWindow int
}

// NewProcessor creates a Processor. A non-positive window falls back to
// DefaultContextWindow.
func NewProcessor(c Completer, contextWindow int) *Processor {
	if contextWindow < 1 {
		contextWindow = DefaultContextWindow
	}
	return &Processor{completer: c, contextWindow: contextWindow}
}

// ContextWindow returns how many recent records Process uses.
func (p *Processor) ContextWindow() int { return p.contextWindow }

// Process validates text, then asks for a summary and a reply. recent is the
// session history oldest first; only its last ContextWindow entries are used.
// A Result is returned only when both completions succeed.
func (p *Processor) Process(ctx context.Context, text string, source Source, recent []Record) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{}, ErrEmptyTicket
	}
	if len(recent) > p.contextWindow {
		recent = recent[len(recent)-p.contextWindow:]
	}

	contextBlock := ContextBlock(recent)
	summaryPrompt := SummaryPrompt(text, source, contextBlock)
	replyPrompt := ReplyPrompt(text, source, contextBlock)

	var (
		res     Result
		lastErr error
	)

	fsm := stateless.NewStateMachine(StateReady)

	fsm.Configure(StateReady).
		Permit(triggerSubmit, StateSummarizing)

	fsm.Configure(StateSummarizing).
		OnEntry(func(ctx context.Context, _ ...any) error {
			logger.L.Debug("requesting ticket summary", "source", source, "context_entries", len(recent))
			summary, err := p.completer.Complete(ctx, summaryPrompt)
			if err != nil {
				lastErr = fmt.Errorf("summary completion: %w", err)
				return fsm.FireCtx(ctx, triggerFailed)
			}
			res.Summary = summary
			return fsm.FireCtx(ctx, triggerSummarized)
		}).
		Permit(triggerSummarized, StateReplying).
		Permit(triggerFailed, StateFailed)

	fsm.Configure(StateReplying).
		OnEntry(func(ctx context.Context, _ ...any) error {
			logger.L.Debug("requesting suggested reply", "source", source)
			reply, err := p.completer.Complete(ctx, replyPrompt)
			if err != nil {
				lastErr = fmt.Errorf("reply completion: %w", err)
				return fsm.FireCtx(ctx, triggerFailed)
			}
			res.Reply = reply
			return fsm.FireCtx(ctx, triggerReplied)
		}).
		Permit(triggerReplied, StateDone).
		Permit(triggerFailed, StateFailed)

	fsm.Configure(StateDone)
	fsm.Configure(StateFailed)

	if err := fsm.FireCtx(ctx, triggerSubmit); err != nil {
		if lastErr != nil {
			return Result{}, lastErr
		}
		return Result{}, fmt.Errorf("ticket processing: %w", err)
	}

	state, err := fsm.State(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("ticket processing state: %w", err)
	}
	switch state {
	case StateDone:
		return res, nil
	case StateFailed:
		if lastErr == nil {
			lastErr = errors.New("ticket processing failed without a specific error")
		}
		return Result{}, lastErr
	default:
		return Result{}, fmt.Errorf("ticket processing ended in unexpected state %v", state)
	}
}
