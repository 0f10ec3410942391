package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// replySystemPrompt frames the final phrasing pass. The tool already did the
// work; the model only restates the outcome.
const replySystemPrompt = `You are a trading assistant. You are given the raw output of a tool
that already ran. Restate it for the user in one or two sentences. Never
change amounts, token symbols, transaction hashes, or statuses, and never
invent information that is not in the tool output.`

// unknownIntentReply is returned when no tool matches and no language model
// is configured.
const unknownIntentReply = "I can execute token swaps, check trade status by transaction hash, " +
	"look up token prices, and check for arbitrage. For example: " +
	`"swap 100 USDC for WETH with 1% slippage".`

// Dispatcher routes one chat message to a tool and streams progress events
// to the caller. A language model, when configured, only rephrases the final
// reply; every decision and number comes from the tools.
type Dispatcher struct {
	toolkit *Toolkit
	llm     *LLMClient
	logger  *slog.Logger
}

// NewDispatcher creates a Dispatcher. llm may be nil, in which case tool
// output is returned verbatim.
func NewDispatcher(toolkit *Toolkit, llm *LLMClient, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		toolkit: toolkit,
		llm:     llm,
		logger:  logger.With(slog.String("component", "dispatcher")),
	}
}

// Handle processes one user message, emitting events as work progresses. The
// returned error is only non-nil when the emitter fails, meaning the client
// is gone; tool failures are reported inside the stream.
func (d *Dispatcher) Handle(ctx context.Context, input, conversationID string, emit Emitter) error {
	if conversationID == "" {
		conversationID = uuid.NewString()
	}
	logger := d.logger.With(slog.String("conversation_id", conversationID))

	intent := DetectIntent(input, d.toolkit.book)
	logger.Info("intent detected", slog.String("intent", string(intent.Kind)))

	if intent.Kind == IntentUnknown {
		if err := emit(Event{Type: EventCompleted, Data: d.unknownReply(ctx, input, logger)}); err != nil {
			return fmt.Errorf("agent: emit: %w", err)
		}
		return nil
	}

	if err := emit(Event{Type: EventAgent, Data: fmt.Sprintf("Running %s", intent.Kind)}); err != nil {
		return fmt.Errorf("agent: emit: %w", err)
	}

	output := d.run(ctx, intent)
	if ctx.Err() != nil {
		logger.Warn("request cancelled mid-tool", slog.String("intent", string(intent.Kind)))
		if err := emit(Event{Type: EventError, Data: "request cancelled"}); err != nil {
			return fmt.Errorf("agent: emit: %w", err)
		}
		return nil
	}
	if err := emit(Event{Type: EventTools, Data: output}); err != nil {
		return fmt.Errorf("agent: emit: %w", err)
	}
	return d.finish(ctx, input, output, logger, emit)
}

// run executes the tool matching the intent.
func (d *Dispatcher) run(ctx context.Context, intent Intent) string {
	switch intent.Kind {
	case IntentSwap:
		return d.toolkit.ExecuteSwap(ctx, intent)
	case IntentStatus:
		return d.toolkit.CheckTradeStatus(ctx, intent.TxHash)
	case IntentPrice:
		return d.toolkit.TokenPrice(ctx, intent.Token)
	case IntentArbitrage:
		return d.toolkit.CheckArbitrage(ctx)
	default:
		return unknownIntentReply
	}
}

// finish phrases and emits the final reply. Tool output is authoritative; a
// model failure falls back to it unchanged.
func (d *Dispatcher) finish(ctx context.Context, input, output string, logger *slog.Logger, emit Emitter) error {
	reply := output
	if d.llm != nil {
		phrased, err := d.llm.Complete(ctx, replySystemPrompt,
			fmt.Sprintf("User message: %s\n\nTool output: %s", input, output))
		if err != nil {
			logger.Warn("completion failed, using tool output",
				slog.String("error", err.Error()))
		} else if strings.TrimSpace(phrased) != "" {
			reply = phrased
		}
	}

	if err := emit(Event{Type: EventCompleted, Data: reply}); err != nil {
		return fmt.Errorf("agent: emit: %w", err)
	}
	return nil
}

// unknownReply answers input that matched no tool.
func (d *Dispatcher) unknownReply(ctx context.Context, input string, logger *slog.Logger) string {
	if d.llm == nil {
		return unknownIntentReply
	}
	reply, err := d.llm.Complete(ctx, replySystemPrompt+
		"\nThe user's request matched no tool. Briefly explain what you can do.", input)
	if err != nil || strings.TrimSpace(reply) == "" {
		if err != nil {
			logger.Warn("completion failed", slog.String("error", err.Error()))
		}
		return unknownIntentReply
	}
	return reply
}
