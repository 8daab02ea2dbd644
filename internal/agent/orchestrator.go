// Package agent runs tutoring turns: it normalises the caller's history,
// drives the completion ↔ tool loop, and returns the final answer.
package agent

import (
	"context"
	"log/slog"
	"time"

	agentcfg "github.com/kidslingo/kidslingo/internal/config/agent"
	"github.com/kidslingo/kidslingo/internal/executor"
	"github.com/kidslingo/kidslingo/internal/schema"
	"github.com/kidslingo/kidslingo/internal/shared/idutils"
	"github.com/kidslingo/kidslingo/internal/tracer"
)

// TurnResult is the full outcome of one turn.
type TurnResult struct {
	TurnID    string
	Content   string
	Messages  []schema.Message // normalised history plus everything the turn appended
	Rounds    int              // tool rounds executed
	ToolsUsed []string
	Capped    bool // the round limit cut the turn short
	Usage     schema.Usage
}

// Orchestrator is safe for concurrent use: each turn owns its conversation,
// and the contract, executor and provider are shared read-only.
type Orchestrator struct {
	contract schema.Contract
	settings schema.AgentSettings
	prompt   *PromptContext
	runner   LoopRunner
}

// NewOrchestrator wires a turn runner. The executor is guarded by contract so
// names the provider invents never reach a backend.
func NewOrchestrator(
	provider schema.LLMProvider,
	contract schema.Contract,
	exec schema.Executor,
	settings schema.AgentSettings,
	prompt *PromptContext,
) *Orchestrator {
	if settings.MaxToolRounds <= 0 {
		settings.MaxToolRounds = 6
	}
	if settings.EmptyReply == "" {
		settings.EmptyReply = agentcfg.DefaultEmptyReply
	}
	return &Orchestrator{
		contract: contract,
		settings: settings,
		prompt:   prompt,
		runner:   newLoopRunner(provider, executor.NewGuard(contract, exec), settings),
	}
}

// RunTurn implements schema.TurnRunner.
func (o *Orchestrator) RunTurn(ctx context.Context, history []schema.Message) (string, error) {
	res, err := o.Run(ctx, history)
	if err != nil {
		return "", err
	}
	return res.Content, nil
}

// Run executes one turn and returns its full result. Errors are *TurnError.
func (o *Orchestrator) Run(ctx context.Context, history []schema.Message) (TurnResult, error) {
	return o.RunWithProgress(ctx, history, nil)
}

// RunWithProgress is Run with a callback receiving interim assistant text and
// tool hints while the turn is in flight.
func (o *Orchestrator) RunWithProgress(ctx context.Context, history []schema.Message, onProgress func(string)) (TurnResult, error) {
	turnID := idutils.NewID()
	start := time.Now()

	ctx, span := tracer.StartSpan(ctx, "agent.turn")
	defer span.End()
	span.SetAttributes(
		tracer.StringAttr("turn.id", turnID),
		tracer.StringAttr("contract", o.contract.Name()),
	)

	conversation := Normalize(history, o.prompt.SystemPrompt())

	var tools []map[string]any
	if !o.settings.DisableTools {
		tools = o.contract.Definitions()
	}

	out, err := o.runner.run(ctx, &conversation, tools, onProgress)
	result := TurnResult{
		TurnID:    turnID,
		Content:   out.content,
		Messages:  conversation.Messages,
		Rounds:    out.rounds,
		ToolsUsed: out.toolsUsed,
		Capped:    out.capped,
		Usage:     out.usage,
	}
	if err != nil {
		tracer.RecordError(span, err)
		slog.Error("Turn failed", "turn", turnID, "err", err)
		return result, err
	}

	span.SetAttributes(
		tracer.IntAttr("turn.rounds", out.rounds),
		tracer.IntAttr("turn.tokens", out.usage.TotalTokens),
	)
	tracer.SetOK(span)
	slog.Info("Turn complete",
		"turn", turnID,
		"rounds", out.rounds,
		"tools", len(out.toolsUsed),
		"capped", out.capped,
		"tokens", out.usage.TotalTokens,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return result, nil
}

var _ schema.TurnRunner = (*Orchestrator)(nil)
