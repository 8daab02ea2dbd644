package agent

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/kidslingo/kidslingo/internal/schema"
	"github.com/kidslingo/kidslingo/internal/shared/llmutils"
	"github.com/kidslingo/kidslingo/internal/tracer"
)

// LoopRunner executes the LLM ↔ tool iteration loop for one turn.
type LoopRunner struct {
	provider schema.LLMProvider
	executor schema.Executor
	settings schema.AgentSettings
}

func newLoopRunner(provider schema.LLMProvider, executor schema.Executor, settings schema.AgentSettings) LoopRunner {
	return LoopRunner{provider: provider, executor: executor, settings: settings}
}

// loopOutcome is what run hands back to the orchestrator on success.
type loopOutcome struct {
	content   string
	rounds    int
	toolsUsed []string
	capped    bool
	usage     schema.Usage // summed over every completion call
}

// run drives conversation to a final answer. conversation is appended to in
// place: each assistant message that requests tools is followed by one tool
// message per call, in call order. The final assistant message is appended
// last. At most MaxToolRounds tool rounds are executed; if the provider still
// asks for tools after that, its calls are dropped and its text is used.
func (r *LoopRunner) run(
	ctx context.Context,
	conversation *schema.Messages,
	tools []map[string]any,
	onProgress func(string),
) (loopOutcome, error) {
	var out loopOutcome

	resp, err := r.complete(ctx, conversation, tools, 0)
	if err != nil {
		return out, &TurnError{Stage: StageCompletion, Err: err}
	}
	out.usage.Add(resp.Usage)

	for resp.HasToolCalls() && out.rounds < r.settings.MaxToolRounds {
		if onProgress != nil {
			if clean := llmutils.StripThink(resp.Content); clean != "" {
				onProgress(clean)
			}
			onProgress(llmutils.ToolHint(resp.ToolCalls))
		}

		// The requesting message must precede its results.
		conversation.AddAssistant(resp.Content, resp.ToolCalls)

		for _, tc := range resp.ToolCalls {
			out.toolsUsed = append(out.toolsUsed, tc.Name)
			result, err := r.execute(ctx, tc, out.rounds)
			if err != nil {
				return out, &TurnError{Stage: StageTool, Tool: tc.Name, Rounds: out.rounds, Err: err}
			}
			conversation.AddToolResult(tc.ID, tc.Name, result.Content())
		}
		out.rounds++

		resp, err = r.complete(ctx, conversation, tools, out.rounds)
		if err != nil {
			return out, &TurnError{Stage: StageCompletion, Rounds: out.rounds, Err: err}
		}
		out.usage.Add(resp.Usage)
	}

	if resp.HasToolCalls() {
		out.capped = true
		slog.Warn("Tool round limit reached", "rounds", out.rounds, "pending", len(resp.ToolCalls))
	}
	conversation.AddAssistant(resp.Content, nil)

	out.content = llmutils.StripThink(resp.Content)
	if out.content == "" {
		out.content = r.settings.EmptyReply
	}
	return out, nil
}

func (r *LoopRunner) complete(ctx context.Context, conversation *schema.Messages, tools []map[string]any, round int) (schema.LLMResponse, error) {
	ctx, span := tracer.StartSpan(ctx, "agent.completion")
	defer span.End()
	span.SetAttributes(tracer.IntAttr("turn.round", round), tracer.IntAttr("turn.messages", conversation.Len()))

	resp, err := r.provider.Chat(ctx, *conversation, tools, schema.NewChatOptions(
		r.settings.Model, r.settings.MaxTokens, r.settings.Temperature, r.settings.ToolChoice,
	))
	if err != nil {
		slog.Error("LLM error", "round", round, "err", err)
		tracer.RecordError(span, err)
		return resp, err
	}
	span.SetAttributes(tracer.IntAttr("response.tool_calls", len(resp.ToolCalls)))
	tracer.SetOK(span)
	return resp, nil
}

func (r *LoopRunner) execute(ctx context.Context, tc schema.ToolCall, round int) (schema.ToolResult, error) {
	ctx, span := tracer.StartSpan(ctx, "agent.tool")
	defer span.End()
	span.SetAttributes(tracer.StringAttr("tool.name", tc.Name), tracer.IntAttr("turn.round", round))

	argsJSON, _ := json.Marshal(tc.Arguments)
	slog.Info("Tool call", "name", tc.Name, "args", llmutils.Truncate(string(argsJSON), 200))

	result, err := r.executor.Execute(ctx, tc.Name, tc.Arguments)
	if err != nil {
		slog.Error("Tool transport failed", "name", tc.Name, "err", err)
		tracer.RecordError(span, err)
		return result, err
	}
	if result.IsError() {
		slog.Warn("Tool returned error", "name", tc.Name, "error", llmutils.Truncate(result.Err, 200))
	}
	tracer.SetOK(span)
	return result, nil
}
