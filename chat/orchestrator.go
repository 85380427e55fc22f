// Package chat coordinates one interview turn: it assembles the
// conversation context, drives the completion endpoint in streaming or
// blocking mode, executes any tool calls the model requests, and folds
// the tool results back into a natural-language reply.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/hrkit/interviewbot/interview"
	"github.com/hrkit/interviewbot/provider"
)

const (
	defaultMaxTokens = 1000

	// followupHistoryWindow bounds how much prior history accompanies the
	// second call that folds tool results into the final reply.
	followupHistoryWindow = 3

	followupInstruction = "You are an interview assistant. Results for the tool calls you requested " +
		"are provided below. Use them to answer the candidate naturally, in plain language. " +
		"Do not mention tools, tool calls, or internal mechanics."

	fallbackReply = "I'm sorry, I wasn't able to produce a reply just now. Could you say that again?"
)

// ChunkFunc receives incremental content fragments in arrival order.
// Passing one to ProcessMessage selects streaming mode.
type ChunkFunc func(delta string)

// ToolSource supplies the declared tool schemas and executes a named tool.
// Defs failures fail the turn before any model call; Execute failures are
// absorbed into the per-call result.
type ToolSource interface {
	Defs(ctx context.Context) ([]provider.ToolDef, error)
	Execute(ctx context.Context, name string, args json.RawMessage) (any, error)
}

// Orchestrator drives one completion round trip per user turn, with at
// most one round of tool calls. It holds no cross-turn conversation state;
// history is owned by the caller.
type Orchestrator struct {
	provider  provider.Provider
	tools     ToolSource
	maxTokens int

	mu    sync.RWMutex
	model string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithModel sets the initial model identifier.
func WithModel(model string) Option {
	return func(o *Orchestrator) {
		o.model = model
	}
}

// WithMaxTokens caps the response length of each completion call.
func WithMaxTokens(n int) Option {
	return func(o *Orchestrator) {
		o.maxTokens = n
	}
}

// New creates an orchestrator over the given completion provider and tool
// source. source may be nil for a tool-less deployment.
func New(p provider.Provider, source ToolSource, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		provider:  p,
		tools:     source,
		maxTokens: defaultMaxTokens,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// SetModel updates the model identifier used for subsequent turns.
func (o *Orchestrator) SetModel(model string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.model = model
}

// Model returns the current model identifier.
func (o *Orchestrator) Model() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.model
}

// ProcessMessage produces the assistant's reply for one user turn.
// A non-nil onChunk selects streaming mode: every content fragment of the
// primary response is forwarded as it arrives. The follow-up call that
// folds tool results is always blocking.
func (o *Orchestrator) ProcessMessage(ctx context.Context, message string, history []provider.Message, onChunk ChunkFunc) (*TurnResult, error) {
	if strings.TrimSpace(message) == "" {
		return nil, ErrEmptyMessage
	}
	model := o.Model()
	if model == "" {
		return nil, ErrModelRequired
	}

	messages := interview.BuildMessages(message, history)

	var defs []provider.ToolDef
	if o.tools != nil {
		var err error
		defs, err = o.tools.Defs(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing tools: %w", err)
		}
	}

	maxTokens := o.maxTokens
	req := &provider.Request{
		Model:     model,
		Messages:  messages,
		Tools:     defs,
		MaxTokens: &maxTokens,
	}
	if len(defs) > 0 {
		req.ToolChoice = "auto"
	}

	var (
		content  string
		requests []provider.ToolCall
		err      error
	)
	if onChunk != nil {
		content, requests, err = o.streamPrimary(ctx, req, onChunk)
	} else {
		content, requests, err = o.callPrimary(ctx, req)
	}
	if err != nil {
		return nil, err
	}

	if len(requests) == 0 {
		if content == "" {
			content = fallbackReply
		}
		return &TurnResult{Content: content}, nil
	}

	calls := o.executeTools(ctx, requests)

	final, err := o.foldToolResults(ctx, model, message, history, requests, calls)
	if err != nil {
		return nil, err
	}

	return &TurnResult{Content: final, ToolCalls: calls}, nil
}

// callPrimary runs the primary completion in blocking mode.
func (o *Orchestrator) callPrimary(ctx context.Context, req *provider.Request) (string, []provider.ToolCall, error) {
	resp, err := o.provider.Call(ctx, req)
	if err != nil {
		return "", nil, fmt.Errorf("calling model: %w", err)
	}
	return resp.Content, resp.ToolCalls, nil
}

// streamPrimary runs the primary completion in streaming mode, forwarding
// content fragments to onChunk as they arrive and rebuilding tool-call
// requests from their indexed fragments. A mid-stream fault fails the
// whole turn; nothing partial is returned.
func (o *Orchestrator) streamPrimary(ctx context.Context, req *provider.Request, onChunk ChunkFunc) (string, []provider.ToolCall, error) {
	sp, ok := o.provider.(provider.StreamingProvider)
	if !ok {
		return "", nil, fmt.Errorf("provider %q does not support streaming", o.provider.Name())
	}

	stream, err := sp.CallStream(ctx, req)
	if err != nil {
		return "", nil, fmt.Errorf("starting stream: %w", err)
	}
	defer func() { _ = stream.Close() }()

	var buf strings.Builder
	acc := newToolCallAccumulator()

	for stream.Next() {
		if err := ctx.Err(); err != nil {
			return "", nil, err
		}

		chunk := stream.Current()
		if chunk.Delta != "" {
			buf.WriteString(chunk.Delta)
			onChunk(chunk.Delta)
		}
		if chunk.ToolCallDelta != nil {
			acc.merge(chunk.ToolCallDelta)
		}
	}
	if err := stream.Err(); err != nil {
		return "", nil, &StreamError{Cause: err}
	}

	return buf.String(), acc.finalize(), nil
}

// executeTools runs every requested tool. Executions are independent and
// run concurrently; all are joined before returning, and results keep the
// original request order regardless of completion order.
func (o *Orchestrator) executeTools(ctx context.Context, requests []provider.ToolCall) []ToolCall {
	calls := make([]ToolCall, len(requests))

	var wg sync.WaitGroup
	for i, req := range requests {
		wg.Add(1)
		go func(i int, req provider.ToolCall) {
			defer wg.Done()
			calls[i] = o.executeOne(ctx, req)
		}(i, req)
	}
	wg.Wait()

	return calls
}

// executeOne produces the ToolCall record for a single request. Parse and
// execution failures are downgraded to an error-shaped result; they never
// abort the turn.
func (o *Orchestrator) executeOne(ctx context.Context, req provider.ToolCall) ToolCall {
	call := ToolCall{ID: req.ID, Name: req.Name}

	raw := strings.TrimSpace(req.Arguments)
	if raw == "" {
		raw = "{}"
	}
	args := json.RawMessage(raw)
	if !json.Valid(args) {
		call.Result = errorResult(fmt.Sprintf("tool %q: malformed arguments: %s", req.Name, raw))
		return call
	}
	call.Arguments = args

	if o.tools == nil {
		call.Result = errorResult(fmt.Sprintf("tool %q: no tool source configured", req.Name))
		return call
	}

	result, err := o.tools.Execute(ctx, req.Name, args)
	if err != nil {
		call.Result = errorResult(fmt.Sprintf("tool %q failed: %v", req.Name, err))
		return call
	}
	call.Result = result
	return call
}

// foldToolResults issues the second, always-blocking completion that turns
// tool outputs into the final reply: a short instruction, a bounded window
// of history, the original user message, the original request list
// verbatim, and one tool-role message per result keyed by request ID.
func (o *Orchestrator) foldToolResults(ctx context.Context, model, message string, history []provider.Message, requests []provider.ToolCall, calls []ToolCall) (string, error) {
	messages := make([]provider.Message, 0, followupHistoryWindow+len(calls)+3)
	messages = append(messages, provider.Message{
		Role:    provider.RoleSystem,
		Content: followupInstruction,
	})

	tail := history
	if len(tail) > followupHistoryWindow {
		tail = tail[len(tail)-followupHistoryWindow:]
	}
	messages = append(messages, tail...)

	messages = append(messages, provider.Message{
		Role:    provider.RoleUser,
		Content: message,
	})
	messages = append(messages, provider.Message{
		Role:      provider.RoleAssistant,
		ToolCalls: requests,
	})
	for _, call := range calls {
		messages = append(messages, provider.Message{
			Role:    provider.RoleTool,
			ToolID:  call.ID,
			Content: serializeResult(call.Result),
		})
	}

	maxTokens := o.maxTokens
	resp, err := o.provider.Call(ctx, &provider.Request{
		Model:     model,
		Messages:  messages,
		MaxTokens: &maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("folding tool results: %w", err)
	}

	if resp.Content == "" {
		return fallbackReply, nil
	}
	return resp.Content, nil
}

// serializeResult renders a tool result as the JSON text carried by its
// tool-role message. String results pass through unchanged.
func serializeResult(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf(`{"error":"marshaling result: %v"}`, err)
	}
	return string(b)
}

func errorResult(msg string) any {
	return map[string]string{"error": msg}
}
