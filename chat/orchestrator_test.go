package chat

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrkit/interviewbot/interview"
	"github.com/hrkit/interviewbot/provider"
)

// fakeStream replays scripted fragments and optionally fails afterwards.
type fakeStream struct {
	chunks  []provider.StreamChunk
	failErr error
	pos     int
	current *provider.StreamChunk
	closed  bool
	err     error
}

func (s *fakeStream) Next() bool {
	if s.pos >= len(s.chunks) {
		if s.failErr != nil {
			s.err = s.failErr
		}
		return false
	}
	s.current = &s.chunks[s.pos]
	s.pos++
	return true
}

func (s *fakeStream) Current() *provider.StreamChunk { return s.current }
func (s *fakeStream) Err() error                     { return s.err }
func (s *fakeStream) Close() error {
	s.closed = true
	return nil
}

// fakeProvider replays scripted responses and captures every request.
type fakeProvider struct {
	responses []*provider.Response
	callErr   error
	stream    *fakeStream
	streamErr error

	requests       []*provider.Request
	streamRequests []*provider.Request
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Call(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	p.requests = append(p.requests, req)
	if p.callErr != nil {
		return nil, p.callErr
	}
	if len(p.responses) == 0 {
		return &provider.Response{}, nil
	}
	resp := p.responses[0]
	p.responses = p.responses[1:]
	return resp, nil
}

func (p *fakeProvider) CallStream(ctx context.Context, req *provider.Request) (provider.ResponseStream, error) {
	p.streamRequests = append(p.streamRequests, req)
	if p.streamErr != nil {
		return nil, p.streamErr
	}
	return p.stream, nil
}

// blockingOnly hides CallStream to exercise the streaming capability check.
type blockingOnly struct {
	inner *fakeProvider
}

func (p *blockingOnly) Name() string { return "blocking-only" }
func (p *blockingOnly) Call(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	return p.inner.Call(ctx, req)
}

// fakeToolSource serves scripted schemas and dispatches to per-name funcs.
type fakeToolSource struct {
	defs     []provider.ToolDef
	defsErr  error
	handlers map[string]func(args json.RawMessage) (any, error)
}

func (s *fakeToolSource) Defs(ctx context.Context) ([]provider.ToolDef, error) {
	if s.defsErr != nil {
		return nil, s.defsErr
	}
	return s.defs, nil
}

func (s *fakeToolSource) Execute(ctx context.Context, name string, args json.RawMessage) (any, error) {
	h, ok := s.handlers[name]
	if !ok {
		return nil, errors.New("tool not found: " + name)
	}
	return h(args)
}

func echoSource() *fakeToolSource {
	return &fakeToolSource{
		defs: []provider.ToolDef{
			{Name: "echo", Description: "echoes input", Parameters: json.RawMessage(`{"type":"object"}`)},
		},
		handlers: map[string]func(args json.RawMessage) (any, error){
			"echo": func(args json.RawMessage) (any, error) {
				var v map[string]any
				if err := json.Unmarshal(args, &v); err != nil {
					return nil, err
				}
				return v, nil
			},
		},
	}
}

func TestProcessMessage_InputValidation(t *testing.T) {
	tests := []struct {
		name    string
		message string
		opts    []Option
		wantErr error
	}{
		{name: "empty message", message: "", opts: []Option{WithModel("m")}, wantErr: ErrEmptyMessage},
		{name: "whitespace message", message: "   ", opts: []Option{WithModel("m")}, wantErr: ErrEmptyMessage},
		{name: "missing model", message: "hello", opts: nil, wantErr: ErrModelRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := New(&fakeProvider{}, nil, tt.opts...)
			_, err := o.ProcessMessage(context.Background(), tt.message, nil, nil)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestProcessMessage_BlockingContentOnly(t *testing.T) {
	p := &fakeProvider{
		responses: []*provider.Response{{Content: "Hello! Which role are you applying for?"}},
	}
	o := New(p, nil, WithModel("test-model"))

	result, err := o.ProcessMessage(context.Background(), "Hi", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello! Which role are you applying for?", result.Content)
	assert.Empty(t, result.ToolCalls)

	// Exactly one model call, carrying system prompt + user message.
	require.Len(t, p.requests, 1)
	req := p.requests[0]
	assert.Equal(t, "test-model", req.Model)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, provider.RoleSystem, req.Messages[0].Role)
	assert.Equal(t, provider.RoleUser, req.Messages[1].Role)
	require.NotNil(t, req.MaxTokens)
	assert.Equal(t, defaultMaxTokens, *req.MaxTokens)
}

func TestProcessMessage_BlockingMissingContentFallsBack(t *testing.T) {
	p := &fakeProvider{responses: []*provider.Response{{}}}
	o := New(p, nil, WithModel("m"))

	result, err := o.ProcessMessage(context.Background(), "Hi", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, fallbackReply, result.Content)
}

func TestProcessMessage_StreamingMatchesBlocking(t *testing.T) {
	reply := "Question 1: Please tell me briefly about your previous office or administrative experience and the responsibilities you held."

	blocking := &fakeProvider{responses: []*provider.Response{{Content: reply}}}
	streaming := &fakeProvider{stream: &fakeStream{chunks: []provider.StreamChunk{
		{Delta: "Question 1: Please tell me briefly about your previous office or "},
		{Delta: "administrative experience and the responsibilities you held."},
		{FinishReason: provider.FinishReasonStop},
	}}}

	blockingResult, err := New(blocking, nil, WithModel("m")).
		ProcessMessage(context.Background(), "I've selected the Office Staff role.", nil, nil)
	require.NoError(t, err)

	var forwarded strings.Builder
	streamingResult, err := New(streaming, nil, WithModel("m")).
		ProcessMessage(context.Background(), "I've selected the Office Staff role.", nil, func(delta string) {
			forwarded.WriteString(delta)
		})
	require.NoError(t, err)

	assert.Equal(t, blockingResult.Content, streamingResult.Content)
	assert.Equal(t, reply, forwarded.String(), "every fragment forwarded in arrival order")
	assert.True(t, streaming.stream.closed, "stream released after the turn")
}

func TestProcessMessage_OfficeStaffFirstQuestion(t *testing.T) {
	question := interview.Questions(interview.RoleOfficeStaff)[0]
	p := &fakeProvider{responses: []*provider.Response{{Content: question}}}
	o := New(p, echoSource(), WithModel("m"))

	result, err := o.ProcessMessage(context.Background(), "I've selected the Office Staff role.", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, question, result.Content)
	assert.Empty(t, result.ToolCalls)
	assert.False(t, interview.Concluded(result.Content))
}

func TestProcessMessage_ToolRound(t *testing.T) {
	p := &fakeProvider{responses: []*provider.Response{
		{
			ToolCalls:    []provider.ToolCall{{ID: "call_1", Name: "echo", Arguments: `{"v":1}`}},
			FinishReason: provider.FinishReasonToolCalls,
		},
		{Content: "The echoed value is 1."},
	}}
	o := New(p, echoSource(), WithModel("m"))

	result, err := o.ProcessMessage(context.Background(), "Echo the value 1 for me", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "The echoed value is 1.", result.Content)

	require.Len(t, result.ToolCalls, 1)
	call := result.ToolCalls[0]
	assert.Equal(t, "call_1", call.ID)
	assert.Equal(t, "echo", call.Name)
	assert.JSONEq(t, `{"v":1}`, string(call.Arguments))
	assert.Equal(t, map[string]any{"v": float64(1)}, call.Result)

	// Second call shape: instruction, user message, assistant request
	// list verbatim, then the tool-role result keyed by the request ID.
	require.Len(t, p.requests, 2)
	followup := p.requests[1]
	require.Len(t, followup.Messages, 4)
	assert.Equal(t, provider.RoleSystem, followup.Messages[0].Role)
	assert.Equal(t, provider.RoleUser, followup.Messages[1].Role)
	assert.Equal(t, "Echo the value 1 for me", followup.Messages[1].Content)

	assistant := followup.Messages[2]
	assert.Equal(t, provider.RoleAssistant, assistant.Role)
	require.Len(t, assistant.ToolCalls, 1)
	assert.Equal(t, provider.ToolCall{ID: "call_1", Name: "echo", Arguments: `{"v":1}`}, assistant.ToolCalls[0])

	toolMsg := followup.Messages[3]
	assert.Equal(t, provider.RoleTool, toolMsg.Role)
	assert.Equal(t, "call_1", toolMsg.ToolID)
	assert.Equal(t, `{"v":1}`, toolMsg.Content)

	assert.Empty(t, followup.Tools, "follow-up offers no tools")
}

func TestProcessMessage_ToolFailureIsolation(t *testing.T) {
	source := &fakeToolSource{
		defs: []provider.ToolDef{{Name: "ok"}, {Name: "boom"}, {Name: "also_ok"}},
		handlers: map[string]func(args json.RawMessage) (any, error){
			"ok":      func(json.RawMessage) (any, error) { return "fine", nil },
			"boom":    func(json.RawMessage) (any, error) { return nil, errors.New("kaput") },
			"also_ok": func(json.RawMessage) (any, error) { return map[string]any{"n": 2}, nil },
		},
	}
	p := &fakeProvider{responses: []*provider.Response{
		{ToolCalls: []provider.ToolCall{
			{ID: "c1", Name: "ok", Arguments: `{}`},
			{ID: "c2", Name: "boom", Arguments: `{}`},
			{ID: "c3", Name: "also_ok", Arguments: ""},
		}},
		{Content: "done"},
	}}
	o := New(p, source, WithModel("m"))

	result, err := o.ProcessMessage(context.Background(), "run the tools", nil, nil)
	require.NoError(t, err, "one failing tool must not abort the turn")

	require.Len(t, result.ToolCalls, 3)
	assert.Equal(t, "c1", result.ToolCalls[0].ID)
	assert.Equal(t, "c2", result.ToolCalls[1].ID)
	assert.Equal(t, "c3", result.ToolCalls[2].ID)

	assert.Equal(t, "fine", result.ToolCalls[0].Result)

	failed, ok := result.ToolCalls[1].Result.(map[string]string)
	require.True(t, ok, "failure downgrades to an error-shaped result")
	assert.Contains(t, failed["error"], "boom")
	assert.Contains(t, failed["error"], "kaput")

	// Empty arguments are treated as an empty object.
	assert.JSONEq(t, `{}`, string(result.ToolCalls[2].Arguments))
	assert.Equal(t, map[string]any{"n": float64(2)}, result.ToolCalls[2].Result)
}

func TestProcessMessage_MalformedArgumentsDowngraded(t *testing.T) {
	p := &fakeProvider{responses: []*provider.Response{
		{ToolCalls: []provider.ToolCall{{ID: "c1", Name: "echo", Arguments: `{"v":`}}},
		{Content: "recovered"},
	}}
	o := New(p, echoSource(), WithModel("m"))

	result, err := o.ProcessMessage(context.Background(), "echo", nil, nil)
	require.NoError(t, err)

	require.Len(t, result.ToolCalls, 1)
	failed, ok := result.ToolCalls[0].Result.(map[string]string)
	require.True(t, ok)
	assert.Contains(t, failed["error"], "malformed arguments")
	assert.Equal(t, "recovered", result.Content)
}

func TestProcessMessage_StreamedToolCallFragments(t *testing.T) {
	var got json.RawMessage
	source := &fakeToolSource{
		defs: []provider.ToolDef{{Name: "lookup"}},
		handlers: map[string]func(args json.RawMessage) (any, error){
			"lookup": func(args json.RawMessage) (any, error) {
				got = args
				return "found", nil
			},
		},
	}
	p := &fakeProvider{
		stream: &fakeStream{chunks: []provider.StreamChunk{
			{ToolCallDelta: &provider.ToolCallDelta{Index: 0, ID: "call_1", Name: "lookup", ArgumentsDelta: `{"q":`}},
			{ToolCallDelta: &provider.ToolCallDelta{Index: 0, ArgumentsDelta: `"x"}`}},
			{FinishReason: provider.FinishReasonToolCalls},
		}},
		responses: []*provider.Response{{Content: "I found x for you."}},
	}
	o := New(p, source, WithModel("m"))

	result, err := o.ProcessMessage(context.Background(), "look up x", nil, func(string) {})
	require.NoError(t, err)

	assert.JSONEq(t, `{"q":"x"}`, string(got), "arguments reassembled before parsing")
	require.Len(t, result.ToolCalls, 1)
	assert.Equal(t, "call_1", result.ToolCalls[0].ID)
	assert.Equal(t, "I found x for you.", result.Content)

	// Follow-up is blocking even though the primary call streamed.
	assert.Len(t, p.streamRequests, 1)
	assert.Len(t, p.requests, 1)
}

func TestProcessMessage_StreamFaultFailsTurn(t *testing.T) {
	p := &fakeProvider{stream: &fakeStream{
		chunks:  []provider.StreamChunk{{Delta: "partial "}},
		failErr: errors.New("connection reset"),
	}}
	o := New(p, nil, WithModel("m"))

	var forwarded strings.Builder
	result, err := o.ProcessMessage(context.Background(), "Hi", nil, func(delta string) {
		forwarded.WriteString(delta)
	})

	require.Error(t, err)
	assert.Nil(t, result, "no partial TurnResult on stream fault")

	var streamErr *StreamError
	require.ErrorAs(t, err, &streamErr)
	assert.Contains(t, streamErr.Error(), "connection reset")

	// Fragments seen before the fault were still forwarded.
	assert.Equal(t, "partial ", forwarded.String())
	assert.True(t, p.stream.closed)
}

func TestProcessMessage_StreamingUnsupportedProvider(t *testing.T) {
	o := New(&blockingOnly{inner: &fakeProvider{}}, nil, WithModel("m"))

	_, err := o.ProcessMessage(context.Background(), "Hi", nil, func(string) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not support streaming")
}

func TestProcessMessage_ToolListingFailureFailsBeforeModelCall(t *testing.T) {
	p := &fakeProvider{}
	source := &fakeToolSource{defsErr: errors.New("catalogue unavailable")}
	o := New(p, source, WithModel("m"))

	_, err := o.ProcessMessage(context.Background(), "Hi", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalogue unavailable")
	assert.Empty(t, p.requests, "no model call after a listing failure")
	assert.Empty(t, p.streamRequests)
}

func TestProcessMessage_HistoryWindowInFollowup(t *testing.T) {
	history := []provider.Message{
		{Role: provider.RoleUser, Content: "h1"},
		{Role: provider.RoleAssistant, Content: "h2"},
		{Role: provider.RoleUser, Content: "h3"},
		{Role: provider.RoleAssistant, Content: "h4"},
		{Role: provider.RoleUser, Content: "h5"},
	}
	p := &fakeProvider{responses: []*provider.Response{
		{ToolCalls: []provider.ToolCall{{ID: "c1", Name: "echo", Arguments: `{}`}}},
		{Content: "done"},
	}}
	o := New(p, echoSource(), WithModel("m"))

	_, err := o.ProcessMessage(context.Background(), "latest", history, nil)
	require.NoError(t, err)

	require.Len(t, p.requests, 2)

	// Primary call carries the full history.
	assert.Len(t, p.requests[0].Messages, len(history)+2)

	// Follow-up carries only the last 3 history messages.
	followup := p.requests[1].Messages
	require.Len(t, followup, 1+followupHistoryWindow+3)
	assert.Equal(t, "h3", followup[1].Content)
	assert.Equal(t, "h4", followup[2].Content)
	assert.Equal(t, "h5", followup[3].Content)
	assert.Equal(t, "latest", followup[4].Content)
}

func TestProcessMessage_CancellationStopsStreaming(t *testing.T) {
	chunks := make([]provider.StreamChunk, 50)
	for i := range chunks {
		chunks[i] = provider.StreamChunk{Delta: "x"}
	}
	p := &fakeProvider{stream: &fakeStream{chunks: chunks}}
	o := New(p, nil, WithModel("m"))

	ctx, cancel := context.WithCancel(context.Background())
	seen := 0
	result, err := o.ProcessMessage(ctx, "Hi", nil, func(string) {
		seen++
		if seen == 3 {
			cancel()
		}
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, result)
	assert.Less(t, seen, len(chunks), "forwarding stops after cancellation")
	assert.True(t, p.stream.closed, "stream released on cancellation")
}

func TestSetModel(t *testing.T) {
	p := &fakeProvider{responses: []*provider.Response{{Content: "a"}, {Content: "b"}}}
	o := New(p, nil, WithModel("model-one"))

	_, err := o.ProcessMessage(context.Background(), "Hi", nil, nil)
	require.NoError(t, err)

	o.SetModel("model-two")
	assert.Equal(t, "model-two", o.Model())

	_, err = o.ProcessMessage(context.Background(), "Hi again", nil, nil)
	require.NoError(t, err)

	require.Len(t, p.requests, 2)
	assert.Equal(t, "model-one", p.requests[0].Model)
	assert.Equal(t, "model-two", p.requests[1].Model)
}

func TestSerializeResult(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{name: "string passes through", in: "plain text", want: "plain text"},
		{name: "map marshals to JSON", in: map[string]any{"v": 1}, want: `{"v":1}`},
		{name: "nil marshals to null", in: nil, want: "null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, serializeResult(tt.in))
		})
	}
}
