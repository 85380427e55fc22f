// Package openai provides an OpenAI-compatible completion endpoint client.
// Any endpoint speaking the chat-completions wire format works, which is
// how the interview backend proxies self-hosted gateways as well.
package openai

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"

	"github.com/hrkit/interviewbot/provider"
)

func init() {
	provider.Register("openai", func(settings provider.Settings) (provider.Provider, error) {
		return New(WithAPIKey(settings.APIKey), WithBaseURL(settings.BaseURL))
	})
}

// Provider implements the OpenAI-compatible chat completions API.
type Provider struct {
	client *client
}

// Option configures the provider.
type Option func(*providerConfig)

type providerConfig struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(c *providerConfig) {
		c.apiKey = key
	}
}

// WithBaseURL sets a custom base URL.
func WithBaseURL(url string) Option {
	return func(c *providerConfig) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *providerConfig) {
		c.httpClient = client
	}
}

// New creates a new provider.
func New(opts ...Option) (*Provider, error) {
	cfg := &providerConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	// Fall back to environment variable
	if cfg.apiKey == "" {
		cfg.apiKey = os.Getenv("OPENAI_API_KEY")
	}

	if cfg.apiKey == "" {
		return nil, &APIError{
			Message: "API key required: set OPENAI_API_KEY or use WithAPIKey",
		}
	}

	return &Provider{
		client: newClient(cfg.apiKey, cfg.baseURL, cfg.httpClient),
	}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return "openai"
}

// Call implements provider.Provider.
func (p *Provider) Call(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	apiReq := buildRequest(req)

	apiResp, err := p.client.chatCompletion(ctx, apiReq)
	if err != nil {
		return nil, err
	}

	return convertResponse(apiResp), nil
}

// CallStream implements provider.StreamingProvider.
func (p *Provider) CallStream(ctx context.Context, req *provider.Request) (provider.ResponseStream, error) {
	apiReq := buildRequest(req)

	stream, err := p.client.chatCompletionStream(ctx, apiReq)
	if err != nil {
		return nil, err
	}

	return &chatStream{reader: stream}, nil
}

// buildRequest converts a provider.Request to the wire request.
func buildRequest(req *provider.Request) *chatCompletionRequest {
	apiReq := &chatCompletionRequest{
		Model:       req.Model,
		Messages:    make([]message, 0, len(req.Messages)),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	for _, msg := range req.Messages {
		apiMsg := message{
			Role:    string(msg.Role),
			Content: msg.Content,
		}

		// Tool-role messages reference the originating call
		if msg.ToolID != "" {
			apiMsg.ToolCallID = msg.ToolID
		}

		// Assistant messages may replay earlier tool-call requests
		if len(msg.ToolCalls) > 0 {
			apiMsg.ToolCalls = make([]toolCall, len(msg.ToolCalls))
			for i, tc := range msg.ToolCalls {
				apiMsg.ToolCalls[i] = toolCall{
					ID:   tc.ID,
					Type: "function",
					Function: functionCall{
						Name:      tc.Name,
						Arguments: tc.Arguments,
					},
				}
			}
		}

		apiReq.Messages = append(apiReq.Messages, apiMsg)
	}

	for _, tool := range req.Tools {
		apiReq.Tools = append(apiReq.Tools, toolDef{
			Type: "function",
			Function: functionDef{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}

	if len(apiReq.Tools) > 0 && req.ToolChoice != "" {
		apiReq.ToolChoice = req.ToolChoice
	}

	return apiReq
}

// convertResponse converts a wire response to a provider.Response.
func convertResponse(resp *chatCompletionResponse) *provider.Response {
	if len(resp.Choices) == 0 {
		return &provider.Response{}
	}

	choice := resp.Choices[0]
	result := &provider.Response{
		Content:      choice.Message.Content,
		FinishReason: convertFinishReason(choice.FinishReason),
		Usage: provider.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}

	for _, tc := range choice.Message.ToolCalls {
		result.ToolCalls = append(result.ToolCalls, provider.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	return result
}

// convertFinishReason converts a wire finish reason to a provider.FinishReason.
func convertFinishReason(reason string) provider.FinishReason {
	switch reason {
	case "tool_calls":
		return provider.FinishReasonToolCalls
	case "length":
		return provider.FinishReasonLength
	default:
		return provider.FinishReasonStop
	}
}

// chatStream implements provider.ResponseStream. It decodes SSE events
// into fragments and leaves accumulation to the consumer.
type chatStream struct {
	reader  *streamReader
	current *provider.StreamChunk
	err     error
	done    bool
	pending []provider.StreamChunk
}

func (s *chatStream) Next() bool {
	if s.done || s.err != nil {
		return false
	}

	// A single SSE event can carry several tool-call deltas; they are
	// surfaced as one fragment each so consumers see every slot update.
	if len(s.pending) > 0 {
		s.current = &s.pending[0]
		s.pending = s.pending[1:]
		return true
	}

	chunk, err := s.reader.ReadChunk()
	if err != nil {
		if errors.Is(err, io.EOF) {
			s.done = true
			return false
		}
		s.err = err
		return false
	}

	s.current = &provider.StreamChunk{}

	if len(chunk.Choices) > 0 {
		choice := chunk.Choices[0]
		delta := choice.Delta

		if delta.Content != "" {
			s.current.Delta = delta.Content
		}

		for i, tc := range delta.ToolCalls {
			callDelta := &provider.ToolCallDelta{
				Index:          tc.Index,
				ID:             tc.ID,
				Name:           tc.Function.Name,
				ArgumentsDelta: tc.Function.Arguments,
			}
			if i == 0 {
				s.current.ToolCallDelta = callDelta
			} else {
				s.pending = append(s.pending, provider.StreamChunk{ToolCallDelta: callDelta})
			}
		}

		if choice.FinishReason != nil {
			s.current.FinishReason = convertFinishReason(*choice.FinishReason)
		}
	}

	return true
}

func (s *chatStream) Current() *provider.StreamChunk {
	return s.current
}

func (s *chatStream) Err() error {
	return s.err
}

func (s *chatStream) Close() error {
	return s.reader.Close()
}
