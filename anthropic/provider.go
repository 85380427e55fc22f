// Package anthropic provides a completion provider backed by the official
// Anthropic SDK. It is blocking-only; streaming turns require an
// OpenAI-compatible endpoint.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"

	"github.com/hrkit/interviewbot/provider"
)

const defaultMaxTokens = 1024

func init() {
	provider.Register("anthropic", func(settings provider.Settings) (provider.Provider, error) {
		return New(settings)
	})
}

// Provider implements provider.Provider on top of the Anthropic Messages API.
type Provider struct {
	client anthropic.Client
}

// New creates a new Anthropic provider from endpoint settings.
func New(settings provider.Settings) (*Provider, error) {
	apiKey := settings.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic: API key required: set ANTHROPIC_API_KEY or config credential")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if settings.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(settings.BaseURL))
	}

	return &Provider{client: anthropic.NewClient(opts...)}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return "anthropic"
}

// Call implements provider.Provider.
func (p *Provider) Call(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	maxTokens := defaultMaxTokens
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}

	system, rest := splitSystem(req.Messages)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: int64(maxTokens),
		Messages:  convertMessages(rest),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if req.Temperature != nil {
		params.Temperature = param.NewOpt(*req.Temperature)
	}
	if len(req.Tools) > 0 {
		params.Tools = convertTools(req.Tools)
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic call: %w", err)
	}

	var text strings.Builder
	var toolCalls []provider.ToolCall

	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "tool_use":
			toolCalls = append(toolCalls, provider.ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: string(block.Input),
			})
		}
	}

	return &provider.Response{
		Content:      text.String(),
		ToolCalls:    toolCalls,
		FinishReason: convertStopReason(string(msg.StopReason)),
		Usage: provider.Usage{
			PromptTokens:     int(msg.Usage.InputTokens),
			CompletionTokens: int(msg.Usage.OutputTokens),
			TotalTokens:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		},
	}, nil
}

// splitSystem extracts system-role content; the Messages API takes it as a
// top-level parameter rather than a conversation message.
func splitSystem(messages []provider.Message) (string, []provider.Message) {
	var system []string
	rest := make([]provider.Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == provider.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		rest = append(rest, m)
	}
	return strings.Join(system, "\n\n"), rest
}

func convertMessages(messages []provider.Message) []anthropic.MessageParam {
	var result []anthropic.MessageParam
	i := 0
	for i < len(messages) {
		m := messages[i]
		switch m.Role {
		case provider.RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if m.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, json.RawMessage(tc.Arguments), tc.Name))
			}
			result = append(result, anthropic.NewAssistantMessage(blocks...))
			i++
		case provider.RoleTool:
			// Consecutive tool results collapse into one user message
			var toolBlocks []anthropic.ContentBlockParamUnion
			for i < len(messages) && messages[i].Role == provider.RoleTool {
				toolBlocks = append(toolBlocks,
					anthropic.NewToolResultBlock(messages[i].ToolID, messages[i].Content, false),
				)
				i++
			}
			result = append(result, anthropic.NewUserMessage(toolBlocks...))
		default:
			result = append(result, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
			i++
		}
	}
	return result
}

func convertTools(tools []provider.ToolDef) []anthropic.ToolUnionParam {
	result := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		var schema struct {
			Properties any      `json:"properties"`
			Required   []string `json:"required"`
		}
		json.Unmarshal(t.Parameters, &schema) //nolint:errcheck

		tp := anthropic.ToolUnionParamOfTool(
			anthropic.ToolInputSchemaParam{
				Properties: schema.Properties,
				Required:   schema.Required,
			},
			t.Name,
		)
		tp.OfTool.Description = param.NewOpt(t.Description)
		result = append(result, tp)
	}
	return result
}

func convertStopReason(reason string) provider.FinishReason {
	switch reason {
	case "tool_use":
		return provider.FinishReasonToolCalls
	case "max_tokens":
		return provider.FinishReasonLength
	default:
		return provider.FinishReasonStop
	}
}
