package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

type chatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAILLMClient implements LLMClient over any OpenAI-compatible chat API.
// DeepSeek exposes the same wire protocol, so the same client serves both
// providers with a different base URL and model.
type OpenAILLMClient struct {
	client chatClient
	model  string
}

var _ LLMClient = (*OpenAILLMClient)(nil)

// NewOpenAILLMClient targets api.openai.com.
func NewOpenAILLMClient(apiKey, model string) (*OpenAILLMClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("conversation: openai api key is required")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAILLMClient{client: openai.NewClient(apiKey), model: model}, nil
}

// NewDeepSeekLLMClient targets DeepSeek's OpenAI-compatible endpoint.
func NewDeepSeekLLMClient(apiKey, baseURL, model string) (*OpenAILLMClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("conversation: deepseek api key is required")
	}
	if baseURL == "" {
		baseURL = "https://api.deepseek.com"
	}
	if model == "" {
		model = "deepseek-chat"
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return &OpenAILLMClient{client: openai.NewClientWithConfig(cfg), model: model}, nil
}

// NewOpenAILLMClientWithChatClient injects a chat client directly, used by tests.
func NewOpenAILLMClientWithChatClient(client chatClient, model string) *OpenAILLMClient {
	if client == nil {
		panic("conversation: chat client cannot be nil")
	}
	return &OpenAILLMClient{client: client, model: model}
}

func (c *OpenAILLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	messages, err := toOpenAIMessages(req.Turns)
	if err != nil {
		return LLMResponse{}, err
	}

	chatReq := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: req.Temperature,
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = int(req.MaxTokens)
	}
	if req.TopP > 0 {
		chatReq.TopP = req.TopP
	}
	for _, tool := range req.Tools {
		chatReq.Tools = append(chatReq.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters.JSONSchema(),
			},
		})
	}

	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return LLMResponse{}, fmt.Errorf("conversation: chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return LLMResponse{}, errors.New("conversation: chat completion returned no choices")
	}

	choice := resp.Choices[0]
	out := LLMResponse{
		Content:    strings.TrimSpace(choice.Message.Content),
		StopReason: string(choice.FinishReason),
		Usage: TokenUsage{
			InputTokens:  int32(resp.Usage.PromptTokens),
			OutputTokens: int32(resp.Usage.CompletionTokens),
			TotalTokens:  int32(resp.Usage.TotalTokens),
		},
	}
	for _, tc := range choice.Message.ToolCalls {
		args := map[string]any{}
		if raw := tc.Function.Arguments; raw != "" {
			if err := json.Unmarshal([]byte(raw), &args); err != nil {
				return LLMResponse{}, fmt.Errorf("conversation: tool call %s arguments: %w", tc.Function.Name, err)
			}
		}
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}
	return out, nil
}

func toOpenAIMessages(turns []Turn) ([]openai.ChatCompletionMessage, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(turns))
	for _, turn := range turns {
		switch turn.Role {
		case RoleSystem:
			messages = append(messages, openai.ChatCompletionMessage{
				Role: openai.ChatMessageRoleSystem, Content: turn.Content,
			})
		case RoleUser:
			messages = append(messages, openai.ChatCompletionMessage{
				Role: openai.ChatMessageRoleUser, Content: turn.Content,
			})
		case RoleAssistant:
			msg := openai.ChatCompletionMessage{
				Role: openai.ChatMessageRoleAssistant, Content: turn.Content,
			}
			for _, call := range turn.ToolCalls {
				args, err := json.Marshal(call.Arguments)
				if err != nil {
					return nil, fmt.Errorf("conversation: marshal tool arguments: %w", err)
				}
				msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
					ID:   call.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      call.Name,
						Arguments: string(args),
					},
				})
			}
			messages = append(messages, msg)
		case RoleTool:
			if turn.ToolResult == nil {
				return nil, errors.New("conversation: tool turn missing result")
			}
			body, err := json.Marshal(turn.ToolResult)
			if err != nil {
				return nil, fmt.Errorf("conversation: marshal tool result: %w", err)
			}
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    string(body),
				Name:       turn.ToolResult.Name,
				ToolCallID: turn.ToolResult.CallID,
			})
		default:
			return nil, fmt.Errorf("conversation: unsupported role %q", turn.Role)
		}
	}
	return messages, nil
}
