package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

// GeminiLLMClient implements LLMClient using Google's Gemini API. Gemini
// does not assign tool-call IDs, so the client mints one per function call;
// correlation with the later FunctionResponse happens by name within the
// same round.
type GeminiLLMClient struct {
	client  *genai.Client
	modelID string
}

var _ LLMClient = (*GeminiLLMClient)(nil)

// NewGeminiLLMClient creates a Gemini-backed client.
func NewGeminiLLMClient(ctx context.Context, apiKey, modelID string) (*GeminiLLMClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("conversation: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("conversation: failed to create gemini client: %w", err)
	}
	return &GeminiLLMClient{client: client, modelID: modelID}, nil
}

// Close releases the underlying gRPC connection.
func (c *GeminiLLMClient) Close() error {
	return c.client.Close()
}

func (c *GeminiLLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	if len(req.Turns) == 0 {
		return LLMResponse{}, errors.New("conversation: gemini requires at least one turn")
	}

	model := c.client.GenerativeModel(c.modelID)
	if req.Temperature >= 0 {
		model.SetTemperature(req.Temperature)
	}
	if req.TopP > 0 {
		model.SetTopP(req.TopP)
	}
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(req.MaxTokens)
	}
	if len(req.Tools) > 0 {
		model.Tools = []*genai.Tool{{FunctionDeclarations: toGeminiDeclarations(req.Tools)}}
	}

	turns := req.Turns
	if turns[0].Role == RoleSystem {
		model.SystemInstruction = genai.NewUserContent(genai.Text(turns[0].Content))
		turns = turns[1:]
	}
	if len(turns) == 0 {
		return LLMResponse{}, errors.New("conversation: gemini requires a non-system turn")
	}

	cs := model.StartChat()
	for _, turn := range turns[:len(turns)-1] {
		content, err := toGeminiContent(turn)
		if err != nil {
			return LLMResponse{}, err
		}
		if content != nil {
			cs.History = append(cs.History, content)
		}
	}

	lastParts, err := toGeminiParts(turns[len(turns)-1])
	if err != nil {
		return LLMResponse{}, err
	}
	resp, err := cs.SendMessage(ctx, lastParts...)
	if err != nil {
		return LLMResponse{}, fmt.Errorf("conversation: gemini completion failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return LLMResponse{}, errors.New("conversation: gemini returned no candidates")
	}

	candidate := resp.Candidates[0]
	var out LLMResponse
	out.StopReason = candidate.FinishReason.String()
	if resp.UsageMetadata != nil {
		out.Usage = TokenUsage{
			InputTokens:  resp.UsageMetadata.PromptTokenCount,
			OutputTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:  resp.UsageMetadata.TotalTokenCount,
		}
	}
	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		switch p := part.(type) {
		case genai.Text:
			text.WriteString(string(p))
		case genai.FunctionCall:
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID:        "call_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12],
				Name:      p.Name,
				Arguments: p.Args,
			})
		}
	}
	out.Content = strings.TrimSpace(text.String())
	return out, nil
}

func toGeminiDeclarations(tools []ToolSchema) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, tool := range tools {
		props := make(map[string]*genai.Schema, len(tool.Parameters.Properties))
		for name, p := range tool.Parameters.Properties {
			props[name] = &genai.Schema{
				Type:        toGeminiType(p.Type),
				Description: p.Description,
				Enum:        p.Enum,
			}
		}
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: props,
				Required:   tool.Parameters.Required,
			},
		})
	}
	return decls
}

func toGeminiType(t string) genai.Type {
	switch t {
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}

func toGeminiContent(turn Turn) (*genai.Content, error) {
	parts, err := toGeminiParts(turn)
	if err != nil {
		return nil, err
	}
	if len(parts) == 0 {
		return nil, nil
	}
	role := "user"
	if turn.Role == RoleAssistant {
		role = "model"
	}
	return &genai.Content{Role: role, Parts: parts}, nil
}

func toGeminiParts(turn Turn) ([]genai.Part, error) {
	switch turn.Role {
	case RoleUser:
		if strings.TrimSpace(turn.Content) == "" {
			return nil, nil
		}
		return []genai.Part{genai.Text(turn.Content)}, nil
	case RoleAssistant:
		var parts []genai.Part
		if strings.TrimSpace(turn.Content) != "" {
			parts = append(parts, genai.Text(turn.Content))
		}
		for _, call := range turn.ToolCalls {
			parts = append(parts, genai.FunctionCall{Name: call.Name, Args: call.Arguments})
		}
		return parts, nil
	case RoleTool:
		if turn.ToolResult == nil {
			return nil, errors.New("conversation: tool turn missing result")
		}
		response := map[string]any{"success": turn.ToolResult.Success}
		for k, v := range turn.ToolResult.Payload {
			response[k] = v
		}
		if turn.ToolResult.Error != "" {
			response["error"] = turn.ToolResult.Error
		}
		return []genai.Part{genai.FunctionResponse{
			Name:     turn.ToolResult.Name,
			Response: response,
		}}, nil
	default:
		return nil, fmt.Errorf("conversation: unsupported role %q", turn.Role)
	}
}
