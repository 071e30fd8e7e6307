package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/jleechanorg/claude-commands-sub003/pkg/chat"
	"github.com/jleechanorg/claude-commands-sub003/pkg/dice"
)

const (
	openRouterBaseURL = "https://openrouter.ai/api/v1"

	DefaultOpenRouterTemperature = 0.7
	DefaultOpenRouterMaxTokens   = 2048

	// maxToolRounds bounds the tool-call loop within one turn.
	maxToolRounds = 4
)

// OpenRouterService implements LLMService for OpenAI-compatible models via
// OpenRouter, using the native_two_phase dice strategy: dice tools are
// executed server-side and their results fed back before the model writes
// its narrative.
type OpenRouterService struct {
	apiKey     string
	modelName  string
	baseURL    string
	roller     *dice.Roller
	logger     *slog.Logger
	httpClient *http.Client
}

// Ensure OpenRouterService implements LLMService interface
var _ LLMService = (*OpenRouterService)(nil)

// NewOpenRouterService creates a new OpenRouter service
func NewOpenRouterService(apiKey string, modelName string, roller *dice.Roller, logger *slog.Logger) *OpenRouterService {
	return &OpenRouterService{
		apiKey:    apiKey,
		modelName: modelName,
		baseURL:   openRouterBaseURL,
		roller:    roller,
		logger:    logger,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// InitModel initializes the model (OpenRouter doesn't require explicit model initialization)
func (o *OpenRouterService) InitModel(ctx context.Context, modelName string) error {
	if modelName != "" {
		o.modelName = modelName
	}
	return nil
}

// Strategy reports the dice enforcement strategy for this provider
func (o *OpenRouterService) Strategy() dice.Strategy {
	return dice.StrategyNativeTwoPhase
}

// openRouterMessage is the OpenAI-compatible wire message
type openRouterMessage struct {
	Role       string               `json:"role"`
	Content    string               `json:"content"`
	ToolCalls  []openRouterToolCall `json:"tool_calls,omitempty"`
	ToolCallID string               `json:"tool_call_id,omitempty"`
}

type openRouterToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type openRouterTool struct {
	Type     string `json:"type"`
	Function struct {
		Name        string         `json:"name"`
		Description string         `json:"description"`
		Parameters  map[string]any `json:"parameters"`
	} `json:"function"`
}

// openRouterChatRequest represents the request structure for chat completions
type openRouterChatRequest struct {
	Model       string              `json:"model"`
	Messages    []openRouterMessage `json:"messages"`
	Temperature float64             `json:"temperature,omitempty"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
	Stream      bool                `json:"stream"`
	Tools       []openRouterTool    `json:"tools,omitempty"`
}

// openRouterChatResponse represents the response structure for chat completions
type openRouterChatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int               `json:"index"`
		Message      openRouterMessage `json:"message"`
		FinishReason string            `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error,omitempty"`
}

// GenerateTurn runs the two-phase tool loop: request, execute any dice tool
// calls server-side, feed the results back, repeat until the model answers
// in text.
func (o *OpenRouterService) GenerateTurn(ctx context.Context, messages []chat.ChatMessage) (*TurnResult, error) {
	wire := make([]openRouterMessage, 0, len(messages))
	for _, m := range messages {
		wire = append(wire, openRouterMessage{Role: openRouterRole(m.Role), Content: m.Content})
	}

	var toolResults []dice.ToolResult

	for round := 0; round < maxToolRounds; round++ {
		msg, err := o.chatCompletion(ctx, wire)
		if err != nil {
			return nil, err
		}

		if len(msg.ToolCalls) == 0 {
			return &TurnResult{
				Text:        msg.Content,
				ToolResults: toolResults,
			}, nil
		}

		wire = append(wire, *msg)
		for _, tc := range msg.ToolCalls {
			result := o.executeToolCall(tc, &toolResults)
			payload, err := json.Marshal(result)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal tool result: %w", err)
			}
			wire = append(wire, openRouterMessage{
				Role:       "tool",
				ToolCallID: tc.ID,
				Content:    string(payload),
			})
		}
	}

	return nil, fmt.Errorf("model did not produce a final response after %d tool rounds", maxToolRounds)
}

// executeToolCall runs one dice tool server-side and records it as evidence.
func (o *OpenRouterService) executeToolCall(tc openRouterToolCall, toolResults *[]dice.ToolResult) map[string]any {
	name := tc.Function.Name
	if !dice.IsDiceTool(name) {
		o.logger.Warn("Model requested unknown tool", "tool", name)
		return map[string]any{"error": fmt.Sprintf("unknown tool: %s", name)}
	}

	args := map[string]any{}
	if tc.Function.Arguments != "" {
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
			o.logger.Warn("Failed to parse tool arguments", "tool", name, "error", err)
			return map[string]any{"error": "invalid tool arguments"}
		}
	}

	result := o.roller.Execute(name, args)
	*toolResults = append(*toolResults, dice.ToolResult{
		Tool:   name,
		Args:   args,
		Result: result,
	})
	return result
}

// chatCompletion makes a chat completion request with the dice tools attached
func (o *OpenRouterService) chatCompletion(ctx context.Context, messages []openRouterMessage) (*openRouterMessage, error) {
	chatReq := openRouterChatRequest{
		Model:       o.modelName,
		Messages:    messages,
		Temperature: DefaultOpenRouterTemperature,
		MaxTokens:   DefaultOpenRouterMaxTokens,
		Stream:      false,
		Tools:       diceToolDefinitions(),
	}

	reqBody, err := json.Marshal(chatReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.baseURL+"/chat/completions", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var chatResp openRouterChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if chatResp.Error != nil {
		return nil, fmt.Errorf("API error: %s", chatResp.Error.Message)
	}

	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("API returned no choices")
	}

	return &chatResp.Choices[0].Message, nil
}

func openRouterRole(role string) string {
	if role == chat.ChatRoleAgent {
		return "assistant"
	}
	return role
}

// diceToolDefinitions returns the OpenAI-format schemas for the dice tools.
func diceToolDefinitions() []openRouterTool {
	mk := func(name, description string, params map[string]any, required ...string) openRouterTool {
		var t openRouterTool
		t.Type = "function"
		t.Function.Name = name
		t.Function.Description = description
		t.Function.Parameters = map[string]any{
			"type":       "object",
			"properties": params,
			"required":   required,
		}
		return t
	}

	return []openRouterTool{
		mk("roll_dice", "Roll dice using standard notation.",
			map[string]any{
				"notation": map[string]any{"type": "string", "description": "Dice notation, e.g. 2d6+3"},
			}, "notation"),
		mk("roll_attack", "Roll a d20 attack against a target armor class.",
			map[string]any{
				"attack_bonus": map[string]any{"type": "integer"},
				"target_ac":    map[string]any{"type": "integer"},
			}, "attack_bonus", "target_ac"),
		mk("roll_skill_check", "Roll a d20 skill check against a DC. You must justify the DC.",
			map[string]any{
				"skill":        map[string]any{"type": "string"},
				"modifier":     map[string]any{"type": "integer"},
				"dc":           map[string]any{"type": "integer"},
				"dc_reasoning": map[string]any{"type": "string", "description": "Why this DC is appropriate"},
			}, "skill", "dc", "dc_reasoning"),
		mk("roll_saving_throw", "Roll a d20 saving throw against a DC. You must justify the DC.",
			map[string]any{
				"save":         map[string]any{"type": "string", "description": "The save being made, e.g. dexterity"},
				"modifier":     map[string]any{"type": "integer"},
				"dc":           map[string]any{"type": "integer"},
				"dc_reasoning": map[string]any{"type": "string", "description": "Why this DC is appropriate"},
			}, "save", "dc", "dc_reasoning"),
	}
}
