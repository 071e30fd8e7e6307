package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/jleechanorg/claude-commands-sub003/pkg/chat"
	"github.com/jleechanorg/claude-commands-sub003/pkg/dice"
)

const DefaultGeminiTemperature = 0.7

// GeminiService implements LLMService for the Gemini API using the
// code_execution dice strategy: the model is given the provider's code
// sandbox as its only legitimate source of randomness, and the response
// parts are introspected into dice.Evidence.
type GeminiService struct {
	apiKey    string
	modelName string
	client    *genai.Client
	logger    *slog.Logger
}

// Ensure GeminiService implements LLMService interface
var _ LLMService = (*GeminiService)(nil)

// NewGeminiService creates a new Gemini service. The API client is created
// in InitModel.
func NewGeminiService(apiKey string, modelName string, logger *slog.Logger) *GeminiService {
	return &GeminiService{
		apiKey:    apiKey,
		modelName: modelName,
		logger:    logger,
	}
}

// InitModel creates the underlying genai client
func (g *GeminiService) InitModel(ctx context.Context, modelName string) error {
	if modelName != "" {
		g.modelName = modelName
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  g.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return fmt.Errorf("failed to create genai client: %w", err)
	}

	g.client = client
	return nil
}

// Strategy reports the dice enforcement strategy for this provider
func (g *GeminiService) Strategy() dice.Strategy {
	return dice.StrategyCodeExecution
}

// GenerateTurn sends the conversation to Gemini with the code-execution
// tool enabled and assembles dice evidence from the response parts.
func (g *GeminiService) GenerateTurn(ctx context.Context, messages []chat.ChatMessage) (*TurnResult, error) {
	if g.client == nil {
		return nil, fmt.Errorf("gemini client not initialized")
	}

	system, contents := splitGeminiMessages(messages)

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](DefaultGeminiTemperature),
		Tools: []*genai.Tool{
			{CodeExecution: &genai.ToolCodeExecution{}},
		},
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.modelName, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini generate content failed: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("gemini returned no candidates")
	}

	text, evidence := inspectGeminiParts(resp.Candidates[0].Content.Parts)

	g.logger.Debug("Gemini turn complete",
		"executable_code_parts", evidence.ExecutableCodeParts,
		"code_execution_result_parts", evidence.CodeExecutionResultParts,
		"rng_verified", evidence.RNGVerified)

	return &TurnResult{
		Text:     text,
		Evidence: evidence,
	}, nil
}

// splitGeminiMessages folds system-role messages into a single system
// instruction and converts the rest to genai contents.
func splitGeminiMessages(messages []chat.ChatMessage) (string, []*genai.Content) {
	var system []string
	contents := make([]*genai.Content, 0, len(messages))

	for _, m := range messages {
		switch m.Role {
		case chat.ChatRoleSystem:
			system = append(system, m.Content)
		case chat.ChatRoleAgent:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}

	return strings.Join(system, "\n\n"), contents
}

// inspectGeminiParts concatenates text parts and derives dice evidence
// from the executable-code and code-execution-result parts.
func inspectGeminiParts(parts []*genai.Part) (string, *dice.Evidence) {
	var text strings.Builder
	ev := &dice.Evidence{}

	for _, p := range parts {
		if p == nil {
			continue
		}
		if p.Text != "" {
			text.WriteString(p.Text)
		}
		if p.ExecutableCode != nil {
			ev.ExecutableCodeParts++
			if dice.ContainsRNGCall(p.ExecutableCode.Code) {
				ev.CodeContainsRNG = true
			}
		}
		if p.CodeExecutionResult != nil {
			ev.CodeExecutionResultParts++
			if p.CodeExecutionResult.Output != "" {
				ev.Stdout = p.CodeExecutionResult.Output
			}
		}
	}

	ev.CodeExecutionUsed = ev.ExecutableCodeParts > 0 && ev.CodeExecutionResultParts > 0
	ev.StdoutIsValidJSON = json.Valid([]byte(strings.TrimSpace(ev.Stdout)))
	ev.RNGVerified = ev.CodeExecutionUsed && ev.CodeContainsRNG

	return text.String(), ev
}
