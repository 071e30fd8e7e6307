package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jleechanorg/claude-commands-sub003/internal/services"
	"github.com/jleechanorg/claude-commands-sub003/pkg/chat"
	"github.com/jleechanorg/claude-commands-sub003/pkg/dice"
	"github.com/jleechanorg/claude-commands-sub003/pkg/prompts"
	"github.com/jleechanorg/claude-commands-sub003/pkg/response"
	"github.com/jleechanorg/claude-commands-sub003/pkg/state"
)

const (
	// DefaultMaxAttempts is the generation budget per turn: one initial
	// attempt plus one reprompt.
	DefaultMaxAttempts = 2

	llmTimeout = 60 * time.Second
)

// CorrectionQueue is the subset of the correction queue the processor
// needs. Corrections left over from an exhausted turn are replayed into
// the next turn's prompt.
type CorrectionQueue interface {
	Enqueue(ctx context.Context, campaignID uuid.UUID, correction string) error
	Dequeue(ctx context.Context, campaignID uuid.UUID) ([]string, error)
}

// TurnProcessor runs the response-integrity pipeline for one player turn:
// generate, parse, validate dice evidence, reprompt on rejection, then
// merge the accepted state updates into the canonical state.
type TurnProcessor struct {
	storage     services.Storage
	llmService  services.LLMService
	corrections CorrectionQueue
	parser      *response.Parser
	validator   *dice.Validator
	merger      *state.Merger
	logger      *slog.Logger
	maxAttempts int
}

// NewTurnProcessor creates a turn processor. corrections may be nil, in
// which case rejected-turn guidance only lives for the current request.
func NewTurnProcessor(
	storage services.Storage,
	llmService services.LLMService,
	corrections CorrectionQueue,
	logger *slog.Logger,
) *TurnProcessor {
	return &TurnProcessor{
		storage:     storage,
		llmService:  llmService,
		corrections: corrections,
		parser:      response.NewParser(logger),
		validator:   dice.NewValidator(llmService.Strategy(), logger),
		merger:      state.NewMerger(logger),
		logger:      logger,
		maxAttempts: DefaultMaxAttempts,
	}
}

// WithMaxAttempts overrides the per-turn generation budget.
func (p *TurnProcessor) WithMaxAttempts(n int) *TurnProcessor {
	if n > 0 {
		p.maxAttempts = n
	}
	return p
}

// ProcessTurn processes one player turn and returns the response.
func (p *TurnProcessor) ProcessTurn(ctx context.Context, req chat.TurnRequest) (*chat.TurnResponse, error) {
	gs, err := p.storage.LoadState(ctx, req.CampaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to load campaign state: %w", err)
	}
	if gs == nil {
		return nil, fmt.Errorf("campaign not found: %s", req.CampaignID.String())
	}

	// Corrections owed from previous turns are folded into this prompt.
	corrections := p.drainCorrections(ctx, req.CampaignID)

	var lastVerdict dice.Verdict
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		messages, err := prompts.New().
			WithState(gs).
			WithStrategy(p.llmService.Strategy()).
			WithCorrections(corrections...).
			WithUserMessage(req.Message, chat.ChatRoleUser).
			Build()
		if err != nil {
			return nil, fmt.Errorf("failed to build prompt: %w", err)
		}

		llmCtx, cancel := context.WithTimeout(ctx, llmTimeout)
		result, err := p.llmService.GenerateTurn(llmCtx, messages)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("LLM turn generation failed: %w", err)
		}

		pr, repaired := p.parser.Parse(result.Text)

		verdict := p.validator.Check(pr, result.Evidence, result.ToolResults)
		if !verdict.Accepted {
			lastVerdict = verdict
			p.logger.Warn("Turn rejected by dice validator",
				"campaign_id", req.CampaignID,
				"attempt", attempt,
				"reason", verdict.Reason)
			corrections = []string{verdict.Reprompt}
			continue
		}

		// Under the two-phase strategy the server's tool results are
		// authoritative, overriding whatever rolls the model claimed.
		if len(verdict.DiceRolls) > 0 {
			pr.DiceRolls = verdict.DiceRolls
			pr.DiceAuditEvents = verdict.AuditEvents
		}

		if len(pr.StateUpdates) > 0 {
			gs.ApplyDelta(p.merger, pr.StateUpdates)
		}
		gs.IncrementTurnCounters()

		if err := p.storage.SaveState(ctx, req.CampaignID, gs); err != nil {
			return nil, fmt.Errorf("failed to save campaign state: %w", err)
		}

		return &chat.TurnResponse{
			CampaignID: req.CampaignID,
			Narrative:  pr.Narrative,
			DiceRolls:  pr.DiceRolls,
			TurnCount:  gs.TurnCount,
			Recovered:  repaired,
			Attempts:   attempt,
		}, nil
	}

	// The budget is spent. Bank the correction so the next turn opens
	// with it, and surface the rejection.
	if p.corrections != nil && lastVerdict.Reprompt != "" {
		if err := p.corrections.Enqueue(ctx, req.CampaignID, lastVerdict.Reprompt); err != nil {
			p.logger.Error("Failed to enqueue correction", "campaign_id", req.CampaignID, "error", err)
		}
	}

	return nil, fmt.Errorf("turn rejected after %d attempts: %s", p.maxAttempts, lastVerdict.Reason)
}

// drainCorrections pulls any banked corrections for the campaign.
func (p *TurnProcessor) drainCorrections(ctx context.Context, campaignID uuid.UUID) []string {
	if p.corrections == nil {
		return nil
	}
	corrections, err := p.corrections.Dequeue(ctx, campaignID)
	if err != nil {
		p.logger.Error("Failed to dequeue corrections", "campaign_id", campaignID, "error", err)
		return nil
	}
	return corrections
}
