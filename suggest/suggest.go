// Package suggest implements the suggestion capability behind section
// analysis: a provider interface with network-backed implementations
// (OpenAI, AWS Bedrock, Ollama) and a deterministic stub, selected by
// configuration.
package suggest

import (
	"context"
	"fmt"

	"github.com/fabfab/review-agent/config"
	"github.com/fabfab/review-agent/review"
)

const (
	analysisSystemPrompt = "You are an expert document reviewer following the 20-point investigation checklist for structured write-ups."
	chatSystemPrompt     = "You are an expert assistant for the document review system."

	// Section content and checklist text are truncated before prompting.
	maxSectionChars   = 3000
	maxChecklistChars = 30000
)

// generator produces one completion from a system and a user prompt.
type generator interface {
	generate(ctx context.Context, system, user string) (string, error)
}

// suggester turns a raw text generator into the review.Suggester capability.
type suggester struct {
	gen       generator
	checklist string
}

var _ review.Suggester = (*suggester)(nil)

// New selects a provider by configuration. checklistText, when non-empty,
// enriches the system prompt of network providers.
func New(ctx context.Context, cfg config.Config, checklistText string) (review.Suggester, error) {
	var gen generator
	switch cfg.Suggest.Provider {
	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai provider selected but OPENAI_API_KEY not set")
		}
		gen = newOpenAIGenerator(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.Suggest.Model)
	case config.ProviderBedrock:
		var err error
		gen, err = newBedrockGenerator(ctx, cfg.AWSRegion, cfg.Suggest.Model)
		if err != nil {
			return nil, fmt.Errorf("bedrock setup: %w", err)
		}
	case config.ProviderOllama:
		gen = newOllamaGenerator(cfg.OllamaHost, cfg.Suggest.Model)
	case config.ProviderStub:
		return NewStub(), nil
	default:
		return nil, fmt.Errorf("unknown suggestion provider: %s", cfg.Suggest.Provider)
	}
	return &suggester{gen: gen, checklist: checklistText}, nil
}

func (s *suggester) Suggest(ctx context.Context, sectionName, sectionText string) ([]review.FeedbackItem, error) {
	raw, err := s.gen.generate(ctx, s.systemPrompt(analysisSystemPrompt), analysisPrompt(sectionName, sectionText))
	if err != nil {
		return nil, fmt.Errorf("suggest %q: %w", sectionName, err)
	}
	// Malformed payloads resolve to no feedback rather than an error.
	return ParseFeedbackResponse(raw), nil
}

func (s *suggester) Chat(ctx context.Context, query, contextInfo string) (string, error) {
	raw, err := s.gen.generate(ctx, s.systemPrompt(chatSystemPrompt), chatPrompt(query, contextInfo))
	if err != nil {
		return "", fmt.Errorf("chat: %w", err)
	}
	return raw, nil
}

func (s *suggester) systemPrompt(base string) string {
	if s.checklist == "" {
		return base
	}
	return fmt.Sprintf(`%s

INVESTIGATION CHECKLIST:
%s

Apply these investigation mental models in your analysis. Reference specific checklist items when providing feedback.`, base, truncate(s.checklist, maxChecklistChars))
}

func analysisPrompt(sectionName, sectionText string) string {
	return fmt.Sprintf(`Analyze this section %q from a Full Write-up document using the 20-point investigation checklist.

SECTION CONTENT:
%s

Provide feedback following the checklist. For each feedback item, include:
1. Specific questions from the checklist that should be addressed
2. References to relevant checkpoint numbers (#1-20)
3. Examples from the case studies when applicable
4. Risk classification (High/Medium/Low)

Return feedback in this JSON format:
{
    "feedback_items": [
        {
            "id": "unique_id",
            "type": "critical|important|suggestion|positive",
            "category": "category matching checklist topics",
            "description": "Clear description referencing checklist criteria",
            "suggestion": "Specific suggestion based on review guidelines",
            "example": "Example from case studies or the checklist",
            "questions": ["Question 1?", "Question 2?"],
            "hawkeye_refs": [1, 11, 12],
            "risk_level": "High|Medium|Low",
            "confidence": 0.95
        }
    ]
}`, sectionName, truncate(sectionText, maxSectionChars))
}

func chatPrompt(query, contextInfo string) string {
	return fmt.Sprintf(`You are an AI assistant helping with document review against the investigation checklist.

CONTEXT:
%s

USER QUESTION: %s

Provide a helpful, specific response that references the review guidelines when relevant. Be concise but thorough.`, contextInfo, query)
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
