package assess

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/ethansammiq/deal-desk-sub004/internal/model"
	"github.com/ethansammiq/deal-desk-sub004/internal/resilience"
	"github.com/ethansammiq/deal-desk-sub004/internal/tier"
	"github.com/ethansammiq/deal-desk-sub004/pkg/anthropic"
)

const assessSystemPrompt = `You are a commercial deal reviewer for an advertising sales organization.
Given a deal and its tier financials, return ONLY a JSON object with this shape:
{"score": <integer 0-100>, "rating": "strong|favorable|neutral|unfavorable", "rationale": "<one paragraph>", "risks": ["<risk>", ...]}
Score the deal on margin health, incentive efficiency, discount depth, and contract risk.
Do not include any text outside the JSON object.`

// RemoteAssessor asks the Anthropic API for a deal verdict. Transient
// failures retry with backoff; repeated failures trip a circuit breaker so
// the caller degrades to the heuristic without waiting out timeouts.
type RemoteAssessor struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	retry     resilience.RetryConfig
	breaker   *resilience.CircuitBreaker
}

// NewRemote creates a RemoteAssessor for the given client and model.
func NewRemote(client anthropic.Client, modelID string, maxTokens int64) *RemoteAssessor {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("anthropic", "assess")

	breaker := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig())

	return &RemoteAssessor{
		client:    client,
		model:     modelID,
		maxTokens: maxTokens,
		retry:     retry,
		breaker:   breaker,
	}
}

// verdict is the wire shape the model is prompted to return.
type verdict struct {
	Score     int      `json:"score"`
	Rating    string   `json:"rating"`
	Rationale string   `json:"rationale"`
	Risks     []string `json:"risks"`
}

func (a *RemoteAssessor) Assess(ctx context.Context, deal model.Deal, tiers []model.DealTier) (*Assessment, error) {
	prompt, err := buildPrompt(deal, tiers)
	if err != nil {
		return nil, err
	}

	req := anthropic.MessageRequest{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		System:    anthropic.BuildCachedSystemBlocks(assessSystemPrompt),
		Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
	}

	resp, err := resilience.DoVal(ctx, a.retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return resilience.ExecuteVal(ctx, a.breaker, func(ctx context.Context) (*anthropic.MessageResponse, error) {
			return a.client.CreateMessage(ctx, req)
		})
	})
	if err != nil {
		return nil, eris.Wrap(err, "assess: remote call")
	}
	resp.Usage.LogCost(a.model, "assess")

	v, err := parseVerdict(resp.Text())
	if err != nil {
		return nil, err
	}

	rating := Rating(v.Rating)
	switch rating {
	case RatingStrong, RatingFavorable, RatingNeutral, RatingUnfavorable:
	default:
		rating = RatingForScore(v.Score)
	}

	return &Assessment{
		DealID:    deal.ID,
		Score:     v.Score,
		Rating:    rating,
		Rationale: v.Rationale,
		Risks:     v.Risks,
		Source:    "remote",
		Model:     a.model,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// buildPrompt serializes the deal and its computed tier summary for the model.
func buildPrompt(deal model.Deal, tiers []model.DealTier) (string, error) {
	payload := struct {
		Deal    model.Deal            `json:"deal"`
		Summary tier.FinancialSummary `json:"financial_summary"`
	}{
		Deal:    deal,
		Summary: tier.Summarize(tiers),
	}
	b, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", eris.Wrap(err, "assess: marshal prompt")
	}
	return "Assess this deal:\n" + string(b), nil
}

func parseVerdict(text string) (*verdict, error) {
	var v verdict
	if err := json.Unmarshal([]byte(cleanJSON(text)), &v); err != nil {
		return nil, eris.Wrap(err, "assess: parse verdict")
	}
	if v.Score < 0 || v.Score > 100 {
		return nil, eris.Errorf("assess: score %d outside 0..100", v.Score)
	}
	return &v, nil
}

// cleanJSON extracts a JSON object from text that may contain markdown code
// fences or other wrapping.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	// Find first { and last }.
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
