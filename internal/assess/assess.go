// Package assess scores deals with a narrative recommendation. The remote
// assessor asks an LLM for a verdict; the heuristic assessor produces a
// deterministic score from the same inputs and serves as the fallback.
package assess

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ethansammiq/deal-desk-sub004/internal/model"
)

// Rating buckets an assessment score into a coarse recommendation.
type Rating string

const (
	RatingStrong      Rating = "strong"
	RatingFavorable   Rating = "favorable"
	RatingNeutral     Rating = "neutral"
	RatingUnfavorable Rating = "unfavorable"
)

// RatingForScore maps a 0-100 score to its rating band.
func RatingForScore(score int) Rating {
	switch {
	case score >= 80:
		return RatingStrong
	case score >= 60:
		return RatingFavorable
	case score >= 40:
		return RatingNeutral
	default:
		return RatingUnfavorable
	}
}

// Assessment is the scored verdict for a deal.
type Assessment struct {
	DealID    string    `json:"deal_id"`
	Score     int       `json:"score"` // 0-100
	Rating    Rating    `json:"rating"`
	Rationale string    `json:"rationale"`
	Risks     []string  `json:"risks,omitempty"`
	Source    string    `json:"source"` // "remote" or "heuristic"
	Model     string    `json:"model,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Assessor produces an assessment for a deal and its tier structure.
type Assessor interface {
	Assess(ctx context.Context, deal model.Deal, tiers []model.DealTier) (*Assessment, error)
}

// fallbackAssessor tries the primary assessor and degrades to the fallback
// when the primary fails. The degraded path never returns an error.
type fallbackAssessor struct {
	primary  Assessor
	fallback Assessor
}

// WithFallback wraps primary so that failures degrade to fallback.
func WithFallback(primary, fallback Assessor) Assessor {
	return &fallbackAssessor{primary: primary, fallback: fallback}
}

func (a *fallbackAssessor) Assess(ctx context.Context, deal model.Deal, tiers []model.DealTier) (*Assessment, error) {
	result, err := a.primary.Assess(ctx, deal, tiers)
	if err == nil {
		return result, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}

	zap.L().Warn("remote assessment failed, using heuristic fallback",
		zap.String("deal_id", deal.ID),
		zap.Error(err),
	)
	return a.fallback.Assess(ctx, deal, tiers)
}
