package assess

import (
	"context"
	"fmt"
	"time"

	"github.com/ethansammiq/deal-desk-sub004/internal/approval"
	"github.com/ethansammiq/deal-desk-sub004/internal/model"
	"github.com/ethansammiq/deal-desk-sub004/internal/tier"
)

// HeuristicAssessor scores deals with fixed margin and discount bands.
// Identical inputs always produce identical output.
type HeuristicAssessor struct{}

// NewHeuristic creates the deterministic assessor.
func NewHeuristic() *HeuristicAssessor {
	return &HeuristicAssessor{}
}

func (a *HeuristicAssessor) Assess(ctx context.Context, deal model.Deal, tiers []model.DealTier) (*Assessment, error) {
	score := 50
	var risks []string

	summary := tier.Summarize(tiers)

	// Margin bands reward healthy blended margin.
	switch {
	case summary.TotalRevenue == 0:
		risks = append(risks, "no tier structure provided; margin unknown")
	case summary.BlendedMargin >= 0.35:
		score += 20
	case summary.BlendedMargin >= 0.30:
		score += 10
	case summary.BlendedMargin >= 0.20:
		score += 5
	default:
		score -= 10
		risks = append(risks, fmt.Sprintf("blended margin %.0f%% is below the 20%% floor", summary.BlendedMargin*100))
	}

	// Incentive spend relative to gross profit.
	if summary.TotalGrossProfit > 0 && summary.TotalIncentiveCost > summary.TotalGrossProfit*0.25 {
		score -= 10
		risks = append(risks, "incentive cost exceeds a quarter of gross profit")
	}

	if deal.DiscountPercent > approval.ExecutiveDiscountPercent {
		score -= 10
		risks = append(risks, fmt.Sprintf("discount %.0f%% requires executive approval", deal.DiscountPercent))
	}

	if deal.ContractTermMonths > approval.ExecutiveContractTermLimit {
		score -= 5
		risks = append(risks, fmt.Sprintf("contract term %d months exceeds the standard %d-month limit",
			deal.ContractTermMonths, approval.ExecutiveContractTermLimit))
	}

	if deal.HasNonStandardTerms {
		score -= 10
		risks = append(risks, "non-standard terms require executive review")
	}

	if deal.DealType == model.DealTypeGrow {
		score += 5
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}

	rating := RatingForScore(score)
	return &Assessment{
		DealID: deal.ID,
		Score:  score,
		Rating: rating,
		Rationale: fmt.Sprintf("static scoring: blended margin %.0f%%, %d risk factor(s), rated %s",
			summary.BlendedMargin*100, len(risks), rating),
		Risks:     risks,
		Source:    "heuristic",
		CreatedAt: time.Now().UTC(),
	}, nil
}
