// Package tier computes financial summaries over a deal's tier structure.
package tier

import (
	"github.com/rotisserie/eris"

	"github.com/ethansammiq/deal-desk-sub004/internal/model"
)

// TierBreakdown is the computed financials for a single tier.
type TierBreakdown struct {
	TierNumber    int     `json:"tier_number"`
	AnnualRevenue float64 `json:"annual_revenue"`
	GrossMargin   float64 `json:"gross_margin"`
	GrossProfit   float64 `json:"gross_profit"`   // revenue * margin
	IncentiveCost float64 `json:"incentive_cost"` // incentive value
	NetValue      float64 `json:"net_value"`      // gross profit - incentive cost
}

// FinancialSummary aggregates tier financials for a deal.
type FinancialSummary struct {
	TotalRevenue       float64         `json:"total_revenue"`
	TotalGrossProfit   float64         `json:"total_gross_profit"`
	TotalIncentiveCost float64         `json:"total_incentive_cost"`
	TotalNetValue      float64         `json:"total_net_value"`
	BlendedMargin      float64         `json:"blended_margin"` // profit / revenue, 0 when no revenue
	Tiers              []TierBreakdown `json:"tiers"`
}

// Summarize computes per-tier and aggregate financials. The totals are
// plain sums, so the result is stable under reordering of the tier slice
// (breakdowns follow input order).
func Summarize(tiers []model.DealTier) FinancialSummary {
	var s FinancialSummary
	for _, t := range tiers {
		profit := t.AnnualRevenue * t.GrossMargin
		b := TierBreakdown{
			TierNumber:    t.TierNumber,
			AnnualRevenue: t.AnnualRevenue,
			GrossMargin:   t.GrossMargin,
			GrossProfit:   profit,
			IncentiveCost: t.Incentive.Value,
			NetValue:      profit - t.Incentive.Value,
		}
		s.Tiers = append(s.Tiers, b)
		s.TotalRevenue += b.AnnualRevenue
		s.TotalGrossProfit += b.GrossProfit
		s.TotalIncentiveCost += b.IncentiveCost
		s.TotalNetValue += b.NetValue
	}
	if s.TotalRevenue > 0 {
		s.BlendedMargin = s.TotalGrossProfit / s.TotalRevenue
	}
	return s
}

// Validate checks the tier-structure invariants: at least one tier, tier
// numbers contiguous starting at 1, margins in [0,1], and non-negative
// revenue.
func Validate(tiers []model.DealTier) error {
	if len(tiers) == 0 {
		return eris.New("tier: at least one tier is required")
	}

	seen := make(map[int]bool, len(tiers))
	for _, t := range tiers {
		if t.TierNumber < 1 || t.TierNumber > len(tiers) {
			return eris.Errorf("tier: tier number %d outside 1..%d", t.TierNumber, len(tiers))
		}
		if seen[t.TierNumber] {
			return eris.Errorf("tier: duplicate tier number %d", t.TierNumber)
		}
		seen[t.TierNumber] = true

		if t.GrossMargin < 0 || t.GrossMargin > 1 {
			return eris.Errorf("tier %d: gross margin %.3f outside 0..1", t.TierNumber, t.GrossMargin)
		}
		if t.AnnualRevenue < 0 {
			return eris.Errorf("tier %d: negative annual revenue", t.TierNumber)
		}
		if t.Incentive.Value < 0 {
			return eris.Errorf("tier %d: negative incentive value", t.TierNumber)
		}
	}
	return nil
}
