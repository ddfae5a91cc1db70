// Package approval implements the deal-desk decision engine: the standard
// deal criteria checklist, the approver-level resolver, the department
// requirement mapper, and the approval-pipeline status aggregator. All
// entry points are pure functions over already-fetched inputs.
package approval

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ethansammiq/deal-desk-sub004/internal/model"
)

// Standard deal criteria thresholds. A deal meeting every check qualifies
// for the lighter MD-only approval path.
const (
	MinStandardSpend         = 1_000_000.0
	MaxStandardSpend         = 3_000_000.0
	MinRevenueGrowthPercent  = 25.0
	MinMarginPercent         = 30.0
	MinMarginGrowthPercent   = 0.0
	MaxAddedValueSpendRatio  = 0.05
	MinStandardAnalyticsTier = model.AnalyticsTierSilver
)

// usd formats dollar amounts with thousands separators for violation text.
var usd = message.NewPrinter(language.AmericanEnglish)

// StandardDealParams are the deal attributes checked by the standard-deal
// criteria. Percentages are whole numbers (30 means 30%).
type StandardDealParams struct {
	DealType                model.DealType      `json:"deal_type"`
	SalesChannel            model.SalesChannel  `json:"sales_channel"`
	ProjectedAnnualSpend    float64             `json:"projected_annual_spend"`
	YearlyRevenueGrowthRate float64             `json:"yearly_revenue_growth_rate"`
	ForecastedMargin        float64             `json:"forecasted_margin"`
	YearlyMarginGrowthRate  float64             `json:"yearly_margin_growth_rate"`
	AddedValueBenefitsCost  float64             `json:"added_value_benefits_cost"`
	AnalyticsTier           model.AnalyticsTier `json:"analytics_tier"`
	HasTradeAMImplications  bool                `json:"has_trade_am_implications"`
	RequiresCustomMarketing bool                `json:"requires_custom_marketing"`
}

// CriteriaResult is the outcome of the standard-deal evaluation. Violations
// are ordered by check position for stable display.
type CriteriaResult struct {
	IsStandard bool     `json:"is_standard"`
	Violations []string `json:"violations"`
}

// EvaluateStandardDeal checks the deal against the fixed standard-deal rule
// set. Missing required fields short-circuit to non-standard.
func EvaluateStandardDeal(p StandardDealParams) CriteriaResult {
	if missing := missingFields(p); len(missing) > 0 {
		return CriteriaResult{IsStandard: false, Violations: missing}
	}

	var violations []string

	if p.DealType != model.DealTypeGrow {
		violations = append(violations,
			fmt.Sprintf("deal type must be %q, got %q", model.DealTypeGrow, p.DealType))
	}
	if p.SalesChannel != model.ChannelClientDirect {
		violations = append(violations,
			fmt.Sprintf("sales channel must be %q, got %q", model.ChannelClientDirect, p.SalesChannel))
	}
	if p.ProjectedAnnualSpend < MinStandardSpend || p.ProjectedAnnualSpend > MaxStandardSpend {
		violations = append(violations,
			usd.Sprintf("projected annual spend must be between $%.0f and $%.0f, got $%.0f",
				MinStandardSpend, MaxStandardSpend, p.ProjectedAnnualSpend))
	}
	if p.YearlyRevenueGrowthRate < MinRevenueGrowthPercent {
		violations = append(violations,
			fmt.Sprintf("yearly revenue growth must be at least %.0f%%, got %.1f%%",
				MinRevenueGrowthPercent, p.YearlyRevenueGrowthRate))
	}
	if p.ForecastedMargin < MinMarginPercent {
		violations = append(violations,
			fmt.Sprintf("forecasted margin must be at least %.0f%%, got %.1f%%",
				MinMarginPercent, p.ForecastedMargin))
	}
	if p.YearlyMarginGrowthRate < MinMarginGrowthPercent {
		violations = append(violations,
			fmt.Sprintf("yearly margin growth must not be negative, got %.1f%%",
				p.YearlyMarginGrowthRate))
	}
	if maxCost := p.ProjectedAnnualSpend * MaxAddedValueSpendRatio; p.AddedValueBenefitsCost > maxCost {
		violations = append(violations,
			usd.Sprintf("added-value benefits cost must not exceed $%.0f (%.0f%% of spend), got $%.0f",
				maxCost, MaxAddedValueSpendRatio*100, p.AddedValueBenefitsCost))
	}
	if !p.AnalyticsTier.AtLeast(MinStandardAnalyticsTier) {
		violations = append(violations,
			fmt.Sprintf("analytics tier must be %q or above, got %q",
				MinStandardAnalyticsTier, p.AnalyticsTier))
	}
	if p.HasTradeAMImplications {
		violations = append(violations, "deal has trade/AM implications")
	}
	if p.RequiresCustomMarketing {
		violations = append(violations, "deal requires custom marketing")
	}

	return CriteriaResult{
		IsStandard: len(violations) == 0,
		Violations: violations,
	}
}

// missingFields lists required fields that are absent. Any missing field
// makes the deal non-standard without running the remaining checks.
func missingFields(p StandardDealParams) []string {
	var missing []string
	if p.DealType == "" {
		missing = append(missing, "missing required field: deal_type")
	}
	if p.SalesChannel == "" {
		missing = append(missing, "missing required field: sales_channel")
	}
	if p.ProjectedAnnualSpend <= 0 {
		missing = append(missing, "missing required field: projected_annual_spend")
	}
	if p.AnalyticsTier == "" {
		missing = append(missing, "missing required field: analytics_tier")
	}
	return missing
}
