package approval

import "github.com/ethansammiq/deal-desk-sub004/internal/model"

// Approver-level thresholds from the approval matrix. These constants are
// the single source of truth; nothing else hardcodes them.
const (
	ExecutiveValueThreshold    = 500_000.0
	ExecutiveDiscountPercent   = 20.0
	ExecutiveContractTermLimit = 24 // months
)

// ApproverInput carries the deal attributes that determine the required
// approver level.
type ApproverInput struct {
	DealValue           float64 `json:"deal_value"`
	DiscountPercent     float64 `json:"discount_percent"`
	ContractTermMonths  int     `json:"contract_term_months"`
	HasNonStandardTerms bool    `json:"has_non_standard_terms"`
	IsStandard          bool    `json:"is_standard"`
}

// ResolveApproverLevel returns the seniority required to approve the deal.
// Three independent lookup tables (value, discount, contract term) each
// yield a level; Executive dominates. A non-standard deal always requires
// Executive approval regardless of other factors. Total function, no
// failure modes.
func ResolveApproverLevel(in ApproverInput) model.ApproverLevel {
	if !in.IsStandard || in.HasNonStandardTerms {
		return model.ApproverExecutive
	}

	levels := []model.ApproverLevel{
		levelForValue(in.DealValue),
		levelForDiscount(in.DiscountPercent),
		levelForTerm(in.ContractTermMonths),
	}
	for _, l := range levels {
		if l == model.ApproverExecutive {
			return model.ApproverExecutive
		}
	}
	return model.ApproverMD
}

func levelForValue(value float64) model.ApproverLevel {
	if value > ExecutiveValueThreshold {
		return model.ApproverExecutive
	}
	return model.ApproverMD
}

func levelForDiscount(percent float64) model.ApproverLevel {
	if percent > ExecutiveDiscountPercent {
		return model.ApproverExecutive
	}
	return model.ApproverMD
}

func levelForTerm(months int) model.ApproverLevel {
	if months > ExecutiveContractTermLimit {
		return model.ApproverExecutive
	}
	return model.ApproverMD
}
