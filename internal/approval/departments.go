package approval

import "github.com/ethansammiq/deal-desk-sub004/internal/model"

// Per-department auto-approve thresholds: below these deal values the
// department review is marked auto-approved rather than review-required.
// Specialized departments always review.
const (
	FinanceAutoApproveBelow = 100_000.0
	TradingAutoApproveBelow = 250_000.0
)

// DepartmentStage is one entry in the predicted approval pipeline: a
// department review or the final business approval, with a descriptive
// estimated-day range. The pipeline definition renders a predicted
// timeline; it is not an enforced workflow engine.
type DepartmentStage struct {
	Stage            model.ApprovalStage `json:"stage"`
	Department       model.Department    `json:"department,omitempty"`
	AutoApproved     bool                `json:"auto_approved"`
	EstimatedDaysMin int                 `json:"estimated_days_min"`
	EstimatedDaysMax int                 `json:"estimated_days_max"`
}

// categoryDepartments maps each specialized incentive category to the
// department that must review it. Financial incentives are covered by the
// core finance review and map to no extra department.
var categoryDepartments = map[model.IncentiveCategory]model.Department{
	model.IncentiveCreative:   model.DeptCreative,
	model.IncentiveProduct:    model.DeptProduct,
	model.IncentiveAnalytics:  model.DeptSolutions,
	model.IncentiveTechnology: model.DeptSolutions,
	model.IncentiveMarketing:  model.DeptMarketing,
}

// specializedOrder fixes the output ordering of specialized departments so
// the mapping is stable across calls regardless of category order.
var specializedOrder = []model.Department{
	model.DeptCreative,
	model.DeptProduct,
	model.DeptSolutions,
	model.DeptMarketing,
}

// MapRequiredDepartments produces the two-stage approval pipeline for a
// deal: a department-review stage covering finance, trading, and any
// specialized departments implied by the selected incentive categories,
// followed by a single business-approval stage. Idempotent and
// order-stable: identical inputs yield identical output.
func MapRequiredDepartments(dealValue float64, categories []model.IncentiveCategory) []DepartmentStage {
	stages := []DepartmentStage{
		{
			Stage:            model.StageDepartmentReview,
			Department:       model.DeptFinance,
			AutoApproved:     dealValue < FinanceAutoApproveBelow,
			EstimatedDaysMin: 1,
			EstimatedDaysMax: 3,
		},
		{
			Stage:            model.StageDepartmentReview,
			Department:       model.DeptTrading,
			AutoApproved:     dealValue < TradingAutoApproveBelow,
			EstimatedDaysMin: 1,
			EstimatedDaysMax: 3,
		},
	}

	needed := make(map[model.Department]bool, len(categories))
	for _, c := range categories {
		if dept, ok := categoryDepartments[c]; ok {
			needed[dept] = true
		}
	}
	for _, dept := range specializedOrder {
		if !needed[dept] {
			continue
		}
		stages = append(stages, DepartmentStage{
			Stage:            model.StageDepartmentReview,
			Department:       dept,
			EstimatedDaysMin: 2,
			EstimatedDaysMax: 4,
		})
	}

	stages = append(stages, DepartmentStage{
		Stage:            model.StageBusinessApproval,
		EstimatedDaysMin: 2,
		EstimatedDaysMax: 5,
	})

	return stages
}
