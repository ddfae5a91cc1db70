package approval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethansammiq/deal-desk-sub004/internal/model"
)

func TestMapRequiredDepartments_CoreDepartmentsAlwaysPresent(t *testing.T) {
	stages := MapRequiredDepartments(50_000, nil)

	require.Len(t, stages, 3) // finance, trading, business approval
	assert.Equal(t, model.DeptFinance, stages[0].Department)
	assert.Equal(t, model.DeptTrading, stages[1].Department)
	assert.Equal(t, model.StageBusinessApproval, stages[2].Stage)
}

func TestMapRequiredDepartments_AutoApproveThresholds(t *testing.T) {
	tests := []struct {
		name        string
		value       float64
		financeAuto bool
		tradingAuto bool
	}{
		{"small deal auto-approves both", 50_000, true, true},
		{"mid deal auto-approves trading only", 150_000, false, true},
		{"large deal requires both reviews", 300_000, false, false},
		{"finance threshold is exclusive", 100_000, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stages := MapRequiredDepartments(tt.value, nil)
			assert.Equal(t, tt.financeAuto, stages[0].AutoApproved)
			assert.Equal(t, tt.tradingAuto, stages[1].AutoApproved)
		})
	}
}

func TestMapRequiredDepartments_SpecializedDepartments(t *testing.T) {
	categories := []model.IncentiveCategory{
		model.IncentiveMarketing,
		model.IncentiveCreative,
		model.IncentiveAnalytics,
	}
	stages := MapRequiredDepartments(500_000, categories)

	var depts []model.Department
	for _, s := range stages {
		if s.Stage == model.StageDepartmentReview {
			depts = append(depts, s.Department)
		}
	}
	// Specialized departments appear in fixed order after the core two.
	assert.Equal(t, []model.Department{
		model.DeptFinance, model.DeptTrading,
		model.DeptCreative, model.DeptSolutions, model.DeptMarketing,
	}, depts)
}

func TestMapRequiredDepartments_TechnologyAndAnalyticsShareSolutions(t *testing.T) {
	stages := MapRequiredDepartments(500_000, []model.IncentiveCategory{
		model.IncentiveAnalytics,
		model.IncentiveTechnology,
	})

	count := 0
	for _, s := range stages {
		if s.Department == model.DeptSolutions {
			count++
		}
	}
	assert.Equal(t, 1, count, "solutions should appear once even when both categories map to it")
}

func TestMapRequiredDepartments_FinancialCategoryAddsNoDepartment(t *testing.T) {
	withFinancial := MapRequiredDepartments(500_000, []model.IncentiveCategory{model.IncentiveFinancial})
	without := MapRequiredDepartments(500_000, nil)
	assert.Equal(t, without, withFinancial)
}

func TestMapRequiredDepartments_Idempotent(t *testing.T) {
	categories := []model.IncentiveCategory{model.IncentiveCreative, model.IncentiveProduct}

	first := MapRequiredDepartments(750_000, categories)
	second := MapRequiredDepartments(750_000, categories)
	assert.Equal(t, first, second)

	// Category order must not affect output order.
	reversed := MapRequiredDepartments(750_000, []model.IncentiveCategory{
		model.IncentiveProduct, model.IncentiveCreative,
	})
	assert.Equal(t, first, reversed)
}

func TestMapRequiredDepartments_EndsWithBusinessApproval(t *testing.T) {
	stages := MapRequiredDepartments(1_000_000, []model.IncentiveCategory{model.IncentiveProduct})
	last := stages[len(stages)-1]
	assert.Equal(t, model.StageBusinessApproval, last.Stage)
	assert.Empty(t, last.Department)
	assert.Positive(t, last.EstimatedDaysMax)
}
