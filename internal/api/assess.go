package api

import (
	"net/http"

	"github.com/ethansammiq/deal-desk-sub004/internal/approval"
	"github.com/ethansammiq/deal-desk-sub004/internal/model"
)

// handleAssess runs the configured assessor against the deal and its tiers.
func (s *Server) handleAssess(w http.ResponseWriter, r *http.Request) {
	deal, ok := s.loadDeal(w, r)
	if !ok {
		return
	}

	tiers, err := s.store.ListTiers(r.Context(), deal.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list tiers")
		return
	}

	assessment, err := s.assessor.Assess(r.Context(), *deal, tiers)
	if err != nil {
		writeError(w, http.StatusBadGateway, "assessment unavailable")
		return
	}

	s.recordActivity(r, deal.ID, model.ActivityAssessmentCreated, "assessment created",
		map[string]any{
			"score":  assessment.Score,
			"rating": string(assessment.Rating),
			"source": assessment.Source,
		})

	writeJSON(w, http.StatusOK, assessment)
}

type evaluateRequest struct {
	Criteria            approval.StandardDealParams `json:"criteria"`
	DealValue           float64                     `json:"deal_value"`
	DiscountPercent     float64                     `json:"discount_percent"`
	ContractTermMonths  int                         `json:"contract_term_months"`
	HasNonStandardTerms bool                        `json:"has_non_standard_terms"`
	IncentiveCategories []model.IncentiveCategory   `json:"incentive_categories"`
}

type evaluateResponse struct {
	Criteria      approval.CriteriaResult    `json:"criteria"`
	ApproverLevel model.ApproverLevel        `json:"approver_level"`
	Rule          *model.ApprovalRule        `json:"rule,omitempty"`
	Departments   []approval.DepartmentStage `json:"departments"`
}

// handleEvaluate is the stateless preview used by deal forms: given the
// form fields, return the criteria verdict, required approver level, and
// predicted department pipeline without touching any deal record.
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result := approval.EvaluateStandardDeal(req.Criteria)
	level := approval.ResolveApproverLevel(approval.ApproverInput{
		DealValue:           req.DealValue,
		DiscountPercent:     req.DiscountPercent,
		ContractTermMonths:  req.ContractTermMonths,
		HasNonStandardTerms: req.HasNonStandardTerms,
		IsStandard:          result.IsStandard,
	})
	rule, err := approval.RuleFor(level)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "load approval rules")
		return
	}

	writeJSON(w, http.StatusOK, evaluateResponse{
		Criteria:      result,
		ApproverLevel: level,
		Rule:          rule,
		Departments:   approval.MapRequiredDepartments(req.DealValue, req.IncentiveCategories),
	})
}
