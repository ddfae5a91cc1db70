package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/ethansammiq/deal-desk-sub004/internal/approval"
	"github.com/ethansammiq/deal-desk-sub004/internal/model"
	"github.com/ethansammiq/deal-desk-sub004/internal/workflow"
)

type approvalStatusResponse struct {
	Deal         *model.Deal                 `json:"deal"`
	Pipeline     approval.PipelineStatus     `json:"pipeline"`
	Requirements []model.ApprovalRequirement `json:"requirements"`
}

// handleApprovalStatus aggregates the deal's approval pipeline. Deal and
// requirements load concurrently.
func (s *Server) handleApprovalStatus(w http.ResponseWriter, r *http.Request) {
	dealID := chi.URLParam(r, "dealID")

	var (
		deal *model.Deal
		reqs []model.ApprovalRequirement
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		deal, err = s.store.GetDeal(ctx, dealID)
		return err
	})
	g.Go(func() error {
		var err error
		reqs, err = s.store.ListRequirements(ctx, dealID)
		return err
	})
	if err := g.Wait(); err != nil {
		writeError(w, http.StatusInternalServerError, "load approval status")
		return
	}
	if deal == nil {
		writeError(w, http.StatusNotFound, "deal not found")
		return
	}

	pipeline := approval.AggregatePipelineStatusAt(reqs, time.Now().UTC(), s.bottleneckThreshold)
	if reqs == nil {
		reqs = []model.ApprovalRequirement{}
	}
	writeJSON(w, http.StatusOK, approvalStatusResponse{
		Deal:         deal,
		Pipeline:     pipeline,
		Requirements: reqs,
	})
}

type decisionRequest struct {
	Status model.ApprovalStatus `json:"status"`
	Notes  string               `json:"notes"`
}

// handleDecision records a reviewer decision on one approval requirement
// and moves the deal when the decision changes the overall picture.
func (s *Server) handleDecision(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())

	var req decisionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var action workflow.Action
	switch req.Status {
	case model.ApprovalApproved:
		action = workflow.ActionApprove
	case model.ApprovalRevisionRequested:
		action = workflow.ActionRequestRevision
	default:
		writeError(w, http.StatusBadRequest, "status must be approved or revision_requested")
		return
	}
	if !workflow.Allowed(session.Role, action) {
		writeError(w, http.StatusForbidden, "role may not record approval decisions")
		return
	}

	reqID := chi.URLParam(r, "requirementID")
	requirement, err := s.store.GetRequirement(r.Context(), reqID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "get requirement")
		return
	}
	if requirement == nil {
		writeError(w, http.StatusNotFound, "requirement not found")
		return
	}
	if requirement.Decided() {
		writeError(w, http.StatusConflict, "requirement already decided")
		return
	}

	all, err := s.store.ListRequirements(r.Context(), requirement.DealID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list requirements")
		return
	}
	if unmet := unmetDependencies(requirement, all); len(unmet) > 0 {
		writeError(w, http.StatusConflict, "requirement has undecided dependencies")
		return
	}

	if err := s.store.UpdateRequirementStatus(r.Context(), reqID, req.Status, session.UserID, req.Notes); err != nil {
		writeError(w, http.StatusInternalServerError, "update requirement")
		return
	}

	s.recordActivity(r, requirement.DealID, model.ActivityApprovalDecision,
		"approval decision: "+string(req.Status),
		map[string]any{
			"requirement_id": reqID,
			"stage":          string(requirement.Stage),
			"department":     string(requirement.Department),
			"status":         string(req.Status),
		})

	// Re-read and derive the deal's next status from the updated pipeline.
	all, err = s.store.ListRequirements(r.Context(), requirement.DealID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list requirements")
		return
	}
	pipeline := approval.AggregatePipelineStatusAt(all, time.Now().UTC(), s.bottleneckThreshold)

	if next, changed := dealStatusForPipeline(pipeline.Overall); changed {
		deal, err := s.store.GetDeal(r.Context(), requirement.DealID)
		if err == nil && deal != nil && workflow.CanTransition(deal.Status, next) {
			if err := s.store.UpdateDealStatus(r.Context(), deal.ID, next); err != nil {
				writeError(w, http.StatusInternalServerError, "update deal status")
				return
			}
			s.recordActivity(r, deal.ID, model.ActivityStatusChanged,
				string(deal.Status)+" -> "+string(next),
				map[string]any{"from": string(deal.Status), "to": string(next), "action": "approval_pipeline"})
		}
	}

	updated, err := s.store.GetRequirement(r.Context(), reqID)
	if err != nil || updated == nil {
		writeError(w, http.StatusInternalServerError, "reload requirement")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"requirement": updated,
		"pipeline":    pipeline,
	})
}

// unmetDependencies returns the IDs in req.DependsOn that are not yet
// approved.
func unmetDependencies(req *model.ApprovalRequirement, all []model.ApprovalRequirement) []string {
	byID := make(map[string]model.ApprovalRequirement, len(all))
	for _, r := range all {
		byID[r.ID] = r
	}
	var unmet []string
	for _, dep := range req.DependsOn {
		if byID[dep].Status != model.ApprovalApproved {
			unmet = append(unmet, dep)
		}
	}
	return unmet
}

// dealStatusForPipeline maps an overall pipeline status to the deal status
// it implies, if any.
func dealStatusForPipeline(overall model.ApprovalStatus) (model.DealStatus, bool) {
	switch overall {
	case model.ApprovalApproved:
		return model.DealStatusApproved, true
	case model.ApprovalRevisionRequested:
		return model.DealStatusRevisionRequested, true
	default:
		return "", false
	}
}
