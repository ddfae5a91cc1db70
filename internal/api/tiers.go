package api

import (
	"net/http"

	"github.com/ethansammiq/deal-desk-sub004/internal/model"
	"github.com/ethansammiq/deal-desk-sub004/internal/tier"
	"github.com/ethansammiq/deal-desk-sub004/internal/workflow"
)

type putTiersRequest struct {
	Tiers []model.DealTier `json:"tiers"`
}

type tiersResponse struct {
	Tiers   []model.DealTier      `json:"tiers"`
	Summary tier.FinancialSummary `json:"summary"`
}

// handlePutTiers replaces the deal's full tier structure. Tiers are
// replaced as a set, never patched individually.
func (s *Server) handlePutTiers(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())
	if !workflow.Allowed(session.Role, workflow.ActionEdit) {
		writeError(w, http.StatusForbidden, "role may not edit deals")
		return
	}

	deal, ok := s.loadDeal(w, r)
	if !ok {
		return
	}
	if deal.Status.Terminal() {
		writeError(w, http.StatusConflict, "deal is in a terminal status")
		return
	}

	var req putTiersRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := tier.Validate(req.Tiers); err != nil {
		writeValidationError(w, map[string]string{"tiers": err.Error()})
		return
	}

	saved, err := s.store.ReplaceTiers(r.Context(), deal.ID, req.Tiers)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "replace tiers")
		return
	}

	s.recordActivity(r, deal.ID, model.ActivityUpdated, "tier structure replaced",
		map[string]any{"tiers": len(saved)})

	writeJSON(w, http.StatusOK, tiersResponse{
		Tiers:   saved,
		Summary: tier.Summarize(saved),
	})
}

func (s *Server) handleGetTiers(w http.ResponseWriter, r *http.Request) {
	deal, ok := s.loadDeal(w, r)
	if !ok {
		return
	}

	tiers, err := s.store.ListTiers(r.Context(), deal.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list tiers")
		return
	}
	if tiers == nil {
		tiers = []model.DealTier{}
	}
	writeJSON(w, http.StatusOK, tiersResponse{
		Tiers:   tiers,
		Summary: tier.Summarize(tiers),
	})
}
