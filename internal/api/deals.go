package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ethansammiq/deal-desk-sub004/internal/approval"
	"github.com/ethansammiq/deal-desk-sub004/internal/model"
	"github.com/ethansammiq/deal-desk-sub004/internal/store"
	"github.com/ethansammiq/deal-desk-sub004/internal/workflow"
)

type createDealRequest struct {
	Name                string             `json:"name"`
	ClientName          string             `json:"client_name"`
	DealType            model.DealType     `json:"deal_type"`
	SalesChannel        model.SalesChannel `json:"sales_channel"`
	AnnualRevenue       float64            `json:"annual_revenue"`
	ContractTermMonths  int                `json:"contract_term_months"`
	DiscountPercent     float64            `json:"discount_percent"`
	HasNonStandardTerms bool               `json:"has_non_standard_terms"`
}

func (req *createDealRequest) validate() map[string]string {
	fields := map[string]string{}
	if req.Name == "" {
		fields["name"] = "required"
	}
	if !req.DealType.Valid() {
		fields["deal_type"] = "must be grow, protect, or custom"
	}
	if !req.SalesChannel.Valid() {
		fields["sales_channel"] = "must be client_direct, partner, independent_agency, or holding_company"
	}
	if req.AnnualRevenue < 0 {
		fields["annual_revenue"] = "must not be negative"
	}
	if req.ContractTermMonths < 0 {
		fields["contract_term_months"] = "must not be negative"
	}
	if req.DiscountPercent < 0 || req.DiscountPercent > 100 {
		fields["discount_percent"] = "must be between 0 and 100"
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func writeValidationError(w http.ResponseWriter, fields map[string]string) {
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"error":  "validation failed",
		"fields": fields,
	})
}

func (s *Server) handleCreateDeal(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())

	var req createDealRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if fields := req.validate(); fields != nil {
		writeValidationError(w, fields)
		return
	}

	deal, err := s.store.CreateDeal(r.Context(), model.Deal{
		Name:                req.Name,
		ClientName:          req.ClientName,
		OwnerID:             session.UserID,
		DealType:            req.DealType,
		SalesChannel:        req.SalesChannel,
		AnnualRevenue:       req.AnnualRevenue,
		ContractTermMonths:  req.ContractTermMonths,
		DiscountPercent:     req.DiscountPercent,
		HasNonStandardTerms: req.HasNonStandardTerms,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "create deal")
		return
	}

	s.recordActivity(r, deal.ID, model.ActivityCreated, "deal created", nil)
	writeJSON(w, http.StatusCreated, deal)
}

func (s *Server) handleListDeals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.DealFilter{
		Status:  model.DealStatus(q.Get("status")),
		OwnerID: q.Get("owner"),
		Client:  q.Get("client"),
		Limit:   intQuery(q.Get("limit")),
		Offset:  intQuery(q.Get("offset")),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		writeError(w, http.StatusBadRequest, "unknown status filter")
		return
	}

	deals, err := s.store.ListDeals(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list deals")
		return
	}
	if deals == nil {
		deals = []model.Deal{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"deals": deals})
}

func (s *Server) handleGetDeal(w http.ResponseWriter, r *http.Request) {
	deal, ok := s.loadDeal(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, deal)
}

type updateDealRequest struct {
	Name                *string             `json:"name"`
	ClientName          *string             `json:"client_name"`
	DealType            *model.DealType     `json:"deal_type"`
	SalesChannel        *model.SalesChannel `json:"sales_channel"`
	AnnualRevenue       *float64            `json:"annual_revenue"`
	ContractTermMonths  *int                `json:"contract_term_months"`
	DiscountPercent     *float64            `json:"discount_percent"`
	HasNonStandardTerms *bool               `json:"has_non_standard_terms"`
}

func (s *Server) handleUpdateDeal(w http.ResponseWriter, r *http.Request) {
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

	var req updateDealRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	fields := map[string]string{}
	if req.Name != nil {
		if *req.Name == "" {
			fields["name"] = "required"
		}
		deal.Name = *req.Name
	}
	if req.ClientName != nil {
		deal.ClientName = *req.ClientName
	}
	if req.DealType != nil {
		if !req.DealType.Valid() {
			fields["deal_type"] = "unknown deal type"
		}
		deal.DealType = *req.DealType
	}
	if req.SalesChannel != nil {
		if !req.SalesChannel.Valid() {
			fields["sales_channel"] = "unknown sales channel"
		}
		deal.SalesChannel = *req.SalesChannel
	}
	if req.AnnualRevenue != nil {
		if *req.AnnualRevenue < 0 {
			fields["annual_revenue"] = "must not be negative"
		}
		deal.AnnualRevenue = *req.AnnualRevenue
	}
	if req.ContractTermMonths != nil {
		if *req.ContractTermMonths < 0 {
			fields["contract_term_months"] = "must not be negative"
		}
		deal.ContractTermMonths = *req.ContractTermMonths
	}
	if req.DiscountPercent != nil {
		if *req.DiscountPercent < 0 || *req.DiscountPercent > 100 {
			fields["discount_percent"] = "must be between 0 and 100"
		}
		deal.DiscountPercent = *req.DiscountPercent
	}
	if req.HasNonStandardTerms != nil {
		deal.HasNonStandardTerms = *req.HasNonStandardTerms
	}
	if len(fields) > 0 {
		writeValidationError(w, fields)
		return
	}

	if err := s.store.UpdateDeal(r.Context(), *deal); err != nil {
		writeError(w, http.StatusInternalServerError, "update deal")
		return
	}

	s.recordActivity(r, deal.ID, model.ActivityUpdated, "deal updated", nil)

	updated, err := s.store.GetDeal(r.Context(), deal.ID)
	if err != nil || updated == nil {
		writeError(w, http.StatusInternalServerError, "reload deal")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

type transitionRequest struct {
	To model.DealStatus `json:"to"`
}

func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())

	deal, ok := s.loadDeal(w, r)
	if !ok {
		return
	}

	var req transitionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	action, err := workflow.Transition(session, deal.Status, req.To)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}

	if err := s.store.UpdateDealStatus(r.Context(), deal.ID, req.To); err != nil {
		writeError(w, http.StatusInternalServerError, "update status")
		return
	}

	s.recordActivity(r, deal.ID, model.ActivityStatusChanged,
		string(deal.Status)+" -> "+string(req.To),
		map[string]any{"from": string(deal.Status), "to": string(req.To), "action": string(action)})

	deal.Status = req.To
	writeJSON(w, http.StatusOK, deal)
}

type submitRequest struct {
	Criteria approval.StandardDealParams `json:"criteria"`
}

type submitResponse struct {
	Deal          *model.Deal                 `json:"deal"`
	Criteria      approval.CriteriaResult     `json:"criteria"`
	ApproverLevel model.ApproverLevel         `json:"approver_level"`
	Rule          *model.ApprovalRule         `json:"rule,omitempty"`
	Requirements  []model.ApprovalRequirement `json:"requirements"`
}

// handleSubmit moves a deal to submitted and generates its approval
// pipeline: standard-deal evaluation, approver-level resolution, and
// department requirements derived from the tier incentives.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())

	deal, ok := s.loadDeal(w, r)
	if !ok {
		return
	}

	var req submitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if _, err := workflow.Transition(session, deal.Status, model.DealStatusSubmitted); err != nil {
		writeWorkflowError(w, err)
		return
	}

	// Form fields not supplied default from the deal record.
	criteria := req.Criteria
	if criteria.DealType == "" {
		criteria.DealType = deal.DealType
	}
	if criteria.SalesChannel == "" {
		criteria.SalesChannel = deal.SalesChannel
	}
	if criteria.ProjectedAnnualSpend <= 0 {
		criteria.ProjectedAnnualSpend = deal.AnnualRevenue
	}

	result := approval.EvaluateStandardDeal(criteria)
	level := approval.ResolveApproverLevel(approval.ApproverInput{
		DealValue:           deal.AnnualRevenue,
		DiscountPercent:     deal.DiscountPercent,
		ContractTermMonths:  deal.ContractTermMonths,
		HasNonStandardTerms: deal.HasNonStandardTerms,
		IsStandard:          result.IsStandard,
	})

	tiers, err := s.store.ListTiers(r.Context(), deal.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list tiers")
		return
	}

	stages := approval.MapRequiredDepartments(deal.AnnualRevenue, model.IncentiveCategories(tiers))
	reqs := buildRequirements(deal.ID, stages)

	created, err := s.store.CreateRequirements(r.Context(), reqs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "create requirements")
		return
	}
	if err := s.store.UpdateDealStatus(r.Context(), deal.ID, model.DealStatusSubmitted); err != nil {
		writeError(w, http.StatusInternalServerError, "update status")
		return
	}

	s.recordActivity(r, deal.ID, model.ActivitySubmitted, "deal submitted for approval",
		map[string]any{
			"approver_level": string(level),
			"is_standard":    result.IsStandard,
			"violations":     result.Violations,
			"requirements":   len(created),
		})

	rule, err := approval.RuleFor(level)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "load approval rules")
		return
	}

	deal.Status = model.DealStatusSubmitted
	writeJSON(w, http.StatusCreated, submitResponse{
		Deal:          deal,
		Criteria:      result,
		ApproverLevel: level,
		Rule:          rule,
		Requirements:  created,
	})
}

// buildRequirements turns the predicted pipeline stages into concrete
// requirements. Auto-approved department reviews are created already
// decided; the business approval depends on every department review.
func buildRequirements(dealID string, stages []approval.DepartmentStage) []model.ApprovalRequirement {
	now := time.Now().UTC()

	var reqs []model.ApprovalRequirement
	var departmentIDs []string
	for _, stage := range stages {
		req := model.ApprovalRequirement{
			ID:        uuid.New().String(),
			DealID:    dealID,
			Stage:     stage.Stage,
			Status:    model.ApprovalPending,
			CreatedAt: now,
		}
		switch stage.Stage {
		case model.StageDepartmentReview:
			req.Department = stage.Department
			if stage.AutoApproved {
				req.Status = model.ApprovalApproved
				req.Reviewer = "system"
				req.Notes = "auto-approved below department threshold"
				decidedAt := now
				req.DecidedAt = &decidedAt
			}
			departmentIDs = append(departmentIDs, req.ID)
		case model.StageBusinessApproval:
			req.DependsOn = append([]string(nil), departmentIDs...)
		}
		reqs = append(reqs, req)
	}
	return reqs
}

// loadDeal fetches the deal named by the URL or writes a 404.
func (s *Server) loadDeal(w http.ResponseWriter, r *http.Request) (*model.Deal, bool) {
	dealID := chi.URLParam(r, "dealID")
	deal, err := s.store.GetDeal(r.Context(), dealID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "get deal")
		return nil, false
	}
	if deal == nil {
		writeError(w, http.StatusNotFound, "deal not found")
		return nil, false
	}
	return deal, true
}

// recordActivity appends an audit event; failures are logged, not surfaced.
func (s *Server) recordActivity(r *http.Request, dealID string, typ model.ActivityType, msg string, metadata map[string]any) {
	session := sessionFrom(r.Context())
	if _, err := s.store.AppendActivity(r.Context(), model.ActivityEvent{
		DealID:   dealID,
		Type:     typ,
		ActorID:  session.UserID,
		Message:  msg,
		Metadata: metadata,
	}); err != nil {
		zap.L().Warn("append activity failed",
			zap.String("deal_id", dealID),
			zap.String("type", string(typ)),
			zap.Error(err),
		)
	}
}

func writeWorkflowError(w http.ResponseWriter, err error) {
	switch {
	case eris.Is(err, workflow.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case eris.Is(err, workflow.ErrIllegalTransition):
		writeError(w, http.StatusConflict, err.Error())
	case eris.Is(err, workflow.ErrUnknownStatus):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func intQuery(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
