package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethansammiq/deal-desk-sub004/internal/assess"
	"github.com/ethansammiq/deal-desk-sub004/internal/config"
	"github.com/ethansammiq/deal-desk-sub004/internal/model"
	"github.com/ethansammiq/deal-desk-sub004/internal/store"
)

func newTestServer(t *testing.T) (http.Handler, store.Store) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "deals.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(t.Context()))

	srv := NewServer(st, assess.NewHeuristic(), 24*time.Hour, config.ServerConfig{
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
	})
	return srv.Router(), st
}

func doRequest(t *testing.T, h http.Handler, method, path string, body any, session *model.Session) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if session != nil {
		req.Header.Set("X-User-ID", session.UserID)
		req.Header.Set("X-User-Role", string(session.Role))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

var (
	seller   = &model.Session{UserID: "user-seller", Role: model.RoleSeller}
	reviewer = &model.Session{UserID: "user-reviewer", Role: model.RoleDepartmentReviewer}
	approver = &model.Session{UserID: "user-approver", Role: model.RoleApprover}
)

func createDealViaAPI(t *testing.T, h http.Handler) model.Deal {
	t.Helper()
	rec := doRequest(t, h, http.MethodPost, "/api/deals", map[string]any{
		"name":                 "Acme renewal",
		"client_name":          "Acme Corp",
		"deal_type":            "grow",
		"sales_channel":        "client_direct",
		"annual_revenue":       2_000_000,
		"contract_term_months": 12,
		"discount_percent":     5,
	}, seller)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody[model.Deal](t, rec)
}

func TestHealth_NoSessionRequired(t *testing.T) {
	h, _ := newTestServer(t)
	rec := doRequest(t, h, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPI_RequiresSession(t *testing.T) {
	h, _ := newTestServer(t)

	rec := doRequest(t, h, http.MethodGet, "/api/deals", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, h, http.MethodGet, "/api/deals", nil,
		&model.Session{UserID: "u", Role: "superuser"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateDeal(t *testing.T) {
	h, _ := newTestServer(t)

	deal := createDealViaAPI(t, h)
	assert.NotEmpty(t, deal.ID)
	assert.Equal(t, "user-seller", deal.OwnerID)
	assert.Equal(t, model.DealStatusDraft, deal.Status)
}

func TestCreateDeal_Validation(t *testing.T) {
	h, _ := newTestServer(t)

	rec := doRequest(t, h, http.MethodPost, "/api/deals", map[string]any{
		"deal_type":        "merger",
		"sales_channel":    "client_direct",
		"discount_percent": 150,
	}, seller)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeBody[map[string]any](t, rec)
	fields := body["fields"].(map[string]any)
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "deal_type")
	assert.Contains(t, fields, "discount_percent")
}

func TestGetDeal_NotFound(t *testing.T) {
	h, _ := newTestServer(t)
	rec := doRequest(t, h, http.MethodGet, "/api/deals/nonexistent", nil, seller)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateDeal(t *testing.T) {
	h, _ := newTestServer(t)
	deal := createDealViaAPI(t, h)

	rec := doRequest(t, h, http.MethodPatch, "/api/deals/"+deal.ID, map[string]any{
		"name":             "Acme renewal v2",
		"discount_percent": 15,
	}, seller)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	updated := decodeBody[model.Deal](t, rec)
	assert.Equal(t, "Acme renewal v2", updated.Name)
	assert.Equal(t, 15.0, updated.DiscountPercent)

	// Reviewers cannot edit.
	rec = doRequest(t, h, http.MethodPatch, "/api/deals/"+deal.ID,
		map[string]any{"name": "x"}, reviewer)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestTransition(t *testing.T) {
	h, _ := newTestServer(t)
	deal := createDealViaAPI(t, h)

	// Skipping straight to signed is illegal.
	rec := doRequest(t, h, http.MethodPost, "/api/deals/"+deal.ID+"/transition",
		map[string]any{"to": "signed"}, seller)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// A reviewer may not submit.
	rec = doRequest(t, h, http.MethodPost, "/api/deals/"+deal.ID+"/transition",
		map[string]any{"to": "submitted"}, reviewer)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// The seller moves draft to scoping.
	rec = doRequest(t, h, http.MethodPost, "/api/deals/"+deal.ID+"/transition",
		map[string]any{"to": "scoping"}, seller)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	moved := decodeBody[model.Deal](t, rec)
	assert.Equal(t, model.DealStatusScoping, moved.Status)
}

func putStandardTiers(t *testing.T, h http.Handler, dealID string) {
	t.Helper()
	rec := doRequest(t, h, http.MethodPut, "/api/deals/"+dealID+"/tiers", map[string]any{
		"tiers": []map[string]any{
			{"tier_number": 1, "annual_revenue": 1_500_000, "gross_margin": 0.35,
				"incentive": map[string]any{"category": "analytics", "value": 40_000}},
			{"tier_number": 2, "annual_revenue": 500_000, "gross_margin": 0.40,
				"incentive": map[string]any{"category": "financial", "value": 10_000}},
		},
	}, seller)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestPutTiers_Validation(t *testing.T) {
	h, _ := newTestServer(t)
	deal := createDealViaAPI(t, h)

	rec := doRequest(t, h, http.MethodPut, "/api/deals/"+deal.ID+"/tiers", map[string]any{
		"tiers": []map[string]any{
			{"tier_number": 1, "annual_revenue": 1_000_000, "gross_margin": 35.0},
		},
	}, seller)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetTiers_IncludesSummary(t *testing.T) {
	h, _ := newTestServer(t)
	deal := createDealViaAPI(t, h)
	putStandardTiers(t, h, deal.ID)

	rec := doRequest(t, h, http.MethodGet, "/api/deals/"+deal.ID+"/tiers", nil, seller)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody[map[string]any](t, rec)
	summary := body["summary"].(map[string]any)
	assert.Equal(t, 2_000_000.0, summary["total_revenue"])
	assert.Equal(t, 725_000.0, summary["total_gross_profit"])
}

func submitDeal(t *testing.T, h http.Handler, dealID string) map[string]any {
	t.Helper()
	rec := doRequest(t, h, http.MethodPost, "/api/deals/"+dealID+"/submit", map[string]any{
		"criteria": map[string]any{
			"yearly_revenue_growth_rate": 30,
			"forecasted_margin":          35,
			"yearly_margin_growth_rate":  0,
			"added_value_benefits_cost":  50_000,
			"analytics_tier":             "silver",
		},
	}, seller)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody[map[string]any](t, rec)
}

func TestSubmit_BuildsApprovalPipeline(t *testing.T) {
	h, _ := newTestServer(t)
	deal := createDealViaAPI(t, h)
	putStandardTiers(t, h, deal.ID)

	body := submitDeal(t, h, deal.ID)

	criteria := body["criteria"].(map[string]any)
	assert.Equal(t, true, criteria["is_standard"])

	// Standard, but $2M value still requires an Executive.
	assert.Equal(t, "Executive", body["approver_level"])
	rule := body["rule"].(map[string]any)
	assert.Equal(t, "Executive", rule["level"])

	// finance + trading + solutions (analytics incentive) + business approval.
	reqs := body["requirements"].([]any)
	require.Len(t, reqs, 4)

	var departments []string
	for _, raw := range reqs {
		req := raw.(map[string]any)
		if req["stage"] == "department_review" {
			departments = append(departments, req["department"].(string))
			assert.Equal(t, "pending", req["status"])
		} else {
			assert.NotEmpty(t, req["depends_on"])
		}
	}
	assert.Equal(t, []string{"finance", "trading", "solutions"}, departments)
}

func TestSubmit_SmallDealAutoApprovesCoreDepartments(t *testing.T) {
	h, _ := newTestServer(t)

	rec := doRequest(t, h, http.MethodPost, "/api/deals", map[string]any{
		"name": "Tiny deal", "deal_type": "grow", "sales_channel": "client_direct",
		"annual_revenue": 50_000,
	}, seller)
	require.Equal(t, http.StatusCreated, rec.Code)
	deal := decodeBody[model.Deal](t, rec)

	body := submitDeal(t, h, deal.ID)
	for _, raw := range body["requirements"].([]any) {
		req := raw.(map[string]any)
		if req["stage"] == "department_review" {
			assert.Equal(t, "approved", req["status"], req["department"])
			assert.Equal(t, "system", req["reviewer"])
		}
	}
}

func TestSubmit_IllegalFromStatus(t *testing.T) {
	h, st := newTestServer(t)
	deal := createDealViaAPI(t, h)
	require.NoError(t, st.UpdateDealStatus(t.Context(), deal.ID, model.DealStatusSigned))

	rec := doRequest(t, h, http.MethodPost, "/api/deals/"+deal.ID+"/submit",
		map[string]any{}, seller)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestApprovalStatus_And_Decisions(t *testing.T) {
	h, _ := newTestServer(t)
	deal := createDealViaAPI(t, h)
	putStandardTiers(t, h, deal.ID)
	body := submitDeal(t, h, deal.ID)

	var departmentIDs []string
	var businessID string
	for _, raw := range body["requirements"].([]any) {
		req := raw.(map[string]any)
		if req["stage"] == "department_review" {
			departmentIDs = append(departmentIDs, req["id"].(string))
		} else {
			businessID = req["id"].(string)
		}
	}

	// Pipeline starts pending with nothing complete.
	rec := doRequest(t, h, http.MethodGet, "/api/deals/"+deal.ID+"/approval-status", nil, seller)
	require.Equal(t, http.StatusOK, rec.Code)
	status := decodeBody[map[string]any](t, rec)
	pipeline := status["pipeline"].(map[string]any)
	assert.Equal(t, "pending", pipeline["overall"])
	assert.Equal(t, 4.0, pipeline["total"])

	// Business approval blocks on undecided departments.
	rec = doRequest(t, h, http.MethodPost, "/api/approvals/"+businessID+"/decision",
		map[string]any{"status": "approved"}, approver)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Sellers cannot decide.
	rec = doRequest(t, h, http.MethodPost, "/api/approvals/"+departmentIDs[0]+"/decision",
		map[string]any{"status": "approved"}, seller)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Approve every department review.
	for _, id := range departmentIDs {
		rec = doRequest(t, h, http.MethodPost, "/api/approvals/"+id+"/decision",
			map[string]any{"status": "approved", "notes": "fine"}, reviewer)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	// A decided requirement rejects a second decision.
	rec = doRequest(t, h, http.MethodPost, "/api/approvals/"+departmentIDs[0]+"/decision",
		map[string]any{"status": "approved"}, reviewer)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Now the business approval goes through and completes the pipeline.
	rec = doRequest(t, h, http.MethodPost, "/api/approvals/"+businessID+"/decision",
		map[string]any{"status": "approved"}, approver)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decodeBody[map[string]any](t, rec)
	pipeline = result["pipeline"].(map[string]any)
	assert.Equal(t, "approved", pipeline["overall"])
	assert.Equal(t, 100.0, pipeline["percent_complete"])
}

func TestDecision_RevisionMovesDeal(t *testing.T) {
	h, _ := newTestServer(t)
	deal := createDealViaAPI(t, h)
	putStandardTiers(t, h, deal.ID)
	body := submitDeal(t, h, deal.ID)

	reqs := body["requirements"].([]any)
	first := reqs[0].(map[string]any)

	rec := doRequest(t, h, http.MethodPost, "/api/approvals/"+first["id"].(string)+"/decision",
		map[string]any{"status": "revision_requested", "notes": "margin too thin"}, reviewer)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doRequest(t, h, http.MethodGet, "/api/deals/"+deal.ID, nil, seller)
	require.Equal(t, http.StatusOK, rec.Code)
	moved := decodeBody[model.Deal](t, rec)
	assert.Equal(t, model.DealStatusRevisionRequested, moved.Status)
}

func TestComments_And_History(t *testing.T) {
	h, _ := newTestServer(t)
	deal := createDealViaAPI(t, h)

	rec := doRequest(t, h, http.MethodPost, "/api/deals/"+deal.ID+"/comments",
		map[string]any{"body": "let's push the discount"}, seller)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, h, http.MethodPost, "/api/deals/"+deal.ID+"/comments",
		map[string]any{"body": ""}, seller)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, h, http.MethodGet, "/api/deals/"+deal.ID+"/comments", nil, seller)
	require.Equal(t, http.StatusOK, rec.Code)
	comments := decodeBody[map[string][]model.Comment](t, rec)["comments"]
	require.Len(t, comments, 1)
	assert.Equal(t, "user-seller", comments[0].AuthorID)

	rec = doRequest(t, h, http.MethodGet, "/api/deals/"+deal.ID+"/history", nil, seller)
	require.Equal(t, http.StatusOK, rec.Code)
	history := decodeBody[map[string][]model.ActivityEvent](t, rec)["history"]
	require.Len(t, history, 2)

	types := []model.ActivityType{history[0].Type, history[1].Type}
	assert.Contains(t, types, model.ActivityCreated)
	assert.Contains(t, types, model.ActivityCommentAdded)
}

func TestAssess_Heuristic(t *testing.T) {
	h, _ := newTestServer(t)
	deal := createDealViaAPI(t, h)
	putStandardTiers(t, h, deal.ID)

	rec := doRequest(t, h, http.MethodPost, "/api/deals/"+deal.ID+"/assess", nil, seller)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assessment := decodeBody[assess.Assessment](t, rec)
	assert.Equal(t, deal.ID, assessment.DealID)
	assert.Equal(t, "heuristic", assessment.Source)
	assert.Greater(t, assessment.Score, 0)
}

func TestEvaluate_Preview(t *testing.T) {
	h, _ := newTestServer(t)

	rec := doRequest(t, h, http.MethodPost, "/api/deals/evaluate", map[string]any{
		"criteria": map[string]any{
			"deal_type":                  "grow",
			"sales_channel":              "client_direct",
			"projected_annual_spend":     2_000_000,
			"yearly_revenue_growth_rate": 30,
			"forecasted_margin":          35,
			"yearly_margin_growth_rate":  0,
			"added_value_benefits_cost":  50_000,
			"analytics_tier":             "silver",
		},
		"deal_value":           400_000,
		"discount_percent":     10,
		"contract_term_months": 12,
		"incentive_categories": []string{"creative"},
	}, seller)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody[map[string]any](t, rec)
	criteria := body["criteria"].(map[string]any)
	assert.Equal(t, true, criteria["is_standard"])
	assert.Equal(t, "MD", body["approver_level"])

	departments := body["departments"].([]any)
	// finance, trading, creative, business approval.
	require.Len(t, departments, 4)
	finance := departments[0].(map[string]any)
	assert.Equal(t, "finance", finance["department"])
	assert.Equal(t, false, finance["auto_approved"])
}

func TestRateLimiter(t *testing.T) {
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "deals.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(t.Context()))

	srv := NewServer(st, assess.NewHeuristic(), 24*time.Hour, config.ServerConfig{
		RateLimitRPS:   0.001,
		RateLimitBurst: 1,
	})
	h := srv.Router()

	rec := doRequest(t, h, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, h, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
