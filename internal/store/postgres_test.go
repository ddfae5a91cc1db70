package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethansammiq/deal-desk-sub004/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

var dealRowColumns = []string{
	"id", "name", "client_name", "owner_id", "deal_type", "sales_channel", "status",
	"annual_revenue", "contract_term_months", "discount_percent", "has_non_standard_terms",
	"created_at", "updated_at",
}

func TestPostgresStore_GetDeal_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .+ FROM deals WHERE id = \$1`).
		WithArgs("nonexistent-deal").
		WillReturnError(pgx.ErrNoRows)

	deal, err := s.GetDeal(context.Background(), "nonexistent-deal")
	require.NoError(t, err)
	assert.Nil(t, deal)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetDeal_Found(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT .+ FROM deals WHERE id = \$1`).
		WithArgs("deal-1").
		WillReturnRows(pgxmock.NewRows(dealRowColumns).AddRow(
			"deal-1", "Acme renewal", "Acme Corp", "user-7",
			model.DealTypeGrow, model.ChannelClientDirect, model.DealStatusDraft,
			1_500_000.0, 12, 5.0, false, now, now,
		))

	deal, err := s.GetDeal(context.Background(), "deal-1")
	require.NoError(t, err)
	require.NotNil(t, deal)
	assert.Equal(t, "Acme renewal", deal.Name)
	assert.Equal(t, model.DealTypeGrow, deal.DealType)
	assert.Equal(t, model.DealStatusDraft, deal.Status)
	assert.Equal(t, 1_500_000.0, deal.AnnualRevenue)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateDeal_DefaultsToDraft(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO deals`).
		WithArgs(pgxmock.AnyArg(), "New deal", "Acme", "user-1", "grow", "client_direct", "draft",
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	deal, err := s.CreateDeal(context.Background(), model.Deal{
		Name:         "New deal",
		ClientName:   "Acme",
		OwnerID:      "user-1",
		DealType:     model.DealTypeGrow,
		SalesChannel: model.ChannelClientDirect,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, deal.ID)
	assert.Equal(t, model.DealStatusDraft, deal.Status)
	assert.False(t, deal.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListDeals_StatusFilter(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	now := time.Now().UTC()
	mock.ExpectQuery(`FROM deals WHERE true AND status = \$1 ORDER BY created_at DESC LIMIT \$2`).
		WithArgs("submitted", 100).
		WillReturnRows(pgxmock.NewRows(dealRowColumns).AddRow(
			"deal-2", "Renewal", "Beta Inc", "user-2",
			model.DealTypeProtect, model.ChannelPartner, model.DealStatusSubmitted,
			900_000.0, 24, 10.0, false, now, now,
		))

	deals, err := s.ListDeals(context.Background(), DealFilter{Status: model.DealStatusSubmitted})
	require.NoError(t, err)
	require.Len(t, deals, 1)
	assert.Equal(t, model.DealStatusSubmitted, deals[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateDealStatus(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE deals SET status = \$1, updated_at = \$2 WHERE id = \$3`).
		WithArgs("submitted", pgxmock.AnyArg(), "deal-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.UpdateDealStatus(context.Background(), "deal-1", model.DealStatusSubmitted)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateDealStatus_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE deals SET status = \$1`).
		WithArgs("submitted", pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateDealStatus(context.Background(), "missing", model.DealStatusSubmitted)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ReplaceTiers(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM deal_tiers WHERE deal_id = \$1`).
		WithArgs("deal-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCopyFrom(pgx.Identifier{"deal_tiers"},
		[]string{"id", "deal_id", "tier_number", "annual_revenue", "gross_margin", "incentive", "created_at"}).
		WillReturnResult(2)
	mock.ExpectCommit()

	tiers, err := s.ReplaceTiers(context.Background(), "deal-1", []model.DealTier{
		{TierNumber: 1, AnnualRevenue: 1_000_000, GrossMargin: 0.30,
			Incentive: model.Incentive{Category: model.IncentiveFinancial, Value: 50_000}},
		{TierNumber: 2, AnnualRevenue: 500_000, GrossMargin: 0.40,
			Incentive: model.Incentive{Category: model.IncentiveAnalytics, Value: 20_000}},
	})
	require.NoError(t, err)
	require.Len(t, tiers, 2)
	assert.Equal(t, "deal-1", tiers[0].DealID)
	assert.NotEmpty(t, tiers[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateRequirements(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectCopyFrom(pgx.Identifier{"approval_requirements"},
		[]string{"id", "deal_id", "stage", "department", "status", "depends_on", "reviewer", "notes", "created_at"}).
		WillReturnResult(2)

	reqs, err := s.CreateRequirements(context.Background(), []model.ApprovalRequirement{
		{DealID: "deal-1", Stage: model.StageDepartmentReview, Department: model.DeptFinance},
		{DealID: "deal-1", Stage: model.StageDepartmentReview, Department: model.DeptTrading},
	})
	require.NoError(t, err)
	require.Len(t, reqs, 2)
	assert.Equal(t, model.ApprovalPending, reqs[0].Status)
	assert.NotEmpty(t, reqs[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateRequirements_Empty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	reqs, err := s.CreateRequirements(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, reqs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRequirement_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM approval_requirements WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	req, err := s.GetRequirement(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, req)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRequirements(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	now := time.Now().UTC()
	mock.ExpectQuery(`FROM approval_requirements WHERE deal_id = \$1`).
		WithArgs("deal-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "deal_id", "stage", "department", "status", "depends_on", "reviewer", "notes", "created_at", "decided_at",
		}).AddRow(
			"req-1", "deal-1", model.StageDepartmentReview, model.DeptFinance,
			model.ApprovalApproved, []byte(`[]`), "system", "auto-approved", now, &now,
		).AddRow(
			"req-2", "deal-1", model.StageBusinessApproval, model.Department(""),
			model.ApprovalPending, []byte(`["req-1"]`), "", "", now, (*time.Time)(nil),
		))

	reqs, err := s.ListRequirements(context.Background(), "deal-1")
	require.NoError(t, err)
	require.Len(t, reqs, 2)
	assert.True(t, reqs[0].Decided())
	assert.Equal(t, []string{"req-1"}, reqs[1].DependsOn)
	assert.Nil(t, reqs[1].DecidedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateRequirementStatus_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE approval_requirements SET status = \$1`).
		WithArgs("approved", "rev-1", "looks good", pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateRequirementStatus(context.Background(), "missing", model.ApprovalApproved, "rev-1", "looks good")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AddComment(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO comments`).
		WithArgs(pgxmock.AnyArg(), "deal-1", "user-3", "needs a bigger discount", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	comment, err := s.AddComment(context.Background(), model.Comment{
		DealID: "deal-1", AuthorID: "user-3", Body: "needs a bigger discount",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, comment.ID)
	assert.False(t, comment.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AppendActivity_WithMetadata(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO activity_events`).
		WithArgs(pgxmock.AnyArg(), "deal-1", "status_changed", "user-1", "draft -> submitted",
			pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	event, err := s.AppendActivity(context.Background(), model.ActivityEvent{
		DealID:  "deal-1",
		Type:    model.ActivityStatusChanged,
		ActorID: "user-1",
		Message: "draft -> submitted",
		Metadata: map[string]any{
			"from": "draft",
			"to":   "submitted",
		},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, event.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
