package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/ethansammiq/deal-desk-sub004/internal/db"
	"github.com/ethansammiq/deal-desk-sub004/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32
	MinConns int32
}

const dealColumns = `id, name, client_name, owner_id, deal_type, sales_channel, status,
	annual_revenue, contract_term_months, discount_percent, has_non_standard_terms,
	created_at, updated_at`

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"get_deal":           `SELECT ` + dealColumns + ` FROM deals WHERE id = $1`,
	"update_deal_status": `UPDATE deals SET status = $1, updated_at = $2 WHERE id = $3`,
	"list_tiers":         `SELECT id, deal_id, tier_number, annual_revenue, gross_margin, incentive, created_at FROM deal_tiers WHERE deal_id = $1 ORDER BY tier_number`,
	"list_requirements":  `SELECT id, deal_id, stage, department, status, depends_on, reviewer, notes, created_at, decided_at FROM approval_requirements WHERE deal_id = $1 ORDER BY created_at, id`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS deals (
	id                     TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name                   TEXT NOT NULL,
	client_name            TEXT NOT NULL DEFAULT '',
	owner_id               TEXT NOT NULL,
	deal_type              TEXT NOT NULL,
	sales_channel          TEXT NOT NULL,
	status                 TEXT NOT NULL DEFAULT 'draft',
	annual_revenue         DOUBLE PRECISION NOT NULL DEFAULT 0,
	contract_term_months   INTEGER NOT NULL DEFAULT 0,
	discount_percent       DOUBLE PRECISION NOT NULL DEFAULT 0,
	has_non_standard_terms BOOLEAN NOT NULL DEFAULT FALSE,
	created_at             TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at             TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_deals_status ON deals(status);
CREATE INDEX IF NOT EXISTS idx_deals_owner ON deals(owner_id);

CREATE TABLE IF NOT EXISTS deal_tiers (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	deal_id        TEXT NOT NULL REFERENCES deals(id),
	tier_number    INTEGER NOT NULL,
	annual_revenue DOUBLE PRECISION NOT NULL DEFAULT 0,
	gross_margin   DOUBLE PRECISION NOT NULL DEFAULT 0,
	incentive      JSONB NOT NULL DEFAULT '{}',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (deal_id, tier_number)
);

CREATE INDEX IF NOT EXISTS idx_deal_tiers_deal_id ON deal_tiers(deal_id);

CREATE TABLE IF NOT EXISTS approval_requirements (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	deal_id    TEXT NOT NULL REFERENCES deals(id),
	stage      TEXT NOT NULL,
	department TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT 'pending',
	depends_on JSONB NOT NULL DEFAULT '[]',
	reviewer   TEXT NOT NULL DEFAULT '',
	notes      TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	decided_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_approval_requirements_deal_id ON approval_requirements(deal_id);
CREATE INDEX IF NOT EXISTS idx_approval_requirements_pending ON approval_requirements(status, created_at);

CREATE TABLE IF NOT EXISTS comments (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	deal_id    TEXT NOT NULL REFERENCES deals(id),
	author_id  TEXT NOT NULL,
	body       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_comments_deal_id ON comments(deal_id);

CREATE TABLE IF NOT EXISTS activity_events (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	deal_id    TEXT NOT NULL REFERENCES deals(id),
	type       TEXT NOT NULL,
	actor_id   TEXT NOT NULL,
	message    TEXT NOT NULL,
	metadata   JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_activity_events_deal_id ON activity_events(deal_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateDeal(ctx context.Context, deal model.Deal) (*model.Deal, error) {
	deal.ID = uuid.New().String()
	now := time.Now().UTC()
	deal.CreatedAt = now
	deal.UpdatedAt = now
	if deal.Status == "" {
		deal.Status = model.DealStatusDraft
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO deals (id, name, client_name, owner_id, deal_type, sales_channel, status,
		 annual_revenue, contract_term_months, discount_percent, has_non_standard_terms, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		deal.ID, deal.Name, deal.ClientName, deal.OwnerID, string(deal.DealType),
		string(deal.SalesChannel), string(deal.Status), deal.AnnualRevenue,
		deal.ContractTermMonths, deal.DiscountPercent, deal.HasNonStandardTerms,
		deal.CreatedAt, deal.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert deal")
	}
	return &deal, nil
}

func (s *PostgresStore) GetDeal(ctx context.Context, dealID string) (*model.Deal, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+dealColumns+` FROM deals WHERE id = $1`, dealID)

	deal, err := scanDeal(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get deal %s", dealID)
	}
	return deal, nil
}

func (s *PostgresStore) ListDeals(ctx context.Context, filter DealFilter) ([]model.Deal, error) {
	query := `SELECT ` + dealColumns + ` FROM deals WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.OwnerID != "" {
		query += fmt.Sprintf(` AND owner_id = $%d`, argIdx)
		args = append(args, filter.OwnerID)
		argIdx++
	}
	if filter.Client != "" {
		query += fmt.Sprintf(` AND client_name = $%d`, argIdx)
		args = append(args, filter.Client)
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list deals")
	}
	defer rows.Close()

	var deals []model.Deal
	for rows.Next() {
		deal, err := scanDeal(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan deal")
		}
		deals = append(deals, *deal)
	}
	return deals, eris.Wrap(rows.Err(), "postgres: list deals iterate")
}

func (s *PostgresStore) UpdateDeal(ctx context.Context, deal model.Deal) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE deals SET name = $1, client_name = $2, deal_type = $3, sales_channel = $4,
		 annual_revenue = $5, contract_term_months = $6, discount_percent = $7,
		 has_non_standard_terms = $8, updated_at = $9 WHERE id = $10`,
		deal.Name, deal.ClientName, string(deal.DealType), string(deal.SalesChannel),
		deal.AnnualRevenue, deal.ContractTermMonths, deal.DiscountPercent,
		deal.HasNonStandardTerms, time.Now().UTC(), deal.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update deal %s", deal.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("deal not found: %s", deal.ID)
	}
	return nil
}

func (s *PostgresStore) UpdateDealStatus(ctx context.Context, dealID string, status model.DealStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE deals SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), dealID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update deal status %s", dealID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("deal not found: %s", dealID)
	}
	return nil
}

func (s *PostgresStore) ReplaceTiers(ctx context.Context, dealID string, tiers []model.DealTier) ([]model.DealTier, error) {
	now := time.Now().UTC()

	out := make([]model.DealTier, len(tiers))
	rows := make([][]any, len(tiers))
	for i, t := range tiers {
		t.ID = uuid.New().String()
		t.DealID = dealID
		t.CreatedAt = now

		incentiveJSON, err := json.Marshal(t.Incentive)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: marshal incentive")
		}
		rows[i] = []any{t.ID, t.DealID, t.TierNumber, t.AnnualRevenue, t.GrossMargin, incentiveJSON, t.CreatedAt}
		out[i] = t
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin replace tiers")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM deal_tiers WHERE deal_id = $1`, dealID); err != nil {
		return nil, eris.Wrapf(err, "postgres: delete tiers for deal %s", dealID)
	}
	if _, err := db.CopyFrom(ctx, tx, "deal_tiers",
		[]string{"id", "deal_id", "tier_number", "annual_revenue", "gross_margin", "incentive", "created_at"},
		rows,
	); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit replace tiers")
	}
	return out, nil
}

func (s *PostgresStore) ListTiers(ctx context.Context, dealID string) ([]model.DealTier, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, deal_id, tier_number, annual_revenue, gross_margin, incentive, created_at
		 FROM deal_tiers WHERE deal_id = $1 ORDER BY tier_number`,
		dealID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list tiers")
	}
	defer rows.Close()

	var tiers []model.DealTier
	for rows.Next() {
		var t model.DealTier
		var incentiveJSON []byte
		if err := rows.Scan(&t.ID, &t.DealID, &t.TierNumber, &t.AnnualRevenue, &t.GrossMargin, &incentiveJSON, &t.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan tier")
		}
		if err := json.Unmarshal(incentiveJSON, &t.Incentive); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal incentive")
		}
		tiers = append(tiers, t)
	}
	return tiers, eris.Wrap(rows.Err(), "postgres: list tiers iterate")
}

func (s *PostgresStore) CreateRequirements(ctx context.Context, reqs []model.ApprovalRequirement) ([]model.ApprovalRequirement, error) {
	if len(reqs) == 0 {
		return nil, nil
	}
	now := time.Now().UTC()

	out := make([]model.ApprovalRequirement, len(reqs))
	rows := make([][]any, len(reqs))
	for i, r := range reqs {
		if r.ID == "" {
			r.ID = uuid.New().String()
		}
		if r.Status == "" {
			r.Status = model.ApprovalPending
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}

		dependsJSON, err := json.Marshal(r.DependsOn)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: marshal depends_on")
		}
		rows[i] = []any{r.ID, r.DealID, string(r.Stage), string(r.Department), string(r.Status),
			dependsJSON, r.Reviewer, r.Notes, r.CreatedAt}
		out[i] = r
	}

	if _, err := db.CopyFrom(ctx, s.pool, "approval_requirements",
		[]string{"id", "deal_id", "stage", "department", "status", "depends_on", "reviewer", "notes", "created_at"},
		rows,
	); err != nil {
		return nil, err
	}
	return out, nil
}

const requirementColumns = `id, deal_id, stage, department, status, depends_on, reviewer, notes, created_at, decided_at`

func (s *PostgresStore) ListRequirements(ctx context.Context, dealID string) ([]model.ApprovalRequirement, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+requirementColumns+` FROM approval_requirements WHERE deal_id = $1 ORDER BY created_at, id`,
		dealID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list requirements")
	}
	defer rows.Close()
	return collectRequirements(rows)
}

func (s *PostgresStore) GetRequirement(ctx context.Context, reqID string) (*model.ApprovalRequirement, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+requirementColumns+` FROM approval_requirements WHERE id = $1`, reqID)

	req, err := scanRequirement(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get requirement %s", reqID)
	}
	return req, nil
}

func (s *PostgresStore) UpdateRequirementStatus(ctx context.Context, reqID string, status model.ApprovalStatus, reviewer, notes string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE approval_requirements SET status = $1, reviewer = $2, notes = $3, decided_at = $4 WHERE id = $5`,
		string(status), reviewer, notes, time.Now().UTC(), reqID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update requirement %s", reqID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("requirement not found: %s", reqID)
	}
	return nil
}

func (s *PostgresStore) ListPendingRequirements(ctx context.Context, olderThan time.Time) ([]model.ApprovalRequirement, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+requirementColumns+` FROM approval_requirements
		 WHERE status = $1 AND created_at < $2 ORDER BY created_at`,
		string(model.ApprovalPending), olderThan,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list pending requirements")
	}
	defer rows.Close()
	return collectRequirements(rows)
}

func (s *PostgresStore) AddComment(ctx context.Context, comment model.Comment) (*model.Comment, error) {
	comment.ID = uuid.New().String()
	comment.CreatedAt = time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO comments (id, deal_id, author_id, body, created_at) VALUES ($1, $2, $3, $4, $5)`,
		comment.ID, comment.DealID, comment.AuthorID, comment.Body, comment.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert comment")
	}
	return &comment, nil
}

func (s *PostgresStore) ListComments(ctx context.Context, dealID string) ([]model.Comment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, deal_id, author_id, body, created_at FROM comments WHERE deal_id = $1 ORDER BY created_at`,
		dealID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list comments")
	}
	defer rows.Close()

	var comments []model.Comment
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.ID, &c.DealID, &c.AuthorID, &c.Body, &c.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan comment")
		}
		comments = append(comments, c)
	}
	return comments, eris.Wrap(rows.Err(), "postgres: list comments iterate")
}

func (s *PostgresStore) AppendActivity(ctx context.Context, event model.ActivityEvent) (*model.ActivityEvent, error) {
	event.ID = uuid.New().String()
	event.CreatedAt = time.Now().UTC()

	var metadataJSON []byte
	if event.Metadata != nil {
		var err error
		metadataJSON, err = json.Marshal(event.Metadata)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: marshal activity metadata")
		}
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO activity_events (id, deal_id, type, actor_id, message, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		event.ID, event.DealID, string(event.Type), event.ActorID, event.Message, metadataJSON, event.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert activity event")
	}
	return &event, nil
}

func (s *PostgresStore) ListActivity(ctx context.Context, dealID string) ([]model.ActivityEvent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, deal_id, type, actor_id, message, metadata, created_at
		 FROM activity_events WHERE deal_id = $1 ORDER BY created_at DESC`,
		dealID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list activity")
	}
	defer rows.Close()

	var events []model.ActivityEvent
	for rows.Next() {
		var e model.ActivityEvent
		var metadataJSON []byte
		if err := rows.Scan(&e.ID, &e.DealID, &e.Type, &e.ActorID, &e.Message, &metadataJSON, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan activity event")
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &e.Metadata); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal activity metadata")
			}
		}
		events = append(events, e)
	}
	return events, eris.Wrap(rows.Err(), "postgres: list activity iterate")
}

// scanDeal reads one deal from a pgx row.
func scanDeal(row pgx.Row) (*model.Deal, error) {
	var d model.Deal
	err := row.Scan(&d.ID, &d.Name, &d.ClientName, &d.OwnerID, &d.DealType, &d.SalesChannel,
		&d.Status, &d.AnnualRevenue, &d.ContractTermMonths, &d.DiscountPercent,
		&d.HasNonStandardTerms, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// scanRequirement reads one approval requirement from a pgx row.
func scanRequirement(row pgx.Row) (*model.ApprovalRequirement, error) {
	var r model.ApprovalRequirement
	var dependsJSON []byte
	err := row.Scan(&r.ID, &r.DealID, &r.Stage, &r.Department, &r.Status,
		&dependsJSON, &r.Reviewer, &r.Notes, &r.CreatedAt, &r.DecidedAt)
	if err != nil {
		return nil, err
	}
	if len(dependsJSON) > 0 {
		if err := json.Unmarshal(dependsJSON, &r.DependsOn); err != nil {
			return nil, err
		}
	}
	return &r, nil
}

func collectRequirements(rows pgx.Rows) ([]model.ApprovalRequirement, error) {
	var reqs []model.ApprovalRequirement
	for rows.Next() {
		req, err := scanRequirement(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan requirement")
		}
		reqs = append(reqs, *req)
	}
	return reqs, eris.Wrap(rows.Err(), "postgres: requirements iterate")
}
