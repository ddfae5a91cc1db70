package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/ethansammiq/deal-desk-sub004/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Used for local
// development and single-node deployments.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS deals (
	id                     TEXT PRIMARY KEY,
	name                   TEXT NOT NULL,
	client_name            TEXT NOT NULL DEFAULT '',
	owner_id               TEXT NOT NULL,
	deal_type              TEXT NOT NULL,
	sales_channel          TEXT NOT NULL,
	status                 TEXT NOT NULL DEFAULT 'draft',
	annual_revenue         REAL NOT NULL DEFAULT 0,
	contract_term_months   INTEGER NOT NULL DEFAULT 0,
	discount_percent       REAL NOT NULL DEFAULT 0,
	has_non_standard_terms INTEGER NOT NULL DEFAULT 0,
	created_at             DATETIME NOT NULL,
	updated_at             DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_deals_status ON deals(status);
CREATE INDEX IF NOT EXISTS idx_deals_owner ON deals(owner_id);

CREATE TABLE IF NOT EXISTS deal_tiers (
	id             TEXT PRIMARY KEY,
	deal_id        TEXT NOT NULL REFERENCES deals(id),
	tier_number    INTEGER NOT NULL,
	annual_revenue REAL NOT NULL DEFAULT 0,
	gross_margin   REAL NOT NULL DEFAULT 0,
	incentive      TEXT NOT NULL DEFAULT '{}',
	created_at     DATETIME NOT NULL,
	UNIQUE (deal_id, tier_number)
);

CREATE TABLE IF NOT EXISTS approval_requirements (
	id         TEXT PRIMARY KEY,
	deal_id    TEXT NOT NULL REFERENCES deals(id),
	stage      TEXT NOT NULL,
	department TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT 'pending',
	depends_on TEXT NOT NULL DEFAULT '[]',
	reviewer   TEXT NOT NULL DEFAULT '',
	notes      TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	decided_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_approval_requirements_deal_id ON approval_requirements(deal_id);
CREATE INDEX IF NOT EXISTS idx_approval_requirements_pending ON approval_requirements(status, created_at);

CREATE TABLE IF NOT EXISTS comments (
	id         TEXT PRIMARY KEY,
	deal_id    TEXT NOT NULL REFERENCES deals(id),
	author_id  TEXT NOT NULL,
	body       TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS activity_events (
	id         TEXT PRIMARY KEY,
	deal_id    TEXT NOT NULL REFERENCES deals(id),
	type       TEXT NOT NULL,
	actor_id   TEXT NOT NULL,
	message    TEXT NOT NULL,
	metadata   TEXT,
	created_at DATETIME NOT NULL
);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return eris.Wrap(s.db.Close(), "sqlite: close")
}

const sqliteDealColumns = `id, name, client_name, owner_id, deal_type, sales_channel, status,
	annual_revenue, contract_term_months, discount_percent, has_non_standard_terms,
	created_at, updated_at`

func (s *SQLiteStore) CreateDeal(ctx context.Context, deal model.Deal) (*model.Deal, error) {
	deal.ID = uuid.New().String()
	now := time.Now().UTC()
	deal.CreatedAt = now
	deal.UpdatedAt = now
	if deal.Status == "" {
		deal.Status = model.DealStatusDraft
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO deals (id, name, client_name, owner_id, deal_type, sales_channel, status,
		 annual_revenue, contract_term_months, discount_percent, has_non_standard_terms, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		deal.ID, deal.Name, deal.ClientName, deal.OwnerID, string(deal.DealType),
		string(deal.SalesChannel), string(deal.Status), deal.AnnualRevenue,
		deal.ContractTermMonths, deal.DiscountPercent, deal.HasNonStandardTerms,
		deal.CreatedAt, deal.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert deal")
	}
	return &deal, nil
}

func (s *SQLiteStore) GetDeal(ctx context.Context, dealID string) (*model.Deal, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteDealColumns+` FROM deals WHERE id = ?`, dealID)

	var d model.Deal
	err := row.Scan(&d.ID, &d.Name, &d.ClientName, &d.OwnerID, &d.DealType, &d.SalesChannel,
		&d.Status, &d.AnnualRevenue, &d.ContractTermMonths, &d.DiscountPercent,
		&d.HasNonStandardTerms, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get deal %s", dealID)
	}
	return &d, nil
}

func (s *SQLiteStore) ListDeals(ctx context.Context, filter DealFilter) ([]model.Deal, error) {
	query := `SELECT ` + sqliteDealColumns + ` FROM deals WHERE 1=1`
	args := []any{}

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.OwnerID != "" {
		query += ` AND owner_id = ?`
		args = append(args, filter.OwnerID)
	}
	if filter.Client != "" {
		query += ` AND client_name = ?`
		args = append(args, filter.Client)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list deals")
	}
	defer rows.Close()

	var deals []model.Deal
	for rows.Next() {
		var d model.Deal
		if err := rows.Scan(&d.ID, &d.Name, &d.ClientName, &d.OwnerID, &d.DealType, &d.SalesChannel,
			&d.Status, &d.AnnualRevenue, &d.ContractTermMonths, &d.DiscountPercent,
			&d.HasNonStandardTerms, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan deal")
		}
		deals = append(deals, d)
	}
	return deals, eris.Wrap(rows.Err(), "sqlite: list deals iterate")
}

func (s *SQLiteStore) UpdateDeal(ctx context.Context, deal model.Deal) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE deals SET name = ?, client_name = ?, deal_type = ?, sales_channel = ?,
		 annual_revenue = ?, contract_term_months = ?, discount_percent = ?,
		 has_non_standard_terms = ?, updated_at = ? WHERE id = ?`,
		deal.Name, deal.ClientName, string(deal.DealType), string(deal.SalesChannel),
		deal.AnnualRevenue, deal.ContractTermMonths, deal.DiscountPercent,
		deal.HasNonStandardTerms, time.Now().UTC(), deal.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update deal %s", deal.ID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return eris.Errorf("deal not found: %s", deal.ID)
	}
	return nil
}

func (s *SQLiteStore) UpdateDealStatus(ctx context.Context, dealID string, status model.DealStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE deals SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), dealID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update deal status %s", dealID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return eris.Errorf("deal not found: %s", dealID)
	}
	return nil
}

func (s *SQLiteStore) ReplaceTiers(ctx context.Context, dealID string, tiers []model.DealTier) ([]model.DealTier, error) {
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin replace tiers")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM deal_tiers WHERE deal_id = ?`, dealID); err != nil {
		return nil, eris.Wrapf(err, "sqlite: delete tiers for deal %s", dealID)
	}

	out := make([]model.DealTier, len(tiers))
	for i, t := range tiers {
		t.ID = uuid.New().String()
		t.DealID = dealID
		t.CreatedAt = now

		incentiveJSON, err := json.Marshal(t.Incentive)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: marshal incentive")
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO deal_tiers (id, deal_id, tier_number, annual_revenue, gross_margin, incentive, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.DealID, t.TierNumber, t.AnnualRevenue, t.GrossMargin, string(incentiveJSON), t.CreatedAt,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: insert tier")
		}
		out[i] = t
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit replace tiers")
	}
	return out, nil
}

func (s *SQLiteStore) ListTiers(ctx context.Context, dealID string) ([]model.DealTier, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, deal_id, tier_number, annual_revenue, gross_margin, incentive, created_at
		 FROM deal_tiers WHERE deal_id = ? ORDER BY tier_number`,
		dealID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list tiers")
	}
	defer rows.Close()

	var tiers []model.DealTier
	for rows.Next() {
		var t model.DealTier
		var incentiveJSON string
		if err := rows.Scan(&t.ID, &t.DealID, &t.TierNumber, &t.AnnualRevenue, &t.GrossMargin, &incentiveJSON, &t.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan tier")
		}
		if err := json.Unmarshal([]byte(incentiveJSON), &t.Incentive); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal incentive")
		}
		tiers = append(tiers, t)
	}
	return tiers, eris.Wrap(rows.Err(), "sqlite: list tiers iterate")
}

func (s *SQLiteStore) CreateRequirements(ctx context.Context, reqs []model.ApprovalRequirement) ([]model.ApprovalRequirement, error) {
	if len(reqs) == 0 {
		return nil, nil
	}
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin create requirements")
	}
	defer tx.Rollback()

	out := make([]model.ApprovalRequirement, len(reqs))
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
			return nil, eris.Wrap(err, "sqlite: marshal depends_on")
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO approval_requirements (id, deal_id, stage, department, status, depends_on, reviewer, notes, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, r.DealID, string(r.Stage), string(r.Department), string(r.Status),
			string(dependsJSON), r.Reviewer, r.Notes, r.CreatedAt,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: insert requirement")
		}
		out[i] = r
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit create requirements")
	}
	return out, nil
}

const sqliteRequirementColumns = `id, deal_id, stage, department, status, depends_on, reviewer, notes, created_at, decided_at`

func (s *SQLiteStore) ListRequirements(ctx context.Context, dealID string) ([]model.ApprovalRequirement, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteRequirementColumns+` FROM approval_requirements WHERE deal_id = ? ORDER BY created_at, id`,
		dealID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list requirements")
	}
	defer rows.Close()
	return s.collectRequirements(rows)
}

func (s *SQLiteStore) GetRequirement(ctx context.Context, reqID string) (*model.ApprovalRequirement, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteRequirementColumns+` FROM approval_requirements WHERE id = ?`, reqID)

	req, err := scanSQLiteRequirement(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get requirement %s", reqID)
	}
	return req, nil
}

func (s *SQLiteStore) UpdateRequirementStatus(ctx context.Context, reqID string, status model.ApprovalStatus, reviewer, notes string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE approval_requirements SET status = ?, reviewer = ?, notes = ?, decided_at = ? WHERE id = ?`,
		string(status), reviewer, notes, time.Now().UTC(), reqID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update requirement %s", reqID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return eris.Errorf("requirement not found: %s", reqID)
	}
	return nil
}

func (s *SQLiteStore) ListPendingRequirements(ctx context.Context, olderThan time.Time) ([]model.ApprovalRequirement, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteRequirementColumns+` FROM approval_requirements
		 WHERE status = ? AND created_at < ? ORDER BY created_at`,
		string(model.ApprovalPending), olderThan,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list pending requirements")
	}
	defer rows.Close()
	return s.collectRequirements(rows)
}

func (s *SQLiteStore) AddComment(ctx context.Context, comment model.Comment) (*model.Comment, error) {
	comment.ID = uuid.New().String()
	comment.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO comments (id, deal_id, author_id, body, created_at) VALUES (?, ?, ?, ?, ?)`,
		comment.ID, comment.DealID, comment.AuthorID, comment.Body, comment.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert comment")
	}
	return &comment, nil
}

func (s *SQLiteStore) ListComments(ctx context.Context, dealID string) ([]model.Comment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, deal_id, author_id, body, created_at FROM comments WHERE deal_id = ? ORDER BY created_at`,
		dealID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list comments")
	}
	defer rows.Close()

	var comments []model.Comment
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.ID, &c.DealID, &c.AuthorID, &c.Body, &c.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan comment")
		}
		comments = append(comments, c)
	}
	return comments, eris.Wrap(rows.Err(), "sqlite: list comments iterate")
}

func (s *SQLiteStore) AppendActivity(ctx context.Context, event model.ActivityEvent) (*model.ActivityEvent, error) {
	event.ID = uuid.New().String()
	event.CreatedAt = time.Now().UTC()

	var metadataJSON []byte
	if event.Metadata != nil {
		var err error
		metadataJSON, err = json.Marshal(event.Metadata)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: marshal activity metadata")
		}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO activity_events (id, deal_id, type, actor_id, message, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.DealID, string(event.Type), event.ActorID, event.Message,
		nullableString(metadataJSON), event.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert activity event")
	}
	return &event, nil
}

func (s *SQLiteStore) ListActivity(ctx context.Context, dealID string) ([]model.ActivityEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, deal_id, type, actor_id, message, metadata, created_at
		 FROM activity_events WHERE deal_id = ? ORDER BY created_at DESC`,
		dealID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list activity")
	}
	defer rows.Close()

	var events []model.ActivityEvent
	for rows.Next() {
		var e model.ActivityEvent
		var metadataJSON sql.NullString
		if err := rows.Scan(&e.ID, &e.DealID, &e.Type, &e.ActorID, &e.Message, &metadataJSON, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan activity event")
		}
		if metadataJSON.Valid && metadataJSON.String != "" {
			if err := json.Unmarshal([]byte(metadataJSON.String), &e.Metadata); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal activity metadata")
			}
		}
		events = append(events, e)
	}
	return events, eris.Wrap(rows.Err(), "sqlite: list activity iterate")
}

func (s *SQLiteStore) collectRequirements(rows *sql.Rows) ([]model.ApprovalRequirement, error) {
	var reqs []model.ApprovalRequirement
	for rows.Next() {
		req, err := scanSQLiteRequirement(rows.Scan)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan requirement")
		}
		reqs = append(reqs, *req)
	}
	return reqs, eris.Wrap(rows.Err(), "sqlite: requirements iterate")
}

func scanSQLiteRequirement(scan func(dest ...any) error) (*model.ApprovalRequirement, error) {
	var r model.ApprovalRequirement
	var dependsJSON string
	var decidedAt sql.NullTime
	err := scan(&r.ID, &r.DealID, &r.Stage, &r.Department, &r.Status,
		&dependsJSON, &r.Reviewer, &r.Notes, &r.CreatedAt, &decidedAt)
	if err != nil {
		return nil, err
	}
	if dependsJSON != "" {
		if err := json.Unmarshal([]byte(dependsJSON), &r.DependsOn); err != nil {
			return nil, err
		}
	}
	if decidedAt.Valid {
		t := decidedAt.Time
		r.DecidedAt = &t
	}
	return &r, nil
}

func nullableString(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
