// Package store persists claims and their publication state in SQLite.
//
// Only sanitized text ever reaches this package: the pipeline redacts every
// free-text field before CreateClaim is called, and the stored flag reason is
// derived from moderation of the sanitized text. Public listing queries
// filter on status so held and rejected claims never surface.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/rgygrj9sjw-svg/Claims/internal/claim"
	claimsotel "github.com/rgygrj9sjw-svg/Claims/internal/otel"
	"github.com/rgygrj9sjw-svg/Claims/internal/policy"
)

var tracer = claimsotel.Tracer("github.com/rgygrj9sjw-svg/Claims/internal/store")

// ErrClaimNotFound is returned when a claim id does not exist (or is not
// visible to the caller).
var ErrClaimNotFound = errors.New("claim not found")

// Store persists claims in SQLite.
type Store struct {
	db *sql.DB
}

// Claim is a persisted claim with its relations.
type Claim struct {
	ID         string                `json:"id"`
	CarrierID  string                `json:"carrier_id"`
	Status     policy.Status         `json:"status"`
	FlagReason *string               `json:"flag_reason,omitempty"`
	ViewCount  int                   `json:"view_count"`
	CreatedAt  time.Time             `json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
	Metadata   claim.Metadata        `json:"metadata"`
	Timeline   []claim.TimelineEvent `json:"timeline,omitempty"`
	Outcome    claim.Outcome         `json:"outcome"`
}

// Filter narrows a published-claims listing.
type Filter struct {
	State      string
	CarrierID  string
	PolicyType string
	LossType   string
	SortBy     string // "newest" (default) or "most_viewed"
	Page       int
	Limit      int
}

// Page is one page of listing results.
type Page struct {
	Claims     []Claim `json:"claims"`
	Total      int     `json:"total"`
	Page       int     `json:"page"`
	Limit      int     `json:"limit"`
	TotalPages int     `json:"total_pages"`
}

const defaultPageLimit = 10
const maxPageLimit = 100

// NewStore opens (creating if needed) the claims database.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening claims database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS claims (
		id TEXT PRIMARY KEY,
		carrier_id TEXT NOT NULL,
		status TEXT NOT NULL,
		flag_reason TEXT,
		view_count INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS claim_metadata (
		claim_id TEXT PRIMARY KEY REFERENCES claims(id) ON DELETE CASCADE,
		state TEXT NOT NULL,
		policy_type TEXT NOT NULL,
		loss_type TEXT NOT NULL,
		date_of_loss_month INTEGER NOT NULL,
		date_of_loss_year INTEGER NOT NULL,
		property_type TEXT,
		occupancy TEXT,
		mitigation_done INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS timeline_events (
		id TEXT PRIMARY KEY,
		claim_id TEXT NOT NULL REFERENCES claims(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		date TIMESTAMP NOT NULL,
		event_type TEXT NOT NULL,
		notes_sanitized TEXT
	);

	CREATE TABLE IF NOT EXISTS claim_outcomes (
		claim_id TEXT PRIMARY KEY REFERENCES claims(id) ON DELETE CASCADE,
		initial_payment_amount REAL,
		final_payment_amount REAL,
		denied_flag INTEGER NOT NULL DEFAULT 0,
		partial_flag INTEGER NOT NULL DEFAULT 0,
		appraisal_flag INTEGER NOT NULL DEFAULT 0,
		litigation_flag INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_claims_status ON claims(status);
	CREATE INDEX IF NOT EXISTS idx_claims_carrier ON claims(carrier_id);
	CREATE INDEX IF NOT EXISTS idx_claims_created ON claims(created_at);
	CREATE INDEX IF NOT EXISTS idx_timeline_claim ON timeline_events(claim_id, position);
	`

	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		return nil, fmt.Errorf("creating claims schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateClaim persists a sanitized submission with its intake disposition and
// returns the stored claim. All four tables are written in one transaction.
func (s *Store) CreateClaim(ctx context.Context, sub *claim.Submission, disp policy.Disposition) (*Claim, error) {
	ctx, span := tracer.Start(ctx, "store.create_claim",
		trace.WithAttributes(attribute.String("claim.status", string(disp.Status))))
	defer span.End()

	now := time.Now().UTC()
	c := &Claim{
		ID:         uuid.NewString(),
		CarrierID:  sub.Metadata.CarrierID,
		Status:     disp.Status,
		FlagReason: disp.FlagReason,
		CreatedAt:  now,
		UpdatedAt:  now,
		Metadata:   sub.Metadata,
		Timeline:   sub.Timeline,
		Outcome:    sub.Outcome,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO claims (id, carrier_id, status, flag_reason, view_count, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 0, ?, ?)`,
		c.ID, c.CarrierID, string(c.Status), c.FlagReason, c.CreatedAt, c.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("inserting claim: %w", err)
	}

	m := sub.Metadata
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO claim_metadata (claim_id, state, policy_type, loss_type, date_of_loss_month,
		 date_of_loss_year, property_type, occupancy, mitigation_done)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, m.State, string(m.PolicyType), string(m.LossType), m.DateOfLossMonth,
		m.DateOfLossYear, m.PropertyType, m.Occupancy, m.MitigationDone,
	); err != nil {
		return nil, fmt.Errorf("inserting claim metadata: %w", err)
	}

	for i, ev := range sub.Timeline {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO timeline_events (id, claim_id, position, date, event_type, notes_sanitized)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), c.ID, i, ev.Date, string(ev.EventType), ev.Notes,
		); err != nil {
			return nil, fmt.Errorf("inserting timeline event %d: %w", i, err)
		}
	}

	o := sub.Outcome
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO claim_outcomes (claim_id, initial_payment_amount, final_payment_amount,
		 denied_flag, partial_flag, appraisal_flag, litigation_flag)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, o.InitialPaymentAmount, o.FinalPaymentAmount,
		o.DeniedFlag, o.PartialFlag, o.AppraisalFlag, o.LitigationFlag,
	); err != nil {
		return nil, fmt.Errorf("inserting claim outcome: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing claim: %w", err)
	}

	span.SetAttributes(attribute.String("claim.id", c.ID))
	return c, nil
}

// GetClaim retrieves a claim with all relations. publishedOnly restricts the
// lookup to publicly visible claims (the non-admin path).
func (s *Store) GetClaim(ctx context.Context, id string, publishedOnly bool) (*Claim, error) {
	ctx, span := tracer.Start(ctx, "store.get_claim",
		trace.WithAttributes(attribute.String("claim.id", id)))
	defer span.End()

	query := `SELECT id, carrier_id, status, flag_reason, view_count, created_at, updated_at
	          FROM claims WHERE id = ?`
	args := []interface{}{id}
	if publishedOnly {
		query += ` AND status = ?`
		args = append(args, string(policy.StatusPublished))
	}

	var c Claim
	var status string
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&c.ID, &c.CarrierID, &status, &c.FlagReason, &c.ViewCount, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrClaimNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying claim: %w", err)
	}
	c.Status = policy.Status(status)

	if err := s.loadRelations(ctx, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) loadRelations(ctx context.Context, c *Claim) error {
	var policyType, lossType string
	err := s.db.QueryRowContext(ctx,
		`SELECT state, policy_type, loss_type, date_of_loss_month, date_of_loss_year,
		 property_type, occupancy, mitigation_done
		 FROM claim_metadata WHERE claim_id = ?`, c.ID,
	).Scan(
		&c.Metadata.State, &policyType, &lossType,
		&c.Metadata.DateOfLossMonth, &c.Metadata.DateOfLossYear,
		&c.Metadata.PropertyType, &c.Metadata.Occupancy, &c.Metadata.MitigationDone,
	)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("querying claim metadata: %w", err)
	}
	c.Metadata.CarrierID = c.CarrierID
	c.Metadata.PolicyType = claim.PolicyType(policyType)
	c.Metadata.LossType = claim.LossType(lossType)

	rows, err := s.db.QueryContext(ctx,
		`SELECT date, event_type, notes_sanitized FROM timeline_events
		 WHERE claim_id = ? ORDER BY position`, c.ID)
	if err != nil {
		return fmt.Errorf("querying timeline: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var ev claim.TimelineEvent
		var eventType string
		if err := rows.Scan(&ev.Date, &eventType, &ev.Notes); err != nil {
			return fmt.Errorf("scanning timeline event: %w", err)
		}
		ev.EventType = claim.EventType(eventType)
		c.Timeline = append(c.Timeline, ev)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating timeline: %w", err)
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT initial_payment_amount, final_payment_amount, denied_flag, partial_flag,
		 appraisal_flag, litigation_flag
		 FROM claim_outcomes WHERE claim_id = ?`, c.ID,
	).Scan(
		&c.Outcome.InitialPaymentAmount, &c.Outcome.FinalPaymentAmount,
		&c.Outcome.DeniedFlag, &c.Outcome.PartialFlag,
		&c.Outcome.AppraisalFlag, &c.Outcome.LitigationFlag,
	)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("querying claim outcome: %w", err)
	}
	return nil
}

// ListPublished returns one page of published claims matching the filter.
// Timeline rows are skipped in listings; callers fetch the detail view for
// the full history.
func (s *Store) ListPublished(ctx context.Context, f Filter) (*Page, error) {
	ctx, span := tracer.Start(ctx, "store.list_published")
	defer span.End()

	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = defaultPageLimit
	}
	if f.Limit > maxPageLimit {
		f.Limit = maxPageLimit
	}

	where := []string{"c.status = ?"}
	args := []interface{}{string(policy.StatusPublished)}
	if f.CarrierID != "" {
		where = append(where, "c.carrier_id = ?")
		args = append(args, f.CarrierID)
	}
	if f.State != "" {
		where = append(where, "m.state = ?")
		args = append(args, f.State)
	}
	if f.PolicyType != "" {
		where = append(where, "m.policy_type = ?")
		args = append(args, f.PolicyType)
	}
	if f.LossType != "" {
		where = append(where, "m.loss_type = ?")
		args = append(args, f.LossType)
	}
	whereClause := strings.Join(where, " AND ")

	var total int
	countQuery := `SELECT COUNT(*) FROM claims c
	               LEFT JOIN claim_metadata m ON m.claim_id = c.id
	               WHERE ` + whereClause
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting claims: %w", err)
	}

	orderBy := "c.created_at DESC"
	if f.SortBy == "most_viewed" {
		orderBy = "c.view_count DESC"
	}

	listQuery := `SELECT c.id FROM claims c
	              LEFT JOIN claim_metadata m ON m.claim_id = c.id
	              WHERE ` + whereClause + ` ORDER BY ` + orderBy + ` LIMIT ? OFFSET ?`
	listArgs := append(append([]interface{}{}, args...), f.Limit, (f.Page-1)*f.Limit)

	rows, err := s.db.QueryContext(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, fmt.Errorf("listing claims: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning claim id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating claims: %w", err)
	}

	page := &Page{
		Claims: make([]Claim, 0, len(ids)),
		Total:  total,
		Page:   f.Page,
		Limit:  f.Limit,
	}
	page.TotalPages = (total + f.Limit - 1) / f.Limit
	for _, id := range ids {
		c, err := s.GetClaim(ctx, id, false)
		if err != nil {
			return nil, err
		}
		c.Timeline = nil
		page.Claims = append(page.Claims, *c)
	}

	span.SetAttributes(attribute.Int("claims.total", total))
	return page, nil
}

// IncrementViewCount bumps a published claim's view counter.
func (s *Store) IncrementViewCount(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE claims SET view_count = view_count + 1 WHERE id = ? AND status = ?`,
		id, string(policy.StatusPublished))
	if err != nil {
		return fmt.Errorf("incrementing view count: %w", err)
	}
	return nil
}

// ListPendingReview returns every held claim, newest first, for the admin
// review queue.
func (s *Store) ListPendingReview(ctx context.Context) ([]Claim, error) {
	ctx, span := tracer.Start(ctx, "store.list_pending_review")
	defer span.End()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM claims WHERE status = ? ORDER BY created_at DESC`,
		string(policy.StatusPendingReview))
	if err != nil {
		return nil, fmt.Errorf("listing pending claims: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning claim id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating pending claims: %w", err)
	}

	claims := make([]Claim, 0, len(ids))
	for _, id := range ids {
		c, err := s.GetClaim(ctx, id, false)
		if err != nil {
			return nil, err
		}
		claims = append(claims, *c)
	}
	return claims, nil
}

// PublishClaim moves a held claim to PUBLISHED and clears its flag reason.
// Only the PENDING_REVIEW to PUBLISHED transition is allowed.
func (s *Store) PublishClaim(ctx context.Context, id string) error {
	return s.transition(ctx, id, policy.StatusPublished, nil)
}

// RejectClaim moves a held claim to REJECTED, recording the administrator's
// reason.
func (s *Store) RejectClaim(ctx context.Context, id, reason string) error {
	return s.transition(ctx, id, policy.StatusRejected, &reason)
}

func (s *Store) transition(ctx context.Context, id string, to policy.Status, reason *string) error {
	ctx, span := tracer.Start(ctx, "store.transition",
		trace.WithAttributes(
			attribute.String("claim.id", id),
			attribute.String("claim.status", string(to)),
		))
	defer span.End()

	var current string
	err := s.db.QueryRowContext(ctx, `SELECT status FROM claims WHERE id = ?`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrClaimNotFound
	}
	if err != nil {
		return fmt.Errorf("querying claim status: %w", err)
	}
	if err := policy.ValidateTransition(policy.Status(current), to); err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE claims SET status = ?, flag_reason = ?, updated_at = ? WHERE id = ?`,
		string(to), reason, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("updating claim status: %w", err)
	}
	return nil
}

// DeleteClaim removes a claim and its relations.
func (s *Store) DeleteClaim(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM claims WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting claim: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrClaimNotFound
	}
	return nil
}

// PurgeRejectedBefore deletes rejected claims last updated before cutoff.
// Used by the retention sweep; returns the number of claims removed.
func (s *Store) PurgeRejectedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, span := tracer.Start(ctx, "store.purge_rejected")
	defer span.End()

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM claims WHERE status = ? AND updated_at < ?`,
		string(policy.StatusRejected), cutoff)
	if err != nil {
		return 0, fmt.Errorf("purging rejected claims: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting purged claims: %w", err)
	}
	span.SetAttributes(attribute.Int64("claims.purged", n))
	return n, nil
}
