// Package audit keeps an HMAC-signed record of every moderation decision.
//
// Records hold derived data only: disposition, flagged terms, the flag
// reason, and the PII category names that were redacted, never the raw text
// or the redacted values. The signature makes after-the-fact edits to a
// moderation outcome detectable during a dispute.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	claimsotel "github.com/rgygrj9sjw-svg/Claims/internal/otel"
)

var tracer = claimsotel.Tracer("github.com/rgygrj9sjw-svg/Claims/internal/audit")

// ErrRecordNotFound is returned when an audit record id does not exist.
var ErrRecordNotFound = errors.New("audit record not found")

// Store persists signed moderation audit records in SQLite.
type Store struct {
	db     *sql.DB
	signer *Signer
}

// Record is the audit entry for one evaluated submission.
type Record struct {
	ID            string    `json:"id"`
	ClaimID       string    `json:"claim_id"`
	Timestamp     time.Time `json:"timestamp"`
	Status        string    `json:"status"`
	FlagReason    string    `json:"flag_reason,omitempty"`
	FlaggedTerms  []string  `json:"flagged_terms,omitempty"`
	PIICategories []string  `json:"pii_categories,omitempty"`
	DurationMS    int64     `json:"duration_ms"`
	Signature     string    `json:"signature"`
}

// NewStore opens (creating if needed) the audit database.
func NewStore(dbPath string, signingKey string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening audit database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS moderation_audit (
		id TEXT PRIMARY KEY,
		claim_id TEXT NOT NULL,
		timestamp TIMESTAMP NOT NULL,
		status TEXT NOT NULL,
		record_json TEXT NOT NULL,
		signature TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_audit_claim ON moderation_audit(claim_id);
	CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON moderation_audit(timestamp);
	`

	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		return nil, fmt.Errorf("creating audit schema: %w", err)
	}

	signer, err := NewSigner(signingKey)
	if err != nil {
		return nil, fmt.Errorf("creating signer: %w", err)
	}

	return &Store{db: db, signer: signer}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append signs and stores an audit record, assigning its id and timestamp.
func (s *Store) Append(ctx context.Context, rec *Record) error {
	ctx, span := tracer.Start(ctx, "audit.append",
		trace.WithAttributes(attribute.String("claim.id", rec.ClaimID)))
	defer span.End()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	rec.Signature = ""

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling audit record: %w", err)
	}
	signature, err := s.signer.Sign(payload)
	if err != nil {
		return fmt.Errorf("signing audit record: %w", err)
	}
	rec.Signature = signature

	signedJSON, _ := json.Marshal(rec)

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO moderation_audit (id, claim_id, timestamp, status, record_json, signature)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ClaimID, rec.Timestamp, rec.Status, string(signedJSON), signature,
	)
	if err != nil {
		return fmt.Errorf("storing audit record: %w", err)
	}
	return nil
}

// Get retrieves an audit record by id.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	var recordJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT record_json FROM moderation_audit WHERE id = ?`, id).Scan(&recordJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying audit record: %w", err)
	}

	var rec Record
	if err := json.Unmarshal([]byte(recordJSON), &rec); err != nil {
		return nil, fmt.Errorf("unmarshaling audit record: %w", err)
	}
	return &rec, nil
}

// ListByClaim returns all audit records for a claim, oldest first.
func (s *Store) ListByClaim(ctx context.Context, claimID string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT record_json FROM moderation_audit WHERE claim_id = ? ORDER BY timestamp`, claimID)
	if err != nil {
		return nil, fmt.Errorf("listing audit records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var recordJSON string
		if err := rows.Scan(&recordJSON); err != nil {
			return nil, fmt.Errorf("scanning audit record: %w", err)
		}
		var rec Record
		if err := json.Unmarshal([]byte(recordJSON), &rec); err != nil {
			return nil, fmt.Errorf("unmarshaling audit record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Verify recomputes the signature for a stored record and reports whether it
// still matches.
func (s *Store) Verify(ctx context.Context, id string) (bool, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}

	signature := rec.Signature
	rec.Signature = ""
	payload, err := json.Marshal(rec)
	if err != nil {
		return false, fmt.Errorf("marshaling audit record: %w", err)
	}
	return s.signer.Verify(payload, signature), nil
}
