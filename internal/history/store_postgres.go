package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	id "bloodlink/pkg/domain"
)

// PostgresStore persists the ledger in the donation_history table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, record DonationRecord) error {
	query := `
		INSERT INTO donation_history (
			id, donor_id, hospital_id, request_id, blood_group,
			donated_at, units, verified
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	var requestID *uuid.UUID
	if !record.RequestID.IsNil() {
		u := uuid.UUID(record.RequestID)
		requestID = &u
	}
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(record.ID), uuid.UUID(record.DonorID), uuid.UUID(record.HospitalID),
		requestID, string(record.BloodGroup), record.DonatedAt, record.Units, record.Verified,
	)
	if err != nil {
		return fmt.Errorf("insert donation record: %w", err)
	}
	return nil
}

func (s *PostgresStore) LatestVerified(ctx context.Context, donorID id.DonorID) (*DonationRecord, error) {
	query := selectRecord + `
		WHERE donor_id = $1 AND verified = true
		ORDER BY donated_at DESC
		LIMIT 1
	`
	r, err := scanRecord(s.db.QueryRowContext(ctx, query, uuid.UUID(donorID)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return r, err
}

func (s *PostgresStore) ListByDonor(ctx context.Context, donorID id.DonorID) ([]DonationRecord, error) {
	query := selectRecord + `
		WHERE donor_id = $1
		ORDER BY donated_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(donorID))
	if err != nil {
		return nil, fmt.Errorf("query donation history: %w", err)
	}
	defer rows.Close()

	var out []DonationRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate donation history: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) DonorSummaries(ctx context.Context, hospitalID id.HospitalID) ([]DonorSummary, error) {
	query := `
		SELECT donor_id, COUNT(*), COALESCE(SUM(units), 0), MAX(donated_at)
		FROM donation_history
		WHERE hospital_id = $1
		GROUP BY donor_id
		ORDER BY COUNT(*) DESC
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(hospitalID))
	if err != nil {
		return nil, fmt.Errorf("query donor summaries: %w", err)
	}
	defer rows.Close()

	var out []DonorSummary
	for rows.Next() {
		var (
			sum DonorSummary
			uid uuid.UUID
		)
		if err := rows.Scan(&uid, &sum.DonationCount, &sum.TotalUnits, &sum.LastDonationAt); err != nil {
			return nil, fmt.Errorf("scan donor summary: %w", err)
		}
		sum.DonorID = id.DonorID(uid)
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate donor summaries: %w", err)
	}
	return out, nil
}

const selectRecord = `
	SELECT id, donor_id, hospital_id, request_id, blood_group,
	       donated_at, units, verified
	FROM donation_history
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*DonationRecord, error) {
	var (
		r          DonationRecord
		rid        uuid.UUID
		donorID    uuid.UUID
		hospitalID uuid.UUID
		requestID  *uuid.UUID
		bloodGroup string
	)
	err := row.Scan(&rid, &donorID, &hospitalID, &requestID, &bloodGroup,
		&r.DonatedAt, &r.Units, &r.Verified)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan donation record: %w", err)
	}
	r.ID = id.DonationID(rid)
	r.DonorID = id.DonorID(donorID)
	r.HospitalID = id.HospitalID(hospitalID)
	if requestID != nil {
		r.RequestID = id.RequestID(*requestID)
	}
	r.BloodGroup = id.BloodGroup(bloodGroup)
	return &r, nil
}
