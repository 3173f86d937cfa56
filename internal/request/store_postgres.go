package request

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	id "bloodlink/pkg/domain"
	"bloodlink/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

// PostgresStore persists requests across the requests and request_donors
// tables. The acceptance list lives in request_donors with an explicit
// position column so insertion order survives round trips.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, r *Request) error {
	query := `
		INSERT INTO requests (id, hospital_id, blood_group, units, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(r.ID), uuid.UUID(r.HospitalID), string(r.BloodGroup),
		r.Units, string(r.Status), r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert request: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, requestID id.RequestID) (*Request, error) {
	r, err := s.scanRequest(ctx, s.db, requestID, false)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Execute runs validate and mutate while holding a row lock on the request.
//
// SELECT ... FOR UPDATE serializes concurrent accepts on the same request:
// the second transaction blocks until the first commits, then validates
// against the committed acceptance list. That is what caps accepted donors
// at the unit count even under simultaneous calls.
func (s *PostgresStore) Execute(ctx context.Context, requestID id.RequestID, validate func(*Request) error, mutate func(*Request)) (*Request, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin request tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	r, err := s.scanRequest(ctx, tx, requestID, true)
	if err != nil {
		return nil, err
	}
	if err := validate(r); err != nil {
		return nil, err
	}
	mutate(r)

	update := `
		UPDATE requests
		SET blood_group = $2, units = $3, status = $4, updated_at = $5
		WHERE id = $1
	`
	if _, err := tx.ExecContext(ctx, update,
		uuid.UUID(r.ID), string(r.BloodGroup), r.Units, string(r.Status), r.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("update request: %w", err)
	}
	if err := replaceDonors(ctx, tx, r); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit request tx: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) Update(ctx context.Context, r *Request) error {
	query := `
		UPDATE requests
		SET blood_group = $2, units = $3, status = $4, updated_at = $5
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(r.ID), string(r.BloodGroup), r.Units, string(r.Status), r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update request rows: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindActiveByDonor(ctx context.Context, donorID id.DonorID) (*Request, error) {
	query := `
		SELECT r.id
		FROM requests r
		JOIN request_donors rd ON rd.request_id = r.id
		WHERE rd.donor_id = $1 AND r.status IN ('open', 'accepted')
		LIMIT 1
	`
	var rid uuid.UUID
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(donorID)).Scan(&rid)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query active request for donor: %w", err)
	}
	return s.FindByID(ctx, id.RequestID(rid))
}

func (s *PostgresStore) ListOpenByHospitals(ctx context.Context, hospitalIDs []id.HospitalID) ([]*Request, error) {
	if len(hospitalIDs) == 0 {
		return nil, nil
	}
	raw := make([]uuid.UUID, len(hospitalIDs))
	for i, h := range hospitalIDs {
		raw[i] = uuid.UUID(h)
	}
	query := `
		SELECT id FROM requests
		WHERE status = 'open' AND hospital_id = ANY($1)
		ORDER BY created_at DESC
	`
	return s.collectByIDs(ctx, query, pq.Array(raw))
}

func (s *PostgresStore) ListByHospital(ctx context.Context, hospitalID id.HospitalID, status *Status) ([]*Request, error) {
	if status != nil {
		query := `
			SELECT id FROM requests
			WHERE hospital_id = $1 AND status = $2
			ORDER BY created_at DESC
		`
		return s.collectByIDs(ctx, query, uuid.UUID(hospitalID), string(*status))
	}
	query := `
		SELECT id FROM requests
		WHERE hospital_id = $1
		ORDER BY created_at DESC
	`
	return s.collectByIDs(ctx, query, uuid.UUID(hospitalID))
}

func (s *PostgresStore) CountByStatus(ctx context.Context, hospitalID id.HospitalID) (map[Status]int, error) {
	query := `
		SELECT status, COUNT(*) FROM requests
		WHERE hospital_id = $1
		GROUP BY status
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(hospitalID))
	if err != nil {
		return nil, fmt.Errorf("count requests by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[Status(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status counts: %w", err)
	}
	return counts, nil
}

func (s *PostgresStore) DeleteByID(ctx context.Context, hospitalID id.HospitalID, requestID id.RequestID) error {
	query := `DELETE FROM requests WHERE id = $1 AND hospital_id = $2`
	res, err := s.db.ExecContext(ctx, query, uuid.UUID(requestID), uuid.UUID(hospitalID))
	if err != nil {
		return fmt.Errorf("delete request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete request rows: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteByHospital(ctx context.Context, hospitalID id.HospitalID) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM requests WHERE hospital_id = $1`, uuid.UUID(hospitalID))
	if err != nil {
		return 0, fmt.Errorf("delete hospital requests: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete hospital requests rows: %w", err)
	}
	return int(affected), nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) scanRequest(ctx context.Context, q queryer, requestID id.RequestID, forUpdate bool) (*Request, error) {
	query := `
		SELECT id, hospital_id, blood_group, units, status, created_at, updated_at
		FROM requests
		WHERE id = $1
	`
	if forUpdate {
		query += " FOR UPDATE"
	}

	var (
		r          Request
		rid        uuid.UUID
		hospitalID uuid.UUID
		bloodGroup string
		status     string
	)
	err := q.QueryRowContext(ctx, query, uuid.UUID(requestID)).Scan(
		&rid, &hospitalID, &bloodGroup, &r.Units, &status, &r.CreatedAt, &r.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan request: %w", err)
	}
	r.ID = id.RequestID(rid)
	r.HospitalID = id.HospitalID(hospitalID)
	r.BloodGroup = id.BloodGroup(bloodGroup)
	r.Status = Status(status)

	donorsQuery := `
		SELECT donor_id FROM request_donors
		WHERE request_id = $1
		ORDER BY position ASC
	`
	rows, err := q.QueryContext(ctx, donorsQuery, uuid.UUID(requestID))
	if err != nil {
		return nil, fmt.Errorf("query accepted donors: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var donorID uuid.UUID
		if err := rows.Scan(&donorID); err != nil {
			return nil, fmt.Errorf("scan accepted donor: %w", err)
		}
		r.AcceptedDonorIDs = append(r.AcceptedDonorIDs, id.DonorID(donorID))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accepted donors: %w", err)
	}
	return &r, nil
}

func (s *PostgresStore) collectByIDs(ctx context.Context, query string, args ...any) ([]*Request, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query requests: %w", err)
	}
	defer rows.Close()

	var ids []id.RequestID
	for rows.Next() {
		var rid uuid.UUID
		if err := rows.Scan(&rid); err != nil {
			return nil, fmt.Errorf("scan request id: %w", err)
		}
		ids = append(ids, id.RequestID(rid))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate request ids: %w", err)
	}

	out := make([]*Request, 0, len(ids))
	for _, rid := range ids {
		r, err := s.scanRequest(ctx, s.db, rid, false)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func replaceDonors(ctx context.Context, tx *sql.Tx, r *Request) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM request_donors WHERE request_id = $1`, uuid.UUID(r.ID)); err != nil {
		return fmt.Errorf("clear accepted donors: %w", err)
	}
	for i, donorID := range r.AcceptedDonorIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO request_donors (request_id, donor_id, position) VALUES ($1, $2, $3)`,
			uuid.UUID(r.ID), uuid.UUID(donorID), i,
		)
		if err != nil {
			return fmt.Errorf("insert accepted donor: %w", err)
		}
	}
	return nil
}
