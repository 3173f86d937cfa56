package hospital

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

// PostgresStore persists hospitals in the hospitals table. The radius query
// evaluates the haversine formula in SQL so behaviour matches the in-memory
// scan exactly.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const uniqueViolation = "23505"

func (s *PostgresStore) Create(ctx context.Context, h *Hospital) error {
	query := `
		INSERT INTO hospitals (id, name, license_id, address, phone, email, longitude, latitude)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(h.ID), h.Name, h.LicenseID, h.Address, h.Phone, h.Email,
		h.Location.Longitude, h.Location.Latitude,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert hospital: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, hospitalID id.HospitalID) (*Hospital, error) {
	query := `
		SELECT id, name, license_id, address, phone, email, longitude, latitude
		FROM hospitals
		WHERE id = $1
	`
	h, err := scanHospital(s.db.QueryRowContext(ctx, query, uuid.UUID(hospitalID)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return h, err
}

func (s *PostgresStore) Update(ctx context.Context, h *Hospital) error {
	query := `
		UPDATE hospitals
		SET name = $2, license_id = $3, address = $4, phone = $5, email = $6,
		    longitude = $7, latitude = $8
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(h.ID), h.Name, h.LicenseID, h.Address, h.Phone, h.Email,
		h.Location.Longitude, h.Location.Latitude,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("update hospital: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListWithinRadius(ctx context.Context, origin id.Point, radiusKm float64) ([]*Hospital, error) {
	query := `
		SELECT id, name, license_id, address, phone, email, longitude, latitude
		FROM hospitals
		WHERE 2 * 6371 * asin(sqrt(
			power(sin(radians(latitude - $2) / 2), 2) +
			cos(radians($2)) * cos(radians(latitude)) *
			power(sin(radians(longitude - $1) / 2), 2)
		)) <= $3
	`
	rows, err := s.db.QueryContext(ctx, query, origin.Longitude, origin.Latitude, radiusKm)
	if err != nil {
		return nil, fmt.Errorf("query hospitals in radius: %w", err)
	}
	defer rows.Close()

	var out []*Hospital
	for rows.Next() {
		h, err := scanHospital(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hospitals: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHospital(row rowScanner) (*Hospital, error) {
	var (
		h   Hospital
		uid uuid.UUID
	)
	err := row.Scan(&uid, &h.Name, &h.LicenseID, &h.Address, &h.Phone, &h.Email,
		&h.Location.Longitude, &h.Location.Latitude)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan hospital: %w", err)
	}
	h.ID = id.HospitalID(uid)
	return &h, nil
}
