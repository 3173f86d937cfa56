package donor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	id "bloodlink/pkg/domain"
	"bloodlink/pkg/platform/sentinel"
)

// PostgresStore persists donors in the donors table. Location columns are
// nullable; donors without a location never match radius queries.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, d *Donor) error {
	query := `
		INSERT INTO donors (
			id, name, age, gender, phone, email, blood_group,
			registered_by, registered_hospital_id,
			longitude, latitude, location_updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	lon, lat, locUpdated := locationColumns(d)
	var regHospital *uuid.UUID
	if !d.RegisteredHospitalID.IsNil() {
		u := uuid.UUID(d.RegisteredHospitalID)
		regHospital = &u
	}
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(d.ID), d.Name, d.Age, d.Gender, d.Phone, d.Email, string(d.BloodGroup),
		string(d.RegisteredBy), regHospital, lon, lat, locUpdated,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert donor: %w", err)
	}
	return nil
}

const uniqueViolation = "23505"

func (s *PostgresStore) FindByID(ctx context.Context, donorID id.DonorID) (*Donor, error) {
	query := selectDonor + ` WHERE id = $1`
	d, err := scanDonor(s.db.QueryRowContext(ctx, query, uuid.UUID(donorID)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return d, err
}

func (s *PostgresStore) Update(ctx context.Context, d *Donor) error {
	query := `
		UPDATE donors
		SET name = $2, age = $3, gender = $4, phone = $5, email = $6,
		    blood_group = $7, longitude = $8, latitude = $9, location_updated_at = $10
		WHERE id = $1
	`
	lon, lat, locUpdated := locationColumns(d)
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(d.ID), d.Name, d.Age, d.Gender, d.Phone, d.Email,
		string(d.BloodGroup), lon, lat, locUpdated,
	)
	if err != nil {
		return fmt.Errorf("update donor: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListByBloodGroup(ctx context.Context, group id.BloodGroup) ([]*Donor, error) {
	query := selectDonor + ` WHERE blood_group = $1`
	rows, err := s.db.QueryContext(ctx, query, string(group))
	if err != nil {
		return nil, fmt.Errorf("query donors by blood group: %w", err)
	}
	defer rows.Close()
	return collectDonors(rows)
}

func (s *PostgresStore) ListByBloodGroupWithin(ctx context.Context, group id.BloodGroup, origin id.Point, radiusKm float64) ([]*Donor, error) {
	query := selectDonor + `
		WHERE blood_group = $1
		  AND longitude IS NOT NULL AND latitude IS NOT NULL
		  AND 2 * 6371 * asin(sqrt(
			power(sin(radians(latitude - $3) / 2), 2) +
			cos(radians($3)) * cos(radians(latitude)) *
			power(sin(radians(longitude - $2) / 2), 2)
		  )) <= $4
	`
	rows, err := s.db.QueryContext(ctx, query, string(group), origin.Longitude, origin.Latitude, radiusKm)
	if err != nil {
		return nil, fmt.Errorf("query donors in radius: %w", err)
	}
	defer rows.Close()
	return collectDonors(rows)
}

const selectDonor = `
	SELECT id, name, age, gender, phone, email, blood_group,
	       registered_by, registered_hospital_id,
	       longitude, latitude, location_updated_at
	FROM donors
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDonor(row rowScanner) (*Donor, error) {
	var (
		d           Donor
		uid         uuid.UUID
		bloodGroup  string
		regBy       string
		regHospital *uuid.UUID
		lon, lat    *float64
		locUpdated  *time.Time
	)
	err := row.Scan(&uid, &d.Name, &d.Age, &d.Gender, &d.Phone, &d.Email, &bloodGroup,
		&regBy, &regHospital, &lon, &lat, &locUpdated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan donor: %w", err)
	}
	d.ID = id.DonorID(uid)
	d.BloodGroup = id.BloodGroup(bloodGroup)
	d.RegisteredBy = RegisteredBy(regBy)
	if regHospital != nil {
		d.RegisteredHospitalID = id.HospitalID(*regHospital)
	}
	if lon != nil && lat != nil {
		loc := Location{Point: id.Point{Longitude: *lon, Latitude: *lat}}
		if locUpdated != nil {
			loc.UpdatedAt = *locUpdated
		}
		d.Location = &loc
	}
	return &d, nil
}

func collectDonors(rows *sql.Rows) ([]*Donor, error) {
	var out []*Donor
	for rows.Next() {
		d, err := scanDonor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate donors: %w", err)
	}
	return out, nil
}

func locationColumns(d *Donor) (lon, lat *float64, updated *time.Time) {
	if d.Location == nil {
		return nil, nil, nil
	}
	return &d.Location.Point.Longitude, &d.Location.Point.Latitude, &d.Location.UpdatedAt
}
