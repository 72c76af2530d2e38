package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"cardiotrack/internal/patient/models"
	"cardiotrack/internal/platform/database"
	"cardiotrack/pkg/platform/sentinel"
	txcontext "cardiotrack/pkg/platform/tx"
	"cardiotrack/pkg/requestcontext"
)

const profileColumns = `id, patient_id, name, date_of_birth, gender, phone, email, address, created_at, updated_at`

// PostgresStore persists profiles in PostgreSQL. Uniqueness of patient_id
// is enforced by idx_patient_profiles_patient_id.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed profile store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, p *models.Profile) error {
	if p == nil {
		return fmt.Errorf("profile is required")
	}
	now := requestcontext.Now(ctx)
	err := txcontext.Exec(ctx, s.db).QueryRowContext(ctx, `
		INSERT INTO patient_profiles (patient_id, name, date_of_birth, gender, phone, email, address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING id, created_at, updated_at
	`, p.PatientID, p.Name, p.DateOfBirth, string(p.Gender), p.Phone, nullString(p.Email), nullString(p.Address), now,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByExternalID(ctx context.Context, patientID string) (*models.Profile, error) {
	row := txcontext.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM patient_profiles WHERE patient_id = $1`, patientID)
	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find profile by patient id: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id int64) (*models.Profile, error) {
	row := txcontext.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM patient_profiles WHERE id = $1`, id)
	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find profile by id: %w", err)
	}
	return p, nil
}

// FindByIDs loads the owners of a batch of records in one round trip.
func (s *PostgresStore) FindByIDs(ctx context.Context, ids []int64) (map[int64]*models.Profile, error) {
	out := make(map[int64]*models.Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx,
		`SELECT `+profileColumns+` FROM patient_profiles WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("find profiles by ids: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		out[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) List(ctx context.Context, offset, limit int) ([]*models.Profile, error) {
	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx,
		`SELECT `+profileColumns+` FROM patient_profiles ORDER BY id OFFSET $1 LIMIT $2`, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	profiles := make([]*models.Profile, 0, limit)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}
	return profiles, nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := txcontext.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM patient_profiles`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count profiles: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*models.Profile, error) {
	var (
		p       models.Profile
		gender  string
		email   sql.NullString
		address sql.NullString
	)
	if err := row.Scan(&p.ID, &p.PatientID, &p.Name, &p.DateOfBirth, &gender, &p.Phone,
		&email, &address, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Gender = models.Gender(gender)
	if email.Valid {
		p.Email = &email.String
	}
	if address.Valid {
		p.Address = &address.String
	}
	return &p, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
