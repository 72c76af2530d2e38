package history

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

const recordColumns = `id, profile_id, age, sex, cp, trestbps, chol, fbs, restecg, thalach, exang,
	oldpeak, slope, ca, thal, prediction, risk_probability, doctor_notes, created_at`

// PostgresStore persists records in prediction_history. It only inserts.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed history store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, r *models.Record) error {
	if r == nil {
		return fmt.Errorf("record is required")
	}
	m := r.MedicalFields
	err := txcontext.Exec(ctx, s.db).QueryRowContext(ctx, `
		INSERT INTO prediction_history (profile_id, age, sex, cp, trestbps, chol, fbs, restecg, thalach, exang,
			oldpeak, slope, ca, thal, prediction, risk_probability, doctor_notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id, created_at
	`, r.ProfileID, m.Age, m.Sex, m.CP, m.Trestbps, m.Chol, m.FBS, m.RestECG, m.Thalach, m.Exang,
		m.Oldpeak, m.Slope, m.CA, m.Thal, string(r.Verdict), r.Probability, nullString(r.DoctorNotes),
		requestcontext.Now(ctx),
	).Scan(&r.ID, &r.CreatedAt)
	if database.IsForeignKeyViolation(err) {
		return fmt.Errorf("append record: profile %d: %w", r.ProfileID, sentinel.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByProfile(ctx context.Context, profileID int64) ([]*models.Record, error) {
	return s.query(ctx, `SELECT `+recordColumns+` FROM prediction_history
		WHERE profile_id = $1 ORDER BY created_at DESC, id DESC`, profileID)
}

func (s *PostgresStore) LatestByProfile(ctx context.Context, profileID int64) (*models.Record, error) {
	row := txcontext.Exec(ctx, s.db).QueryRowContext(ctx, `SELECT `+recordColumns+` FROM prediction_history
		WHERE profile_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1`, profileID)
	r, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("latest record: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id int64) (*models.Record, error) {
	row := txcontext.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM prediction_history WHERE id = $1`, id)
	r, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find record: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := txcontext.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM prediction_history`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) CountWhere(ctx context.Context, verdict models.Verdict) (int, error) {
	var n int
	if err := txcontext.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM prediction_history WHERE prediction = $1`, string(verdict)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records by verdict: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) CountByProfiles(ctx context.Context, profileIDs []int64) (map[int64]int, error) {
	out := make(map[int64]int, len(profileIDs))
	for _, id := range profileIDs {
		out[id] = 0
	}
	if len(profileIDs) == 0 {
		return out, nil
	}
	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, `
		SELECT profile_id, COUNT(*) FROM prediction_history
		WHERE profile_id = ANY($1) GROUP BY profile_id
	`, pq.Array(profileIDs))
	if err != nil {
		return nil, fmt.Errorf("count records by profile: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scan record count: %w", err)
		}
		out[id] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate record counts: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) ListAll(ctx context.Context, f Filter) ([]*models.Record, error) {
	order := `created_at DESC, id DESC`
	if f.Order == OrderProbability {
		order = `risk_probability DESC, created_at DESC, id DESC`
	}
	if f.Verdict != "" {
		return s.query(ctx, `SELECT `+recordColumns+` FROM prediction_history
			WHERE prediction = $1 ORDER BY `+order, string(f.Verdict))
	}
	return s.query(ctx, `SELECT `+recordColumns+` FROM prediction_history ORDER BY `+order)
}

func (s *PostgresStore) ListRecent(ctx context.Context, offset, limit int) ([]*models.Record, error) {
	return s.query(ctx, `SELECT `+recordColumns+` FROM prediction_history
		ORDER BY created_at DESC, id DESC OFFSET $1 LIMIT $2`, offset, limit)
}

func (s *PostgresStore) query(ctx context.Context, query string, args ...any) ([]*models.Record, error) {
	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	records := make([]*models.Record, 0)
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.Record, error) {
	var (
		r       models.Record
		verdict string
		notes   sql.NullString
	)
	m := &r.MedicalFields
	if err := row.Scan(&r.ID, &r.ProfileID, &m.Age, &m.Sex, &m.CP, &m.Trestbps, &m.Chol, &m.FBS,
		&m.RestECG, &m.Thalach, &m.Exang, &m.Oldpeak, &m.Slope, &m.CA, &m.Thal,
		&verdict, &r.Probability, &notes, &r.CreatedAt); err != nil {
		return nil, err
	}
	r.Verdict = models.Verdict(verdict)
	if notes.Valid {
		r.DoctorNotes = &notes.String
	}
	return &r, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
