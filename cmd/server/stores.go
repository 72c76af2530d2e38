package main

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"

	"cardiotrack/internal/events/outbox"
	"cardiotrack/internal/patient/models"
	"cardiotrack/internal/patient/store/history"
	"cardiotrack/internal/patient/store/profile"
	"cardiotrack/internal/platform/config"
	"cardiotrack/internal/platform/database"
)

type profileStore interface {
	Create(ctx context.Context, p *models.Profile) error
	FindByExternalID(ctx context.Context, patientID string) (*models.Profile, error)
	FindByID(ctx context.Context, id int64) (*models.Profile, error)
	FindByIDs(ctx context.Context, ids []int64) (map[int64]*models.Profile, error)
	List(ctx context.Context, offset, limit int) ([]*models.Profile, error)
	Count(ctx context.Context) (int, error)
}

type recordStore interface {
	Append(ctx context.Context, r *models.Record) error
	ListByProfile(ctx context.Context, profileID int64) ([]*models.Record, error)
	LatestByProfile(ctx context.Context, profileID int64) (*models.Record, error)
	FindByID(ctx context.Context, id int64) (*models.Record, error)
	CountWhere(ctx context.Context, verdict models.Verdict) (int, error)
	CountByProfiles(ctx context.Context, profileIDs []int64) (map[int64]int, error)
	ListAll(ctx context.Context, f history.Filter) ([]*models.Record, error)
	ListRecent(ctx context.Context, offset, limit int) ([]*models.Record, error)
}

type outboxStore interface {
	Append(ctx context.Context, e outbox.Entry) error
	FetchUnpublished(ctx context.Context, limit int) ([]outbox.Entry, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID) error
}

type txRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// backend bundles the stores for the selected persistence mode. db is nil
// in memory mode.
type backend struct {
	db       *sql.DB
	profiles profileStore
	records  recordStore
	outbox   outboxStore
	tx       txRunner
}

// openBackend picks Postgres when DATABASE_URL is set and in-memory stores
// otherwise.
func openBackend(ctx context.Context, cfg config.DatabaseConfig, log *slog.Logger) (*backend, error) {
	if cfg.URL == "" {
		log.WarnContext(ctx, "DATABASE_URL not set, using in-memory stores")
		profiles := profile.NewInMemory()
		return &backend{
			profiles: profiles,
			records:  history.NewInMemory(history.WithOwners(profiles)),
			outbox:   outbox.NewInMemoryStore(),
			tx:       database.NoTx{},
		}, nil
	}

	db, err := database.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.InfoContext(ctx, "connected to postgres", "max_open_conns", cfg.MaxOpenConns)
	return &backend{
		db:       db,
		profiles: profile.NewPostgres(db),
		records:  history.NewPostgres(db),
		outbox:   outbox.NewPostgres(db),
		tx:       database.NewTxRunner(db),
	}, nil
}

func (b *backend) Close() error {
	if b.db == nil {
		return nil
	}
	return b.db.Close()
}
