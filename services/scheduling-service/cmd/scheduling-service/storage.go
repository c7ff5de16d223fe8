package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/TariqulIslam2/Smart-Appointment-Manager/libs/config"
	"github.com/TariqulIslam2/Smart-Appointment-Manager/libs/db"
	"github.com/TariqulIslam2/Smart-Appointment-Manager/libs/runtime"
	"github.com/TariqulIslam2/Smart-Appointment-Manager/services/scheduling-service/internal/activity"
	"github.com/TariqulIslam2/Smart-Appointment-Manager/services/scheduling-service/internal/catalog"
	"github.com/TariqulIslam2/Smart-Appointment-Manager/services/scheduling-service/internal/consumer"
	"github.com/TariqulIslam2/Smart-Appointment-Manager/services/scheduling-service/internal/inbox"
	"github.com/TariqulIslam2/Smart-Appointment-Manager/services/scheduling-service/internal/outbox"
	"github.com/TariqulIslam2/Smart-Appointment-Manager/services/scheduling-service/internal/scheduling"
	"github.com/TariqulIslam2/Smart-Appointment-Manager/services/scheduling-service/internal/storage/postgres"
	"github.com/TariqulIslam2/Smart-Appointment-Manager/services/scheduling-service/internal/storage/sqlite"
)

// backend bundles what the selected storage driver provides.
type backend struct {
	store   scheduling.Store
	writer  catalog.Writer
	sink    activity.Sink
	inbox   consumer.Inbox
	ready   runtime.ReadyCheck
	migrate func(context.Context) error
	// workers run until ctx is cancelled.
	workers []func(context.Context)
	close   func()
}

func openBackend(ctx context.Context, logger *slog.Logger) (*backend, error) {
	driver := strings.ToLower(config.String("STORAGE_DRIVER", "postgres"))
	switch driver {
	case "postgres":
		dbURL, err := config.RequiredString("DATABASE_URL")
		if err != nil {
			return nil, err
		}
		pool, err := db.Open(ctx, dbURL, db.WithMaxConns(int32(config.Int("DATABASE_MAX_CONNS", 10))))
		if err != nil {
			return nil, fmt.Errorf("db connection failed: %w", err)
		}
		store := postgres.NewStore(pool)
		outboxRepo, workers := outboxWiring(pool, logger, config.String("KAFKA_BROKERS", ""))
		return &backend{
			store:   store,
			writer:  store,
			sink:    activity.NewRecorder(pool, outboxRepo),
			inbox:   inbox.NewRepository(pool),
			ready:   runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
			migrate: store.Migrate,
			workers: workers,
			close:   pool.Close,
		}, nil

	case "sqlite":
		store, err := sqlite.Open(ctx, config.String("SQLITE_PATH", "scheduling.db"))
		if err != nil {
			return nil, err
		}
		return &backend{
			store:   store,
			writer:  store,
			sink:    store,
			ready:   runtime.ReadyCheck{Name: "db", Check: db.SQLiteReadyCheck(store.DB())},
			migrate: store.Migrate,
			close:   func() { _ = store.Close() },
		}, nil

	default:
		return nil, fmt.Errorf("STORAGE_DRIVER must be postgres or sqlite (got %q)", driver)
	}
}

// outboxWiring returns the outbox the activity recorder writes to and the publisher
// that drains and prunes it. Without brokers nothing would ever drain the table, so
// no outbox is used at all.
func outboxWiring(pool *db.Pool, logger *slog.Logger, brokers string) (*outbox.Repository, []func(context.Context)) {
	if strings.TrimSpace(brokers) == "" {
		logger.Info("KAFKA_BROKERS not set, activity events are not published")
		return nil, nil
	}
	repo := outbox.NewRepository()
	publisher := outbox.NewPublisher(pool, repo, logger, outbox.PublisherConfig{
		Brokers:   brokers,
		PollEvery: 2 * time.Second,
		BatchSize: 50,
		Retention: time.Duration(config.Int("OUTBOX_RETENTION_HOURS", 72)) * time.Hour,
	})
	return repo, []func(context.Context){publisher.Run}
}
