package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"

	"github.com/example/poolside-scheduler/internal/auth"
	"github.com/example/poolside-scheduler/internal/booking"
	"github.com/example/poolside-scheduler/internal/config"
	"github.com/example/poolside-scheduler/internal/crypto"
	"github.com/example/poolside-scheduler/internal/db"
	"github.com/example/poolside-scheduler/internal/log"
	"github.com/example/poolside-scheduler/internal/migrate"
	"github.com/example/poolside-scheduler/internal/notify"
	"github.com/example/poolside-scheduler/internal/orchestrator"
	"github.com/example/poolside-scheduler/internal/runlock"
	"github.com/example/poolside-scheduler/internal/soho"
	"github.com/example/poolside-scheduler/internal/token"
)

// app wires the configured stores, lock, client and orchestrator together
// for the server and one-shot commands.
type app struct {
	cfg      config.Config
	client   *soho.Client
	store    token.Store
	outcomes notify.Recorder
	auth     *auth.Manager
	orch     *orchestrator.Orchestrator

	cleanups []func()
}

func (a *app) close() {
	for i := len(a.cleanups) - 1; i >= 0; i-- {
		a.cleanups[i]()
	}
}

func buildApp(ctx context.Context, migrateUp bool) (*app, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	log.Configure(log.Config{Level: cfg.LogLevel})

	a := &app{cfg: cfg}
	a.client = soho.New(soho.Config{
		IdentityURL: cfg.IdentityURL,
		TablesURL:   cfg.TablesURL,
		ClientID:    cfg.ClientID,
	})

	var locker runlock.Locker
	if cfg.DatabaseURL != "" {
		d, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.cleanups = append(a.cleanups, d.Close)
		if err := d.Ping(ctx); err != nil {
			a.close()
			return nil, fmt.Errorf("db ping: %w", err)
		}
		if migrateUp {
			if err := migrate.Up(ctx, d); err != nil {
				a.close()
				return nil, err
			}
		}
		a.store = token.NewPGStore(d)
		a.outcomes = notify.NewPGRecorder(d)
		locker = runlock.NewPGLocker(d)
	} else {
		if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		var sealer *crypto.Sealer
		if len(cfg.CredEncKey) > 0 {
			if sealer, err = crypto.NewSealer(cfg.CredEncKey); err != nil {
				return nil, err
			}
		}
		a.store = token.NewFileStore(filepath.Join(cfg.DataDir, "session.json"), sealer)
		a.outcomes = notify.NewFileRecorder(filepath.Join(cfg.DataDir, "last_booking.json"))
		locker = runlock.NewLocal()
	}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		a.cleanups = append(a.cleanups, func() { _ = rdb.Close() })
		locker = runlock.NewRedisLocker(rdb, 0)
	}

	a.auth = auth.NewManager(a.store, a.client, cfg.AuthSafetyMargin)

	relay := notify.Multi{
		notify.LogRelay{Logger: log.Logger()},
		notify.RecorderRelay{Recorder: a.outcomes},
	}
	a.orch = orchestrator.New(
		a.auth,
		a.client,
		booking.NewCatalog(cfg.Venues),
		cfg.Window(),
		locker,
		relay,
		a.outcomes,
		orchestrator.Config{
			PartySize:       cfg.PartySize,
			PhoneCountry:    cfg.PhoneCountry,
			PhoneNumber:     cfg.PhoneNumber,
			GuestNotes:      cfg.GuestNotes,
			MaxVenueRetries: cfg.MaxVenueRetries,
			RetryBackoff:    cfg.RetryBackoff,
		},
	)
	return a, nil
}
