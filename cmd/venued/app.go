package main

import (
	"context"
	"io/fs"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"venue-booking-backend/config"
	"venue-booking-backend/internal/availability"
	"venue-booking-backend/internal/booking"
	"venue-booking-backend/internal/collab"
	"venue-booking-backend/internal/db"
	"venue-booking-backend/internal/interval"
	"venue-booking-backend/internal/logging"
	"venue-booking-backend/internal/mq"
	"venue-booking-backend/internal/notification"
	"venue-booking-backend/internal/planner"
	"venue-booking-backend/internal/store"
	"venue-booking-backend/internal/sweeper"
)

// app is the wired object graph shared by every command.
type app struct {
	cfg       *config.Config
	log       *zap.SugaredLogger
	db        *gorm.DB
	store     store.Store
	loc       *time.Location
	webpush   *webpush.Options
	pool      *notification.WorkerPool
	publisher *mq.Publisher
	planner   *planner.Planner
	bookings  *booking.Service
	sweeper   *sweeper.Service
}

func loadConfig(opts *rootOptions) (*config.Config, error) {
	if err := godotenv.Load(opts.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrapf(err, "failed to load %s", opts.envFile)
	}

	cfg, err := config.Load(opts.configPath)
	if errors.Is(err, fs.ErrNotExist) {
		return config.Default(), nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load configuration from %s", opts.configPath)
	}
	return cfg, nil
}

func newApp(opts *rootOptions) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build logger")
	}
	log.Infow("configuration loaded", "path", opts.configPath, "venue", cfg.Venue.Name)

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		return nil, errors.WithHint(err, "check database.dsn or DATABASE_DSN")
	}
	log.Info("database initialized")

	a := &app{
		cfg:   cfg,
		log:   log,
		db:    gormDB,
		store: store.NewGormStore(gormDB),
		loc:   interval.FixedZone(cfg.Venue.UTCOffsetMinutes),
		webpush: &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		},
	}

	var crm notification.SnapshotSyncer
	if cfg.CRM.URL != "" {
		crm = collab.NewCRMClient(cfg.CRM, a.store, log.Named("crm"))
	} else {
		log.Warn("crm.url is not set; booking snapshots will not be synced")
	}
	if cfg.Payments.URL == "" {
		log.Warn("payments.url is not set; short-notice balance planning will fail")
	}
	a.pool = notification.NewWorkerPool(cfg.WorkerPool.Size, cfg.WorkerPool.QueueSize, a.store, crm, a.webpush, log.Named("notify"))

	var pub mq.JSONPublisher
	if cfg.MQ.URL != "" {
		p, err := mq.NewPublisher(cfg.MQ.URL, cfg.MQ.Exchange)
		if err != nil {
			log.Warnw("audit events will not be published", "error", err)
		} else {
			a.publisher = p
			pub = p
		}
	}
	audit := mq.NewAuditSink(a.store, pub, log.Named("audit"))

	a.planner = planner.New(planner.Deps{
		Store:    a.store,
		Payments: collab.NewPaymentClient(cfg.Payments, log.Named("payments")),
		CRM:      a.pool,
		Alerter:  a.pool,
		Audit:    audit,
		Location: a.loc,
		Logger:   log.Named("planner"),
	})
	a.bookings = booking.NewService(a.store, a.planner, availability.NewResolver(a.loc), audit, log.Named("booking"))
	a.sweeper = sweeper.NewService(cfg.Sweeper, a.store, a.planner, a.loc, log.Named("sweeper"))
	return a, nil
}

// start runs the outbound workers until ctx is done.
func (a *app) start(ctx context.Context) {
	a.pool.Start(ctx)
}

func (a *app) Close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.log.Warnw("failed to close publisher", "error", err)
		}
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = a.log.Sync()
}
