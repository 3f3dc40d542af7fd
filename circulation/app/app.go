package app

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Astemirdum/library-circulation/circulation/config"
	"github.com/Astemirdum/library-circulation/circulation/internal/handler"
	"github.com/Astemirdum/library-circulation/circulation/internal/model"
	"github.com/Astemirdum/library-circulation/circulation/internal/notify"
	"github.com/Astemirdum/library-circulation/circulation/internal/repository"
	"github.com/Astemirdum/library-circulation/circulation/internal/server"
	"github.com/Astemirdum/library-circulation/circulation/internal/service"
	"github.com/Astemirdum/library-circulation/circulation/internal/sweeper"
	"github.com/Astemirdum/library-circulation/circulation/migrations"
	"github.com/Astemirdum/library-circulation/pkg/kafka"
	"github.com/Astemirdum/library-circulation/pkg/logger"
	"github.com/Astemirdum/library-circulation/pkg/postgres"
)

// Core is the circulation service with the resources it holds open.
type Core struct {
	Service *service.Service

	db     *sqlx.DB
	closer func() error
	log    *zap.Logger
}

// Open connects the store, applies migrations and builds the service.
// Notifications go to kafka when it is enabled and to the log otherwise.
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Core, error) {
	db, err := postgres.NewPostgresDB(ctx, &cfg.Database, migrations.MigrationFiles)
	if err != nil {
		return nil, errors.Wrap(err, "db init")
	}
	repo, err := repository.NewRepository(db, log)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "repo")
	}

	core := &Core{db: db, log: log, closer: func() error { return nil }}
	var notifier service.Notifier = notify.NewLog(log)
	if cfg.Kafka.Enable {
		producer, err := kafka.NewProducer(cfg.Kafka)
		if err != nil {
			db.Close()
			return nil, errors.Wrap(err, "kafka.NewProducer")
		}
		k := notify.NewKafka(producer, log)
		notifier = k
		core.closer = k.Close
	}

	c := cfg.Circulation
	core.Service = service.NewService(repo, log,
		service.WithNotifier(notifier),
		service.WithFallbackPolicy(c.FallbackPolicy()),
		service.WithReservationHoldDays(c.ReservationHoldDays),
		service.WithDueSoonDays(c.DueSoonDays),
	)
	return core, nil
}

func (c *Core) Close() {
	if err := c.closer(); err != nil {
		c.log.Warn("notifier close", zap.Error(err))
	}
	if err := c.db.Close(); err != nil {
		c.log.Warn("db close", zap.Error(err))
	}
}

// SeedPolicies stores the configured policy table for tiers that have none yet.
func SeedPolicies(ctx context.Context, svc *service.Service, file string) (int, error) {
	var (
		policies []model.CheckoutPolicy
		err      error
	)
	if file != "" {
		policies, err = config.ReadPolicies(file)
	} else {
		policies, err = config.DefaultPolicies()
	}
	if err != nil {
		return 0, err
	}
	return svc.SeedPolicies(ctx, policies, false)
}

func Run(cfg *config.Config) {
	log := logger.NewLogger(cfg.Log, "circulation")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, cfg, log)
	stop()
	if err != nil {
		log.Fatal("circulation stopped", zap.Error(err))
	}
	log.Info("Graceful shutdown finished")
}

// run returns instead of exiting so every resource it opened is released on the way out.
func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	core, err := Open(ctx, cfg, log)
	if err != nil {
		return errors.Wrap(err, "open")
	}
	defer core.Close()

	seeded, err := SeedPolicies(ctx, core.Service, cfg.Circulation.PolicySeedFile)
	if err != nil {
		return errors.Wrap(err, "seed policies")
	}
	log.Info("policies seeded", zap.Int("count", seeded))

	var group sarama.ConsumerGroup
	if cfg.Kafka.Enable {
		if group, err = kafka.NewConsumer(cfg.Kafka, kafka.CirculationConsumerGroup); err != nil {
			return errors.Wrap(err, "kafka.NewConsumer")
		}
	}
	return serve(ctx, cfg, core.Service, group, log)
}

// serve runs the HTTP server, the sweeper and the copy-available consumer until ctx is
// done or one of them fails. A nil group disables the consumer; serve closes a non-nil one.
func serve(ctx context.Context, cfg *config.Config, svc *service.Service, group sarama.ConsumerGroup, log *zap.Logger) error {
	h := handler.New(svc, log)
	srv := server.NewServer(cfg.Server, h.NewRouter())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server start ON: ",
			zap.String("addr",
				net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)))
		return srv.Run()
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Debug("Graceful shutdown", zap.Error(context.Cause(gctx)))

		closeCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()
		return srv.Stop(closeCtx)
	})

	if cfg.Circulation.SweepEnable {
		sw := sweeper.New(svc, cfg.Circulation.SweepInterval, log)
		g.Go(func() error { return sw.Run(gctx) })
	}

	if group != nil {
		consumer := handler.NewConsumer(svc.FulfillNext, log)
		g.Go(func() error {
			return kafka.Consume(gctx, group, consumer, kafka.CopyAvailableTopic)
		})
	}

	return g.Wait()
}
