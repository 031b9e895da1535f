package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
	"github.com/urfave/cli/v2"
	"gorm.io/gorm"

	"foodorder/internal/app"
	"foodorder/internal/cache"
	"foodorder/internal/config"
	"foodorder/internal/database"
	"foodorder/internal/mailer"
	"foodorder/pkg/rabbitmq"
)

func main() {
	if err := newCLI().Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("foodorder exited")
	}
}

func newCLI() *cli.App {
	return &cli.App{
		Name:   "foodorder",
		Usage:  "food ordering backend",
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API and the realtime socket server",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "create or update the database schema",
				Action: migrate,
			},
			{
				Name:   "seed",
				Usage:  "load the sample menu and the bootstrap admin",
				Action: seed,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "admin-email", EnvVars: []string{"ADMIN_EMAIL"}},
					&cli.StringFlag{Name: "admin-password", EnvVars: []string{"ADMIN_PASSWORD"}},
				},
			},
		},
	}
}

// connect loads the configuration and opens the database.
func connect() (*config.Config, *gorm.DB, error) {
	cfg := config.Load()
	cfg.ConfigureLogging()

	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

func migrate(*cli.Context) error {
	_, _, err := connect()
	if err != nil {
		return err
	}
	logrus.Info("database schema is up to date")
	return nil
}

func seed(c *cli.Context) error {
	cfg, db, err := connect()
	if err != nil {
		return err
	}
	a := app.New(cfg, app.Deps{DB: db, Mailer: mailer.NewLogMailer()})
	return app.Seed(c.Context, a, c.String("admin-email"), c.String("admin-password"))
}

func serve(*cli.Context) error {
	cfg, db, err := connect()
	if err != nil {
		return err
	}

	// --- Optional dependencies ---
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb, err = cache.ConnectRedis(cache.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err != nil {
			return err
		}
		defer rdb.Close()
		logrus.WithField("addr", cfg.RedisAddr).Info("product cache enabled")
	}

	var broker *rabbitmq.Client
	if cfg.RabbitMQURL != "" {
		broker, err = rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL, Exchange: cfg.RabbitMQExchange})
		if err != nil {
			return errors.Wrap(err, "failed to initialize RabbitMQ client")
		}
		defer broker.Close()
	}

	mail := app.NewMailer(cfg, broker)
	a := app.New(cfg, app.Deps{DB: db, Redis: rdb, Broker: broker, Mailer: mail})

	// --- Consumers ---
	if broker != nil {
		if err := broker.Consume(rabbitmq.OrderEventsQueue, logOrderEvent); err != nil {
			return err
		}
		smtpMailer := mailer.NewSMTPMailer(app.SMTPConfig(cfg))
		if err := broker.Consume(rabbitmq.EmailQueue, mailer.DeliveryHandler(smtpMailer)); err != nil {
			return err
		}
	}

	// --- Listeners ---
	errCh := make(chan error, 2)
	go func() {
		logrus.WithField("addr", cfg.AppPort).Info("starting HTTP server")
		errCh <- a.Fiber.Listen(cfg.AppPort)
	}()
	go func() {
		logrus.WithField("addr", cfg.RealtimeAddr).Info("starting realtime server")
		if err := a.Realtime.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case <-quit:
		logrus.Info("shutting down server")
	case runErr = <-errCh:
		logrus.WithError(runErr).Error("listener stopped")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.Shutdown(ctx); err != nil {
		logrus.WithError(err).Warn("error during shutdown")
	}
	logrus.Info("server gracefully stopped")
	return runErr
}

// logOrderEvent records order events published by this or another instance.
func logOrderEvent(msg amqp.Delivery) error {
	var event map[string]interface{}
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		return errors.Wrap(err, "malformed order event")
	}
	logrus.WithFields(logrus.Fields{
		"routing_key": msg.RoutingKey,
		"order_id":    event["order_id"],
		"status":      event["status"],
	}).Info("order event received")
	return nil
}
