package integration_test

import (
	"log/slog"
	"os"

	"github.com/cinetix/cinetix/internal/app"
	"github.com/cinetix/cinetix/internal/holdstore"
	"github.com/cinetix/cinetix/internal/mailer"
	"github.com/cinetix/cinetix/internal/payment"
	"github.com/cinetix/cinetix/internal/pubsub"
	"github.com/cinetix/cinetix/internal/repository"
	appvalidator "github.com/cinetix/cinetix/internal/validator"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type TestApp struct {
	App         *app.Application
	DB          *pgxpool.Pool
	RedisClient *redis.Client
	Broker      *pubsub.MemoryBroker
	Mailer      *mailer.MockMailer
}

func newTestApp(cfg app.Config) (*TestApp, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	validator := appvalidator.NewValidator()
	mockMailer := mailer.NewMockMailer()

	db, err := app.NewDatabasePool(cfg)
	if err != nil {
		return nil, err
	}

	redisClient, err := app.NewRedisClient(cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	broker := pubsub.NewMemoryBroker()

	application := app.NewApp(
		cfg,
		logger,
		db,
		redisClient,
		validator,
		mockMailer,
		app.NewSessionManager(redisClient),
		broker,
		repository.NewPostgresLedgerRepository(db),
		holdstore.NewRedisHoldStore(redisClient),
		repository.NewPostgresOrderRepository(db),
		payment.NewMockPaymentProvider(),
	)

	return &TestApp{
		App:         application,
		DB:          db,
		RedisClient: redisClient,
		Broker:      broker,
		Mailer:      mockMailer,
	}, nil
}
