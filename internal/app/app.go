package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fsdevblog/printahead/internal/advisor"
	"github.com/fsdevblog/printahead/internal/cart"
	"github.com/fsdevblog/printahead/internal/config"
	"github.com/fsdevblog/printahead/internal/events"
	"github.com/fsdevblog/printahead/internal/metrics"
	"github.com/fsdevblog/printahead/internal/notify"
	"github.com/fsdevblog/printahead/internal/repository/memrepo"
	"github.com/fsdevblog/printahead/internal/repository/pgrepo"
	"github.com/fsdevblog/printahead/internal/repository/repoargs"
	"github.com/fsdevblog/printahead/internal/service"
	"github.com/fsdevblog/printahead/internal/storage"
	"github.com/fsdevblog/printahead/internal/transport/api"
	"github.com/fsdevblog/printahead/pkg/uow"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	// driver for migration applying postgres.
	_ "github.com/golang-migrate/migrate/v4/database/postgres" //nolint:revive
	// driver to get migrations from files (*.sql in our case).
	_ "github.com/golang-migrate/migrate/v4/source/file" //nolint:revive
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 10 * time.Second
	maxMultipartMem   = 32 << 20
)

type App struct {
	Config *config.Config
	Logger *logrus.Logger
}

func New(conf *config.Config, l *logrus.Logger) *App {
	return &App{
		Config: conf,
		Logger: l,
	}
}

func (a *App) Run() error {
	notifyCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.Logger.WithFields(logrus.Fields{
		"address":        a.Config.RunAddress,
		"store":          a.Config.StoreDriver,
		"objectStorage":  a.Config.ObjectStorage,
		"redis":          a.Config.RedisAddr != "",
		"kafka":          a.Config.KafkaBrokers != "",
		"smtp":           a.Config.SMTPHost != "",
		"ai":             a.Config.GeminiAPIKey != "",
		"metricsEnabled": a.Config.MetricsEnabled,
	}).Info("Starting app")

	unitOfWork, closeStore, storeErr := a.initStore(notifyCtx)
	if storeErr != nil {
		return fmt.Errorf("app run: %s", storeErr.Error())
	}
	defer closeStore()

	objectStore, objErr := a.initObjectStore(notifyCtx)
	if objErr != nil {
		return fmt.Errorf("app run: %s", objErr.Error())
	}

	bus := events.NewBus(a.Logger)
	stream := events.NewOrderStream(events.DefaultStreamBuffer, a.Logger)
	bus.Subscribe("admin_stream", stream.HandleEvent)

	notifier := notify.NewOrderNotifier(a.initMailer(), a.Config.MailFrom, a.Logger).
		SetWorkers(a.Config.MailWorkers)
	bus.Subscribe("notifier", notifier.HandleEvent)

	if a.Config.KafkaBrokers != "" {
		publisher := events.NewKafkaPublisher(a.Config.KafkaBrokers, a.Config.KafkaTopic, a.Logger)
		defer func() {
			if err := publisher.Close(); err != nil {
				a.Logger.WithError(err).Error("close kafka publisher")
			}
		}()
		bus.Subscribe("kafka", publisher.Handle)
	}

	// интерфейсы остаются nil, если метрики выключены.
	var (
		routerMetrics api.MetricsRecorder
		walletMetrics service.WalletMetrics
	)
	if a.Config.MetricsEnabled {
		recorder := metrics.New()
		bus.Subscribe("metrics", recorder.HandleEvent)
		routerMetrics = recorder
		walletMetrics = recorder
	}

	carts, closeCarts := a.initCarts()
	defer closeCarts()

	services, sErr := service.Factory(unitOfWork, service.FactoryArgs{
		JWTSecret:     []byte(a.Config.JWTUserSecret),
		BcryptCost:    a.Config.BcryptCost,
		AdminEmails:   a.Config.AdminEmails,
		UploadWorkers: a.Config.UploadWorkers,
		Publisher:     bus,
		Metrics:       walletMetrics,
		ObjectStore:   objectStore,
		Carts:         cartProvider{carts},
	}, a.Logger)
	if sErr != nil {
		return fmt.Errorf("app run: %s", sErr.Error())
	}

	var filesDir string
	if a.Config.ObjectStorage == config.ObjectStorageLocal {
		filesDir = a.Config.StorageDir
	}

	router, routerErr := api.New(api.RouterArgs{
		Logger:             a.Logger,
		UserService:        services.UserService,
		OrderService:       services.OrderService,
		WalletService:      services.WalletService,
		UploadService:      services.UploadService,
		CheckoutService:    services.CheckoutService,
		Advisor:            a.initAdvisor(),
		Carts:              carts,
		OrderStream:        stream,
		Metrics:            routerMetrics,
		JWTSecretKey:       []byte(a.Config.JWTUserSecret),
		FilesDir:           filesDir,
		MaxMultipartMemory: maxMultipartMem,
	})
	if routerErr != nil {
		return fmt.Errorf("app run: %s", routerErr.Error())
	}

	go carts.Run(notifyCtx)
	go notifier.Run(notifyCtx)

	srv := &http.Server{
		Addr:              a.Config.RunAddress,
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		if runErr := srv.ListenAndServe(); runErr != nil && !errors.Is(runErr, http.ErrServerClosed) {
			errChan <- runErr
		}
	}()

	select {
	case <-notifyCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.Logger.WithError(err).Error("http server shutdown")
		}
		return notifyCtx.Err() //nolint:wrapcheck
	case err := <-errChan:
		return err
	}
}

// initStore возвращает postgres или in-memory хранилище и функцию его закрытия.
func (a *App) initStore(ctx context.Context) (uow.UOW, func(), error) {
	if a.Config.StoreDriver == config.StoreDriverMemory {
		a.Logger.Warn("using in-memory store, data will be lost on restart")
		return memrepo.New(), func() {}, nil
	}

	conn, connErr := pgrepo.Connect(ctx, pgrepo.ConnectArgs{
		DSN:           a.Config.DatabaseDSN,
		MigrationsDir: a.Config.MigrationsDir,
		MaxConns:      a.Config.DBMaxConns,
	}, a.Logger)
	if connErr != nil {
		return nil, nil, connErr //nolint:wrapcheck
	}

	unitOfWork, uowErr := initUOW(conn)
	if uowErr != nil {
		conn.Close()
		return nil, nil, uowErr
	}
	return unitOfWork, conn.Close, nil
}

func (a *App) initObjectStore(ctx context.Context) (service.ObjectStore, error) {
	if a.Config.ObjectStorage == config.ObjectStorageS3 {
		s3Store, err := storage.NewS3Store(ctx, storage.S3Config{
			Bucket:    a.Config.S3Bucket,
			Region:    a.Config.S3Region,
			Key:       a.Config.S3Key,
			Secret:    a.Config.S3Secret,
			Endpoint:  a.Config.S3Endpoint,
			PublicURL: a.Config.S3PublicURL,
		})
		if err != nil {
			return nil, fmt.Errorf("init s3 store: %w", err)
		}
		return s3Store, nil
	}

	baseURL := strings.TrimSuffix(a.Config.StorageURL, "/")
	localStore, err := storage.NewLocalStore(a.Config.StorageDir, baseURL)
	if err != nil {
		return nil, fmt.Errorf("init local store: %w", err)
	}
	return localStore, nil
}

// initCarts менеджер корзин. Без redis корзины живут только в памяти процесса.
func (a *App) initCarts() (*cart.Manager, func()) {
	if a.Config.RedisAddr == "" {
		return cart.NewManager(cart.NewMemoryPersister(), a.Config.CartIdleTTL, a.Logger), func() {}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     a.Config.RedisAddr,
		Password: a.Config.RedisPassword,
		DB:       a.Config.RedisDB,
	})
	persister := cart.NewRedisPersister(rdb, a.Config.CartTTL)
	return cart.NewManager(persister, a.Config.CartIdleTTL, a.Logger), func() {
		if err := rdb.Close(); err != nil {
			a.Logger.WithError(err).Error("close redis client")
		}
	}
}

func (a *App) initMailer() notify.Mailer {
	if a.Config.SMTPHost == "" {
		a.Logger.Warn("smtp is not configured, emails will be logged only")
		return notify.NewLogMailer(a.Logger)
	}
	return notify.NewSMTPMailer(notify.SMTPConfig{
		Host:     a.Config.SMTPHost,
		Port:     a.Config.SMTPPort,
		Username: a.Config.SMTPUser,
		Password: a.Config.SMTPPassword,
	})
}

func (a *App) initAdvisor() *advisor.Advisor {
	if a.Config.GeminiAPIKey == "" {
		return advisor.New(nil, a.Logger)
	}
	client := advisor.NewGeminiClient(
		a.Config.GeminiBaseURL,
		a.Config.GeminiModel,
		a.Config.GeminiAPIKey,
		a.Config.GeminiTimeout,
	)
	return advisor.New(client, a.Logger)
}

// cartProvider отдает сервису оформления корзины менеджера.
type cartProvider struct {
	m *cart.Manager
}

func (p cartProvider) Cart(ctx context.Context, key string) (service.Cart, error) {
	agg, err := p.m.Cart(ctx, key)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return agg, nil
}

func initUOW(conn *pgxpool.Pool) (*uow.UnitOfWork, error) {
	unitOfWork := uow.NewUnitOfWork(conn)

	factories := map[repoargs.RepositoryName]uow.RepositoryFactory{
		repoargs.UserRepoName: func(dbtx uow.DBTX) uow.Repository {
			return pgrepo.NewUserRepository(dbtx)
		},
		repoargs.OrderRepoName: func(dbtx uow.DBTX) uow.Repository {
			return pgrepo.NewOrderRepository(dbtx)
		},
		repoargs.TransactionRepoName: func(dbtx uow.DBTX) uow.Repository {
			return pgrepo.NewTransactionRepository(dbtx)
		},
	}
	for name, factory := range factories {
		if regErr := unitOfWork.Register(uow.RepositoryName(name), factory); regErr != nil {
			return nil, fmt.Errorf("init UOW: %s", regErr.Error())
		}
	}
	return unitOfWork, nil
}
