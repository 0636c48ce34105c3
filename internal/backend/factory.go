package backend

import (
	"context"
	"fmt"

	"billtracker/internal/amqp"
	"billtracker/internal/gateway"
	"billtracker/internal/log"
	"billtracker/internal/services"
	"billtracker/internal/storage"
	"billtracker/internal/store"
	"billtracker/internal/store/memory"
)

// DefaultFactory builds every Kind and wraps it in a BillService.
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend. Every backend is wrapped
// in a BillService so writes publish bills-changed events when AMQP is set.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		base store.Backend
		err  error
	)
	switch config.Kind {
	case KindREST:
		base, err = f.createRESTBackend(config)
	case KindSQLite:
		base, err = f.createSQLiteBackend(ctx, config)
	case KindMemory:
		base, err = f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend %q", config.Kind)
	}
	if err != nil {
		return nil, err
	}

	publisher := f.createPublisher(config)
	svc := services.NewBillService(base, publisher)

	return &Result{
		Backend: svc,
		Cleanup: svc.Close,
	}, nil
}

func (f *DefaultFactory) createRESTBackend(config Config) (store.Backend, error) {
	client, err := gateway.New(gateway.Options{
		BaseURL:        config.BaseURL,
		RequestTimeout: config.RequestTimeout,
		BlobTimeout:    config.BlobTimeout,
		RetryMax:       config.RetryMax,
		Logger:         f.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize backend gateway: %w", err)
	}
	f.logger.Info("Initialized REST backend", "base_url", config.BaseURL)
	return client, nil
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (store.Backend, error) {
	repo, err := storage.NewSQLiteRepository(ctx, config.SQLiteDBPath, config.Admin, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return repo, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (store.Backend, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}
	s, err := memory.NewFromFiles(dataDir, config.Admin)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize memory backend: %w", err)
	}
	f.logger.Info("Initialized memory backend", "data_directory", dataDir)
	return s, nil
}

// createPublisher returns nil when AMQP is not configured or unreachable;
// the dashboard keeps working without events.
func (f *DefaultFactory) createPublisher(config Config) services.Publisher {
	if config.AMQPURL == "" {
		return nil
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without export events", log.FieldError, err)
		return nil
	}
	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)
	return client
}
