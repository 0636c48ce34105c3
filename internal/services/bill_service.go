package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"billtracker/internal/amqp"
	"billtracker/internal/core"
	"billtracker/internal/store"
)

// Publisher announces that the bill set changed.
type Publisher interface {
	PublishBillsChanged(ctx context.Context, msg *amqp.BillsChangedMessage) error
	Close() error
}

// BillService wraps a backend and publishes a bills-changed event after
// every successful write. Reads pass straight through.
type BillService struct {
	store.Backend
	publisher Publisher

	mu          sync.Mutex
	lastVersion int64
	now         func() time.Time
}

var _ store.Backend = (*BillService)(nil)

// NewBillService wraps backend. A nil publisher disables events.
func NewBillService(backend store.Backend, publisher Publisher) *BillService {
	return &BillService{Backend: backend, publisher: publisher, now: time.Now}
}

// nextVersion returns a strictly increasing version based on the clock, so
// versions keep growing across restarts.
func (s *BillService) nextVersion() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.now().UnixNano()
	if v <= s.lastVersion {
		v = s.lastVersion + 1
	}
	s.lastVersion = v
	return v
}

func (s *BillService) CreateBill(ctx context.Context, b core.Bill) (store.MutationResult, error) {
	res, err := s.Backend.CreateBill(ctx, b)
	if err != nil {
		return res, err
	}
	s.publish(ctx, amqp.ActionCreate, res.SerialNo)
	return res, nil
}

func (s *BillService) UpdateBill(ctx context.Context, serialNo int, b core.Bill) (store.MutationResult, error) {
	res, err := s.Backend.UpdateBill(ctx, serialNo, b)
	if err != nil {
		return res, err
	}
	s.publish(ctx, amqp.ActionUpdate, serialNo)
	return res, nil
}

func (s *BillService) DeleteBill(ctx context.Context, serialNo int) (store.MutationResult, error) {
	res, err := s.Backend.DeleteBill(ctx, serialNo)
	if err != nil {
		return res, err
	}
	s.publish(ctx, amqp.ActionDelete, serialNo)
	return res, nil
}

func (s *BillService) UploadPDF(ctx context.Context, serialNo int, filename string, content io.Reader) (string, error) {
	msg, err := s.Backend.UploadPDF(ctx, serialNo, filename, content)
	if err != nil {
		return msg, err
	}
	s.publish(ctx, amqp.ActionPDF, serialNo)
	return msg, nil
}

func (s *BillService) SaveConfig(ctx context.Context, cfg core.Configuration) error {
	if err := s.Backend.SaveConfig(ctx, cfg); err != nil {
		return err
	}
	s.publish(ctx, amqp.ActionConfig, 0)
	return nil
}

// publish never fails the write that triggered it.
func (s *BillService) publish(ctx context.Context, action string, serialNo int) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping bills changed message", "action", action)
		return
	}
	msg := amqp.NewBillsChangedMessage(action, serialNo, s.nextVersion())
	if err := s.publisher.PublishBillsChanged(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish bills changed message",
			"action", action, "serial_no", serialNo, "error", err)
	}
}

// Close releases the publisher and, when it holds one, the backend's resources.
func (s *BillService) Close() error {
	var errs []error

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	if c, ok := s.Backend.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("backend: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close bill service: %v", errs)
	}
	return nil
}
