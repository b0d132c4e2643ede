// Package audit keeps a history of account snapshot imports.
package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/kasuganosora/materialplanner/model"
	"github.com/kasuganosora/materialplanner/resource"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	queueSize     = 1024
	batchSize     = 100
	flushInterval = 2 * time.Second
)

// ImportEntry describes one snapshot import.
type ImportEntry struct {
	TraceID    string
	AccountID  int64
	Version    int64
	IP         string
	RosterSize int
	ItemCount  int
	Missing    []resource.ServantID
	Duration   time.Duration
}

// Service writes import entries asynchronously in batches.
type Service struct {
	db     *gorm.DB
	ch     chan *model.ImportLog
	stopCh chan struct{}
	mu     sync.RWMutex // guards closed against concurrent Log
	closed bool
	wg     sync.WaitGroup
	logger *zap.Logger
}

// New creates a new audit Service and starts its background worker.
func New(db *gorm.DB, logger *zap.Logger) *Service {
	svc := &Service{
		db:     db,
		ch:     make(chan *model.ImportLog, queueSize),
		stopCh: make(chan struct{}),
		logger: logger,
	}
	svc.wg.Add(1)
	go svc.worker()
	return svc
}

// Log enqueues an entry for async DB write and reports whether it was
// accepted. Entries are dropped when the queue is full or the service has
// stopped.
func (svc *Service) Log(entry ImportEntry) bool {
	missing := entry.Missing
	if missing == nil {
		missing = []resource.ServantID{}
	}
	missingJSON, err := json.Marshal(missing)
	if err != nil {
		svc.logger.Error("audit entry encode failed", zap.Int64("account_id", entry.AccountID), zap.Error(err))
		missingJSON = []byte("[]")
	}
	record := &model.ImportLog{
		AccountID:  entry.AccountID,
		Version:    entry.Version,
		TraceID:    entry.TraceID,
		IP:         entry.IP,
		RosterSize: entry.RosterSize,
		ItemCount:  entry.ItemCount,
		Missing:    datatypes.JSON(missingJSON),
		DurationMs: int(entry.Duration.Milliseconds()),
	}

	svc.mu.RLock()
	defer svc.mu.RUnlock()
	if svc.closed {
		svc.logger.Warn("audit stopped, dropping entry", zap.Int64("account_id", entry.AccountID))
		return false
	}
	select {
	case svc.ch <- record:
		return true
	default:
		svc.logger.Warn("audit channel full, dropping entry",
			zap.Int64("account_id", entry.AccountID))
		return false
	}
}

// Recent returns up to limit imports of accountID, newest first.
func (svc *Service) Recent(ctx context.Context, accountID int64, limit int) ([]model.ImportLog, error) {
	var logs []model.ImportLog
	err := svc.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("id DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

// Stop flushes remaining entries and shuts down the worker.
// It blocks until the worker goroutine has finished.
func (svc *Service) Stop() {
	svc.mu.Lock()
	if !svc.closed {
		svc.closed = true
		close(svc.stopCh)
	}
	svc.mu.Unlock()
	svc.wg.Wait()
}

func (svc *Service) worker() {
	defer svc.wg.Done()
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]*model.ImportLog, 0, batchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := svc.db.Create(&batch).Error; err != nil {
			svc.logger.Error("audit batch write failed", zap.Int("entries", len(batch)), zap.Error(err))
		}
		batch = batch[:0]
	}

	for {
		select {
		case entry := <-svc.ch:
			batch = append(batch, entry)
			if len(batch) >= batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-svc.stopCh:
			for {
				select {
				case entry := <-svc.ch:
					batch = append(batch, entry)
					if len(batch) >= batchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		}
	}
}
