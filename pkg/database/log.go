package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"SignalForge/pkg/model"
)

type LogDB struct {
	db *gorm.DB
}

func (d *DB) Logs() *LogDB {
	return &LogDB{db: d.db}
}

// Save stores one log line
func (l *LogDB) Save(ctx context.Context, record *model.LogRecord) error {
	if err := l.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("save log: %w", err)
	}
	return nil
}

// Recent newest first, optionally filtered by level
func (l *LogDB) Recent(ctx context.Context, level string, limit int) ([]model.LogRecord, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	query := l.db.WithContext(ctx).Model(&model.LogRecord{})
	if level != "" {
		query = query.Where("level = ?", level)
	}
	var records []model.LogRecord
	if err := query.Order("created_at DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("query logs: %w", err)
	}
	return records, nil
}

// LogHook zerolog hook persisting events at or above a level. Writes happen
// on a background goroutine; events are dropped when the buffer is full.
type LogHook struct {
	logs   *LogDB
	min    zerolog.Level
	queue  chan model.LogRecord
	done   chan struct{}
	closed sync.Once
}

// NewLogHook starts the writer goroutine; call Close to flush
func NewLogHook(logs *LogDB, min zerolog.Level) *LogHook {
	h := &LogHook{
		logs:  logs,
		min:   min,
		queue: make(chan model.LogRecord, 256),
		done:  make(chan struct{}),
	}
	go h.run()
	return h
}

// Run implements zerolog.Hook
func (h *LogHook) Run(_ *zerolog.Event, level zerolog.Level, msg string) {
	if level < h.min || level == zerolog.NoLevel || level == zerolog.Disabled {
		return
	}
	record := model.LogRecord{Level: level.String(), Message: msg, CreatedAt: time.Now().UTC()}
	defer func() { _ = recover() }() // queue closed
	select {
	case h.queue <- record:
	default:
	}
}

func (h *LogHook) run() {
	defer close(h.done)
	for record := range h.queue {
		r := record
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = h.logs.Save(ctx, &r)
		cancel()
	}
}

// Close flushes queued records and stops the writer
func (h *LogHook) Close() error {
	h.closed.Do(func() { close(h.queue) })
	<-h.done
	return nil
}
