package blobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/vidvault/backend/internal/storage"
)

// MirrorConfig controls the concurrency characteristics of the mirror.
type MirrorConfig struct {
	QueueSize int
	Workers   int
	Timeout   time.Duration
}

// Mirror asynchronously replicates accepted blobs from the local sink to a
// secondary store. Uploads return to the caller as soon as the local write
// finishes; replication happens on this worker pool.
type Mirror struct {
	source  storage.BlobOpener
	dest    storage.BlobStorage
	logger  *slog.Logger
	timeout time.Duration

	jobs    chan string
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	once    sync.Once
	closeMu sync.RWMutex
}

var errMirrorClosed = errors.New("blob mirror closed")

// NewMirror constructs a background worker pool that replicates blobs.
func NewMirror(source storage.BlobOpener, dest storage.BlobStorage, cfg MirrorConfig, logger *slog.Logger) *Mirror {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	m := &Mirror{
		source:  source,
		dest:    dest,
		logger:  logger,
		timeout: cfg.Timeout,
		jobs:    make(chan string, cfg.QueueSize),
		ctx:     ctx,
		cancel:  cancel,
	}

	m.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go m.worker()
	}

	return m
}

// Enqueue schedules replication of the blob stored under key. The read lock
// keeps the queue open for the duration of the send, so an enqueue racing
// Shutdown either lands before the close or reports errMirrorClosed.
func (m *Mirror) Enqueue(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.closeMu.RLock()
	defer m.closeMu.RUnlock()

	if m.ctx.Err() != nil {
		return errMirrorClosed
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case m.jobs <- key:
		return nil
	}
}

// Shutdown waits for the worker pool to drain outstanding jobs.
func (m *Mirror) Shutdown(ctx context.Context) error {
	m.once.Do(func() {
		m.closeMu.Lock()
		m.cancel()
		close(m.jobs)
		m.closeMu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// worker drains the queue until it is closed. Cancelling the mirror context
// only stops new enqueues; jobs already accepted are still replicated.
func (m *Mirror) worker() {
	defer m.wg.Done()

	for key := range m.jobs {
		m.replicate(key)
	}
}

func (m *Mirror) replicate(key string) {
	if m.source == nil || m.dest == nil {
		m.logger.Error("blob mirror missing dependencies", "hasSource", m.source != nil, "hasDest", m.dest != nil)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	r, size, err := m.source.Open(ctx, key)
	if err != nil {
		m.logger.Error("open blob for mirroring", "key", key, "error", err)
		return
	}
	defer r.Close()

	location, err := m.dest.Save(ctx, key, r)
	if err != nil {
		m.logger.Error("mirror blob", "key", key, "error", err)
		return
	}

	m.logger.Info("blob mirrored", "key", key, "location", location, "size", size)
}
