package indexer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/contenthub/content"
	"github.com/xraph/contenthub/ownership"
	"github.com/xraph/contenthub/payment"
	"github.com/xraph/contenthub/plugin"
)

// ErrBufferFull is returned by a hook when the event buffer is full. The
// event is dropped from the index; the ledger itself is unaffected.
var ErrBufferFull = errors.New("indexer: buffer full")

var (
	_ plugin.Plugin             = (*Plugin)(nil)
	_ plugin.OnInit             = (*Plugin)(nil)
	_ plugin.OnShutdown         = (*Plugin)(nil)
	_ plugin.OnContentUploaded  = (*Plugin)(nil)
	_ plugin.OnPaymentProcessed = (*Plugin)(nil)
	_ plugin.OnOwnershipMinted  = (*Plugin)(nil)
)

// Plugin feeds an Index from ledger hooks. Events are buffered and written
// in batches by a background worker started in OnInit.
type Plugin struct {
	index  Index
	logger *slog.Logger

	buffer   chan Event
	stopChan chan struct{}
	wg       sync.WaitGroup
	start    sync.Once
	stop     sync.Once

	batchSize     int
	flushInterval time.Duration
}

// Option configures a Plugin.
type Option func(*Plugin)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Plugin) { p.logger = logger }
}

// WithBatch sets the flush batch size and interval.
func WithBatch(size int, interval time.Duration) Option {
	return func(p *Plugin) {
		if size > 0 {
			p.batchSize = size
		}
		if interval > 0 {
			p.flushInterval = interval
		}
	}
}

// WithBufferSize sets how many events may wait for the worker.
func WithBufferSize(n int) Option {
	return func(p *Plugin) {
		if n > 0 {
			p.buffer = make(chan Event, n)
		}
	}
}

// NewPlugin creates a Plugin writing to idx.
func NewPlugin(idx Index, opts ...Option) *Plugin {
	p := &Plugin{
		index:         idx,
		logger:        slog.Default(),
		buffer:        make(chan Event, 10000),
		stopChan:      make(chan struct{}),
		batchSize:     100,
		flushInterval: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements plugin.Plugin.
func (p *Plugin) Name() string { return "indexer" }

// Index returns the index the plugin writes to.
func (p *Plugin) Index() Index { return p.index }

// OnInit migrates the index and starts the flush worker.
func (p *Plugin) OnInit(ctx context.Context, _ interface{}) error {
	if err := p.index.Migrate(ctx); err != nil {
		return err
	}
	p.start.Do(func() {
		p.wg.Add(1)
		go p.flushWorker(context.WithoutCancel(ctx))
	})
	return nil
}

// OnShutdown stops the worker after a final flush.
func (p *Plugin) OnShutdown(_ context.Context) error {
	p.stop.Do(func() { close(p.stopChan) })
	p.wg.Wait()
	return nil
}

func (p *Plugin) OnContentUploaded(_ context.Context, c *content.Content) error {
	return p.enqueue(Event{Content: c})
}

func (p *Plugin) OnPaymentProcessed(_ context.Context, pay *payment.Payment) error {
	return p.enqueue(Event{Payment: pay})
}

func (p *Plugin) OnOwnershipMinted(_ context.Context, r *ownership.Record) error {
	return p.enqueue(Event{Ownership: r})
}

func (p *Plugin) enqueue(e Event) error {
	select {
	case p.buffer <- e:
		return nil
	default:
		return ErrBufferFull
	}
}

// flushWorker writes buffered events to the index.
func (p *Plugin) flushWorker(ctx context.Context) {
	defer p.wg.Done()

	batch := make([]Event, 0, p.batchSize)
	ticker := time.NewTicker(p.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopChan:
			// Drain whatever the hooks queued before shutdown.
		drain:
			for {
				select {
				case e := <-p.buffer:
					batch = append(batch, e)
				default:
					break drain
				}
			}
			if len(batch) > 0 {
				p.flush(ctx, batch)
			}
			return

		case e := <-p.buffer:
			batch = append(batch, e)
			if len(batch) >= p.batchSize {
				p.flush(ctx, batch)
				batch = make([]Event, 0, p.batchSize)
			}

		case <-ticker.C:
			if len(batch) > 0 {
				p.flush(ctx, batch)
				batch = make([]Event, 0, p.batchSize)
			}
		}
	}
}

func (p *Plugin) flush(ctx context.Context, batch []Event) {
	start := time.Now()

	if err := p.index.Put(ctx, batch); err != nil {
		p.logger.Error("failed to flush index batch",
			"error", err,
			"batch_size", len(batch),
		)
		return
	}

	p.logger.Debug("flushed index batch",
		"batch_size", len(batch),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
}
