package duckdb

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tinytelemetry/flashdeck/internal/model"
)

// DefaultFlushQueueSize is the number of batches that can be queued for async flushing.
const DefaultFlushQueueSize = 16

// JudgmentBuffer batches judgment events and writes them to the log
// asynchronously. Add never blocks on DuckDB writes.
type JudgmentBuffer struct {
	writer        model.JudgmentWriter
	mu            sync.Mutex
	pending       []*model.JudgmentEvent
	flushChan     chan []*model.JudgmentEvent
	maxBatch      int
	flushInterval time.Duration
	kick          chan struct{}
	done          chan struct{}
	wg            sync.WaitGroup
	tickWg        sync.WaitGroup
	stopOnce      sync.Once

	backpressureCount atomic.Int64
	lastBPLog         atomic.Int64
}

var _ model.JudgmentRecorder = (*JudgmentBuffer)(nil)

// JudgmentBufferConfig holds tunable parameters for the judgment buffer.
type JudgmentBufferConfig struct {
	BatchSize      int
	FlushInterval  time.Duration
	FlushQueueSize int
}

// NewJudgmentBuffer starts a buffer that flushes to writer.
func NewJudgmentBuffer(writer model.JudgmentWriter, conf ...JudgmentBufferConfig) *JudgmentBuffer {
	batchSize := 64
	flushInterval := time.Second
	flushQueueSize := DefaultFlushQueueSize
	if len(conf) > 0 {
		if conf[0].BatchSize > 0 {
			batchSize = conf[0].BatchSize
		}
		if conf[0].FlushInterval > 0 {
			flushInterval = conf[0].FlushInterval
		}
		if conf[0].FlushQueueSize > 0 {
			flushQueueSize = conf[0].FlushQueueSize
		}
	}

	b := &JudgmentBuffer{
		writer:        writer,
		pending:       make([]*model.JudgmentEvent, 0, batchSize),
		flushChan:     make(chan []*model.JudgmentEvent, flushQueueSize),
		maxBatch:      batchSize,
		flushInterval: flushInterval,
		kick:          make(chan struct{}, 1),
		done:          make(chan struct{}),
	}

	b.wg.Add(1)
	go b.flushWorker()

	b.wg.Add(1)
	b.tickWg.Add(1)
	go b.tickLoop()

	return b
}

// tickLoop is the only sender on flushChan.
func (b *JudgmentBuffer) tickLoop() {
	defer b.wg.Done()
	defer b.tickWg.Done()
	ticker := time.NewTicker(b.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.drainPending()
		case <-b.kick:
			b.drainPending()
		case <-b.done:
			b.drainPending()
			return
		}
	}
}

// logBackpressure logs at most once per 10 seconds when a batch had to be
// written inline because the flush queue was full.
func (b *JudgmentBuffer) logBackpressure() {
	count := b.backpressureCount.Add(1)
	now := time.Now().Unix()
	last := b.lastBPLog.Load()
	if now-last >= 10 && b.lastBPLog.CompareAndSwap(last, now) {
		log.Printf("duckdb: backpressure, %d inline judgment flushes", count)
	}
}

func (b *JudgmentBuffer) drainPending() {
	b.mu.Lock()
	if len(b.pending) == 0 {
		b.mu.Unlock()
		return
	}
	batch := b.pending
	b.pending = make([]*model.JudgmentEvent, 0, b.maxBatch)
	b.mu.Unlock()

	b.enqueue(batch)
}

func (b *JudgmentBuffer) enqueue(batch []*model.JudgmentEvent) {
	select {
	case b.flushChan <- batch:
	default:
		b.logBackpressure()
		b.flush(batch)
	}
}

func (b *JudgmentBuffer) flushWorker() {
	defer b.wg.Done()
	for batch := range b.flushChan {
		b.flush(batch)
	}
}

func (b *JudgmentBuffer) flush(batch []*model.JudgmentEvent) {
	if len(batch) == 0 {
		return
	}
	if err := b.writer.InsertJudgmentBatch(batch); err != nil {
		log.Printf("duckdb: judgment flush error: %v", err)
	}
}

// Add queues an event. Events added after Stop are dropped.
func (b *JudgmentBuffer) Add(event *model.JudgmentEvent) {
	select {
	case <-b.done:
		return
	default:
	}
	if event.At.IsZero() {
		event.At = time.Now()
	}

	b.mu.Lock()
	b.pending = append(b.pending, event)
	full := len(b.pending) >= b.maxBatch
	b.mu.Unlock()

	if full {
		select {
		case b.kick <- struct{}{}:
		default:
		}
	}
}

// Stop flushes remaining events and waits for all writes to complete.
func (b *JudgmentBuffer) Stop() {
	b.stopOnce.Do(func() {
		close(b.done)
		// tickLoop does a final drain; flushChan can only close after it.
		b.tickWg.Wait()
		close(b.flushChan)
		b.wg.Wait()
	})
}
