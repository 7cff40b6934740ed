package bot

import (
	"context"
	"sync"
	"time"

	"ledgerbot/metrics"

	"github.com/sirupsen/logrus"
)

const DEFAULT_QUEUE_SIZE = 64
const DEFAULT_IDLE_TIMEOUT = time.Minute

// HandlerFunc processes one event.
type HandlerFunc func(ctx context.Context, ev Event)

// Dispatcher keeps one ordered queue per sender (or group) and drains each on its
// own goroutine, so a slow sender never holds up the others. Idle queues exit.
type Dispatcher struct {
	handle    HandlerFunc
	queueSize int
	idle      time.Duration
	log       *logrus.Entry
	metrics   *metrics.Metrics

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	queues map[string]chan Event
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(handle HandlerFunc, log *logrus.Entry, m *metrics.Metrics) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		handle:    handle,
		queueSize: DEFAULT_QUEUE_SIZE,
		idle:      DEFAULT_IDLE_TIMEOUT,
		log:       log,
		metrics:   m,
		ctx:       ctx,
		cancel:    cancel,
		queues:    map[string]chan Event{},
	}
}

// SetIdleTimeout changes how long an empty queue waits before its goroutine exits.
func (d *Dispatcher) SetIdleTimeout(idle time.Duration) {
	d.mu.Lock()
	d.idle = idle
	d.mu.Unlock()
}

// Dispatch enqueues ev. It never blocks: a full queue or a closed dispatcher drops the event.
func (d *Dispatcher) Dispatch(ev Event) bool {
	key := ev.queueKey()

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false
	}

	q, ok := d.queues[key]
	if !ok {
		q = make(chan Event, d.queueSize)
		d.queues[key] = q
		d.wg.Add(1)
		go d.run(key, q, d.idle)
	}

	select {
	case q <- ev:
		return true
	default:
		d.log.WithField("queue", key).Warn("Queue full, event dropped")
		d.metrics.Dropped(metrics.DROP_QUEUE_FULL)
		return false
	}
}

func (d *Dispatcher) run(key string, q chan Event, idle time.Duration) {
	defer d.wg.Done()
	timer := time.NewTimer(idle)
	defer timer.Stop()

	for {
		select {
		case ev, ok := <-q:
			if !ok {
				return
			}
			d.safeHandle(ev)
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(idle)
		case <-timer.C:
			d.mu.Lock()
			if len(q) == 0 {
				if d.queues[key] == q {
					delete(d.queues, key)
				}
				d.mu.Unlock()
				return
			}
			d.mu.Unlock()
			timer.Reset(idle)
		}
	}
}

func (d *Dispatcher) safeHandle(ev Event) {
	defer func() {
		if r := recover(); r != nil {
			d.log.WithField("sender", ev.SenderID).Errorf("panic handling event: %v", r)
		}
	}()
	d.handle(d.ctx, ev)
}

// Queues is the number of live sender queues.
func (d *Dispatcher) Queues() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queues)
}

// Close stops accepting events, drains what is queued and waits for the workers.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for key, q := range d.queues {
		close(q)
		delete(d.queues, key)
	}
	d.mu.Unlock()

	d.wg.Wait()
	d.cancel()
}
