package notify

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/jazzyauth/internal/logging"
)

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Enqueuer is what engines depend on.
type Enqueuer interface {
	Enqueue(msg Message) bool
}

// Dispatcher is a buffered queue drained by one worker. Enqueue never
// blocks: when the queue is full the message is dropped and counted.
type Dispatcher struct {
	sender      Sender
	logger      logging.Logger
	sendTimeout time.Duration

	ch        chan Message
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	sent      atomic.Uint64
	failed    atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

func NewDispatcher(sender Sender, logger logging.Logger, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 1
	}
	d := &Dispatcher{
		sender:      sender,
		logger:      logger.With("module", "notify"),
		sendTimeout: 30 * time.Second,
		ch:          make(chan Message, queueSize),
		done:        make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case msg := <-d.ch:
			d.deliver(msg)
		case <-d.done:
			for {
				select {
				case msg := <-d.ch:
					d.deliver(msg)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
	defer cancel()

	if err := d.sender.Send(ctx, msg); err != nil {
		d.failed.Add(1)
		d.logger.Error(ctx, "email delivery failed", "to", msg.To, "subject", msg.Subject, "error", err)
		return
	}
	d.sent.Add(1)
	d.logger.Debug(ctx, "email delivered", "to", msg.To, "subject", msg.Subject)
}

// Enqueue schedules msg for delivery and reports whether it was accepted.
func (d *Dispatcher) Enqueue(msg Message) bool {
	if d == nil || d.closed.Load() {
		return false
	}

	select {
	case d.ch <- msg:
		return true
	case <-d.done:
		return false
	default:
		d.dropped.Add(1)
		d.logger.Warn(context.Background(), "notification queue full, message dropped", "to", msg.To)
		return false
	}
}

// Close stops accepting messages, drains what is queued and waits for the
// worker to exit.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

func (d *Dispatcher) Dropped() uint64 { return d.dropped.Load() }
func (d *Dispatcher) Sent() uint64    { return d.sent.Load() }
func (d *Dispatcher) Failed() uint64  { return d.failed.Load() }
