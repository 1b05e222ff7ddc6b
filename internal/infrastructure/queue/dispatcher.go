package queue

import (
	"context"
	"hash/fnv"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/obalifehub/lifehub/internal/core/domain"
	"github.com/obalifehub/lifehub/internal/core/ports"
	"github.com/obalifehub/lifehub/internal/pkg/metrics"
)

const (
	defaultWorkers = 8
	channelBuffer  = 256
)

// Dispatcher fans profile change notifications out to a fixed set of
// workers, hashing on the user id so every user's changes are applied in
// feed order.
type Dispatcher struct {
	workers []chan domain.ProfileChanged
	handler ports.ProfileEventHandler
	log     zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, handler ports.ProfileEventHandler, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.ProfileChanged, numWorkers),
		handler: handler,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.ProfileChanged, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Enqueue hands ev to the worker owning its user. It blocks while that
// worker's buffer is full and gives up, returning false, once ctx is done.
func (d *Dispatcher) Enqueue(ctx context.Context, ev domain.ProfileChanged) bool {
	idx := d.shardIndex(ev.UserID)
	select {
	case d.workers[idx] <- ev:
		metrics.ProfileEventsQueueDepth.WithLabelValues(strconv.Itoa(idx)).Inc()
		return true
	case <-ctx.Done():
		return false
	}
}

// Sink adapts Enqueue to the callback shape of ports.ProfileChangeFeed.
func (d *Dispatcher) Sink(ctx context.Context) func(domain.ProfileChanged) {
	return func(ev domain.ProfileChanged) {
		if !d.Enqueue(ctx, ev) {
			d.log.Warn().Str("user_id", ev.UserID).Msg("profile event dropped on shutdown")
		}
	}
}

// shardIndex maps a user id deterministically to a worker index.
func (d *Dispatcher) shardIndex(userID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.ProfileChanged) {
	depth := metrics.ProfileEventsQueueDepth.WithLabelValues(strconv.Itoa(id))
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			depth.Dec()
			if err := d.handler.HandleProfileChanged(ctx, ev); err != nil {
				d.log.Error().Err(err).
					Str("user_id", ev.UserID).
					Str("source", ev.Source).
					Int("worker_id", id).
					Msg("profile event handling failed")
			}
		}
	}
}
