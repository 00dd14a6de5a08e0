package application

import (
	"context"
	"log/slog"
	"sync"
)

// Utterance is one captured clip queued for processing.
type Utterance struct {
	ID      string
	Clip    []int16
	release func()
}

// NewUtterance pairs a clip with the release hook that re-enables wake
// detection once the clip has been fully handled.
func NewUtterance(id string, clip []int16, release func()) Utterance {
	return Utterance{ID: id, Clip: clip, release: release}
}

// Release unblocks the capture side so the next wake can be taken.
func (u Utterance) Release() {
	if u.release != nil {
		u.release()
	}
}

// Handler processes one utterance end to end. A returned error marks
// that utterance as failed; the worker moves on to the next one.
type Handler func(ctx context.Context, utt Utterance) error

// Router runs a single worker goroutine that drains a bounded queue of
// utterances, strictly in order of arrival. A panic kills the worker;
// the next Enqueue notices and respawns it with a fresh queue, so
// anything still buffered on the dead queue is lost.
type Router struct {
	handler Handler
	size    int
	logger  *slog.Logger

	mu    sync.Mutex
	ctx   context.Context
	queue chan Utterance
	alive chan struct{}
}

func NewRouter(handler Handler, queueSize int, logger *slog.Logger) *Router {
	if queueSize < 1 {
		queueSize = 1
	}
	return &Router{handler: handler, size: queueSize, logger: logger}
}

// Start spawns the worker. The context bounds the worker's lifetime
// and every respawn after it.
func (r *Router) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctx = ctx
	r.spawn()
}

// spawn creates a fresh queue and worker. Caller must hold r.mu.
func (r *Router) spawn() {
	queue := make(chan Utterance, r.size)
	alive := make(chan struct{})
	r.queue = queue
	r.alive = alive
	ctx := r.ctx

	go func() {
		defer close(alive)
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error("router worker crashed", "panic", rec)
			}
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case utt := <-queue:
				r.process(ctx, utt)
			}
		}
	}()
}

func (r *Router) process(ctx context.Context, utt Utterance) {
	defer utt.Release()
	log := r.logger.With("utterance", utt.ID)
	log.Info("processing utterance", "samples", len(utt.Clip))
	if err := r.handler(ctx, utt); err != nil {
		log.Error("utterance failed", "error", err)
	}
}

// Enqueue hands an utterance to the worker, restarting it first if it
// died. Returns false when the utterance was dropped, either because
// the router is stopped or the queue is full; the utterance is
// released either way.
func (r *Router) Enqueue(utt Utterance) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ctx == nil || r.ctx.Err() != nil {
		utt.Release()
		return false
	}

	select {
	case <-r.alive:
		r.logger.Warn("router worker died, restarting with a fresh queue")
		r.spawn()
	default:
	}

	select {
	case r.queue <- utt:
		return true
	default:
		r.logger.Warn("router queue full, dropping utterance", "utterance", utt.ID)
		utt.Release()
		return false
	}
}
