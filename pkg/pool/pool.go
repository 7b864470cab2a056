// Package pool provides bounded pooling of expensive, stateful backend
// resources for QueryGate. A Pool hands out live, healthy resources under
// bounded concurrency, recycles them by age, and heals them through a
// background health audit owned by the pool itself.
//
// The pool is backend-agnostic: any backend supplies a Factory with
// create/close/health-check for one opaque handle type, and the pool is
// written once against it.
//
// Example usage:
//
//	p, err := pool.New(pool.DefaultConfig(), factory)
//	if err != nil {
//	    return err
//	}
//	if err := p.Initialize(ctx); err != nil {
//	    return err
//	}
//	defer p.Shutdown()
//
//	res, err := p.Acquire(ctx)
//	if err != nil {
//	    return err
//	}
//	defer p.Release(res)
//
//	// use res.Handle()
package pool

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/querygate/querygate/pkg/errors"
	"github.com/querygate/querygate/pkg/logger"
)

// healthCheckTimeout bounds a single factory health check.
const healthCheckTimeout = 10 * time.Second

// Factory supplies the backend-specific lifecycle for one opaque connection
// handle. Implementations must be safe to call repeatedly and must not retain
// hidden global state across handles.
type Factory[T any] interface {
	// Create opens a new backend connection
	Create(ctx context.Context) (T, error)
	// Close releases a backend connection
	Close(handle T) error
	// IsHealthy reports whether the connection is still usable
	IsHealthy(ctx context.Context, handle T) bool
}

// Stats is a read-only snapshot of the pool's state.
type Stats struct {
	// Live is the number of existing resources, checked out included
	Live int `json:"live"`
	// Idle is the number of resources waiting in the hand-off queue
	Idle int `json:"idle"`
	// MinSize and MaxSize echo the configured bounds
	MinSize int `json:"min_size"`
	MaxSize int `json:"max_size"`
}

// Pool is a bounded concurrent container of pooled resources. The buffered
// idle channel is the hand-off queue and provides the blocking and timeout
// semantics for waiting acquirers; a single mutex protects the live count
// and the closing flag. The invariant live <= MaxSize holds at all times.
type Pool[T any] struct {
	config  Config
	factory Factory[T]
	logger  *zap.Logger

	idle chan *Resource[T]

	mu          sync.Mutex
	live        int
	closing     bool
	initialized bool

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New creates a pool with the given configuration and factory. The pool is
// inert until Initialize is called.
func New[T any](config Config, factory Factory[T]) (*Pool[T], error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Pool[T]{
		config:  config,
		factory: factory,
		logger:  logger.Get().With(zap.String("component", "pool")),
		idle:    make(chan *Resource[T], config.MaxSize),
		stopCh:  make(chan struct{}),
	}, nil
}

// Initialize synchronously creates MinSize resources and starts the
// background health audit. A factory failure is fatal: every resource
// created so far is closed and no partial pool is left running.
func (p *Pool[T]) Initialize(ctx context.Context) error {
	p.mu.Lock()
	if p.initialized || p.closing {
		p.mu.Unlock()
		return errors.New(errors.ErrorTypeInternal, "pool already initialized or shut down")
	}
	p.mu.Unlock()

	p.logger.Info("initializing pool",
		zap.Int("min_size", p.config.MinSize),
		zap.Int("max_size", p.config.MaxSize))

	created := make([]*Resource[T], 0, p.config.MinSize)
	for i := 0; i < p.config.MinSize; i++ {
		res, err := p.createResource(ctx)
		if err != nil {
			for _, r := range created {
				if closeErr := p.factory.Close(r.handle); closeErr != nil {
					p.logger.Warn("failed to close resource during init rollback", zap.Error(closeErr))
				}
			}
			return errors.Wrap(err, errors.ErrorTypeResourceCreateFailed, "initial pool creation failed")
		}
		created = append(created, res)
	}

	p.mu.Lock()
	p.live = len(created)
	p.initialized = true
	p.mu.Unlock()

	for _, res := range created {
		p.idle <- res
	}

	p.wg.Add(1)
	go p.healthLoop()

	p.logger.Info("pool initialized", zap.Int("live", len(created)))
	return nil
}

// Acquire returns one healthy resource or fails with pool_exhausted once the
// acquire timeout elapses. It first waits on the hand-off queue; if nothing
// became idle within the timeout and capacity remains, it creates an overflow
// resource. Any obtained resource is recycled if its age exceeds RecycleAge,
// then health-checked with at most one replacement before being returned.
// The caller's context cancels the wait early.
func (p *Pool[T]) Acquire(ctx context.Context) (*Resource[T], error) {
	p.mu.Lock()
	if p.closing {
		p.mu.Unlock()
		return nil, errors.New(errors.ErrorTypePoolClosed, "pool is shut down")
	}
	p.mu.Unlock()

	res, err := p.obtain(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if res.age(now) > p.config.RecycleAge {
		res, err = p.replace(ctx, res, "recycle age exceeded")
		if err != nil {
			return nil, err
		}
	}

	hcCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	healthy := p.factory.IsHealthy(hcCtx, res.handle)
	cancel()
	if !healthy {
		// Replace exactly once; a second failure propagates to the caller.
		res.healthy = false
		res, err = p.replace(ctx, res, "health check failed")
		if err != nil {
			return nil, err
		}
	}

	res.lastUsedAt = time.Now()
	res.useCount++
	return res, nil
}

// obtain pops an idle resource, waiting up to the acquire timeout, then
// falls back to overflow creation while capacity remains.
func (p *Pool[T]) obtain(ctx context.Context) (*Resource[T], error) {
	// Fast path: an idle resource is already waiting.
	select {
	case res := <-p.idle:
		return res, nil
	default:
	}

	timer := time.NewTimer(p.config.AcquireTimeout)
	defer timer.Stop()

	select {
	case res := <-p.idle:
		return res, nil
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), errors.ErrorTypePoolExhausted, "acquire cancelled")
	case <-timer.C:
	}

	// Nothing became idle within the timeout. Reserve an overflow slot under
	// the lock, compare-and-increment style, so live <= MaxSize holds even
	// under concurrent overflow attempts. The factory call happens outside
	// the lock so other acquirers are never blocked on it.
	p.mu.Lock()
	if p.closing {
		p.mu.Unlock()
		return nil, errors.New(errors.ErrorTypePoolClosed, "pool is shut down")
	}
	if p.live >= p.config.MaxSize {
		p.mu.Unlock()
		return nil, errors.New(errors.ErrorTypePoolExhausted, "no resource available within acquire timeout").
			WithDetail("timeout", p.config.AcquireTimeout.String()).
			WithDetail("max_size", p.config.MaxSize)
	}
	p.live++
	p.mu.Unlock()

	res, err := p.createResource(ctx)
	if err != nil {
		p.decLive()
		return nil, errors.Wrap(err, errors.ErrorTypeResourceCreateFailed, "overflow creation failed")
	}

	p.logger.Debug("created overflow resource", zap.Int("live", p.liveCount()))
	return res, nil
}

// Release returns a resource to the idle queue. Against a closing pool the
// resource is closed instead. A full queue should not occur under correct
// bookkeeping; if it does, the resource is closed rather than leaking a slot.
func (p *Pool[T]) Release(res *Resource[T]) {
	if res == nil {
		return
	}

	p.mu.Lock()
	closing := p.closing
	p.mu.Unlock()

	if closing {
		p.closeResource(res)
		return
	}

	select {
	case p.idle <- res:
	default:
		p.logger.Warn("idle queue full on release, closing resource")
		p.closeResource(res)
	}
}

// Shutdown stops the health audit, waits for its current pass to finish,
// then drains and closes every idle resource. Resources still checked out
// are closed when later released against the closing pool, or reported as
// a bounded leak if never released.
func (p *Pool[T]) Shutdown() {
	p.mu.Lock()
	if p.closing {
		p.mu.Unlock()
		return
	}
	p.closing = true
	p.mu.Unlock()

	close(p.stopCh)
	p.wg.Wait()

	for {
		select {
		case res := <-p.idle:
			p.closeResource(res)
		default:
			p.mu.Lock()
			leaked := p.live
			p.mu.Unlock()
			if leaked > 0 {
				p.logger.Warn("resources still checked out at shutdown; they close on release or leak",
					zap.Int("count", leaked))
			}
			p.logger.Info("pool shut down")
			return
		}
	}
}

// Stats returns a read-only snapshot of the pool. Side-effect free.
func (p *Pool[T]) Stats() Stats {
	p.mu.Lock()
	live := p.live
	p.mu.Unlock()

	return Stats{
		Live:    live,
		Idle:    len(p.idle),
		MinSize: p.config.MinSize,
		MaxSize: p.config.MaxSize,
	}
}

// createResource calls the factory and wraps the handle. It does not touch
// the live count; callers manage slot accounting.
func (p *Pool[T]) createResource(ctx context.Context) (*Resource[T], error) {
	handle, err := p.factory.Create(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &Resource[T]{
		handle:     handle,
		createdAt:  now,
		lastUsedAt: now,
		healthy:    true,
	}, nil
}

// replace closes the old resource and creates a fresh one in its place.
// The live count is unchanged on success; on creation failure the slot is
// released and the error is surfaced as resource_create_failed.
func (p *Pool[T]) replace(ctx context.Context, old *Resource[T], reason string) (*Resource[T], error) {
	if err := p.factory.Close(old.handle); err != nil {
		p.logger.Warn("failed to close resource during replacement", zap.Error(err))
	}

	fresh, err := p.createResource(ctx)
	if err != nil {
		p.decLive()
		return nil, errors.Wrap(err, errors.ErrorTypeResourceCreateFailed, "failed to replace resource").
			WithDetail("reason", reason)
	}

	p.logger.Debug("replaced resource",
		zap.String("reason", reason),
		zap.Duration("old_age", time.Since(old.createdAt)),
		zap.Int64("old_use_count", old.useCount))
	return fresh, nil
}

// closeResource closes the handle and releases its slot.
func (p *Pool[T]) closeResource(res *Resource[T]) {
	if err := p.factory.Close(res.handle); err != nil {
		p.logger.Warn("failed to close resource", zap.Error(err))
	}
	p.decLive()
}

func (p *Pool[T]) decLive() {
	p.mu.Lock()
	p.live--
	p.mu.Unlock()
}

func (p *Pool[T]) liveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.live
}

// healthLoop runs the background idle audit on a fixed interval until
// Shutdown. The loop is owned by the pool: started in Initialize, stopped
// cooperatively in Shutdown.
func (p *Pool[T]) healthLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.auditIdle()
		}
	}
}

// auditIdle health-checks each currently idle resource, replacing unhealthy
// ones. At most one resource is held out of circulation at a time, and the
// pass yields between checks, so acquirers are never starved for longer than
// one health-check duration.
func (p *Pool[T]) auditIdle() {
	toCheck := len(p.idle)
	checked := 0

	for checked < toCheck {
		select {
		case <-p.stopCh:
			return
		default:
		}

		var res *Resource[T]
		select {
		case res = <-p.idle:
		default:
			// Queue drained by callers; nothing left to audit this pass.
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
		healthy := p.factory.IsHealthy(ctx, res.handle)
		cancel()

		if healthy {
			res.healthy = true
			p.putIdle(res)
		} else {
			p.logger.Warn("replacing unhealthy idle resource",
				zap.Duration("age", time.Since(res.createdAt)))
			res.healthy = false
			fresh, err := p.replace(context.Background(), res, "idle health check failed")
			if err != nil {
				// Slot already released by replace; the pool shrinks and
				// recovers through overflow creation on demand.
				p.logger.Error("failed to replace unhealthy idle resource", zap.Error(err))
			} else {
				p.putIdle(fresh)
			}
		}

		checked++
	}

	p.logger.Debug("idle health audit completed", zap.Int("checked", checked))
}

func (p *Pool[T]) putIdle(res *Resource[T]) {
	select {
	case p.idle <- res:
	default:
		p.closeResource(res)
	}
}
