package cache

import (
	"context"
	"time"

	"github.com/flowforge/flowforge/runtime/events"
	"github.com/flowforge/flowforge/runtime/pipelinectx"
)

// KeyFunc derives a cache key for an item produced by a named step.
type KeyFunc[T any] func(stepName string, item T) string

// Enforcer applies the cache policy enforcement law of §4.5. It implements
// runner.CacheEnforcer[T] and is pluggable directly into runner.WithCacheEnforcer.
type Enforcer[T any] struct {
	store   Store[T]
	keyFunc KeyFunc[T]
	ttl     time.Duration
	emitter *events.Emitter
	warn    func(msg string, args ...any)
}

// Option configures an Enforcer.
type Option[T any] func(*Enforcer[T])

// WithEmitter attaches an events.Emitter for cache-decision telemetry.
func WithEmitter[T any](emitter *events.Emitter) Option[T] {
	return func(e *Enforcer[T]) {
		e.emitter = emitter
	}
}

// WithEntryTTL overrides the TTL used when the enforcer writes a cache
// entry back on a PREFER_CACHE miss. Zero defers to the store's own default.
func WithEntryTTL[T any](ttl time.Duration) Option[T] {
	return func(e *Enforcer[T]) {
		e.ttl = ttl
	}
}

// WithWarnFunc attaches a logger-backed warning sink for store errors that
// are swallowed in favor of passing the item through unmodified.
func WithWarnFunc[T any](warn func(msg string, args ...any)) Option[T] {
	return func(e *Enforcer[T]) {
		e.warn = warn
	}
}

// New builds an Enforcer backed by store, deriving cache keys with keyFunc.
func New[T any](store Store[T], keyFunc KeyFunc[T], opts ...Option[T]) *Enforcer[T] {
	e := &Enforcer[T]{
		store:   store,
		keyFunc: keyFunc,
		warn:    func(string, ...any) {},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enforce applies the §4.5 cache policy enforcement law to a single
// unary-output item. keep is false when the item must be dropped (not
// failed) under CACHE_ONLY.
func (e *Enforcer[T]) Enforce(ctx context.Context, stepName string, item T) (T, bool, error) {
	var zero T
	pc := pipelinectx.PipelineContextFromContext(ctx)
	policy := pc.CachePolicy
	if policy == "" {
		policy = pipelinectx.PreferCache
	}
	hit := pc.CacheStatus == pipelinectx.CacheHit

	switch policy {
	case pipelinectx.BypassCache:
		pipelinectx.RecordCacheStatus(ctx, pipelinectx.CacheBypass)
		e.emit(stepName, policy, false, true)
		return item, true, nil

	case pipelinectx.RequireCache:
		e.emit(stepName, policy, hit, false)
		if !hit {
			return zero, false, ErrCacheRequired
		}
		return item, true, nil

	case pipelinectx.CacheOnly:
		e.emit(stepName, policy, hit, false)
		if !hit {
			return zero, false, nil
		}
		return item, true, nil

	case pipelinectx.SkipIfPresent:
		e.emit(stepName, policy, hit, false)
		if hit && e.store != nil {
			cached, ok, err := e.store.Get(ctx, e.keyFunc(stepName, item))
			if err != nil {
				e.warn("cache: store lookup failed for step %s, passing item through: %v", stepName, err)
				return item, true, nil
			}
			if ok {
				return cached, true, nil
			}
		}
		return item, true, nil

	default: // PREFER_CACHE
		e.emit(stepName, policy, hit, false)
		if !hit && e.store != nil {
			if err := e.store.Set(ctx, e.keyFunc(stepName, item), item, e.ttl); err != nil {
				e.warn("cache: store write failed for step %s: %v", stepName, err)
			}
			pipelinectx.RecordCacheStatus(ctx, pipelinectx.CacheStored)
		}
		return item, true, nil
	}
}

func (e *Enforcer[T]) emit(stepName string, policy pipelinectx.CachePolicy, hit, bypassed bool) {
	if e.emitter == nil {
		return
	}
	e.emitter.CacheDecision(stepName, string(policy), hit, bypassed)
}
