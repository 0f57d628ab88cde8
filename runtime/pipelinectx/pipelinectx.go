// Package pipelinectx carries cross-hop pipeline context (version, replay
// flag, cache policy, cache status) across transport boundaries.
package pipelinectx

import (
	"context"
	"net/http"
)

// Header names for the cross-hop context contract.
const (
	HeaderVersion     = "x-tpf-version"
	HeaderReplay      = "x-tpf-replay"
	HeaderCachePolicy = "x-tpf-cache-policy"
	HeaderCacheStatus = "x-tpf-cache-status"
)

// CachePolicy is the per-request cache enforcement policy carried in
// x-tpf-cache-policy.
type CachePolicy string

const (
	PreferCache   CachePolicy = "PREFER_CACHE"
	CacheOnly     CachePolicy = "CACHE_ONLY"
	SkipIfPresent CachePolicy = "SKIP_IF_PRESENT"
	RequireCache  CachePolicy = "REQUIRE_CACHE"
	BypassCache   CachePolicy = "BYPASS_CACHE"
)

// CacheStatus is the per-item cache outcome carried in the response header
// x-tpf-cache-status.
type CacheStatus string

const (
	CacheHit    CacheStatus = "HIT"
	CacheMiss   CacheStatus = "MISS"
	CacheBypass CacheStatus = "BYPASS"
	CacheStored CacheStatus = "STORED"
)

type pipelineContextKey struct{}

// PipelineContext holds the (version, replay, cache_policy) tuple extracted
// from an inbound call, plus the cache status recorded for the current hop.
type PipelineContext struct {
	Version     string
	Replay      bool
	CachePolicy CachePolicy
	CacheStatus CacheStatus
}

// IsEmpty returns true when no pipeline context data is present.
func (pc PipelineContext) IsEmpty() bool {
	return pc.Version == "" && !pc.Replay && pc.CachePolicy == "" && pc.CacheStatus == ""
}

// ExtractPipelineContext reads the cross-hop context headers from an inbound
// HTTP request. Missing headers leave their corresponding field at its zero
// value; an unparseable x-tpf-replay is treated as false.
func ExtractPipelineContext(r *http.Request) PipelineContext {
	return PipelineContext{
		Version:     r.Header.Get(HeaderVersion),
		Replay:      r.Header.Get(HeaderReplay) == "true",
		CachePolicy: CachePolicy(r.Header.Get(HeaderCachePolicy)),
	}
}

// ContextWithPipelineContext stores a PipelineContext in a Go context,
// binding it to the request-local slot for the call's lifetime.
func ContextWithPipelineContext(ctx context.Context, pc PipelineContext) context.Context {
	return context.WithValue(ctx, pipelineContextKey{}, &pc)
}

// PipelineContextFromContext retrieves the PipelineContext bound to ctx.
// Returns an empty PipelineContext if none is stored.
func PipelineContextFromContext(ctx context.Context) PipelineContext {
	pc, ok := ctx.Value(pipelineContextKey{}).(*PipelineContext)
	if !ok || pc == nil {
		return PipelineContext{}
	}
	return *pc
}

// RecordCacheStatus updates the cache status slot of the PipelineContext
// bound to ctx, if one is present. It is a no-op if ctx carries no
// PipelineContext, mirroring the fact that the slot only exists for calls
// that went through the interceptor.
func RecordCacheStatus(ctx context.Context, status CacheStatus) {
	pc, ok := ctx.Value(pipelineContextKey{}).(*PipelineContext)
	if !ok || pc == nil {
		return
	}
	pc.CacheStatus = status
}

// Middleware is the server-side interceptor: it reads the cross-hop context
// headers from the inbound request, binds the reconstructed PipelineContext
// to the request-local slot for the request's lifetime, and lets the
// standard request-scoped context teardown clear it on completion/cancel.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pc := ExtractPipelineContext(r)
		ctx := ContextWithPipelineContext(r.Context(), pc)
		r = r.WithContext(ctx)
		next.ServeHTTP(w, r)
		if status := PipelineContextFromContext(ctx).CacheStatus; status != "" {
			w.Header().Set(HeaderCacheStatus, string(status))
		}
	})
}

// InjectPipelineHeaders is the client-side outbound filter: it reads the
// current context and attaches the three request headers to req. It is a
// no-op if ctx carries no PipelineContext.
func InjectPipelineHeaders(ctx context.Context, req *http.Request) {
	pc := PipelineContextFromContext(ctx)
	if pc.IsEmpty() {
		return
	}
	if pc.Version != "" {
		req.Header.Set(HeaderVersion, pc.Version)
	}
	if pc.Replay {
		req.Header.Set(HeaderReplay, "true")
	}
	if pc.CachePolicy != "" {
		req.Header.Set(HeaderCachePolicy, string(pc.CachePolicy))
	}
}

// RecordResponseCacheStatus is the client-side response filter: it reads the
// x-tpf-cache-status response header and records it into the request-local
// cache-status slot bound to ctx, ready for the next enforcer invocation.
func RecordResponseCacheStatus(ctx context.Context, resp *http.Response) {
	if status := resp.Header.Get(HeaderCacheStatus); status != "" {
		RecordCacheStatus(ctx, CacheStatus(status))
	}
}
