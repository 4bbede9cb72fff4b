package interceptors

import (
	"context"
	"errors"
	"sync"
	"time"

	"connectrpc.com/connect"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

var errRateLimited = errors.New("rate limit exceeded, try again later")

// NewRateLimitInterceptor applies one token bucket to every RPC.
func NewRateLimitInterceptor(limiter *rate.Limiter) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if !limiter.Allow() {
				return nil, connect.NewError(connect.CodeResourceExhausted, errRateLimited)
			}
			return next(ctx, req)
		}
	}
}

// OwnerLimiter keeps a token bucket per owner. Buckets unused for ttl are evicted.
type OwnerLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	buckets *cache.Cache
}

func NewOwnerLimiter(limit rate.Limit, burst int, ttl time.Duration) *OwnerLimiter {
	return &OwnerLimiter{
		limit:   limit,
		burst:   burst,
		buckets: cache.New(ttl, 2*ttl),
	}
}

// Allow reports whether ownerID may proceed now.
func (o *OwnerLimiter) Allow(ownerID string) bool {
	o.mu.Lock()
	var limiter *rate.Limiter
	if v, ok := o.buckets.Get(ownerID); ok {
		limiter = v.(*rate.Limiter)
	} else {
		limiter = rate.NewLimiter(o.limit, o.burst)
	}
	// re-set to push back expiry
	o.buckets.SetDefault(ownerID, limiter)
	o.mu.Unlock()

	return limiter.Allow()
}

// NewOwnerRateLimitInterceptor limits the listed procedures per authenticated owner.
// It must run after the auth interceptor.
func NewOwnerRateLimitInterceptor(limiter *OwnerLimiter, procedures ...string) connect.UnaryInterceptorFunc {
	guarded := make(map[string]struct{}, len(procedures))
	for _, p := range procedures {
		guarded[p] = struct{}{}
	}

	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if _, ok := guarded[req.Spec().Procedure]; !ok {
				return next(ctx, req)
			}
			userID, ok := GetUserIDFromContext(ctx)
			if ok && !limiter.Allow(userID) {
				return nil, connect.NewError(connect.CodeResourceExhausted, errRateLimited)
			}
			return next(ctx, req)
		}
	}
}
