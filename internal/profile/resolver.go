// Package profile resolves user ids referenced by comments and reactions to
// display profiles, memoizing results and coalescing concurrent lookups.
package profile

import (
	"context"
	"discuss/internal/models"
	"strconv"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Lookup fetches one user's profile from wherever users live.
type Lookup interface {
	LookupUser(ctx context.Context, id models.UserID) (models.Profile, error)
}

// Cache is an optional second tier shared between processes (Redis).
type Cache interface {
	GetProfile(ctx context.Context, id models.UserID) (models.Profile, bool)
	SetProfile(ctx context.Context, p models.Profile)
}

// Reactor pairs a reaction with the resolved profile of its author.
type Reactor struct {
	models.Reaction
	Profile models.Profile `json:"profile"`
}

type Option func(*Resolver)

func WithCache(c Cache) Option {
	return func(r *Resolver) { r.cache = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// WithConcurrency bounds parallel lookups in ResolveReactors.
func WithConcurrency(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

type Resolver struct {
	lookup      Lookup
	cache       Cache
	logger      *zap.Logger
	concurrency int

	mu     sync.RWMutex
	memo   map[models.UserID]models.Profile
	gen    uint64 // Reset 时递增，旧查询的结果不再写入 memo
	flight singleflight.Group
}

func NewResolver(lookup Lookup, opts ...Option) *Resolver {
	r := &Resolver{
		lookup:      lookup,
		concurrency: 8,
		memo:        make(map[models.UserID]models.Profile),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = zap.L()
	}
	return r
}

// Resolve never fails: when the lookup errors the profile degrades to the raw
// id as the display name, and the failure is not memoized.
func (r *Resolver) Resolve(ctx context.Context, id models.UserID) models.Profile {
	p, ok, gen := r.cachedAt(id)
	if ok {
		return p
	}

	// key 带上代数，Reset 之后的调用不会拿到旧一代的查询结果
	key := strconv.FormatUint(gen, 10) + ":" + strconv.FormatUint(uint64(id), 10)
	// 共享的查询不跟随单个调用方取消
	ch := r.flight.DoChan(key, func() (interface{}, error) {
		return r.load(context.WithoutCancel(ctx), id, gen)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			r.logger.Warn("resolve user profile failed", zap.Uint("user_id", uint(id)), zap.Error(res.Err))
			return Fallback(id)
		}
		return res.Val.(models.Profile)
	case <-ctx.Done():
		return Fallback(id)
	}
}

// ResolveReactors resolves every reacting user of a snapshot concurrently.
// The result keeps the snapshot's order.
func (r *Resolver) ResolveReactors(ctx context.Context, snap models.ReactionSnapshot) []Reactor {
	out := make([]Reactor, len(snap.Reactions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, re := range snap.Reactions {
		i, re := i, re
		g.Go(func() error {
			out[i] = Reactor{Reaction: re, Profile: r.Resolve(gctx, re.UserID)}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Prime seeds the memo with profiles already known, e.g. comment authors
// delivered with a thread.
func (r *Resolver) Prime(profiles ...models.Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range profiles {
		if p.Name == "" {
			continue
		}
		r.memo[p.ID] = p
	}
}

// Reset drops the memo, used when the rendered thread is torn down. Lookups
// still in flight finish for their callers but are not memoized.
func (r *Resolver) Reset() {
	r.mu.Lock()
	r.memo = make(map[models.UserID]models.Profile)
	r.gen++
	r.mu.Unlock()
}

func (r *Resolver) cached(id models.UserID) (models.Profile, bool) {
	p, ok, _ := r.cachedAt(id)
	return p, ok
}

func (r *Resolver) cachedAt(id models.UserID) (models.Profile, bool, uint64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.memo[id]
	return p, ok, r.gen
}

func (r *Resolver) load(ctx context.Context, id models.UserID, gen uint64) (models.Profile, error) {
	if r.cache != nil {
		if p, ok := r.cache.GetProfile(ctx, id); ok {
			r.remember(p, gen)
			return p, nil
		}
	}

	p, err := r.lookup.LookupUser(ctx, id)
	if err != nil {
		return models.Profile{}, err
	}
	p.ID = id
	if p.Name == "" {
		p.Name = Fallback(id).Name
	}

	r.remember(p, gen)
	if r.cache != nil {
		r.cache.SetProfile(ctx, p)
	}
	return p, nil
}

func (r *Resolver) remember(p models.Profile, gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.gen {
		return
	}
	r.memo[p.ID] = p
}

// Fallback is the degraded profile shown when a user cannot be resolved.
func Fallback(id models.UserID) models.Profile {
	return models.Profile{ID: id, Name: strconv.FormatUint(uint64(id), 10)}
}
