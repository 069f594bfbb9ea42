// Package optimistic applies reaction toggles locally before the server
// confirms them and reconciles the speculative state with the server's
// answer and with background refreshes.
//
// Per entity the controller runs Idle -> Speculating -> (Reconciled |
// RolledBack) -> Idle. Only one request per entity is in flight at a time;
// further clicks while it is in flight are coalesced into it.
package optimistic

import (
	"context"
	"discuss/internal/apperr"
	"discuss/internal/models"
	"discuss/internal/reaction"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Option func(*Controller)

func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

func WithMetrics(m *Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

type pending struct {
	PendingMutation
	viewer models.UserID
	// intent is the viewer reaction the latest click asked for, sent the one
	// the request currently in flight was issued for.
	intent models.ReactionCategory
	sent   models.ReactionCategory

	done   chan struct{}
	result models.ReactionSnapshot
	err    error
}

type entry struct {
	current models.ReactionSnapshot
	pending *pending
}

type Controller struct {
	mutator Mutator
	viewer  Viewer
	now     func() time.Time
	logger  *zap.Logger
	metrics *Metrics

	mu        sync.Mutex
	entries   map[models.EntityRef]*entry
	listeners []Listener
}

func NewController(mutator Mutator, viewer Viewer, opts ...Option) *Controller {
	c := &Controller{
		mutator: mutator,
		viewer:  viewer,
		now:     time.Now,
		entries: make(map[models.EntityRef]*entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = zap.L()
	}
	if c.metrics == nil {
		c.metrics = NewMetrics(nil)
	}
	return c
}

// Subscribe registers fn for every future update.
func (c *Controller) Subscribe(fn Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Toggle applies a viewer click on entity. The speculative snapshot is
// published before the request is sent. Toggle returns once the toggle has
// settled: the server's snapshot on success, the restored snapshot and the
// error on failure.
//
// A click on an entity that already has a request in flight does not send a
// request of its own; it joins the in-flight one and returns its outcome.
func (c *Controller) Toggle(ctx context.Context, entity models.EntityRef, category models.ReactionCategory) (models.ReactionSnapshot, error) {
	if !category.Valid() {
		return models.ReactionSnapshot{}, fmt.Errorf("toggle %s: %w: unknown reaction %q", entity, apperr.ErrValidationFailed, category)
	}
	viewer, ok := c.viewer.CurrentViewerID()
	if !ok {
		return models.ReactionSnapshot{}, fmt.Errorf("toggle %s: %w", entity, apperr.ErrUnauthenticated)
	}

	c.mu.Lock()
	e := c.entry(entity)
	if p := e.pending; p != nil {
		p.Speculative = speculate(p.Speculative, viewer, category, c.now())
		p.intent = p.Speculative.ViewerReaction
		e.current = p.Speculative
		c.publish(entity, e.current, PhaseSpeculating)
		c.metrics.Coalesced.Inc()
		c.mu.Unlock()

		c.logger.Debug("reaction click coalesced",
			zap.Stringer("entity", entity), zap.String("intent", string(p.intent)))
		return c.wait(ctx, p)
	}

	prev := e.current.Clone()
	spec := speculate(prev, viewer, category, c.now())
	p := &pending{
		PendingMutation: PendingMutation{
			Entity:      entity,
			Previous:    prev,
			Speculative: spec,
			InFlight:    true,
		},
		viewer: viewer,
		intent: spec.ViewerReaction,
		sent:   spec.ViewerReaction,
		done:   make(chan struct{}),
	}
	e.pending = p
	e.current = spec
	c.publish(entity, spec, PhaseSpeculating)
	c.metrics.Speculations.Inc()
	c.mu.Unlock()

	c.run(ctx, p, category)
	return p.result.Clone(), p.err
}

func (c *Controller) run(ctx context.Context, p *pending, category models.ReactionCategory) {
	for {
		snap, err := c.mutator.React(ctx, p.Entity, category)

		c.mu.Lock()
		e := c.entry(p.Entity)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && !apperr.Expected(err) {
				err = apperr.Unavailable("react", err)
			}
			e.current = p.Previous.Clone()
			e.pending = nil
			p.InFlight = false
			p.result, p.err = e.current, err
			c.publish(p.Entity, e.current, PhaseRolledBack)
			c.metrics.RolledBack.Inc()
			c.mu.Unlock()
			close(p.done)

			c.logger.Warn("reaction rolled back", zap.Stringer("entity", p.Entity), zap.Error(err))
			return
		}

		if snap.ViewerReaction != p.intent && p.intent != p.sent {
			// the viewer clicked again while the request was in flight
			category = reaction.CategoryToReach(snap.ViewerReaction, p.intent)
			p.sent = p.intent
			// 服务端已经应用了第一次请求，后续请求失败时回滚到这个结果
			p.Previous = snap.Clone()
			p.Speculative = rebase(snap, p.viewer, p.intent, c.now())
			e.current = p.Speculative
			c.publish(p.Entity, e.current, PhaseSpeculating)
			c.metrics.FollowUps.Inc()
			c.mu.Unlock()

			c.logger.Debug("reaction follow-up request",
				zap.Stringer("entity", p.Entity), zap.String("category", string(category)))
			continue
		}

		e.current = snap.Clone()
		e.pending = nil
		p.InFlight = false
		p.result = e.current
		c.publish(p.Entity, e.current, PhaseReconciled)
		c.metrics.Reconciled.Inc()
		c.mu.Unlock()
		close(p.done)
		return
	}
}

func (c *Controller) wait(ctx context.Context, p *pending) (models.ReactionSnapshot, error) {
	select {
	case <-p.done:
		return p.result.Clone(), p.err
	case <-ctx.Done():
		snap, _ := c.Snapshot(p.Entity)
		return snap, fmt.Errorf("toggle %s: %w", p.Entity, errors.Join(apperr.ErrRemoteUnavailable, ctx.Err()))
	}
}

// Observe feeds a snapshot received from a fetch or refresh. An entity with
// nothing in flight mirrors it. While a toggle is in flight:
//   - a snapshot with fewer reactions than the speculative one is stale and
//     dropped, so a refresh can never erase an optimistic click;
//   - otherwise it becomes the new known-good base and the viewer's pending
//     intent is re-applied on top of it.
//
// Observe returns the snapshot published for entity afterwards.
func (c *Controller) Observe(entity models.EntityRef, snap models.ReactionSnapshot) models.ReactionSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entry(entity)
	p := e.pending
	if p == nil || !p.InFlight {
		e.current = snap.Clone()
		c.publish(entity, e.current, PhaseIdle)
		return e.current.Clone()
	}

	if snap.Total < p.Speculative.Total {
		c.metrics.Discarded.Inc()
		c.logger.Debug("stale refresh discarded",
			zap.Stringer("entity", entity),
			zap.Int("refresh_total", snap.Total),
			zap.Int("speculative_total", p.Speculative.Total))
		return e.current.Clone()
	}

	p.Previous = snap.Clone()
	p.Speculative = rebase(snap, p.viewer, p.intent, c.now())
	e.current = p.Speculative
	c.publish(entity, e.current, PhaseSpeculating)
	return e.current.Clone()
}

// Snapshot returns the published snapshot of entity.
func (c *Controller) Snapshot(entity models.EntityRef) (models.ReactionSnapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[entity]
	if !ok {
		return models.ReactionSnapshot{}, false
	}
	return e.current.Clone(), true
}

// Pending returns the in-flight mutation of entity, if any.
func (c *Controller) Pending(entity models.EntityRef) (PendingMutation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[entity]
	if !ok || e.pending == nil {
		return PendingMutation{}, false
	}
	pm := e.pending.PendingMutation
	pm.Previous = pm.Previous.Clone()
	pm.Speculative = pm.Speculative.Clone()
	return pm, true
}

func (c *Controller) Phase(entity models.EntityRef) Phase {
	if _, ok := c.Pending(entity); ok {
		return PhaseSpeculating
	}
	return PhaseIdle
}

// Forget drops entities that are no longer rendered. Entities with a toggle
// in flight are kept until it settles.
func (c *Controller) Forget(entities ...models.EntityRef) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ent := range entities {
		if e, ok := c.entries[ent]; ok && e.pending == nil {
			delete(c.entries, ent)
		}
	}
}

// Reset forgets every idle entity.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for ent, e := range c.entries {
		if e.pending == nil {
			delete(c.entries, ent)
		}
	}
}

func (c *Controller) entry(entity models.EntityRef) *entry {
	e, ok := c.entries[entity]
	if !ok {
		e = &entry{current: reaction.ComputeSnapshot(nil, nil)}
		c.entries[entity] = e
	}
	return e
}

func (c *Controller) publish(entity models.EntityRef, snap models.ReactionSnapshot, phase Phase) {
	for _, fn := range c.listeners {
		fn(Update{Entity: entity, Snapshot: snap.Clone(), Phase: phase})
	}
}

func speculate(from models.ReactionSnapshot, viewer models.UserID, category models.ReactionCategory, now time.Time) models.ReactionSnapshot {
	list := reaction.Toggle(from.Reactions, viewer, category, now)
	return reaction.ComputeSnapshot(list, &viewer)
}

func rebase(base models.ReactionSnapshot, viewer models.UserID, intent models.ReactionCategory, now time.Time) models.ReactionSnapshot {
	list := reaction.Apply(base.Reactions, viewer, intent, now)
	return reaction.ComputeSnapshot(list, &viewer)
}
