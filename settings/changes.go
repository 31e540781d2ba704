package settings

import (
	"context"
	"sync"

	"github.com/hupe1980/fabricsync/core"
)

// ChangeKind identifies the event that changed the session state.
type ChangeKind string

const (
	ChangeTenant      ChangeKind = "tenant"
	ChangeEnvironment ChangeKind = "environment"
)

// Change is a typed settings change event.
type Change struct {
	Kind        ChangeKind
	Tenant      *core.TenantSettings // ChangeTenant
	Environment string               // ChangeEnvironment
}

// Apply computes the settings that result from c. It does not mutate s.
//
// Switching environment clears the current tenant since tenants are scoped to
// an environment. Folder mappings are left alone; they carry their own
// environment tag.
func Apply(s core.Settings, c Change) core.Settings {
	out := s.Clone()
	switch c.Kind {
	case ChangeTenant:
		if c.Tenant == nil {
			out.CurrentTenant = nil
			break
		}
		t := *c.Tenant
		out.CurrentTenant = &t
	case ChangeEnvironment:
		if out.Environment != c.Environment {
			out.CurrentTenant = nil
		}
		out.Environment = c.Environment
	}
	return out
}

// Subscriber is notified after a change has been persisted.
type Subscriber func(c Change, updated core.Settings)

// Coordinator applies change events to a Manager and notifies subscribers
// once the new record has been persisted.
type Coordinator struct {
	manager *Manager

	mu     sync.Mutex
	nextID int
	subs   map[int]Subscriber
}

// NewCoordinator returns a coordinator over m.
func NewCoordinator(m *Manager) *Coordinator {
	return &Coordinator{manager: m, subs: map[int]Subscriber{}}
}

// Subscribe registers fn and returns a function removing it again.
func (c *Coordinator) Subscribe(fn Subscriber) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

// Handle computes, persists and publishes a single change. Subscribers are
// not notified when persisting fails.
func (c *Coordinator) Handle(ctx context.Context, ch Change) error {
	if err := c.manager.Update(ctx, func(s *core.Settings) { *s = Apply(*s, ch) }); err != nil {
		return err
	}
	updated := c.manager.Snapshot()

	c.mu.Lock()
	subs := make([]Subscriber, 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(ch, updated)
	}
	return nil
}

// Listen handles changes from events until the channel is closed or ctx is
// done. The first persistence error stops the loop.
func (c *Coordinator) Listen(ctx context.Context, events <-chan Change) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ch, ok := <-events:
			if !ok {
				return nil
			}
			if err := c.Handle(ctx, ch); err != nil {
				return err
			}
		}
	}
}
