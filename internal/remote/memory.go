package remote

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/thejonthinator/frysen/internal/inventory"
	pkgerrors "github.com/thejonthinator/frysen/pkg/errors"
)

// MemoryGateway keeps families in process memory. Writes are delivered to
// subscribers asynchronously, like a real broker would.
type MemoryGateway struct {
	mu       sync.Mutex
	families map[string]string
	rows     map[string]Snapshot
	subs     map[string]map[int]func(Snapshot)
	nextSub  int
	writes   []Snapshot
	writeErr error
	delivery sync.WaitGroup
}

var _ Gateway = (*MemoryGateway)(nil)

func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		families: map[string]string{},
		rows:     map[string]Snapshot{},
		subs:     map[string]map[int]func(Snapshot){},
	}
}

func (g *MemoryGateway) ReadSnapshot(_ context.Context, familyID string) (*Snapshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	row, ok := g.rows[familyID]
	if !ok {
		return nil, nil
	}
	out := copySnapshot(row)
	return &out, nil
}

func (g *MemoryGateway) WriteSnapshot(_ context.Context, familyID string, snap Snapshot) error {
	g.mu.Lock()
	if g.writeErr != nil {
		err := g.writeErr
		g.mu.Unlock()
		return err
	}
	snap.FamilyID = familyID
	stored := copySnapshot(snap)
	g.rows[familyID] = stored
	g.writes = append(g.writes, stored)
	listeners := make([]func(Snapshot), 0, len(g.subs[familyID]))
	for _, fn := range g.subs[familyID] {
		listeners = append(listeners, fn)
	}
	g.mu.Unlock()

	for _, fn := range listeners {
		g.delivery.Add(1)
		go func(fn func(Snapshot)) {
			defer g.delivery.Done()
			fn(copySnapshot(stored))
		}(fn)
	}
	return nil
}

// Publish injects a snapshot as if another device had written it.
func (g *MemoryGateway) Publish(familyID string, snap Snapshot) {
	g.mu.Lock()
	snap.FamilyID = familyID
	g.rows[familyID] = copySnapshot(snap)
	listeners := make([]func(Snapshot), 0, len(g.subs[familyID]))
	for _, fn := range g.subs[familyID] {
		listeners = append(listeners, fn)
	}
	g.mu.Unlock()
	for _, fn := range listeners {
		fn(copySnapshot(snap))
	}
}

func (g *MemoryGateway) Subscribe(_ context.Context, familyID string, fn func(Snapshot)) (Subscription, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.subs[familyID] == nil {
		g.subs[familyID] = map[int]func(Snapshot){}
	}
	id := g.nextSub
	g.nextSub++
	g.subs[familyID][id] = fn
	return &memorySubscription{gateway: g, familyID: familyID, id: id}, nil
}

func (g *MemoryGateway) CreateFamily(_ context.Context, name, deviceID string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "family name is required")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	id := NewFamilyID()
	g.families[id] = name
	g.rows[id] = Snapshot{FamilyID: id, Drawers: json.RawMessage(`{}`), DeviceID: deviceID, Version: inventory.DataVersion}
	return id, nil
}

func (g *MemoryGateway) JoinFamily(_ context.Context, familyID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.families[familyID]; !ok {
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "family %s not found", familyID)
	}
	return nil
}

// AddFamily registers a family directly.
func (g *MemoryGateway) AddFamily(familyID, name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.families[familyID] = name
}

// Writes returns every snapshot written so far.
func (g *MemoryGateway) Writes() []Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Snapshot, len(g.writes))
	copy(out, g.writes)
	return out
}

// Subscribers counts live subscriptions for a family.
func (g *MemoryGateway) Subscribers(familyID string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.subs[familyID])
}

// FailWrites makes WriteSnapshot return err until called with nil.
func (g *MemoryGateway) FailWrites(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.writeErr = err
}

// WaitDelivered blocks until every pending subscriber delivery has returned.
func (g *MemoryGateway) WaitDelivered() {
	g.delivery.Wait()
}

type memorySubscription struct {
	gateway  *MemoryGateway
	familyID string
	id       int
	once     sync.Once
}

func (s *memorySubscription) Close() error {
	s.once.Do(func() {
		s.gateway.mu.Lock()
		defer s.gateway.mu.Unlock()
		delete(s.gateway.subs[s.familyID], s.id)
	})
	return nil
}

func copySnapshot(s Snapshot) Snapshot {
	out := s
	out.Drawers = append(json.RawMessage{}, s.Drawers...)
	if s.ShoppingList != nil {
		out.ShoppingList = append(s.ShoppingList[:0:0], s.ShoppingList...)
	}
	return out
}
