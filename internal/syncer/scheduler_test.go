package syncer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/thejonthinator/frysen/internal/inventory"
	"github.com/thejonthinator/frysen/internal/remote"
	"github.com/thejonthinator/frysen/pkg/logger"
	"github.com/thejonthinator/frysen/pkg/metrics"
)

func snapshotWith(t *testing.T, names ...string) inventory.Snapshot {
	t.Helper()
	snap := inventory.NewSnapshot()
	for _, name := range names {
		_, err := snap.AddItem(inventory.DefaultDrawerID, name, time.Now())
		require.NoError(t, err)
	}
	return snap
}

// state stands in for the engine: it holds what a write should upload.
type state struct {
	mu    sync.Mutex
	p     Pending
	reads int
}

func (c *state) set(p Pending) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.p = p
}

func (c *state) source() (Pending, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reads++
	return c.p, c.p.FamilyID != ""
}

func (c *state) Reads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}

func newScheduler(t *testing.T, gw remote.Gateway, debounce time.Duration) (*Scheduler, *state) {
	t.Helper()
	current := &state{}
	s, err := New(Params{
		Gateway:  gw,
		Source:   current.source,
		Logger:   logger.Nop(),
		Metrics:  metrics.NewSyncMetrics(prometheus.NewRegistry()),
		Debounce: debounce,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s, current
}

// change records new state and schedules its upload, the way a mutation does.
func change(t *testing.T, s *Scheduler, current *state, p Pending) {
	t.Helper()
	current.set(p)
	require.NoError(t, s.Schedule())
}

func TestScheduleCoalescesBurst(t *testing.T) {
	gw := remote.NewMemoryGateway()
	s, current := newScheduler(t, gw, 30*time.Millisecond)

	for i := 1; i <= 5; i++ {
		names := make([]string, i)
		for j := range names {
			names[j] = "vara"
		}
		change(t, s, current, Pending{FamilyID: "family_1", DeviceID: "device_a", Data: snapshotWith(t, names...)})
	}

	require.Eventually(t, func() bool { return len(gw.Writes()) == 1 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(80 * time.Millisecond)
	writes := gw.Writes()
	require.Len(t, writes, 1)
	require.Equal(t, 1, current.Reads())

	got := writes[0]
	require.Equal(t, "device_a", got.DeviceID)
	require.Equal(t, inventory.DataVersion, got.Version)
	require.False(t, got.LastUpdated.IsZero())
	decoded, err := inventory.Decode(got.Drawers)
	require.NoError(t, err)
	require.Equal(t, inventory.KindModular, decoded.Kind)
	require.Len(t, decoded.Modular.DefaultDrawer.Items, 5)
	require.False(t, s.LastSuccess().IsZero())
}

func TestWriteUploadsStateCurrentWhenItRuns(t *testing.T) {
	gw := remote.NewMemoryGateway()
	s, current := newScheduler(t, gw, time.Hour)

	change(t, s, current, Pending{FamilyID: "family_1", DeviceID: "device_a", Data: snapshotWith(t, "Lax")})
	// replaced without a new Schedule, as a merged remote snapshot would be
	current.set(Pending{FamilyID: "family_1", DeviceID: "device_a", Data: snapshotWith(t, "Sill")})
	require.NoError(t, s.Flush(context.Background()))

	writes := gw.Writes()
	require.Len(t, writes, 1)
	decoded, err := inventory.Decode(writes[0].Drawers)
	require.NoError(t, err)
	require.Equal(t, "Sill", decoded.Modular.DefaultDrawer.Items[0].Name)
}

func TestWriteStampsSnapshotTime(t *testing.T) {
	gw := remote.NewMemoryGateway()
	s, current := newScheduler(t, gw, time.Hour)

	edited := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	data := snapshotWith(t, "Lax")
	data.LastUpdated = inventory.FormatDate(edited)
	change(t, s, current, Pending{FamilyID: "family_1", DeviceID: "device_a", Data: data})
	require.NoError(t, s.Flush(context.Background()))

	writes := gw.Writes()
	require.Len(t, writes, 1)
	require.True(t, edited.Equal(writes[0].LastUpdated))
}

func TestScheduleWithoutFamilyIsNoop(t *testing.T) {
	gw := remote.NewMemoryGateway()
	s, current := newScheduler(t, gw, time.Hour)

	change(t, s, current, Pending{DeviceID: "device_a", Data: snapshotWith(t, "Lax")})
	require.True(t, s.HasPending())
	require.NoError(t, s.Flush(context.Background()))
	require.False(t, s.HasPending())
	require.Empty(t, gw.Writes())
}

func TestFlushWithoutScheduleDoesNothing(t *testing.T) {
	gw := remote.NewMemoryGateway()
	s, current := newScheduler(t, gw, time.Hour)
	current.set(Pending{FamilyID: "family_1", Data: snapshotWith(t, "Lax")})

	require.NoError(t, s.Flush(context.Background()))
	require.Empty(t, gw.Writes())
	require.Zero(t, current.Reads())
}

func TestCancelDropsPendingWrite(t *testing.T) {
	gw := remote.NewMemoryGateway()
	s, current := newScheduler(t, gw, 20*time.Millisecond)

	change(t, s, current, Pending{FamilyID: "family_1", Data: snapshotWith(t, "Lax")})
	s.Cancel()
	time.Sleep(60 * time.Millisecond)
	require.Empty(t, gw.Writes())
	require.False(t, s.HasPending())
}

func TestFlushWritesImmediately(t *testing.T) {
	gw := remote.NewMemoryGateway()
	s, current := newScheduler(t, gw, time.Hour)

	change(t, s, current, Pending{FamilyID: "family_1", DeviceID: "device_a", Data: snapshotWith(t, "Lax")})
	require.NoError(t, s.Flush(context.Background()))
	require.Len(t, gw.Writes(), 1)
	require.NoError(t, s.Flush(context.Background()))
	require.Len(t, gw.Writes(), 1)
}

func TestFlushReportsGatewayFailure(t *testing.T) {
	gw := remote.NewMemoryGateway()
	gw.FailWrites(errors.New("offline"))
	s, current := newScheduler(t, gw, time.Hour)

	change(t, s, current, Pending{FamilyID: "family_1", Data: snapshotWith(t, "Lax")})
	require.Error(t, s.Flush(context.Background()))
	require.True(t, s.LastSuccess().IsZero())
	require.False(t, s.InFlight())
}

type blockingGateway struct {
	*remote.MemoryGateway
	started chan struct{}
	release chan struct{}
}

func (g *blockingGateway) WriteSnapshot(ctx context.Context, familyID string, snap remote.Snapshot) error {
	g.started <- struct{}{}
	<-g.release
	return g.MemoryGateway.WriteSnapshot(ctx, familyID, snap)
}

func TestOverlappingWriteIsDropped(t *testing.T) {
	gw := &blockingGateway{
		MemoryGateway: remote.NewMemoryGateway(),
		started:       make(chan struct{}, 1),
		release:       make(chan struct{}),
	}
	s, current := newScheduler(t, gw, time.Hour)

	change(t, s, current, Pending{FamilyID: "family_1", Data: snapshotWith(t, "first")})
	done := make(chan error, 1)
	go func() { done <- s.Flush(context.Background()) }()
	<-gw.started
	require.True(t, s.InFlight())

	change(t, s, current, Pending{FamilyID: "family_1", Data: snapshotWith(t, "second")})
	require.NoError(t, s.Flush(context.Background()))

	close(gw.release)
	require.NoError(t, <-done)
	require.Len(t, gw.Writes(), 1)
}

func TestNewRequiresSource(t *testing.T) {
	_, err := New(Params{Logger: logger.Nop()})
	require.Error(t, err)
}

func TestScheduleAfterClose(t *testing.T) {
	gw := remote.NewMemoryGateway()
	current := &state{}
	s, err := New(Params{Gateway: gw, Source: current.source, Logger: logger.Nop(), Debounce: time.Hour})
	require.NoError(t, err)

	change(t, s, current, Pending{FamilyID: "family_1", Data: snapshotWith(t, "Lax")})
	require.NoError(t, s.Close(context.Background()))
	require.Len(t, gw.Writes(), 1)
	require.ErrorIs(t, s.Schedule(), ErrClosed)
}
