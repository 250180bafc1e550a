package eldbook

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teacon/eldbook/record"
)

type testEntity struct {
	mu  sync.Mutex
	id  uuid.UUID
	pos record.Vec3
}

func (e *testEntity) UUID() uuid.UUID   { return e.id }
func (e *testEntity) Type() string      { return "minecraft:zombie" }
func (e *testEntity) Dimension() string { return "minecraft:overworld" }

func (e *testEntity) Position() record.Vec3 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pos
}

func (e *testEntity) moveTo(x, y, z float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pos = record.Vec3{X: x, Y: y, Z: z}
}

type countingCallback struct {
	moves   int
	removed []RemovalReason
}

func (c *countingCallback) OnMove()                       { c.moves++ }
func (c *countingCallback) OnRemove(reason RemovalReason) { c.removed = append(c.removed, reason) }

func TestRemovalReason(t *testing.T) {
	tests := []struct {
		reason RemovalReason
		save   bool
		kind   record.Kind
		name   string
	}{
		{Killed, false, record.Drop, "KILLED"},
		{Discarded, false, record.Drop, "DISCARDED"},
		{UnloadedToChunk, true, record.Unload, "UNLOADED_TO_CHUNK"},
		{UnloadedWithPlayer, true, record.Unload, "UNLOADED_WITH_PLAYER"},
		{ChangedDimension, false, record.Drop, "CHANGED_DIMENSION"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.save, tt.reason.ShouldSave())
			assert.Equal(t, tt.kind, tt.reason.Kind())
			assert.Equal(t, tt.name, tt.reason.String())
		})
	}
	assert.Equal(t, "RemovalReason(9)", RemovalReason(9).String())
}

func TestTrack_LogsCrossingsAndRemovals(t *testing.T) {
	clock := newFakeClock(at(20, 0, 0))
	b := newTestBook(t, clock)
	require.NoError(t, b.Start(t.Context()))

	e := &testEntity{id: uuid.New(), pos: record.Vec3{X: 10, Y: 64, Z: 10}}
	parent := &countingCallback{}
	b.EntityAdded(e, true)
	cb := b.Track(e, parent)

	e.moveTo(15, 64, 10)
	cb.OnMove()
	e.moveTo(16, 64, 10)
	cb.OnMove()
	cb.OnRemove(UnloadedToChunk)
	cb.OnRemove(Killed)

	assert.Equal(t, 2, parent.moves)
	assert.Equal(t, []RemovalReason{UnloadedToChunk, Killed}, parent.removed)

	require.NoError(t, b.Stop(t.Context()))
	lines := rawLines(t, filepath.Join(b.Dir(), "2024-03-01T20.log"))
	require.Len(t, lines, 5)

	var kinds []string
	for _, l := range lines {
		kinds = append(kinds, field(l, "type"))
		assert.Equal(t, e.id.String(), field(l, "uuid"))
		assert.Equal(t, "minecraft:zombie", field(l, "entity"))
		assert.Contains(t, l, `stacktrace="host.tick (server.go:1)\n"`)
	}
	assert.Equal(t, []string{"LOAD", "LEAVE", "ENTER", "UNLOAD", "DROP"}, kinds)

	leave, enter := lines[1], lines[2]
	assert.Equal(t, field(leave, "time"), field(enter, "time"))
	assert.Equal(t, "0", field(leave, "section.x"))
	assert.Equal(t, "15.000000", field(leave, "offset.x"))
	assert.Equal(t, "1", field(enter, "section.x"))
	assert.Equal(t, "0.000000", field(enter, "offset.x"))
}

func TestTrack_NilParent(t *testing.T) {
	b := newTestBook(t, newFakeClock(at(20, 0, 0)))
	require.NoError(t, b.Start(t.Context()))

	cb := b.Track(&testEntity{id: uuid.New()}, nil)
	assert.NotPanics(t, func() {
		cb.OnMove()
		cb.OnRemove(Discarded)
	})
	require.NoError(t, b.Stop(t.Context()))
}

func TestEntityAdded_Create(t *testing.T) {
	b := newTestBook(t, newFakeClock(at(20, 0, 0)))
	require.NoError(t, b.Start(t.Context()))
	b.EntityAdded(&testEntity{id: uuid.New()}, false)
	require.NoError(t, b.Stop(t.Context()))

	lines := rawLines(t, filepath.Join(b.Dir(), "2024-03-01T20.log"))
	require.Len(t, lines, 1)
	assert.Equal(t, "CREATE", field(lines[0], "type"))
}

func TestHooks_ErrorHandler(t *testing.T) {
	var (
		mu     sync.Mutex
		failed []record.Kind
	)
	b := newTestBook(t, newFakeClock(at(20, 0, 0)), WithErrorHandler(func(ev record.Event, err error) {
		mu.Lock()
		defer mu.Unlock()
		assert.ErrorIs(t, err, ErrNotStarted)
		failed = append(failed, ev.Kind)
	}))

	// Not started: every hook event is dropped, the host never notices.
	e := &testEntity{id: uuid.New()}
	cb := b.Track(e, PassThrough{})
	e.moveTo(100, 0, 0)
	cb.OnMove()
	b.EntityAdded(e, false)

	assert.Equal(t, []record.Kind{record.Leave, record.Enter, record.Create}, failed)
	assert.Equal(t, int64(3), b.Stats().Dropped)
}
