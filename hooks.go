package eldbook

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/teacon/eldbook/internal/movement"
	"github.com/teacon/eldbook/record"
)

// Entity is the host's view of a simulated entity.
type Entity interface {
	UUID() uuid.UUID
	Type() string
	Dimension() string
	Position() record.Vec3
}

// Callback is notified by the host when its entity moves or is removed.
type Callback interface {
	OnMove()
	OnRemove(reason RemovalReason)
}

// PassThrough is a Callback that does nothing.
type PassThrough struct{}

func (PassThrough) OnMove()                {}
func (PassThrough) OnRemove(RemovalReason) {}

// RemovalReason tells why an entity left the world.
type RemovalReason uint8

// Removal reasons reported by the host.
const (
	Killed RemovalReason = iota
	Discarded
	UnloadedToChunk
	UnloadedWithPlayer
	ChangedDimension
)

var removalReasonNames = [...]string{
	Killed:             "KILLED",
	Discarded:          "DISCARDED",
	UnloadedToChunk:    "UNLOADED_TO_CHUNK",
	UnloadedWithPlayer: "UNLOADED_WITH_PLAYER",
	ChangedDimension:   "CHANGED_DIMENSION",
}

func (r RemovalReason) String() string {
	if int(r) < len(removalReasonNames) {
		return removalReasonNames[r]
	}
	return fmt.Sprintf("RemovalReason(%d)", uint8(r))
}

// ShouldSave reports whether the entity is persisted by the host and may
// come back. Such removals are logged as UNLOAD, all others as DROP.
func (r RemovalReason) ShouldSave() bool {
	return r == UnloadedToChunk || r == UnloadedWithPlayer
}

// Kind returns the lifecycle kind logged for the removal.
func (r RemovalReason) Kind() record.Kind {
	if r.ShouldSave() {
		return record.Unload
	}
	return record.Drop
}

// Track wraps parent so that moves across sections and removals of e are
// logged. The parent is always notified first. A bypassed book returns
// parent itself.
func (b *Book) Track(e Entity, parent Callback) Callback {
	if !b.enabled {
		return parent
	}
	if parent == nil {
		parent = PassThrough{}
	}
	return &trackingCallback{
		book:    b,
		entity:  e,
		parent:  parent,
		tracker: movement.NewTracker(e.Position()),
	}
}

// EntityAdded logs LOAD for an entity read back from storage and CREATE for
// a new one.
func (b *Book) EntityAdded(e Entity, loaded bool) {
	if !b.enabled {
		return
	}
	kind := record.Create
	if loaded {
		kind = record.Load
	}
	b.emit(b.event(e, kind, e.Position(), b.now(), b.opts.contextProvider()))
}

type trackingCallback struct {
	book    *Book
	entity  Entity
	parent  Callback
	tracker *movement.Tracker
}

func (c *trackingCallback) OnMove() {
	c.parent.OnMove()
	from, to, crossed := c.tracker.Update(c.entity.Position())
	if !crossed {
		return
	}
	b := c.book
	t := b.now()
	stack := b.opts.contextProvider()
	b.emit(b.event(c.entity, record.Leave, from, t, stack))
	b.emit(b.event(c.entity, record.Enter, to, t, stack))
}

func (c *trackingCallback) OnRemove(reason RemovalReason) {
	c.parent.OnRemove(reason)
	b := c.book
	b.emit(b.event(c.entity, reason.Kind(), c.entity.Position(), b.now(), b.opts.contextProvider()))
}

func (b *Book) event(e Entity, kind record.Kind, pos record.Vec3, t time.Time, stack []string) record.Event {
	return record.Event{
		Time:       t,
		Kind:       kind,
		EntityID:   e.UUID(),
		EntityType: e.Type(),
		Dimension:  e.Dimension(),
		Pos:        pos,
		Context:    stack,
	}
}

// emit records ev and hands failures to the error handler, since hooks
// have no way to return them to the host.
func (b *Book) emit(ev record.Event) {
	if err := b.Record(ev); err != nil {
		if h := b.opts.errorHandler; h != nil {
			h(ev, err)
			return
		}
		b.opts.logger.LogWriteFailure(context.Background(), ev.Kind, ev.EntityID, err)
	}
}

const (
	selfPackage   = "github.com/teacon/eldbook."
	maxStackDepth = 64
)

// CallerContext captures the calling goroutine's stack as
// "function (file:line)" entries, innermost first. Frames of this package
// and of the Go runtime are left out.
func CallerContext() []string {
	pcs := make([]uintptr, maxStackDepth)
	n := runtime.Callers(2, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	var out []string
	for {
		f, more := frames.Next()
		if f.Function != "" && !ownFrame(f.Function) {
			out = append(out, fmt.Sprintf("%s (%s:%d)", f.Function, f.File, f.Line))
		}
		if !more {
			break
		}
	}
	return out
}

func ownFrame(fn string) bool {
	return strings.HasPrefix(fn, selfPackage) || strings.HasPrefix(fn, "runtime.")
}
