package record

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Kind is the lifecycle event type.
type Kind uint8

const (
	Create Kind = iota
	Drop
	Load
	Unload
	Enter
	Leave
)

var kindNames = [...]string{
	Create: "CREATE",
	Drop:   "DROP",
	Load:   "LOAD",
	Unload: "UNLOAD",
	Enter:  "ENTER",
	Leave:  "LEAVE",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// ParseKind parses the upper-case name of a Kind.
func ParseKind(s string) (Kind, error) {
	for i, name := range kindNames {
		if name == s {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown event kind %q", s)
}

// SectionShift is log2 of the section edge length.
const SectionShift = 4

// SectionSize is the edge length of a section in world units.
const SectionSize = 1 << SectionShift

// Vec3 is a world position.
type Vec3 struct {
	X, Y, Z float64
}

// Section is a 16x16x16 cell of the world grid.
type Section struct {
	X, Y, Z int
}

// SectionOf returns the section containing pos.
func SectionOf(pos Vec3) Section {
	return Section{
		X: floor(pos.X) >> SectionShift,
		Y: floor(pos.Y) >> SectionShift,
		Z: floor(pos.Z) >> SectionShift,
	}
}

// Origin returns the minimum corner of the section.
func (s Section) Origin() Vec3 {
	return Vec3{
		X: float64(s.X << SectionShift),
		Y: float64(s.Y << SectionShift),
		Z: float64(s.Z << SectionShift),
	}
}

// Offset returns pos relative to the origin of its section.
func Offset(pos Vec3) Vec3 {
	o := SectionOf(pos).Origin()
	return Vec3{X: pos.X - o.X, Y: pos.Y - o.Y, Z: pos.Z - o.Z}
}

// floor saturates to the int32 range and maps NaN to zero, matching the
// host's integer block coordinates.
func floor(v float64) int {
	switch {
	case math.IsNaN(v):
		return 0
	case v >= math.MaxInt32:
		return math.MaxInt32
	case v <= math.MinInt32:
		return math.MinInt32
	}
	return int(math.Floor(v))
}

// Event is one immutable lifecycle record.
type Event struct {
	Time       time.Time
	Kind       Kind
	EntityID   uuid.UUID
	EntityType string // namespaced, e.g. "minecraft:zombie"
	Dimension  string // e.g. "minecraft:overworld"
	Pos        Vec3
	Context    []string
}

// Section returns the section of the event position.
func (e Event) Section() Section { return SectionOf(e.Pos) }
