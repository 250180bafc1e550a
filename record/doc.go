// Package record defines the entity lifecycle event model and its
// single-line text encoding.
//
// Each [Event] is rendered by [Format] as one line of space-separated
// key=value fields in a fixed order:
//
//	time=2024-03-01T19:45:00.000+08:00 type=ENTER entity=minecraft:zombie uuid=... dimension=minecraft:overworld section.x=0 section.y=4 section.z=0 offset.x=10.000000 offset.y=0.000000 offset.z=10.000000 stacktrace="frame\nframe\n"
//
// The diagnostic context is escaped so that the record never spans more
// than one physical line.
package record
