package resource

// Handle is an opaque reference to an entry in a table.
// Handle 0 is reserved and always invalid.
type Handle uint32

// EventType identifies a lifecycle notification.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDropped
	EventRef
	EventUnref
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventDropped:
		return "dropped"
	case EventRef:
		return "ref"
	case EventUnref:
		return "unref"
	default:
		return "unknown"
	}
}

// Event represents an entry lifecycle event.
type Event struct {
	Value  any
	Handle Handle
	Tag    uint32
	Count  uint32
	Type   EventType
}

// Observer receives notifications about entry lifecycle events.
// Observers are called without the table lock held.
type Observer interface {
	OnResourceEvent(Event)
}

// Dropper is optionally implemented by values that need cleanup when their
// entry is removed or the table is closed.
type Dropper interface {
	Drop()
}
