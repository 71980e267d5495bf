package store

// LookupState classifies the outcome of a lookup.
type LookupState int

const (
	StateNotFound LookupState = iota
	StateFound
	StateAlreadyDeleted
)

func (s LookupState) String() string {
	switch s {
	case StateFound:
		return "found"
	case StateAlreadyDeleted:
		return "already_deleted"
	default:
		return "not_found"
	}
}

// Lookup is the result of fetching an entity that other actors may delete
// concurrently.
type Lookup[T any] struct {
	Value T
	State LookupState
}

// Found wraps an existing value.
func Found[T any](value T) Lookup[T] {
	return Lookup[T]{Value: value, State: StateFound}
}

// NotFound reports that the entity never existed.
func NotFound[T any]() Lookup[T] {
	return Lookup[T]{State: StateNotFound}
}

// AlreadyDeleted reports that the entity existed but has been deleted.
func AlreadyDeleted[T any]() Lookup[T] {
	return Lookup[T]{State: StateAlreadyDeleted}
}

// Get returns the value and whether it was found.
func (l Lookup[T]) Get() (T, bool) {
	return l.Value, l.State == StateFound
}

// Ok reports whether the lookup found the entity.
func (l Lookup[T]) Ok() bool {
	return l.State == StateFound
}
