package domain

import (
	"errors"
	"fmt"
)

// StateName identifies one of the canonical lifecycle states shared by
// tasks and stages.
type StateName string

// The four canonical lifecycle states. The states table is seeded with
// exactly these names; every task and stage references one of them.
const (
	StatePending    StateName = "pending"
	StateInProgress StateName = "in-progress"
	StateCompleted  StateName = "completed"
	StateOverdue    StateName = "overdue"
)

// CanonicalStateNames lists the states that must exist before any task or
// stage mutation runs.
var CanonicalStateNames = []StateName{
	StatePending,
	StateInProgress,
	StateCompleted,
	StateOverdue,
}

// Common state errors
var (
	// ErrStateMissing indicates that a canonical state is absent from the
	// database. This is a configuration error: the component that needs the
	// state cannot run without it.
	ErrStateMissing = errors.New("canonical state missing")

	// ErrUnknownState indicates that a state id or name does not resolve
	// to a registered state.
	ErrUnknownState = errors.New("unknown state")
)

// State is a named lifecycle state with a stable small integer id.
// The set is seeded once by migration and is read-only at runtime.
type State struct {
	ID          int16     `json:"id"`
	Name        StateName `json:"name"`
	Description string    `json:"description"`
}

// StateRegistry is the bidirectional name/id map for the canonical states.
// It is built once at startup from the states table and never mutated
// afterwards, so it is safe for concurrent reads from every component.
type StateRegistry struct {
	byName map[StateName]int16
	byID   map[int16]StateName
}

// NewStateRegistry builds a registry from the given states. It returns
// ErrStateMissing if any of the four canonical names is absent.
func NewStateRegistry(states []State) (*StateRegistry, error) {
	reg := &StateRegistry{
		byName: make(map[StateName]int16, len(states)),
		byID:   make(map[int16]StateName, len(states)),
	}

	for _, s := range states {
		reg.byName[s.Name] = s.ID
		reg.byID[s.ID] = s.Name
	}

	for _, name := range CanonicalStateNames {
		if _, ok := reg.byName[name]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrStateMissing, name)
		}
	}

	return reg, nil
}

// IDOf returns the id of the named state.
func (r *StateRegistry) IDOf(name StateName) (int16, error) {
	id, ok := r.byName[name]
	if !ok {
		return 0, fmt.Errorf("%w: name %q", ErrUnknownState, name)
	}
	return id, nil
}

// NameOf returns the name of the state with the given id.
func (r *StateRegistry) NameOf(id int16) (StateName, error) {
	name, ok := r.byID[id]
	if !ok {
		return "", fmt.Errorf("%w: id %d", ErrUnknownState, id)
	}
	return name, nil
}

// MustID returns the id of a canonical state. It panics on a name that is
// not registered, which cannot happen for a registry built by
// NewStateRegistry and a canonical name.
func (r *StateRegistry) MustID(name StateName) int16 {
	id, err := r.IDOf(name)
	if err != nil {
		// ALLOW-PANIC: registry construction guarantees canonical names
		panic(err)
	}
	return id
}
