package statemachine

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// Machine is a thread-safe in-memory finite state machine.
// Transitions are looked up in a nested map: [from][event][]Transition.
type Machine[S, E Named] struct {
	mu          sync.RWMutex
	initial     S
	current     S
	transitions map[S]map[E][]Transition[S, E]
}

func newMachine[S, E Named](initial S) *Machine[S, E] {
	return &Machine[S, E]{
		initial:     initial,
		current:     initial,
		transitions: make(map[S]map[E][]Transition[S, E]),
	}
}

// Current returns the current state.
func (m *Machine[S, E]) Current() S {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// AddTransition registers a transition. Several transitions may share the same
// from/event pair; the first one whose guards pass wins.
func (m *Machine[S, E]) AddTransition(t Transition[S, E]) error {
	var zeroS S
	var zeroE E
	if t.From == zeroS || t.To == zeroS || t.Event == zeroE {
		return ErrInvalidTransition
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.transitions[t.From]; !ok {
		m.transitions[t.From] = make(map[E][]Transition[S, E])
	}
	m.transitions[t.From][t.Event] = append(m.transitions[t.From][t.Event], t)
	return nil
}

// Fire applies event to the current state and returns the resulting state.
func (m *Machine[S, E]) Fire(ctx context.Context, event E, data any) (S, error) {
	var zeroE E
	if event == zeroE {
		return m.Current(), ErrInvalidEvent
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.resolve(ctx, event, data)
	if err != nil {
		return m.current, err
	}

	for _, action := range t.Actions {
		if action == nil {
			continue
		}
		if err := action(ctx, m.current, t.To, event, data); err != nil {
			return m.current, fmt.Errorf("action failed: %w", err)
		}
	}

	m.current = t.To
	return m.current, nil
}

// CanFire reports whether event would be accepted in the current state.
func (m *Machine[S, E]) CanFire(ctx context.Context, event E, data any) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, err := m.resolve(ctx, event, data)
	return err == nil
}

// Permitted lists the events declared for the current state, ignoring guards.
func (m *Machine[S, E]) Permitted() []E {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]E, 0, len(m.transitions[m.current]))
	for e := range m.transitions[m.current] {
		events = append(events, e)
	}
	slices.SortFunc(events, func(a, b E) int {
		switch {
		case a.Name() < b.Name():
			return -1
		case a.Name() > b.Name():
			return 1
		}
		return 0
	})
	return events
}

// Reset moves the machine back to its initial state.
func (m *Machine[S, E]) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = m.initial
}

// resolve must be called with m.mu held.
func (m *Machine[S, E]) resolve(ctx context.Context, event E, data any) (Transition[S, E], error) {
	candidates := m.transitions[m.current][event]
	if len(candidates) == 0 {
		return Transition[S, E]{}, &TransitionError{State: m.current.Name(), Event: event.Name()}
	}

	for _, t := range candidates {
		if guardsPass(ctx, t.Guards, m.current, event, data) {
			return t, nil
		}
	}
	return Transition[S, E]{}, &TransitionError{State: m.current.Name(), Event: event.Name(), Rejected: true}
}

func guardsPass[S, E Named](ctx context.Context, guards []Guard[S, E], from S, event E, data any) bool {
	for _, g := range guards {
		if g != nil && !g(ctx, from, event, data) {
			return false
		}
	}
	return true
}
