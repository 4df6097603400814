package statemachine

import (
	"context"
	"fmt"
	"sync"
)

// State is a node of the machine.
type State interface {
	Name() string
}

// Event triggers a transition.
type Event interface {
	Name() string
}

// Action runs while a transition is taken. An error aborts the transition
// and leaves the machine in its current state.
type Action func(ctx context.Context, from, to State, event Event, data any) error

// Guard decides whether a transition may be taken.
type Guard func(ctx context.Context, from State, event Event, data any) bool

// Transition is a state change triggered by Event. The first transition
// whose guards all pass is taken.
type Transition struct {
	From    State
	To      State
	Event   Event
	Guards  []Guard
	Actions []Action
}

// StringState is a State named by its value.
type StringState string

func (s StringState) Name() string { return string(s) }

// StringEvent is an Event named by its value.
type StringEvent string

func (e StringEvent) Name() string { return string(e) }

// Machine is a concurrency-safe in-memory state machine.
type Machine struct {
	mu          sync.Mutex
	initial     State
	current     State
	transitions map[string]map[string][]Transition
}

// Option configures a Machine.
type Option func(*Machine) error

// New returns a machine in initial state.
func New(initial State, opts ...Option) (*Machine, error) {
	if initial == nil {
		return nil, ErrInvalidState
	}
	m := &Machine{
		initial:     initial,
		current:     initial,
		transitions: make(map[string]map[string][]Transition),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// WithTransitions registers ts in order.
func WithTransitions(ts ...Transition) Option {
	return func(m *Machine) error {
		for i, t := range ts {
			if err := m.AddTransition(t); err != nil {
				return fmt.Errorf("transition[%d]: %w", i, err)
			}
		}
		return nil
	}
}

// AddTransition registers t. Several transitions may share From and Event.
func (m *Machine) AddTransition(t Transition) error {
	if t.From == nil || t.To == nil || t.Event == nil {
		return ErrInvalidTransition
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	byEvent, ok := m.transitions[t.From.Name()]
	if !ok {
		byEvent = make(map[string][]Transition)
		m.transitions[t.From.Name()] = byEvent
	}
	byEvent[t.Event.Name()] = append(byEvent[t.Event.Name()], t)
	return nil
}

func (m *Machine) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Fire takes the first eligible transition for event from the current state
// and runs its actions in order. The state changes only if every action succeeds.
func (m *Machine) Fire(ctx context.Context, event Event, data any) error {
	if event == nil {
		return ErrInvalidEvent
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.pick(ctx, event, data)
	if err != nil {
		return err
	}
	for _, action := range t.Actions {
		if err := action(ctx, m.current, t.To, event, data); err != nil {
			return err
		}
	}
	m.current = t.To
	return nil
}

// CanFire reports whether Fire would find a transition for event.
func (m *Machine) CanFire(ctx context.Context, event Event, data any) bool {
	if event == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, err := m.pick(ctx, event, data)
	return err == nil
}

// Reset returns the machine to its initial state.
func (m *Machine) Reset() {
	m.mu.Lock()
	m.current = m.initial
	m.mu.Unlock()
}

// pick must be called with m.mu held.
func (m *Machine) pick(ctx context.Context, event Event, data any) (*Transition, error) {
	candidates := m.transitions[m.current.Name()][event.Name()]
	if len(candidates) == 0 {
		return nil, &NoTransitionError{State: m.current.Name(), Event: event.Name()}
	}
	for i := range candidates {
		if guardsPass(ctx, candidates[i], m.current, event, data) {
			return &candidates[i], nil
		}
	}
	return nil, &RejectedError{State: m.current.Name(), Event: event.Name()}
}

func guardsPass(ctx context.Context, t Transition, from State, event Event, data any) bool {
	for _, g := range t.Guards {
		if g != nil && !g(ctx, from, event, data) {
			return false
		}
	}
	return true
}
