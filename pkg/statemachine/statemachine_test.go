package statemachine_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/accountkit/pkg/statemachine"
)

const (
	draft     statemachine.StringState = "draft"
	review    statemachine.StringState = "review"
	published statemachine.StringState = "published"
	rejected  statemachine.StringState = "rejected"

	submit  statemachine.StringEvent = "submit"
	approve statemachine.StringEvent = "approve"
)

func TestNew(t *testing.T) {
	t.Parallel()

	_, err := statemachine.New(nil)
	assert.ErrorIs(t, err, statemachine.ErrInvalidState)

	_, err = statemachine.New(draft, statemachine.WithTransitions(statemachine.Transition{From: draft, Event: submit}))
	assert.ErrorIs(t, err, statemachine.ErrInvalidTransition)
}

func TestMachine_Fire(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("runs actions in order then moves", func(t *testing.T) {
		t.Parallel()
		var calls []string
		record := func(name string) statemachine.Action {
			return func(_ context.Context, from, to statemachine.State, _ statemachine.Event, data any) error {
				calls = append(calls, name+":"+from.Name()+">"+to.Name()+":"+data.(string))
				return nil
			}
		}
		m, err := statemachine.New(draft, statemachine.WithTransitions(
			statemachine.Transition{From: draft, To: review, Event: submit, Actions: []statemachine.Action{record("a"), record("b")}},
		))
		require.NoError(t, err)

		require.NoError(t, m.Fire(ctx, submit, "x"))
		assert.Equal(t, review, m.Current())
		assert.Equal(t, []string{"a:draft>review:x", "b:draft>review:x"}, calls)
	})

	t.Run("action error aborts", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("boom")
		second := false
		m, err := statemachine.New(draft, statemachine.WithTransitions(
			statemachine.Transition{From: draft, To: review, Event: submit, Actions: []statemachine.Action{
				func(context.Context, statemachine.State, statemachine.State, statemachine.Event, any) error {
					return boom
				},
				func(context.Context, statemachine.State, statemachine.State, statemachine.Event, any) error {
					second = true
					return nil
				},
			}},
		))
		require.NoError(t, err)

		err = m.Fire(ctx, submit, nil)
		assert.ErrorIs(t, err, boom)
		assert.False(t, second)
		assert.Equal(t, draft, m.Current())
	})

	t.Run("undefined transition", func(t *testing.T) {
		t.Parallel()
		m, err := statemachine.New(draft)
		require.NoError(t, err)

		err = m.Fire(ctx, approve, nil)
		var nt *statemachine.NoTransitionError
		require.ErrorAs(t, err, &nt)
		assert.Equal(t, "draft", nt.State)
		assert.Equal(t, "approve", nt.Event)
		assert.False(t, m.CanFire(ctx, approve, nil))
		assert.ErrorIs(t, m.Fire(ctx, nil, nil), statemachine.ErrInvalidEvent)
	})

	t.Run("guards pick the first passing transition", func(t *testing.T) {
		t.Parallel()
		isGood := func(_ context.Context, _ statemachine.State, _ statemachine.Event, data any) bool {
			return data == "good"
		}
		never := func(context.Context, statemachine.State, statemachine.Event, any) bool { return false }
		m, err := statemachine.New(review, statemachine.WithTransitions(
			statemachine.Transition{From: review, To: published, Event: approve, Guards: []statemachine.Guard{isGood}},
			statemachine.Transition{From: review, To: rejected, Event: approve},
			statemachine.Transition{From: draft, To: review, Event: submit, Guards: []statemachine.Guard{never}},
		))
		require.NoError(t, err)

		assert.True(t, m.CanFire(ctx, approve, "bad"))
		require.NoError(t, m.Fire(ctx, approve, "bad"))
		assert.Equal(t, rejected, m.Current())

		m.Reset()
		assert.Equal(t, review, m.Current())
		require.NoError(t, m.Fire(ctx, approve, "good"))
		assert.Equal(t, published, m.Current())

		m2, err := statemachine.New(draft, statemachine.WithTransitions(
			statemachine.Transition{From: draft, To: review, Event: submit, Guards: []statemachine.Guard{never}},
		))
		require.NoError(t, err)
		var rej *statemachine.RejectedError
		assert.ErrorAs(t, m2.Fire(ctx, submit, nil), &rej)
	})
}
