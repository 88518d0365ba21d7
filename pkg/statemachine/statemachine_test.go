package statemachine_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/accesskit/pkg/statemachine"
)

type (
	state = statemachine.StringState
	event = statemachine.StringEvent
)

const (
	Loading  = state("loading")
	Anon     = state("anonymous")
	Pending  = state("pending")
	SignedIn = state("signed_in")

	Restored  = event("restored")
	Anonymous = event("anonymous")
	Challenge = event("challenged")
	Verified  = event("verified")
	LoggedOut = event("logged_out")
)

func table() []statemachine.Transition[state, event] {
	return []statemachine.Transition[state, event]{
		{From: Loading, To: SignedIn, Event: Restored},
		{From: Loading, To: Anon, Event: Anonymous},
		{From: Anon, To: Pending, Event: Challenge},
		{From: Pending, To: SignedIn, Event: Verified},
		{From: Pending, To: Anon, Event: LoggedOut},
		{From: SignedIn, To: Anon, Event: LoggedOut},
	}
}

func TestMachine_Fire(t *testing.T) {
	t.Parallel()

	t.Run("walks the table", func(t *testing.T) {
		t.Parallel()
		m := statemachine.MustNew(Loading, statemachine.WithTransitions(table()))
		ctx := context.Background()

		assert.Equal(t, Loading, m.Current())

		for _, step := range []struct {
			ev   event
			want state
		}{
			{Anonymous, Anon},
			{Challenge, Pending},
			{Verified, SignedIn},
			{LoggedOut, Anon},
		} {
			got, err := m.Fire(ctx, step.ev, nil)
			require.NoError(t, err, step.ev)
			assert.Equal(t, step.want, got)
			assert.Equal(t, step.want, m.Current())
		}

		m.Reset()
		assert.Equal(t, Loading, m.Current())
	})

	t.Run("undeclared transition", func(t *testing.T) {
		t.Parallel()
		m := statemachine.MustNew(Loading, statemachine.WithTransitions(table()))

		got, err := m.Fire(context.Background(), Verified, nil)
		require.Error(t, err)
		assert.True(t, statemachine.IsNoTransitionAvailableError(err))
		assert.False(t, statemachine.IsTransitionRejectedError(err))

		var terr *statemachine.TransitionError
		require.ErrorAs(t, err, &terr)
		assert.Equal(t, "loading", terr.State)
		assert.Equal(t, "verified", terr.Event)
		assert.Equal(t, Loading, got)
		assert.Equal(t, Loading, m.Current())
	})

	t.Run("empty event", func(t *testing.T) {
		t.Parallel()
		m := statemachine.MustNew(Loading, statemachine.WithTransitions(table()))

		_, err := m.Fire(context.Background(), "", nil)
		assert.ErrorIs(t, err, statemachine.ErrInvalidEvent)
	})
}

func TestMachine_Guards(t *testing.T) {
	t.Parallel()

	allowToken := func(_ context.Context, _ state, _ event, data any) bool {
		token, _ := data.(string)
		return token == "ok"
	}

	m := statemachine.MustNew(Anon,
		statemachine.WithTransition(Anon, Pending, Challenge,
			statemachine.WithGuard[state, event](allowToken)),
	)
	ctx := context.Background()

	assert.False(t, m.CanFire(ctx, Challenge, "nope"))
	_, err := m.Fire(ctx, Challenge, "nope")
	assert.True(t, statemachine.IsTransitionRejectedError(err))
	assert.Equal(t, Anon, m.Current())

	assert.True(t, m.CanFire(ctx, Challenge, "ok"))
	got, err := m.Fire(ctx, Challenge, "ok")
	require.NoError(t, err)
	assert.Equal(t, Pending, got)
}

func TestMachine_GuardBranching(t *testing.T) {
	t.Parallel()

	isAdmin := func(_ context.Context, _ state, _ event, data any) bool { return data == "admin" }

	m := statemachine.MustNew(Pending,
		statemachine.WithTransition(Pending, SignedIn, Verified,
			statemachine.WithGuard[state, event](isAdmin)),
		statemachine.WithTransition[state, event](Pending, Anon, Verified),
	)

	got, err := m.Fire(context.Background(), Verified, "user")
	require.NoError(t, err)
	assert.Equal(t, Anon, got)
}

func TestMachine_Actions(t *testing.T) {
	t.Parallel()

	t.Run("run in order before the state changes", func(t *testing.T) {
		t.Parallel()

		var seen []string
		record := func(name string) statemachine.Action[state, event] {
			return func(_ context.Context, from, to state, ev event, _ any) error {
				seen = append(seen, name+":"+from.Name()+"->"+to.Name()+"@"+ev.Name())
				return nil
			}
		}

		m := statemachine.MustNew(SignedIn,
			statemachine.WithTransition(SignedIn, Anon, LoggedOut,
				statemachine.WithAction(record("first"), record("second"))),
		)

		_, err := m.Fire(context.Background(), LoggedOut, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{
			"first:signed_in->anonymous@logged_out",
			"second:signed_in->anonymous@logged_out",
		}, seen)
	})

	t.Run("failure aborts the transition", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		m := statemachine.MustNew(SignedIn,
			statemachine.WithTransition(SignedIn, Anon, LoggedOut,
				statemachine.WithAction[state, event](func(context.Context, state, state, event, any) error {
					return boom
				})),
		)

		got, err := m.Fire(context.Background(), LoggedOut, nil)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, SignedIn, got)
		assert.Equal(t, SignedIn, m.Current())
	})
}

func TestMachine_Permitted(t *testing.T) {
	t.Parallel()

	m := statemachine.MustNew(Pending, statemachine.WithTransitions(table()))
	assert.Equal(t, []event{LoggedOut, Verified}, m.Permitted())
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	_, err := statemachine.New[state, event]("")
	assert.ErrorIs(t, err, statemachine.ErrInvalidInitialState)

	_, err = statemachine.New(Loading, statemachine.WithTransitions([]statemachine.Transition[state, event]{
		{From: Loading, To: "", Event: Restored},
	}))
	assert.ErrorIs(t, err, statemachine.ErrInvalidTransition)

	assert.Panics(t, func() {
		statemachine.MustNew(Loading, statemachine.WithTransition[state, event](Loading, Anon, ""))
	})
}

func TestMachine_Concurrent(t *testing.T) {
	t.Parallel()

	m := statemachine.MustNew(Anon,
		statemachine.WithTransition[state, event](Anon, Pending, Challenge),
		statemachine.WithTransition[state, event](Pending, Anon, LoggedOut),
	)
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.Fire(ctx, Challenge, nil)
			_, _ = m.Fire(ctx, LoggedOut, nil)
			_ = m.Current()
		}()
	}
	wg.Wait()

	assert.Contains(t, []state{Anon, Pending}, m.Current())
}
