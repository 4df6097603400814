// Package statemachine is a small finite state machine used to drive
// multi-step workflows such as account deletion.
//
// Transitions are registered up front and fired one event at a time:
//
//	m, err := statemachine.New(Start, statemachine.WithTransitions(
//		statemachine.Transition{From: Start, To: Done, Event: Finish, Actions: []statemachine.Action{finish}},
//	))
//	if err != nil {
//		return err
//	}
//	err = m.Fire(ctx, Finish, payload)
//
// An action error aborts the transition and is returned unchanged, so
// callers can match their own sentinels with errors.Is. Undefined
// transitions return *NoTransitionError; guard rejections return *RejectedError.
package statemachine
