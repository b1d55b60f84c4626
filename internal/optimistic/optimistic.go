// Package optimistic provides a reusable apply/call/revert mutation primitive.
//
// The pattern: mutate the local view of some state, run the remote operation,
// and undo the local mutation if the remote operation fails. The remote error
// is returned unchanged so callers keep their own error taxonomy.
package optimistic

import "context"

// Do applies the local transform, runs the remote call, and reverts the local
// transform if the call fails.
func Do[S any](ctx context.Context, state *S, apply, revert func(*S), call func(context.Context) error) error {
	apply(state)
	if err := call(ctx); err != nil {
		revert(state)
		return err
	}
	return nil
}

// DoSnapshot is Do for states that are cheap to copy: it snapshots the state
// before applying and restores the snapshot on failure, so no explicit revert
// is needed. The state type must not share mutable references with the copy.
func DoSnapshot[S any](ctx context.Context, state *S, apply func(*S), call func(context.Context) error) error {
	prev := *state
	apply(state)
	if err := call(ctx); err != nil {
		*state = prev
		return err
	}
	return nil
}
