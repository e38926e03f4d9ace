// Package pool defines the credential pool facade consumed by the admin
// layer: the snapshot data model, the Manager interface implemented by
// clients of the rotation daemon, and the coded error set shared across
// that boundary.
//
// The pool itself (storage, rotation, upstream token refresh) lives in the
// rotation daemon. This package only models what the admin plane needs to
// observe and mutate it:
//
//	snap, err := mgr.Snapshot(ctx)
//	err = mgr.SetDisabled(ctx, 2, true)
//	limits, err := mgr.Balance(ctx, 2)
//
// Errors crossing the facade are tagged with a small closed set of codes
// (see ErrorCode). Untagged errors from older daemons or raw transports are
// classified by message content via Classify, which preserves the legacy
// substring behavior.
package pool
