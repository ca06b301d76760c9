package moderation

import "github.com/pkg/errors"

// Failure taxonomy for moderation attempts. None of these are fatal: the
// caller relays them as a reply and moves on.
var (
	// ErrAuthorizationDenied: capability or hierarchy check failed. No side
	// effect, no audit entry.
	ErrAuthorizationDenied = errors.New("authorization denied")

	// ErrTargetProtected: target is the emperor, the actor themself, or a
	// platform admin where that is disallowed. No side effect.
	ErrTargetProtected = errors.New("target protected")

	// ErrPlatformRejected: the platform call failed. No ledger mutation
	// happened for this attempt.
	ErrPlatformRejected = errors.New("platform rejected")

	// ErrAmbiguousCommand: the command text lacked a required token, e.g.
	// promote with no recognizable role.
	ErrAmbiguousCommand = errors.New("ambiguous command")
)
