// Package session maps (user id, session id) pairs to live session records in
// a TTL-backed cache. A session record's existence is the sole source of truth
// for whether previously issued tokens are still usable: tokens may be
// cryptographically valid long after logout, so every token-trusting path
// must consult this store.
package session

import "context"

// Store is the session cache consumed by the auth service and middleware.
//
// Create never revokes a user's other sessions: concurrent logins are allowed
// and each gets its own session record. Explicit revocation happens only via
// Destroy (logout) or DestroyAllForUser (account disable/delete).
type Store interface {
	// Create generates a fresh session id for userID and writes the record
	// with TTL equal to the refresh-token lifetime.
	Create(ctx context.Context, userID string) (sessionID string, err error)
	// Exists reports whether the (userID, sessionID) record is live.
	Exists(ctx context.Context, userID, sessionID string) (bool, error)
	// Touch re-arms the record's TTL to the full refresh-token lifetime.
	// Called on token refresh so the session outlives the new refresh token.
	Touch(ctx context.Context, userID, sessionID string) error
	// Destroy removes the record. Idempotent: destroying an absent session is
	// not an error; removed reports whether a record actually existed, so the
	// caller can surface "already logged out".
	Destroy(ctx context.Context, userID, sessionID string) (removed bool, err error)
	// DestroyAllForUser removes every session record for userID. Returns the
	// number of sessions removed.
	DestroyAllForUser(ctx context.Context, userID string) (int, error)

	// BindRefreshToken stores the SHA-256 hash of the session's current
	// refresh token alongside the session, with the same TTL. Rotation
	// overwrites the previous hash.
	BindRefreshToken(ctx context.Context, userID, sessionID, tokenHash string) error
	// RefreshTokenHash returns the bound hash, or "" if none is stored.
	RefreshTokenHash(ctx context.Context, userID, sessionID string) (string, error)
}
