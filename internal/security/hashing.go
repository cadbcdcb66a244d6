package security

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/sync/semaphore"
)

// ErrPasswordMismatch is returned by Compare when the password does not match
// the stored hash. Callers must collapse it with "user not found" before it
// reaches a client.
var ErrPasswordMismatch = errors.New("password mismatch")

// ErrInvalidHash is returned when a stored hash cannot be parsed.
var ErrInvalidHash = errors.New("invalid password hash")

// HashParams are the argon2id cost parameters. Memory is in KiB.
type HashParams struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultHashParams returns moderate argon2id parameters: 64 MiB, 3 passes,
// 2 lanes, 16-byte salt, 32-byte key.
func DefaultHashParams() HashParams {
	return HashParams{
		Memory:      64 * 1024,
		Iterations:  3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Hasher hashes and verifies passwords using argon2id. Callers must not log
// or persist plaintext passwords.
//
// Hashing is CPU- and memory-bound, so concurrent hash and verify calls are
// bounded by a weighted semaphore sized to GOMAXPROCS. Request goroutines
// beyond the bound wait (respecting ctx) instead of piling argon2 work onto
// every scheduler thread at once.
type Hasher struct {
	params HashParams
	sem    *semaphore.Weighted
}

// NewHasher returns a Hasher with the given parameters. Zero-valued fields
// fall back to DefaultHashParams.
func NewHasher(params HashParams) *Hasher {
	def := DefaultHashParams()
	if params.Memory == 0 {
		params.Memory = def.Memory
	}
	if params.Iterations == 0 {
		params.Iterations = def.Iterations
	}
	if params.Parallelism == 0 {
		params.Parallelism = def.Parallelism
	}
	if params.SaltLength == 0 {
		params.SaltLength = def.SaltLength
	}
	if params.KeyLength == 0 {
		params.KeyLength = def.KeyLength
	}
	return &Hasher{
		params: params,
		sem:    semaphore.NewWeighted(int64(runtime.GOMAXPROCS(0))),
	}
}

// Hash produces an encoded argon2id hash of password in the form
// $argon2id$v=19$m=<memory>,t=<iterations>,p=<parallelism>$<salt b64>$<hash b64>.
// The parameters and salt travel inside the hash string, so verification does
// not depend on the Hasher's current configuration.
func (h *Hasher) Hash(ctx context.Context, password string) (string, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)

	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, h.params.Iterations, h.params.Memory, h.params.Parallelism, h.params.KeyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.params.Memory, h.params.Iterations, h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Compare verifies password against the stored encoded hash using the
// parameters embedded in the hash and a constant-time comparison.
// Returns ErrPasswordMismatch on mismatch, ErrInvalidHash on a malformed hash.
func (h *Hasher) Compare(ctx context.Context, encoded, password string) error {
	params, salt, key, err := decodeHash(encoded)
	if err != nil {
		return err
	}

	if err := h.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer h.sem.Release(1)

	candidate := argon2.IDKey([]byte(password), salt, params.Iterations, params.Memory, params.Parallelism, uint32(len(key)))
	if subtle.ConstantTimeCompare(key, candidate) == 1 {
		return nil
	}
	return ErrPasswordMismatch
}

func decodeHash(encoded string) (HashParams, []byte, []byte, error) {
	var params HashParams
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return params, nil, nil, ErrInvalidHash
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return params, nil, nil, ErrInvalidHash
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.Memory, &params.Iterations, &params.Parallelism); err != nil {
		return params, nil, nil, ErrInvalidHash
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return params, nil, nil, ErrInvalidHash
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return params, nil, nil, ErrInvalidHash
	}
	return params, salt, key, nil
}
