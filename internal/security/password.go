package security

import (
	"context"
	"runtime"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// DefaultCost is the bcrypt work factor used for every new digest.
const DefaultCost = 10

// MaxPasswordBytes is bcrypt's input limit. It counts bytes, not characters.
const MaxPasswordBytes = 72

var ErrPasswordTooLong = bcrypt.ErrPasswordTooLong

// Hasher produces and checks bcrypt digests. bcrypt generates a fresh random
// salt on every call and embeds it in the digest, so two users with the same
// password never share a digest.
//
// The number of hashes running at once is capped so a burst of logins cannot
// occupy every P and stall unrelated requests.
type Hasher struct {
	cost int
	sem  *semaphore.Weighted
	obs  Observer
}

// Observer receives the wall time of each bcrypt call, excluding the wait
// for a semaphore slot. *observability.Prom satisfies it.
type Observer interface {
	ObserveHash(op string, start time.Time)
}

func NewHasher(cost, maxConcurrent int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}

	if maxConcurrent <= 0 {
		maxConcurrent = runtime.GOMAXPROCS(0)
	}

	return &Hasher{
		cost: cost,
		sem:  semaphore.NewWeighted(int64(maxConcurrent)),
	}
}

func (h *Hasher) WithObserver(obs Observer) *Hasher {
	h.obs = obs
	return h
}

func (h *Hasher) observe(op string, start time.Time) {
	if h.obs != nil {
		h.obs.ObserveHash(op, start)
	}
}

// Hash password hashes a plain text password with bcrypt.
func (h *Hasher) Hash(ctx context.Context, plain string) (string, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)
	defer h.observe("hash", time.Now())

	hash, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)

	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// Verify reports whether plain matches digest. A mismatch or an unreadable
// digest is (false, nil); only context cancellation surfaces as an error.
func (h *Hasher) Verify(ctx context.Context, plain, digest string) (bool, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer h.sem.Release(1)
	defer h.observe("verify", time.Now())

	if err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain)); err != nil {
		return false, nil
	}

	return true, nil
}
