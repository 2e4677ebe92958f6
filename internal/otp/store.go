package otp

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/safeanchor/safeanchor/internal/models"
)

// DefaultTTL is the lifetime of a stored verification code.
const DefaultTTL = 10 * time.Minute

var (
	// ErrInvalidFormat is returned when the submitted value is not a 6-digit code.
	ErrInvalidFormat = errors.New("otp: invalid code format")
	// ErrExpired is returned for a code that matched a record past its expiry.
	// The stale record is removed as a side effect.
	ErrExpired = errors.New("otp: code expired")
	// ErrNotFound is returned when no live record holds the submitted code.
	ErrNotFound = errors.New("otp: code not found")
)

// Owner identifies the account a consumed code belonged to.
type Owner struct {
	Email     string
	Kind      models.UserKind
	FirstName string
}

// Stats is a diagnostic snapshot of the store contents.
type Stats struct {
	Total  int      `json:"total"`
	Emails []string `json:"emails"`
}

// Store holds pending email-verification codes keyed by identity. At most
// one live code exists per identity; verification consumes codes by value
// alone, without the caller supplying the identity.
type Store interface {
	Put(email, code string, kind models.UserKind, firstName string)
	ConsumeByCode(code string) (Owner, error)
	HasLive(email string) bool
	Remove(email string)
	Stats() Stats
	Sweep() int
}

type record struct {
	code      string
	kind      models.UserKind
	firstName string
	createdAt time.Time
	expiresAt time.Time
	seq       uint64
}

// MemoryConfig describes tunable behaviour for the in-memory store.
type MemoryConfig struct {
	TTL   time.Duration
	Clock func() time.Time
}

// MemoryStore is the single-process Store implementation. Codes do not
// survive a restart; users recover by requesting a resend.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]record
	nextSeq uint64
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore constructs an in-memory store.
func NewMemoryStore(cfg MemoryConfig) *MemoryStore {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	now := time.Now
	if cfg.Clock != nil {
		now = cfg.Clock
	}

	return &MemoryStore{
		records: make(map[string]record),
		ttl:     ttl,
		now:     now,
	}
}

// Put stores a code for the identity, silently replacing any previous
// unconsumed code. Expired records across the whole store are swept
// opportunistically; correctness does not depend on the sweep.
func (s *MemoryStore) Put(email, code string, kind models.UserKind, firstName string) {
	email = models.NormalizeEmail(email)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweepLocked(now)

	s.nextSeq++
	s.records[email] = record{
		code:      strings.TrimSpace(code),
		kind:      kind,
		firstName: firstName,
		createdAt: now,
		expiresAt: now.Add(s.ttl),
		seq:       s.nextSeq,
	}
}

// ConsumeByCode resolves a raw code to its owning identity and removes the
// record in the same critical section, so concurrent consumers of the same
// code observe exactly one success.
//
// When two identities hold the same code value, the most recently stored
// record wins. This is a deliberate, documented tie-break: the verify
// endpoint accepts only the code, so ambiguity cannot be resolved by the
// caller.
func (s *MemoryStore) ConsumeByCode(code string) (Owner, error) {
	code = strings.TrimSpace(code)
	if !IsWellFormed(code) {
		return Owner{}, ErrInvalidFormat
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		foundEmail string
		found      record
		matched    bool
	)
	for email, rec := range s.records {
		if rec.code != code {
			continue
		}
		if !matched || rec.seq > found.seq {
			foundEmail = email
			found = rec
			matched = true
		}
	}

	if !matched {
		return Owner{}, ErrNotFound
	}

	delete(s.records, foundEmail)

	if s.now().After(found.expiresAt) {
		return Owner{}, ErrExpired
	}

	return Owner{
		Email:     foundEmail,
		Kind:      found.kind,
		FirstName: found.firstName,
	}, nil
}

// HasLive reports whether a non-expired code exists for the identity.
func (s *MemoryStore) HasLive(email string) bool {
	email = models.NormalizeEmail(email)

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[email]
	if !ok {
		return false
	}
	if s.now().After(rec.expiresAt) {
		delete(s.records, email)
		return false
	}
	return true
}

// Remove deletes any record for the identity.
func (s *MemoryStore) Remove(email string) {
	email = models.NormalizeEmail(email)

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, email)
}

// Stats returns a diagnostic snapshot of live records.
func (s *MemoryStore) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked(s.now())

	stats := Stats{Total: len(s.records), Emails: make([]string, 0, len(s.records))}
	for email := range s.records {
		stats.Emails = append(stats.Emails, email)
	}
	return stats
}

// Sweep removes every expired record and returns how many were dropped.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(s.now())
}

func (s *MemoryStore) sweepLocked(now time.Time) int {
	removed := 0
	for email, rec := range s.records {
		if now.After(rec.expiresAt) {
			delete(s.records, email)
			removed++
		}
	}
	return removed
}
