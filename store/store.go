package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/sagely/internal/profile"
)

// maxRetries bounds the retry loop for transient driver errors.
const maxRetries = 2

// Store provides database access to all modules and wraps the driver with
// bounded retry on transient errors.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		profile: profile,
		driver:  driver,
	}
}

func (s *Store) Profile() *profile.Profile {
	return s.profile
}

// GetDB exposes the underlying database handle.
func (s *Store) GetDB() *sql.DB {
	return s.driver.GetDB()
}

func (s *Store) Migrate(ctx context.Context) error {
	if err := s.driver.Migrate(ctx); err != nil {
		return errors.Wrap(err, "failed to migrate")
	}
	return nil
}

func (s *Store) Close() error {
	return s.driver.Close()
}

// isTransient reports whether err looks like a retryable storage hiccup
// rather than a logic error. sqlite surfaces short write contention as
// "database is locked"; postgres as serialization or deadlock failures.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "deadlock detected") ||
		strings.Contains(msg, "could not serialize access")
}

// withRetry runs fn, retrying up to maxRetries times with increasing backoff
// when the error is transient. Context cancellation stops the loop.
func withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil || !isTransient(err) || attempt >= maxRetries {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 50 * time.Millisecond):
		}
	}
}
