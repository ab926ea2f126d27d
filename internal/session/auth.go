package session

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// DefaultLoginLatency is the mock authenticator's delay.
const DefaultLoginLatency = 800 * time.Millisecond

// Authenticator verifies credentials against an identity backend.
type Authenticator interface {
	Authenticate(ctx context.Context, creds Credentials) (User, error)
}

// MockAuthenticator accepts any non-empty email and password after a fixed
// delay and returns the demo profile.
type MockAuthenticator struct {
	Delay time.Duration
}

var _ Authenticator = (*MockAuthenticator)(nil)

// NewMockAuthenticator creates a mock authenticator with the given delay.
func NewMockAuthenticator(delay time.Duration) *MockAuthenticator {
	return &MockAuthenticator{Delay: delay}
}

// DemoUser is the profile every successful mock login returns.
var DemoUser = User{
	ID:     "u1",
	Name:   "Chef Gordon",
	Email:  "chef@hashrecipe.com",
	Avatar: "https://images.unsplash.com/photo-1577219491135-ce391730fb2c?auto=format&fit=crop&q=80&w=200",
}

func (m *MockAuthenticator) Authenticate(ctx context.Context, creds Credentials) (User, error) {
	if strings.TrimSpace(creds.Email) == "" || creds.Password == "" {
		return User{}, fmt.Errorf("%w: email and password are required", ErrAuthFailure)
	}
	if err := sleep(ctx, m.Delay); err != nil {
		return User{}, fmt.Errorf("%w: %w", ErrAuthFailure, err)
	}
	return DemoUser, nil
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
