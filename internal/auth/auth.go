// Package auth implements the demo authenticator. Any non-empty email and
// password pair is accepted; there is deliberately no credential check.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/ashureev/chatbot-ai/internal/domain"
	"github.com/ashureev/chatbot-ai/internal/session"
	"github.com/ashureev/chatbot-ai/internal/shared"
)

const (
	// Delay stands in for the latency of a real auth backend.
	Delay = time.Second
	// MinPasswordLength applies to registration only.
	MinPasswordLength = 6
)

// SessionSaver persists the record produced by a successful sign-in.
type SessionSaver interface {
	Save(ctx context.Context, rec session.Record) error
}

// RegisterInput carries the sign-up form.
type RegisterInput struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Authenticator signs users in and up.
type Authenticator struct {
	delay    time.Duration
	sleep    shared.SleepFunc
	newID    func() string
	newToken func() string
}

// Option customizes an Authenticator.
type Option func(*Authenticator)

// WithSleep replaces the delay implementation, mainly for tests.
func WithSleep(fn shared.SleepFunc) Option {
	return func(a *Authenticator) { a.sleep = fn }
}

// WithIDs replaces the user id and token generators.
func WithIDs(newID, newToken func() string) Option {
	return func(a *Authenticator) {
		if newID != nil {
			a.newID = newID
		}
		if newToken != nil {
			a.newToken = newToken
		}
	}
}

// New returns an Authenticator with the fixed demo delay.
func New(opts ...Option) *Authenticator {
	a := &Authenticator{
		delay:    Delay,
		sleep:    shared.Sleep,
		newID:    uuid.NewString,
		newToken: func() string { return "session_" + uuid.NewString() },
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Login waits the artificial delay, then accepts any non-empty pair.
// The display name is the email's local part.
func (a *Authenticator) Login(ctx context.Context, sessions SessionSaver, email, password string) (domain.User, error) {
	if err := a.sleep(ctx, a.delay); err != nil {
		return domain.User{}, err
	}
	if email == "" || password == "" {
		return domain.User{}, newValidationError(CodeMissingCredentials, "Please fill in all fields")
	}
	return a.signIn(ctx, sessions, email, domain.NameFromEmail(email))
}

// Register validates the confirmation and length before the delay, then
// signs the user in with the supplied name.
func (a *Authenticator) Register(ctx context.Context, sessions SessionSaver, in RegisterInput) (domain.User, error) {
	if in.Password != in.ConfirmPassword {
		return domain.User{}, newValidationError(CodePasswordMismatch, "Passwords do not match")
	}
	if utf8.RuneCountInString(in.Password) < MinPasswordLength {
		return domain.User{}, newValidationError(CodePasswordTooShort,
			fmt.Sprintf("Password must be at least %d characters", MinPasswordLength))
	}
	if err := a.sleep(ctx, a.delay); err != nil {
		return domain.User{}, err
	}
	return a.signIn(ctx, sessions, in.Email, in.Name)
}

func (a *Authenticator) signIn(ctx context.Context, sessions SessionSaver, email, name string) (domain.User, error) {
	user := domain.User{ID: a.newID(), Email: email, Name: name}
	if err := sessions.Save(ctx, session.Record{Token: a.newToken(), User: user}); err != nil {
		return domain.User{}, fmt.Errorf("auth: persist session: %w", err)
	}
	return user, nil
}

// IsValidation reports whether err is a ValidationError and returns it.
func IsValidation(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
