// Package session holds the per-user interaction state: the active locale,
// result set, likes, query history and login, and the state machine that
// guards the two suspension points (query execution and login).
package session

import (
	"errors"
	"fmt"
	"strings"

	"hashrecipe/internal/history"
	"hashrecipe/internal/locale"
	"hashrecipe/internal/retrieval"
)

var (
	// ErrBusy is returned when a query or login is submitted while one of
	// the same kind is in flight.
	ErrBusy = errors.New("operation already in progress")
	// ErrAuthFailure is returned when credentials are rejected.
	ErrAuthFailure = errors.New("authentication failed")
	// ErrNotLoggedIn is returned for views that need a user.
	ErrNotLoggedIn = errors.New("not logged in")
	// ErrNotFound is returned for unknown sessions and recipes.
	ErrNotFound = errors.New("not found")
	// ErrInvalidView is returned for view names outside the known set.
	ErrInvalidView = errors.New("invalid view")
)

// View is the page the presentation layer shows.
type View string

const (
	ViewHome    View = "HOME"
	ViewProfile View = "PROFILE"
	ViewHistory View = "HISTORY"
)

// ParseView accepts a view name case-insensitively.
func ParseView(s string) (View, error) {
	v := View(strings.ToUpper(strings.TrimSpace(s)))
	switch v {
	case ViewHome, ViewProfile, ViewHistory:
		return v, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidView, s)
}

// requiresLogin reports whether v is behind the user menu.
func (v View) requiresLogin() bool {
	return v == ViewProfile || v == ViewHistory
}

// QueryState is the query-in-progress flag.
type QueryState string

const (
	QueryIdle       QueryState = "IDLE"
	QuerySubmitting QueryState = "SUBMITTING"
)

// LoginState tracks authentication.
type LoginState string

const (
	LoggedOut LoginState = "LOGGED_OUT"
	LoggingIn LoginState = "LOGGING_IN"
	LoggedIn  LoginState = "LOGGED_IN"
)

// User is an authenticated profile.
type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar"`
}

// Credentials are what the login form submits.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Draft is the query being composed but not yet submitted.
type Draft struct {
	Mode      retrieval.Mode      `json:"mode"`
	Algorithm retrieval.Algorithm `json:"algorithm"`
	Text      string              `json:"text"`
	Image     *retrieval.ImageRef `json:"-"`
}

// Request turns the draft into a retrieval request for loc.
func (d Draft) Request(loc locale.Locale) retrieval.Request {
	return retrieval.Request{
		Mode:      d.Mode,
		Algorithm: d.Algorithm,
		Text:      d.Text,
		Image:     d.Image,
		Locale:    loc,
	}
}

// defaultDraft matches the initial form: text mode with the fast model.
func defaultDraft() Draft {
	return Draft{Mode: retrieval.ModeText, Algorithm: retrieval.AlgorithmFast}
}

// State is a consistent point-in-time copy of a session.
type State struct {
	ID         string           `json:"id"`
	Locale     locale.Locale    `json:"locale"`
	User       *User            `json:"user,omitempty"`
	View       View             `json:"view"`
	Draft      Draft            `json:"draft"`
	DraftImage string           `json:"draft_image,omitempty"`
	Results    retrieval.Result `json:"results"`
	Liked      []string         `json:"liked"`
	History    []history.Entry  `json:"history"`
	Query      QueryState       `json:"query_state"`
	Login      LoginState       `json:"login_state"`
}

// Outcome is the completion value of an asynchronous query.
type Outcome struct {
	Result retrieval.Result
	Entry  history.Entry
	Err    error
}
