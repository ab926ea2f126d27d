package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"hashrecipe/internal/history"
	"hashrecipe/internal/locale"
	"hashrecipe/internal/logging"
	"hashrecipe/internal/metrics"
	"hashrecipe/internal/preference"
	"hashrecipe/internal/recipe"
	"hashrecipe/internal/retrieval"
)

// DefaultQueryLatency is the simulated retrieval round trip.
const DefaultQueryLatency = 1200 * time.Millisecond

// Executor runs a retrieval request against a corpus.
type Executor interface {
	Execute(ctx context.Context, req retrieval.Request, corpus []recipe.Recipe) (retrieval.Result, error)
}

// Option configures a Session.
type Option func(*Session)

// WithQueryLatency sets the simulated delay before each query executes.
func WithQueryLatency(d time.Duration) Option {
	return func(s *Session) { s.queryLatency = d }
}

// WithQueryTimeout bounds each query, latency included. Zero disables it.
func WithQueryTimeout(d time.Duration) Option {
	return func(s *Session) { s.queryTimeout = d }
}

// WithClock overrides the history clock.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithLocale sets the initial locale.
func WithLocale(loc locale.Locale) Option {
	return func(s *Session) { s.locale = loc }
}

// WithAuthenticator replaces the mock authenticator.
func WithAuthenticator(a Authenticator) Option {
	return func(s *Session) { s.auth = a }
}

// Session is one user's interaction state. All mutable fields are guarded by
// mu; the two suspension points release it while they wait, so likes,
// navigation and locale switches proceed during an in-flight query.
type Session struct {
	id       string
	catalog  recipe.Catalog
	executor Executor
	auth     Authenticator

	queryLatency time.Duration
	queryTimeout time.Duration
	now          func() time.Time

	mu         sync.Mutex
	locale     locale.Locale
	user       *User
	view       View
	draft      Draft
	results    retrieval.Result
	likes      *preference.LikeSet
	ledger     *history.Ledger
	queryState QueryState
	loginState LoginState
	loginGen   uint64
}

// New creates a session showing the full corpus of its initial locale.
func New(id string, catalog recipe.Catalog, executor Executor, opts ...Option) *Session {
	s := &Session{
		id:           id,
		catalog:      catalog,
		executor:     executor,
		auth:         NewMockAuthenticator(DefaultLoginLatency),
		queryLatency: DefaultQueryLatency,
		now:          time.Now,
		locale:       locale.Default,
		view:         ViewHome,
		draft:        defaultDraft(),
		likes:        preference.NewLikeSet(),
		queryState:   QueryIdle,
		loginState:   LoggedOut,
	}
	for _, opt := range opts {
		opt(s)
	}
	locale.MustValid(s.locale)
	s.ledger = history.NewLedger(history.WithClock(s.now))
	s.results = retrieval.ResultOf(catalog.Corpus(s.locale))
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// SubmitQuery validates req, waits out the simulated latency, executes it and
// publishes the result together with a new history entry. The request's
// locale is taken from the session. A failed query changes nothing.
func (s *Session) SubmitQuery(ctx context.Context, req retrieval.Request) (retrieval.Result, error) {
	req, corpus, err := s.beginQuery(req)
	if err != nil {
		return retrieval.Result{}, err
	}
	out := s.runQuery(ctx, req, corpus)
	return out.Result, out.Err
}

// SubmitQueryAsync performs the same checks as SubmitQuery synchronously and
// then completes the query in the background. The channel receives exactly
// one Outcome and is closed.
func (s *Session) SubmitQueryAsync(ctx context.Context, req retrieval.Request) (<-chan Outcome, error) {
	req, corpus, err := s.beginQuery(req)
	if err != nil {
		return nil, err
	}
	ch := make(chan Outcome, 1)
	go func() {
		defer close(ch)
		ch <- s.runQuery(ctx, req, corpus)
	}()
	return ch, nil
}

// SubmitDraft submits the current draft.
func (s *Session) SubmitDraft(ctx context.Context) (retrieval.Result, error) {
	return s.SubmitQuery(ctx, s.Draft().Request(""))
}

// beginQuery moves IDLE -> SUBMITTING, or rejects the request.
func (s *Session) beginQuery(req retrieval.Request) (retrieval.Request, []recipe.Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req.Locale = s.locale
	if err := req.Validate(); err != nil {
		metrics.RecordQuery(string(req.Mode), string(req.Algorithm), "rejected", 0)
		return req, nil, err
	}
	if s.queryState == QuerySubmitting {
		metrics.RecordQuery(string(req.Mode), string(req.Algorithm), "rejected", 0)
		return req, nil, fmt.Errorf("query: %w", ErrBusy)
	}
	s.queryState = QuerySubmitting
	logging.Debug().Str("session", s.id).Str("mode", string(req.Mode)).Str("algorithm", string(req.Algorithm)).Msg("query submitting")
	return req, s.catalog.Corpus(s.locale), nil
}

// runQuery executes a begun query and moves SUBMITTING -> IDLE.
func (s *Session) runQuery(ctx context.Context, req retrieval.Request, corpus []recipe.Recipe) Outcome {
	start := time.Now()
	if s.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()
	}

	res, err := s.execute(ctx, req, corpus)

	s.mu.Lock()
	s.queryState = QueryIdle
	if err != nil {
		s.mu.Unlock()
		metrics.RecordQuery(string(req.Mode), string(req.Algorithm), "failed", time.Since(start))
		logging.Warn().Err(err).Str("session", s.id).Str("mode", string(req.Mode)).Msg("query failed")
		return Outcome{Err: err}
	}

	if s.locale != req.Locale {
		res = relocalize(res, s.catalog.Corpus(s.locale))
	}
	s.results = res
	entry := s.ledger.Append(history.Fields{
		Query:       queryLabel(req),
		Mode:        req.Mode,
		Algorithm:   req.Algorithm,
		ResultCount: res.Count,
		Locale:      s.locale,
	})
	s.mu.Unlock()

	metrics.RecordQuery(string(req.Mode), string(req.Algorithm), "completed", time.Since(start))
	metrics.RecordResults(string(req.Mode), res.Count)
	logging.Debug().Str("session", s.id).Int("results", res.Count).Str("entry", entry.ID).Msg("query completed")
	return Outcome{Result: res, Entry: entry}
}

func (s *Session) execute(ctx context.Context, req retrieval.Request, corpus []recipe.Recipe) (retrieval.Result, error) {
	if err := sleep(ctx, s.queryLatency); err != nil {
		return retrieval.Result{}, fmt.Errorf("%w: %w", retrieval.ErrRetrievalFailure, err)
	}
	return s.executor.Execute(ctx, req, corpus)
}

// relocalize re-resolves hits by id against corpus, keeping rank and score.
func relocalize(res retrieval.Result, corpus []recipe.Recipe) retrieval.Result {
	hits := make([]retrieval.Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		if r, ok := recipe.Find(corpus, h.Recipe.ID); ok {
			hits = append(hits, retrieval.Hit{Recipe: r, Score: h.Score})
		}
	}
	return retrieval.Result{Hits: hits, Count: len(hits)}
}

// queryLabel is the history label: the text term, else the image name, else
// the placeholder of the locale the query was issued in.
func queryLabel(req retrieval.Request) string {
	if req.Mode == retrieval.ModeText {
		return req.Text
	}
	if req.Image != nil && req.Image.Name != "" {
		return req.Image.Name
	}
	return locale.MessagesFor(req.Locale).ImagePlaceholder
}

// SetDraft replaces the query draft. Drafts are not validated until submitted.
func (s *Session) SetDraft(d Draft) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = d
}

// Draft returns the query draft.
func (s *Session) Draft() Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// ToggleLike flips the liked state of id and returns the new state.
func (s *Session) ToggleLike(id string) bool {
	liked := s.likes.Toggle(id)
	metrics.RecordLike(liked)
	return liked
}

// IsLiked reports whether id is liked.
func (s *Session) IsLiked(id string) bool {
	return s.likes.IsLiked(id)
}

// LikedRecipes returns the liked records of the active locale in corpus order.
func (s *Session) LikedRecipes() []recipe.Recipe {
	s.mu.Lock()
	corpus := s.catalog.Corpus(s.locale)
	s.mu.Unlock()

	out := make([]recipe.Recipe, 0, s.likes.Len())
	for _, r := range corpus {
		if s.likes.IsLiked(r.ID) {
			out = append(out, r)
		}
	}
	return out
}

// SwitchLocale activates loc and resets the result set to its full corpus.
// The draft, likes and history are untouched. An in-flight query still
// completes and publishes its hits in the new locale.
func (s *Session) SwitchLocale(loc locale.Locale) error {
	if !loc.Valid() {
		return fmt.Errorf("switch locale: %w: %q", locale.ErrUnsupported, string(loc))
	}
	s.mu.Lock()
	s.locale = loc
	s.results = retrieval.ResultOf(s.catalog.Corpus(loc))
	s.mu.Unlock()

	metrics.LocaleSwitches.WithLabelValues(loc.String()).Inc()
	logging.Debug().Str("session", s.id).Str("locale", loc.String()).Msg("locale switched")
	return nil
}

// Locale returns the active locale.
func (s *Session) Locale() locale.Locale {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locale
}

// Navigate changes the active view. Profile and history need a user.
func (s *Session) Navigate(v View) error {
	if _, err := ParseView(string(v)); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if v.requiresLogin() && s.loginState != LoggedIn {
		return fmt.Errorf("view %s: %w", v, ErrNotLoggedIn)
	}
	s.view = v
	return nil
}

// ExportHistory renders the history ledger in the active locale.
func (s *Session) ExportHistory() [][]string {
	return s.ledger.Export(s.Locale())
}

// Results returns the active result set.
func (s *Session) Results() retrieval.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results
}

// Recipe looks id up in the active locale.
func (s *Session) Recipe(id string) (recipe.Recipe, error) {
	r, ok := recipe.Find(s.catalog.Corpus(s.Locale()), id)
	if !ok {
		return recipe.Recipe{}, fmt.Errorf("recipe %q: %w", id, ErrNotFound)
	}
	return r, nil
}

// Login moves LOGGED_OUT -> LOGGING_IN, authenticates and lands in
// LOGGED_IN or back in LOGGED_OUT. Logging in while logged in returns the
// current user.
func (s *Session) Login(ctx context.Context, creds Credentials) (User, error) {
	s.mu.Lock()
	switch s.loginState {
	case LoggingIn:
		s.mu.Unlock()
		metrics.LoginsTotal.WithLabelValues("rejected").Inc()
		return User{}, fmt.Errorf("login: %w", ErrBusy)
	case LoggedIn:
		u := *s.user
		s.mu.Unlock()
		return u, nil
	}
	s.loginState = LoggingIn
	gen := s.loginGen
	s.mu.Unlock()

	user, err := s.auth.Authenticate(ctx, creds)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.loginGen {
		metrics.LoginsTotal.WithLabelValues("failed").Inc()
		return User{}, fmt.Errorf("%w: superseded by logout", ErrAuthFailure)
	}
	if err != nil {
		s.loginState = LoggedOut
		metrics.LoginsTotal.WithLabelValues("failed").Inc()
		logging.Warn().Err(err).Str("session", s.id).Msg("login failed")
		if !errors.Is(err, ErrAuthFailure) {
			err = fmt.Errorf("%w: %w", ErrAuthFailure, err)
		}
		return User{}, err
	}
	s.user = &user
	s.loginState = LoggedIn
	metrics.LoginsTotal.WithLabelValues("succeeded").Inc()
	logging.Info().Str("session", s.id).Str("user", user.ID).Msg("logged in")
	return user, nil
}

// Logout clears the user and likes and returns to the home view. History
// is kept for the lifetime of the session. A login in flight is abandoned.
func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.loginState = LoggedOut
	s.loginGen++
	s.view = ViewHome
	s.likes.Clear()
}

// User returns the logged-in user, if any.
func (s *Session) User() (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return User{}, false
	}
	return *s.user, true
}

// Snapshot returns a consistent copy of the session state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		ID:      s.id,
		Locale:  s.locale,
		View:    s.view,
		Draft:   s.draft,
		Results: s.results,
		Liked:   s.likes.All(),
		History: s.ledger.Entries(),
		Query:   s.queryState,
		Login:   s.loginState,
	}
	if s.user != nil {
		u := *s.user
		st.User = &u
	}
	if s.draft.Image != nil {
		st.DraftImage = s.draft.Image.Name
	}
	return st
}
