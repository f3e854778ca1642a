package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/client/client"
	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
)

// DefaultProfileCheckDelay is how long Register waits before making sure
// the new user's profile row exists.
const DefaultProfileCheckDelay = time.Second

var ErrClosed = errors.New("auth store closed")

type Options struct {
	Auth     client.Auth
	Profiles client.Profiles
	Logger   logging.Logger
	// ProfileCheckDelay defaults to DefaultProfileCheckDelay.
	ProfileCheckDelay time.Duration
}

type fetchTask struct {
	gen    uint64
	userID string
}

// Store is the process-wide auth state. Create it with NewStore, start it
// with Init and release it with Close.
type Store struct {
	auth     client.Auth
	profiles client.Profiles
	log      logging.Logger
	delay    time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	started  bool
	closed   bool
	inFlight int
	fetching bool
	gen      uint64
	// writes counts committed profile writes. A fetch that started before
	// the latest write returns an older profile and is dropped.
	writes   uint64
	session  *models.Session
	user     *models.UserProfile
	sub      client.Subscription
	changed  chan struct{}
	next     *fetchTask
	wake     chan struct{}
	timers   map[*time.Timer]struct{}

	// mutate serializes profile writes so each one starts from the result
	// of the previous.
	mutate sync.Mutex
}

func NewStore(opts Options) (*Store, error) {
	if opts.Auth == nil || opts.Profiles == nil {
		return nil, errors.New("auth store requires auth and profile services")
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.ProfileCheckDelay <= 0 {
		opts.ProfileCheckDelay = DefaultProfileCheckDelay
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Store{
		auth:     opts.Auth,
		profiles: opts.Profiles,
		log:      opts.Logger.With("component", "auth"),
		delay:    opts.ProfileCheckDelay,
		ctx:      ctx,
		cancel:   cancel,
		changed:  make(chan struct{}),
		wake:     make(chan struct{}, 1),
		timers:   map[*time.Timer]struct{}{},
	}, nil
}

// Init subscribes to auth events and then probes the current session. A
// failing probe is returned and leaves the store unauthenticated.
func (s *Store) Init(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.inFlight++
	s.mu.Unlock()
	s.notify()

	s.wg.Add(1)
	go s.fetchLoop()

	sub := s.auth.OnAuthStateChange(s.onEvent)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		sub.Unsubscribe()
		return ErrClosed
	}
	s.sub = sub
	before := s.gen
	s.mu.Unlock()

	sess, err := s.auth.GetSession(ctx)

	s.mu.Lock()
	s.inFlight--
	// An event processed during the probe is at least as recent.
	if err == nil && !s.closed && s.gen == before {
		s.applySessionLocked(sess)
	}
	s.mu.Unlock()
	s.notify()

	if err != nil {
		s.log.Error(ctx, "auth initialization failed", "error", err)
		return fmt.Errorf("get session: %w", err)
	}
	return nil
}

func (s *Store) onEvent(evt models.AuthEvent) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.applySessionLocked(evt.Session)
	s.mu.Unlock()

	s.log.Info(s.ctx, "auth state change", "event", string(evt.Type), "user_id", evt.Session.UserID())
	s.notify()
}

// applySessionLocked stores sess and queues a profile fetch for its user.
// A different user's profile is dropped at once; the same user's profile
// stays visible while it is refreshed.
func (s *Store) applySessionLocked(sess *models.Session) {
	s.gen++
	s.session = sess

	uid := sess.UserID()
	if uid == "" {
		s.user = nil
		s.fetching = false
		s.next = nil
		return
	}
	if s.user != nil && s.user.ID != uid {
		s.user = nil
	}
	s.fetching = true
	s.next = &fetchTask{gen: s.gen, userID: uid}
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// fetchLoop is the single consumer of profile fetches. Only the latest
// queued task is kept; older ones are already stale.
func (s *Store) fetchLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.wake:
		}

		s.mu.Lock()
		task := s.next
		s.next = nil
		writes := s.writes
		s.mu.Unlock()
		if task == nil {
			continue
		}

		profile := s.fetchProfile(s.ctx, task.userID)

		s.mu.Lock()
		if s.closed || task.gen != s.gen {
			s.mu.Unlock()
			continue
		}
		if writes == s.writes || s.user == nil {
			s.user = profile
		} else {
			s.log.Info(s.ctx, "dropping profile fetched before a local write", "user_id", task.userID)
		}
		s.fetching = false
		s.mu.Unlock()
		s.notify()
	}
}

// fetchProfile returns nil on any failure.
func (s *Store) fetchProfile(ctx context.Context, userID string) *models.UserProfile {
	rec, err := s.profiles.Select(ctx, userID)
	if err != nil {
		if errors.Is(err, client.ErrNotFound) {
			s.log.Info(ctx, "no profile data found", "user_id", userID)
		} else {
			s.log.Error(ctx, "error fetching user profile", "user_id", userID, "error", err)
		}
		return nil
	}
	if rec == nil {
		return nil
	}
	p := models.ProfileFromRecord(*rec)
	return &p
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{State: s.stateLocked()}
	if s.session != nil {
		sess := *s.session
		snap.Session = &sess
	}
	if s.user != nil {
		u := *s.user
		u.Bookmarks = append([]string{}, s.user.Bookmarks...)
		snap.User = &u
	}
	return snap
}

func (s *Store) stateLocked() State {
	switch {
	case !s.started:
		return StateUninitialized
	case s.inFlight > 0:
		return StateLoading
	case s.session != nil && s.user != nil:
		return StateAuthenticated
	case s.session != nil && s.fetching:
		return StateLoading
	default:
		return StateUnauthenticated
	}
}

func (s *Store) State() State { return s.Snapshot().State }

func (s *Store) IsAuthenticated() bool { return s.Snapshot().IsAuthenticated() }

func (s *Store) IsTeacher() bool { return s.Snapshot().IsTeacher() }

// Changed returns a channel that is closed on the next state change.
func (s *Store) Changed() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changed
}

func (s *Store) notify() {
	s.mu.Lock()
	close(s.changed)
	s.changed = make(chan struct{})
	s.mu.Unlock()
}

// WaitSettled blocks until the store leaves the loading states.
func (s *Store) WaitSettled(ctx context.Context) (Snapshot, error) {
	for {
		s.mu.Lock()
		snap := s.snapshotLocked()
		ch := s.changed
		s.mu.Unlock()
		if !snap.IsLoading() {
			return snap, nil
		}
		select {
		case <-ctx.Done():
			return snap, ctx.Err()
		case <-ch:
		}
	}
}

func (s *Store) begin() {
	s.mu.Lock()
	s.inFlight++
	s.mu.Unlock()
	s.notify()
}

func (s *Store) end() {
	s.mu.Lock()
	s.inFlight--
	s.mu.Unlock()
	s.notify()
}

// Login signs in. The store becomes authenticated when the resulting event
// has been processed, not when Login returns.
func (s *Store) Login(ctx context.Context, email, password string) error {
	s.begin()
	defer s.end()

	s.log.Info(ctx, "attempting login", "email", email)
	if _, err := s.auth.SignInWithPassword(ctx, email, password); err != nil {
		s.log.Error(ctx, "login failed", "email", email, "error", err)
		return &AuthError{Op: "login", Err: err}
	}
	return nil
}

// Register signs up and schedules a check that inserts the profile row if
// the backend did not create one.
func (s *Store) Register(ctx context.Context, reg models.Registration) error {
	if err := reg.Validate(); err != nil {
		return err
	}

	s.begin()
	defer s.end()

	s.log.Info(ctx, "registering user", "email", reg.Email, "role", string(reg.Role))
	user, _, err := s.auth.SignUp(ctx, reg.Email, reg.Password, map[string]any{
		"name": reg.Name,
		"role": string(reg.Role),
	})
	if err != nil {
		s.log.Error(ctx, "registration failed", "email", reg.Email, "error", err)
		return &AuthError{Op: "register", Err: err}
	}
	if user != nil {
		s.scheduleProfileCheck(models.ProfileRecord{
			ID:        user.ID,
			Name:      reg.Name,
			Email:     reg.Email,
			Role:      string(reg.Role),
			Bookmarks: []string{},
		})
	}
	return nil
}

func (s *Store) scheduleProfileCheck(rec models.ProfileRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	var t *time.Timer
	s.wg.Add(1)
	t = time.AfterFunc(s.delay, func() {
		defer s.wg.Done()
		s.mu.Lock()
		delete(s.timers, t)
		s.mu.Unlock()
		s.ensureProfile(s.ctx, rec)
	})
	s.timers[t] = struct{}{}
}

func (s *Store) ensureProfile(ctx context.Context, rec models.ProfileRecord) {
	_, err := s.profiles.Select(ctx, rec.ID)
	if err == nil {
		return
	}
	if !errors.Is(err, client.ErrNotFound) {
		s.log.Warn(ctx, "profile check failed", "user_id", rec.ID, "error", err)
		if ctx.Err() != nil {
			return
		}
	}

	s.log.Info(ctx, "no profile found, creating manually", "user_id", rec.ID)
	if err := s.profiles.Insert(ctx, rec); err != nil {
		s.log.Error(ctx, "error creating profile manually", "user_id", rec.ID, "error", err)
		return
	}

	// Any earlier fetch for this user may have missed the row; fetch again.
	// The worker runs tasks in order, so this one commits last.
	s.mu.Lock()
	if !s.closed && s.session.UserID() == rec.ID && s.user == nil {
		s.fetching = true
		s.next = &fetchTask{gen: s.gen, userID: rec.ID}
		select {
		case s.wake <- struct{}{}:
		default:
		}
	}
	s.mu.Unlock()
	s.notify()
}

// Logout signs out. The store becomes unauthenticated when the resulting
// event has been processed.
func (s *Store) Logout(ctx context.Context) error {
	s.begin()
	defer s.end()

	if err := s.auth.SignOut(ctx); err != nil {
		s.log.Error(ctx, "logout failed", "error", err)
		return &AuthError{Op: "logout", Err: err}
	}
	return nil
}

// IsBookmarked reports whether noteID is in the current user's bookmarks.
func (s *Store) IsBookmarked(noteID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user != nil && s.user.HasBookmark(noteID)
}

// ToggleBookmark adds noteID to the bookmarks or removes it. Without an
// authenticated user it does nothing. The local list changes only after the
// remote write succeeded; a failed write is logged and returned.
func (s *Store) ToggleBookmark(ctx context.Context, noteID string) error {
	s.mutate.Lock()
	defer s.mutate.Unlock()

	s.mu.Lock()
	if s.session == nil || s.user == nil {
		s.mu.Unlock()
		return nil
	}
	userID := s.user.ID
	current := append([]string{}, s.user.Bookmarks...)
	s.mu.Unlock()

	removing := false
	updated := make([]string, 0, len(current)+1)
	for _, id := range current {
		if id == noteID {
			removing = true
			continue
		}
		updated = append(updated, id)
	}
	if !removing {
		updated = append(updated, noteID)
	}

	if err := s.profiles.Update(ctx, userID, map[string]any{"bookmarks": updated}); err != nil {
		s.log.Error(ctx, "error toggling bookmark", "user_id", userID, "note_id", noteID, "error", err)
		return fmt.Errorf("toggle bookmark %q: %w", noteID, err)
	}

	s.mu.Lock()
	if s.user != nil && s.user.ID == userID {
		s.user.Bookmarks = updated
		s.writes++
	}
	s.mu.Unlock()
	s.notify()

	if removing {
		s.log.Info(ctx, "bookmark removed", "note_id", noteID)
	} else {
		s.log.Info(ctx, "bookmark added", "note_id", noteID)
	}
	return nil
}

// UpdateProfile writes the given fields remotely and then merges them into
// the local profile.
func (s *Store) UpdateProfile(ctx context.Context, upd models.ProfileUpdate) error {
	if err := upd.Validate(); err != nil {
		return err
	}

	s.mutate.Lock()
	defer s.mutate.Unlock()

	s.mu.Lock()
	if s.session == nil || s.user == nil {
		s.mu.Unlock()
		return common.ErrNotAuthenticated
	}
	userID := s.user.ID
	s.mu.Unlock()

	if fields := upd.Fields(); len(fields) > 0 {
		if err := s.profiles.Update(ctx, userID, fields); err != nil {
			s.log.Error(ctx, "profile update failed", "user_id", userID, "error", err)
			return fmt.Errorf("update profile: %w", err)
		}
	}

	s.mu.Lock()
	if s.user != nil && s.user.ID == userID {
		upd.Apply(s.user)
		s.writes++
	}
	s.mu.Unlock()
	s.notify()
	return nil
}

// Close unsubscribes, stops the fetch worker and pending profile checks and
// waits for them. Later events and fetch results are ignored.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	sub := s.sub
	s.sub = nil
	for t := range s.timers {
		if t.Stop() {
			s.wg.Done()
		}
		delete(s.timers, t)
	}
	s.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
	s.cancel()
	s.wg.Wait()
	s.notify()
}
