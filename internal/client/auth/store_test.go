package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/notekeeper/internal/backend/inmemory"
	"github.com/dmitrijs2005/notekeeper/internal/client/client"
	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/common"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func newBackend(t *testing.T, trigger bool) *inmemory.Backend {
	t.Helper()
	b := inmemory.New(inmemory.Options{ProfileTrigger: trigger})
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func newStore(t *testing.T, b *inmemory.Backend) *Store {
	t.Helper()
	s, err := NewStore(Options{Auth: b.Auth(), Profiles: b.Profiles(), ProfileCheckDelay: 10 * time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

// seedUser registers an account directly on the backend and signs it out
// again, so the store starts from a clean session.
func seedUser(t *testing.T, b *inmemory.Backend, email, role string) string {
	t.Helper()
	ctx := context.Background()
	u, _, err := b.Auth().SignUp(ctx, email, "secret1", map[string]any{"name": "Seed", "role": role})
	require.NoError(t, err)
	require.NoError(t, b.Auth().SignOut(ctx))
	return u.ID
}

func waitState(t *testing.T, s *Store, want State) {
	t.Helper()
	require.Eventually(t, func() bool { return s.State() == want }, waitFor, tick, "want state %s, got %s", want, s.State())
}

func TestNewStore_RequiresServices(t *testing.T) {
	_, err := NewStore(Options{})
	assert.Error(t, err)
}

func TestStore_StatesBeforeAndAfterInit(t *testing.T) {
	b := newBackend(t, true)
	s := newStore(t, b)

	assert.Equal(t, StateUninitialized, s.State())
	assert.True(t, s.Snapshot().IsLoading())

	require.NoError(t, s.Init(context.Background()))
	waitState(t, s, StateUnauthenticated)
	assert.False(t, s.IsAuthenticated())

	// second Init is a no-op
	require.NoError(t, s.Init(context.Background()))
}

func TestStore_InitProbeFails(t *testing.T) {
	b := newBackend(t, true)
	boom := errors.New("backend down")
	b.AuthService().SetHook("session", func(context.Context, string) error { return boom })
	s := newStore(t, b)

	err := s.Init(context.Background())
	require.ErrorIs(t, err, boom)
	waitState(t, s, StateUnauthenticated)
}

func TestStore_AuthenticatedOnlyAfterProfileResolves(t *testing.T) {
	b := newBackend(t, true)
	uid := seedUser(t, b, "ann@example.com", "teacher")
	s := newStore(t, b)
	ctx := context.Background()
	require.NoError(t, s.Init(ctx))
	waitState(t, s, StateUnauthenticated)

	release := make(chan struct{})
	b.ProfileTable().SetHook("select", func(ctx context.Context, _ string) error {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	})

	require.NoError(t, s.Login(ctx, "ann@example.com", "secret1"))

	require.Eventually(t, func() bool {
		snap := s.Snapshot()
		return snap.Session != nil && snap.User == nil
	}, waitFor, tick)
	snap := s.Snapshot()
	assert.Equal(t, StateLoading, snap.State)
	assert.False(t, snap.IsAuthenticated())
	assert.False(t, s.IsAuthenticated())

	close(release)
	waitState(t, s, StateAuthenticated)
	snap = s.Snapshot()
	assert.True(t, snap.IsAuthenticated())
	assert.True(t, snap.IsTeacher())
	assert.Equal(t, uid, snap.User.ID)
}

func TestStore_LoginRejected(t *testing.T) {
	b := newBackend(t, true)
	seedUser(t, b, "ann@example.com", "student")
	s := newStore(t, b)
	ctx := context.Background()
	require.NoError(t, s.Init(ctx))

	err := s.Login(ctx, "ann@example.com", "nope")
	require.Error(t, err)

	var ae *AuthError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "login", ae.Op)
	assert.Equal(t, client.ErrInvalidCredentials.Error(), err.Error())
	assert.ErrorIs(t, err, client.ErrInvalidCredentials)

	waitState(t, s, StateUnauthenticated)
}

func TestStore_Logout(t *testing.T) {
	b := newBackend(t, true)
	seedUser(t, b, "ann@example.com", "student")
	s := newStore(t, b)
	ctx := context.Background()
	require.NoError(t, s.Init(ctx))

	require.NoError(t, s.Login(ctx, "ann@example.com", "secret1"))
	waitState(t, s, StateAuthenticated)

	require.NoError(t, s.Logout(ctx))
	waitState(t, s, StateUnauthenticated)
	assert.Nil(t, s.Snapshot().User)
	assert.Nil(t, s.Snapshot().Session)

	boom := errors.New("network")
	b.AuthService().SetHook("signout", func(context.Context, string) error { return boom })
	err := s.Logout(ctx)
	var ae *AuthError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "network", err.Error())
}

func TestStore_RegisterCreatesMissingProfile(t *testing.T) {
	b := newBackend(t, false)
	s := newStore(t, b)
	ctx := context.Background()
	require.NoError(t, s.Init(ctx))

	reg := models.Registration{Email: "new@example.com", Password: "secret1", Name: "Newbie", Role: models.RoleStudent}
	require.NoError(t, s.Register(ctx, reg))

	waitState(t, s, StateAuthenticated)
	snap := s.Snapshot()
	assert.Equal(t, "Newbie", snap.User.Name)
	assert.Equal(t, models.RoleStudent, snap.User.Role)
	assert.Equal(t, []string{}, snap.User.Bookmarks)

	ins, _ := b.ProfileTable().Counts()
	assert.Equal(t, 1, ins)
}

func TestStore_RegisterKeepsTriggerProfile(t *testing.T) {
	b := newBackend(t, true)
	s := newStore(t, b)
	ctx := context.Background()
	require.NoError(t, s.Init(ctx))

	reg := models.Registration{Email: "t@example.com", Password: "secret1", Name: "Tess", Role: models.RoleTeacher}
	require.NoError(t, s.Register(ctx, reg))
	waitState(t, s, StateAuthenticated)

	// give the delayed check time to run
	time.Sleep(50 * time.Millisecond)
	ins, _ := b.ProfileTable().Counts()
	assert.Equal(t, 1, ins)
}

func TestStore_RegisterErrors(t *testing.T) {
	b := newBackend(t, true)
	seedUser(t, b, "dup@example.com", "student")
	s := newStore(t, b)
	ctx := context.Background()
	require.NoError(t, s.Init(ctx))

	err := s.Register(ctx, models.Registration{Email: "bad", Password: "1", Name: "", Role: "admin"})
	assert.ErrorIs(t, err, common.ErrValidation)

	err = s.Register(ctx, models.Registration{Email: "dup@example.com", Password: "secret1", Name: "Dup", Role: models.RoleStudent})
	var ae *AuthError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "register", ae.Op)
	assert.Equal(t, "User already registered", err.Error())
	waitState(t, s, StateUnauthenticated)
}

func loggedIn(t *testing.T) (*inmemory.Backend, *Store, string) {
	t.Helper()
	b := newBackend(t, true)
	uid := seedUser(t, b, "ann@example.com", "student")
	s := newStore(t, b)
	ctx := context.Background()
	require.NoError(t, s.Init(ctx))
	require.NoError(t, s.Login(ctx, "ann@example.com", "secret1"))
	waitState(t, s, StateAuthenticated)
	return b, s, uid
}

func TestStore_ToggleBookmarkRoundTrip(t *testing.T) {
	b, s, uid := loggedIn(t)
	ctx := context.Background()

	require.NoError(t, b.Profiles().Update(ctx, uid, map[string]any{"bookmarks": []string{"a"}}))
	require.NoError(t, s.Logout(ctx))
	waitState(t, s, StateUnauthenticated)
	require.NoError(t, s.Login(ctx, "ann@example.com", "secret1"))
	waitState(t, s, StateAuthenticated)

	before, err := b.Profiles().Select(ctx, uid)
	require.NoError(t, err)
	assert.False(t, s.IsBookmarked("n1"))

	require.NoError(t, s.ToggleBookmark(ctx, "n1"))
	assert.True(t, s.IsBookmarked("n1"))
	mid, _ := b.Profiles().Select(ctx, uid)
	assert.Equal(t, []string{"a", "n1"}, mid.Bookmarks)

	require.NoError(t, s.ToggleBookmark(ctx, "n1"))
	assert.False(t, s.IsBookmarked("n1"))

	after, _ := b.Profiles().Select(ctx, uid)
	assert.Len(t, after.Bookmarks, len(before.Bookmarks))
	assert.Equal(t, []string{"a"}, s.Snapshot().User.Bookmarks)
}

func TestStore_ToggleBookmarkRemoteFailureKeepsLocalState(t *testing.T) {
	b, s, _ := loggedIn(t)
	ctx := context.Background()

	boom := errors.New("write rejected")
	b.ProfileTable().SetHook("update", func(context.Context, string) error { return boom })

	err := s.ToggleBookmark(ctx, "n1")
	require.ErrorIs(t, err, boom)
	assert.False(t, s.IsBookmarked("n1"))
}

func TestStore_ToggleBookmarkWithoutUser(t *testing.T) {
	b := newBackend(t, true)
	s := newStore(t, b)
	require.NoError(t, s.Init(context.Background()))

	require.NoError(t, s.ToggleBookmark(context.Background(), "n1"))
	assert.False(t, s.IsBookmarked("n1"))
	_, upd := b.ProfileTable().Counts()
	assert.Equal(t, 0, upd)
}

func TestStore_UpdateProfile(t *testing.T) {
	b, s, uid := loggedIn(t)
	ctx := context.Background()

	name, bio := "Ann B", "Maths tutor"
	require.NoError(t, s.UpdateProfile(ctx, models.ProfileUpdate{Name: &name, Bio: &bio}))

	snap := s.Snapshot()
	assert.Equal(t, "Ann B", snap.User.Name)
	assert.Equal(t, "Maths tutor", snap.User.Bio)
	assert.Equal(t, "ann@example.com", snap.User.Email)

	row, err := b.Profiles().Select(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, "Ann B", row.Name)
	require.NotNil(t, row.Bio)
	assert.Equal(t, "Maths tutor", *row.Bio)
	assert.Equal(t, "ann@example.com", row.Email)

	bad := "not-an-email"
	assert.ErrorIs(t, s.UpdateProfile(ctx, models.ProfileUpdate{Email: &bad}), common.ErrValidation)

	boom := errors.New("write rejected")
	b.ProfileTable().SetHook("update", func(context.Context, string) error { return boom })
	other := "Someone"
	require.ErrorIs(t, s.UpdateProfile(ctx, models.ProfileUpdate{Name: &other}), boom)
	assert.Equal(t, "Ann B", s.Snapshot().User.Name)
}

func TestStore_UpdateProfileRequiresUser(t *testing.T) {
	b := newBackend(t, true)
	s := newStore(t, b)
	require.NoError(t, s.Init(context.Background()))

	name := "x"
	err := s.UpdateProfile(context.Background(), models.ProfileUpdate{Name: &name})
	assert.ErrorIs(t, err, common.ErrNotAuthenticated)
}

func TestStore_StaleProfileFetchDropped(t *testing.T) {
	b := newBackend(t, true)
	seedUser(t, b, "ann@example.com", "student")
	s := newStore(t, b)
	ctx := context.Background()
	require.NoError(t, s.Init(ctx))
	waitState(t, s, StateUnauthenticated)

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	b.ProfileTable().SetHook("select", func(ctx context.Context, _ string) error {
		once.Do(func() { close(started) })
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	})

	require.NoError(t, s.Login(ctx, "ann@example.com", "secret1"))
	select {
	case <-started:
	case <-time.After(waitFor):
		t.Fatal("profile fetch never started")
	}

	b.AuthService().Expire()
	require.Eventually(t, func() bool { return s.Snapshot().Session == nil }, waitFor, tick)

	close(release)
	time.Sleep(50 * time.Millisecond)
	snap := s.Snapshot()
	assert.Nil(t, snap.User)
	assert.Equal(t, StateUnauthenticated, snap.State)
}

// laggingProfiles reads the row and then, when held, blocks before
// returning it.
type laggingProfiles struct {
	client.Profiles
	mu   sync.Mutex
	hold chan struct{}
	read chan struct{}
}

func (p *laggingProfiles) holdNextSelect() (read, release chan struct{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hold, p.read = make(chan struct{}), make(chan struct{})
	return p.read, p.hold
}

func (p *laggingProfiles) Select(ctx context.Context, id string) (*models.ProfileRecord, error) {
	rec, err := p.Profiles.Select(ctx, id)
	p.mu.Lock()
	hold, read := p.hold, p.read
	p.hold, p.read = nil, nil
	p.mu.Unlock()
	if hold != nil {
		close(read)
		select {
		case <-hold:
		case <-ctx.Done():
		}
	}
	return rec, err
}

func TestStore_ProfileFetchOlderThanWriteDropped(t *testing.T) {
	b := newBackend(t, true)
	uid := seedUser(t, b, "ann@example.com", "student")
	profiles := &laggingProfiles{Profiles: b.Profiles()}
	s, err := NewStore(Options{Auth: b.Auth(), Profiles: profiles, ProfileCheckDelay: 10 * time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(s.Close)

	ctx := context.Background()
	require.NoError(t, s.Init(ctx))
	require.NoError(t, s.Login(ctx, "ann@example.com", "secret1"))
	waitState(t, s, StateAuthenticated)

	fetched := func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return !s.fetching
	}

	// A token refresh refetches the same user's profile.
	read, release := profiles.holdNextSelect()
	s.onEvent(models.AuthEvent{Type: models.EventTokenRefreshed, Session: s.Snapshot().Session})
	select {
	case <-read:
	case <-time.After(waitFor):
		t.Fatal("profile refetch never started")
	}

	require.NoError(t, s.ToggleBookmark(ctx, "n1"))
	close(release)
	require.Eventually(t, fetched, waitFor, tick)
	assert.True(t, s.IsBookmarked("n1"))
	assert.Equal(t, StateAuthenticated, s.State())

	read, release = profiles.holdNextSelect()
	s.onEvent(models.AuthEvent{Type: models.EventTokenRefreshed, Session: s.Snapshot().Session})
	<-read
	bio := "Maths tutor"
	require.NoError(t, s.UpdateProfile(ctx, models.ProfileUpdate{Bio: &bio}))
	close(release)
	require.Eventually(t, fetched, waitFor, tick)
	assert.Equal(t, "Maths tutor", s.Snapshot().User.Bio)

	// Without a concurrent write the refetched row is taken.
	require.NoError(t, b.Profiles().Update(ctx, uid, map[string]any{"bookmarks": []string{"n1", "n2"}}))
	s.onEvent(models.AuthEvent{Type: models.EventTokenRefreshed, Session: s.Snapshot().Session})
	require.Eventually(t, func() bool { return s.IsBookmarked("n2") }, waitFor, tick)
}

func TestStore_UpdateProfileKeepsAuthenticatedState(t *testing.T) {
	b, s, _ := loggedIn(t)
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	b.ProfileTable().SetHook("update", func(ctx context.Context, _ string) error {
		close(started)
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	})

	done := make(chan error, 1)
	name := "Ann B"
	go func() { done <- s.UpdateProfile(ctx, models.ProfileUpdate{Name: &name}) }()

	<-started
	assert.Equal(t, StateAuthenticated, s.State())
	assert.False(t, s.Snapshot().IsLoading())

	changed := s.Changed()
	close(release)
	require.NoError(t, <-done)
	select {
	case <-changed:
	case <-time.After(waitFor):
		t.Fatal("profile update did not signal a change")
	}
	assert.Equal(t, "Ann B", s.Snapshot().User.Name)
}

func TestStore_WaitSettled(t *testing.T) {
	b := newBackend(t, true)
	seedUser(t, b, "ann@example.com", "student")
	s := newStore(t, b)
	ctx := context.Background()
	require.NoError(t, s.Init(ctx))
	require.NoError(t, s.Login(ctx, "ann@example.com", "secret1"))
	require.Eventually(t, func() bool { return s.Snapshot().Session != nil }, waitFor, tick)

	wctx, cancel := context.WithTimeout(ctx, waitFor)
	defer cancel()
	snap, err := s.WaitSettled(wctx)
	require.NoError(t, err)
	assert.Equal(t, StateAuthenticated, snap.State)

	blocked := newStore(t, b)
	short, cancel2 := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel2()
	_, err = blocked.WaitSettled(short)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStore_CloseIgnoresLaterEvents(t *testing.T) {
	b := newBackend(t, true)
	seedUser(t, b, "ann@example.com", "student")
	s := newStore(t, b)
	ctx := context.Background()
	require.NoError(t, s.Init(ctx))
	waitState(t, s, StateUnauthenticated)

	s.Close()
	s.Close()

	_, err := b.Auth().SignInWithPassword(ctx, "ann@example.com", "secret1")
	require.NoError(t, err)
	time.Sleep(30 * time.Millisecond)
	assert.Nil(t, s.Snapshot().Session)
	assert.ErrorIs(t, s.Init(ctx), ErrClosed)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "authenticated", StateAuthenticated.String())
	assert.Equal(t, "loading", StateLoading.String())
	assert.Equal(t, "unknown", State(42).String())
}
