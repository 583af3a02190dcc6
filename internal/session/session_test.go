package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/shopaura/internal/api"
	"github.com/five82/shopaura/internal/apitest"
	"github.com/five82/shopaura/internal/nav"
	"github.com/five82/shopaura/internal/toast"
)

type memStorage struct {
	mu   sync.Mutex
	user *api.User
}

func (m *memStorage) LoadUser() (*api.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return nil, nil
	}
	u := *m.user
	return &u, nil
}

func (m *memStorage) SaveUser(u api.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user = &u
	return nil
}

func (m *memStorage) ClearUser() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user = nil
	return nil
}

func (m *memStorage) stored() *api.User {
	u, _ := m.LoadUser()
	return u
}

type fixture struct {
	srv     *apitest.Server
	client  *api.Client
	storage *memStorage
	toasts  *toast.Queue
	history *nav.History
	store   *Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	srv := apitest.NewServer()
	t.Cleanup(srv.Close)
	client, err := api.NewClient(api.Options{BaseURL: srv.APIURL()})
	require.NoError(t, err)

	f := &fixture{
		srv:     srv,
		client:  client,
		storage: &memStorage{},
		toasts:  &toast.Queue{},
		history: &nav.History{},
	}
	f.store = New(Options{
		Gateway:       client,
		Storage:       f.storage,
		Toasts:        f.toasts,
		Navigator:     f.history,
		AdminPanelURL: "http://admin.test",
		RedirectDelay: 50 * time.Millisecond,
	})
	t.Cleanup(f.store.Close)
	return f
}

func ctx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return c
}

func TestNewStartsLoading(t *testing.T) {
	f := newFixture(t)
	st := f.store.Snapshot()
	assert.True(t, st.Loading)
	assert.False(t, st.Authenticated)
}

func TestLoginBuyerEstablishesAndPersists(t *testing.T) {
	f := newFixture(t)
	f.srv.AddUser("Asha", "asha@example.com", "secret", api.RoleBuyer)

	u, err := f.store.Login(ctx(t), "asha@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "Asha", u.Name)

	st := f.store.Snapshot()
	assert.True(t, st.Authenticated)
	assert.True(t, st.Verified)
	require.NotNil(t, f.storage.stored())
	assert.Equal(t, u.ID, f.storage.stored().ID)

	require.NoError(t, f.store.CheckAuthStatus(ctx(t)))
	assert.True(t, f.store.Snapshot().Authenticated)
	assert.False(t, f.store.Snapshot().Loading)
}

func TestLoginBadCredentialsKeepsMessage(t *testing.T) {
	f := newFixture(t)
	f.srv.AddUser("Asha", "asha@example.com", "secret", api.RoleBuyer)

	_, err := f.store.Login(ctx(t), "asha@example.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, "Invalid email or password", api.Message(err, ""))
	assert.False(t, f.store.Snapshot().Authenticated)
	assert.Empty(t, f.history.Entries())
}

func TestSellerLoginIsRejectedAndRedirected(t *testing.T) {
	f := newFixture(t)
	f.srv.AddUser("Sam", "sam@example.com", "secret", "seller")

	changes, cancel := f.store.Subscribe()
	defer cancel()
	var sawAuthenticated bool
	done := make(chan struct{})
	go func() {
		defer close(done)
		for range changes {
			if f.store.Snapshot().Authenticated {
				sawAuthenticated = true
			}
		}
	}()

	_, err := f.store.Login(ctx(t), "sam@example.com", "secret")
	require.ErrorIs(t, err, ErrRoleNotPermitted)

	st := f.store.Snapshot()
	assert.False(t, st.Authenticated)
	assert.Nil(t, st.User)
	assert.Nil(t, f.storage.stored())
	assert.Equal(t, 1, f.srv.CountCalls(http.MethodPost, "/auth/logout"))

	latest, ok := f.toasts.Latest()
	require.True(t, ok)
	assert.Equal(t, toast.LevelError, latest.Level)
	assert.Contains(t, latest.Text, "cannot access the buyer portal")

	assert.Empty(t, f.history.Entries(), "redirect must wait for the delay")
	require.Eventually(t, func() bool {
		cur := f.history.Current()
		return cur.External && cur.Path == "http://admin.test"
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
	assert.False(t, sawAuthenticated)
	assert.False(t, f.store.Snapshot().Authenticated)
}

func TestCheckAuthStatusRejectsStaffSession(t *testing.T) {
	f := newFixture(t)
	f.srv.AddUser("Ada", "ada@example.com", "secret", "admin")
	_, err := f.client.Login(ctx(t), "ada@example.com", "secret")
	require.NoError(t, err)

	err = f.store.CheckAuthStatus(ctx(t))
	require.ErrorIs(t, err, ErrRoleNotPermitted)
	assert.False(t, f.store.Snapshot().Authenticated)
	assert.False(t, f.store.Snapshot().Loading)
}

func TestCheckAuthStatusFailsClosed(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.storage.SaveUser(api.User{ID: "stale", Role: api.RoleBuyer}))
	f.store.Rehydrate()
	assert.Equal(t, "stale", f.store.Snapshot().User.ID)

	f.srv.FailNext(http.MethodGet, "/auth/check", http.StatusInternalServerError, "down")
	require.NoError(t, f.store.CheckAuthStatus(ctx(t)))

	st := f.store.Snapshot()
	assert.False(t, st.Authenticated)
	assert.Nil(t, st.User)
	assert.False(t, st.Loading)
	assert.Nil(t, f.storage.stored())
}

func TestRehydrateIsUnverified(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.storage.SaveUser(api.User{ID: "u1", Name: "Asha", Role: api.RoleBuyer}))

	f.store.Rehydrate()
	st := f.store.Snapshot()
	require.NotNil(t, st.User)
	assert.Equal(t, "Asha", st.User.Name)
	assert.False(t, st.Authenticated)
	assert.False(t, st.Verified)
}

func TestUpdateUserNeverTouchesLoading(t *testing.T) {
	f := newFixture(t)
	f.srv.AddUser("Asha", "asha@example.com", "secret", api.RoleBuyer)
	require.NoError(t, f.store.CheckAuthStatus(ctx(t)))
	u, err := f.store.Login(ctx(t), "asha@example.com", "secret")
	require.NoError(t, err)
	before := len(f.srv.Calls())

	u.Name = "Asha K"
	f.store.UpdateUser(u)

	st := f.store.Snapshot()
	assert.False(t, st.Loading)
	assert.True(t, st.Authenticated)
	assert.Equal(t, "Asha K", st.User.Name)
	assert.Equal(t, "Asha K", f.storage.stored().Name)
	assert.Len(t, f.srv.Calls(), before, "no remote call on profile merge")
}

func TestLogoutClearsEvenWhenRemoteFails(t *testing.T) {
	f := newFixture(t)
	f.srv.AddUser("Asha", "asha@example.com", "secret", api.RoleBuyer)
	_, err := f.store.Login(ctx(t), "asha@example.com", "secret")
	require.NoError(t, err)

	f.srv.FailNext(http.MethodPost, "/auth/logout", http.StatusBadGateway, "gateway")
	f.store.Logout(ctx(t))

	assert.False(t, f.store.Snapshot().Authenticated)
	assert.Nil(t, f.storage.stored())
	latest, _ := f.toasts.Latest()
	assert.Equal(t, "Logged out successfully", latest.Text)
}

func TestExpireClearsWithoutRemoteCall(t *testing.T) {
	f := newFixture(t)
	f.srv.AddUser("Asha", "asha@example.com", "secret", api.RoleBuyer)
	_, err := f.store.Login(ctx(t), "asha@example.com", "secret")
	require.NoError(t, err)

	f.store.Expire()
	assert.False(t, f.store.Snapshot().Authenticated)
	assert.Zero(t, f.srv.CountCalls(http.MethodPost, "/auth/logout"))
}

func TestRegisterToastsOutcome(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.Register(ctx(t), "Ravi", "ravi@example.com", "pw123456")
	require.NoError(t, err)
	assert.True(t, f.store.Snapshot().Authenticated)

	_, err = f.store.Register(ctx(t), "Ravi", "ravi@example.com", "pw123456")
	require.Error(t, err)
	var apiErr *api.Error
	require.True(t, errors.As(err, &apiErr))
	latest, _ := f.toasts.Latest()
	assert.Equal(t, "User already exists", latest.Text)
}
