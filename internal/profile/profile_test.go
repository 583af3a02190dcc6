package profile

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/shopaura/internal/api"
	"github.com/five82/shopaura/internal/apitest"
	"github.com/five82/shopaura/internal/session"
	"github.com/five82/shopaura/internal/toast"
)

type fixture struct {
	srv     *apitest.Server
	user    api.User
	session *session.Store
	toasts  *toast.Queue
	m       *Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	srv := apitest.NewServer()
	t.Cleanup(srv.Close)
	u := srv.AddUser("Asha", "asha@example.com", "secret", api.RoleBuyer)
	client, err := api.NewClient(api.Options{BaseURL: srv.APIURL()})
	require.NoError(t, err)
	toasts := &toast.Queue{}
	sess := session.New(session.Options{Gateway: client, Toasts: toasts})
	t.Cleanup(sess.Close)
	_, err = sess.Login(context.Background(), "asha@example.com", "secret")
	require.NoError(t, err)
	return &fixture{srv: srv, user: u, session: sess, toasts: toasts, m: New(client, sess, toasts, nil)}
}

func writeImage(t *testing.T, name string, w, h int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		img.Set(x, h/2, color.NRGBA{R: 200, A: 255})
	}
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, imaging.Save(img, path))
	return path
}

func TestUpdateMergesIntoSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.m.Update(ctx, api.ProfileUpdate{Name: "  Asha Rao ", Phone: "9876543210"})
	require.NoError(t, err)
	assert.Equal(t, "Asha Rao", u.Name)

	st := f.session.Snapshot()
	require.NotNil(t, st.User)
	assert.Equal(t, "Asha Rao", st.User.Name)
	assert.Equal(t, "9876543210", st.User.Phone)
	assert.True(t, st.Authenticated)
	assert.False(t, st.Loading)
	assert.False(t, f.m.Snapshot().Saving)

	latest, _ := f.toasts.Latest()
	assert.Equal(t, "Profile updated successfully", latest.Text)
}

func TestUpdateRejectsBlankChanges(t *testing.T) {
	f := newFixture(t)
	_, err := f.m.Update(context.Background(), api.ProfileUpdate{Name: "   "})
	require.ErrorIs(t, err, ErrNoChanges)
	assert.Zero(t, f.srv.CountCalls(http.MethodPut, "/profile"))
}

func TestUpdateFailureKeepsSession(t *testing.T) {
	f := newFixture(t)
	f.srv.FailNext(http.MethodPut, "/profile", http.StatusBadRequest, "Phone number is invalid")

	_, err := f.m.Update(context.Background(), api.ProfileUpdate{Phone: "1"})
	require.Error(t, err)
	assert.Equal(t, "Asha", f.session.Snapshot().User.Name)
	latest, _ := f.toasts.Latest()
	assert.Equal(t, toast.LevelError, latest.Level)
	assert.Equal(t, "Phone number is invalid", latest.Text)
}

func TestUploadAvatarFitsAndEncodes(t *testing.T) {
	f := newFixture(t)
	path := writeImage(t, "portrait.png", 1024, 768)

	u, err := f.m.UploadAvatar(context.Background(), path)
	require.NoError(t, err)
	require.NotNil(t, u.ProfilePicture)
	assert.Equal(t, "/uploads/portrait.jpg", u.ProfilePicture.URL)
	require.NotNil(t, f.session.Snapshot().User.ProfilePicture)

	uploaded, err := imaging.Decode(bytes.NewReader(f.srv.Avatar(f.user.ID)))
	require.NoError(t, err)
	assert.Equal(t, 512, uploaded.Bounds().Dx())
	assert.Equal(t, 384, uploaded.Bounds().Dy())
}

func TestUploadAvatarKeepsSmallImages(t *testing.T) {
	f := newFixture(t)
	path := writeImage(t, "small.png", 64, 32)

	_, err := f.m.UploadAvatar(context.Background(), path)
	require.NoError(t, err)
	uploaded, err := imaging.Decode(bytes.NewReader(f.srv.Avatar(f.user.ID)))
	require.NoError(t, err)
	assert.Equal(t, 64, uploaded.Bounds().Dx())
	assert.Equal(t, 32, uploaded.Bounds().Dy())
}

func TestUploadAvatarRejectsNonImage(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(t.TempDir(), "notes.png")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o644))

	_, err := f.m.UploadAvatar(context.Background(), path)
	require.Error(t, err)
	assert.Zero(t, f.srv.CountCalls(http.MethodPost, "/profile/picture"))
	latest, _ := f.toasts.Latest()
	assert.Equal(t, "Please choose a valid image file", latest.Text)
}

func TestDeleteAvatar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.m.UploadAvatar(ctx, writeImage(t, "a.png", 10, 10))
	require.NoError(t, err)

	u, err := f.m.DeleteAvatar(ctx)
	require.NoError(t, err)
	assert.Nil(t, u.ProfilePicture)
	assert.Nil(t, f.session.Snapshot().User.ProfilePicture)
	assert.Empty(t, f.srv.Avatar(f.user.ID))
}

func TestUnauthorizedIsSilent(t *testing.T) {
	f := newFixture(t)
	f.srv.ExpireSessions()
	before := len(f.toasts.Messages())

	_, err := f.m.Update(context.Background(), api.ProfileUpdate{Name: "X"})
	require.ErrorIs(t, err, api.ErrUnauthorized)
	assert.Len(t, f.toasts.Messages(), before)
}
