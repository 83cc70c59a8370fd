package feed

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/ghaggin/feed/internal/backend/backendtest"
	"github.com/ghaggin/feed/internal/config"
	"github.com/ghaggin/feed/internal/middleware"
	"github.com/ghaggin/feed/internal/model"
	"github.com/ghaggin/feed/internal/post"
	"github.com/ghaggin/feed/internal/view"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testApp struct {
	t      *testing.T
	fake   *backendtest.Fake
	clock  clockwork.FakeClock
	srv    *httptest.Server
	client *http.Client
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	cfg := config.Default()
	log := zap.NewNop()
	fake := backendtest.New()
	clock := clockwork.NewFakeClockAt(fake.Now.Add(5 * time.Minute))

	sessions, err := middleware.NewSessionManager(cfg)
	require.NoError(t, err)

	root, err := newRouter(Params{
		Log:      log,
		Config:   cfg,
		Sessions: sessions,
		Gate:     middleware.NewGate(middleware.GateParams{Sessions: sessions, Auth: fake, Clock: clock, Log: log}),
		Backend:  fake,
		Posts:    post.New(post.Params{Tables: fake, Log: log}),
		Clock:    clock,
	})
	require.NoError(t, err)

	srv := httptest.NewServer(root)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &testApp{
		t:     t,
		fake:  fake,
		clock: clock,
		srv:   srv,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (a *testApp) get(path string) (*http.Response, string) {
	a.t.Helper()

	resp, err := a.client.Get(a.srv.URL + path)
	require.NoError(a.t, err)
	return resp, readBody(a.t, resp)
}

func (a *testApp) post(path string, form url.Values) (*http.Response, string) {
	a.t.Helper()

	resp, err := a.client.PostForm(a.srv.URL+path, form)
	require.NoError(a.t, err)
	return resp, readBody(a.t, resp)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

// loginAna signs in as u1 and returns the app for chaining.
func (a *testApp) loginAna() *testApp {
	a.t.Helper()

	a.fake.AddUser("tok-ana", &model.User{ID: "u1", Email: "ana@example.com"})
	a.fake.Profiles["u1"] = &model.Profile{ID: "u1", Username: "ana", FullName: "Ana"}

	resp, _ := a.post("/login", url.Values{"email": {"ana@example.com"}, "password": {"hunter22"}})
	require.Equal(a.t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(a.t, "/", resp.Header.Get("Location"))
	return a
}

func TestHome_anonymousIsRedirected(t *testing.T) {
	assert := assert.New(t)

	app := newTestApp(t)

	resp, _ := app.get("/")

	assert.Equal(http.StatusSeeOther, resp.StatusCode)
	assert.Equal("/login", resp.Header.Get("Location"))
	assert.Equal(0, app.fake.CallCount("GetProfile"))
	assert.Equal(0, app.fake.CallCount("ListPosts"))
}

func TestLogin_missingFields(t *testing.T) {
	app := newTestApp(t)

	resp, body := app.post("/login", url.Values{"email": {"ana@example.com"}})

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, msgMissingFields)
	assert.Contains(t, body, `value="ana@example.com"`)
	assert.Equal(t, 0, app.fake.CallCount("SignIn"))
}

func TestLogin_badCredentials(t *testing.T) {
	app := newTestApp(t)

	resp, body := app.post("/login", url.Values{"email": {"nobody@example.com"}, "password": {"x"}})

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "Error en el login: Invalid login credentials")
}

func TestLogin_thenFeed(t *testing.T) {
	assert := assert.New(t)

	app := newTestApp(t).loginAna()
	app.fake.Posts = []model.Post{
		{ID: "1", AuthorID: "u2", Content: "hola desde bo", CreatedAt: app.fake.Now.Add(-3 * time.Hour)},
		{ID: "2", AuthorID: "u1", Content: "hola desde ana", CreatedAt: app.fake.Now,
			Author: &model.Profile{Username: "ana", FullName: "Ana"}},
	}

	resp, body := app.get("/")
	assert.Equal(http.StatusOK, resp.StatusCode)
	assert.Contains(body, "@ana")
	assert.Contains(body, "hola desde ana")
	assert.Contains(body, "5m")
	assert.Contains(body, `action="/posts/2/delete"`)
	assert.NotContains(body, `action="/posts/1/delete"`)
	assert.Less(strings.Index(body, "hola desde ana"), strings.Index(body, "hola desde bo"))

	resp, _ = app.get("/login")
	assert.Equal(http.StatusSeeOther, resp.StatusCode)
	assert.Equal("/", resp.Header.Get("Location"))
}

func TestFeed_emptyState(t *testing.T) {
	app := newTestApp(t).loginAna()

	_, body := app.get("/")

	assert.Contains(t, body, view.EmptyText)
}

func TestFeed_listFailure(t *testing.T) {
	app := newTestApp(t).loginAna()
	app.fake.ListPostsErr = errors.New("unreachable")

	resp, body := app.get("/")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, msgLoadFailed)
}

func TestFeed_listFailureConsumesPendingFlash(t *testing.T) {
	assert := assert.New(t)

	app := newTestApp(t).loginAna()
	app.fake.ListPostsErr = errors.New("unreachable")

	resp, _ := app.post("/posts", url.Values{"content": {"hola"}})
	assert.Equal(http.StatusSeeOther, resp.StatusCode)

	_, body := app.get("/")
	assert.Contains(body, msgLoadFailed)

	app.fake.ListPostsErr = nil
	_, body = app.get("/")
	assert.NotContains(body, msgPosted)
	assert.NotContains(body, msgLoadFailed)
}

func TestFeed_expiredSessionIsRefreshed(t *testing.T) {
	assert := assert.New(t)

	app := newTestApp(t).loginAna()
	app.clock.Advance(2 * time.Hour)
	app.fake.Now = app.clock.Now()

	resp, body := app.get("/")
	assert.Equal(http.StatusOK, resp.StatusCode)
	assert.Contains(body, "@ana")
	assert.Equal(1, app.fake.CallCount("Refresh"))

	// the renewed session was stored, so the next page does not refresh again
	resp, _ = app.get("/")
	assert.Equal(http.StatusOK, resp.StatusCode)
	assert.Equal(1, app.fake.CallCount("Refresh"))
}

func TestFeed_profileFailureFallsBack(t *testing.T) {
	app := newTestApp(t).loginAna()
	app.fake.GetProfileErr = errors.New("unreachable")

	resp, body := app.get("/")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Usuario")
}

func TestRegister(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	app := newTestApp(t)

	resp, body := app.post("/register", url.Values{"email": {"bo@example.com"}, "password": {"secret"}})
	assert.Equal(http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(body, msgMissingFields)

	resp, _ = app.post("/register", url.Values{
		"email":     {"bo@example.com"},
		"password":  {"secret"},
		"username":  {" bo "},
		"full_name": {"Bo Diddley"},
	})
	assert.Equal(http.StatusSeeOther, resp.StatusCode)
	assert.Equal("/login", resp.Header.Get("Location"))

	require.Len(app.fake.InsertedProfiles, 1)
	assert.Equal("bo", app.fake.InsertedProfiles[0].Username)
	assert.Equal("Bo Diddley", app.fake.InsertedProfiles[0].FullName)
	assert.NotEmpty(app.fake.InsertedProfiles[0].ID)

	_, body = app.get("/login")
	assert.Contains(body, msgRegistered)
}

func TestRegister_profileFailure(t *testing.T) {
	app := newTestApp(t)
	app.fake.InsertProfileErr = errors.New("duplicate key value")

	resp, body := app.post("/register", url.Values{
		"email":     {"bo@example.com"},
		"password":  {"secret"},
		"username":  {"bo"},
		"full_name": {"Bo"},
	})

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "Error en el registro: duplicate key value")
}

func TestCreatePost(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	app := newTestApp(t).loginAna()

	resp, _ := app.post("/posts", url.Values{"content": {"  hola mundo  "}})
	assert.Equal(http.StatusSeeOther, resp.StatusCode)
	assert.Equal("/", resp.Header.Get("Location"))

	require.Len(app.fake.InsertedPosts, 1)
	assert.Equal("hola mundo", app.fake.InsertedPosts[0].Content)
	assert.Equal("u1", app.fake.InsertedPosts[0].AuthorID)

	_, body := app.get("/")
	assert.Contains(body, msgPosted)
	assert.Contains(body, "hola mundo")
}

func TestCreatePost_invalid(t *testing.T) {
	assert := assert.New(t)

	app := newTestApp(t).loginAna()

	app.post("/posts", url.Values{"content": {"   "}})
	_, body := app.get("/")
	assert.Contains(body, msgEmptyPost)

	long := strings.Repeat("a", 281)
	app.post("/posts", url.Values{"content": {long}})
	_, body = app.get("/")
	assert.Contains(body, msgPostTooLong)
	assert.Contains(body, long)
	assert.Contains(body, "281/280")
	assert.Contains(body, "over-limit")

	assert.Equal(0, app.fake.CallCount("InsertPost"))
}

func TestCreatePost_remoteFailure(t *testing.T) {
	app := newTestApp(t).loginAna()
	app.fake.InsertPostErr = errors.New("timeout")

	app.post("/posts", url.Values{"content": {"hola"}})
	_, body := app.get("/")

	assert.Contains(t, body, "Error al publicar tweet: timeout")
	assert.Contains(t, body, ">hola</textarea>")
}

func TestDeletePost(t *testing.T) {
	assert := assert.New(t)

	app := newTestApp(t).loginAna()
	app.fake.Posts = []model.Post{
		{ID: "1", AuthorID: "u2", Content: "ajeno"},
		{ID: "2", AuthorID: "u1", Content: "mío"},
	}

	resp, _ := app.post("/posts/1/delete", nil)
	assert.Equal(http.StatusSeeOther, resp.StatusCode)
	_, body := app.get("/")
	assert.Contains(body, msgDeleteFailed+msgNotYourPost)
	assert.Equal(0, app.fake.CallCount("DeletePost"))

	resp, _ = app.post("/posts/2/delete", nil)
	assert.Equal(http.StatusSeeOther, resp.StatusCode)
	assert.Equal(1, app.fake.CallCount("DeletePost"))
	assert.Len(app.fake.Posts, 1)

	resp, _ = app.post("/posts/99/delete", nil)
	assert.Equal(http.StatusSeeOther, resp.StatusCode)
	_, body = app.get("/")
	assert.Contains(body, msgDeleteFailed)
}

func TestLogout(t *testing.T) {
	assert := assert.New(t)

	app := newTestApp(t).loginAna()

	app.fake.SignOutErr = errors.New("unreachable")
	resp, _ := app.post("/logout", nil)
	assert.Equal(http.StatusSeeOther, resp.StatusCode)
	assert.Equal("/", resp.Header.Get("Location"))

	resp, body := app.get("/")
	assert.Equal(http.StatusOK, resp.StatusCode)
	assert.Contains(body, msgLogoutFailed)

	app.fake.SignOutErr = nil
	resp, _ = app.post("/logout", nil)
	assert.Equal(http.StatusSeeOther, resp.StatusCode)
	assert.Equal("/login", resp.Header.Get("Location"))

	resp, _ = app.get("/")
	assert.Equal(http.StatusSeeOther, resp.StatusCode)
	assert.Equal("/login", resp.Header.Get("Location"))
}

func TestCounter(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	app := newTestApp(t)

	resp, err := app.client.Post(app.srv.URL+"/api/counter", "application/json",
		strings.NewReader(`{"text": "`+strings.Repeat("x", 300)+`"}`))
	require.NoError(err)
	defer resp.Body.Close()

	var c view.Counter
	require.NoError(json.NewDecoder(resp.Body).Decode(&c))
	assert.Equal(300, c.Length)
	assert.True(c.OverLimit)
	assert.Equal("300/280", c.Label)

	resp2, err := app.client.Post(app.srv.URL+"/api/counter", "application/json", strings.NewReader("{"))
	require.NoError(err)
	resp2.Body.Close()
	assert.Equal(http.StatusBadRequest, resp2.StatusCode)
}

func TestHealthzAndStatic(t *testing.T) {
	app := newTestApp(t)

	resp, body := app.get("/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK\n", body)

	resp, body = app.get("/static/app.js")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "/api/counter")
}
