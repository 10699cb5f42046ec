package sso

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"ntust-grades/lib/platforms/ntust/core"
	"ntust-grades/lib/telemetry"

	"github.com/stretchr/testify/require"
)

type fakeHosts struct {
	score *httptest.Server
	sso   *httptest.Server

	lock      sync.Mutex
	callbacks []string
	forms     []map[string][]string

	loginStatus int
	// %s is replaced with the score server url
	loginBody  string
	setCookie  bool
	cookiePath string
}

func (f *fakeHosts) scoreHandler(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/StuScoreQuery":
		http.Redirect(w, r, f.sso.URL+"/nidp/app/login", http.StatusFound)
	case "/cb":
		f.lock.Lock()
		f.callbacks = append(f.callbacks, r.URL.RequestURI())
		f.lock.Unlock()
		http.Redirect(w, r, "/StuScoreQuery/Home", http.StatusFound)
	case "/StuScoreQuery/Home":
		if f.setCookie {
			http.SetCookie(w, &http.Cookie{Name: AuthCookie, Value: "session", Path: f.cookiePath, Secure: true})
		}
		w.Write([]byte("welcome"))
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeHosts) ssoHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		w.Write([]byte("<form>login</form>"))
		return
	}
	err := r.ParseForm()
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	f.lock.Lock()
	f.forms = append(f.forms, r.PostForm)
	f.lock.Unlock()

	w.WriteHeader(f.loginStatus)
	fmt.Fprintf(w, f.loginBody, f.score.URL)
}

func newFakeHosts(t testing.TB) *fakeHosts {
	f := &fakeHosts{
		loginStatus: http.StatusOK,
		loginBody:   `<script>window.location.href='%s/cb?x=1';</script>`,
		setCookie:   true,
		cookiePath:  "/",
	}
	f.score = httptest.NewTLSServer(http.HandlerFunc(f.scoreHandler))
	f.sso = httptest.NewTLSServer(http.HandlerFunc(f.ssoHandler))
	t.Cleanup(f.score.Close)
	t.Cleanup(f.sso.Close)
	return f
}

func (f *fakeHosts) authenticator(t testing.TB, tel telemetry.API) (Authenticator, *core.Session) {
	session, err := core.NewSession(context.Background(), core.SessionOptions{
		Endpoints: core.Endpoints{
			Entry:         f.score.URL + "/StuScoreQuery",
			SSOLogin:      f.sso.URL + "/nidp/app/login?sid=0&sid=0",
			GradesDisplay: f.score.URL + "/StuScoreQuery/DisplayAll",
		},
		Telemetry: tel,
	})
	require.NoError(t, err)
	t.Cleanup(session.Close)
	return NewAuthenticator(session, tel), session
}

func TestLoginSuccess(t *testing.T) {
	hosts := newFakeHosts(t)
	rec := &telemetry.RecorderAPI{}
	auth, session := hosts.authenticator(t, rec)

	ok := auth.Login(context.Background(), "B10901001", "hunter2")
	require.True(t, ok)
	require.True(t, session.HasCookie(AuthCookie))

	require.Len(t, hosts.forms, 1)
	require.Equal(t, map[string][]string{
		"option":        {"credential"},
		"Ecom_User_ID":  {"B10901001"},
		"Ecom_Password": {"hunter2"},
		"loginButton2":  {""},
	}, hosts.forms[0])
	require.Empty(t, rec.Find(telemetry.ReportKindWarning, report_authenticate))
}

func TestLoginFollowsExactRedirect(t *testing.T) {
	hosts := newFakeHosts(t)
	auth, _ := hosts.authenticator(t, &telemetry.RecorderAPI{})

	err := auth.Authenticate(context.Background(), Credentials{Username: "u", Password: "p"})
	require.NoError(t, err)
	require.Equal(t, []string{"/cb?x=1"}, hosts.callbacks)
}

func TestLoginKeepsTicketOutOfReports(t *testing.T) {
	hosts := newFakeHosts(t)
	rec := &telemetry.RecorderAPI{}
	auth, _ := hosts.authenticator(t, rec)

	require.True(t, auth.Login(context.Background(), "u", "p"))

	found := rec.Find(telemetry.ReportKindDebug, "sso redirect found")
	require.Len(t, found, 1)
	require.Equal(t, []any{hosts.score.URL + "/cb"}, found[0].Params)

	for _, report := range rec.Reports() {
		for _, param := range report.Params {
			require.NotContains(t, fmt.Sprint(param), "x=1", report.Id)
		}
	}
}

func TestLoginIgnoresCookieOutsideLookupUrls(t *testing.T) {
	hosts := newFakeHosts(t)
	hosts.cookiePath = "/Elsewhere"
	auth, session := hosts.authenticator(t, &telemetry.RecorderAPI{})

	err := auth.Authenticate(context.Background(), Credentials{Username: "u", Password: "p"})
	require.ErrorIs(t, err, ErrAuthCookieMissing)

	elsewhere, err := url.Parse(hosts.score.URL + "/Elsewhere")
	require.NoError(t, err)
	require.True(t, session.HasCookie(AuthCookie, elsewhere))
}

func TestLoginRejectedStatus(t *testing.T) {
	hosts := newFakeHosts(t)
	hosts.loginStatus = http.StatusForbidden
	rec := &telemetry.RecorderAPI{}
	auth, _ := hosts.authenticator(t, rec)

	err := auth.Authenticate(context.Background(), Credentials{Username: "u", Password: "p"})
	require.ErrorIs(t, err, ErrLoginStatus)
	// the body carries a valid redirect, it must not have been followed
	require.Empty(t, hosts.callbacks)

	require.False(t, auth.Login(context.Background(), "u", "p"))
	require.Len(t, rec.Find(telemetry.ReportKindWarning, report_authenticate), 1)
}

func TestLoginWithoutRedirect(t *testing.T) {
	hosts := newFakeHosts(t)
	hosts.loginBody = `<p>帳號或密碼錯誤</p><!-- %s -->`
	auth, _ := hosts.authenticator(t, &telemetry.RecorderAPI{})

	err := auth.Authenticate(context.Background(), Credentials{Username: "u", Password: "wrong"})
	require.ErrorIs(t, err, ErrRedirectNotFound)
	require.Empty(t, hosts.callbacks)
}

func TestLoginWithoutAuthCookie(t *testing.T) {
	hosts := newFakeHosts(t)
	hosts.setCookie = false
	auth, _ := hosts.authenticator(t, &telemetry.RecorderAPI{})

	err := auth.Authenticate(context.Background(), Credentials{Username: "u", Password: "p"})
	require.ErrorIs(t, err, ErrAuthCookieMissing)
	require.Equal(t, []string{"/cb?x=1"}, hosts.callbacks)
}

func TestLoginNetworkFailure(t *testing.T) {
	hosts := newFakeHosts(t)
	auth, _ := hosts.authenticator(t, &telemetry.RecorderAPI{})
	hosts.score.Close()

	require.False(t, auth.Login(context.Background(), "u", "p"))
	require.Empty(t, hosts.forms)
}

func TestFindRedirect(t *testing.T) {
	cases := []struct {
		body   string
		target string
		found  bool
	}{
		{
			body:   `<script>window.location.href='https://example.test/cb?x=1';</script>`,
			target: "https://example.test/cb?x=1",
			found:  true,
		},
		{
			body:   `a window.location.href='first' b window.location.href='second'`,
			target: "first",
			found:  true,
		},
		{body: `window.location.href="double-quoted"`},
		{body: `window.location.href=''`},
		{body: `windowXlocation.href='nope'`},
	}

	for _, test := range cases {
		target, found := FindRedirect(test.body)
		require.Equal(t, test.found, found, test.body)
		require.Equal(t, test.target, target, test.body)
	}
}
