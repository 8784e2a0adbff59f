// Package webtest runs the HTTP APIs against a throwaway SQLite application.
package webtest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/unicafe/cafeteria/config"
	"github.com/unicafe/cafeteria/internal/app"
	"github.com/unicafe/cafeteria/internal/webserver"
)

type Server struct {
	App     *app.Application
	Handler http.Handler
}

// New boots an application on SQLite. register installs the routes under
// test and must run before the router is built.
func New(t testing.TB, register ...func()) *Server {
	t.Helper()
	cfg := config.DefaultAppConfig()
	cfg.System.Workdir = t.TempDir()
	cfg.System.Location = "UTC"
	cfg.Database.Type = "sqlite"
	cfg.Logger.FileEnable = false
	a := app.NewApplication(cfg)
	require.NoError(t, a.Init(cfg))
	t.Cleanup(a.Release)

	for _, fn := range register {
		fn()
	}
	return &Server{App: a, Handler: webserver.NewWebServer(a).Handler()}
}

// Client keeps cookies between requests like a browser.
type Client struct {
	s       *Server
	Token   string
	cookies map[string]*http.Cookie
}

func (s *Server) Client() *Client {
	return &Client{s: s, cookies: make(map[string]*http.Cookie)}
}

// As returns a client authenticated as userID with role.
func (s *Server) As(t testing.TB, userID int64, role string) *Client {
	t.Helper()
	token, err := webserver.IssueToken(s.App.Config().Web.JwtSecret, userID, role, time.Hour)
	require.NoError(t, err)
	c := s.Client()
	c.Token = token
	return c
}

// Do sends body as JSON when it is not nil.
func (c *Client) Do(t testing.TB, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c.s.Handler.ServeHTTP(rec, req)
	for _, ck := range rec.Result().Cookies() {
		c.cookies[ck.Name] = ck
	}
	return rec
}

// ShareCookies copies the session cookies of other, as when a guest signs in
// from the same browser.
func (c *Client) ShareCookies(other *Client) {
	for k, v := range other.cookies {
		c.cookies[k] = v
	}
}

// Envelope is the decoded response body.
type Envelope struct {
	Data    json.RawMessage        `json:"data"`
	Meta    *webserver.Meta        `json:"meta"`
	Error   string                 `json:"error"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details"`
}

func Decode(t testing.TB, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

// Data decodes the data member into v.
func Data(t testing.TB, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	env := Decode(t, rec)
	require.NoError(t, json.Unmarshal(env.Data, v), string(env.Data))
}
