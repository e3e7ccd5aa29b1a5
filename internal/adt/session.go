// Package adt implements the HTTP client for the SAP ABAP Development Tools
// (ADT) REST services: session lifecycle (CSRF-token login, stateful mode,
// logout, drop), the request plumbing shared by all operations, and the
// typed errors plus the session-expiry classification the rest of the
// server builds on.
package adt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"

	"github.com/abaplab/adt-mcp/internal/config"
)

const (
	csrfHeader        = "X-CSRF-Token"
	sessionTypeHeader = "X-Sap-Adt-Sessiontype"

	discoveryPath = "/sap/bc/adt/core/discovery"
	logoffPath    = "/sap/public/bc/icf/logoff"
)

// Session is the process-wide authenticated connection to the ADT backend.
// It holds the credentials, the CSRF token and cookie state, and the
// stateful-mode flag. It is shared by all in-flight tool calls and mutated
// only by Login, Logout, DropSession and SetStateful.
type Session struct {
	log *slog.Logger
	cfg *config.Config
	hc  *http.Client
	jar *swapJar

	mu        sync.Mutex
	csrf      string
	stateful  bool
	loggedOut bool
}

// swapJar is a cookie jar whose backing jar can be replaced while requests
// are in flight. Logout and DropSession discard the cookies of the old
// session by swapping the inner jar; in-flight dispatches keep reading a
// valid jar through the wrapper, so the http.Client's Jar field itself is
// never rewritten.
type swapJar struct {
	mu  sync.Mutex
	jar http.CookieJar
}

func newSwapJar() *swapJar {
	jar, _ := cookiejar.New(nil)

	return &swapJar{jar: jar}
}

func (j *swapJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.jar.SetCookies(u, cookies)
}

func (j *swapJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.jar.Cookies(u)
}

func (j *swapJar) clear() {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	j.jar = jar
}

// NewSession creates a session for the given configuration. The session
// starts in stateful mode; no network traffic happens until Login or the
// first operation (operations log in lazily).
func NewSession(cfg *config.Config, log *slog.Logger) *Session {
	jar := newSwapJar()

	return &Session{
		log:      log.With("component", "session"),
		cfg:      cfg,
		hc:       &http.Client{Jar: jar},
		jar:      jar,
		stateful: true,
	}
}

// SetStateful switches the session mode used for subsequent requests.
func (s *Session) SetStateful(stateful bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stateful = stateful
}

// Stateful reports the current session mode.
func (s *Session) Stateful() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.stateful
}

// LoggedIn reports whether a CSRF token is currently held.
func (s *Session) LoggedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.csrf != ""
}

// Login fetches a fresh CSRF token from the discovery document and
// establishes the authenticated session.
func (s *Session) Login(ctx context.Context) error {
	req, err := s.newRequest(ctx, http.MethodGet, discoveryPath, nil, nil, "")
	if err != nil {
		return err
	}

	req.Header.Set(csrfHeader, "fetch")

	resp, err := s.hc.Do(req)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

		return &Error{
			Code:    CodeInternal,
			Message: fmt.Sprintf("login failed (HTTP %d): %s", resp.StatusCode, trim(body)),
		}
	}

	token := resp.Header.Get(csrfHeader)
	if token == "" || strings.EqualFold(token, "required") {
		return &Error{Code: CodeInternal, Message: "login failed: no CSRF token granted"}
	}

	s.mu.Lock()
	s.csrf = token
	s.loggedOut = false
	s.mu.Unlock()

	s.log.Debug("Logged in", "url", s.cfg.URL, "user", s.cfg.User, "stateful", s.Stateful())

	return nil
}

// Logout terminates the backend session and forgets all local session state.
func (s *Session) Logout(ctx context.Context) error {
	req, err := s.newRequest(ctx, http.MethodPost, logoffPath, nil, nil, "")
	if err != nil {
		return err
	}

	resp, err := s.hc.Do(req)
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	s.reset()

	s.mu.Lock()
	s.loggedOut = true
	s.mu.Unlock()

	s.log.Debug("Logged out")

	return nil
}

// DropSession releases the server-side stateful session without logging out.
// The next request runs against a fresh session.
func (s *Session) DropSession(ctx context.Context) error {
	req, err := s.newRequest(ctx, http.MethodGet, discoveryPath, nil, nil, "")
	if err != nil {
		return err
	}

	req.Header.Set(sessionTypeHeader, "stateless")

	resp, err := s.hc.Do(req)
	if err != nil {
		return fmt.Errorf("drop session: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	s.reset()
	s.log.Debug("Dropped session")

	return nil
}

func (s *Session) reset() {
	s.mu.Lock()
	s.csrf = ""
	s.mu.Unlock()

	s.jar.clear()
}

// Response is the outcome of an ADT request.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// Value decodes the response into a JSON-encodable result: parsed JSON when
// the backend served JSON, otherwise the raw body wrapped with its content
// type (ADT serves XML for most resources; parsing it is the caller's
// concern).
func (r *Response) Value() any {
	if strings.Contains(r.ContentType, "json") {
		var v any
		if err := json.Unmarshal(r.Body, &v); err == nil {
			return v
		}
	}

	return map[string]any{
		"contentType": r.ContentType,
		"body":        string(r.Body),
	}
}

// request performs an authenticated ADT call. It logs in lazily on first
// use, attaches the CSRF token and session-type header, and classifies
// session rejections as *SessionError so the resilience layer can observe
// them. Other HTTP failures become structured *Error values carrying the
// backend's diagnostic text. After an explicit Logout no further calls are
// possible until Login runs again.
func (s *Session) request(ctx context.Context, method, path string, query url.Values, body []byte, contentType string) (*Response, error) {
	if !s.LoggedIn() {
		s.mu.Lock()
		loggedOut := s.loggedOut
		s.mu.Unlock()

		if loggedOut {
			return nil, ErrNotLoggedIn
		}

		if err := s.Login(ctx); err != nil {
			return nil, err
		}
	}

	req, err := s.newRequest(ctx, method, path, query, body, contentType)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	req.Header.Set(csrfHeader, s.csrf)
	s.mu.Unlock()

	resp, err := s.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: read response: %w", method, path, err)
	}

	if sessionRejected(resp, data) {
		return nil, &SessionError{
			StatusCode: resp.StatusCode,
			Reason:     "CSRF token validation failed",
		}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &Error{
			Code:    CodeInternal,
			Message: fmt.Sprintf("%s %s failed (HTTP %d): %s", method, path, resp.StatusCode, trim(data)),
		}
	}

	return &Response{
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        data,
	}, nil
}

func (s *Session) newRequest(ctx context.Context, method, path string, query url.Values, body []byte, contentType string) (*http.Request, error) {
	u, err := url.Parse(strings.TrimRight(s.cfg.URL, "/") + path)
	if err != nil {
		return nil, fmt.Errorf("bad request URL: %w", err)
	}

	q := u.Query()

	for k, vs := range query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}

	if s.cfg.Client != "" {
		q.Set("sap-client", s.cfg.Client)
	}

	if s.cfg.Language != "" {
		q.Set("sap-language", s.cfg.Language)
	}

	u.RawQuery = q.Encode()

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return nil, err
	}

	req.SetBasicAuth(s.cfg.User, s.cfg.Password)
	req.Header.Set("Accept", "*/*")

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	if s.Stateful() {
		req.Header.Set(sessionTypeHeader, "stateful")
	} else {
		req.Header.Set(sessionTypeHeader, "stateless")
	}

	return req, nil
}

// sessionRejected detects the backend's session-expiry responses: a 403
// demanding a fresh CSRF token, or a body naming a timed-out session.
func sessionRejected(resp *http.Response, body []byte) bool {
	if resp.StatusCode == http.StatusForbidden &&
		strings.EqualFold(resp.Header.Get(csrfHeader), "required") {
		return true
	}

	lower := strings.ToLower(string(body))

	return resp.StatusCode >= http.StatusBadRequest &&
		(strings.Contains(lower, "csrf token") || strings.Contains(lower, "session timeout"))
}

func trim(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 512 {
		s = s[:512] + "..."
	}

	return s
}
