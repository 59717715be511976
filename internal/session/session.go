// Package session obtains and caches the CMS bearer token.
//
// The token is fetched lazily by credential exchange and kept for the life of
// the process. There is no expiry tracking: a 401 observed by a caller is the
// only invalidation trigger. Concurrent callers that find no token share a
// single in-flight exchange.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"autopress/internal/models"
	"autopress/internal/transport"
)

const (
	tokenPath    = "api/token"
	validatePath = "api/token/validate"
)

// State is the authentication state of a Manager.
type State int

const (
	Unauthenticated State = iota
	Authenticating
	Authenticated
)

func (s State) String() string {
	switch s {
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// Manager hands out the cached bearer token.
type Manager struct {
	client   *transport.Client
	username string
	password string

	group        singleflight.Group
	mu           sync.RWMutex
	current      *models.Session
	exchanging   atomic.Bool
	now          func() time.Time
	exchangeRuns atomic.Int64
}

// New returns a Manager in the Unauthenticated state.
func New(client *transport.Client, username, password string) *Manager {
	return &Manager{
		client:   client,
		username: username,
		password: password,
		now:      time.Now,
	}
}

// State reports the current authentication state.
func (m *Manager) State() State {
	if m.exchanging.Load() {
		return Authenticating
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current != nil {
		return Authenticated
	}
	return Unauthenticated
}

// Exchanges returns how many credential exchanges have been performed.
func (m *Manager) Exchanges() int64 { return m.exchangeRuns.Load() }

// Cached returns the current token without triggering an exchange.
func (m *Manager) Cached() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return "", false
	}
	return m.current.Token, true
}

// Session returns a copy of the cached session, if any.
func (m *Manager) Session() (models.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return models.Session{}, false
	}
	return *m.current, true
}

// Token returns the cached token, exchanging credentials if there is none.
// The shared exchange is detached from the caller that started it, so one
// caller giving up does not fail the others; each caller still returns as
// soon as its own ctx is done.
func (m *Manager) Token(ctx context.Context) (string, error) {
	if tok, ok := m.Cached(); ok {
		return tok, nil
	}
	ch := m.group.DoChan("token", func() (any, error) {
		// A caller that lost the race to an exchange that already finished
		// must not start another one.
		if tok, ok := m.Cached(); ok {
			return tok, nil
		}
		m.exchanging.Store(true)
		defer m.exchanging.Store(false)

		xctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), transport.DefaultTimeout)
		defer cancel()
		sess, err := m.exchange(xctx)
		if err != nil {
			return "", err
		}
		m.mu.Lock()
		m.current = &sess
		m.mu.Unlock()
		return sess.Token, nil
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		if res.Shared {
			log.Debug("joined in-flight credential exchange")
		}
		return res.Val.(string), nil
	}
}

// Invalidate drops the cached token if it is still stale. Passing an empty
// string drops whatever token is cached. Requests already holding the old
// token are not affected.
func (m *Manager) Invalidate(stale string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return
	}
	if stale != "" && m.current.Token != stale {
		return
	}
	log.Debug("cms session invalidated")
	m.current = nil
}

// Validate checks the cached (or freshly exchanged) token against the CMS.
func (m *Manager) Validate(ctx context.Context) error {
	tok, err := m.Token(ctx)
	if err != nil {
		return err
	}
	err = m.client.Get(ctx, validatePath, nil, BearerHeader(tok), nil)
	if err == nil {
		return nil
	}
	var se *transport.StatusError
	if errors.As(err, &se) && (se.Code == http.StatusUnauthorized || se.Code == http.StatusForbidden) {
		m.Invalidate(tok)
		return &models.AuthError{Op: "validate token", Status: se.Code, Err: errors.New(se.Body)}
	}
	return err
}

func (m *Manager) exchange(ctx context.Context) (models.Session, error) {
	if m.username == "" || m.password == "" {
		return models.Session{}, &models.AuthError{Op: "credential exchange", Err: models.ErrNoCredentials}
	}
	m.exchangeRuns.Add(1)

	var resp struct {
		Token string `json:"token"`
	}
	body := map[string]string{"username": m.username, "password": m.password}
	err := m.client.Post(ctx, tokenPath, body, nil, &resp)
	if err != nil {
		var se *transport.StatusError
		var de *transport.DecodeError
		switch {
		case errors.As(err, &se) && se.Code >= 400 && se.Code < 500:
			return models.Session{}, &models.AuthError{Op: "credential exchange", Status: se.Code, Err: errors.New(se.Body)}
		case errors.As(err, &se):
			return models.Session{}, &models.TransportError{Op: http.MethodPost, URL: se.URL, Err: err}
		case errors.As(err, &de):
			return models.Session{}, &models.AuthError{Op: "credential exchange", Err: err}
		}
		return models.Session{}, err
	}
	if strings.TrimSpace(resp.Token) == "" {
		return models.Session{}, &models.AuthError{Op: "credential exchange", Err: errors.New("empty token in response")}
	}

	log.Infof("Obtained CMS token for user %s", m.username)
	return models.Session{Token: resp.Token, IssuedAt: m.now()}, nil
}

// BearerHeader builds the Authorization header for a token.
func BearerHeader(token string) http.Header {
	h := http.Header{}
	h.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	return h
}
