package handler_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/freekieb7/neurovault-users/internal/account"
	"github.com/freekieb7/neurovault-users/internal/config"
	"github.com/freekieb7/neurovault-users/internal/events"
	"github.com/freekieb7/neurovault-users/internal/form"
	"github.com/freekieb7/neurovault-users/internal/oauth"
	"github.com/freekieb7/neurovault-users/internal/session"
	"github.com/freekieb7/neurovault-users/internal/web/handler"
	"github.com/freekieb7/neurovault-users/web"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const testCSRFToken = "test-csrf-token"

type memorySessions struct {
	mu       sync.Mutex
	sessions map[string]session.Session
	counter  int
}

func (m *memorySessions) nextToken() string {
	m.counter++
	return "session-" + strings.Repeat("s", m.counter)
}

func (m *memorySessions) NewSession() (session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return session.Session{Token: m.nextToken(), Data: map[string]any{}, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (m *memorySessions) GetSessionByToken(_ context.Context, token string) (session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[token]
	if !ok {
		return session.Session{}, session.ErrSessionNotFound
	}
	data := make(map[string]any, len(sess.Data))
	for k, v := range sess.Data {
		data[k] = v
	}
	sess.Data = data
	return sess, nil
}

func (m *memorySessions) SaveSession(_ context.Context, sess session.Session) (session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sess.ID == uuid.Nil {
		sess.ID = uuid.New()
	}
	m.sessions[sess.Token] = sess
	return sess, nil
}

func (m *memorySessions) RegenerateSession(_ context.Context, sess session.Session) (session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sess.Token)
	sess.Token = m.nextToken()
	m.sessions[sess.Token] = sess
	return sess, nil
}

func (m *memorySessions) DeleteSession(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
	return nil
}

func (m *memorySessions) get(token string) session.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[token]
}

type fakeAccounts struct {
	users     map[string]account.User
	passwords map[string]string
}

func (f *fakeAccounts) add(username, password string) account.User {
	user := account.User{ID: uuid.New(), Username: username, CreatedAt: time.Now()}
	f.users[username] = user
	f.passwords[username] = password
	return user
}

func (f *fakeAccounts) CreateUser(_ context.Context, username, email, password string) (account.User, error) {
	if _, ok := f.users[username]; ok {
		return account.User{}, account.ErrUsernameTaken
	}
	user := f.add(username, password)
	user.Email = email
	f.users[username] = user
	return user, nil
}

func (f *fakeAccounts) GetUserByID(_ context.Context, id uuid.UUID) (account.User, error) {
	for _, user := range f.users {
		if user.ID == id {
			return user, nil
		}
	}
	return account.User{}, account.ErrUserNotFound
}

func (f *fakeAccounts) GetUserByUsername(_ context.Context, username string) (account.User, error) {
	user, ok := f.users[username]
	if !ok {
		return account.User{}, account.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeAccounts) UpdateUser(_ context.Context, user account.User) (account.User, error) {
	f.users[user.Username] = user
	return user, nil
}

func (f *fakeAccounts) AuthenticateUser(_ context.Context, username, password string) (account.User, error) {
	user, ok := f.users[username]
	if !ok || f.passwords[username] != password {
		return account.User{}, account.ErrInvalidCredentials
	}
	return user, nil
}

type fakeTokens struct {
	tokens  map[uuid.UUID]oauth.AccessToken
	revoked map[uuid.UUID]bool
}

func (f *fakeTokens) ListPersonal(_ context.Context, userID, applicationID uuid.UUID) ([]oauth.AccessToken, error) {
	var out []oauth.AccessToken
	for id, t := range f.tokens {
		if t.UserID == userID && t.ApplicationID == applicationID && !f.revoked[id] {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTokens) CreatePersonal(_ context.Context, userID, applicationID uuid.UUID) (oauth.AccessToken, error) {
	t := oauth.AccessToken{
		ID:            uuid.New(),
		UserID:        userID,
		ApplicationID: applicationID,
		Token:         "personal-" + uuid.NewString()[:8],
		Scope:         oauth.PersonalTokenScope,
		ExpiresAt:     oauth.PersonalTokenExpiry,
		CreatedAt:     time.Now(),
	}
	f.tokens[t.ID] = t
	return t, nil
}

func (f *fakeTokens) GetPersonal(_ context.Context, id, userID, applicationID uuid.UUID) (oauth.AccessToken, error) {
	t, ok := f.tokens[id]
	if !ok || f.revoked[id] || t.UserID != userID || t.ApplicationID != applicationID {
		return oauth.AccessToken{}, oauth.ErrTokenNotFound
	}
	return t, nil
}

func (f *fakeTokens) Revoke(_ context.Context, id, userID, applicationID uuid.UUID) error {
	t, ok := f.tokens[id]
	if !ok || t.UserID != userID || t.ApplicationID != applicationID {
		return oauth.ErrTokenNotFound
	}
	f.revoked[id] = true
	return nil
}

type fakeApplications struct {
	apps map[uuid.UUID]oauth.Application
}

func (f *fakeApplications) Create(_ context.Context, ownerID uuid.UUID, form oauth.ApplicationForm) (oauth.Application, error) {
	app := oauth.Application{
		ID:                     uuid.New(),
		UserID:                 ownerID,
		Name:                   form.Name,
		ClientID:               "client",
		ClientSecret:           "secret",
		ClientType:             form.ClientType,
		AuthorizationGrantType: form.AuthorizationGrantType,
		RedirectURIs:           form.RedirectURIList(),
		WebsiteURL:             form.WebsiteURL,
	}
	f.apps[app.ID] = app
	return app, nil
}

func (f *fakeApplications) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]oauth.Application, error) {
	var out []oauth.Application
	for _, app := range f.apps {
		if app.UserID == ownerID {
			out = append(out, app)
		}
	}
	return out, nil
}

func (f *fakeApplications) GetByIDAndOwner(_ context.Context, id, ownerID uuid.UUID) (oauth.Application, error) {
	app, ok := f.apps[id]
	if !ok || app.UserID != ownerID {
		return oauth.Application{}, oauth.ErrApplicationNotFound
	}
	return app, nil
}

func (f *fakeApplications) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	_, ok := f.apps[id]
	return ok, nil
}

func (f *fakeApplications) Update(_ context.Context, app oauth.Application, form oauth.ApplicationForm) (oauth.Application, error) {
	app.Name = form.Name
	app.ClientType = form.ClientType
	app.AuthorizationGrantType = form.AuthorizationGrantType
	app.RedirectURIs = form.RedirectURIList()
	app.WebsiteURL = form.WebsiteURL
	f.apps[app.ID] = app
	return app, nil
}

func (f *fakeApplications) Delete(_ context.Context, id, ownerID uuid.UUID) error {
	app, ok := f.apps[id]
	if !ok || app.UserID != ownerID {
		return oauth.ErrApplicationNotFound
	}
	delete(f.apps, id)
	return nil
}

type fakeConnections struct {
	connections []oauth.Connection
	owners      map[uuid.UUID]uuid.UUID
	revokeCalls int
	revokeErr   error
}

func (f *fakeConnections) add(userID, applicationID uuid.UUID, name string) oauth.Connection {
	c := oauth.Connection{ID: uuid.New(), ApplicationID: applicationID, ApplicationName: name, CreatedAt: time.Now()}
	f.connections = append(f.connections, c)
	f.owners[c.ID] = userID
	return c
}

func (f *fakeConnections) List(_ context.Context, userID uuid.UUID) ([]oauth.Connection, error) {
	var out []oauth.Connection
	for _, c := range f.connections {
		if f.owners[c.ID] == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeConnections) FirstForApplication(_ context.Context, userID, applicationID uuid.UUID) (oauth.Connection, error) {
	for _, c := range f.connections {
		if f.owners[c.ID] == userID && c.ApplicationID == applicationID {
			return c, nil
		}
	}
	return oauth.Connection{}, oauth.ErrConnectionNotFound
}

func (f *fakeConnections) RevokeAll(_ context.Context, userID, applicationID uuid.UUID) (int, error) {
	f.revokeCalls++
	if f.revokeErr != nil {
		return 0, f.revokeErr
	}
	revoked := 0
	for i, c := range f.connections {
		if f.owners[c.ID] == userID && c.ApplicationID == applicationID {
			f.connections[i].IsRevoked = true
			revoked++
		}
	}
	return revoked, nil
}

type recordingPublisher struct {
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event events.Event) error {
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type testEnv struct {
	mux          *http.ServeMux
	sessions     *memorySessions
	accounts     *fakeAccounts
	tokens       *fakeTokens
	applications *fakeApplications
	connections  *fakeConnections
	publisher    *recordingPublisher
	defaultAppID uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	renderer, err := handler.NewRenderer(web.GetTemplateFS())
	require.NoError(t, err)

	env := &testEnv{
		mux:          http.NewServeMux(),
		sessions:     &memorySessions{sessions: map[string]session.Session{}},
		accounts:     &fakeAccounts{users: map[string]account.User{}, passwords: map[string]string{}},
		tokens:       &fakeTokens{tokens: map[uuid.UUID]oauth.AccessToken{}, revoked: map[uuid.UUID]bool{}},
		applications: &fakeApplications{apps: map[uuid.UUID]oauth.Application{}},
		connections:  &fakeConnections{owners: map[uuid.UUID]uuid.UUID{}},
		publisher:    &recordingPublisher{},
		defaultAppID: uuid.New(),
	}
	env.applications.apps[env.defaultAppID] = oauth.Application{ID: env.defaultAppID, Name: "NeuroVault"}

	cfg := &config.Config{}
	cfg.OAuth.DefaultApplicationID = env.defaultAppID
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	validator := form.NewValidator()
	base := handler.NewBase(cfg, logger, env.sessions, renderer, env.publisher)

	accountHandler := handler.NewAccountHandler(base, env.accounts, validator)
	accountHandler.RegisterRoutes(env.mux)
	tokenHandler := handler.NewTokenHandler(base, env.tokens, env.applications, env.defaultAppID)
	tokenHandler.RegisterRoutes(env.mux)
	applicationHandler := handler.NewApplicationHandler(base, env.applications, validator)
	applicationHandler.RegisterRoutes(env.mux)
	connectionHandler := handler.NewConnectionHandler(base, env.connections)
	connectionHandler.RegisterRoutes(env.mux)
	handler.RegisterStaticRoutes(env.mux)

	return env
}

// session stores a session carrying the test CSRF token, bound to userID when set.
func (e *testEnv) session(userID uuid.UUID) string {
	sess, _ := e.sessions.NewSession()
	sess.UserID = userID
	sess.Data[session.CSRFKey] = testCSRFToken
	sess, _ = e.sessions.SaveSession(context.Background(), sess)
	return sess.Token
}

func (e *testEnv) get(target, token string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	return e.serve(req, token, headers)
}

func (e *testEnv) post(target, token string, values url.Values, headers ...string) *httptest.ResponseRecorder {
	if values == nil {
		values = url.Values{}
	}
	if values.Get("csrf_token") == "" {
		values.Set("csrf_token", testCSRFToken)
	}
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.serve(req, token, headers)
}

func (e *testEnv) serve(req *http.Request, token string, headers []string) *httptest.ResponseRecorder {
	if token != "" {
		req.AddCookie(&http.Cookie{Name: session.CookieName, Value: token})
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(rec *httptest.ResponseRecorder) string {
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName {
			return c.Value
		}
	}
	return ""
}
