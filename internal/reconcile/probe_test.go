package reconcile

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connect-service/internal/extsession"
	"connect-service/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSessions struct {
	sessions map[string]session.Session
	err      error
}

func (f *fakeSessions) Create(_ context.Context, s session.Session) error {
	f.sessions[s.SessionID] = s
	return nil
}

func (f *fakeSessions) Get(_ context.Context, id string) (*session.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	s, ok := f.sessions[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (f *fakeSessions) Delete(_ context.Context, id string) error {
	delete(f.sessions, id)
	return nil
}

type fakeExternals struct {
	sessions map[string]extsession.External
	err      error
}

func (f *fakeExternals) Create(_ context.Context, e extsession.External) error {
	f.sessions[e.SessionID] = e
	return nil
}

func (f *fakeExternals) Get(_ context.Context, id string) (*extsession.External, error) {
	if f.err != nil {
		return nil, f.err
	}
	e, ok := f.sessions[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (f *fakeExternals) Delete(_ context.Context, id string) error {
	delete(f.sessions, id)
	return nil
}

type fakeLinks struct {
	mappings map[string]string
	err      error
}

func (f *fakeLinks) Find(_ context.Context, externalID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.mappings[externalID], nil
}

func (f *fakeLinks) FindByAccount(_ context.Context, accountID string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []string
	for ext, acct := range f.mappings {
		if acct == accountID {
			out = append(out, ext)
		}
	}
	return out, nil
}

func (f *fakeLinks) Insert(_ context.Context, externalID, accountID string) error {
	f.mappings[externalID] = accountID
	return nil
}

func (f *fakeLinks) InsertWithAccount(_ context.Context, _, externalID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	id := "acct-" + externalID
	f.mappings[externalID] = id
	return id, nil
}

func (f *fakeLinks) Delete(_ context.Context, externalID string) error {
	delete(f.mappings, externalID)
	return nil
}

func probeFixture() (*Probe, *fakeSessions, *fakeExternals, *fakeLinks) {
	sessions := &fakeSessions{sessions: map[string]session.Session{}}
	externals := &fakeExternals{sessions: map[string]extsession.External{}}
	links := &fakeLinks{mappings: map[string]string{}}
	return NewProbe(sessions, externals, links), sessions, externals, links
}

func requestWith(cookies ...*http.Cookie) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/connect", nil)
	for _, c := range cookies {
		r.AddCookie(c)
	}
	return r
}

func TestProbe_BothSessions(t *testing.T) {
	probe, sessions, externals, links := probeFixture()

	sessions.sessions["s1"] = session.Session{
		SessionID: "s1",
		UserID:    "acct-1",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	externals.sessions["e1"] = extsession.External{
		SessionID:  "e1",
		ExternalID: "fb-42",
		ExpiresAt:  time.Now().Add(time.Hour),
	}
	links.mappings["fb-42"] = "acct-1"

	rc, ext, err := probe.Build(context.Background(), requestWith(
		&http.Cookie{Name: session.CookieName, Value: "s1"},
		&http.Cookie{Name: extsession.CookieName, Value: "e1"},
	))
	require.NoError(t, err)
	require.NotNil(t, ext)

	assert.True(t, rc.LocalAuthed)
	assert.Equal(t, "acct-1", rc.LocalAccountID)
	assert.True(t, rc.ExternalAuthed)
	assert.Equal(t, "fb-42", rc.ExternalID)
	assert.Equal(t, "acct-1", rc.MappedAccountID)
	assert.Equal(t, []string{"fb-42"}, rc.LocalMappings)
}

func TestProbe_ExpiredSessionsIgnored(t *testing.T) {
	probe, sessions, externals, _ := probeFixture()

	sessions.sessions["s1"] = session.Session{
		SessionID: "s1",
		UserID:    "acct-1",
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	externals.sessions["e1"] = extsession.External{
		SessionID:  "e1",
		ExternalID: "fb-42",
		ExpiresAt:  time.Now().Add(-time.Minute),
	}

	rc, ext, err := probe.Build(context.Background(), requestWith(
		&http.Cookie{Name: session.CookieName, Value: "s1"},
		&http.Cookie{Name: extsession.CookieName, Value: "e1"},
	))
	require.NoError(t, err)

	assert.False(t, rc.LocalAuthed)
	assert.False(t, rc.ExternalAuthed)
	assert.Nil(t, ext)
}

// A session-store failure downgrades that side to unauthenticated instead
// of failing the request or, worse, treating the user as signed in.
func TestProbe_SessionStoreFailureFailsOpenToLoggedOut(t *testing.T) {
	probe, sessions, externals, _ := probeFixture()

	sessions.err = errors.New("redis down")
	externals.err = errors.New("redis down")

	rc, ext, err := probe.Build(context.Background(), requestWith(
		&http.Cookie{Name: session.CookieName, Value: "s1"},
		&http.Cookie{Name: extsession.CookieName, Value: "e1"},
	))
	require.NoError(t, err)

	assert.False(t, rc.LocalAuthed)
	assert.False(t, rc.ExternalAuthed)
	assert.Nil(t, ext)
}

// Mapping store failure is fatal for the request: mutations downstream
// depend on these facts being current.
func TestProbe_MappingStoreFailureFailsRequest(t *testing.T) {
	probe, _, externals, links := probeFixture()

	externals.sessions["e1"] = extsession.External{
		SessionID:  "e1",
		ExternalID: "fb-42",
		ExpiresAt:  time.Now().Add(time.Hour),
	}
	links.err = errors.New("pg down")

	_, _, err := probe.Build(context.Background(), requestWith(
		&http.Cookie{Name: extsession.CookieName, Value: "e1"},
	))
	require.Error(t, err)
}
