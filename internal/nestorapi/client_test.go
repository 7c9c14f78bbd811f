package nestorapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nestor/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

type capturedRequest struct {
	Method  string
	Path    string
	Auth    string
	Type    string
	Message domain.WireMessage
}

type recorder struct {
	mu   sync.Mutex
	reqs []capturedRequest
}

func (r *recorder) all() []capturedRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]capturedRequest(nil), r.reqs...)
}

func newCaptureServer(t *testing.T, status int, rec *recorder) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		var env struct {
			Message domain.WireMessage `json:"message"`
		}
		if err := json.Unmarshal(body, &env); err != nil {
			t.Errorf("decode body %s: %v", body, err)
		}
		rec.mu.Lock()
		rec.reqs = append(rec.reqs, capturedRequest{
			Method:  r.Method,
			Path:    r.URL.Path,
			Auth:    r.Header.Get("Authorization"),
			Type:    r.Header.Get("Content-Type"),
			Message: env.Message,
		})
		rec.mu.Unlock()
		w.WriteHeader(status)
		if status >= 300 {
			w.Write([]byte(`{"error":"nope"}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestPostMessage_Accepted(t *testing.T) {
	rec := &recorder{}
	srv := newCaptureServer(t, http.StatusAccepted, rec)

	c, err := New(Config{BaseURL: srv.URL, Token: StaticToken("authToken"), Logger: testLogger()})
	require.NoError(t, err)

	msg := domain.WireMessage{
		UserUID:    "UDEADBEEF1",
		ChannelUID: "CDEADBEEF1",
		Strings:    EncodeStrings("hello"),
	}
	require.NoError(t, c.PostMessage(context.Background(), "TDEADBEEF", msg))

	reqs := rec.all()
	require.Len(t, reqs, 1)
	got := reqs[0]
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "/teams/TDEADBEEF/messages", got.Path)
	assert.Equal(t, "authToken", got.Auth)
	assert.Equal(t, "application/json", got.Type)
	assert.Equal(t, msg, got.Message)
}

func TestPostMessage_BodyShape(t *testing.T) {
	var raw []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL, Token: StaticToken("authToken"), Logger: testLogger()})
	require.NoError(t, err)
	err = c.PostMessage(context.Background(), "TDEADBEEF", domain.WireMessage{
		UserUID: "U1", ChannelUID: "C1", Strings: "aGk", Reply: true,
	})
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"message":{"user_uid":"U1","channel_uid":"C1","strings":"aGk","reply":true}}`,
		string(raw))
}

func TestPostMessage_Any2xxIsSuccess(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusCreated, http.StatusAccepted, http.StatusNoContent} {
		rec := &recorder{}
		srv := newCaptureServer(t, status, rec)
		c, err := New(Config{BaseURL: srv.URL, Token: StaticToken("t"), Logger: testLogger()})
		require.NoError(t, err)
		assert.NoError(t, c.PostMessage(context.Background(), "T1", domain.WireMessage{}), "status %d", status)
	}
}

func TestPostMessage_APIError(t *testing.T) {
	rec := &recorder{}
	srv := newCaptureServer(t, http.StatusUnauthorized, rec)

	c, err := New(Config{BaseURL: srv.URL, Token: StaticToken("bad"), Logger: testLogger()})
	require.NoError(t, err)

	err = c.PostMessage(context.Background(), "T1", domain.WireMessage{})
	require.Error(t, err)
	apiErr, ok := IsAPIError(err)
	require.True(t, ok, "expected APIError, got %T", err)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "nope")
}

func TestPostMessage_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := New(Config{BaseURL: url, Token: StaticToken("t"), Logger: testLogger()})
	require.NoError(t, err)

	err = c.PostMessage(context.Background(), "T1", domain.WireMessage{})
	var te *TransportError
	require.True(t, errors.As(err, &te), "expected TransportError, got %v", err)
	assert.Equal(t, http.MethodPost, te.Op)
	assert.NotNil(t, errors.Unwrap(err))
}

func TestPostMessage_MissingToken(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL, Token: StaticToken(""), Logger: testLogger()})
	require.NoError(t, err)

	err = c.PostMessage(context.Background(), "T1", domain.WireMessage{})
	assert.ErrorIs(t, err, ErrMissingToken)
	assert.False(t, called, "no request should be sent without a token")
}

func TestPostMessage_TokenReadPerCall(t *testing.T) {
	rec := &recorder{}
	srv := newCaptureServer(t, http.StatusAccepted, rec)

	t.Setenv("NESTOR_TEST_TOKEN", "first")
	c, err := New(Config{BaseURL: srv.URL, Token: EnvToken("NESTOR_TEST_TOKEN"), Logger: testLogger()})
	require.NoError(t, err)

	require.NoError(t, c.PostMessage(context.Background(), "T1", domain.WireMessage{}))
	t.Setenv("NESTOR_TEST_TOKEN", "second")
	require.NoError(t, c.PostMessage(context.Background(), "T1", domain.WireMessage{}))

	reqs := rec.all()
	require.Len(t, reqs, 2)
	assert.Equal(t, "first", reqs[0].Auth)
	assert.Equal(t, "second", reqs[1].Auth)
}

func TestPostMessage_CanceledContext(t *testing.T) {
	rec := &recorder{}
	srv := newCaptureServer(t, http.StatusAccepted, rec)

	c, err := New(Config{BaseURL: srv.URL, Token: StaticToken("t"), Logger: testLogger()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = c.PostMessage(ctx, "T1", domain.WireMessage{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPostMessage_EmptyTeam(t *testing.T) {
	c, err := New(Config{Token: StaticToken("t"), Logger: testLogger()})
	require.NoError(t, err)
	assert.Error(t, c.PostMessage(context.Background(), " ", domain.WireMessage{}))
}

func TestNew_Defaults(t *testing.T) {
	c, err := New(Config{BaseURL: "https://example.test/"})
	require.NoError(t, err)
	assert.Equal(t, "https://example.test", c.baseURL)
	assert.Equal(t, defaultUserAgent, c.userAgent)
	assert.Equal(t, EnvToken(DefaultTokenEnv), c.token)

	c, err = New(Config{})
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, c.baseURL)
}
