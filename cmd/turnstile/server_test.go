package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fakacrm/turnstile/automod/engine"
	"github.com/fakacrm/turnstile/automod/keyword"
	"github.com/fakacrm/turnstile/automod/setstore"
	"github.com/fakacrm/turnstile/automod/verify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer() *Server {
	eng, _, _ := engine.EngineTestFixture()
	s := &Server{
		logger: slog.Default(),
		engine: eng,
	}
	s.setupAPI(":0")
	return s
}

func TestHealthCheck(t *testing.T) {
	assert := assert.New(t)
	s := testServer()

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/_health", nil))
	assert.Equal(http.StatusOK, rec.Code)

	var status GenericStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal("ok", status.Status)
	assert.Equal("turnstile", status.Daemon)
}

func TestPending(t *testing.T) {
	assert := assert.New(t)
	s := testServer()

	now := time.Now()
	s.engine.Registry.Put(verify.PendingVerification{MemberID: 111, ExpectedAnswer: 7, OriginChat: -1001, DisplayName: "alice", IssuedAt: now})
	s.engine.Registry.Put(verify.PendingVerification{MemberID: 222, ExpectedAnswer: 12, OriginChat: -1002, DisplayName: "bob", IssuedAt: now.Add(time.Second)})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pending", nil))
	assert.Equal(http.StatusOK, rec.Code)
	var out PendingOutput
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(2, out.Count)
	assert.Equal(int64(111), out.Pending[0].MemberID)

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pending?chat=-1002", nil))
	assert.Equal(http.StatusOK, rec.Code)
	out = PendingOutput{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(1, out.Count)
	assert.Equal("bob", out.Pending[0].DisplayName)

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pending?chat=-1003", nil))
	assert.Equal(http.StatusOK, rec.Code)
	assert.Contains(rec.Body.String(), `"pending":[]`)

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pending?chat=general", nil))
	assert.Equal(http.StatusBadRequest, rec.Code)
	var status GenericStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal("error", status.Status)
}

func TestLoadFilter(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	sets := setstore.NewMemSetStore()
	m, err := loadFilter(ctx, sets)
	require.NoError(t, err)
	assert.Equal(len(keyword.DefaultBannedSubstrings), m.Len())

	sets.Add(bannedSetName, "casino", "airdrop")
	m, err = loadFilter(ctx, sets)
	require.NoError(t, err)
	assert.Equal(2, m.Len())
	_, ok := m.Match("free AIRDROP here")
	assert.True(ok)
	_, ok = m.Match("广告")
	assert.False(ok)
}

func TestUnknownRoute(t *testing.T) {
	assert := assert.New(t)
	s := testServer()

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(http.StatusNotFound, rec.Code)

	// exactly one JSON document, carrying the HTTP error message
	var status GenericStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal("error", status.Status)
	assert.Equal("Not Found", status.Message)
}
