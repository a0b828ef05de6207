package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serprank/internal/browser"
	"serprank/internal/models"
	"serprank/internal/scan"
	"serprank/internal/store"
	"serprank/pkg/logger"
)

type stubFetcher struct{}

func (stubFetcher) Fetch(_ context.Context, pageURL string) (browser.PageData, error) {
	return browser.PageData{URL: pageURL, HTML: `<html><body><div class="g">
		<a href="https://stub.test/post"><h3>Stub Result Title</h3></a>
	</div></body></html>`}, nil
}

func (stubFetcher) Close() error { return nil }

type fixture struct {
	router *gin.Engine
	scans  *scan.Orchestrator
	store  *store.MemoryStore
}

func newFixture(t *testing.T, pageDelay time.Duration) *fixture {
	t.Helper()
	st := store.NewMemory(50)
	scans := scan.New(stubFetcher{}, st, scan.Config{
		TotalPages: 3,
		PerPage:    10,
		PageDelay:  pageDelay,
	}, logger.NewNop())
	srv := NewServer(scans, st, logger.NewNop())
	return &fixture{router: srv.Router(), scans: scans, store: st}
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func seedHistory(t *testing.T, f *fixture, id string) *models.ScanState {
	t.Helper()
	state := &models.ScanState{
		ID:        id,
		Keyword:   "coffee beans",
		Status:    models.StatusCompleted,
		Results:   []models.SearchResult{{Position: 1, Title: "Seeded Result", Domain: "seed.test", URL: "https://seed.test/"}},
		Questions: []string{"What is cold brew?"},
		StartedAt: time.Now().UTC(),
		EndedAt:   time.Now().UTC(),
	}
	require.NoError(t, f.store.AppendHistory(context.Background(), state))
	return state
}

func TestHealth(t *testing.T) {
	f := newFixture(t, time.Millisecond)
	w := f.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStartScanValidation(t *testing.T) {
	f := newFixture(t, time.Millisecond)
	w := f.do(http.MethodPost, "/api/scans", `{"locale":"en"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStartScanConflict(t *testing.T) {
	f := newFixture(t, 300*time.Millisecond)

	w := f.do(http.MethodPost, "/api/scans", `{"keyword":"coffee","domain":"stub.test"}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	var state models.ScanState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.Equal(t, models.StatusRunning, state.Status)
	assert.NotEmpty(t, state.ID)

	w = f.do(http.MethodPost, "/api/scans", `{"keyword":"tea"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(http.MethodPost, "/api/scans/current/cancel", "")
	assert.Equal(t, http.StatusOK, w.Code)
	<-f.scans.Done()
}

func TestCurrentBeforeAnyScan(t *testing.T) {
	f := newFixture(t, time.Millisecond)
	w := f.do(http.MethodGet, "/api/scans/current", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCurrentAfterScan(t *testing.T) {
	f := newFixture(t, time.Millisecond)
	w := f.do(http.MethodPost, "/api/scans", `{"keyword":"coffee"}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	<-f.scans.Done()

	w = f.do(http.MethodGet, "/api/scans/current", "")
	require.Equal(t, http.StatusOK, w.Code)
	var state models.ScanState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.Equal(t, models.StatusCompleted, state.Status)
	assert.Len(t, state.Results, 3)

	w = f.do(http.MethodGet, "/api/scans/current/progress", "")
	require.Equal(t, http.StatusOK, w.Code)
	var prog models.Progress
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &prog))
	assert.Equal(t, 100.0, prog.Percent)
}

func TestListScans(t *testing.T) {
	f := newFixture(t, time.Millisecond)

	w := f.do(http.MethodGet, "/api/scans", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", strings.TrimSpace(w.Body.String()))

	seedHistory(t, f, "scan-1")
	w = f.do(http.MethodGet, "/api/scans", "")
	require.Equal(t, http.StatusOK, w.Code)
	var history []models.ScanState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	require.Len(t, history, 1)
	assert.Equal(t, "scan-1", history[0].ID)
}

func TestGetScanByID(t *testing.T) {
	f := newFixture(t, time.Millisecond)
	seedHistory(t, f, "scan-xyz")

	w := f.do(http.MethodGet, "/api/scans/scan-xyz", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodGet, "/api/scans/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExportScan(t *testing.T) {
	f := newFixture(t, time.Millisecond)
	seedHistory(t, f, "scan-exp")

	w := f.do(http.MethodGet, "/api/scans/scan-exp/export?format=csv", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "ranking-coffee-beans-scan-exp.csv")
	assert.Contains(t, w.Body.String(), "Position,Title,Domain,URL,Snippet")

	w = f.do(http.MethodGet, "/api/scans/scan-exp/export?format=json", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	w = f.do(http.MethodGet, "/api/scans/scan-exp/export?format=xml", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCancelWithoutScan(t *testing.T) {
	f := newFixture(t, time.Millisecond)

	w := f.do(http.MethodPost, "/api/scans/current/cancel", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(http.MethodPost, "/api/scans/other-id/cancel", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
