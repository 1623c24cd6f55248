package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stelaras36/JobTracker/app/tracker"
)

func newTestServer(t *testing.T, cfg Config) (*Server, *tracker.Store) {
	t.Helper()
	store := tracker.NewStore(tracker.Options{})
	require.NoError(t, store.Initialize(nil, false))
	cfg.Store = store
	cfg.Version = "test"
	if cfg.MutationRate == 0 {
		cfg.MutationRate = 1000
	}
	srv, err := New(cfg)
	require.NoError(t, err)
	return srv, store
}

func doJSON(t *testing.T, h http.Handler, method, url string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, url, &buf)
	req.RemoteAddr = "127.0.0.1:12345"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeJobs(t *testing.T, w *httptest.ResponseRecorder) APIJobsResponse {
	t.Helper()
	var resp APIJobsResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

func TestHandleListJobs(t *testing.T) {
	srv, _ := newTestServer(t, Config{})
	h := srv.routes()

	tbl := []struct {
		name   string
		url    string
		titles []string
	}{
		{"all by default", "/api/v1/jobs", []string{"Android Developer", "Junior Software Engineer", "Backend Developer Intern"}},
		{"explicit all", "/api/v1/jobs?status=All", []string{"Android Developer", "Junior Software Engineer", "Backend Developer Intern"}},
		{"by status", "/api/v1/jobs?status=Interview", []string{"Backend Developer Intern"}},
		{"by status any case", "/api/v1/jobs?status=interview", []string{"Backend Developer Intern"}},
		{"all any case", "/api/v1/jobs?status=all", []string{"Android Developer", "Junior Software Engineer", "Backend Developer Intern"}},
		{"search company", "/api/v1/jobs?q=yod", []string{"Android Developer"}},
		{"search title", "/api/v1/jobs?q=DEVELOPER", []string{"Android Developer", "Backend Developer Intern"}},
		{"status and search", "/api/v1/jobs?status=Applied&q=intra", []string{}},
	}

	for _, tt := range tbl {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, h, "GET", tt.url, nil)
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			resp := decodeJobs(t, w)
			titles := []string{}
			for _, j := range resp.Jobs {
				titles = append(titles, j.Title)
				assert.NotEmpty(t, j.ID)
			}
			assert.Equal(t, tt.titles, titles)
			assert.Equal(t, 3, resp.Total)
		})
	}

	t.Run("empty result is array not null", func(t *testing.T) {
		w := doJSON(t, h, "GET", "/api/v1/jobs?status=Offer", nil)
		assert.Contains(t, w.Body.String(), `"jobs":[]`)
	})
}

func TestHandleAddJob(t *testing.T) {
	srv, store := newTestServer(t, Config{})
	h := srv.routes()

	t.Run("added first", func(t *testing.T) {
		w := doJSON(t, h, "POST", "/api/v1/jobs", AddJobRequest{Title: " Go Developer ", Company: "Acme", Status: "offer"})
		require.Equal(t, http.StatusCreated, w.Code)
		var job APIJob
		require.NoError(t, json.NewDecoder(w.Body).Decode(&job))
		assert.Equal(t, " Go Developer ", job.Title, "stored as given")
		assert.Equal(t, "Acme", job.Company)
		assert.Equal(t, "Offer", job.Status)
		assert.Equal(t, job.ID, store.List()[0].ID)
	})

	t.Run("default status", func(t *testing.T) {
		w := doJSON(t, h, "POST", "/api/v1/jobs", AddJobRequest{Title: "SRE", Company: "Globex"})
		require.Equal(t, http.StatusCreated, w.Code)
		var job APIJob
		require.NoError(t, json.NewDecoder(w.Body).Decode(&job))
		assert.Equal(t, "Wishlist", job.Status)
	})

	tbl := []struct {
		name string
		body any
	}{
		{"empty title", AddJobRequest{Company: "Acme"}},
		{"blank company", AddJobRequest{Title: "Eng", Company: "  "}},
		{"bad status", AddJobRequest{Title: "Eng", Company: "Acme", Status: "Ghosted"}},
		{"bad json", "not an object"},
	}
	for _, tt := range tbl {
		t.Run(tt.name, func(t *testing.T) {
			before := store.Len()
			w := doJSON(t, h, "POST", "/api/v1/jobs", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), `"error"`)
			assert.Equal(t, before, store.Len())
		})
	}
}

func TestHandleUpdateStatus(t *testing.T) {
	srv, store := newTestServer(t, Config{})
	h := srv.routes()
	target := store.List()[1]

	t.Run("known status", func(t *testing.T) {
		w := doJSON(t, h, "PUT", "/api/v1/jobs/"+target.ID+"/status", UpdateStatusRequest{Status: "interview"})
		require.Equal(t, http.StatusOK, w.Code)
		var job APIJob
		require.NoError(t, json.NewDecoder(w.Body).Decode(&job))
		assert.Equal(t, APIJob{ID: target.ID, Title: target.Title, Company: target.Company, Status: "Interview"}, job)
		assert.Equal(t, tracker.StatusInterview, store.List()[1].Status)
	})

	t.Run("custom status kept as is", func(t *testing.T) {
		w := doJSON(t, h, "PUT", "/api/v1/jobs/"+target.ID+"/status", UpdateStatusRequest{Status: "On Hold"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, tracker.Status("On Hold"), store.List()[1].Status)
	})

	t.Run("not found", func(t *testing.T) {
		w := doJSON(t, h, "PUT", "/api/v1/jobs/nope/status", UpdateStatusRequest{Status: "Offer"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("empty status", func(t *testing.T) {
		w := doJSON(t, h, "PUT", "/api/v1/jobs/"+target.ID+"/status", UpdateStatusRequest{Status: " "})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandleDeleteAndGet(t *testing.T) {
	srv, store := newTestServer(t, Config{})
	h := srv.routes()
	target := store.List()[0]

	w := doJSON(t, h, "GET", "/api/v1/jobs/"+target.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, h, "DELETE", "/api/v1/jobs/"+target.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 2, store.Len())

	w = doJSON(t, h, "DELETE", "/api/v1/jobs/"+target.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code, "deleting missing job is a no-op")
	assert.Equal(t, 2, store.Len())

	w = doJSON(t, h, "GET", "/api/v1/jobs/"+target.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleStatusesAndStats(t *testing.T) {
	srv, _ := newTestServer(t, Config{})
	h := srv.routes()

	w := doJSON(t, h, "GET", "/api/v1/statuses", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var statuses []string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&statuses))
	assert.Equal(t, []string{"All", "Wishlist", "Applied", "Interview", "Offer", "Rejected"}, statuses)

	w = doJSON(t, h, "GET", "/api/v1/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats APIStatsResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&stats))
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, map[string]int{"Wishlist": 1, "Applied": 1, "Interview": 1, "Offer": 0, "Rejected": 0}, stats.ByStatus)
}
