package web

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/stelaras36/JobTracker/app/tracker"
)

func TestNew(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err, "store is required")

	srv, err := New(Config{Store: tracker.NewStore(tracker.Options{})})
	require.NoError(t, err)
	assert.Equal(t, "jobtracker", srv.authUser)
	assert.NotNil(t, srv.limiter)
	assert.NotNil(t, srv.metrics)
}

func TestServer_Ping(t *testing.T) {
	srv, _ := newTestServer(t, Config{})
	w := doJSON(t, srv.routes(), "GET", "/ping", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
	assert.Equal(t, "jobtracker", w.Header().Get("App-Name"))
}

func TestServer_Auth(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	srv, _ := newTestServer(t, Config{PasswordHash: string(hash), AuthUser: "me"})
	h := srv.routes()

	tbl := []struct {
		name       string
		user, pass string
		setAuth    bool
		code       int
	}{
		{"no auth", "", "", false, http.StatusUnauthorized},
		{"wrong password", "me", "bad", true, http.StatusUnauthorized},
		{"wrong user", "admin", "secret", true, http.StatusUnauthorized},
		{"valid", "me", "secret", true, http.StatusOK},
	}

	for _, tt := range tbl {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest("GET", "/api/v1/jobs", http.NoBody)
			require.NoError(t, err)
			if tt.setAuth {
				req.SetBasicAuth(tt.user, tt.pass)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			assert.Equal(t, tt.code, w.Code)
			if tt.code == http.StatusUnauthorized {
				assert.Equal(t, `Basic realm="JobTracker"`, w.Header().Get("WWW-Authenticate"))
			}
		})
	}

	t.Run("ping and metrics open", func(t *testing.T) {
		w := doJSON(t, h, "GET", "/ping", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		w = doJSON(t, h, "GET", "/metrics", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestServer_RateLimit(t *testing.T) {
	srv, _ := newTestServer(t, Config{MutationRate: 1})
	h := srv.routes()

	codes := map[int]int{}
	for i := 0; i < 5; i++ {
		w := doJSON(t, h, "POST", "/api/v1/jobs", AddJobRequest{Title: fmt.Sprintf("t%d", i), Company: "c"})
		codes[w.Code]++
	}
	assert.Positive(t, codes[http.StatusCreated])
	assert.Positive(t, codes[http.StatusTooManyRequests])

	// reads are not limited
	for i := 0; i < 5; i++ {
		w := doJSON(t, h, "GET", "/api/v1/jobs", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestServer_Metrics(t *testing.T) {
	srv, _ := newTestServer(t, Config{})
	h := srv.routes()

	doJSON(t, h, "GET", "/api/v1/jobs", nil)
	doJSON(t, h, "POST", "/api/v1/jobs", AddJobRequest{Title: "Eng", Company: "Acme", Status: "Offer"})
	doJSON(t, h, "POST", "/api/v1/jobs", AddJobRequest{Title: "", Company: "Acme"})

	w := doJSON(t, h, "GET", "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `jobtracker_operations_total{op="list",result="ok"} 1`)
	assert.Contains(t, body, `jobtracker_operations_total{op="add",result="ok"} 1`)
	assert.Contains(t, body, `jobtracker_operations_total{op="add",result="error"} 1`)
	assert.Contains(t, body, `jobtracker_jobs{status="Offer"} 1`)
	assert.Contains(t, body, `jobtracker_jobs{status="Rejected"} 0`)
}

func TestServer_MetricsConcurrentScrapes(t *testing.T) {
	srv, _ := newTestServer(t, Config{})
	h := srv.routes()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			doJSON(t, h, "POST", "/api/v1/jobs", AddJobRequest{Title: "Eng", Company: "Acme", Status: "Offer"})
		}()
		go func() {
			defer wg.Done()
			w := doJSON(t, h, "GET", "/metrics", nil)
			assert.Equal(t, http.StatusOK, w.Code)
			body := w.Body.String()
			for _, st := range tracker.Statuses() {
				assert.Contains(t, body, fmt.Sprintf(`jobtracker_jobs{status=%q}`, st), "every status in each scrape")
			}
		}()
	}
	wg.Wait()

	w := doJSON(t, h, "GET", "/metrics", nil)
	assert.Contains(t, w.Body.String(), `jobtracker_jobs{status="Offer"} 8`)
}

func TestServer_Run(t *testing.T) {
	srv, _ := newTestServer(t, Config{})

	port := freePort(t)
	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx, fmt.Sprintf("127.0.0.1:%d", port)) }()

	url := fmt.Sprintf("http://127.0.0.1:%d/api/v1/jobs?q=yod", port)
	require.Eventually(t, func() bool {
		resp, err := http.Get(url) //nolint:gosec,noctx // test url
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode == http.StatusOK && len(body) > 0
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(6 * time.Second):
		t.Fatal("server not stopped")
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}
