package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	log "github.com/go-pkgz/lgr"

	"github.com/stelaras36/JobTracker/app/tracker"
)

// APIJob represents a job in JSON API response
type APIJob struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Company string `json:"company"`
	Status  string `json:"status"`
}

// APIJobsResponse is the JSON response for job list
type APIJobsResponse struct {
	Jobs  []APIJob `json:"jobs"`
	Total int      `json:"total"` // all jobs in store, before filtering
}

// APIStatsResponse is the JSON response for /api/v1/stats
type APIStatsResponse struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"by_status"`
}

// AddJobRequest is the body of POST /api/v1/jobs
type AddJobRequest struct {
	Title   string `json:"title"`
	Company string `json:"company"`
	Status  string `json:"status,omitempty"`
}

// UpdateStatusRequest is the body of PUT /api/v1/jobs/{id}/status
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// toAPIJob converts tracker.Entry to APIJob
func toAPIJob(e tracker.Entry) APIJob {
	return APIJob{ID: e.ID, Title: e.Title, Company: e.Company, Status: string(e.Status)}
}

// handleListJobs returns jobs filtered by ?status= (case-insensitive) and searched by ?q=
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	filter := tracker.ParseFilter(r.URL.Query().Get("status"))
	entries := s.store.FilterAndSearch(filter, r.URL.Query().Get("q"))

	jobs := make([]APIJob, 0, len(entries))
	for _, e := range entries {
		jobs = append(jobs, toAPIJob(e))
	}
	s.metrics.op("list", nil)
	s.writeJSON(w, http.StatusOK, APIJobsResponse{Jobs: jobs, Total: s.store.Len()})
}

// handleGetJob returns a single job
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	e, ok := s.store.Get(r.PathValue("id"))
	if !ok {
		s.writeJSONError(w, http.StatusNotFound, "job not found")
		return
	}
	s.writeJSON(w, http.StatusOK, toAPIJob(e))
}

// handleAddJob adds a job, new job goes first in the list
func (s *Server) handleAddJob(w http.ResponseWriter, r *http.Request) {
	var req AddJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var status tracker.Status
	if strings.TrimSpace(req.Status) != "" {
		st, err := tracker.ParseStatus(req.Status)
		if err != nil {
			s.metrics.op("add", err)
			s.writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		status = st
	}

	e, err := s.store.Add(req.Title, req.Company, status)
	s.metrics.op("add", err)
	if err != nil {
		if errors.Is(err, tracker.ErrValidation) {
			s.writeJSONError(w, http.StatusBadRequest, "title and company are required")
			return
		}
		log.Printf("[ERROR] failed to add job: %v", err)
		s.writeJSONError(w, http.StatusInternalServerError, "failed to add job")
		return
	}
	s.writeJSON(w, http.StatusCreated, toAPIJob(e))
}

// handleUpdateStatus changes job status. Known statuses are matched case-insensitively,
// other values are stored as-is.
func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	raw := strings.TrimSpace(req.Status)
	if raw == "" {
		s.writeJSONError(w, http.StatusBadRequest, "status is required")
		return
	}
	status := tracker.Status(raw)
	if st, err := tracker.ParseStatus(raw); err == nil {
		status = st
	}

	e, err := s.store.UpdateStatus(r.PathValue("id"), status)
	s.metrics.op("update_status", err)
	if err != nil {
		if errors.Is(err, tracker.ErrNotFound) {
			s.writeJSONError(w, http.StatusNotFound, "job not found")
			return
		}
		log.Printf("[ERROR] failed to update job status: %v", err)
		s.writeJSONError(w, http.StatusInternalServerError, "failed to update status")
		return
	}
	s.writeJSON(w, http.StatusOK, toAPIJob(e))
}

// handleDeleteJob removes a job, deleting missing job is not an error
func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.store.Delete(r.PathValue("id"))
	s.metrics.op("delete", err)
	if err != nil {
		log.Printf("[ERROR] failed to delete job: %v", err)
		s.writeJSONError(w, http.StatusInternalServerError, "failed to delete job")
		return
	}
	if !deleted {
		log.Printf("[DEBUG] job %s not found for delete", r.PathValue("id"))
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleStatuses returns filter options, "All" followed by the fixed statuses
func (s *Server) handleStatuses(w http.ResponseWriter, _ *http.Request) {
	res := []string{tracker.FilterAll}
	for _, st := range tracker.Statuses() {
		res = append(res, string(st))
	}
	s.writeJSON(w, http.StatusOK, res)
}

// handleStats returns number of jobs per status
func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	counts := s.store.Counts()
	resp := APIStatsResponse{ByStatus: make(map[string]int, len(counts))}
	for st, n := range counts {
		resp.ByStatus[string(st)] = n
		resp.Total += n
	}
	s.writeJSON(w, http.StatusOK, resp)
}
