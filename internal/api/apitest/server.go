// Package apitest provides an in-process fake of the remote
// reconciliation API for tests.
//
// The fake implements the contract the client depends on, including
// the part that matters most: batches are applied at most once per
// idempotency key, and a repeated key answers AlreadyProcessed instead
// of double-applying.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/gorilla/mux"

	"github.com/mfigueroa/rutero/internal/api"
)

// Server is a fake reconciliation server backed by in-memory state.
type Server struct {
	HTTP *httptest.Server

	mu          sync.Mutex
	nextCode    int
	processed   map[string]api.SyncResult // by idempotency key
	batches     []api.SyncBatch           // every applied batch, in order
	permissions map[string]api.Permission // by agent id
	workingSets map[string]api.WorkingSet // by agent id
	failStatus  int                       // when > 0, /sync answers this status
}

// NewServer starts a fake server. Callers own Close.
func NewServer() *Server {
	s := &Server{
		nextCode:    1000,
		processed:   map[string]api.SyncResult{},
		permissions: map[string]api.Permission{},
		workingSets: map[string]api.WorkingSet{},
	}

	r := mux.NewRouter()
	r.HandleFunc("/sync", s.handleSync).Methods(http.MethodPost)
	r.HandleFunc("/agents/{id}/upload-permission", s.handlePermission).Methods(http.MethodGet)
	r.HandleFunc("/agents/{id}/working-set", s.handleWorkingSet).Methods(http.MethodGet)

	s.HTTP = httptest.NewServer(r)
	return s
}

// URL returns the server's base URL.
func (s *Server) URL() string { return s.HTTP.URL }

// Close shuts the server down.
func (s *Server) Close() { s.HTTP.Close() }

// AllowUpload grants the daily upload permission for an agent.
func (s *Server) AllowUpload(agentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.permissions[agentID] = api.Permission{Allowed: true}
}

// DenyUpload configures the permission gate to refuse an agent.
func (s *Server) DenyUpload(agentID, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.permissions[agentID] = api.Permission{Allowed: false, Reason: reason}
}

// SetWorkingSet installs the working set served for an agent.
func (s *Server) SetWorkingSet(agentID string, ws api.WorkingSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workingSets[agentID] = ws
}

// FailSyncWith makes /sync answer the given HTTP status until cleared
// with 0. Used to exercise the failure taxonomy.
func (s *Server) FailSyncWith(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failStatus = status
}

// Batches returns every batch the server actually applied.
func (s *Server) Batches() []api.SyncBatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]api.SyncBatch, len(s.batches))
	copy(out, s.batches)
	return out
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	var batch api.SyncBatch
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "malformed batch"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failStatus > 0 {
		writeJSON(w, s.failStatus, map[string]string{"message": "injected failure"})
		return
	}
	if batch.IdempotencyKey == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "missing idempotency key"})
		return
	}

	// Repeat delivery of a processed key is a no-op reported as such.
	if prev, ok := s.processed[batch.IdempotencyKey]; ok {
		prev.AlreadyProcessed = true
		writeJSON(w, http.StatusOK, prev)
		return
	}

	result := api.SyncResult{CreatedLoans: []api.CreatedLoan{}}
	for _, loan := range batch.NewLoans {
		s.nextCode++
		result.CreatedLoans = append(result.CreatedLoans, api.CreatedLoan{
			TempID: loan.TempID,
			Code:   fmt.Sprintf("R-%d", s.nextCode),
		})
	}
	result.CreatedPayments = len(batch.Payments)
	result.CreatedExpenses = len(batch.Expenses)
	result.CreatedCashBases = len(batch.CashBases)

	s.processed[batch.IdempotencyKey] = result
	s.batches = append(s.batches, batch)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handlePermission(w http.ResponseWriter, r *http.Request) {
	agentID := mux.Vars(r)["id"]
	s.mu.Lock()
	perm, ok := s.permissions[agentID]
	s.mu.Unlock()
	if !ok {
		perm = api.Permission{Allowed: false, Reason: api.ReasonDenied}
	}
	writeJSON(w, http.StatusOK, perm)
}

func (s *Server) handleWorkingSet(w http.ResponseWriter, r *http.Request) {
	agentID := mux.Vars(r)["id"]
	s.mu.Lock()
	ws, ok := s.workingSets[agentID]
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "no working set for agent " + agentID})
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
