package adminsvc

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jitsi-contrib/bridgepool/internal/bridge"
	"github.com/jitsi-contrib/bridgepool/pkg/audit"
	"github.com/jitsi-contrib/bridgepool/pkg/logger"
)

// bridgeView is the JSON shape ListBridges and SetOperational return for one
// bridge. It deliberately exposes only the fields an operator needs to make
// a drain/override decision, not the full internal Record.
type bridgeView struct {
	Address     string  `json:"address"`
	Region      string  `json:"region"`
	Version     string  `json:"version"`
	HasRelay    bool    `json:"has_relay"`
	Operational bool    `json:"operational"`
	InShutdown  bool    `json:"in_shutdown"`
	Stress      float64 `json:"stress"`
}

func toBridgeView(rec *bridge.Record) bridgeView {
	return bridgeView{
		Address:     rec.Address().String(),
		Region:      rec.Region(),
		Version:     rec.Version(),
		HasRelay:    rec.HasRelay(),
		Operational: rec.IsOperational(),
		InShutdown:  rec.IsInGracefulShutdown(),
		Stress:      rec.GetStress(),
	}
}

// statsView is the JSON shape Stats returns.
type statsView struct {
	Total          int `json:"total"`
	Operational    int `json:"operational"`
	InShutdown     int `json:"in_shutdown"`
	NonOperational int `json:"non_operational"`
}

// setOperationalRequest is the JSON body SetOperational expects.
type setOperationalRequest struct {
	Address     string `json:"address"`
	Operational bool   `json:"operational"`
	Reason      string `json:"reason"`
}

// Mux returns the admin HTTP handler: ListBridges, Stats and SetOperational,
// each rate-limited per remote key (SPEC_FULL.md §4.7).
func (s *Service) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/admin/bridges", s.withRateLimit(s.handleListBridges))
	mux.HandleFunc("/admin/stats", s.withRateLimit(s.handleStats))
	mux.HandleFunc("/admin/bridges/operational", s.withRateLimit(s.handleSetOperational))
	return mux
}

func (s *Service) withRateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.rateLimiter != nil {
			allowed, err := s.rateLimiter.Allow(r.Context(), remoteKey(r))
			if err != nil {
				logger.Log.Warn("admin rate limiter check failed, allowing request", "error", err)
			} else if !allowed {
				writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
		}
		next(w, r)
	}
}

// remoteKey identifies the caller for rate-limiting purposes: the
// X-Forwarded-For header when present (the admin mux usually sits behind an
// operator-facing proxy), falling back to the raw remote address.
func remoteKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	return r.RemoteAddr
}

// handleListBridges returns every registered bridge, in the same tiered
// order the selector would see them.
func (s *Service) handleListBridges(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	snapshot := s.registry.SnapshotSorted()
	views := make([]bridgeView, 0, len(snapshot))
	for _, rec := range snapshot {
		views = append(views, toBridgeView(rec))
	}
	writeJSON(w, http.StatusOK, views)
}

// handleStats returns the registry's tier counts.
func (s *Service) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	total := s.registry.CountTotal()
	operational := s.registry.CountOperational()
	shutdown := s.registry.CountInShutdown()
	nonOperational := total - operational
	if nonOperational < 0 {
		nonOperational = 0
	}

	writeJSON(w, http.StatusOK, statsView{
		Total:          total,
		Operational:    operational,
		InShutdown:     shutdown,
		NonOperational: nonOperational,
	})
}

// handleSetOperational forces a bridge's operational flag, bypassing the
// health scheduler. It is the one codepath outside internal/health that
// calls bridge.Record.SetIsOperational directly (SPEC_FULL.md §4.7), and is
// audited before the change takes effect.
func (s *Service) handleSetOperational(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req setOperationalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Address == "" {
		writeJSONError(w, http.StatusBadRequest, "address is required")
		return
	}

	rec, ok := s.registry.Get(bridge.Address(req.Address))
	if !ok {
		writeJSONError(w, http.StatusNotFound, "bridge not found")
		return
	}

	s.audit(r.Context(), req, remoteKey(r))

	rec.SetIsOperational(req.Operational)
	logger.Log.Info("operator forced bridge operational state",
		"address", req.Address, "operational", req.Operational, "reason", req.Reason, "caller", remoteKey(r))

	writeJSON(w, http.StatusOK, toBridgeView(rec))
}

func (s *Service) audit(ctx context.Context, req setOperationalRequest, caller string) {
	if s.auditLogger == nil {
		return
	}

	entry := audit.NewEntry().
		Service("bridgeselectord").
		Method("adminsvc.SetOperational").
		Action(audit.ActionOverride).
		Outcome(audit.OutcomeSuccess).
		Resource("bridge", req.Address).
		Client(caller, "").
		Meta("operational", req.Operational).
		Meta("reason", req.Reason).
		Build()

	if err := s.auditLogger.Log(ctx, entry); err != nil {
		logger.Log.Warn("failed to audit admin override", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Error("failed to encode admin response", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// NewServer wraps mux in an *http.Server configured the way the rest of the
// deployment's HTTP listeners are (SPEC_FULL.md §"Ambient stack").
func NewServer(addr string, mux http.Handler, readTimeout, writeTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}
}
