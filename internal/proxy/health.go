package proxy

import "net/http"

// ReadinessChecker reports whether the gateway can serve traffic.
type ReadinessChecker interface {
	IsReady() bool
}

type healthStatus struct {
	Status string `json:"status"`
}

// livenessHandler always answers 200 while the process is serving.
func livenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		writeJSON(r.Context(), w, healthStatus{Status: "ok"}, http.StatusOK)
	}
}

// readinessHandler answers 200 once the engine passed its health probe and
// 503 otherwise.
func readinessHandler(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		if checker.IsReady() {
			writeJSON(r.Context(), w, healthStatus{Status: "ready"}, http.StatusOK)
			return
		}
		writeJSON(r.Context(), w, healthStatus{Status: "engine unavailable"}, http.StatusServiceUnavailable)
	}
}
