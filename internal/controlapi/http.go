// Package controlapi exposes the Control API over HTTP JSON: add,
// cancel, status, list, and a health check. It's a CORS-wrapped
// ServeMux with method checks up front and small JSON request/response
// helpers.
package controlapi

import (
	"encoding/json"
	"log"
	"net/http"

	"videoanalyzer/internal/pipeline"
)

const (
	codeSuccess = 1000
	codeError   = 4000
)

type response struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data any    `json:"data,omitempty"`
}

// NewMux builds the HTTP handler for the Control API.
func NewMux(svc *pipeline.Service) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/controls", handleControls(svc))
	mux.HandleFunc("/api/control", handleControl(svc))
	mux.HandleFunc("/api/control/add", handleAdd(svc))
	mux.HandleFunc("/api/control/cancel", handleCancel(svc))
	mux.HandleFunc("/health", handleHealth(svc))
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func handleControls(svc *pipeline.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"code": codeSuccess, "msg": "ok", "data": svc.List()})
	}
}

func handleControl(svc *pipeline.Service) http.HandlerFunc {
	type request struct {
		Code string `json:"code"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, response{Code: codeError, Msg: "invalid request body"})
			return
		}
		snap := svc.Status(req.Code)
		writeJSON(w, map[string]any{"code": codeSuccess, "msg": "ok", "control": snap})
	}
}

func handleAdd(svc *pipeline.Service) http.HandlerFunc {
	type request struct {
		Code          string `json:"code"`
		BehaviorCode  string `json:"behaviorCode"`
		StreamURL     string `json:"streamUrl"`
		PushStream    bool   `json:"pushStream"`
		PushStreamURL string `json:"pushStreamUrl"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, response{Code: codeError, Msg: "invalid request body"})
			return
		}
		ok, msg := svc.Add(req.Code, req.BehaviorCode, req.StreamURL, req.PushStream, req.PushStreamURL)
		if !ok {
			log.Printf("[ControlAPI] add %s rejected: %s", req.Code, msg)
			writeJSON(w, response{Code: codeError, Msg: msg})
			return
		}
		writeJSON(w, response{Code: codeSuccess, Msg: msg})
	}
}

func handleCancel(svc *pipeline.Service) http.HandlerFunc {
	type request struct {
		Code string `json:"code"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, response{Code: codeError, Msg: "invalid request body"})
			return
		}
		ok, msg := svc.Cancel(req.Code)
		if !ok {
			writeJSON(w, response{Code: codeError, Msg: msg})
			return
		}
		writeJSON(w, response{Code: codeSuccess, Msg: msg})
	}
}

func handleHealth(svc *pipeline.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"status": "ok", "active_detections": svc.ActiveCount()})
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[ControlAPI] failed to encode response: %v", err)
	}
}

// Start launches the HTTP API server in a background goroutine.
func Start(addr string, svc *pipeline.Service) {
	server := &http.Server{Addr: addr, Handler: NewMux(svc)}
	go func() {
		log.Printf("[ControlAPI] listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[ControlAPI] server error: %v", err)
		}
	}()
}
