// Package routes exposes batch submission, progress and results over HTTP.
package routes

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"speedraw/config"
	"speedraw/job"
	"speedraw/logger"
	"speedraw/models"
	"speedraw/storage"
	"speedraw/utils"
)

// Server holds what the handlers need.
type Server struct {
	Manager *job.Manager
	Store   *storage.Store
	// DefaultsPath is the TOML file served and replaced by /defaults.
	DefaultsPath string
	Auth         utils.VerifyConfig
	// MaxRequestBytes bounds a submission body. Zero uses config.DefaultMaxRequestBytes.
	MaxRequestBytes int64
}

// NewServer returns a server verifying tokens with the configured secret.
func NewServer(mgr *job.Manager, store *storage.Store) *Server {
	return &Server{
		Manager:      mgr,
		Store:        store,
		DefaultsPath: config.GetDefaultsFilePath(),
		Auth: utils.VerifyConfig{
			SecretKey:      config.GetJWTSecret(),
			ExpectedIssuer: config.GetJWTIssuer(),
		},
		MaxRequestBytes: config.GetMaxRequestBytes(),
	}
}

// Register adds every route to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/batches", s.SubmitHandler)
	mux.HandleFunc("/status", s.BatchStatusHandler)
	mux.HandleFunc("/cancel", s.CancelBatchHandler)
	mux.HandleFunc("/results", s.ResultsHandler)
	mux.HandleFunc("/download/zip", s.DownloadZipHandler)
	mux.HandleFunc("/download/", s.DownloadHandler)
	mux.HandleFunc("/styles", StylesHandler)
	mux.HandleFunc("/defaults", s.DefaultsHandler)
	mux.HandleFunc("/credentials", s.CredentialsHandler)
	mux.HandleFunc("/success", s.SuccessHandler)
	mux.HandleFunc("/success/list", SuccessListHandler)
	mux.HandleFunc("/failures", s.FailureHandler)
	mux.HandleFunc("/failures/list", FailureListHandler)
	mux.HandleFunc("/health", HealthHandler)
	mux.HandleFunc("/version", VersionHandler)
}

// verifyJWT verifies the bearer token of the request and returns its claims
func (s *Server) verifyJWT(r *http.Request) (*models.SpeedrawJWT, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, fmt.Errorf("authorization header required")
	}

	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == authHeader {
		return nil, fmt.Errorf("invalid authorization header format")
	}

	auth := s.Auth
	if len(auth.SecretKey) == 0 {
		auth.SecretKey = nil
	}
	return utils.VerifySpeedrawJWT(token, auth)
}

// authorize writes a 401 and returns nil when the request carries no valid token.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request) *models.SpeedrawJWT {
	claims, err := s.verifyJWT(r)
	if err != nil {
		logger.Warnf("Rejected request to %s from %s: %v", r.URL.Path, r.RemoteAddr, err)
		http.Error(w, fmt.Sprintf("Invalid token: %v", err), http.StatusUnauthorized)
		return nil
	}
	return claims
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Errorf("Failed to encode response: %v", err)
	}
}

// batchParam reads the required batch query parameter.
func batchParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	batchID := r.URL.Query().Get("batch")
	if batchID == "" {
		http.Error(w, "batch parameter required", http.StatusBadRequest)
		return "", false
	}
	if !utils.ValidBatchID(batchID) {
		http.Error(w, "invalid batch id", http.StatusBadRequest)
		return "", false
	}
	return batchID, true
}

var errBadItem = errors.New("item must be a non-negative integer")

// itemParam reads the optional item query parameter; -1 means absent.
func itemParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("item")
	if raw == "" {
		return -1, nil
	}
	idx, err := strconv.Atoi(raw)
	if err != nil || idx < 0 {
		return 0, errBadItem
	}
	return idx, nil
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		logger.Warnf("Invalid method for %s: %s", r.URL.Path, r.Method)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}
