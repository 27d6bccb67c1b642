package routes

import (
	"encoding/json"
	"net/http"

	"speedraw/credentials"
	"speedraw/logger"
	"speedraw/utils"
	writerbackends "speedraw/writerBackends"
)

// CredentialsHandler stores publishing credentials on POST and returns the
// access key tokens reference them by. DELETE ?key= removes them.
func (s *Server) CredentialsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.authorize(w, r) == nil {
		return
	}

	if r.Method == http.MethodDelete {
		key := r.URL.Query().Get("key")
		if key == "" {
			http.Error(w, "key parameter required", http.StatusBadRequest)
			return
		}
		if err := credentials.DeleteCredentials(key); err != nil {
			logger.Errorf("Failed to delete credentials %s: %v", key, err)
			http.Error(w, "Failed to delete credentials", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var entry credentials.Entry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !writerbackends.Supported(entry.Backend) {
		http.Error(w, "Unknown backend: "+entry.Backend, http.StatusBadRequest)
		return
	}

	key := utils.NewAccessKey()
	if err := credentials.StoreCredentials(key, entry); err != nil {
		logger.Errorf("Failed to store credentials: %v", err)
		http.Error(w, "Failed to store credentials", http.StatusInternalServerError)
		return
	}

	logger.Infof("Registered %s credentials", entry.Backend)
	writeJSON(w, http.StatusOK, map[string]string{"access_key": key})
}
