package routes

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"speedraw/config"
	"speedraw/logger"
	"speedraw/models"
	"speedraw/settings"
)

// StyleEntry is one paint style as listed by /styles.
type StyleEntry struct {
	Choice int `json:"choice"`
	models.PaintStyle
}

// Styles returns the paint style catalogue ordered by choice.
func Styles() []StyleEntry {
	out := make([]StyleEntry, 0, len(models.PaintStyles))
	for choice, style := range models.PaintStyles {
		out = append(out, StyleEntry{Choice: choice, PaintStyle: style})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Choice < out[j].Choice })
	return out
}

// StylesHandler lists the available paint reveal styles.
func StylesHandler(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"styles": Styles()})
}

// DefaultsHandler returns the global defaults on GET and replaces them on PUT.
// A replacement applies to the next item that starts, including items of a
// batch that is already running.
func (s *Server) DefaultsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		cfg, err := config.LoadDefaults(s.DefaultsPath)
		if err != nil {
			logger.Errorf("Failed to load defaults: %v", err)
			http.Error(w, "Failed to load defaults", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, cfg)
	case http.MethodPut:
		if s.authorize(w, r) == nil {
			return
		}
		var cfg models.EffectiveConfig
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if err := settings.ValidateDefaults(cfg); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := config.SaveDefaults(s.DefaultsPath, cfg); err != nil {
			logger.Errorf("Failed to save defaults: %v", err)
			http.Error(w, fmt.Sprintf("Failed to save defaults: %v", err), http.StatusInternalServerError)
			return
		}
		logger.Infof("Global defaults updated: mode=%s fps=%d", cfg.Mode, cfg.FPS)
		writeJSON(w, http.StatusOK, cfg)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
