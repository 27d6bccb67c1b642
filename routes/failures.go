package routes

import (
	"net/http"

	"speedraw/failures"
	"speedraw/logger"
)

// FailureHandler serves failure records on GET and deletes one on DELETE.
func (s *Server) FailureHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		FailureQueryHandler(w, r)
	case http.MethodDelete:
		if s.authorize(w, r) == nil {
			return
		}
		batchID, ok := batchParam(w, r)
		if !ok {
			return
		}
		item, err := itemParam(r)
		if err != nil || item < 0 {
			http.Error(w, "item parameter required", http.StatusBadRequest)
			return
		}
		if err := failures.DeleteFailure(batchID, item); err != nil {
			logger.Errorf("Failed to delete failure %s/%d: %v", batchID, item, err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// FailureQueryHandler returns the failure records of a batch, or of one item
// when ?item= is given.
func FailureQueryHandler(w http.ResponseWriter, r *http.Request) {
	batchID, ok := batchParam(w, r)
	if !ok {
		return
	}
	item, err := itemParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if item >= 0 {
		record, err := failures.GetFailure(batchID, item)
		if err != nil {
			logger.Errorf("Failed to query failure for %s/%d: %v", batchID, item, err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if record == nil {
			// no failure recorded for this item
			writeJSON(w, http.StatusOK, map[string]any{
				"batch_id": batchID,
				"item":     item,
				"status":   "no_failure",
			})
			return
		}
		writeJSON(w, http.StatusOK, record)
		return
	}

	records, err := failures.ListBatch(batchID)
	if err != nil {
		logger.Errorf("Failed to query failures for batch %s: %v", batchID, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"batch_id": batchID,
		"failures": records,
		"count":    len(records),
	})
}

// FailureListHandler handles listing all failures (admin endpoint)
func FailureListHandler(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	failuresList, err := failures.ListFailures()
	if err != nil {
		logger.Errorf("Failed to list failures: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"failures": failuresList,
		"count":    len(failuresList),
	})
}
