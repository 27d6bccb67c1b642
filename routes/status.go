package routes

import (
	"errors"
	"fmt"
	"net/http"

	"speedraw/job"
	"speedraw/logger"
)

// BatchStatusHandler returns the state, progress and per-item stage status of a batch.
func (s *Server) BatchStatusHandler(w http.ResponseWriter, r *http.Request) {
	logger.Debugf("Batch status request: method=%s, remoteAddr=%s", r.Method, r.RemoteAddr)
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	batchID, ok := batchParam(w, r)
	if !ok {
		return
	}

	st, exists := s.Manager.Status(batchID)
	if !exists {
		logger.Warnf("Batch not found: %s", batchID)
		http.Error(w, fmt.Sprintf("Batch %s not found", batchID), http.StatusNotFound)
		return
	}

	logger.Debugf("Batch status: batch=%s, state=%s, %d/%d", batchID, st.StateName, st.Completed, st.Total)
	writeJSON(w, http.StatusOK, st)
}

// CancelBatchHandler cancels a pending batch, or a running one before its next item.
func (s *Server) CancelBatchHandler(w http.ResponseWriter, r *http.Request) {
	logger.Debugf("Cancel batch request: method=%s, remoteAddr=%s", r.Method, r.RemoteAddr)
	if !allowMethod(w, r, http.MethodDelete) {
		return
	}
	if s.authorize(w, r) == nil {
		return
	}

	batchID, ok := batchParam(w, r)
	if !ok {
		return
	}

	logger.Infof("Attempting to cancel batch: %s", batchID)
	if err := s.Manager.Cancel(batchID); err != nil {
		logger.Errorf("Failed to cancel batch %s: %v", batchID, err)
		switch {
		case errors.Is(err, job.ErrBatchNotFound):
			http.Error(w, fmt.Sprintf("Batch not found: %v", err), http.StatusNotFound)
		default:
			http.Error(w, fmt.Sprintf("Cannot cancel batch: %v", err), http.StatusConflict)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
