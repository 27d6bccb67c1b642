package routes

import (
	"net/http"

	"speedraw/logger"
	"speedraw/success"
)

// SuccessHandler serves success records on GET. DELETE ?batch=&item= drops
// one record together with the item's files.
func (s *Server) SuccessHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		SuccessQueryHandler(w, r)
	case http.MethodDelete:
		s.deleteSuccess(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) deleteSuccess(w http.ResponseWriter, r *http.Request) {
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

	record, err := success.GetSuccess(batchID, item)
	if err != nil {
		logger.Errorf("Failed to query success for %s/%d: %v", batchID, item, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if record == nil {
		http.Error(w, "No success record found for this item", http.StatusNotFound)
		return
	}
	if err := s.Store.Remove(record.Handle); err != nil {
		logger.Warnf("Failed to remove files of %s: %v", record.Handle, err)
	}
	if err := success.DeleteSuccess(batchID, item); err != nil {
		logger.Errorf("Failed to delete success %s/%d: %v", batchID, item, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SuccessQueryHandler returns the success records of a batch, or of one item
// when ?item= is given.
func SuccessQueryHandler(w http.ResponseWriter, r *http.Request) {
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
		record, err := success.GetSuccess(batchID, item)
		if err != nil {
			logger.Errorf("Failed to query success for %s/%d: %v", batchID, item, err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if record == nil {
			writeJSON(w, http.StatusNotFound, map[string]any{
				"batch_id": batchID,
				"item":     item,
				"status":   "not_found",
				"message":  "No success record found for this item",
			})
			return
		}
		writeJSON(w, http.StatusOK, record)
		return
	}

	records, err := success.ListBatch(batchID)
	if err != nil {
		logger.Errorf("Failed to query success for batch %s: %v", batchID, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"batch_id":        batchID,
		"success_records": records,
		"count":           len(records),
	})
}

// SuccessListHandler handles listing all success records (admin endpoint)
func SuccessListHandler(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	records, err := success.ListSuccessRecords()
	if err != nil {
		logger.Errorf("Failed to list success records: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success_records": records,
		"count":           len(records),
	})
}
