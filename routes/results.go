package routes

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"speedraw/logger"
	"speedraw/results"
)

// ResultsResponse is the summary of a finished batch.
type ResultsResponse struct {
	BatchID string `json:"batch_id"`
	State   string `json:"state"`
	results.Summary
}

// ResultsHandler returns the succeeded and failed items of a finished batch.
func (s *Server) ResultsHandler(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	batchID, ok := batchParam(w, r)
	if !ok {
		return
	}

	result, state, err := s.Manager.Result(batchID)
	if err != nil {
		http.Error(w, fmt.Sprintf("Batch %s not found", batchID), http.StatusNotFound)
		return
	}
	if !state.Terminal() {
		http.Error(w, fmt.Sprintf("Batch %s is still %s", batchID, state), http.StatusConflict)
		return
	}

	writeJSON(w, http.StatusOK, ResultsResponse{
		BatchID: batchID,
		State:   state.String(),
		Summary: results.Summarize(result),
	})
}

// DownloadZipHandler streams every animation of a finished batch as one ZIP.
func (s *Server) DownloadZipHandler(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	batchID, ok := batchParam(w, r)
	if !ok {
		return
	}

	result, state, err := s.Manager.Result(batchID)
	if err != nil {
		http.Error(w, fmt.Sprintf("Batch %s not found", batchID), http.StatusNotFound)
		return
	}
	if !state.Terminal() {
		http.Error(w, fmt.Sprintf("Batch %s is still %s", batchID, state), http.StatusConflict)
		return
	}

	var buf bytes.Buffer
	count, err := results.WriteArchive(&buf, results.CollectArtifactRefs(result), s.Store.Open)
	if errors.Is(err, results.ErrNoArtifacts) {
		http.Error(w, "No animations available for this batch", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.Errorf("Failed to build archive for batch %s: %v", batchID, err)
		http.Error(w, "Failed to build archive", http.StatusInternalServerError)
		return
	}

	logger.Infof("Serving archive of %d animations for batch %s", count, batchID)
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", results.ArchiveName(time.Now())))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		logger.Errorf("Failed to send archive for batch %s: %v", batchID, err)
	}
}

// DownloadHandler serves a single rendered file by name.
func (s *Server) DownloadHandler(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/download/")
	path, err := s.Store.OutputPath(name)
	if err != nil {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeFile(w, r, path)
}
