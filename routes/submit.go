package routes

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"speedraw/config"
	"speedraw/job"
	"speedraw/logger"
	"speedraw/models"
	"speedraw/settings"
	"speedraw/storage"
)

// maxMemory is how much of a multipart body is kept in memory before
// spilling to temp files.
const maxMemory = 32 << 20

// BatchSettings is the optional "settings" form field of a submission.
type BatchSettings struct {
	Defaults  *models.EffectiveConfig       `json:"defaults,omitempty"`
	Overrides map[int]models.OverrideConfig `json:"overrides,omitempty"`
	// ApplyToAll copies item 0's override to every item.
	ApplyToAll bool `json:"apply_to_all,omitempty"`
}

// SubmitResponse is returned for an accepted batch.
type SubmitResponse struct {
	BatchID   string   `json:"batch_id"`
	Items     []string `json:"items"`
	StatusURL string   `json:"status_url"`
}

func parseSettings(raw string, count int) (BatchSettings, error) {
	var bs BatchSettings
	if raw == "" {
		return bs, nil
	}
	if err := json.Unmarshal([]byte(raw), &bs); err != nil {
		return bs, fmt.Errorf("invalid settings: %w", err)
	}
	if bs.ApplyToAll {
		bs.Overrides = settings.CopyFirstToAll(bs.Overrides, count)
	}
	return bs, nil
}

func readUpload(fh *multipart.FileHeader, maxBytes int64) (job.Upload, error) {
	if err := storage.CheckUpload(fh.Filename, fh.Size, maxBytes); err != nil {
		return job.Upload{}, err
	}
	f, err := fh.Open()
	if err != nil {
		return job.Upload{}, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return job.Upload{}, fmt.Errorf("read %s: %w", fh.Filename, err)
	}
	return job.Upload{Name: fh.Filename, Payload: data}, nil
}

func submitErrorStatus(err error) int {
	var verr *settings.ValidationError
	switch {
	case errors.As(err, &verr), errors.Is(err, job.ErrNoItems):
		return http.StatusBadRequest
	case errors.Is(err, job.ErrTooManyItems), errors.Is(err, storage.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, storage.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, storage.ErrEmptyPayload):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// SubmitHandler accepts a batch of images with optional per-item settings.
func (s *Server) SubmitHandler(w http.ResponseWriter, r *http.Request) {
	logger.Debugf("Submit request: method=%s, remoteAddr=%s", r.Method, r.RemoteAddr)
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	claims := s.authorize(w, r)
	if claims == nil {
		return
	}

	limit := s.MaxRequestBytes
	if limit <= 0 {
		limit = config.DefaultMaxRequestBytes
	}
	if r.ContentLength > limit {
		http.Error(w, fmt.Sprintf("request body exceeds %d bytes", limit), http.StatusRequestEntityTooLarge)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, fmt.Sprintf("request body exceeds %d bytes", limit), http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Failed to parse multipart form", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		http.Error(w, "at least one file is required", http.StatusBadRequest)
		return
	}

	uploads := make([]job.Upload, 0, len(files))
	names := make([]string, 0, len(files))
	for _, fh := range files {
		up, err := readUpload(fh, s.Store.MaxBytes)
		if err != nil {
			logger.Warnf("Rejected upload %s: %v", fh.Filename, err)
			http.Error(w, err.Error(), submitErrorStatus(err))
			return
		}
		uploads = append(uploads, up)
		names = append(names, up.Name)
	}

	bs, err := parseSettings(r.FormValue("settings"), len(uploads))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	st, err := s.Manager.Submit(job.Manifest{
		Subject:   claims.Subject,
		Defaults:  bs.Defaults,
		Overrides: bs.Overrides,
		Grant:     claims.Batch,
	}, uploads)
	if err != nil {
		logger.Warnf("Batch submission from %s rejected: %v", claims.Subject, err)
		http.Error(w, err.Error(), submitErrorStatus(err))
		return
	}

	writeJSON(w, http.StatusAccepted, SubmitResponse{
		BatchID:   st.BatchID,
		Items:     names,
		StatusURL: config.GetPublicBaseURL() + "/status?batch=" + st.BatchID,
	})
}
