package inference

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDecodeLineArt(t *testing.T) {
	enc := base64.StdEncoding.EncodeToString([]byte("jpeg"))
	for _, in := range []string{enc, "data:image/jpeg;base64," + enc} {
		got, err := DecodeLineArt(in)
		if err != nil || string(got) != "jpeg" {
			t.Errorf("DecodeLineArt(%q) = %q, %v", in, got, err)
		}
	}
	for _, in := range []string{"", "data:image/jpeg;base64", "not base64!"} {
		if _, err := DecodeLineArt(in); err == nil {
			t.Errorf("DecodeLineArt(%q) should fail", in)
		}
	}
}

func TestInfer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, _, err := r.FormFile("image")
		if err != nil {
			http.Error(w, "no image", http.StatusBadRequest)
			return
		}
		payload, _ := io.ReadAll(file)

		switch string(payload) {
		case "raw":
			w.Header().Set("Content-Type", "image/jpeg")
			w.Write([]byte("raw-line-art"))
		case "json":
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{
				"line_art_data": "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte("json-line-art")),
			})
		default:
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"error": "model not loaded"})
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0).WithHTTPClient(srv.Client())
	ctx := context.Background()

	if got, err := c.Infer(ctx, []byte("raw")); err != nil || string(got) != "raw-line-art" {
		t.Errorf("raw: %q, %v", got, err)
	}
	if got, err := c.Infer(ctx, []byte("json")); err != nil || string(got) != "json-line-art" {
		t.Errorf("json: %q, %v", got, err)
	}
	if _, err := c.Infer(ctx, []byte("other")); err == nil || err.Error() != "model not loaded" {
		t.Errorf("expected service error, got %v", err)
	}
}
