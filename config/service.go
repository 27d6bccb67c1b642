package config

import (
	"os"
	"strconv"
	"time"
)

// MaxUploadBytes is the per-image size limit accepted by the upload endpoint.
const MaxUploadBytes = 16 << 20

// DefaultMaxRequestBytes bounds a whole batch submission.
const DefaultMaxRequestBytes = 256 << 20

// AllowedExtensions lists the image extensions accepted for a batch.
var AllowedExtensions = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
	"gif":  true,
	"bmp":  true,
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	// bare numbers are seconds
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

// GetMaxRequestBytes returns the limit for a whole submission body.
// SPEEDRAW_MAX_REQUEST_BYTES, default DefaultMaxRequestBytes.
func GetMaxRequestBytes() int64 {
	if n, err := strconv.ParseInt(os.Getenv("SPEEDRAW_MAX_REQUEST_BYTES"), 10, 64); err == nil && n > 0 {
		return n
	}
	return DefaultMaxRequestBytes
}

// GetListenAddr returns the HTTP listen address. SPEEDRAW_ADDR, default ":8080".
func GetListenAddr() string {
	return envOr("SPEEDRAW_ADDR", ":8080")
}

// GetPublicBaseURL is prefixed to artifact download paths handed to clients.
// Empty means relative URLs.
func GetPublicBaseURL() string {
	return os.Getenv("SPEEDRAW_PUBLIC_URL")
}

// GetJWTSecret returns the HMAC secret used to sign and verify API tokens.
func GetJWTSecret() []byte {
	return []byte(os.Getenv("SPEEDRAW_JWT_SECRET"))
}

// GetJWTIssuer returns the expected token issuer. Empty disables the check.
func GetJWTIssuer() string {
	return os.Getenv("SPEEDRAW_JWT_ISSUER")
}

// GetInferenceURL returns the line art inference endpoint.
func GetInferenceURL() string {
	return envOr("SPEEDRAW_INFERENCE_URL", "http://127.0.0.1:5001/infer")
}

// GetInferenceTimeout bounds one inference request.
func GetInferenceTimeout() time.Duration {
	return envDuration("SPEEDRAW_INFERENCE_TIMEOUT", 2*time.Minute)
}

// GetRendererName selects the renderer from the registry ("command" or "http").
func GetRendererName() string {
	return envOr("SPEEDRAW_RENDERER", "command")
}

// GetRenderCommand returns the executable used by the command renderer.
func GetRenderCommand() string {
	return envOr("SPEEDRAW_RENDER_COMMAND", "speedraw-render")
}

// GetRenderURL returns the endpoint used by the http renderer.
func GetRenderURL() string {
	return envOr("SPEEDRAW_RENDER_URL", "http://127.0.0.1:5000/create_animation")
}

// GetRenderTimeout bounds one render request.
func GetRenderTimeout() time.Duration {
	return envDuration("SPEEDRAW_RENDER_TIMEOUT", 10*time.Minute)
}

// GetStorageBackend selects where finished animations are published:
// directServe (default), s3, gcs or sftp.
func GetStorageBackend() string {
	return envOr("SPEEDRAW_STORAGE_BACKEND", "directServe")
}

// GetStorageKey references the credentials used by remote backends when a
// token does not carry its own storage key.
func GetStorageKey() string {
	return os.Getenv("SPEEDRAW_STORAGE_KEY")
}

// GetRecordRetention is how long success and failure records are kept.
func GetRecordRetention() time.Duration {
	return envDuration("SPEEDRAW_RECORD_RETENTION", 30*24*time.Hour)
}
