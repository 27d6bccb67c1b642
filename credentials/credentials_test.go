package credentials

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestCredentialsRoundTrip(t *testing.T) {
	if err := OpenDB(filepath.Join(t.TempDir(), "creds.db")); err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	defer CloseDB()

	entry := Entry{Backend: "s3", AccessInfo: map[string]string{"bucket": "videos", "region": "eu-west-1"}}
	if err := StoreCredentials("team-a", entry); err != nil {
		t.Fatalf("StoreCredentials: %v", err)
	}

	got, err := GetCredentials("team-a")
	if err != nil {
		t.Fatalf("GetCredentials: %v", err)
	}
	if got.Backend != "s3" || got.AccessInfo["bucket"] != "videos" {
		t.Errorf("Unexpected entry %+v", got)
	}

	if err := DeleteCredentials("team-a"); err != nil {
		t.Fatalf("DeleteCredentials: %v", err)
	}
	if _, err := GetCredentials("team-a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestCredentialsRequireBackend(t *testing.T) {
	if err := OpenDB(filepath.Join(t.TempDir(), "creds.db")); err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	defer CloseDB()

	if err := StoreCredentials("k", Entry{}); err == nil {
		t.Error("Expected error for entry without backend")
	}
}
