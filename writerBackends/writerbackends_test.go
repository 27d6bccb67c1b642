package writerbackends

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/sftp"
)

func TestObjectName(t *testing.T) {
	cases := []struct {
		info    map[string]string
		want    string
		wantErr bool
	}{
		{map[string]string{"filename": "a.mp4"}, "a.mp4", false},
		{map[string]string{"filename": "a.mp4", "folder": "team/batch"}, "team/batch/a.mp4", false},
		{map[string]string{"filename": "../a.mp4"}, "", true},
		{map[string]string{}, "", true},
	}
	for _, tc := range cases {
		got, err := objectName(tc.info)
		if (err != nil) != tc.wantErr || got != tc.want {
			t.Errorf("objectName(%v) = %q, %v", tc.info, got, err)
		}
	}
}

func TestWriteAnimationDirectServe(t *testing.T) {
	base := t.TempDir()
	info := map[string]string{"baseDir": base, "folder": "batch-1", "filename": "h_animation.mp4"}

	loc, err := WriteAnimation(context.Background(), info, strings.NewReader("video"), DirectServe)
	if err != nil {
		t.Fatalf("WriteAnimation: %v", err)
	}
	if loc != "/files/batch-1/h_animation.mp4" {
		t.Errorf("Unexpected location %q", loc)
	}
	data, err := os.ReadFile(filepath.Join(base, "batch-1", "h_animation.mp4"))
	if err != nil || string(data) != "video" {
		t.Errorf("Unexpected file content %q, %v", data, err)
	}
}

func TestWriteAnimationRejectsBadConfig(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		backend string
		info    map[string]string
	}{
		{"ftp", map[string]string{"filename": "a.mp4"}},
		{DirectServe, map[string]string{"filename": "a.mp4"}},
		{S3, map[string]string{"filename": "a.mp4"}},
		{S3, map[string]string{"filename": "a.mp4", "bucket": "b"}},
		{GCS, map[string]string{"filename": "a.mp4", "bucket": "b"}},
		{SFTP, map[string]string{"filename": "a.mp4", "host": "example.com"}},
		{SFTP, map[string]string{"filename": "a.mp4", "host": "example.com", "user": "u", "remoteDir": "/srv"}},
	}
	for _, tc := range cases {
		if _, err := WriteAnimation(ctx, tc.info, strings.NewReader("x"), tc.backend); err == nil {
			t.Errorf("Expected error for %s with %v", tc.backend, tc.info)
		}
	}
}

func TestDecodeServiceAccount(t *testing.T) {
	raw := `{"type":"service_account"}`
	for _, in := range []string{raw, "eyJ0eXBlIjoic2VydmljZV9hY2NvdW50In0="} {
		got, err := decodeServiceAccount(in)
		if err != nil || string(got) != raw {
			t.Errorf("decodeServiceAccount(%q) = %q, %v", in, got, err)
		}
	}
}

func TestWriteSFTPCreatesDirectories(t *testing.T) {
	serverReader, clientWriter := io.Pipe()
	clientReader, serverWriter := io.Pipe()
	server := sftp.NewRequestServer(struct {
		io.Reader
		io.WriteCloser
	}{serverReader, serverWriter}, sftp.InMemHandler())
	go server.Serve()

	client, err := sftp.NewClientPipe(clientReader, clientWriter)
	if err != nil {
		server.Close()
		serverWriter.Close()
		t.Fatalf("NewClientPipe: %v", err)
	}
	defer client.Close()
	// the client waits for its reader on Close, so the server side must hang up first
	defer func() {
		server.Close()
		serverWriter.Close()
	}()

	if err := writeSFTP(client, "/videos/batch-1/a.mp4", strings.NewReader("video")); err != nil {
		t.Fatalf("writeSFTP: %v", err)
	}

	f, err := client.Open("/videos/batch-1/a.mp4")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil || string(data) != "video" {
		t.Errorf("Unexpected remote content %q, %v", data, err)
	}
}
