package utils

import (
	"errors"
	"testing"
	"time"

	"speedraw/models"
)

var testSecret = []byte("test-secret-key-for-jwt-signing-at-least-32-bytes-long")

func TestJWTRoundTrip(t *testing.T) {
	grant := models.BatchGrant{MaxItems: 5, StorageKey: "team-a", SubDir: "team-a"}
	token, err := CreateSpeedrawJWT(NewClaims("speedraw", "alice", time.Hour, grant), testSecret)
	if err != nil {
		t.Fatalf("CreateSpeedrawJWT: %v", err)
	}

	claims, err := VerifySpeedrawJWT(token, VerifyConfig{SecretKey: testSecret, ExpectedIssuer: "speedraw"})
	if err != nil {
		t.Fatalf("VerifySpeedrawJWT: %v", err)
	}
	if claims.Subject != "alice" || claims.Batch.MaxItems != 5 || claims.Batch.StorageKey != "team-a" {
		t.Errorf("Unexpected claims %+v", claims)
	}
}

func TestJWTRejections(t *testing.T) {
	valid, _ := CreateSpeedrawJWT(NewClaims("speedraw", "alice", time.Hour, models.BatchGrant{}), testSecret)
	expiredClaims := NewClaims("speedraw", "alice", time.Hour, models.BatchGrant{})
	expiredClaims.ExpiresAt = time.Now().Add(-time.Hour).Unix()
	expired, _ := CreateSpeedrawJWT(expiredClaims, testSecret)
	futureClaims := NewClaims("speedraw", "alice", time.Hour, models.BatchGrant{})
	futureClaims.IssuedAt = time.Now().Add(time.Hour).Unix()
	future, _ := CreateSpeedrawJWT(futureClaims, testSecret)

	otherSecret := []byte("another-secret-key-that-is-also-32-bytes-long!!")
	cases := []struct {
		name  string
		token string
		cfg   VerifyConfig
		want  error
	}{
		{"empty", "", VerifyConfig{SecretKey: testSecret}, ErrInvalidToken},
		{"garbage", "not.a.jwt", VerifyConfig{SecretKey: testSecret}, ErrInvalidToken},
		{"no key", valid, VerifyConfig{}, ErrNoKey},
		{"wrong key", valid, VerifyConfig{SecretKey: otherSecret}, ErrInvalidSignature},
		{"expired", expired, VerifyConfig{SecretKey: testSecret}, ErrTokenExpired},
		{"future", future, VerifyConfig{SecretKey: testSecret}, ErrTokenNotYetValid},
		{"issuer", valid, VerifyConfig{SecretKey: testSecret, ExpectedIssuer: "other"}, ErrInvalidIssuer},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := VerifySpeedrawJWT(tc.token, tc.cfg); !errors.Is(err, tc.want) {
				t.Errorf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestCreateRequiresStrongSecret(t *testing.T) {
	claims := NewClaims("", "", 0, models.BatchGrant{})
	if claims.ExpiresAt != 0 {
		t.Error("ttl 0 should not set an expiry")
	}
	if _, err := CreateSpeedrawJWT(claims, nil); !errors.Is(err, ErrNoKey) {
		t.Errorf("Expected ErrNoKey, got %v", err)
	}
	if _, err := CreateSpeedrawJWT(claims, []byte("short")); err == nil {
		t.Error("Expected error for short secret")
	}
}

func TestBatchIDs(t *testing.T) {
	id := NewBatchID()
	if !ValidBatchID(id) {
		t.Errorf("NewBatchID produced invalid id %q", id)
	}
	for _, bad := range []string{"", "../etc", "1234"} {
		if ValidBatchID(bad) {
			t.Errorf("ValidBatchID(%q) should be false", bad)
		}
	}
}
