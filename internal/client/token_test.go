package client

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, playerID uint32, exp time.Time) string {
	t.Helper()
	claims := SessionClaims{
		PlayerID: playerID,
		RoomID:   "room-1",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "soccer-server",
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("SignedString failed: %v", err)
	}
	return token
}

func TestParseSessionToken(t *testing.T) {
	token := signToken(t, 42, time.Now().Add(time.Minute))

	claims, err := ParseSessionToken(token)
	if err != nil {
		t.Fatalf("ParseSessionToken failed: %v", err)
	}
	if claims.PlayerID != 42 || claims.RoomID != "room-1" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestParseSessionTokenMalformed(t *testing.T) {
	if _, err := ParseSessionToken("not-a-token"); err == nil {
		t.Error("expected error for malformed token")
	}
}

func TestTokenUsable(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"empty", "", false},
		{"garbage", "a.b.c", false},
		{"valid", signToken(t, 1, now.Add(time.Minute)), true},
		{"expired", signToken(t, 1, now.Add(-time.Minute)), false},
		{"about to expire", signToken(t, 1, now.Add(time.Second)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TokenUsable(tt.token, now); got != tt.want {
				t.Errorf("TokenUsable = %v, want %v", got, tt.want)
			}
		})
	}
}
