package utils

import (
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	branch := int32(3)
	token, exp, err := GenerateToken(42, "kasir01", "cashier", &branch, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Error("expiry should be in the future")
	}

	claims, err := ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.UserId != 42 || claims.Username != "kasir01" || claims.Role != "cashier" {
		t.Errorf("claims = %+v", claims)
	}
	if claims.BranchID == nil || *claims.BranchID != 3 {
		t.Error("branch claim lost")
	}
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	if _, err := ParseToken("not-a-token"); err == nil {
		t.Error("expected error for malformed token")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	token, _, err := GenerateToken(1, "kasir01", "cashier", nil, -time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := ParseToken(token); err == nil {
		t.Error("expected error for expired token")
	}
}
