package util

import (
	"testing"
	"time"

	"exam_platform_backend/internal/model"
)

func TestJWTRoundTrip(t *testing.T) {
	user := &model.User{
		Email: "student@example.com",
		Role:  model.Student,
	}
	user.ID = 42

	token, err := GenerateJWT(user, "test-secret", time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	claims, err := ParseJWT(token, "test-secret")
	if err != nil {
		t.Fatalf("ParseJWT: %v", err)
	}
	if claims.UserID != 42 || claims.Role != model.Student || claims.Email != user.Email {
		t.Errorf("claims = %+v", claims)
	}
}

func TestJWTWrongSecret(t *testing.T) {
	user := &model.User{Email: "a@b.c", Role: model.Teacher}
	token, err := GenerateJWT(user, "secret-one", time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	if _, err := ParseJWT(token, "secret-two"); err == nil {
		t.Error("token accepted with wrong secret")
	}
}

func TestJWTExpired(t *testing.T) {
	user := &model.User{Email: "a@b.c", Role: model.Student}
	token, err := GenerateJWT(user, "secret", -time.Minute)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	if _, err := ParseJWT(token, "secret"); err == nil {
		t.Error("expired token accepted")
	}
}
