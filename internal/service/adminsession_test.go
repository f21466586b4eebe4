package service_test

import (
	"testing"

	"github.com/wurlus/suibets/internal/service"
)

func TestAdminSessions_LoginAndAuthorize(t *testing.T) {
	sessions := service.NewAdminSessions(testConfig())

	if _, err := sessions.Login("wrong"); err == nil {
		t.Error("wrong password should fail login")
	}

	token, err := sessions.Login("hunter2")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if len(token) != 64 { // 32 bytes hex-encoded
		t.Errorf("token length = %d, want 64", len(token))
	}

	if !sessions.Authorize(token) {
		t.Error("fresh token should authorize")
	}
	// Machine callers may present the password directly.
	if !sessions.Authorize("hunter2") {
		t.Error("raw password should authorize")
	}
	if sessions.Authorize("nonsense") {
		t.Error("garbage should not authorize")
	}
	if sessions.Authorize("") {
		t.Error("empty credential should not authorize")
	}
}

func TestAdminSessions_UnsetPasswordRejectsEverything(t *testing.T) {
	cfg := testConfig()
	cfg.Admin.Password = ""
	sessions := service.NewAdminSessions(cfg)

	if _, err := sessions.Login(""); err == nil {
		t.Error("login must fail when no password is configured")
	}
	if sessions.Authorize("") {
		t.Error("empty password must never authorize")
	}
}
