package httpapi

import (
	"context"
	"strings"
	"testing"
	"time"

	"tokotunai/backend/internal/domain"
	"tokotunai/backend/internal/store/memory"
)

func TestLoginAndParseTokenRoundTrip(t *testing.T) {
	auth := NewAuthManager("test-secret-key", time.Hour, memory.NewSeeded())

	resp, err := auth.Login(domain.LoginRequest{Username: "cashier", Password: "cashier123"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if resp.AccessToken == "" || resp.UserID == "" {
		t.Fatalf("expected token and user id, got %+v", resp)
	}

	actor, err := auth.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token failed: %v", err)
	}
	if actor.Username != "cashier" || actor.Role != "cashier" {
		t.Fatalf("unexpected actor: %+v", actor)
	}
	if actor.UserID != resp.UserID {
		t.Fatalf("expected user id %s in claims, got %s", resp.UserID, actor.UserID)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	auth := NewAuthManager("test-secret-key", time.Hour, memory.NewSeeded())

	if _, err := auth.Login(domain.LoginRequest{Username: "cashier", Password: "nope"}); err == nil {
		t.Fatalf("expected login to fail")
	}
}

func TestParseTokenRejectsTampered(t *testing.T) {
	auth := NewAuthManager("test-secret-key", time.Hour, memory.NewSeeded())

	resp, err := auth.Login(domain.LoginRequest{Username: "admin", Password: "admin123"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	tampered := resp.AccessToken[:len(resp.AccessToken)-2] + "xx"
	if _, err := auth.ParseToken(tampered); err == nil {
		t.Fatalf("expected tampered token to be rejected")
	}
}

func TestParseTokenRejectsOtherSecret(t *testing.T) {
	repo := memory.NewSeeded()
	authA := NewAuthManager("secret-a-secret-a-secret-a-secret", time.Hour, repo)
	authB := NewAuthManager("secret-b-secret-b-secret-b-secret", time.Hour, repo)

	resp, err := authA.Login(domain.LoginRequest{Username: "admin", Password: "admin123"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if _, err := authB.ParseToken(resp.AccessToken); err == nil {
		t.Fatalf("expected token signed with another secret to be rejected")
	}
}

func TestBootstrapUpgradesPlaintextPasswords(t *testing.T) {
	repo := memory.New()
	if err := repo.CreateUser(context.Background(), domain.UserAccount{
		ID:        "user-legacy",
		Username:  "legacy",
		Password:  "plain-text-password",
		Role:      "cashier",
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("create user failed: %v", err)
	}

	auth := NewAuthManager("test-secret-key", time.Hour, repo)
	if _, err := auth.Login(domain.LoginRequest{Username: "legacy", Password: "plain-text-password"}); err != nil {
		t.Fatalf("login with legacy password failed: %v", err)
	}

	users, err := repo.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("list users failed: %v", err)
	}
	for _, user := range users {
		if user.Username != "legacy" {
			continue
		}
		if !strings.HasPrefix(user.Password, "$2") {
			t.Fatalf("expected stored password upgraded to bcrypt, got %q", user.Password)
		}
		return
	}
	t.Fatalf("legacy user not found")
}

func TestInactiveUserCannotLogin(t *testing.T) {
	repo := memory.New()
	if err := repo.CreateUser(context.Background(), domain.UserAccount{
		ID:        "user-off",
		Username:  "disabled",
		Password:  "whatever123",
		Role:      "cashier",
		Active:    false,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("create user failed: %v", err)
	}

	auth := NewAuthManager("test-secret-key", time.Hour, repo)
	if _, err := auth.Login(domain.LoginRequest{Username: "disabled", Password: "whatever123"}); err == nil {
		t.Fatalf("expected inactive account to be rejected")
	}
}
