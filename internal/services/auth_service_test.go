package services

import (
	"context"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func newTestAuth(store AuthStore) *AuthService {
	svc := NewAuthService(store, func(uid, email string, ttl time.Duration) (string, error) {
		return "token:" + uid + ":" + email, nil
	}, time.Hour)
	svc.now = fixedClock(time.Unix(0, 0).UTC())
	svc.idGen = seqIDs()
	svc.cost = bcrypt.MinCost
	return svc
}

func TestAuthRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	store := newStubStore()
	svc := newTestAuth(store)

	res, err := svc.Register(ctx, RegisterInput{
		Email:    " Kofi@Example.com ",
		Password: "Secret123",
		Profile:  Profile{Name: "Kofi Mensah", Institution: "University of Ghana", StudentID: "10987654"},
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if res.UserID == "" || res.Email != "kofi@example.com" || res.Name != "Kofi Mensah" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Token != "token:"+res.UserID+":kofi@example.com" {
		t.Fatalf("unexpected token %q", res.Token)
	}
	stored, _ := store.GetUser(ctx, res.UserID)
	if stored == nil || string(stored.PassHash) == "Secret123" {
		t.Fatalf("password must be stored hashed: %+v", stored)
	}

	_, err = svc.Register(ctx, RegisterInput{Email: "kofi@example.com", Password: "Secret123", Profile: Profile{Name: "K"}})
	if !IsCode(err, ErrorConflict) {
		t.Fatalf("expected conflict on duplicate registration, got %v", err)
	}

	loginRes, err := svc.Login(ctx, "KOFI@example.com", "Secret123")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if loginRes.UserID != res.UserID {
		t.Fatalf("login resolved a different user: %+v", loginRes)
	}

	if _, err := svc.Login(ctx, "kofi@example.com", "wrong-password"); !IsCode(err, ErrorUnauthorized) {
		t.Fatalf("expected unauthorized for wrong password, got %v", err)
	}
	if _, err := svc.Login(ctx, "missing@example.com", "Secret123"); !IsCode(err, ErrorUnauthorized) {
		t.Fatalf("expected unauthorized for missing user, got %v", err)
	}
}

func TestAuthValidation(t *testing.T) {
	ctx := context.Background()
	svc := newTestAuth(newStubStore())

	cases := []RegisterInput{
		{},
		{Email: "a@example.com", Password: "12345", Profile: Profile{Name: "A"}},
		{Email: "not-an-email", Password: "123456", Profile: Profile{Name: "A"}},
		{Email: "a@example.com", Password: "123456"},
	}
	for _, in := range cases {
		if _, err := svc.Register(ctx, in); !IsCode(err, ErrorInvalid) {
			t.Fatalf("Register(%+v) = %v, want invalid", in, err)
		}
	}
	if _, err := svc.Login(ctx, "", ""); !IsCode(err, ErrorInvalid) {
		t.Fatalf("expected validation error on login, got %v", err)
	}
}

func TestAuthChangePassword(t *testing.T) {
	ctx := context.Background()
	store := newStubStore()
	svc := newTestAuth(store)
	res, err := svc.Register(ctx, RegisterInput{Email: "ama@example.com", Password: "first-pass", Profile: Profile{Name: "Ama"}})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := svc.ChangePassword(ctx, res.UserID, "nope", "second-pass"); !IsCode(err, ErrorUnauthorized) {
		t.Fatalf("wrong current password should be unauthorized, got %v", err)
	}
	if err := svc.ChangePassword(ctx, res.UserID, "first-pass", "short"); !IsCode(err, ErrorInvalid) {
		t.Fatalf("short password should be invalid, got %v", err)
	}
	if err := svc.ChangePassword(ctx, res.UserID, "first-pass", "first-pass"); !IsCode(err, ErrorInvalid) {
		t.Fatalf("unchanged password should be invalid, got %v", err)
	}
	if err := svc.ChangePassword(ctx, "u-missing", "first-pass", "second-pass"); !IsCode(err, ErrorNotFound) {
		t.Fatalf("unknown user should be not found, got %v", err)
	}
	if err := svc.ChangePassword(ctx, res.UserID, "first-pass", "second-pass"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if _, err := svc.Login(ctx, "ama@example.com", "first-pass"); err == nil {
		t.Fatalf("old password still accepted")
	}
	if _, err := svc.Login(ctx, "ama@example.com", "second-pass"); err != nil {
		t.Fatalf("new password rejected: %v", err)
	}
}

func TestAuthRequiresSigner(t *testing.T) {
	svc := NewAuthService(newStubStore(), nil, 0)
	svc.cost = bcrypt.MinCost
	if svc.TokenTTL() != 30*24*time.Hour {
		t.Fatalf("default ttl = %v", svc.TokenTTL())
	}
	_, err := svc.Register(context.Background(), RegisterInput{Email: "x@example.com", Password: "123456", Profile: Profile{Name: "X"}})
	if !IsCode(err, ErrorInvalid) {
		t.Fatalf("expected invalid without signer, got %v", err)
	}
}
