package services

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const MinPasswordLength = 6

type AuthStore interface {
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	GetUser(ctx context.Context, id string) (*User, error)
	AddUser(ctx context.Context, u *User) error
	UpdateUser(ctx context.Context, u *User) error
}

type TokenSigner func(uid, email string, ttl time.Duration) (string, error)

type AuthService struct {
	store     AuthStore
	now       func() time.Time
	idGen     func(prefix string, n int) string
	signToken TokenSigner
	tokenTTL  time.Duration
	cost      int
}

type AuthResult struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

type RegisterInput struct {
	Email    string
	Password string
	Profile
}

func NewAuthService(store AuthStore, signer TokenSigner, tokenTTL time.Duration) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 30 * 24 * time.Hour
	}
	return &AuthService{
		store:     store,
		now:       func() time.Time { return time.Now().UTC() },
		idGen:     newID,
		signToken: signer,
		tokenTTL:  tokenTTL,
		cost:      bcrypt.DefaultCost,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validatePassword(pw string) error {
	if len(pw) < MinPasswordLength {
		return NewInvalidError("password must be at least 6 characters")
	}
	return nil
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	email := normalizeEmail(in.Email)
	if email == "" || strings.TrimSpace(in.Password) == "" {
		return nil, NewInvalidError("email/password required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, NewInvalidError("invalid email")
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	profile, err := cleanProfile(in.Profile)
	if err != nil {
		return nil, err
	}
	existing, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, NewConflictError("email exists")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, err
	}
	now := s.now()
	u := &User{ID: s.idGen("u", 12), Email: email, PassHash: hash, CreatedAt: now, UpdatedAt: now, Profile: profile}
	if err := s.store.AddUser(ctx, u); err != nil {
		return nil, err
	}
	return s.issue(u)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || strings.TrimSpace(password) == "" {
		return nil, NewInvalidError("email/password required")
	}
	u, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, NewUnauthorizedError("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword(u.PassHash, []byte(password)); err != nil {
		return nil, NewUnauthorizedError("invalid credentials")
	}
	return s.issue(u)
}

// ChangePassword re-authenticates with current before storing next.
func (s *AuthService) ChangePassword(ctx context.Context, uid, current, next string) error {
	if uid == "" {
		return NewUnauthorizedError("unauthorized")
	}
	if err := validatePassword(next); err != nil {
		return err
	}
	u, err := s.store.GetUser(ctx, uid)
	if err != nil {
		return err
	}
	if u == nil {
		return NewNotFoundError("user not found")
	}
	if err := bcrypt.CompareHashAndPassword(u.PassHash, []byte(current)); err != nil {
		return NewUnauthorizedError("current password is incorrect")
	}
	if current == next {
		return NewInvalidError("new password must differ from the current one")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.cost)
	if err != nil {
		return err
	}
	u.PassHash = hash
	u.UpdatedAt = s.now()
	return s.store.UpdateUser(ctx, u)
}

func (s *AuthService) issue(u *User) (*AuthResult, error) {
	if s.signToken == nil {
		return nil, NewInvalidError("token signer not configured")
	}
	token, err := s.signToken(u.ID, u.Email, s.tokenTTL)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, UserID: u.ID, Email: u.Email, Name: u.Name}, nil
}

func (s *AuthService) TokenTTL() time.Duration {
	return s.tokenTTL
}
