package services

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/chalkcast/appserver/internal/domain"
	"github.com/chalkcast/appserver/internal/platform/apierr"
	"github.com/chalkcast/appserver/internal/platform/logger"
)

// Renewal budget for derived per-screen tokens: at the expected renewal
// cadence this spans roughly one lecture day (24-48h).
const derivedRenewalBudget = 288

// TokenService issues, renews and narrows capability tokens. Renewing
// copies all claims forward and spends one renewal; deriving narrows the
// parent's claims to one purpose and can never widen them.
type TokenService interface {
	Renew(claims *domain.AppClaims) (string, error)
	DeriveNotepad(claims *domain.AppClaims) (string, *domain.LectureClaims, error)
	DeriveNotes(claims *domain.AppClaims) (string, *domain.LectureClaims, error)
	VerifyApp(tokenString string) (*domain.AppClaims, error)
}

// TokenConfig carries the purpose-scoped signing contexts. App, lecture
// and notes tokens are verified by different consumers, so each purpose
// signs with its own secret.
type TokenConfig struct {
	AppSecret     string
	LectureSecret string
	NotesSecret   string
	AppTTL        time.Duration
	DerivedTTL    time.Duration
	NotepadURL    string
	NotesURL      string
}

type tokenService struct {
	log *logger.Logger
	cfg TokenConfig
}

func NewTokenService(log *logger.Logger, cfg TokenConfig) (TokenService, error) {
	if cfg.AppSecret == "" || cfg.LectureSecret == "" || cfg.NotesSecret == "" {
		return nil, fmt.Errorf("token secrets must be configured")
	}
	if cfg.AppTTL == 0 {
		cfg.AppTTL = 10 * time.Minute
	}
	if cfg.DerivedTTL == 0 {
		cfg.DerivedTTL = time.Minute
	}
	return &tokenService{log: log.With("service", "TokenService"), cfg: cfg}, nil
}

func (ts *tokenService) Renew(claims *domain.AppClaims) (string, error) {
	if !claims.HasRole(domain.RoleInstructor) && !claims.HasRole(domain.RoleAudience) {
		return "", apierr.Unauthorized("role_missing")
	}
	if claims.RenewalsRemaining <= 0 {
		return "", apierr.Unauthorized("renewals_exhausted")
	}
	renewed := domain.AppClaims{
		Course:            claims.Course,
		User:              claims.User,
		Role:              append([]string(nil), claims.Role...),
		AppVersion:        claims.AppVersion,
		Features:          append([]string(nil), claims.Features...),
		Context:           claims.Context,
		RenewalsRemaining: claims.RenewalsRemaining - 1,
	}
	return ts.sign(&renewed, ts.cfg.AppSecret, ts.cfg.AppTTL, &renewed.RegisteredClaims)
}

func (ts *tokenService) DeriveNotepad(claims *domain.AppClaims) (string, *domain.LectureClaims, error) {
	if !claims.HasRole(domain.RoleInstructor) {
		return "", nil, apierr.Unauthorized("role_missing")
	}
	derived, err := ts.narrow(claims, domain.PurposeNotepad)
	if err != nil {
		return "", nil, err
	}
	derived.Name = "Primary Notebook"
	derived.NotepadHandler = ts.cfg.NotepadURL
	token, err := ts.sign(derived, ts.cfg.LectureSecret, ts.cfg.DerivedTTL, &derived.RegisteredClaims)
	if err != nil {
		return "", nil, err
	}
	return token, derived, nil
}

func (ts *tokenService) DeriveNotes(claims *domain.AppClaims) (string, *domain.LectureClaims, error) {
	if !claims.HasRole(domain.RoleAudience) {
		return "", nil, apierr.Unauthorized("role_missing")
	}
	derived, err := ts.narrow(claims, domain.PurposeNotes)
	if err != nil {
		return "", nil, err
	}
	derived.Name = "Notes"
	derived.NotesHandler = ts.cfg.NotesURL
	token, err := ts.sign(derived, ts.cfg.NotesSecret, ts.cfg.DerivedTTL, &derived.RegisteredClaims)
	if err != nil {
		return "", nil, err
	}
	return token, derived, nil
}

// narrow builds the derived claim set. Only the fields the purpose needs
// cross over; in particular the parent's role set is not carried, so a
// derived token can never grant more than its parent did.
func (ts *tokenService) narrow(claims *domain.AppClaims, purpose string) (*domain.LectureClaims, error) {
	lectureUUID := claims.Course.LectureUUID
	if _, err := uuid.Parse(lectureUUID); err != nil {
		return nil, apierr.Unauthorized("lecture_id_invalid")
	}
	return &domain.LectureClaims{
		User:              claims.User,
		Purpose:           purpose,
		LectureUUID:       lectureUUID,
		AppVersion:        claims.AppVersion,
		Features:          append([]string(nil), claims.Features...),
		RenewalsRemaining: derivedRenewalBudget,
		ScreenUUID:        uuid.NewString(),
	}, nil
}

func (ts *tokenService) sign(claims jwt.Claims, secret string, ttl time.Duration, reg *jwt.RegisteredClaims) (string, error) {
	now := time.Now()
	reg.IssuedAt = jwt.NewNumericDate(now)
	reg.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

func (ts *tokenService) VerifyApp(tokenString string) (*domain.AppClaims, error) {
	claims := &domain.AppClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(ts.cfg.AppSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, apierr.Unauthorized("token_invalid")
	}
	return claims, nil
}
