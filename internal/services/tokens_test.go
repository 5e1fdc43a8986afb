package services

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/chalkcast/appserver/internal/domain"
	"github.com/chalkcast/appserver/internal/platform/apierr"
)

func testTokenService(t *testing.T) TokenService {
	t.Helper()
	ts, err := NewTokenService(mustTestLogger(t), TokenConfig{
		AppSecret:     "app-secret",
		LectureSecret: "lecture-secret",
		NotesSecret:   "notes-secret",
		NotepadURL:    "wss://notepad.example.test",
		NotesURL:      "wss://notes.example.test",
	})
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

func appClaims(roles ...string) *domain.AppClaims {
	return &domain.AppClaims{
		Course:            domain.CourseRef{LectureUUID: uuid.NewString()},
		User:              domain.UserRef{UserUUID: uuid.NewString(), DisplayName: "Dr. Example"},
		Role:              roles,
		AppVersion:        domain.AppVersionStable,
		Features:          []string{domain.FeatureJupyter},
		RenewalsRemaining: 3,
	}
}

func TestRenewDecrementsBudget(t *testing.T) {
	ts := testTokenService(t)
	claims := appClaims(domain.RoleInstructor)

	token, err := ts.Renew(claims)
	if err != nil {
		t.Fatalf("Renew: %v", err)
	}
	renewed, err := ts.VerifyApp(token)
	if err != nil {
		t.Fatalf("VerifyApp: %v", err)
	}
	if renewed.RenewalsRemaining != claims.RenewalsRemaining-1 {
		t.Fatalf("renewals = %d, want %d", renewed.RenewalsRemaining, claims.RenewalsRemaining-1)
	}
	if renewed.Course != claims.Course || renewed.User != claims.User {
		t.Fatalf("renewed token lost identity claims")
	}
}

func TestRenewExhaustsBudget(t *testing.T) {
	ts := testTokenService(t)
	claims := appClaims(domain.RoleAudience)

	// walk the chain all the way down
	for claims.RenewalsRemaining > 0 {
		token, err := ts.Renew(claims)
		if err != nil {
			t.Fatalf("Renew at budget %d: %v", claims.RenewalsRemaining, err)
		}
		claims, err = ts.VerifyApp(token)
		if err != nil {
			t.Fatalf("VerifyApp: %v", err)
		}
	}
	if _, err := ts.Renew(claims); !apierr.IsCode(err, apierr.CodeUnauthorized) {
		t.Fatalf("Renew past budget: err = %v, want unauthorized", err)
	}
}

func TestRenewRequiresParticipantRole(t *testing.T) {
	ts := testTokenService(t)
	if _, err := ts.Renew(appClaims(domain.RoleAdministrator)); !apierr.IsCode(err, apierr.CodeUnauthorized) {
		t.Fatalf("Renew without participant role: err = %v, want unauthorized", err)
	}
}

func TestDeriveNotepadCarriesNoRoles(t *testing.T) {
	ts := testTokenService(t)
	parent := appClaims(domain.RoleInstructor, domain.RoleAdministrator)

	token, derived, err := ts.DeriveNotepad(parent)
	if err != nil {
		t.Fatalf("DeriveNotepad: %v", err)
	}
	if derived.Purpose != domain.PurposeNotepad {
		t.Fatalf("purpose = %q", derived.Purpose)
	}
	if derived.Name != "Primary Notebook" {
		t.Fatalf("name = %q", derived.Name)
	}
	if derived.LectureUUID != parent.Course.LectureUUID {
		t.Fatalf("lecture uuid not carried over")
	}
	if derived.RenewalsRemaining != derivedRenewalBudget {
		t.Fatalf("renewal budget = %d, want %d", derived.RenewalsRemaining, derivedRenewalBudget)
	}
	if _, err := uuid.Parse(derived.ScreenUUID); err != nil {
		t.Fatalf("screen uuid %q not a uuid", derived.ScreenUUID)
	}

	// the derived token must decode into a claim set with no role field
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		t.Fatalf("parse derived token: %v", err)
	}
	if mc, ok := parsed.Claims.(jwt.MapClaims); ok {
		if _, found := mc["role"]; found {
			t.Fatalf("derived token carries a role claim")
		}
	}
}

func TestDeriveNotesRequiresAudience(t *testing.T) {
	ts := testTokenService(t)
	if _, _, err := ts.DeriveNotes(appClaims(domain.RoleInstructor)); !apierr.IsCode(err, apierr.CodeUnauthorized) {
		t.Fatalf("DeriveNotes as instructor: err = %v, want unauthorized", err)
	}
	token, derived, err := ts.DeriveNotes(appClaims(domain.RoleAudience))
	if err != nil {
		t.Fatalf("DeriveNotes: %v", err)
	}
	if derived.Purpose != domain.PurposeNotes || derived.Name != "Notes" {
		t.Fatalf("derived = %+v", derived)
	}
	if token == "" {
		t.Fatalf("empty token")
	}
}

func TestDeriveRejectsMalformedLectureID(t *testing.T) {
	ts := testTokenService(t)
	claims := appClaims(domain.RoleInstructor)
	claims.Course.LectureUUID = "not-a-uuid"
	if _, _, err := ts.DeriveNotepad(claims); !apierr.IsCode(err, apierr.CodeUnauthorized) {
		t.Fatalf("DeriveNotepad with bad lecture id: err = %v, want unauthorized", err)
	}
}

func TestVerifyAppRejectsForeignSignature(t *testing.T) {
	ts := testTokenService(t)
	claims := appClaims(domain.RoleInstructor)
	claims.RegisteredClaims = jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("wrong-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ts.VerifyApp(forged); err == nil {
		t.Fatalf("VerifyApp accepted a foreign signature")
	} else {
		var apiErr *apierr.Error
		if !errors.As(err, &apiErr) || apiErr.Code != apierr.CodeUnauthorized {
			t.Fatalf("err = %v, want unauthorized", err)
		}
	}
}
