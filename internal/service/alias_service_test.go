package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gatemail/internal/repository"
)

type recordingAliasMailer struct {
	to        string
	verifyURL string
	err       error
}

func (m *recordingAliasMailer) SendAliasVerification(_ context.Context, toEmail, _ string, verifyURL string, _ time.Duration) error {
	m.to = toEmail
	m.verifyURL = verifyURL
	return m.err
}

func TestAliasVerificationFlow(t *testing.T) {
	db := openServiceTestDB(t)
	mailer := &recordingAliasMailer{}
	svc := NewAliasService(repository.NewAliasRepository(db), mailer, "https://gate.example.com/", 0)
	clock := newFakeClock()
	svc.now = clock.Now

	alias, err := svc.Create(AliasInput{RealEmail: "owner@example.com", AliasEmail: "News@Example.com", AliasName: "Newsroom"})
	if err != nil {
		t.Fatalf("create alias failed: %v", err)
	}
	if alias.AliasEmail != "news@example.com" || alias.IsVerified {
		t.Fatalf("unexpected alias: %+v", alias)
	}
	if _, err := svc.Create(AliasInput{RealEmail: "owner@example.com", AliasEmail: "news@example.com"}); !errors.Is(err, ErrAliasInvalid) {
		t.Fatalf("duplicate alias should be rejected, got %v", err)
	}

	if err := svc.SendVerification(context.Background(), alias.ID); err != nil {
		t.Fatalf("send verification failed: %v", err)
	}
	if mailer.to != "news@example.com" {
		t.Fatalf("verification must go to the alias address, got %q", mailer.to)
	}
	if !strings.HasPrefix(mailer.verifyURL, "https://gate.example.com/verify-alias?token=") {
		t.Fatalf("unexpected verify url %q", mailer.verifyURL)
	}

	stored, _ := repository.NewAliasRepository(db).GetByID(alias.ID)
	token := stored.VerificationToken
	if len(token) != 64 || stored.VerificationExpiresAt == nil {
		t.Fatalf("unexpected token state: %+v", stored)
	}
	if drift := stored.VerificationExpiresAt.Sub(clock.Now().Add(24 * time.Hour)); drift > time.Second || drift < -time.Second {
		t.Fatalf("unexpected token state: %+v", stored)
	}

	if _, err := svc.Verify(alias.ID, "wrong"); !errors.Is(err, ErrAliasTokenInvalid) {
		t.Fatalf("expected invalid token, got %v", err)
	}
	verified, err := svc.Verify(alias.ID, token)
	if err != nil {
		t.Fatalf("verify alias failed: %v", err)
	}
	if !verified.IsVerified || verified.VerificationToken != "" {
		t.Fatalf("unexpected verified alias: %+v", verified)
	}
	if _, err := svc.Verify(alias.ID, token); !errors.Is(err, ErrAliasTokenInvalid) {
		t.Fatalf("token must be single use, got %v", err)
	}
}

func TestAliasVerificationExpired(t *testing.T) {
	db := openServiceTestDB(t)
	svc := NewAliasService(repository.NewAliasRepository(db), &recordingAliasMailer{}, "https://gate.example.com", time.Hour)
	clock := newFakeClock()
	svc.now = clock.Now

	alias, err := svc.Create(AliasInput{RealEmail: "owner@example.com", AliasEmail: "late@example.com"})
	if err != nil {
		t.Fatalf("create alias failed: %v", err)
	}
	if err := svc.SendVerification(context.Background(), alias.ID); err != nil {
		t.Fatalf("send verification failed: %v", err)
	}
	stored, _ := repository.NewAliasRepository(db).GetByID(alias.ID)
	clock.Advance(2 * time.Hour)
	if _, err := svc.Verify(alias.ID, stored.VerificationToken); !errors.Is(err, ErrAliasTokenInvalid) {
		t.Fatalf("expired token should be rejected, got %v", err)
	}
	if err := svc.SendVerification(context.Background(), 999); !errors.Is(err, ErrAliasNotFound) {
		t.Fatalf("expected alias not found, got %v", err)
	}
}
