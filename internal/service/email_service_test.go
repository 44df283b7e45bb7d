package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gatemail/internal/config"
	"github.com/gatemail/internal/mailer"
)

func newRecordingFactory(provider *stubProvider, captured *mailer.Settings) ProviderFactory {
	return func(settings mailer.Settings) (mailer.Provider, error) {
		if captured != nil {
			*captured = settings
		}
		return provider, nil
	}
}

func TestEmailServiceSettings(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.EmailConfig
		want    mailer.Settings
		wantErr error
	}{
		{
			name:    "disabled",
			cfg:     &config.EmailConfig{Enabled: false, Host: "smtp.example.com", Port: 587},
			wantErr: ErrEmailServiceDisabled,
		},
		{
			name:    "missing_host",
			cfg:     &config.EmailConfig{Enabled: true, Username: "ops@example.com"},
			wantErr: ErrEmailServiceNotConfigured,
		},
		{
			name: "preset_fills_host_and_port",
			cfg:  &config.EmailConfig{Enabled: true, Preset: "gmail", Username: "ops@gmail.com", Password: "app-pass"},
			want: mailer.Settings{Kind: mailer.KindSMTP, Host: "smtp.gmail.com", Port: 587, Username: "ops@gmail.com", Password: "app-pass", FromEmail: "ops@gmail.com"},
		},
		{
			name: "explicit_host_wins",
			cfg:  &config.EmailConfig{Enabled: true, Preset: "gmail", Host: "relay.example.com", Port: 2525, Username: "u", From: "noreply@example.com", FromName: "Gate"},
			want: mailer.Settings{Kind: mailer.KindSMTP, Host: "relay.example.com", Port: 2525, Username: "u", FromEmail: "noreply@example.com", FromName: "Gate"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewEmailService(tt.cfg, nil)
			got, err := svc.Settings()
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("want error %v got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("settings failed: %v", err)
			}
			if got.Host != tt.want.Host || got.Port != tt.want.Port || got.FromEmail != tt.want.FromEmail || got.FromName != tt.want.FromName || got.Password != tt.want.Password {
				t.Fatalf("unexpected settings: %+v", got)
			}
		})
	}
}

func TestEmailServiceSendVerificationCode(t *testing.T) {
	provider := &stubProvider{failFor: map[string]bool{}}
	svc := NewEmailService(&config.EmailConfig{Enabled: true, Host: "smtp.example.com", Port: 587, Username: "ops@example.com"}, newRecordingFactory(provider, nil))

	if err := svc.SendVerificationCode(context.Background(), "reader@example.com", "12345", 5*time.Minute); err != nil {
		t.Fatalf("send verification code failed: %v", err)
	}
	if len(provider.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(provider.sent))
	}
	msg := provider.sent[0]
	if msg.Subject != "Your Verification Code: 12345" || !strings.Contains(msg.HTML, "expires in 5 minutes") {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if msg.FromEmail != "ops@example.com" {
		t.Fatalf("from should fall back to username, got %q", msg.FromEmail)
	}

	if err := svc.SendVerificationCode(context.Background(), "not an email", "12345", time.Minute); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected invalid email, got %v", err)
	}
}

func TestEmailServiceSendErrors(t *testing.T) {
	provider := &stubProvider{failFor: map[string]bool{"gone@example.com": true}}
	svc := NewEmailService(&config.EmailConfig{Enabled: true, Host: "smtp.example.com", Port: 587, Username: "ops@example.com"}, newRecordingFactory(provider, nil))

	_, err := svc.SendCustomEmail(context.Background(), "gone@example.com", "", "")
	if !errors.Is(err, ErrEmailSendFailed) {
		t.Fatalf("expected send failure, got %v", err)
	}

	provider.connErr = errors.New("auth failed")
	if err := svc.TestConnection(context.Background()); !errors.Is(err, ErrEmailConnectionFailed) {
		t.Fatalf("expected connection failure, got %v", err)
	}
}

func TestEmailServiceAliasVerificationEscapesURL(t *testing.T) {
	provider := &stubProvider{failFor: map[string]bool{}}
	svc := NewEmailService(&config.EmailConfig{Enabled: true, Host: "smtp.example.com", Port: 587, Username: "ops@example.com"}, newRecordingFactory(provider, nil))

	err := svc.SendAliasVerification(context.Background(), "alias@example.com", "alias@example.com", "https://gate.example.com/verify-alias?token=abc&alias=1", 24*time.Hour)
	if err != nil {
		t.Fatalf("send alias verification failed: %v", err)
	}
	body := provider.sent[0].HTML
	if !strings.Contains(body, "token=abc&amp;alias=1") || !strings.Contains(body, "expire in 24 hours") {
		t.Fatalf("unexpected alias verification body: %s", body)
	}
}
