package service

import (
	"context"
	"errors"
	"testing"

	"github.com/gatemail/internal/mailer"
	"github.com/gatemail/internal/models"
	"github.com/gatemail/internal/repository"
	"github.com/gatemail/internal/secret"
)

func setupCredentialServiceTest(t *testing.T, provider *stubProvider) (*CredentialService, repository.AliasRepository) {
	t.Helper()
	db := openServiceTestDB(t)
	cipher, err := secret.NewCipher("test-master-key")
	if err != nil {
		t.Fatalf("new cipher failed: %v", err)
	}
	aliasRepo := repository.NewAliasRepository(db)
	svc := NewCredentialService(repository.NewCredentialRepository(db), aliasRepo, cipher, newRecordingFactory(provider, nil))
	return svc, aliasRepo
}

func TestCredentialCreateEncryptsSecret(t *testing.T) {
	svc, aliasRepo := setupCredentialServiceTest(t, &stubProvider{})
	alias := &models.SenderAlias{RealEmail: "o@example.com", AliasEmail: "team@example.com", AliasName: "Team", IsActive: true}
	if err := aliasRepo.Create(alias); err != nil {
		t.Fatalf("create alias failed: %v", err)
	}

	credential, err := svc.Create(CredentialInput{
		AliasID:        &alias.ID,
		CredentialName: "Primary SMTP",
		ProviderType:   "SMTP",
		SMTPHost:       "smtp.example.com",
		SMTPPort:       587,
		SMTPUsername:   "sender@example.com",
		Secret:         "s3cret",
	})
	if err != nil {
		t.Fatalf("create credential failed: %v", err)
	}
	if credential.EncryptedSecret == "" || credential.EncryptedSecret == "s3cret" {
		t.Fatalf("secret should be encrypted, got %q", credential.EncryptedSecret)
	}
	if credential.ProviderType != string(mailer.KindSMTP) || !credential.IsActive || !credential.SMTPUseTLS {
		t.Fatalf("unexpected credential: %+v", credential)
	}

	settings, err := svc.Settings(credential, alias)
	if err != nil {
		t.Fatalf("settings failed: %v", err)
	}
	if settings.Password != "s3cret" || settings.FromName != "Team" || settings.FromEmail != "sender@example.com" {
		t.Fatalf("unexpected settings: %+v", settings)
	}

	updated, err := svc.Update(credential.ID, CredentialInput{CredentialName: "Renamed"})
	if err != nil {
		t.Fatalf("update credential failed: %v", err)
	}
	if updated.EncryptedSecret != credential.EncryptedSecret {
		t.Fatalf("empty secret on update should keep the stored value")
	}
}

func TestCredentialValidation(t *testing.T) {
	svc, _ := setupCredentialServiceTest(t, &stubProvider{})

	cases := []struct {
		name  string
		input CredentialInput
		want  error
	}{
		{name: "unknown_provider", input: CredentialInput{CredentialName: "x", ProviderType: "pigeon", Secret: "k"}, want: ErrUnsupportedProvider},
		{name: "smtp_missing_host", input: CredentialInput{CredentialName: "x", ProviderType: "smtp", Secret: "k"}, want: ErrCredentialInvalid},
		{name: "missing_secret", input: CredentialInput{CredentialName: "x", ProviderType: "sendgrid"}, want: ErrCredentialInvalid},
	}
	for _, tc := range cases {
		if _, err := svc.Create(tc.input); !errors.Is(err, tc.want) {
			t.Fatalf("%s: want %v got %v", tc.name, tc.want, err)
		}
	}

	apiCredential, err := svc.Create(CredentialInput{CredentialName: "SendGrid", ProviderType: "sendgrid", Secret: "SG.key"})
	if err != nil {
		t.Fatalf("create api credential failed: %v", err)
	}
	settings, err := svc.Settings(apiCredential, nil)
	if err != nil {
		t.Fatalf("settings failed: %v", err)
	}
	if settings.APIKey != "SG.key" || settings.Password != "" || settings.FromName != defaultSenderName {
		t.Fatalf("unexpected api settings: %+v", settings)
	}
}

func TestCredentialTestConnection(t *testing.T) {
	provider := &stubProvider{}
	svc, _ := setupCredentialServiceTest(t, provider)
	credential, err := svc.Create(CredentialInput{CredentialName: "Mailgun", ProviderType: "mailgun", APIEndpoint: "mg.example.com", Secret: "key"})
	if err != nil {
		t.Fatalf("create credential failed: %v", err)
	}
	if err := svc.TestConnection(context.Background(), credential.ID); err != nil {
		t.Fatalf("test connection failed: %v", err)
	}
	provider.connErr = errors.New("401")
	if err := svc.TestConnection(context.Background(), credential.ID); !errors.Is(err, ErrEmailConnectionFailed) {
		t.Fatalf("expected connection failure, got %v", err)
	}
	if err := svc.TestConnection(context.Background(), 999); !errors.Is(err, ErrCredentialNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
