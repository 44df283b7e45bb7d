package mailer

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/resendlabs/resend-go"
)

// ResendProvider Resend API
type ResendProvider struct {
	settings Settings
	client   *resend.Client
}

// NewResendProvider 创建 Resend Provider
func NewResendProvider(settings Settings) (*ResendProvider, error) {
	if strings.TrimSpace(settings.APIKey) == "" {
		return nil, fmt.Errorf("%w: resend api key is required", ErrSettingsInvalid)
	}
	client := resend.NewClient(settings.APIKey)
	if base := strings.TrimSpace(settings.BaseURL); base != "" {
		parsed, err := url.Parse(strings.TrimRight(base, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("%w: invalid base url", ErrSettingsInvalid)
		}
		client.BaseURL = parsed
	}
	return &ResendProvider{settings: settings, client: client}, nil
}

// Kind 服务类型
func (p *ResendProvider) Kind() ProviderKind {
	return KindResend
}

// TestConnection 列出 API Key 校验凭据
func (p *ResendProvider) TestConnection(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := p.client.ApiKeys.List(); err != nil {
		return fmt.Errorf("%w: resend: %v", ErrResponseInvalid, err)
	}
	return nil
}

// Send 发送邮件
func (p *ResendProvider) Send(ctx context.Context, msg Message) (SendResult, error) {
	if err := msg.validate(); err != nil {
		return SendResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return SendResult{}, err
	}
	params := &resend.SendEmailRequest{
		From:    plainFrom(firstNonEmpty(msg.FromEmail, p.settings.FromEmail), firstNonEmpty(msg.FromName, p.settings.FromName)),
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.textBody(),
	}
	sent, err := p.client.Emails.Send(params)
	if err != nil {
		return SendResult{}, normalizeSendError(fmt.Errorf("%w: resend: %v", ErrResponseInvalid, err))
	}
	return SendResult{MessageID: sent.Id}, nil
}
