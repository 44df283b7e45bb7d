package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/mail"
	"strings"
	"time"

	"github.com/gatemail/internal/config"
	"github.com/gatemail/internal/mailer"
)

// ProviderFactory 根据连接参数创建发信 Provider
type ProviderFactory func(settings mailer.Settings) (mailer.Provider, error)

// NewProviderFactory 创建带指标装饰的 Provider 工厂
func NewProviderFactory(metrics *mailer.Metrics) ProviderFactory {
	return func(settings mailer.Settings) (mailer.Provider, error) {
		provider, err := mailer.New(settings)
		if err != nil {
			return nil, err
		}
		return metrics.Wrap(provider), nil
	}
}

// EmailService 系统邮件服务（验证码、欢迎信、别名验证、测试邮件）
type EmailService struct {
	cfg     *config.EmailConfig
	factory ProviderFactory
}

// NewEmailService 创建邮件服务
func NewEmailService(cfg *config.EmailConfig, factory ProviderFactory) *EmailService {
	if factory == nil {
		factory = NewProviderFactory(nil)
	}
	return &EmailService{cfg: cfg, factory: factory}
}

// SetConfig 更新运行时邮件配置
func (s *EmailService) SetConfig(cfg *config.EmailConfig) {
	if cfg == nil {
		return
	}
	s.cfg = cfg
}

// Settings 将配置转换为 SMTP 连接参数，预设只补全未填写的主机与端口
func (s *EmailService) Settings() (mailer.Settings, error) {
	if s.cfg == nil || !s.cfg.Enabled {
		return mailer.Settings{}, ErrEmailServiceDisabled
	}
	host := strings.TrimSpace(s.cfg.Host)
	port := s.cfg.Port
	useSSL := s.cfg.UseSSL
	if preset, ok := mailer.LookupSMTPPreset(s.cfg.Preset); ok {
		if host == "" {
			host = preset.Host
		}
		if port == 0 {
			port = preset.Port
			useSSL = preset.Secure
		}
	}
	from := strings.TrimSpace(s.cfg.From)
	if from == "" {
		from = strings.TrimSpace(s.cfg.Username)
	}
	if host == "" || port == 0 || from == "" {
		return mailer.Settings{}, ErrEmailServiceNotConfigured
	}
	return mailer.Settings{
		Kind:      mailer.KindSMTP,
		Host:      host,
		Port:      port,
		Username:  s.cfg.Username,
		Password:  s.cfg.Password,
		UseTLS:    s.cfg.UseTLS,
		UseSSL:    useSSL,
		FromEmail: from,
		FromName:  s.cfg.FromName,
	}, nil
}

// TestConnection 测试系统 SMTP 连接
func (s *EmailService) TestConnection(ctx context.Context) error {
	provider, settings, err := s.provider()
	if err != nil {
		return err
	}
	if err := provider.TestConnection(ctx); err != nil {
		return fmt.Errorf("%w: %s:%d: %v", ErrEmailConnectionFailed, settings.Host, settings.Port, err)
	}
	return nil
}

// SendVerificationCode 发送访问验证码
func (s *EmailService) SendVerificationCode(ctx context.Context, toEmail, code string, ttl time.Duration) error {
	minutes := int(ttl / time.Minute)
	if minutes <= 0 {
		minutes = 5
	}
	subject := fmt.Sprintf("Your Verification Code: %s", code)
	body := fmt.Sprintf(verificationCodeHTML, html.EscapeString(toEmail), html.EscapeString(code), minutes)
	_, err := s.send(ctx, toEmail, subject, body)
	return err
}

// SendWelcome 验证成功后的欢迎邮件
func (s *EmailService) SendWelcome(ctx context.Context, toEmail string) error {
	body := fmt.Sprintf(welcomeHTML, html.EscapeString(toEmail))
	_, err := s.send(ctx, toEmail, "Verification Successful - Welcome!", body)
	return err
}

// SendAliasVerification 发送发件人别名验证链接
func (s *EmailService) SendAliasVerification(ctx context.Context, toEmail, aliasEmail, verifyURL string, expiresIn time.Duration) error {
	hours := int(expiresIn / time.Hour)
	if hours <= 0 {
		hours = 24
	}
	escapedURL := html.EscapeString(verifyURL)
	body := fmt.Sprintf(aliasVerificationHTML, html.EscapeString(aliasEmail), escapedURL, escapedURL, hours)
	_, err := s.send(ctx, toEmail, "Verify Your Sender Alias", body)
	return err
}

// SendCustomEmail 发送测试邮件或自定义 HTML 邮件
func (s *EmailService) SendCustomEmail(ctx context.Context, toEmail, subject, body string) (mailer.SendResult, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		subject = "SMTP Configuration Test"
	}
	body = strings.TrimSpace(body)
	if body == "" {
		body = "<p>This is a test email. Your SMTP configuration is working.</p>"
	}
	return s.send(ctx, toEmail, subject, body)
}

func (s *EmailService) provider() (mailer.Provider, mailer.Settings, error) {
	settings, err := s.Settings()
	if err != nil {
		return nil, settings, err
	}
	provider, err := s.factory(settings)
	if err != nil {
		return nil, settings, err
	}
	return provider, settings, nil
}

func (s *EmailService) send(ctx context.Context, toEmail, subject, body string) (mailer.SendResult, error) {
	if _, err := mail.ParseAddress(strings.TrimSpace(toEmail)); err != nil {
		return mailer.SendResult{}, ErrInvalidEmail
	}
	provider, settings, err := s.provider()
	if err != nil {
		return mailer.SendResult{}, err
	}
	result, err := provider.Send(ctx, mailer.Message{
		FromEmail: settings.FromEmail,
		FromName:  settings.FromName,
		To:        strings.TrimSpace(toEmail),
		Subject:   subject,
		HTML:      body,
	})
	if err != nil {
		if errors.Is(err, mailer.ErrRecipientRejected) {
			return mailer.SendResult{}, fmt.Errorf("%w: %v", ErrEmailRecipientNotFound, err)
		}
		return mailer.SendResult{}, fmt.Errorf("%w: %v", ErrEmailSendFailed, err)
	}
	return result, nil
}

const verificationCodeHTML = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>Verification Code</title></head>
<body style="margin:0;padding:0;font-family:-apple-system,'Segoe UI',Roboto,sans-serif;background:#f8fafc;color:#333;">
<div style="max-width:600px;margin:0 auto;padding:20px;">
<div style="background:#fff;border-radius:12px;overflow:hidden;">
<div style="background:#667eea;padding:40px 30px;text-align:center;color:#fff;">
<h1 style="margin:0;font-size:28px;">Verification Required</h1>
<p style="margin:10px 0 0;">Your secure access code is ready</p>
</div>
<div style="padding:40px 30px;text-align:center;">
<p>A verification code was requested for <strong>%s</strong>.</p>
<div style="background:#f1f5f9;border:2px dashed #cbd5e1;border-radius:8px;padding:30px;margin:30px 0;display:inline-block;">
<p style="font-size:14px;color:#64748b;margin:0 0 10px;">VERIFICATION CODE</p>
<p style="font-size:36px;font-weight:800;letter-spacing:8px;font-family:'Courier New',monospace;margin:0;">%s</p>
</div>
<p style="color:#1e40af;font-weight:600;">This code expires in %d minutes.</p>
<p style="color:#7f1d1d;font-size:14px;">Never share this code with anyone. If you did not request it, ignore this email.</p>
</div>
</div>
</div>
</body>
</html>`

const welcomeHTML = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>Welcome</title></head>
<body style="margin:0;padding:0;font-family:-apple-system,'Segoe UI',Roboto,sans-serif;background:#f8fafc;color:#333;">
<div style="max-width:600px;margin:0 auto;padding:20px;">
<div style="background:#fff;border-radius:12px;padding:40px 30px;text-align:center;">
<h1 style="margin:0 0 20px;">Verification Successful</h1>
<p>Your email <strong>%s</strong> has been verified. You now have access to the protected content.</p>
<p style="color:#64748b;font-size:14px;">Your access expires automatically after one hour.</p>
</div>
</div>
</body>
</html>`

const aliasVerificationHTML = `<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>Verify Your Sender Alias</title></head>
<body style="font-family:Arial,sans-serif;line-height:1.6;color:#333;">
<div style="max-width:600px;margin:0 auto;padding:20px;">
<div style="background:#4f46e5;color:#fff;padding:20px;text-align:center;"><h1>Verify Your Sender Alias</h1></div>
<div style="padding:20px;background:#f9f9f9;">
<p>Hello,</p>
<p>Please verify your sender alias <strong>%s</strong> by clicking the button below:</p>
<p style="text-align:center;margin:30px 0;"><a href="%s" style="display:inline-block;background:#4f46e5;color:#fff;padding:12px 24px;text-decoration:none;border-radius:4px;">Verify Alias</a></p>
<p>Or copy and paste this link in your browser:</p>
<p style="word-break:break-all;background:#eee;padding:10px;">%s</p>
<p>This verification link will expire in %d hours.</p>
<p>If you didn't request this verification, please ignore this email.</p>
</div>
</div>
</body>
</html>`
