package mailer

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/gatemail/internal/tracking"
)

// ProviderKind 发信服务类型
type ProviderKind string

const (
	KindSMTP     ProviderKind = "smtp"
	KindSendGrid ProviderKind = "sendgrid"
	KindMailgun  ProviderKind = "mailgun"
	KindResend   ProviderKind = "resend"
	KindSES      ProviderKind = "ses"
)

const defaultTimeout = 20 * time.Second

var (
	ErrUnsupportedProvider = errors.New("unsupported email provider")
	ErrSettingsInvalid     = errors.New("email provider settings invalid")
	ErrRecipientRejected   = errors.New("email recipient rejected")
	ErrRequestFailed       = errors.New("email provider request failed")
	ErrResponseInvalid     = errors.New("email provider response invalid")
)

// ParseKind 解析服务类型，未知值原样返回由 New 拒绝
func ParseKind(raw string) ProviderKind {
	return ProviderKind(strings.ToLower(strings.TrimSpace(raw)))
}

// Message 单封邮件
type Message struct {
	FromEmail string
	FromName  string
	To        string
	Subject   string
	HTML      string
	Text      string // 为空时由 HTML 推导
}

// SendResult 发送结果
type SendResult struct {
	MessageID string
}

// Provider 发信服务抽象
type Provider interface {
	Kind() ProviderKind
	TestConnection(ctx context.Context) error
	Send(ctx context.Context, msg Message) (SendResult, error)
}

// Settings 构建 Provider 所需的连接参数
type Settings struct {
	Kind        ProviderKind
	Host        string
	Port        int
	Username    string
	Password    string
	UseTLS      bool
	UseSSL      bool
	APIKey      string
	APIEndpoint string // mailgun 域名
	FromEmail   string
	FromName    string
	BaseURL     string // HTTP API 地址，测试时覆盖
	HTTPClient  *http.Client
}

// New 根据类型创建 Provider
func New(settings Settings) (Provider, error) {
	switch settings.Kind {
	case KindSMTP:
		return NewSMTPProvider(settings)
	case KindSendGrid:
		return NewSendGridProvider(settings)
	case KindMailgun:
		return NewMailgunProvider(settings)
	case KindResend:
		return NewResendProvider(settings)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, settings.Kind)
	}
}

func (m Message) textBody() string {
	if strings.TrimSpace(m.Text) != "" {
		return m.Text
	}
	return tracking.HTMLToText(m.HTML)
}

func (m Message) validate() error {
	if _, err := mail.ParseAddress(m.To); err != nil {
		return fmt.Errorf("%w: invalid recipient %q", ErrSettingsInvalid, m.To)
	}
	return nil
}

func fromHeader(email, name string) string {
	if strings.TrimSpace(name) == "" {
		return email
	}
	return (&mail.Address{Name: mime.QEncoding.Encode("UTF-8", name), Address: email}).String()
}

func plainFrom(email, name string) string {
	if strings.TrimSpace(name) == "" {
		return email
	}
	return fmt.Sprintf("%s <%s>", name, email)
}

func httpClientOf(settings Settings) *http.Client {
	if settings.HTTPClient != nil {
		return settings.HTTPClient
	}
	return &http.Client{Timeout: defaultTimeout}
}

func withDefaultTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, defaultTimeout)
}

// IsRecipientRejected 根据服务端错误文本判断是否收件人被拒
func IsRecipientRejected(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRecipientRejected) {
		return true
	}
	message := strings.ToLower(strings.TrimSpace(err.Error()))
	for _, keyword := range []string{
		"no such recipient",
		"no such user",
		"recipient not found",
		"recipient address rejected",
		"invalid recipient",
		"user unknown",
		"unknown user",
		"unknown mailbox",
		"mailbox unavailable",
	} {
		if strings.Contains(message, keyword) {
			return true
		}
	}
	if strings.Contains(message, "550") {
		for _, hint := range []string{"recipient", "user", "mailbox", "address", "rcpt"} {
			if strings.Contains(message, hint) {
				return true
			}
		}
	}
	return false
}

func normalizeSendError(err error) error {
	if err == nil {
		return nil
	}
	if IsRecipientRejected(err) && !errors.Is(err, ErrRecipientRejected) {
		return fmt.Errorf("%w: %v", ErrRecipientRejected, err)
	}
	return err
}
