package mailer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const (
	mailgunBaseURL       = "https://api.mailgun.net"
	mailgunDefaultDomain = "sandbox.mailgun.org"
)

// MailgunProvider Mailgun v3 API
type MailgunProvider struct {
	settings Settings
	baseURL  string
	domain   string
	client   *http.Client
}

// NewMailgunProvider 创建 Mailgun Provider；APIEndpoint 为发信域名
func NewMailgunProvider(settings Settings) (*MailgunProvider, error) {
	if strings.TrimSpace(settings.APIKey) == "" {
		return nil, fmt.Errorf("%w: mailgun api key is required", ErrSettingsInvalid)
	}
	baseURL := strings.TrimRight(strings.TrimSpace(settings.BaseURL), "/")
	if baseURL == "" {
		baseURL = mailgunBaseURL
	}
	domain := strings.TrimSpace(settings.APIEndpoint)
	if domain == "" {
		domain = mailgunDefaultDomain
	}
	return &MailgunProvider{settings: settings, baseURL: baseURL, domain: domain, client: httpClientOf(settings)}, nil
}

// Kind 服务类型
func (p *MailgunProvider) Kind() ProviderKind {
	return KindMailgun
}

// Domain 实际使用的发信域名
func (p *MailgunProvider) Domain() string {
	return p.domain
}

// TestConnection 查询域名统计校验凭据
func (p *MailgunProvider) TestConnection(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/v3/%s/stats/total?event=delivered", p.baseURL, url.PathEscape(p.domain))
	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: build request failed", ErrRequestFailed)
	}
	req.SetBasicAuth("api", p.settings.APIKey)
	body, resp, err := doRequest(ctx, p.client, req)
	if err != nil {
		return err
	}
	if !isSuccess(resp) {
		return statusError("mailgun stats", resp, body)
	}
	return nil
}

// Send 表单提交 /v3/{domain}/messages
func (p *MailgunProvider) Send(ctx context.Context, msg Message) (SendResult, error) {
	if err := msg.validate(); err != nil {
		return SendResult{}, err
	}
	fromName := firstNonEmpty(msg.FromName, p.settings.FromName, "Campaign")
	form := url.Values{}
	form.Set("from", plainFrom(firstNonEmpty(msg.FromEmail, p.settings.FromEmail, p.settings.Username), fromName))
	form.Set("to", msg.To)
	form.Set("subject", msg.Subject)
	form.Set("html", msg.HTML)
	form.Set("text", msg.textBody())
	form.Set("o:tracking", "yes")
	form.Set("o:tracking-clicks", "yes")
	form.Set("o:tracking-opens", "yes")

	endpoint := fmt.Sprintf("%s/v3/%s/messages", p.baseURL, url.PathEscape(p.domain))
	req, err := http.NewRequest(http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return SendResult{}, fmt.Errorf("%w: build request failed", ErrRequestFailed)
	}
	req.SetBasicAuth("api", p.settings.APIKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, resp, err := doRequest(ctx, p.client, req)
	if err != nil {
		return SendResult{}, err
	}
	if !isSuccess(resp) {
		return SendResult{}, statusError("mailgun send", resp, body)
	}
	var decoded struct {
		ID      string `json:"id"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return SendResult{}, fmt.Errorf("%w: decode response failed", ErrResponseInvalid)
	}
	return SendResult{MessageID: decoded.ID}, nil
}
