package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const sendGridBaseURL = "https://api.sendgrid.com"

// SendGridProvider SendGrid v3 API
type SendGridProvider struct {
	settings Settings
	baseURL  string
	client   *http.Client
}

// NewSendGridProvider 创建 SendGrid Provider
func NewSendGridProvider(settings Settings) (*SendGridProvider, error) {
	if strings.TrimSpace(settings.APIKey) == "" {
		return nil, fmt.Errorf("%w: sendgrid api key is required", ErrSettingsInvalid)
	}
	baseURL := strings.TrimRight(strings.TrimSpace(settings.BaseURL), "/")
	if baseURL == "" {
		baseURL = sendGridBaseURL
	}
	return &SendGridProvider{settings: settings, baseURL: baseURL, client: httpClientOf(settings)}, nil
}

// Kind 服务类型
func (p *SendGridProvider) Kind() ProviderKind {
	return KindSendGrid
}

// TestConnection 读取账户资料校验 API Key
func (p *SendGridProvider) TestConnection(ctx context.Context) error {
	req, err := http.NewRequest(http.MethodGet, p.baseURL+"/v3/user/profile", nil)
	if err != nil {
		return fmt.Errorf("%w: build request failed", ErrRequestFailed)
	}
	req.Header.Set("Authorization", "Bearer "+p.settings.APIKey)
	body, resp, err := doRequest(ctx, p.client, req)
	if err != nil {
		return err
	}
	if !isSuccess(resp) {
		return statusError("sendgrid profile", resp, body)
	}
	return nil
}

type sendGridAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sendGridContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sendGridToggle struct {
	Enable bool `json:"enable"`
}

type sendGridPersonalization struct {
	To []sendGridAddress `json:"to"`
}

type sendGridRequest struct {
	Personalizations []sendGridPersonalization `json:"personalizations"`
	From             sendGridAddress           `json:"from"`
	Subject          string                    `json:"subject"`
	Content          []sendGridContent         `json:"content"`
	TrackingSettings struct {
		ClickTracking sendGridToggle `json:"click_tracking"`
		OpenTracking  sendGridToggle `json:"open_tracking"`
	} `json:"tracking_settings"`
}

// Send 调用 /v3/mail/send，消息 ID 取自 X-Message-Id 响应头
func (p *SendGridProvider) Send(ctx context.Context, msg Message) (SendResult, error) {
	if err := msg.validate(); err != nil {
		return SendResult{}, err
	}
	payload := sendGridRequest{
		Personalizations: []sendGridPersonalization{{To: []sendGridAddress{{Email: msg.To}}}},
		From:    sendGridAddress{Email: firstNonEmpty(msg.FromEmail, p.settings.FromEmail, p.settings.Username), Name: firstNonEmpty(msg.FromName, p.settings.FromName)},
		Subject: msg.Subject,
		Content: []sendGridContent{
			{Type: "text/plain", Value: msg.textBody()},
			{Type: "text/html", Value: msg.HTML},
		},
	}
	payload.TrackingSettings.ClickTracking.Enable = true
	payload.TrackingSettings.OpenTracking.Enable = true

	raw, err := json.Marshal(payload)
	if err != nil {
		return SendResult{}, fmt.Errorf("%w: marshal request failed", ErrRequestFailed)
	}
	req, err := http.NewRequest(http.MethodPost, p.baseURL+"/v3/mail/send", bytes.NewReader(raw))
	if err != nil {
		return SendResult{}, fmt.Errorf("%w: build request failed", ErrRequestFailed)
	}
	req.Header.Set("Authorization", "Bearer "+p.settings.APIKey)
	req.Header.Set("Content-Type", "application/json")

	body, resp, err := doRequest(ctx, p.client, req)
	if err != nil {
		return SendResult{}, err
	}
	if !isSuccess(resp) {
		return SendResult{}, statusError("sendgrid send", resp, body)
	}
	return SendResult{MessageID: resp.Header.Get("X-Message-Id")}, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
