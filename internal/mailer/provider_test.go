package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRejectsUnsupportedKinds(t *testing.T) {
	for _, kind := range []ProviderKind{KindSES, ProviderKind("carrier-pigeon")} {
		if _, err := New(Settings{Kind: kind, APIKey: "k"}); !errors.Is(err, ErrUnsupportedProvider) {
			t.Fatalf("kind %s: expected ErrUnsupportedProvider, got %v", kind, err)
		}
	}
	if _, err := New(Settings{Kind: KindSendGrid}); !errors.Is(err, ErrSettingsInvalid) {
		t.Fatalf("missing api key should be invalid, got %v", err)
	}
}

func TestSendGridProvider(t *testing.T) {
	var captured map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer SG.key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/v3/user/profile":
			_, _ = w.Write([]byte(`{"first_name":"ops"}`))
		case "/v3/mail/send":
			body, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(body, &captured)
			w.Header().Set("X-Message-Id", "sg-msg-1")
			w.WriteHeader(http.StatusAccepted)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	provider, err := New(Settings{Kind: KindSendGrid, APIKey: "SG.key", BaseURL: srv.URL, FromEmail: "news@example.com", FromName: "News"})
	if err != nil {
		t.Fatalf("new provider failed: %v", err)
	}
	if err := provider.TestConnection(context.Background()); err != nil {
		t.Fatalf("test connection failed: %v", err)
	}
	result, err := provider.Send(context.Background(), Message{To: "a@example.com", Subject: "Hi", HTML: "<p>Hello</p>"})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if result.MessageID != "sg-msg-1" {
		t.Fatalf("message id want sg-msg-1 got %s", result.MessageID)
	}
	from := captured["from"].(map[string]interface{})
	if from["email"] != "news@example.com" || from["name"] != "News" {
		t.Fatalf("unexpected from: %+v", from)
	}
	content := captured["content"].([]interface{})
	if len(content) != 2 || content[0].(map[string]interface{})["value"] != "Hello" {
		t.Fatalf("unexpected content: %+v", content)
	}

	bad, _ := New(Settings{Kind: KindSendGrid, APIKey: "wrong", BaseURL: srv.URL})
	if err := bad.TestConnection(context.Background()); !errors.Is(err, ErrResponseInvalid) {
		t.Fatalf("expected ErrResponseInvalid for bad key, got %v", err)
	}
}

func TestMailgunProvider(t *testing.T) {
	var form url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "api" || pass != "mg-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/v3/sandbox.mailgun.org/stats/total":
			_, _ = w.Write([]byte(`{"stats":[]}`))
		case r.Method == http.MethodPost && r.URL.Path == "/v3/sandbox.mailgun.org/messages":
			_ = r.ParseForm()
			form = r.PostForm
			_, _ = w.Write([]byte(`{"id":"<mg-1@sandbox>","message":"Queued. Thank you."}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	provider, err := New(Settings{Kind: KindMailgun, APIKey: "mg-key", BaseURL: srv.URL, Username: "sender@example.com", FromName: "Ops"})
	if err != nil {
		t.Fatalf("new provider failed: %v", err)
	}
	if provider.(*MailgunProvider).Domain() != "sandbox.mailgun.org" {
		t.Fatalf("default domain should be sandbox.mailgun.org")
	}
	if err := provider.TestConnection(context.Background()); err != nil {
		t.Fatalf("test connection failed: %v", err)
	}
	result, err := provider.Send(context.Background(), Message{To: "b@example.com", Subject: "Hello", HTML: "<b>Body</b>"})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if result.MessageID != "<mg-1@sandbox>" {
		t.Fatalf("unexpected message id: %s", result.MessageID)
	}
	if form.Get("from") != "Ops <sender@example.com>" || form.Get("text") != "Body" || form.Get("o:tracking") != "yes" {
		t.Fatalf("unexpected form: %v", form)
	}
}

func TestResendProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodGet {
			_, _ = w.Write([]byte(`{"data":[]}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"re_123"}`))
	}))
	defer srv.Close()

	provider, err := New(Settings{Kind: KindResend, APIKey: "re_key", BaseURL: srv.URL, FromEmail: "hello@example.com"})
	if err != nil {
		t.Fatalf("new provider failed: %v", err)
	}
	if err := provider.TestConnection(context.Background()); err != nil {
		t.Fatalf("test connection failed: %v", err)
	}
	result, err := provider.Send(context.Background(), Message{To: "c@example.com", Subject: "s", HTML: "<p>x</p>"})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if result.MessageID != "re_123" {
		t.Fatalf("unexpected message id: %s", result.MessageID)
	}
}

func TestBuildMIMEMessage(t *testing.T) {
	raw, err := buildMIMEMessage(Message{
		FromEmail: "ops@example.com",
		FromName:  "Ops Team",
		To:        "d@example.com",
		Subject:   "Weekly",
		HTML:      "<h1>News</h1><p>Item</p>",
	}, "<id@smtp.example.com>", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	if err != nil {
		t.Fatalf("build mime failed: %v", err)
	}
	text := string(raw)
	for _, want := range []string{
		"Message-ID: <id@smtp.example.com>\r\n",
		"Content-Type: multipart/alternative; boundary=",
		"Content-Type: text/plain; charset=UTF-8",
		"News\nItem",
		"Content-Type: text/html; charset=UTF-8",
		"<h1>News</h1><p>Item</p>",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("mime message missing %q:\n%s", want, text)
		}
	}
	if strings.Index(text, "text/plain") > strings.Index(text, "text/html") {
		t.Fatalf("text part should precede html part")
	}
}

func TestIsRecipientRejected(t *testing.T) {
	cases := map[string]bool{
		"550 5.1.1 User unknown":            true,
		"550 mailbox not found for address": true,
		"421 service not available":         false,
		"":                                  false,
	}
	for msg, want := range cases {
		var err error
		if msg != "" {
			err = errors.New(msg)
		}
		if got := IsRecipientRejected(err); got != want {
			t.Fatalf("IsRecipientRejected(%q) want %v got %v", msg, want, got)
		}
	}
}

type stubProvider struct {
	err error
}

func (s *stubProvider) Kind() ProviderKind                   { return KindSMTP }
func (s *stubProvider) TestConnection(context.Context) error { return s.err }
func (s *stubProvider) Send(context.Context, Message) (SendResult, error) {
	return SendResult{MessageID: "m"}, s.err
}

func TestMetricsProviderCountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	// 重复注册复用已有采集器
	again := NewMetrics(reg)

	ok := metrics.Wrap(&stubProvider{})
	failing := again.Wrap(&stubProvider{err: errors.New("550 no such user")})
	_, _ = ok.Send(context.Background(), Message{})
	_, _ = ok.Send(context.Background(), Message{})
	_, _ = failing.Send(context.Background(), Message{})

	if got := testutil.ToFloat64(metrics.sendTotal.WithLabelValues("smtp", "success")); got != 2 {
		t.Fatalf("success count want 2 got %v", got)
	}
	if got := testutil.ToFloat64(metrics.sendTotal.WithLabelValues("smtp", "rejected")); got != 1 {
		t.Fatalf("rejected count want 1 got %v", got)
	}
}

func TestSMTPPresets(t *testing.T) {
	preset, ok := LookupSMTPPreset(" Gmail ")
	if !ok || preset.Host != "smtp.gmail.com" || preset.Port != 587 {
		t.Fatalf("unexpected gmail preset: %+v", preset)
	}
	if _, ok := LookupSMTPPreset("custom"); ok {
		t.Fatalf("custom should not be a fixed preset")
	}
	all := SMTPPresets(SMTPPreset{Host: "mail.internal", Port: 2525})
	if len(all) != 5 || all[len(all)-1].Name != "custom" || all[len(all)-1].Host != "mail.internal" {
		t.Fatalf("unexpected preset list: %+v", all)
	}
}
