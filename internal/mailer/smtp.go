package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

const smtpSSLPort = 465

// SMTPProvider 通过 SMTP 发信
type SMTPProvider struct {
	settings Settings
	dialer   net.Dialer
}

// NewSMTPProvider 创建 SMTP Provider
func NewSMTPProvider(settings Settings) (*SMTPProvider, error) {
	settings.Host = strings.TrimSpace(settings.Host)
	if settings.Host == "" || settings.Port <= 0 {
		return nil, fmt.Errorf("%w: smtp host and port are required", ErrSettingsInvalid)
	}
	if strings.TrimSpace(settings.FromEmail) == "" {
		settings.FromEmail = settings.Username
	}
	if strings.TrimSpace(settings.FromEmail) == "" {
		return nil, fmt.Errorf("%w: smtp from address is required", ErrSettingsInvalid)
	}
	if settings.Port == smtpSSLPort {
		settings.UseSSL = true
	}
	return &SMTPProvider{settings: settings, dialer: net.Dialer{Timeout: defaultTimeout}}, nil
}

// Kind 服务类型
func (p *SMTPProvider) Kind() ProviderKind {
	return KindSMTP
}

// TestConnection 建立连接并完成 EHLO/AUTH 后退出
func (p *SMTPProvider) TestConnection(ctx context.Context) error {
	ctx, cancel := withDefaultTimeout(ctx)
	defer cancel()
	client, err := p.open(ctx)
	if err != nil {
		return err
	}
	defer client.Close()
	return client.Quit()
}

// Send 发送 multipart/alternative 邮件
func (p *SMTPProvider) Send(ctx context.Context, msg Message) (SendResult, error) {
	if err := msg.validate(); err != nil {
		return SendResult{}, err
	}
	if msg.FromEmail == "" {
		msg.FromEmail = p.settings.FromEmail
	}
	if msg.FromName == "" {
		msg.FromName = p.settings.FromName
	}
	messageID := fmt.Sprintf("<%s@%s>", ulid.Make().String(), p.settings.Host)
	payload, err := buildMIMEMessage(msg, messageID, time.Now())
	if err != nil {
		return SendResult{}, err
	}

	ctx, cancel := withDefaultTimeout(ctx)
	defer cancel()
	client, err := p.open(ctx)
	if err != nil {
		return SendResult{}, err
	}
	defer client.Close()

	if err := sendSMTPData(client, p.settings.Username, msg.FromEmail, msg.To, payload); err != nil {
		return SendResult{}, normalizeSendError(err)
	}
	return SendResult{MessageID: messageID}, nil
}

func (p *SMTPProvider) open(ctx context.Context) (*smtp.Client, error) {
	addr := net.JoinHostPort(p.settings.Host, fmt.Sprintf("%d", p.settings.Port))
	tlsConfig := &tls.Config{ServerName: p.settings.Host}

	var conn net.Conn
	var err error
	if p.settings.UseSSL {
		tlsDialer := &tls.Dialer{NetDialer: &p.dialer, Config: tlsConfig}
		conn, err = tlsDialer.DialContext(ctx, "tcp", addr)
	} else {
		conn, err = p.dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, p.settings.Host)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if !p.settings.UseSSL && p.settings.UseTLS {
		if err := client.StartTLS(tlsConfig); err != nil {
			_ = client.Close()
			return nil, err
		}
	}
	if p.settings.Username != "" || p.settings.Password != "" {
		if ok, _ := client.Extension("AUTH"); ok {
			auth := smtp.PlainAuth("", p.settings.Username, p.settings.Password, p.settings.Host)
			if err := client.Auth(auth); err != nil {
				_ = client.Close()
				return nil, err
			}
		}
	}
	return client, nil
}

// sendSMTPData 登录账号为邮箱地址时用作信封发件人
func sendSMTPData(client *smtp.Client, username, from, to string, payload []byte) error {
	envelopeFrom := from
	if strings.Contains(username, "@") {
		envelopeFrom = username
	}
	if err := client.Mail(envelopeFrom); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(payload); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func buildMIMEMessage(msg Message, messageID string, now time.Time) ([]byte, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	textHeader := textproto.MIMEHeader{}
	textHeader.Set("Content-Type", "text/plain; charset=UTF-8")
	textHeader.Set("Content-Transfer-Encoding", "8bit")
	textPart, err := writer.CreatePart(textHeader)
	if err != nil {
		return nil, err
	}
	if _, err := textPart.Write([]byte(msg.textBody())); err != nil {
		return nil, err
	}

	htmlHeader := textproto.MIMEHeader{}
	htmlHeader.Set("Content-Type", "text/html; charset=UTF-8")
	htmlHeader.Set("Content-Transfer-Encoding", "8bit")
	htmlPart, err := writer.CreatePart(htmlHeader)
	if err != nil {
		return nil, err
	}
	if _, err := htmlPart.Write([]byte(msg.HTML)); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("From: %s\r\n", fromHeader(msg.FromEmail, msg.FromName)))
	buf.WriteString(fmt.Sprintf("To: %s\r\n", msg.To))
	buf.WriteString(fmt.Sprintf("Subject: %s\r\n", mime.QEncoding.Encode("UTF-8", msg.Subject)))
	buf.WriteString(fmt.Sprintf("Date: %s\r\n", now.Format(time.RFC1123Z)))
	buf.WriteString(fmt.Sprintf("Message-ID: %s\r\n", messageID))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString(fmt.Sprintf("Content-Type: multipart/alternative; boundary=%q\r\n", writer.Boundary()))
	buf.WriteString("\r\n")
	buf.Write(body.Bytes())
	return buf.Bytes(), nil
}
