// Package mailer はSMTPによるメール送信を提供する。
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/citary/internal/model"
)

const verificationSubject = "メールアドレスの確認"

// Config はSMTP接続設定。
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// sendFunc はsmtp.SendMailと同じシグネチャ。テストで差し替える。
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPSender はSMTPでメールを送信する。
type SMTPSender struct {
	cfg  Config
	send sendFunc
	now  func() time.Time
}

// NewSMTPSender はSMTPSenderを生成する。
func NewSMTPSender(cfg Config) *SMTPSender {
	return &SMTPSender{
		cfg:  cfg,
		send: smtp.SendMail,
		now:  time.Now,
	}
}

// SendVerification はメール確認リンクを含むメールを送信する。
func (s *SMTPSender) SendVerification(ctx context.Context, user *model.User, verifyURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var body strings.Builder
	fmt.Fprintf(&body, "%s 様\r\n\r\n", displayName(user))
	body.WriteString("ご登録ありがとうございます。\r\n")
	body.WriteString("以下のリンクからメールアドレスの確認を完了してください。\r\n\r\n")
	body.WriteString(verifyURL + "\r\n\r\n")
	body.WriteString("このリンクの有効期限は24時間です。\r\n")
	body.WriteString("お心当たりのない場合は、このメールを破棄してください。\r\n")

	msg := s.buildMessage(user.Email, verificationSubject, body.String())
	if err := s.deliver([]string{user.Email}, msg); err != nil {
		return fmt.Errorf("send verification mail: %w", err)
	}

	slog.Info("verification mail sent", slog.String("user_id", user.ID))
	return nil
}

func (s *SMTPSender) deliver(to []string, msg []byte) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	return s.send(addr, auth, s.cfg.From, to, msg)
}

// buildMessage はプレーンテキストのメッセージを組み立てる。
func (s *SMTPSender) buildMessage(to, subject, body string) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", s.cfg.From)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.BEncoding.Encode("UTF-8", subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", s.now().Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	buf.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(body)
	return buf.Bytes()
}

func displayName(user *model.User) string {
	if name := user.FullName(); name != "" {
		return name
	}
	return user.Email
}
