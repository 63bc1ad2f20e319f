package email

import (
	"strings"
	"testing"

	"kpiboard/internal/platform/config"
)

func TestNewReturnsNoopWhenDisabled(t *testing.T) {
	if _, ok := New(config.Config{EmailEnabled: false, SMTPHost: "smtp.example.com"}).(NoopMailer); !ok {
		t.Fatal("expected noop mailer when email is disabled")
	}
	if _, ok := New(config.Config{EmailEnabled: true}).(NoopMailer); !ok {
		t.Fatal("expected noop mailer without a host")
	}
	if _, ok := New(config.Config{EmailEnabled: true, SMTPHost: "smtp.example.com", SMTPPort: 587}).(*smtpMailer); !ok {
		t.Fatal("expected smtp mailer")
	}
}

func TestBuildMessageStripsHeaderBreaks(t *testing.T) {
	msg := string(buildMessage("a@example.com", "b@example.com", "Reviews due\r\nBcc: x@example.com", "body"))
	if strings.Contains(msg, "\r\nBcc:") {
		t.Fatalf("header injection not stripped: %q", msg)
	}
	if !strings.HasSuffix(msg, "\r\n\r\nbody") {
		t.Fatalf("expected body after blank line, got %q", msg)
	}
}
