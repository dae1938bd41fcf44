package notification

import (
	"context"
	"strings"
	"testing"
)

func TestTemplateEngine_RegisterAndRender(t *testing.T) {
	eng := NewTemplateEngine()
	eng.RegisterTemplate(Template{
		ID:      "test-tpl",
		Subject: "Hello {{name}}",
		Body:    "Dear {{name}}, your code is {{code}}.",
	})

	subject, body, err := eng.Render("test-tpl", map[string]string{
		"name": "Alice",
		"code": "1234",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if subject != "Hello Alice" {
		t.Errorf("subject = %q, want %q", subject, "Hello Alice")
	}
	if body != "Dear Alice, your code is 1234." {
		t.Errorf("body = %q", body)
	}
}

func TestTemplateEngine_UnknownTemplate(t *testing.T) {
	eng := NewTemplateEngine()
	if _, _, err := eng.Render("does-not-exist", nil); err == nil {
		t.Error("expected error for unknown template")
	}
}

func TestTemplateEngine_BuiltInTemplates(t *testing.T) {
	eng := NewTemplateEngine()
	for _, purpose := range []string{PurposeEmailVerification, PurposePasswordReset, PurposePinReset} {
		_, body, err := eng.Render(purpose, map[string]string{"code": "654321", "minutes": "10"})
		if err != nil {
			t.Errorf("render %s: %v", purpose, err)
			continue
		}
		if !strings.Contains(body, "654321") {
			t.Errorf("%s body missing code: %q", purpose, body)
		}
	}
}

func TestMailer_SendCode(t *testing.T) {
	sender := &MockEmailSender{}
	mailer := NewMailer(sender, NewTemplateEngine())

	err := mailer.SendCode(context.Background(), "alice@example.com", "123456", PurposeEmailVerification)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	calls := sender.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	if calls[0].To != "alice@example.com" {
		t.Errorf("to = %s", calls[0].To)
	}
	if !strings.Contains(calls[0].Body, "123456") {
		t.Errorf("body missing code: %q", calls[0].Body)
	}
	if !strings.Contains(calls[0].Body, "10 minutes") {
		t.Errorf("verification body should mention the 10 minute window: %q", calls[0].Body)
	}
}

func TestMailer_PinResetWindow(t *testing.T) {
	sender := &MockEmailSender{}
	mailer := NewMailer(sender, NewTemplateEngine())

	if err := mailer.SendCode(context.Background(), "alice@example.com", "123456", PurposePinReset); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	calls := sender.Calls()
	if !strings.Contains(calls[0].Body, "30 minutes") {
		t.Errorf("pin reset body should mention the 30 minute window: %q", calls[0].Body)
	}
}

func TestMailer_UnknownPurpose(t *testing.T) {
	mailer := NewMailer(&MockEmailSender{}, NewTemplateEngine())
	if err := mailer.SendCode(context.Background(), "a@example.com", "123456", "carrier-pigeon"); err == nil {
		t.Error("expected error for unknown purpose")
	}
}

func TestMailer_SenderFailure(t *testing.T) {
	sender := &MockEmailSender{ShouldFail: true, FailError: "smtp down"}
	mailer := NewMailer(sender, NewTemplateEngine())

	err := mailer.SendCode(context.Background(), "a@example.com", "123456", PurposePasswordReset)
	if err == nil {
		t.Error("expected sender failure to propagate")
	}
}
