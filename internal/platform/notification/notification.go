// Package notification delivers one-time codes over email. Delivery
// mechanics live behind the EmailSender interface; the package only renders
// templates and records outcomes.
package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Purposes mirror the one-time-code flows. Template IDs are keyed by these
// values so the account service can pass its flow name straight through.
const (
	PurposeEmailVerification = "email_verification"
	PurposePasswordReset     = "password_reset"
	PurposePinReset          = "pin_reset"
)

// EmailSender is the interface for sending email messages.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// Template defines a reusable notification template.
type Template struct {
	ID      string
	Subject string
	Body    string
}

// TemplateEngine manages notification templates and renders them with data.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewTemplateEngine creates a TemplateEngine with the built-in code
// templates pre-registered.
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{
		templates: make(map[string]*Template),
	}
	e.registerBuiltIn()
	return e
}

func (e *TemplateEngine) registerBuiltIn() {
	builtIn := []Template{
		{
			ID:      PurposeEmailVerification,
			Subject: "Verify your MedReport email",
			Body:    "Your verification code is {{code}}. It expires in {{minutes}} minutes.",
		},
		{
			ID:      PurposePasswordReset,
			Subject: "MedReport password reset",
			Body:    "Your password reset code is {{code}}. It expires in {{minutes}} minutes.",
		},
		{
			ID:      PurposePinReset,
			Subject: "MedReport admin PIN reset",
			Body:    "Your PIN reset code is {{code}}. It expires in {{minutes}} minutes.",
		},
	}
	for i := range builtIn {
		t := builtIn[i]
		e.templates[t.ID] = &t
	}
}

// RegisterTemplate adds or replaces a template in the engine.
func (e *TemplateEngine) RegisterTemplate(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = &t
}

// Render looks up a template by ID and performs {{key}} replacement using
// the supplied data map. Keys present in the template but absent from data
// are left as-is.
func (e *TemplateEngine) Render(templateID string, data map[string]string) (subject, body string, err error) {
	e.mu.RLock()
	t, ok := e.templates[templateID]
	e.mu.RUnlock()
	if !ok {
		return "", "", fmt.Errorf("template %q not found", templateID)
	}

	subject = t.Subject
	body = t.Body
	for k, v := range data {
		placeholder := "{{" + k + "}}"
		subject = strings.ReplaceAll(subject, placeholder, v)
		body = strings.ReplaceAll(body, placeholder, v)
	}
	return subject, body, nil
}

// Mailer renders a purpose template and hands the message to the sender.
// It implements the account service's Notifier interface.
type Mailer struct {
	sender    EmailSender
	templates *TemplateEngine
	windows   map[string]string
}

// NewMailer constructs a Mailer over the given sender.
func NewMailer(sender EmailSender, templates *TemplateEngine) *Mailer {
	return &Mailer{
		sender:    sender,
		templates: templates,
		windows: map[string]string{
			PurposeEmailVerification: "10",
			PurposePasswordReset:     "10",
			PurposePinReset:          "30",
		},
	}
}

// SendCode renders the template for the given purpose and sends it.
func (m *Mailer) SendCode(ctx context.Context, recipient, code, purpose string) error {
	minutes, ok := m.windows[purpose]
	if !ok {
		return fmt.Errorf("unknown code purpose %q", purpose)
	}

	subject, body, err := m.templates.Render(purpose, map[string]string{
		"code":    code,
		"minutes": minutes,
	})
	if err != nil {
		return fmt.Errorf("render template: %w", err)
	}

	if err := m.sender.SendEmail(ctx, recipient, subject, body); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

// LogSender writes outbound mail to the log instead of delivering it.
// Used in development where no mail transport is wired.
type LogSender struct {
	logger zerolog.Logger
}

func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) SendEmail(_ context.Context, to, subject, body string) error {
	s.logger.Info().
		Str("to", to).
		Str("subject", subject).
		Str("body", body).
		Msg("outbound email")
	return nil
}

// EmailCall records a single call to SendEmail.
type EmailCall struct {
	To      string
	Subject string
	Body    string
}

// MockEmailSender is a test double for EmailSender.
type MockEmailSender struct {
	mu         sync.Mutex
	calls      []EmailCall
	ShouldFail bool
	FailError  string
}

// SendEmail records the call and optionally returns an error.
func (m *MockEmailSender) SendEmail(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, EmailCall{To: to, Subject: subject, Body: body})
	if m.ShouldFail {
		return errors.New(m.FailError)
	}
	return nil
}

// Calls returns a copy of recorded email calls.
func (m *MockEmailSender) Calls() []EmailCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]EmailCall, len(m.calls))
	copy(out, m.calls)
	return out
}
