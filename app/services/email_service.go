// Package services provides external service integrations and technical concerns like notifications and tokens
package services

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"gopkg.in/gomail.v2"
)

// EmailService handles outbound email delivery. Callers go through the
// quota gate in business_flow before reaching this service; nothing here
// knows about tenants or usage counters.
type EmailService interface {
	SendEmail(to, subject, body string) error
	SendHTMLEmail(to, subject, htmlBody string) error
}

// EmailProvider is the transport behind EmailService
type EmailProvider interface {
	Deliver(to, subject, body, contentType string) error
}

// EmailServiceImpl implements EmailService
type EmailServiceImpl struct {
	provider EmailProvider
}

// NewEmailService creates a new email service
func NewEmailService(provider EmailProvider) EmailService {
	return &EmailServiceImpl{provider: provider}
}

// SendEmail sends a plain-text email to the specified address
func (s *EmailServiceImpl) SendEmail(to, subject, body string) error {
	if s.provider == nil {
		return fmt.Errorf("email provider not configured")
	}

	// Basic email validation
	if len(to) == 0 || !strings.Contains(to, "@") {
		return fmt.Errorf("invalid email address: %s", to)
	}

	return s.provider.Deliver(to, subject, body, "text/plain")
}

// SendHTMLEmail sends an HTML email to the specified address
func (s *EmailServiceImpl) SendHTMLEmail(to, subject, htmlBody string) error {
	if s.provider == nil {
		return fmt.Errorf("email provider not configured")
	}

	if len(to) == 0 || !strings.Contains(to, "@") {
		return fmt.Errorf("invalid email address: %s", to)
	}

	return s.provider.Deliver(to, subject, htmlBody, "text/html")
}

// SMTPEmailProvider delivers mail over SMTP
type SMTPEmailProvider struct {
	host      string
	port      int
	username  string
	password  string
	fromEmail string
	fromName  string
}

// NewSMTPEmailProvider creates an SMTP-backed email provider
func NewSMTPEmailProvider(host string, port int, username, password, fromEmail, fromName string) EmailProvider {
	return &SMTPEmailProvider{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

func (p *SMTPEmailProvider) Deliver(to, subject, body, contentType string) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", p.fromEmail, p.fromName)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody(contentType, body)

	d := gomail.NewDialer(p.host, p.port, p.username, p.password)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email via SMTP: %w", err)
	}

	return nil
}

// MockEmailProvider logs deliveries instead of sending them. Used in
// development and tests. Safe for concurrent use since some callers
// dispatch emails from goroutines.
type MockEmailProvider struct {
	mu   sync.Mutex
	Sent []MockDelivery
}

// MockDelivery records a single delivery made through the mock provider
type MockDelivery struct {
	To      string
	Subject string
	Body    string
}

// NewMockEmailProvider creates a mock email provider
func NewMockEmailProvider() *MockEmailProvider {
	return &MockEmailProvider{}
}

func (p *MockEmailProvider) Deliver(to, subject, body, contentType string) error {
	p.mu.Lock()
	p.Sent = append(p.Sent, MockDelivery{To: to, Subject: subject, Body: body})
	p.mu.Unlock()
	log.Printf("Email sent to %s [%s]: %s", to, subject, body)
	return nil
}

// Deliveries returns a snapshot of everything delivered so far
func (p *MockEmailProvider) Deliveries() []MockDelivery {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]MockDelivery(nil), p.Sent...)
}

// FailingEmailProvider always returns an error. Used in tests that exercise
// the delivery-failure path of the quota gate.
type FailingEmailProvider struct{}

// NewFailingEmailProvider creates an email provider that rejects every delivery
func NewFailingEmailProvider() EmailProvider {
	return &FailingEmailProvider{}
}

func (p *FailingEmailProvider) Deliver(to, subject, body, contentType string) error {
	return fmt.Errorf("email delivery failed: provider unavailable")
}
