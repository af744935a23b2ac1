package mailer

import (
	"sync"
)

// Email is one recorded Send call: who the booking email was addressed to,
// which template rendered it, and the template data.
type Email struct {
	Recipient    string
	TemplateFile string
	Data         any
}

// MockMailer records emails instead of delivering them, so tests can assert
// on confirmation emails without an SMTP server.
type MockMailer struct {
	mu   sync.Mutex
	sent []Email

	// SendErr, when set, is returned by every Send call.
	SendErr error
}

func NewMockMailer() *MockMailer {
	return &MockMailer{}
}

func (m *MockMailer) Send(recipient, templateFile string, data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SendErr != nil {
		return m.SendErr
	}

	m.sent = append(m.sent, Email{
		Recipient:    recipient,
		TemplateFile: templateFile,
		Data:         data,
	})

	return nil
}

// GetSentEmails returns a copy of every recorded email in send order.
func (m *MockMailer) GetSentEmails() []Email {
	m.mu.Lock()
	defer m.mu.Unlock()

	sent := make([]Email, len(m.sent))
	copy(sent, m.sent)

	return sent
}

// Reset discards the recorded emails.
func (m *MockMailer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sent = nil
}
