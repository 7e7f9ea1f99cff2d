package telegram

import (
	"context"
	"log/slog"
)

// MockProvider is a mock message provider for local development and tests.
type MockProvider struct {
	logger *slog.Logger
}

// NewMockProvider creates a new mock message provider.
func NewMockProvider(logger *slog.Logger) *MockProvider {
	return &MockProvider{
		logger: logger,
	}
}

// Send logs the message instead of delivering it.
func (m *MockProvider) Send(ctx context.Context, chatID, text, linkURL, linkText string) error {
	m.logger.Info("MOCK TELEGRAM MESSAGE",
		"chat_id", chatID,
		"text_length", len(text),
		"link_url", linkURL)
	return nil
}
