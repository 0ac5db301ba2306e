package llm

import "context"

// MockProvider is a canned-response test double, in the style of the
// reference backend's MockProvider (an availability flag plus a fixed
// response string/function).
type MockProvider struct {
	available bool
	response  string
	err       error
}

func NewMockProvider(response string) *MockProvider {
	return &MockProvider{available: true, response: response}
}

func NewUnavailableMockProvider() *MockProvider {
	return &MockProvider{available: false}
}

func NewFailingMockProvider(err error) *MockProvider {
	return &MockProvider{available: true, err: err}
}

func (m *MockProvider) IsAvailable() bool { return m.available }

func (m *MockProvider) Complete(ctx context.Context, prompt string, opts CompletionOptions) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}
