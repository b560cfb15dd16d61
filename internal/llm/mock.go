package llm

import (
	"context"
	"strings"
)

// MockClient answers without any network access. It backs LLM_PROVIDER=mock.
type MockClient struct {
	Model string
}

func (m MockClient) Name() string { return "Mock" }

func (m MockClient) Generate(_ context.Context, req Request) (Response, error) {
	question := strings.TrimSpace(req.Message)
	if question == "" {
		question = "No question provided."
	}

	answer := "Mock response: " + question
	if req.Reasoning {
		answer = "Mock reasoning response: " + question
	}

	model := strings.TrimSpace(m.Model)
	if model == "" {
		model = "mock"
	}
	return Response{Text: answer, Model: model}, nil
}
