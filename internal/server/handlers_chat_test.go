package server

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"testing"

	"cipherbot/apps/backend/internal/llm"
	"cipherbot/apps/backend/internal/store"
)

var clockPattern = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}$`)

func TestChatRejectsEmptyMessage(t *testing.T) {
	env := newTestEnv(t)

	for _, body := range []any{
		map[string]any{"message": ""},
		map[string]any{"message": "   \t  "},
		map[string]any{"reasoning": true},
	} {
		res := performRequest(t, env.router, http.MethodPost, "/chat", body, nil)
		assertStatus(t, res, http.StatusBadRequest)
		if got := decodeJSONMap(t, res)["error"]; got != "Message cannot be empty" {
			t.Fatalf("unexpected error message: %v", got)
		}
	}

	if count := env.conversationCount(t); count != 0 {
		t.Fatalf("expected no conversations, got %d", count)
	}
	if calls := env.llm.calls(); len(calls) != 0 {
		t.Fatalf("expected no llm calls, got %d", len(calls))
	}
}

func TestChatUndecodableBodyIsGenericFailure(t *testing.T) {
	env := newTestEnv(t)

	for _, body := range []string{
		`{`,
		`[1, 2]`,
		`{"message": 42}`,
		`{"message":"hi","user_id":"abc"}`,
		`{"message":"hi","user_id":-3}`,
	} {
		res := performRequest(t, env.router, http.MethodPost, "/chat", body, nil)
		assertStatus(t, res, http.StatusInternalServerError)
		if got := decodeJSONMap(t, res)["error"]; got != "Something went wrong. Please try again." {
			t.Fatalf("body %s: unexpected error message: %v", body, got)
		}
	}
	if count := env.conversationCount(t); count != 0 {
		t.Fatalf("expected no conversations, got %d", count)
	}
	if calls := env.llm.calls(); len(calls) != 0 {
		t.Fatalf("expected no llm calls, got %d", len(calls))
	}
}

func TestChatReasoningFlagIsTruthy(t *testing.T) {
	cases := []struct {
		raw  string
		want bool
	}{
		{raw: `true`, want: true},
		{raw: `1`, want: true},
		{raw: `"yes"`, want: true},
		{raw: `"false"`, want: true},
		{raw: `[0]`, want: true},
		{raw: `false`, want: false},
		{raw: `0`, want: false},
		{raw: `""`, want: false},
		{raw: `null`, want: false},
		{raw: `{}`, want: false},
	}

	for _, tc := range cases {
		env := newTestEnv(t)
		body := `{"message":"hello","reasoning":` + tc.raw + `}`

		res := performRequest(t, env.router, http.MethodPost, "/chat", body, nil)
		assertStatus(t, res, http.StatusOK)

		payload := decodeJSONMap(t, res)
		if payload["reasoning_used"] != tc.want {
			t.Fatalf("reasoning %s: expected reasoning_used=%v, got %v", tc.raw, tc.want, payload["reasoning_used"])
		}
		calls := env.llm.calls()
		if tc.want && (len(calls) != 1 || !calls[0].Reasoning) {
			t.Fatalf("reasoning %s: expected one reasoning llm call, got %+v", tc.raw, calls)
		}
		if !tc.want && len(calls) != 0 {
			t.Fatalf("reasoning %s: expected greeting intent without llm, got %+v", tc.raw, calls)
		}
	}
}

func TestChatAnswersFromIntent(t *testing.T) {
	env := newTestEnv(t)

	res := performRequest(t, env.router, http.MethodPost, "/chat", map[string]any{"message": "Good morning!!"}, nil)
	assertStatus(t, res, http.StatusOK)

	body := decodeJSONMap(t, res)
	if body["response"] != store.DefaultIntents()[0].Response {
		t.Fatalf("expected greeting response, got %v", body["response"])
	}
	if body["reasoning_used"] != false {
		t.Fatalf("expected reasoning_used=false, got %v", body["reasoning_used"])
	}
	timestamp, _ := body["timestamp"].(string)
	if !clockPattern.MatchString(timestamp) {
		t.Fatalf("expected HH:MM:SS timestamp, got %q", timestamp)
	}
	if calls := env.llm.calls(); len(calls) != 0 {
		t.Fatalf("expected intent path to skip llm, got %d calls", len(calls))
	}
	if count := env.conversationCount(t); count != 1 {
		t.Fatalf("expected one conversation, got %d", count)
	}
}

func TestChatReasoningUsesLLMEvenWhenIntentMatches(t *testing.T) {
	env := newTestEnv(t)

	res := performRequest(t, env.router, http.MethodPost, "/chat", map[string]any{"message": "hello", "reasoning": true}, nil)
	assertStatus(t, res, http.StatusOK)

	body := decodeJSONMap(t, res)
	if body["response"] != "remote answer" {
		t.Fatalf("expected remote answer, got %v", body["response"])
	}
	if body["reasoning_used"] != true {
		t.Fatalf("expected reasoning_used=true, got %v", body["reasoning_used"])
	}
	calls := env.llm.calls()
	if len(calls) != 1 || !calls[0].Reasoning || calls[0].Message != "hello" {
		t.Fatalf("unexpected llm calls: %+v", calls)
	}
	if count := env.conversationCount(t); count != 1 {
		t.Fatalf("expected one conversation, got %d", count)
	}
}

func TestChatFallsBackToLLMWithoutMatch(t *testing.T) {
	env := newTestEnv(t)

	res := performRequest(t, env.router, http.MethodPost, "/chat", map[string]any{"message": "What is the capital of Peru?"}, nil)
	assertStatus(t, res, http.StatusOK)

	body := decodeJSONMap(t, res)
	if body["response"] != "remote answer" {
		t.Fatalf("expected remote answer, got %v", body["response"])
	}
	if body["reasoning_used"] != true {
		t.Fatalf("expected reasoning_used=true when nothing matched, got %v", body["reasoning_used"])
	}
	calls := env.llm.calls()
	if len(calls) != 1 || calls[0].Reasoning {
		t.Fatalf("expected one standard llm call, got %+v", calls)
	}
}

func TestChatAcceptsNumericStringUserID(t *testing.T) {
	env := newTestEnv(t)

	for _, body := range []string{
		`{"message":"thanks a lot","user_id":"7"}`,
		`{"message":"thanks again","user_id":7}`,
	} {
		res := performRequest(t, env.router, http.MethodPost, "/chat", body, nil)
		assertStatus(t, res, http.StatusOK)
	}
	res := performRequest(t, env.router, http.MethodPost, "/chat", map[string]any{"message": "bye"}, nil)
	assertStatus(t, res, http.StatusOK)

	ctx := context.Background()
	seven := int64(7)
	count, err := env.store.CountConversations(ctx, &store.FindConversation{UserID: &seven})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 conversations for user 7, got %d", count)
	}
	one := int64(1)
	count, err = env.store.CountConversations(ctx, &store.FindConversation{UserID: &one})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected default user 1 to own one conversation, got %d", count)
	}
}

func TestChatConvertsLLMFailures(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{err: llm.ErrMissingAPIKey, want: "API key for Gemini is not configured. Please check your .env file."},
		{err: &llm.StatusError{Provider: "Gemini", StatusCode: http.StatusNotFound}, want: "Error: The AI model was not found. Please verify the model name and API version."},
		{err: &llm.StatusError{Provider: "Gemini", StatusCode: http.StatusBadRequest}, want: "Error: Bad request. Please check your API key and prompt structure."},
		{err: &llm.StatusError{Provider: "Gemini", StatusCode: http.StatusServiceUnavailable}, want: "I'm having trouble connecting right now. Please try again in a moment."},
		{err: llm.ErrTransport, want: "I'm experiencing connectivity issues. Please try again shortly."},
		{err: llm.ErrUnexpectedResponse, want: "I received an unexpected response. Please try again."},
	}

	for _, tc := range cases {
		env := newTestEnv(t)
		env.llm.err = tc.err

		res := performRequest(t, env.router, http.MethodPost, "/chat", map[string]any{"message": "summarize the news"}, nil)
		assertStatus(t, res, http.StatusOK)
		if got := decodeJSONMap(t, res)["response"]; got != tc.want {
			t.Fatalf("error %v: expected %q, got %v", tc.err, tc.want, got)
		}
		if count := env.conversationCount(t); count != 1 {
			t.Fatalf("expected failed llm exchange to be saved, got %d rows", count)
		}
	}
}

func TestChatSurvivesDatabaseOutage(t *testing.T) {
	remote := &fakeLLM{text: "answered anyway"}
	router := New(newTestConfig(), failingStore{}, remote).Router()

	res := performRequest(t, router, http.MethodPost, "/chat", map[string]any{"message": "hello"}, nil)
	assertStatus(t, res, http.StatusOK)

	body := decodeJSONMap(t, res)
	if body["response"] != "answered anyway" {
		t.Fatalf("expected llm answer when intents cannot load, got %v", body["response"])
	}
	if body["reasoning_used"] != true {
		t.Fatalf("expected reasoning_used=true, got %v", body["reasoning_used"])
	}
}

func TestChatRecoversFromPanic(t *testing.T) {
	env := newTestEnv(t)
	env.llm.panics = true

	res := performRequest(t, env.router, http.MethodPost, "/chat", map[string]any{"message": "trigger the remote path"}, nil)
	assertStatus(t, res, http.StatusInternalServerError)
	if got := decodeJSONMap(t, res)["error"]; got != "Something went wrong. Please try again." {
		t.Fatalf("unexpected error message: %v", got)
	}
}

func TestFlexUserIDUnmarshal(t *testing.T) {
	cases := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{raw: `12`, want: 12},
		{raw: `"12"`, want: 12},
		{raw: `" 5 "`, want: 5},
		{raw: `null`, want: 0},
		{raw: `""`, want: 0},
		{raw: `"x"`, wantErr: true},
		{raw: `1.5`, wantErr: true},
		{raw: `-1`, wantErr: true},
	}

	for _, tc := range cases {
		var id flexUserID
		err := json.Unmarshal([]byte(tc.raw), &id)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%s: expected error", tc.raw)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.raw, err)
		}
		if int64(id) != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.raw, tc.want, id)
		}
	}
}
