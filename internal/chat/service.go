// Package chat answers one user message: local intent first, remote model
// otherwise, and records the exchange.
package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"cipherbot/apps/backend/internal/intent"
	"cipherbot/apps/backend/internal/llm"
	"cipherbot/apps/backend/internal/store"
)

const (
	DefaultUserID int64 = 1

	SourceIntent = "intent"
	SourceLLM    = "llm"
)

var ErrEmptyMessage = errors.New("message cannot be empty")

type Request struct {
	Message   string
	UserID    int64
	Reasoning bool
}

type Result struct {
	Response      string
	ReasoningUsed bool
	Source        string
	// Intent is set when the answer came from a stored intent.
	Intent *store.Intent
	// Conversation is nil when the exchange could not be saved.
	Conversation *store.Conversation
}

type Service struct {
	store store.Driver
	llm   llm.Client
	now   func() time.Time
}

func NewService(driver store.Driver, client llm.Client) *Service {
	return &Service{store: driver, llm: client, now: time.Now}
}

func (s *Service) Reply(ctx context.Context, req Request) (Result, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return Result{}, ErrEmptyMessage
	}
	userID := req.UserID
	if userID == 0 {
		userID = DefaultUserID
	}

	var local *intent.Result
	intents, err := s.store.ListIntents(ctx)
	if err != nil {
		log.Error().Err(err).Msg("[chat] failed to load intents")
	} else if match, ok := intent.Match(message, intents); ok {
		local = &match
	}

	result := Result{ReasoningUsed: req.Reasoning || local == nil}
	// An intent with an empty response still counts as a match for
	// ReasoningUsed, but the answer comes from the model.
	if local != nil && local.Intent.Response != "" && !req.Reasoning {
		result.Response = local.Intent.Response
		result.Source = SourceIntent
		result.Intent = local.Intent
		log.Debug().Str("intent", local.Intent.Name).Str("keyword", local.Keyword).Msg("[chat] intent matched")
	} else {
		result.Response = s.generate(ctx, message, req.Reasoning)
		result.Source = SourceLLM
	}

	conversation, err := s.store.CreateConversation(ctx, &store.Conversation{
		UserID:    userID,
		Message:   message,
		Response:  result.Response,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("[chat] failed to save conversation")
	} else {
		result.Conversation = conversation
	}
	return result, nil
}

func (s *Service) generate(ctx context.Context, message string, reasoning bool) string {
	startedAt := s.now()
	resp, err := s.llm.Generate(ctx, llm.Request{Message: message, Reasoning: reasoning})
	if err != nil {
		log.Warn().
			Err(err).
			Str("provider", s.llm.Name()).
			Bool("reasoning", reasoning).
			Dur("elapsed", s.now().Sub(startedAt)).
			Msg("[chat] llm call failed")
		return llm.FallbackMessage(s.llm.Name(), err)
	}
	log.Info().
		Str("provider", s.llm.Name()).
		Str("model", resp.Model).
		Bool("reasoning", reasoning).
		Dur("elapsed", s.now().Sub(startedAt)).
		Msg("[chat] llm answered")
	return resp.Text
}
