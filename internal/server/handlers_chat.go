package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"cipherbot/apps/backend/internal/chat"
)

const chatTimestampLayout = "15:04:05"

type chatRequest struct {
	Message   string     `json:"message"`
	UserID    flexUserID `json:"user_id"`
	Reasoning flexBool   `json:"reasoning"`
}

type chatResponse struct {
	Response      string `json:"response"`
	Timestamp     string `json:"timestamp"`
	ReasoningUsed bool   `json:"reasoning_used"`
}

// flexUserID accepts a JSON number or a numeric string. Zero means unset.
type flexUserID int64

func (u *flexUserID) UnmarshalJSON(data []byte) error {
	raw := bytes.TrimSpace(data)
	if bytes.Equal(raw, []byte("null")) {
		*u = 0
		return nil
	}
	if len(raw) > 0 && raw[0] == '"' {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return err
		}
		raw = []byte(strings.TrimSpace(text))
		if len(raw) == 0 {
			*u = 0
			return nil
		}
	}
	value, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return fmt.Errorf("user_id must be an integer: %w", err)
	}
	if value < 0 {
		return errors.New("user_id must not be negative")
	}
	*u = flexUserID(value)
	return nil
}

// flexBool follows JSON truthiness: false, null, 0, "", [] and {} are false,
// any other value is true.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	switch v := value.(type) {
	case bool:
		*b = flexBool(v)
	case float64:
		*b = v != 0
	case string:
		*b = v != ""
	case []any:
		*b = len(v) > 0
	case map[string]any:
		*b = len(v) > 0
	default:
		*b = false
	}
	return nil
}

func (a *App) postChat(c *gin.Context) {
	var payload chatRequest
	if !mustJSON(c, &payload) {
		return
	}

	result, err := a.chat.Reply(c.Request.Context(), chat.Request{
		Message:   payload.Message,
		UserID:    int64(payload.UserID),
		Reasoning: bool(payload.Reasoning),
	})
	if errors.Is(err, chat.ErrEmptyMessage) {
		writeError(c, http.StatusBadRequest, "Message cannot be empty")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("request_id", c.GetString(requestIDKey)).Msg("[chat] reply failed")
		writeError(c, http.StatusInternalServerError, genericFailureMessage)
		return
	}

	c.JSON(http.StatusOK, chatResponse{
		Response:      result.Response,
		Timestamp:     a.now().Format(chatTimestampLayout),
		ReasoningUsed: result.ReasoningUsed,
	})
}
