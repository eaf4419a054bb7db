// Package chat implements the POST /chatai endpoint: it authenticates the
// caller with a shared API key, reads {"message": "..."} and answers with the
// matcher's response.
package chat

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/garyellow/chatai/internal/logger"
	"github.com/garyellow/chatai/internal/matcher"
)

// Status labels for metrics.
const (
	StatusOK           = "ok"
	StatusUnauthorized = "unauthorized"
	StatusError        = "error"
)

// bearerPrefix is compared case-sensitively, as the header value is.
const bearerPrefix = "Bearer "

// Request limits used when the Config fields are not positive.
const (
	DefaultMaxBodyBytes    int64 = 64 << 10
	DefaultMaxMessageRunes       = 2000
)

// Matcher answers a message.
type Matcher interface {
	MatchContext(ctx context.Context, message string) (matcher.Result, error)
}

// Recorder receives chat metrics. *metrics.Metrics satisfies it.
type Recorder interface {
	RecordChat(status string, duration float64)
	RecordMatch(score int, matched bool)
	RecordHTTPError(errorType string)
}

// Config configures a Handler.
type Config struct {
	APIKey          string
	Matcher         Matcher
	MaxBodyBytes    int64
	MaxMessageRunes int
	Logger          *logger.Logger
	Metrics         Recorder // optional
}

// Handler serves POST /chatai.
type Handler struct {
	expected []byte // "Bearer <APIKey>"
	matcher  Matcher
	maxBody  int64
	maxRunes int
	log      *logger.Logger
	metrics  Recorder
}

// NewHandler creates a Handler.
func NewHandler(cfg Config) *Handler {
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	maxRunes := cfg.MaxMessageRunes
	if maxRunes <= 0 {
		maxRunes = DefaultMaxMessageRunes
	}
	return &Handler{
		expected: []byte(bearerPrefix + cfg.APIKey),
		matcher:  cfg.Matcher,
		maxBody:  maxBody,
		maxRunes: maxRunes,
		log:      cfg.Logger.WithModule("chat"),
		metrics:  cfg.Metrics,
	}
}

// Handle is the gin handler for POST /chatai.
//
//	401 {"error": "Unauthorized"}   missing or wrong Authorization header
//	500 {"error": "<reason>"}       unreadable body, message too long, request canceled
//	200 {"response": "<text>"}      otherwise, including the fallback answer
func (h *Handler) Handle(c *gin.Context) {
	start := time.Now()
	ctx := c.Request.Context()

	if !h.authorized(c.GetHeader("Authorization")) {
		h.log.WarnContext(ctx, "Rejected chat request with invalid API key")
		h.recordError(StatusUnauthorized, "unauthorized", start)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	message, err := readMessage(http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBody))
	if err == nil && utf8.RuneCountInString(message) > h.maxRunes {
		err = fmt.Errorf("%w (limit %d characters)", ErrMessageTooLong, h.maxRunes)
	}
	if err != nil {
		h.log.WithError(err).WarnContext(ctx, "Failed to read chat request")
		h.recordError(StatusError, errorType(err), start)
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.log.WithField("user_message", message).InfoContext(ctx, "User message")

	result, err := h.matcher.MatchContext(ctx, message)
	if err != nil {
		h.log.WithError(err).WarnContext(ctx, "Chat request abandoned while matching")
		h.recordError(StatusError, "canceled", start)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.log.WithFields(map[string]any{
		"bot_response": result.Response,
		"trigger":      result.Trigger,
		"score":        result.Score,
		"matched":      result.Matched,
	}).InfoContext(ctx, "Bot response")

	if h.metrics != nil {
		h.metrics.RecordMatch(result.Score, result.Matched)
		h.metrics.RecordChat(StatusOK, time.Since(start).Seconds())
	}

	c.JSON(http.StatusOK, gin.H{"response": result.Response})
}

// authorized compares the whole header in constant time.
func (h *Handler) authorized(header string) bool {
	return subtle.ConstantTimeCompare([]byte(header), h.expected) == 1
}

func (h *Handler) recordError(status, errType string, start time.Time) {
	if h.metrics == nil {
		return
	}
	h.metrics.RecordHTTPError(errType)
	h.metrics.RecordChat(status, time.Since(start).Seconds())
}

// Body errors.
var (
	ErrEmptyBody    = errors.New("request body is empty")
	ErrNotObject    = errors.New("request body must be a JSON object")
	ErrMessageType  = errors.New(`"message" must be a string`)
	ErrBodyTooLarge = errors.New("request body too large")

	ErrMessageTooLong = errors.New(`"message" is too long`)
)

const errInvalidJSONTag = "invalid JSON"

// readMessage decodes {"message": "..."}. A missing message is "".
func readMessage(body io.Reader) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return "", fmt.Errorf("%w (limit %d bytes)", ErrBodyTooLarge, maxErr.Limit)
		}
		return "", fmt.Errorf("read request body: %w", err)
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return "", ErrEmptyBody
	}
	if !json.Valid(data) {
		return "", fmt.Errorf("%s: %w", errInvalidJSONTag, json.Unmarshal(data, new(any)))
	}
	if data[0] != '{' {
		return "", ErrNotObject
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return "", fmt.Errorf("%s: %w", errInvalidJSONTag, err)
	}

	raw, ok := fields["message"]
	if !ok {
		return "", nil
	}
	var message string
	if bytes.Equal(raw, []byte("null")) || json.Unmarshal(raw, &message) != nil {
		return "", ErrMessageType
	}
	return message, nil
}

func errorType(err error) string {
	switch {
	case errors.Is(err, ErrBodyTooLarge):
		return "body_too_large"
	case errors.Is(err, ErrMessageTooLong):
		return "message_too_long"
	case errors.Is(err, ErrEmptyBody), errors.Is(err, ErrNotObject), errors.Is(err, ErrMessageType):
		return "invalid_request"
	default:
		return "invalid_json"
	}
}
