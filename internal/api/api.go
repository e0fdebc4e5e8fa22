// Package api holds the wire types for the WaddleAI proxy's HTTP contract.
package api

import (
	"encoding/json"
	"fmt"

	"github.com/waddleai/waddle-go/internal/message"
)

// ChatRequest is the body of POST /v1/chat/completions.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Stream      bool          `json:"stream,omitempty"`
	MaxTokens   int64         `json:"max_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
	// SessionID threads server-side conversation memory; omitted when memory
	// is disabled.
	SessionID string `json:"session_id,omitempty"`
	// SecurityScanning passes the client preference through to the proxy's
	// prompt-security layer. The proxy enforces it; we only forward it.
	SecurityScanning *bool `json:"security_scanning,omitempty"`
}

// ChatMessage is one outbound message. Content is either a plain string or
// an ordered list of typed parts, matching the OpenAI content union.
type ChatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type ContentPart struct {
	Type     string         `json:"type"`
	Text     string         `json:"text,omitempty"`
	ImageURL *ImageURLValue `json:"image_url,omitempty"`
}

type ImageURLValue struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

// EncodeMessage lowers a message into its wire shape. Single-text messages
// collapse to a plain string body; anything else becomes a part list. The
// part switch is exhaustive over the message package's closed union.
func EncodeMessage(m message.Message) (ChatMessage, error) {
	if len(m.Parts) == 1 {
		if t, ok := m.Parts[0].(message.TextContent); ok {
			return ChatMessage{Role: string(m.Role), Content: t.Text}, nil
		}
	}
	parts := make([]ContentPart, 0, len(m.Parts))
	for _, p := range m.Parts {
		switch part := p.(type) {
		case message.TextContent:
			parts = append(parts, ContentPart{Type: "text", Text: part.Text})
		case message.ImageURLContent:
			parts = append(parts, ContentPart{
				Type:     "image_url",
				ImageURL: &ImageURLValue{URL: part.URL, Detail: part.Detail},
			})
		default:
			return ChatMessage{}, fmt.Errorf("unknown content part type: %T", p)
		}
	}
	return ChatMessage{Role: string(m.Role), Content: parts}, nil
}

// EncodeMessages lowers an ordered message list, preserving order.
func EncodeMessages(msgs []message.Message) ([]ChatMessage, error) {
	out := make([]ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		wm, err := EncodeMessage(m)
		if err != nil {
			return nil, err
		}
		out = append(out, wm)
	}
	return out, nil
}

// ChatChunk is one decoded streaming record. The proxy emits OpenAI-style
// chunks; some builds flatten delta/finish_reason to the top level, so both
// shapes are accepted.
type ChatChunk struct {
	Choices []ChunkChoice `json:"choices"`

	Delta        string `json:"delta,omitempty"`
	FinishReason string `json:"finish_reason,omitempty"`
}

type ChunkChoice struct {
	Delta        ChunkDelta `json:"delta"`
	FinishReason string     `json:"finish_reason"`
}

type ChunkDelta struct {
	Content string `json:"content"`
}

// DeltaText returns the incremental text carried by the chunk, if any.
func (c ChatChunk) DeltaText() string {
	if len(c.Choices) > 0 {
		return c.Choices[0].Delta.Content
	}
	return c.Delta
}

// Finish returns the finish reason carried by the chunk, if any.
func (c ChatChunk) Finish() string {
	if len(c.Choices) > 0 && c.Choices[0].FinishReason != "" {
		return c.Choices[0].FinishReason
	}
	return c.FinishReason
}

// ChatResponse is the non-streaming completion body.
type ChatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage TokenUsage `json:"usage"`
}

type TokenUsage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
	WaddleAITokens   int64 `json:"waddleai_tokens,omitempty"`
}

// Account is the identity returned by GET /v1/user/me.
type Account struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

// Model is one entry of GET /v1/models.
type Model struct {
	ID            string `json:"id"`
	Object        string `json:"object,omitempty"`
	OwnedBy       string `json:"owned_by,omitempty"`
	ContextLength int64  `json:"context_length,omitempty"`
	MaxTokens     int64  `json:"max_tokens,omitempty"`
}

type ModelsResponse struct {
	Object string  `json:"object"`
	Data   []Model `json:"data"`
}

// Usage is the body of GET /v1/usage.
type Usage struct {
	TotalTokens   int64 `json:"total_tokens"`
	TotalRequests int64 `json:"total_requests"`
	DailyUsed     int64 `json:"daily_used"`
	DailyLimit    int64 `json:"daily_limit"`
	MonthlyUsed   int64 `json:"monthly_used"`
	MonthlyLimit  int64 `json:"monthly_limit"`
	PeriodDays    int   `json:"period_days"`
}

// ErrorBody covers the two error envelope shapes the proxy emits: FastAPI's
// {"detail": ...} and the OpenAI-style {"error": {"message": ...}}.
type ErrorBody struct {
	Detail json.RawMessage `json:"detail"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Message extracts a human-readable error message from a response body.
// Returns "" when no message can be recovered.
func (e ErrorBody) Message() string {
	if e.Error != nil && e.Error.Message != "" {
		return e.Error.Message
	}
	if len(e.Detail) > 0 {
		var s string
		if err := json.Unmarshal(e.Detail, &s); err == nil {
			return s
		}
		return string(e.Detail)
	}
	return ""
}
