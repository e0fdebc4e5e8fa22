// Package message defines the conversation data model: messages with an
// ordered list of tagged content parts, replayed verbatim to the remote.
package message

import (
	"encoding/json"
	"fmt"
	"strings"
)

type Role string

const (
	Assistant Role = "assistant"
	User      Role = "user"
	System    Role = "system"
)

func (r Role) MarshalText() ([]byte, error) {
	return []byte(r), nil
}

func (r *Role) UnmarshalText(data []byte) error {
	*r = Role(data)
	return nil
}

type FinishReason string

const (
	FinishReasonEndTurn   FinishReason = "stop"
	FinishReasonMaxTokens FinishReason = "length"
	FinishReasonCanceled  FinishReason = "canceled"
	FinishReasonError     FinishReason = "error"

	// Should never happen
	FinishReasonUnknown FinishReason = "unknown"
)

// ContentPart is one element of a message body. Parts are a closed set;
// serialization switches over them exhaustively.
type ContentPart interface {
	isPart()
}

type TextContent struct {
	Text string `json:"text"`
}

func (tc TextContent) String() string { return tc.Text }

func (TextContent) isPart() {}

type ImageURLContent struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

func (ic ImageURLContent) String() string { return ic.URL }

func (ImageURLContent) isPart() {}

// Message is immutable once constructed; ordering within a conversation is
// insertion order and is significant.
type Message struct {
	Role  Role          `json:"role"`
	Parts []ContentPart `json:"parts"`
}

// NewTextMessage builds a single-part text message.
func NewTextMessage(role Role, text string) Message {
	return Message{Role: role, Parts: []ContentPart{TextContent{Text: text}}}
}

// Text concatenates the text parts of the message body.
func (m Message) Text() string {
	var sb strings.Builder
	for _, p := range m.Parts {
		if t, ok := p.(TextContent); ok {
			sb.WriteString(t.Text)
		}
	}
	return sb.String()
}

type partType string

const (
	partTypeText  partType = "text"
	partTypeImage partType = "image_url"
)

type partEnvelope struct {
	Type partType        `json:"type"`
	Data json.RawMessage `json:"data"`
}

// MarshallParts serializes the tagged union so it can round-trip through
// persistence and the wire layer.
func MarshallParts(parts []ContentPart) ([]byte, error) {
	envelopes := make([]partEnvelope, 0, len(parts))
	for _, part := range parts {
		var typ partType
		switch part.(type) {
		case TextContent:
			typ = partTypeText
		case ImageURLContent:
			typ = partTypeImage
		default:
			return nil, fmt.Errorf("unknown content part type: %T", part)
		}
		data, err := json.Marshal(part)
		if err != nil {
			return nil, err
		}
		envelopes = append(envelopes, partEnvelope{Type: typ, Data: data})
	}
	return json.Marshal(envelopes)
}

func UnmarshallParts(data []byte) ([]ContentPart, error) {
	var envelopes []partEnvelope
	if err := json.Unmarshal(data, &envelopes); err != nil {
		return nil, err
	}
	parts := make([]ContentPart, 0, len(envelopes))
	for _, env := range envelopes {
		switch env.Type {
		case partTypeText:
			var p TextContent
			if err := json.Unmarshal(env.Data, &p); err != nil {
				return nil, err
			}
			parts = append(parts, p)
		case partTypeImage:
			var p ImageURLContent
			if err := json.Unmarshal(env.Data, &p); err != nil {
				return nil, err
			}
			parts = append(parts, p)
		default:
			return nil, fmt.Errorf("unknown content part type: %q", env.Type)
		}
	}
	return parts, nil
}

// MarshalJSON implements the [json.Marshaler] interface.
func (m Message) MarshalJSON() ([]byte, error) {
	parts, err := MarshallParts(m.Parts)
	if err != nil {
		return nil, err
	}
	type Alias Message
	return json.Marshal(&struct {
		Parts json.RawMessage `json:"parts"`
		*Alias
	}{
		Parts: json.RawMessage(parts),
		Alias: (*Alias)(&m),
	})
}

// UnmarshalJSON implements the [json.Unmarshaler] interface.
func (m *Message) UnmarshalJSON(data []byte) error {
	type Alias Message
	aux := &struct {
		Parts json.RawMessage `json:"parts"`
		*Alias
	}{
		Alias: (*Alias)(m),
	}
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	parts, err := UnmarshallParts(aux.Parts)
	if err != nil {
		return err
	}
	m.Parts = parts
	return nil
}
