package websocket

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Message protocol definitions

type MessageKind string

const (
	KindMessage MessageKind = "message" // user chat message, the only persisted kind
	KindInfo    MessageKind = "info"    // welcome / participant left
	KindError   MessageKind = "error"   // sent to the offending sender only
	KindPing    MessageKind = "ping"    // idle keepalive
)

const (
	SystemUserName  = "System"
	DefaultUserName = "Guest"
)

var ErrMalformedPayload = errors.New("malformed chat payload")

// ChatMessage is the value that flows through the chat core.
// Treat it as immutable once built.
type ChatMessage struct {
	Username  string
	Body      string
	Kind      MessageKind
	Timestamp time.Time
}

func NewChatMessage(username, body string) ChatMessage {
	return ChatMessage{
		Username:  username,
		Body:      body,
		Kind:      KindMessage,
		Timestamp: time.Now().UTC(),
	}
}

// NewSystemMessage builds an ephemeral info/error message
func NewSystemMessage(kind MessageKind, body string) ChatMessage {
	return ChatMessage{
		Username:  SystemUserName,
		Body:      body,
		Kind:      kind,
		Timestamp: time.Now().UTC(),
	}
}

func NewPingMessage() ChatMessage {
	return ChatMessage{Kind: KindPing, Timestamp: time.Now().UTC()}
}

// Frame is the server -> client wire shape.
// Ping frames carry only type and timestamp.
type Frame struct {
	Username  string      `json:"username,omitempty"`
	Message   string      `json:"message,omitempty"`
	Type      MessageKind `json:"type"`
	Timestamp float64     `json:"timestamp"` // seconds since epoch
}

func (m ChatMessage) ToFrame() Frame {
	f := Frame{
		Type:      m.Kind,
		Timestamp: float64(m.Timestamp.UnixNano()) / float64(time.Second),
	}
	if m.Kind != KindPing {
		f.Username = m.Username
		f.Message = m.Body
	}
	return f
}

// ToJSON: marshal the message into its wire frame
func (m ChatMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m.ToFrame())
}

// InboundPayload is the client -> server wire shape
type InboundPayload struct {
	Username *string `json:"username"`
	Message  string  `json:"message"`
}

// ParseInbound decodes a client frame. It returns the resolved username and
// the trimmed body; an empty body is valid and left to the caller to ignore.
func ParseInbound(data []byte) (username, body string, err error) {
	var p InboundPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return "", "", errors.Join(ErrMalformedPayload, err)
	}

	username = DefaultUserName
	if p.Username != nil {
		if name := strings.TrimSpace(*p.Username); name != "" {
			username = name
		}
	}
	return username, strings.TrimSpace(p.Message), nil
}
