package websocket

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// InboundFrame is one client to server event
type InboundFrame struct {
	Event           string          `json:"event"`
	Data            json.RawMessage `json:"data"`
	ClientMessageID string          `json:"clientMessageId,omitempty"`
}

// OutboundFrame is one server to client event
type OutboundFrame struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// ChatRef addresses a chat. join_chat and leave_chat accept it either as an
// object or as the bare id string.
type ChatRef struct {
	ChatID string `json:"chatId" validate:"required,uuid"`
}

// SendMessagePayload is the data of send_message
type SendMessagePayload struct {
	ChatID  string  `json:"chatId" validate:"required,uuid"`
	Content string  `json:"content" validate:"required,max=5000"`
	Type    string  `json:"type" validate:"omitempty,oneof=text emoji image file system"`
	ReplyTo *string `json:"replyTo" validate:"omitempty,uuid"`
}

// TypingPayload is the data of typing
type TypingPayload struct {
	ChatID   string `json:"chatId" validate:"required,uuid"`
	IsTyping bool   `json:"isTyping"`
}

// MarkReadPayload is the data of mark_read
type MarkReadPayload struct {
	ChatID    string  `json:"chatId" validate:"required,uuid"`
	MessageID *string `json:"messageId" validate:"omitempty,uuid"`
}

// SendChatRequestPayload is the data of send_chat_request
type SendChatRequestPayload struct {
	ReceiverID string `json:"receiverId" validate:"required,uuid"`
	Message    string `json:"message" validate:"max=500"`
}

// RespondChatRequestPayload is the data of respond_chat_request
type RespondChatRequestPayload struct {
	RequestID string `json:"requestId" validate:"required,uuid"`
	Status    string `json:"status" validate:"required,oneof=accepted declined"`
}

var frameValidator = validator.New()

// decodePayload unmarshals and validates frame data into dst
func decodePayload(data json.RawMessage, dst interface{}) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return fmt.Errorf("missing event data")
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("malformed event data: %w", err)
	}
	return frameValidator.Struct(dst)
}

// decodeChatRef accepts `"<id>"` as well as `{"chatId": "<id>"}`
func decodeChatRef(data json.RawMessage) (uuid.UUID, error) {
	var ref ChatRef
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		if err := json.Unmarshal(trimmed, &ref.ChatID); err != nil {
			return uuid.Nil, fmt.Errorf("malformed chat id: %w", err)
		}
		if err := frameValidator.Struct(&ref); err != nil {
			return uuid.Nil, err
		}
	} else if err := decodePayload(data, &ref); err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(ref.ChatID)
}

// parseOptionalID parses an optional id that already passed validation
func parseOptionalID(raw *string) (*uuid.UUID, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func encodeFrame(event string, data interface{}) ([]byte, error) {
	return json.Marshal(OutboundFrame{Event: event, Data: data})
}
