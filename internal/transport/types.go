package transport

import (
	"context"
	"encoding/json"
)

type Update struct {
	Message *Message
}

type Message struct {
	ID           int
	ChatID       int64
	FromID       int64
	FromUsername string
	Text         string

	// ForwardFromChatID is the origin chat of a forwarded message (0 if the
	// message is not a forward or the origin is hidden). Used by the
	// destination discovery flow.
	ForwardFromChatID int64
}

type ChatTarget struct {
	ChatID int64
}

type MessageRef struct {
	ChatID    int64
	MessageID int
}

type SendOptions struct {
	// Choices renders a one-time reply keyboard with the given labels.
	Choices []string
	// ChoiceColumns controls keyboard layout (default 2).
	ChoiceColumns int
	// RemoveKeyboard hides any previously shown reply keyboard.
	RemoveKeyboard bool
}

// Adapter is the messaging transport consumed by the core.
//
// SendCopy replays an opaque payload (produced by CopyPayload) verbatim to
// the destination identified by destID. Destination ids are opaque strings;
// the adapter decides how to address them.
type Adapter interface {
	Start(ctx context.Context, out chan<- Update) error
	Stop(ctx context.Context) error

	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
	SendCopy(ctx context.Context, destID string, payload json.RawMessage) error
}

type copyRef struct {
	ChatID    int64 `json:"chat_id"`
	MessageID int   `json:"message_id"`
}

// CopyPayload packs a received message into the opaque payload replayed later
// by Adapter.SendCopy. Core code stores the result without inspecting it.
func CopyPayload(m *Message) (json.RawMessage, error) {
	return json.Marshal(copyRef{ChatID: m.ChatID, MessageID: m.ID})
}

// DecodeCopyPayload is the adapter-side inverse of CopyPayload.
func DecodeCopyPayload(payload json.RawMessage) (MessageRef, error) {
	var r copyRef
	if err := json.Unmarshal(payload, &r); err != nil {
		return MessageRef{}, err
	}
	return MessageRef{ChatID: r.ChatID, MessageID: r.MessageID}, nil
}
