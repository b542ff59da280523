// Package channels defines the interfaces and types for Amber communication
// channels. A channel (WhatsApp today, possibly others later) receives and
// sends messages in a unified way so the assistant core stays
// platform-agnostic.
package channels

import (
	"context"
	"fmt"
	"time"
)

// MessageType identifies the kind of message content.
type MessageType string

const (
	MessageText    MessageType = "text"
	MessageAudio   MessageType = "audio"
	MessageImage   MessageType = "image"
	MessageUnknown MessageType = "unknown"
)

// Channel defines the interface that every communication channel must implement.
type Channel interface {
	// Name returns the channel identifier (e.g. "whatsapp").
	Name() string

	// Connect establishes the connection to the messaging platform.
	Connect(ctx context.Context) error

	// Disconnect gracefully closes the connection.
	Disconnect() error

	// Send sends a message to the specified recipient.
	Send(ctx context.Context, to string, message *OutgoingMessage) error

	// Receive returns a Go channel that emits incoming messages.
	Receive() <-chan *IncomingMessage

	// IsConnected returns true if the channel is connected.
	IsConnected() bool
}

// AudioChannel extends Channel with voice-note download support.
// Channels that can deliver audio implement it so the assistant can
// transcribe voice notes before responding.
type AudioChannel interface {
	Channel

	// DownloadAudio downloads the audio payload of an incoming message.
	// Returns the raw bytes and MIME type.
	DownloadAudio(ctx context.Context, msg *IncomingMessage) ([]byte, string, error)
}

// PresenceChannel extends Channel with typing indicators and read receipts.
type PresenceChannel interface {
	Channel

	// SendTyping sends a "typing..." indicator to the recipient.
	SendTyping(ctx context.Context, to string) error

	// MarkRead marks messages as read.
	MarkRead(ctx context.Context, chatID string, messageIDs []string) error
}

// IncomingMessage represents a message received from any channel.
type IncomingMessage struct {
	// ID is the unique message identifier in the source channel.
	ID string

	// Channel identifies the source channel (e.g. "whatsapp").
	Channel string

	// From is the sender identifier on the platform (phone JID for WhatsApp).
	From string

	// FromName is the sender display name (if available).
	FromName string

	// ChatID is the group or DM identifier.
	ChatID string

	// IsGroup indicates whether the message is from a group chat.
	IsGroup bool

	// Type is the message content type.
	Type MessageType

	// Content is the text content of the message.
	Content string

	// Timestamp is when the message was sent.
	Timestamp time.Time

	// ReplyTo contains the ID of the message being replied to.
	ReplyTo string

	// Audio contains voice-note details (if Type == MessageAudio).
	Audio *AudioInfo
}

// OutgoingMessage represents a message to be sent through a channel.
type OutgoingMessage struct {
	// Content is the text content of the message.
	Content string

	// ReplyTo contains the ID of the message to reply to.
	ReplyTo string
}

// AudioInfo describes an audio attachment on an incoming message.
// The fields mirror what WhatsApp needs to download and decrypt the payload.
type AudioInfo struct {
	MimeType      string
	Seconds       uint32
	FileSize      uint64
	VoiceNote     bool
	URL           string
	DirectPath    string
	MediaKey      []byte
	FileSHA256    []byte
	FileEncSHA256 []byte
}

// Errors.
var (
	ErrChannelDisconnected = fmt.Errorf("channel is not connected")
	ErrAudioNotSupported   = fmt.Errorf("channel does not support audio download")
)
