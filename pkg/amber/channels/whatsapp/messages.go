// Package whatsapp – messages.go builds outgoing WhatsApp protobuf payloads
// and reconstructs downloadable media references.
package whatsapp

import (
	"google.golang.org/protobuf/proto"

	waE2E "go.mau.fi/whatsmeow/proto/waE2E"

	"github.com/amberlabs/amber/pkg/amber/channels"
)

// buildTextMessage builds a text message, quoting replyTo when set.
func buildTextMessage(content, replyTo string) *waE2E.Message {
	if replyTo == "" {
		return &waE2E.Message{Conversation: proto.String(content)}
	}
	return &waE2E.Message{
		ExtendedTextMessage: &waE2E.ExtendedTextMessage{
			Text: proto.String(content),
			ContextInfo: &waE2E.ContextInfo{
				StanzaID: proto.String(replyTo),
			},
		},
	}
}

// audioMessageFromInfo rebuilds the protobuf audio reference whatsmeow needs
// to download and decrypt a voice note.
func audioMessageFromInfo(info *channels.AudioInfo) *waE2E.AudioMessage {
	return &waE2E.AudioMessage{
		URL:           proto.String(info.URL),
		DirectPath:    proto.String(info.DirectPath),
		Mimetype:      proto.String(info.MimeType),
		Seconds:       proto.Uint32(info.Seconds),
		PTT:           proto.Bool(info.VoiceNote),
		FileLength:    proto.Uint64(info.FileSize),
		MediaKey:      info.MediaKey,
		FileSHA256:    info.FileSHA256,
		FileEncSHA256: info.FileEncSHA256,
	}
}
