// Package whatsapp – events.go processes incoming whatsmeow events and
// converts them into unified channel messages.
package whatsapp

import (
	"go.mau.fi/whatsmeow/types/events"

	waE2E "go.mau.fi/whatsmeow/proto/waE2E"

	"github.com/amberlabs/amber/pkg/amber/channels"
)

// handleEvent is the main whatsmeow event dispatcher.
func (w *WhatsApp) handleEvent(rawEvt interface{}) {
	switch evt := rawEvt.(type) {
	case *events.Message:
		w.handleMessageEvt(evt)

	case *events.Connected:
		w.connected.Store(true)
		w.reconnectAttempts.Store(0)
		w.logger.Info("connected", "jid", w.clientJID())

	case *events.Disconnected:
		wasConnected := w.connected.Swap(false)
		w.logger.Warn("disconnected", "was_connected", wasConnected)
		if wasConnected && w.ctx.Err() == nil {
			go w.attemptReconnect()
		}

	case *events.StreamReplaced:
		w.connected.Store(false)
		w.logger.Error("stream replaced, another device connected to this account")

	case *events.LoggedOut:
		w.connected.Store(false)
		w.logger.Error("logged out, session invalidated", "reason", evt.Reason.String())
		go func() {
			if err := w.loginWithQR(w.ctx); err != nil {
				w.logger.Warn("QR re-login failed", "error", err)
			}
		}()
	}
}

// handleMessageEvt converts one incoming WhatsApp message event.
func (w *WhatsApp) handleMessageEvt(evt *events.Message) {
	if evt.Info.IsFromMe {
		return
	}
	if evt.Info.Chat.Server == "broadcast" {
		return
	}
	if evt.Info.IsGroup && !w.cfg.RespondToGroups {
		return
	}

	// WhatsApp may identify the sender by LID (Linked Identity) instead of
	// a phone number. Resolve to the phone JID for access control.
	sender := evt.Info.Sender
	resolvedSender := sender.String()
	if sender.Server == "lid" && w.client != nil && w.client.Store != nil {
		if alt, err := w.client.Store.GetAltJID(w.ctx, sender); err == nil && !alt.IsEmpty() {
			resolvedSender = alt.String()
		}
	}

	chat := evt.Info.Chat
	resolvedChat := chat.String()
	if chat.Server == "lid" && w.client != nil && w.client.Store != nil {
		if alt, err := w.client.Store.GetAltJID(w.ctx, chat); err == nil && !alt.IsEmpty() {
			resolvedChat = alt.String()
		}
	}

	msg := &channels.IncomingMessage{
		ID:        string(evt.Info.ID),
		Channel:   "whatsapp",
		From:      resolvedSender,
		FromName:  evt.Info.PushName,
		ChatID:    resolvedChat,
		IsGroup:   evt.Info.IsGroup,
		Timestamp: evt.Info.Timestamp,
	}

	extractMessageContent(evt.Message, msg)

	if w.cfg.AutoRead {
		go func() {
			_ = w.MarkRead(w.ctx, msg.ChatID, []string{msg.ID})
		}()
	}

	w.emitMessage(msg)
}

// extractMessageContent fills msg from the raw WhatsApp payload. Only text
// and audio are handled; everything else is marked unknown and ignored
// upstream.
func extractMessageContent(waMsg *waE2E.Message, msg *channels.IncomingMessage) {
	if waMsg == nil {
		msg.Type = channels.MessageUnknown
		return
	}

	if waMsg.Conversation != nil {
		msg.Type = channels.MessageText
		msg.Content = waMsg.GetConversation()
		return
	}

	if ext := waMsg.ExtendedTextMessage; ext != nil {
		msg.Type = channels.MessageText
		msg.Content = ext.GetText()
		if ctxInfo := ext.GetContextInfo(); ctxInfo != nil {
			msg.ReplyTo = ctxInfo.GetStanzaID()
		}
		return
	}

	if audio := waMsg.AudioMessage; audio != nil {
		msg.Type = channels.MessageAudio
		msg.Audio = &channels.AudioInfo{
			MimeType:      audio.GetMimetype(),
			Seconds:       audio.GetSeconds(),
			FileSize:      audio.GetFileLength(),
			VoiceNote:     audio.GetPTT(),
			URL:           audio.GetURL(),
			DirectPath:    audio.GetDirectPath(),
			MediaKey:      audio.GetMediaKey(),
			FileSHA256:    audio.GetFileSHA256(),
			FileEncSHA256: audio.GetFileEncSHA256(),
		}
		return
	}

	msg.Type = channels.MessageUnknown
}
