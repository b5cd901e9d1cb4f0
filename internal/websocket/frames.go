package websocket

import (
	"encoding/json"

	"lounge-chat/internal/domain"
)

// Frame types exchanged over the socket
const (
	FrameLoadMessages = "load_messages"
	FrameUserColors   = "user_colors"
	FrameNewMessage   = "new_message"
	FrameError        = "error"
	FrameSendMessage  = "send_message"
)

// ClientFrame is what a subscriber sends to the server
type ClientFrame struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Image string `json:"image,omitempty"`
}

type LoadMessagesFrame struct {
	Type     string           `json:"type"`
	Messages []domain.Message `json:"messages"`
}

type UserColorsFrame struct {
	Type   string                  `json:"type"`
	Colors map[string]domain.Color `json:"colors"`
}

type NewMessageFrame struct {
	Type    string         `json:"type"`
	Message domain.Message `json:"message"`
}

type ErrorFrame struct {
	Type  string `json:"type"`
	Error string `json:"error"`
	Code  string `json:"code"`
}

// NewErrorFrame describes err for the client. Internal failures are not
// echoed verbatim.
func NewErrorFrame(err error) ErrorFrame {
	code := domain.ErrorCode(err)
	text := err.Error()
	if code == domain.CodeInternal {
		text = "internal server error"
	}
	return ErrorFrame{Type: FrameError, Error: text, Code: code}
}

func encodeSnapshot(snap domain.Snapshot) (messages, colors []byte, err error) {
	if snap.Messages == nil {
		snap.Messages = []domain.Message{}
	}
	if snap.Colors == nil {
		snap.Colors = map[string]domain.Color{}
	}

	messages, err = json.Marshal(LoadMessagesFrame{Type: FrameLoadMessages, Messages: snap.Messages})
	if err != nil {
		return nil, nil, err
	}
	colors, err = json.Marshal(UserColorsFrame{Type: FrameUserColors, Colors: snap.Colors})
	if err != nil {
		return nil, nil, err
	}
	return messages, colors, nil
}
