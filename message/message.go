// Package message defines the vocabulary exchanged between the page, the
// background coordinator and the side panel, and the best-effort transport
// that carries it.
//
// The contexts share no memory. Every message crosses the boundary as JSON
// tagged with a "type" field, and delivery is fire-and-forget: a context that
// is not listening simply never sees the message.
package message

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Type discriminates messages on the wire.
type Type string

const (
	TypeOpenEditor     Type = "OPEN_SIDE_PANEL_EDITOR"
	TypeApplyContent   Type = "APPLY_CONTENT"
	TypeOpenOptions    Type = "OPEN_OPTIONS_PAGE"
	TypeSidePanelReady Type = "SIDE_PANEL_READY"
)

// ErrUnknownType is returned when decoding a message with an unrecognised type.
var ErrUnknownType = errors.New("unknown message type")

// Message is the closed set of messages. Only types in this package
// implement it.
type Message interface {
	Type() Type
	sealed()
}

// OpenEditorRequest asks the background to open the side panel for the
// sending tab and is forwarded to the panel so it can hydrate its editor.
type OpenEditorRequest struct {
	Content          string `json:"content"`
	ContentAppliable bool   `json:"isContentAppliable"`
}

// ApplyContentRequest tells a tab to write Content into its captured element.
type ApplyContentRequest struct {
	Content string `json:"content"`
}

// OpenOptionsRequest asks the background to open the settings surface.
type OpenOptionsRequest struct{}

// SidePanelReady is announced by a side panel once its listener is
// registered, so the background can replay a request the panel missed.
type SidePanelReady struct{}

func (OpenEditorRequest) Type() Type   { return TypeOpenEditor }
func (ApplyContentRequest) Type() Type { return TypeApplyContent }
func (OpenOptionsRequest) Type() Type  { return TypeOpenOptions }
func (SidePanelReady) Type() Type      { return TypeSidePanelReady }

func (OpenEditorRequest) sealed()   {}
func (ApplyContentRequest) sealed() {}
func (OpenOptionsRequest) sealed()  {}
func (SidePanelReady) sealed()      {}

// Marshal encodes msg as a flat JSON object with a "type" field.
func Marshal(msg Message) ([]byte, error) {
	if msg == nil {
		return nil, errors.New("marshal: nil message")
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshaling %s: %w", msg.Type(), err)
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("marshaling %s: %w", msg.Type(), err)
	}
	typ, _ := json.Marshal(msg.Type())
	fields["type"] = typ
	return json.Marshal(fields)
}

// Unmarshal decodes a message produced by Marshal (or by the extension).
func Unmarshal(data []byte) (Message, error) {
	var head struct {
		Type Type `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("parsing message: %w", err)
	}

	var msg Message
	switch head.Type {
	case TypeOpenEditor:
		var m OpenEditorRequest
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", head.Type, err)
		}
		msg = m
	case TypeApplyContent:
		var m ApplyContentRequest
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", head.Type, err)
		}
		msg = m
	case TypeOpenOptions:
		msg = OpenOptionsRequest{}
	case TypeSidePanelReady:
		msg = SidePanelReady{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, head.Type)
	}
	return msg, nil
}

// Sender identifies where a message came from. TabID is zero for extension
// pages (background, side panel, options).
type Sender struct {
	TabID int `json:"tabId,omitempty"`
}

// Envelope is a delivered message together with its sender.
type Envelope struct {
	Message Message
	Sender  Sender
}
