// Package message chats with an agent, either over the persistent channel,
// with tokens streamed as they are generated, or with a single request.
package message

import (
	"context"
	"fmt"

	"github.com/matteocacciola/cheshirecat-go-sdk/endpoint"
	"github.com/matteocacciola/cheshirecat-go-sdk/serializer"
	"github.com/matteocacciola/cheshirecat-go-sdk/transport"
)

// Prefix is the path of the request/response chat route.
const Prefix = "message"

// Frame types sent by the backend on the channel.
const (
	TypeChat         = "chat"
	TypeChatToken    = "chat_token"
	TypeNotification = "notification"
	TypeError        = "error"
)

// Message is a user turn.
type Message struct {
	Text  string `json:"text"`
	Image string `json:"image,omitempty"`
}

// Reply is the agent's answer to a Message.
type Reply struct {
	Type    string                 `json:"type"`
	AgentID string                 `json:"agent_id,omitempty"`
	UserID  string                 `json:"user_id,omitempty"`
	Text    string                 `json:"text"`
	Image   string                 `json:"image,omitempty"`
	Why     map[string]interface{} `json:"why,omitempty"`
}

// Frame is an intermediate frame received before the Reply.
type Frame struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// Error is an error frame sent by the backend in place of a Reply.
type Error struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Name, e.Description)
}

// Endpoint groups the chat routes.
type Endpoint struct {
	endpoint.Base
}

// New returns the message endpoint over caps.
func New(caps endpoint.Capabilities) *Endpoint {
	return &Endpoint{Base: endpoint.NewBase(Prefix, caps)}
}

// SendHTTPMessage sends msg and waits for the whole reply.
func (e *Endpoint) SendHTTPMessage(ctx context.Context, msg Message, scope transport.Scope) (Reply, error) {
	return endpoint.PostJSON[Reply](ctx, e.Base, "", msg, scope)
}

// SendWebsocketMessage sends msg over a channel opened for this call and
// waits for the reply. Token and notification frames received meanwhile are
// passed to onFrame, which may be nil. Other frames are ignored. Frames are
// routed on their type before the reply is decoded with the client's
// serializer.
func (e *Endpoint) SendWebsocketMessage(ctx context.Context, msg Message, scope transport.Scope, onFrame func(Frame)) (Reply, error) {
	ch, err := e.WSClient(scope)
	if err != nil {
		return Reply{}, err
	}
	defer ch.Close()

	if err := ch.Send(ctx, msg); err != nil {
		return Reply{}, err
	}

	s := e.Capabilities().Serializer()
	for {
		raw, err := ch.Receive(ctx)
		if err != nil {
			return Reply{}, err
		}
		head, err := serializer.Deserialize[Frame](serializer.JSON(), raw)
		if err != nil {
			return Reply{}, err
		}
		switch head.Type {
		case TypeChat:
			return serializer.Deserialize[Reply](s, raw)
		case TypeError:
			serr, err := serializer.Deserialize[Error](serializer.JSON(), raw)
			if err != nil {
				return Reply{}, err
			}
			return Reply{}, &serr
		case TypeChatToken, TypeNotification:
			if onFrame != nil {
				onFrame(head)
			}
		}
	}
}
