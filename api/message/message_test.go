package message_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/matteocacciola/cheshirecat-go-sdk/api/message"
	"github.com/matteocacciola/cheshirecat-go-sdk/cattest"
	"github.com/matteocacciola/cheshirecat-go-sdk/client"
	"github.com/matteocacciola/cheshirecat-go-sdk/transport"
)

func newClient(t *testing.T, apiKey string) (*client.Client, *cattest.Server) {
	t.Helper()
	s := cattest.NewServer()
	s.APIKey = apiKey
	t.Cleanup(s.Close)
	cfg := client.DefaultConfig()
	cfg.BaseURL = s.URL
	cfg.APIKey = apiKey
	c, err := client.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return c, s
}

func TestSendHTTPMessage(t *testing.T) {
	c, s := newClient(t, "")
	scope := transport.Scope{AgentID: "agentA", UserID: "alice"}

	reply, err := c.Message().SendHTTPMessage(context.Background(), message.Message{Text: "hello cat"}, scope)
	if err != nil {
		t.Fatal(err)
	}
	if want, have := message.TypeChat, reply.Type; want != have {
		t.Errorf("want %q, have %q", want, have)
	}
	if want, have := "echo: hello cat", reply.Text; want != have {
		t.Errorf("want %q, have %q", want, have)
	}
	if want, have := "agentA", reply.AgentID; want != have {
		t.Errorf("want %q, have %q", want, have)
	}
	if want, have := "alice", reply.UserID; want != have {
		t.Errorf("want %q, have %q", want, have)
	}
	if want, have := "/message/", s.LastRequest().Path; want != have {
		t.Errorf("want %q, have %q", want, have)
	}
}

func TestSendHTTPMessageFailure(t *testing.T) {
	c, _ := newClient(t, "")
	_, err := c.Message().SendHTTPMessage(context.Background(), message.Message{Text: cattest.FailText}, transport.DefaultScope)
	if want, have := http.StatusInternalServerError, transport.StatusCode(err); want != have {
		t.Errorf("want %d, have %d (%v)", want, have, err)
	}
}

func TestSendWebsocketMessage(t *testing.T) {
	c, s := newClient(t, "secret")
	scope := transport.Scope{AgentID: "agentA", UserID: "alice"}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var frames []message.Frame
	reply, err := c.Message().SendWebsocketMessage(ctx, message.Message{Text: "purr loudly"}, scope, func(f message.Frame) {
		frames = append(frames, f)
	})
	if err != nil {
		t.Fatal(err)
	}
	if want, have := "echo: purr loudly", reply.Text; want != have {
		t.Errorf("want %q, have %q", want, have)
	}
	if want, have := "purr loudly", reply.Why["input"]; want != have {
		t.Errorf("want %v, have %v", want, have)
	}

	if want, have := 4, len(frames); want != have {
		t.Fatalf("want %d frames, have %d", want, have)
	}
	if want, have := message.TypeNotification, frames[0].Type; want != have {
		t.Errorf("want %q, have %q", want, have)
	}
	var tokens []string
	for _, f := range frames[1:] {
		if f.Type != message.TypeChatToken {
			t.Errorf("want %q, have %q", message.TypeChatToken, f.Type)
		}
		tokens = append(tokens, f.Content)
	}
	if want, have := reply.Text, strings.Join(tokens, " "); want != have {
		t.Errorf("want tokens to spell %q, have %q", want, have)
	}

	handshake := s.LastRequest()
	if want, have := "/ws/agentA/alice", handshake.Path; want != have {
		t.Errorf("want %q, have %q", want, have)
	}
	if want, have := "token=secret", handshake.RawQuery; want != have {
		t.Errorf("want %q, have %q", want, have)
	}

	h, err := c.Memory().GetConversationHistory(ctx, scope)
	if err != nil {
		t.Fatal(err)
	}
	if want, have := 2, len(h.History); want != have {
		t.Errorf("want %d history items, have %d", want, have)
	}
}

func TestSendWebsocketMessageNilCallback(t *testing.T) {
	c, _ := newClient(t, "")
	reply, err := c.Message().SendWebsocketMessage(context.Background(), message.Message{Text: "hi"}, transport.DefaultScope, nil)
	if err != nil {
		t.Fatal(err)
	}
	if want, have := "echo: hi", reply.Text; want != have {
		t.Errorf("want %q, have %q", want, have)
	}
}

func TestSendWebsocketMessageErrorFrame(t *testing.T) {
	c, _ := newClient(t, "")
	_, err := c.Message().SendWebsocketMessage(context.Background(), message.Message{Text: cattest.FailText}, transport.DefaultScope, nil)
	var serr *message.Error
	if !errors.As(err, &serr) {
		t.Fatalf("want *message.Error, have %T (%v)", err, err)
	}
	if want, have := "AgentError", serr.Name; want != have {
		t.Errorf("want %q, have %q", want, have)
	}
}

func TestSendWebsocketMessageBadToken(t *testing.T) {
	c, s := newClient(t, "secret")
	s.APIKey = "other"
	_, err := c.Message().SendWebsocketMessage(context.Background(), message.Message{Text: "hi"}, transport.DefaultScope, nil)
	var terr *transport.Error
	if !errors.As(err, &terr) {
		t.Fatalf("want *transport.Error, have %T (%v)", err, err)
	}
	if want, have := transport.DomainDial, terr.Domain; want != have {
		t.Errorf("want %q, have %q", want, have)
	}
	if want, have := http.StatusForbidden, transport.StatusCode(err); want != have {
		t.Errorf("want %d, have %d", want, have)
	}
}
