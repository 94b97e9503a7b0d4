package cattest

import (
	"encoding/json"
	"net/http"
	"strings"
)

// FailText makes the chat answer with an error frame instead of a reply.
const FailText = "fail"

type chatRequest struct {
	Text  string `json:"text"`
	Image string `json:"image"`
}

// reply returns the frames sent for req: a notification, one token per word,
// then the reply, or a single error frame for FailText.
func reply(req chatRequest, agent, user string) []map[string]interface{} {
	if req.Text == FailText {
		return []map[string]interface{}{{
			"type":        "error",
			"name":        "AgentError",
			"description": "the agent could not answer",
		}}
	}
	text := "echo: " + req.Text
	frames := []map[string]interface{}{{"type": "notification", "content": "thinking"}}
	for _, word := range strings.Fields(text) {
		frames = append(frames, map[string]interface{}{"type": "chat_token", "content": word})
	}
	return append(frames, map[string]interface{}{
		"type":     "chat",
		"agent_id": agent,
		"user_id":  user,
		"text":     text,
		"why":      map[string]interface{}{"input": req.Text},
	})
}

func (s *Server) message(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decode(w, r, &req) {
		return
	}
	agent, user := agentOf(r)
	frames := reply(req, agent, user)
	last := frames[len(frames)-1]
	if last["type"] == "error" {
		writeError(w, http.StatusInternalServerError, last["description"].(string))
		return
	}
	s.remember(agent, user, req.Text, last["text"].(string))
	writeJSON(w, http.StatusOK, last)
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	agent, user := agentOf(r)
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var req chatRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			conn.WriteJSON(map[string]interface{}{"type": "error", "name": "ValidationError", "description": err.Error()})
			continue
		}
		for _, frame := range reply(req, agent, user) {
			if frame["type"] == "chat" {
				s.remember(agent, user, req.Text, frame["text"].(string))
			}
			if err := conn.WriteJSON(frame); err != nil {
				return
			}
		}
	}
}

func (s *Server) remember(agent, user, question, answer string) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	key := agent + "/" + user
	s.history[key] = append(s.history[key],
		map[string]interface{}{"who": "user", "text": question},
		map[string]interface{}{"who": "assistant", "text": answer},
	)
}
