// Package jupytertest provides an in-process Jupyter Server for tests.
//
// The server speaks enough of the REST API (/api/sessions, /api/kernelspecs)
// and the kernel channels websocket to drive code execution end to end.
// Replies to execute requests are produced by a Handler.
package jupytertest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Reply is one iopub message sent in response to an execute request.
type Reply struct {
	MsgType string
	Content map[string]any
	// Drop closes the connection instead of sending a message.
	Drop bool
}

// Stream builds a stream reply ("stdout" or "stderr").
func Stream(name, text string) Reply {
	return Reply{MsgType: "stream", Content: map[string]any{"name": name, "text": text}}
}

// Stdout builds a stdout stream reply.
func Stdout(text string) Reply { return Stream("stdout", text) }

// Stderr builds a stderr stream reply.
func Stderr(text string) Reply { return Stream("stderr", text) }

// Display builds a display_data reply carrying one MIME bundle entry.
func Display(mime string, data any) Reply {
	return Reply{MsgType: "display_data", Content: map[string]any{
		"data":     map[string]any{mime: data},
		"metadata": map[string]any{},
	}}
}

// Error builds an error reply.
func Error(ename, evalue string, traceback ...string) Reply {
	if traceback == nil {
		traceback = []string{}
	}
	return Reply{MsgType: "error", Content: map[string]any{
		"ename":     ename,
		"evalue":    evalue,
		"traceback": traceback,
	}}
}

// Drop closes the websocket mid-stream.
func Drop() Reply { return Reply{Drop: true} }

// Handler produces the replies for executed code.
type Handler func(code string) []Reply

type session struct {
	ID     string      `json:"id"`
	Path   string      `json:"path"`
	Name   string      `json:"name"`
	Type   string      `json:"type"`
	Kernel kernelModel `json:"kernel"`
}

type kernelModel struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	ExecutionState string `json:"execution_state"`
}

// Server is a fake Jupyter Server.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	token    string
	sessions []session
	specs    map[string]string // kernelspec name -> language
	handler  Handler
	executed []string
}

var upgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

// NewServer starts a fake server. token may be empty. Call Close when done.
func NewServer(token string) *Server {
	s := &Server{
		token: token,
		specs: map[string]string{"python3": "python"},
		handler: func(string) []Reply {
			return nil
		},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/sessions", s.handleSessions)
	mux.HandleFunc("GET /api/kernelspecs", s.handleKernelSpecs)
	mux.HandleFunc("GET /api/kernels/{id}/channels", s.handleChannels)
	s.Server = httptest.NewServer(mux)
	return s
}

// AddSession registers a notebook session at path with a kernel of the
// given kernelspec.
func (s *Server) AddSession(path, kernelID, kernelName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = append(s.sessions, session{
		ID:     uuid.NewString(),
		Path:   path,
		Name:   path,
		Type:   "notebook",
		Kernel: kernelModel{ID: kernelID, Name: kernelName, ExecutionState: "idle"},
	})
}

// RemoveSession removes the session at path.
func (s *Server) RemoveSession(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.sessions[:0]
	for _, sess := range s.sessions {
		if sess.Path != path {
			kept = append(kept, sess)
		}
	}
	s.sessions = kept
}

// RestartKernel gives the session at path a new kernel id.
func (s *Server) RestartKernel(path, kernelID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.sessions {
		if s.sessions[i].Path == path {
			s.sessions[i].Kernel.ID = kernelID
		}
	}
}

// SetKernelSpec registers a kernelspec with its language.
func (s *Server) SetKernelSpec(name, language string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.specs[name] = language
}

// Handle replaces the execute handler.
func (s *Server) Handle(h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = h
}

// Executed returns the code of every execute request received so far.
func (s *Server) Executed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.executed...)
}

func (s *Server) authorized(r *http.Request) bool {
	if s.token == "" {
		return true
	}
	return r.Header.Get("Authorization") == "token "+s.token || r.URL.Query().Get("token") == s.token
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	s.mu.Lock()
	sessions := append([]session{}, s.sessions...)
	s.mu.Unlock()
	writeJSON(w, sessions)
}

func (s *Server) handleKernelSpecs(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	s.mu.Lock()
	specs := make(map[string]any, len(s.specs))
	for name, lang := range s.specs {
		specs[name] = map[string]any{
			"name": name,
			"spec": map[string]any{"language": lang, "display_name": name},
		}
	}
	s.mu.Unlock()
	writeJSON(w, map[string]any{"default": "python3", "kernelspecs": specs})
}

func (s *Server) hasKernel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if sess.Kernel.ID == id {
			return true
		}
	}
	return false
}

type wireMessage struct {
	Header       map[string]any  `json:"header"`
	ParentHeader map[string]any  `json:"parent_header"`
	Metadata     map[string]any  `json:"metadata"`
	Content      json.RawMessage `json:"content"`
	Channel      string          `json:"channel"`
	Buffers      []any           `json:"buffers"`
}

func (s *Server) handleChannels(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	if !s.hasKernel(r.PathValue("id")) {
		http.NotFound(w, r)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	for {
		var req wireMessage
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		if req.Header["msg_type"] != "execute_request" {
			continue
		}
		var content struct {
			Code string `json:"code"`
		}
		_ = json.Unmarshal(req.Content, &content)

		s.mu.Lock()
		s.executed = append(s.executed, content.Code)
		handler := s.handler
		s.mu.Unlock()

		parent := req.Header
		// Output of other clients shares the iopub channel.
		if err := send(conn, nil, "stream", map[string]any{"name": "stdout", "text": "other client\n"}); err != nil {
			return
		}
		if err := send(conn, parent, "status", map[string]any{"execution_state": "busy"}); err != nil {
			return
		}
		for _, reply := range handler(content.Code) {
			if reply.Drop {
				return
			}
			if err := send(conn, parent, reply.MsgType, reply.Content); err != nil {
				return
			}
		}
		if err := sendOn(conn, "shell", parent, "execute_reply", map[string]any{"status": "ok"}); err != nil {
			return
		}
		if err := send(conn, parent, "status", map[string]any{"execution_state": "idle"}); err != nil {
			return
		}
	}
}

func send(conn *websocket.Conn, parent map[string]any, msgType string, content map[string]any) error {
	return sendOn(conn, "iopub", parent, msgType, content)
}

func sendOn(conn *websocket.Conn, channel string, parent map[string]any, msgType string, content map[string]any) error {
	if parent == nil {
		parent = map[string]any{}
	}
	raw, err := json.Marshal(content)
	if err != nil {
		return err
	}
	return conn.WriteJSON(wireMessage{
		Header: map[string]any{
			"msg_id":   uuid.NewString(),
			"msg_type": msgType,
			"date":     time.Now().UTC().Format(time.RFC3339Nano),
			"version":  "5.3",
		},
		ParentHeader: parent,
		Metadata:     map[string]any{},
		Content:      raw,
		Channel:      channel,
		Buffers:      []any{},
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
