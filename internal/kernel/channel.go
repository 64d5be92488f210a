package kernel

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/sjson"
	"go.uber.org/zap"
)

const (
	protocolVersion = "5.3"
	clientUsername  = "kenv"
)

// header is a Jupyter message header (messaging protocol v5).
type header struct {
	MsgID    string `json:"msg_id,omitempty"`
	Username string `json:"username,omitempty"`
	Session  string `json:"session,omitempty"`
	Date     string `json:"date,omitempty"`
	MsgType  string `json:"msg_type,omitempty"`
	Version  string `json:"version,omitempty"`
}

// message is the JSON form of a Jupyter message on the channels websocket.
type message struct {
	Header       header          `json:"header"`
	ParentHeader header          `json:"parent_header"`
	Metadata     map[string]any  `json:"metadata"`
	Content      json.RawMessage `json:"content"`
	Channel      string          `json:"channel"`
	Buffers      []any           `json:"buffers"`
}

type executeRequest struct {
	Code            string         `json:"code"`
	Silent          bool           `json:"silent"`
	StoreHistory    bool           `json:"store_history"`
	UserExpressions map[string]any `json:"user_expressions"`
	AllowStdin      bool           `json:"allow_stdin"`
	StopOnError     bool           `json:"stop_on_error"`
}

// remoteKernel is a kernel reached through a Jupyter Server.
type remoteKernel struct {
	server   *Server
	id       string
	name     string
	language string
}

func (k *remoteKernel) ID() string       { return k.id }
func (k *remoteKernel) Language() string { return k.language }

// Execute sends an execute_request over a fresh channels connection and
// yields the iopub replies belonging to it until the kernel reports idle.
func (k *remoteKernel) Execute(ctx context.Context, code string) iter.Seq2[Output, error] {
	return func(yield func(Output, error) bool) {
		sessionID := uuid.NewString()
		conn, err := k.server.dial(ctx, k.id, sessionID)
		if err != nil {
			yield(Output{}, fmt.Errorf("connecting to kernel %s: %w", k.id, err))
			return
		}
		defer func() { _ = conn.Close() }()

		// Closing the connection unblocks the reader on cancellation.
		stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
		defer stop()

		req, err := newExecuteRequest(sessionID, code)
		if err != nil {
			yield(Output{}, err)
			return
		}
		if err := conn.WriteJSON(req); err != nil {
			yield(Output{}, fmt.Errorf("sending execute request: %w", err))
			return
		}
		k.server.logger.Debug("execute request sent",
			zap.String("kernel", k.id),
			zap.String("msg_id", req.Header.MsgID))

		for {
			var msg message
			if err := conn.ReadJSON(&msg); err != nil {
				if ctx.Err() != nil {
					err = ctx.Err()
				}
				yield(Output{}, fmt.Errorf("reading kernel output: %w", err))
				return
			}
			if msg.ParentHeader.MsgID != req.Header.MsgID || msg.Channel == "shell" {
				continue
			}
			out, done, err := convertMessage(msg)
			if err != nil {
				k.server.logger.Debug("skipping malformed kernel message",
					zap.String("msg_type", msg.Header.MsgType), zap.Error(err))
				continue
			}
			if len(out.Items) > 0 && !yield(out, nil) {
				return
			}
			if done {
				return
			}
		}
	}
}

func newExecuteRequest(sessionID, code string) (message, error) {
	content, err := json.Marshal(executeRequest{
		Code:            code,
		Silent:          false,
		StoreHistory:    false,
		UserExpressions: map[string]any{},
		AllowStdin:      false,
		StopOnError:     true,
	})
	if err != nil {
		return message{}, fmt.Errorf("encoding execute request: %w", err)
	}
	return message{
		Header: header{
			MsgID:    uuid.NewString(),
			Username: clientUsername,
			Session:  sessionID,
			Date:     time.Now().UTC().Format(time.RFC3339Nano),
			MsgType:  "execute_request",
			Version:  protocolVersion,
		},
		Metadata: map[string]any{},
		Content:  content,
		Channel:  "shell",
		Buffers:  []any{},
	}, nil
}

// convertMessage maps an iopub message to an output chunk. done is set once
// the kernel reports it is idle again.
func convertMessage(msg message) (out Output, done bool, err error) {
	switch msg.Header.MsgType {
	case "stream":
		var c struct {
			Name string `json:"name"`
			Text string `json:"text"`
		}
		if err := json.Unmarshal(msg.Content, &c); err != nil {
			return Output{}, false, err
		}
		if c.Name == "stderr" {
			return Output{Items: []Item{StderrItem(c.Text)}}, false, nil
		}
		return Output{Items: []Item{StdoutItem(c.Text)}}, false, nil

	case "display_data", "execute_result", "update_display_data":
		var c struct {
			Data map[string]json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(msg.Content, &c); err != nil {
			return Output{}, false, err
		}
		mimes := make([]string, 0, len(c.Data))
		for mime := range c.Data {
			mimes = append(mimes, mime)
		}
		sort.Strings(mimes)
		for _, mime := range mimes {
			raw := c.Data[mime]
			var s string
			if err := json.Unmarshal(raw, &s); err == nil {
				out.Items = append(out.Items, Item{MIME: mime, Data: []byte(s)})
				continue
			}
			out.Items = append(out.Items, Item{MIME: mime, Data: []byte(raw)})
		}
		return out, false, nil

	case "error":
		var c struct {
			Ename     string   `json:"ename"`
			Evalue    string   `json:"evalue"`
			Traceback []string `json:"traceback"`
		}
		if err := json.Unmarshal(msg.Content, &c); err != nil {
			return Output{}, false, err
		}
		body, err := errorBody(c.Ename, c.Evalue, strings.Join(c.Traceback, "\n"))
		if err != nil {
			return Output{}, false, err
		}
		return Output{Items: []Item{{MIME: MIMEError, Data: body}}}, false, nil

	case "status":
		var c struct {
			ExecutionState string `json:"execution_state"`
		}
		if err := json.Unmarshal(msg.Content, &c); err != nil {
			return Output{}, false, err
		}
		return Output{}, c.ExecutionState == "idle", nil
	}
	return Output{}, false, nil
}

// errorBody encodes an execution error as {name, message, stack}.
func errorBody(name, msg, stack string) ([]byte, error) {
	body := []byte(`{}`)
	var err error
	if body, err = sjson.SetBytes(body, "name", name); err != nil {
		return nil, err
	}
	if body, err = sjson.SetBytes(body, "message", msg); err != nil {
		return nil, err
	}
	if body, err = sjson.SetBytes(body, "stack", stack); err != nil {
		return nil, err
	}
	return body, nil
}

// ErrorItem builds an error item from its parts.
func ErrorItem(name, msg string) Item {
	body, err := errorBody(name, msg, "")
	if err != nil {
		body = []byte(`{}`)
	}
	return Item{MIME: MIMEError, Data: body}
}
