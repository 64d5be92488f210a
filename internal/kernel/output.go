package kernel

import (
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// MIME tags carried by output items. Stream text and execution errors use
// the notebook output conventions so that consumers can treat items from any
// transport the same way.
const (
	MIMEStdout      = "application/vnd.code.notebook.stdout"
	MIMEStderr      = "application/vnd.code.notebook.stderr"
	MIMEError       = "application/vnd.code.notebook.error"
	MIMEEnvironment = "application/vnd.custom.remote.environment.manager"
)

// Item is one MIME-tagged payload of a kernel output chunk.
type Item struct {
	MIME string
	Data []byte
}

// Text decodes the payload as UTF-8. Invalid sequences are replaced rather
// than rejected.
func (i Item) Text() string {
	if utf8.Valid(i.Data) {
		return string(i.Data)
	}
	return strings.ToValidUTF8(string(i.Data), "\uFFFD")
}

// Output is one chunk received while executing code on a kernel.
type Output struct {
	Items []Item
}

// Find returns the first item with the given MIME tag.
func (o Output) Find(mime string) (Item, bool) {
	for _, item := range o.Items {
		if item.MIME == mime {
			return item, true
		}
	}
	return Item{}, false
}

// StdoutItem builds a stdout stream item.
func StdoutItem(text string) Item { return Item{MIME: MIMEStdout, Data: []byte(text)} }

// StderrItem builds a stderr stream item.
func StderrItem(text string) Item { return Item{MIME: MIMEStderr, Data: []byte(text)} }

// ExecutionError is the decoded body of an error item.
type ExecutionError struct {
	Name    string
	Message string
	Stack   string
}

func (e ExecutionError) Error() string {
	if e.Name == "" {
		return e.Message
	}
	return e.Name + ": " + e.Message
}

// DecodeError decodes an error item body. Bodies that are not JSON objects
// are returned as the message.
func DecodeError(item Item) ExecutionError {
	text := item.Text()
	if !gjson.Valid(text) || !gjson.Parse(text).IsObject() {
		return ExecutionError{Message: strings.TrimSpace(text)}
	}
	fields := gjson.GetMany(text, "name", "message", "stack")
	return ExecutionError{Name: fields[0].String(), Message: fields[1].String(), Stack: fields[2].String()}
}

// LogErrors logs every error item of out with msg and reports whether any
// was found. Execution continues after an error item, so callers keep
// consuming the stream.
func LogErrors(logger *zap.Logger, msg string, out Output) bool {
	found := false
	for _, item := range out.Items {
		if item.MIME != MIMEError {
			continue
		}
		found = true
		e := DecodeError(item)
		logger.Error(msg,
			zap.String("error_name", e.Name),
			zap.String("error_message", e.Message),
			zap.String("stack", e.Stack))
	}
	return found
}
