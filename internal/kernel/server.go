package kernel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"sort"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ErrUnauthorized is returned when the server rejects the configured token.
var ErrUnauthorized = errors.New("jupyter server rejected the token")

// ServerOptions configures a Server client.
type ServerOptions struct {
	URL        string // base URL, e.g. http://localhost:8888
	Token      string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Server is a client for the Jupyter Server REST and kernel channel APIs.
// It implements Locator: documents are session paths.
type Server struct {
	base   *url.URL
	token  string
	client *http.Client
	dialer *websocket.Dialer
	logger *zap.Logger
}

// Session is a notebook session as reported by /api/sessions.
type Session struct {
	ID     string      `json:"id"`
	Path   string      `json:"path"`
	Name   string      `json:"name"`
	Type   string      `json:"type"`
	Kernel KernelModel `json:"kernel"`
}

// KernelModel describes a running kernel.
type KernelModel struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	ExecutionState string `json:"execution_state"`
}

type kernelSpecs struct {
	Default     string `json:"default"`
	KernelSpecs map[string]struct {
		Name string `json:"name"`
		Spec struct {
			Language    string `json:"language"`
			DisplayName string `json:"display_name"`
		} `json:"spec"`
	} `json:"kernelspecs"`
}

// NewServer creates a Server client. The URL must be absolute http(s).
func NewServer(opts ServerOptions) (*Server, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("server URL is required")
	}
	u, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing server URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported server URL scheme %q", u.Scheme)
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 15 * time.Second
	return &Server{
		base:   u,
		token:  opts.Token,
		client: client,
		dialer: &dialer,
		logger: logger,
	}, nil
}

// URL returns the server base URL.
func (s *Server) URL() string { return s.base.String() }

// Sessions lists the sessions running on the server.
func (s *Server) Sessions(ctx context.Context) ([]Session, error) {
	var sessions []Session
	if err := s.getJSON(ctx, "api/sessions", &sessions); err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	return sessions, nil
}

// KernelLanguages maps kernelspec names to their language.
func (s *Server) KernelLanguages(ctx context.Context) (map[string]string, error) {
	var specs kernelSpecs
	if err := s.getJSON(ctx, "api/kernelspecs", &specs); err != nil {
		return nil, fmt.Errorf("listing kernelspecs: %w", err)
	}
	langs := make(map[string]string, len(specs.KernelSpecs))
	for name, spec := range specs.KernelSpecs {
		langs[name] = spec.Spec.Language
	}
	return langs, nil
}

// Documents lists the paths of notebook sessions whose kernel runs Python.
func (s *Server) Documents(ctx context.Context) ([]string, error) {
	sessions, err := s.Sessions(ctx)
	if err != nil {
		return nil, err
	}
	langs, err := s.KernelLanguages(ctx)
	if err != nil {
		return nil, err
	}

	var docs []string
	for _, sess := range sessions {
		if sess.Type != "" && sess.Type != "notebook" {
			continue
		}
		if sess.Kernel.ID == "" || !IsPython(langs[sess.Kernel.Name]) {
			continue
		}
		docs = append(docs, sess.Path)
	}
	sort.Strings(docs)
	return docs, nil
}

// KernelFor returns the kernel of the session at document, or nil if the
// document has no session.
func (s *Server) KernelFor(ctx context.Context, document string) (Kernel, error) {
	sessions, err := s.Sessions(ctx)
	if err != nil {
		return nil, err
	}
	for _, sess := range sessions {
		if sess.Path != document || sess.Kernel.ID == "" {
			continue
		}
		langs, err := s.KernelLanguages(ctx)
		if err != nil {
			return nil, err
		}
		return &remoteKernel{
			server:   s,
			id:       sess.Kernel.ID,
			name:     sess.Kernel.Name,
			language: langs[sess.Kernel.Name],
		}, nil
	}
	return nil, nil
}

func (s *Server) endpoint(elem ...string) *url.URL {
	u := *s.base
	u.Path = path.Join(append([]string{"/", u.Path}, elem...)...)
	u.RawQuery = ""
	return &u
}

func (s *Server) authorize(h http.Header) {
	if s.token != "" {
		h.Set("Authorization", "token "+s.token)
	}
}

func (s *Server) getJSON(ctx context.Context, p string, v any) error {
	u := s.endpoint(p)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	s.authorize(req.Header)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("GET %s: unexpected status %s", u.Path, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding %s: %w", u.Path, err)
	}
	return nil
}

// dial opens the channels websocket of a kernel.
func (s *Server) dial(ctx context.Context, kernelID, sessionID string) (*websocket.Conn, error) {
	u := s.endpoint("api", "kernels", kernelID, "channels")
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	q := url.Values{}
	q.Set("session_id", sessionID)
	if s.token != "" {
		q.Set("token", s.token)
	}
	u.RawQuery = q.Encode()

	header := http.Header{}
	s.authorize(header)
	conn, resp, err := s.dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	return conn, nil
}
