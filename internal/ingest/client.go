// Package ingest reads a chat backend's streamed reply and feeds it, chunk by chunk, into the
// placeholder message of a transcript.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
)

// ErrConnectivity matches every failure that surfaces to the user as the connectivity message:
// StatusError and TransportError both unwrap to it.
var ErrConnectivity = errors.New("chat backend unreachable")

// StatusError is returned when the backend answers with a non-2xx status. The body is not read.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("chat backend returned status %d", e.StatusCode)
}

// Is reports ErrConnectivity as a match.
func (e *StatusError) Is(target error) bool {
	return target == ErrConnectivity
}

// TransportError wraps a failure to send the request or to read the response body.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is reports ErrConnectivity as a match.
func (e *TransportError) Is(target error) bool {
	return target == ErrConnectivity
}

type chatRequest struct {
	Message string `json:"message"`
}

const defaultChunkSize = 4 << 10

// Client posts messages to a chat endpoint that answers with a raw text stream.
type Client struct {
	endpoint  string
	chunkSize int

	client *http.Client
	logger *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		if c != nil {
			cl.client = c
		}
	}
}

// WithChunkSize sets the size of the buffer each body read fills at most.
func WithChunkSize(n int) ClientOption {
	return func(cl *Client) {
		if n > 0 {
			cl.chunkSize = n
		}
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l *slog.Logger) ClientOption {
	return func(cl *Client) {
		if l != nil {
			cl.logger = l
		}
	}
}

// NewClient creates a Client for endpoint, the full URL of the chat route.
func NewClient(endpoint string, opts ...ClientOption) Client {
	c := Client{
		endpoint:  endpoint,
		chunkSize: defaultChunkSize,
		client:    &http.Client{},
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&c)
	}
	c.logger = c.logger.With(slog.String("module", "ingest"))
	return c
}

// Endpoint returns the URL the client posts to.
func (c Client) Endpoint() string {
	return c.endpoint
}

// Open sends message to the endpoint and returns the response stream once the backend answered with
// a success status. A non-2xx status yields a *StatusError and a failed request a *TransportError;
// in both cases there is nothing to close.
func (c Client) Open(ctx context.Context, message string) (*Stream, error) {
	body, err := json.Marshal(chatRequest{Message: message})
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/plain")

	c.logger.Debug("Sending message", slog.String("endpoint", c.endpoint), slog.Int("bytes", len(body)))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "send request", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	return NewStream(resp.Body, c.chunkSize), nil
}

// Stream is an open response body.
type Stream struct {
	body      io.ReadCloser
	chunkSize int
}

// NewStream wraps body so its content can be consumed as decoded text chunks. chunkSize bounds a
// single read; a non-positive value selects the default.
func NewStream(body io.ReadCloser, chunkSize int) *Stream {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	return &Stream{body: body, chunkSize: chunkSize}
}

// Chunks yields the body as text, one element per read, in the order the bytes were received. A read
// failure is yielded as a *TransportError and ends the sequence. Chunks that only held the first
// bytes of a multi-byte rune are merged into the following one. The body is closed when the
// sequence ends or the consumer stops early.
func (s *Stream) Chunks() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		defer s.body.Close()

		var dec decoder
		buf := make([]byte, s.chunkSize)
		for {
			n, err := s.body.Read(buf)
			if n > 0 {
				if text := dec.decode(buf[:n]); text != "" {
					if !yield(text, nil) {
						return
					}
				}
			}
			if err != nil {
				if errors.Is(err, io.EOF) {
					if rest := dec.flush(); rest != "" {
						yield(rest, nil)
					}
					return
				}
				yield("", &TransportError{Op: "read response", Err: err})
				return
			}
		}
	}
}

// Close releases the body without reading it.
func (s *Stream) Close() error {
	return s.body.Close()
}
