package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const (
	// ContentTypeSOAP is sent with every protocol request
	ContentTypeSOAP = "application/soap+xml; charset=utf-8"
	// UserAgent identifies the caller as the legacy update agent the service expects
	UserAgent = "Windows-Update-Agent/10.0.10011.16384 Client-Protocol/1.40"
	// DefaultChunkSize is the read size used while streaming content
	DefaultChunkSize = 1024 * 1024
)

// ChunkHandler receives each chunk of a streamed body in order, with the
// cumulative byte count and the declared total (0 when unknown). The chunk
// slice is reused after the handler returns. A non-nil error stops the stream
// and is returned unchanged by StreamGet.
type ChunkHandler func(chunk []byte, downloaded, total int64) error

// StatusError is returned for a response outside the 2xx range
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Status     string
}

// Error implements the error interface
func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %s", e.Method, e.URL, e.Status)
}

// Config holds session options
type Config struct {
	// RequestTimeout bounds each PostXML call. Zero means no deadline beyond the caller's context.
	RequestTimeout time.Duration
	// StreamTimeout bounds each whole StreamGet transfer. Zero means none.
	StreamTimeout time.Duration
	// ChunkSize overrides DefaultChunkSize
	ChunkSize int
	// HTTPClient shares an existing client. The session does not close a shared client.
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Session owns one HTTP connection pool for the lifetime of a download workflow
type Session struct {
	client    *http.Client
	owned     *http.Transport
	config    Config
	logger    *zap.Logger
	closed    atomic.Bool
	chunkSize int
}

// NewSession creates a session. Unless cfg.HTTPClient is set it gets a private
// connection pool that Close releases.
func NewSession(cfg Config) *Session {
	s := &Session{
		config:    cfg,
		logger:    cfg.Logger,
		chunkSize: cfg.ChunkSize,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.chunkSize <= 0 {
		s.chunkSize = DefaultChunkSize
	}

	if cfg.HTTPClient != nil {
		s.client = cfg.HTTPClient
	} else {
		s.owned = http.DefaultTransport.(*http.Transport).Clone()
		s.client = &http.Client{Transport: s.owned}
	}
	return s
}

// ErrSessionClosed is returned by requests issued after Close
var ErrSessionClosed = errors.New("transport session closed")

// Close releases the session's idle connections. It is safe to call more than once.
func (s *Session) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if s.owned != nil {
		s.owned.CloseIdleConnections()
	}
	return nil
}

// PostXML posts a SOAP document and returns the response body
func (s *Session) PostXML(ctx context.Context, url string, body []byte) ([]byte, error) {
	s.logger.Debug("posting protocol request", zap.String("url", url), zap.Int("bytes", len(body)))
	return s.roundTrip(ctx, http.MethodPost, url, body, func(req *http.Request) {
		req.Header.Set("Content-Type", ContentTypeSOAP)
		req.Header.Set("User-Agent", UserAgent)
	})
}

// Get fetches a small document such as the version catalog and returns its body
func (s *Session) Get(ctx context.Context, url string) ([]byte, error) {
	s.logger.Debug("fetching document", zap.String("url", url))
	return s.roundTrip(ctx, http.MethodGet, url, nil, nil)
}

// roundTrip performs a bounded request and reads the whole response body
func (s *Session) roundTrip(ctx context.Context, method, url string, body []byte, prepare func(*http.Request)) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrSessionClosed
	}

	if s.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.RequestTimeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if prepare != nil {
		prepare(req)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{Method: method, URL: url, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return data, nil
}

// StreamGet fetches url and hands the body to onChunk in chunks of the
// session's chunk size. Every chunk except the last is full-sized.
func (s *Session) StreamGet(ctx context.Context, url string, onChunk ChunkHandler) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}

	if s.config.StreamTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.StreamTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return &StatusError{Method: http.MethodGet, URL: url, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	var total int64
	if resp.ContentLength > 0 {
		total = resp.ContentLength
	}

	s.logger.Debug("streaming content", zap.String("url", url), zap.Int64("total", total))

	buf := make([]byte, s.chunkSize)
	var downloaded int64
	for {
		n, readErr := io.ReadFull(resp.Body, buf)
		if n > 0 {
			downloaded += int64(n)
			if err := onChunk(buf[:n], downloaded, total); err != nil {
				return err
			}
		}
		switch {
		case readErr == nil:
			continue
		case errors.Is(readErr, io.EOF), errors.Is(readErr, io.ErrUnexpectedEOF):
			if total > 0 && downloaded < total {
				return fmt.Errorf("stream ended after %d of %d bytes: %w", downloaded, total, io.ErrUnexpectedEOF)
			}
			return nil
		default:
			return fmt.Errorf("failed to read body: %w", readErr)
		}
	}
}

func isSuccess(code int) bool {
	return code >= 200 && code < 300
}
