// Package transport sends rendered request bodies to providers and exposes
// the response as a line source for the stream parser.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	log "github.com/nghyane/llm-wire/internal/logging"
	"github.com/nghyane/llm-wire/internal/provider"
	"github.com/nghyane/llm-wire/internal/wire/body"
	"github.com/nghyane/llm-wire/internal/wire/stream"
	"golang.org/x/net/proxy"
)

type Options struct {
	// ProxyURL accepts http, https, socks5 and socks5h URLs.
	ProxyURL string
	// ResponseHeaderTimeout bounds the wait for response headers only.
	ResponseHeaderTimeout time.Duration
	MaxLineSize           int
}

type Client struct {
	http        *http.Client
	maxLineSize int
}

func New(opts Options) (*Client, error) {
	tr, err := newTransport(opts.ProxyURL)
	if err != nil {
		return nil, err
	}
	tr.ResponseHeaderTimeout = opts.ResponseHeaderTimeout
	return &Client{http: &http.Client{Transport: tr}, maxLineSize: opts.MaxLineSize}, nil
}

// NewWithHTTPClient wraps an existing client, mostly for tests.
func NewWithHTTPClient(hc *http.Client, maxLineSize int) *Client {
	return &Client{http: hc, maxLineSize: maxLineSize}
}

func newTransport(proxyURL string) (*http.Transport, error) {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if strings.TrimSpace(proxyURL) == "" {
		return tr, nil
	}
	u, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("transport: parse proxy url: %w", err)
	}
	switch u.Scheme {
	case "socks5", "socks5h":
		var auth *proxy.Auth
		if u.User != nil {
			password, _ := u.User.Password()
			auth = &proxy.Auth{User: u.User.Username(), Password: password}
		}
		dialer, err := proxy.SOCKS5("tcp", u.Host, auth, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("transport: create SOCKS5 dialer: %w", err)
		}
		tr.Proxy = nil
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			tr.DialContext = cd.DialContext
		} else {
			tr.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		}
	case "http", "https":
		tr.Proxy = http.ProxyURL(u)
	default:
		return nil, fmt.Errorf("transport: unsupported proxy scheme %q", u.Scheme)
	}
	return tr, nil
}

type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// Stream is an open provider response. It must be closed.
type Stream struct {
	StatusCode int
	Header     http.Header

	lines *stream.ScannerSource
	body  io.ReadCloser
	once  sync.Once
}

func (s *Stream) Next() (string, error) {
	return s.lines.Next()
}

func (s *Stream) Close() error {
	var err error
	s.once.Do(func() { err = s.body.Close() })
	return err
}

// Open performs req and returns the decoded response body as lines. Non-2xx
// responses are read, closed and returned as *StatusError.
func (c *Client) Open(ctx context.Context, req Request) (*Stream, error) {
	method := req.Method
	if method == "" {
		method = http.MethodPost
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return nil, fmt.Errorf("transport: build request: %w", err)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if httpReq.Header.Get("Content-Type") == "" && len(req.Body) > 0 {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "text/event-stream")
	}
	if httpReq.Header.Get("Accept-Encoding") == "" {
		httpReq.Header.Set("Accept-Encoding", acceptEncoding)
	}

	if log.GetLevel() <= slog.LevelDebug {
		fields := log.Fields{"method": method, "url": log.MaskURL(req.URL), "bytes": len(req.Body)}
		for k := range httpReq.Header {
			fields["header."+strings.ToLower(k)] = log.MaskHeader(k, httpReq.Header.Get(k))
		}
		log.WithFields(fields).Debug("transport: sending request")
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("transport: %w", err)
	}
	decoded, err := decodeBody(resp.Body, resp.Header.Get("Content-Encoding"))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(decoded, maxErrorBody))
		_ = decoded.Close()
		msg := strings.TrimSpace(string(data))
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Category:   CategorizeError(resp.StatusCode, msg),
			Body:       msg,
		}
	}
	return &Stream{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		lines:      stream.NewScannerSource(decoded, c.maxLineSize),
		body:       decoded,
	}, nil
}

// Send renders conv for def in send mode and opens the response stream.
func (c *Client) Send(ctx context.Context, def *provider.Definition, conv body.Conversation, rt body.RuntimeValues) (*Stream, error) {
	res, err := def.Build(conv, rt, body.ModeSend)
	if err != nil {
		return nil, fmt.Errorf("transport: build %s request: %w", def.Name, err)
	}
	endpoint, headers := def.Endpoint(rt)
	return c.Open(ctx, Request{
		Method:  def.HTTPMethod(),
		URL:     endpoint,
		Headers: headers,
		Body:    res.Body,
	})
}
