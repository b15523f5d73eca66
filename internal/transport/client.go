// Package transport submits a compressed snapshot to the analysis service
// and returns the raw response text.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"time"

	"github.com/dbsmedya/schemacheck/internal/logger"
)

// Multipart part metadata expected by the service.
const (
	FieldName   = "data"
	FileName    = "schema_introspection.json"
	ContentType = "application/gzip"
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 1 << 20

// Submission is one upload.
type Submission struct {
	Project   string
	GitBranch string
	GitHash   string
	Payload   []byte // gzip-compressed document
}

// Options configures a Client.
type Options struct {
	Endpoint     string
	Token        string
	Timeout      time.Duration
	MaxRedirects int
	// HTTPClient replaces the default client; Timeout and MaxRedirects are
	// then ignored.
	HTTPClient *http.Client
}

// StatusError is returned for a non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed with status '%d'", e.StatusCode)
}

// Client performs a single POST per Submit call. It never retries.
type Client struct {
	endpoint string
	token    string
	http     *http.Client
	logger   *logger.Logger
}

// NewClient builds the HTTP client. The endpoint is checked on Submit.
func NewClient(opts Options, log *logger.Logger) *Client {
	if log == nil {
		log = logger.NewNop()
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		maxRedirects := opts.MaxRedirects
		httpClient = &http.Client{
			Timeout: opts.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) > maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		}
	}

	return &Client{
		endpoint: opts.Endpoint,
		token:    opts.Token,
		http:     httpClient,
		logger:   log,
	}
}

// Submit uploads the payload and returns the response body. Non-2xx
// responses return a *StatusError; their body is logged.
func (c *Client) Submit(ctx context.Context, sub Submission) (string, error) {
	target, err := c.submitURL(sub)
	if err != nil {
		return "", err
	}

	body, contentType, err := encodeMultipart(sub.Payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+c.token)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	text := string(data)

	c.logger.Debugw("Submission completed",
		"status", resp.StatusCode,
		"payload_bytes", len(sub.Payload),
		"duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Errorw("Analysis service rejected the submission", "status", resp.StatusCode, "body", text)
		return "", &StatusError{StatusCode: resp.StatusCode, Body: text}
	}
	return text, nil
}

func (c *Client) submitURL(sub Submission) (string, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fmt.Errorf("invalid service endpoint %q", c.endpoint)
	}
	q := u.Query()
	q.Set("project", sub.Project)
	if sub.GitBranch != "" {
		q.Set("git_branch", sub.GitBranch)
	}
	if sub.GitHash != "" {
		q.Set("git_hash", sub.GitHash)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func encodeMultipart(payload []byte) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, FieldName, FileName))
	header.Set("Content-Type", ContentType)
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create multipart part: %w", err)
	}
	if _, err := part.Write(payload); err != nil {
		return nil, "", fmt.Errorf("failed to write multipart part: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart body: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// IsStatusError reports whether err is a non-2xx response.
func IsStatusError(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr)
}
