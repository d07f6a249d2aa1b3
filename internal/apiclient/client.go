// Package apiclient talks to the remote catalog REST API.
package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/valyala/fasthttp"

	applog "eyewear/internal/log"
	"eyewear/internal/services"
)

// Error is a non-2xx answer from the API.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("catalog api: status %d", e.Status)
	}
	return fmt.Sprintf("catalog api: status %d: %s", e.Status, e.Message)
}

type Client struct {
	BaseURL string
	Timeout time.Duration
	HTTP    *fasthttp.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Timeout: timeout,
		HTTP: &fasthttp.Client{
			Name:                     "eyewear",
			MaxConnsPerHost:          64,
			ReadTimeout:              timeout,
			WriteTimeout:             timeout,
			NoDefaultUserAgentHeader: true,
		},
	}
}

type request struct {
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
}

// do sends req and decodes a 2xx body into out. A request whose context
// ends before the answer arrives returns the context error and the answer
// is dropped.
func (c *Client) do(ctx context.Context, r request, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	uri := c.BaseURL + r.path
	if len(r.query) > 0 {
		uri += "?" + r.query.Encode()
	}
	req.SetRequestURI(uri)
	req.Header.SetMethod(r.method)
	req.Header.Set(fasthttp.HeaderAccept, "application/json")
	if r.body != nil {
		ct := r.contentType
		if ct == "" {
			ct = "application/json"
		}
		req.Header.SetContentType(ct)
		req.SetBodyRaw(r.body)
	}

	deadline := time.Now().Add(c.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	start := time.Now()
	err := c.HTTP.DoDeadline(req, resp, deadline)
	if cerr := ctx.Err(); cerr != nil {
		return cerr
	}
	if d, ok := ctx.Deadline(); ok && err != nil && !time.Now().Before(d) {
		return context.DeadlineExceeded
	}
	if err != nil {
		applog.L().Warn().Err(err).Str("method", r.method).Str("path", r.path).Msg("catalog api: request failed")
		return fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}
	applog.L().Debug().Str("method", r.method).Str("path", r.path).
		Int("status", resp.StatusCode()).Dur("latency", time.Since(start)).Msg("catalog api")

	status := resp.StatusCode()
	body := resp.Body()
	switch {
	case status == fasthttp.StatusNotFound:
		return services.ErrNotFound
	case status == fasthttp.StatusBadRequest || status == fasthttp.StatusUnprocessableEntity:
		return &services.ValidationError{Message: messageOf(body, status)}
	case status < 200 || status > 299:
		return &Error{Status: status, Message: messageOf(body, status)}
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", r.method, r.path, err)
	}
	return nil
}

func messageOf(body []byte, status int) string {
	var e struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &e) == nil && e.Message != "" {
		return e.Message
	}
	return fasthttp.StatusMessage(status)
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	return c.do(ctx, request{method: fasthttp.MethodGet, path: path, query: q}, out)
}

func (c *Client) send(ctx context.Context, method, path string, in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return c.do(ctx, request{method: method, path: path, body: b}, out)
}

func (c *Client) delete(ctx context.Context, path string, q url.Values) error {
	return c.do(ctx, request{method: fasthttp.MethodDelete, path: path, query: q}, nil)
}

func pageQuery(limit, page int) url.Values {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("page", strconv.Itoa(page))
	return q
}

// list decodes either a bare array or an object wrapping it under docs/data.
type list[T any] []T

func (l *list[T]) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var xs []T
		if err := json.Unmarshal(b, &xs); err != nil {
			return err
		}
		*l = xs
		return nil
	}
	var w struct {
		Docs []T `json:"docs"`
		Data []T `json:"data"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	if w.Docs != nil {
		*l = w.Docs
	} else {
		*l = w.Data
	}
	return nil
}
