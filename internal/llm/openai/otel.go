package openai

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"

	"github.com/bakkerme/polaris/internal/config"

	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// dataURLPattern matches inline base64 payloads so attachments never end up
// verbatim in span attributes.
var dataURLPattern = regexp.MustCompile(`data:([a-zA-Z0-9.+\-/]+);base64,([A-Za-z0-9+/=]+)`)

func openAIMiddleware(cfg config.OpenAIOTelEnvConfig) option.Middleware {
	return func(req *http.Request, next option.MiddlewareNext) (*http.Response, error) {
		span := trace.SpanFromContext(req.Context())
		if cfg.CaptureBodies && span.IsRecording() && req.Body != nil {
			req.Body = newCaptureReadCloser(req.Body, cfg.MaxBodyBytes, func(body []byte, truncated bool) {
				bodyStr := redactDataURLs(bytesToString(body))
				span.SetAttributes(
					attribute.String("input.mime_type", "application/json"),
					attribute.String("input.value", bodyStr),
					attribute.Bool("input.truncated", truncated),
				)
				span.AddEvent("openai.request.body", trace.WithAttributes(
					attribute.String("http.method", req.Method),
					attribute.String("http.url", req.URL.String()),
					attribute.Bool("truncated", truncated),
				))
			})
		}

		res, err := next(req)
		if err != nil || res == nil {
			return res, err
		}

		if span.IsRecording() {
			span.AddEvent("openai.response.meta", trace.WithAttributes(
				attribute.Int("http.status_code", res.StatusCode),
			))
		}

		if cfg.CaptureBodies && span.IsRecording() && res.Body != nil {
			res.Body = newCaptureReadCloser(res.Body, cfg.MaxBodyBytes, func(body []byte, truncated bool) {
				span.SetAttributes(
					attribute.String("output.mime_type", "application/json"),
					attribute.String("output.value", bytesToString(body)),
					attribute.Bool("output.truncated", truncated),
				)
			})
		}
		return res, nil
	}
}

// captureReadCloser tees up to maxBytes of a body (negative means unlimited,
// zero disables capture) and reports it once on Close.
type captureReadCloser struct {
	rc          io.ReadCloser
	maxBytes    int
	buf         bytes.Buffer
	truncated   bool
	onCloseOnce sync.Once
	onClose     func([]byte, bool)
}

func newCaptureReadCloser(rc io.ReadCloser, maxBytes int, onClose func([]byte, bool)) io.ReadCloser {
	if rc == nil {
		return rc
	}
	return &captureReadCloser{rc: rc, maxBytes: maxBytes, onClose: onClose}
}

func (c *captureReadCloser) Read(p []byte) (int, error) {
	n, err := c.rc.Read(p)
	if n > 0 && c.maxBytes != 0 {
		c.capture(p[:n])
	}
	return n, err
}

func (c *captureReadCloser) capture(chunk []byte) {
	if c.maxBytes < 0 {
		_, _ = c.buf.Write(chunk)
		return
	}
	remaining := c.maxBytes - c.buf.Len()
	switch {
	case remaining <= 0:
		c.truncated = true
	case remaining >= len(chunk):
		_, _ = c.buf.Write(chunk)
	default:
		_, _ = c.buf.Write(chunk[:remaining])
		c.truncated = true
	}
}

func (c *captureReadCloser) Close() error {
	c.onCloseOnce.Do(func() {
		if c.onClose != nil {
			c.onClose(c.buf.Bytes(), c.truncated)
		}
	})
	return c.rc.Close()
}

func redactDataURLs(s string) string {
	return dataURLPattern.ReplaceAllStringFunc(s, func(match string) string {
		sub := dataURLPattern.FindStringSubmatch(match)
		return fmt.Sprintf("data:%s;base64,<%d chars elided>", sub[1], len(sub[2]))
	})
}

func bytesToString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return strings.ToValidUTF8(string(b), "�")
}
