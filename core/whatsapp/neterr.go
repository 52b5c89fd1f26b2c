package whatsapp

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/url"
	"regexp"
)

var bearerRe = regexp.MustCompile(`Bearer\s+[A-Za-z0-9._~+/-]+=*`)

// statusError marks a non-2xx Graph API response.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	if e.body == "" {
		return "whatsapp api status " + httpStatusText(e.code)
	}
	return "whatsapp api status " + httpStatusText(e.code) + ": " + e.body
}

func httpStatusText(code int) string {
	// keep the numeric code; net/http texts add noise to log lines
	digits := [3]byte{}
	digits[0] = byte('0' + code/100)
	digits[1] = byte('0' + (code/10)%10)
	digits[2] = byte('0' + code%10)
	return string(digits[:])
}

// classifyError buckets a delivery failure for log quality.
func classifyError(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return "timeout"
		}
		return "dns"
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Timeout() {
			return "timeout"
		}
		if opErr.Op == "dial" {
			return "dial"
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return "timeout"
		}
		if urlErr.Err != nil && !errors.Is(urlErr.Err, err) {
			if kind := classifyError(urlErr.Err); kind != "" && kind != "unknown" {
				return kind
			}
		}
	}

	var alertErr tls.AlertError
	if errors.As(err, &alertErr) {
		return "tls"
	}

	var stErr *statusError
	if errors.As(err, &stErr) {
		switch {
		case stErr.code >= 500:
			return "http_5xx"
		case stErr.code >= 400:
			return "http_4xx"
		}
	}

	return "unknown"
}

// sanitizeErrorMessage prevents accidental leakage of the Graph API access token in logs.
func sanitizeErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if msg == "" {
		return ""
	}
	return bearerRe.ReplaceAllString(msg, "Bearer <redacted>")
}
