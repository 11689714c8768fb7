package integration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestClassifySortsErrorsIntoTaxonomy(t *testing.T) {
	var decodeTarget struct{ N int }
	jsonErr := json.Unmarshal([]byte(`{`), &decodeTarget)
	if jsonErr == nil {
		t.Fatalf("expected malformed json to fail decoding")
	}

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"classified error passes through", AuthErr("kepco", errors.New("expired")), KindAuth},
		{"wrapped classified error passes through", fmt.Errorf("fetch: %w", ParseErr("kepco", errors.New("bad"))), KindParse},
		{"context cancellation", context.Canceled, KindConnection},
		{"deadline exceeded", context.DeadlineExceeded, KindConnection},
		{"json syntax error", jsonErr, KindParse},
		{"invalid character message", errors.New(`invalid character '<' looking for beginning of value`), KindParse},
		{"connection refused message", errors.New("dial tcp: connection refused"), KindConnection},
		{"tls handshake message", errors.New("tls: handshake failure"), KindConnection},
		{"unknown error defaults to connection", errors.New("something odd"), KindConnection},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify("kepco", tt.err)
			if got.Kind != tt.want {
				t.Fatalf("Classify(%v) = %s, want %s", tt.err, got.Kind, tt.want)
			}
			if got.Service != "kepco" {
				t.Fatalf("classified error lost its service tag: %q", got.Service)
			}
		})
	}

	if Classify("kepco", nil) != nil {
		t.Fatalf("Classify(nil) must return nil")
	}
}

func TestKindOfAndIsKind(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", RateLimitedErr("gasapp", time.Minute, errors.New("429")))
	if KindOf(err) != KindRateLimited {
		t.Fatalf("KindOf lost the classification through wrapping: %s", KindOf(err))
	}
	if !IsKind(err, KindRateLimited) {
		t.Fatalf("IsKind must see through wrapping")
	}
	if IsKind(errors.New("plain"), KindAuth) {
		t.Fatalf("unclassified error must not match any kind")
	}
	if KindOf(nil) != "" {
		t.Fatalf("KindOf(nil) must be empty")
	}
}

func TestCheckStatusMapsHTTPFailures(t *testing.T) {
	makeResp := func(status int, header http.Header) *http.Response {
		if header == nil {
			header = http.Header{}
		}
		return &http.Response{
			StatusCode: status,
			Header:     header,
			Body:       io.NopCloser(strings.NewReader("body text")),
		}
	}

	if err := CheckStatus("kepco", makeResp(http.StatusOK, nil)); err != nil {
		t.Fatalf("2xx must pass, got %v", err)
	}
	if err := CheckStatus("kepco", makeResp(http.StatusUnauthorized, nil)); !IsKind(err, KindAuth) {
		t.Fatalf("401 must classify as auth, got %v", err)
	}
	if err := CheckStatus("kepco", makeResp(http.StatusForbidden, nil)); !IsKind(err, KindAuth) {
		t.Fatalf("403 must classify as auth, got %v", err)
	}
	if err := CheckStatus("kepco", makeResp(http.StatusInternalServerError, nil)); !IsKind(err, KindConnection) {
		t.Fatalf("500 must classify as connection, got %v", err)
	}

	header := http.Header{}
	header.Set("Retry-After", "90")
	err := CheckStatus("kepco", makeResp(http.StatusTooManyRequests, header))
	if !IsKind(err, KindRateLimited) {
		t.Fatalf("429 must classify as rate limited, got %v", err)
	}
	var serviceErr *ServiceError
	if !errors.As(err, &serviceErr) || serviceErr.RetryAfter != 90*time.Second {
		t.Fatalf("expected 90s retry advisory, got %v", serviceErr.RetryAfter)
	}
}

func TestRetryAfterParsesSecondsAndRejectsGarbage(t *testing.T) {
	resp := &http.Response{Header: http.Header{}}
	if got := retryAfter(resp); got != 0 {
		t.Fatalf("missing header must yield zero, got %v", got)
	}
	resp.Header.Set("Retry-After", "not-a-delay")
	if got := retryAfter(resp); got != 0 {
		t.Fatalf("garbage header must yield zero, got %v", got)
	}
	resp.Header.Set("Retry-After", "30")
	if got := retryAfter(resp); got != 30*time.Second {
		t.Fatalf("expected 30s, got %v", got)
	}
}

func TestServiceErrorMessageIncludesServiceAndKind(t *testing.T) {
	err := ConnectionErr("arisu", errors.New("dial failed"))
	message := err.Error()
	if !strings.Contains(message, "arisu") || !strings.Contains(message, string(KindConnection)) {
		t.Fatalf("unexpected message: %q", message)
	}
	if !errors.Is(err, err.Err) {
		t.Fatalf("Unwrap must expose the underlying error")
	}
}
