package goodsflow

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/micro-ha/korea-connect/internal/integration"
	"github.com/micro-ha/korea-connect/internal/model"
)

func newTestClient(t *testing.T, server *httptest.Server, token string) *Client {
	t.Helper()
	session, err := integration.NewSession(integration.SessionOptions{})
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}
	t.Cleanup(session.Close)
	client := NewClient(session, model.Credentials{"token": token}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	client.baseURL = server.URL
	return client
}

const trackingDoc = `{
	"success": true,
	"data": {"transList": {"totalCount": 4, "rows": [
		{"status": "배송중", "name": "크리스마스 선물"},
		{"status": "배송완료", "name": "책"},
		{"status": "상품준비중", "name": "노트북"},
		{"status": "수령완료", "name": "케이블"}
	]}}
}`

func TestFetchSummarizesParcelStatuses(t *testing.T) {
	var gotCookie string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCookie = r.Header.Get("Cookie")
		io.WriteString(w, trackingDoc)
	}))
	defer server.Close()

	client := newTestClient(t, server, "ptk-token-value")
	record, err := client.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}

	if gotCookie != "PTK-TOKEN=ptk-token-value" {
		t.Fatalf("unexpected auth cookie %q", gotCookie)
	}

	summary := gjson.GetBytes(record.Data, "summary")
	if got := summary.Get("total_packages").Int(); got != 4 {
		t.Fatalf("total_packages = %d, want 4", got)
	}
	if got := summary.Get("active_packages").Int(); got != 2 {
		t.Fatalf("active_packages = %d, want 2", got)
	}
	if got := summary.Get("delivered_packages").Int(); got != 2 {
		t.Fatalf("delivered_packages = %d, want 2", got)
	}
	if got := summary.Get("latest_status").String(); got != "배송중" {
		t.Fatalf("latest_status = %q", got)
	}
	if got := gjson.GetBytes(record.Data, "packages.#").Int(); got != 4 {
		t.Fatalf("expected 4 raw rows, got %d", got)
	}
}

func TestRejectedTokenIsAuthClassified(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"success": false}`)
	}))
	defer server.Close()

	client := newTestClient(t, server, "stale-token")
	err := client.Login(context.Background())
	if !integration.IsKind(err, integration.KindAuth) {
		t.Fatalf("expected auth classification, got %v", err)
	}
}

func TestLoginRequiresToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("no request may be made without a token")
	}))
	defer server.Close()

	client := newTestClient(t, server, "")
	err := client.Login(context.Background())
	if !integration.IsKind(err, integration.KindAuth) {
		t.Fatalf("expected auth classification, got %v", err)
	}
}

func TestMalformedListIsParseClassified(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<html>gateway error</html>")
	}))
	defer server.Close()

	client := newTestClient(t, server, "token")
	_, err := client.Fetch(context.Background())
	if !integration.IsKind(err, integration.KindParse) {
		t.Fatalf("expected parse classification, got %v", err)
	}
}
