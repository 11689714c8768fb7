package gasapp

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

func newTestClient(t *testing.T, server *httptest.Server, creds model.Credentials) *Client {
	t.Helper()
	session, err := integration.NewSession(integration.SessionOptions{})
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}
	t.Cleanup(session.Close)
	client := NewClient(session, creds, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if server != nil {
		client.baseURL = server.URL
	}
	return client
}

func TestFetchCarriesAppHeadersAndContract(t *testing.T) {
	var gotHeader http.Header
	var gotContract string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Clone()
		gotContract = r.URL.Query().Get("useContractNum")
		io.WriteString(w, `{"cards": {"bill": {"requestAmt": 34120, "useQuantity": "12.5"}}}`)
	}))
	defer server.Close()

	creds := model.Credentials{"token": "tok", "member_id": "m-1", "use_contract_num": "987654"}
	client := newTestClient(t, server, creds)
	record, err := client.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}

	if got := gotHeader.Get("X-Token"); got != "tok" {
		t.Fatalf("X-Token = %q", got)
	}
	if got := gotHeader.Get("X-Member"); got != "m-1" {
		t.Fatalf("X-Member = %q", got)
	}
	if got := gotHeader.Get("X-Company"); got != "1" {
		t.Fatalf("X-Company = %q", got)
	}
	if gotContract != "987654" {
		t.Fatalf("useContractNum = %q", gotContract)
	}

	if got := gjson.GetBytes(record.Data, "home.cards.bill.requestAmt").Num; got != 34120 {
		t.Fatalf("requestAmt = %v, want 34120", got)
	}
}

func TestLoginRequiresTokenAndMember(t *testing.T) {
	client := newTestClient(t, nil, model.Credentials{"token": "tok"})
	err := client.Login(context.Background())
	if !integration.IsKind(err, integration.KindAuth) {
		t.Fatalf("expected auth classification, got %v", err)
	}
}

func TestExpiredTokenIsAuthClassified(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "expired", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(t, server, model.Credentials{"token": "old", "member_id": "m-1"})
	err := client.Login(context.Background())
	if !integration.IsKind(err, integration.KindAuth) {
		t.Fatalf("expected auth classification, got %v", err)
	}
}
