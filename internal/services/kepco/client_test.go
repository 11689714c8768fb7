package kepco

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
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
	client.baseURL = server.URL
	return client
}

func introHTML(key *rsa.PrivateKey, sessID string) string {
	return fmt.Sprintf(`<html><body><form>
		<input type="hidden" id="RSAModulus" value="%x" />
		<input type="hidden" id="RSAExponent" value="%x" />
		<input type="hidden" id="SESSID" value="%s" />
	</form></body></html>`, key.N, key.E, sessID)
}

// decryptField reverses the login form encoding: "SESSID_hexcipher".
func decryptField(t *testing.T, key *rsa.PrivateKey, field, sessID string) string {
	t.Helper()
	prefix := sessID + "_"
	if !strings.HasPrefix(field, prefix) {
		t.Fatalf("field %q missing session prefix %q", field, prefix)
	}
	cipher, err := hex.DecodeString(strings.TrimPrefix(field, prefix))
	if err != nil {
		t.Fatalf("field is not hex: %v", err)
	}
	plain, err := rsa.DecryptPKCS1v15(nil, key, cipher)
	if err != nil {
		t.Fatalf("decrypt failed: %v", err)
	}
	return string(plain)
}

func TestLoginEncryptsCredentialsAgainstScrapedKey(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 1024)
	if err != nil {
		t.Fatalf("GenerateKey returned error: %v", err)
	}
	const sessID = "ABCDEF123456"

	var gotUser, gotPass string
	mux := http.NewServeMux()
	mux.HandleFunc("/intro.do", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, introHTML(key, sessID))
	})
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		gotUser = r.PostForm.Get("USER_ID")
		gotPass = r.PostForm.Get("USER_PW")
		http.Redirect(w, r, "/low/main/custmain.do", http.StatusFound)
	})
	mux.HandleFunc("/low/main/custmain.do", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<html>main</html>")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server, model.Credentials{"username": "hong@example.com", "password": "secret1234"})
	if err := client.Login(context.Background()); err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	if got := decryptField(t, key, gotUser, sessID); got != "hong@example.com" {
		t.Fatalf("decrypted username = %q", got)
	}
	if got := decryptField(t, key, gotPass, sessID); got != "secret1234" {
		t.Fatalf("decrypted password = %q", got)
	}
}

func TestLoginRejectionIsAuthClassified(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 1024)
	if err != nil {
		t.Fatalf("GenerateKey returned error: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/intro.do", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, introHTML(key, "SESS"))
	})
	// Rejected credentials answer 200 but land back on the intro page.
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/intro.do", http.StatusFound)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server, model.Credentials{"username": "u", "password": "wrong"})
	err = client.Login(context.Background())
	if !integration.IsKind(err, integration.KindAuth) {
		t.Fatalf("expected auth classification, got %v", err)
	}
}

func TestLoginFailsWhenIntroPageLacksRSAInputs(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/intro.do", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<html><body>maintenance</body></html>")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server, model.Credentials{"username": "u", "password": "p"})
	err := client.Login(context.Background())
	if !integration.IsKind(err, integration.KindAuth) {
		t.Fatalf("expected auth classification for stripped intro page, got %v", err)
	}
}

func TestFetchMergesUsageDocuments(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/low/main/recent_usage.do", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"result": {"F_AP_QT": 120, "LAST_READ_DT": "2025-08-28"}}`)
	})
	mux.HandleFunc("/low/main/usage_info.do", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"SESS_CUSTNO": "1234567890", "result": {"PREDICT_TOTAL_CHARGE_REV": "34,120"}}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server, model.Credentials{"username": "u", "password": "p"})
	record, err := client.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}

	if got := gjson.GetBytes(record.Data, "recent_usage.result.F_AP_QT").Num; got != 120 {
		t.Fatalf("recent usage = %v, want 120", got)
	}
	if got := gjson.GetBytes(record.Data, "usage_info.SESS_CUSTNO").String(); got != "1234567890" {
		t.Fatalf("customer number = %q", got)
	}
}

func TestFetchClassifiesExpiredSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/low/main/recent_usage.do", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "login required", http.StatusUnauthorized)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server, model.Credentials{"username": "u", "password": "p"})
	_, err := client.Fetch(context.Background())
	if !integration.IsKind(err, integration.KindAuth) {
		t.Fatalf("expected auth classification for expired session, got %v", err)
	}
}

func TestEncryptPKCS1RejectsBadKeyMaterial(t *testing.T) {
	if _, err := encryptPKCS1("not-hex!", "10001", "value"); err == nil {
		t.Fatalf("bad modulus must be rejected")
	}
	if _, err := encryptPKCS1("ff", "zz", "value"); err == nil {
		t.Fatalf("bad exponent must be rejected")
	}
}
