// Package kepco integrates the KEPCO residential power portal. Login
// scrapes the intro page for the RSA public key and server session id,
// encrypts the credentials the way the portal's rsa.js does, and posts
// the login form; usage data comes from JSON endpoints afterwards.
package kepco

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/micro-ha/korea-connect/internal/integration"
	"github.com/micro-ha/korea-connect/internal/model"
)

const (
	ServiceID = "kepco"

	baseURL   = "https://pp.kepco.co.kr:8030"
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

const DefaultInterval = 5 * time.Minute

// Client talks to the KEPCO portal through the instance session. The
// session cookie jar carries the JSESSIONID that authenticates fetches.
type Client struct {
	session *integration.Session
	creds   model.Credentials
	logger  *slog.Logger
	baseURL string
}

func NewClient(session *integration.Session, creds model.Credentials, logger *slog.Logger) *Client {
	return &Client{session: session, creds: creds, logger: logger, baseURL: baseURL}
}

// introPage is what the login handshake scrapes off intro.do.
type introPage struct {
	modulus  string
	exponent string
	sessID   string
}

// Login executes the portal handshake: scrape RSA parameters, encrypt
// the credentials, post the login form. Safe to call again; each call
// re-runs the full handshake and replaces the session cookie.
func (c *Client) Login(ctx context.Context) error {
	page, err := c.fetchIntro(ctx)
	if err != nil {
		return err
	}

	encUser, err := encryptPKCS1(page.modulus, page.exponent, c.creds.Get("username"))
	if err != nil {
		return integration.AuthErr(ServiceID, fmt.Errorf("encrypt username: %w", err))
	}
	encPass, err := encryptPKCS1(page.modulus, page.exponent, c.creds.Get("password"))
	if err != nil {
		return integration.AuthErr(ServiceID, fmt.Errorf("encrypt password: %w", err))
	}

	form := url.Values{}
	form.Set("USER_ID", page.sessID+"_"+encUser)
	form.Set("USER_PW", page.sessID+"_"+encPass)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/login", strings.NewReader(form.Encode()))
	if err != nil {
		return integration.ConnectionErr(ServiceID, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Referer", c.baseURL+"/intro.do")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "ko-KR,ko;q=0.9,en;q=0.8")
	req.AddCookie(&http.Cookie{Name: "JSESSIONID", Value: page.sessID})

	resp, err := integration.Do(ServiceID, c.session, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// The portal answers 200 for rejected credentials too; it lands back
	// on the intro page instead of the customer main.
	landed := resp.Request.URL.Path
	if strings.Contains(landed, "intro.do") || strings.Contains(landed, "/login") {
		return integration.AuthErr(ServiceID, fmt.Errorf("login rejected, landed on %s", landed))
	}
	return nil
}

// Fetch pulls the recent-usage and usage-info documents and merges them
// into one record keyed the way the sensors address them.
func (c *Client) Fetch(ctx context.Context) (model.Record, error) {
	recent, err := c.postJSON(ctx, "/low/main/recent_usage.do", map[string]any{})
	if err != nil {
		return model.Record{}, err
	}
	usage, err := c.postJSON(ctx, "/low/main/usage_info.do", map[string]any{"tou": "N"})
	if err != nil {
		return model.Record{}, err
	}
	return model.NewRecord(map[string]json.RawMessage{
		"recent_usage": recent,
		"usage_info":   usage,
	})
}

func (c *Client) fetchIntro(ctx context.Context) (introPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/intro.do", nil)
	if err != nil {
		return introPage{}, integration.ConnectionErr(ServiceID, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := integration.Do(ServiceID, c.session, req)
	if err != nil {
		return introPage{}, err
	}
	defer resp.Body.Close()

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return introPage{}, integration.ParseErr(ServiceID, err)
	}

	page := introPage{
		modulus:  inputValue(doc, "RSAModulus"),
		exponent: inputValue(doc, "RSAExponent"),
		sessID:   inputValue(doc, "SESSID"),
	}
	if page.modulus == "" || page.exponent == "" || page.sessID == "" {
		return introPage{}, integration.AuthErr(ServiceID, fmt.Errorf("intro page missing RSA inputs"))
	}
	return page, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, integration.ParseErr(ServiceID, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(string(body)))
	if err != nil {
		return nil, integration.ConnectionErr(ServiceID, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := integration.Do(ServiceID, c.session, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var doc json.RawMessage
	if err := integration.DecodeJSON(ServiceID, resp.Body, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// inputValue walks the parsed document for <input id=...> and returns its
// trimmed value attribute.
func inputValue(node *html.Node, id string) string {
	if node.Type == html.ElementNode && node.Data == "input" {
		var nodeID, value string
		for _, attr := range node.Attr {
			switch attr.Key {
			case "id":
				nodeID = attr.Val
			case "value":
				value = attr.Val
			}
		}
		if nodeID == id {
			return strings.TrimSpace(value)
		}
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if found := inputValue(child, id); found != "" {
			return found
		}
	}
	return ""
}

// encryptPKCS1 reproduces the portal's rsa.js encryption: PKCS#1 v1.5
// against a public key given as hex modulus and exponent, hex output.
func encryptPKCS1(modulusHex, exponentHex, plaintext string) (string, error) {
	modulus, ok := new(big.Int).SetString(modulusHex, 16)
	if !ok {
		return "", fmt.Errorf("bad RSA modulus")
	}
	exponent, ok := new(big.Int).SetString(exponentHex, 16)
	if !ok || !exponent.IsInt64() {
		return "", fmt.Errorf("bad RSA exponent")
	}
	pub := &rsa.PublicKey{N: modulus, E: int(exponent.Int64())}
	cipher, err := rsa.EncryptPKCS1v15(rand.Reader, pub, []byte(plaintext))
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(cipher), nil
}
