package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// Session is the authenticated transport for one storefront account:
// an http.Client with the account's cookie jar plus helpers that
// return either a parsed document or a decoded JSON envelope. The
// cookie jar is the single source of truth for the cart identifiers
// the storefront threads through cookies.
type Session struct {
	client      *http.Client
	jar         *cookiejar.Jar
	storeURL    *url.URL
	checkoutURL *url.URL
	userAgent   string
	log         *zap.Logger
}

func NewSession(config *Config, log *zap.Logger) (*Session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	storeURL, err := url.Parse(config.StoreURL)
	if err != nil {
		return nil, fmt.Errorf("invalid store url %q: %w", config.StoreURL, err)
	}
	checkoutURL, err := url.Parse(config.CheckoutURL)
	if err != nil {
		return nil, fmt.Errorf("invalid checkout url %q: %w", config.CheckoutURL, err)
	}

	client := &http.Client{
		Timeout: time.Duration(config.RequestTimeoutSeconds) * time.Second,
		Jar:     jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	if log == nil {
		log = zap.NewNop()
	}

	return &Session{
		client:      client,
		jar:         jar,
		storeURL:    storeURL,
		checkoutURL: checkoutURL,
		userAgent:   config.UserAgent,
		log:         log,
	}, nil
}

// StoreURL resolves a path against the storefront origin.
func (s *Session) StoreURL(path string) string {
	ref := &url.URL{Path: strings.TrimPrefix(path, "/")}
	return s.storeURL.ResolveReference(ref).String()
}

// CheckoutURL resolves a path against the checkout origin.
func (s *Session) CheckoutURL(path string) string {
	ref := &url.URL{Path: strings.TrimPrefix(path, "/")}
	return s.checkoutURL.ResolveReference(ref).String()
}

// CookieValue reads a named cookie for the given origin. Empty string
// means the cookie is absent.
func (s *Session) CookieValue(origin *url.URL, name string) string {
	for _, cookie := range s.jar.Cookies(origin) {
		if cookie.Name == name {
			return cookie.Value
		}
	}
	return ""
}

// SetCookie writes a named cookie for the given origin, replacing any
// previous value.
func (s *Session) SetCookie(origin *url.URL, name, value string) {
	s.jar.SetCookies(origin, []*http.Cookie{{Name: name, Value: value, Path: "/"}})
}

// ImportCookies copies browser-exported cookies into the jar for both
// the store and checkout origins.
func (s *Session) ImportCookies(cookies []*http.Cookie) {
	s.jar.SetCookies(s.storeURL, cookies)
	s.jar.SetCookies(s.checkoutURL, cookies)
	s.log.Debug("session cookies imported", zap.Int("count", len(cookies)))
}

func (s *Session) do(ctx context.Context, method, rawURL, referer string, form url.Values) ([]byte, error) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", "en")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if referer != "" {
		req.Header.Set("Referer", referer)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkFailure, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrNetworkFailure, err)
	}

	if resp.StatusCode >= 400 {
		s.log.Debug("request rejected",
			zap.String("url", rawURL),
			zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: HTTP %d", ErrNetworkFailure, resp.StatusCode)
	}

	return data, nil
}

// GetDocument fetches a page and parses it into a document.
func (s *Session) GetDocument(ctx context.Context, rawURL, referer string) (*goquery.Document, error) {
	data, err := s.do(ctx, http.MethodGet, rawURL, referer, nil)
	if err != nil {
		return nil, err
	}
	return parseDocument(data)
}

// PostDocument posts a form and parses the response into a document.
func (s *Session) PostDocument(ctx context.Context, rawURL, referer string, form url.Values) (*goquery.Document, error) {
	data, err := s.do(ctx, http.MethodPost, rawURL, referer, form)
	if err != nil {
		return nil, err
	}
	return parseDocument(data)
}

func parseDocument(data []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: html: %v", ErrParseFailure, err)
	}
	return doc, nil
}

// getJSON fetches a JSON envelope endpoint.
func getJSON[T any](ctx context.Context, s *Session, rawURL, referer string) (*Envelope[T], error) {
	data, err := s.do(ctx, http.MethodGet, rawURL, referer, nil)
	if err != nil {
		return nil, err
	}
	return decodeEnvelope[T](data)
}

// postJSON posts a form to a JSON envelope endpoint.
func postJSON[T any](ctx context.Context, s *Session, rawURL, referer string, form url.Values) (*Envelope[T], error) {
	data, err := s.do(ctx, http.MethodPost, rawURL, referer, form)
	if err != nil {
		return nil, err
	}
	return decodeEnvelope[T](data)
}

func decodeEnvelope[T any](data []byte) (*Envelope[T], error) {
	var envelope Envelope[T]
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("%w: json: %v", ErrParseFailure, err)
	}
	return &envelope, nil
}
