// Package ingest turns a listing page into plain document text for the parse
// stage.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"dealflow/internal/apperr"
	"dealflow/internal/config"
)

const (
	defaultTimeout   = 20 * time.Second
	defaultUserAgent = "dealflow/1.0"
	defaultMaxBytes  = 4 << 20
)

// noise is removed before text extraction.
const noise = "script, style, noscript, nav, header, footer, svg, iframe, form"

var errBlockedAddress = errors.New("address is not publicly routable")

// LinkFetcher downloads a page and extracts its visible text. Unless
// AllowPrivate is set it refuses hosts that resolve to loopback, private,
// link-local or unspecified addresses.
type LinkFetcher struct {
	client       *http.Client
	userAgent    string
	maxBytes     int64
	allowPrivate bool
	resolver     *net.Resolver
	logger       *zap.Logger
}

func NewLinkFetcher(cfg config.FetchConfig, client *http.Client, logger *zap.Logger) *LinkFetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if client == nil {
		client = &http.Client{Timeout: timeout, Transport: guardedTransport(cfg.AllowPrivate)}
	}
	ua := strings.TrimSpace(cfg.UserAgent)
	if ua == "" {
		ua = defaultUserAgent
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LinkFetcher{
		client:       client,
		userAgent:    ua,
		maxBytes:     maxBytes,
		allowPrivate: cfg.AllowPrivate,
		resolver:     net.DefaultResolver,
		logger:       logger,
	}
}

// guardedTransport re-checks every dialed address, which covers redirects
// and hosts whose DNS answer changes after checkHost.
func guardedTransport(allowPrivate bool) http.RoundTripper {
	t := http.DefaultTransport.(*http.Transport).Clone()
	if allowPrivate {
		return t
	}
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
		Control: func(_, address string, _ syscall.RawConn) error {
			host, _, err := net.SplitHostPort(address)
			if err != nil {
				return err
			}
			ip, err := netip.ParseAddr(host)
			if err != nil || Blocked(ip) {
				return fmt.Errorf("dial %s: %w", address, errBlockedAddress)
			}
			return nil
		},
	}
	t.DialContext = dialer.DialContext
	return t
}

// Blocked reports whether ip must not be fetched from a user-supplied link.
func Blocked(ip netip.Addr) bool {
	ip = ip.Unmap()
	return !ip.IsValid() ||
		ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() ||
		ip.IsMulticast() ||
		ip.IsUnspecified()
}

func (f *LinkFetcher) checkHost(ctx context.Context, host string) error {
	if f.allowPrivate {
		return nil
	}
	if host == "" {
		return apperr.Validation("source url has no host")
	}
	if ip, err := netip.ParseAddr(host); err == nil {
		if Blocked(ip) {
			return apperr.Validation("source url host %s is not publicly routable", host)
		}
		return nil
	}
	addrs, err := f.resolver.LookupNetIP(ctx, "ip", host)
	if err != nil {
		return apperr.Upstream(0, "", fmt.Errorf("resolve %s: %w", host, err))
	}
	for _, ip := range addrs {
		if Blocked(ip) {
			return apperr.Validation("source url host %s resolves to %s, which is not publicly routable", host, ip)
		}
	}
	return nil
}

// Fetch returns the page text. Transport failures and non-2xx answers are
// upstream errors; non-HTML or text-free pages are validation errors.
func (f *LinkFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	pageURL = strings.TrimSpace(pageURL)
	if !strings.HasPrefix(pageURL, "http://") && !strings.HasPrefix(pageURL, "https://") {
		return "", apperr.Validation("source url %q must be http or https", pageURL)
	}
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", apperr.Validation("source url %q: %v", pageURL, err)
	}
	if err := f.checkHost(ctx, u.Hostname()); err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", apperr.Validation("build request: %v", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	start := time.Now()
	resp, err := f.client.Do(req)
	if errors.Is(err, errBlockedAddress) {
		return "", apperr.Validation("source url %s reached a non-public address", pageURL)
	}
	if err != nil {
		return "", apperr.Upstream(0, "", fmt.Errorf("fetch %s: %w", pageURL, err))
	}
	defer resp.Body.Close()

	body := io.LimitReader(resp.Body, f.maxBytes)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(body, 2048))
		return "", apperr.Upstream(resp.StatusCode, string(snippet), fmt.Errorf("fetch %s: %s", pageURL, resp.Status))
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil || (mt != "text/html" && mt != "application/xhtml+xml") {
			return "", apperr.Validation("source url returned %q, want an html page", ct)
		}
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return "", apperr.Validation("parse html: %v", err)
	}
	text := ExtractText(doc)
	f.logger.Debug("link fetched",
		zap.String("url", pageURL),
		zap.Int("status", resp.StatusCode),
		zap.Int("text_len", len(text)),
		zap.Duration("latency", time.Since(start)),
	)
	if text == "" {
		return "", apperr.Validation("source url has no readable text")
	}
	return text, nil
}

// ExtractText returns the title and body text with navigation and scripts
// removed, one block per line.
func ExtractText(doc *goquery.Document) string {
	doc.Find(noise).Remove()

	var lines []string
	if title := collapse(doc.Find("title").First().Text()); title != "" {
		lines = append(lines, title)
	}
	root := doc.Find("main, article").First()
	if root.Length() == 0 {
		root = doc.Find("body")
	}
	root.Find("h1, h2, h3, h4, p, li, td, th, dt, dd, pre").Each(func(_ int, s *goquery.Selection) {
		if s.Find("p, li, td").Length() > 0 {
			return
		}
		if line := collapse(s.Text()); line != "" {
			lines = append(lines, line)
		}
	})
	if len(lines) <= 1 {
		if all := collapse(root.Text()); all != "" {
			lines = append(lines, all)
		}
	}
	return strings.Join(lines, "\n")
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
