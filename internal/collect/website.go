package collect

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/sells-group/fundscan/internal/model"
	"github.com/sells-group/fundscan/internal/resilience"
)

const (
	defaultUserAgent = "Mozilla/5.0 (compatible; fundscan/1.0)"
	maxBodyBytes     = 1 << 20
	maxHeadings      = 12
)

// WebsiteCollector fetches a company homepage and summarises it.
type WebsiteCollector struct {
	client    *http.Client
	userAgent string
}

// WebsiteOption configures a WebsiteCollector.
type WebsiteOption func(*WebsiteCollector)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) WebsiteOption {
	return func(w *WebsiteCollector) { w.client = hc }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) WebsiteOption {
	return func(w *WebsiteCollector) {
		if ua != "" {
			w.userAgent = ua
		}
	}
}

// NewWebsiteCollector creates a WebsiteCollector with a 15s client.
func NewWebsiteCollector(opts ...WebsiteOption) *WebsiteCollector {
	w := &WebsiteCollector{
		client: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		userAgent: defaultUserAgent,
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Snapshot fetches companyURL and extracts its title, meta description and
// headings.
func (w *WebsiteCollector) Snapshot(ctx context.Context, companyURL string) (*model.WebsiteSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, companyURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "website: create request")
	}
	req.Header.Set("User-Agent", w.userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "website: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, eris.Wrap(err, "website: read body")
	}

	if blocked, kind := DetectBlock(resp, body); blocked {
		return nil, eris.Errorf("website: blocked (%s)", kind)
	}
	if resp.StatusCode >= 400 {
		return nil, resilience.ClassifyStatus(eris.Errorf("website: status %d", resp.StatusCode), resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "website: parse html")
	}

	snap := &model.WebsiteSnapshot{
		URL:         companyURL,
		Title:       collapse(doc.Find("title").First().Text()),
		Description: metaDescription(doc),
		Headings:    headings(doc),
	}
	if snap.Title == "" && snap.Description == "" && len(snap.Headings) == 0 {
		return nil, eris.New("website: empty page")
	}
	return snap, nil
}

func metaDescription(doc *goquery.Document) string {
	for _, sel := range []string{
		`meta[name="description"]`,
		`meta[property="og:description"]`,
		`meta[name="twitter:description"]`,
	} {
		if v, ok := doc.Find(sel).First().Attr("content"); ok {
			if v = collapse(v); v != "" {
				return v
			}
		}
	}
	return ""
}

func headings(doc *goquery.Document) []string {
	var out []string
	seen := make(map[string]bool)
	doc.Find("h1, h2").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := collapse(s.Text())
		if text == "" || seen[text] {
			return true
		}
		seen[text] = true
		out = append(out, text)
		return len(out) < maxHeadings
	})
	return out
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
