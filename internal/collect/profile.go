// Package collect gathers the raw company inputs the analysis stage works
// from: the structured profile page and a snapshot of the company website.
package collect

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/fundscan/internal/model"
	"github.com/sells-group/fundscan/internal/resilience"
	"github.com/sells-group/fundscan/pkg/firecrawl"
)

// Placeholder values used when the profile cannot be collected.
const (
	PlaceholderSummary = "Unable to scrape company details"
	notAvailable       = "Not available"
	unknownName        = "Unknown"
)

const (
	defaultScrapeTimeout = 30 * time.Second
	defaultCacheTTL      = 24 * time.Hour
)

// profileSchema is the JSON extraction schema sent with the scrape request.
var profileSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"company_name":        map[string]any{"type": "string"},
		"company_description": map[string]any{"type": "string"},
		"mission":             map[string]any{"type": "string"},
		"founders":            map[string]any{"type": "string"},
		"funding_amount":      map[string]any{"type": "string"},
		"employee_count":      map[string]any{"type": "integer"},
	},
	"required": []string{
		"company_name", "company_description", "mission",
		"founders", "funding_amount", "employee_count",
	},
}

// ProfileCache is the cache surface ProfileCollector needs. store.Store
// satisfies it.
type ProfileCache interface {
	GetCachedProfile(ctx context.Context, profileURL string) (*model.Profile, error)
	SetCachedProfile(ctx context.Context, profileURL string, profile model.Profile, ttl time.Duration) error
}

// ProfileCollector scrapes a company profile page into a model.Profile.
type ProfileCollector struct {
	client        firecrawl.Client
	cache         ProfileCache
	cacheTTL      time.Duration
	backoff       resilience.Backoff
	scrapeTimeout time.Duration
}

// ProfileOption configures a ProfileCollector.
type ProfileOption func(*ProfileCollector)

// WithProfileCache enables the profile cache. A non-positive ttl uses 24h.
func WithProfileCache(cache ProfileCache, ttl time.Duration) ProfileOption {
	return func(c *ProfileCollector) {
		c.cache = cache
		if ttl > 0 {
			c.cacheTTL = ttl
		}
	}
}

// WithBackoff overrides the scrape retry schedule.
func WithBackoff(b resilience.Backoff) ProfileOption {
	return func(c *ProfileCollector) { c.backoff = b }
}

// WithScrapeTimeout sets the per-attempt scrape timeout.
func WithScrapeTimeout(d time.Duration) ProfileOption {
	return func(c *ProfileCollector) {
		if d > 0 {
			c.scrapeTimeout = d
		}
	}
}

// NewProfileCollector creates a collector. By default a failed scrape is
// retried twice with 2s and 4s backoff.
func NewProfileCollector(client firecrawl.Client, opts ...ProfileOption) *ProfileCollector {
	c := &ProfileCollector{
		client:        client,
		cacheTTL:      defaultCacheTTL,
		backoff:       resilience.ProfileBackoff(),
		scrapeTimeout: defaultScrapeTimeout,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Collect returns the profile for profileURL, from cache when fresh.
func (c *ProfileCollector) Collect(ctx context.Context, profileURL string) (model.Profile, error) {
	log := zap.L().With(zap.String("profile_url", profileURL))

	if c.cache != nil {
		cached, err := c.cache.GetCachedProfile(ctx, profileURL)
		if err != nil {
			log.Warn("collect: profile cache lookup failed", zap.Error(err))
		} else if cached != nil {
			log.Debug("collect: profile cache hit")
			return *cached, nil
		}
	}

	if c.client == nil {
		return model.Profile{}, eris.New("collect: no firecrawl client configured")
	}

	profile, err := resilience.Retry(ctx, c.backoff, "firecrawl: scrape profile", func(ctx context.Context) (model.Profile, error) {
		return c.scrape(ctx, profileURL)
	})
	if err != nil {
		return model.Profile{}, eris.Wrapf(err, "collect: scrape profile %s", profileURL)
	}

	if c.cache != nil {
		if err := c.cache.SetCachedProfile(ctx, profileURL, profile, c.cacheTTL); err != nil {
			log.Warn("collect: profile cache write failed", zap.Error(err))
		}
	}

	log.Info("collect: profile scraped", zap.String("company", profile.Name))
	return profile, nil
}

func (c *ProfileCollector) scrape(ctx context.Context, profileURL string) (model.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, c.scrapeTimeout+5*time.Second)
	defer cancel()

	resp, err := c.client.Scrape(ctx, firecrawl.ScrapeRequest{
		URL:     profileURL,
		Formats: []firecrawl.Format{{Type: "json", Schema: profileSchema}},
		Timeout: int(c.scrapeTimeout / time.Millisecond),
	})
	if err != nil {
		var apiErr *firecrawl.APIError
		if errors.As(err, &apiErr) {
			return model.Profile{}, resilience.ClassifyStatus(err, apiErr.StatusCode)
		}
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil {
			return model.Profile{}, resilience.NewTransientError(err, 0)
		}
		return model.Profile{}, err
	}
	if resp == nil || !resp.Success {
		return model.Profile{}, resilience.NewTransientError(eris.New("empty scrape result"), 0)
	}
	return profileFromJSON(resp.Data.JSON, profileURL)
}

// profileFromJSON maps the extraction payload onto a Profile, filling the
// same defaults for absent fields that a missing payload gets.
func profileFromJSON(raw json.RawMessage, profileURL string) (model.Profile, error) {
	fields := map[string]any{}
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &fields); err != nil {
			return model.Profile{}, eris.Wrap(err, "decode profile json")
		}
	}
	return model.Profile{
		Name:        field(fields, "company_name", unknownName),
		Description: field(fields, "company_description", notAvailable),
		Mission:     field(fields, "mission", notAvailable),
		Founders:    field(fields, "founders", notAvailable),
		Funding:     field(fields, "funding_amount", model.NotDisclosed),
		Employees:   field(fields, "employee_count", model.NotDisclosed),
		URL:         profileURL,
	}, nil
}

func field(m map[string]any, key, def string) string {
	switch v := m[key].(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case []any:
		parts := make([]string, 0, len(v))
		for _, p := range v {
			if s, ok := p.(string); ok && strings.TrimSpace(s) != "" {
				parts = append(parts, strings.TrimSpace(s))
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, ", ")
		}
	}
	return def
}

// Placeholder is the profile used when collection fails. The run continues
// with it and the failure is kept in Error.
func Placeholder(err error) model.Profile {
	p := model.Profile{
		Name:        model.UnknownCompany,
		Description: PlaceholderSummary,
		Funding:     model.NotDisclosed,
		Employees:   model.NotDisclosed,
	}
	if err != nil {
		p.Error = err.Error()
	}
	return p
}
