package ned

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"TNSDigest/internal/config"
	"TNSDigest/internal/domain"
	"TNSDigest/internal/ports"
)

const (
	serviceName  = "ned"
	maxBodyBytes = 16 << 20
)

// Client implements ports.GalaxyCatalog with NED near-position searches.
type Client struct {
	baseURL string
	decoder Decoder
	http    *http.Client
	logger  *slog.Logger
}

var _ ports.GalaxyCatalog = (*Client)(nil)

// NewClient resolves the configured output format against the registry.
func NewClient(cfg config.NEDConfig, registry *Registry, logger *slog.Logger) (*Client, error) {
	if registry == nil {
		registry = DefaultRegistry()
	}
	decoder, err := registry.Resolve(cfg.Format)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		baseURL: cfg.BaseURL,
		decoder: decoder,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}, nil
}

// QueryNearby runs a cone search and keeps the single nearest galaxy.
// Errors and empty results are absorbed into the returned lookup.
func (c *Client) QueryNearby(ctx context.Context, ra, dec, radiusArcmin float64) domain.GalaxyLookup {
	matches, err := c.search(ctx, ra, dec, radiusArcmin)
	if err != nil {
		c.debug("cone search failed", "ra", ra, "dec", dec, "error", err)
		return domain.Failed(err)
	}

	nearest, ok := Nearest(matches)
	if !ok {
		c.debug("cone search empty", "ra", ra, "dec", dec, "candidates", len(matches))
		return domain.Empty()
	}

	c.debug("cone search matched", "ra", ra, "dec", dec, "galaxy", nearest.Name, "candidates", len(matches))
	return domain.Found(nearest)
}

func (c *Client) search(ctx context.Context, ra, dec, radiusArcmin float64) ([]domain.GalaxyMatch, error) {
	searchURL, err := buildSearchURL(c.baseURL, ra, dec, radiusArcmin, c.decoder.OutputFormat())
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "TNSDigest/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request cone search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.RemoteError{
			Service:    serviceName,
			Endpoint:   "objsearch",
			StatusCode: resp.StatusCode,
			Message:    resp.Status,
		}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read cone search: %w", err)
	}

	matches, err := c.decoder.Decode(raw, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidReply, err)
	}
	return matches, nil
}

// Nearest returns the minimum-separation match. Entries without a separation are skipped;
// on ties the first entry in source order wins.
func Nearest(matches []domain.GalaxyMatch) (domain.GalaxyMatch, bool) {
	best := -1
	for i, m := range matches {
		if m.Separation == nil {
			continue
		}
		if best < 0 || *m.Separation < *matches[best].Separation {
			best = i
		}
	}
	if best < 0 {
		return domain.GalaxyMatch{}, false
	}
	return matches[best], true
}

func buildSearchURL(base string, ra, dec, radiusArcmin float64, outputFormat string) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid ned url %s: %w", base, err)
	}

	query := parsed.Query()
	query.Set("search_type", "Near Position Search")
	query.Set("in_csys", "Equatorial")
	query.Set("in_equinox", "J2000.0")
	query.Set("lon", strconv.FormatFloat(ra, 'f', -1, 64)+"d")
	query.Set("lat", strconv.FormatFloat(dec, 'f', -1, 64)+"d")
	query.Set("radius", strconv.FormatFloat(radiusArcmin, 'f', -1, 64))
	query.Set("of", outputFormat)
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func (c *Client) debug(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
