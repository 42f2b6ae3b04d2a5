package tns

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"TNSDigest/internal/config"
	"TNSDigest/internal/domain"
	"TNSDigest/internal/ports"
)

const serviceName = "tns"

// Client implements ports.DiscoveryRegistry against the TNS bot API.
type Client struct {
	baseURL   string
	apiKey    string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
	logger    *slog.Logger
}

var _ ports.DiscoveryRegistry = (*Client)(nil)

// NewClient builds a client from configuration. The API key is mandatory.
func NewClient(cfg config.TNSConfig, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, domain.ErrMissingAPIKey
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	limit := rate.Inf
	burst := 1
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
		burst = cfg.RequestsPerMinute
	}

	return &Client{
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		userAgent: userAgent(cfg.BotID, cfg.BotName),
		http:      &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(limit, burst),
		logger:    logger,
	}, nil
}

// SearchSince returns names of objects made public at or after day, in reply order without duplicates.
func (c *Client) SearchSince(ctx context.Context, day time.Time) ([]string, error) {
	payload := map[string]string{"public_timestamp": domain.RunStamp(day)}

	var reply []searchEntry
	if err := c.post(ctx, "/search", payload, &reply); err != nil {
		return nil, fmt.Errorf("search since %s: %w", domain.RunStamp(day), err)
	}

	names := make([]string, 0, len(reply))
	seen := map[string]struct{}{}
	for _, entry := range reply {
		name := strings.TrimSpace(entry.Objname)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}

	c.debug("search complete", "day", domain.RunStamp(day), "objects", len(names))
	return names, nil
}

// FetchDetail resolves a single object and flattens its nested labels.
func (c *Client) FetchDetail(ctx context.Context, name string) (domain.DiscoveryRecord, error) {
	payload := map[string]string{"objname": name}

	var reply objectReply
	if err := c.post(ctx, "/object", payload, &reply); err != nil {
		return domain.DiscoveryRecord{}, fmt.Errorf("fetch object %s: %w", name, err)
	}

	record, err := reply.toRecord()
	if err != nil {
		return domain.DiscoveryRecord{}, fmt.Errorf("fetch object %s: %w", name, err)
	}
	return record, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, v any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	if err := form.WriteField("api_key", c.apiKey); err != nil {
		return fmt.Errorf("write api_key field: %w", err)
	}
	if err := form.WriteField("data", string(data)); err != nil {
		return fmt.Errorf("write data field: %w", err)
	}
	if err := form.Close(); err != nil {
		return fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &body)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &domain.RemoteError{
			Service:    serviceName,
			Endpoint:   path,
			StatusCode: resp.StatusCode,
			Message:    firstNonEmpty(strings.TrimSpace(string(msg)), resp.Status),
		}
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%w: decode envelope: %v", domain.ErrInvalidReply, err)
	}
	if env.IDCode != 0 && env.IDCode != http.StatusOK {
		return &domain.RemoteError{
			Service:    serviceName,
			Endpoint:   path,
			StatusCode: env.IDCode,
			Message:    env.IDMessage,
		}
	}
	if len(env.Data.Reply) == 0 {
		return fmt.Errorf("%w: empty reply", domain.ErrInvalidReply)
	}
	if err := json.Unmarshal(env.Data.Reply, v); err != nil {
		return fmt.Errorf("%w: decode reply: %v", domain.ErrInvalidReply, err)
	}
	return nil
}

func userAgent(botID, botName string) string {
	if botName == "" {
		return "TNSDigest/1.0"
	}
	if _, err := strconv.ParseUint(botID, 10, 64); err != nil {
		return "TNSDigest/1.0"
	}
	return fmt.Sprintf(`tns_marker{"tns_id":%s,"type":"bot","name":%q}`, botID, botName)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func (c *Client) debug(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
