package massive

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"FlatPull/internal/domain/models"
	"FlatPull/internal/domain/repository"
	"FlatPull/internal/service/ratelimit"
	pkghttp "FlatPull/pkg/http"
	"FlatPull/pkg/logger"
	"FlatPull/internal/service/retry"
	"FlatPull/pkg/util"
)

const maxPages = 1000

// Client implements repository.AggregateSource against the aggregates REST endpoint.
type Client struct {
	baseURL   string
	apiKey    string
	pageLimit int
	http      *pkghttp.Client
	limiter   *ratelimit.Limiter
	logger    *logger.Logger
}

type Option func(*Client)

func WithHTTPClient(c *pkghttp.Client) Option {
	return func(cl *Client) { cl.http = c }
}

func WithLimiter(l *ratelimit.Limiter) Option {
	return func(cl *Client) { cl.limiter = l }
}

func WithPageLimit(n int) Option {
	return func(cl *Client) {
		if n > 0 {
			cl.pageLimit = n
		}
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

func New(baseURL, apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("rest api: %w: set MASSIVE_API_KEY", models.ErrMissingCredentials)
	}
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		pageLimit: 50000,
		logger:    logger.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = pkghttp.NewClient(pkghttp.WithTimeout(30 * time.Second))
	}
	if c.limiter == nil {
		c.limiter = ratelimit.New(5, 1)
	}
	return c, nil
}

type aggsResponse struct {
	Ticker       string       `json:"ticker"`
	Status       string       `json:"status"`
	ResultsCount int          `json:"resultsCount"`
	Results      []models.Agg `json:"results"`
	NextURL      string       `json:"next_url"`
	RequestID    string       `json:"request_id"`
}

// FetchAggregates returns all bars in [From, To], following next_url pages.
// Results are adjusted and sorted ascending.
func (c *Client) FetchAggregates(ctx context.Context, req models.AggregateRequest) ([]models.Agg, error) {
	multiplier := req.Multiplier
	if multiplier <= 0 {
		multiplier = 1
	}
	timespan := repository.NormalizeTimespan(req.Timespan)

	endpoint := fmt.Sprintf("%s/v2/aggs/ticker/%s/range/%d/%s/%s/%s",
		c.baseURL,
		url.PathEscape(req.Ticker),
		multiplier,
		timespan,
		util.FormatDay(req.From),
		util.FormatDay(req.To),
	)
	query := map[string][]string{
		"adjusted": {"true"},
		"sort":     {"asc"},
		"limit":    {strconv.Itoa(c.pageLimit)},
	}

	var all []models.Agg
	for page := 0; endpoint != ""; page++ {
		if page >= maxPages {
			return nil, fmt.Errorf("aggregates %s: more than %d pages", req.Ticker, maxPages)
		}
		if err := c.limiter.Wait(ctx, c.baseURL); err != nil {
			return nil, err
		}

		var resp aggsResponse
		err := c.http.SendAndParse(ctx, &pkghttp.RequestOptions{
			Method:      http.MethodGet,
			URL:         endpoint,
			Headers:     map[string]string{"Authorization": "Bearer " + c.apiKey},
			QueryParams: query,
		}, &resp)
		if err != nil {
			return nil, fmt.Errorf("aggregates %s: %w", req.Ticker, c.classify(ctx, err))
		}

		all = append(all, resp.Results...)
		c.logger.Debug("aggregates page fetched",
			logger.String("ticker", req.Ticker),
			logger.Int("page", page),
			logger.Int("results", len(resp.Results)),
			logger.String("request_id", resp.RequestID),
		)

		// next_url already carries the cursor and the original parameters.
		endpoint = resp.NextURL
		query = nil
	}
	return all, nil
}

func (c *Client) classify(ctx context.Context, err error) error {
	if status := pkghttp.StatusOf(err); status != 0 {
		if classified := retry.ClassifyStatus(status, err); classified != nil {
			return classified
		}
		return err
	}

	if errors.Is(err, pkghttp.ErrDecode) {
		return fmt.Errorf("%w: %w", models.ErrMalformedPayload, err)
	}
	return retry.ClassifyNetwork(ctx, err)
}
