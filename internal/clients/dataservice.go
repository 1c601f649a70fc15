package clients

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"librarydesk/internal/catalog"
	"librarydesk/internal/circulation"
	"librarydesk/internal/membership"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	ErrUnavailable = errors.New("data service unavailable")
)

// APIError is a non-2xx answer from the data service. Message is the
// service's own description and is shown to the user as-is.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// UserMessage returns the description to show the user verbatim.
func (e *APIError) UserMessage() string {
	return e.Message
}

// Temporary reports whether retrying the same request may succeed.
func (e *APIError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

type idempotencyKey struct{}

// WithIdempotencyKey tags the commands sent under ctx so the data service can
// recognise a replay of the same command.
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, idempotencyKey{}, key)
}

// DataServiceClient talks to the remote library data service over REST.
type DataServiceClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	tracer     trace.Tracer
	logger     *slog.Logger
	readTries  uint
	backOff    func() backoff.BackOff
}

// Option configures a DataServiceClient.
type Option func(*DataServiceClient)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *DataServiceClient) { c.httpClient = hc }
}

// WithRateLimit caps outgoing requests per second with the given burst.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *DataServiceClient) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithReadRetries sets how many times an idempotent read is attempted.
func WithReadRetries(tries uint) Option {
	return func(c *DataServiceClient) { c.readTries = tries }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *DataServiceClient) { c.logger = logger }
}

func NewDataServiceClient(baseURL string, opts ...Option) *DataServiceClient {
	c := &DataServiceClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(20), 40),
		tracer:     otel.Tracer("librarydesk/clients"),
		logger:     slog.Default(),
		readTries:  3,
		backOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.readTries == 0 {
		c.readTries = 1
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "dataservice",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return !apiErr.Temporary()
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return c
}

var (
	_ catalog.Service     = (*DataServiceClient)(nil)
	_ membership.Service  = (*DataServiceClient)(nil)
	_ circulation.Service = (*DataServiceClient)(nil)
)

// read performs an idempotent GET, retrying transient failures.
func read[T any](ctx context.Context, c *DataServiceClient, op, path string, query url.Values) (T, error) {
	return backoff.Retry(ctx, func() (T, error) {
		var out T
		err := c.do(ctx, op, http.MethodGet, path, query, nil, &out)
		if err != nil && !retryable(err) {
			return out, backoff.Permanent(err)
		}
		return out, err
	},
		backoff.WithBackOff(c.backOff()),
		backoff.WithMaxTries(c.readTries),
	)
}

// write sends a command exactly once. Commands are only replayed by the user.
func write[T any](ctx context.Context, c *DataServiceClient, op, method, path string, body any) (T, error) {
	var out T
	err := c.do(ctx, op, method, path, nil, body, &out)
	return out, err
}

func retryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return !errors.Is(err, ErrUnavailable)
}

func (c *DataServiceClient) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	ctx, span := c.tracer.Start(ctx, "dataservice."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.route", path),
		),
	)
	defer span.End()

	if err := c.limiter.Wait(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to wait for rate limiter: %w", err)
	}

	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.roundTrip(ctx, method, path, query, body, out)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (c *DataServiceClient) roundTrip(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if key, ok := ctx.Value(idempotencyKey{}).(string); ok && method != http.MethodGet {
		req.Header.Set("Idempotency-Key", key)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call data service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	message := ""
	if json.Unmarshal(raw, &payload) == nil {
		message = payload.Message
		if message == "" {
			message = payload.Error
		}
	}
	if message == "" {
		message = strings.TrimSpace(string(raw))
	}
	if message == "" {
		message = fmt.Sprintf("unexpected status code: %d", resp.StatusCode)
	}
	return &APIError{StatusCode: resp.StatusCode, Message: message}
}

func idPath(format string, id int64) string {
	return fmt.Sprintf(format, id)
}

func branchQuery(branchID int64) url.Values {
	q := url.Values{}
	if branchID > 0 {
		q.Set("branch_id", fmt.Sprint(branchID))
	}
	return q
}
