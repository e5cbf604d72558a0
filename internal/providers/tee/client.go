package tee

import (
	"context"
	"encoding/hex"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/sandbox/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/infrastructure/resilience"
	apperrors "github.com/GriffinCanCode/AgentOS/sandbox/internal/shared/errors"
)

const (
	DefaultEndpoint = "/var/run/dstack.sock"
	DefaultTimeout  = 30 * time.Second

	serviceName = "tee"
)

// Options configures the client
type Options struct {
	// Endpoint is a unix socket path or an http(s) base URL
	Endpoint string
	Timeout  time.Duration
	// RetryMax defaults to 2; negative disables retries
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	Breaker      resilience.Settings
	Logger       *zap.Logger
	Metrics      *monitoring.Metrics
}

// Client calls the dstack guest agent
type Client struct {
	resty   *resty.Client
	breaker *resilience.Breaker
	logger  *zap.Logger
	metrics *monitoring.Metrics
}

// NewClient builds a client. No connection is made until the first call.
func NewClient(opts Options) *Client {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	switch {
	case opts.RetryMax == 0:
		opts.RetryMax = 2
	case opts.RetryMax < 0:
		opts.RetryMax = 0
	}
	if opts.RetryWaitMin <= 0 {
		opts.RetryWaitMin = 200 * time.Millisecond
	}
	if opts.RetryWaitMax <= 0 {
		opts.RetryWaitMax = 2 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Breaker.ReadyToTrip == nil {
		opts.Breaker.ReadyToTrip = func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		}
	}
	if opts.Breaker.IsFailure == nil {
		// Rejections by the agent are caller mistakes, not outages
		opts.Breaker.IsFailure = func(err error) bool {
			var se *statusError
			if errors.As(err, &se) {
				return se.code >= http.StatusInternalServerError
			}
			return err != nil
		}
	}
	if opts.Breaker.Timeout == 0 {
		opts.Breaker.Timeout = 30 * time.Second
	}
	if opts.Breaker.OnStateChange == nil {
		logger := opts.Logger
		opts.Breaker.OnStateChange = func(name string, from, to resilience.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		}
	}

	baseURL, transport := dialer(opts.Endpoint)

	retry := retryablehttp.NewClient()
	retry.HTTPClient.Transport = transport
	retry.RetryMax = opts.RetryMax
	retry.RetryWaitMin = opts.RetryWaitMin
	retry.RetryWaitMax = opts.RetryWaitMax
	retry.Logger = retryLogger{opts.Logger.Sugar()}

	rc := resty.NewWithClient(retry.StandardClient()).
		SetBaseURL(baseURL).
		SetTimeout(opts.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "AgentOS-Sandbox/1.0").
		SetLogger(opts.Logger.Sugar())

	return &Client{
		resty:   rc,
		breaker: resilience.New(serviceName, opts.Breaker),
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
}

// dialer returns the base URL and transport for an endpoint
func dialer(endpoint string) (string, *http.Transport) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return strings.TrimSuffix(endpoint, "/"), transport
	}

	socket := endpoint
	transport.DialContext = func(ctx context.Context, _, _ string) (net.Conn, error) {
		var d net.Dialer
		return d.DialContext(ctx, "unix", socket)
	}
	return "http://localhost", transport
}

// Info returns CVM instance metadata
func (c *Client) Info(ctx context.Context) (*Info, error) {
	var info Info
	if err := c.call(ctx, "Info", struct{}{}, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetQuote requests a TDX quote over up to 64 bytes of report data
func (c *Client) GetQuote(ctx context.Context, reportData []byte) (*Quote, error) {
	if len(reportData) > MaxReportData {
		return nil, apperrors.Validation("report data exceeds %d bytes", MaxReportData)
	}
	var quote Quote
	body := map[string]string{"report_data": hex.EncodeToString(reportData)}
	if err := c.call(ctx, "GetQuote", body, &quote); err != nil {
		return nil, err
	}
	return &quote, nil
}

// GetKey derives a key for path and purpose
func (c *Client) GetKey(ctx context.Context, path, purpose string) (*Key, error) {
	var key Key
	body := map[string]string{"path": path, "purpose": purpose, "algorithm": DefaultKeyAlgorithm}
	if err := c.call(ctx, "GetKey", body, &key); err != nil {
		return nil, err
	}
	return &key, nil
}

// Sign signs data with the app's derived key
func (c *Client) Sign(ctx context.Context, algorithm string, data []byte) (*Signature, error) {
	if strings.TrimSpace(algorithm) == "" {
		return nil, apperrors.Validation("algorithm is required")
	}
	var sig Signature
	body := map[string]string{"algorithm": algorithm, "data": hex.EncodeToString(data)}
	if err := c.call(ctx, "Sign", body, &sig); err != nil {
		return nil, err
	}
	return &sig, nil
}

// Verify checks a signature against a public key
func (c *Client) Verify(ctx context.Context, algorithm string, data, signature, publicKey []byte) (*Verification, error) {
	if strings.TrimSpace(algorithm) == "" {
		return nil, apperrors.Validation("algorithm is required")
	}
	var v Verification
	body := map[string]string{
		"algorithm":  algorithm,
		"data":       hex.EncodeToString(data),
		"signature":  hex.EncodeToString(signature),
		"public_key": hex.EncodeToString(publicKey),
	}
	if err := c.call(ctx, "Verify", body, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// EmitEvent extends the runtime measurement with an event
func (c *Client) EmitEvent(ctx context.Context, event string, payload []byte) error {
	if strings.TrimSpace(event) == "" {
		return apperrors.Validation("event is required")
	}
	body := map[string]string{"event": event, "payload": hex.EncodeToString(payload)}
	return c.call(ctx, "EmitEvent", body, nil)
}

// BreakerState exposes the circuit state for health reporting
func (c *Client) BreakerState() resilience.State {
	return c.breaker.State()
}

// call posts body to /method and decodes the JSON reply into out
func (c *Client) call(ctx context.Context, method string, body, out any) error {
	payload, err := sonic.Marshal(body)
	if err != nil {
		return apperrors.Internal(err, "failed to encode tee request")
	}

	start := time.Now()
	err = c.breaker.Execute(func() error {
		resp, err := c.resty.R().SetContext(ctx).SetBody(payload).Post("/" + method)
		if err != nil {
			return err
		}
		if resp.IsError() {
			return &statusError{code: resp.StatusCode(), body: strings.TrimSpace(resp.String())}
		}
		if out == nil || len(resp.Body()) == 0 {
			return nil
		}
		return sonic.Unmarshal(resp.Body(), out)
	})

	if err == nil {
		c.record(method, "success", time.Since(start), "")
		return nil
	}

	var (
		classified *apperrors.Error
		se         *statusError
		fields     = []zap.Field{zap.String("method", method), zap.Error(err)}
	)
	switch {
	case errors.As(err, &se) && se.code < http.StatusInternalServerError:
		classified = apperrors.Wrap(err, apperrors.CodeValidation, "tee "+method+" rejected")
	case errors.Is(err, resilience.ErrCircuitOpen), errors.Is(err, resilience.ErrTooManyRequests):
		classified = apperrors.Wrap(err, apperrors.CodeInternal, "tee service unavailable")
		if at := c.breaker.RetryAt(); !at.IsZero() {
			fields = append(fields, zap.Time("retry_at", at))
		}
	case errors.Is(err, context.DeadlineExceeded):
		classified = apperrors.Wrap(err, apperrors.CodeTimeout, "tee "+method+" timed out")
	default:
		classified = apperrors.Wrap(err, apperrors.CodeInternal, "tee "+method+" failed")
	}

	c.record(method, "error", time.Since(start), string(classified.Code))
	c.logger.Warn("TEE call failed", fields...)
	return classified
}

func (c *Client) record(method, status string, d time.Duration, errType string) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordServiceCall(serviceName, method, status, d)
	if errType != "" {
		c.metrics.RecordServiceError(serviceName, method, errType)
	}
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	if e.body == "" {
		return http.StatusText(e.code)
	}
	return http.StatusText(e.code) + ": " + e.body
}

// DecodeHex decodes a hex field, tolerating a 0x prefix
func DecodeHex(field, value string) ([]byte, error) {
	value = strings.TrimPrefix(strings.TrimPrefix(value, "0x"), "0X")
	data, err := hex.DecodeString(value)
	if err != nil {
		return nil, apperrors.Validation("invalid hex string for %s: %v", field, err)
	}
	return data, nil
}

// retryLogger adapts zap to retryablehttp's leveled logger
type retryLogger struct {
	s *zap.SugaredLogger
}

func (l retryLogger) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }
func (l retryLogger) Info(msg string, kv ...interface{})  { l.s.Debugw(msg, kv...) }
func (l retryLogger) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
func (l retryLogger) Warn(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }
