package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wantam-ink/pledge-backend/models"
	"github.com/wantam-ink/pledge-backend/shared"
	"golang.org/x/sync/singleflight"
)

const (
	tokenPath     = "/oauth/v1/generate?grant_type=client_credentials"
	stkPushPath   = "/mpesa/stkpush/v1/processrequest"
	stkQueryPath  = "/mpesa/stkpushquery/v1/query"
	passwordStamp = "20060102150405"

	// maxGatewayBody caps how much of a gateway response is read.
	maxGatewayBody = 1 << 20
)

// GatewayClient talks to the M-Pesa REST API. The bearer token cache is owned
// by the client; safe for concurrent use.
type GatewayClient struct {
	config     shared.GatewayConfig
	httpClient *http.Client
	limiter    *shared.HTTPRequestRateLimiter
	metrics    *shared.HTTPMetrics
	now        func() time.Time
	logger     *logrus.Entry

	mutex     sync.RWMutex
	token     string
	expiresAt time.Time
	refresh   singleflight.Group
}

// NewGatewayClient creates a client with a timeout-bounded HTTP client from factory.
func NewGatewayClient(config shared.GatewayConfig, factory *shared.HTTPClientFactory) *GatewayClient {
	if factory == nil {
		factory = shared.NewHTTPClientFactory(config.HTTPRequestTimeout)
	}
	return &GatewayClient{
		config:     config,
		httpClient: factory.Client(config.HTTPRequestTimeout),
		limiter:    shared.NewHTTPRequestRateLimiter(config.MinRequestInterval),
		metrics:    shared.NewHTTPMetrics(),
		now:        time.Now,
		logger:     logrus.WithField("component", "GatewayClient"),
	}
}

// SetClock replaces the time source used for token expiry.
func (g *GatewayClient) SetClock(now func() time.Time) {
	g.now = now
}

// Metrics returns the outbound HTTP metrics.
func (g *GatewayClient) Metrics() *shared.HTTPMetrics {
	return g.metrics
}

// GetAuthToken returns the cached bearer token, refreshing it once expired.
// Concurrent refreshes share one request. Failures are never cached.
func (g *GatewayClient) GetAuthToken(ctx context.Context) (string, error) {
	g.mutex.RLock()
	token, expiresAt := g.token, g.expiresAt
	g.mutex.RUnlock()

	if token != "" && g.now().Before(expiresAt) {
		return token, nil
	}

	if g.config.ConsumerKey == "" || g.config.ConsumerSecret == "" {
		return "", shared.NewAuthFailure("GetAuthToken", "gateway consumer key/secret not configured", nil)
	}

	// The shared fetch is detached from any one caller's cancellation; the
	// client timeout still bounds it. Each caller waits on its own ctx.
	ch := g.refresh.DoChan("token", func() (interface{}, error) {
		return g.fetchToken(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", shared.NewAuthFailure("GetAuthToken", "token request cancelled", ctx.Err())
	}
}

func (g *GatewayClient) fetchToken(ctx context.Context) (string, error) {
	// Another caller may have refreshed while this one waited.
	g.mutex.RLock()
	if g.token != "" && g.now().Before(g.expiresAt) {
		token := g.token
		g.mutex.RUnlock()
		return token, nil
	}
	g.mutex.RUnlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.config.BaseURL+tokenPath, nil)
	if err != nil {
		return "", shared.NewAuthFailure("GetAuthToken", "failed to build token request", err)
	}
	credentials := base64.StdEncoding.EncodeToString([]byte(g.config.ConsumerKey + ":" + g.config.ConsumerSecret))
	req.Header.Set("Authorization", "Basic "+credentials)

	status, body, err := g.do(req)
	if err != nil {
		return "", shared.NewAuthFailure("GetAuthToken", "token request failed", err)
	}
	if status < 200 || status > 299 {
		authErr := shared.NewAuthFailure("GetAuthToken", fmt.Sprintf("token endpoint returned status %d", status), nil)
		authErr.Status = status
		authErr.Body = string(body)
		return "", authErr
	}

	var tokenResp models.AuthTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", shared.NewAuthFailure("GetAuthToken", "malformed token response", err)
	}
	if tokenResp.AccessToken == "" {
		return "", shared.NewAuthFailure("GetAuthToken", "token response has no access_token", nil)
	}

	ttl := g.config.DefaultTokenTTL
	if tokenResp.ExpiresIn != "" {
		seconds, err := strconv.ParseInt(string(tokenResp.ExpiresIn), 10, 64)
		if err != nil || seconds <= 0 {
			g.logger.WithField("expires_in", tokenResp.ExpiresIn).Warn("Invalid expires_in, using default token lifetime")
		} else {
			ttl = time.Duration(seconds) * time.Second
		}
	}
	if ttl <= 0 {
		ttl = time.Hour
	}

	expiresAt := g.now().Add(ttl)
	g.mutex.Lock()
	g.token = tokenResp.AccessToken
	g.expiresAt = expiresAt
	g.mutex.Unlock()

	g.logger.WithField("expires_at", expiresAt).Info("Obtained gateway access token")
	return tokenResp.AccessToken, nil
}

// InitiatePayment sends an STK push and returns the raw gateway response.
func (g *GatewayClient) InitiatePayment(ctx context.Context, phoneNumber string, amount int64, reference, description, callbackURL string) (json.RawMessage, error) {
	token, err := g.GetAuthToken(ctx)
	if err != nil {
		return nil, err
	}
	password, timestamp, err := g.password()
	if err != nil {
		return nil, err
	}
	if callbackURL == "" {
		callbackURL = g.config.CallbackURL
	}

	payload := models.STKPushRequest{
		BusinessShortCode: g.config.Shortcode,
		Password:          password,
		Timestamp:         timestamp,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            amount,
		PartyA:            phoneNumber,
		PartyB:            g.config.Shortcode,
		PhoneNumber:       phoneNumber,
		CallBackURL:       callbackURL,
		AccountReference:  reference,
		TransactionDesc:   description,
	}

	g.logger.WithFields(logrus.Fields{
		"phone_number": phoneNumber,
		"amount":       amount,
		"reference":    reference,
	}).Info("Initiating STK push")

	return g.postJSON(ctx, "InitiatePayment", stkPushPath, token, payload)
}

// QueryStatus asks the gateway for the state of an STK push.
func (g *GatewayClient) QueryStatus(ctx context.Context, checkoutRequestID string) (json.RawMessage, error) {
	token, err := g.GetAuthToken(ctx)
	if err != nil {
		return nil, err
	}
	password, timestamp, err := g.password()
	if err != nil {
		return nil, err
	}

	payload := models.STKQueryRequest{
		BusinessShortCode: g.config.Shortcode,
		Password:          password,
		Timestamp:         timestamp,
		CheckoutRequestID: checkoutRequestID,
	}
	return g.postJSON(ctx, "QueryStatus", stkQueryPath, token, payload)
}

// password builds base64(shortcode + passkey + timestamp).
func (g *GatewayClient) password() (string, string, error) {
	if g.config.Shortcode == "" || g.config.Passkey == "" {
		return "", "", shared.NewAuthFailure("password", "gateway shortcode/passkey not configured", nil)
	}
	timestamp := g.now().Format(passwordStamp)
	raw := g.config.Shortcode + g.config.Passkey + timestamp
	return base64.StdEncoding.EncodeToString([]byte(raw)), timestamp, nil
}

func (g *GatewayClient) postJSON(ctx context.Context, operation, path, token string, payload interface{}) (json.RawMessage, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, shared.NewGatewayFailure(operation, 0, "", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.config.BaseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, shared.NewGatewayFailure(operation, 0, "", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	status, body, err := g.do(req)
	if err != nil {
		return nil, shared.NewGatewayFailure(operation, 0, "", err)
	}
	if status != http.StatusOK {
		g.logger.WithFields(logrus.Fields{
			"operation": operation,
			"status":    status,
		}).Warn("Gateway request rejected")
		return nil, shared.NewGatewayFailure(operation, status, string(body), nil)
	}
	return json.RawMessage(body), nil
}

// do sends req once, honouring the request spacing, and records the outcome.
func (g *GatewayClient) do(req *http.Request) (int, []byte, error) {
	if err := g.limiter.Wait(req.Context()); err != nil {
		return 0, nil, err
	}

	start := time.Now()
	resp, err := g.httpClient.Do(req)
	if err != nil {
		var netErr net.Error
		isTimeout := errors.As(err, &netErr) && netErr.Timeout()
		g.metrics.RecordHTTPRequest(false, 0, time.Since(start), "transport", isTimeout)
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxGatewayBody))
	success := err == nil && resp.StatusCode >= 200 && resp.StatusCode <= 299
	errorType := ""
	if !success {
		errorType = "status_" + strconv.Itoa(resp.StatusCode)
	}
	g.metrics.RecordHTTPRequest(success, resp.StatusCode, time.Since(start), errorType, false)
	if err != nil {
		return 0, nil, fmt.Errorf("read gateway response: %w", err)
	}
	return resp.StatusCode, body, nil
}
