package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/taskearn/paycore/internal/domain"
	"github.com/taskearn/paycore/internal/infrastructure/logging"
	"github.com/taskearn/paycore/internal/infrastructure/metrics"
	"github.com/taskearn/paycore/internal/usecase"
)

const (
	timestampLayout = "20060102150405"
	tokenSlack      = 30 * time.Second
)

// Config holds the Daraja API credentials and endpoints.
type Config struct {
	BaseURL            string
	ConsumerKey        string
	ConsumerSecret     string
	ShortCode          string
	Passkey            string
	InitiatorName      string
	SecurityCredential string
	CallbackBaseURL    string
	Timeout            time.Duration
}

// Client implements usecase.Gateway against the Daraja API. It holds no
// business state; the only mutable state is the cached OAuth token. The
// client never retries a money-moving request on its own.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *logging.Logger
	metrics    *metrics.Metrics

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClient creates a new Daraja client.
func NewClient(cfg Config, logger *logging.Logger, m *metrics.Metrics) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
		metrics:    m,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

// accessToken returns a cached OAuth token, fetching a fresh one when
// the cached token is near expiry.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry.Add(-tokenSlack)) {
		return c.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.cfg.BaseURL+"/oauth/v1/generate?grant_type=client_credentials", nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.errored("network")

		return "", fmt.Errorf("%w: token request: %v", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.errored("auth")

		return "", fmt.Errorf("%w: token request returned %d", domain.ErrGatewayUnavailable, resp.StatusCode)
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("%w: decoding token: %v", domain.ErrGatewayUnavailable, err)
	}

	ttl := time.Hour
	if d, err := time.ParseDuration(tok.ExpiresIn + "s"); err == nil {
		ttl = d
	}

	c.token = tok.AccessToken
	c.tokenExpiry = time.Now().Add(ttl)

	return c.token, nil
}

// password derives the STK password for a timestamp.
func (c *Client) password(ts string) string {
	return base64.StdEncoding.EncodeToString([]byte(c.cfg.ShortCode + c.cfg.Passkey + ts))
}

type stkPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type stkPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
	ErrorMessage        string `json:"errorMessage"`
}

// InitiateCollection sends an STK push to the subscriber's phone. The
// returned correlation id is the CheckoutRequestID the asynchronous
// callback will carry.
func (c *Client) InitiateCollection(ctx context.Context, phone string, amount decimal.Decimal, reference, description string) (*usecase.GatewayResult, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	ts := time.Now().Format(timestampLayout)
	payload := stkPushRequest{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          c.password(ts),
		Timestamp:         ts,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            amount.Round(0).IntPart(),
		PartyA:            phone,
		PartyB:            c.cfg.ShortCode,
		PhoneNumber:       phone,
		CallBackURL:       c.cfg.CallbackBaseURL + "/payments/callback",
		AccountReference:  reference,
		TransactionDesc:   description,
	}

	raw, err := c.post(ctx, "stk_push", "/mpesa/stkpush/v1/processrequest", token, payload)
	if err != nil {
		return nil, err
	}

	var res stkPushResponse
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("%w: decoding stk response: %v", domain.ErrGatewayUnavailable, err)
	}

	if res.ResponseCode != "0" || res.CheckoutRequestID == "" {
		c.errored("rejected")

		reason := res.ResponseDescription
		if reason == "" {
			reason = res.ErrorMessage
		}

		return nil, fmt.Errorf("%w: %s", domain.ErrGatewayRejected, reason)
	}

	return &usecase.GatewayResult{
		CorrelationID: res.CheckoutRequestID,
		Description:   res.ResponseDescription,
		Raw:           raw,
	}, nil
}

type b2cRequest struct {
	InitiatorName      string `json:"InitiatorName"`
	SecurityCredential string `json:"SecurityCredential"`
	CommandID          string `json:"CommandID"`
	Amount             int64  `json:"Amount"`
	PartyA             string `json:"PartyA"`
	PartyB             string `json:"PartyB"`
	Remarks            string `json:"Remarks"`
	QueueTimeOutURL    string `json:"QueueTimeOutURL"`
	ResultURL          string `json:"ResultURL"`
	Occasion           string `json:"Occasion"`
}

type b2cResponse struct {
	ConversationID           string `json:"ConversationID"`
	OriginatorConversationID string `json:"OriginatorConversationID"`
	ResponseCode             string `json:"ResponseCode"`
	ResponseDescription      string `json:"ResponseDescription"`
	ErrorMessage             string `json:"errorMessage"`
}

// InitiateDisbursement sends a B2C payment to the subscriber. The
// returned correlation id is the ConversationID the result callback
// will carry.
func (c *Client) InitiateDisbursement(ctx context.Context, phone string, amount decimal.Decimal, reference string) (*usecase.GatewayResult, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	payload := b2cRequest{
		InitiatorName:      c.cfg.InitiatorName,
		SecurityCredential: c.cfg.SecurityCredential,
		CommandID:          "BusinessPayment",
		Amount:             amount.Round(0).IntPart(),
		PartyA:             c.cfg.ShortCode,
		PartyB:             phone,
		Remarks:            "Withdrawal " + reference,
		QueueTimeOutURL:    c.cfg.CallbackBaseURL + "/payments/b2c/timeout",
		ResultURL:          c.cfg.CallbackBaseURL + "/payments/b2c/result",
		Occasion:           reference,
	}

	raw, err := c.post(ctx, "b2c", "/mpesa/b2c/v1/paymentrequest", token, payload)
	if err != nil {
		return nil, err
	}

	var res b2cResponse
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("%w: decoding b2c response: %v", domain.ErrGatewayUnavailable, err)
	}

	if res.ResponseCode != "0" || res.ConversationID == "" {
		c.errored("rejected")

		reason := res.ResponseDescription
		if reason == "" {
			reason = res.ErrorMessage
		}

		return nil, fmt.Errorf("%w: %s", domain.ErrGatewayRejected, reason)
	}

	return &usecase.GatewayResult{
		CorrelationID: res.ConversationID,
		Description:   res.ResponseDescription,
		Raw:           raw,
	}, nil
}

type stkQueryRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
}

type stkQueryResponse struct {
	ResponseCode string `json:"ResponseCode"`
	ResultCode   string `json:"ResultCode"`
	ResultDesc   string `json:"ResultDesc"`
	ErrorCode    string `json:"errorCode"`
}

// QueryStatus asks the gateway for the authoritative state of an
// in-flight request. Used by the timeout sweep before any balance is
// restored.
//
// Only the STK query endpoint is implemented, so it answers
// authoritatively for collections (CheckoutRequestID) only. For a B2C
// ConversationID the provider returns an error, which the sweep
// treats as unconfirmed and defers — never as grounds for a refund.
// Closing that gap needs the asynchronous Transaction Status API,
// whose verdict arrives on a result callback rather than in-band.
func (c *Client) QueryStatus(ctx context.Context, correlationID string) (usecase.GatewayStatus, json.RawMessage, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return usecase.GatewayStatusUnknown, nil, err
	}

	ts := time.Now().Format(timestampLayout)
	payload := stkQueryRequest{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          c.password(ts),
		Timestamp:         ts,
		CheckoutRequestID: correlationID,
	}

	raw, err := c.post(ctx, "status_query", "/mpesa/stkpushquery/v1/query", token, payload)
	if err != nil {
		return usecase.GatewayStatusUnknown, nil, err
	}

	var res stkQueryResponse
	if err := json.Unmarshal(raw, &res); err != nil {
		return usecase.GatewayStatusUnknown, raw, fmt.Errorf("%w: decoding query response: %v", domain.ErrGatewayUnavailable, err)
	}

	// 500.001.1001 means the transaction is still being processed.
	if res.ErrorCode == "500.001.1001" {
		return usecase.GatewayStatusPending, raw, nil
	}

	switch {
	case res.ResultCode == "0":
		return usecase.GatewayStatusCompleted, raw, nil
	case res.ResultCode == "":
		return usecase.GatewayStatusUnknown, raw, nil
	default:
		return usecase.GatewayStatusFailed, raw, nil
	}
}

// post sends one authenticated JSON request and returns the raw body.
func (c *Client) post(ctx context.Context, operation, path, token string, payload any) (json.RawMessage, error) {
	start := time.Now()
	if c.metrics != nil {
		c.metrics.GatewayRequests.WithLabelValues(operation).Inc()
		defer func() {
			c.metrics.GatewayDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
		}()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.errored("network")

		return nil, fmt.Errorf("%w: %s: %v", domain.ErrGatewayUnavailable, operation, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.errored("network")

		return nil, fmt.Errorf("%w: reading %s response: %v", domain.ErrGatewayUnavailable, operation, err)
	}

	c.logger.DebugCtx(ctx, "gateway response",
		"operation", operation,
		"status", resp.StatusCode,
	)

	if resp.StatusCode >= http.StatusInternalServerError {
		c.errored("server")

		return nil, fmt.Errorf("%w: %s returned %d", domain.ErrGatewayUnavailable, operation, resp.StatusCode)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		c.errored("rejected")

		return nil, fmt.Errorf("%w: %s returned %d: %s", domain.ErrGatewayRejected, operation, resp.StatusCode, raw)
	}

	return raw, nil
}

func (c *Client) errored(class string) {
	if c.metrics != nil {
		c.metrics.GatewayErrors.WithLabelValues(class).Inc()
	}
}
