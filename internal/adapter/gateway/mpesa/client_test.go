package mpesa

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/taskearn/paycore/internal/domain"
	"github.com/taskearn/paycore/internal/infrastructure/logging"
	"github.com/taskearn/paycore/internal/usecase"
)

type darajaStub struct {
	tokenHits  atomic.Int64
	stkStatus  int
	stkBody    string
	b2cBody    string
	queryBody  string
	lastSTKReq stkPushRequest
}

func newDarajaStub() *darajaStub {
	return &darajaStub{
		stkStatus: http.StatusOK,
		stkBody:   `{"MerchantRequestID":"mr-1","CheckoutRequestID":"ws_CO_1","ResponseCode":"0","ResponseDescription":"Success"}`,
		b2cBody:   `{"ConversationID":"AG_1","OriginatorConversationID":"oc-1","ResponseCode":"0","ResponseDescription":"Accept the service request successfully."}`,
		queryBody: `{"ResponseCode":"0","ResultCode":"0","ResultDesc":"The service request is processed successfully."}`,
	}
}

func (s *darajaStub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v1/generate", func(w http.ResponseWriter, r *http.Request) {
		s.tokenHits.Add(1)
		if _, _, ok := r.BasicAuth(); !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"access_token":"tok-1","expires_in":"3599"}`))
	})
	mux.HandleFunc("/mpesa/stkpush/v1/processrequest", func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&s.lastSTKReq)
		w.WriteHeader(s.stkStatus)
		w.Write([]byte(s.stkBody))
	})
	mux.HandleFunc("/mpesa/b2c/v1/paymentrequest", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(s.b2cBody))
	})
	mux.HandleFunc("/mpesa/stkpushquery/v1/query", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(s.queryBody))
	})

	return mux
}

func newTestClient(t *testing.T, stub *darajaStub) *Client {
	t.Helper()
	srv := httptest.NewServer(stub.handler())
	t.Cleanup(srv.Close)

	return NewClient(Config{
		BaseURL:         srv.URL,
		ConsumerKey:     "key",
		ConsumerSecret:  "secret",
		ShortCode:       "174379",
		Passkey:         "passkey",
		CallbackBaseURL: "https://example.test",
		Timeout:         5 * time.Second,
	}, logging.NewNop(), nil)
}

func TestInitiateCollection(t *testing.T) {
	stub := newDarajaStub()
	client := newTestClient(t, stub)

	result, err := client.InitiateCollection(context.Background(),
		"254712345678", decimal.RequireFromString("500.00"), "acc-1", "registration")
	require.NoError(t, err)
	require.Equal(t, "ws_CO_1", result.CorrelationID)
	require.NotEmpty(t, result.Raw)

	require.Equal(t, int64(500), stub.lastSTKReq.Amount)
	require.Equal(t, "254712345678", stub.lastSTKReq.PhoneNumber)
	require.Equal(t, "https://example.test/payments/callback", stub.lastSTKReq.CallBackURL)
}

func TestTokenCachedAcrossRequests(t *testing.T) {
	stub := newDarajaStub()
	client := newTestClient(t, stub)
	ctx := context.Background()

	_, err := client.InitiateCollection(ctx, "254712345678", decimal.NewFromInt(500), "acc-1", "registration")
	require.NoError(t, err)
	_, err = client.InitiateDisbursement(ctx, "254712345678", decimal.NewFromInt(980), "wd-1")
	require.NoError(t, err)

	require.Equal(t, int64(1), stub.tokenHits.Load(), "token must be fetched once and reused")
}

func TestInitiateCollectionRejected(t *testing.T) {
	stub := newDarajaStub()
	stub.stkBody = `{"ResponseCode":"1","ResponseDescription":"Invalid PhoneNumber"}`
	client := newTestClient(t, stub)

	_, err := client.InitiateCollection(context.Background(),
		"254712345678", decimal.NewFromInt(500), "acc-1", "registration")
	require.ErrorIs(t, err, domain.ErrGatewayRejected)
	require.ErrorContains(t, err, "Invalid PhoneNumber")
}

func TestInitiateCollectionServerError(t *testing.T) {
	stub := newDarajaStub()
	stub.stkStatus = http.StatusServiceUnavailable
	client := newTestClient(t, stub)

	_, err := client.InitiateCollection(context.Background(),
		"254712345678", decimal.NewFromInt(500), "acc-1", "registration")
	require.ErrorIs(t, err, domain.ErrGatewayUnavailable)
}

func TestInitiateDisbursement(t *testing.T) {
	stub := newDarajaStub()
	client := newTestClient(t, stub)

	result, err := client.InitiateDisbursement(context.Background(),
		"254712345678", decimal.RequireFromString("980.00"), "wd-1")
	require.NoError(t, err)
	require.Equal(t, "AG_1", result.CorrelationID)
}

func TestQueryStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		body string
		want usecase.GatewayStatus
	}{
		{
			name: "still processing",
			body: `{"errorCode":"500.001.1001","errorMessage":"The transaction is being processed"}`,
			want: usecase.GatewayStatusPending,
		},
		{
			name: "completed",
			body: `{"ResponseCode":"0","ResultCode":"0","ResultDesc":"Success"}`,
			want: usecase.GatewayStatusCompleted,
		},
		{
			name: "cancelled by user",
			body: `{"ResponseCode":"0","ResultCode":"1032","ResultDesc":"Request cancelled by user"}`,
			want: usecase.GatewayStatusFailed,
		},
		{
			name: "no result yet",
			body: `{"ResponseCode":"0"}`,
			want: usecase.GatewayStatusUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := newDarajaStub()
			stub.queryBody = tt.body
			client := newTestClient(t, stub)

			status, raw, err := client.QueryStatus(context.Background(), "ws_CO_1")
			require.NoError(t, err)
			require.Equal(t, tt.want, status)
			require.NotEmpty(t, raw)
		})
	}
}

func TestTokenEndpointFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	client := NewClient(Config{
		BaseURL:        srv.URL,
		ConsumerKey:    "key",
		ConsumerSecret: "secret",
	}, logging.NewNop(), nil)

	_, err := client.InitiateCollection(context.Background(),
		"254712345678", decimal.NewFromInt(500), "acc-1", "registration")
	require.ErrorIs(t, err, domain.ErrGatewayUnavailable)
}
