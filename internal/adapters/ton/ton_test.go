package ton

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"deposit-verifier/internal/config"
	"deposit-verifier/internal/models"

	"github.com/rs/zerolog"
)

const testHashHex = "97264395bd65a255a429b11326c84128b7d70ffed7949abae3437d1851aba3ec"

func storedHashBase64(t *testing.T) string {
	t.Helper()
	raw, err := hex.DecodeString(testHashHex)
	if err != nil {
		t.Fatalf("decode test hash: %v", err)
	}
	return base64.StdEncoding.EncodeToString(raw)
}

func transactionsServer(t *testing.T, transactions string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req models.RPCRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request", 400)
			return
		}
		if req.Method != "getTransactions" {
			http.Error(w, "unexpected method "+req.Method, 400)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":"1","result":%s}`, transactions)
	}))
	t.Cleanup(server.Close)
	return server
}

func failingServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "backend down", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestAdapter(t *testing.T, endpoints []string) *Adapter {
	t.Helper()
	logger := zerolog.Nop()
	adapter := New(config.ChainConfig{
		Endpoints:          endpoints,
		RateLimit:          100,
		DepositAddress:     "deposit-account",
		TokenAddress:       "jetton-master",
		TokenDecimals:      6,
		KnownJettonWallets: []string{"known-jetton-wallet"},
	}, 0, 10*time.Millisecond, 5*time.Second, config.VerificationPolicy{}, logger)
	t.Cleanup(adapter.Close)
	return adapter
}

func TestFetchTransactionMatchesAcrossEncodings(t *testing.T) {
	// The provider stores the hash in base64; the user submits hex.
	transactions := fmt.Sprintf(`[
		{
			"utime": 1717243200,
			"transaction_id": {"lt": "47312345000001", "hash": %q},
			"in_msg": {
				"source": "sender-account",
				"destination": "deposit-account",
				"value": "1500000000",
				"message": "",
				"msg_data": {"@type": "msg.dataText", "body": "", "text": ""}
			}
		}
	]`, storedHashBase64(t))
	server := transactionsServer(t, transactions)
	adapter := newTestAdapter(t, []string{server.URL})

	record, err := adapter.FetchTransaction(context.Background(), testHashHex)
	if err != nil {
		t.Fatalf("FetchTransaction: %v", err)
	}

	if !record.Success {
		t.Error("record should be successful")
	}
	if record.NativeValue != "1.5" {
		t.Errorf("NativeValue = %s, want 1.5 TON", record.NativeValue)
	}
	if record.FromAddress != "sender-account" {
		t.Errorf("FromAddress = %s", record.FromAddress)
	}
	want := time.Unix(1717243200, 0)
	if !record.BlockTimestamp.Equal(want) {
		t.Errorf("BlockTimestamp = %v, want %v", record.BlockTimestamp, want)
	}
	if len(record.TokenTransfers) != 0 {
		t.Errorf("a plain native transfer should carry no token transfers, got %+v", record.TokenTransfers)
	}
}

func TestFetchTransactionHeuristicJetton(t *testing.T) {
	// No parseable body, but the message comes from a configured jetton
	// wallet; the attached value is taken as a low-confidence transfer.
	transactions := fmt.Sprintf(`[
		{
			"utime": 1717243300,
			"transaction_id": {"lt": "47312345000002", "hash": %q},
			"in_msg": {
				"source": "known-jetton-wallet",
				"destination": "deposit-account",
				"value": "250000000",
				"message": "",
				"msg_data": {"@type": "msg.dataRaw", "body": "", "text": ""}
			}
		}
	]`, storedHashBase64(t))
	server := transactionsServer(t, transactions)
	adapter := newTestAdapter(t, []string{server.URL})

	record, err := adapter.FetchTransaction(context.Background(), testHashHex)
	if err != nil {
		t.Fatalf("FetchTransaction: %v", err)
	}

	if len(record.TokenTransfers) != 1 {
		t.Fatalf("TokenTransfers = %+v, want one heuristic transfer", record.TokenTransfers)
	}
	transfer := record.TokenTransfers[0]
	if transfer.Confidence != models.ConfidenceHeuristic {
		t.Errorf("Confidence = %v, want heuristic", transfer.Confidence)
	}
	if transfer.TokenAddress != "jetton-master" {
		t.Errorf("TokenAddress = %s, want the configured jetton master", transfer.TokenAddress)
	}
	if transfer.Value != "250000000" {
		t.Errorf("Value = %s, want the attached value", transfer.Value)
	}
}

func TestFetchTransactionEndpointFailover(t *testing.T) {
	transactions := fmt.Sprintf(`[
		{
			"utime": 1717243200,
			"transaction_id": {"lt": "47312345000001", "hash": %q},
			"in_msg": {
				"source": "sender-account",
				"destination": "deposit-account",
				"value": "1000000000",
				"message": "",
				"msg_data": {"@type": "msg.dataText", "body": "", "text": ""}
			}
		}
	]`, storedHashBase64(t))
	bad := failingServer(t)
	good := transactionsServer(t, transactions)
	adapter := newTestAdapter(t, []string{bad.URL, good.URL})

	record, err := adapter.FetchTransaction(context.Background(), testHashHex)
	if err != nil {
		t.Fatalf("FetchTransaction should fail over to the second endpoint: %v", err)
	}
	if record.NativeValue != "1" {
		t.Errorf("NativeValue = %s, want 1", record.NativeValue)
	}
}

func TestFetchTransactionNotFound(t *testing.T) {
	server := transactionsServer(t, `[]`)
	adapter := newTestAdapter(t, []string{server.URL})

	_, err := adapter.FetchTransaction(context.Background(), testHashHex)

	var failure *models.FetchFailure
	if !errors.As(err, &failure) || failure.Kind != models.FailureNotFound {
		t.Fatalf("err = %v, want NOT_FOUND fetch failure", err)
	}
}

func TestFetchTransactionAllEndpointsDown(t *testing.T) {
	bad1 := failingServer(t)
	bad2 := failingServer(t)
	adapter := newTestAdapter(t, []string{bad1.URL, bad2.URL})

	_, err := adapter.FetchTransaction(context.Background(), testHashHex)

	var failure *models.FetchFailure
	if !errors.As(err, &failure) || failure.Kind != models.FailureProviderError {
		t.Fatalf("err = %v, want PROVIDER_ERROR fetch failure", err)
	}
}

func TestFetchTransactionBadHashEncoding(t *testing.T) {
	server := transactionsServer(t, `[]`)
	adapter := newTestAdapter(t, []string{server.URL})

	_, err := adapter.FetchTransaction(context.Background(), "definitely-not-a-ton-hash")

	var failure *models.FetchFailure
	if !errors.As(err, &failure) || failure.Kind != models.FailureNotFound {
		t.Fatalf("err = %v, want NOT_FOUND fetch failure for an undecodable hash", err)
	}
}
