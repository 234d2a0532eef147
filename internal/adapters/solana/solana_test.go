package solana

import (
	"context"
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

const testSignature = "5j7s6NiJS3JAkvgkoc18WVAsiSaci2pxB2A6ueCJP4tp"

// setupTestAdapter wires the adapter to a mock JSON-RPC server.
func setupTestAdapter(t *testing.T, policy config.VerificationPolicy, result string) (*Adapter, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req models.RPCRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request", 400)
			return
		}
		if req.Method != "getTransaction" {
			http.Error(w, "unexpected method "+req.Method, 400)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":"1","result":%s}`, result)
	}))
	t.Cleanup(server.Close)

	logger := zerolog.Nop()
	adapter := New(config.ChainConfig{
		RpcEndpoint: server.URL,
		RateLimit:   100,
	}, 0, 10*time.Millisecond, 5*time.Second, policy, logger)
	t.Cleanup(adapter.Close)

	return adapter, server
}

func TestFetchTransactionSuccess(t *testing.T) {
	result := `{
		"slot": 224191234,
		"blockTime": 1717243200,
		"meta": {
			"err": null,
			"fee": 5000,
			"preBalances": [2500005000, 500000000],
			"postBalances": [500000000, 2500000000],
			"preTokenBalances": [],
			"postTokenBalances": []
		},
		"transaction": {
			"message": {
				"accountKeys": ["SenderAccount1111111111111111111111111111111", "DepositAccount111111111111111111111111111111"]
			},
			"signatures": ["` + testSignature + `"]
		}
	}`
	adapter, _ := setupTestAdapter(t, config.VerificationPolicy{}, result)

	record, err := adapter.FetchTransaction(context.Background(), testSignature)
	if err != nil {
		t.Fatalf("FetchTransaction: %v", err)
	}

	if !record.Success {
		t.Error("record should be successful")
	}
	if record.NativeValue != "2" {
		t.Errorf("NativeValue = %s, want 2 SOL from the fee payer delta", record.NativeValue)
	}
	if record.FromAddress != "SenderAccount1111111111111111111111111111111" {
		t.Errorf("FromAddress = %s", record.FromAddress)
	}
	if record.BlockNumber != 224191234 {
		t.Errorf("BlockNumber = %d, want the slot", record.BlockNumber)
	}
	want := time.Unix(1717243200, 0)
	if !record.BlockTimestamp.Equal(want) {
		t.Errorf("BlockTimestamp = %v, want %v", record.BlockTimestamp, want)
	}
}

func TestFetchTransactionTokenDiffs(t *testing.T) {
	result := `{
		"slot": 224191300,
		"blockTime": 1717243300,
		"meta": {
			"err": null,
			"fee": 5000,
			"preBalances": [10000, 10000],
			"postBalances": [5000, 10000],
			"preTokenBalances": [
				{"accountIndex": 1, "mint": "MintAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA", "owner": "RecipientOwner", "uiTokenAmount": {"amount": "1000000", "decimals": 6}},
				{"accountIndex": 2, "mint": "MintAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA", "owner": "SenderOwner", "uiTokenAmount": {"amount": "5000000", "decimals": 6}}
			],
			"postTokenBalances": [
				{"accountIndex": 1, "mint": "MintAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA", "owner": "RecipientOwner", "uiTokenAmount": {"amount": "3500000", "decimals": 6}},
				{"accountIndex": 2, "mint": "MintAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA", "owner": "SenderOwner", "uiTokenAmount": {"amount": "2500000", "decimals": 6}}
			]
		},
		"transaction": {
			"message": {"accountKeys": ["FeePayer", "RecipientTokenAccount", "SenderTokenAccount"]},
			"signatures": ["` + testSignature + `"]
		}
	}`
	adapter, _ := setupTestAdapter(t, config.VerificationPolicy{}, result)

	record, err := adapter.FetchTransaction(context.Background(), testSignature)
	if err != nil {
		t.Fatalf("FetchTransaction: %v", err)
	}

	if len(record.TokenTransfers) != 1 {
		t.Fatalf("TokenTransfers = %+v, want exactly one incoming transfer", record.TokenTransfers)
	}
	transfer := record.TokenTransfers[0]
	if transfer.Value != "2500000" {
		t.Errorf("Value = %s, want the balance delta 2500000", transfer.Value)
	}
	if transfer.Decimals != 6 {
		t.Errorf("Decimals = %d, want 6", transfer.Decimals)
	}
	if transfer.To != "RecipientOwner" {
		t.Errorf("To = %s, want RecipientOwner", transfer.To)
	}
	if transfer.From != "SenderOwner" {
		t.Errorf("From = %s, want SenderOwner", transfer.From)
	}
	if transfer.Confidence != models.ConfidenceParsed {
		t.Errorf("Confidence = %v, want parsed", transfer.Confidence)
	}
}

func TestFetchTransactionNotFound(t *testing.T) {
	adapter, _ := setupTestAdapter(t, config.VerificationPolicy{}, "null")

	_, err := adapter.FetchTransaction(context.Background(), testSignature)

	var failure *models.FetchFailure
	if !errors.As(err, &failure) || failure.Kind != models.FailureNotFound {
		t.Fatalf("err = %v, want NOT_FOUND fetch failure", err)
	}
}

func TestFetchTransactionUnconfirmed(t *testing.T) {
	adapter, _ := setupTestAdapter(t, config.VerificationPolicy{}, `{"slot": 1, "blockTime": null, "meta": null, "transaction": {"message": {"accountKeys": []}}}`)

	_, err := adapter.FetchTransaction(context.Background(), testSignature)

	var failure *models.FetchFailure
	if !errors.As(err, &failure) || failure.Kind != models.FailurePending {
		t.Fatalf("err = %v, want PENDING fetch failure", err)
	}
}

func TestFetchTransactionOnChainFailure(t *testing.T) {
	result := `{
		"slot": 224191400,
		"blockTime": 1717243400,
		"meta": {
			"err": {"InstructionError": [0, {"Custom": 1}]},
			"fee": 5000,
			"preBalances": [10000],
			"postBalances": [5000]
		},
		"transaction": {"message": {"accountKeys": ["FeePayer"]}}
	}`
	adapter, _ := setupTestAdapter(t, config.VerificationPolicy{}, result)

	_, err := adapter.FetchTransaction(context.Background(), testSignature)

	var failure *models.FetchFailure
	if !errors.As(err, &failure) || failure.Kind != models.FailureOnChain {
		t.Fatalf("err = %v, want ON_CHAIN_FAILURE fetch failure", err)
	}
}

func TestFetchTransactionOnChainFailureOverride(t *testing.T) {
	result := `{
		"slot": 224191400,
		"blockTime": 1717243400,
		"meta": {
			"err": {"InstructionError": [0, {"Custom": 1}]},
			"fee": 5000,
			"preBalances": [10000],
			"postBalances": [5000]
		},
		"transaction": {"message": {"accountKeys": ["FeePayer"]}}
	}`
	adapter, _ := setupTestAdapter(t, config.VerificationPolicy{TreatFailureAsSuccess: true}, result)

	record, err := adapter.FetchTransaction(context.Background(), testSignature)
	if err != nil {
		t.Fatalf("FetchTransaction: %v", err)
	}
	if !record.Success || !record.Synthetic {
		t.Errorf("record = %+v, want synthetic success under the override policy", record)
	}
}

func TestFetchTransactionProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "backend down", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	logger := zerolog.Nop()
	adapter := New(config.ChainConfig{RpcEndpoint: server.URL, RateLimit: 100}, 0, 10*time.Millisecond, 5*time.Second, config.VerificationPolicy{}, logger)
	t.Cleanup(adapter.Close)

	_, err := adapter.FetchTransaction(context.Background(), testSignature)

	var failure *models.FetchFailure
	if !errors.As(err, &failure) || failure.Kind != models.FailureProviderError {
		t.Fatalf("err = %v, want PROVIDER_ERROR fetch failure", err)
	}
}
