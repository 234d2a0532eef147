package evm

import (
	"math/big"
	"testing"

	"deposit-verifier/internal/config"
	"deposit-verifier/internal/models"
	"deposit-verifier/internal/registry"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"
)

const usdtContract = "0xdAC17F958D2ee523a2206206994597C13D831ec7"

func testRegistry() *registry.Registry {
	return registry.New(map[models.NetworkName]config.ChainConfig{
		models.Ethereum: {
			TokenAddress:  usdtContract,
			TokenDecimals: 6,
		},
	})
}

func addressTopic(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}

func transferLog(token, from, to common.Address, value *big.Int) *types.Log {
	return &types.Log{
		Address: token,
		Topics:  []common.Hash{erc20TransferTopic, addressTopic(from), addressTopic(to)},
		Data:    common.LeftPadBytes(value.Bytes(), 32),
	}
}

func TestExtractTransfers(t *testing.T) {
	token := common.HexToAddress(usdtContract)
	from := common.HexToAddress("0x1111111111111111111111111111111111111111")
	to := common.HexToAddress("0x2222222222222222222222222222222222222222")

	logs := []*types.Log{
		transferLog(token, from, to, big.NewInt(100000000)),
		// Approval-style log with two topics must be skipped.
		{
			Address: token,
			Topics:  []common.Hash{erc20TransferTopic, addressTopic(from)},
			Data:    common.LeftPadBytes(big.NewInt(1).Bytes(), 32),
		},
		// Unrelated event topic must be skipped.
		{
			Address: token,
			Topics:  []common.Hash{common.HexToHash("0x01"), addressTopic(from), addressTopic(to)},
			Data:    common.LeftPadBytes(big.NewInt(1).Bytes(), 32),
		},
		// Truncated data must be skipped.
		{
			Address: token,
			Topics:  []common.Hash{erc20TransferTopic, addressTopic(from), addressTopic(to)},
			Data:    []byte{0x01},
		},
	}

	transfers := extractTransfers(models.Ethereum, testRegistry(), logs)

	if len(transfers) != 1 {
		t.Fatalf("transfers = %+v, want exactly one", transfers)
	}
	tr := transfers[0]
	if tr.TokenAddress != token.Hex() {
		t.Errorf("TokenAddress = %s, want %s", tr.TokenAddress, token.Hex())
	}
	if tr.From != from.Hex() {
		t.Errorf("From = %s, want %s", tr.From, from.Hex())
	}
	if tr.To != to.Hex() {
		t.Errorf("To = %s, want %s", tr.To, to.Hex())
	}
	if tr.Value != "100000000" {
		t.Errorf("Value = %s, want 100000000", tr.Value)
	}
	if tr.Decimals != 6 {
		t.Errorf("Decimals = %d, want the configured token decimals", tr.Decimals)
	}
	if tr.Confidence != models.ConfidenceParsed {
		t.Errorf("Confidence = %v, want parsed", tr.Confidence)
	}
}

func TestExtractTransfersMultiple(t *testing.T) {
	token := common.HexToAddress(usdtContract)
	other := common.HexToAddress("0x3333333333333333333333333333333333333333")
	from := common.HexToAddress("0x1111111111111111111111111111111111111111")
	to := common.HexToAddress("0x2222222222222222222222222222222222222222")

	logs := []*types.Log{
		transferLog(other, from, to, big.NewInt(500)),
		transferLog(token, from, to, big.NewInt(250000000)),
	}

	transfers := extractTransfers(models.Ethereum, testRegistry(), logs)
	if len(transfers) != 2 {
		t.Fatalf("transfers = %+v, want both transfer logs decoded", transfers)
	}
	if transfers[0].TokenAddress != other.Hex() || transfers[1].TokenAddress != token.Hex() {
		t.Errorf("log order must be preserved, got %+v", transfers)
	}
	// The unconfigured token falls back to the network's native decimals.
	if transfers[0].Decimals != 18 {
		t.Errorf("unknown token decimals = %d, want 18", transfers[0].Decimals)
	}
}

func TestNativeValueUsesRegistryDecimals(t *testing.T) {
	reg := testRegistry()

	wei, _ := new(big.Int).SetString("1500000000000000000", 10)
	if got := nativeValue(reg, models.Ethereum, wei); got != "1.5" {
		t.Errorf("nativeValue(1.5e18 wei) = %s, want 1.5", got)
	}
	if got := nativeValue(reg, models.BSC, big.NewInt(1)); got != "0.000000000000000001" {
		t.Errorf("nativeValue(1 wei) = %s", got)
	}
}

func TestNewRejectsNonEVMNetworks(t *testing.T) {
	_, err := New(models.Solana, config.ChainConfig{RpcEndpoint: "http://localhost:8545"}, testRegistry(), config.VerificationPolicy{}, 0, zerolog.Nop())
	if err == nil {
		t.Error("Solana must not be dialed as an EVM network")
	}
}
