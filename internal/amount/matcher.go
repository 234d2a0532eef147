package amount

import (
	"errors"
	"fmt"

	"deposit-verifier/internal/models"
	"deposit-verifier/internal/registry"

	"github.com/shopspring/decimal"
)

// ErrNoMatchingTransfer is returned when a token deposit is expected but
// the transaction carries no transfer of that token to the deposit address.
var ErrNoMatchingTransfer = errors.New("no transfer of the expected token to the deposit address")

// Result reports the outcome of an amount comparison.
type Result struct {
	OK          bool
	Expected    decimal.Decimal
	Actual      decimal.Decimal
	PercentDiff decimal.Decimal
	Confidence  models.Confidence
}

// PercentDiffString renders the relative deviation for user-facing
// messages, e.g. "5.00%".
func (r Result) PercentDiffString() string {
	return r.PercentDiff.StringFixed(2) + "%"
}

// Matcher compares claimed deposit amounts against on-chain amounts within
// a relative tolerance. All arithmetic is exact decimal; binary floats are
// never used on money paths.
type Matcher struct {
	tolerance decimal.Decimal
	registry  *registry.Registry
}

// NewMatcher builds a matcher with the tolerance given in percent
// (e.g. "2" allows a 2% deviation).
func NewMatcher(tolerancePercent string, reg *registry.Registry) (*Matcher, error) {
	tolerance, err := decimal.NewFromString(tolerancePercent)
	if err != nil {
		return nil, fmt.Errorf("invalid tolerance %q: %w", tolerancePercent, err)
	}
	if tolerance.IsNegative() {
		return nil, fmt.Errorf("tolerance must not be negative: %s", tolerancePercent)
	}
	return &Matcher{tolerance: tolerance, registry: reg}, nil
}

// Match selects the relevant transferred value from the record (native
// value for the native asset, otherwise the transfer of the expected token
// to the deposit address) and compares it to the claimed amount.
func (m *Matcher) Match(claimed string, record *models.TransactionRecord, network models.NetworkName, tokenAddress, depositAddress string) (Result, error) {
	claimedDec, err := decimal.NewFromString(claimed)
	if err != nil {
		return Result{}, fmt.Errorf("invalid claimed amount %q: %w", claimed, err)
	}

	actual, confidence, err := m.selectValue(record, network, tokenAddress, depositAddress)
	if err != nil {
		return Result{Expected: claimedDec, Confidence: confidence}, err
	}

	result := Result{
		Expected:   claimedDec,
		Actual:     actual,
		Confidence: confidence,
	}

	// Division-by-zero guard: a zero claim matches only a zero actual.
	if claimedDec.IsZero() {
		result.OK = actual.IsZero()
		if !result.OK {
			result.PercentDiff = decimal.NewFromInt(100)
		}
		return result, nil
	}

	diff := claimedDec.Sub(actual).Abs()
	result.PercentDiff = diff.Div(claimedDec).Mul(decimal.NewFromInt(100))
	result.OK = result.PercentDiff.LessThanOrEqual(m.tolerance)
	return result, nil
}

func (m *Matcher) selectValue(record *models.TransactionRecord, network models.NetworkName, tokenAddress, depositAddress string) (decimal.Decimal, models.Confidence, error) {
	if m.registry.IsNative(network, tokenAddress) {
		// The destination rule applies to native value too: a transfer of
		// the right size to some other address is not a deposit. Records
		// without an attributed recipient (synthetic overrides) pass.
		if depositAddress != "" && record.ToAddress != "" &&
			!registry.SameAddress(network, record.ToAddress, depositAddress) {
			return decimal.Zero, models.ConfidenceParsed, ErrNoMatchingTransfer
		}
		native, err := decimal.NewFromString(record.NativeValue)
		if err != nil {
			return decimal.Zero, models.ConfidenceParsed, fmt.Errorf("invalid native value %q: %w", record.NativeValue, err)
		}
		return native, models.ConfidenceParsed, nil
	}

	transfer := selectTransfer(record.TokenTransfers, network, tokenAddress, depositAddress)
	if transfer == nil {
		return decimal.Zero, models.ConfidenceParsed, ErrNoMatchingTransfer
	}

	minor, err := decimal.NewFromString(transfer.Value)
	if err != nil {
		return decimal.Zero, transfer.Confidence, fmt.Errorf("invalid transfer value %q: %w", transfer.Value, err)
	}
	return minor.Shift(-transfer.Decimals), transfer.Confidence, nil
}

// selectTransfer matches strictly by token address; among matching
// transfers the first one to the deposit address wins. "First transfer
// found" regardless of token is deliberately not supported: an unrelated
// transfer padded in front of the real one must never be selected.
func selectTransfer(transfers []models.TokenTransfer, network models.NetworkName, tokenAddress, depositAddress string) *models.TokenTransfer {
	var firstOfToken *models.TokenTransfer
	for i := range transfers {
		t := &transfers[i]
		if !registry.SameAddress(network, t.TokenAddress, tokenAddress) {
			continue
		}
		if firstOfToken == nil {
			firstOfToken = t
		}
		if depositAddress != "" && registry.SameAddress(network, t.To, depositAddress) {
			return t
		}
	}
	if depositAddress == "" {
		return firstOfToken
	}
	return nil
}
