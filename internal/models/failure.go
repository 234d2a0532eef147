package models

import "fmt"

// FailureKind classifies adapter fetch failures. Callers must not treat
// ProviderError or Pending as proof of an invalid transaction.
type FailureKind string

const (
	FailureNotFound      FailureKind = "NOT_FOUND"
	FailurePending       FailureKind = "PENDING"
	FailureOnChain       FailureKind = "ON_CHAIN_FAILURE"
	FailureProviderError FailureKind = "PROVIDER_ERROR"
)

// FetchFailure is the typed error returned by chain adapters.
type FetchFailure struct {
	Kind    FailureKind
	Network NetworkName
	Hash    string
	Message string
	Err     error
}

func (f *FetchFailure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s (%s): %v", f.Network, f.Kind, f.Message, f.Err)
	}
	return fmt.Sprintf("%s: %s (%s)", f.Network, f.Kind, f.Message)
}

func (f *FetchFailure) Unwrap() error {
	return f.Err
}

// NewFetchFailure builds a typed adapter failure.
func NewFetchFailure(kind FailureKind, network NetworkName, hash, message string, err error) *FetchFailure {
	return &FetchFailure{Kind: kind, Network: network, Hash: hash, Message: message, Err: err}
}
