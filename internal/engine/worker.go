package engine

import (
	"context"
	"sync"

	"deposit-verifier/internal/models"
)

type job struct {
	userID  string
	txHash  string
	network models.NetworkName
	amount  string
	result  chan VerifyResult
}

// Start launches the verification worker pool. Workers drain queued jobs
// until the context is cancelled; Wait blocks until they exit.
func (e *Engine) Start(ctx context.Context) *sync.WaitGroup {
	var wg sync.WaitGroup
	wg.Add(e.workers)
	for i := 0; i < e.workers; i++ {
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					e.drainJobs()
					return
				case j := <-e.jobs:
					j.result <- e.VerifyDeposit(ctx, j.userID, j.txHash, j.network, j.amount)
					close(j.result)
				}
			}
		}()
	}
	return &wg
}

// drainJobs resolves jobs still queued at shutdown so no caller blocks on
// a result that will never be produced.
func (e *Engine) drainJobs() {
	for {
		select {
		case j := <-e.jobs:
			j.result <- VerifyResult{
				Success: false,
				Code:    CodeInternalVerificationError,
				Message: "verification queue shut down",
			}
			close(j.result)
		default:
			return
		}
	}
}

// SubmitAsync enqueues a verification without blocking the caller on the
// provider round-trips. The returned channel yields exactly one result;
// tests and callers that need the answer await it, fire-and-forget callers
// simply drop it.
func (e *Engine) SubmitAsync(ctx context.Context, userID, txHash string, network models.NetworkName, amount string) <-chan VerifyResult {
	result := make(chan VerifyResult, 1)
	j := job{userID: userID, txHash: txHash, network: network, amount: amount, result: result}

	select {
	case e.jobs <- j:
	case <-ctx.Done():
		result <- VerifyResult{
			Success: false,
			Code:    CodeInternalVerificationError,
			Message: "verification queue unavailable",
		}
		close(result)
	}
	return result
}
