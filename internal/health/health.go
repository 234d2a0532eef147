package health

import (
	"context"
	"deposit-verifier/internal/interfaces"
	"deposit-verifier/internal/logger"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

type ProviderStatus struct {
	Network   string    `json:"network"`
	Reachable bool      `json:"reachable"`
	LastCheck time.Time `json:"last_check"`
	LastError string    `json:"last_error,omitempty"`
}

var (
	isReady          int32
	providerStatuses = make(map[string]*ProviderStatus)
	statusMutex      sync.RWMutex
)

func SetReady(ready bool) {
	if ready {
		atomic.StoreInt32(&isReady, 1)
	} else {
		atomic.StoreInt32(&isReady, 0)
	}
}

func LivenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func ReadinessHandler(w http.ResponseWriter, _ *http.Request) {
	statusMutex.RLock()
	defer statusMutex.RUnlock()

	if len(providerStatuses) == 0 || atomic.LoadInt32(&isReady) == 0 {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("Not Ready"))

		return
	}

	response := make(map[string]interface{})
	response["status"] = "Ready"
	response["providers"] = providerStatuses

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}

// RegisterAdapter polls provider reachability for one network until the
// context is cancelled.
func RegisterAdapter(ctx context.Context, adapter interfaces.ChainAdapter) {
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()

		probe(ctx, adapter)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probe(ctx, adapter)
			}
		}
	}()
}

func probe(ctx context.Context, adapter interfaces.ChainAdapter) {
	err := adapter.Ping(ctx)
	if err != nil {
		logger.GetLogger().Error().
			Err(err).
			Str("network", adapter.Network().String()).
			Msg("Provider unreachable")
	}
	updateProviderStatus(adapter.Network().String(), err)
}

func updateProviderStatus(network string, err error) {
	statusMutex.Lock()
	defer statusMutex.Unlock()
	status := &ProviderStatus{
		Network:   network,
		Reachable: err == nil,
		LastCheck: time.Now(),
	}
	if err != nil {
		status.LastError = err.Error()
	}
	providerStatuses[network] = status
}
