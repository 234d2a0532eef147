package events

import (
	"deposit-verifier/internal/interfaces"
	"deposit-verifier/internal/logger"
	"deposit-verifier/internal/models"
)

var _ interfaces.EventEmitter = (*LogEmitter)(nil)

// LogEmitter logs every deposit event and forwards to a wrapped emitter
// when one is configured. With no wrapped emitter it serves as the
// default sink for deployments without Kafka.
type LogEmitter struct {
	WrappedEmitter interfaces.EventEmitter
}

// EmitEvent logs the deposit event and forwards it.
func (l *LogEmitter) EmitEvent(event models.DepositEvent) error {
	entry := logger.GetLogger().Info()
	if event.Status == models.StatusFailed {
		entry = logger.GetLogger().Error()
	}

	entry.
		Str("depositId", event.DepositID).
		Str("userId", event.UserID).
		Str("network", event.Network.String()).
		Str("txHash", event.TxHash).
		Str("status", event.Status.String()).
		Str("amount", event.Amount).
		Bool("heuristic", event.Heuristic).
		Str("explorer", event.ExplorerURL).
		Msg("Deposit event")

	if l.WrappedEmitter != nil {
		return l.WrappedEmitter.EmitEvent(event)
	}
	return nil
}
