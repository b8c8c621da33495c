// Package payments holds the card/PIX authorization gateway.
package payments

import (
	"context"

	"go.uber.org/zap"

	"corrida/internal/modules/ride"
	"corrida/internal/types"
)

// LoggingProcessor approves every authorization and logs it. It stands in
// for the PSP integration in local and test environments.
type LoggingProcessor struct {
	log *zap.Logger
}

func NewLoggingProcessor(log *zap.Logger) *LoggingProcessor {
	return &LoggingProcessor{log: log}
}

func (p *LoggingProcessor) Authorize(ctx context.Context, method ride.Method, amount types.Money) error {
	p.log.Info("payment authorized",
		zap.String("method", string(method)),
		zap.String("amount", amount.String()),
	)
	return nil
}
