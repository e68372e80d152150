// Package executor defines the pluggable boundary between a found
// Opportunity and actually submitting it on-chain. Execution (bundle
// construction, private relay submission, nonce/gas management) is out of
// this engine's core scope; Submitter exists so a
// downstream consumer can be wired in without touching the detection path.
package executor

import (
	"context"

	"github.com/l2arb/mevcore/internal/logging"
	"github.com/l2arb/mevcore/internal/search"
)

// Submitter is given every opportunity a worker finds, after dispatch's
// invariant check has already passed.
type Submitter interface {
	Submit(ctx context.Context, opp *search.Opportunity) error
}

// LoggingSubmitter is the default Submitter: it logs the opportunity and
// does nothing else. A real deployment replaces this with a bundle builder.
type LoggingSubmitter struct {
	Logger logging.Logger
}

// Submit implements Submitter.
func (s LoggingSubmitter) Submit(_ context.Context, opp *search.Opportunity) error {
	logger := s.Logger
	if logger == nil {
		logger = logging.Noop()
	}
	logger.Info("opportunity",
		"id", opp.ID,
		"trigger_tx", opp.TriggerTxHash,
		"input_token", opp.InputToken(),
		"input_amount", opp.InputAmount,
		"net_profit", opp.NetProfit,
		"legs", len(opp.Path),
	)
	return nil
}
