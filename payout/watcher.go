// watcher.go polls open withdrawals until the payment system settles
// them one way or the other.
package payout

import (
	"context"
	"time"

	"github.com/wireskip/contract/api"
	"github.com/wireskip/contract/metrics"
	"github.com/wireskip/contract/tracker"
)

// Watch polls every open withdrawal at the configured period and queues
// the matching ledger commit once the payment system reports a terminal
// state. It runs until ctx is canceled; withdrawals still open at that
// point keep their drafts for the operator to reconcile.
func (p *Pipeline) Watch(ctx context.Context) error {
	watched := make(map[string]pendingWithdrawal)
	ticker := time.NewTicker(p.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Info("watcher stopped", "open", len(watched))
			return nil
		case pw := <-p.pending:
			watched[pw.w.ID] = pw
			metrics.WithdrawalsPending.Set(int64(len(watched)))
			p.log.Debug("watching withdrawal", "id", pw.w.ID, "relay", pw.relay)
		case <-ticker.C:
			for id, pw := range watched {
				sd, err := p.client.WithdrawalState(ctx, id)
				if err != nil {
					p.log.Warn("withdrawal poll failed", "id", id, "err", err)
					continue
				}
				if !sd.State.Terminal() {
					continue
				}
				action := tracker.Apply
				if sd.State == api.WithdrawalError {
					action = tracker.Abort
					metrics.WithdrawalsFailed.Inc()
				}
				p.txns <- tracker.BalanceUpdate{Relay: pw.relay, Action: action}
				delete(watched, id)
				metrics.WithdrawalsPending.Set(int64(len(watched)))
				p.log.Info("withdrawal settled",
					"id", id, "relay", pw.relay, "state", sd.State)
			}
		}
	}
}
