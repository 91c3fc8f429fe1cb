// Package payout forwards relay withdrawals to the payment system and
// reconciles their outcomes with the balance ledger. Every accepted
// withdrawal drafts a negative balance change; exactly one terminal
// commit follows, either immediately from the payment system's first
// answer or later from the watcher.
package payout

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wireskip/contract/api"
	"github.com/wireskip/contract/log"
	"github.com/wireskip/contract/metrics"
	"github.com/wireskip/contract/tracker"
)

// watchBacklog caps open withdrawals waiting for the watcher.
const watchBacklog = 100

// ErrNoMethod rejects withdrawals of a type this contract does not pay.
var ErrNoMethod = errors.New("no payout methods fits withdrawal")

// pendingWithdrawal pairs an open withdrawal with the relay whose
// drafted balance change it settles. The payment system never learns
// relay identities, so the pipeline carries them alongside.
type pendingWithdrawal struct {
	relay string
	w     *api.Withdrawal
}

// Pipeline runs withdrawals: match type, draft the debit, forward to
// the payment system, finalize or watch. Safe for concurrent use by
// request handlers.
type Pipeline struct {
	typ     string
	client  *Client
	ledger  *tracker.Ledger
	events  *tracker.EventLog
	txns    chan<- tracker.BalanceUpdate
	pending chan pendingWithdrawal
	period  time.Duration
	log     *log.Logger
}

// New creates a pipeline paying withdrawals of the given type through
// client, settling against tr's ledger and finalizing through its
// transaction channel. period is the watcher's polling cadence.
func New(client *Client, typ string, period time.Duration, tr *tracker.Tracker, logger *log.Logger) *Pipeline {
	return &Pipeline{
		typ:     typ,
		client:  client,
		ledger:  tr.Ledger(),
		events:  tr.Events(),
		txns:    tr.Txns,
		pending: make(chan pendingWithdrawal, watchBacklog),
		period:  period,
		log:     logger.Module("payout"),
	}
}

// Withdraw runs one withdrawal up to the payment system's first
// answer. A terminal first answer queues the commit immediately; a
// pending one hands the withdrawal to the watcher. The returned
// Withdrawal echoes the payment system's record.
func (p *Pipeline) Withdraw(ctx context.Context, relay string, wr *api.WithdrawalRequest) (*api.Withdrawal, error) {
	if wr.Type != p.typ {
		return nil, ErrNoMethod
	}
	delta := decimal.NewFromUint64(wr.Amount).Neg()
	if err := p.ledger.Draft(relay, delta); err != nil {
		metrics.WithdrawalsFailed.Inc()
		return nil, err
	}
	p.events.Record(time.Now().Unix(), tracker.Event{WithdrawalPending: &tracker.WithdrawalPendingEvent{
		Relay: relay,
		Delta: delta,
	}})

	timer := metrics.NewTimer(metrics.PayoutLatency)
	w, err := p.client.CreateWithdrawal(ctx, wr)
	timer.Stop()
	if err != nil {
		// The draft must not outlive a refused withdrawal.
		p.log.Warn("withdrawal refused", "relay", relay, "err", err)
		metrics.WithdrawalsFailed.Inc()
		p.txns <- tracker.BalanceUpdate{Relay: relay, Action: tracker.Abort}
		return nil, err
	}

	metrics.Withdrawals.Inc()
	p.log.Info("withdrawal opened",
		"relay", relay, "id", w.ID, "state", w.StateData.State, "amount", wr.Amount)
	switch w.StateData.State {
	case api.WithdrawalComplete:
		p.txns <- tracker.BalanceUpdate{Relay: relay, Action: tracker.Apply}
	case api.WithdrawalError:
		metrics.WithdrawalsFailed.Inc()
		p.txns <- tracker.BalanceUpdate{Relay: relay, Action: tracker.Abort}
	default:
		p.pending <- pendingWithdrawal{relay: relay, w: w}
	}
	return w, nil
}
