// Package tracker settles sharetokens. Submitted tokens queue until
// their servicekey's settlement window closes; each tick the tracker
// drains the due tokens, prices every relay's share of the servicekey
// value and credits the balance ledger. A single task owns all tracker
// state; handlers reach it over channels.
package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wireskip/contract/api"
	"github.com/wireskip/contract/log"
	"github.com/wireskip/contract/metrics"
)

// Channel capacities. Producers block when the backlog is full.
const (
	submitBacklog = 100
	txnBacklog    = 100
)

// BalanceUpdate finalizes a previously drafted balance change for a
// relay. The withdrawal pipeline produces them; the tracker commits.
type BalanceUpdate struct {
	Relay  string
	Action CommitAction
}

// stake identifies a relay's holding in one servicekey.
type stake struct {
	servicekey string
	relay      string
}

// Tracker owns the settlement queue, the share counters, the archive
// backlog and the event log. Everything except the ledger and event
// log (which are internally locked) is touched only by the Run task.
type Tracker struct {
	calc     ShareCalc
	interval int64 // seconds between ticks with an empty queue
	store    *Store
	ledger   *Ledger
	events   *EventLog
	log      *log.Logger

	queue   *settlementQueue
	totals  map[string]decimal.Decimal
	tokens  map[stake]decimal.Decimal
	archive []*api.Sharetoken

	// Submissions delivers verified sharetokens from the submit
	// handler. Txns delivers withdrawal finalizations.
	Submissions chan *api.Sharetoken
	Txns        chan BalanceUpdate
}

// New creates a tracker writing through store, pricing shares with
// calc and ticking at least every interval.
func New(store *Store, calc ShareCalc, interval time.Duration, logger *log.Logger) *Tracker {
	return &Tracker{
		calc:        calc,
		interval:    int64(interval / time.Second),
		store:       store,
		ledger:      NewLedger(),
		events:      NewEventLog(time.Now().Unix()),
		log:         logger.Module("tracker"),
		queue:       newSettlementQueue(),
		totals:      make(map[string]decimal.Decimal),
		tokens:      make(map[stake]decimal.Decimal),
		Submissions: make(chan *api.Sharetoken, submitBacklog),
		Txns:        make(chan BalanceUpdate, txnBacklog),
	}
}

// Ledger returns the shared balance ledger.
func (t *Tracker) Ledger() *Ledger { return t.ledger }

// Events returns the shared event log.
func (t *Tracker) Events() *EventLog { return t.events }

// LoadBalances restores the ledger from the store's balance snapshot.
// Call once before Run.
func (t *Tracker) LoadBalances() error {
	balances, err := t.store.ReadBalances()
	if err != nil {
		return err
	}
	if len(balances) > 0 {
		t.ledger.Restore(balances)
		t.log.Info("restored balances", "relays", len(balances))
	}
	return nil
}

// Submit hands a verified sharetoken to the tracker task. It blocks
// when the submission backlog is full.
func (t *Tracker) Submit(st *api.Sharetoken) {
	t.Submissions <- st
}

// push queues a token for settlement. Tracker task only.
func (t *Tracker) push(st *api.Sharetoken) {
	t.events.Record(time.Now().Unix(), Event{Submission: &SubmissionEvent{
		Servicekey: st.PublicKey.String(),
		Relay:      st.RelayPubkey.String(),
	}})
	t.queue.Push(st)
	metrics.SharetokensSubmitted.Inc()
	metrics.SettlementQueue.Set(int64(t.queue.Len()))
	t.log.Debug("sharetoken queued",
		"servicekey", st.PublicKey.String(),
		"relay", st.RelayPubkey.String(),
		"close", st.Contract.SettlementClose)
}

// Tick drains and settles every token whose window has closed by now,
// then flushes the archive backlog and the event log. It returns the
// time of the next tick: the earliest queued close time, or
// now+interval when the queue is empty.
func (t *Tracker) Tick(now int64) int64 {
	timer := metrics.NewTimer(metrics.SettlementTime)
	defer timer.Stop()

	next := now + t.interval

	one := decimal.NewFromInt(1)
	drained := 0
	for {
		st := t.queue.PopDue(now)
		if st == nil {
			break
		}
		sk := st.PublicKey.String()
		s := stake{servicekey: sk, relay: st.RelayPubkey.String()}
		t.totals[sk] = t.totals[sk].Add(one)
		t.tokens[s] = t.tokens[s].Add(one)
		t.archive = append(t.archive, st)
		drained++
	}
	if due, ok := t.queue.Next(); ok {
		next = due
	}

	t.distribute(now)
	t.flushArchive()
	if err := t.store.WriteEventLog(t.events); err != nil {
		t.log.Error("event log write failed", "err", err)
	}

	metrics.SharetokensSettled.Add(int64(drained))
	metrics.SettlementQueue.Set(int64(t.queue.Len()))
	return next
}

// distribute prices every counted stake and credits the ledger, then
// clears the tick's counters. A failing draft or a negative reward is
// a broken invariant, not an operational error.
func (t *Tracker) distribute(now int64) {
	for s, count := range t.tokens {
		share := count.DivRound(t.totals[s.servicekey], sharePrecision)
		reward := t.calc.Reward(share)
		if reward.Sign() < 0 {
			panic(fmt.Sprintf("tracker: negative reward %s for relay %s", reward, s.relay))
		}
		if err := t.ledger.Draft(s.relay, reward); err != nil {
			panic(fmt.Sprintf("tracker: reward draft failed: %v", err))
		}
		t.ledger.Commit(s.relay, Apply)
		t.events.Record(now, Event{Distribution: &DistributionEvent{
			Servicekey: s.servicekey,
			Relay:      s.relay,
			Delta:      reward,
		}})
		t.log.Info("share distributed",
			"servicekey", s.servicekey, "relay", s.relay, "reward", reward.String())
	}
	if len(t.totals) > 0 {
		metrics.SettlementTicks.Inc()
	}
	for sk := range t.totals {
		t.events.Record(now, Event{Settlement: &SettlementEvent{Servicekey: sk}})
	}
	clear(t.totals)
	clear(t.tokens)
}

// flushArchive writes queued settled tokens to the store. Tokens that
// fail to write stay queued for the next tick.
func (t *Tracker) flushArchive() {
	kept := t.archive[:0]
	for _, st := range t.archive {
		if err := t.store.WriteArchived(st); err != nil {
			t.log.Error("archive write failed", "path", st.Path(), "err", err)
			kept = append(kept, st)
		}
	}
	t.archive = kept
}

// finalize commits a withdrawal's terminal action.
func (t *Tracker) finalize(u BalanceUpdate) {
	t.ledger.Commit(u.Relay, u.Action)
	t.events.Record(time.Now().Unix(), Event{WithdrawalFinal: &WithdrawalFinalEvent{
		Relay:  u.Relay,
		Action: u.Action,
	}})
	t.log.Info("withdrawal finalized", "relay", u.Relay, "action", u.Action.String())
}

// Run drives settlement until ctx is canceled, then drains: queued
// tokens to unsettled/, the archive backlog to archive/ and the ledger
// to balances.json.
func (t *Tracker) Run(ctx context.Context) error {
	t.log.Info("tracker started", "interval", t.interval)

	next := t.Tick(time.Now().Unix())
	timer := time.NewTimer(untilUnix(next))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return t.shutdown()
		case st := <-t.Submissions:
			t.push(st)
			if due := st.Contract.SettlementClose; due < next {
				next = due
				timer.Reset(untilUnix(next))
			}
		case u := <-t.Txns:
			t.finalize(u)
		case <-timer.C:
			next = t.Tick(time.Now().Unix())
			timer.Reset(untilUnix(next))
		}
	}
}

// shutdown flushes all volatile state to the store.
func (t *Tracker) shutdown() error {
	var firstErr error
	fail := func(err error) {
		if firstErr == nil {
			firstErr = err
		}
	}

	// Accepted hand-offs still buffered in the channels belong to this
	// run: the submit handler already answered 200 for them. Queue
	// backlogged tokens so they drain to unsettled/ with the heap, and
	// finalize outstanding withdrawal commits before the snapshot.
backlog:
	for {
		select {
		case st := <-t.Submissions:
			t.push(st)
		case u := <-t.Txns:
			t.finalize(u)
		default:
			break backlog
		}
	}

	unsettled := t.queue.Drain()
	for _, st := range unsettled {
		if err := t.store.WriteUnsettled(st); err != nil {
			t.log.Error("unsettled write failed", "path", st.Path(), "err", err)
			fail(err)
		}
	}
	t.flushArchive()
	if len(t.archive) > 0 {
		fail(fmt.Errorf("tracker: %d archived sharetokens not written", len(t.archive)))
	}
	if err := t.store.WriteBalances(t.ledger.Export()); err != nil {
		t.log.Error("balance snapshot failed", "err", err)
		fail(err)
	}
	if err := t.store.WriteEventLog(t.events); err != nil {
		t.log.Error("event log write failed", "err", err)
		fail(err)
	}

	t.log.Info("tracker stopped", "unsettled", len(unsettled))
	return firstErr
}

// untilUnix returns the duration from now to the given unix time, never
// negative.
func untilUnix(utime int64) time.Duration {
	d := time.Until(time.Unix(utime, 0))
	if d < 0 {
		return 0
	}
	return d
}
