package metrics

// Pre-defined metrics for the contract service. All of them live in
// DefaultRegistry so they are globally accessible without passing a
// registry around.

var (
	// ---- Settlement tracker metrics ----

	// SharetokensSubmitted counts sharetokens accepted for settlement.
	SharetokensSubmitted = DefaultRegistry.Counter("tracker.sharetokens_submitted")
	// SharetokensSettled counts sharetokens paid out at settlement.
	SharetokensSettled = DefaultRegistry.Counter("tracker.sharetokens_settled")
	// SettlementTicks counts settlement sweeps that closed at least one
	// contract.
	SettlementTicks = DefaultRegistry.Counter("tracker.ticks")
	// SettlementQueue tracks servicekey contracts awaiting settlement.
	SettlementQueue = DefaultRegistry.Gauge("tracker.queue")
	// SettlementTime records settlement sweep duration in milliseconds.
	SettlementTime = DefaultRegistry.Histogram("tracker.settle_ms")

	// ---- Relay directory metrics ----

	// RelaysEnrolled tracks the number of currently enrolled relays.
	RelaysEnrolled = DefaultRegistry.Gauge("relays.enrolled")

	// ---- Payout metrics ----

	// Withdrawals counts withdrawal requests forwarded to the payment
	// system.
	Withdrawals = DefaultRegistry.Counter("payout.withdrawals")
	// WithdrawalsFailed counts withdrawals that ended in the error state.
	WithdrawalsFailed = DefaultRegistry.Counter("payout.withdrawals_failed")
	// WithdrawalsPending tracks withdrawals awaiting a terminal state.
	WithdrawalsPending = DefaultRegistry.Gauge("payout.pending")
	// PayoutLatency records payment system round trip time in
	// milliseconds.
	PayoutLatency = DefaultRegistry.Histogram("payout.latency_ms")

	// ---- HTTP metrics ----

	// HTTPRequests counts incoming API requests.
	HTTPRequests = DefaultRegistry.Counter("http.requests")
	// HTTPErrors counts API requests answered with a 4xx or 5xx status.
	HTTPErrors = DefaultRegistry.Counter("http.errors")
	// HTTPLatency records API request latency in milliseconds.
	HTTPLatency = DefaultRegistry.Histogram("http.latency_ms")
)
