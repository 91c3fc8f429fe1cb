package tracker

import "testing"

func TestSettlementQueueOrder(t *testing.T) {
	q := newSettlementQueue()
	for _, due := range []int64{300, 100, 500, 200, 100} {
		q.Push(mkToken(t, 0x01, 0x02, due))
	}
	if q.Len() != 5 {
		t.Fatalf("len = %d, want 5", q.Len())
	}

	// Pops come out in nondecreasing close order.
	prev := int64(0)
	for i := 0; i < 5; i++ {
		st := q.PopDue(1000)
		if st == nil {
			t.Fatalf("nil pop at %d", i)
		}
		if st.Contract.SettlementClose < prev {
			t.Errorf("pop %d: close %d after %d", i, st.Contract.SettlementClose, prev)
		}
		prev = st.Contract.SettlementClose
	}
	if q.PopDue(1000) != nil {
		t.Error("expected nil pop on empty queue")
	}
}

func TestSettlementQueuePopDueRespectsNow(t *testing.T) {
	q := newSettlementQueue()
	q.Push(mkToken(t, 0x01, 0x02, 100))
	q.Push(mkToken(t, 0x01, 0x02, 200))

	if st := q.PopDue(150); st == nil || st.Contract.SettlementClose != 100 {
		t.Fatalf("expected the close=100 token, got %+v", st)
	}
	if st := q.PopDue(150); st != nil {
		t.Errorf("close=200 token popped at now=150")
	}
	if due, ok := q.Next(); !ok || due != 200 {
		t.Errorf("next = %d/%v, want 200/true", due, ok)
	}
}

func TestSettlementQueueDrain(t *testing.T) {
	q := newSettlementQueue()
	for _, due := range []int64{300, 100, 200} {
		q.Push(mkToken(t, 0x01, 0x02, due))
	}

	drained := q.Drain()
	if len(drained) != 3 {
		t.Fatalf("drained %d, want 3", len(drained))
	}
	for i, want := range []int64{100, 200, 300} {
		if drained[i].Contract.SettlementClose != want {
			t.Errorf("drain[%d] close = %d, want %d", i, drained[i].Contract.SettlementClose, want)
		}
	}
	if q.Len() != 0 {
		t.Errorf("len after drain = %d, want 0", q.Len())
	}
	if _, ok := q.Next(); ok {
		t.Error("Next on empty queue reported a token")
	}
}
