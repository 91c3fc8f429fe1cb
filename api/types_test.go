package api

import (
	"encoding/json"
	"math"
	"testing"
	"time"
)

func TestRoleValid(t *testing.T) {
	for _, r := range []Role{RoleFronting, RoleEntropic, RoleBacking} {
		if !r.Valid() {
			t.Errorf("%q should be valid", r)
		}
	}
	for _, r := range []Role{"", "exit", "FRONTING"} {
		if r.Valid() {
			t.Errorf("%q should be invalid", r)
		}
	}
}

func TestRoleInfoRecord(t *testing.T) {
	var ri RoleInfo

	if !ri.Record(1) {
		t.Fatal("increment from zero refused")
	}
	if ri.Count != 1 {
		t.Errorf("expected count 1, got %d", ri.Count)
	}
	if !ri.Record(-1) {
		t.Fatal("decrement to zero refused")
	}

	// Underflow and overflow leave the count untouched.
	if ri.Record(-1) {
		t.Error("decrement below zero should be refused")
	}
	if ri.Count != 0 {
		t.Errorf("expected count 0 after refused decrement, got %d", ri.Count)
	}
	ri.Count = math.MaxUint32
	if ri.Record(1) {
		t.Error("increment past MaxUint32 should be refused")
	}
	if ri.Count != math.MaxUint32 {
		t.Errorf("count moved on refused increment: %d", ri.Count)
	}
}

func TestEnrollmentRole(t *testing.T) {
	var e Enrollment
	e.Fronting.Count = 1
	e.Entropic.Count = 2
	e.Backing.Count = 3

	if ri := e.Role(RoleEntropic); ri == nil || ri.Count != 2 {
		t.Errorf("entropic lookup: %+v", ri)
	}
	if ri := e.Role(Role("exit")); ri != nil {
		t.Errorf("unknown role should be nil, got %+v", ri)
	}

	// Lookups alias the enrollment fields.
	e.Role(RoleBacking).Record(1)
	if e.Backing.Count != 4 {
		t.Errorf("expected backing count 4, got %d", e.Backing.Count)
	}
}

func TestStatusError(t *testing.T) {
	var err error = &Status{Code: 400, Description: "Sharetoken is not for this contract"}
	if err.Error() != "Sharetoken is not for this contract" {
		t.Errorf("unexpected error text: %q", err.Error())
	}
}

func TestUnmarshalSigned(t *testing.T) {
	kp := stKeypair(t, 0x0E)
	src := &SKContract{SettlementOpen: 100, SettlementClose: 200}
	src.Sign(kp.Private())

	data, err := json.Marshal(src)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var dst SKContract
	if err := UnmarshalSigned(data, &dst); err != nil {
		t.Fatalf("unmarshal signed: %v", err)
	}
	if dst.SettlementClose != 200 {
		t.Errorf("expected settlement_close 200, got %d", dst.SettlementClose)
	}
}

func TestUnmarshalSignedTamper(t *testing.T) {
	kp := stKeypair(t, 0x0E)
	src := &SKContract{SettlementOpen: 100, SettlementClose: 200}
	src.Sign(kp.Private())
	src.SettlementOpen = 101

	data, err := json.Marshal(src)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var dst SKContract
	if err := UnmarshalSigned(data, &dst); err != ErrSignature {
		t.Errorf("expected ErrSignature, got %v", err)
	}
}

func TestUnmarshalSignedBadJSON(t *testing.T) {
	var dst SKContract
	if err := UnmarshalSigned([]byte("{"), &dst); err == nil {
		t.Error("expected error for truncated JSON")
	}
}

func TestDurationText(t *testing.T) {
	var d Duration
	if err := d.UnmarshalText([]byte("600s")); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if d.D() != 10*time.Minute {
		t.Errorf("expected 10m, got %v", d.D())
	}
	if d.Unix() != 600 {
		t.Errorf("expected 600 seconds, got %d", d.Unix())
	}
	if err := d.UnmarshalText([]byte("soon")); err == nil {
		t.Error("expected error for junk duration")
	}
}
