package trade

import (
	"testing"
	"time"
)

func TestValidatorAcceptsCompletePayload(t *testing.T) {
	v := NewValidator()
	ok, errs := v.Validate(validTrade("t1", "u1", time.Now().UTC()))
	if !ok {
		t.Errorf("expected valid payload, got errors: %v", errs)
	}
}

func TestValidatorRejectsIncompletePayloads(t *testing.T) {
	v := NewValidator()
	ts := time.Now().UTC()

	cases := []struct {
		name   string
		mutate func(*Trade)
	}{
		{"missing userId", func(tr *Trade) { tr.UserID = "" }},
		{"missing symbol", func(tr *Trade) { tr.Symbol = "" }},
		{"missing side", func(tr *Trade) { tr.Side = "" }},
		{"missing quantity", func(tr *Trade) { tr.Quantity = 0 }},
		{"missing price", func(tr *Trade) { tr.Price = 0 }},
		{"missing timestamp", func(tr *Trade) { tr.Timestamp = time.Time{} }},
		{"negative quantity", func(tr *Trade) { tr.Quantity = -1 }},
		{"negative price", func(tr *Trade) { tr.Price = -0.5 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr := validTrade("t1", "u1", ts)
			tc.mutate(tr)
			ok, errs := v.Validate(tr)
			if ok {
				t.Error("expected validation failure")
			}
			if len(errs) == 0 {
				t.Error("expected field errors")
			}
		})
	}
}

func TestValidatorAllowsMissingID(t *testing.T) {
	v := NewValidator()
	tr := validTrade("", "u1", time.Now().UTC())
	if ok, errs := v.Validate(tr); !ok {
		t.Errorf("id is generated server-side and must be optional, got errors: %v", errs)
	}
}
