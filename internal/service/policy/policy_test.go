package policy

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestApprove(t *testing.T) {
	cases := []struct {
		risk float64
		want bool
	}{
		{0.0, true},
		{0.1, true},
		{0.6, true},
		{0.61, false},
		{1.0, false},
	}
	for _, c := range cases {
		if got := Approve(c.risk); got != c.want {
			t.Fatalf("Approve(%v) = %v, want %v", c.risk, got, c.want)
		}
	}
}

func TestComputeTerms(t *testing.T) {
	cases := []struct {
		risk      float64
		wantLimit string
		wantRate  string
	}{
		{0.1, "9000", "6.5"},
		{0.5, "5000", "12.5"},
		{0.95, "1000", "19.25"},
		{0.0, "10000", "5"},
	}
	for _, c := range cases {
		got := ComputeTerms(c.risk)
		if !got.CreditLimit.Equal(decimal.RequireFromString(c.wantLimit)) {
			t.Fatalf("risk %v: limit %s, want %s", c.risk, got.CreditLimit, c.wantLimit)
		}
		if !got.InterestRate.Equal(decimal.RequireFromString(c.wantRate)) {
			t.Fatalf("risk %v: rate %s, want %s", c.risk, got.InterestRate, c.wantRate)
		}
	}
}

func TestFloorLimit(t *testing.T) {
	// (1 - 0.95) * 10000 = 500, below the 1000 floor.
	got := ComputeTerms(0.95)
	if !got.CreditLimit.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("floor not applied: %s", got.CreditLimit)
	}
}
