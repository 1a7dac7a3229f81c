package policy

import (
	"github.com/shopspring/decimal"
)

// Approval cut-off and limit/rate constants. The mapping from risk score
// to terms is a pure function so the same inputs always yield the same
// offer.
var (
	denyThreshold = decimal.RequireFromString("0.6")
	floorLimit    = decimal.NewFromInt(1000)
	maxLimit      = decimal.NewFromInt(10000)
	baseRate      = decimal.RequireFromString("5.0")
	rateSpread    = decimal.NewFromInt(15)
	one           = decimal.NewFromInt(1)
)

// Terms is the monetary outcome of an approved decision.
type Terms struct {
	CreditLimit  decimal.Decimal
	InterestRate decimal.Decimal
}

// Approve reports whether a risk score qualifies for credit.
func Approve(riskScore float64) bool {
	return decimal.NewFromFloat(riskScore).LessThanOrEqual(denyThreshold)
}

// ComputeTerms maps an approved risk score to a credit limit and interest
// rate, both rounded to two decimal places.
//
//	limit = max(1000, (1 - risk) * 10000)
//	rate  = 5.0 + risk * 15
func ComputeTerms(riskScore float64) Terms {
	risk := decimal.NewFromFloat(riskScore)

	limit := one.Sub(risk).Mul(maxLimit)
	if limit.LessThan(floorLimit) {
		limit = floorLimit
	}

	rate := baseRate.Add(risk.Mul(rateSpread))

	return Terms{
		CreditLimit:  limit.Round(2),
		InterestRate: rate.Round(2),
	}
}
