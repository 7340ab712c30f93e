package workflow

import (
	"bitbucket.org/kiranetwork/recon_backend/utils"
	"github.com/shopspring/decimal"
)

// SeriesSpec describes one running-balance column of a ledger row type.
//
// The fold keeps a carried value per series. A day only materializes a
// balance when Activity says so; otherwise the column stays NULL and the
// carried value is left untouched. Because the activity rules always
// include "carry non-zero", a NULL day implies the carry was zero, so
// nulls never swallow a real balance.
type SeriesSpec[R any] struct {
	Activity func(r *R, prev decimal.Decimal) bool
	Next     func(r *R, prev decimal.Decimal) decimal.Decimal
	Set      func(r *R, v *decimal.Decimal)
}

// CascadeEngine folds ledger rows in strictly ascending date order,
// starting from the entity's first row. Partial, row-local recomputation
// is deliberately unsupported: every later day depends on the edited
// day, so callers always re-run the whole entity.
type CascadeEngine[R any] struct {
	// PreDerive runs before the series on each row (derived manual
	// fields like withdrawal charges).
	PreDerive func(r *R)
	Series    []SeriesSpec[R]
	// Finalize runs after the series on each row (cross-series totals).
	Finalize func(r *R)
}

// Run executes the fold. rows MUST already be sorted by ascending date;
// the engine does not sort so that callers stay in charge of tie-breaks.
func (e CascadeEngine[R]) Run(rows []*R) {
	prev := make([]decimal.Decimal, len(e.Series))

	for _, r := range rows {
		if e.PreDerive != nil {
			e.PreDerive(r)
		}
		for i, s := range e.Series {
			if s.Activity(r, prev[i]) {
				v := utils.RoundTo2(s.Next(r, prev[i]))
				s.Set(r, &v)
				prev[i] = v
			} else {
				s.Set(r, nil)
			}
		}
		if e.Finalize != nil {
			e.Finalize(r)
		}
	}
}
