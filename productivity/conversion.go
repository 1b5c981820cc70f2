package productivity

import (
	"github.com/shopspring/decimal"
	"github.com/warp/productivity-engine/generic"
)

// =============================================================================
// CONVERSION RESOLVER
// =============================================================================

// Conversion is the outcome of resolving a factor for one row.
type Conversion struct {
	Factor   decimal.Decimal
	Unit     generic.Unit
	Billable decimal.NullDecimal
	// IndexID is zero when the default conversion applied.
	IndexID IndexID
}

// DefaultConversion applies when no index exists for the pair: factor 1,
// unit CBM, billable equal to raw (zero when raw is absent).
func DefaultConversion(raw decimal.NullDecimal) Conversion {
	billable := generic.NewQuantity(decimal.Zero)
	if raw.Valid {
		billable = raw
	}
	return Conversion{
		Factor:   generic.One,
		Unit:     generic.DefaultUnit,
		Billable: billable,
	}
}

// Apply converts raw with this index. An absent raw quantity leaves billable
// unset.
func (idx ConversionIndex) Apply(raw decimal.NullDecimal) Conversion {
	unit := idx.Unit
	if unit == "" {
		unit = generic.DefaultUnit
	}
	c := Conversion{Factor: idx.Factor, Unit: unit, IndexID: idx.ID}
	if raw.Valid {
		c.Billable = generic.NewQuantity(raw.Decimal.Mul(idx.Factor))
	}
	return c
}

// ResolveConversion finds the latest index for the pair and applies it.
// It never fails: a missing index falls back to DefaultConversion.
func (c *Catalog) ResolveConversion(accountID AccountID, taskID TaskID, raw decimal.NullDecimal) Conversion {
	idx, ok := c.FindLatestIndex(accountID, taskID)
	if !ok {
		return DefaultConversion(raw)
	}
	return idx.Apply(raw)
}
