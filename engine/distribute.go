/*
distribute.go - Day-span distribution of fractional leave quantities

PURPOSE:
  Converts a leave record's total quantity into exact per-calendar-day
  shares, clipped to arbitrary query windows and re-bucketed by calendar
  year or by period key. The balance ledger and the calendar aggregation
  views both use this pipeline, so they can never disagree about how many
  days a given leave counts for in a given year or period.

PRECISION:
  All math is decimal (shopspring/decimal). Per-day shares are computed
  with 8 fractional digits, rounded half up. Buckets accumulate shares
  with plain decimal addition and no cross-bucket normalization, so the
  sum over all buckets for a single record equals the record's total up
  to a rounding residue bounded by bucketCount * 1e-8.

SEE ALSO:
  - time.go: Span.Clip, the window intersection primitive
  - period.go: period key functions used as bucket key functions
*/
package engine

import "github.com/shopspring/decimal"

// distributionScale is the fractional digit count for per-day shares.
const distributionScale = 8

// PerDayShare returns total split evenly over the inclusive span,
// rounded half up at 8 fractional digits.
func PerDayShare(span Span, total decimal.Decimal) decimal.Decimal {
	return total.DivRound(decimal.NewFromInt(int64(span.Len())), distributionScale)
}

// BucketBy walks each calendar day of the span, applies keyFn, and
// accumulates perDay into that key's bucket.
func BucketBy(span Span, perDay decimal.Decimal, keyFn func(Date) string) map[string]decimal.Decimal {
	buckets := make(map[string]decimal.Decimal)
	for cur := span.Start; cur.BeforeOrEqual(span.End); cur = cur.AddDays(1) {
		key := keyFn(cur)
		buckets[key] = buckets[key].Add(perDay)
	}
	return buckets
}

// BucketByYear accumulates perDay into calendar-year buckets.
func BucketByYear(span Span, perDay decimal.Decimal) map[int]decimal.Decimal {
	buckets := make(map[int]decimal.Decimal)
	for cur := span.Start; cur.BeforeOrEqual(span.End); cur = cur.AddDays(1) {
		buckets[cur.Year()] = buckets[cur.Year()].Add(perDay)
	}
	return buckets
}

// DistributeByYear computes the per-year quantities a record contributes
// within a query window. The per-day share always derives from the FULL
// record span; only the walk is clipped. Returns an empty map when the
// record does not touch the window.
func DistributeByYear(record Span, total decimal.Decimal, window Span) map[int]decimal.Decimal {
	clipped, ok := record.Clip(window)
	if !ok {
		return map[int]decimal.Decimal{}
	}
	return BucketByYear(clipped, PerDayShare(record, total))
}

// DistributeByPeriod is DistributeByYear's period-key sibling, used by
// the calendar aggregation views.
func DistributeByPeriod(record Span, total decimal.Decimal, window Span, g Granularity) map[string]decimal.Decimal {
	clipped, ok := record.Clip(window)
	if !ok {
		return map[string]decimal.Decimal{}
	}
	return BucketBy(clipped, PerDayShare(record, total), func(d Date) string {
		return MustPeriodKey(d, g)
	})
}
