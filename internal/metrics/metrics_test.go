package metrics

import "testing"

func TestCountersSafeBeforeInit(t *testing.T) {
	IncrementTierFiring("fast")
	AddTransactions("trade_receivables", 3)
	IncrementIntegrityFault()
	IncrementFallbackFetch("fx_rate")
	AddArchiveRows(10)
	SetProtocolGauges(1.0, 5_000_000, 0.06, 0.015)
}
