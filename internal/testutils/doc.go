// Package testutils provides testing utilities shared by package tests:
// a controllable clock, a capturing slog handler and builders for domain
// fixtures.
//
//	clk := testutils.NewFakeClock(time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC))
//	job := testutils.MustCreateGenerationJob(t, ownerID, clk.Now())
//	clk.Advance(25 * time.Hour)
package testutils
