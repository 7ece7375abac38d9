// Package analysis summarizes recorded trace channels.
//
//   - [Summarize]: range, mean and settle time of one channel
//   - [DominantFrequency]: strongest oscillation in a channel
//   - [Divergence] and [GrowthRate]: how two runs of a scenario drift apart
//
// A positive growth rate between two seeds of the same scenario means small
// input jitter is amplified, as when a grab lands on a different hand:
//
//	div, _ := analysis.Divergence(a, b, "crate_y")
//	rate := analysis.GrowthRate(a.Times, div)
package analysis
