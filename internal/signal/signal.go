package signal

// Strength maps a candidate's qualitative confidence score to a bounded
// signal-strength value. The mapping is the identity clamped to [0,1]:
// the Beta-CDF sizing downstream already applies the non-linear shaping,
// so rescaling here would double-shape the curve.
func Strength(confidence float64) float64 {
	if confidence < 0 {
		return 0
	}
	if confidence > 1 {
		return 1
	}
	return confidence
}
