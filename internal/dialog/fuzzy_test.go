package dialog

import "testing"

func TestSimilarity(t *testing.T) {
	cases := []struct {
		a, b string
		min  float64
		max  float64
	}{
		{"Ritika", "Ritika", 1, 1},
		{"ritika", "RITIKA", 1, 1},
		{"  Ritika  Sharma ", "ritika sharma", 1, 1},
		{"Rithika", "Ritika", 0.85, 0.99},
		{"Rita", "Ritika", 0.5, 0.84},
		{"Ravi", "Priya", 0, 0.4},
		{"", "", 0, 0},
	}
	for _, tc := range cases {
		got := Similarity(tc.a, tc.b)
		if got < tc.min || got > tc.max {
			t.Errorf("Similarity(%q, %q) = %.3f, want in [%.2f, %.2f]", tc.a, tc.b, got, tc.min, tc.max)
		}
	}
}

func TestSimilarityThresholdBoundary(t *testing.T) {
	// One edit in a seven-rune name sits just above the resolver threshold;
	// one edit in a five-rune name sits below it.
	if s := Similarity("Rithika", "Ritika"); s < FuzzyThreshold {
		t.Errorf("expected %.3f >= %.2f", s, FuzzyThreshold)
	}
	if s := Similarity("Ravi", "Ravis"); s >= FuzzyThreshold {
		t.Errorf("expected %.3f < %.2f", s, FuzzyThreshold)
	}
}
