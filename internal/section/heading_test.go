package section

import "testing"

func TestClassify_NumberedHeading(t *testing.T) {
	h, ok := Classify("2. Related Work")
	if !ok {
		t.Fatal("expected a heading")
	}
	if h.Title != RelatedWork {
		t.Errorf("expected title %q, got %q", RelatedWork, h.Title)
	}
	if h.Level != 1 {
		t.Errorf("expected level 1, got %d", h.Level)
	}
}

func TestClassify_BareHeading(t *testing.T) {
	h, ok := Classify("Related Work")
	if !ok {
		t.Fatal("expected a heading")
	}
	if h.Title != RelatedWork {
		t.Errorf("expected title %q, got %q", RelatedWork, h.Title)
	}
	if h.Level != 1 {
		t.Errorf("expected level 1, got %d", h.Level)
	}
}

func TestClassify_RejectsPartialContainment(t *testing.T) {
	// Keywords appearing inside prose must not match: the bare pattern
	// requires the whole line.
	if _, ok := Classify("Relatedworkish discussion"); ok {
		t.Error("expected no heading for partial containment")
	}
	if _, ok := Classify("The introduction of noise hurts accuracy."); ok {
		t.Error("expected no heading for body prose")
	}
}

func TestClassify_AliasVariants(t *testing.T) {
	tests := []struct {
		line string
		want Title
	}{
		{"Methods", Method},
		{"Methodology", Method},
		{"3. methodology", Method},
		{"Experiments", Experiment},
		{"Conclusions", Conclusion},
		{"Conclusion:", Conclusion},
		{"5) Results and Discussion", Discussion},
		{"  Abstract  ", Abstract},
		{"INTRODUCTION", Introduction},
	}
	for _, tt := range tests {
		h, ok := Classify(tt.line)
		if !ok {
			t.Errorf("Classify(%q): expected a heading", tt.line)
			continue
		}
		if h.Title != tt.want {
			t.Errorf("Classify(%q): expected %q, got %q", tt.line, tt.want, h.Title)
		}
	}
}

func TestClassify_NoMatch(t *testing.T) {
	lines := []string{
		"",
		"   ",
		"Contents",
		"table of contents",
		"1.2. Motivation", // numbered but not in the alias table
		"7. Acknowledgments",
		"This paper studies transformers.",
	}
	for _, line := range lines {
		if h, ok := Classify(line); ok {
			t.Errorf("Classify(%q): expected no heading, got %q", line, h.Title)
		}
	}
}

func TestClassify_NumberedLevelsFlatten(t *testing.T) {
	// Canonicalization flattens numbering depth to level 1.
	h, ok := Classify("1.2.1. Discussion")
	if !ok {
		t.Fatal("expected a heading")
	}
	if h.Level != 1 {
		t.Errorf("expected level 1, got %d", h.Level)
	}
}
