package dedupe

import "testing"

func TestFindDuplicateReturnsFirstAboveThreshold(t *testing.T) {
	candidates := []Candidate{{ID: "a", Score: 0.80}, {ID: "b", Score: 0.97}}
	if got := FindDuplicate(candidates, DefaultThreshold); got != "b" {
		t.Fatalf("expected b, got %q", got)
	}
}

func TestFindDuplicateNoneQualify(t *testing.T) {
	candidates := []Candidate{{ID: "a", Score: 0.5}}
	if got := FindDuplicate(candidates, DefaultThreshold); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}

func TestNormalizeTextCollapsesWhitespaceAndCase(t *testing.T) {
	got := NormalizeText("  The   Project IS\tGoing Well  ")
	want := "the project is going well"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestJaccardSimilarityIgnoresStopwords(t *testing.T) {
	score := JaccardSimilarity("the project is going well", "project going well")
	if score != 1 {
		t.Fatalf("expected stop-word-stripped sets to match exactly, got %v", score)
	}
}

func TestJaccardSimilarityPartialOverlap(t *testing.T) {
	score := JaccardSimilarity("project deadline moved to friday", "project launch moved to monday")
	if score <= 0 || score >= 1 {
		t.Fatalf("expected partial overlap score in (0,1), got %v", score)
	}
}

func TestJaccardSimilarityBothEmptyAfterStripping(t *testing.T) {
	score := JaccardSimilarity("the is a", "an of the")
	if score != 1 {
		t.Fatalf("expected two all-stopword texts to be treated as equal, got %v", score)
	}
}

func TestJaccardSimilarityOneEmptyAfterStripping(t *testing.T) {
	score := JaccardSimilarity("the is a", "project deadline")
	if score != 0 {
		t.Fatalf("expected zero similarity when one side has no content words, got %v", score)
	}
}
