package checksum

import "testing"

func TestSum_Stable(t *testing.T) {
	a := Sum([]byte("| A"))
	if a != Sum([]byte("| A")) {
		t.Error("Sum should be deterministic")
	}
	if len(a) != 64 {
		t.Errorf("len = %d, want 64", len(a))
	}
}

func TestRoadmap_TopicMatters(t *testing.T) {
	if Roadmap("Go", "| A") == Roadmap("Rust", "| A") {
		t.Error("different topics should yield different checksums")
	}
	if Roadmap("ab", "c") == Roadmap("a", "bc") {
		t.Error("topic/raw boundary should be part of the checksum")
	}
}
