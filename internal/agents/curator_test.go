package agents

import "testing"

func TestCurateNormalizesTopic(t *testing.T) {
	cur := Curate("Black Holes & You", "")
	if cur.Slug != "black-holes-and-you" {
		t.Fatalf("unexpected slug: %q", cur.Slug)
	}
	if len(cur.SubAngles) == 0 {
		t.Fatalf("expected sub-angles")
	}
	if cur.ReadingLevelTarget != "grade-6" {
		t.Fatalf("expected default reading level, got %q", cur.ReadingLevelTarget)
	}
}

func TestCurateKeepsExplicitReadingLevel(t *testing.T) {
	cur := Curate("Volcanoes", "grade-4")
	if cur.ReadingLevelTarget != "grade-4" {
		t.Fatalf("expected grade-4, got %q", cur.ReadingLevelTarget)
	}
}
