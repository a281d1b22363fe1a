package records

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSummaryNormalize(t *testing.T) {
	s := Summary{MedicationSummary: "Lisinopril 10mg."}.Normalize()
	if s.MedicationSummary != "Lisinopril 10mg." {
		t.Fatalf("normalize clobbered a populated section: %q", s.MedicationSummary)
	}
	if s.LifestyleRecommendations != PlaceholderLifestyle {
		t.Fatalf("expected lifestyle placeholder, got %q", s.LifestyleRecommendations)
	}
	if s.ConditionSummary != PlaceholderCondition {
		t.Fatalf("expected condition placeholder, got %q", s.ConditionSummary)
	}

	blank := Summary{MedicationSummary: "   "}.Normalize()
	if blank.MedicationSummary != PlaceholderMedication {
		t.Fatalf("whitespace-only section should normalize, got %q", blank.MedicationSummary)
	}
}

func TestGroupDocumentsByCategory(t *testing.T) {
	docs := []Document{
		{Filename: "labs-2024.pdf", Path: "p/1", Category: "Lab Results"},
		{Filename: "intake.pdf", Path: "p/2"},
		{Filename: "labs-2025.pdf", Path: "p/3", Category: "Lab Results"},
		{Filename: "xray.pdf", Path: "p/4", Category: "Imaging"},
	}

	groups := GroupDocumentsByCategory(docs)
	require.Len(t, groups, 3)

	require.Equal(t, "Lab Results", groups[0].Category)
	require.Equal(t, []string{"labs-2024.pdf", "labs-2025.pdf"}, filenames(groups[0].Documents))

	require.Equal(t, DefaultCategory, groups[1].Category)
	require.Equal(t, []string{"intake.pdf"}, filenames(groups[1].Documents))

	require.Equal(t, "Imaging", groups[2].Category)
}

func TestGroupDocumentsByCategoryEmpty(t *testing.T) {
	groups := GroupDocumentsByCategory(nil)
	if len(groups) != 0 {
		t.Fatalf("expected no groups for empty input, got %d", len(groups))
	}
}

func TestGroupDocumentsDoesNotMutateInput(t *testing.T) {
	docs := []Document{{Filename: "a.pdf", Path: "p/a"}}
	_ = GroupDocumentsByCategory(docs)
	if docs[0].Category != "" {
		t.Fatalf("input slice mutated: %+v", docs[0])
	}
}

func filenames(docs []Document) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Filename)
	}
	return out
}
