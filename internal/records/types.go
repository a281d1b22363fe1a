package records

import "strings"

// Placeholder text for summary sections the upstream left empty.
// Matches the records service's own defaults so cached and fresh
// summaries render identically.
const (
	PlaceholderMedication = "No medication information available."
	PlaceholderLifestyle  = "No lifestyle recommendations available."
	PlaceholderCondition  = "No condition information available."
)

// DefaultCategory groups documents the upstream never classified.
const DefaultCategory = "Other"

// Summary is one patient's clinical summary.
type Summary struct {
	MedicationSummary        string `json:"medication_summary"`
	LifestyleRecommendations string `json:"lifestyle_recommendations"`
	ConditionSummary         string `json:"condition_summary"`
}

// Normalize fills empty sections with their placeholder text so the UI
// never renders a blank panel.
func (s Summary) Normalize() Summary {
	if strings.TrimSpace(s.MedicationSummary) == "" {
		s.MedicationSummary = PlaceholderMedication
	}
	if strings.TrimSpace(s.LifestyleRecommendations) == "" {
		s.LifestyleRecommendations = PlaceholderLifestyle
	}
	if strings.TrimSpace(s.ConditionSummary) == "" {
		s.ConditionSummary = PlaceholderCondition
	}
	return s
}

// Document is one entry of a patient's document list.
type Document struct {
	Filename       string `json:"filename"`
	Path           string `json:"path"`
	Category       string `json:"category"`
	Classification string `json:"classification,omitempty"`
}

// DocumentContent is the text of a single document.
type DocumentContent struct {
	Content        string `json:"content"`
	Classification string `json:"classification"`
}

// Profile is the raw profile payload. The viewer passes it through
// without interpreting its shape.
type Profile map[string]any

// CategoryGroup is a category heading plus its documents.
type CategoryGroup struct {
	Category  string     `json:"category"`
	Documents []Document `json:"documents"`
}

// GroupDocumentsByCategory groups documents by category, preserving the
// order categories first appear and the input order within each group.
// Documents without a category land under DefaultCategory.
func GroupDocumentsByCategory(docs []Document) []CategoryGroup {
	groups := make([]CategoryGroup, 0, len(docs))
	index := make(map[string]int, len(docs))
	for _, d := range docs {
		cat := strings.TrimSpace(d.Category)
		if cat == "" {
			cat = DefaultCategory
		}
		i, ok := index[cat]
		if !ok {
			i = len(groups)
			index[cat] = i
			groups = append(groups, CategoryGroup{Category: cat})
		}
		groups[i].Documents = append(groups[i].Documents, d)
	}
	return groups
}
