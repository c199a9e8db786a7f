// Package analysis holds the aggregated improvement report and the policy that
// picks a single improvement out of it.
package analysis

// Category names one kind of improvement.
type Category string

const (
	CategorySecurity      Category = "security"
	CategoryPerformance   Category = "performance"
	CategorySEO           Category = "seo"
	CategoryUX            Category = "ux"
	CategoryAccessibility Category = "accessibility"
	CategoryFeature       Category = "feature"
)

// CodeQuality is the code-quality sub-record of a report.
type CodeQuality struct {
	Score           float64  `json:"score"`
	Issues          []string `json:"issues"`
	Recommendations []string `json:"recommendations"`
}

// Report is the aggregate of every per-file analysis of one run.
type Report struct {
	SEO             []string    `json:"seo"`
	UX              []string    `json:"ux"`
	Performance     []string    `json:"performance"`
	Accessibility   []string    `json:"accessibility"`
	Security        []string    `json:"security"`
	MissingFeatures []string    `json:"missingFeatures"`
	CodeQuality     CodeQuality `json:"codeQuality"`
}

// Item is one (category, description) pair.
type Item struct {
	Type Category `json:"type"`
	Item string   `json:"item"`
}

// Merge appends every list of partial onto r, in order. Entries are not
// deduplicated; merging the same partial twice duplicates them.
func (r *Report) Merge(partial Report) {
	r.SEO = append(r.SEO, partial.SEO...)
	r.UX = append(r.UX, partial.UX...)
	r.Performance = append(r.Performance, partial.Performance...)
	r.Accessibility = append(r.Accessibility, partial.Accessibility...)
	r.Security = append(r.Security, partial.Security...)
	r.MissingFeatures = append(r.MissingFeatures, partial.MissingFeatures...)

	r.CodeQuality.Issues = append(r.CodeQuality.Issues, partial.CodeQuality.Issues...)
	r.CodeQuality.Recommendations = append(r.CodeQuality.Recommendations, partial.CodeQuality.Recommendations...)
	if partial.CodeQuality.Score != 0 {
		r.CodeQuality.Score = partial.CodeQuality.Score
	}
}

// Items flattens the report into improvement items. Lists are visited in a
// fixed order and each list keeps its source order.
func (r *Report) Items() []Item {
	lists := []struct {
		category Category
		entries  []string
	}{
		{CategorySEO, r.SEO},
		{CategoryUX, r.UX},
		{CategoryPerformance, r.Performance},
		{CategoryAccessibility, r.Accessibility},
		{CategorySecurity, r.Security},
		{CategoryFeature, r.MissingFeatures},
	}

	var items []Item
	for _, l := range lists {
		for _, e := range l.entries {
			items = append(items, Item{Type: l.category, Item: e})
		}
	}
	return items
}

// Empty reports whether the report carries no suggestions at all.
func (r *Report) Empty() bool {
	return len(r.Items()) == 0 &&
		len(r.CodeQuality.Issues) == 0 &&
		len(r.CodeQuality.Recommendations) == 0
}
