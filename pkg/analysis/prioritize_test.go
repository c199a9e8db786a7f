package analysis

import "testing"

func TestPrioritize(t *testing.T) {
	tests := []struct {
		name  string
		items []Item
		want  Item
	}{
		{
			name: "security beats earlier items",
			items: []Item{
				{Type: CategoryUX, Item: "menu"},
				{Type: CategorySecurity, Item: "headers"},
				{Type: CategorySEO, Item: "titles"},
			},
			want: Item{Type: CategorySecurity, Item: "headers"},
		},
		{
			name: "first match within a category",
			items: []Item{
				{Type: CategoryPerformance, Item: "lazy images"},
				{Type: CategoryPerformance, Item: "cache"},
			},
			want: Item{Type: CategoryPerformance, Item: "lazy images"},
		},
		{
			name: "seo before ux and accessibility",
			items: []Item{
				{Type: CategoryAccessibility, Item: "contrast"},
				{Type: CategoryUX, Item: "cta"},
				{Type: CategorySEO, Item: "sitemap"},
			},
			want: Item{Type: CategorySEO, Item: "sitemap"},
		},
		{
			name:  "feature is last",
			items: []Item{{Type: CategoryFeature, Item: "blog"}},
			want:  Item{Type: CategoryFeature, Item: "blog"},
		},
		{
			name: "unknown categories fall back to first item",
			items: []Item{
				{Type: "legal", Item: "cookie banner"},
				{Type: "copy", Item: "tagline"},
			},
			want: Item{Type: "legal", Item: "cookie banner"},
		},
		{
			name:  "empty returns default",
			items: nil,
			want:  Item{Type: CategoryFeature, Item: "Add general improvement"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Prioritize(tt.items); got != tt.want {
				t.Errorf("Prioritize() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
