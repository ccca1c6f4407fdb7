package domain

import "time"

// Category is one section of the newsletter, driven by a search query.
type Category struct {
	ID         string
	NameEN     string
	NameZH     string
	Keywords   string
	ItemsCount int
}

// SearchResult is a candidate article returned by the search provider.
type SearchResult struct {
	Title   string
	Link    string
	Snippet string
	Date    string
}

// NewsItem is a summarized article selected for delivery.
type NewsItem struct {
	Title        string `json:"title"`
	URL          string `json:"url"`
	SummaryEN    string `json:"summary_en"`
	SummaryZH    string `json:"summary_zh"`
	Significance string `json:"significance"`
}

// CategoryDigest groups the items delivered for a category.
type CategoryDigest struct {
	Category Category
	Items    []NewsItem
	Removed  int
}

// Newsletter is the fully assembled message handed to a Mailer.
type Newsletter struct {
	Recipient   string
	Subject     string
	SenderName  string
	Categories  []CategoryDigest
	GeneratedAt time.Time
}

// ItemCount returns the number of items across all categories.
func (n Newsletter) ItemCount() int {
	total := 0
	for _, c := range n.Categories {
		total += len(c.Items)
	}
	return total
}

// RunReport summarizes a single pipeline execution.
type RunReport struct {
	RunID        string
	Categories   int
	Items        int
	Removed      int
	Sent         bool
	HistorySaved bool
}
