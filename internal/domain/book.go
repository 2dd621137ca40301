package domain

// Book is a single listing card scraped from the RefHub search page.
// Every field is optional on the source page; missing elements leave the
// zero value behind.
type Book struct {
	Title       string   `json:"title"`
	ImageURL    string   `json:"imageUrl"`
	Year        string   `json:"year"` // free text, not guaranteed numeric
	Description string   `json:"description"`
	SkillLevel  string   `json:"skillLevel"`
	Category    string   `json:"category"`
	Language    string   `json:"language"`
	Tags        []string `json:"tags"`
	IsFeatured  bool     `json:"isFeatured"`
	URL         string   `json:"url"` // relative or absolute link to the detail page
}

type Pagination struct {
	CurrentPage     int  `json:"currentPage"`
	TotalPages      int  `json:"totalPages"`
	HasNextPage     bool `json:"hasNextPage"`
	HasPreviousPage bool `json:"hasPreviousPage"`
}

// NewPagination derives the navigation flags from the current and total page
// counts. Both counts are clamped to at least 1.
func NewPagination(currentPage, totalPages int) Pagination {
	if currentPage < 1 {
		currentPage = 1
	}
	if totalPages < 1 {
		totalPages = 1
	}

	return Pagination{
		CurrentPage:     currentPage,
		TotalPages:      totalPages,
		HasNextPage:     currentPage < totalPages,
		HasPreviousPage: currentPage > 1,
	}
}

type SearchResult struct {
	Query        string     `json:"query"`
	SearchURL    string     `json:"searchUrl,omitempty"`
	Pagination   Pagination `json:"pagination"`
	Books        []Book     `json:"books"`
	TotalResults int        `json:"totalResults"` // books on this page only
}

// NewSearchResult assembles a result for a single page. Books is never nil so
// it always serializes as a JSON array.
func NewSearchResult(query, searchURL string, books []Book, pagination Pagination) *SearchResult {
	if books == nil {
		books = []Book{}
	}

	return &SearchResult{
		Query:        query,
		SearchURL:    searchURL,
		Pagination:   pagination,
		Books:        books,
		TotalResults: len(books),
	}
}

// CrawlResult aggregates the books of several consecutive search pages.
type CrawlResult struct {
	Query        string `json:"query"`
	PagesFetched int    `json:"pagesFetched"`
	Books        []Book `json:"books"`
	TotalResults int    `json:"totalResults"`
}
