// internal/assistant/tools/web-search/models.go
package websearch

const (
	ModeCompanies = "companies"
	ModeContacts  = "contacts"
)

// Input is the tool argument object supplied by the model.
type Input struct {
	Query       string `json:"query"`
	Mode        string `json:"mode,omitempty"`
	CompanyName string `json:"companyName,omitempty"`
}

// RawResult is a single hit returned by the search provider.
type RawResult struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Text          string  `json:"text"`
	PublishedDate string  `json:"publishedDate,omitempty"`
	Author        string  `json:"author,omitempty"`
	Score         float64 `json:"score,omitempty"`
}

type Contact struct {
	Name  string `json:"name"`
	Title string `json:"title,omitempty"`
	Email string `json:"email,omitempty"`
}

// EnrichedResult is a search hit reduced to lead fields.
type EnrichedResult struct {
	CompanyName string    `json:"companyName"`
	Website     string    `json:"website,omitempty"`
	Industry    string    `json:"industry,omitempty"`
	Size        string    `json:"size,omitempty"`
	Geography   string    `json:"geography,omitempty"`
	FoundedYear int       `json:"foundedYear,omitempty"`
	Funding     string    `json:"funding,omitempty"`
	Revenue     string    `json:"revenue,omitempty"`
	Contacts    []Contact `json:"contacts,omitempty"`
	SourceURL   string    `json:"sourceUrl"`
}

// Output is serialized back to the model as the tool result.
type Output struct {
	Query   string           `json:"query"`
	Results []EnrichedResult `json:"results"`
	Count   int              `json:"count"`
}
