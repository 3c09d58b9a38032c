package tools

// CalculatorInput defines input for the calculator tool.
type CalculatorInput struct {
	Expression string `json:"expression" jsonschema_description:"The arithmetic expression to evaluate (e.g., '(2 + 3) * 4')"`
}

// WebSearchInput defines input for the webSearch tool.
type WebSearchInput struct {
	Query      string `json:"query" jsonschema_description:"The search query string"`
	MaxResults int    `json:"maxResults,omitempty" jsonschema_description:"Maximum results to return (1-10, default: 5)"`
}

// WebFetchInput defines input for the webFetch tool.
type WebFetchInput struct {
	URL string `json:"url" jsonschema_description:"The URL to fetch and extract readable text from"`
}
