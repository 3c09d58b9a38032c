package tools

import (
	"context"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// Tool name constants. Single source of truth to avoid duplication.
const (
	CalculatorName = "calculator"
	WebSearchName  = "webSearch"
	WebFetchName   = "webFetch"
)

var toolNames = []string{
	CalculatorName,
	WebSearchName,
	WebFetchName,
}

// ToolNames returns all registered tool names.
func ToolNames() []string {
	return toolNames
}

// Register registers all tools with Genkit using the given handler.
// Genkit closures are thin adapters; the business logic lives in the
// Handler methods where it is independently testable.
func Register(g *genkit.Genkit, h *Handler) {
	genkit.DefineTool(g, CalculatorName,
		"Evaluate an arithmetic expression. "+
			"Supports + - * / % ^, parentheses, and decimal numbers. "+
			"Returns: the numeric result. "+
			"Use this for ANY arithmetic instead of computing in your head.",
		h.Calculator)

	genkit.DefineTool(g, WebSearchName,
		"Search the web for current information. "+
			"Returns: result titles, URLs, and content snippets. "+
			"Use this for: recent events, facts you are unsure about, or anything time-sensitive.",
		h.WebSearch)

	genkit.DefineTool(g, WebFetchName,
		"Fetch a URL and extract its readable text content. "+
			"Returns: page title and main text (boilerplate removed), truncated to a size limit. "+
			"Security: private IPs, localhost, and cloud metadata endpoints are blocked.",
		h.WebFetch)
}

// Registry manages local tool lookup.
// Stateless and safe for concurrent use; performs fresh lookups on each
// call so the returned refs are always current.
type Registry struct {
	g *genkit.Genkit
}

// NewRegistry creates a new tool registry.
func NewRegistry(g *genkit.Genkit) *Registry {
	return &Registry{g: g}
}

// All returns all registered tools.
func (r *Registry) All(ctx context.Context) []ai.ToolRef {
	refs := make([]ai.ToolRef, 0, len(toolNames))
	for _, name := range toolNames {
		if tool := genkit.LookupTool(r.g, name); tool != nil {
			refs = append(refs, tool)
		}
	}
	return refs
}

// Count returns the number of registered tools.
func (r *Registry) Count(ctx context.Context) int {
	return len(r.All(ctx))
}
