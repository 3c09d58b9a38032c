package document

import "regexp"

var (
	urlRE   = regexp.MustCompile(`https?://[\w\-._~:/?#@!$&'()*+,;=%]+`)
	emailRE = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	dateRE  = regexp.MustCompile(`\b(\d{4}[-/.]\d{1,2}[-/.]\d{1,2})\b`)
)

// Entities holds the URLs, email addresses, and dates found in a
// document, deduplicated in first-seen order.
type Entities struct {
	URLs   []string `json:"urls"`
	Emails []string `json:"emails"`
	Dates  []string `json:"dates"`
}

// ExtractEntities scans text for URLs, emails, and ISO-style dates.
func ExtractEntities(text string) Entities {
	return Entities{
		URLs:   dedupe(urlRE.FindAllString(text, -1)),
		Emails: dedupe(emailRE.FindAllString(text, -1)),
		Dates:  dedupe(dateRE.FindAllString(text, -1)),
	}
}

func dedupe(matches []string) []string {
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}
