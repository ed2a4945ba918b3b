package submission

import (
	"regexp"
	"sort"
	"strings"
)

// Submission is a parsed contact-form entry. Country and City are the
// customer's self-reported values and are display-only; routing always uses
// the geolocation-derived country instead.
type Submission struct {
	Name     string
	Email    string
	Message  string
	Country  string
	City     string
	FileURLs []string
}

// Form answers arrive keyed by a question-identifier convention, e.g.
// q3_name, q6_email, q7_howCan. answerKey matches a key against a bare
// field name with or without the q<N>_ prefix.
var answerKey = regexp.MustCompile(`^q\d+_(.+)$`)

// FromFields extracts a Submission from the effective form-field map of a
// webhook payload.
func FromFields(fields map[string]any) Submission {
	sub := Submission{}

	switch name := answer(fields, "name").(type) {
	case map[string]any:
		first, _ := name["first"].(string)
		last, _ := name["last"].(string)
		sub.Name = strings.TrimSpace(first + " " + last)
	case string:
		sub.Name = strings.TrimSpace(name)
	}
	if sub.Name == "" {
		sub.Name = "Unknown"
	}

	sub.Email, _ = answer(fields, "email").(string)
	sub.Email = strings.TrimSpace(sub.Email)

	if msg, ok := answer(fields, "howCan").(string); ok {
		sub.Message = msg
	} else if msg, ok := answer(fields, "message").(string); ok {
		sub.Message = msg
	}

	if country, ok := answer(fields, "country").(map[string]any); ok {
		sub.Country, _ = country["country"].(string)
		sub.City, _ = country["city"].(string)
	}

	if files, ok := answer(fields, "uploadAn").([]any); ok {
		for _, f := range files {
			if u, ok := f.(string); ok && u != "" {
				sub.FileURLs = append(sub.FileURLs, u)
			}
		}
	}

	return sub
}

// answer finds a form answer by field name, accepting both the bare name and
// any q<N>_<name> key. Keys are scanned in sorted order so the result is
// deterministic when a payload carries duplicates.
func answer(fields map[string]any, name string) any {
	if v, ok := fields[name]; ok {
		return v
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		m := answerKey.FindStringSubmatch(k)
		if m != nil && m[1] == name {
			return fields[k]
		}
	}
	return nil
}
