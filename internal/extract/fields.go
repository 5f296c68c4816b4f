package extract

import (
	"regexp"
	"strings"
)

// Field patterns for the regex fallback when a requirements response
// carries no parseable JSON. Each field tries its patterns in order.
var fieldPatterns = []struct {
	field     string
	list      bool
	multiline bool
	patterns  []*regexp.Regexp
}{
	{
		field: "project_name",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`[Pp]roject\s*[Nn]ame[:\s]+["']?([^"'\n]+)["']?`),
			regexp.MustCompile(`[Nn]ame[:\s]+["']?([^"'\n]+)["']?`),
		},
	},
	{
		field: "languages",
		list:  true,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`[Ll]anguages?[:\s]+([^\n]+)`),
			regexp.MustCompile(`[Pp]rogramming\s+[Ll]anguages?[:\s]+([^\n]+)`),
		},
	},
	{
		field: "frameworks",
		list:  true,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`[Ff]rameworks?[:\s]+([^\n]+)`),
		},
	},
	{
		field:     "requirements",
		multiline: true,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`[Rr]equirements?[:\s]+([^\n]+)`),
		},
	},
	{
		field: "apis",
		list:  true,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`[Aa][Pp][Ii]s?[:\s]+([^\n]+)`),
			regexp.MustCompile(`[Ee]xternal\s+[Ss]ervices?[:\s]+([^\n]+)`),
		},
	},
}

var listSplitPattern = regexp.MustCompile(`[,;]\s*`)

// InterviewData extracts requirements data from an interview response.
// It tries the JSON chain first and falls back to per-field regex scanning
// of the prose, so a partially structured answer still yields something.
func (e *Extractor) InterviewData(response string) map[string]any {
	if result, err := e.Object(response); err == nil {
		return result
	}
	return FieldsViaRegex(response)
}

// FieldsViaRegex scans prose for labeled requirement fields
// ("Project Name: ...", "Languages: go, python"). List fields split on
// commas and semicolons. Missing fields are simply absent from the result.
func FieldsViaRegex(text string) map[string]any {
	result := make(map[string]any)

	for _, fp := range fieldPatterns {
		for _, p := range fp.patterns {
			loc := p.FindStringSubmatchIndex(text)
			if loc == nil {
				continue
			}
			value := text[loc[2]:loc[3]]
			if fp.multiline {
				value += continuationLines(text[loc[1]:])
			}
			value = strings.TrimSpace(value)
			if fp.list {
				var items []string
				for _, item := range listSplitPattern.Split(value, -1) {
					if item = strings.TrimSpace(item); item != "" {
						items = append(items, item)
					}
				}
				result[fp.field] = items
			} else {
				result[fp.field] = value
			}
			break
		}
	}

	return result
}

// labelLinePattern matches lines that start their own labeled field, which
// ends a multiline value.
var labelLinePattern = regexp.MustCompile(`^\w+:`)

// continuationLines collects the lines following a multiline field match
// until a blank line or the next labeled field.
func continuationLines(rest string) string {
	var b strings.Builder
	for i, line := range strings.Split(rest, "\n") {
		if i == 0 {
			// The match consumes its whole line, so anything before the
			// first newline belongs to it.
			continue
		}
		if strings.TrimSpace(line) == "" || labelLinePattern.MatchString(line) {
			break
		}
		b.WriteString("\n")
		b.WriteString(line)
	}
	return b.String()
}
