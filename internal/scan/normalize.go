package scan

import "strings"

var articles = map[string]bool{
	"the": true,
	"a":   true,
	"an":  true,
}

// Normalize turns a raw speech transcript into a matchable target label:
// lowercase, trailing punctuation removed, leading articles dropped, naive
// plural suffix trimmed. Pure and idempotent:
// Normalize(Normalize(s)) == Normalize(s).
func Normalize(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimRight(s, ".,!?;:'\"")

	fields := strings.Fields(s)
	for len(fields) > 0 && articles[fields[0]] {
		fields = fields[1:]
	}
	if len(fields) == 0 {
		return ""
	}

	fields[len(fields)-1] = singularize(fields[len(fields)-1])
	return strings.Join(fields, " ")
}

// singularize trims a naive plural "s". "glass" and short words are left alone.
func singularize(word string) string {
	if len(word) > 2 && strings.HasSuffix(word, "s") && !strings.HasSuffix(word, "ss") {
		return word[:len(word)-1]
	}
	return word
}
