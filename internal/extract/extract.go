// Package extract pulls structured content out of noisy model completions:
// tagged blocks, JSON objects, and MCQ components.
package extract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/solet-asu/MCQ-generation/internal/domain"
)

var (
	jsonFenceRe = regexp.MustCompile("(?is)```json\\s*(.*?)\\s*```")
	anyFenceRe  = regexp.MustCompile("(?s)```\\s*(.*?)\\s*```")
)

// Tagged returns the trimmed content between the first matching open/close
// tag pair. Matching is case-insensitive and tolerates attributes on the
// opening tag. Literal \n and \t escape sequences are unescaped to real
// whitespace. A missing tag is an expected, recoverable condition: ok is
// false and no error is raised.
func Tagged(text, tag string) (content string, ok bool) {
	if text == "" || tag == "" {
		return "", false
	}
	pattern := fmt.Sprintf(`(?is)<%s(?:\s[^>]*)?>(.*?)</%s\s*>`, regexp.QuoteMeta(tag), regexp.QuoteMeta(tag))
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", false
	}
	m := re.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	content = strings.TrimSpace(m[1])
	content = strings.ReplaceAll(content, `\n`, "\n")
	content = strings.ReplaceAll(content, `\t`, "\t")
	return content, true
}

// JSONObject locates the first syntactically complete JSON object in
// arbitrary text. Order: fenced blocks labeled json, then any fenced block,
// then a scan from every '{' or '[' occurrence in the raw text, returning the
// first value that decodes to an object. Exhaustion is a typed
// NO_JSON_OBJECT failure, fatal to the caller's current step.
func JSONObject(text string) (map[string]any, error) {
	// Strip BOM / zero-width space that sometimes appear in model output
	text = strings.TrimPrefix(text, "\uFEFF")
	text = strings.ReplaceAll(text, "\u200B", "")

	for _, m := range jsonFenceRe.FindAllStringSubmatch(text, -1) {
		if obj := tryLoadObject(strings.TrimSpace(m[1])); obj != nil {
			return obj, nil
		}
	}
	for _, m := range anyFenceRe.FindAllStringSubmatch(text, -1) {
		if obj := tryLoadObject(strings.TrimSpace(m[1])); obj != nil {
			return obj, nil
		}
	}

	// Scan raw text, decoding from each '{' or '['; keep searching until an
	// object is found. Non-object values are skipped past, not retried.
	for i := 0; i < len(text); {
		start := strings.IndexAny(text[i:], "{[")
		if start < 0 {
			break
		}
		start += i
		dec := json.NewDecoder(strings.NewReader(text[start:]))
		var value any
		if err := dec.Decode(&value); err != nil {
			i = start + 1
			continue
		}
		if obj, isObj := value.(map[string]any); isObj {
			return obj, nil
		}
		i = start + int(dec.InputOffset())
	}

	return nil, domain.NewNoJSONObjectError(nil)
}

func tryLoadObject(snippet string) map[string]any {
	var value any
	if err := json.Unmarshal([]byte(snippet), &value); err != nil {
		return nil
	}
	obj, isObj := value.(map[string]any)
	if !isObj {
		return nil
	}
	return obj
}

// CountWords returns the whitespace-delimited word count of s.
func CountWords(s string) int {
	return len(strings.Fields(s))
}
