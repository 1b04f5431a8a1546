package ai

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// Pre-compiled patterns. Vision models wrap JSON in markdown fences or
// prose often enough that a plain Unmarshal is not reliable.
var (
	codeFenceRegex     = regexp.MustCompile("(?s)`{3}(?:json)?\\s*\n?([\\s\\S]*?)\n?`{3}")
	trailingCommaRegex = regexp.MustCompile(`,(\s*[}\]])`)
	objectRegex        = regexp.MustCompile(`(?s)\{[\s\S]*\}`)
	arrayRegex         = regexp.MustCompile(`(?s)\[[\s\S]*\]`)
)

// ParseJSON decodes a model response into T, falling back through
// progressively more forgiving strategies:
//
//  1. Direct JSON parse
//  2. Strip markdown code fences and retry
//  3. Remove trailing commas and retry
//  4. Extract the first JSON object or array from mixed content
//
// The context string names the call site in error messages and logs.
func ParseJSON[T any](text, context string) (T, error) {
	var zero T

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return zero, fmt.Errorf("%s: empty response", context)
	}

	if result, err := tryParse[T](trimmed); err == nil {
		return result, nil
	} else {
		slog.Debug("Direct JSON parse failed, trying cleanup strategies",
			"context", context,
			"error", err,
			"preview", truncate(text, 100))
	}

	withoutFences := strings.TrimSpace(codeFenceRegex.ReplaceAllString(trimmed, "$1"))
	if withoutFences != trimmed {
		if result, err := tryParse[T](withoutFences); err == nil {
			return result, nil
		}
	}

	cleaned := trailingCommaRegex.ReplaceAllString(withoutFences, "$1")
	if result, err := tryParse[T](cleaned); err == nil {
		return result, nil
	}

	if extracted := extractJSON(cleaned); extracted != "" {
		if result, err := tryParse[T](extracted); err == nil {
			return result, nil
		}
	}

	return zero, fmt.Errorf("%s: unparseable response: %s", context, truncate(text, 200))
}

func tryParse[T any](text string) (T, error) {
	var result T
	err := json.Unmarshal([]byte(text), &result)
	return result, err
}

// extractJSON pulls the first JSON object or array out of mixed prose.
// The leading character decides which pattern to try first so an object
// is not carved out of a surrounding array.
func extractJSON(text string) string {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if match := arrayRegex.FindString(text); match != "" {
			return match
		}
	}
	if match := objectRegex.FindString(text); match != "" {
		return match
	}
	return arrayRegex.FindString(text)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
