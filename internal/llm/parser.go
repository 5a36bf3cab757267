package llm

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// parseMatchIndex extracts the judge's verdict from a response of the form
// "MATCH: <n>" or "MATCH: NONE". Providers occasionally wrap or decorate the
// verdict, so parsing is lenient: the first MATCH line wins, and a bare
// number or NONE is also accepted.
func parseMatchIndex(content string) (int, error) {
	content = strings.TrimSpace(cleanMarkdownWrapper(content))

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		value := line
		if idx := strings.Index(strings.ToUpper(line), "MATCH:"); idx >= 0 {
			value = strings.TrimSpace(line[idx+len("MATCH:"):])
		}

		if strings.EqualFold(value, "NONE") {
			return -1, nil
		}

		if n, err := strconv.Atoi(value); err == nil {
			if n < 0 {
				return -1, nil
			}
			return n, nil
		}
	}

	return 0, fmt.Errorf("no match verdict found in response: %q", content)
}

// parseGeneratedQuestions parses a JSON array of generated questions,
// tolerating markdown code fences around the payload.
func parseGeneratedQuestions(content string) ([]GeneratedQuestion, error) {
	content = strings.TrimSpace(cleanMarkdownWrapper(content))

	// Some providers wrap the array in an object.
	if strings.HasPrefix(content, "{") {
		var wrapped struct {
			Questions []GeneratedQuestion `json:"questions"`
		}
		if err := json.Unmarshal([]byte(content), &wrapped); err != nil {
			return nil, fmt.Errorf("failed to parse wrapped questions: %w", err)
		}
		return wrapped.Questions, nil
	}

	var questions []GeneratedQuestion
	if err := json.Unmarshal([]byte(content), &questions); err != nil {
		return nil, fmt.Errorf("failed to parse questions: %w", err)
	}

	return questions, nil
}

// cleanMarkdownWrapper strips a ```json ... ``` fence if the provider added one.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```") {
		if idx := strings.Index(content, "\n"); idx >= 0 {
			content = content[idx+1:]
		}
		if idx := strings.LastIndex(content, "```"); idx >= 0 {
			content = content[:idx]
		}
	}

	return strings.TrimSpace(content)
}
