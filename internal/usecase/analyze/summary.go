package analyze

import "strings"

// SummaryField extracts the body of one "## <heading>" section from the
// structured analysis markdown. Returns "" when the section is missing or
// the model effectively left it blank ("Not specified", an echoed
// placeholder, and the like).
func SummaryField(summary, heading string) string {
	want := "## " + heading
	inSection := false
	var body []string

	for _, line := range strings.Split(summary, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "## ") {
			if inSection {
				break
			}
			inSection = strings.EqualFold(trimmed, want)
			continue
		}
		if inSection && trimmed != "" {
			body = append(body, trimmed)
		}
	}

	value := strings.Join(body, " ")
	if isNonAnswer(value) {
		return ""
	}
	return value
}

// isNonAnswer reports whether the model effectively left the field blank.
func isNonAnswer(value string) bool {
	if value == "" {
		return true
	}
	if strings.HasPrefix(value, "[") && strings.HasSuffix(value, "]") {
		// 穴埋めテンプレートがそのまま返ってきたケース
		return true
	}
	switch strings.ToLower(strings.TrimRight(value, ".")) {
	case "not specified", "not available", "unknown", "n/a", "none":
		return true
	}
	return false
}
