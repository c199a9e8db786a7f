package ai

import (
	"fmt"
	"unicode/utf8"

	"github.com/saint0x/ggrowth/pkg/analysis"
)

// maxFileChars bounds how much of one file is sent for analysis.
const maxFileChars = 12000

func analysisPrompt(site SiteContext, path, content string) string {
	if len(content) > maxFileChars {
		content = truncate(content, maxFileChars) + "\n/* ... truncated ... */"
	}

	return fmt.Sprintf(`You are reviewing the source of %s, a website whose purpose is: %s.
Its audience is: %s.

Analyze the file below and suggest concrete improvements.
Respond with a single JSON object with exactly these keys, each an array of short strings:
"seo", "ux", "performance", "accessibility", "security", "missingFeatures".
Use empty arrays where you have nothing to suggest. Do not add any other keys or text.

File: %s
---
%s
---`, site.Name, site.Purpose, site.Audience, path, content)
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func planPrompt(site SiteContext, item analysis.Item) string {
	return fmt.Sprintf(`You are a senior engineer improving %s (%s).
Platform: %s
Stack: %s

Implement this %s improvement: %s

Respond with a single JSON object of this shape and nothing else:
{
  "title": "short pull request title",
  "description": "what changes and why",
  "type": "%s",
  "priority": "low|medium|high|critical",
  "estimatedImpact": "expected effect",
  "files": ["relative/path"],
  "changes": [
    {"filepath": "relative/path", "action": "create|modify|delete", "content": "complete new file content", "reason": "why"}
  ]
}
Every create or modify change must contain the complete file content, not a diff.`,
		site.Name, site.Purpose, site.Platform, site.Stack, item.Type, item.Item, item.Type)
}
