package analysis

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	numberedPrefix = regexp.MustCompile(`^\d+[.)]?\s*`)
	bulletPrefix   = regexp.MustCompile(`^[•\-]\s*`)
	topicHeader    = regexp.MustCompile(`\*\*Topic\s+\d+:\s*(.+?)\*\*`)
)

// ParseList extracts items from a numbered or bulleted model reply, one
// item per matching line. max <= 0 means no cap.
func ParseList(text string, max int) []string {
	var items []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		first := rune(line[0])
		if !unicode.IsDigit(first) && !strings.HasPrefix(line, "•") && !strings.HasPrefix(line, "-") {
			continue
		}
		item := numberedPrefix.ReplaceAllString(line, "")
		item = bulletPrefix.ReplaceAllString(item, "")
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		items = append(items, item)
		if max > 0 && len(items) == max {
			break
		}
	}
	return items
}

// ParseTopics extracts topic names from a model reply. It prefers the
// "**Topic N: Name**" headers the topics prompt asks for, then falls
// back to list items, then to a comma-separated line.
func ParseTopics(text string, max int) []string {
	if max <= 0 {
		max = MaxTopics
	}

	var topics []string
	for _, m := range topicHeader.FindAllStringSubmatch(text, -1) {
		name := strings.TrimSpace(m[1])
		if name != "" {
			topics = append(topics, name)
		}
		if len(topics) == max {
			return topics
		}
	}
	if len(topics) > 0 {
		return topics
	}

	if items := ParseList(text, max); len(items) > 0 {
		return items
	}

	// Single-line "a, b, c" replies.
	for _, part := range strings.Split(text, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		topics = append(topics, part)
		if len(topics) == max {
			break
		}
	}
	if len(topics) == 1 && topics[0] == strings.TrimSpace(text) && strings.Contains(text, "\n") {
		// Not a comma list at all; don't pretend a whole paragraph is one topic.
		return nil
	}
	return topics
}
