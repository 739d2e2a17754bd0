package analysis

import (
	"strings"

	"github.com/kalambet/ttyv/internal/store"
)

// Topical bucket names.
const (
	bucketTechnology = "Technology"
	bucketEducation  = "Education"
	bucketBusiness   = "Business"
	bucketGeneral    = "General Content"
	bucketAll        = "all_videos"
)

// GroupMembers buckets member summaries for trend analysis. The second
// return value lists group names in first-appearance order so callers
// can iterate deterministically.
//
// temporal keeps a single group: oEmbed metadata carries no upload
// dates, so there is nothing to bucket by. topical routes on topic
// keywords, channel on the author name.
func GroupMembers(members []store.MemberSummary, method string) (map[string][]store.MemberSummary, []string) {
	groups := make(map[string][]store.MemberSummary)
	var order []string

	add := func(key string, m store.MemberSummary) {
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], m)
	}

	for _, m := range members {
		switch method {
		case GroupingTopical:
			add(topicalBucket(m), m)
		case GroupingChannel:
			add(orUnknown(m.Author, "Unknown Channel"), m)
		default: // temporal and anything unrecognized
			add(bucketAll, m)
		}
	}

	return groups, order
}

func topicalBucket(m store.MemberSummary) string {
	topics := strings.ToLower(strings.Join(m.Topics, " "))
	switch {
	case strings.Contains(topics, "technology") || strings.Contains(topics, "tech"):
		return bucketTechnology
	case strings.Contains(topics, "education") || strings.Contains(topics, "learning"):
		return bucketEducation
	case strings.Contains(topics, "business") || strings.Contains(topics, "marketing"):
		return bucketBusiness
	default:
		return bucketGeneral
	}
}

// Channels returns the distinct channel names across members, in
// first-appearance order.
func Channels(members []store.MemberSummary) []string {
	seen := make(map[string]bool)
	var channels []string
	for _, m := range members {
		name := orUnknown(m.Author, "Unknown")
		if !seen[name] {
			seen[name] = true
			channels = append(channels, name)
		}
	}
	return channels
}

// TopicsCovered returns the distinct topics across members, in
// first-appearance order.
func TopicsCovered(members []store.MemberSummary) []string {
	seen := make(map[string]bool)
	var topics []string
	for _, m := range members {
		for _, t := range m.Topics {
			t = strings.TrimSpace(t)
			if t == "" || seen[t] {
				continue
			}
			seen[t] = true
			topics = append(topics, t)
		}
	}
	return topics
}
