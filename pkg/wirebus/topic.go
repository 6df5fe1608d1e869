package wirebus

import "strings"

// MaxTopicLength is the maximum allowed topic length in bytes.
const MaxTopicLength = 256

// MatchTopic reports whether topic matches pattern.
//
// Three pattern forms are supported:
//   - "*" matches every topic
//   - "prefix.*" matches any topic under prefix (e.g. "orders.*" matches
//     "orders.created" but not "orders" itself)
//   - anything else is an exact string match
//
// There are deliberately no multi-level wildcards and no regex: matching is
// O(1) string operations on both the publish and receive paths.
func MatchTopic(topic, pattern string) bool {
	if pattern == "*" {
		return true
	}
	if prefix, ok := strings.CutSuffix(pattern, ".*"); ok {
		return strings.HasPrefix(topic, prefix) &&
			strings.HasPrefix(topic[len(prefix):], ".")
	}
	return topic == pattern
}

// MatchAnyTopic reports whether topic matches at least one pattern.
// An empty pattern list matches everything.
func MatchAnyTopic(topic string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, p := range patterns {
		if MatchTopic(topic, p) {
			return true
		}
	}
	return false
}

// ValidateTopic checks that topic is non-empty, at most MaxTopicLength bytes,
// and contains only alphanumerics, dots, underscores, and hyphens.
func ValidateTopic(topic string) error {
	if topic == "" {
		return newError(KindInvalidTopic, "topic cannot be empty")
	}
	if len(topic) > MaxTopicLength {
		return newError(KindInvalidTopic, "topic exceeds %d chars", MaxTopicLength)
	}
	for i := 0; i < len(topic); i++ {
		c := topic[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '.' || c == '_' || c == '-':
		default:
			return newError(KindInvalidTopic,
				"topic must contain only alphanumeric, dot, underscore, or hyphen")
		}
	}
	return nil
}
