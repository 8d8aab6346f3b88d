// Package strings holds small helpers for list-valued configuration.
package strings

import (
	"strings"
)

// SplitAndDedupe flattens comma-separated entries, trims each item and drops
// blanks and repeats. First occurrence wins the order.
//
//	SplitAndDedupe([]string{"kafka-1:9092, kafka-2:9092", "kafka-1:9092", " "})
//	// []string{"kafka-1:9092", "kafka-2:9092"}
func SplitAndDedupe(values []string) []string {
	if len(values) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(values))
	var result []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			item := strings.TrimSpace(part)
			if item == "" {
				continue
			}
			if _, ok := seen[item]; ok {
				continue
			}
			seen[item] = struct{}{}
			result = append(result, item)
		}
	}
	return result
}
