package utils

import "encoding/json"

// MarshalList converts a slice to a JSON string (safe for a text DB column)
func MarshalList[T any](items []T) string {
	if len(items) == 0 {
		return "[]"
	}
	data, _ := json.Marshal(items)
	return string(data)
}

// UnmarshalList converts a DB text column back to a slice
func UnmarshalList[T any](s string) []T {
	if s == "" || s == "[]" {
		return []T{}
	}
	var items []T
	if err := json.Unmarshal([]byte(s), &items); err != nil {
		return []T{}
	}
	return items
}
