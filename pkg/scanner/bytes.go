// Package scanner extracts fields from small JSON-shaped byte slices
// without allocating. It handles the single-line control messages used
// on the admin socket, not general JSON.
package scanner

// ScanUintField returns the unsigned integer value following key and a
// colon, skipping whitespace. The key must include its quotes.
func ScanUintField(payload []byte, key []byte) (uint64, bool) {
	i, ok := seekValue(payload, key)
	if !ok {
		return 0, false
	}
	if payload[i] < '0' || payload[i] > '9' {
		return 0, false
	}
	var v uint64
	for i < len(payload) && payload[i] >= '0' && payload[i] <= '9' {
		v = v*10 + uint64(payload[i]-'0')
		i++
	}
	return v, true
}

// ScanIntField returns the signed integer value following key and a
// colon. A single leading minus is accepted.
func ScanIntField(payload []byte, key []byte) (int64, bool) {
	i, ok := seekValue(payload, key)
	if !ok {
		return 0, false
	}
	neg := false
	if payload[i] == '-' {
		neg = true
		i++
		if i >= len(payload) {
			return 0, false
		}
	}
	if payload[i] < '0' || payload[i] > '9' {
		return 0, false
	}
	var v int64
	for i < len(payload) && payload[i] >= '0' && payload[i] <= '9' {
		v = v*10 + int64(payload[i]-'0')
		i++
	}
	if neg {
		v = -v
	}
	return v, true
}

// ScanStringField returns the quoted string value following key and a
// colon. The returned slice aliases payload.
func ScanStringField(payload []byte, key []byte) ([]byte, bool) {
	i, ok := seekValue(payload, key)
	if !ok {
		return nil, false
	}
	if payload[i] != '"' {
		return nil, false
	}
	i++
	start := i
	for i < len(payload) && payload[i] != '"' {
		i++
	}
	if i >= len(payload) {
		return nil, false
	}
	return payload[start:i], true
}

// seekValue positions the cursor at the first non-space byte after the
// colon that follows key.
func seekValue(payload []byte, key []byte) (int, bool) {
	idx := IndexOf(payload, key)
	if idx < 0 {
		return 0, false
	}
	i := idx + len(key)
	for i < len(payload) && payload[i] != ':' {
		i++
	}
	if i >= len(payload) {
		return 0, false
	}
	i++
	for i < len(payload) && IsSpace(payload[i]) {
		i++
	}
	if i >= len(payload) {
		return 0, false
	}
	return i, true
}

// IndexOf returns the offset of the first occurrence of key in payload,
// or -1 when absent.
func IndexOf(payload []byte, key []byte) int {
	if len(key) == 0 || len(payload) < len(key) {
		return -1
	}
outer:
	for i := 0; i <= len(payload)-len(key); i++ {
		for j := 0; j < len(key); j++ {
			if payload[i+j] != key[j] {
				continue outer
			}
		}
		return i
	}
	return -1
}

// IsSpace reports whether b is a JSON whitespace byte.
func IsSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// BytesContains reports whether needle occurs in haystack.
func BytesContains(haystack []byte, needle []byte) bool {
	if len(needle) == 0 {
		return true
	}
	if len(haystack) < len(needle) {
		return false
	}
outer:
	for i := 0; i <= len(haystack)-len(needle); i++ {
		for j := range needle {
			if haystack[i+j] != needle[j] {
				continue outer
			}
		}
		return true
	}
	return false
}
