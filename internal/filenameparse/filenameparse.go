// Package filenameparse decomposes and reassembles Psych-DS filenames of
// the form "k1-v1_k2-v2_..._suffix.ext".
package filenameparse

import "strings"

// NoKeyword is the sentinel value assigned to a keyword segment that
// carries no "-value" part.
const NoKeyword = "NOKEYWORD"

// Elements is the decomposition of one filename.
type Elements struct {
	// Keywords maps each keyword key to its value, in the order the
	// keywords appeared in the filename.
	Keywords []KeyValue
	Suffix   string
	Extension string
}

// KeyValue is one keyword/value pair, preserving filename order.
type KeyValue struct {
	Key   string
	Value string
}

// Value looks up a keyword by name.
func (e Elements) Value(key string) (string, bool) {
	for _, kv := range e.Keywords {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}

// Parse splits name into its keyword map, suffix, and extension.
//
// The final "_"-delimited segment holds "suffix.ext": the extension is
// everything from the last dot in that segment (empty if the segment has
// no dot). Every earlier segment is a keyword: "key-value" splits on the
// first hyphen; a segment with no hyphen becomes a keyword with value
// NoKeyword.
func Parse(name string) Elements {
	segments := strings.Split(name, "_")
	last := segments[len(segments)-1]
	segments = segments[:len(segments)-1]

	suffix, extension := splitSuffixExtension(last)

	els := Elements{Suffix: suffix, Extension: extension}
	for _, seg := range segments {
		if seg == "" {
			continue
		}
		if idx := strings.Index(seg, "-"); idx >= 0 {
			els.Keywords = append(els.Keywords, KeyValue{Key: seg[:idx], Value: seg[idx+1:]})
		} else {
			els.Keywords = append(els.Keywords, KeyValue{Key: seg, Value: NoKeyword})
		}
	}
	return els
}

func splitSuffixExtension(segment string) (suffix, extension string) {
	idx := strings.LastIndex(segment, ".")
	if idx < 0 {
		return segment, ""
	}
	return segment[:idx], segment[idx:]
}

// Assemble reassembles an Elements back into a filename, the inverse of
// Parse. A keyword whose value is NoKeyword is emitted bare (no hyphen),
// exactly the form Parse would read back as NoKeyword.
func Assemble(els Elements) string {
	var parts []string
	for _, kv := range els.Keywords {
		if kv.Value == NoKeyword {
			parts = append(parts, kv.Key)
		} else {
			parts = append(parts, kv.Key+"-"+kv.Value)
		}
	}
	parts = append(parts, els.Suffix+els.Extension)
	return strings.Join(parts, "_")
}

// Stem returns the filename without its extension: every "_"-joined
// segment up to and including the suffix.
func Stem(name string) string {
	_, ext := splitSuffixExtension(name)
	if ext == "" {
		return name
	}
	return strings.TrimSuffix(name, ext)
}
