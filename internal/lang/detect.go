// Package lang provides language detection and the tokenizer registry that
// maps language codes to the store's lexical-analysis configurations.
package lang

import "strings"

// DetectLanguage classifies text into a two-letter ISO-639-1 code by
// counting characters per script range. Ties resolve Chinese > Japanese >
// Korean > Latin. Blank input defaults to English.
func DetectLanguage(text string) string {
	sample := strings.TrimSpace(text)
	if sample == "" {
		return "en"
	}

	var chinese, japanese, korean, latin int
	for _, r := range sample {
		switch {
		case r >= 0x4E00 && r <= 0x9FFF:
			chinese++
		case (r >= 0x3040 && r <= 0x309F) || (r >= 0x30A0 && r <= 0x30FF):
			japanese++
		case r >= 0xAC00 && r <= 0xD7AF:
			korean++
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			latin++
		}
	}

	// Highest count wins; the comparison order encodes the tie-break.
	best, code := chinese, "zh"
	if japanese > best {
		best, code = japanese, "ja"
	}
	if korean > best {
		best, code = korean, "ko"
	}
	if latin > best {
		best, code = latin, "en"
	}
	if best == 0 {
		return "en"
	}
	return code
}
