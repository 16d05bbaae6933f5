package knowledge

import "strings"

// Chunk splits text into passages of at most limit runes. Paragraphs are
// kept together where they fit; longer paragraphs are cut at sentence ends
// when possible.
func Chunk(text string, limit int) []string {
	if limit < 1 {
		limit = 800
	}

	var chunks []string
	var current []rune
	flush := func() {
		if s := strings.TrimSpace(string(current)); s != "" {
			chunks = append(chunks, s)
		}
		current = current[:0]
	}

	for _, para := range strings.Split(text, "\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		runes := []rune(para)

		if len(current) > 0 && len(current)+1+len(runes) > limit {
			flush()
		}
		for len(runes) > limit {
			cut := sentenceCut(runes[:limit])
			current = append(current, runes[:cut]...)
			flush()
			runes = runes[cut:]
		}
		if len(runes) == 0 {
			continue
		}
		if len(current) > 0 {
			current = append(current, '\n')
		}
		current = append(current, runes...)
	}
	flush()

	return chunks
}

// sentenceCut returns the index just past the last sentence terminator in
// the back half of window, or len(window) if there is none.
func sentenceCut(window []rune) int {
	for i := len(window) - 1; i >= len(window)/2; i-- {
		switch window[i] {
		case '。', '！', '？', '；', '.', '!', '?', ';':
			return i + 1
		}
	}
	return len(window)
}
