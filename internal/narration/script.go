package narration

import (
	"fmt"
	"strings"
	"unicode"
)

// DemoText is spoken by the standalone dubber when no text is given.
const DemoText = "This is a demonstration of neural dubbing technology. " +
	"In a production system, this would use advanced AI models " +
	"to generate realistic voice dubbing."

const defaultUploader = "Unknown Creator"

// Script builds the narration read over a dubbed video.
func Script(title, uploader string) string {
	uploader = strings.TrimSpace(uploader)
	if uploader == "" {
		uploader = defaultUploader
	}
	return fmt.Sprintf("Welcome. You are watching %s, created by %s. "+
		"This video has been processed using the Neural Dubbing Engine. "+
		"The original audio has been replaced with this AI Voice. "+
		"Enjoy the visual experience.", speakable(title), uploader)
}

// speakable keeps letters, digits, spaces and basic punctuation so the TTS
// engine does not read out symbols and emoji.
func speakable(title string) string {
	var b strings.Builder
	for _, r := range title {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune(" .,!?'", r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Chunks splits text into pieces of at most limit runes, breaking on
// whitespace where possible. Words longer than limit are cut.
func Chunks(text string, limit int) []string {
	var chunks []string
	var cur []rune

	flush := func() {
		if s := strings.TrimSpace(string(cur)); s != "" {
			chunks = append(chunks, s)
		}
		cur = cur[:0]
	}

	for _, word := range strings.Fields(text) {
		w := []rune(word)
		for len(w) > limit {
			flush()
			chunks = append(chunks, string(w[:limit]))
			w = w[limit:]
		}

		need := len(w)
		if len(cur) > 0 {
			need++
		}
		if len(cur)+need > limit {
			flush()
		}
		if len(cur) > 0 {
			cur = append(cur, ' ')
		}
		cur = append(cur, w...)
	}
	flush()

	return chunks
}
