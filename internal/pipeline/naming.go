package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"media-toolkit/internal/filesystem"
)

const (
	// SuffixSegmented marks a trimmed artifact.
	SuffixSegmented = "_Segmented"
	// SuffixDubbed marks an artifact carrying synthesized narration.
	SuffixDubbed = "_AIDubbed"

	finalExt     = ".mp4"
	fallbackName = "video"

	// maxTitleBytes leaves room under the 255-byte filename limit for the
	// timestamp, job id, suffixes, counter and extension.
	maxTitleBytes = 200
)

// SanitizeTitle keeps letters, digits, spaces, hyphens and underscores and
// trims trailing spaces. Long titles are cut on a rune boundary at
// maxTitleBytes. An empty result becomes "video".
func SanitizeTitle(title string) string {
	var b strings.Builder
	for _, r := range title {
		if !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' || r == '_') {
			continue
		}
		if b.Len()+utf8.RuneLen(r) > maxTitleBytes {
			break
		}
		b.WriteRune(r)
	}
	clean := strings.TrimRight(b.String(), " ")
	if strings.TrimSpace(clean) == "" {
		return fallbackName
	}
	return clean
}

// candidateNames lists the filenames tried in order for a finished artifact.
func candidateNames(title, ts, jobID string, suffixes []string) []string {
	sfx := strings.Join(suffixes, "")
	short := jobID
	if len(short) > 8 {
		short = short[:8]
	}
	return []string{
		title + sfx + finalExt,
		fmt.Sprintf("%s_%s%s%s", title, ts, sfx, finalExt),
		fmt.Sprintf("%s_%s_%s%s%s", title, ts, short, sfx, finalExt),
	}
}

// reserveName claims the first free candidate name inside dir. The returned
// path exists as an empty placeholder owned by the caller.
func reserveName(dir, title, ts, jobID string, suffixes []string) (string, error) {
	candidates := candidateNames(title, ts, jobID, suffixes)
	for _, name := range candidates {
		path := filepath.Join(dir, name)
		ok, err := filesystem.Reserve(path)
		if err != nil {
			return "", err
		}
		if ok {
			return path, nil
		}
	}

	base := strings.TrimSuffix(candidates[len(candidates)-1], finalExt)
	for n := 2; n < 100; n++ {
		path := filepath.Join(dir, fmt.Sprintf("%s_%d%s", base, n, finalExt))
		ok, err := filesystem.Reserve(path)
		if err != nil {
			return "", err
		}
		if ok {
			return path, nil
		}
	}
	return "", fmt.Errorf("no free filename for %q in %s", title, dir)
}
