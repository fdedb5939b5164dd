package narration

import (
	"context"
	"fmt"
	"path/filepath"

	"media-toolkit/internal/media"
)

// Narrator replaces a clip's audio with synthesized narration.
type Narrator struct {
	synth Synthesizer
	voice Voice
	fit   media.AudioFit
}

// NewNarrator creates a narrator speaking with voice. fit decides what
// happens when the narration is shorter than the clip.
func NewNarrator(synth Synthesizer, voice Voice, fit media.AudioFit) *Narrator {
	if voice.Lang == "" {
		voice = DefaultVoice
	}
	return &Narrator{synth: synth, voice: voice, fit: fit}
}

// Fit returns the configured fitting mode.
func (n *Narrator) Fit() media.AudioFit {
	return n.fit
}

// Dub synthesizes text into workDir and returns clip with its audio replaced.
// Narration longer than the clip is cut when the clip is rendered.
func (n *Narrator) Dub(ctx context.Context, clip media.Clip, text, workDir string) (media.Clip, error) {
	track := filepath.Join(workDir, "narration.mp3")
	if err := n.synth.Synthesize(ctx, text, n.voice, track); err != nil {
		return clip, fmt.Errorf("narration: %w", err)
	}
	return clip.WithAudio(track, n.fit), nil
}
