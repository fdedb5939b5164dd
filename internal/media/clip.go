package media

import "time"

// AudioFit decides how a replacement track shorter than the clip is stretched.
type AudioFit string

const (
	// FitOnce plays the track once and pads the remainder with silence.
	FitOnce AudioFit = "once"
	// FitLoop repeats the track until the clip ends.
	FitLoop AudioFit = "loop"
)

// ParseAudioFit maps a config value to an AudioFit, defaulting to FitOnce.
func ParseAudioFit(s string) AudioFit {
	if AudioFit(s) == FitLoop {
		return FitLoop
	}
	return FitOnce
}

// Clip is a render plan: which window of Source ends up in the output and
// which audio track accompanies it. Nothing is decoded until an Encoder
// renders the plan.
type Clip struct {
	Source   string
	Start    time.Duration
	Duration time.Duration

	// Audio replaces the source audio wholesale when set. A track longer
	// than the clip is cut at the clip's end.
	Audio    string
	AudioFit AudioFit

	trimmed bool
}

// NewClip plans the whole of source.
func NewClip(source string, duration time.Duration) Clip {
	return Clip{Source: source, Duration: duration}
}

// Trimmed reports whether Trim restricted the clip.
func (c Clip) Trimmed() bool {
	return c.trimmed
}

// Dubbed reports whether the source audio is replaced.
func (c Clip) Dubbed() bool {
	return c.Audio != ""
}

// End returns the end of the planned window.
func (c Clip) End() time.Duration {
	return c.Start + c.Duration
}

// WithAudio returns a copy of c whose audio is replaced by track.
func (c Clip) WithAudio(track string, fit AudioFit) Clip {
	c.Audio = track
	c.AudioFit = fit
	return c
}

// Trim restricts c to its first limit when it runs longer than limit and
// reports whether it did. Clips at or under the limit are returned unchanged.
func Trim(c Clip, limit time.Duration) (Clip, bool) {
	if limit <= 0 || c.Duration <= limit {
		return c, false
	}
	c.Duration = limit
	c.trimmed = true
	return c, true
}

// Segments splits [0, total) into consecutive windows of length size,
// stopping after limit windows when limit > 0. The last window may be shorter.
func Segments(source string, total, size time.Duration, limit int) []Clip {
	if total <= 0 || size <= 0 {
		return nil
	}

	var clips []Clip
	for start := time.Duration(0); start < total; start += size {
		if limit > 0 && len(clips) == limit {
			break
		}
		d := size
		if start+d > total {
			d = total - start
		}
		clips = append(clips, Clip{Source: source, Start: start, Duration: d, trimmed: true})
	}
	return clips
}
