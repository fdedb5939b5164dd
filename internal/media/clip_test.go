package media

import (
	"testing"
	"time"
)

func TestTrim(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		duration    time.Duration
		wantApplied bool
		wantDur     time.Duration
	}{
		{"Longer than limit", 3 * time.Minute, true, 30 * time.Second},
		{"Exactly limit", 30 * time.Second, false, 30 * time.Second},
		{"Shorter than limit", 12 * time.Second, false, 12 * time.Second},
		{"Just over limit", 30*time.Second + time.Millisecond, true, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clip := NewClip("in.mp4", tt.duration)
			got, applied := Trim(clip, 30*time.Second)

			if applied != tt.wantApplied {
				t.Errorf("applied = %v, want %v", applied, tt.wantApplied)
			}
			if got.Trimmed() != tt.wantApplied {
				t.Errorf("Trimmed() = %v, want %v", got.Trimmed(), tt.wantApplied)
			}
			if got.Duration != tt.wantDur {
				t.Errorf("Duration = %v, want %v", got.Duration, tt.wantDur)
			}
			if got.Start != 0 {
				t.Errorf("Start = %v, want 0", got.Start)
			}
		})
	}
}

func TestTrimDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	clip := NewClip("in.mp4", time.Minute)
	_, _ = Trim(clip, 30*time.Second)

	if clip.Duration != time.Minute || clip.Trimmed() {
		t.Errorf("input clip modified: %+v", clip)
	}
}

func TestWithAudio(t *testing.T) {
	t.Parallel()

	clip := NewClip("in.mp4", time.Minute)
	dubbed := clip.WithAudio("voice.mp3", FitLoop)

	if !dubbed.Dubbed() || dubbed.Audio != "voice.mp3" || dubbed.AudioFit != FitLoop {
		t.Errorf("WithAudio() = %+v", dubbed)
	}
	if clip.Dubbed() {
		t.Error("original clip should keep its audio")
	}
}

func TestParseAudioFit(t *testing.T) {
	t.Parallel()

	if ParseAudioFit("loop") != FitLoop {
		t.Error("loop should parse to FitLoop")
	}
	for _, s := range []string{"", "once", "bogus"} {
		if ParseAudioFit(s) != FitOnce {
			t.Errorf("ParseAudioFit(%q) should default to FitOnce", s)
		}
	}
}

func TestSegments(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		total     time.Duration
		size      time.Duration
		max       int
		wantCount int
		wantLast  time.Duration
	}{
		{"Even split", 90 * time.Second, 30 * time.Second, 5, 3, 30 * time.Second},
		{"Short tail", 70 * time.Second, 30 * time.Second, 5, 3, 10 * time.Second},
		{"Capped", 10 * time.Minute, 30 * time.Second, 5, 5, 30 * time.Second},
		{"Shorter than one segment", 12 * time.Second, 30 * time.Second, 5, 1, 12 * time.Second},
		{"No cap", 10 * time.Minute, time.Minute, 0, 10, time.Minute},
		{"Zero total", 0, 30 * time.Second, 5, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clips := Segments("in.mp4", tt.total, tt.size, tt.max)
			if len(clips) != tt.wantCount {
				t.Fatalf("len = %d, want %d", len(clips), tt.wantCount)
			}
			if tt.wantCount == 0 {
				return
			}
			for i, c := range clips {
				if c.Start != time.Duration(i)*tt.size {
					t.Errorf("clip %d Start = %v", i, c.Start)
				}
			}
			if last := clips[len(clips)-1]; last.Duration != tt.wantLast {
				t.Errorf("last Duration = %v, want %v", last.Duration, tt.wantLast)
			}
		})
	}
}

func TestGetFileType(t *testing.T) {
	t.Parallel()

	tests := map[string]FileType{
		"clip.mp4":     FileTypeVideo,
		"CLIP.MOV":     FileTypeVideo,
		"voice.mp3":    FileTypeAudio,
		"track.WAV":    FileTypeAudio,
		"notes.txt":    FileTypeOther,
		"no-extension": FileTypeOther,
	}
	for path, want := range tests {
		if got := GetFileType(path); got != want {
			t.Errorf("GetFileType(%q) = %s, want %s", path, got, want)
		}
	}
}

func TestGetMimeType(t *testing.T) {
	t.Parallel()

	if got := GetMimeType("a.mp4"); got != "video/mp4" {
		t.Errorf("GetMimeType(mp4) = %s", got)
	}
	if got := GetMimeType("a.bin"); got != "application/octet-stream" {
		t.Errorf("GetMimeType(bin) = %s", got)
	}
}
