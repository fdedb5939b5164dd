package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"media-toolkit/internal/media"
	"media-toolkit/internal/narration"
)

// =============================================================================
// Fakes
// =============================================================================

type fakeRenderer struct {
	mu         sync.Mutex
	duration   time.Duration
	inspectErr error
	renderErr  error
	clips      map[string]media.Clip
}

func (f *fakeRenderer) Inspect(context.Context, string) (*media.Info, error) {
	if f.inspectErr != nil {
		return nil, f.inspectErr
	}
	return &media.Info{Duration: f.duration, HasVideo: true, HasAudio: true}, nil
}

func (f *fakeRenderer) Render(_ context.Context, clip media.Clip, dest string) error {
	if f.renderErr != nil {
		return f.renderErr
	}
	f.mu.Lock()
	if f.clips == nil {
		f.clips = make(map[string]media.Clip)
	}
	f.clips[dest] = clip
	f.mu.Unlock()
	return os.WriteFile(dest, []byte("rendered"), 0o644)
}

type fakeSynth struct {
	text  string
	voice narration.Voice
	dest  string
	err   error
}

func (s *fakeSynth) Synthesize(_ context.Context, text string, voice narration.Voice, dest string) error {
	if s.err != nil {
		return s.err
	}
	s.text, s.voice, s.dest = text, voice, dest
	return os.WriteFile(dest, []byte("speech"), 0o644)
}

func newTestTool(r *fakeRenderer, s *fakeSynth) (*tool, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return &tool{
		encoder: r,
		synth:   s,
		voice:   narration.DefaultVoice,
		workers: 3,
		out:     out,
	}, out
}

// =============================================================================
// Command helpers
// =============================================================================

func TestPrintUsage(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("printUsage panicked: %v", r)
		}
	}()

	printUsage()
}

func TestSanitizeCommand(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"segment", "segment"},
		{"dub-now_2", "dub-now_2"},
		{"rm -rf /", "rm_-rf__"},
		{"\x1b[31mred", "__31mred"},
	}

	for _, tt := range tests {
		if got := sanitizeCommand(tt.in); got != tt.want {
			t.Errorf("sanitizeCommand(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// =============================================================================
// Segment
// =============================================================================

func TestParseSegmentArgs(t *testing.T) {
	opts, err := parseSegmentArgs([]string{"-seconds", "10", "-max", "3", "-session", "abc", "/videos/in.mp4"})
	if err != nil {
		t.Fatalf("parseSegmentArgs() error = %v", err)
	}
	if opts.size != 10*time.Second || opts.max != 3 || opts.session != "abc" {
		t.Errorf("opts = %+v", opts)
	}
	if opts.outDir != "/videos" {
		t.Errorf("outDir = %q, want input's directory", opts.outDir)
	}

	opts, err = parseSegmentArgs([]string{"clip.mp4"})
	if err != nil {
		t.Fatal(err)
	}
	if opts.size != 30*time.Second || opts.max != maxSegments {
		t.Errorf("defaults = %+v", opts)
	}
	if len(opts.session) != 8 {
		t.Errorf("generated session = %q, want 8 characters", opts.session)
	}
}

func TestParseSegmentArgsErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"No input", nil},
		{"Two inputs", []string{"a.mp4", "b.mp4"}},
		{"Zero seconds", []string{"-seconds", "0", "a.mp4"}},
		{"Too many segments", []string{"-max", "6", "a.mp4"}},
		{"Unknown flag", []string{"-bogus", "a.mp4"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseSegmentArgs(tt.args); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSegment(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		duration  time.Duration
		wantNames []string
		wantLast  time.Duration
	}{
		{
			name:      "Video splits into windows",
			input:     "talk.mp4",
			duration:  75 * time.Second,
			wantNames: []string{"s1_segment_1.mp4", "s1_segment_2.mp4", "s1_segment_3.mp4"},
			wantLast:  15 * time.Second,
		},
		{
			name:     "Long video stops at five",
			input:    "film.mkv",
			duration: time.Hour,
			wantNames: []string{"s1_segment_1.mp4", "s1_segment_2.mp4", "s1_segment_3.mp4",
				"s1_segment_4.mp4", "s1_segment_5.mp4"},
			wantLast: 30 * time.Second,
		},
		{
			name:      "Audio keeps mp3",
			input:     "song.mp3",
			duration:  40 * time.Second,
			wantNames: []string{"s1_segment_1.mp3", "s1_segment_2.mp3"},
			wantLast:  10 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			r := &fakeRenderer{duration: tt.duration}
			tl, out := newTestTool(r, &fakeSynth{})

			outputs, err := tl.segment(context.Background(), segmentOptions{
				input:   filepath.Join(dir, tt.input),
				outDir:  filepath.Join(dir, "out"),
				session: "s1",
				size:    30 * time.Second,
				max:     maxSegments,
			})
			if err != nil {
				t.Fatalf("segment() error = %v", err)
			}

			var names []string
			for _, p := range outputs {
				names = append(names, filepath.Base(p))
				if _, err := os.Stat(p); err != nil {
					t.Errorf("output %s missing", p)
				}
			}
			if strings.Join(names, ",") != strings.Join(tt.wantNames, ",") {
				t.Errorf("outputs = %v, want %v", names, tt.wantNames)
			}

			last := r.clips[outputs[len(outputs)-1]]
			if last.Duration != tt.wantLast {
				t.Errorf("last segment duration = %v, want %v", last.Duration, tt.wantLast)
			}

			// non-interactive output is one path per line, in completion order
			lines := strings.Split(strings.TrimSpace(out.String()), "\n")
			sort.Strings(lines)
			want := append([]string(nil), outputs...)
			sort.Strings(want)
			if strings.Join(lines, ",") != strings.Join(want, ",") {
				t.Errorf("printed %v, want %v", lines, want)
			}
		})
	}
}

func TestSegmentErrors(t *testing.T) {
	renderErr := errors.New("ffmpeg exited 1")

	tests := []struct {
		name     string
		renderer *fakeRenderer
	}{
		{"Inspect fails", &fakeRenderer{inspectErr: errors.New("invalid data")}},
		{"Zero duration", &fakeRenderer{}},
		{"Render fails", &fakeRenderer{duration: time.Minute, renderErr: renderErr}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			tl, _ := newTestTool(tt.renderer, &fakeSynth{})

			_, err := tl.segment(context.Background(), segmentOptions{
				input: filepath.Join(dir, "in.mp4"), outDir: dir, session: "x",
				size: 30 * time.Second, max: maxSegments,
			})
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.renderer.renderErr != nil && !errors.Is(err, renderErr) {
				t.Errorf("error = %v, want wrapped %v", err, renderErr)
			}
		})
	}
}

func TestInteractiveOutputShowsSizes(t *testing.T) {
	dir := t.TempDir()
	tl, out := newTestTool(&fakeRenderer{duration: 10 * time.Second}, &fakeSynth{})
	tl.interactive = true

	if _, err := tl.segment(context.Background(), segmentOptions{
		input: filepath.Join(dir, "in.mp4"), outDir: dir, session: "x",
		size: 30 * time.Second, max: maxSegments,
	}); err != nil {
		t.Fatal(err)
	}

	got := out.String()
	if !strings.Contains(got, "Splitting in.mp4") {
		t.Errorf("missing header in %q", got)
	}
	if !strings.Contains(got, "[OK]") || !strings.Contains(got, "(8 B)") {
		t.Errorf("missing result line with size in %q", got)
	}
}

// =============================================================================
// Dub
// =============================================================================

func TestParseDubArgs(t *testing.T) {
	opts, err := parseDubArgs([]string{"in.mp4"})
	if err != nil {
		t.Fatal(err)
	}
	if opts.text != narration.DemoText {
		t.Errorf("default text = %q", opts.text)
	}

	opts, err = parseDubArgs([]string{"-text", "hello there", "-out", "/tmp/o", "in.mp4"})
	if err != nil {
		t.Fatal(err)
	}
	if opts.text != "hello there" || opts.outDir != "/tmp/o" {
		t.Errorf("opts = %+v", opts)
	}

	for _, args := range [][]string{nil, {"-text", "  ", "in.mp4"}, {"a", "b"}} {
		if _, err := parseDubArgs(args); err == nil {
			t.Errorf("parseDubArgs(%q) expected error", args)
		}
	}
}

func TestDubVideo(t *testing.T) {
	dir := t.TempDir()
	r := &fakeRenderer{duration: 20 * time.Second}
	s := &fakeSynth{}
	tl, _ := newTestTool(r, s)

	dest, err := tl.dub(context.Background(), dubOptions{
		input: filepath.Join(dir, "in.mp4"), outDir: dir, session: "d1", text: "narrate this",
	})
	if err != nil {
		t.Fatalf("dub() error = %v", err)
	}
	if filepath.Base(dest) != "d1_dubbed.mp4" {
		t.Errorf("dest = %s", dest)
	}
	if s.text != "narrate this" || s.voice != narration.DefaultVoice {
		t.Errorf("synth got text=%q voice=%+v", s.text, s.voice)
	}

	clip := r.clips[dest]
	if clip.Audio != s.dest || clip.AudioFit != media.FitLoop {
		t.Errorf("clip audio = %q fit = %q, want looped narration", clip.Audio, clip.AudioFit)
	}
	if clip.Duration != 20*time.Second {
		t.Errorf("clip duration = %v", clip.Duration)
	}
	if _, err := os.Stat(s.dest); !os.IsNotExist(err) {
		t.Error("narration scratch file should be removed")
	}
}

func TestDubAudioWritesNarrationDirectly(t *testing.T) {
	dir := t.TempDir()
	r := &fakeRenderer{inspectErr: errors.New("should not inspect")}
	s := &fakeSynth{}
	tl, _ := newTestTool(r, s)

	dest, err := tl.dub(context.Background(), dubOptions{
		input: filepath.Join(dir, "voice.wav"), outDir: dir, session: "d2", text: narration.DemoText,
	})
	if err != nil {
		t.Fatalf("dub() error = %v", err)
	}
	if dest != filepath.Join(dir, "d2_dubbed.mp3") || s.dest != dest {
		t.Errorf("dest = %s, synth dest = %s", dest, s.dest)
	}
	if len(r.clips) != 0 {
		t.Error("audio inputs should not be rendered")
	}
}

func TestDubSynthFailure(t *testing.T) {
	dir := t.TempDir()
	tl, _ := newTestTool(&fakeRenderer{duration: time.Second}, &fakeSynth{err: errors.New("HTTP 429")})

	if _, err := tl.dub(context.Background(), dubOptions{
		input: filepath.Join(dir, "in.mp4"), outDir: dir, session: "d3", text: "x",
	}); err == nil || !strings.Contains(err.Error(), "HTTP 429") {
		t.Errorf("dub() error = %v, want synth failure", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "d3_dubbed.mp4")); !os.IsNotExist(err) {
		t.Error("no output expected on failure")
	}
}
