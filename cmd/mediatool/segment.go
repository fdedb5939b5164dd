package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"media-toolkit/internal/filesystem"
	"media-toolkit/internal/media"
	"media-toolkit/internal/workers"
)

const (
	defaultSegmentSeconds = 30
	maxSegments           = 5
)

type segmentOptions struct {
	input   string
	outDir  string
	session string
	size    time.Duration
	max     int
}

func parseSegmentArgs(args []string) (segmentOptions, error) {
	fs := flag.NewFlagSet("segment", flag.ContinueOnError)
	seconds := fs.Int("seconds", defaultSegmentSeconds, "segment length in seconds")
	limit := fs.Int("max", maxSegments, "maximum number of segments")
	out := fs.String("out", "", "output directory (default: next to the input)")
	session := fs.String("session", "", "output name prefix (default: random)")
	if err := fs.Parse(args); err != nil {
		return segmentOptions{}, err
	}
	if fs.NArg() != 1 {
		return segmentOptions{}, errors.New("segment needs exactly one input file")
	}
	if *seconds <= 0 {
		return segmentOptions{}, fmt.Errorf("invalid -seconds %d", *seconds)
	}
	if *limit <= 0 || *limit > maxSegments {
		return segmentOptions{}, fmt.Errorf("-max must be between 1 and %d", maxSegments)
	}

	opts := segmentOptions{
		input:   fs.Arg(0),
		outDir:  *out,
		session: *session,
		size:    time.Duration(*seconds) * time.Second,
		max:     *limit,
	}
	fillDefaults(&opts.outDir, &opts.session, opts.input)
	return opts, nil
}

// fillDefaults puts outputs next to the input under a fresh session prefix.
func fillDefaults(outDir, session *string, input string) {
	if *outDir == "" {
		*outDir = filepath.Dir(input)
	}
	if *session == "" {
		*session = uuid.NewString()[:8]
	}
}

func (t *tool) runSegment(ctx context.Context, args []string) error {
	opts, err := parseSegmentArgs(args)
	if err != nil {
		return err
	}
	_, err = t.segment(ctx, opts)
	return err
}

// segment renders up to opts.max consecutive windows of the input in parallel.
func (t *tool) segment(ctx context.Context, opts segmentOptions) ([]string, error) {
	info, err := t.encoder.Inspect(ctx, opts.input)
	if err != nil {
		return nil, fmt.Errorf("inspect %s: %w", opts.input, err)
	}

	clips := media.Segments(opts.input, info.Duration, opts.size, opts.max)
	if len(clips) == 0 {
		return nil, fmt.Errorf("%s has no duration to segment", opts.input)
	}
	if err := filesystem.EnsureDir(opts.outDir); err != nil {
		return nil, err
	}

	ext := ".mp4"
	if media.GetFileType(opts.input) == media.FileTypeAudio {
		ext = ".mp3"
	}
	outputs := make([]string, len(clips))
	for i := range clips {
		outputs[i] = filepath.Join(opts.outDir, fmt.Sprintf("%s_segment_%d%s", opts.session, i+1, ext))
	}

	t.printf("Splitting %s (%v) into %d segments of %v", filepath.Base(opts.input),
		info.Duration.Round(time.Second), len(clips), opts.size)

	start := time.Now()
	err = workers.Each(ctx, t.workers, len(clips), func(ctx context.Context, i int) error {
		if err := t.encoder.Render(ctx, clips[i], outputs[i]); err != nil {
			return fmt.Errorf("segment %d: %w", i+1, err)
		}
		t.result(outputs[i])
		return nil
	})
	if err != nil {
		return nil, err
	}

	t.printf("Done in %v", time.Since(start).Round(time.Millisecond))
	return outputs, nil
}

func fileSize(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return "?"
	}
	return humanize.Bytes(uint64(info.Size()))
}
