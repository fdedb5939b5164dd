package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"media-toolkit/internal/filesystem"
	"media-toolkit/internal/media"
	"media-toolkit/internal/narration"
)

type dubOptions struct {
	input   string
	outDir  string
	session string
	text    string
}

func parseDubArgs(args []string) (dubOptions, error) {
	fs := flag.NewFlagSet("dub", flag.ContinueOnError)
	text := fs.String("text", narration.DemoText, "narration text")
	out := fs.String("out", "", "output directory (default: next to the input)")
	session := fs.String("session", "", "output name prefix (default: random)")
	if err := fs.Parse(args); err != nil {
		return dubOptions{}, err
	}
	if fs.NArg() != 1 {
		return dubOptions{}, errors.New("dub needs exactly one input file")
	}
	if strings.TrimSpace(*text) == "" {
		return dubOptions{}, errors.New("-text must not be empty")
	}

	opts := dubOptions{
		input:   fs.Arg(0),
		outDir:  *out,
		session: *session,
		text:    *text,
	}
	fillDefaults(&opts.outDir, &opts.session, opts.input)
	return opts, nil
}

func (t *tool) runDub(ctx context.Context, args []string) error {
	opts, err := parseDubArgs(args)
	if err != nil {
		return err
	}
	_, err = t.dub(ctx, opts)
	return err
}

// dub narrates opts.text over the input. Audio inputs are replaced by the
// narration itself; videos keep their picture with the narration looped
// underneath.
func (t *tool) dub(ctx context.Context, opts dubOptions) (string, error) {
	if err := filesystem.EnsureDir(opts.outDir); err != nil {
		return "", err
	}

	if media.GetFileType(opts.input) == media.FileTypeAudio {
		dest := filepath.Join(opts.outDir, opts.session+"_dubbed.mp3")
		t.printf("Narrating %d characters", len(opts.text))
		if err := t.synth.Synthesize(ctx, opts.text, t.voice, dest); err != nil {
			return "", fmt.Errorf("synthesize: %w", err)
		}
		t.result(dest)
		return dest, nil
	}

	info, err := t.encoder.Inspect(ctx, opts.input)
	if err != nil {
		return "", fmt.Errorf("inspect %s: %w", opts.input, err)
	}

	workDir, err := os.MkdirTemp("", "mediatool-")
	if err != nil {
		return "", err
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to remove %s: %v\n", workDir, err)
		}
	}()

	t.printf("Narrating %d characters over %s", len(opts.text), filepath.Base(opts.input))
	track := filepath.Join(workDir, "narration.mp3")
	if err := t.synth.Synthesize(ctx, opts.text, t.voice, track); err != nil {
		return "", fmt.Errorf("synthesize: %w", err)
	}

	clip := media.NewClip(opts.input, info.Duration).WithAudio(track, media.FitLoop)
	dest := filepath.Join(opts.outDir, opts.session+"_dubbed.mp4")
	if err := t.encoder.Render(ctx, clip, dest); err != nil {
		return "", err
	}
	t.result(dest)
	return dest, nil
}
