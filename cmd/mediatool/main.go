package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/term"

	"media-toolkit/internal/media"
	"media-toolkit/internal/narration"
	"media-toolkit/internal/workers"
)

// renderer inspects and renders clips.
type renderer interface {
	Inspect(ctx context.Context, path string) (*media.Info, error)
	Render(ctx context.Context, clip media.Clip, dest string) error
}

type tool struct {
	encoder renderer
	synth   narration.Synthesizer
	voice   narration.Voice
	workers int

	// interactive output is meant for a person; otherwise one path per line
	interactive bool

	mu  sync.Mutex
	out io.Writer
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: failed to load .env: %v\n", err)
	}

	// Create a context that cancels on interrupt signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, stopping ffmpeg...")
		cancel()
	}()

	threads, _ := strconv.Atoi(os.Getenv(workers.OverrideEnv))
	t := &tool{
		encoder: media.NewEncoder(media.EncoderConfig{
			FFmpegPath:  os.Getenv("FFMPEG_PATH"),
			FFprobePath: os.Getenv("FFPROBE_PATH"),
			Threads:     threads,
		}),
		synth:       narration.NewGoogleTTS(nil, os.Getenv("TTS_BASE_URL")),
		voice:       narration.Voice{Lang: envOr("TTS_LANG", "en"), TLD: envOr("TTS_TLD", "co.uk")},
		workers:     workers.ForCPU(maxSegments),
		interactive: term.IsTerminal(int(os.Stdout.Fd())),
		out:         os.Stdout,
	}

	var err error
	switch command {
	case "segment":
		err = t.runSegment(ctx, os.Args[2:])
	case "dub":
		err = t.runDub(ctx, os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", sanitizeCommand(command))
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// sanitizeCommand returns a safe representation of a command string for display.
// Anything that is not alphanumeric, a hyphen, or an underscore becomes '_'.
func sanitizeCommand(cmd string) string {
	var b strings.Builder
	b.Grow(len(cmd))
	for _, r := range cmd {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

func printUsage() {
	fmt.Println("Media Toolkit")
	fmt.Println("")
	fmt.Println("Usage: mediatool <command> [flags] <file>")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  segment  - Split a file into consecutive segments")
	fmt.Println("  dub      - Replace a file's audio with spoken narration")
	fmt.Println("")
	fmt.Println("Run 'mediatool <command> -h' for command flags.")
	fmt.Println("")
	fmt.Println("Environment:")
	fmt.Println("  FFMPEG_PATH, FFPROBE_PATH - ffmpeg binaries (default: from PATH)")
	fmt.Println("  TTS_LANG, TTS_TLD         - narration voice (default: en, co.uk)")
	fmt.Println("  ENCODE_THREADS            - ffmpeg threads and parallel renders")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// printf writes a line meant for a person. Non-interactive runs stay quiet.
func (t *tool) printf(format string, args ...interface{}) {
	if !t.interactive {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, format+"\n", args...)
}

// result reports a finished output file.
func (t *tool) result(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.interactive {
		fmt.Fprintln(t.out, path)
		return
	}
	fmt.Fprintf(t.out, "  [OK] %s (%s)\n", path, fileSize(path))
}
