package narration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"media-toolkit/internal/logging"
	"media-toolkit/internal/metrics"
	"media-toolkit/internal/retry"
)

// chunkLimit is the longest text the translate endpoint accepts per request.
const chunkLimit = 100

// Voice selects the spoken language and regional accent.
type Voice struct {
	Lang string
	TLD  string
}

// DefaultVoice is English with a British accent.
var DefaultVoice = Voice{Lang: "en", TLD: "co.uk"}

// Synthesizer turns text into an mp3 file.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, voice Voice, dest string) error
}

// ErrEmptyText is returned when there is nothing to speak.
var ErrEmptyText = errors.New("no text to synthesize")

// GoogleTTS synthesizes speech through the Google Translate TTS endpoint.
type GoogleTTS struct {
	client  *http.Client
	baseURL string
	retry   retry.Config
}

// NewGoogleTTS creates a synthesizer. An empty baseURL targets
// https://translate.google.<tld>.
func NewGoogleTTS(client *http.Client, baseURL string) *GoogleTTS {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &GoogleTTS{
		client:  client,
		baseURL: baseURL,
		retry:   retry.DefaultConfig(),
	}
}

// WithRetry overrides the retry policy.
func (g *GoogleTTS) WithRetry(config retry.Config) *GoogleTTS {
	g.retry = config
	return g
}

// httpStatusError is returned for non-200 responses.
type httpStatusError struct {
	code int
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("tts endpoint returned %d", e.code)
}

func retryable(err error) bool {
	var se *httpStatusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}
	return true
}

// Synthesize speaks text chunk by chunk and concatenates the mp3 parts into
// dest. A partially written dest is removed on failure.
func (g *GoogleTTS) Synthesize(ctx context.Context, text string, voice Voice, dest string) (err error) {
	chunks := Chunks(text, chunkLimit)
	if len(chunks) == 0 {
		return ErrEmptyText
	}
	if voice.Lang == "" {
		voice = DefaultVoice
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create narration file: %w", err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if err != nil {
			if rerr := os.Remove(dest); rerr != nil && !os.IsNotExist(rerr) {
				logging.Warn("failed to remove partial narration %s: %v", dest, rerr)
			}
		}
	}()

	cfg := g.retry
	cfg.Retryable = retryable

	for i, chunk := range chunks {
		var part []byte
		err := retry.Do(ctx, "tts", cfg, func(int) error {
			var ferr error
			part, ferr = g.fetchChunk(ctx, chunk, voice, i, len(chunks))
			return ferr
		})
		if err != nil {
			metrics.TTSRequestsTotal.WithLabelValues("error").Inc()
			return fmt.Errorf("synthesize chunk %d/%d: %w", i+1, len(chunks), err)
		}
		metrics.TTSRequestsTotal.WithLabelValues("success").Inc()

		if _, err := out.Write(part); err != nil {
			return fmt.Errorf("write narration: %w", err)
		}
	}

	logging.Debug("Synthesized %d chunk(s) of narration (%s/%s) to %s", len(chunks), voice.Lang, voice.TLD, dest)
	return nil
}

func (g *GoogleTTS) endpoint(voice Voice) string {
	if g.baseURL != "" {
		return g.baseURL + "/translate_tts"
	}
	tld := voice.TLD
	if tld == "" {
		tld = "com"
	}
	return "https://translate.google." + tld + "/translate_tts"
}

func (g *GoogleTTS) fetchChunk(ctx context.Context, chunk string, voice Voice, idx, total int) ([]byte, error) {
	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("client", "tw-ob")
	q.Set("tl", voice.Lang)
	q.Set("q", chunk)
	q.Set("textlen", strconv.Itoa(len([]rune(chunk))))
	q.Set("idx", strconv.Itoa(idx))
	q.Set("total", strconv.Itoa(total))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint(voice)+"?"+q.Encode(), nil)
	if err != nil {
		return nil, retry.Permanent(err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.Debug("failed to close tts response body: %v", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, &httpStatusError{code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, errors.New("tts endpoint returned an empty body")
	}
	return body, nil
}
