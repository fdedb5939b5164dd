/*
Package streaming sends large HTTP response bodies with timeout protection.

A client that stops reading, or goes away mid-transfer, would otherwise keep
a handler (and the file it is serving) alive indefinitely. TimeoutWriter
wraps http.ResponseWriter and fails the transfer when:

  - a single chunk cannot be written within WriteTimeout
  - the whole transfer exceeds MaxDuration
  - the request context is canceled (ErrClientGone)
  - the server closes the writer (ErrStreamCanceled)

Per-chunk deadlines are applied through http.ResponseController, so they
reach the underlying connection. Writers that cannot carry deadlines (for
example httptest.ResponseRecorder) still get the context and duration checks.

# Usage

	f, err := os.Open(path)
	if err != nil {
		...
	}
	defer f.Close()

	w.Header().Set("Content-Type", "video/mp4")
	n, err := streaming.Copy(r.Context(), w, f, streaming.DefaultConfig())
	if err != nil && !errors.Is(err, streaming.ErrClientGone) {
		logging.Warn("stream failed after %d bytes: %v", n, err)
	}

OnProgress, when set, fires each time another mebibyte has been written.
*/
package streaming
