// Package download provides the background transfer worker.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/dailywell-ai/dailywell/internal/errors"
)

const (
	copyBufSize      = 128 * 1024
	progressInterval = 2 * time.Second
)

// worker owns the single background transfer goroutine. A new start
// supersedes nothing: if a transfer is running it is left alone; stop
// cancels it.
type worker struct {
	m      *Manager
	client *http.Client

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

func newWorker(m *Manager) *worker {
	return &worker{
		m: m,
		client: &http.Client{
			// No overall timeout: a 380 MB transfer on a slow link is not
			// an error. Stall detection handles dead connections.
			Timeout: 0,
		},
	}
}

// start launches the transfer goroutine unless one is already running.
func (w *worker) start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.running = true

	go func() {
		defer close(w.done)
		w.run(runCtx)
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()
}

// stop cancels the in-flight transfer and waits for the goroutine to exit.
func (w *worker) stop() {
	w.mu.Lock()
	cancel := w.cancel
	done := w.done
	running := w.running
	w.mu.Unlock()

	if !running {
		return
	}
	cancel()
	<-done
}

// run executes bounded attempts with exponential backoff. errors.Do can't
// drive the loop directly because preconditions are re-checked and state is
// republished between attempts, but the backoff envelope is the shared
// download policy.
func (w *worker) run(ctx context.Context) {
	policy := errors.DownloadPolicy()
	maxAttempts := w.m.cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = policy.MaxAttempts
	}

	delay := policy.InitialDelay
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * policy.Multiplier)
			if delay > policy.MaxDelay {
				delay = policy.MaxDelay
			}
		}

		// Preconditions can degrade mid-flight (disk filled up, network
		// switched to metered). Surface that as state, not as a failure.
		if !w.m.checkPreconditions() {
			return
		}

		lastErr = w.attempt(ctx)
		if lastErr == nil {
			return
		}
		if ctx.Err() != nil {
			return
		}

		w.m.log.Warn().Err(lastErr).Int("attempt", attempt+1).Msg("download attempt failed")
	}

	w.m.setState(Failed{Reason: "Couldn't install your on-device coach. We'll try again later."})
	w.m.log.Error().Err(lastErr).Msg("download attempts exhausted")
}

// attempt performs one resumable transfer, watched for stalls.
func (w *worker) attempt(ctx context.Context) error {
	attemptCtx, cancelAttempt := context.WithCancel(ctx)
	defer cancelAttempt()

	stallStop := w.watchStall(attemptCtx, cancelAttempt)
	defer stallStop()

	offset := w.m.tmpSize()

	resp, err := w.fetch(attemptCtx, offset)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// A 200 means the server ignored the Range header; start over.
	if resp.StatusCode == http.StatusOK && offset > 0 {
		if err := os.Truncate(w.m.TempPath(), 0); err != nil {
			return errors.Wrap(err, errors.CodeDownloadFailed, "failed to reset partial file", errors.CategorySystem)
		}
		offset = 0
	}

	tmp, err := os.OpenFile(w.m.TempPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return errors.Wrap(err, errors.CodeDownloadFailed, "failed to open partial file", errors.CategorySystem)
	}
	defer tmp.Close()

	total := w.m.cfg.ExpectedBytes
	if resp.ContentLength > 0 {
		total = offset + resp.ContentLength
	}
	w.m.setState(Downloading{BytesDone: offset, TotalBytes: total})

	if err := w.copyChunks(attemptCtx, tmp, resp.Body, offset, total); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, errors.CodeDownloadFailed, "failed to flush partial file", errors.CategorySystem)
	}

	return w.finalize()
}

// fetch issues the ranged GET, trying the primary URL first and the
// secondary on any connect or non-success/non-partial status.
func (w *worker) fetch(ctx context.Context, offset int64) (*http.Response, error) {
	urls := []string{w.m.cfg.PrimaryURL}
	if w.m.cfg.SecondaryURL != "" {
		urls = append(urls, w.m.cfg.SecondaryURL)
	}

	var lastErr error
	for _, url := range urls {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			lastErr = err
			continue
		}
		if offset > 0 {
			req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
		}

		resp, err := w.client.Do(req)
		if err != nil {
			lastErr = errors.Wrap(err, errors.CodeNetworkUnavailable, "connection failed", errors.CategoryTemporary)
			continue
		}

		if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusPartialContent {
			return resp, nil
		}

		resp.Body.Close()
		lastErr = errors.Temporary(errors.CodeDownloadFailed,
			fmt.Sprintf("model server returned status %d", resp.StatusCode))
	}

	return nil, lastErr
}

// copyChunks streams the body into the sidecar, throttling progress updates
// to >=1% change or a time interval, whichever comes first.
func (w *worker) copyChunks(ctx context.Context, dst io.Writer, src io.Reader, offset, total int64) error {
	buf := make([]byte, copyBufSize)
	done := offset
	lastPct := pct(done, total)
	lastReport := time.Now()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		n, readErr := src.Read(buf)
		if n > 0 {
			if _, err := dst.Write(buf[:n]); err != nil {
				return errors.Wrap(err, errors.CodeDownloadFailed, "failed to write partial file", errors.CategorySystem)
			}
			done += int64(n)

			if p := pct(done, total); p-lastPct >= 1 || time.Since(lastReport) >= progressInterval {
				w.m.setState(Downloading{BytesDone: done, TotalBytes: total})
				lastPct = p
				lastReport = time.Now()
			}
		}

		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return errors.Wrap(readErr, errors.CodeNetworkUnavailable, "connection dropped", errors.CategoryTemporary)
		}
	}
}

// finalize verifies the completed sidecar and renames it into place.
// Undersized files are corrupt and discarded, never accepted.
func (w *worker) finalize() error {
	info, err := os.Stat(w.m.TempPath())
	if err != nil {
		return errors.Wrap(err, errors.CodeDownloadFailed, "partial file vanished", errors.CategorySystem)
	}

	if info.Size() < w.m.cfg.MinValidBytes {
		os.Remove(w.m.TempPath())
		return errors.Temporary(errors.CodeModelFileCorrupt,
			fmt.Sprintf("downloaded file too small (%d bytes)", info.Size()))
	}

	if err := os.Rename(w.m.TempPath(), w.m.FinalPath()); err != nil {
		return errors.Wrap(err, errors.CodeDownloadFailed, "failed to install model file", errors.CategorySystem)
	}

	w.m.complete(w.m.FinalPath())
	return nil
}

// watchStall cancels the attempt when the sidecar stops growing for the
// configured window. The run loop then re-checks preconditions and requeues.
func (w *worker) watchStall(ctx context.Context, cancelAttempt context.CancelFunc) (stop func()) {
	window := time.Duration(w.m.cfg.StallWindowSeconds) * time.Second
	if window <= 0 {
		window = 90 * time.Second
	}

	stopCh := make(chan struct{})
	go func() {
		ticker := time.NewTicker(window / 3)
		defer ticker.Stop()

		lastSize := w.m.tmpSize()
		lastGrowth := time.Now()

		for {
			select {
			case <-ctx.Done():
				return
			case <-stopCh:
				return
			case <-ticker.C:
				size := w.m.tmpSize()
				if size > lastSize {
					lastSize = size
					lastGrowth = time.Now()
					continue
				}
				if time.Since(lastGrowth) > window {
					w.m.log.Warn().Int64("bytes", size).Msg("transfer stalled, requeueing")
					cancelAttempt()
					return
				}
			}
		}
	}()

	return func() { close(stopCh) }
}

// pct computes integer-ish percent progress.
func pct(done, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(done) / float64(total) * 100
}
