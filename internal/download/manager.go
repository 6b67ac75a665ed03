// Package download manages acquisition of the on-device model file.
//
// Acquisition is layered, cheapest first:
// 1. A valid file already on disk
// 2. Restoration from a bundled asset delivered with the install
// 3. A resumable chunked download from the model CDN
//
// The free on-device model is the fallback of last resort for users with no
// cloud entitlement, so acquisition survives process death: the .tmp sidecar
// on disk is the authoritative resume offset and the job record in the
// key-value store re-arms the transfer after a restart.
package download

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/dailywell-ai/dailywell/internal/config"
	"github.com/dailywell-ai/dailywell/internal/store"
)

// Disk reports free space for precondition checks.
type Disk interface {
	FreeBytes(dir string) (int64, error)
}

// Network reports whether the current connection is unmetered.
type Network interface {
	IsUnmetered() bool
}

// jobKey holds the persisted job record that re-arms a transfer on restart.
const jobKey = "download:job"

type jobRecord struct {
	Filename string `json:"filename"`
	Attempts int    `json:"attempts"`
}

// Manager runs the acquisition state machine.
type Manager struct {
	cfg       config.DownloadConfig
	modelsDir string
	filename  string

	disk Disk
	net  Network
	kv   store.KV
	log  zerolog.Logger

	mu    sync.Mutex
	state State

	readyCh   chan string
	readyOnce sync.Once

	worker *worker
}

// New creates a manager. Call Start to run startup detection.
func New(cfg config.DownloadConfig, modelsDir, filename string, disk Disk, net Network, kv store.KV, log zerolog.Logger) *Manager {
	m := &Manager{
		cfg:       cfg,
		modelsDir: modelsDir,
		filename:  filename,
		disk:      disk,
		net:       net,
		kv:        kv,
		log:       log.With().Str("component", "download").Logger(),
		state:     NotStarted{},
		readyCh:   make(chan string, 1),
	}
	m.worker = newWorker(m)
	return m
}

// FinalPath is where the installed model lives.
func (m *Manager) FinalPath() string {
	return filepath.Join(m.modelsDir, m.filename)
}

// TempPath is the .tmp sidecar for an in-flight transfer.
func (m *Manager) TempPath() string {
	return m.FinalPath() + ".tmp"
}

// Start performs startup detection and, if the auto-start policy applies,
// kicks off the background transfer.
func (m *Manager) Start(ctx context.Context) {
	if err := os.MkdirAll(m.modelsDir, 0755); err != nil {
		m.setState(Failed{Reason: "Couldn't prepare storage for the on-device coach."})
		return
	}

	// A valid file on disk wins immediately.
	if m.isValid(m.FinalPath()) {
		m.complete(m.FinalPath())
		return
	}

	// Try bundled/pre-delivered assets, most specific first.
	if path, ok := m.restoreBundled(); ok {
		m.complete(path)
		return
	}

	if !m.checkPreconditions() {
		return
	}

	// Re-arm a transfer that a previous process left behind.
	resume := m.loadJob() != nil || m.tmpSize() > 0

	m.setState(NotStarted{})

	if m.cfg.AutoStart || resume {
		m.Begin(ctx)
	}
}

// Begin queues the background transfer. Safe to call repeatedly; a running
// transfer is left alone.
func (m *Manager) Begin(ctx context.Context) {
	if !m.checkPreconditions() {
		return
	}
	m.saveJob(&jobRecord{Filename: m.filename})
	m.worker.start(ctx)
}

// ForceRequeue cancels any in-flight attempt and starts a fresh one,
// used by stall recovery.
func (m *Manager) ForceRequeue(ctx context.Context) {
	m.worker.stop()
	m.Begin(ctx)
}

// Close stops the background worker.
func (m *Manager) Close() {
	m.worker.stop()
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Ready delivers the installed model path exactly once, on the transition
// into Completed.
func (m *Manager) Ready() <-chan string {
	return m.readyCh
}

// ModelPath implements model.PathResolver.
func (m *Manager) ModelPath() (string, bool) {
	if c, ok := m.State().(Completed); ok {
		return c.Path, true
	}
	return "", false
}

// ============================================================
// Internals
// ============================================================

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// complete records the installed model, fires the ready notification once
// and reclaims space from stale model files.
func (m *Manager) complete(path string) {
	m.setState(Completed{Path: path})
	m.clearJob()
	m.cleanupStale(path)

	m.readyOnce.Do(func() {
		m.readyCh <- path
	})

	m.log.Info().Str("path", path).Msg("model ready")
}

// isValid guards against truncated or partial files.
func (m *Manager) isValid(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Size() >= m.cfg.MinValidBytes
}

// restoreBundled searches candidate pre-delivered locations and moves the
// first valid hit into the models directory.
func (m *Manager) restoreBundled() (string, bool) {
	for _, candidate := range m.cfg.BundledPaths {
		if !m.isValid(candidate) {
			continue
		}

		dst := m.FinalPath()
		if err := moveFile(candidate, dst); err != nil {
			m.log.Warn().Err(err).Str("candidate", candidate).Msg("bundled restore failed")
			continue
		}

		m.log.Info().Str("from", candidate).Msg("restored bundled model")
		return dst, true
	}
	return "", false
}

// checkPreconditions verifies storage and network, updating state on
// violation. Returns true when the transfer may proceed.
func (m *Manager) checkPreconditions() bool {
	need := m.cfg.ExpectedBytes + m.cfg.StorageMarginBytes
	if free, err := m.disk.FreeBytes(m.modelsDir); err == nil && free < need {
		m.setState(NeedsStorage{NeedBytes: need, HaveBytes: free})
		return false
	}

	if m.cfg.UnmeteredOnly && !m.net.IsUnmetered() {
		m.setState(WaitingForWiFi{})
		return false
	}

	return true
}

// tmpSize returns the authoritative resume offset: the sidecar's size on
// disk, never cached metadata.
func (m *Manager) tmpSize() int64 {
	info, err := os.Stat(m.TempPath())
	if err != nil {
		return 0
	}
	return info.Size()
}

// cleanupStale deletes other model files in the models directory.
func (m *Manager) cleanupStale(keep string) {
	entries, err := os.ReadDir(m.modelsDir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(m.modelsDir, entry.Name())
		if path == keep {
			continue
		}
		if strings.HasSuffix(entry.Name(), ".gguf") || strings.HasSuffix(entry.Name(), ".tmp") {
			if err := os.Remove(path); err == nil {
				m.log.Info().Str("path", path).Msg("removed stale model file")
			}
		}
	}
}

func (m *Manager) loadJob() *jobRecord {
	raw, err := m.kv.Get(jobKey)
	if err != nil {
		return nil
	}
	var job jobRecord
	if json.Unmarshal([]byte(raw), &job) != nil {
		return nil
	}
	return &job
}

func (m *Manager) saveJob(job *jobRecord) {
	raw, err := json.Marshal(job)
	if err != nil {
		return
	}
	if err := m.kv.Put(jobKey, string(raw)); err != nil {
		m.log.Warn().Err(err).Msg("job record write failed")
	}
}

func (m *Manager) clearJob() {
	_ = m.kv.Remove(jobKey)
}

// moveFile renames when possible and falls back to copy across filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst + ".tmp")
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst + ".tmp")
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	if err := os.Rename(dst+".tmp", dst); err != nil {
		return err
	}
	os.Remove(src)
	return nil
}

// ============================================================
// Default precondition probes
// ============================================================

// StaticNetwork is a fixed-answer network probe; platform glue replaces it
// on devices that can actually tell metered from unmetered.
type StaticNetwork struct {
	Unmetered bool
}

// IsUnmetered returns the configured answer.
func (n StaticNetwork) IsUnmetered() bool {
	return n.Unmetered
}
