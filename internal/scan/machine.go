// Package scan implements the capture/detection loop: a state machine that
// records a spoken target, drives periodic frame capture, and reacts to
// detection results. Hardware access goes through the capability interfaces
// in capabilities.go so the loop can run against fakes.
package scan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/hsqsh/maisHack25/internal/detect"
	"github.com/hsqsh/maisHack25/internal/pkg/logger"
	"github.com/hsqsh/maisHack25/pkg/events"
)

type State string

const (
	StateIdle      State = "IDLE"
	StateListening State = "LISTENING"
	StateScanning  State = "SCANNING"
	StateFound     State = "FOUND"
)

var (
	ErrNoRecognizer  = errors.New("speech recognition not available")
	ErrNotListening  = errors.New("not listening, record a target first")
	ErrNoTarget      = errors.New("no target recorded")
	ErrAlreadyActive = errors.New("scan already active")
)

// vibrationPattern is replayed on every positive cycle.
var vibrationPattern = []time.Duration{200 * time.Millisecond, 100 * time.Millisecond, 200 * time.Millisecond}

// Machine is the capture/detection loop. All methods are safe for concurrent
// use; internally the loop runs on a single cooperative timeline with at most
// one detection request in flight.
type Machine struct {
	mu sync.Mutex

	state  State
	target string
	status string
	cfg    Config

	recognizer Recognizer
	opener     CameraOpener
	detector   detect.Detector
	feedback   Feedback
	publisher  message.Publisher
	logger     logger.ILogger

	camera        Camera
	timer         *time.Timer
	timerGen      uint64 // bumped whenever the repeating timer is (re)armed or cancelled
	scanEpoch     uint64 // bumped on every scan start/teardown, invalidates stale responses
	inFlight      bool
	history       *History
	detectTimeout time.Duration
}

func NewMachine(
	recognizer Recognizer,
	opener CameraOpener,
	detector detect.Detector,
	feedback Feedback,
	publisher message.Publisher,
	log logger.ILogger,
	cfg Config,
) (*Machine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scan config: %w", err)
	}
	return &Machine{
		state:         StateIdle,
		cfg:           cfg,
		recognizer:    recognizer,
		opener:        opener,
		detector:      detector,
		feedback:      feedback,
		publisher:     publisher,
		logger:        log,
		history:       NewHistory(cfg.HistoryLimit),
		detectTimeout: 10 * time.Second,
	}, nil
}

// SetDetectTimeout bounds a single detection round trip. A slow response is
// abandoned rather than blocking the next scheduled capture.
func (m *Machine) SetDetectTimeout(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d > 0 {
		m.detectTimeout = d
	}
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Machine) Target() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.target
}

func (m *Machine) Status() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *Machine) Config() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

// History returns the bounded debug history, newest first.
func (m *Machine) History() []HistoryEntry {
	return m.history.Entries()
}

// StartRecording tears down any running scan and begins voice capture.
// Without a recognizer capability the operation aborts with a reported error.
func (m *Machine) StartRecording() error {
	m.mu.Lock()
	if m.recognizer == nil || !m.recognizer.Available() {
		m.setStatusLocked("speech recognition is not available on this device")
		m.publishEvent(events.New(events.TypeError, map[string]interface{}{"error": ErrNoRecognizer.Error()}))
		m.mu.Unlock()
		return ErrNoRecognizer
	}

	// A scan in progress is torn down first so a new target records cleanly.
	m.teardownScanLocked()
	m.state = StateListening
	m.setStatusLocked("listening...")
	m.mu.Unlock()

	if err := m.recognizer.Start(m.onTranscript); err != nil {
		m.mu.Lock()
		m.setStatusLocked(fmt.Sprintf("voice capture failed: %v", err))
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *Machine) onTranscript(raw string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.target = Normalize(raw)
	if m.target == "" {
		m.setStatusLocked("heard nothing usable, try again")
		return
	}
	m.setStatusLocked(fmt.Sprintf("target: %q", m.target))
	m.publishEvent(events.New(events.TypeStatus, map[string]interface{}{"target": m.target}))
}

// StopRecording ends voice capture and starts scanning. If the camera cannot
// be acquired the loop reports a capture error and stays in Listening with
// scanning disabled; it does not retry on its own.
func (m *Machine) StopRecording(ctx context.Context) error {
	if m.recognizer != nil {
		if err := m.recognizer.Stop(); err != nil {
			m.logger.Warn("Scan", "Recognizer stop failed", map[string]interface{}{"error": err.Error()})
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateListening {
		return ErrNotListening
	}
	return m.startScanLocked(ctx)
}

// ResumeScanning restarts the capture cycle with the previously recorded
// target, without re-recording.
func (m *Machine) ResumeScanning(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateScanning {
		return ErrAlreadyActive
	}
	if m.target == "" {
		return ErrNoTarget
	}
	return m.startScanLocked(ctx)
}

func (m *Machine) startScanLocked(ctx context.Context) error {
	cam, err := m.opener.Open(ctx)
	if err != nil {
		m.setStatusLocked(fmt.Sprintf("camera unavailable: %v", err))
		m.publishEvent(events.New(events.TypeError, map[string]interface{}{"error": err.Error()}))
		return err
	}

	m.camera = cam
	m.scanEpoch++
	m.inFlight = false
	m.state = StateScanning
	m.setStatusLocked(fmt.Sprintf("scanning for %q", m.target))
	m.scheduleLocked(m.cfg.ScanInterval)
	return nil
}

// StopDetecting releases the camera and cancels the capture timer. The
// recorded target survives so scanning can resume without re-recording.
func (m *Machine) StopDetecting() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teardownScanLocked()
	m.state = StateIdle
	m.setStatusLocked("stopped")
}

// SetConfig swaps the scan configuration. An interval change atomically
// re-arms the single repeating timer with the new period.
func (m *Machine) SetConfig(cfg Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setConfigLocked(cfg)
}

// SetInterval changes only the capture period. Read-modify-write happens in
// one critical section so a concurrent SetConfig is never overwritten with a
// stale copy.
func (m *Machine) SetInterval(d time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg := m.cfg
	cfg.ScanInterval = d
	return m.setConfigLocked(cfg)
}

func (m *Machine) setConfigLocked(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid scan config: %w", err)
	}

	old := m.cfg
	m.cfg = cfg
	if m.timer != nil && cfg.ScanInterval != old.ScanInterval {
		m.scheduleLocked(cfg.ScanInterval)
	}
	return nil
}

// scheduleLocked arms the capture timer, cancelling any previous one.
// Generation numbering guarantees a single live timer: a stale callback sees
// a mismatched generation and returns without firing.
func (m *Machine) scheduleLocked(d time.Duration) {
	m.timerGen++
	gen := m.timerGen
	if m.timer != nil {
		m.timer.Stop()
	}
	m.timer = time.AfterFunc(d, func() { m.tick(gen) })
}

// teardownScanLocked releases the camera and cancels the timer. Runs on every
// exit path out of scanning: stop, error, target change.
func (m *Machine) teardownScanLocked() {
	m.timerGen++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.scanEpoch++
	m.inFlight = false
	if m.camera != nil {
		if err := m.camera.Close(); err != nil {
			m.logger.Warn("Scan", "Camera close failed", map[string]interface{}{"error": err.Error()})
		}
		m.camera = nil
	}
}

// tick runs one capture cycle and re-arms the timer at the current interval.
func (m *Machine) tick(gen uint64) {
	m.mu.Lock()

	if gen != m.timerGen {
		m.mu.Unlock()
		return
	}
	m.scheduleLocked(m.cfg.ScanInterval)

	if m.state != StateScanning && m.state != StateFound {
		m.mu.Unlock()
		return
	}
	if m.inFlight {
		// Previous response still outstanding; skip this cycle rather than
		// pile up requests.
		m.logger.Debug("Scan", "Capture skipped, detection still in flight", nil)
		m.mu.Unlock()
		return
	}

	m.inFlight = true
	epoch := m.scanEpoch
	cam := m.camera
	target := m.target
	threshold := m.cfg.Threshold
	timeout := m.detectTimeout
	m.mu.Unlock()

	go m.runDetection(epoch, cam, target, threshold, timeout)
}

func (m *Machine) runDetection(epoch uint64, cam Camera, target string, threshold float64, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	frame, err := cam.Capture(ctx)
	var res *detect.Result
	if err == nil {
		res, err = m.detector.Detect(ctx, frame, target, threshold)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if epoch != m.scanEpoch {
		// Scan was torn down or restarted while we were out; result belongs
		// to a dead cycle.
		return
	}
	m.inFlight = false

	if err != nil {
		m.setStatusLocked(fmt.Sprintf("detection error: %v", err))
		m.publishEvent(events.New(events.TypeError, map[string]interface{}{"error": err.Error()}))
		return
	}

	m.handleResultLocked(target, res)
}

func (m *Machine) handleResultLocked(target string, res *detect.Result) {
	if !res.Found {
		// A negative cycle after a find drops back to Scanning; Found only
		// reflects the most recent cycle.
		if m.state == StateFound {
			m.state = StateScanning
		}
		m.setStatusLocked(fmt.Sprintf("scanning for %q", m.target))
		return
	}

	// Feedback re-fires on every positive cycle, not just the transition
	// edge, so the user gets continuous confirmation.
	m.state = StateFound
	best := bestConfidence(res.Detections)
	m.setStatusLocked(fmt.Sprintf("found %q (confidence %.2f)", target, best))

	if m.cfg.BeepEnabled {
		m.feedback.Beep()
	}
	m.feedback.Vibrate(vibrationPattern)

	m.publishEvent(events.New(events.TypeFound, map[string]interface{}{
		"target":     target,
		"confidence": best,
		"detections": res.Detections,
	}))

	if m.cfg.DebugEnabled {
		m.history.Add(HistoryEntry{
			At:         time.Now(),
			Target:     target,
			Detections: res.Detections,
			HasPreview: res.Preview != nil,
		})
	}
}

func (m *Machine) setStatusLocked(text string) {
	m.status = text
	if m.feedback != nil {
		m.feedback.Status(text)
	}
}

func bestConfidence(detections []detect.Detection) float64 {
	best := 0.0
	for _, d := range detections {
		if d.Confidence > best {
			best = d.Confidence
		}
	}
	return best
}
