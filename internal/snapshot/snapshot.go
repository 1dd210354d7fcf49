// Package snapshot implements C6: an interval-based sampler that writes
// annotated JPEGs to disk and prunes by count and age, grounded directly
// in original_source/server.py's _SnapshotWorker.
package snapshot

import (
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"opensentry/internal/capture"
	"opensentry/internal/jpegenc"
	"opensentry/internal/motion"
	"opensentry/internal/overlay"
)

// Entry describes one on-disk snapshot file, derived from the directory
// listing; there is no separate index (spec §3).
type Entry struct {
	Filename       string    `json:"filename"`
	MTime          time.Time `json:"mtime"`
	Size           int64     `json:"size"`
	MotionDetected bool      `json:"motion_detected"`
	MotionAreaPx   int       `json:"motion_area_px,omitempty"`
}

// Config mirrors the snapshot-relevant subset of settings.Config, passed in
// by value on every iteration so a live settings change takes effect on the
// next tick without any explicit notification.
type Config struct {
	Directory      string
	IntervalSecs   int
	RetentionCount int
	RetentionDays  int
	PruneEvery     int
	MotionEnabled  bool
	MinArea        int
	Pad            int
	Quality        int

	// EventDriven and the two fields below implement the shared-gate
	// resolution of spec §9's open question: both triggers consult the same
	// lastSaveTime. An event-driven save is skipped within CooldownSecs of
	// the most recent save of either kind; the interval loop waits
	// IntervalSecs after the most recent save of either kind.
	EventDriven      bool
	MotionThreshold  int
	CooldownSecs     int
}

// ConfigFunc is re-read at the top of every iteration, matching spec
// §4.7's "workers re-read settings on every iteration" contract.
type ConfigFunc func() Config

// Worker runs the interval sampler loop.
type Worker struct {
	getConfig ConfigFunc
	getFrame  func() *capture.Frame
	log       *slog.Logger

	mu            sync.Mutex
	latest        []byte
	prevFrame     *capture.Frame
	lastSaveTime  time.Time
	iterations    int
	running       bool
	stopCh        chan struct{}
	wg            sync.WaitGroup
}

func New(getFrame func() *capture.Frame, getConfig ConfigFunc, log *slog.Logger) *Worker {
	if log == nil {
		log = slog.Default()
	}
	return &Worker{getFrame: getFrame, getConfig: getConfig, log: log}
}

func (w *Worker) Start() {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.mu.Unlock()

	w.wg.Add(1)
	go w.run()
}

func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	w.mu.Unlock()
	w.wg.Wait()
}

// Latest returns the most recent in-memory snapshot JPEG, for the
// "current snapshot" API, independent of the on-disk listing.
func (w *Worker) Latest() ([]byte, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.latest == nil {
		return nil, false
	}
	return w.latest, true
}

func (w *Worker) run() {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopCh:
			return
		default:
		}

		cfg := w.getConfig()
		interval := cfg.IntervalSecs
		if interval < 5 {
			interval = 5
		}
		if interval > 60 {
			interval = 60
		}

		w.mu.Lock()
		sinceLast := time.Since(w.lastSaveTime)
		w.mu.Unlock()

		if sinceLast < time.Duration(interval)*time.Second {
			select {
			case <-w.stopCh:
				return
			case <-time.After(500 * time.Millisecond):
				continue
			}
		}

		frame := w.getFrame()
		if frame == nil {
			select {
			case <-w.stopCh:
				return
			case <-time.After(time.Second):
				continue
			}
		}

		w.captureOne(frame, cfg)

		w.mu.Lock()
		w.iterations++
		shouldPrune := cfg.PruneEvery > 0 && w.iterations%cfg.PruneEvery == 0
		w.mu.Unlock()
		if shouldPrune {
			Prune(cfg.Directory, cfg.RetentionCount, cfg.RetentionDays, w.log)
		}
	}
}

// TriggerEventSnapshot is the motion-worker-driven counterpart to the
// interval loop above, implementing spec §4.6's event-driven sub-feature:
// a snapshot is saved when area reaches MotionThreshold and at least
// CooldownSecs have passed since the most recent save of either kind. The
// save updates the same lastSaveTime the interval loop consults, so the
// next interval save waits a full IntervalSecs after it.
func (w *Worker) TriggerEventSnapshot(area int) {
	cfg := w.getConfig()
	if !cfg.EventDriven || area < cfg.MotionThreshold {
		return
	}

	w.mu.Lock()
	if time.Since(w.lastSaveTime) < time.Duration(cfg.CooldownSecs)*time.Second {
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	frame := w.getFrame()
	if frame == nil {
		return
	}
	w.captureOne(frame, cfg)
}

func (w *Worker) captureOne(frame *capture.Frame, cfg Config) {
	motionDetected := false
	totalArea := 0
	var bbox *motion.Contour

	rgba := overlay.BGRToRGBA(frame.Width, frame.Height, frame.Pix)

	if cfg.MotionEnabled {
		w.mu.Lock()
		prev := w.prevFrame
		w.mu.Unlock()

		if prev != nil {
			res := simpleDiff(prev, frame, cfg.MinArea)
			motionDetected = res.Motion
			totalArea = res.TotalAreaPx
			bbox = res.BBox
		}

		status := "No Motion"
		statusColor := color.RGBA{0, 255, 0, 255}
		if motionDetected {
			status = "MOTION DETECTED"
			statusColor = color.RGBA{255, 0, 0, 255}
			if bbox != nil {
				overlay.Box(rgba, bbox.X, bbox.Y, bbox.W, bbox.H, color.RGBA{0, 255, 0, 255}, 3)
			}
		}
		overlay.Label(rgba, 10, 20, status, statusColor)
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	overlay.Label(rgba, 10, frame.Height-20, timestamp, color.RGBA{255, 255, 255, 255})

	pix := overlay.RGBAToBGR(rgba)
	jpg := jpegenc.Encode(frame.Width, frame.Height, pix, cfg.Quality)

	w.mu.Lock()
	w.latest = jpg
	w.prevFrame = frame
	w.lastSaveTime = time.Now()
	w.mu.Unlock()

	if err := saveToDisk(cfg.Directory, jpg, motionDetected, totalArea); err != nil {
		w.log.Error("snapshot: save failed", "err", err)
	} else {
		w.log.Info("snapshot saved", "motion", motionDetected, "area_px", totalArea)
	}
}

func simpleDiff(prev, cur *capture.Frame, minArea int) motion.Result {
	a := motion.New(motion.AlgoFrameDiff, motion.Params{MinArea: minArea})
	a.Analyze(prev)
	return a.Analyze(cur)
}

func saveToDisk(dir string, jpg []byte, motionDetected bool, area int) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	name := time.Now().Format("2006-01-02_15-04-05")
	if motionDetected {
		name += fmt.Sprintf("_motion_%dpx.jpg", area)
	} else {
		name += "_snapshot.jpg"
	}
	return os.WriteFile(filepath.Join(dir, name), jpg, 0o644)
}

// List returns all on-disk snapshots, newest first.
func List(dir string) ([]Entry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []Entry
	for _, e := range entries {
		if e.IsDir() || !isJPEG(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		ent := Entry{
			Filename: e.Name(),
			MTime:    info.ModTime(),
			Size:     info.Size(),
		}
		if i := strings.LastIndex(ent.Filename, "_motion_"); i >= 0 {
			ent.MotionDetected = true
			_, _ = fmt.Sscanf(ent.Filename[i+len("_motion_"):], "%dpx", &ent.MotionAreaPx)
		}
		out = append(out, ent)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MTime.After(out[j].MTime) })
	return out, nil
}

func isJPEG(name string) bool {
	ext := filepath.Ext(name)
	return ext == ".jpg" || ext == ".jpeg"
}

// Prune implements spec §4.6's pruning rule: sort by mtime descending, keep
// the newest retentionCount, then additionally drop any of those exceeding
// retentionDays age. The two bounds apply independently; a file survives
// only if within both. Failures to remove individual files are logged and
// do not abort the pass.
func Prune(dir string, retentionCount, retentionDays int, log *slog.Logger) {
	if log == nil {
		log = slog.Default()
	}
	files, err := List(dir)
	if err != nil {
		log.Error("snapshot: prune listing failed", "err", err)
		return
	}

	if retentionCount > 0 && len(files) > retentionCount {
		for _, f := range files[retentionCount:] {
			if err := os.Remove(filepath.Join(dir, f.Filename)); err != nil {
				log.Error("snapshot: prune remove (count limit)", "file", f.Filename, "err", err)
			}
		}
		files = files[:retentionCount]
	}

	if retentionDays > 0 {
		maxAge := time.Duration(retentionDays) * 24 * time.Hour
		now := time.Now()
		for _, f := range files {
			if now.Sub(f.MTime) > maxAge {
				if err := os.Remove(filepath.Join(dir, f.Filename)); err != nil {
					log.Error("snapshot: prune remove (age limit)", "file", f.Filename, "err", err)
				}
			}
		}
	}
}
