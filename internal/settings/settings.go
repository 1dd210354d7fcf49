// Package settings implements C7: a single in-memory configuration
// structure, protected by one mutex, persisted as JSON on disk.
package settings

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
)

type Motion struct {
	Algorithm    string  `json:"algorithm"` // "mog2" or "framediff"
	MinArea      int     `json:"min_area"`
	Pad          int     `json:"pad"`
	VarThreshold float64 `json:"var_threshold"`
	History      int     `json:"history"`
	Threshold    int     `json:"threshold"`     // event-driven snapshot area gate
	CooldownSecs int     `json:"cooldown_secs"` // shared gate, see §9 design note
	EventDriven  bool    `json:"event_driven"`
}

type Snapshots struct {
	IntervalSecs   int `json:"interval_secs"`
	RetentionCount int `json:"retention_count"`
	RetentionDays  int `json:"retention_days"`
	PruneEvery     int `json:"prune_every"`
	Directory      string `json:"directory"`
}

type Video struct {
	Device     string `json:"device"`
	Index      int    `json:"index"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	FPS        int    `json:"fps"`
	MJPEGInput bool   `json:"mjpeg_input"`
}

type Stream struct {
	MaxWidth int `json:"max_width"`
	Quality  int `json:"quality"`
	FPS      int `json:"fps"`
}

type Auth struct {
	Mode         string `json:"mode"` // "local" or "oauth2"
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash"`
	BaseURL      string `json:"base_url"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Scope        string `json:"scope"`
	APIToken     string `json:"api_token"`
}

// Config is the persisted tree described in spec §3.
type Config struct {
	DeviceID  string    `json:"device_id"`
	Motion    Motion    `json:"motion"`
	Snapshots Snapshots `json:"snapshots"`
	Auth      Auth      `json:"auth"`
	Video     Video     `json:"video"`
	Stream    Stream    `json:"stream"`
}

func defaults() Config {
	return Config{
		Motion: Motion{
			Algorithm: "framediff", MinArea: 500, Pad: 10,
			VarThreshold: 16, History: 500,
			Threshold: 2000, CooldownSecs: 10,
		},
		Snapshots: Snapshots{
			IntervalSecs: 30, RetentionCount: 200, RetentionDays: 7,
			PruneEvery: 10, Directory: "snapshots",
		},
		Auth: Auth{Mode: "local", Username: "admin", Scope: "openid profile"},
		Video: Video{Width: 640, Height: 480, FPS: 15},
		Stream: Stream{MaxWidth: 960, Quality: 80, FPS: 15},
	}
}

// Store is the single mutex-protected settings holder.
type Store struct {
	path string
	log  *slog.Logger

	mu  sync.RWMutex
	cfg Config

	watcher *fsnotify.Watcher
}

// Load reads path if it exists, otherwise seeds with hardcoded defaults and
// a freshly generated device_id. device_id, once set, is never regenerated.
func Load(path string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	s := &Store{path: path, log: log, cfg: defaults()}

	if data, err := os.ReadFile(path); err == nil {
		var onDisk Config
		if err := json.Unmarshal(data, &onDisk); err != nil {
			return nil, fmt.Errorf("settings: parse %s: %w", path, err)
		}
		s.cfg = mergeOverDefaults(defaults(), onDisk)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("settings: read %s: %w", path, err)
	}

	if s.cfg.DeviceID == "" {
		s.cfg.DeviceID = uuid.NewString()
		if err := s.persistLocked(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// mergeOverDefaults shallow-merges the on-disk sections over the defaults:
// since Config's JSON fields are all objects or scalars (no arrays in this
// tree), a zero-value on-disk field keeps the default, and any
// explicitly-set field overrides it field-by-field. Keys that Config does
// not declare are dropped when the file is parsed and are not written back
// by the next persist.
func mergeOverDefaults(def, onDisk Config) Config {
	out := def
	if onDisk.DeviceID != "" {
		out.DeviceID = onDisk.DeviceID
	}
	mergeMotion(&out.Motion, onDisk.Motion)
	mergeSnapshots(&out.Snapshots, onDisk.Snapshots)
	mergeAuth(&out.Auth, onDisk.Auth)
	mergeVideo(&out.Video, onDisk.Video)
	mergeStream(&out.Stream, onDisk.Stream)
	return out
}

func mergeMotion(dst *Motion, src Motion) {
	if src.Algorithm != "" {
		dst.Algorithm = src.Algorithm
	}
	if src.MinArea != 0 {
		dst.MinArea = src.MinArea
	}
	if src.Pad != 0 {
		dst.Pad = src.Pad
	}
	if src.VarThreshold != 0 {
		dst.VarThreshold = src.VarThreshold
	}
	if src.History != 0 {
		dst.History = src.History
	}
	if src.Threshold != 0 {
		dst.Threshold = src.Threshold
	}
	if src.CooldownSecs != 0 {
		dst.CooldownSecs = src.CooldownSecs
	}
	dst.EventDriven = src.EventDriven
}

func mergeSnapshots(dst *Snapshots, src Snapshots) {
	if src.IntervalSecs != 0 {
		dst.IntervalSecs = src.IntervalSecs
	}
	if src.RetentionCount != 0 {
		dst.RetentionCount = src.RetentionCount
	}
	if src.RetentionDays != 0 {
		dst.RetentionDays = src.RetentionDays
	}
	if src.PruneEvery != 0 {
		dst.PruneEvery = src.PruneEvery
	}
	if src.Directory != "" {
		dst.Directory = src.Directory
	}
}

func mergeAuth(dst *Auth, src Auth) {
	if src.Mode != "" {
		dst.Mode = src.Mode
	}
	if src.Username != "" {
		dst.Username = src.Username
	}
	if src.PasswordHash != "" {
		dst.PasswordHash = src.PasswordHash
	}
	if src.BaseURL != "" {
		dst.BaseURL = src.BaseURL
	}
	if src.ClientID != "" {
		dst.ClientID = src.ClientID
	}
	if src.ClientSecret != "" {
		dst.ClientSecret = src.ClientSecret
	}
	if src.Scope != "" {
		dst.Scope = src.Scope
	}
	if src.APIToken != "" {
		dst.APIToken = src.APIToken
	}
}

func mergeVideo(dst *Video, src Video) {
	if src.Device != "" {
		dst.Device = src.Device
	}
	if src.Index != 0 {
		dst.Index = src.Index
	}
	if src.Width != 0 {
		dst.Width = src.Width
	}
	if src.Height != 0 {
		dst.Height = src.Height
	}
	if src.FPS != 0 {
		dst.FPS = src.FPS
	}
	dst.MJPEGInput = src.MJPEGInput
}

func mergeStream(dst *Stream, src Stream) {
	if src.MaxWidth != 0 {
		dst.MaxWidth = src.MaxWidth
	}
	if src.Quality != 0 {
		dst.Quality = src.Quality
	}
	if src.FPS != 0 {
		dst.FPS = src.FPS
	}
}

// Get returns a copy of the current configuration.
func (s *Store) Get() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Update applies mutate to the configuration and persists the result under
// the lock; device_id is restored after mutate runs.
func (s *Store) Update(mutate func(*Config)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	deviceID := s.cfg.DeviceID
	mutate(&s.cfg)
	s.cfg.DeviceID = deviceID // device_id is preserved across unrelated writes
	return s.persistLocked()
}

// Reset restores hardcoded defaults for one section: "motion", "snapshots",
// "auth", "video", or "stream".
func (s *Store) Reset(section string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := defaults()
	switch section {
	case "motion":
		s.cfg.Motion = d.Motion
	case "snapshots":
		s.cfg.Snapshots = d.Snapshots
	case "auth":
		s.cfg.Auth = d.Auth
	case "video":
		s.cfg.Video = d.Video
	case "stream":
		s.cfg.Stream = d.Stream
	default:
		return fmt.Errorf("settings: unknown section %q", section)
	}
	return s.persistLocked()
}

func (s *Store) persistLocked() error {
	if s.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("settings: mkdir: %w", err)
	}
	data, err := json.MarshalIndent(s.cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("settings: marshal: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("settings: write: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// WatchExternalEdits starts an fsnotify watcher on the settings file so
// edits made outside of Update/Reset (a human editing the JSON file
// directly) are picked up. It is a convenience, not part of spec §4.7's
// invariants: internal writes always go through persistLocked regardless.
func (s *Store) WatchExternalEdits() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("settings: fsnotify: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := w.Add(dir); err != nil {
		w.Close()
		return fmt.Errorf("settings: watch %s: %w", dir, err)
	}
	s.watcher = w

	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(s.path) {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				s.reloadFromDisk()
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.log.Warn("settings: watch error", "err", err)
			}
		}
	}()
	return nil
}

func (s *Store) reloadFromDisk() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return
	}
	var onDisk Config
	if err := json.Unmarshal(data, &onDisk); err != nil {
		s.log.Warn("settings: ignoring invalid external edit", "err", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	deviceID := s.cfg.DeviceID
	s.cfg = mergeOverDefaults(defaults(), onDisk)
	s.cfg.DeviceID = deviceID
	s.log.Info("settings: reloaded after external edit")
}

// Close stops the optional external-edit watcher.
func (s *Store) Close() {
	if s.watcher != nil {
		s.watcher.Close()
	}
}
