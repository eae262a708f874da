package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/lenswatch/nvr-core/internal/logging"
)

// ConfigManager owns configuration loading, validation, and hot-reload.
// Exactly one instance exists per process (spec.md §9: "exactly one
// authoritative instance of each core service per process" — modeled
// here as an owned value rather than a package-level singleton).
type ConfigManager struct {
	lock            sync.RWMutex
	config          *GlobalConfig
	configPath      string
	updateCallbacks []func(old, new *GlobalConfig)

	watcher       *fsnotify.Watcher
	watcherDone   chan struct{}
	logger        *logging.Logger
}

// NewConfigManager creates an unloaded configuration manager.
func NewConfigManager() *ConfigManager {
	return &ConfigManager{
		logger: logging.GetLogger("config-manager"),
	}
}

// Load reads configuration from a YAML file with NVR_-prefixed
// environment variable overrides, validates it, and stores it.
func (cm *ConfigManager) Load(path string) error {
	cm.lock.Lock()
	defer cm.lock.Unlock()

	if err := validateConfigFileExists(path); err != nil {
		return err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("NVR")

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %q: %w", path, err)
	}

	var cfg GlobalConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	applyDefaults(&cfg)

	// mapstructure cannot target a fixed-size [168]bool array cleanly;
	// the schedule vector for each stream is re-parsed directly from the
	// raw YAML document so 0/1 ints and true/false bools both work.
	if err := loadSchedulesFromYAML(path, &cfg); err != nil {
		return fmt.Errorf("load schedules: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	old := cm.config
	cm.config = &cfg
	cm.configPath = path

	cm.notifyLocked(old, &cfg)
	return nil
}

// Get returns the current configuration. Callers must not mutate the
// returned pointer's contents.
func (cm *ConfigManager) Get() *GlobalConfig {
	cm.lock.RLock()
	defer cm.lock.RUnlock()
	return cm.config
}

// GetStream returns a copy of one stream's config by name.
func (cm *ConfigManager) GetStream(name string) (StreamConfig, bool) {
	cm.lock.RLock()
	defer cm.lock.RUnlock()
	if cm.config == nil {
		return StreamConfig{}, false
	}
	for _, s := range cm.config.Streams {
		if s.Name == name {
			return s, true
		}
	}
	return StreamConfig{}, false
}

// OnUpdate registers a callback invoked after every successful Load or
// hot-reload. Callbacks run under no lock; they must not call back into
// the ConfigManager synchronously.
func (cm *ConfigManager) OnUpdate(fn func(old, new *GlobalConfig)) {
	cm.lock.Lock()
	defer cm.lock.Unlock()
	cm.updateCallbacks = append(cm.updateCallbacks, fn)
}

func (cm *ConfigManager) notifyLocked(old, new *GlobalConfig) {
	callbacks := cm.updateCallbacks
	go func() {
		for _, cb := range callbacks {
			cb(old, new)
		}
	}()
}

// WatchForChanges starts an fsnotify watch on the loaded config file and
// reloads on write events, logging and skipping invalid edits so a typo
// in the file never takes the service down (spec.md §7: config errors
// are a caller-visible startup failure only, not a runtime one once the
// first load succeeded).
func (cm *ConfigManager) WatchForChanges() error {
	cm.lock.Lock()
	path := cm.configPath
	cm.lock.Unlock()
	if path == "" {
		return fmt.Errorf("no configuration loaded yet")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %q: %w", path, err)
	}

	cm.lock.Lock()
	cm.watcher = watcher
	cm.watcherDone = make(chan struct{})
	cm.lock.Unlock()

	go cm.watchLoop(watcher, path)
	return nil
}

func (cm *ConfigManager) watchLoop(watcher *fsnotify.Watcher, path string) {
	defer close(cm.watcherDone)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := cm.Load(path); err != nil {
				cm.logger.WithError(err).Warn("config hot-reload failed, keeping previous configuration")
			} else {
				cm.logger.Info("configuration reloaded")
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			cm.logger.WithError(err).Warn("config watcher error")
		}
	}
}

// StopWatching stops the fsnotify watcher, if one is running.
func (cm *ConfigManager) StopWatching() {
	cm.lock.Lock()
	w := cm.watcher
	cm.watcher = nil
	cm.lock.Unlock()
	if w != nil {
		w.Close()
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.retention_days", 30)
	v.SetDefault("storage.max_size_bytes", 0)
	v.SetDefault("storage.pressure_normal_floor", 20.0)
	v.SetDefault("storage.pressure_elevated_floor", 10.0)
	v.SetDefault("storage.pressure_critical_floor", 5.0)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.console_enabled", true)
}

// applyDefaults fills in per-stream defaults that viper's generic
// SetDefault cannot express (it only special-cases top-level and
// dotted-path scalars, not "for each element of this slice"). It
// deliberately leaves cfg.Storage.RetentionDays alone: viper's
// SetDefault already supplies 30 when the key is absent from the file,
// while an operator who explicitly writes `retention_days: 0` means it
// (spec.md §8: "retention_days = 0 at both stream and global levels ⇒
// skip this stream's time-based retention entirely").
func applyDefaults(cfg *GlobalConfig) {
	if cfg.Storage.PressureNormal == 0 {
		cfg.Storage.PressureNormal = 20.0
	}
	if cfg.Storage.PressureElevated == 0 {
		cfg.Storage.PressureElevated = 10.0
	}
	if cfg.Storage.PressureCritical == 0 {
		cfg.Storage.PressureCritical = 5.0
	}
	for i := range cfg.Streams {
		s := &cfg.Streams[i]
		if s.DetectionThreshold == 0 {
			s.DetectionThreshold = 0.5
		}
		if s.DetectionInterval == 0 {
			s.DetectionInterval = 10
		}
		if s.PreDetectionBuffer == 0 {
			s.PreDetectionBuffer = 5 * time.Second
		}
		if s.PostDetectionBuffer == 0 {
			s.PostDetectionBuffer = 10 * time.Second
		}
		if s.DetectionObjectFilter == "" {
			s.DetectionObjectFilter = ObjectFilterNone
		}
	}
}

// validateConfigFileExists is a small fail-fast guard used before handing
// the path to viper, producing a clearer error than viper's own.
func validateConfigFileExists(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("config file not accessible: %w", err)
	}
	return nil
}
