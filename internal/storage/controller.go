package storage

import (
	"sync"
	"time"

	"github.com/lenswatch/nvr-core/internal/common"
	"github.com/lenswatch/nvr-core/internal/config"
	"github.com/lenswatch/nvr-core/internal/constants"
	"github.com/lenswatch/nvr-core/internal/eventbus"
	"github.com/lenswatch/nvr-core/internal/logging"
	"github.com/lenswatch/nvr-core/internal/repository"
)

// Config tunes the Controller's wake schedule, pressure floors, and
// per-pass limits. DefaultConfig mirrors the constants package, which
// is in turn the spec's documented defaults.
type Config struct {
	Root string // storage root; must contain an "mp4" subdirectory for the orphan gate to proceed

	HeartbeatPeriod time.Duration
	StandardPeriod  time.Duration
	DeepPeriod      time.Duration

	RetentionPassLimit       int
	EmergencyCleanupLimit    int
	EmergencyCleanupAggLimit int
	OrphanPassLimit          int
	OrphanMinChecked         int
	OrphanRatioThreshold     float64

	SessionMaxAge time.Duration
}

// DefaultConfig returns the spec's documented defaults, rooted at root.
func DefaultConfig(root string) Config {
	return Config{
		Root:                     root,
		HeartbeatPeriod:          constants.HeartbeatPeriod,
		StandardPeriod:           constants.StandardPeriod,
		DeepPeriod:               constants.DeepPeriod,
		RetentionPassLimit:       constants.RetentionPassLimit,
		EmergencyCleanupLimit:    constants.EmergencyCleanupLimit,
		EmergencyCleanupAggLimit: constants.EmergencyCleanupAggLimit,
		OrphanPassLimit:          constants.OrphanPassLimit,
		OrphanMinChecked:         constants.OrphanMinChecked,
		OrphanRatioThreshold:     constants.OrphanRatioThreshold,
		SessionMaxAge:            24 * time.Hour,
	}
}

// GlobalConfigFunc returns the current global storage configuration,
// read fresh on every heartbeat so operator edits take effect without a
// restart.
type GlobalConfigFunc func() config.StorageConfig

// DiskUsageFunc reports total/free bytes for the filesystem containing
// path. The production implementation wraps gopsutil's disk.Usage;
// tests supply a fake.
type DiskUsageFunc func(path string) (total, free uint64, err error)

// Controller is the Storage Lifecycle Controller (spec.md §4.1): one
// background worker owning all retention decisions and the pressure
// signal.
type Controller struct {
	repo      *repository.Repository
	bus       *eventbus.Bus
	globalCfg GlobalConfigFunc
	diskUsage DiskUsageFunc
	cfg       Config
	logger    *logging.Logger

	token *common.CancellationToken
	wake  chan bool // carries the aggressive flag for a forced cleanup
	done  chan struct{}

	mu           sync.RWMutex
	health       Health
	lastStandard time.Time
	lastDeep     time.Time
	streamBytes  map[string]uint64
}

// New creates a Controller. It does not start the background worker;
// call Start for that.
func New(repo *repository.Repository, bus *eventbus.Bus, globalCfg GlobalConfigFunc, diskUsage DiskUsageFunc, cfg Config) *Controller {
	return &Controller{
		repo:      repo,
		bus:       bus,
		globalCfg: globalCfg,
		diskUsage: diskUsage,
		cfg:       cfg,
		logger:    logging.GetLogger("storage"),
		token:     common.NewCancellationToken(),
		wake:      make(chan bool, 1),
		done:      make(chan struct{}),
	}
}

// Start launches the background worker.
func (c *Controller) Start() {
	go c.run()
}

// Stop requests shutdown and waits up to the standard bounded-join
// budget before detaching (spec.md §5 "Cancellation & shutdown").
func (c *Controller) Stop() {
	c.token.Cancel()
	select {
	case c.wake <- false:
	default:
	}
	if !common.PollJoin(c.token, constants.ShutdownPollInterval, constants.ShutdownTimeout) {
		c.logger.Warn("storage controller did not exit within shutdown deadline; detaching")
	}
}

// HealthSnapshot returns a thread-safe copy of the cached health state.
func (c *Controller) HealthSnapshot() Health {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.health
}

// PressureLevel is a convenience accessor over HealthSnapshot.
func (c *Controller) PressureLevel() PressureLevel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.health.PressureLevel
}

// TriggerCleanup requests an out-of-schedule cleanup pass and returns
// immediately; aggressive selects the emergency reclaim pass over a
// plain standard cycle.
func (c *Controller) TriggerCleanup(aggressive bool) {
	select {
	case c.wake <- aggressive:
	default:
		// a forced wake is already pending; it runs with the
		// aggressiveness it was queued with, and this request's flag is
		// dropped — trigger_cleanup is documented idempotent, not queued.
	}
}

func (c *Controller) run() {
	defer c.token.MarkExited()
	defer close(c.done)

	ticker := time.NewTicker(c.cfg.HeartbeatPeriod)
	defer ticker.Stop()

	c.heartbeat()

	for c.token.Running() {
		select {
		case <-ticker.C:
			c.heartbeat()
		case aggressive, ok := <-c.wake:
			if !ok {
				return
			}
			if aggressive {
				c.emergencyCleanup(true)
			} else {
				c.standardCycle()
			}
			c.heartbeat()
		}
	}
}

// heartbeat implements spec.md §4.1's Heartbeat cycle plus the
// escalation rules layered on top of it.
func (c *Controller) heartbeat() {
	total, free, err := c.diskUsage(c.cfg.Root)
	if err != nil {
		c.logger.WithError(err).Error("storage heartbeat: disk usage probe failed")
		return
	}

	gcfg := c.globalCfg()
	normal, elevated, critical := resolveFloors(gcfg)
	var freePct float64
	if total > 0 {
		freePct = float64(free) / float64(total) * 100
	}
	level := classify(freePct, normal, elevated, critical)

	c.mu.Lock()
	prev := c.health.PressureLevel
	c.health = Health{
		PressureLevel:      level,
		FreeSpacePct:       freePct,
		FreeSpaceBytes:     free,
		TotalSpaceBytes:    total,
		UsedSpaceBytes:     total - free,
		LastCheckTime:      time.Now(),
		LastCleanupTime:    c.health.LastCleanupTime,
		LastDeepTime:       c.health.LastDeepTime,
		LastCleanupDeleted: c.health.LastCleanupDeleted,
		LastCleanupFreed:   c.health.LastCleanupFreed,
	}
	c.mu.Unlock()

	if prev != "" && prev != level {
		c.bus.Publish(eventbus.TopicStoragePressure, map[string]any{
			"previous": string(prev),
			"current":  string(level),
			"free_pct": freePct,
			"free_mb":  free / (1024 * 1024),
			"total_mb": total / (1024 * 1024),
		})
	} else if prev == "" {
		// first-ever heartbeat: publish the initial level so subscribers
		// that retained-read storage/pressure see something.
		c.bus.Publish(eventbus.TopicStoragePressure, map[string]any{
			"previous": string(level),
			"current":  string(level),
			"free_pct": freePct,
			"free_mb":  free / (1024 * 1024),
			"total_mb": total / (1024 * 1024),
		})
	}

	switch level {
	case PressureEmergency:
		c.emergencyCleanup(true)
		return
	case PressureCritical:
		c.mu.RLock()
		elapsed := time.Since(c.lastStandard)
		c.mu.RUnlock()
		if elapsed >= c.cfg.StandardPeriod/3 {
			c.standardCycle()
			return
		}
	}

	c.mu.RLock()
	deepDue := time.Since(c.lastDeep) >= c.cfg.DeepPeriod
	standardDue := time.Since(c.lastStandard) >= c.cfg.StandardPeriod
	c.mu.RUnlock()

	if deepDue {
		c.deepCycle()
	} else if standardDue {
		c.standardCycle()
	}
}

func resolveFloors(gcfg config.StorageConfig) (normal, elevated, critical float64) {
	normal = gcfg.PressureNormal
	if normal <= 0 {
		normal = constants.DefaultPressureNormalFloor
	}
	elevated = gcfg.PressureElevated
	if elevated <= 0 {
		elevated = constants.DefaultPressureElevatedFloor
	}
	critical = gcfg.PressureCritical
	if critical <= 0 {
		critical = constants.DefaultPressureCriticalFloor
	}
	return
}
