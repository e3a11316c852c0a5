package errreport

import (
	"errors"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru"
	"github.com/jonboulle/clockwork"
)

const LogModuleName = "log"

type LogReporterConfig struct {
	// Identical messages within this window are logged once.
	DedupWindow time.Duration `env:"DEDUP_WINDOW"`
	// Number of distinct messages remembered for deduplication.
	CacheSize int `env:"CACHE_SIZE"`
}

func LogReporterConfigSkeleton() LogReporterConfig {
	return LogReporterConfig{
		DedupWindow: time.Minute,
		CacheSize:   128,
	}
}

func init() {
	RegisterModule(
		LogModuleName,
		Module{
			ConfigSkeleton: func() interface{} { cfg := LogReporterConfigSkeleton(); return &cfg },
			NewReporter: func(config interface{}) (Reporter, error) {
				conf, ok := config.(*LogReporterConfig)
				if !ok {
					return nil, errors.New("configuration of invalid type")
				}
				return NewLogReporter(*conf, nil)
			},
		})
}

// LogReporter writes reports as error log entries.
type LogReporter struct {
	dedupWindow time.Duration
	clock       clockwork.Clock

	mu       sync.Mutex
	lastSeen *lru.Cache
}

var _ Reporter = &LogReporter{}

// NewLogReporter creates a LogReporter. clock may be nil.
func NewLogReporter(
	config LogReporterConfig,
	clock clockwork.Clock,
) (*LogReporter, error) {
	cacheSize := config.CacheSize
	if cacheSize <= 0 {
		cacheSize = LogReporterConfigSkeleton().CacheSize
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, err
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &LogReporter{
		dedupWindow: config.DedupWindow,
		clock:       clock,
		lastSeen:    cache,
	}, nil
}

func (reporter *LogReporter) Report(err error) {
	if err == nil {
		return
	}
	if !reporter.shouldLog(err.Error()) {
		return
	}
	log.Error().Err(err).Msg("Reported error")
}

// shouldLog tells whether msg hasn't been logged within the window, and
// records it as logged if so.
func (reporter *LogReporter) shouldLog(msg string) bool {
	if reporter.dedupWindow <= 0 {
		return true
	}
	now := reporter.clock.Now()

	reporter.mu.Lock()
	defer reporter.mu.Unlock()

	if v, ok := reporter.lastSeen.Get(msg); ok {
		if last, _ := v.(time.Time); now.Sub(last) < reporter.dedupWindow {
			return false
		}
	}
	reporter.lastSeen.Add(msg, now)
	return true
}
