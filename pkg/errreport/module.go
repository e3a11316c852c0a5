package errreport

import (
	"sort"
	"sync"

	"github.com/kadisoka/foundation/pkg/errors"
)

type Module struct {
	ConfigSkeleton func() interface{} // returns pointer
	NewReporter    func(config interface{}) (Reporter, error)
}

var (
	modules   = map[string]Module{}
	modulesMu sync.RWMutex
)

func ModuleNames() []string {
	modulesMu.RLock()
	defer modulesMu.RUnlock()

	var names []string
	for name := range modules {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

func RegisterModule(
	moduleName string,
	module Module,
) {
	modulesMu.Lock()
	defer modulesMu.Unlock()

	if _, dup := modules[moduleName]; dup {
		panic("called twice for module " + moduleName)
	}
	if module.NewReporter == nil {
		panic("module " + moduleName + " has no NewReporter")
	}

	modules[moduleName] = module
}

// New instantiates the reporter of the named module. An empty name
// gives the NULL reporter.
func New(
	moduleName string, config interface{},
) (Reporter, error) {
	if moduleName == "" {
		return NULL(), nil
	}

	modulesMu.RLock()
	module, ok := modules[moduleName]
	modulesMu.RUnlock()
	if !ok {
		return nil, errors.ArgMsg("moduleName", "unknown module "+moduleName)
	}

	if config == nil && module.ConfigSkeleton != nil {
		config = module.ConfigSkeleton()
	}

	reporter, err := module.NewReporter(config)
	if err != nil {
		return nil, errors.Wrap(moduleName+" reporter instantiation", err)
	}
	return reporter, nil
}

// NewFromConfig instantiates the reporter selected by cfg.
func NewFromConfig(cfg Config) (Reporter, error) {
	return New(cfg.Reporter, cfg.Modules[cfg.Reporter])
}

func ModuleConfigSkeletons() map[string]interface{} {
	modulesMu.RLock()
	defer modulesMu.RUnlock()

	configs := map[string]interface{}{}
	for moduleName, module := range modules {
		if module.ConfigSkeleton != nil {
			configs[moduleName] = module.ConfigSkeleton()
		}
	}

	return configs
}
