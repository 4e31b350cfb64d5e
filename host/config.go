package host

import (
	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/wippyai/napi-go/errors"
	"github.com/wippyai/napi-go/sys"
)

var validate = validator.New()

// Capability thresholds. A host configured with a lower NapiVersion rejects
// calls into the corresponding module with GenericFailure.
const (
	VersionCleanupHooks = 3
	VersionThreadsafe   = 4
	VersionDates        = 5
	VersionBigint       = 6
	VersionInstanceData = 6
)

// Config holds host configuration.
type Config struct {
	// Version is the release string reported by GetHostVersion.
	Version string `toml:"version" validate:"required"`

	// HeapPages sizes the linear heap backing host-allocated buffers, in
	// 64KiB pages. The heap never grows, so views into it stay valid.
	HeapPages uint32 `toml:"heap_pages" validate:"min=1,max=32768"`

	// WorkerPoolSize bounds concurrently executing async work items.
	WorkerPoolSize int `toml:"worker_pool_size" validate:"min=1,max=1024"`

	// DefaultQueueSize is used for threadsafe functions created with a
	// negative max queue size. 0 means unbounded.
	DefaultQueueSize int `toml:"default_queue_size" validate:"min=0"`

	// GCThresholdBytes triggers a collection after a loop task once external
	// memory reaches it. 0 disables pressure-driven collection.
	GCThresholdBytes int64 `toml:"gc_threshold_bytes" validate:"min=0"`

	// NapiVersion selects the enabled capability modules.
	NapiVersion uint32 `toml:"napi_version" validate:"min=1,max=10"`
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return Config{
		Version:          "v1.0.0",
		HeapPages:        256,
		WorkerPoolSize:   4,
		DefaultQueueSize: 0,
		GCThresholdBytes: 0,
		NapiVersion:      8,
	}
}

// LoadConfig reads a TOML file on top of DefaultConfig and validates it.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, errors.InvalidConfig("decode "+path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseConfig decodes TOML text on top of DefaultConfig and validates it.
func ParseConfig(text string) (Config, error) {
	cfg := DefaultConfig()
	if err := toml.Unmarshal([]byte(text), &cfg); err != nil {
		return Config{}, errors.InvalidConfig("decode config", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.InvalidConfig("invalid host config", err)
	}
	return nil
}

// FatalHandler receives FatalError calls. The default logs and exits.
type FatalHandler func(location, message string)

// UncaughtHandler receives exceptions nobody observed: FatalException
// calls and exceptions left pending by host-initiated callbacks.
type UncaughtHandler func(err UncaughtError)

// UncaughtError describes an exception that reached the top level.
type UncaughtError struct {
	Message string
	Code    string
	Value   sys.Value
}

type options struct {
	cfg        Config
	logger     *zap.Logger
	onFatal    FatalHandler
	onUncaught UncaughtHandler
}

// Option configures a Host.
type Option func(*options)

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(o *options) {
		o.cfg = cfg
	}
}

// WithLogger sets the logger for lifecycle events.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithFatalHandler overrides the FatalError behaviour.
func WithFatalHandler(fn FatalHandler) Option {
	return func(o *options) {
		o.onFatal = fn
	}
}

// WithUncaughtExceptionHandler overrides the uncaught exception behaviour.
func WithUncaughtExceptionHandler(fn UncaughtHandler) Option {
	return func(o *options) {
		o.onUncaught = fn
	}
}

func newOptions(opts []Option) options {
	o := options{
		cfg:    DefaultConfig(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.onFatal == nil {
		log := o.logger
		o.onFatal = func(location, message string) {
			log.Fatal("fatal error", zap.String("location", location), zap.String("message", message))
		}
	}
	if o.onUncaught == nil {
		log := o.logger
		o.onUncaught = func(err UncaughtError) {
			log.Error("uncaught exception", zap.String("message", err.Message), zap.String("code", err.Code))
		}
	}
	return o
}
