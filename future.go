package napi

import (
	"context"
	"runtime"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wippyai/napi-go/errors"
)

var validate = validator.New()

// FutureRuntimeConfig sizes a FutureRuntime.
type FutureRuntimeConfig struct {
	Workers   int `toml:"workers" validate:"min=1,max=4096"`
	QueueSize int `toml:"queue_size" validate:"min=1"`
}

// DefaultFutureRuntimeConfig uses one worker per CPU.
func DefaultFutureRuntimeConfig() FutureRuntimeConfig {
	return FutureRuntimeConfig{
		Workers:   runtime.NumCPU(),
		QueueSize: 1024,
	}
}

// LoadFutureRuntimeConfig reads a TOML file on top of
// DefaultFutureRuntimeConfig and validates it.
func LoadFutureRuntimeConfig(path string) (FutureRuntimeConfig, error) {
	cfg := DefaultFutureRuntimeConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FutureRuntimeConfig{}, errors.InvalidConfig("decode "+path, err)
	}
	if err := cfg.Validate(); err != nil {
		return FutureRuntimeConfig{}, err
	}
	return cfg, nil
}

// ParseFutureRuntimeConfig decodes TOML text on top of
// DefaultFutureRuntimeConfig and validates it.
func ParseFutureRuntimeConfig(text string) (FutureRuntimeConfig, error) {
	cfg := DefaultFutureRuntimeConfig()
	if err := toml.Unmarshal([]byte(text), &cfg); err != nil {
		return FutureRuntimeConfig{}, errors.InvalidConfig("decode future runtime config", err)
	}
	if err := cfg.Validate(); err != nil {
		return FutureRuntimeConfig{}, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c FutureRuntimeConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.InvalidConfig("future runtime", err)
	}
	return nil
}

// Message is one unit of work submitted to a FutureRuntime.
type Message struct {
	Task func(ctx context.Context)
}

// FutureRuntime runs submitted work on its own goroutines, apart from the
// host loop and the host worker pool.
type FutureRuntime struct {
	msgs   chan Message
	group  *errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.RWMutex
	closed bool
}

// NewFutureRuntime validates cfg and starts the workers.
func NewFutureRuntime(cfg FutureRuntimeConfig) (*FutureRuntime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	r := &FutureRuntime{
		msgs:   make(chan Message, cfg.QueueSize),
		group:  g,
		ctx:    gctx,
		cancel: cancel,
	}
	for range cfg.Workers {
		g.Go(r.work)
	}
	return r, nil
}

func (r *FutureRuntime) work() error {
	for m := range r.msgs {
		r.run(m)
	}
	return nil
}

func (r *FutureRuntime) run(m Message) {
	defer func() {
		if p := recover(); p != nil {
			Logger().Error("future task panicked", zap.Any("panic", p))
		}
	}()
	m.Task(r.ctx)
}

// Submit queues m without blocking. A full queue fails with QueueFull and a
// closed runtime with Closing.
func (r *FutureRuntime) Submit(m Message) error {
	if m.Task == nil {
		return errors.InvalidArg(errors.PhaseAsync, "nil task")
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return errors.Closing(errors.PhaseAsync, "future runtime is closed")
	}
	select {
	case r.msgs <- m:
		return nil
	default:
		return errors.QueueFull(errors.PhaseAsync, "future runtime queue is full")
	}
}

// Close stops accepting work and waits for queued work to finish. When ctx
// ends first, the context handed to running tasks is cancelled.
func (r *FutureRuntime) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.msgs)
	r.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- r.group.Wait() }()
	select {
	case err := <-done:
		r.cancel()
		return err
	case <-ctx.Done():
		r.cancel()
		return errors.Wrap(errors.PhaseAsync, errors.KindGenericFailure, ctx.Err(), "future runtime did not drain")
	}
}

var (
	defaultRuntime     *FutureRuntime
	defaultRuntimeOnce sync.Once
	defaultRuntimeErr  error
)

// DefaultFutureRuntime returns a process-wide runtime started on first use.
func DefaultFutureRuntime() (*FutureRuntime, error) {
	defaultRuntimeOnce.Do(func() {
		defaultRuntime, defaultRuntimeErr = NewFutureRuntime(DefaultFutureRuntimeConfig())
	})
	return defaultRuntime, defaultRuntimeErr
}

type futureResult[T any] struct {
	value T
	err   error
}

// ExecuteFuture runs fut on rt and returns a promise for its result. The
// result travels back to the host thread through a threadsafe queue, where
// resolve turns it into the fulfilment value. A nil rt uses the default
// runtime. Submission failures are returned and also reject the promise.
func ExecuteFuture[T any, V NapiValue](env Env, rt *FutureRuntime, fut func(ctx context.Context) (T, error),
	resolve func(env Env, v T) (V, error),
) (JsPromise, error) {
	if fut == nil || resolve == nil {
		return JsPromise{}, errors.InvalidArg(errors.PhaseAsync, "nil future or resolver")
	}
	if rt == nil {
		var err error
		if rt, err = DefaultFutureRuntime(); err != nil {
			return JsPromise{}, err
		}
	}

	deferred, p, st := env.api.CreatePromise(env.raw)
	if err := env.check(errors.PhaseAsync, st, "create_promise"); err != nil {
		return JsPromise{}, err
	}

	tsfn, err := CreateThreadsafeCallback(env, 1, func(c ThreadsafeCallContext[futureResult[T]]) error {
		guardSettle(c.Env, deferred, func() {
			if c.Value.err != nil {
				rejectWith(c.Env, deferred, c.Value.err, nil)
				return
			}
			v, err := resolve(c.Env, c.Value.value)
			if err != nil {
				rejectWith(c.Env, deferred, err, nil)
				return
			}
			resolveWith(c.Env, deferred, rawOf(v))
		})
		return nil
	})
	if err != nil {
		rejectWith(env, deferred, err, nil)
		return JsPromise{}, err
	}

	err = rt.Submit(Message{Task: func(ctx context.Context) {
		v, ferr := fut(ctx)
		if err := tsfn.Call(futureResult[T]{value: v, err: ferr}, Blocking); err != nil {
			Logger().Warn("future result dropped", zap.Error(err))
		}
		if err := tsfn.Release(); err != nil && !errors.Is(err, errors.ErrClosing) {
			Logger().Warn("failed to release future queue", zap.Error(err))
		}
	}})
	if err != nil {
		_ = tsfn.Abort()
		rejectWith(env, deferred, err, nil)
		return JsPromise{}, err
	}
	return JsPromise{JsObject{base{env: env, raw: p}}}, nil
}
