package i18n

import (
	"fmt"
	"regexp"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/GoCodeAlone/micropods"
)

// LanguageChangedFunc is notified with the new active language.
type LanguageChangedFunc func(lang string)

// Subscription is returned by OnLanguageChanged. Cancel is idempotent.
type Subscription interface {
	Cancel()
}

// Engine resolves message keys against the active language of a resource
// table. It is safe for concurrent use.
type Engine struct {
	mu        sync.RWMutex
	table     ResourceTable
	language  string
	fallback  string
	listeners []*listener
	logger    micropods.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger micropods.Logger) Option {
	return func(e *Engine) { e.logger = micropods.LoggerOrNop(logger) }
}

// WithFallbackLanguage makes T consult lang before returning a raw key.
func WithFallbackLanguage(lang string) Option {
	return func(e *Engine) { e.fallback = canonicalOrRaw(lang) }
}

// New creates an engine over a copy of table with defaultLanguage active.
func New(table ResourceTable, defaultLanguage string, opts ...Option) *Engine {
	e := &Engine{
		table:    table.clone(),
		language: canonicalOrRaw(defaultLanguage),
		logger:   micropods.NopLogger{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if !e.table.Has(e.language) {
		e.logger.Warn("Default language has no resources", "language", e.language)
	}
	return e
}

// Language returns the active language.
func (e *Engine) Language() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.language
}

// Languages returns the languages with resources.
func (e *Engine) Languages() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.table.Languages()
}

// T returns the message for key in the active language, or key itself.
func (e *Engine) T(key string) string {
	msg, _ := e.lookup(key)
	return msg
}

// Exists reports whether key resolves in the active language.
func (e *Engine) Exists(key string) bool {
	_, ok := e.lookup(key)
	return ok
}

func (e *Engine) lookup(key string) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if msg, ok := e.table.Lookup(e.language, key); ok {
		return msg, true
	}
	if e.fallback != "" && e.fallback != e.language {
		if msg, ok := e.table.Lookup(e.fallback, key); ok {
			return msg, true
		}
	}
	return key, false
}

var placeholder = regexp.MustCompile(`\{\{\s*([^{}\s]+)\s*\}\}`)

// Tf is T with {{name}} placeholders replaced from vars. Unknown placeholders
// are left as written.
func (e *Engine) Tf(key string, vars map[string]any) string {
	msg := e.T(key)
	if len(vars) == 0 {
		return msg
	}
	return placeholder.ReplaceAllStringFunc(msg, func(m string) string {
		name := placeholder.FindStringSubmatch(m)[1]
		if v, ok := vars[name]; ok {
			return fmt.Sprint(v)
		}
		return m
	})
}

// ChangeLanguage activates code and notifies every listener once, on the
// calling goroutine, before returning. A code without resources is accepted and
// makes T return raw keys.
func (e *Engine) ChangeLanguage(code string) {
	lang := canonicalOrRaw(code)

	e.mu.Lock()
	e.language = lang
	listeners := e.listeners
	known := e.table.Has(lang)
	e.mu.Unlock()

	if !known {
		e.logger.Warn("Language has no resources, keys will render raw", "language", lang)
	}
	e.logger.Debug("Language changed", "language", lang, "listeners", len(listeners))

	for _, l := range listeners {
		if l.cancelled.Load() {
			continue
		}
		e.notify(l, lang)
	}
}

func (e *Engine) notify(l *listener, lang string) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Language listener panicked", "language", lang, "panic", r)
		}
	}()
	l.fn(lang)
}

type listener struct {
	fn        LanguageChangedFunc
	engine    *Engine
	cancelled atomic.Bool
}

func (l *listener) Cancel() {
	if !l.cancelled.CompareAndSwap(false, true) {
		return
	}
	e := l.engine
	e.mu.Lock()
	defer e.mu.Unlock()
	idx := slices.Index(e.listeners, l)
	if idx < 0 {
		return
	}
	next := make([]*listener, 0, len(e.listeners)-1)
	next = append(next, e.listeners[:idx]...)
	e.listeners = append(next, e.listeners[idx+1:]...)
}

// OnLanguageChanged registers fn for language change notifications. A nil fn
// returns a subscription that does nothing.
func (e *Engine) OnLanguageChanged(fn LanguageChangedFunc) Subscription {
	l := &listener{fn: fn, engine: e}
	if fn == nil {
		l.cancelled.Store(true)
		return l
	}
	e.mu.Lock()
	e.listeners = append(e.listeners, l)
	e.mu.Unlock()
	return l
}

// ListenerCount returns the number of live language listeners.
func (e *Engine) ListenerCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.listeners)
}

var (
	defaultMu     sync.Mutex
	defaultEngine *Engine
)

// Initialize creates the process-wide engine. It must be called once; later
// calls return the existing engine together with ErrAlreadyInitialized.
func Initialize(table ResourceTable, defaultLanguage string, opts ...Option) (*Engine, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultEngine != nil {
		return defaultEngine, ErrAlreadyInitialized
	}
	defaultEngine = New(table, defaultLanguage, opts...)
	return defaultEngine, nil
}

// Default returns the process-wide engine created by Initialize.
func Default() (*Engine, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultEngine == nil {
		return nil, ErrNotInitialized
	}
	return defaultEngine, nil
}
