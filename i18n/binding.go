package i18n

import "sync/atomic"

// RenderFunc redraws a consumer with the engine's current language.
type RenderFunc func(e *Engine)

// Binding keeps a consumer in sync with the active language. It is the
// counterpart of a mounted component: create it on mount, Close it on teardown.
type Binding struct {
	engine  *Engine
	render  RenderFunc
	sub     Subscription
	renders atomic.Int64
	closed  atomic.Bool
}

// Bind renders once immediately and again on every language change until
// Close is called.
func Bind(engine *Engine, render RenderFunc) (*Binding, error) {
	if engine == nil {
		return nil, ErrEngineNil
	}
	b := &Binding{engine: engine, render: render}
	b.sub = engine.OnLanguageChanged(func(string) { b.draw() })
	b.draw()
	return b, nil
}

func (b *Binding) draw() {
	if b.closed.Load() {
		return
	}
	b.renders.Add(1)
	if b.render != nil {
		b.render(b.engine)
	}
}

// Renders returns how many times the binding has rendered.
func (b *Binding) Renders() int {
	return int(b.renders.Load())
}

// Close stops re-rendering. Calling it again has no effect.
func (b *Binding) Close() {
	if !b.closed.CompareAndSwap(false, true) {
		return
	}
	b.sub.Cancel()
}
