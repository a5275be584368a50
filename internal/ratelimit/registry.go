package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter names used for the protected endpoint categories.
const (
	NameChatbot  = "chatbot"
	NameFeedback = "feedback"
	NameGeneral  = "general"
)

// Registry owns the independent limiters of one process.
type Registry struct {
	Chatbot  *FixedWindow
	Feedback *FixedWindow
	General  *FixedWindow
}

// NewRegistry builds one limiter per endpoint category.
// opts are applied to every limiter after its name.
func NewRegistry(chatbot, feedback, general Config, opts ...Option) *Registry {
	build := func(name string, cfg Config) *FixedWindow {
		return NewFromConfig(cfg, append([]Option{WithName(name)}, opts...)...)
	}
	return &Registry{
		Chatbot:  build(NameChatbot, chatbot),
		Feedback: build(NameFeedback, feedback),
		General:  build(NameGeneral, general),
	}
}

// All returns the limiters in a stable order.
func (r *Registry) All() []*FixedWindow {
	return []*FixedWindow{r.Chatbot, r.Feedback, r.General}
}

// Clear empties every limiter.
func (r *Registry) Clear() {
	for _, l := range r.All() {
		l.Clear()
	}
}

// RunJanitors runs a janitor per limiter and returns once ctx is done
// and all janitors have stopped.
func (r *Registry) RunJanitors(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	var wg sync.WaitGroup
	for _, l := range r.All() {
		wg.Add(1)
		go func(l *FixedWindow) {
			defer wg.Done()
			l.RunJanitor(ctx, interval)
		}(l)
	}
	wg.Wait()
}
