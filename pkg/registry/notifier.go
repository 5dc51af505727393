package registry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

// DefaultNotifyCooldown is how long an identical failure message stays
// suppressed.
const DefaultNotifyCooldown = 60 * time.Second

// Notifier surfaces registry failures to the user.
type Notifier interface {
	Notify(ctx context.Context, msg string)
}

// NotifierFunc adapts a function to [Notifier].
type NotifierFunc func(ctx context.Context, msg string)

func (f NotifierFunc) Notify(ctx context.Context, msg string) { f(ctx, msg) }

// LogNotifier writes notifications as warnings.
type LogNotifier struct {
	Logger *log.Logger
}

func (n LogNotifier) Notify(_ context.Context, msg string) {
	logger := n.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Warn(msg)
}

// CooldownNotifier drops repeats of a message until its cooldown elapses.
type CooldownNotifier struct {
	next     Notifier
	cooldown time.Duration

	mu    sync.Mutex
	gates map[string]*rate.Sometimes
}

// NewCooldownNotifier wraps next. A non-positive cooldown disables
// suppression.
func NewCooldownNotifier(next Notifier, cooldown time.Duration) *CooldownNotifier {
	return &CooldownNotifier{
		next:     next,
		cooldown: cooldown,
		gates:    make(map[string]*rate.Sometimes),
	}
}

// Notify forwards msg unless the same text was forwarded within the cooldown.
func (n *CooldownNotifier) Notify(ctx context.Context, msg string) {
	if n.cooldown <= 0 {
		n.next.Notify(ctx, msg)
		return
	}

	n.mu.Lock()
	gate, ok := n.gates[msg]
	if !ok {
		gate = &rate.Sometimes{Interval: n.cooldown}
		n.gates[msg] = gate
	}
	n.mu.Unlock()

	gate.Do(func() { n.next.Notify(ctx, msg) })
}

// failureMessage turns a fetch error into a user-facing message. Messages
// are stable per registry and cause so the cooldown can collapse repeats.
func failureMessage(registry string, err error) string {
	switch {
	case errors.Is(err, ErrRateLimited):
		return "GitHub rate limit reached while reading " + registry + ". Configure a GitHub token to raise the limit."
	case errors.Is(err, ErrUnauthorized):
		return "GitHub refused access to " + registry + ". Check the configured GitHub token."
	case errors.Is(err, ErrUpstreamDown):
		return "GitHub is unavailable; skipping checks against " + registry + " for now."
	}
	return "Failed to read registry " + registry + "."
}
