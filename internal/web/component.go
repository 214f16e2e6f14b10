// Package web renders the message page: a polling page component that keeps the
// displayed message fresh, wrapped by an application shell that owns the layout
// and the global stylesheet.
package web

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/kafka-viewer/internal/message"
	"github.com/JakeFAU/kafka-viewer/internal/metrics"
)

// ErrAlreadyMounted is returned by Mount when the component is already polling.
var ErrAlreadyMounted = errors.New("page component already mounted")

// EnvelopeFetcher retrieves one proxy route envelope.
type EnvelopeFetcher interface {
	FetchEnvelope(ctx context.Context) (message.Envelope, error)
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// Config controls polling and display.
type Config struct {
	Title       string
	LinkURL     string
	Placeholder string
	Interval    time.Duration
	Threshold   int
	// SurfaceErrors exposes the last poll failure in the View. The displayed
	// message keeps its last good value either way.
	SurfaceErrors bool
}

// Result is the outcome of a single poll.
type Result struct {
	Message   string
	Err       error
	Started   time.Time
	Completed time.Time
}

// OK reports whether the poll produced a message.
func (r Result) OK() bool {
	return r.Err == nil
}

// View is an immutable snapshot of the component for rendering.
type View struct {
	Title          string
	LinkURL        string
	Message        string
	Label          string
	UpdatedAt      time.Time
	Error          string
	RefreshSeconds int
}

// Component owns the displayed message and the poll timer that refreshes it.
type Component struct {
	cfg     Config
	fetcher EnvelopeFetcher
	clock   Clock
	logger  *zap.Logger

	mu         sync.Mutex
	message    string
	updatedAt  time.Time
	lastErr    error
	mounted    bool
	generation uint64
	cancel     context.CancelFunc

	wg sync.WaitGroup
}

// NewComponent constructs an unmounted Component showing the placeholder.
func NewComponent(cfg Config, fetcher EnvelopeFetcher, clock Clock, logger *zap.Logger) *Component {
	if cfg.Placeholder == "" {
		cfg.Placeholder = message.DefaultPlaceholder
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = message.DefaultThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Component{
		cfg:     cfg,
		fetcher: fetcher,
		clock:   clock,
		logger:  logger,
		message: cfg.Placeholder,
	}
	metrics.SetMessageLength(message.Length(c.message))
	return c
}

// Mount starts the repeating poll. Each tick runs independently of the others,
// so a slow poll never delays the next tick and the last poll to complete wins.
func (c *Component) Mount(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mounted {
		return ErrAlreadyMounted
	}
	c.mounted = true
	c.generation++
	gen := c.generation

	pollCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	ticker := time.NewTicker(c.cfg.Interval)

	c.wg.Add(1)
	go c.loop(pollCtx, ticker, gen)
	c.logger.Info("page component mounted", zap.Duration("interval", c.cfg.Interval))
	return nil
}

// Unmount stops the poll timer, cancels in-flight polls and waits for them to
// return. Their results are discarded and the displayed message is reset.
// It is safe to call more than once.
func (c *Component) Unmount() {
	c.mu.Lock()
	if !c.mounted {
		c.mu.Unlock()
		return
	}
	c.mounted = false
	c.generation++
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()

	cancel()
	c.wg.Wait()

	c.mu.Lock()
	c.message = c.cfg.Placeholder
	c.updatedAt = time.Time{}
	c.lastErr = nil
	c.mu.Unlock()
	c.logger.Info("page component unmounted")
}

// Mounted reports whether the poll timer is active.
func (c *Component) Mounted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mounted
}

func (c *Component) loop(ctx context.Context, ticker *time.Ticker, gen uint64) {
	defer c.wg.Done()
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.wg.Add(1)
			go func() {
				defer c.wg.Done()
				c.apply(gen, c.Poll(ctx))
			}()
		}
	}
}

// Poll performs one fetch through the proxy route without touching component state.
func (c *Component) Poll(ctx context.Context) Result {
	metrics.IncInflightPolls()
	defer metrics.DecInflightPolls()

	res := Result{Started: c.clock.Now()}
	env, err := c.fetcher.FetchEnvelope(ctx)
	res.Completed = c.clock.Now()
	if err != nil {
		res.Err = err
		metrics.ObservePoll(metrics.OutcomeError)
		return res
	}
	res.Message = env.Message
	metrics.ObservePoll(metrics.OutcomeSuccess)
	return res
}

func (c *Component) apply(gen uint64, res Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return
	}
	if !res.OK() {
		c.lastErr = res.Err
		c.logger.Warn("poll failed; keeping last message", zap.Error(res.Err))
		return
	}
	c.message = res.Message
	c.updatedAt = res.Completed
	c.lastErr = nil
	metrics.SetMessageLength(message.Length(res.Message))
}

// Message returns the displayed message.
func (c *Component) Message() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.message
}

// lastError returns the most recent poll failure since the last success.
func (c *Component) lastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// View snapshots the component for rendering.
func (c *Component) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := View{
		Title:          c.cfg.Title,
		LinkURL:        c.cfg.LinkURL,
		Message:        c.message,
		Label:          message.Label(c.message, c.cfg.Threshold),
		UpdatedAt:      c.updatedAt,
		RefreshSeconds: int((c.cfg.Interval + time.Second - 1) / time.Second),
	}
	if c.cfg.SurfaceErrors && c.lastErr != nil {
		v.Error = "Unable to reach the message service; showing the last received message."
	}
	return v
}
