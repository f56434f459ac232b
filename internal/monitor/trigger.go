package monitor

import (
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/packguard/packguard/internal/logger"
)

// DefaultInterval is the poll cadence when none is configured.
const DefaultInterval = 5 * time.Second

// settleDelay is the quiet period after a filesystem event before a poll is
// requested, so a file still being copied is not inspected half-written.
const settleDelay = 500 * time.Millisecond

// Trigger paces poll cycles. Each value received from Ticks starts one poll.
// Close releases the trigger; the monitor closes it when Run returns.
type Trigger interface {
	Ticks() <-chan struct{}
	Close() error
}

// pollTrigger fires on a fixed interval and, when fsw is set, shortly after
// a create or rename in a watched directory.
type pollTrigger struct {
	ticker *time.Ticker
	fsw    *fsnotify.Watcher
	out    chan struct{}
	done   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

// NewTicker returns a Trigger that fires every interval.
func NewTicker(interval time.Duration) Trigger {
	if interval <= 0 {
		interval = DefaultInterval
	}
	t := &pollTrigger{
		ticker: time.NewTicker(interval),
		out:    make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	t.start()
	return t
}

// NewWatchTrigger returns a Trigger that fires every interval and also wakes
// up early when entries are added to one of dirs. Directories that cannot be
// watched (for example because they do not exist yet) fall back to the
// interval alone.
func NewWatchTrigger(interval time.Duration, dirs []string) (Trigger, error) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("monitor: create fsnotify watcher: %w", err)
	}
	for _, d := range dirs {
		if err := fsw.Add(d); err != nil {
			logger.Debugf("monitor: not watching %s: %v", d, err)
		}
	}
	t := &pollTrigger{
		ticker: time.NewTicker(interval),
		fsw:    fsw,
		out:    make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	t.start()
	return t, nil
}

func (t *pollTrigger) Ticks() <-chan struct{} { return t.out }

func (t *pollTrigger) Close() error {
	var err error
	t.once.Do(func() {
		close(t.done)
		t.ticker.Stop()
		if t.fsw != nil {
			err = t.fsw.Close()
		}
		t.wg.Wait()
	})
	return err
}

func (t *pollTrigger) start() {
	var (
		events <-chan fsnotify.Event
		errs   <-chan error
	)
	if t.fsw != nil {
		events, errs = t.fsw.Events, t.fsw.Errors
	}
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		var settle <-chan time.Time
		for {
			select {
			case <-t.done:
				return
			case <-t.ticker.C:
				t.signal()
			case <-settle:
				settle = nil
				t.signal()
			case ev, ok := <-events:
				if !ok {
					events = nil
					continue
				}
				if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
					settle = time.After(settleDelay)
				}
			case err, ok := <-errs:
				if !ok {
					errs = nil
					continue
				}
				logger.Debugf("monitor: fsnotify: %v", err)
			}
		}
	}()
}

// signal coalesces ticks while a poll is still running.
func (t *pollTrigger) signal() {
	select {
	case t.out <- struct{}{}:
	default:
	}
}

// Manual is a Trigger driven by the caller, one poll per Fire.
type Manual struct {
	ch   chan struct{}
	done chan struct{}
	once sync.Once
}

// NewManual returns a Manual trigger.
func NewManual() *Manual {
	return &Manual{ch: make(chan struct{}), done: make(chan struct{})}
}

func (m *Manual) Ticks() <-chan struct{} { return m.ch }

// Fire blocks until the monitor picks up the tick. It returns false once the
// trigger has been closed, meaning no further poll will happen.
func (m *Manual) Fire() bool {
	select {
	case m.ch <- struct{}{}:
		return true
	case <-m.done:
		return false
	}
}

func (m *Manual) Close() error {
	m.once.Do(func() { close(m.done) })
	return nil
}
