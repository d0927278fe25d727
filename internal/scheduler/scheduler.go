// Package scheduler broadcasts configured chat messages on fixed intervals.
//
// Messages sharing an interval form one bucket. Each bucket owns a
// repeating timer and sends its messages round-robin, one per tick.
package scheduler

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/roach88/msgpulse/internal/config"
	"github.com/roach88/msgpulse/internal/host"
)

// DefaultInterval applies when neither the message nor the file sets a
// positive interval.
const DefaultInterval = 60 * time.Second

// Broadcaster sends a message to every valid player. Implemented by
// message.Processor.
type Broadcaster interface {
	SendToAll(msg string)
}

// Bucket is a group of messages sent on the same interval.
type Bucket struct {
	Interval time.Duration
	Messages []string
}

// Scheduler owns the broadcast timers.
type Scheduler struct {
	sender Broadcaster
	timers host.Timers
	logger *slog.Logger

	mu      sync.Mutex
	cancels []func()
	buckets []Bucket
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// New creates a Scheduler with no timers running.
func New(sender Broadcaster, timers host.Timers, opts ...Option) *Scheduler {
	s := &Scheduler{
		sender: sender,
		timers: timers,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Plan groups the broadcast-enabled, non-blank messages of cfg by interval.
// Buckets appear in the order their interval is first seen; messages keep
// their file order within a bucket.
func Plan(cfg config.ChatBroadcast) []Bucket {
	def := DefaultInterval
	if cfg.DefaultIntervalSeconds > 0 {
		def = seconds(cfg.DefaultIntervalSeconds)
	}

	var buckets []Bucket
	index := make(map[time.Duration]int)
	for _, msg := range cfg.Messages {
		if !msg.Broadcast || strings.TrimSpace(msg.Message) == "" {
			continue
		}
		interval := def
		if msg.Interval > 0 {
			interval = seconds(msg.Interval)
		}
		i, ok := index[interval]
		if !ok {
			i = len(buckets)
			index[interval] = i
			buckets = append(buckets, Bucket{Interval: interval})
		}
		buckets[i].Messages = append(buckets[i].Messages, msg.Message)
	}
	return buckets
}

// Initialize stops any running timers and starts one per bucket of cfg.
// The first message of a bucket goes out one interval after Initialize.
// It returns the number of timers started.
func (s *Scheduler) Initialize(cfg config.ChatBroadcast, hotReload bool) int {
	s.Release()

	buckets := Plan(cfg)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range buckets {
		s.cancels = append(s.cancels, s.timers.Repeat(b.Interval, b.Interval, rotate(s.sender, b.Messages)))
	}
	s.buckets = buckets

	s.logger.Info("chat broadcast initialized",
		"timers", len(buckets),
		"hot_reload", hotReload,
	)
	return len(buckets)
}

// Buckets returns the buckets currently scheduled.
func (s *Scheduler) Buckets() []Bucket {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Bucket, len(s.buckets))
	copy(out, s.buckets)
	return out
}

// Release cancels every timer. It is safe to call more than once.
func (s *Scheduler) Release() {
	s.mu.Lock()
	cancels := s.cancels
	s.cancels = nil
	s.buckets = nil
	s.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

// rotate returns a tick callback that sends msgs in turn.
func rotate(sender Broadcaster, msgs []string) func() {
	var mu sync.Mutex
	next := 0
	return func() {
		mu.Lock()
		msg := msgs[next]
		next = (next + 1) % len(msgs)
		mu.Unlock()

		sender.SendToAll(msg)
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
