package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/robfig/cron/v3"
)

// Cron runs named recurring tasks. Registering a name again replaces the
// previous entry, so a task is never scheduled twice.
type Cron struct {
	mu      sync.Mutex
	cron    *cron.Cron
	entries map[string]cron.EntryID
}

// NewCron creates a cron whose tasks never overlap with themselves.
func NewCron() *Cron {
	logger := cron.PrintfLogger(log.Default())
	return &Cron{
		cron:    cron.New(cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger))),
		entries: make(map[string]cron.EntryID),
	}
}

// Register schedules fn under name with a standard cron spec or a
// descriptor such as "@every 5m".
func (c *Cron) Register(name, spec string, fn func()) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	id, err := c.cron.AddFunc(spec, fn)
	if err != nil {
		return fmt.Errorf("invalid schedule %q for %s: %w", spec, name, err)
	}
	if old, ok := c.entries[name]; ok {
		c.cron.Remove(old)
	}
	c.entries[name] = id
	log.Printf("[scheduler] registered %s (%s)", name, spec)
	return nil
}

// Len returns the number of registered tasks.
func (c *Cron) Len() int {
	return len(c.cron.Entries())
}

func (c *Cron) Start() {
	c.cron.Start()
}

// Stop stops scheduling and returns a context done when running tasks finish.
func (c *Cron) Stop() context.Context {
	return c.cron.Stop()
}
