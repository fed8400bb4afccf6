/*
scheduler.go - Automated month-rollover scheduler

PURPOSE:
  Periodically walks every known user and runs the month-rollover check,
  so a finished month gets archived even when its owner hasn't opened the
  home view since the calendar turned. The check is idempotent, so the
  scheduler and on-demand invocations can race harmlessly.

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewRolloverScheduler(store, handler)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - ledger/rollover.go: The idempotent rollover check
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/warp/dealdesk/ledger"
)

// RolloverScheduler handles automated month-end archival.
type RolloverScheduler struct {
	Store         ledger.Store
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewRolloverScheduler creates a new scheduler.
func NewRolloverScheduler(store ledger.Store, handler *Handler) *RolloverScheduler {
	return &RolloverScheduler{
		Store:         store,
		Handler:       handler,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (rs *RolloverScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.wg.Add(1)

	go rs.run()

	log.Printf("[Scheduler] Started with check interval: %v", rs.CheckInterval)
}

// Stop stops the scheduler.
func (rs *RolloverScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		log.Println("[Scheduler] Stopped")
	}
}

func (rs *RolloverScheduler) run() {
	defer rs.wg.Done()

	// Run immediately on start
	rs.checkAndProcess()

	for {
		select {
		case <-rs.ticker.C:
			rs.checkAndProcess()
		case <-rs.stop:
			return
		}
	}
}

func (rs *RolloverScheduler) checkAndProcess() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	users, err := rs.Store.ListUsers(ctx)
	if err != nil {
		log.Printf("[Scheduler] Failed to list users: %v", err)
		return
	}

	for _, userID := range users {
		result, err := rs.Handler.Archiver.EnsureCurrentMonth(ctx, userID)
		if err != nil {
			log.Printf("[Scheduler] Rollover check failed for user %s: %v", userID, err)
			continue
		}
		if result.Rolled && result.ArchivedMonth != "" {
			log.Printf("[Scheduler] Archived month %s for user %s", result.ArchivedMonth, userID)
		}
	}
}
