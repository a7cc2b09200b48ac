package scheduler

import (
	"context"
	"log"
	"time"

	"crypto_screener_backend/services"
	"crypto_screener_backend/services/collector"
	"crypto_screener_backend/services/indexer"
	"crypto_screener_backend/services/screener"

	"github.com/go-co-op/gocron"
)

// Tick periods. Broadcast is deliberately much faster than collection;
// it reads the live source, not the store.
const (
	BroadcastPeriod  = 10 * time.Second
	CollectionPeriod = 5 * time.Minute
	IndexSyncPeriod  = 6 * time.Hour
	jobTimeout       = 2 * time.Minute
)

// Scheduler manages the periodic background jobs
type Scheduler struct {
	cron      *gocron.Scheduler
	collector *collector.Service
	indexer   *indexer.Service
	screener  *screener.Service
	realtime  *services.RealtimeService
}

// NewScheduler creates a new scheduler instance
func NewScheduler(col *collector.Service, idx *indexer.Service, scr *screener.Service, rt *services.RealtimeService) *Scheduler {
	return &Scheduler{
		cron:      gocron.NewScheduler(time.UTC),
		collector: col,
		indexer:   idx,
		screener:  scr,
		realtime:  rt,
	}
}

// Start registers and starts all periodic jobs
func (s *Scheduler) Start() {
	log.Println("Starting scheduler...")

	// Fan the live screener payload out to subscribers
	s.cron.Every(BroadcastPeriod).Do(func() {
		s.broadcastLiveUpdate()
	})

	// Collect watch-list history across all intervals
	s.cron.Every(CollectionPeriod).Do(func() {
		s.collectMarketData()
	})

	// Reconcile the ticker index against the remote universe
	s.cron.Every(IndexSyncPeriod).Do(func() {
		s.syncTickerIndex()
	})

	// Prune history beyond the retention window daily at 01:00 UTC
	s.cron.Every(1).Day().At("01:00").Do(func() {
		s.pruneHistory()
	})

	s.cron.StartAsync()

	// Populate the index right away so search and watch-list validation
	// work before the first six-hour tick.
	go s.syncTickerIndex()

	log.Println("Scheduler started successfully")
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("Scheduler stopped")
}

// broadcastLiveUpdate computes one live payload and sends it to every
// connected subscriber. Skipped entirely while nobody is listening.
func (s *Scheduler) broadcastLiveUpdate() {
	if s.realtime.ClientCount() == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), BroadcastPeriod)
	defer cancel()

	payload := s.screener.GetTopMovers(ctx, screener.DefaultLimit, "", true)
	s.realtime.BroadcastMessage("market_update", payload)
}

// collectMarketData runs one collection cycle. Errors are contained here;
// the next tick retries.
func (s *Scheduler) collectMarketData() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if err := s.collector.CollectAll(ctx); err != nil {
		log.Printf("Collector error: %v", err)
	}
}

// syncTickerIndex runs one universe reconciliation cycle
func (s *Scheduler) syncTickerIndex() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if _, err := s.indexer.SyncTickers(ctx); err != nil {
		log.Printf("Indexer error: %v", err)
	}
}

// pruneHistory removes history beyond the retention window
func (s *Scheduler) pruneHistory() {
	if err := s.collector.PurgeOldData(); err != nil {
		log.Printf("Prune error: %v", err)
	}
}
