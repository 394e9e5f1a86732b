package scheduler

import (
	"context"

	"github.com/uptimer-dev/uptimer/internal/models"
	"github.com/uptimer-dev/uptimer/internal/services"
	"github.com/uptimer-dev/uptimer/internal/types"
	"go.uber.org/zap"
)

const (
	refreshInterval   = 10 // seconds
	refreshHeartbeats = 16
	uptimeWindowHours = 24
)

// MonitorSnapshot is a monitor with its latest heartbeats as published to
// live subscribers.
type MonitorSnapshot struct {
	models.Monitor
	Heartbeats []models.Heartbeat `json:"heartbeats"`
	Uptime     int                `json:"uptime"`
}

type MonitorsUpdated struct {
	UserID   uint              `json:"userId"`
	Monitors []MonitorSnapshot `json:"monitors"`
}

// EnableAutoRefresh publishes the active monitors of the user every ten
// seconds until DisableAutoRefresh is called.
func (s *Scheduler) EnableAutoRefresh(userID uint, username string) error {
	key := RefreshKey(username)

	return s.jobs.StartJob(key, refreshInterval, func() {
		s.publishMonitors(userID)
	})
}

func (s *Scheduler) DisableAutoRefresh(username string) {
	s.jobs.StopJob(RefreshKey(username))
}

// Snapshot collects the active monitors of a user with their latest
// heartbeats and 24 hour uptime.
func (s *Scheduler) Snapshot(ctx context.Context, userID uint) ([]MonitorSnapshot, error) {
	return s.summarize(ctx, userID, true)
}

// Summaries is Snapshot including paused monitors.
func (s *Scheduler) Summaries(ctx context.Context, userID uint) ([]MonitorSnapshot, error) {
	return s.summarize(ctx, userID, false)
}

func (s *Scheduler) summarize(ctx context.Context, userID uint, activeOnly bool) ([]MonitorSnapshot, error) {
	list, err := s.store.ListMonitors(ctx, userID)
	if err != nil {
		return nil, err
	}

	snapshots := make([]MonitorSnapshot, 0, len(list))

	for _, monitor := range list {
		if activeOnly && !monitor.Active {
			continue
		}

		heartbeats, err := s.store.GetHeartbeats(ctx, monitor.Type, monitor.ID, uptimeWindowHours)
		if err != nil {
			return nil, err
		}

		latest := heartbeats
		if len(latest) > refreshHeartbeats {
			latest = latest[:refreshHeartbeats]
		}

		snapshots = append(snapshots, MonitorSnapshot{
			Monitor:    monitor,
			Heartbeats: latest,
			Uptime:     services.UptimePercentage(heartbeats),
		})
	}

	return snapshots, nil
}

func (s *Scheduler) publishMonitors(userID uint) {
	ctx, cancel := context.WithTimeout(s.ctx, tickTimeout)
	defer cancel()

	snapshots, err := s.Snapshot(ctx, userID)
	if err != nil {
		s.logger.Error("failed to collect monitors for refresh", zap.Uint("user_id", userID), zap.Error(err))
		return
	}

	s.publisher.Publish(types.TopicMonitorsUpdated, userID, MonitorsUpdated{
		UserID:   userID,
		Monitors: snapshots,
	})
}
