package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/uptimer-dev/uptimer/internal/models"
	"github.com/uptimer-dev/uptimer/internal/monitors"
	"github.com/uptimer-dev/uptimer/internal/services"
	"github.com/uptimer-dev/uptimer/internal/types"
	"go.uber.org/zap"
)

// Store is the persistence the scheduler needs. services.Store implements it.
type Store interface {
	GetMonitor(ctx context.Context, id uint) (*models.Monitor, error)
	ListMonitors(ctx context.Context, userID uint) ([]models.Monitor, error)
	ListActiveMonitors(ctx context.Context) ([]models.Monitor, error)
	CountActiveMonitors(ctx context.Context, userID uint) (int64, error)
	CreateMonitor(ctx context.Context, monitor *models.Monitor) error
	SaveMonitor(ctx context.Context, monitor *models.Monitor) error
	SetMonitorActive(ctx context.Context, id uint, active bool) error
	UpdateMonitorStatus(ctx context.Context, monitor *models.Monitor, ts time.Time, success bool) error
	DeleteMonitor(ctx context.Context, monitor *models.Monitor) error

	CreateHeartbeat(ctx context.Context, kind types.MonitorType, heartbeat *models.Heartbeat) error
	GetHeartbeats(ctx context.Context, kind types.MonitorType, monitorID uint, hours int) ([]models.Heartbeat, error)

	GetSSLMonitor(ctx context.Context, id uint) (*models.SSLMonitor, error)
	ListActiveSSLMonitors(ctx context.Context) ([]models.SSLMonitor, error)
	CreateSSLMonitor(ctx context.Context, monitor *models.SSLMonitor) error
	SaveSSLMonitor(ctx context.Context, monitor *models.SSLMonitor) error
	SetSSLMonitorActive(ctx context.Context, id uint, active bool) error
	UpdateSSLInfo(ctx context.Context, id uint, info *types.SSLInfo) error
	DeleteSSLMonitor(ctx context.Context, id uint) error
}

// Notifier delivers status notifications to a notification group.
type Notifier interface {
	Notify(ctx context.Context, group *models.NotificationGroup, template string, locals services.Locals) error
}

// Publisher pushes live updates to the subscribers of a user.
type Publisher interface {
	Publish(topic string, userID uint, payload interface{})
}

type Options struct {
	Location  *time.Location
	ClientURL string
	AppIcon   string
	Logger    *zap.Logger
}

// Scheduler owns the recurring jobs of every active monitor, SSL monitor
// and auto-refresh subscription.
type Scheduler struct {
	store     Store
	notifier  Notifier
	publisher Publisher
	logger    *zap.Logger

	jobs     *Jobs
	monitors *Tracker
	ssl      *Tracker

	clientURL string
	appIcon   string

	ctx    context.Context
	cancel context.CancelFunc

	now                func() time.Time
	stagger            func() time.Duration
	inspectCertificate func(ctx context.Context, url string) (*types.SSLInfo, error)
}

func New(store Store, notifier Notifier, publisher Publisher, opts Options) *Scheduler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		store:              store,
		notifier:           notifier,
		publisher:          publisher,
		logger:             logger,
		jobs:               NewJobs(opts.Location, logger),
		monitors:           NewTracker(),
		ssl:                NewTracker(),
		clientURL:          opts.ClientURL,
		appIcon:            opts.AppIcon,
		ctx:                ctx,
		cancel:             cancel,
		now:                time.Now,
		stagger:            randomStagger,
		inspectCertificate: monitors.CheckCertificate,
	}
}

func randomStagger() time.Duration {
	return time.Duration(300+rand.Intn(701)) * time.Millisecond
}

func MonitorKey(name string, id uint) string {
	return fmt.Sprintf("monitor-%s-%d", strings.ToLower(name), id)
}

func SSLKey(name string, id uint) string {
	return fmt.Sprintf("ssl-%s-%d", strings.ToLower(name), id)
}

func RefreshKey(username string) string {
	return "refresh-" + strings.ToLower(username)
}

// Jobs exposes the job registry.
func (s *Scheduler) Jobs() *Jobs {
	return s.jobs
}

// StartAllActiveMonitors schedules every active monitor of every user with a
// random pause between consecutive starts. Each start re-reads the monitor so
// edits made during the pauses are honoured.
func (s *Scheduler) StartAllActiveMonitors(ctx context.Context) error {
	list, err := s.store.ListActiveMonitors(ctx)
	if err != nil {
		return fmt.Errorf("list active monitors: %w", err)
	}

	for i := range list {
		if i > 0 {
			if err := s.pause(ctx); err != nil {
				return err
			}
		}

		if err := s.ResumeJob(ctx, list[i].ID); err != nil && !errors.Is(err, services.ErrNotFound) {
			s.logger.Error("failed to start monitor", zap.Uint("monitor_id", list[i].ID), zap.Error(err))
		}
	}

	s.logger.Info("active monitors scheduled", zap.Int("count", len(list)))

	return nil
}

func (s *Scheduler) StartAllActiveSSLMonitors(ctx context.Context) error {
	list, err := s.store.ListActiveSSLMonitors(ctx)
	if err != nil {
		return fmt.Errorf("list active ssl monitors: %w", err)
	}

	for i := range list {
		if i > 0 {
			if err := s.pause(ctx); err != nil {
				return err
			}
		}

		if err := s.ResumeSSLJob(ctx, list[i].ID); err != nil && !errors.Is(err, services.ErrNotFound) {
			s.logger.Error("failed to start ssl monitor", zap.Uint("ssl_monitor_id", list[i].ID), zap.Error(err))
		}
	}

	s.logger.Info("active ssl monitors scheduled", zap.Int("count", len(list)))

	return nil
}

func (s *Scheduler) pause(ctx context.Context) error {
	timer := time.NewTimer(s.stagger())
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// StartCreatedMonitor schedules the probe job of monitor, replacing any job
// already running under its key.
func (s *Scheduler) StartCreatedMonitor(monitor *models.Monitor) error {
	if !monitor.Type.Valid() {
		return fmt.Errorf("unsupported monitor type %q", monitor.Type)
	}

	id := monitor.ID
	key := MonitorKey(monitor.Name, id)

	if err := s.jobs.StartJob(key, monitor.Frequency, func() { s.runMonitor(id) }); err != nil {
		return fmt.Errorf("start %s: %w", key, err)
	}

	s.logger.Info("monitor scheduled", zap.String("job", key), zap.Int("frequency", monitor.Frequency))

	return nil
}

func (s *Scheduler) StartSSLMonitor(monitor *models.SSLMonitor) error {
	id := monitor.ID
	key := SSLKey(monitor.Name, id)

	if err := s.jobs.StartJob(key, monitor.Frequency, func() { s.runSSL(id) }); err != nil {
		return fmt.Errorf("start %s: %w", key, err)
	}

	s.logger.Info("ssl monitor scheduled", zap.String("job", key), zap.Int("frequency", monitor.Frequency))

	return nil
}

func (s *Scheduler) StopJob(key string) {
	s.jobs.StopJob(key)
}

func (s *Scheduler) StopMonitorJob(name string, id uint) {
	s.jobs.StopJob(MonitorKey(name, id))
}

func (s *Scheduler) StopSSLJob(name string, id uint) {
	s.jobs.StopJob(SSLKey(name, id))
}

// ResumeJob reloads the monitor and schedules it with its current
// configuration. Inactive monitors are left unscheduled.
func (s *Scheduler) ResumeJob(ctx context.Context, id uint) error {
	monitor, err := s.store.GetMonitor(ctx, id)
	if err != nil {
		return err
	}

	if !monitor.Active {
		s.StopMonitorJob(monitor.Name, monitor.ID)
		return nil
	}

	return s.StartCreatedMonitor(monitor)
}

func (s *Scheduler) ResumeSSLJob(ctx context.Context, id uint) error {
	monitor, err := s.store.GetSSLMonitor(ctx, id)
	if err != nil {
		return err
	}

	if !monitor.Active {
		s.StopSSLJob(monitor.Name, monitor.ID)
		return nil
	}

	return s.StartSSLMonitor(monitor)
}

var (
	ErrInvalidFrequency = errors.New("frequency must be greater than zero")
	ErrInvalidThreshold = errors.New("alert threshold must not be negative")
)

// ValidateMonitor checks the fields a monitor needs before it can be
// scheduled.
func ValidateMonitor(monitor *models.Monitor) error {
	if !monitor.Type.Valid() {
		return fmt.Errorf("unsupported monitor type %q", monitor.Type)
	}
	if monitor.Frequency <= 0 {
		return ErrInvalidFrequency
	}
	if monitor.AlertThreshold < 0 {
		return ErrInvalidThreshold
	}
	if _, err := monitor.ProbeConfig(); err != nil {
		return err
	}
	return nil
}

// CreateMonitor persists a new monitor and schedules it when active.
func (s *Scheduler) CreateMonitor(ctx context.Context, monitor *models.Monitor) error {
	if err := ValidateMonitor(monitor); err != nil {
		return err
	}

	if err := s.store.CreateMonitor(ctx, monitor); err != nil {
		return err
	}

	if monitor.Active {
		return s.StartCreatedMonitor(monitor)
	}

	return nil
}

// UpdateMonitor saves the edited monitor and reschedules it under its new
// key. previousName is the name the running job was keyed with.
func (s *Scheduler) UpdateMonitor(ctx context.Context, monitor *models.Monitor, previousName string) error {
	if err := ValidateMonitor(monitor); err != nil {
		return err
	}

	if err := s.store.SaveMonitor(ctx, monitor); err != nil {
		return err
	}

	s.StopMonitorJob(previousName, monitor.ID)

	if monitor.Active {
		return s.ResumeJob(ctx, monitor.ID)
	}

	return nil
}

// ToggleMonitor flips the active flag of monitor. Pausing the last active
// monitor of a user also stops their auto-refresh job.
func (s *Scheduler) ToggleMonitor(ctx context.Context, monitor *models.Monitor, username string) error {
	active := !monitor.Active

	if err := s.store.SetMonitorActive(ctx, monitor.ID, active); err != nil {
		return err
	}
	monitor.Active = active

	if active {
		return s.ResumeJob(ctx, monitor.ID)
	}

	s.StopMonitorJob(monitor.Name, monitor.ID)

	return s.stopRefreshIfIdle(ctx, monitor.UserID, username)
}

// DeleteMonitor stops the job before removing heartbeats and the monitor row.
// A tick already in flight finishes before anything is removed.
func (s *Scheduler) DeleteMonitor(ctx context.Context, monitor *models.Monitor, username string) error {
	err := s.jobs.StopJobAndWait(MonitorKey(monitor.Name, monitor.ID), func() error {
		s.monitors.Forget(monitor.ID)
		return s.store.DeleteMonitor(ctx, monitor)
	})
	if err != nil {
		return err
	}

	return s.stopRefreshIfIdle(ctx, monitor.UserID, username)
}

func (s *Scheduler) stopRefreshIfIdle(ctx context.Context, userID uint, username string) error {
	count, err := s.store.CountActiveMonitors(ctx, userID)
	if err != nil {
		return err
	}

	if count == 0 {
		s.DisableAutoRefresh(username)
	}

	return nil
}

func ValidateSSLMonitor(monitor *models.SSLMonitor) error {
	if !strings.HasPrefix(monitor.URL, "https://") {
		return monitors.ErrInsecureURL
	}
	if monitor.Frequency <= 0 {
		return ErrInvalidFrequency
	}
	if monitor.AlertThreshold < 0 {
		return ErrInvalidThreshold
	}
	return nil
}

func (s *Scheduler) CreateSSLMonitor(ctx context.Context, monitor *models.SSLMonitor) error {
	if err := ValidateSSLMonitor(monitor); err != nil {
		return err
	}

	if err := s.store.CreateSSLMonitor(ctx, monitor); err != nil {
		return err
	}

	if monitor.Active {
		return s.StartSSLMonitor(monitor)
	}

	return nil
}

func (s *Scheduler) UpdateSSLMonitor(ctx context.Context, monitor *models.SSLMonitor, previousName string) error {
	if err := ValidateSSLMonitor(monitor); err != nil {
		return err
	}

	if err := s.store.SaveSSLMonitor(ctx, monitor); err != nil {
		return err
	}

	s.StopSSLJob(previousName, monitor.ID)

	if monitor.Active {
		return s.ResumeSSLJob(ctx, monitor.ID)
	}

	return nil
}

func (s *Scheduler) ToggleSSLMonitor(ctx context.Context, monitor *models.SSLMonitor) error {
	active := !monitor.Active

	if err := s.store.SetSSLMonitorActive(ctx, monitor.ID, active); err != nil {
		return err
	}
	monitor.Active = active

	if active {
		return s.ResumeSSLJob(ctx, monitor.ID)
	}

	s.StopSSLJob(monitor.Name, monitor.ID)

	return nil
}

func (s *Scheduler) DeleteSSLMonitor(ctx context.Context, monitor *models.SSLMonitor) error {
	return s.jobs.StopJobAndWait(SSLKey(monitor.Name, monitor.ID), func() error {
		s.ssl.Forget(monitor.ID)
		return s.store.DeleteSSLMonitor(ctx, monitor.ID)
	})
}

// Shutdown stops the cron runner and lets in-flight ticks record their results
// until ctx is done. Ticks still running after that are cancelled.
func (s *Scheduler) Shutdown(ctx context.Context) {
	s.jobs.Stop(ctx)
	s.cancel()
	s.logger.Info("scheduler stopped")
}
