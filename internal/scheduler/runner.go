package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptimer-dev/uptimer/internal/models"
	"github.com/uptimer-dev/uptimer/internal/monitors"
	"github.com/uptimer-dev/uptimer/internal/services"
	"github.com/uptimer-dev/uptimer/internal/types"
	"go.uber.org/zap"
)

const tickTimeout = time.Minute

// Outcome classifies one probe execution.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeFailedAssertion
	OutcomeTransportError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailedAssertion:
		return "failed assertion"
	default:
		return "transport error"
	}
}

type tickResult struct {
	outcome   Outcome
	heartbeat models.Heartbeat
	reason    error
}

func failure(outcome Outcome, code int, message string, responseTime int64, reason error) tickResult {
	return tickResult{
		outcome: outcome,
		reason:  reason,
		heartbeat: models.Heartbeat{
			Status:       types.StatusDown,
			Code:         code,
			Message:      message,
			ResponseTime: responseTime,
		},
	}
}

// runMonitor is one scheduled tick of a monitor. The monitor is re-read so
// that edits between ticks are honoured; inactive or deleted monitors are
// skipped.
func (s *Scheduler) runMonitor(id uint) {
	ctx, cancel := context.WithTimeout(s.ctx, tickTimeout)
	defer cancel()

	logger := s.logger.With(zap.Uint("monitor_id", id), zap.String("tick_id", uuid.NewString()))

	monitor, err := s.store.GetMonitor(ctx, id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			logger.Debug("monitor no longer exists, skipping tick")
		} else {
			logger.Error("failed to load monitor", zap.Error(err))
		}
		return
	}

	if !monitor.Active {
		logger.Debug("monitor inactive, skipping tick")
		return
	}

	res := s.probe(ctx, monitor)

	hb := res.heartbeat
	hb.MonitorID = monitor.ID
	hb.Timestamp = s.now()

	if err := s.store.CreateHeartbeat(ctx, monitor.Type, &hb); err != nil {
		logger.Error("failed to record heartbeat, tick result lost", zap.Error(err))
	}

	success := res.outcome == OutcomeSuccess

	if err := s.store.UpdateMonitorStatus(ctx, monitor, hb.Timestamp, success); err != nil {
		logger.Error("failed to update monitor status", zap.Error(err))
	}

	if success {
		logger.Debug("monitor check succeeded", zap.Int64("response_time", hb.ResponseTime))

		if s.monitors.Success(monitor.ID) {
			s.notify(ctx, monitor.Notifications, types.TemplateSuccessStatus, monitor.Name, hb.Message)
		}
		return
	}

	logger.Info("monitor check failed",
		zap.String("type", string(monitor.Type)),
		zap.Stringer("outcome", res.outcome),
		zap.Int("code", hb.Code),
		zap.String("message", hb.Message),
		zap.NamedError("reason", res.reason),
	)

	if s.monitors.Failure(monitor.ID, monitor.AlertThreshold) {
		s.notify(ctx, monitor.Notifications, types.TemplateErrorStatus, monitor.Name, hb.Message)
	}
}

// probe runs the protocol check of monitor. A panic inside a probe is turned
// into a transport error.
func (s *Scheduler) probe(ctx context.Context, monitor *models.Monitor) (res tickResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("monitor check panicked", zap.Uint("monitor_id", monitor.ID), zap.Any("panic", r))
			res = failure(OutcomeTransportError, 500, "Monitor check failed", 0, fmt.Errorf("panic: %v", r))
		}
	}()

	cfg, err := monitor.ProbeConfig()
	if err != nil {
		return failure(OutcomeTransportError, 500, err.Error(), 0, err)
	}

	switch c := cfg.(type) {
	case *types.HttpConfig:
		return s.probeHTTP(ctx, monitor.URL, c)
	case *types.TCPConfig:
		resp, err := monitors.CheckTCP(ctx, monitor.URL, c.Port, time.Duration(c.Timeout)*time.Millisecond)
		return connectionResult(resp, err, types.ConnectionEstablished)
	case *types.ConnectionConfig:
		var resp monitors.Response
		if c.Type == types.MongoDB {
			resp, err = monitors.CheckMongo(ctx, monitor.URL)
		} else {
			resp, err = monitors.CheckRedis(ctx, monitor.URL)
		}
		return connectionResult(resp, err, c.Connection)
	case *types.DatabaseConfig:
		resp, err := monitors.CheckDatabase(ctx, c)
		return connectionResult(resp, err, types.ConnectionEstablished)
	default:
		err := fmt.Errorf("unsupported monitor type %q", monitor.Type)
		return failure(OutcomeTransportError, 500, err.Error(), 0, err)
	}
}

func (s *Scheduler) probeHTTP(ctx context.Context, url string, cfg *types.HttpConfig) tickResult {
	result, err := monitors.GetHTTP(ctx, url, cfg)
	if err != nil {
		var httpErr *monitors.HTTPError
		if errors.As(err, &httpErr) {
			res := failure(OutcomeTransportError, httpErr.Code, httpErr.Message, httpErr.ResponseTime, err)
			res.heartbeat.ResHeaders = httpErr.ResHeaders
			res.heartbeat.ResBody = httpErr.ResBody
			return res
		}
		return failure(OutcomeTransportError, 500, err.Error(), 0, err)
	}

	res := tickResult{
		outcome: OutcomeSuccess,
		heartbeat: models.Heartbeat{
			Status:       types.StatusUp,
			Code:         result.Code,
			Message:      result.Message(),
			ResponseTime: result.ResponseTime,
			ReqHeaders:   result.ReqHeaders,
			ResHeaders:   result.ResHeaders,
			ReqBody:      result.ReqBody,
			ResBody:      result.ResBody,
		},
	}

	if err := result.Assert(cfg); err != nil {
		res.outcome = OutcomeFailedAssertion
		res.reason = err
		res.heartbeat.Status = types.StatusDown
		res.heartbeat.Message = "Failed http assertion"
	}

	return res
}

// connectionResult compares the observed connection state with the expected
// one. A refused connection that was expected counts as success.
func connectionResult(resp monitors.Response, err error, expected string) tickResult {
	var reason error

	if err != nil {
		var probeErr *monitors.ProbeError
		if !errors.As(err, &probeErr) {
			return failure(OutcomeTransportError, 500, err.Error(), 0, err)
		}
		resp = probeErr.Response
		reason = err
	}

	hb := models.Heartbeat{
		Status:       types.StatusUp,
		Code:         resp.Code,
		Message:      resp.Message,
		ResponseTime: resp.ResponseTime,
		Connection:   resp.Status,
	}

	if resp.Status == expected {
		return tickResult{outcome: OutcomeSuccess, heartbeat: hb}
	}

	hb.Status = types.StatusDown

	outcome := OutcomeTransportError
	if resp.Status == types.ConnectionEstablished {
		outcome = OutcomeFailedAssertion
		reason = fmt.Errorf("expected connection to be %s", expected)
	}

	return tickResult{outcome: outcome, heartbeat: hb, reason: reason}
}

// runSSL is one scheduled tick of an SSL monitor. The certificate details
// are overwritten every tick; only failed inspections count towards the
// alert threshold.
func (s *Scheduler) runSSL(id uint) {
	ctx, cancel := context.WithTimeout(s.ctx, tickTimeout)
	defer cancel()

	logger := s.logger.With(zap.Uint("ssl_monitor_id", id), zap.String("tick_id", uuid.NewString()))

	monitor, err := s.store.GetSSLMonitor(ctx, id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			logger.Debug("ssl monitor no longer exists, skipping tick")
		} else {
			logger.Error("failed to load ssl monitor", zap.Error(err))
		}
		return
	}

	if !monitor.Active {
		logger.Debug("ssl monitor inactive, skipping tick")
		return
	}

	info, err := s.inspectCertificate(ctx, monitor.URL)
	if err != nil && info == nil {
		info = &types.SSLInfo{
			Host:   monitor.URL,
			Type:   types.SSLError,
			Reason: err.Error(),
			Info:   types.SSLInfoDetails{BackgroundClass: "danger"},
		}
	}

	if updateErr := s.store.UpdateSSLInfo(ctx, monitor.ID, info); updateErr != nil {
		logger.Error("failed to store certificate info", zap.Error(updateErr))
	}

	if err == nil {
		logger.Debug("ssl certificate is valid",
			zap.String("url", monitor.URL),
			zap.Int("days_left", info.Info.DaysLeft),
			zap.String("expires_in", info.Info.ExpiresIn),
		)

		if s.ssl.Success(monitor.ID) {
			s.notify(ctx, monitor.Notifications, types.TemplateSuccessStatus, monitor.Name, info.Type)
		}
		return
	}

	logger.Info("ssl certificate is invalid", zap.String("url", monitor.URL), zap.Error(err))

	if s.ssl.Failure(monitor.ID, monitor.AlertThreshold) {
		s.notify(ctx, monitor.Notifications, types.TemplateErrorStatus, monitor.Name, info.Reason)
	}
}

func (s *Scheduler) notify(ctx context.Context, group *models.NotificationGroup, template, name, message string) {
	if group == nil || s.notifier == nil {
		return
	}

	locals := services.Locals{
		AppName:   name,
		AppLink:   s.clientURL,
		AppIcon:   s.appIcon,
		Message:   message,
		Timestamp: s.now(),
	}

	if err := s.notifier.Notify(ctx, group, template, locals); err != nil {
		s.logger.Warn("notification delivery incomplete",
			zap.Uint("group_id", group.ID),
			zap.String("template", template),
			zap.Error(err),
		)
	}
}
