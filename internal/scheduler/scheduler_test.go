package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptimer-dev/uptimer/internal/models"
	"github.com/uptimer-dev/uptimer/internal/monitors"
	"github.com/uptimer-dev/uptimer/internal/types"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type harness struct {
	scheduler *Scheduler
	store     *fakeStore
	notifier  *fakeNotifier
	publisher *fakePublisher
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	store := newFakeStore()
	notifier := &fakeNotifier{}
	publisher := &fakePublisher{}

	s := New(store, notifier, publisher, Options{
		Location:  time.UTC,
		ClientURL: "https://app.example.com",
		Logger:    zap.NewNop(),
	})
	s.stagger = func() time.Duration { return 0 }

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.Shutdown(ctx)
	})

	return &harness{scheduler: s, store: store, notifier: notifier, publisher: publisher}
}

func rawConfig(t *testing.T, v interface{}) datatypes.JSON {
	t.Helper()

	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func (h *harness) addMonitor(t *testing.T, monitor models.Monitor) *models.Monitor {
	t.Helper()

	if monitor.Frequency == 0 {
		monitor.Frequency = 60
	}
	if monitor.UserID == 0 {
		monitor.UserID = 1
	}

	require.NoError(t, h.store.CreateMonitor(context.Background(), &monitor))
	return &monitor
}

func TestHTTPMonitorTicks(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
	}))
	defer server.Close()

	h := newHarness(t)

	monitor := h.addMonitor(t, models.Monitor{
		Name:   "API",
		Type:   types.HTTP,
		URL:    server.URL,
		Active: true,
		Config: rawConfig(t, types.HttpConfig{StatusCodes: []int{200}, ResponseTime: 2000, Timeout: 5}),
	})

	h.scheduler.runMonitor(monitor.ID)

	heartbeats := h.store.monitorHeartbeats(monitor.ID)
	require.Len(t, heartbeats, 1)
	assert.Equal(t, types.StatusUp, heartbeats[0].Status)
	assert.Equal(t, 200, heartbeats[0].Code)

	status.Store(http.StatusServiceUnavailable)
	h.scheduler.runMonitor(monitor.ID)

	heartbeats = h.store.monitorHeartbeats(monitor.ID)
	require.Len(t, heartbeats, 2)
	assert.Equal(t, types.StatusDown, heartbeats[1].Status)
	assert.Equal(t, 503, heartbeats[1].Code)
	assert.Equal(t, "Failed http assertion", heartbeats[1].Message)
	assert.Equal(t, 1, h.scheduler.monitors.ErrorCount(monitor.ID))

	stored, err := h.store.GetMonitor(context.Background(), monitor.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusDown, stored.Status)
}

func TestHTTPMonitorInvalidBody(t *testing.T) {
	h := newHarness(t)

	monitor := h.addMonitor(t, models.Monitor{
		Name:   "API",
		Type:   types.HTTP,
		URL:    "http://127.0.0.1:1",
		Active: true,
		Config: rawConfig(t, types.HttpConfig{Method: "POST", Body: "{oops"}),
	})

	h.scheduler.runMonitor(monitor.ID)

	heartbeats := h.store.monitorHeartbeats(monitor.ID)
	require.Len(t, heartbeats, 1)
	assert.Equal(t, types.StatusDown, heartbeats[0].Status)
	assert.Equal(t, 500, heartbeats[0].Code)
	assert.Equal(t, "JSON body is invalid", heartbeats[0].Message)
}

func TestTCPMonitorClosedPort(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()

	h := newHarness(t)

	monitor := h.addMonitor(t, models.Monitor{
		Name:   "db host",
		Type:   types.TCP,
		URL:    "127.0.0.1",
		Active: true,
		Config: rawConfig(t, types.TCPConfig{Port: port, Timeout: 1000}),
	})

	h.scheduler.runMonitor(monitor.ID)

	heartbeats := h.store.monitorHeartbeats(monitor.ID)
	require.Len(t, heartbeats, 1)
	assert.Equal(t, types.StatusDown, heartbeats[0].Status)
	assert.Equal(t, 500, heartbeats[0].Code)
	assert.Equal(t, types.ConnectionRefused, heartbeats[0].Connection)
	assert.NotEmpty(t, heartbeats[0].Message)
	assert.GreaterOrEqual(t, heartbeats[0].ResponseTime, int64(0))
}

func TestConnectionResultExpectations(t *testing.T) {
	established := monitors.Response{Status: types.ConnectionEstablished, Code: 200, Message: "Redis server running"}

	up := connectionResult(established, nil, types.ConnectionEstablished)
	assert.Equal(t, OutcomeSuccess, up.outcome)
	assert.Equal(t, types.StatusUp, up.heartbeat.Status)

	unexpected := connectionResult(established, nil, types.ConnectionRefused)
	assert.Equal(t, OutcomeFailedAssertion, unexpected.outcome)
	assert.Equal(t, types.StatusDown, unexpected.heartbeat.Status)

	refusedErr := &monitors.ProbeError{Response: monitors.Response{Status: types.ConnectionRefused, Code: 500, Message: "Redis server down"}}

	refused := connectionResult(monitors.Response{}, refusedErr, types.ConnectionEstablished)
	assert.Equal(t, OutcomeTransportError, refused.outcome)
	assert.Equal(t, 500, refused.heartbeat.Code)
	assert.Equal(t, types.ConnectionRefused, refused.heartbeat.Connection)

	expectedRefusal := connectionResult(monitors.Response{}, refusedErr, types.ConnectionRefused)
	assert.Equal(t, OutcomeSuccess, expectedRefusal.outcome)

	other := connectionResult(monitors.Response{}, errors.New("dial failed"), types.ConnectionEstablished)
	assert.Equal(t, OutcomeTransportError, other.outcome)
	assert.Equal(t, 500, other.heartbeat.Code)
}

func TestLastChangedOnlyOnTransition(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
	}))
	defer server.Close()

	h := newHarness(t)

	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	h.scheduler.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	monitor := h.addMonitor(t, models.Monitor{
		Name:   "API",
		Type:   types.HTTP,
		URL:    server.URL,
		Active: true,
		Config: rawConfig(t, types.HttpConfig{}),
	})

	h.scheduler.runMonitor(monitor.ID)
	stored, _ := h.store.GetMonitor(context.Background(), monitor.ID)
	assert.Nil(t, stored.LastChanged)

	status.Store(http.StatusInternalServerError)
	h.scheduler.runMonitor(monitor.ID)
	stored, _ = h.store.GetMonitor(context.Background(), monitor.ID)
	require.NotNil(t, stored.LastChanged)
	firstDown := *stored.LastChanged

	h.scheduler.runMonitor(monitor.ID)
	h.scheduler.runMonitor(monitor.ID)
	stored, _ = h.store.GetMonitor(context.Background(), monitor.ID)
	assert.Equal(t, firstDown, *stored.LastChanged)

	status.Store(http.StatusOK)
	h.scheduler.runMonitor(monitor.ID)
	stored, _ = h.store.GetMonitor(context.Background(), monitor.ID)
	assert.Equal(t, types.StatusUp, stored.Status)
	assert.True(t, stored.LastChanged.After(firstDown))

	assert.Len(t, h.store.monitorHeartbeats(monitor.ID), 5)
}

func TestAlertThresholdNotifications(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusInternalServerError)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
	}))
	defer server.Close()

	h := newHarness(t)

	monitor := h.addMonitor(t, models.Monitor{
		Name:           "API",
		Type:           types.HTTP,
		URL:            server.URL,
		Active:         true,
		AlertThreshold: 2,
		Config:         rawConfig(t, types.HttpConfig{}),
		Notifications:  &models.NotificationGroup{GroupName: "ops", Emails: []string{"ops@example.com"}},
	})

	for i := 0; i < 6; i++ {
		h.scheduler.runMonitor(monitor.ID)
	}
	assert.Equal(t, []string{types.TemplateErrorStatus}, h.notifier.templates())
	assert.Equal(t, "API", h.notifier.sent[0].locals.AppName)
	assert.Equal(t, "https://app.example.com", h.notifier.sent[0].locals.AppLink)

	status.Store(http.StatusOK)
	h.scheduler.runMonitor(monitor.ID)
	h.scheduler.runMonitor(monitor.ID)
	assert.Equal(t, []string{types.TemplateErrorStatus, types.TemplateSuccessStatus}, h.notifier.templates())
}

func TestZeroThresholdNeverNotifies(t *testing.T) {
	h := newHarness(t)

	monitor := h.addMonitor(t, models.Monitor{
		Name:          "API",
		Type:          types.HTTP,
		URL:           "http://127.0.0.1:1",
		Active:        true,
		Config:        rawConfig(t, types.HttpConfig{Timeout: 1}),
		Notifications: &models.NotificationGroup{Emails: []string{"ops@example.com"}},
	})

	for i := 0; i < 5; i++ {
		h.scheduler.runMonitor(monitor.ID)
	}

	assert.Empty(t, h.notifier.templates())
	assert.Len(t, h.store.monitorHeartbeats(monitor.ID), 5)
}

func TestTickSkipsInactiveAndMissingMonitors(t *testing.T) {
	h := newHarness(t)

	monitor := h.addMonitor(t, models.Monitor{Name: "paused", Type: types.TCP, URL: "127.0.0.1"})

	h.scheduler.runMonitor(monitor.ID)
	h.scheduler.runMonitor(999)

	assert.Empty(t, h.store.monitorHeartbeats(monitor.ID))
}

func TestHeartbeatFailureKeepsJobScheduled(t *testing.T) {
	h := newHarness(t)
	h.store.heartbeatErr = errors.New("disk full")

	monitor := h.addMonitor(t, models.Monitor{Name: "api", Type: types.TCP, URL: "127.0.0.1", Active: true, Config: rawConfig(t, types.TCPConfig{Port: 1})})
	require.NoError(t, h.scheduler.StartCreatedMonitor(monitor))

	h.scheduler.runMonitor(monitor.ID)

	assert.True(t, h.scheduler.Jobs().Has(MonitorKey("api", monitor.ID)))
}

func TestCreateMonitor(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	active := &models.Monitor{UserID: 1, Name: "Web", Type: types.HTTP, URL: "http://example.com", Frequency: 30, Active: true}
	require.NoError(t, h.scheduler.CreateMonitor(ctx, active))
	assert.True(t, h.scheduler.Jobs().Has(MonitorKey("Web", active.ID)))
	assert.Equal(t, "monitor-web-"+strconv.Itoa(int(active.ID)), MonitorKey("Web", active.ID))

	paused := &models.Monitor{UserID: 1, Name: "Cache", Type: types.Redis, URL: "redis://localhost", Frequency: 30}
	require.NoError(t, h.scheduler.CreateMonitor(ctx, paused))
	assert.False(t, h.scheduler.Jobs().Has(MonitorKey("Cache", paused.ID)))

	invalid := &models.Monitor{UserID: 1, Name: "Bad", Type: types.HTTP, URL: "http://example.com", Frequency: 0}
	assert.ErrorIs(t, h.scheduler.CreateMonitor(ctx, invalid), ErrInvalidFrequency)

	unknown := &models.Monitor{UserID: 1, Name: "Bad", Type: "gopher", Frequency: 10}
	assert.Error(t, h.scheduler.CreateMonitor(ctx, unknown))
}

func TestUpdateMonitorRekeysJob(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	monitor := &models.Monitor{UserID: 1, Name: "Old", Type: types.TCP, URL: "localhost", Frequency: 30, Active: true}
	require.NoError(t, h.scheduler.CreateMonitor(ctx, monitor))

	monitor.Name = "New"
	require.NoError(t, h.scheduler.UpdateMonitor(ctx, monitor, "Old"))

	assert.Equal(t, []string{MonitorKey("New", monitor.ID)}, h.scheduler.Jobs().Keys())
}

func TestToggleMonitor(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	monitor := &models.Monitor{UserID: 1, Name: "Web", Type: types.HTTP, URL: "http://example.com", Frequency: 30, Active: true}
	require.NoError(t, h.scheduler.CreateMonitor(ctx, monitor))
	require.NoError(t, h.scheduler.EnableAutoRefresh(1, "Alice"))

	key := MonitorKey("Web", monitor.ID)

	require.NoError(t, h.scheduler.ToggleMonitor(ctx, monitor, "Alice"))
	assert.False(t, monitor.Active)
	assert.False(t, h.scheduler.Jobs().Has(key))
	assert.False(t, h.scheduler.Jobs().Has(RefreshKey("alice")))

	require.NoError(t, h.scheduler.ToggleMonitor(ctx, monitor, "Alice"))
	assert.True(t, monitor.Active)
	assert.True(t, h.scheduler.Jobs().Has(key))
}

func TestToggleKeepsRefreshWhileMonitorsActive(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first := &models.Monitor{UserID: 1, Name: "One", Type: types.TCP, URL: "localhost", Frequency: 30, Active: true}
	second := &models.Monitor{UserID: 1, Name: "Two", Type: types.TCP, URL: "localhost", Frequency: 30, Active: true}
	require.NoError(t, h.scheduler.CreateMonitor(ctx, first))
	require.NoError(t, h.scheduler.CreateMonitor(ctx, second))
	require.NoError(t, h.scheduler.EnableAutoRefresh(1, "alice"))

	require.NoError(t, h.scheduler.ToggleMonitor(ctx, first, "alice"))
	assert.True(t, h.scheduler.Jobs().Has(RefreshKey("alice")))
}

func TestDeleteStopsJobBeforeRows(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	monitor := &models.Monitor{UserID: 1, Name: "Web", Type: types.HTTP, URL: "http://example.com", Frequency: 30, Active: true}
	require.NoError(t, h.scheduler.CreateMonitor(ctx, monitor))

	key := MonitorKey("Web", monitor.ID)
	require.True(t, h.scheduler.Jobs().Has(key))

	var scheduledAtDelete bool
	h.store.onDelete = func(*models.Monitor) {
		scheduledAtDelete = h.scheduler.Jobs().Has(key)
	}

	require.NoError(t, h.scheduler.DeleteMonitor(ctx, monitor, "alice"))

	assert.False(t, scheduledAtDelete)
	_, err := h.store.GetMonitor(ctx, monitor.ID)
	assert.Error(t, err)
}

func TestResumeJob(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	monitor := h.addMonitor(t, models.Monitor{Name: "Web", Type: types.HTTP, URL: "http://example.com", Frequency: 30})

	require.NoError(t, h.scheduler.ResumeJob(ctx, monitor.ID))
	assert.Empty(t, h.scheduler.Jobs().Keys())

	require.NoError(t, h.store.SetMonitorActive(ctx, monitor.ID, true))
	require.NoError(t, h.scheduler.ResumeJob(ctx, monitor.ID))
	require.NoError(t, h.scheduler.ResumeJob(ctx, monitor.ID))
	assert.Equal(t, []string{MonitorKey("Web", monitor.ID)}, h.scheduler.Jobs().Keys())

	assert.Error(t, h.scheduler.ResumeJob(ctx, 404))
}

func TestStartAllActiveMonitors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	var pauses int
	h.scheduler.stagger = func() time.Duration {
		pauses++
		return time.Millisecond
	}

	a := h.addMonitor(t, models.Monitor{Name: "A", Type: types.TCP, URL: "localhost", Active: true})
	b := h.addMonitor(t, models.Monitor{Name: "B", Type: types.TCP, URL: "localhost", Active: true})
	h.addMonitor(t, models.Monitor{Name: "C", Type: types.TCP, URL: "localhost"})

	require.NoError(t, h.scheduler.StartAllActiveMonitors(ctx))

	assert.Equal(t, []string{MonitorKey("A", a.ID), MonitorKey("B", b.ID)}, h.scheduler.Jobs().Keys())
	assert.Equal(t, 1, pauses)
}

func TestStartAllActiveMonitorsStopsOnCancel(t *testing.T) {
	h := newHarness(t)
	h.scheduler.stagger = func() time.Duration { return time.Hour }

	h.addMonitor(t, models.Monitor{Name: "A", Type: types.TCP, URL: "localhost", Active: true})
	h.addMonitor(t, models.Monitor{Name: "B", Type: types.TCP, URL: "localhost", Active: true})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, h.scheduler.StartAllActiveMonitors(ctx), context.DeadlineExceeded)
	assert.Len(t, h.scheduler.Jobs().Keys(), 1)
}

func TestSSLMonitorTicks(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	verdict := &types.SSLInfo{Host: "example.com", Type: types.SSLSuccess, Info: types.SSLInfoDetails{DaysLeft: 90}}
	var verdictErr error

	h.scheduler.inspectCertificate = func(context.Context, string) (*types.SSLInfo, error) {
		return verdict, verdictErr
	}

	monitor := &models.SSLMonitor{
		UserID:         1,
		Name:           "Site",
		URL:            "https://example.com",
		Frequency:      3600,
		Active:         true,
		AlertThreshold: 1,
		Notifications:  &models.NotificationGroup{Emails: []string{"ops@example.com"}},
	}
	require.NoError(t, h.scheduler.CreateSSLMonitor(ctx, monitor))
	assert.True(t, h.scheduler.Jobs().Has(SSLKey("Site", monitor.ID)))

	h.scheduler.runSSL(monitor.ID)
	assert.Equal(t, types.SSLSuccess, h.store.sslInfo[monitor.ID].Type)

	verdict = nil
	verdictErr = errors.New("connection refused")

	h.scheduler.runSSL(monitor.ID)
	h.scheduler.runSSL(monitor.ID)
	h.scheduler.runSSL(monitor.ID)

	info := h.store.sslInfo[monitor.ID]
	assert.Equal(t, types.SSLError, info.Type)
	assert.Equal(t, "connection refused", info.Reason)
	assert.Equal(t, []string{types.TemplateErrorStatus}, h.notifier.templates())

	assert.ErrorIs(t, h.scheduler.CreateSSLMonitor(ctx, &models.SSLMonitor{Name: "x", URL: "http://example.com", Frequency: 10}), monitors.ErrInsecureURL)

	require.NoError(t, h.scheduler.ToggleSSLMonitor(ctx, monitor))
	assert.False(t, h.scheduler.Jobs().Has(SSLKey("Site", monitor.ID)))

	require.NoError(t, h.scheduler.DeleteSSLMonitor(ctx, monitor))
	_, err := h.store.GetSSLMonitor(ctx, monitor.ID)
	assert.Error(t, err)
}

func TestAutoRefreshPublishesSnapshot(t *testing.T) {
	h := newHarness(t)

	monitor := h.addMonitor(t, models.Monitor{UserID: 5, Name: "Web", Type: types.HTTP, URL: "http://example.com", Active: true})
	h.addMonitor(t, models.Monitor{UserID: 5, Name: "Paused", Type: types.HTTP, URL: "http://example.com"})

	for i := 0; i < 20; i++ {
		status := types.StatusUp
		if i%4 == 0 {
			status = types.StatusDown
		}
		require.NoError(t, h.store.CreateHeartbeat(context.Background(), types.HTTP, &models.Heartbeat{MonitorID: monitor.ID, Status: status}))
	}

	require.NoError(t, h.scheduler.EnableAutoRefresh(5, "Bob"))
	assert.True(t, h.scheduler.Jobs().Has("refresh-bob"))

	h.scheduler.publishMonitors(5)

	require.Len(t, h.publisher.messages, 1)
	msg := h.publisher.messages[0]
	assert.Equal(t, types.TopicMonitorsUpdated, msg.topic)
	assert.EqualValues(t, 5, msg.userID)

	payload, ok := msg.payload.(MonitorsUpdated)
	require.True(t, ok)
	assert.EqualValues(t, 5, payload.UserID)
	require.Len(t, payload.Monitors, 1)
	assert.Len(t, payload.Monitors[0].Heartbeats, 16)
	assert.Equal(t, 75, payload.Monitors[0].Uptime)

	h.scheduler.DisableAutoRefresh("BOB")
	assert.False(t, h.scheduler.Jobs().Has("refresh-bob"))
}

func TestJobKeys(t *testing.T) {
	assert.Equal(t, "monitor-my api-7", MonitorKey("My API", 7))
	assert.Equal(t, "ssl-site-3", SSLKey("Site", 3))
	assert.Equal(t, "refresh-alice", RefreshKey("Alice"))
	assert.True(t, strings.HasPrefix(MonitorKey("x", 1), "monitor-"))
}
