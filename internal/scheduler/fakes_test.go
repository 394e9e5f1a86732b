package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/uptimer-dev/uptimer/internal/models"
	"github.com/uptimer-dev/uptimer/internal/services"
	"github.com/uptimer-dev/uptimer/internal/types"
)

type fakeStore struct {
	mu          sync.Mutex
	monitors    map[uint]*models.Monitor
	ssl         map[uint]*models.SSLMonitor
	heartbeats  map[uint][]models.Heartbeat
	sslInfo     map[uint]*types.SSLInfo
	nextID      uint
	onDelete    func(*models.Monitor)
	heartbeatErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		monitors:   make(map[uint]*models.Monitor),
		ssl:        make(map[uint]*models.SSLMonitor),
		heartbeats: make(map[uint][]models.Heartbeat),
		sslInfo:    make(map[uint]*types.SSLInfo),
	}
}

func (f *fakeStore) GetMonitor(_ context.Context, id uint) (*models.Monitor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, ok := f.monitors[id]
	if !ok {
		return nil, services.ErrNotFound
	}
	clone := *m
	return &clone, nil
}

func (f *fakeStore) ListMonitors(_ context.Context, userID uint) ([]models.Monitor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.Monitor
	for id := uint(1); id <= f.nextID; id++ {
		if m, ok := f.monitors[id]; ok && m.UserID == userID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakeStore) ListActiveMonitors(_ context.Context) ([]models.Monitor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.Monitor
	for id := uint(1); id <= f.nextID; id++ {
		if m, ok := f.monitors[id]; ok && m.Active {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakeStore) CountActiveMonitors(_ context.Context, userID uint) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var count int64
	for _, m := range f.monitors {
		if m.UserID == userID && m.Active {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) CreateMonitor(_ context.Context, monitor *models.Monitor) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	monitor.ID = f.nextID
	clone := *monitor
	f.monitors[monitor.ID] = &clone
	return nil
}

func (f *fakeStore) SaveMonitor(_ context.Context, monitor *models.Monitor) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	clone := *monitor
	f.monitors[monitor.ID] = &clone
	return nil
}

func (f *fakeStore) SetMonitorActive(_ context.Context, id uint, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if m, ok := f.monitors[id]; ok {
		m.Active = active
		return nil
	}
	return services.ErrNotFound
}

func (f *fakeStore) UpdateMonitorStatus(_ context.Context, monitor *models.Monitor, ts time.Time, success bool) error {
	if !services.ApplyStatus(monitor, ts, success) {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if m, ok := f.monitors[monitor.ID]; ok {
		m.Status = monitor.Status
		m.LastChanged = monitor.LastChanged
	}
	return nil
}

func (f *fakeStore) DeleteMonitor(_ context.Context, monitor *models.Monitor) error {
	if f.onDelete != nil {
		f.onDelete(monitor)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.heartbeats, monitor.ID)
	delete(f.monitors, monitor.ID)
	return nil
}

func (f *fakeStore) CreateHeartbeat(_ context.Context, _ types.MonitorType, heartbeat *models.Heartbeat) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.heartbeatErr != nil {
		return f.heartbeatErr
	}

	f.heartbeats[heartbeat.MonitorID] = append(f.heartbeats[heartbeat.MonitorID], *heartbeat)
	return nil
}

func (f *fakeStore) GetHeartbeats(_ context.Context, _ types.MonitorType, monitorID uint, _ int) ([]models.Heartbeat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	stored := f.heartbeats[monitorID]
	out := make([]models.Heartbeat, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		out = append(out, stored[i])
	}
	return out, nil
}

func (f *fakeStore) GetSSLMonitor(_ context.Context, id uint) (*models.SSLMonitor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, ok := f.ssl[id]
	if !ok {
		return nil, services.ErrNotFound
	}
	clone := *m
	return &clone, nil
}

func (f *fakeStore) ListActiveSSLMonitors(_ context.Context) ([]models.SSLMonitor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.SSLMonitor
	for id := uint(1); id <= f.nextID; id++ {
		if m, ok := f.ssl[id]; ok && m.Active {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateSSLMonitor(_ context.Context, monitor *models.SSLMonitor) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	monitor.ID = f.nextID
	clone := *monitor
	f.ssl[monitor.ID] = &clone
	return nil
}

func (f *fakeStore) SaveSSLMonitor(_ context.Context, monitor *models.SSLMonitor) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	clone := *monitor
	f.ssl[monitor.ID] = &clone
	return nil
}

func (f *fakeStore) SetSSLMonitorActive(_ context.Context, id uint, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if m, ok := f.ssl[id]; ok {
		m.Active = active
		return nil
	}
	return services.ErrNotFound
}

func (f *fakeStore) UpdateSSLInfo(_ context.Context, id uint, info *types.SSLInfo) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sslInfo[id] = info
	return nil
}

func (f *fakeStore) DeleteSSLMonitor(_ context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.ssl, id)
	return nil
}

func (f *fakeStore) monitorHeartbeats(id uint) []models.Heartbeat {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]models.Heartbeat(nil), f.heartbeats[id]...)
}

type notification struct {
	template string
	locals   services.Locals
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (n *fakeNotifier) Notify(_ context.Context, _ *models.NotificationGroup, template string, locals services.Locals) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.sent = append(n.sent, notification{template: template, locals: locals})
	return nil
}

func (n *fakeNotifier) templates() []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]string, len(n.sent))
	for i, s := range n.sent {
		out[i] = s.template
	}
	return out
}

type published struct {
	topic   string
	userID  uint
	payload interface{}
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []published
}

func (p *fakePublisher) Publish(topic string, userID uint, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.messages = append(p.messages, published{topic: topic, userID: userID, payload: payload})
}
