package scheduler

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var ErrInvalidInterval = errors.New("job interval must be a positive number of seconds")

// Jobs keeps exactly one recurring cron entry per key. Runs of the same key
// never overlap: a tick that finds the previous one still running is skipped.
type Jobs struct {
	cron    *cron.Cron
	logger  *zap.Logger
	mu      sync.Mutex
	entries map[string]cron.EntryID
	locks   map[string]*sync.Mutex
}

// NewJobs starts a cron runner evaluating schedules in loc.
func NewJobs(loc *time.Location, logger *zap.Logger) *Jobs {
	if loc == nil {
		loc = time.Local
	}

	cl := cronLogger{logger.Sugar()}

	jobs := &Jobs{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl)),
		),
		logger:  logger,
		entries: make(map[string]cron.EntryID),
		locks:   make(map[string]*sync.Mutex),
	}
	jobs.cron.Start()

	return jobs
}

// StartJob schedules task every seconds under key, replacing the job that was
// registered under the same key. The first run happens one interval from now.
func (j *Jobs) StartJob(key string, seconds int, task func()) error {
	if seconds <= 0 {
		return ErrInvalidInterval
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if id, ok := j.entries[key]; ok {
		j.cron.Remove(id)
	}

	lock := j.lock(key)

	logger := j.logger.With(zap.String("job", key))

	id := j.cron.Schedule(cron.Every(time.Duration(seconds)*time.Second), cron.FuncJob(func() {
		if !lock.TryLock() {
			logger.Debug("previous run still in flight, skipping tick")
			return
		}
		defer lock.Unlock()

		task()
	}))

	j.entries[key] = id

	return nil
}

// StopJob removes the job registered under key. Unknown keys are ignored.
func (j *Jobs) StopJob(key string) {
	j.mu.Lock()
	defer j.mu.Unlock()

	id, ok := j.entries[key]
	if !ok {
		return
	}

	j.cron.Remove(id)
	delete(j.entries, key)
}

// StopJobAndWait removes the job registered under key, waits for a run that
// is still in flight and calls fn while runs of key are held off.
func (j *Jobs) StopJobAndWait(key string, fn func() error) error {
	j.mu.Lock()
	if id, ok := j.entries[key]; ok {
		j.cron.Remove(id)
		delete(j.entries, key)
	}
	lock := j.lock(key)
	j.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()

	return fn()
}

// lock returns the run lock of key. Locks outlive their entries so that a run
// dispatched before a restart still excludes the runs of the new entry.
func (j *Jobs) lock(key string) *sync.Mutex {
	lock, ok := j.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		j.locks[key] = lock
	}
	return lock
}

func (j *Jobs) Has(key string) bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, ok := j.entries[key]
	return ok
}

// Keys returns the registered keys in sorted order.
func (j *Jobs) Keys() []string {
	j.mu.Lock()
	defer j.mu.Unlock()

	keys := make([]string, 0, len(j.entries))
	for key := range j.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	return keys
}

// Stop halts the cron runner and waits for running jobs until ctx is done.
func (j *Jobs) Stop(ctx context.Context) {
	done := j.cron.Stop()

	select {
	case <-done.Done():
	case <-ctx.Done():
		j.logger.Warn("timed out waiting for running jobs")
	}
}

// cronLogger adapts zap to the cron.Logger interface.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
