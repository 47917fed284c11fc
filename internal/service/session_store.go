package service

import (
	"context"
	"sync"
	"time"

	"studymate-be/internal/constant"
	"studymate-be/internal/pkg/logger"
	"studymate-be/internal/pkg/monitoring"
	"studymate-be/internal/repository/contract"
	"studymate-be/pkg/apperr"
	"studymate-be/pkg/store"
)

// SessionStore loads and saves session payloads around each request. Mutations for the same
// session id are serialized inside this process; across replicas the last writer wins.
// Every service touching sessions must share one SessionStore.
type SessionStore struct {
	repo    contract.SessionRepository
	locks   *keyedMutex
	logger  logger.ILogger
	metrics *monitoring.Metrics
	now     func() time.Time
}

func NewSessionStore(repo contract.SessionRepository, log logger.ILogger, metrics *monitoring.Metrics) *SessionStore {
	return &SessionStore{
		repo:    repo,
		locks:   newKeyedMutex(),
		logger:  log,
		metrics: metrics,
		now:     time.Now,
	}
}

// load returns the stored session, or a fresh empty one for a first visit.
func (s *SessionStore) load(ctx context.Context, sid string) (*store.Session, error) {
	sess, found, err := s.repo.Get(ctx, sid)
	if err != nil {
		s.logger.Error(constant.ModuleSession, "Failed to load session", map[string]interface{}{"session_id": sid, "error": err})
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load session", err)
	}
	if !found {
		return store.NewSession(sid, s.now()), nil
	}
	return sess, nil
}

func (s *SessionStore) save(ctx context.Context, sess *store.Session) error {
	if err := s.repo.Save(ctx, sess); err != nil {
		s.logger.Error(constant.ModuleSession, "Failed to save session", map[string]interface{}{"session_id": sess.ID, "error": err})
		return apperr.Wrap(apperr.KindInternal, "failed to save session", err)
	}
	s.metrics.RecordSessionSave()
	return nil
}

// update runs fn on the latest stored session under the per-session lock and saves the result.
// Nothing is saved when fn fails.
func (s *SessionStore) update(ctx context.Context, sid string, fn func(sess *store.Session) error) (*store.Session, error) {
	unlock := s.locks.Lock(sid)
	defer unlock()

	sess, err := s.load(ctx, sid)
	if err != nil {
		return nil, err
	}
	if err := fn(sess); err != nil {
		return nil, err
	}
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// updateAndCommit is update followed by commit, still under the lock. commit only runs once the
// new payload is stored; when it fails the previous payload is written back.
func (s *SessionStore) updateAndCommit(ctx context.Context, sid string, fn func(sess *store.Session) error, commit func() error) (*store.Session, error) {
	unlock := s.locks.Lock(sid)
	defer unlock()

	sess, err := s.load(ctx, sid)
	if err != nil {
		return nil, err
	}
	before := sess.Clone()
	if err := fn(sess); err != nil {
		return nil, err
	}
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	if err := commit(); err != nil {
		if rbErr := s.save(ctx, before); rbErr != nil {
			s.logger.Error(constant.ModuleSession, "Failed to restore session after commit failure", map[string]interface{}{
				"session_id": sid,
				"error":      rbErr,
			})
		}
		return nil, err
	}
	return sess, nil
}

type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
