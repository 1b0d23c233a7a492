package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

const testWindow = time.Minute

type MemoryStoreSuite struct {
	suite.Suite
	store *MemoryStore
	ctx   context.Context
	t0    time.Time
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = NewMemoryStore()
	s.ctx = context.Background()
	s.t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (s *MemoryStoreSuite) TestUpsertIncrement() {
	s.Run("first request creates entry", func() {
		e, err := s.store.UpsertIncrement(s.ctx, "k:first", s.t0, testWindow)
		s.Require().NoError(err)
		s.Equal(1, e.Count)
		s.Equal(s.t0, e.WindowStart)
		s.Equal(s.t0.Add(testWindow), e.ExpiresAt)
	})

	s.Run("requests inside window increment", func() {
		var e *QuotaEntry
		var err error
		for i := range 5 {
			e, err = s.store.UpsertIncrement(s.ctx, "k:inc", s.t0.Add(time.Duration(i)*time.Second), testWindow)
			s.Require().NoError(err)
		}
		s.Equal(5, e.Count)
		s.Equal(s.t0, e.WindowStart)
	})

	s.Run("elapsed window resets to one", func() {
		_, err := s.store.UpsertIncrement(s.ctx, "k:reset", s.t0, testWindow)
		s.Require().NoError(err)
		_, err = s.store.UpsertIncrement(s.ctx, "k:reset", s.t0.Add(time.Second), testWindow)
		s.Require().NoError(err)

		later := s.t0.Add(testWindow)
		e, err := s.store.UpsertIncrement(s.ctx, "k:reset", later, testWindow)
		s.Require().NoError(err)
		s.Equal(1, e.Count)
		s.Equal(later, e.WindowStart)
		s.Equal(later.Add(testWindow), e.ExpiresAt)
	})

	s.Run("keys are independent", func() {
		_, err := s.store.UpsertIncrement(s.ctx, "k:a", s.t0, testWindow)
		s.Require().NoError(err)
		e, err := s.store.UpsertIncrement(s.ctx, "k:b", s.t0, testWindow)
		s.Require().NoError(err)
		s.Equal(1, e.Count)
	})
}

func (s *MemoryStoreSuite) TestGet() {
	s.store.now = func() time.Time { return s.t0.Add(10 * time.Second) }

	e, err := s.store.Get(s.ctx, "k:missing")
	s.Require().NoError(err)
	s.Nil(e)

	_, err = s.store.UpsertIncrement(s.ctx, "k:live", s.t0, testWindow)
	s.Require().NoError(err)
	e, err = s.store.Get(s.ctx, "k:live")
	s.Require().NoError(err)
	s.Require().NotNil(e)
	s.Equal(1, e.Count)

	s.store.now = func() time.Time { return s.t0.Add(2 * testWindow) }
	e, err = s.store.Get(s.ctx, "k:live")
	s.Require().NoError(err)
	s.Nil(e, "expired entries read as absent")
}

func (s *MemoryStoreSuite) TestSweepExpired() {
	_, err := s.store.UpsertIncrement(s.ctx, "k:old", s.t0, testWindow)
	s.Require().NoError(err)
	_, err = s.store.UpsertIncrement(s.ctx, "k:new", s.t0.Add(50*time.Second), testWindow)
	s.Require().NoError(err)

	n, err := s.store.SweepExpired(s.ctx, s.t0.Add(testWindow))
	s.Require().NoError(err)
	s.Equal(int64(1), n)
	s.Equal(1, s.store.Len())

	n, err = s.store.SweepExpired(s.ctx, s.t0.Add(testWindow))
	s.Require().NoError(err)
	s.Equal(int64(0), n, "sweep is idempotent")
}

func (s *MemoryStoreSuite) TestConcurrentIncrementsAreNotLost() {
	const workers = 100
	var wg sync.WaitGroup
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			_, err := s.store.UpsertIncrement(s.ctx, "k:concurrent", s.t0, testWindow)
			s.NoError(err)
		}()
	}
	wg.Wait()

	s.store.now = func() time.Time { return s.t0 }
	e, err := s.store.Get(s.ctx, "k:concurrent")
	s.Require().NoError(err)
	s.Equal(workers, e.Count)
}
