package loan

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLocker struct {
	mu       sync.Mutex
	held     bool
	ttl      time.Duration
	released int
	err      error
}

func (l *fakeLocker) TryLock(_ context.Context, _ string, ttl time.Duration) (func(context.Context) error, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, false, l.err
	}
	if l.held {
		return nil, false, nil
	}
	l.held = true
	l.ttl = ttl
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.held = false
		l.released++
		return nil
	}, true, nil
}

func TestSweeper_RunOnce(t *testing.T) {
	t.Run("without a locker", func(t *testing.T) {
		repo := newMemRepo()
		repo.addBook("b1", 1)
		svc, clk := newTestService(repo)
		_, err := svc.Borrow(context.Background(), alice, "b1", "")
		require.NoError(t, err)
		clk.Advance(DefaultLoanPeriod + time.Minute)

		marked, ran, err := NewSweeper(svc, time.Hour, nil).RunOnce(context.Background())
		require.NoError(t, err)
		assert.True(t, ran)
		assert.Equal(t, 1, marked)
	})

	t.Run("one holder per interval", func(t *testing.T) {
		svc, _ := newTestService(newMemRepo())
		locker := &fakeLocker{}
		first := NewSweeper(svc, time.Hour, locker)
		second := NewSweeper(svc, time.Hour, locker)

		_, ran, err := first.RunOnce(context.Background())
		require.NoError(t, err)
		assert.True(t, ran)
		assert.Equal(t, 54*time.Minute, locker.ttl)

		_, ran, err = second.RunOnce(context.Background())
		require.NoError(t, err)
		assert.False(t, ran)
		assert.Zero(t, locker.released)
	})

	t.Run("lock released when the sweep fails", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockRepo := NewMockRepository(ctrl)
		svc, _ := newTestService(mockRepo)
		mockRepo.EXPECT().MarkOverdue(gomock.Any(), t0).Return(0, errors.New("connection reset"))
		locker := &fakeLocker{}

		_, ran, err := NewSweeper(svc, time.Hour, locker).RunOnce(context.Background())
		assert.Error(t, err)
		assert.True(t, ran)
		assert.Equal(t, 1, locker.released)
		assert.False(t, locker.held)
	})

	t.Run("locker error", func(t *testing.T) {
		svc, _ := newTestService(newMemRepo())
		locker := &fakeLocker{err: errors.New("redis down")}

		_, ran, err := NewSweeper(svc, time.Hour, locker).RunOnce(context.Background())
		assert.Error(t, err)
		assert.False(t, ran)
	})
}

func TestSweeper_RunStopsWithContext(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockRepo := NewMockRepository(ctrl)
	svc, _ := newTestService(mockRepo)

	swept := make(chan struct{}, 16)
	mockRepo.EXPECT().MarkOverdue(gomock.Any(), gomock.Any()).DoAndReturn(func(context.Context, time.Time) (int, error) {
		swept <- struct{}{}
		return 0, nil
	}).MinTimes(2)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewSweeper(svc, 10*time.Millisecond, nil).Run(ctx)
		close(done)
	}()

	<-swept
	<-swept
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestSweeper_DisabledInterval(t *testing.T) {
	svc, _ := newTestService(newMemRepo())
	done := make(chan struct{})
	go func() {
		NewSweeper(svc, 0, nil).Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled sweeper should return immediately")
	}
}
