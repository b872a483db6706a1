package service

import (
	"context"
	"testing"

	"athletix/tracker/internal/config"
	"athletix/tracker/internal/domain"
	"athletix/tracker/internal/metrics"
	"athletix/tracker/internal/repository"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionManager_AcquireSharesSession(t *testing.T) {
	gw := newGateway(t)
	seedProfiles(t, gw, profile("ath-1", "Sam", domain.RoleAthlete))
	m := metrics.NewTestManager()
	mgr := NewSessionManager(gw, m, config.SessionConfig{})
	defer mgr.CloseAll()
	ctx := context.Background()

	s1, release1, err := mgr.Acquire(ctx, "ath-1")
	require.NoError(t, err)
	s2, release2, err := mgr.Acquire(ctx, "ath-1")
	require.NoError(t, err)
	assert.Same(t, s1, s2)
	assert.Equal(t, 1, mgr.Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GaugeSessions))

	release1()
	assert.Equal(t, 0, mgr.Sweep(), "still held")
	release2()
	release2()

	assert.Equal(t, 1, mgr.Sweep())
	assert.Equal(t, 0, mgr.Len())
	assert.Equal(t, 0, gw.Subscribers(repository.TableInjuries))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.GaugeSessions))
}

func TestSessionManager_UnknownUser(t *testing.T) {
	gw := newGateway(t)
	mgr := NewSessionManager(gw, nil, config.SessionConfig{})

	_, _, err := mgr.Acquire(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrProfileNotFound)
	assert.Equal(t, 0, mgr.Len())
}

func TestSessionManager_RunClosesOnCancel(t *testing.T) {
	gw := newGateway(t)
	seedProfiles(t, gw, profile("tr-1", "Tess", domain.RoleTrainer))
	mgr := NewSessionManager(gw, nil, config.SessionConfig{})

	_, release, err := mgr.Acquire(context.Background(), "tr-1")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		mgr.Run(ctx)
		close(done)
	}()
	cancel()
	<-done

	assert.Equal(t, 0, mgr.Len())
	assert.Equal(t, 0, gw.Subscribers(repository.TableProfiles))
}
