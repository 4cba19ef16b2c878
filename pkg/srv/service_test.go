package srv

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubService struct {
	startErr error

	mu    *sync.Mutex
	name  string
	order *[]string
}

func (s *stubService) Start(ctx context.Context) error {
	return s.startErr
}

func (s *stubService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	*s.order = append(*s.order, s.name)
	return nil
}

func TestStartServices_ReportsStartFailure(t *testing.T) {
	wantErr := errors.New("port already in use")
	failed := make(chan error, 1)

	StartServices(context.Background(), []Service{
		&stubService{startErr: wantErr, mu: &sync.Mutex{}, order: &[]string{}},
	}, func(err error) { failed <- err })

	select {
	case err := <-failed:
		assert.ErrorIs(t, err, wantErr)
	case <-time.After(time.Second):
		t.Fatal("start failure was not reported")
	}
}

func TestShutdownServices_ReverseOrder(t *testing.T) {
	var mu sync.Mutex
	var order []string
	services := []Service{
		&stubService{mu: &mu, name: "first", order: &order},
		&stubService{mu: &mu, name: "second", order: &order},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ShutdownServices(ctx, services)

	assert.Equal(t, []string{"second", "first"}, order)
}

func TestNewCleanup_RunsAllAndKeepsFirstError(t *testing.T) {
	wantErr := errors.New("close failed")
	var ran []int

	svc := NewCleanup(
		func() error { ran = append(ran, 1); return wantErr },
		func() error { ran = append(ran, 2); return errors.New("later error") },
	)

	require.NoError(t, svc.Start(context.Background()))
	err := svc.Shutdown(context.Background())
	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, []int{1, 2}, ran)
}
