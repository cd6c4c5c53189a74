/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/carverauto/crowdpool/pkg/logger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var errServiceCrashed = errors.New("service crashed")

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, call)
}

func (r *recorder) stops() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []string

	for _, c := range r.calls {
		if len(c) > 5 && c[:5] == "stop:" {
			out = append(out, c[5:])
		}
	}

	return out
}

// fakeService either returns from Start immediately or blocks until Stop,
// like an HTTP server.
type fakeService struct {
	name     string
	rec      *recorder
	blocking bool
	startErr error
	stopErr  error

	once    sync.Once
	stopped chan struct{}
}

func newFakeService(name string, rec *recorder, blocking bool) *fakeService {
	return &fakeService{name: name, rec: rec, blocking: blocking, stopped: make(chan struct{})}
}

func (s *fakeService) Start(ctx context.Context) error {
	s.rec.add("start:" + s.name)

	if s.startErr != nil {
		return s.startErr
	}

	if s.blocking {
		select {
		case <-s.stopped:
		case <-ctx.Done():
		}
	}

	return nil
}

func (s *fakeService) Stop(context.Context) error {
	s.rec.add("stop:" + s.name)
	s.once.Do(func() { close(s.stopped) })

	return s.stopErr
}

func TestRun_StopsServicesInReverseOrderOnCancel(t *testing.T) {
	rec := &recorder{}
	first := newFakeService("manager", rec, false)
	second := newFakeService("api", rec, true)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)

	go func() { done <- Run(ctx, logger.NewTestLogger(), first, second) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	assert.Equal(t, []string{"api", "manager"}, rec.stops())
}

func TestRun_ServiceFailureStopsEverything(t *testing.T) {
	rec := &recorder{}
	healthy := newFakeService("api", rec, true)
	broken := newFakeService("manager", rec, false)
	broken.startErr = errServiceCrashed

	err := Run(context.Background(), logger.NewTestLogger(), healthy, broken)
	require.ErrorIs(t, err, errServiceCrashed)

	assert.ElementsMatch(t, []string{"api", "manager"}, rec.stops())
}

func TestRun_JoinsStopErrors(t *testing.T) {
	rec := &recorder{}
	svc := newFakeService("manager", rec, false)
	svc.stopErr = errServiceCrashed

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Run(ctx, logger.NewTestLogger(), svc)
	require.ErrorIs(t, err, errServiceCrashed)
}

func TestChildAddsComponent(t *testing.T) {
	parent, err := CreateComponentLogger("manager-main", &logger.Config{Level: "debug", Output: "stdout"})
	require.NoError(t, err)

	child := Child(parent, "stf")
	require.NotNil(t, child)
	assert.NotPanics(t, func() { child.Debug().Msg("child logger works") })
}

func TestCreateComponentLoggerRejectsUnknownOutput(t *testing.T) {
	_, err := CreateComponentLogger("manager-main", &logger.Config{Output: "syslog"})
	require.Error(t, err)
}
