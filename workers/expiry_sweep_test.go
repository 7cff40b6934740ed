package workers

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"ledgerbot/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSweeper struct {
	calls int32
	n     int
	err   error
	panic bool
	at    time.Time
}

func (f *fakeSweeper) SweepExpired(_ context.Context, now time.Time) (int, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.panic {
		panic("boom")
	}
	f.at = now
	return f.n, f.err
}

func quietLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestRunCountsExpired(t *testing.T) {
	m := metrics.New()
	fs := &fakeSweeper{n: 3}
	sweep := NewExpirySweep(fs, time.Second, m, quietLog())
	fixed := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	sweep.now = func() time.Time { return fixed }

	assert.Equal(t, 3, sweep.Run())
	assert.Equal(t, fixed, fs.at)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.SubscriptionsSwept))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.SweepFailures))
}

func TestRunSwallowsErrorsAndPanics(t *testing.T) {
	m := metrics.New()
	sweep := NewExpirySweep(&fakeSweeper{n: 1, err: errors.New("db down")}, time.Second, m, quietLog())
	assert.NotPanics(t, func() { assert.Equal(t, 1, sweep.Run()) })
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SweepFailures))

	sweep = NewExpirySweep(&fakeSweeper{panic: true}, time.Second, nil, quietLog())
	assert.NotPanics(t, func() { sweep.Run() })
}

func TestStartExpirySweepRejectsBadSchedule(t *testing.T) {
	_, err := StartExpirySweep("not a schedule", NewExpirySweep(&fakeSweeper{}, time.Second, nil, quietLog()))
	assert.Error(t, err)
}

func TestStartExpirySweepRunsOnSchedule(t *testing.T) {
	fs := &fakeSweeper{}
	c, err := StartExpirySweep("@every 1s", NewExpirySweep(fs, time.Second, nil, quietLog()))
	require.NoError(t, err)
	defer c.Stop()

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&fs.calls) > 0 }, 3*time.Second, 50*time.Millisecond)
}
