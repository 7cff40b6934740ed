package workers

import (
	"context"
	"time"

	"ledgerbot/metrics"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Sweeper is the part of the subscription service the sweep needs.
type Sweeper interface {
	SweepExpired(ctx context.Context, now time.Time) (int, error)
}

// ExpirySweep expires subscriptions on a cron schedule. Errors are logged and
// counted, never returned: the next run simply tries again.
type ExpirySweep struct {
	sweeper Sweeper
	timeout time.Duration
	now     func() time.Time
	metrics *metrics.Metrics
	log     *logrus.Entry
}

func NewExpirySweep(sweeper Sweeper, timeout time.Duration, m *metrics.Metrics, log *logrus.Entry) *ExpirySweep {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &ExpirySweep{
		sweeper: sweeper,
		timeout: timeout,
		now:     time.Now,
		metrics: m,
		log:     log,
	}
}

// Run executes one sweep and returns how many subscriptions expired.
func (s *ExpirySweep) Run() int {
	defer func() {
		if r := recover(); r != nil {
			s.log.Errorf("expiry sweep panic: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := s.sweeper.SweepExpired(ctx, s.now())
	if s.metrics != nil {
		s.metrics.SubscriptionsSwept.Add(float64(n))
	}
	if err != nil {
		s.log.WithError(err).Errorf("Error checking expired subscriptions (%d expired before failure)", n)
		if s.metrics != nil {
			s.metrics.SweepFailures.Inc()
		}
		return n
	}
	s.log.Infof("Checked expired subscriptions: %d expired", n)
	return n
}

// StartExpirySweep schedules the sweep (hourly with "0 * * * *") and starts the cron.
// Stop the returned cron on shutdown.
func StartExpirySweep(schedule string, sweep *ExpirySweep) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() { sweep.Run() }); err != nil {
		return nil, err
	}
	c.Start()
	sweep.log.WithField("schedule", schedule).Info("Expiry sweep scheduled")
	return c, nil
}
