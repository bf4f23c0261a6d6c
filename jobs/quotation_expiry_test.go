package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/vantage-erp/vantage-erp/internal/jobs"
)

type stubExpirer struct {
	gotAsOf time.Time
	n       int64
	err     error
}

func (s *stubExpirer) ExpireOverdue(_ context.Context, now time.Time) (int64, error) {
	s.gotAsOf = now
	return s.n, s.err
}

func newExpiryJob(expirer QuotationExpirer) *QuotationExpiryJob {
	metrics := jobmetrics.NewMetrics(prometheus.NewRegistry())
	return NewQuotationExpiryJob(expirer, nil, metrics)
}

func TestQuotationExpiryJobHandle(t *testing.T) {
	expirer := &stubExpirer{n: 3}
	job := newExpiryJob(expirer)
	fixed := time.Date(2026, 4, 1, 2, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return fixed }

	task, err := NewQuotationExpiryTask(QuotationExpiryPayload{})
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, fixed, expirer.gotAsOf, "zero AsOf falls back to now")
}

func TestQuotationExpiryJobExplicitCutoff(t *testing.T) {
	expirer := &stubExpirer{}
	job := newExpiryJob(expirer)

	asOf := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	task, err := NewQuotationExpiryTask(QuotationExpiryPayload{AsOf: asOf})
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, asOf, expirer.gotAsOf)
}

func TestQuotationExpiryJobPropagatesError(t *testing.T) {
	expirer := &stubExpirer{err: errors.New("db down")}
	job := newExpiryJob(expirer)

	task, err := NewQuotationExpiryTask(QuotationExpiryPayload{})
	require.NoError(t, err)

	assert.Error(t, job.Handle(context.Background(), task))
}

func TestQuotationExpiryJobSkipsBadPayload(t *testing.T) {
	job := newExpiryJob(&stubExpirer{})
	task := asynq.NewTask(TaskTypeQuotationExpiry, []byte("{not json"))

	err := job.Handle(context.Background(), task)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestQuotationExpiryJobRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)
	job := NewQuotationExpiryJob(&stubExpirer{err: errors.New("db down")}, nil, metrics)

	task, err := NewQuotationExpiryTask(QuotationExpiryPayload{})
	require.NoError(t, err)
	require.Error(t, job.Handle(context.Background(), task))

	families, err := reg.Gather()
	require.NoError(t, err)

	var failures float64
	for _, fam := range families {
		if fam.GetName() != "vantage_jobs_failures_total" {
			continue
		}
		for _, m := range fam.GetMetric() {
			failures += m.GetCounter().GetValue()
		}
	}
	assert.Equal(t, float64(1), failures)
}

func TestQuotationExpiryPayloadRoundTrip(t *testing.T) {
	asOf := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	task, err := NewQuotationExpiryTask(QuotationExpiryPayload{AsOf: asOf})
	require.NoError(t, err)

	var decoded QuotationExpiryPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &decoded))
	assert.True(t, decoded.AsOf.Equal(asOf))
}
