package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/vantage-erp/vantage-erp/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// QuotationExpirer marks overdue active quotations as expired.
type QuotationExpirer interface {
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
}

// QuotationExpiryJob runs the nightly quotation expiry sweep.
type QuotationExpiryJob struct {
	expirer QuotationExpirer
	logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	now     func() time.Time
}

// NewQuotationExpiryJob constructs the expiry job.
func NewQuotationExpiryJob(expirer QuotationExpirer, logger *slog.Logger, metrics *jobmetrics.Metrics) *QuotationExpiryJob {
	return &QuotationExpiryJob{expirer: expirer, logger: logger, Metrics: metrics, now: time.Now}
}

// Handle processes TaskTypeQuotationExpiry tasks.
func (j *QuotationExpiryJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	var payload QuotationExpiryPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	asOf := payload.AsOf
	if asOf.IsZero() {
		asOf = j.now()
	}

	tracker := j.metrics().Track(TaskTypeQuotationExpiry)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	n, err := j.expirer.ExpireOverdue(ctx, asOf)
	if err != nil {
		if j.logger != nil {
			j.logger.Error("quotation expiry sweep", slog.Any("error", err))
		}
		return err
	}
	if j.logger != nil {
		j.logger.Info("quotation expiry sweep done",
			slog.Time("as_of", asOf),
			slog.Int64("expired", n))
	}
	return nil
}

func (j *QuotationExpiryJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
