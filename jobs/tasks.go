package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskTypeQuotationExpiry is the task type for the quotation expiry sweep.
	TaskTypeQuotationExpiry = "sales:quotation_expiry"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// QuotationExpiryPayload carries the sweep cutoff. A zero AsOf means "now".
type QuotationExpiryPayload struct {
	AsOf time.Time `json:"asOf,omitempty"`
}

// NewQuotationExpiryTask constructs the expiry sweep task.
func NewQuotationExpiryTask(payload QuotationExpiryPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeQuotationExpiry, data), nil
}
