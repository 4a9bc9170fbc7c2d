package paymentsrepo

import (
	"context"
	"encoding/json"
	"time"
)

type LogType string

const (
	LogRequest  LogType = "request"
	LogResponse LogType = "response"
	LogCallback LogType = "callback"
	LogVerify   LogType = "verify"
	LogDecision LogType = "decision"
	LogError    LogType = "error"
)

type PaymentLog struct {
	ID        int64           `json:"id"`
	PaymentID int64           `json:"payment_id"`
	LogType   LogType         `json:"log_type"`
	Payload   json.RawMessage `json:"payload,omitempty" swaggertype:"object"`
	CreatedAt time.Time       `json:"created_at"`
}

type LogsStore interface {
	InsertPaymentLog(ctx context.Context, paymentID int64, logType LogType, payload any) error
	ListByPayment(ctx context.Context, paymentID int64) ([]*PaymentLog, error)
}
