package paymentsrepo

import (
	"context"
	"encoding/json"
	"fmt"

	"sathi/internal/infra/dbx"
)

type LogsRepository struct{ q dbx.Querier }

func NewLogsRepository(q dbx.Querier) *LogsRepository {
	return &LogsRepository{q: q}
}

func (r *LogsRepository) InsertPaymentLog(ctx context.Context, paymentID int64, logType LogType, payload any) error {
	var jb []byte
	switch v := payload.(type) {
	case nil:
	case json.RawMessage:
		if json.Valid(v) {
			jb = v
		} else {
			jb, _ = json.Marshal(map[string]string{"raw": string(v)})
		}
	default:
		b, err := json.Marshal(v)
		if err == nil {
			jb = b
		}
	}

	_, err := r.q.Exec(ctx, `
		INSERT INTO payment_logs (payment_id, log_type, payload)
		VALUES ($1, $2, $3)
	`, paymentID, string(logType), jb)
	if err != nil {
		return fmt.Errorf("insert payment_log: %w", err)
	}
	return nil
}

func (r *LogsRepository) ListByPayment(ctx context.Context, paymentID int64) ([]*PaymentLog, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, payment_id, log_type, payload, created_at
		FROM payment_logs
		WHERE payment_id = $1
		ORDER BY id ASC
	`, paymentID)
	if err != nil {
		return nil, fmt.Errorf("list payment_logs: %w", err)
	}
	defer rows.Close()

	var out []*PaymentLog
	for rows.Next() {
		var l PaymentLog
		var lt string
		var payload []byte
		if err := rows.Scan(&l.ID, &l.PaymentID, &lt, &payload, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan payment_log: %w", err)
		}
		l.LogType = LogType(lt)
		if len(payload) > 0 {
			l.Payload = json.RawMessage(payload)
		}
		out = append(out, &l)
	}
	return out, rows.Err()
}
