package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/noah-isme/backend-kasir/internal/money"
)

const (
	// TypeSaleReconcile is the asynq task type for a redemption without a sale.
	TypeSaleReconcile = "sale:reconcile"
	// TypeSaleResolved is the asynq task type closing a gap after a retried
	// sale was recorded.
	TypeSaleResolved = "sale:resolved"
)

// Gap describes loyalty points that were redeemed for a checkout whose sale
// could not be created. The backend has already debited the points.
type Gap struct {
	SessionID               string          `json:"sessionId"`
	TerminalID              string          `json:"terminalId,omitempty"`
	CustomerID              int64           `json:"customerId"`
	Points                  int64           `json:"points"`
	Amount                  money.Money     `json:"amount"`
	RedemptionTransactionID string          `json:"redemptionTransactionId,omitempty"`
	SaleError               string          `json:"saleError"`
	Sale                    json.RawMessage `json:"sale,omitempty"`
	OccurredAt              time.Time       `json:"occurredAt"`
}

// Resolution closes the gap of a session once its sale was recorded with the
// points redeemed earlier.
type Resolution struct {
	SessionID               string    `json:"sessionId"`
	CustomerID              int64     `json:"customerId"`
	Points                  int64     `json:"points"`
	RedemptionTransactionID string    `json:"redemptionTransactionId,omitempty"`
	SaleID                  int64     `json:"saleId"`
	ReceiptNumber           string    `json:"receiptNumber,omitempty"`
	ResolvedAt              time.Time `json:"resolvedAt"`
}

func (r Resolution) gapRef() string {
	return gapRef(r.SessionID, r.RedemptionTransactionID, r.CustomerID, r.Points)
}

// NewTask encodes gap as an asynq task.
func NewTask(gap Gap) (*asynq.Task, error) {
	payload, err := json.Marshal(gap)
	if err != nil {
		return nil, fmt.Errorf("encode reconcile payload: %w", err)
	}
	return asynq.NewTask(TypeSaleReconcile, payload), nil
}

// Decode reads a Gap from a task payload.
func Decode(t *asynq.Task) (Gap, error) {
	var gap Gap
	if err := json.Unmarshal(t.Payload(), &gap); err != nil {
		return Gap{}, fmt.Errorf("decode reconcile payload: %w", err)
	}
	if gap.SessionID == "" || gap.CustomerID <= 0 {
		return Gap{}, fmt.Errorf("reconcile payload missing session or customer: %w", asynq.SkipRetry)
	}
	return gap, nil
}

// NewResolvedTask encodes res as an asynq task.
func NewResolvedTask(res Resolution) (*asynq.Task, error) {
	payload, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("encode resolution payload: %w", err)
	}
	return asynq.NewTask(TypeSaleResolved, payload), nil
}

// DecodeResolution reads a Resolution from a task payload.
func DecodeResolution(t *asynq.Task) (Resolution, error) {
	var res Resolution
	if err := json.Unmarshal(t.Payload(), &res); err != nil {
		return Resolution{}, fmt.Errorf("decode resolution payload: %w", err)
	}
	if res.SessionID == "" {
		return Resolution{}, fmt.Errorf("resolution payload missing session: %w", asynq.SkipRetry)
	}
	return res, nil
}

// TaskEnqueuer is the subset of asynq.Client used by Queue.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Queue publishes reconciliation tasks.
type Queue struct {
	Client   TaskEnqueuer
	Name     string
	MaxRetry int
}

// Enqueue publishes gap once per session and redemption.
func (q Queue) Enqueue(ctx context.Context, gap Gap) error {
	task, err := NewTask(gap)
	if err != nil {
		return err
	}
	return q.publish(ctx, task, "reconcile:"+gap.ref())
}

// Resolve publishes res once per session and redemption.
func (q Queue) Resolve(ctx context.Context, res Resolution) error {
	task, err := NewResolvedTask(res)
	if err != nil {
		return err
	}
	return q.publish(ctx, task, "resolved:"+res.gapRef())
}

func (q Queue) publish(ctx context.Context, task *asynq.Task, id string) error {
	if q.Client == nil {
		return errors.New("reconcile: task client not configured")
	}
	opts := []asynq.Option{asynq.TaskID(id)}
	if q.Name != "" {
		opts = append(opts, asynq.Queue(q.Name))
	}
	if q.MaxRetry > 0 {
		opts = append(opts, asynq.MaxRetry(q.MaxRetry))
	}
	if _, err := q.Client.EnqueueContext(ctx, task, opts...); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
			return nil
		}
		return fmt.Errorf("enqueue %s task: %w", task.Type(), err)
	}
	return nil
}

func (g Gap) ref() string {
	return gapRef(g.SessionID, g.RedemptionTransactionID, g.CustomerID, g.Points)
}

func gapRef(sessionID, transactionID string, customerID, points int64) string {
	if transactionID == "" {
		transactionID = fmt.Sprintf("%d-%d", customerID, points)
	}
	return sessionID + ":" + transactionID
}
