package service

import (
	"context"

	"turtle_bot/internal/models"
)

// Broker — узкий capability-интерфейс исполнения и аккаунта. Движок от
// конкретного брокера отвязан: живой REST-шлюз и бумажный брокер для
// реплея взаимозаменяемы.
type Broker interface {
	// SubmitOrder размещает ордер по интенту, возвращает брокерский ID.
	SubmitOrder(ctx context.Context, oi models.OrderIntent) (string, error)
	CancelOrder(ctx context.Context, instID, ordID string) error
	Equity(ctx context.Context) (float64, error)
}
