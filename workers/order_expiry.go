package workers

import (
	"context"
	"time"

	"github.com/hayder-jabbar/softstore/controllers"
	"github.com/hayder-jabbar/softstore/models"
	"github.com/hayder-jabbar/softstore/utils"
	"gorm.io/gorm"
)

const (
	sweepInterval = 5 * time.Minute
	orderMaxAge   = 15 * time.Minute
)

// OrderExpirySweeper cancels orders whose payment window has closed: non-FIB
// orders still unpaid after orderMaxAge, and FIB orders past the expiry the
// provider declared at initiation.
type OrderExpirySweeper struct {
	db *gorm.DB
}

// NewOrderExpirySweeper builds a sweeper over the given database.
func NewOrderExpirySweeper(db *gorm.DB) *OrderExpirySweeper {
	return &OrderExpirySweeper{db: db}
}

// Run sweeps on a fixed interval until the context is canceled.
func (s *OrderExpirySweeper) Run(ctx context.Context) {
	utils.LogInfo("Order expiry sweeper started")
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			utils.LogInfo("Order expiry sweeper stopped")
			return
		case <-ticker.C:
			if count, err := s.SweepOnce(time.Now()); err != nil {
				utils.LogError("Order expiry sweep failed: %v", err)
			} else if count > 0 {
				utils.LogInfo("Order expiry sweep canceled %d orders", count)
			}
		}
	}
}

// SweepOnce cancels every expired order and reports how many it touched.
func (s *OrderExpirySweeper) SweepOnce(now time.Time) (int, error) {
	cutoff := now.Add(-orderMaxAge)

	var expired []models.Order
	err := s.db.
		Where("status = ? AND payment_status = ?", models.OrderStatusPending, models.PaymentStatusPending).
		Where(
			s.db.Where("payment_method <> ? AND created_at < ?",
				models.PaymentMethodFIB, cutoff).
				Or("payment_method = ? AND fib_payment_valid_until IS NOT NULL AND fib_payment_valid_until < ?",
					models.PaymentMethodFIB, now),
		).
		Find(&expired).Error
	if err != nil {
		return 0, utils.WrapError(err, "failed to query expired orders")
	}

	canceled := 0
	for i := range expired {
		if err := s.cancelOrder(&expired[i], now); err != nil {
			utils.LogError("Failed to cancel expired order %s: %v", expired[i].OrderNumber, err)
			continue
		}
		canceled++
	}
	return canceled, nil
}

// cancelOrder runs one cancellation in its own transaction so a single bad
// order cannot block the rest of the sweep.
func (s *OrderExpirySweeper) cancelOrder(order *models.Order, now time.Time) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return controllers.CancelExpiredOrder(tx, order, now)
	})
}
