package order

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/pkg/apperrors"
)

var (
	// ErrInvalidTransition is returned for backward or post-terminal status moves
	ErrInvalidTransition = apperrors.Conflict("invalid status transition")
	// ErrInvalidPaymentTransition is returned for moves outside the payment flow
	ErrInvalidPaymentTransition = apperrors.Conflict("invalid payment transition")
)

// statusRank orders the forward path. Delivering and out_for_delivery are
// two names for the same step.
var statusRank = map[OrderStatus]int{
	OrderStatusPending:        0,
	OrderStatusConfirmed:      1,
	OrderStatusPreparing:      2,
	OrderStatusReady:          3,
	OrderStatusDelivering:     4,
	OrderStatusOutForDelivery: 4,
	OrderStatusDelivered:      5,
}

// IsValid reports whether s is a known order status
func (s OrderStatus) IsValid() bool {
	_, ok := statusRank[s]
	return ok || s == OrderStatusCancelled
}

// IsTerminal reports whether no further transition is allowed
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransition reports whether an order may move from one status to another.
// Staying put is always allowed and treated as a no-op by callers.
func CanTransition(from, to OrderStatus) bool {
	if !to.IsValid() {
		return false
	}
	if from == to {
		return true
	}
	if from.IsTerminal() {
		return false
	}
	if to == OrderStatusCancelled {
		return true
	}
	return statusRank[to] > statusRank[from]
}

// IsValid reports whether s is a known payment status
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusProofSubmitted, PaymentStatusPaid, PaymentStatusFailed:
		return true
	}
	return false
}

// CanTransitionPayment reports whether a payment may move between statuses.
// Cash on delivery skips straight from pending to paid on delivery.
func CanTransitionPayment(method PaymentMethod, from, to PaymentStatus) bool {
	if method == PaymentMethodCOD {
		return from == PaymentStatusPending && to == PaymentStatusPaid
	}
	switch from {
	case PaymentStatusPending:
		return to == PaymentStatusProofSubmitted
	case PaymentStatusProofSubmitted:
		return to == PaymentStatusPaid || to == PaymentStatusFailed
	}
	return false
}

const orderNumberAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// GenerateOrderNumber returns KDA-<unix millis>-<6 random base36 chars>
func GenerateOrderNumber(now time.Time) (string, error) {
	var suffix strings.Builder
	base := big.NewInt(int64(len(orderNumberAlphabet)))
	for i := 0; i < 6; i++ {
		n, err := rand.Int(rand.Reader, base)
		if err != nil {
			return "", fmt.Errorf("failed to generate order number: %w", err)
		}
		suffix.WriteByte(orderNumberAlphabet[n.Int64()])
	}
	return fmt.Sprintf("KDA-%d-%s", now.UnixMilli(), suffix.String()), nil
}
