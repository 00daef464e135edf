package models

import (
	"time"

	"gorm.io/gorm"
)

// Order status constants
const (
	OrderStatusPending  = "pending"
	OrderStatusApproved = "approved"
	OrderStatusRejected = "rejected"
	OrderStatusReturned = "returned"
	OrderStatusCanceled = "canceled"
)

// Payment status constants
const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
)

// Payment method constants
const (
	PaymentMethodCash       = "cash"
	PaymentMethodZainCash   = "zain_cash"
	PaymentMethodFastPay    = "fast_pay"
	PaymentMethodCreditCard = "credit_card"
	PaymentMethodFIB        = "fib"
)

// ValidPaymentMethods is the set of accepted payment_method values.
var ValidPaymentMethods = map[string]bool{
	PaymentMethodCash:       true,
	PaymentMethodZainCash:   true,
	PaymentMethodFastPay:    true,
	PaymentMethodCreditCard: true,
	PaymentMethodFIB:        true,
}

// Order is one checkout attempt. Status tracks fulfillment, PaymentStatus
// tracks settlement; the two move independently. The *_At/*_By pairs are
// write-once audit fields set by the transition that causes them.
type Order struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	OrderNumber string `gorm:"uniqueIndex;not null" json:"order_number"`

	Status        string `json:"status" gorm:"default:'pending'"`
	PaymentStatus string `json:"payment_status" gorm:"default:'pending'"`
	PaymentMethod string `json:"payment_method" gorm:"default:'cash'"`

	Address       string `json:"address"`
	Notes         string `json:"notes"`
	ApprovedNotes string `json:"approved_notes"`
	RejectedNotes string `json:"rejected_notes"`

	TotalPrice           int64 `json:"total_price" gorm:"default:0"`
	UseWallet            bool  `json:"use_wallet" gorm:"default:false"`
	PaidAmountFromWallet int64 `json:"paid_amount_from_wallet" gorm:"default:0"`
	IsWholesale          bool  `json:"is_wholesale" gorm:"default:false"`
	IsViewed             bool  `json:"is_viewed" gorm:"default:false"`

	// Gateway correlation fields.
	TransactionID   string `json:"transaction_id" gorm:"index"`
	TransactionURL  string `json:"transaction_url"`
	CardHolder      string `json:"card_holder"`
	MaskedCardNumber string `json:"masked_card_number"`
	QRCode           string `json:"qr_code"`
	ReadableCode     string `json:"readable_code"`
	FIBPaymentValidUntil *time.Time `json:"fib_payment_valid_until"`

	UserID uint `json:"user_id" gorm:"index"`
	User   User `json:"user" gorm:"foreignKey:UserID"`

	ApprovedByID      *uint      `json:"approved_by"`
	ApprovedAt        *time.Time `json:"approved_at"`
	RejectedByID      *uint      `json:"rejected_by"`
	RejectedAt        *time.Time `json:"rejected_at"`
	ReturnedByID      *uint      `json:"returned_by"`
	ReturnedAt        *time.Time `json:"returned_at"`
	CanceledByID      *uint      `json:"canceled_by"`
	CanceledAt        *time.Time `json:"canceled_at"`
	PaidByID          *uint      `json:"paid_by"`
	PaidAt            *time.Time `json:"paid_at"`
	PaymentFailedByID *uint      `json:"payment_failed_by"`
	PaymentFailedAt   *time.Time `json:"payment_failed_at"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	OrderLines []OrderLine `json:"order_lines" gorm:"foreignKey:OrderID"`
}

// TotalPriceMinusWallet is the amount still owed after the wallet was applied,
// i.e. the amount forwarded to the payment gateway.
func (o *Order) TotalPriceMinusWallet() int64 {
	return o.TotalPrice - o.PaidAmountFromWallet
}

// TotalProducts sums the quantities over all lines.
func (o *Order) TotalProducts() int {
	total := 0
	for _, line := range o.OrderLines {
		total += line.Quantity
	}
	return total
}

// OrderLine is one purchased product within an order. UnitPrice is snapshotted
// at creation and never re-derived from the catalog.
type OrderLine struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	Seq       int  `json:"seq" gorm:"default:1"`
	OrderID   uint `json:"order_id" gorm:"index"`
	ProductID uint    `json:"product_id"`
	Product   Product `json:"product" gorm:"foreignKey:ProductID"`

	Quantity  int   `json:"quantity" gorm:"default:1"`
	UnitPrice int64 `json:"unit_price"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	OrderLineKeys []OrderLineKey `json:"order_line_keys" gorm:"foreignKey:OrderLineID"`
}

// SubTotal is the line total at the snapshotted unit price.
func (l *OrderLine) SubTotal() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

// OrderLineKey binds one allocated ProductKey to one order line. OtherInfo
// names the bundled offer product that the key satisfied, when the line's
// product is a bundle.
type OrderLineKey struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	OrderLineID uint       `json:"order_line_id" gorm:"index"`
	KeyID       uint       `json:"key_id"`
	Key         ProductKey `json:"key" gorm:"foreignKey:KeyID"`
	OtherInfo   string     `json:"other_info"`
	CreatedAt   time.Time  `json:"created_at"`
}

// SupportTicket is a customer contact request.
type SupportTicket struct {
	gorm.Model
	FullName    string `json:"full_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Description string `json:"description"`
	CreatedByID *uint  `json:"created_by"`
}
