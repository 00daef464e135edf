package models

import (
	"time"
)

// Notification level constants
const (
	NotificationLevelImportant = "important"
	NotificationLevelNormal    = "normal"
	NotificationLevelLow       = "low"
)

// Notification linked entity type constants
const (
	NotificationLinkOrder         = "order"
	NotificationLinkProduct       = "product"
	NotificationLinkUser          = "user"
	NotificationLinkSupportTicket = "support_ticket"
)

// Notification is a fire-and-forget message for a user. The linked entity is
// a tagged reference: LinkedType names which of the typed foreign keys below
// is set, at most one of them non-nil.
type Notification struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	RelatedUserID *uint  `json:"related_user_id" gorm:"index"`
	Description   string `json:"description"`
	Level         string `json:"level" gorm:"default:'normal'"`
	Hidden        bool   `json:"hidden" gorm:"default:false"`

	LinkedType            string `json:"linked_type"`
	LinkedOrderID         *uint  `json:"linked_order_id"`
	LinkedProductID       *uint  `json:"linked_product_id"`
	LinkedUserID          *uint  `json:"linked_user_id"`
	LinkedSupportTicketID *uint  `json:"linked_support_ticket_id"`

	CreatedAt time.Time `json:"created_at"`
}

// OrderNotification builds a notification linked to an order.
func OrderNotification(userID, orderID uint, description, level string) Notification {
	return Notification{
		RelatedUserID: &userID,
		Description:   description,
		Level:         level,
		LinkedType:    NotificationLinkOrder,
		LinkedOrderID: &orderID,
	}
}

// SupportTicketNotification builds a notification linked to a support ticket.
func SupportTicketNotification(userID, ticketID uint, description string) Notification {
	return Notification{
		RelatedUserID:         &userID,
		Description:           description,
		Level:                 NotificationLevelNormal,
		LinkedType:            NotificationLinkSupportTicket,
		LinkedSupportTicketID: &ticketID,
	}
}
