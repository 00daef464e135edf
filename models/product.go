package models

import (
	"time"

	"gorm.io/gorm"
)

// Product status constants
const (
	ProductStatusActive   = "active"
	ProductStatusInactive = "inactive"
)

// Product is a catalog entry. Key products are fulfilled by handing out
// unique single-use ProductKeys; bundle products draw keys from their
// OfferProducts instead of their own pool.
type Product struct {
	gorm.Model
	Seq            int     `json:"seq" gorm:"default:0"`
	Name           string  `json:"name"`
	NameAr         string  `json:"name_ar"`
	SKUCode        string  `json:"sku_code"`
	Price          int64   `json:"price"`
	OldPrice       *int64  `json:"old_price,omitempty"`
	Status         string  `json:"status" gorm:"default:'active'"`
	Available      bool    `json:"available" gorm:"default:true"`
	Qty            int     `json:"qty" gorm:"default:0"`
	IsKeyProduct   bool    `json:"is_key_product" gorm:"default:false"`
	CashbackAmount int64   `json:"cashback_amount" gorm:"default:0"`
	Description    string  `json:"description"`
	Tutorial       string  `json:"tutorial"`
	DownloadLink   string  `json:"download_link"`

	OfferProducts      []*Product                `json:"offer_products,omitempty" gorm:"many2many:product_offer_products;joinForeignKey:ProductID;joinReferences:OfferProductID"`
	WholesalePricings  []ProductWholesalePricing `json:"wholesale_pricings,omitempty" gorm:"foreignKey:ProductID"`
	Keys               []ProductKey              `json:"-" gorm:"foreignKey:ProductID"`
}

// ProductWholesalePricing overrides a product's unit price for one
// wholesale tier.
type ProductWholesalePricing struct {
	gorm.Model
	ProductID           uint              `json:"product_id" gorm:"uniqueIndex:idx_product_tier"`
	WholesaleUserTypeID uint              `json:"wholesale_user_type_id" gorm:"uniqueIndex:idx_product_tier"`
	WholesaleUserType   WholesaleUserType `json:"-" gorm:"foreignKey:WholesaleUserTypeID"`
	Price               int64             `json:"price"`
}

// ProductKey is a unique single-use digital key. Once an order consumes it,
// UsedBy/UsedOrder/UsedAt record the consumption; releasing the key clears
// all three and flips IsUsed back.
type ProductKey struct {
	gorm.Model
	ProductID   uint       `json:"product_id" gorm:"index"`
	Product     Product    `json:"-" gorm:"foreignKey:ProductID"`
	Key         string     `json:"key"`
	IsUsed      bool       `json:"is_used" gorm:"default:false;index"`
	IsViewed    bool       `json:"is_viewed" gorm:"default:false"`
	UsedAt      *time.Time `json:"used_at"`
	UsedByID    *uint      `json:"used_by"`
	UsedOrderID *uint      `json:"used_order"`
}
