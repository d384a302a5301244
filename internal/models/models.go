package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Product struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"               json:"id"`
	Title        string          `gorm:"not null"                           json:"title"`
	Description  string          `gorm:"not null;default:''"                json:"description"`
	Price        decimal.Decimal `gorm:"type:numeric(12,2);not null"        json:"price"`
	Image        string          `                                          json:"image"`
	Category     string          `gorm:"index;not null"                     json:"category"`
	EcoTags      []string        `gorm:"serializer:json;type:text"          json:"eco_tags"`
	IsVerified   bool            `gorm:"not null;default:false"             json:"is_verified"`
	CO2Saved     decimal.Decimal `gorm:"type:numeric(12,3);not null"        json:"co2_saved"`
	PlasticSaved decimal.Decimal `gorm:"type:numeric(12,3);not null"        json:"plastic_saved"`
	WaterSaved   decimal.Decimal `gorm:"type:numeric(12,3);not null"        json:"water_saved"`
	GreenPoints  int             `gorm:"not null;default:0"                 json:"green_points"`
	Vendor       string          `                                          json:"vendor"`
	CreatedAt    time.Time       `gorm:"index"                              json:"created_at"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// CartItem is one cart line. Price and impact figures are copied from the
// catalog when the line is added so checkout never re-reads the catalog.
type CartItem struct {
	ID                  uuid.UUID       `gorm:"type:uuid;primaryKey"                      json:"id"`
	UserID              uuid.UUID       `gorm:"type:uuid;uniqueIndex:idx_user_product;not null" json:"user_id"`
	ProductID           uuid.UUID       `gorm:"type:uuid;uniqueIndex:idx_user_product;not null" json:"product_id"`
	Quantity            int             `gorm:"not null;default:1;check:quantity>0"       json:"quantity"`
	UnitPrice           decimal.Decimal `gorm:"type:numeric(12,2);not null"               json:"unit_price"`
	GreenPointsPerUnit  int             `gorm:"not null;default:0"                        json:"green_points_per_unit"`
	CO2SavedPerUnit     decimal.Decimal `gorm:"type:numeric(12,3);not null"               json:"co2_saved_per_unit"`
	PlasticSavedPerUnit decimal.Decimal `gorm:"type:numeric(12,3);not null"               json:"plastic_saved_per_unit"`
	WaterSavedPerUnit   decimal.Decimal `gorm:"type:numeric(12,3);not null"               json:"water_saved_per_unit"`
	CreatedAt           time.Time       `                                                 json:"created_at"`
	UpdatedAt           time.Time       `                                                 json:"updated_at"`
}

func (c *CartItem) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (CartItem) TableName() string {
	return "cart_items"
}

const OrderStatusCompleted = "completed"

type Order struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey"                json:"id"`
	OrderNumber       string          `gorm:"uniqueIndex;not null"                json:"order_number"`
	UserID            uuid.UUID       `gorm:"type:uuid;index;not null"            json:"user_id"`
	IdempotencyToken  string          `gorm:"uniqueIndex;not null"                json:"-"`
	Subtotal          decimal.Decimal `gorm:"type:numeric(12,2);not null"         json:"subtotal"`
	DonationAmount    decimal.Decimal `gorm:"type:numeric(12,2);not null"         json:"donation_amount"`
	Total             decimal.Decimal `gorm:"type:numeric(12,2);not null"         json:"total"`
	GreenPointsEarned int             `gorm:"not null"                            json:"green_points_earned"`
	CO2Saved          decimal.Decimal `gorm:"type:numeric(12,3);not null"         json:"co2_saved"`
	PlasticSaved      decimal.Decimal `gorm:"type:numeric(12,3);not null"         json:"plastic_saved"`
	WaterSaved        decimal.Decimal `gorm:"type:numeric(12,3);not null"         json:"water_saved"`
	Status            string          `gorm:"not null"                            json:"status"`
	CreatedAt         time.Time       `gorm:"index"                               json:"created_at"`
	Items             []OrderItem     `gorm:"foreignKey:OrderID"                  json:"items,omitempty"`
}

type OrderItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"                              json:"id"`
	OrderID   uuid.UUID       `gorm:"type:uuid;uniqueIndex:idx_order_product;not null"  json:"order_id"`
	ProductID uuid.UUID       `gorm:"type:uuid;uniqueIndex:idx_order_product;not null"  json:"product_id"`
	Quantity  int             `gorm:"not null;check:quantity>0"                         json:"quantity"`
	Price     decimal.Decimal `gorm:"type:numeric(12,2);not null"                       json:"price"`
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// UserStats is the per-user impact accumulator.
type UserStats struct {
	UserID         uuid.UUID       `gorm:"type:uuid;primaryKey"           json:"user_id"`
	TotalOrders    int             `gorm:"not null;default:0"             json:"total_orders"`
	GreenPoints    int             `gorm:"not null;default:0"             json:"green_points"`
	CO2Saved       decimal.Decimal `gorm:"type:numeric(14,3);not null"    json:"co2_saved"`
	PlasticReduced decimal.Decimal `gorm:"type:numeric(14,3);not null"    json:"plastic_reduced"`
	WaterSaved     decimal.Decimal `gorm:"type:numeric(14,3);not null"    json:"water_saved"`
	TreesFunded    int             `gorm:"not null;default:0"             json:"trees_funded"`
	CreatedAt      time.Time       `                                      json:"created_at"`
	UpdatedAt      time.Time       `                                      json:"updated_at"`
}

func (UserStats) TableName() string {
	return "user_stats"
}

// StatsApplication records that an order's deltas were added to UserStats.
type StatsApplication struct {
	OrderID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null"`
	Token     string    `gorm:"not null"`
	AppliedAt time.Time `gorm:"not null"`
}

type SagaState string

const (
	SagaLinesPending SagaState = "lines_pending"
	SagaStatsPending SagaState = "stats_pending"
	SagaCartPending  SagaState = "cart_pending"
	SagaFinalized    SagaState = "finalized"
	SagaFailed       SagaState = "failed"
)

// CheckoutSaga journals the post-commit progress of one order.
type CheckoutSaga struct {
	OrderID   uuid.UUID      `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID      `gorm:"type:uuid;index;not null"`
	Token     string         `gorm:"not null"`
	State     SagaState      `gorm:"type:varchar(32);index;not null"`
	Lines     datatypes.JSON `gorm:"not null"`
	Attempts  int            `gorm:"not null;default:0"`
	LastError string         `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (s SagaState) Terminal() bool {
	return s == SagaFinalized || s == SagaFailed
}

// StatsDelta is what one order adds to a user's UserStats. OrderID and Token
// identify the order so a repeated application is ignored.
type StatsDelta struct {
	OrderID        uuid.UUID
	Token          string
	Orders         int
	GreenPoints    int
	CO2Saved       decimal.Decimal
	PlasticReduced decimal.Decimal
	WaterSaved     decimal.Decimal
}
