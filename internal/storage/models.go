package storage

import "time"

// User is a marketplace account. Status gates login: only active users may
// sign in; suspended and banned accounts are rejected with 403.
type User struct {
	ID               uint   `gorm:"primaryKey" json:"id"`
	Name             string `json:"name"`
	Email            string `gorm:"uniqueIndex" json:"email"`
	Password         string `json:"-"`
	AccountType      string `json:"account_type"` // buyer or seller
	PhoneNumber      *string
	PhoneVerified    bool
	IsVerifiedSeller bool
	SellerRating     float64
	TotalSales       int
	IsFlagged        bool
	FlagReason       *string
	Status           string `gorm:"default:active"` // active, suspended, banned
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Listing is a classified post. Expiry is derived from CreatedAt plus
// DurationHours and applied lazily by the sweep on each listing read.
type Listing struct {
	ID                uint `gorm:"primaryKey"`
	UserID            uint `gorm:"index"`
	Title             string
	Description       string
	Price             float64
	Category          string
	Type              string
	Location          string
	Phone             *string
	DurationHours     int     `gorm:"default:48"`
	Images            *string // JSON array of URLs
	QuantityAvailable int     `gorm:"default:1"`
	Status            string  `gorm:"default:active"` // active, sold, expired, suspended
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type Bookmark struct {
	ID        uint `gorm:"primaryKey"`
	UserID    uint `gorm:"index:idx_bookmark_user_listing,unique"`
	ListingID uint `gorm:"index:idx_bookmark_user_listing,unique"`
	CreatedAt time.Time
}

type Message struct {
	ID           uint `gorm:"primaryKey"`
	FromID       uint `gorm:"index"`
	ToID         uint `gorm:"index"`
	ListingTitle *string
	Body         string `gorm:"column:message"`
	IsRead       bool
	CreatedAt    time.Time `gorm:"index"`
}

// Payment is the record a checkout collaborator attaches to a transaction.
// Cancellation of a paid transaction flips its status to refunded.
type Payment struct {
	ID                    uint `gorm:"primaryKey"`
	Status                string
	Amount                float64
	ProviderTransactionID *string
	PaymentMethod         *string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Transaction is one buyer/seller exchange for a listing. Parties and
// commercial terms are immutable after creation; lifecycle and feedback
// fields are mutated only through the lifecycle engine operations.
type Transaction struct {
	ID             uint `gorm:"primaryKey"`
	ListingID      uint `gorm:"index"`
	BuyerID        uint `gorm:"index"`
	SellerID       uint `gorm:"index"`
	Quantity       int  `gorm:"default:1"`
	UnitPrice      float64
	TotalAmount    float64
	PlatformFee    float64
	Status         string `gorm:"default:pending"`
	TrackingNumber *string
	Notes          *string
	DeliveryDate   *time.Time
	DisputeReason  *string
	BuyerRating    *int
	BuyerReview    *string
	SellerRating   *int
	SellerReview   *string
	PaymentID      *uint
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Report struct {
	ID                    uint `gorm:"primaryKey"`
	ReporterUserID        uint `gorm:"index"`
	ReportedUserID        *uint
	ReportedListingID     *uint
	ReportedTransactionID *uint
	ReportType            string // user, listing, transaction
	Reason                string
	Description           string
	Evidence              *string // JSON
	Status                string  `gorm:"default:pending"` // pending, investigating, resolved, dismissed
	Resolution            *string
	AdminNotes            *string
	HandledByAdminID      *uint
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

type UserFlag struct {
	ID              uint `gorm:"primaryKey"`
	UserID          uint `gorm:"index"`
	FlagType        string // warning, suspension, ban
	Reason          string
	Severity        int `gorm:"default:5"`
	AutoGenerated   bool
	ExpiresAt       *time.Time
	RelatedReportID *uint
	CreatedAt       time.Time
}

type Notification struct {
	ID        uint `gorm:"primaryKey"`
	UserID    uint `gorm:"index"`
	Type      string
	Title     string
	Body      string `gorm:"column:message"`
	Priority  string `gorm:"default:medium"`
	SendEmail bool
	IsRead    bool
	CreatedAt time.Time
}

type ActivityLog struct {
	ID           uint `gorm:"primaryKey"`
	UserID       *uint
	AdminID      *uint
	ActivityType string // user_action, admin_action, system_event
	Action       string
	Description  string
	IPAddress    *string
	UserAgent    *string
	Metadata     *string // JSON
	CreatedAt    time.Time `gorm:"index"`
}

type RateLimit struct {
	ID         uint      `gorm:"primaryKey"`
	Identifier string    `gorm:"index"`
	CreatedAt  time.Time `gorm:"index"`
}
