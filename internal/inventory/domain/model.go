package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Tenant is an isolated lab. Every backup is scoped to exactly one tenant.
type Tenant struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)"`
	Name      string    `gorm:"type:text;not null"`
	Slug      string    `gorm:"type:varchar(100);not null;uniqueIndex"`
	IsActive  bool      `gorm:"not null;default:true"`
	CreatedAt time.Time `gorm:"not null"`
}

func (Tenant) TableName() string { return "tenants" }

type User struct {
	ID                       string     `gorm:"primaryKey;type:varchar(36)"`
	TenantID                 string     `gorm:"type:varchar(36);not null;uniqueIndex:uq_users_tenant_email,priority:1"`
	Email                    string     `gorm:"type:varchar(255);not null;uniqueIndex:uq_users_tenant_email,priority:2"`
	PasswordHash             string     `gorm:"type:text;not null"`
	FullName                 string     `gorm:"type:text;not null"`
	Role                     UserRole   `gorm:"type:varchar(20);not null"`
	Status                   UserStatus `gorm:"type:varchar(20);not null"`
	IsActive                 bool       `gorm:"not null"`
	CreatedAt                time.Time  `gorm:"not null"`
	LastLogin                *time.Time
	PasswordResetToken       *string    `gorm:"type:text"`
	PasswordResetTokenExpiry *time.Time `gorm:"column:password_reset_token_expires"`
	IsEmailVerified          bool       `gorm:"not null"`
	EmailVerificationToken   *string    `gorm:"type:text"`
	EmailVerificationSentAt  *time.Time
}

func (User) TableName() string { return "users" }

type Tray struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)"`
	TenantID     string    `gorm:"type:varchar(36);not null;uniqueIndex:uq_trays_tenant_name,priority:1"`
	Name         string    `gorm:"type:varchar(100);not null;uniqueIndex:uq_trays_tenant_name,priority:2"`
	Description  *string   `gorm:"type:text"`
	TrayType     TrayType  `gorm:"type:varchar(20);not null"`
	MaxPositions int       `gorm:"not null"`
	Rows         *int      `gorm:"column:rows"`
	Cols         *int      `gorm:"column:cols"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (Tray) TableName() string { return "trays" }

type Tag struct {
	ID       string  `gorm:"primaryKey;type:varchar(36)"`
	TenantID string  `gorm:"type:varchar(36);not null;uniqueIndex:uq_tags_tenant_name,priority:1"`
	Name     string  `gorm:"type:varchar(50);not null;uniqueIndex:uq_tags_tenant_name,priority:2"`
	Color    *string `gorm:"type:varchar(7)"`
}

func (Tag) TableName() string { return "tags" }

// Stock is a maintained fly line, the central inventory entity.
type Stock struct {
	ID                string           `gorm:"primaryKey;type:varchar(36)"`
	TenantID          string           `gorm:"type:varchar(36);not null;uniqueIndex:uq_stocks_tenant_stock_id,priority:1"`
	StockID           string           `gorm:"column:stock_id;type:varchar(100);not null;uniqueIndex:uq_stocks_tenant_stock_id,priority:2"`
	Genotype          string           `gorm:"type:text;not null"`
	Origin            StockOrigin      `gorm:"type:varchar(20);not null"`
	Repository        *StockRepository `gorm:"type:varchar(20)"`
	RepositoryStockID *string          `gorm:"type:varchar(50)"`
	ExternalSource    *string          `gorm:"type:varchar(255)"`
	OriginalGenotype  *string          `gorm:"type:text"`
	TrayID            *string          `gorm:"type:varchar(36);index"`
	Position          *string          `gorm:"type:varchar(20)"`
	OwnerID           *string          `gorm:"type:varchar(36)"`
	Visibility        StockVisibility  `gorm:"type:varchar(20);not null"`
	HideFromOrg       bool             `gorm:"not null"`
	Notes             *string          `gorm:"type:text"`
	IsActive          bool             `gorm:"not null"`
	CreatedAt         time.Time        `gorm:"not null"`
	CreatedByID       *string          `gorm:"type:varchar(36)"`
	ModifiedAt        *time.Time
	ModifiedByID      *string `gorm:"type:varchar(36)"`
	ExternalMetadata  datatypes.JSON
}

func (Stock) TableName() string { return "stocks" }

// StockTag associates a stock with a tag. It has no identity of its own.
type StockTag struct {
	StockID string `gorm:"primaryKey;type:varchar(36)"`
	TagID   string `gorm:"primaryKey;type:varchar(36)"`
}

func (StockTag) TableName() string { return "stock_tags" }

type Cross struct {
	ID               string  `gorm:"primaryKey;type:varchar(36)"`
	TenantID         string  `gorm:"type:varchar(36);not null;index"`
	Name             *string `gorm:"type:varchar(255)"`
	ParentFemaleID   string  `gorm:"type:varchar(36);not null"`
	ParentMaleID     string  `gorm:"type:varchar(36);not null"`
	OffspringID      *string `gorm:"type:varchar(36)"`
	PlannedDate      *time.Time
	ExecutedDate     *time.Time
	Status           CrossStatus `gorm:"type:varchar(20);not null"`
	ExpectedOutcomes datatypes.JSON
	Notes            *string   `gorm:"type:text"`
	CreatedAt        time.Time `gorm:"not null"`
	CreatedByID      *string   `gorm:"type:varchar(36)"`
}

func (Cross) TableName() string { return "crosses" }

// ExternalReference caches data fetched from a public stock center for a stock.
type ExternalReference struct {
	ID         string `gorm:"primaryKey;type:varchar(36)"`
	StockID    string `gorm:"type:varchar(36);not null;uniqueIndex:uq_extref_stock_source,priority:1"`
	Source     string `gorm:"type:varchar(50);not null;uniqueIndex:uq_extref_stock_source,priority:2"`
	ExternalID string `gorm:"type:varchar(100);not null"`
	Data       datatypes.JSON
	FetchedAt  *time.Time
}

func (ExternalReference) TableName() string { return "external_references" }

type PrintAgent struct {
	ID          string  `gorm:"primaryKey;type:varchar(36)"`
	TenantID    string  `gorm:"type:varchar(36);not null;index"`
	Name        string  `gorm:"type:varchar(100);not null"`
	APIKey      string  `gorm:"column:api_key;type:varchar(64);not null;uniqueIndex"`
	PrinterName *string `gorm:"type:varchar(255)"`
	LabelFormat string  `gorm:"type:varchar(50);not null"`
	LastSeen    *time.Time
	IsActive    bool      `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null"`
}

func (PrintAgent) TableName() string { return "print_agents" }

type PrintJob struct {
	ID           string         `gorm:"primaryKey;type:varchar(36)"`
	TenantID     string         `gorm:"type:varchar(36);not null;index"`
	AgentID      *string        `gorm:"type:varchar(36)"`
	CreatedByID  *string        `gorm:"type:varchar(36)"`
	Status       PrintJobStatus `gorm:"type:varchar(20);not null"`
	StockIDs     datatypes.JSON `gorm:"column:stock_ids;not null"`
	LabelFormat  string         `gorm:"type:varchar(50);not null"`
	Copies       int            `gorm:"not null"`
	CodeType     string         `gorm:"type:varchar(20);not null"`
	CreatedAt    time.Time      `gorm:"not null"`
	ClaimedAt    *time.Time
	CompletedAt  *time.Time
	ErrorMessage *string `gorm:"type:text"`
}

func (PrintJob) TableName() string { return "print_jobs" }

// FlipEvent records a transfer of a stock to fresh food.
type FlipEvent struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)"`
	StockID     string    `gorm:"type:varchar(36);not null;index"`
	FlippedByID *string   `gorm:"type:varchar(36)"`
	FlippedAt   time.Time `gorm:"not null"`
	Notes       *string   `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"not null"`
}

func (FlipEvent) TableName() string { return "flip_events" }

// Models lists every persisted inventory model, tenants first.
func Models() []any {
	return []any{
		&Tenant{},
		&User{},
		&Tray{},
		&Tag{},
		&Stock{},
		&StockTag{},
		&Cross{},
		&ExternalReference{},
		&PrintAgent{},
		&PrintJob{},
		&FlipEvent{},
	}
}
