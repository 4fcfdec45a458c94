package domain

// UserRole is the access level of a lab member.
type UserRole string

const (
	UserRoleAdmin UserRole = "admin"
	UserRoleUser  UserRole = "user"
)

// UserStatus tracks the approval workflow of a user account.
type UserStatus string

const (
	UserStatusPending  UserStatus = "pending"
	UserStatusApproved UserStatus = "approved"
	UserStatusRejected UserStatus = "rejected"
)

type TrayType string

const (
	TrayTypeNumeric TrayType = "numeric"
	TrayTypeGrid    TrayType = "grid"
	TrayTypeCustom  TrayType = "custom"
)

// StockOrigin classifies where a stock came from.
type StockOrigin string

const (
	StockOriginRepository StockOrigin = "repository"
	StockOriginInternal   StockOrigin = "internal"
	StockOriginExternal   StockOrigin = "external"
)

// StockRepository names the public stock center a stock was ordered from.
type StockRepository string

const (
	StockRepositoryBDSC     StockRepository = "bdsc"
	StockRepositoryVDRC     StockRepository = "vdrc"
	StockRepositoryKyoto    StockRepository = "kyoto"
	StockRepositoryNIG      StockRepository = "nig"
	StockRepositoryDGRC     StockRepository = "dgrc"
	StockRepositoryFlyORF   StockRepository = "flyorf"
	StockRepositoryTRiP     StockRepository = "trip"
	StockRepositoryExelixis StockRepository = "exelixis"
	StockRepositoryOther    StockRepository = "other"
)

type StockVisibility string

const (
	StockVisibilityLabOnly      StockVisibility = "lab_only"
	StockVisibilityOrganization StockVisibility = "organization"
	StockVisibilityPublic       StockVisibility = "public"
)

type CrossStatus string

const (
	CrossStatusPlanned    CrossStatus = "planned"
	CrossStatusInProgress CrossStatus = "in_progress"
	CrossStatusCompleted  CrossStatus = "completed"
	CrossStatusFailed     CrossStatus = "failed"
)

// PrintJobStatus follows a job from submission to the print agent's report.
type PrintJobStatus string

const (
	PrintJobStatusPending   PrintJobStatus = "pending"
	PrintJobStatusClaimed   PrintJobStatus = "claimed"
	PrintJobStatusPrinting  PrintJobStatus = "printing"
	PrintJobStatusCompleted PrintJobStatus = "completed"
	PrintJobStatusFailed    PrintJobStatus = "failed"
	PrintJobStatusCancelled PrintJobStatus = "cancelled"
)

const (
	DefaultLabelFormat  = "dymo_11352"
	DefaultCodeType     = "qr"
	DefaultMaxPositions = 100
)

var (
	UserRoles = []UserRole{UserRoleAdmin, UserRoleUser}

	UserStatuses = []UserStatus{UserStatusPending, UserStatusApproved, UserStatusRejected}

	TrayTypes = []TrayType{TrayTypeNumeric, TrayTypeGrid, TrayTypeCustom}

	StockOrigins = []StockOrigin{StockOriginRepository, StockOriginInternal, StockOriginExternal}

	StockRepositories = []StockRepository{
		StockRepositoryBDSC,
		StockRepositoryVDRC,
		StockRepositoryKyoto,
		StockRepositoryNIG,
		StockRepositoryDGRC,
		StockRepositoryFlyORF,
		StockRepositoryTRiP,
		StockRepositoryExelixis,
		StockRepositoryOther,
	}

	StockVisibilities = []StockVisibility{
		StockVisibilityLabOnly,
		StockVisibilityOrganization,
		StockVisibilityPublic,
	}

	CrossStatuses = []CrossStatus{
		CrossStatusPlanned,
		CrossStatusInProgress,
		CrossStatusCompleted,
		CrossStatusFailed,
	}

	PrintJobStatuses = []PrintJobStatus{
		PrintJobStatusPending,
		PrintJobStatusClaimed,
		PrintJobStatusPrinting,
		PrintJobStatusCompleted,
		PrintJobStatusFailed,
		PrintJobStatusCancelled,
	}
)
