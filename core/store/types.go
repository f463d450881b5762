package store

import "time"

type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Salt         string     `json:"-"`
	FirstName    string     `json:"first_name,omitempty"`
	LastName     string     `json:"last_name,omitempty"`
	Active       bool       `json:"active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type UserWithRoles struct {
	User
	Roles []string `json:"roles"`
}

type Role struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsSystem    bool      `json:"is_system"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type PermissionRecord struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Module      string `json:"module"`
	Action      string `json:"action"`
}

// SessionRecord is the opaque, revocable server-side session artifact.
// Token is 64 random bytes hex-encoded; it is not the signed refresh JWT.
type SessionRecord struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	Token     string     `json:"-"`
	IP        string     `json:"ip,omitempty"`
	UserAgent string     `json:"user_agent,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt time.Time  `json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	RevokedBy string     `json:"revoked_by,omitempty"`
}

type AuditRecord struct {
	ID          int64     `json:"id"`
	UserID      *int64    `json:"user_id,omitempty"`
	Username    string    `json:"username,omitempty"`
	Action      string    `json:"action"`
	Module      string    `json:"module"`
	RecordID    *int64    `json:"record_id,omitempty"`
	Description string    `json:"description,omitempty"`
	OldValue    string    `json:"old_value,omitempty"`
	NewValue    string    `json:"new_value,omitempty"`
	IPAddress   string    `json:"ip_address,omitempty"`
	UserAgent   string    `json:"user_agent,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type Vendor struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Code        string    `json:"code"`
	Description string    `json:"description,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Product struct {
	ID          int64     `json:"id"`
	VendorID    int64     `json:"vendor_id"`
	VendorName  string    `json:"vendor_name,omitempty"`
	Name        string    `json:"name"`
	Model       string    `json:"model"`
	Description string    `json:"description,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IOUniversal is one universal IO parameter definition shared across vendors.
type IOUniversal struct {
	ID          int64     `json:"id"`
	IOID        int64     `json:"io_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	DataType    string    `json:"data_type,omitempty"`
	Unit        string    `json:"unit,omitempty"`
	Category    string    `json:"category,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IOMapping binds a universal IO parameter to a device register for one
// vendor/product pair.
type IOMapping struct {
	ID              int64     `json:"id"`
	VendorID        int64     `json:"vendor_id"`
	VendorName      string    `json:"vendor_name,omitempty"`
	ProductID       int64     `json:"product_id"`
	ProductName     string    `json:"product_name,omitempty"`
	IOUniversalID   int64     `json:"io_universal_id"`
	IOName          string    `json:"io_name,omitempty"`
	IOID            int64     `json:"io_id,omitempty"`
	RegisterAddress int64     `json:"register_address"`
	RegisterType    string    `json:"register_type,omitempty"`
	Scale           float64   `json:"scale"`
	OffsetValue     float64   `json:"offset_value"`
	Notes           string    `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
