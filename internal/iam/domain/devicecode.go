package domain

import "time"

// DeviceCodeStatus is the authorization status of a device-code grant.
type DeviceCodeStatus string

const (
	DevicePending   DeviceCodeStatus = "PENDING"
	DeviceApproved  DeviceCodeStatus = "APPROVED"
	DeviceCancelled DeviceCodeStatus = "CANCELLED"
)

// DeviceCodeData is one OAuth device-authorization grant. The user code is
// stored only as a fingerprint; the short code itself never touches disk.
type DeviceCodeData struct {
	ID           string
	UserCodeHash string
	ClientID     string
	TenantID     string
	UserID       string // populated once a user identity is bound
	Status       DeviceCodeStatus
	ExpiresAt    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Resolved reports whether the grant can no longer be entered by a user code.
func (d DeviceCodeData) Resolved() bool {
	return d.Status == DeviceApproved || d.Status == DeviceCancelled
}
