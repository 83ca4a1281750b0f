package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type EntryType string

const (
	EntryNormal        EntryType = "normal"
	EntryForcedByGuard EntryType = "forced_by_guard"
)

type UserType string

const (
	UserVisitor        UserType = "visitor"
	UserResidentUnpaid UserType = "resident_unpaid"
	UserResidentPaid   UserType = "resident_paid"
	UserVendor         UserType = "vendor"
	UserOther          UserType = "other"
)

// IsResident covers both paid and unpaid residents.
func (u UserType) IsResident() bool {
	return strings.Contains(string(u), "resident")
}

type Entry struct {
	ID          int64      `json:"id"`
	EntryType   EntryType  `json:"entry_type"`
	Name        string     `json:"name"`
	HouseNumber string     `json:"house_number"`
	PhoneNumber string     `json:"phone_number"`
	PlateNumber string     `json:"plate_number"`
	UserType    UserType   `json:"user_type"`
	OtherReason string     `json:"other_reason,omitempty"`
	Notes       string     `json:"notes"`
	SelfieURL   *string    `json:"selfie_url,omitempty"`
	ReportedBy  *uuid.UUID `json:"reported_by,omitempty"`
	CreatedAt   time.Time  `json:"timestamp"`
}

// PhotoURL returns the selfie URL or "" when the entry has none.
func (e *Entry) PhotoURL() string {
	if e.SelfieURL == nil {
		return ""
	}
	return *e.SelfieURL
}

// NewEntry is what the coordinator hands to the repository.
type NewEntry struct {
	EntryType   EntryType
	Name        string
	HouseNumber string
	PhoneNumber string
	PlateNumber string
	UserType    UserType
	OtherReason string
	Notes       string
	SelfieURL   string
	ReportedBy  *uuid.UUID
}

// Photo is an uploaded image held in memory so uploads can be retried.
type Photo struct {
	Filename    string
	ContentType string
	Data        []byte
}

func (p *Photo) Size() int64 {
	if p == nil {
		return 0
	}
	return int64(len(p.Data))
}

type CheckInForm struct {
	Name          string `json:"name" validate:"required,max=120"`
	HouseNumber   string `json:"house_number" validate:"required,max=40"`
	PhoneNumber   string `json:"phone_number" validate:"max=40"`
	PlateNumber   string `json:"plate_number" validate:"max=20"`
	IsOwnerUnpaid bool   `json:"is_owner_unpaid"`
	IsVendor      bool   `json:"is_vendor"`
	IsOther       bool   `json:"is_other"`
	OtherReason   string `json:"other_reason" validate:"required_if=IsOther true,max=200"`
}

func (f *CheckInForm) Normalize() {
	f.Name = strings.TrimSpace(f.Name)
	f.HouseNumber = strings.TrimSpace(f.HouseNumber)
	f.PhoneNumber = strings.TrimSpace(f.PhoneNumber)
	f.PlateNumber = strings.ToUpper(strings.TrimSpace(f.PlateNumber))
	f.OtherReason = strings.TrimSpace(f.OtherReason)
}

// Category picks the visitor classification from the form flags. The owner
// flag wins over vendor, vendor over other.
func (f *CheckInForm) Category() UserType {
	switch {
	case f.IsOwnerUnpaid:
		return UserResidentUnpaid
	case f.IsVendor:
		return UserVendor
	case f.IsOther:
		return UserOther
	default:
		return UserVisitor
	}
}

// Notes renders the one-line summary stored with the entry.
func (f *CheckInForm) Notes() string {
	parts := []string{
		"Visitor Check-In: " + f.Name + " (" + f.HouseNumber + ")",
		"Tel: " + f.PhoneNumber,
		"Plate: " + f.PlateNumber,
	}
	if f.IsVendor {
		parts = append(parts, "Type: Vendor")
	}
	if f.IsOther {
		parts = append(parts, "Type: Other ("+f.OtherReason+")")
	}
	return strings.Join(parts, " | ")
}

// ForcedEntryReport is filed by a guard when someone got in without
// checking in.
type ForcedEntryReport struct {
	Name        string `json:"name" validate:"required,max=120"`
	HouseNumber string `json:"house_number" validate:"max=40"`
	Notes       string `json:"notes" validate:"required,max=1000"`
}

func (r *ForcedEntryReport) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.HouseNumber = strings.TrimSpace(r.HouseNumber)
	r.Notes = strings.TrimSpace(r.Notes)
}

type CheckInReceipt struct {
	Entry       *Entry `json:"entry"`
	PhotoURL    string `json:"photo_url"`
	DisplayTime string `json:"display_time"`
}

// ValidationError names the offending form field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Message
}
