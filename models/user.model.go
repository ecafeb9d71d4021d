package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Document statuses
const (
	DocumentPending  = "pending"
	DocumentApproved = "approved"
	DocumentRejected = "rejected"
)

// Verification statuses derived from a user's documents
const (
	VerificationUnverified = "unverified"
	VerificationPending    = "pending"
	VerificationVerified   = "verified"
	VerificationRejected   = "rejected"
)

// Address represents a shipping address
type Address struct {
	Street  string `bson:"street" json:"street"`
	City    string `bson:"city" json:"city"`
	State   string `bson:"state" json:"state"`
	ZipCode string `bson:"zipcode" json:"zipcode"`
}

// Document is a KYC file embedded in the user record
type Document struct {
	ID         primitive.ObjectID `bson:"_id" json:"id"`
	Type       string             `bson:"type" json:"type"` // e.g., "cnic", "utility_bill"
	FileURL    string             `bson:"file_url" json:"file_url"`
	Status     string             `bson:"status" json:"status"`
	UploadedAt time.Time          `bson:"uploaded_at" json:"uploaded_at"`
	ReviewedAt *time.Time         `bson:"reviewed_at,omitempty" json:"reviewed_at,omitempty"`
}

// User represents a user in the system
type User struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	FullName           string             `bson:"full_name" json:"full_name"`
	Email              string             `bson:"email" json:"email"`
	Password           string             `bson:"password,omitempty" json:"-"`
	Role               string             `bson:"role" json:"role"` // "customer" or "admin"
	Documents          []Document         `bson:"documents,omitempty" json:"documents,omitempty"`
	DocumentsVerified  bool               `bson:"documents_verified" json:"documents_verified"`
	VerificationStatus string             `bson:"verification_status" json:"verification_status"`
	CreatedAt          time.Time          `bson:"created_at" json:"created_at"`
}

// RecomputeVerification derives DocumentsVerified and VerificationStatus
// from the embedded documents: verified when at least one document is
// approved and none rejected, rejected when any is rejected, pending when
// any is awaiting review.
func (u *User) RecomputeVerification() {
	approved, rejected, pending := 0, 0, 0
	for _, d := range u.Documents {
		switch d.Status {
		case DocumentApproved:
			approved++
		case DocumentRejected:
			rejected++
		case DocumentPending:
			pending++
		}
	}
	switch {
	case rejected > 0:
		u.VerificationStatus = VerificationRejected
		u.DocumentsVerified = false
	case approved > 0 && pending == 0:
		u.VerificationStatus = VerificationVerified
		u.DocumentsVerified = true
	case pending > 0:
		u.VerificationStatus = VerificationPending
		u.DocumentsVerified = false
	default:
		u.VerificationStatus = VerificationUnverified
		u.DocumentsVerified = false
	}
}
