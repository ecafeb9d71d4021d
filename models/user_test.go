package models_test

import (
	"testing"
	"time"

	"installmart/models"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func doc(status string) models.Document {
	return models.Document{
		ID:         primitive.NewObjectID(),
		Type:       "cnic",
		FileURL:    "/uploads/documents/cnic.jpg",
		Status:     status,
		UploadedAt: time.Now(),
	}
}

func TestRecomputeVerification(t *testing.T) {
	tests := []struct {
		name         string
		documents    []models.Document
		wantStatus   string
		wantVerified bool
	}{
		{"no documents", nil, models.VerificationUnverified, false},
		{"pending only", []models.Document{doc(models.DocumentPending)}, models.VerificationPending, false},
		{"approved", []models.Document{doc(models.DocumentApproved)}, models.VerificationVerified, true},
		{"approved with pending", []models.Document{doc(models.DocumentApproved), doc(models.DocumentPending)}, models.VerificationPending, false},
		{"any rejected wins", []models.Document{doc(models.DocumentApproved), doc(models.DocumentRejected)}, models.VerificationRejected, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := models.User{Documents: tt.documents}
			user.RecomputeVerification()
			assert.Equal(t, tt.wantStatus, user.VerificationStatus)
			assert.Equal(t, tt.wantVerified, user.DocumentsVerified)
		})
	}
}
