package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"installmart/gateway"
	"installmart/middleware"
	"installmart/models"
	"installmart/utils"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func orderDoc(t *testing.T, order models.Order) bson.D {
	t.Helper()
	raw, err := bson.Marshal(order)
	require.NoError(t, err)
	var doc bson.D
	require.NoError(t, bson.Unmarshal(raw, &doc))
	return doc
}

func initializeRequest(t *testing.T, orderID primitive.ObjectID, seq int, userID primitive.ObjectID) *http.Request {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"order_id":        orderID.Hex(),
		"installment_seq": seq,
	})
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/api/payment/initialize", bytes.NewReader(body))
	claims := &utils.Claims{UserID: userID.Hex(), Email: "buyer@example.com", Role: "customer"}
	return req.WithContext(context.WithValue(req.Context(), middleware.UserContextKey, claims))
}

func TestInitializePayment(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("paid installment rejected", func(mt *mtest.T) {
		pc := &PaymentController{
			OrderCollection: mt.Coll,
			Gateways:        gateway.NewRegistry("http://localhost:8000"),
			validate:        validator.New(),
		}
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()

		userID := primitive.NewObjectID()
		orderID := primitive.NewObjectID()
		order := models.Order{
			ID:            orderID,
			UserID:        userID,
			PaymentMethod: models.MethodMock,
			Installments: []models.Installment{
				{Seq: 1, DueDate: time.Now(), Amount: 2000, Status: models.InstallmentPaid},
			},
		}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, orderDoc(mt.T, order)))

		rec := httptest.NewRecorder()
		pc.InitializePayment(rec, initializeRequest(mt.T, orderID, 1, userID))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "already paid")
	})

	mt.Run("overdue installment payable", func(mt *mtest.T) {
		pc := &PaymentController{
			OrderCollection: mt.Coll,
			Gateways:        gateway.NewRegistry("http://localhost:8000"),
			validate:        validator.New(),
		}
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()

		userID := primitive.NewObjectID()
		orderID := primitive.NewObjectID()
		order := models.Order{
			ID:            orderID,
			UserID:        userID,
			GuestEmail:    "buyer@example.com",
			PaymentMethod: models.MethodMock,
			Installments: []models.Installment{
				{Seq: 1, DueDate: time.Now().AddDate(0, -1, 0), Amount: 2000, Status: models.InstallmentOverdue},
			},
		}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, orderDoc(mt.T, order)))

		rec := httptest.NewRecorder()
		pc.InitializePayment(rec, initializeRequest(mt.T, orderID, 1, userID))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "/api/payment/mock/callback")
	})
}
