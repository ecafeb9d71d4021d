package controllers

import (
	"context"
	"net/http"
	"testing"

	"installmart/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func productDoc(id primitive.ObjectID, name string, price float64, stock int) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "name", Value: name},
		{Key: "price", Value: price},
		{Key: "stock", Value: stock},
		{Key: "category", Value: "electronics"},
	}
}

func TestBuildOrder_ReleasesReservedStockOnFailure(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("second item fails reservation", func(mt *mtest.T) {
		oc := &OrderController{ProductCollection: mt.Coll}
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()

		phoneID := primitive.NewObjectID()
		fridgeID := primitive.NewObjectID()

		// Catalog lookups succeed, the phone reserves, the fridge loses the
		// stock guard, then the phone's quantity is handed back.
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, productDoc(phoneID, "Phone", 30000, 5)),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, productDoc(fridgeID, "Fridge", 90000, 5)),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
		)

		req := createOrderRequest{
			Items: []orderItemRequest{
				{ProductID: phoneID.Hex(), Quantity: 2},
				{ProductID: fridgeID.Hex(), Quantity: 3},
			},
			InstallmentMonths: 6,
			ShippingAddress:   models.Address{Street: "1 Mall Road", City: "Lahore"},
			Phone:             "03001234567",
			PaymentMethod:     models.MethodMock,
		}

		_, status, err := oc.buildOrder(context.Background(), req)
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Contains(t, err.Error(), "insufficient stock")

		var commands []string
		for {
			evt := mt.GetStartedEvent()
			if evt == nil {
				break
			}
			commands = append(commands, evt.CommandName)
		}
		assert.Equal(t, []string{"find", "find", "update", "update", "update"}, commands)
	})
}
