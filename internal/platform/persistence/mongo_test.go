package persistence

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func TestMongoDB_Collection(t *testing.T) {
	// mongo.Connect does not dial until the first operation.
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI("mongodb://localhost:27017"))
	require.NoError(t, err)
	db := client.Database("emotion_market_test")

	mdb := &MongoDB{
		logger:   slog.New(slog.NewJSONHandler(io.Discard, nil)),
		client:   client,
		database: db,
	}

	assert.Equal(t, db, mdb.Database())
	assert.Equal(t, "ledger_audit", mdb.Collection("ledger_audit").Name())
	assert.Equal(t, "emotion_market_test", mdb.Collection("ledger_audit").Database().Name())
	assert.NoError(t, mdb.Close(context.Background()))
}
