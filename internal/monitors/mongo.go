package monitors

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mongoTimeout = 10 * time.Second

// CheckMongo connects to the MongoDB deployment behind uri, pings it and
// disconnects again.
func CheckMongo(ctx context.Context, uri string) (Response, error) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(mongoTimeout).
		SetConnectTimeout(mongoTimeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return Response{}, mongoError(start, err)
	}

	defer func() {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer disconnectCancel()
		_ = client.Disconnect(disconnectCtx)
	}()

	if err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err(); err != nil {
		return Response{}, mongoError(start, err)
	}

	return established(start, "MongoDB server running"), nil
}

// mongoError keeps the code and message of errors reported by the server and
// falls back to a generic refusal for connection failures.
func mongoError(start time.Time, err error) error {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		code := int(cmdErr.Code)
		if code == 0 {
			code = 500
		}

		message := cmdErr.Message
		if message == "" {
			message = "MongoDB server connection issue"
		}

		return refused(start, code, message, err)
	}

	return refused(start, 500, "MongoDB server down", err)
}
