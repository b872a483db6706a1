package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	connectTimeout = 10 * time.Second
	appName        = "athletix-tracker"
)

// ErrNoChangeStreams is returned for a standalone server. Subscribe is built
// on change streams, which only replica sets and sharded clusters serve.
var ErrNoChangeStreams = errors.New("mongo deployment does not support change streams, use a replica set")

// deploymentInfo is the part of the hello reply that tells the topology apart.
type deploymentInfo struct {
	SetName string `bson:"setName"`
	Msg     string `bson:"msg"`
}

func (d deploymentInfo) supportsChangeStreams() bool {
	return d.SetName != "" || d.Msg == "isdbgrid"
}

// ConnectDB connects to uri and checks that the primary answers and that the
// deployment can serve change streams.
func ConnectDB(uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(uri).
		SetAppName(appName).
		SetServerSelectionTimeout(connectTimeout)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	info, err := describeDeployment(ctx, client)
	if err == nil && !info.supportsChangeStreams() {
		err = ErrNoChangeStreams
	}
	if err != nil {
		if derr := DisconnectDB(client); derr != nil {
			log.Warnf("disconnect after failed connect: %s", derr)
		}
		return nil, err
	}

	log.WithField("replica_set", info.SetName).Info("connected to MongoDB")
	return client, nil
}

func describeDeployment(ctx context.Context, client *mongo.Client) (deploymentInfo, error) {
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return deploymentInfo{}, fmt.Errorf("ping primary: %w", err)
	}
	var info deploymentInfo
	if err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&info); err != nil {
		return deploymentInfo{}, fmt.Errorf("hello: %w", err)
	}
	return info, nil
}

// DisconnectDB gracefully disconnects the MongoDB client.
func DisconnectDB(client *mongo.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	return client.Disconnect(ctx)
}
