package mongo

import (
	"context"

	"athletix/tracker/internal/repository"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func tableIndexes() map[repository.Table][]mongo.IndexModel {
	return map[repository.Table][]mongo.IndexModel{
		repository.TableCredentials: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		repository.TableProfiles: {
			{Keys: bson.D{{Key: "role", Value: 1}}},
			{Keys: bson.D{{Key: "team_id", Value: 1}, {Key: "is_approved", Value: 1}}},
		},
		repository.TableInjuries: {
			// athlete history, newest first
			{Keys: bson.D{{Key: "athlete_id", Value: 1}, {Key: "date_logged", Value: -1}}},
			{Keys: bson.D{{Key: "client_ref", Value: 1}}, Options: options.Index().SetSparse(true)},
		},
		repository.TableTrainingLogs: {
			{Keys: bson.D{{Key: "athlete_id", Value: 1}, {Key: "date", Value: -1}}},
		},
		repository.TableMessages: {
			{Keys: bson.D{{Key: "sender_id", Value: 1}, {Key: "timestamp", Value: 1}}},
			{Keys: bson.D{{Key: "receiver_id", Value: 1}, {Key: "timestamp", Value: 1}}},
		},
		repository.TableTeams: {
			{Keys: bson.D{{Key: "coach_id", Value: 1}}},
			{Keys: bson.D{{Key: "join_code", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
		},
	}
}

// EnsureIndexes creates the indexes the query patterns rely on. Failures are
// logged and skipped so a partially indexed database still serves requests.
func EnsureIndexes(ctx context.Context, db *mongo.Database) {
	for table, models := range tableIndexes() {
		if _, err := db.Collection(string(table)).Indexes().CreateMany(ctx, models); err != nil {
			log.WithField("table", table).Warnf("failed to create indexes: %s", err)
			continue
		}
		log.WithField("table", table).Debugf("indexes ensured: %d", len(models))
	}
}
