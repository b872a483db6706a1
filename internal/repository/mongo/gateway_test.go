package mongo

import (
	"testing"

	"athletix/tracker/internal/repository"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestToBSONFilter(t *testing.T) {
	f := repository.Filter{
		Equals: map[string]any{"id": "x", "athlete_id": "a"},
		In:     map[string][]any{"role": {"COACH", "TRAINER"}},
	}
	got := toBSONFilter(f)
	assert.Equal(t, "x", got["_id"])
	assert.Equal(t, "a", got["athlete_id"])
	assert.Equal(t, bson.M{"$in": []any{"COACH", "TRAINER"}}, got["role"])
	assert.NotContains(t, got, "$or")

	got = toBSONFilter(repository.Either("sender_id", "receiver_id", "me"))
	ors, ok := got["$or"].(bson.A)
	if assert.True(t, ok) {
		assert.Len(t, ors, 2)
	}
}

func TestStorageConversion(t *testing.T) {
	row := repository.Row{"id": "abc", "name": "Sam"}
	doc := toStorage(row)
	assert.Equal(t, "abc", doc["_id"])
	assert.NotContains(t, doc, "id")
	assert.Equal(t, row, fromStorage(doc))

	oid := primitive.NewObjectID()
	back := fromStorage(bson.M{"_id": oid})
	assert.Equal(t, oid.Hex(), back["id"])
}

func TestEventType(t *testing.T) {
	assert.Equal(t, repository.EventInsert, eventType("insert"))
	assert.Equal(t, repository.EventUpdate, eventType("update"))
	assert.Equal(t, repository.EventUpdate, eventType("replace"))
}

func TestDeploymentInfo_SupportsChangeStreams(t *testing.T) {
	assert.True(t, deploymentInfo{SetName: "rs0"}.supportsChangeStreams())
	assert.True(t, deploymentInfo{Msg: "isdbgrid"}.supportsChangeStreams())
	assert.False(t, deploymentInfo{}.supportsChangeStreams())
}
