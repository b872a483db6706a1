//go:build integration_test || all_tests

package mongo

import (
	"context"
	"os"
	"testing"
	"time"

	"athletix/tracker/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Change streams require a replica set, e.g. mongodb://localhost:27017/?replicaSet=rs0
func testGatewaySetup(t *testing.T) (*Gateway, func()) {
	t.Helper()

	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017/?replicaSet=rs0"
	}
	t.Logf("using mongo uri: %s", uri)

	client, err := ConnectDB(uri)
	require.NoError(t, err)

	db := client.Database("tracker_test_" + uuid.NewString()[:8])
	EnsureIndexes(context.Background(), db)

	return NewGateway(db), func() {
		_ = db.Drop(context.Background())
		_ = DisconnectDB(client)
	}
}

func TestGateway_InsertQueryUpdate(t *testing.T) {
	gw, shutdown := testGatewaySetup(t)
	defer shutdown()

	ctx := context.Background()
	row, err := gw.Insert(ctx, repository.TableMessages, repository.Row{
		"sender_id": "a", "receiver_id": "b", "text": "hi", "timestamp": time.Now().UTC(), "is_read": false,
	})
	require.NoError(t, err)
	id := repository.RowID(row)
	require.NotEmpty(t, id)

	rows, err := gw.Query(ctx, repository.TableMessages, repository.Either("sender_id", "receiver_id", "b"), nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, id, repository.RowID(rows[0]))

	updated, err := gw.Update(ctx, repository.TableMessages, id, repository.MessageReadPatch())
	require.NoError(t, err)
	assert.Equal(t, true, updated["is_read"])

	_, err = gw.Update(ctx, repository.TableMessages, "missing", repository.MessageReadPatch())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestGateway_SubscribeDeliversInsertAndUpdate(t *testing.T) {
	gw, shutdown := testGatewaySetup(t)
	defer shutdown()

	ctx := context.Background()
	events := make(chan repository.ChangeEvent, 4)
	unsubscribe, err := gw.Subscribe(ctx, repository.TableMessages,
		repository.EventFilter{Match: repository.Eq("receiver_id", "b")},
		func(ev repository.ChangeEvent) { events <- ev })
	require.NoError(t, err)
	defer unsubscribe()

	row, err := gw.Insert(ctx, repository.TableMessages, repository.Row{
		"sender_id": "a", "receiver_id": "b", "text": "hi", "timestamp": time.Now().UTC(),
	})
	require.NoError(t, err)
	_, err = gw.Update(ctx, repository.TableMessages, repository.RowID(row), repository.MessageReadPatch())
	require.NoError(t, err)

	select {
	case ev := <-events:
		assert.Equal(t, repository.EventInsert, ev.Type)
	case <-time.After(5 * time.Second):
		t.Fatal("no insert event")
	}
	select {
	case ev := <-events:
		assert.Equal(t, repository.EventUpdate, ev.Type)
		assert.Equal(t, true, ev.Row["is_read"])
	case <-time.After(5 * time.Second):
		t.Fatal("no update event")
	}
}
