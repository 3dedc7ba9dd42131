package stores

import (
	"context"
	"os"
	"testing"

	"cloud.google.com/go/datastore"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"
)

// setupDataStore connects to the Datastore emulator. Tests are skipped when
// no emulator is configured so the suite stays runnable offline.
func setupDataStore(t *testing.T) (*DataStore, context.Context) {
	t.Helper()
	ctx := context.Background()
	godotenv.Load("../../.env.test")
	if os.Getenv("DATASTORE_EMULATOR_HOST") == "" {
		t.Skip("DATASTORE_EMULATOR_HOST not set, skipping datastore tests")
	}
	projectID := os.Getenv("TEST_DATASTORE_PROJECT")
	client, err := datastore.NewClientWithDatabase(ctx, projectID, "tokengate-test")
	require.NoError(t, err)
	store, err := NewDataStore(ctx, client)
	require.NoError(t, err)

	// Clear leftover entities before each run.
	for _, kind := range []string{secretKind, grantKind} {
		q := datastore.NewQuery(kind).KeysOnly()
		keys, err := store.client.GetAll(ctx, q, nil)
		if err == nil && len(keys) > 0 {
			_ = store.client.DeleteMulti(ctx, keys)
		}
	}

	t.Cleanup(func() {
		_ = store.Close()
	})
	return store, ctx
}

func TestDataStore(t *testing.T) {
	store, _ := setupDataStore(t)
	runStoreSuite(t, store)
}
