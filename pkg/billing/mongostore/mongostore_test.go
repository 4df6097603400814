package mongostore_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/accountkit/pkg/billing/mongostore"
	"github.com/dmitrymomot/accountkit/pkg/billing/storetest"
	"github.com/dmitrymomot/accountkit/pkg/mongo"
)

func TestStore(t *testing.T) {
	url := os.Getenv("TEST_MONGODB_URL")
	if url == "" {
		t.Skip("TEST_MONGODB_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := mongo.NewWithDatabase(ctx, mongo.Config{
		ConnectionURL:  url,
		ConnectTimeout: 10 * time.Second,
		MaxPoolSize:    4,
		RetryAttempts:  1,
		RetryInterval:  time.Second,
	}, "accountkit_test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Client().Disconnect(context.Background()) })

	store := mongostore.New(db)
	require.NoError(t, store.EnsureIndexes(ctx))
	storetest.Run(t, func(t *testing.T) storetest.Store { return store })
}
