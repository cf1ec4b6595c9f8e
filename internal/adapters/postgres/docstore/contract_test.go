package docstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pixeltrip/tripboard/internal/adapters/contracttest"
	"github.com/pixeltrip/tripboard/internal/adapters/postgres/testutil"
	docstoreport "github.com/pixeltrip/tripboard/internal/ports/out/docstore"
)

func TestContract_PostgresDocStore(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)

	contracttest.RunDocStore(t, func(t *testing.T) (docstoreport.Store, func()) {
		t.Helper()
		return NewStore(pool, nil), nil
	})
}

// A second store stands in for another API instance: it only learns about writes through
// LISTEN/NOTIFY.
func TestContract_PostgresDocStore_CrossInstance(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)

	contracttest.RunDocStore(t, func(t *testing.T) (docstoreport.Store, func()) {
		t.Helper()
		reader := NewStore(pool, nil)
		writer := NewStore(pool, nil)
		ctx, cancel := context.WithCancel(context.Background())
		go func() { _ = reader.Listen(ctx) }()
		require.Eventually(t, reader.Listening, 5*time.Second, 10*time.Millisecond)
		return splitStore{Store: writer, reader: reader}, cancel
	})
}

type splitStore struct {
	*Store
	reader *Store
}

func (s splitStore) Subscribe(ctx context.Context, ref docstoreport.Ref, onData func([]docstoreport.Document), onError func(error)) (docstoreport.Unsubscribe, error) {
	return s.reader.Subscribe(ctx, ref, onData, onError)
}
