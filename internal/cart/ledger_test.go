package cart

import (
	"context"
	"testing"
	"time"

	pkgerrors "github.com/adityahutama/pasarsegar-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	ledger, err := NewLedger(NewMemoryStore(), nil, nil)
	require.NoError(t, err)
	return ledger
}

func sampleLine(productID string, qty int) Line {
	return Line{
		ProductID:      productID,
		ProductName:    "Tomat Segar",
		UnitPriceBase:  25000,
		Quantity:       qty,
		SellerID:       "seller-1",
		SellerName:     "Kebun Pak Budi",
		ExpirationDate: time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC),
	}
}

func TestAddLineMergesByProduct(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()

	first, err := ledger.AddLine(ctx, GuestIdentityKey, sampleLine("p1", 2))
	require.NoError(t, err)
	require.NotEmpty(t, first.LineID)

	second, err := ledger.AddLine(ctx, GuestIdentityKey, sampleLine("p1", 3))
	require.NoError(t, err)

	assert.Equal(t, first.LineID, second.LineID, "same product should merge into the existing line")
	assert.Equal(t, 5, second.Quantity)

	lines := ledger.Lines(GuestIdentityKey)
	require.Len(t, lines, 1)
	assert.Equal(t, 5, ledger.TotalItemCount(GuestIdentityKey))
}

func TestAddLineDistinctProductsGrowBucket(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()

	_, err := ledger.AddLine(ctx, GuestIdentityKey, sampleLine("p1", 1))
	require.NoError(t, err)
	_, err = ledger.AddLine(ctx, GuestIdentityKey, sampleLine("p2", 4))
	require.NoError(t, err)

	lines := ledger.Lines(GuestIdentityKey)
	require.Len(t, lines, 2)
	assert.Equal(t, "p1", lines[0].ProductID, "insertion order should be preserved")
	assert.Equal(t, "p2", lines[1].ProductID)
	assert.Equal(t, 5, ledger.TotalItemCount(GuestIdentityKey))
}

func TestAddLineValidation(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()

	_, err := ledger.AddLine(ctx, GuestIdentityKey, Line{ProductID: "", Quantity: 1})
	require.Error(t, err)

	_, err = ledger.AddLine(ctx, GuestIdentityKey, Line{ProductID: "p1", Quantity: 0})
	require.Error(t, err)

	_, err = ledger.AddLine(ctx, GuestIdentityKey, Line{ProductID: "p1", Quantity: 1, UnitPriceBase: -1})
	require.Error(t, err)

	_, err = ledger.AddLine(ctx, "  ", sampleLine("p1", 1))
	require.Error(t, err, "a blank identity key targets no bucket")
}

func TestOperationsTargetTheNamedIdentityOnly(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()

	// Two requests interleave: the guest hydrates, a logged-in user hydrates
	// right after, then the guest's mutation lands. It must hit the guest
	// bucket, not the one hydrated last.
	require.NoError(t, ledger.Hydrate(ctx, GuestIdentityKey))
	require.NoError(t, ledger.Hydrate(ctx, "user-1"))

	_, err := ledger.AddLine(ctx, GuestIdentityKey, sampleLine("p-guest", 2))
	require.NoError(t, err)

	assert.Empty(t, ledger.Lines("user-1"), "another identity's hydration must not redirect writes")
	require.Len(t, ledger.Lines(GuestIdentityKey), 1)
	assert.Equal(t, "p-guest", ledger.Lines(GuestIdentityKey)[0].ProductID)
	assert.Equal(t, 0, ledger.TotalItemCount("user-1"))
}

func TestRemoveLineIsIdempotent(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()

	added, err := ledger.AddLine(ctx, GuestIdentityKey, sampleLine("p1", 2))
	require.NoError(t, err)

	require.NoError(t, ledger.RemoveLine(ctx, GuestIdentityKey, added.LineID))
	assert.Empty(t, ledger.Lines(GuestIdentityKey))

	// Removing again, or removing something that never existed, changes nothing.
	require.NoError(t, ledger.RemoveLine(ctx, GuestIdentityKey, added.LineID))
	require.NoError(t, ledger.RemoveLine(ctx, GuestIdentityKey, "no-such-line"))
	assert.Empty(t, ledger.Lines(GuestIdentityKey))
}

func TestSetQuantity(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()

	added, err := ledger.AddLine(ctx, GuestIdentityKey, sampleLine("p1", 2))
	require.NoError(t, err)

	require.NoError(t, ledger.SetQuantity(ctx, GuestIdentityKey, added.LineID, 7))
	assert.Equal(t, 7, ledger.TotalItemCount(GuestIdentityKey))

	err = ledger.SetQuantity(ctx, GuestIdentityKey, "missing", 3)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())

	require.Error(t, ledger.SetQuantity(ctx, GuestIdentityKey, added.LineID, -1))
}

func TestClearBucketLeavesOtherIdentitiesAlone(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()

	_, err := ledger.AddLine(ctx, GuestIdentityKey, sampleLine("p1", 2))
	require.NoError(t, err)
	_, err = ledger.AddLine(ctx, "user-7", sampleLine("p2", 1))
	require.NoError(t, err)

	require.NoError(t, ledger.ClearBucket(ctx, "user-7"))
	assert.Empty(t, ledger.Lines("user-7"))
	assert.Len(t, ledger.Lines(GuestIdentityKey), 1, "other buckets must survive a clear")
}

func TestMergeIdentityConservesQuantities(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()

	// Guest adds p1 x2 and p3 x1.
	_, err := ledger.AddLine(ctx, GuestIdentityKey, sampleLine("p1", 2))
	require.NoError(t, err)
	_, err = ledger.AddLine(ctx, GuestIdentityKey, sampleLine("p3", 1))
	require.NoError(t, err)

	// The user's own bucket already holds p1 x1.
	_, err = ledger.AddLine(ctx, "user-42", sampleLine("p1", 1))
	require.NoError(t, err)

	require.NoError(t, ledger.MergeIdentity(ctx, GuestIdentityKey, "user-42"))

	lines := ledger.Lines("user-42")
	byProduct := map[string]int{}
	for _, line := range lines {
		byProduct[line.ProductID] += line.Quantity
	}
	assert.Equal(t, 3, byProduct["p1"], "2 guest + 1 user must merge to 3")
	assert.Equal(t, 1, byProduct["p3"])
	require.Len(t, lines, 2, "merge must not duplicate product lines")

	assert.Empty(t, ledger.Lines(GuestIdentityKey), "source bucket must be empty after merge")
}

func TestMergeIdentityRejectsSelfMerge(t *testing.T) {
	ledger := newTestLedger(t)
	require.Error(t, ledger.MergeIdentity(context.Background(), "guest", "guest"))
}

func TestHydrateRequiresIdentityBeforeExposingData(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	seed := BucketMap{
		"user-9": {sampleLine("p1", 4)},
		"guest":  {sampleLine("p2", 1)},
	}
	seed["user-9"][0].LineID = "line-1"
	seed["guest"][0].LineID = "line-2"
	require.NoError(t, store.Save(ctx, seed))

	ledger, err := NewLedger(store, nil, nil)
	require.NoError(t, err)

	// Before hydration nothing is visible.
	assert.Empty(t, ledger.Lines("user-9"))

	require.Error(t, ledger.Hydrate(ctx, ""), "hydration never runs without a known identity")

	require.NoError(t, ledger.Hydrate(ctx, "user-9"))
	lines := ledger.Lines("user-9")
	require.Len(t, lines, 1)
	assert.Equal(t, "p1", lines[0].ProductID)
}

func TestMutationsPersistToStore(t *testing.T) {
	store := NewMemoryStore()
	ledger, err := NewLedger(store, nil, nil)
	require.NoError(t, err)
	ctx := context.Background()

	added, err := ledger.AddLine(ctx, GuestIdentityKey, sampleLine("p1", 2))
	require.NoError(t, err)

	persisted, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, persisted[GuestIdentityKey], 1)
	assert.Equal(t, added.LineID, persisted[GuestIdentityKey][0].LineID)

	require.NoError(t, ledger.RemoveLine(ctx, GuestIdentityKey, added.LineID))
	persisted, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, persisted[GuestIdentityKey])
}
