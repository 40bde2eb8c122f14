package cart

import (
	"context"
	"fmt"
	"strings"
	"sync"

	pkgerrors "github.com/adityahutama/pasarsegar-backend/pkg/errors"
	"github.com/adityahutama/pasarsegar-backend/pkg/logger"
	"github.com/adityahutama/pasarsegar-backend/pkg/metrics"
	"github.com/google/uuid"
)

// Ledger owns the mapping from identity to cart lines. It is an explicit
// instance handed to whoever needs it; there is no package-level state.
// A single ledger serves every request, so each operation names the identity
// it targets instead of relying on a shared cursor: concurrent requests for
// different identities can never write into each other's buckets.
// The ledger never computes prices.
type Ledger struct {
	mu      sync.Mutex
	store   Store
	logg    *logger.Logger
	metrics *metrics.CheckoutMetrics
	buckets BucketMap
}

// NewLedger builds a ledger backed by the provided store.
func NewLedger(store Store, logg *logger.Logger, checkoutMetrics *metrics.CheckoutMetrics) (*Ledger, error) {
	if store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	return &Ledger{
		store:   store,
		logg:    logg,
		metrics: checkoutMetrics,
		buckets: BucketMap{},
	}, nil
}

// Hydrate loads persisted buckets for a request. It requires the caller's
// identity up front: rehydration never runs before the identity is known, so
// one identity's cart is never transiently visible to another.
func (l *Ledger) Hydrate(ctx context.Context, identityKey string) error {
	if _, err := normalizeIdentity(identityKey); err != nil {
		return err
	}

	loaded, err := l.store.Load(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart buckets")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.buckets = loaded.Clone()
	return nil
}

// AddLine inserts the item into the identity's bucket, merging by product id:
// an existing line for the same product has its quantity incremented instead
// of a second line being created.
func (l *Ledger) AddLine(ctx context.Context, identityKey string, item Line) (Line, error) {
	key, err := normalizeIdentity(identityKey)
	if err != nil {
		return Line{}, err
	}
	if strings.TrimSpace(item.ProductID) == "" {
		return Line{}, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if item.Quantity < 1 {
		return Line{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	if item.UnitPriceBase < 0 {
		return Line{}, pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
	}

	l.mu.Lock()
	bucket := l.buckets[key]
	merged := false
	var result Line
	for i := range bucket {
		if bucket[i].ProductID == item.ProductID {
			bucket[i].Quantity += item.Quantity
			result = bucket[i]
			merged = true
			break
		}
	}
	if !merged {
		if item.LineID == "" {
			item.LineID = uuid.NewString()
		}
		bucket = append(bucket, item)
		result = item
	}
	l.buckets[key] = bucket
	snapshot := l.buckets.Clone()
	l.mu.Unlock()

	l.metrics.IncCartOp("add_line")
	if err := l.persist(ctx, snapshot); err != nil {
		return Line{}, err
	}
	return result, nil
}

// RemoveLine deletes the line from the identity's bucket if present. Removing
// an unknown line id is a no-op.
func (l *Ledger) RemoveLine(ctx context.Context, identityKey, lineID string) error {
	key, err := normalizeIdentity(identityKey)
	if err != nil {
		return err
	}

	l.mu.Lock()
	bucket := l.buckets[key]
	for i := range bucket {
		if bucket[i].LineID == lineID {
			bucket = append(bucket[:i], bucket[i+1:]...)
			l.buckets[key] = bucket
			break
		}
	}
	snapshot := l.buckets.Clone()
	l.mu.Unlock()

	l.metrics.IncCartOp("remove_line")
	return l.persist(ctx, snapshot)
}

// SetQuantity stores the provided quantity on the line. Callers are
// responsible for treating quantities below 1 as a removal request; the
// ledger itself only rejects negatives.
func (l *Ledger) SetQuantity(ctx context.Context, identityKey, lineID string, quantity int) error {
	key, err := normalizeIdentity(identityKey)
	if err != nil {
		return err
	}
	if quantity < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}

	l.mu.Lock()
	bucket := l.buckets[key]
	found := false
	for i := range bucket {
		if bucket[i].LineID == lineID {
			bucket[i].Quantity = quantity
			found = true
			break
		}
	}
	snapshot := l.buckets.Clone()
	l.mu.Unlock()

	if !found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
	}

	l.metrics.IncCartOp("set_quantity")
	return l.persist(ctx, snapshot)
}

// ClearBucket empties the identity's bucket only.
func (l *Ledger) ClearBucket(ctx context.Context, identityKey string) error {
	key, err := normalizeIdentity(identityKey)
	if err != nil {
		return err
	}

	l.mu.Lock()
	delete(l.buckets, key)
	snapshot := l.buckets.Clone()
	l.mu.Unlock()

	l.metrics.IncCartOp("clear")
	return l.persist(ctx, snapshot)
}

// TotalItemCount sums quantities across the identity's bucket.
func (l *Ledger) TotalItemCount(identityKey string) int {
	key, err := normalizeIdentity(identityKey)
	if err != nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	total := 0
	for _, line := range l.buckets[key] {
		total += line.Quantity
	}
	return total
}

// Lines returns a stable-order copy of the identity's bucket.
func (l *Ledger) Lines(identityKey string) []Line {
	key, err := normalizeIdentity(identityKey)
	if err != nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	bucket := l.buckets[key]
	out := make([]Line, len(bucket))
	copy(out, bucket)
	return out
}

// MergeIdentity folds every line of fromKey's bucket into toKey's bucket
// using the same product-id merge rule as AddLine, then empties the source
// bucket. This is the guest-to-user migration run once per successful login;
// total quantity per product is conserved, and the caller continues under the
// target identity.
func (l *Ledger) MergeIdentity(ctx context.Context, fromKey, toKey string) error {
	from, err := normalizeIdentity(fromKey)
	if err != nil {
		return err
	}
	to, err := normalizeIdentity(toKey)
	if err != nil {
		return err
	}
	if from == to {
		return pkgerrors.New(pkgerrors.CodeValidation, "cannot merge an identity into itself")
	}

	l.mu.Lock()
	target := l.buckets[to]
	for _, line := range l.buckets[from] {
		merged := false
		for i := range target {
			if target[i].ProductID == line.ProductID {
				target[i].Quantity += line.Quantity
				merged = true
				break
			}
		}
		if !merged {
			target = append(target, line)
		}
	}
	l.buckets[to] = target
	delete(l.buckets, from)
	snapshot := l.buckets.Clone()
	l.mu.Unlock()

	l.metrics.IncCartOp("merge_identity")
	return l.persist(ctx, snapshot)
}

func (l *Ledger) persist(ctx context.Context, snapshot BucketMap) error {
	if err := l.store.Save(ctx, snapshot); err != nil {
		if l.logg != nil {
			l.logg.Error(ctx, "cart.persist_failed", err)
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist cart buckets")
	}
	return nil
}

func normalizeIdentity(identityKey string) (string, error) {
	key := strings.TrimSpace(identityKey)
	if key == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "identity key is required")
	}
	return key, nil
}
