package cart

import (
	"time"
)

// GuestIdentityKey is the bucket used before a buyer authenticates.
const GuestIdentityKey = "guest"

// Line is one purchasable quantity of one product from one seller, scoped to
// a single identity bucket.
type Line struct {
	LineID         string    `json:"line_id"`
	ProductID      string    `json:"product_id"`
	ProductName    string    `json:"product_name"`
	UnitPriceBase  int64     `json:"unit_price_base"`
	Quantity       int       `json:"quantity"`
	SellerID       string    `json:"seller_id"`
	SellerName     string    `json:"seller_name"`
	ExpirationDate time.Time `json:"expiration_date"`
}

// Bucket holds the lines of one identity in insertion order. Order carries no
// correctness weight but keeps display and checkout submission stable.
type Bucket []Line

// BucketMap is the durable unit of cart storage, keyed by identity.
type BucketMap map[string]Bucket

// Clone returns a deep copy so callers can hold snapshots safely.
func (m BucketMap) Clone() BucketMap {
	if m == nil {
		return BucketMap{}
	}
	out := make(BucketMap, len(m))
	for key, bucket := range m {
		copied := make(Bucket, len(bucket))
		copy(copied, bucket)
		out[key] = copied
	}
	return out
}
