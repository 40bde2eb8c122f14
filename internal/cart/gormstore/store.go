package gormstore

import (
	"context"
	"fmt"
	"time"

	"github.com/adityahutama/pasarsegar-backend/internal/cart"
	"gorm.io/gorm"
)

// LineRow is the relational shape of one cart line.
type LineRow struct {
	ID             string `gorm:"primaryKey"`
	IdentityKey    string `gorm:"index;not null"`
	Position       int    `gorm:"not null"`
	ProductID      string `gorm:"not null"`
	ProductName    string
	UnitPriceBase  int64 `gorm:"not null"`
	Quantity       int   `gorm:"not null"`
	SellerID       string
	SellerName     string
	ExpirationDate time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (LineRow) TableName() string {
	return "cart_lines"
}

// Store persists the full bucket map in the cart_lines table. Saves replace
// the table contents wholesale, mirroring how the ledger treats the bucket
// map as its unit of storage.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("gorm connection required")
	}
	return &Store{db: db}, nil
}

func (s *Store) Load(ctx context.Context) (cart.BucketMap, error) {
	var rows []LineRow
	if err := s.db.WithContext(ctx).
		Order("identity_key ASC, position ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	buckets := cart.BucketMap{}
	for _, row := range rows {
		buckets[row.IdentityKey] = append(buckets[row.IdentityKey], cart.Line{
			LineID:         row.ID,
			ProductID:      row.ProductID,
			ProductName:    row.ProductName,
			UnitPriceBase:  row.UnitPriceBase,
			Quantity:       row.Quantity,
			SellerID:       row.SellerID,
			SellerName:     row.SellerName,
			ExpirationDate: row.ExpirationDate,
		})
	}
	return buckets, nil
}

func (s *Store) Save(ctx context.Context, buckets cart.BucketMap) error {
	rows := make([]LineRow, 0)
	for identity, bucket := range buckets {
		for position, line := range bucket {
			rows = append(rows, LineRow{
				ID:             line.LineID,
				IdentityKey:    identity,
				Position:       position,
				ProductID:      line.ProductID,
				ProductName:    line.ProductName,
				UnitPriceBase:  line.UnitPriceBase,
				Quantity:       line.Quantity,
				SellerID:       line.SellerID,
				SellerName:     line.SellerName,
				ExpirationDate: line.ExpirationDate,
			})
		}
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&LineRow{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
}
