package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/tripnest/booking-core/internal/models"
)

// VoucherRepository reads voucher definitions
type VoucherRepository struct {
	db *sqlx.DB
}

// NewVoucherRepository creates a new VoucherRepository
func NewVoucherRepository(db *sqlx.DB) *VoucherRepository {
	return &VoucherRepository{db: db}
}

// GetByID retrieves a voucher. Returns nil, nil when not found.
func (r *VoucherRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Voucher, error) {
	var v models.Voucher
	query := `SELECT id, code, percent, start_date, end_date, is_deleted FROM vouchers WHERE id = $1`

	err := r.db.GetContext(ctx, &v, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get voucher: %w", err)
	}
	return &v, nil
}
