package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/sales"
	"github.com/homestead/backend/internal/domain/shared"
	"github.com/homestead/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormCartRepository implements sales.CartRepository using GORM
type GormCartRepository struct {
	db *gorm.DB
}

// NewGormCartRepository creates a new GormCartRepository
func NewGormCartRepository(db *gorm.DB) *GormCartRepository {
	return &GormCartRepository{db: db}
}

// FindByCustomerID returns the cart owned by customerID
func (r *GormCartRepository) FindByCustomerID(ctx context.Context, customerID uuid.UUID) (*sales.Cart, error) {
	var model models.CartModel
	if err := r.db.WithContext(ctx).Where("customer_id = ?", customerID).First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// Save creates or updates a cart
func (r *GormCartRepository) Save(ctx context.Context, cart *sales.Cart) error {
	model := &models.CartModel{}
	model.FromDomain(cart)
	return translateError(r.db.WithContext(ctx).Save(model).Error)
}

// GormTransactionRepository implements sales.TransactionRepository using GORM
type GormTransactionRepository struct {
	db *gorm.DB
}

// NewGormTransactionRepository creates a new GormTransactionRepository
func NewGormTransactionRepository(db *gorm.DB) *GormTransactionRepository {
	return &GormTransactionRepository{db: db}
}

// WithTx returns a new repository instance with the given transaction
func (r *GormTransactionRepository) WithTx(tx *gorm.DB) *GormTransactionRepository {
	return &GormTransactionRepository{db: tx}
}

func (r *GormTransactionRepository) withLines(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Lines", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	})
}

// FindByID finds a transaction by ID with its lines
func (r *GormTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*sales.Transaction, error) {
	var model models.TransactionModel
	if err := r.withLines(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByNumber finds a transaction by its estimate number
func (r *GormTransactionRepository) FindByNumber(ctx context.Context, number string) (*sales.Transaction, error) {
	var model models.TransactionModel
	if err := r.withLines(ctx).Where("number = ?", number).First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByEnvelopeID finds the transaction whose contract was sent as envelopeID
func (r *GormTransactionRepository) FindByEnvelopeID(ctx context.Context, envelopeID string) (*sales.Transaction, error) {
	if envelopeID == "" {
		return nil, shared.ErrNotFound
	}
	var model models.TransactionModel
	if err := r.withLines(ctx).Where("envelope_id = ?", envelopeID).First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindAll lists transactions
func (r *GormTransactionRepository) FindAll(ctx context.Context, filter sales.TransactionFilter) ([]*sales.Transaction, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.TransactionModel{})
	if filter.Status != nil {
		query = query.Where("status = ?", string(*filter.Status))
	}
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.SalesRepID != nil {
		query = query.Where("sales_rep_id = ?", *filter.SalesRepID)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at < ?", *filter.To)
	}
	if filter.Search != "" {
		query = query.Where("LOWER(number) LIKE ?", likePattern(filter.Search))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.TransactionModel
	query = query.Preload("Lines", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	})
	if err := paginate(query, filter.Filter, TransactionSortFields, "created_at").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	txs := make([]*sales.Transaction, 0, len(rows))
	for i := range rows {
		txs = append(txs, rows[i].ToDomain())
	}
	return txs, total, nil
}

// Save writes t under optimistic locking. The stored row must still carry
// t.Version; on success the row and t both move to t.Version+1. Lines are
// replaced wholesale.
func (r *GormTransactionRepository) Save(ctx context.Context, t *sales.Transaction) error {
	model := &models.TransactionModel{}
	model.FromDomain(t)
	expected := t.Version

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model.Version = expected + 1
		result := tx.Model(model).
			Where("version = ?", expected).
			Select("*").
			Omit("ID", "CreatedAt", "Lines").
			Updates(model)
		if result.Error != nil {
			return translateError(result.Error)
		}
		if result.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.TransactionModel{}).Where("id = ?", model.ID).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return shared.ErrConcurrencyConflict
			}
			model.Version = expected
			return translateError(tx.Create(model).Error)
		}

		if err := tx.Where("transaction_id = ?", model.ID).Delete(&models.TransactionLineModel{}).Error; err != nil {
			return err
		}
		if len(model.Lines) > 0 {
			if err := tx.Create(&model.Lines).Error; err != nil {
				return translateError(err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	t.Version = model.Version
	return nil
}

// NextSequence atomically increments and returns the estimate counter for year
func (r *GormTransactionRepository) NextSequence(ctx context.Context, year int) (int, error) {
	var seq int
	err := r.db.WithContext(ctx).Raw(
		`INSERT INTO transaction_sequences (year, last_seq) VALUES (?, 1)
		 ON CONFLICT (year) DO UPDATE SET last_seq = transaction_sequences.last_seq + 1
		 RETURNING last_seq`, year,
	).Scan(&seq).Error
	if err != nil {
		return 0, err
	}
	return seq, nil
}

// ReferencesCatalogItem reports whether any transaction line points at refID
func (r *GormTransactionRepository) ReferencesCatalogItem(ctx context.Context, refID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.TransactionLineModel{}).
		Where("ref_id = ?", refID).
		Limit(1).
		Count(&count).Error
	return count > 0, err
}

var (
	_ sales.CartRepository        = (*GormCartRepository)(nil)
	_ sales.TransactionRepository = (*GormTransactionRepository)(nil)
)
