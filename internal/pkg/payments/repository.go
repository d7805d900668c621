package payments

import (
	"context"
	"errors"
	"time"

	"github.com/odontobb/odontobb/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides DB operations used by the payment service.
type Repository interface {
	UpsertPendingPurchase(ctx context.Context, p *models.Purchase) error
	GetPurchase(ctx context.Context, reference string) (*models.Purchase, error)
	GetLedger(ctx context.Context, personID string) (*models.BalanceLedger, error)
	RecordWebhookEvent(ctx context.Context, ev *models.PaymentWebhookEvent) error
	Reconcile(ctx context.Context, key, outcome, rawPayload string) (*ReconcileResult, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a payment repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) UpsertPendingPurchase(ctx context.Context, p *models.Purchase) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "reference"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"client_transaction_id",
			"user_id",
			"child_id",
			"product_id",
			"amount",
			"status",
			"updated_at",
		}),
	}).Create(p).Error
}

func (r *gormRepository) GetPurchase(ctx context.Context, reference string) (*models.Purchase, error) {
	var p models.Purchase
	err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) GetLedger(ctx context.Context, personID string) (*models.BalanceLedger, error) {
	var entry models.BalanceLedger
	err := r.db.WithContext(ctx).Where("person_id = ?", personID).First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *gormRepository) RecordWebhookEvent(ctx context.Context, ev *models.PaymentWebhookEvent) error {
	return r.db.WithContext(ctx).Create(ev).Error
}

// Reconcile applies one gateway notification inside a single DB transaction.
// The purchase row is locked for the whole decision, so concurrent deliveries
// of the same notification serialize and only one of them can credit.
//
// The status update commits even when the credit cannot be applied
// (ErrIncompleteLedgerTarget, ErrLedgerTargetNotFound): the purchase must
// reflect gateway truth, and the untouched credited_at marker lets a later
// redelivery finish the credit.
func (r *gormRepository) Reconcile(ctx context.Context, key, outcome, rawPayload string) (*ReconcileResult, error) {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	var p models.Purchase
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("reference = ? OR client_transaction_id = ?", key, key).
		First(&p).Error
	if err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPurchaseNotFound
		}
		return nil, err
	}

	if err := tx.Model(&models.Purchase{}).Where("reference = ?", p.Reference).
		Updates(map[string]interface{}{
			"status":      outcome,
			"raw_payload": rawPayload,
		}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	res := &ReconcileResult{Reference: p.Reference, Status: outcome}

	if outcome != models.PurchaseStatusApproved || p.IsCredited() {
		if err := tx.Commit().Error; err != nil {
			return nil, err
		}
		return res, nil
	}

	beneficiary := p.Beneficiary()
	if beneficiary == "" || p.Amount <= 0 {
		if err := tx.Commit().Error; err != nil {
			return nil, err
		}
		return res, ErrIncompleteLedgerTarget
	}

	var entry models.BalanceLedger
	err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("person_id = ?", beneficiary).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if cerr := tx.Commit().Error; cerr != nil {
				return nil, cerr
			}
			return res, ErrLedgerTargetNotFound
		}
		tx.Rollback()
		return nil, err
	}

	now := time.Now()
	newBalance := entry.DepositedBalance + p.Amount
	if err := tx.Model(&models.BalanceLedger{}).Where("person_id = ?", entry.PersonID).
		Updates(map[string]interface{}{
			"deposited_balance": newBalance,
			"updated_at":        now,
		}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Model(&models.Purchase{}).Where("reference = ?", p.Reference).
		Update("credited_at", &now).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	res.Credited = true
	res.NewBalance = newBalance
	return res, nil
}
