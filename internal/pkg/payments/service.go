package payments

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"
	"github.com/odontobb/odontobb/app/models"
	"gorm.io/gorm"
)

// Service owns the purchase reconciliation flow: payment link initiation
// and gateway notification handling.
type Service struct {
	repo     Repository
	gateway  Gateway
	validate *validator.Validate
}

// NewService creates a payment service from injected collaborators.
func NewService(repo Repository, gateway Gateway) *Service {
	return &Service{
		repo:     repo,
		gateway:  gateway,
		validate: validator.New(),
	}
}

// NewServiceFromDB creates a payment service from a GORM DB handle with the
// gateway client configured from the environment.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db), NewPayPhoneClientFromEnv())
}

// InitiateOrder validates an order, asks the gateway for a hosted payment
// link and records a pending purchase. The purchase is only written after
// the gateway call succeeds, so a gateway failure never leaves a row behind.
func (s *Service) InitiateOrder(ctx context.Context, req OrderRequest) (string, error) {
	if err := s.validate.Struct(req); err != nil {
		return "", fmt.Errorf("%w: %v", ErrValidation, err)
	}

	reference := req.Reference
	if reference == "" {
		reference = strconv.FormatInt(time.Now().UnixMilli(), 10)
	}

	cents := int(math.Round(req.Amount * 100))
	prep, err := s.gateway.Prepare(ctx, PrepareRequest{
		Amount:              cents,
		AmountWithoutTax:    cents,
		Tax:                 0,
		ClientTransactionID: reference,
		Reference:           reference,
	})
	if err != nil {
		return "", err
	}

	purchase := &models.Purchase{
		Reference:           reference,
		ClientTransactionID: reference,
		UserID:              req.UserID,
		ChildID:             req.ChildID,
		ProductID:           req.ProductID,
		Amount:              req.Amount,
		Status:              models.PurchaseStatusPending,
	}
	if err := s.repo.UpsertPendingPurchase(ctx, purchase); err != nil {
		return "", err
	}

	return prep.PayWithPayPhone, nil
}

// OrderStatus reports the stored state of a purchase together with the
// beneficiary's current balance, when a ledger entry exists.
func (s *Service) OrderStatus(ctx context.Context, reference string) (*OrderStatus, error) {
	p, err := s.repo.GetPurchase(ctx, reference)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPurchaseNotFound
		}
		return nil, err
	}

	st := &OrderStatus{
		Reference: p.Reference,
		Status:    p.Status,
		Credited:  p.IsCredited(),
	}
	if beneficiary := p.Beneficiary(); beneficiary != "" {
		if entry, lerr := s.repo.GetLedger(ctx, beneficiary); lerr == nil {
			st.Balance = entry.DepositedBalance
			st.HasLedger = true
		}
	}
	return st, nil
}

// HandleNotification canonicalizes an inbound gateway callback, applies it
// to the purchase and, for approved outcomes, credits the beneficiary's
// ledger exactly once. Every delivery is recorded in the webhook audit
// trail together with its processing error, if any.
func (s *Service) HandleNotification(ctx context.Context, contentType string, body []byte) (*ReconcileResult, error) {
	n, parseErr := ParseNotification(contentType, body)
	if parseErr != nil {
		s.audit(ctx, "", "", string(body), parseErr)
		return nil, parseErr
	}

	res, err := s.repo.Reconcile(ctx, n.ClientTransactionID, n.Outcome, n.Raw)
	s.audit(ctx, n.ClientTransactionID, n.Outcome, n.Raw, err)
	if err != nil {
		log.Errorf("payment reconcile failed: key=%s outcome=%s err=%v", n.ClientTransactionID, n.Outcome, err)
		return res, err
	}

	if res.Credited {
		log.Infof("purchase %s credited: new balance %.2f", res.Reference, res.NewBalance)
	}
	return res, nil
}

// audit appends a webhook audit row. Failures are logged, never surfaced:
// the audit trail must not interfere with the reconciliation outcome.
func (s *Service) audit(ctx context.Context, key, outcome, payload string, procErr error) {
	ev := &models.PaymentWebhookEvent{
		CorrelationKey: key,
		Outcome:        outcome,
		PayloadJSON:    payload,
	}
	if procErr != nil {
		ev.ProcessingError = procErr.Error()
	}
	if err := s.repo.RecordWebhookEvent(ctx, ev); err != nil {
		log.Warnf("webhook audit write failed for key=%s: %v", key, err)
	}
}
