package payments

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/odontobb/odontobb/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRepo mirrors the transactional reconcile semantics of the GORM
// repository with a mutex standing in for the purchase row lock.
type fakeRepo struct {
	mu        sync.Mutex
	purchases map[string]*models.Purchase
	ledgers   map[string]*models.BalanceLedger
	events    []*models.PaymentWebhookEvent
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		purchases: map[string]*models.Purchase{},
		ledgers:   map[string]*models.BalanceLedger{},
	}
}

func (f *fakeRepo) UpsertPendingPurchase(_ context.Context, p *models.Purchase) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	f.purchases[p.Reference] = &cp
	return nil
}

func (f *fakeRepo) GetPurchase(_ context.Context, reference string) (*models.Purchase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.purchases[reference]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, ErrPurchaseNotFound
}

func (f *fakeRepo) GetLedger(_ context.Context, personID string) (*models.BalanceLedger, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if l, ok := f.ledgers[personID]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, ErrLedgerTargetNotFound
}

func (f *fakeRepo) RecordWebhookEvent(_ context.Context, ev *models.PaymentWebhookEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeRepo) Reconcile(_ context.Context, key, outcome, rawPayload string) (*ReconcileResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var p *models.Purchase
	for _, cand := range f.purchases {
		if cand.Reference == key || cand.ClientTransactionID == key {
			p = cand
			break
		}
	}
	if p == nil {
		return nil, ErrPurchaseNotFound
	}

	p.Status = outcome
	p.RawPayload = rawPayload

	res := &ReconcileResult{Reference: p.Reference, Status: outcome}
	if outcome != models.PurchaseStatusApproved || p.IsCredited() {
		return res, nil
	}

	beneficiary := p.Beneficiary()
	if beneficiary == "" || p.Amount <= 0 {
		return res, ErrIncompleteLedgerTarget
	}
	entry, ok := f.ledgers[beneficiary]
	if !ok {
		return res, ErrLedgerTargetNotFound
	}

	now := time.Now()
	entry.DepositedBalance += p.Amount
	entry.UpdatedAt = now
	p.CreditedAt = &now
	res.Credited = true
	res.NewBalance = entry.DepositedBalance
	return res, nil
}

type fakeGateway struct {
	mu      sync.Mutex
	lastReq PrepareRequest
	calls   int
	url     string
	err     error
}

func (g *fakeGateway) Prepare(_ context.Context, req PrepareRequest) (*PrepareResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.lastReq = req
	if g.err != nil {
		return nil, g.err
	}
	return &PrepareResponse{PayWithPayPhone: g.url}, nil
}

func seedRepo() *fakeRepo {
	repo := newFakeRepo()
	repo.purchases["ref-1"] = &models.Purchase{
		Reference:           "ref-1",
		ClientTransactionID: "ref-1",
		UserID:              "p1",
		ProductID:           "cleaning",
		Amount:              25,
		Status:              models.PurchaseStatusPending,
	}
	repo.ledgers["p1"] = &models.BalanceLedger{PersonID: "p1", DepositedBalance: 100}
	return repo
}

const approvedBody = `{"clientTransactionId":"ref-1","transactionStatus":"Approved"}`

func TestHandleNotification_ApprovedCreditsExactlyOnce(t *testing.T) {
	repo := seedRepo()
	svc := NewService(repo, &fakeGateway{})
	ctx := context.Background()

	res, err := svc.HandleNotification(ctx, "application/json", []byte(approvedBody))
	require.NoError(t, err)
	assert.True(t, res.Credited)
	assert.Equal(t, 125.0, res.NewBalance)

	// Redelivery updates nothing on the ledger.
	res, err = svc.HandleNotification(ctx, "application/json", []byte(approvedBody))
	require.NoError(t, err)
	assert.False(t, res.Credited)
	assert.Equal(t, models.PurchaseStatusApproved, repo.purchases["ref-1"].Status)
	assert.Equal(t, 125.0, repo.ledgers["p1"].DepositedBalance)
}

func TestHandleNotification_ConcurrentDeliveries(t *testing.T) {
	repo := seedRepo()
	svc := NewService(repo, &fakeGateway{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.HandleNotification(context.Background(), "application/json", []byte(approvedBody))
		}()
	}
	wg.Wait()

	assert.Equal(t, 125.0, repo.ledgers["p1"].DepositedBalance)
	require.NotNil(t, repo.purchases["ref-1"].CreditedAt)
}

func TestHandleNotification_NonApprovedNeverTouchesLedger(t *testing.T) {
	repo := seedRepo()
	svc := NewService(repo, &fakeGateway{})
	ctx := context.Background()

	for _, outcome := range []string{"Canceled", "Failed", "Canceled"} {
		body := `{"clientTransactionId":"ref-1","transactionStatus":"` + outcome + `"}`
		res, err := svc.HandleNotification(ctx, "application/json", []byte(body))
		require.NoError(t, err)
		assert.False(t, res.Credited)
		assert.Equal(t, outcome, repo.purchases["ref-1"].Status)
	}
	assert.Equal(t, 100.0, repo.ledgers["p1"].DepositedBalance)
}

func TestHandleNotification_UnknownKeyLeavesStoresUntouched(t *testing.T) {
	repo := seedRepo()
	svc := NewService(repo, &fakeGateway{})

	_, err := svc.HandleNotification(context.Background(), "application/json",
		[]byte(`{"clientTransactionId":"no-such-ref","transactionStatus":"Approved"}`))
	require.ErrorIs(t, err, ErrPurchaseNotFound)

	assert.Equal(t, models.PurchaseStatusPending, repo.purchases["ref-1"].Status)
	assert.Equal(t, 100.0, repo.ledgers["p1"].DepositedBalance)

	// The failed delivery still lands in the audit trail.
	require.Len(t, repo.events, 1)
	assert.Contains(t, repo.events[0].ProcessingError, "not found")
}

func TestHandleNotification_MissingCorrelationKey(t *testing.T) {
	repo := seedRepo()
	svc := NewService(repo, &fakeGateway{})

	_, err := svc.HandleNotification(context.Background(), "application/json", []byte(`{"transactionStatus":"Approved"}`))
	require.ErrorIs(t, err, ErrMissingCorrelationKey)
	require.Len(t, repo.events, 1)
}

func TestHandleNotification_RetryCreditsAfterMissingLedger(t *testing.T) {
	repo := seedRepo()
	delete(repo.ledgers, "p1")
	svc := NewService(repo, &fakeGateway{})
	ctx := context.Background()

	// First delivery: status commits, credit cannot be applied.
	_, err := svc.HandleNotification(ctx, "application/json", []byte(approvedBody))
	require.ErrorIs(t, err, ErrLedgerTargetNotFound)
	assert.Equal(t, models.PurchaseStatusApproved, repo.purchases["ref-1"].Status)
	assert.Nil(t, repo.purchases["ref-1"].CreditedAt)

	// Ledger row appears out-of-band; redelivery finishes the credit.
	repo.ledgers["p1"] = &models.BalanceLedger{PersonID: "p1", DepositedBalance: 100}
	res, err := svc.HandleNotification(ctx, "application/json", []byte(approvedBody))
	require.NoError(t, err)
	assert.True(t, res.Credited)
	assert.Equal(t, 125.0, repo.ledgers["p1"].DepositedBalance)
}

func TestHandleNotification_IncompleteLedgerTarget(t *testing.T) {
	repo := seedRepo()
	repo.purchases["ref-1"].UserID = ""
	svc := NewService(repo, &fakeGateway{})

	_, err := svc.HandleNotification(context.Background(), "application/json", []byte(approvedBody))
	require.ErrorIs(t, err, ErrIncompleteLedgerTarget)
	assert.Equal(t, models.PurchaseStatusApproved, repo.purchases["ref-1"].Status)
	assert.Equal(t, 100.0, repo.ledgers["p1"].DepositedBalance)
}

func TestInitiateOrder_RejectsBadAmountBeforeAnyWrite(t *testing.T) {
	repo := newFakeRepo()
	gw := &fakeGateway{url: "https://pay.example/t/abc"}
	svc := NewService(repo, gw)

	for _, amount := range []float64{0, -5} {
		_, err := svc.InitiateOrder(context.Background(), OrderRequest{
			UserID: "p1", ProductID: "cleaning", Amount: amount,
		})
		require.ErrorIs(t, err, ErrValidation)
	}
	assert.Zero(t, gw.calls)
	assert.Empty(t, repo.purchases)
}

func TestInitiateOrder_GatewayFailureWritesNothing(t *testing.T) {
	repo := newFakeRepo()
	gw := &fakeGateway{err: ErrGatewayUnavailable}
	svc := NewService(repo, gw)

	_, err := svc.InitiateOrder(context.Background(), OrderRequest{
		UserID: "p1", ProductID: "cleaning", Amount: 25,
	})
	require.ErrorIs(t, err, ErrGatewayUnavailable)
	assert.Empty(t, repo.purchases)
}

func TestInitiateOrder_Success(t *testing.T) {
	repo := newFakeRepo()
	gw := &fakeGateway{url: "https://pay.example/t/abc"}
	svc := NewService(repo, gw)

	url, err := svc.InitiateOrder(context.Background(), OrderRequest{
		UserID: "p1", ProductID: "cleaning", Amount: 25.50, Reference: "ref-7",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/t/abc", url)

	// Amount travels to the gateway in integer cents.
	assert.Equal(t, 2550, gw.lastReq.Amount)
	assert.Equal(t, "ref-7", gw.lastReq.ClientTransactionID)

	p := repo.purchases["ref-7"]
	require.NotNil(t, p)
	assert.Equal(t, models.PurchaseStatusPending, p.Status)
	assert.Equal(t, 25.50, p.Amount)
}

func TestInitiateOrder_GeneratesReference(t *testing.T) {
	repo := newFakeRepo()
	gw := &fakeGateway{url: "https://pay.example/t/abc"}
	svc := NewService(repo, gw)

	_, err := svc.InitiateOrder(context.Background(), OrderRequest{
		ChildID: "c1", ProductID: "cleaning", Amount: 10,
	})
	require.NoError(t, err)
	require.Len(t, repo.purchases, 1)
	for ref, p := range repo.purchases {
		assert.NotEmpty(t, ref)
		assert.Equal(t, ref, p.ClientTransactionID)
		assert.Equal(t, "c1", p.Beneficiary())
	}
}

func TestOrderStatus_ReflectsCreditAfterNotification(t *testing.T) {
	repo := seedRepo()
	svc := NewService(repo, &fakeGateway{})
	ctx := context.Background()

	st, err := svc.OrderStatus(ctx, "ref-1")
	require.NoError(t, err)
	assert.Equal(t, models.PurchaseStatusPending, st.Status)
	assert.False(t, st.Credited)
	require.True(t, st.HasLedger)
	assert.Equal(t, 100.0, st.Balance)

	_, err = svc.HandleNotification(ctx, "application/json", []byte(approvedBody))
	require.NoError(t, err)

	st, err = svc.OrderStatus(ctx, "ref-1")
	require.NoError(t, err)
	assert.Equal(t, models.PurchaseStatusApproved, st.Status)
	assert.True(t, st.Credited)
	assert.Equal(t, 125.0, st.Balance)
}

func TestOrderStatus_UnknownReference(t *testing.T) {
	svc := NewService(seedRepo(), &fakeGateway{})

	_, err := svc.OrderStatus(context.Background(), "no-such-ref")
	require.ErrorIs(t, err, ErrPurchaseNotFound)
}

// Guard against error sentinels drifting apart from gorm mappings.
func TestErrorSentinelsAreDistinct(t *testing.T) {
	sentinels := []error{
		ErrValidation, ErrMissingCorrelationKey, ErrPurchaseNotFound,
		ErrLedgerTargetNotFound, ErrIncompleteLedgerTarget, ErrGatewayUnavailable,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && errors.Is(a, b) {
				t.Fatalf("sentinel %d and %d overlap", i, j)
			}
		}
	}
}
