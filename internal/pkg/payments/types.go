package payments

// OrderRequest is the client-side request for a new payment link. The same
// fields are accepted as JSON body, form body or query string.
type OrderRequest struct {
	UserID    string  `json:"userId" form:"userId" query:"userId" validate:"required_without=ChildID"`
	ChildID   string  `json:"childId" form:"childId" query:"childId"`
	ProductID string  `json:"productId" form:"productId" query:"productId" validate:"required"`
	Amount    float64 `json:"amount" form:"amount" query:"amount" validate:"required,gt=0"`
	Reference string  `json:"reference" form:"reference" query:"reference"`
}

// Notification is the canonical internal form of a gateway callback after
// alias resolution. Raw keeps the payload exactly as delivered for audit.
type Notification struct {
	ClientTransactionID string
	Outcome             string
	Raw                 string
}

// OrderStatus is the stored state of a purchase, used by the app to poll
// after the hosted payment page redirects back.
type OrderStatus struct {
	Reference string
	Status    string
	Credited  bool
	Balance   float64
	HasLedger bool
}

// ReconcileResult reports what a notification did to the stores.
type ReconcileResult struct {
	Reference  string
	Status     string
	Credited   bool
	NewBalance float64
}
