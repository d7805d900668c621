package payments

import (
	"testing"

	"github.com/odontobb/odontobb/app/models"
)

func TestParseNotification_AliasResolution(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "canonical", body: `{"clientTransactionId":"ref-1","transactionStatus":"Approved"}`},
		{name: "pascal case", body: `{"ClientTransactionId":"ref-1","TransactionStatus":"Approved"}`},
		{name: "transactionId", body: `{"transactionId":"ref-1","status":"Approved"}`},
		{name: "nested", body: `{"transaction":{"clientTransactionId":"ref-1","transactionStatus":"Approved"}}`},
		{name: "numeric id", body: `{"clientTransactionId":1,"transactionStatus":"Approved"}`},
	}

	for _, tt := range tests {
		n, err := ParseNotification("application/json", []byte(tt.body))
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.name, err)
		}
		want := "ref-1"
		if tt.name == "numeric id" {
			want = "1"
		}
		if n.ClientTransactionID != want {
			t.Fatalf("%s: key = %q, want %q", tt.name, n.ClientTransactionID, want)
		}
		if n.Outcome != models.PurchaseStatusApproved {
			t.Fatalf("%s: outcome = %q, want Approved", tt.name, n.Outcome)
		}
	}
}

func TestParseNotification_FormBody(t *testing.T) {
	body := "clientTransactionId=ref-9&transactionStatus=Canceled"
	n, err := ParseNotification("application/x-www-form-urlencoded", []byte(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.ClientTransactionID != "ref-9" {
		t.Fatalf("key = %q, want ref-9", n.ClientTransactionID)
	}
	if n.Outcome != models.PurchaseStatusCanceled {
		t.Fatalf("outcome = %q, want Canceled", n.Outcome)
	}
}

func TestParseNotification_MissingKey(t *testing.T) {
	for _, body := range []string{`{}`, `{"transactionStatus":"Approved"}`, `{"clientTransactionId":""}`, `not json at all`} {
		if _, err := ParseNotification("application/json", []byte(body)); err != ErrMissingCorrelationKey {
			t.Fatalf("body %q: err = %v, want ErrMissingCorrelationKey", body, err)
		}
	}
}

func TestParseNotification_AliasPriority(t *testing.T) {
	// The canonical spelling wins when several aliases are present.
	body := `{"transactionId":"second","clientTransactionId":"first"}`
	n, err := ParseNotification("application/json", []byte(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.ClientTransactionID != "first" {
		t.Fatalf("key = %q, want first", n.ClientTransactionID)
	}
}

func TestCanonicalOutcome(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: models.PurchaseStatusPending},
		{in: "Approved", want: models.PurchaseStatusApproved},
		{in: "approved", want: models.PurchaseStatusApproved},
		{in: "paid", want: models.PurchaseStatusApproved},
		{in: "Cancelled", want: models.PurchaseStatusCanceled},
		{in: "declined", want: models.PurchaseStatusFailed},
		{in: "Pending", want: models.PurchaseStatusPending},
		{in: "SomethingTheGatewayInvented", want: "SomethingTheGatewayInvented"},
	}

	for _, tt := range tests {
		if got := CanonicalOutcome(tt.in); got != tt.want {
			t.Fatalf("CanonicalOutcome(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
