package payments

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/odontobb/odontobb/app/models"
)

// Historically observed field spellings on PayPhone callbacks, in priority
// order. The nested "transaction" object is consulted after the flat keys.
var correlationAliases = []string{
	"clientTransactionId",
	"ClientTransactionId",
	"transactionId",
}

var outcomeAliases = []string{
	"transactionStatus",
	"TransactionStatus",
	"status",
}

// ParseNotification canonicalizes a callback body (JSON or form encoded)
// into the internal notification shape. Returns ErrMissingCorrelationKey if
// no alias yields a transaction id; the outcome may legitimately be empty.
func ParseNotification(contentType string, body []byte) (*Notification, error) {
	fields, nested := decodeBody(contentType, body)

	key := firstValue(fields, correlationAliases)
	if key == "" {
		key = firstValue(nested, []string{"clientTransactionId"})
	}
	if key == "" {
		key = firstValue(fields, []string{"transaction.clientTransactionId"})
	}
	if key == "" {
		return nil, ErrMissingCorrelationKey
	}

	outcome := firstValue(fields, outcomeAliases)
	if outcome == "" {
		outcome = firstValue(nested, []string{"transactionStatus"})
	}
	if outcome == "" {
		outcome = firstValue(fields, []string{"transaction.transactionStatus"})
	}

	return &Notification{
		ClientTransactionID: key,
		Outcome:             CanonicalOutcome(outcome),
		Raw:                 string(body),
	}, nil
}

// CanonicalOutcome maps the gateway's outcome spellings onto the internal
// status set. Unknown outcome strings pass through unchanged so the raw
// gateway truth is still recorded on the purchase.
func CanonicalOutcome(outcome string) string {
	s := strings.TrimSpace(outcome)
	if s == "" {
		return models.PurchaseStatusPending
	}
	switch strings.ToLower(s) {
	case "approved", "paid":
		return models.PurchaseStatusApproved
	case "canceled", "cancelled":
		return models.PurchaseStatusCanceled
	case "failed", "declined":
		return models.PurchaseStatusFailed
	case "pending":
		return models.PurchaseStatusPending
	default:
		return s
	}
}

// decodeBody flattens the payload into string fields plus the nested
// "transaction" object when present. Non-string JSON values are ignored
// except numbers, which some gateway versions used for transaction ids.
func decodeBody(contentType string, body []byte) (map[string]string, map[string]string) {
	fields := map[string]string{}
	nested := map[string]string{}

	trimmed := strings.TrimSpace(string(body))
	isJSON := strings.Contains(contentType, "application/json") || strings.HasPrefix(trimmed, "{")

	if isJSON {
		var raw map[string]interface{}
		if err := json.Unmarshal(body, &raw); err != nil {
			return fields, nested
		}
		for k, v := range raw {
			if s := stringValue(v); s != "" {
				fields[k] = s
			}
		}
		if tx, ok := raw["transaction"].(map[string]interface{}); ok {
			for k, v := range tx {
				if s := stringValue(v); s != "" {
					nested[k] = s
				}
			}
		}
		return fields, nested
	}

	values, err := url.ParseQuery(trimmed)
	if err != nil {
		return fields, nested
	}
	for k := range values {
		fields[k] = values.Get(k)
	}
	return fields, nested
}

func stringValue(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		// JSON numbers decode as float64; ids are always integral
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

func firstValue(fields map[string]string, aliases []string) string {
	for _, alias := range aliases {
		if v := strings.TrimSpace(fields[alias]); v != "" {
			return v
		}
	}
	return ""
}
