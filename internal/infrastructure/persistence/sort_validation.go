package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Anything that is not "asc" sorts descending.
func ValidateSortOrder(orderDir string) string {
	if strings.EqualFold(strings.TrimSpace(orderDir), "asc") {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField returns sortField when it is whitelisted, defaultField otherwise
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// BillSortFields contains allowed sort fields for bills
var BillSortFields = map[string]bool{
	"created_at":         true,
	"updated_at":         true,
	"due_date":           true,
	"amount":             true,
	"status":             true,
	"installment_number": true,
	"payment_date":       true,
}

// PaymentMethodSortFields contains allowed sort fields for forms of receipt
var PaymentMethodSortFields = map[string]bool{
	"created_at":      true,
	"name":            true,
	"receive_in_days": true,
	"fee_percentage":  true,
}
