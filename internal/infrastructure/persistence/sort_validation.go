package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

func withCommon(fields ...string) map[string]bool {
	m := map[string]bool{"id": true, "created_at": true, "updated_at": true}
	for _, f := range fields {
		m[f] = true
	}
	return m
}

// Allowed sort fields per table
var (
	UserSortFields         = withCommon("email", "full_name", "role", "last_login_at")
	HomeSortFields         = withCommon("model_name", "manufacturer", "base_price", "square_feet", "bedrooms")
	ServiceSortFields      = withCommon("name", "category", "base_price")
	OptionSortFields       = withCommon("name", "category", "base_price")
	FactorySortFields      = withCommon("name")
	MarkupSortFields       = withCommon("percentage", "label")
	TransactionSortFields  = withCommon("number", "status", "total")
	DeliverySortFields     = withCommon("status", "scheduled_for", "last_location_at")
	AppointmentSortFields  = withCommon("starts_at", "status", "type")
	NotificationSortFields = withCommon("event_name", "processed_at")
	ChatSortFields         = withCommon("last_message_at", "status")
)
