package enums

import "fmt"

// BillingType selects the pricing mode for a subscription-style checkout.
type BillingType string

const (
	BillingTypeOneTime BillingType = "one_time"
	BillingTypeMonthly BillingType = "monthly"
	BillingTypeAnnual  BillingType = "annual"
)

var validBillingTypes = []BillingType{
	BillingTypeOneTime,
	BillingTypeMonthly,
	BillingTypeAnnual,
}

// String implements fmt.Stringer.
func (b BillingType) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BillingType.
func (b BillingType) IsValid() bool {
	for _, candidate := range validBillingTypes {
		if candidate == b {
			return true
		}
	}
	return false
}

// IsRecurring reports whether the billing type renews automatically.
func (b BillingType) IsRecurring() bool {
	return b == BillingTypeMonthly || b == BillingTypeAnnual
}

// ParseBillingType converts raw input into a BillingType.
func ParseBillingType(value string) (BillingType, error) {
	for _, candidate := range validBillingTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid billing type %q", value)
}
