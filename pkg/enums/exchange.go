package enums

import (
	"fmt"

	"github.com/samber/lo"
)

// ExchangeStatus tracks the lifecycle of a swap or donation request.
type ExchangeStatus string

const (
	ExchangeStatusPending   ExchangeStatus = "Pending"
	ExchangeStatusAccepted  ExchangeStatus = "Accepted"
	ExchangeStatusArranged  ExchangeStatus = "Arranged"
	ExchangeStatusCompleted ExchangeStatus = "Completed"
	ExchangeStatusRejected  ExchangeStatus = "Rejected"
)

var validExchangeStatuses = []ExchangeStatus{
	ExchangeStatusPending,
	ExchangeStatusAccepted,
	ExchangeStatusArranged,
	ExchangeStatusCompleted,
	ExchangeStatusRejected,
}

// ActiveExchangeStatuses block a second request for the same product by the same requester.
var ActiveExchangeStatuses = []ExchangeStatus{
	ExchangeStatusPending,
	ExchangeStatusAccepted,
}

// String implements fmt.Stringer.
func (s ExchangeStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ExchangeStatus.
func (s ExchangeStatus) IsValid() bool {
	return lo.Contains(validExchangeStatuses, s)
}

// IsActive reports whether the exchange still occupies the requester's slot for the product.
func (s ExchangeStatus) IsActive() bool {
	return lo.Contains(ActiveExchangeStatuses, s)
}

// IsTerminal reports whether no further transitions are possible.
func (s ExchangeStatus) IsTerminal() bool {
	return s == ExchangeStatusCompleted || s == ExchangeStatusRejected
}

// ParseExchangeStatus converts raw input into an ExchangeStatus.
func ParseExchangeStatus(value string) (ExchangeStatus, error) {
	for _, candidate := range validExchangeStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid exchange status %q", value)
}

// ExchangeType distinguishes a swap from a giveaway.
type ExchangeType string

const (
	ExchangeTypeExchange ExchangeType = "exchange"
	ExchangeTypeDonation ExchangeType = "donation"
)

var validExchangeTypes = []ExchangeType{
	ExchangeTypeExchange,
	ExchangeTypeDonation,
}

// String implements fmt.Stringer.
func (t ExchangeType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known ExchangeType.
func (t ExchangeType) IsValid() bool {
	return lo.Contains(validExchangeTypes, t)
}

// ParseExchangeType converts raw input into an ExchangeType.
func ParseExchangeType(value string) (ExchangeType, error) {
	for _, candidate := range validExchangeTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid exchange type %q", value)
}
