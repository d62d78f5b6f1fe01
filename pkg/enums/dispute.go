package enums

import "fmt"

// DisputeStatus maps to the status column of disputes.
type DisputeStatus string

const (
	DisputeStatusOpen          DisputeStatus = "open"
	DisputeStatusInvestigating DisputeStatus = "investigating"
	DisputeStatusResolved      DisputeStatus = "resolved"
	DisputeStatusRejected      DisputeStatus = "rejected"
)

var validDisputeStatuses = []DisputeStatus{
	DisputeStatusOpen,
	DisputeStatusInvestigating,
	DisputeStatusResolved,
	DisputeStatusRejected,
}

func (s DisputeStatus) IsValid() bool {
	for _, candidate := range validDisputeStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsActive reports whether the dispute still blocks the order timeline.
func (s DisputeStatus) IsActive() bool {
	return s == DisputeStatusOpen || s == DisputeStatusInvestigating
}

// ActiveDisputeStatuses lists the statuses counted as an open dispute.
func ActiveDisputeStatuses() []DisputeStatus {
	return []DisputeStatus{DisputeStatusOpen, DisputeStatusInvestigating}
}

// DisputeResolution is the admin decision on a dispute.
type DisputeResolution string

const (
	DisputeResolutionRefund DisputeResolution = "refund"
	DisputeResolutionReject DisputeResolution = "reject"
)

// ParseDisputeResolution converts raw input into DisputeResolution.
func ParseDisputeResolution(value string) (DisputeResolution, error) {
	switch DisputeResolution(value) {
	case DisputeResolutionRefund, DisputeResolutionReject:
		return DisputeResolution(value), nil
	}
	return "", fmt.Errorf("invalid dispute resolution %q", value)
}
