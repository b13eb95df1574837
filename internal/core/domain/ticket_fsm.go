package domain

import "time"

// TicketStatus is the state of a helpdesk ticket
type TicketStatus string

const (
	TicketOpen       TicketStatus = "open"
	TicketAssigned   TicketStatus = "assigned"
	TicketInProgress TicketStatus = "in_progress"
	TicketResolved   TicketStatus = "resolved"
	TicketClosed     TicketStatus = "closed"
	TicketCancelled  TicketStatus = "cancelled"
)

// AllTicketStatuses lists every ticket status in workflow order
var AllTicketStatuses = []TicketStatus{
	TicketOpen, TicketAssigned, TicketInProgress, TicketResolved, TicketClosed, TicketCancelled,
}

// TicketCategory groups tickets for routing
type TicketCategory string

const (
	CategoryHardware    TicketCategory = "hardware"
	CategorySoftware    TicketCategory = "software"
	CategoryNetwork     TicketCategory = "network"
	CategoryMaintenance TicketCategory = "maintenance"
	CategoryGeneral     TicketCategory = "general"
)

// Valid reports whether c is a known category
func (c TicketCategory) Valid() bool {
	switch c {
	case CategoryHardware, CategorySoftware, CategoryNetwork, CategoryMaintenance, CategoryGeneral:
		return true
	}
	return false
}

// TicketOperation is a command on a helpdesk ticket
type TicketOperation string

const (
	OpAssign    TicketOperation = "assign"
	OpStartWork TicketOperation = "start"
	OpResolve   TicketOperation = "resolve"
	OpClose     TicketOperation = "close"
	OpCancelTkt TicketOperation = "cancel"
	OpExtendSLA TicketOperation = "extend_sla"
)

// TicketTransitions is the ticket state graph: from -> operation -> to
var TicketTransitions = map[TicketStatus]map[TicketOperation]TicketStatus{
	TicketOpen: {
		OpAssign:    TicketAssigned,
		OpCancelTkt: TicketCancelled,
		OpExtendSLA: TicketOpen,
	},
	TicketAssigned: {
		OpAssign:    TicketAssigned,
		OpStartWork: TicketInProgress,
		// quick fixes skip in_progress
		OpResolve:   TicketResolved,
		OpCancelTkt: TicketCancelled,
		OpExtendSLA: TicketAssigned,
	},
	TicketInProgress: {
		OpResolve:   TicketResolved,
		OpCancelTkt: TicketCancelled,
		OpExtendSLA: TicketInProgress,
	},
	TicketResolved: {
		OpClose:     TicketClosed,
		OpCancelTkt: TicketCancelled,
	},
}

// NextTicketStatus returns the state reached by applying op in from
func NextTicketStatus(from TicketStatus, op TicketOperation) (TicketStatus, error) {
	if to, ok := TicketTransitions[from][op]; ok {
		return to, nil
	}
	return "", NewTransitionError("helpdesk ticket", string(from), string(op))
}

// SLAStopped reports whether deadline tracking has ended for s
func (s TicketStatus) SLAStopped() bool {
	return s == TicketResolved || s == TicketClosed || s == TicketCancelled
}

// IsBreached is true iff SLA tracking is still running and the deadline has passed
func IsBreached(status TicketStatus, dueAt, now time.Time) bool {
	return !status.SLAStopped() && now.After(dueAt)
}

// SLATable maps a priority to its resolution window
type SLATable map[Priority]time.Duration

// DefaultSLATable is used when no SLA configuration file is present
func DefaultSLATable() SLATable {
	return SLATable{
		PriorityCritical: 4 * time.Hour,
		PriorityHigh:     8 * time.Hour,
		PriorityMedium:   24 * time.Hour,
		PriorityLow:      72 * time.Hour,
	}
}

// Window returns the resolution window for p
func (t SLATable) Window(p Priority) (time.Duration, bool) {
	d, ok := t[p]
	return d, ok
}
