package sale

import (
	"fmt"
)

// Status is the persisted document status column.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusValid     Status = "valid"
	StatusCancelled Status = "cancelled"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusValid, StatusCancelled:
		return true
	}
	return false
}

// CheckStatus is the persisted check_status column.
type CheckStatus string

const (
	CheckStatusPending   CheckStatus = "pending"
	CheckStatusDeposited CheckStatus = "deposited"
	CheckStatusPaid      CheckStatus = "paid"
	CheckStatusUnpaid    CheckStatus = "unpaid"
)

// CheckStatuses lists the accepted check status values.
var CheckStatuses = []string{
	string(CheckStatusPending),
	string(CheckStatusDeposited),
	string(CheckStatusPaid),
	string(CheckStatusUnpaid),
}

func (c CheckStatus) IsValid() bool {
	switch c {
	case CheckStatusPending, CheckStatusDeposited, CheckStatusPaid, CheckStatusUnpaid:
		return true
	}
	return false
}

// PaymentState is how a valid document is being settled.
type PaymentState uint8

const (
	paymentNone PaymentState = iota
	PaymentImmediate
	PaymentCreditPending
	PaymentCheckPending
	PaymentCheckDeposited
	PaymentCheckPaid
	PaymentCheckUnpaid
)

func (p PaymentState) isCheck() bool {
	return p >= PaymentCheckPending && p <= PaymentCheckUnpaid
}

func (p PaymentState) checkStatus() CheckStatus {
	switch p {
	case PaymentCheckPending:
		return CheckStatusPending
	case PaymentCheckDeposited:
		return CheckStatusDeposited
	case PaymentCheckPaid:
		return CheckStatusPaid
	case PaymentCheckUnpaid:
		return CheckStatusUnpaid
	}
	return ""
}

func paymentFromCheckStatus(c CheckStatus) PaymentState {
	switch c {
	case CheckStatusPending:
		return PaymentCheckPending
	case CheckStatusDeposited:
		return PaymentCheckDeposited
	case CheckStatusPaid:
		return PaymentCheckPaid
	case CheckStatusUnpaid:
		return PaymentCheckUnpaid
	}
	return paymentNone
}

// State is Draft, Valid(PaymentState) or Cancelled(PaymentState).
// The zero value is Draft. Cancelled keeps the payment state the document had.
type State struct {
	status  Status
	payment PaymentState
}

// Draft returns the draft state.
func Draft() State { return State{status: StatusDraft} }

// Valid returns a settled or settling state. p must be a known payment state.
func Valid(p PaymentState) State { return State{status: StatusValid, payment: p} }

// InitialPayment is the payment state a new document starts in.
func InitialPayment(method PaymentMethod) PaymentState {
	switch method {
	case PaymentCheck:
		return PaymentCheckPending
	case PaymentCredit:
		return PaymentCreditPending
	}
	return PaymentImmediate
}

// Cancel returns the cancelled state keeping the payment state.
func (s State) Cancel() State { return State{status: StatusCancelled, payment: s.payment} }

func (s State) Status() Status {
	if s.status == "" {
		return StatusDraft
	}
	return s.status
}

func (s State) Payment() PaymentState { return s.payment }

func (s State) IsValid() bool     { return s.status == StatusValid }
func (s State) IsCancelled() bool { return s.status == StatusCancelled }

// CheckStatus returns the check status when the document is paid by check.
func (s State) CheckStatus() (CheckStatus, bool) {
	if !s.payment.isCheck() {
		return "", false
	}
	return s.payment.checkStatus(), true
}

// WithCheckStatus moves a valid check document to c.
func (s State) WithCheckStatus(c CheckStatus) (State, error) {
	if !s.IsValid() || !s.payment.isCheck() {
		return s, fmt.Errorf("state %s has no check status", s)
	}
	p := paymentFromCheckStatus(c)
	if p == paymentNone {
		return s, fmt.Errorf("unknown check status %q", c)
	}
	return Valid(p), nil
}

// Columns encodes s into the status and check_status columns.
func (s State) Columns() (Status, *CheckStatus) {
	if c, ok := s.CheckStatus(); ok {
		return s.Status(), &c
	}
	return s.Status(), nil
}

func (s State) String() string {
	if c, ok := s.CheckStatus(); ok {
		return fmt.Sprintf("%s(check:%s)", s.Status(), c)
	}
	return string(s.Status())
}

// StateFromColumns decodes the persisted columns. A check status on a non-check
// document, or a check document with no check status, is rejected.
func StateFromColumns(status Status, method PaymentMethod, checkStatus *CheckStatus) (State, error) {
	if !status.IsValid() {
		return State{}, fmt.Errorf("unknown sale status %q", status)
	}

	if status == StatusDraft {
		if checkStatus != nil {
			return State{}, fmt.Errorf("draft sale with check status %q", *checkStatus)
		}
		return Draft(), nil
	}

	var payment PaymentState
	switch {
	case method == PaymentCheck:
		if checkStatus == nil {
			return State{}, fmt.Errorf("check sale without check status")
		}
		payment = paymentFromCheckStatus(*checkStatus)
		if payment == paymentNone {
			return State{}, fmt.Errorf("unknown check status %q", *checkStatus)
		}
	case checkStatus != nil:
		return State{}, fmt.Errorf("check status %q on %q sale", *checkStatus, method)
	default:
		payment = InitialPayment(method)
	}

	if status == StatusCancelled {
		return Valid(payment).Cancel(), nil
	}
	return Valid(payment), nil
}
