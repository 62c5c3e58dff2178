package domain

import (
	"encoding/json"
	"fmt"
)

// OutcomeKind discriminates the OrderOutcome variants.
type OutcomeKind int

const (
	OutcomeSubmitted OutcomeKind = iota + 1
	OutcomeRejected
	OutcomeSimulatedFilled
	OutcomeFailed
)

// String returns the snake_case name of the kind.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSubmitted:
		return "submitted"
	case OutcomeRejected:
		return "rejected"
	case OutcomeSimulatedFilled:
		return "simulated_filled"
	case OutcomeFailed:
		return "failed"
	}
	return fmt.Sprintf("outcome(%d)", int(k))
}

// ExchangeResponse is the decoded reply to an order submission.
type ExchangeResponse struct {
	Status string          `json:"status"`
	Body   json.RawMessage `json:"response,omitempty"`
}

// OK reports whether the exchange accepted the request.
func (r ExchangeResponse) OK() bool { return r.Status == "ok" }

// OrderOutcome is the result of submitting one intent. Only the fields of
// the active Kind are populated.
type OrderOutcome struct {
	Kind      OutcomeKind
	Signature string
	Response  ExchangeResponse
	Reason    RiskReason
	Err       error
	Attempts  int
}

// Submitted records an order the exchange accepted.
func Submitted(signature string, resp ExchangeResponse) OrderOutcome {
	return OrderOutcome{Kind: OutcomeSubmitted, Signature: signature, Response: resp}
}

// Rejected records an order the risk gate refused.
func Rejected(reason RiskReason) OrderOutcome {
	return OrderOutcome{Kind: OutcomeRejected, Reason: reason}
}

// SimulatedFilled records a paper-mode fill.
func SimulatedFilled() OrderOutcome {
	return OrderOutcome{Kind: OutcomeSimulatedFilled}
}

// Failed wraps err, which should wrap one of ErrMissingCredential,
// ErrSigning, ErrSubmission or ErrUnknown.
func Failed(err error) OrderOutcome {
	return OrderOutcome{Kind: OutcomeFailed, Err: err}
}

// Filled reports whether the outcome moved the position.
func (o OrderOutcome) Filled() bool {
	return o.Kind == OutcomeSubmitted || o.Kind == OutcomeSimulatedFilled
}

// String renders the outcome for logs.
func (o OrderOutcome) String() string {
	switch o.Kind {
	case OutcomeRejected:
		return fmt.Sprintf("rejected(%s)", o.Reason)
	case OutcomeFailed:
		return fmt.Sprintf("failed(%v)", o.Err)
	}
	return o.Kind.String()
}
