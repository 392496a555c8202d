package simulated

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"regulus/internal/workflow/ports"
)

// Payments approves charges except from declined payers. A repeated
// reference returns the first result without charging again.
type Payments struct {
	declined []string

	mu      sync.Mutex
	results map[string]ports.PaymentResult
	charged int
}

func NewPayments(declinedPayers ...string) *Payments {
	return &Payments{declined: declinedPayers, results: make(map[string]ports.PaymentResult)}
}

func (p *Payments) Charge(_ context.Context, req ports.ChargeRequest) (ports.PaymentResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if res, ok := p.results[req.Reference]; ok {
		return res, nil
	}

	var res ports.PaymentResult
	switch {
	case req.Amount <= 0:
		res = ports.PaymentResult{Reason: "invalid amount"}
	case slices.Contains(p.declined, req.Payer):
		res = ports.PaymentResult{Reason: "card declined"}
	default:
		res = ports.PaymentResult{Success: true, TxID: "TX-" + strings.ToUpper(uuid.NewString()[:8])}
		p.charged++
	}
	p.results[req.Reference] = res
	return res, nil
}

// Decline makes later charges from payer fail.
func (p *Payments) Decline(payer string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.declined = append(p.declined, payer)
}

// Charged is the number of successful charges.
func (p *Payments) Charged() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.charged
}
