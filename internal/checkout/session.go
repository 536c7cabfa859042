package checkout

import (
	"sync"
	"time"

	"printstore/internal/domain"
	"printstore/internal/payment"
)

type State int

const (
	SelectingPayment State = iota
	AwaitingManualSubmit
	AwaitingPayPalApproval
	OrderConfirmed
)

func (s State) String() string {
	switch s {
	case AwaitingManualSubmit:
		return "awaiting_manual_submit"
	case AwaitingPayPalApproval:
		return "awaiting_paypal_approval"
	case OrderConfirmed:
		return "order_confirmed"
	}
	return "selecting_payment"
}

// Session is the checkout state of one browser. Its lock is held for the
// whole of each controller operation.
type Session struct {
	mu       sync.Mutex
	state    State
	selected payment.Kind
	widget   *payment.Widget
	auth     payment.Authorization
	quote    *quote
	last     *domain.Order
	touched  time.Time
}

// quote is what CreateOrder priced and handed to the payment method.
type quote struct {
	lines  []domain.OrderLine
	totals domain.Totals
}

func (q *quote) matches(lines []domain.OrderLine, totals domain.Totals) bool {
	if q == nil || q.totals != totals || len(q.lines) != len(lines) {
		return false
	}
	for i := range lines {
		if q.lines[i] != lines[i] {
			return false
		}
	}
	return true
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Mounted returns the mounted payment widget, if any. There is never more than one.
func (s *Session) Mounted() (payment.Widget, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.widget == nil {
		return payment.Widget{}, false
	}
	return *s.widget, true
}

func (s *Session) Selected() payment.Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// LastOrder is the most recently confirmed order, kept for the confirmation page.
func (s *Session) LastOrder() (domain.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return domain.Order{}, false
	}
	return *s.last, true
}

// Sessions holds checkout sessions by sid. Sessions live in memory only.
type Sessions struct {
	mu  sync.Mutex
	m   map[string]*Session
	now func() time.Time
}

func NewSessions() *Sessions {
	return &Sessions{m: map[string]*Session{}, now: time.Now}
}

func (r *Sessions) Get(sid string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.m[sid]
	if !ok {
		s = &Session{}
		r.m[sid] = s
	}
	s.touched = r.now()
	return s
}

func (r *Sessions) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.m)
}

// Sweep drops sessions untouched for longer than maxAge and returns how many.
func (r *Sessions) Sweep(maxAge time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-maxAge)
	n := 0
	for sid, s := range r.m {
		if s.touched.Before(cutoff) {
			delete(r.m, sid)
			n++
		}
	}
	return n
}
