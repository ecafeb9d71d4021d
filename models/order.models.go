package models

import (
	"errors"
	"fmt"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Installment statuses
const (
	InstallmentPending = "pending"
	InstallmentPaid    = "paid"
	InstallmentOverdue = "overdue"
)

// Order statuses
const (
	OrderPending  = "pending"
	OrderApproved = "approved"
	OrderShipped  = "shipped"
)

// Payment statuses (manual bank-transfer review)
const (
	PaymentPending  = "pending"
	PaymentVerified = "verified"
	PaymentRejected = "rejected"
)

// Payment methods accepted at checkout
const (
	MethodJazzCash  = "jazzcash"
	MethodEasyPaisa = "easypaisa"
	MethodPayFast   = "payfast"
	MethodBank      = "bank"
	MethodMock      = "mock"
)

var (
	ErrInstallmentNotFound    = errors.New("installment not found")
	ErrInstallmentAlreadyPaid = errors.New("installment already paid")
)

// Installment is one scheduled partial payment of an order's total.
type Installment struct {
	Seq            int        `bson:"seq" json:"seq"`
	DueDate        time.Time  `bson:"due_date" json:"due_date"`
	Amount         float64    `bson:"amount" json:"amount"`
	Status         string     `bson:"status" json:"status"`
	PaidAt         *time.Time `bson:"paid_at,omitempty" json:"paid_at,omitempty"`
	TransactionID  string     `bson:"transaction_id,omitempty" json:"transaction_id,omitempty"`
	ReminderSentAt *time.Time `bson:"reminder_sent_at,omitempty" json:"-"`
}

// OrderItem is a denormalized product snapshot taken at checkout time.
type OrderItem struct {
	ProductID primitive.ObjectID `bson:"product_id" json:"product_id"`
	Name      string             `bson:"name" json:"name"`
	Price     float64            `bson:"price" json:"price"`
	Quantity  int                `bson:"quantity" json:"quantity"`
	Category  string             `bson:"category" json:"category"`
	ImageURL  string             `bson:"image_url,omitempty" json:"image_url,omitempty"`
}

// Order represents an installment purchase.
type Order struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID            primitive.ObjectID `bson:"user_id,omitempty" json:"user_id,omitempty"`
	GuestEmail        string             `bson:"guest_email,omitempty" json:"guest_email,omitempty"`
	Items             []OrderItem        `bson:"items" json:"items"`
	Total             float64            `bson:"total" json:"total"`
	InstallmentMonths int                `bson:"installment_months" json:"installment_months"`
	MonthlyPayment    float64            `bson:"monthly_payment" json:"monthly_payment"`
	Status            string             `bson:"status" json:"status"`
	ShippingAddress   Address            `bson:"shipping_address" json:"shipping_address"`
	Phone             string             `bson:"phone" json:"phone"`
	PaymentMethod     string             `bson:"payment_method" json:"payment_method"`
	PaymentReference  string             `bson:"payment_reference,omitempty" json:"payment_reference,omitempty"`
	PaymentProofURL   string             `bson:"payment_proof_url,omitempty" json:"payment_proof_url,omitempty"`
	PaymentStatus     string             `bson:"payment_status" json:"payment_status"`
	Installments      []Installment      `bson:"installments" json:"installments"`
	NextDueDate       *time.Time         `bson:"next_due_date,omitempty" json:"next_due_date,omitempty"`
	CreatedAt         time.Time          `bson:"created_at" json:"created_at"`
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// BuildInstallmentSchedule splits total into months equal monthly payments
// spaced one calendar month apart, the first due on start. The last
// installment absorbs the rounding remainder so the amounts always sum to
// total. Returns the schedule and the monthly payment.
func BuildInstallmentSchedule(total float64, months int, start time.Time) ([]Installment, float64, error) {
	if months <= 0 {
		return nil, 0, fmt.Errorf("invalid installment months: %d", months)
	}
	if total <= 0 {
		return nil, 0, fmt.Errorf("invalid order total: %.2f", total)
	}

	monthly := round2(total / float64(months))
	installments := make([]Installment, months)
	for i := 0; i < months; i++ {
		amount := monthly
		if i == months-1 {
			amount = round2(total - monthly*float64(months-1))
		}
		installments[i] = Installment{
			Seq:     i + 1,
			DueDate: start.AddDate(0, i, 0),
			Amount:  amount,
			Status:  InstallmentPending,
		}
	}
	return installments, monthly, nil
}

// FindInstallment returns the installment with the given seq, or nil.
func (o *Order) FindInstallment(seq int) *Installment {
	for i := range o.Installments {
		if o.Installments[i].Seq == seq {
			return &o.Installments[i]
		}
	}
	return nil
}

// MarkInstallmentPaid applies the paid transition. Both pending and overdue
// installments are payable; paid is terminal.
func (o *Order) MarkInstallmentPaid(seq int, transactionID string, now time.Time) error {
	inst := o.FindInstallment(seq)
	if inst == nil {
		return ErrInstallmentNotFound
	}
	if inst.Status == InstallmentPaid {
		return ErrInstallmentAlreadyPaid
	}
	inst.Status = InstallmentPaid
	inst.PaidAt = &now
	inst.TransactionID = transactionID
	o.RecomputeNextDue()
	return nil
}

// SweepOverdue flips pending installments whose due date has passed to
// overdue and recomputes the next due date. Returns how many were flipped;
// running it again with the same clock is a no-op.
func (o *Order) SweepOverdue(now time.Time) int {
	flipped := 0
	for i := range o.Installments {
		inst := &o.Installments[i]
		if inst.Status == InstallmentPending && inst.DueDate.Before(now) {
			inst.Status = InstallmentOverdue
			flipped++
		}
	}
	if flipped > 0 {
		o.RecomputeNextDue()
	}
	return flipped
}

// RecomputeNextDue sets NextDueDate to the earliest pending installment's
// due date, or nil when none remain.
func (o *Order) RecomputeNextDue() {
	var next *time.Time
	for i := range o.Installments {
		inst := &o.Installments[i]
		if inst.Status != InstallmentPending {
			continue
		}
		if next == nil || inst.DueDate.Before(*next) {
			next = &inst.DueDate
		}
	}
	o.NextDueDate = next
}

// InstallmentsDueWithin returns the pending installments due between now and
// now+window that have not already been reminded today.
func (o *Order) InstallmentsDueWithin(now time.Time, window time.Duration) []*Installment {
	var due []*Installment
	cutoff := now.Add(window)
	for i := range o.Installments {
		inst := &o.Installments[i]
		if inst.Status != InstallmentPending {
			continue
		}
		if inst.DueDate.Before(now) || inst.DueDate.After(cutoff) {
			continue
		}
		if inst.ReminderSentAt != nil && sameDay(*inst.ReminderSentAt, now) {
			continue
		}
		due = append(due, inst)
	}
	return due
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// ValidMethod reports whether method is one of the accepted payment methods.
func ValidMethod(method string) bool {
	switch method {
	case MethodJazzCash, MethodEasyPaisa, MethodPayFast, MethodBank, MethodMock:
		return true
	}
	return false
}
