package checkout

import (
	"sort"
	"strings"

	"printstore/internal/domain"
	"printstore/internal/payment"
	"printstore/internal/validate"
)

// Form is the customer form as submitted. Field names match the form inputs.
type Form struct {
	Email     string `form:"email" json:"email"`
	FirstName string `form:"firstName" json:"firstName"`
	LastName  string `form:"lastName" json:"lastName"`
	Address   string `form:"address" json:"address"`
	Address2  string `form:"address2" json:"address2"`
	City      string `form:"city" json:"city"`
	State     string `form:"state" json:"state"`
	ZIP       string `form:"zip" json:"zip"`
	Phone     string `form:"phone" json:"phone"`
	Notes     string `form:"notes" json:"notes"`
}

// FieldErrors maps a form field to its message.
type FieldErrors map[string]string

// ValidationError carries the failing fields and unwraps to payment.ErrInvalidForm.
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return "invalid fields: " + strings.Join(keys, ", ")
}

func (e *ValidationError) Unwrap() error { return payment.ErrInvalidForm }

// Validate normalizes the form into a Customer. The returned FieldErrors is
// empty when the form is valid.
func (f Form) Validate() (domain.Customer, string, FieldErrors) {
	errs := FieldErrors{}
	var c domain.Customer
	var ok bool

	if c.Email, ok = validate.Email(f.Email); !ok {
		errs["email"] = "Enter a valid email address."
	}
	if c.FirstName, ok = validate.Name(f.FirstName); !ok {
		errs["firstName"] = "First name is required."
	}
	if c.LastName, ok = validate.Name(f.LastName); !ok {
		errs["lastName"] = "Last name is required."
	}
	if c.Address, ok = validate.Text(f.Address, 200); !ok {
		errs["address"] = "Street address is required."
	}
	c.Address2 = strings.TrimSpace(f.Address2)
	if len(c.Address2) > 200 {
		errs["address2"] = "Address line 2 is too long."
	}
	if c.City, ok = validate.Name(f.City); !ok {
		errs["city"] = "City is required."
	}
	if c.State, ok = validate.State(f.State); !ok {
		errs["state"] = "Use the two-letter state code."
	}
	if c.ZIP, ok = validate.ZIP(f.ZIP); !ok {
		errs["zip"] = "Enter a 5-digit ZIP code."
	}
	if c.Phone, ok = validate.Phone(f.Phone); !ok {
		errs["phone"] = "Enter a valid phone number."
	}
	notes := strings.TrimSpace(f.Notes)
	if len(notes) > 1000 {
		errs["notes"] = "Order notes are limited to 1000 characters."
	}
	return c, notes, errs
}
