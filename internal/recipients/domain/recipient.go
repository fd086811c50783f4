package recipients

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// e164Pattern matches phone numbers in E.164 form.
var e164Pattern = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)

// Recipient is an addressable notification target belonging to a company.
type Recipient struct {
	ID        string    `json:"id"`
	CompanyID string    `json:"company_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks required fields and phone format when present.
func (r *Recipient) Validate() error {
	if r == nil {
		return errors.New("recipients: nil recipient")
	}
	if r.CompanyID == "" {
		return errors.New("recipients: company id required")
	}
	if r.Name == "" {
		return errors.New("recipients: name required")
	}
	if r.Phone != "" && !ValidPhone(r.Phone) {
		return errors.New("recipients: phone must be E.164")
	}
	return nil
}

// HasEmail reports whether the recipient is addressable by email.
func (r Recipient) HasEmail() bool {
	return strings.TrimSpace(r.Email) != ""
}

// HasValidPhone reports whether the recipient is addressable by SMS.
func (r Recipient) HasValidPhone() bool {
	return ValidPhone(r.Phone)
}

// ValidPhone reports whether a number is valid E.164.
func ValidPhone(number string) bool {
	return e164Pattern.MatchString(strings.TrimSpace(number))
}

// Resolved pairs a recipient with the channels it can actually receive on.
type Resolved struct {
	Recipient Recipient `json:"recipient"`
	Email     bool      `json:"email"`
	SMS       bool      `json:"sms"`
}
