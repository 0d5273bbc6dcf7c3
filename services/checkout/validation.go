package checkout

import (
	"regexp"
	"strings"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^01[0-9]-?[0-9]{4}-?[0-9]{4}$`)
)

const (
	codeTermsNotAccepted   = "terms-not-accepted"
	codeGuestFieldsMissing = "guest-fields-missing"
	codeInvalidEmail       = "invalid-email"
	codeInvalidPhone       = "invalid-phone"
	codeCartEmpty          = "cart-empty"
	codeInvalidMethod      = "invalid-payment-method"
)

type fieldError struct {
	field   string
	code    string
	message string
}

func (e fieldError) Error() string    { return e.message }
func (e fieldError) GetField() string { return e.field }
func (e fieldError) GetCode() string  { return e.code }

// validateBeforePayment checks what must be known before the buyer can pick a payment method
func validateBeforePayment(s CheckoutState) error {
	if !s.TermsAccepted {
		return fieldError{field: "terms", code: codeTermsNotAccepted, message: "이용약관에 동의해주세요."}
	}
	if !s.Buyer.IsGuest() {
		return nil
	}
	if strings.TrimSpace(s.Buyer.Name) == "" || strings.TrimSpace(s.Buyer.Email) == "" || strings.TrimSpace(s.Buyer.Phone) == "" {
		return fieldError{field: "guest", code: codeGuestFieldsMissing, message: "비회원 주문 정보를 모두 입력해주세요."}
	}
	if !emailPattern.MatchString(s.Buyer.Email) {
		return fieldError{field: "email", code: codeInvalidEmail, message: "올바른 이메일 주소를 입력해주세요."}
	}
	if !phonePattern.MatchString(s.Buyer.Phone) {
		return fieldError{field: "phone", code: codeInvalidPhone, message: "올바른 전화번호를 입력해주세요. (예: 010-1234-5678)"}
	}
	return nil
}
