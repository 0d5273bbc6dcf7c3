package identity

import (
	"regexp"
	"strings"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^01[0-9]-?[0-9]{4}-?[0-9]{4}$`)
)

const passwordSpecials = `!@#$%^&*(),.?":{}|<>_-+=[]\;'/` + "`~"

type signUpRequest struct {
	Email           string `form:"email"`
	Name            string `form:"name"`
	Phone           string `form:"phone"`
	Password        string `form:"password"`
	PasswordConfirm string `form:"passwordConfirm"`
	AgreedToTerms   bool   `form:"agreedToTerms"`
	AgreedToPrivacy bool   `form:"agreedToPrivacy"`
}

func (r signUpRequest) validate() error {
	if r.Email == "" || r.Password == "" || r.PasswordConfirm == "" || r.Name == "" {
		return fieldError{field: "form", code: "fields-missing", message: "모든 필드를 입력해주세요."}
	}
	if !emailPattern.MatchString(r.Email) {
		return fieldError{field: "email", code: "invalid-email", message: "올바른 이메일 주소를 입력해주세요."}
	}
	if r.Phone != "" && !phonePattern.MatchString(r.Phone) {
		return fieldError{field: "phone", code: "invalid-phone", message: "올바른 전화번호를 입력해주세요. (예: 010-1234-5678)"}
	}
	if r.Password != r.PasswordConfirm {
		return fieldError{field: "passwordConfirm", code: "password-mismatch", message: "비밀번호가 일치하지 않습니다."}
	}
	if len(r.Password) < 8 {
		return fieldError{field: "password", code: "password-too-short", message: "비밀번호는 8자 이상이어야 합니다."}
	}
	if !isStrongPassword(r.Password) {
		return fieldError{field: "password", code: "password-too-weak", message: "비밀번호는 영문 소문자, 숫자, 특수문자 조합이어야 합니다."}
	}
	if !r.AgreedToTerms || !r.AgreedToPrivacy {
		return fieldError{field: "terms", code: "terms-not-accepted", message: "필수 약관에 동의해주세요."}
	}
	return nil
}

// isStrongPassword requires a lowercase letter, a digit and a special character, and nothing else
func isStrongPassword(password string) bool {
	hasLower, hasDigit, hasSpecial := false, false, false
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		case strings.ContainsRune(passwordSpecials, r):
			hasSpecial = true
		default:
			return false
		}
	}
	return hasLower && hasDigit && hasSpecial
}
