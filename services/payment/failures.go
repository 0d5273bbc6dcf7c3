package payment

const (
	FailureCanceled                  = "PAY_PROCESS_CANCELED"
	FailureAborted                   = "PAY_PROCESS_ABORTED"
	FailureRequirePaymentMethod      = "REQUIRE_PAYMENT_METHOD"
	FailureInvalidCardCompany        = "INVALID_CARD_COMPANY"
	FailureInsufficientBalance       = "INSUFFICIENT_BALANCE"
	FailureCardNotSupported          = "CARD_NOT_SUPPORTED"
	FailurePaymentMethodNotSupported = "PAYMENT_METHOD_NOT_SUPPORTED"
	FailureTimeout                   = "TIMEOUT"
	FailureAmountMismatch            = "AMOUNT_MISMATCH"
	FailureProviderUnavailable       = "PROVIDER_UNAVAILABLE"
	genericFailureMessage            = "결제 처리 중 오류가 발생했습니다."
)

var failureMessages = map[string]string{
	FailureCanceled:                  "사용자가 결제를 취소했습니다.",
	FailureAborted:                   "결제가 중단되었습니다.",
	FailureRequirePaymentMethod:      "결제 수단을 선택해주세요.",
	FailureInvalidCardCompany:        "지원하지 않는 카드입니다.",
	FailureInsufficientBalance:       "잔액이 부족합니다.",
	FailureCardNotSupported:          "해당 카드로는 결제할 수 없습니다.",
	FailurePaymentMethodNotSupported: "지원하지 않는 결제 수단입니다.",
	FailureTimeout:                   "결제 시간이 초과되었습니다.",
	FailureAmountMismatch:            "결제 금액이 주문 금액과 일치하지 않습니다.",
	FailureProviderUnavailable:       "결제 서비스에 연결할 수 없습니다.",
}

// FailureMessage maps a provider failure code onto a message for the buyer
func FailureMessage(code string) string {
	msg, found := failureMessages[code]
	if !found {
		return genericFailureMessage
	}
	return msg
}
