package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMethod(t *testing.T) {
	for _, m := range Methods() {
		got, err := ParseMethod(string(m))
		assert.NoError(t, err)
		assert.Equal(t, m, got)
	}

	_, err := ParseMethod("bitcoin")
	assert.Error(t, err)
}

func TestIsDeferred(t *testing.T) {
	assert.True(t, MethodBankTransfer.IsDeferred())
	assert.True(t, MethodVirtualAccount.IsDeferred())
	assert.False(t, MethodCard.IsDeferred())
	assert.False(t, MethodKakaoPay.IsDeferred())
}

func TestFailureMessage(t *testing.T) {
	testCases := []struct {
		code string
		want string
	}{
		{code: FailureCanceled, want: "사용자가 결제를 취소했습니다."},
		{code: FailureInsufficientBalance, want: "잔액이 부족합니다."},
		{code: FailureTimeout, want: "결제 시간이 초과되었습니다."},
		{code: "SOMETHING_NEW", want: "결제 처리 중 오류가 발생했습니다."},
		{code: "", want: "결제 처리 중 오류가 발생했습니다."},
	}
	for _, tc := range testCases {
		t.Run(tc.code, func(t *testing.T) {
			assert.Equal(t, tc.want, FailureMessage(tc.code))
		})
	}
}
