package handler

import (
	"testing"

	"consumesystem/internal/model"
	"consumesystem/pkg/response"

	"github.com/stretchr/testify/assert"
)

func TestFailureCodeMapping(t *testing.T) {
	cases := []struct {
		kind string
		want int
	}{
		{model.FailAccountNotFound, response.CodeAccountNotFound},
		{model.FailAccountStatus, response.CodeAccountStatus},
		{model.FailBalanceNotEnough, response.CodeBalanceNotEnough},
		{model.FailDuplicateRequest, response.CodeDuplicateRequest},
		{model.FailWindowViolation, response.CodeWindowViolation},
		{model.FailLimitExceeded, response.CodeLimitExceeded},
		{model.FailModeNotSupported, response.CodeModeNotSupported},
		{model.FailDeviceUnauthorized, response.CodeDeviceUnauthorized},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, failureCode(tc.kind), tc.kind)
	}

	// 未归类的失败走通用业务错误码
	assert.Equal(t, response.CodeBusinessError, failureCode(""))
	assert.Equal(t, response.CodeBusinessError, failureCode("SOMETHING_ELSE"))
}
