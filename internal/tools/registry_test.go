package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"loan-agent/internal/common/logger"
	"loan-agent/pkg/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	catalog, err := registry.Default()
	require.NoError(t, err)

	reg := NewRegistry(logger.NewTestLogger(t))
	require.NoError(t, RegisterVerificationTools(reg, catalog, NewVerifier(logger.NewTestLogger(t))))
	return reg
}

func TestResult_JSON(t *testing.T) {
	out, err := json.Marshal(Success("ok"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok"}`, string(out))

	out, err = json.Marshal(Result{Status: "ignored", Error: "boom"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"boom"}`, string(out))
	assert.True(t, Failure("x").IsError())
}

func TestVerificationTools(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	tests := []struct {
		name string
		tool string
		args string
		want Result
	}{
		{"paystub object", ToolVerifyPaystub, `{"paystub": {"employer": "SampleCo", "gross_pay": 4000}}`, Success(PaystubVerified)},
		{"well formed paystub", ToolVerifyPaystub, `{"paystub": {"net_pay": 2900}}`, Success(PaystubVerified)},
		{"empty paystub", ToolVerifyPaystub, `{"paystub": {}}`, Success(PaystubVerified)},
		{"id object", ToolVerifyID, `{"id": {"doc_type": "passport"}}`, Success(IDVerified)},
		{"arbitrary id", ToolVerifyID, `{"id": {"number": "X123"}}`, Success(IDVerified)},
		{"id as string", ToolVerifyID, `{"id": "D1234567"}`, Success(IDVerified)},
		{"id as number", ToolVerifyID, `{"id": 1234567}`, Success(IDVerified)},
		{"id as null", ToolVerifyID, `{"id": null}`, Success(IDVerified)},
		{"paystub as text", ToolVerifyPaystub, `{"paystub": "net pay 2900"}`, Success(PaystubVerified)},
		{"paystub as array", ToolVerifyPaystub, `{"paystub": [{"net_pay": 2900}]}`, Success(PaystubVerified)},
		{"paystub as number", ToolVerifyPaystub, `{"paystub": 2900}`, Success(PaystubVerified)},
		{"paystub as null", ToolVerifyPaystub, `{"paystub": null}`, Success(PaystubVerified)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := reg.Call(ctx, tt.tool, json.RawMessage(tt.args))
			require.NoError(t, err)
			assert.Equal(t, tt.want, res)
		})
	}
}

func TestVerificationTools_MissingArgument(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	res, err := reg.Call(ctx, ToolVerifyPaystub, json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.True(t, res.IsError())
	assert.Contains(t, res.Error, "Exception in verify_paystub: ")
	assert.Contains(t, res.Error, "paystub")

	res, err = reg.Call(ctx, ToolVerifyID, nil)
	require.NoError(t, err)
	assert.True(t, res.IsError())
	assert.Contains(t, res.Error, "Exception in verify_id api call: ")

	res, err = reg.Call(ctx, ToolVerifyID, json.RawMessage(`{"document": {"number": "X123"}}`))
	require.NoError(t, err)
	assert.True(t, res.IsError())
}

func TestRegistry_UnknownTool(t *testing.T) {
	reg := newTestRegistry(t)

	_, err := reg.Call(context.Background(), "approve_loan", json.RawMessage(`{}`))
	assert.True(t, errors.Is(err, ErrToolNotFound))
}

func TestRegistry_FaultsBecomeErrorResults(t *testing.T) {
	reg := NewRegistry(nil)

	require.NoError(t, reg.Register(Definition{Name: "panics"}, func(ctx context.Context, args Arguments) (Result, error) {
		panic("nil map write")
	}))
	require.NoError(t, reg.Register(Definition{Name: "fails", FaultPrefix: "Exception in fails api call: "}, func(ctx context.Context, args Arguments) (Result, error) {
		return Result{}, errors.New("upstream down")
	}))

	res, err := reg.Call(context.Background(), "panics", nil)
	require.NoError(t, err)
	assert.Equal(t, Failure("Exception in panics: nil map write"), res)

	res, err = reg.Call(context.Background(), "fails", json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.Equal(t, Failure("Exception in fails api call: upstream down"), res)
}

func TestRegistry_Register(t *testing.T) {
	reg := NewRegistry(nil)
	noop := func(ctx context.Context, args Arguments) (Result, error) { return Success("ok"), nil }

	assert.ErrorIs(t, reg.Register(Definition{}, noop), ErrEmptyName)
	require.NoError(t, reg.Register(Definition{Name: "b"}, noop))
	require.NoError(t, reg.Register(Definition{Name: "a"}, noop))
	assert.ErrorIs(t, reg.Register(Definition{Name: "a"}, noop), ErrAlreadyExists)
	assert.Error(t, reg.Register(Definition{Name: "bad", InputSchema: json.RawMessage(`{"type": 7}`)}, noop))

	defs := reg.List()
	require.Len(t, defs, 2)
	assert.Equal(t, "a", defs[0].Name)
	assert.JSONEq(t, `{"type": "object"}`, string(defs[0].InputSchema))
}
