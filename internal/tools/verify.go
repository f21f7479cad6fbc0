package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"loan-agent/internal/common/logger"
	"loan-agent/internal/models"
	"loan-agent/pkg/registry"
)

const (
	ToolVerifyPaystub = "verify_paystub"
	ToolVerifyID      = "verify_id"

	PaystubVerified = "Paystub verified successfully"
	IDVerified      = "ID verified successfully"
)

// Verifier holds the placeholder verification tools. Neither performs any
// checking yet; both accept any JSON value and report success.
type Verifier struct {
	logger logger.Logger
}

func NewVerifier(log logger.Logger) *Verifier {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Verifier{logger: log}
}

// VerifyPaystub is the verify_paystub tool.
func (v *Verifier) VerifyPaystub(ctx context.Context, args Arguments) (Result, error) {
	raw, ok := args["paystub"]
	if !ok {
		return Result{}, fmt.Errorf("missing argument paystub")
	}
	v.logger.Info("verify_paystub called", map[string]interface{}{
		"recognizedPaystub": matches(models.RecordPaystubItem, raw),
	})
	return Success(PaystubVerified), nil
}

// VerifyID is the verify_id tool.
func (v *Verifier) VerifyID(ctx context.Context, args Arguments) (Result, error) {
	raw, ok := args["id"]
	if !ok {
		return Result{}, fmt.Errorf("missing argument id")
	}
	v.logger.Info("verify_id called", map[string]interface{}{
		"recognizedDocument": matches(models.RecordDocumentEvidence, raw),
	})
	return Success(IDVerified), nil
}

// matches reports whether raw happens to be a well-formed record; used only
// for logging.
func matches(record string, raw json.RawMessage) bool {
	schema, ok := models.SchemaFor(record)
	if !ok {
		return false
	}
	return schema.ValidateBytes(raw).Valid
}

// RegisterVerificationTools registers verify_paystub and verify_id with the
// descriptions and input schemas from the activity catalog.
func RegisterVerificationTools(reg *Registry, catalog *registry.ActivityRegistry, v *Verifier) error {
	tools := []struct {
		name        string
		faultPrefix string
		handler     Handler
	}{
		{ToolVerifyPaystub, "Exception in verify_paystub: ", v.VerifyPaystub},
		{ToolVerifyID, "Exception in verify_id api call: ", v.VerifyID},
	}

	for _, t := range tools {
		activity, ok := catalog.FindTool(t.name)
		if !ok {
			return fmt.Errorf("tool %s missing from activity catalog", t.name)
		}
		schema, err := json.Marshal(activity.InputSchema)
		if err != nil {
			return fmt.Errorf("tool %s: encode input schema: %w", t.name, err)
		}
		def := Definition{
			Name:        t.name,
			Description: activity.Description,
			InputSchema: schema,
			FaultPrefix: t.faultPrefix,
		}
		if err := reg.Register(def, t.handler); err != nil {
			return err
		}
	}
	return nil
}
