package savelead

import (
	"context"
	"encoding/json"
	"fmt"

	apperrors "crm-assistant/internal/common/errors"
	"crm-assistant/internal/common/validation"
	"crm-assistant/internal/models"
)

const ToolName = "save_lead_to_crm"

type Handler struct {
	service *Service
}

func NewHandler(deps ServiceDependencies) *Handler {
	return &Handler{service: NewService(deps)}
}

func (h *Handler) Name() string { return ToolName }

func (h *Handler) Description() string {
	return "Save a company as a new Lead in the CRM, optionally with its contacts. " +
		"Use the fields returned by web_search."
}

func (h *Handler) Parameters() validation.JSONSchema {
	return GetInputSchema()
}

// Execute never returns an error for owner or database failures; those are
// described in the returned text so the model can relay them.
func (h *Handler) Execute(ctx context.Context, caller models.Identity, args json.RawMessage) (string, error) {
	var input Input
	if err := json.Unmarshal(args, &input); err != nil {
		return "", fmt.Errorf("parse input: %w", err)
	}

	output, err := h.service.Execute(ctx, caller, &input)
	if err != nil {
		return "Error saving lead: " + apperrors.Describe(err), nil
	}

	data, err := json.Marshal(output)
	if err != nil {
		return "", fmt.Errorf("marshal output: %w", err)
	}
	return string(data), nil
}
