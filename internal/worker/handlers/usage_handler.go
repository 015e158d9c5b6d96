package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"backend/internal/usage"
	"backend/internal/worker/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

type UsageHandler struct {
	usageService *usage.Service
	logger       *zap.Logger
}

func NewUsageHandler(usageService *usage.Service, logger *zap.Logger) *UsageHandler {
	return &UsageHandler{
		usageService: usageService,
		logger:       logger,
	}
}

func (h *UsageHandler) HandleRecordUsage(ctx context.Context, t *asynq.Task) error {
	var p tasks.RecordUsagePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("json unmarshal failed: %w", err)
	}

	rec := usage.Record{
		TenantID:         p.TenantID,
		SessionID:        p.SessionID,
		Model:            p.Model,
		PromptTokens:     p.PromptTokens,
		CompletionTokens: p.CompletionTokens,
	}

	if err := h.usageService.WriteHistory(ctx, rec); err != nil {
		h.logger.Error("用量历史落库失败",
			zap.String("tenant_id", p.TenantID),
			zap.String("session_id", p.SessionID),
			zap.Error(err))
		return err
	}

	return nil
}
