package trade

import (
	"context"
	"fmt"

	"github.com/orderflow/backend/internal/domain/trade"
	"go.uber.org/zap"
)

// HistoryRecorder appends status history rows and presents them for display.
// It exposes no way to change or remove a row once written.
type HistoryRecorder struct {
	storage ProofStorage
	logger  *zap.Logger
}

// NewHistoryRecorder creates a new HistoryRecorder. storage may be nil, in
// which case proof references are returned without download URLs.
func NewHistoryRecorder(storage ProofStorage, logger *zap.Logger) *HistoryRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryRecorder{storage: storage, logger: logger}
}

// Record appends entry to the history of its order
func (r *HistoryRecorder) Record(ctx context.Context, repo trade.StatusHistoryRepository, entry *trade.StatusHistory) error {
	if err := repo.Append(ctx, entry); err != nil {
		return fmt.Errorf("append status history: %w", err)
	}
	return nil
}

// Present converts history rows to responses, resolving stored proof and
// signature keys to download URLs. A URL that cannot be produced is left
// empty and logged.
func (r *HistoryRecorder) Present(ctx context.Context, entries []trade.StatusHistory) []StatusHistoryResponse {
	responses := make([]StatusHistoryResponse, len(entries))
	for i, entry := range entries {
		resp := StatusHistoryResponse{
			ID:            entry.ID,
			NewStatus:     entry.NewStatus.String(),
			Notes:         entry.Notes,
			Latitude:      entry.Latitude,
			Longitude:     entry.Longitude,
			ChangedBy:     entry.ChangedBy,
			ChangedByName: entry.ChangedByName,
			ChangedAt:     entry.ChangedAt,
		}
		if entry.PreviousStatus != nil {
			previous := entry.PreviousStatus.String()
			resp.PreviousStatus = &previous
		}
		resp.ProofImageURL = r.downloadURL(ctx, entry.ProofImage)
		resp.SignatureURL = r.downloadURL(ctx, entry.Signature)
		responses[i] = resp
	}
	return responses
}

func (r *HistoryRecorder) downloadURL(ctx context.Context, key string) string {
	if key == "" || r.storage == nil {
		return key
	}
	url, err := r.storage.DownloadURL(ctx, key)
	if err != nil {
		r.logger.Warn("failed to resolve proof download URL",
			zap.String("key", key), zap.Error(err))
		return ""
	}
	return url
}
