package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"consumesystem/internal/model"
	"consumesystem/internal/repository"

	"gorm.io/gorm"
)

// OutboxNotifier 基于事务性发件箱的通知实现
// 通知消息与扣款在同一事务内落库，由发件箱投递任务异步推送到 Kafka；
// 事务回滚时通知随之消失，不会出现"没扣款却发了通知"
type OutboxNotifier struct {
	outbox *repository.OutboxRepository
	topic  string
}

func NewOutboxNotifier(outbox *repository.OutboxRepository, topic string) *OutboxNotifier {
	return &OutboxNotifier{outbox: outbox, topic: topic}
}

func (n *OutboxNotifier) Notify(ctx context.Context, tx *gorm.DB, account *model.Account, record *model.ConsumeRecord, req *ConsumeRequest) error {
	payload := map[string]interface{}{
		"record_no":    record.RecordNo,
		"user_id":      record.UserID,
		"account_id":   record.AccountID,
		"amount":       record.Amount,
		"device_id":    record.DeviceID,
		"area_id":      record.AreaID,
		"mode":         record.Mode,
		"pay_status":   record.PayStatus,
		"offline_sync": record.OfflineSync,
		"consumed_at":  record.ConsumedAt.Format(time.RFC3339),
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("序列化通知消息失败: %w", err)
	}

	msg := &model.OutboxMessage{
		MessageKey: record.RecordNo,
		Topic:      n.topic,
		Payload:    string(payloadBytes),
		Status:     model.OutboxStatusPending,
	}
	if err := n.outbox.Create(ctx, tx, msg); err != nil {
		return fmt.Errorf("写入通知消息失败: %w", err)
	}
	return nil
}
