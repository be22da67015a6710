package queue

import "github.com/ThreeDotsLabs/watermill/message"

// -------------------------- 基于业务封装 events --------------------------

// PublishProcessRequested 发布 iv.asset.process.requested 事件。
// 在上传确认落库之后调用，通知工作器生成规范化原图与各衍生规格。
// 消息 ID 为 asset_id 的确定性哈希，同一资产的重复入队可被去重。
func PublishProcessRequested(pub message.Publisher, payload ProcessRequestedPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicProcessRequested, payload, opts...)
	if err != nil {
		return err
	}

	msg.UUID = DeterministicID(TopicProcessRequested, payload.AssetID)

	return pub.Publish(TopicProcessRequested, msg)
}

// ParseProcessRequested 将 Watermill 消息解析为强类型 Envelope（ProcessRequestedPayload）。
func ParseProcessRequested(msg *message.Message) (Message[ProcessRequestedPayload], error) {
	return ParseWatermillMessage[ProcessRequestedPayload](msg)
}

// PublishProcessed 发布 iv.asset.process.processed 事件，供下游（统计、通知）消费。
func PublishProcessed(pub message.Publisher, payload ProcessedPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicProcessed, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicProcessed, msg)
}

// PublishProcessFailed 发布 iv.asset.process.failed 事件。
func PublishProcessFailed(pub message.Publisher, payload ProcessFailedPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicProcessFailed, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicProcessFailed, msg)
}

// PublishAssetUploaded 发布 iv.asset.uploaded 事件。
func PublishAssetUploaded(pub message.Publisher, payload AssetUploadedPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicAssetUploaded, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicAssetUploaded, msg)
}

// PublishAssetBound 发布 iv.asset.bound 事件。
func PublishAssetBound(pub message.Publisher, payload AssetBoundPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicAssetBound, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicAssetBound, msg)
}

// PublishAssetDeleted 发布 iv.asset.deleted 事件。
func PublishAssetDeleted(pub message.Publisher, payload AssetDeletedPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicAssetDeleted, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicAssetDeleted, msg)
}
