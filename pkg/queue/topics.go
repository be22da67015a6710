// Package queue 定义消息主题常量与分组，供发布/订阅使用.
package queue

// 主题命名规范：iv.<域>.<动作>[.<状态>]，尽量稳定且向后兼容.
// 域：asset(资产生命周期)、process(图像处理)、sweep(对账巡检)
// 状态：请求(requested)、完成(ed)、失败(failed)

const (
	// 资产生命周期领域.
	TopicAssetUploaded = "iv.asset.uploaded" // 客户端已确认上传，原图落入对象存储
	TopicAssetBound    = "iv.asset.bound"    // 资产与业务资源完成绑定
	TopicAssetDeleted  = "iv.asset.deleted"  // 资产被软删除（字节保留）

	// 图像处理领域.
	TopicProcessRequested = "iv.asset.process.requested" // 请求生成规范化原图与各衍生规格
	TopicProcessed        = "iv.asset.process.processed" // 衍生规格全部生成并持久化
	TopicProcessFailed    = "iv.asset.process.failed"    // 处理失败，资产停留在 uploaded 态等待重试
)

// 主题分组，用于批量操作或权限控制.
var (
	// 资产生命周期相关主题集合.
	AssetTopics = []string{
		TopicAssetUploaded, TopicAssetBound, TopicAssetDeleted,
	}

	// 图像处理相关主题集合.
	ProcessTopics = []string{
		TopicProcessRequested, TopicProcessed, TopicProcessFailed,
	}
)
