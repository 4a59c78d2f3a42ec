package queue

// 主题命名规范：cv.<域>.<动作>，发布后保持稳定.
const (
	// 证据附件领域.
	TopicAttachmentStored  = "cv.attachment.stored"  // 上传的文件已写入存储且账本已提交
	TopicAttachmentRemoved = "cv.attachment.removed" // 文件已从账本移除并尝试删除存储对象
	TopicAttachmentPurged  = "cv.attachment.purged"  // 记录删除后其前缀下的对象被全部清除
)

// AttachmentTopics 附件相关主题集合，审计消费者订阅全部.
var AttachmentTopics = []string{
	TopicAttachmentStored,
	TopicAttachmentRemoved,
	TopicAttachmentPurged,
}
