package tasks

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/xutong0258/LCFC/internal/services"
)

// AttachmentReaper 定时清理临时附件任务
// 周期性扫描超过保留时限仍未关联Issue的临时附件，删除其物理文件与记录。
// 任务只删不增、谓词幂等，与请求处理并发运行是安全的。
type AttachmentReaper struct {
	scheduler      gocron.Scheduler
	service        services.AttachmentService
	retentionHours int
	interval       time.Duration
}

// NewAttachmentReaper 创建清理任务调度器
// retentionHours 为临时附件保留时长（小时），interval 为扫描间隔
func NewAttachmentReaper(service services.AttachmentService, retentionHours int, interval time.Duration) (*AttachmentReaper, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	return &AttachmentReaper{
		scheduler:      scheduler,
		service:        service,
		retentionHours: retentionHours,
		interval:       interval,
	}, nil
}

// Start 注册并启动定时清理任务
func (r *AttachmentReaper) Start() error {
	_, err := r.scheduler.NewJob(
		gocron.DurationJob(r.interval),
		gocron.NewTask(r.runOnce),
	)
	if err != nil {
		return err
	}

	r.scheduler.Start()
	log.Printf("[定时任务] 临时附件清理任务已启动，间隔 %s，保留时限 %d 小时", r.interval, r.retentionHours)
	return nil
}

// Stop 停止调度器，等待进行中的任务结束
func (r *AttachmentReaper) Stop() error {
	return r.scheduler.Shutdown()
}

// runOnce 执行一次清理。失败只记日志，永不中断进程，剩余部分留给下一轮
func (r *AttachmentReaper) runOnce() {
	log.Printf("[定时任务] 开始清理超过%d小时的临时附件...", r.retentionHours)

	result, err := r.service.CleanTemporaryAttachments(r.retentionHours)
	if err != nil {
		log.Printf("[定时任务] 清理临时附件失败: %v", err)
		return
	}

	log.Printf("[定时任务] 成功清理 %d 条临时附件记录，删除物理文件 %d 个", result.RowsDeleted, result.FilesRemoved)
}
