package services

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/xutong0258/LCFC/internal/models"
	"github.com/xutong0258/LCFC/internal/repositories"
	"github.com/xutong0258/LCFC/pkg/utils"
)

// ErrIssueNotFound 表示Issue未找到或已被删除
var ErrIssueNotFound = errors.New("Issue不存在")

// ErrInvalidPriority 表示优先级取值不合法
var ErrInvalidPriority = errors.New("无效的优先级值")

// ErrInvalidStatus 表示状态取值不合法
var ErrInvalidStatus = errors.New("无效的状态值")

// issueNumberPrefix Issue编号前缀，对外契约格式为 ISU-YYYY-MM-DD-NNNN
const issueNumberPrefix = "ISU"

// maxNumberAttempts 编号生成的重试上限：并发创建撞上唯一索引时换新编号重试
const maxNumberAttempts = 5

// IssueService 定义了Issue服务的接口
type IssueService interface {
	CreateIssue(payload *models.AddIssuePayload, operator string) (*models.Issue, error)
	EditIssue(payload *models.EditIssuePayload, operator string) error
	// DeleteIssues 软删除逗号分隔的一批Issue，不存在的ID静默跳过
	DeleteIssues(issueIDs string, operator string) error
	// AddDiagnosisLog 新增诊断记录；Issue处于待诊断状态时在同一事务中自动推进为诊断中
	AddDiagnosisLog(payload *models.AddDiagnosisLogPayload, operator string) error
	// UpdateIssueStatus 显式状态覆写：允许从任意状态切到任意状态，不做状态机校验
	UpdateIssueStatus(issueID int64, status string, operator string) error
	GetIssueDetail(issueID int64) (*models.IssueDetail, error)
	GetIssueList(query models.IssueQuery, page, pageSize int) ([]models.Issue, int64, error)
	GetIssueStatistics() (*models.IssueStatistics, error)
	GetIssueTypeOptions() []models.OptionItem
	GetPriorityOptions() []models.OptionItem
	GetStatusOptions() []models.OptionItem
}

// issueService 是 IssueService 的实现
type issueService struct {
	repo repositories.IssueRepository

	// numberMu 串行化进程内的编号生成+写入，消除同进程并发创建的读写竞争；
	// 跨实例部署时由唯一索引加重试兜底
	numberMu sync.Mutex
}

// NewIssueService 创建一个新的 issueService 实例
func NewIssueService(repo repositories.IssueRepository) IssueService {
	return &issueService{repo: repo}
}

// CreateIssue 处理新增Issue的业务逻辑
// 编号生成、主记录、环境信息、标签和附件关联在一个事务中完成，任一失败整体回滚
func (s *issueService) CreateIssue(payload *models.AddIssuePayload, operator string) (*models.Issue, error) {
	if err := utils.ValidateIssueTitle(payload.Title); err != nil {
		return nil, err
	}
	if payload.Description != nil {
		if err := utils.ValidateIssueDescription(*payload.Description); err != nil {
			return nil, err
		}
	}

	priority := payload.Priority
	if priority == "" {
		priority = models.PriorityLow
	}
	if !models.IsValidPriority(priority) {
		return nil, ErrInvalidPriority
	}

	now := time.Now()
	issue := &models.Issue{
		Title:               payload.Title,
		Priority:            priority,
		Status:              models.StatusPending,
		IssueType:           payload.IssueType,
		IssueSource:         payload.IssueSource,
		Description:         payload.Description,
		Solution:            payload.Solution,
		ExpectedResolveDate: payload.ExpectedResolveDate,
		CreateBy:            operator,
		CreateTime:          now,
		UpdateBy:            operator,
		UpdateTime:          now,
		DelFlag:             models.DelFlagActive,
	}

	env := systemEnvFromPayload(payload.SystemEnv)
	tagNames := cleanTagNames(payload.Tags)

	s.numberMu.Lock()
	defer s.numberMu.Unlock()

	// 同一天并发创建时 max+1 会产生重复编号，唯一索引兜底后换新编号重试
	var lastErr error
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		number, err := s.generateIssueNumber(now)
		if err != nil {
			return nil, err
		}
		issue.IssueID = 0
		issue.IssueNumber = number

		err = s.repo.CreateIssueGraph(issue, env, tagNames, payload.AttachmentIDs)
		if err == nil {
			return issue, nil
		}
		if !errors.Is(err, repositories.ErrIssueNumberConflict) {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("Issue编号生成冲突重试次数已用尽: %w", lastErr)
}

// generateIssueNumber 生成当天的下一个Issue编号：ISU-YYYY-MM-DD-NNNN，日内序号从 0001 起
func (s *issueService) generateIssueNumber(now time.Time) (string, error) {
	prefix := fmt.Sprintf("%s-%s-", issueNumberPrefix, now.Format("2006-01-02"))

	maxNumber, err := s.repo.MaxIssueNumber(prefix)
	if err != nil {
		return "", err
	}

	seq := 1
	if maxNumber != "" {
		parts := strings.Split(maxNumber, "-")
		if n, convErr := strconv.Atoi(parts[len(parts)-1]); convErr == nil {
			seq = n + 1
		}
	}

	return fmt.Sprintf("%s%04d", prefix, seq), nil
}

// EditIssue 处理编辑Issue的业务逻辑
// 部分更新语义：只应用非 nil 字段；编号不可修改；标签为 nil 保留、非 nil 整体替换
func (s *issueService) EditIssue(payload *models.EditIssuePayload, operator string) error {
	if _, err := s.repo.GetIssueByID(payload.IssueID); err != nil {
		if errors.Is(err, repositories.ErrRecordNotFound) {
			return ErrIssueNotFound
		}
		return err
	}

	updates := make(map[string]interface{})
	if payload.Title != nil {
		if err := utils.ValidateIssueTitle(*payload.Title); err != nil {
			return err
		}
		updates["title"] = *payload.Title
	}
	if payload.Priority != nil {
		if !models.IsValidPriority(*payload.Priority) {
			return ErrInvalidPriority
		}
		updates["priority"] = *payload.Priority
	}
	if payload.Status != nil {
		if !models.IsValidStatus(*payload.Status) {
			return ErrInvalidStatus
		}
		updates["status"] = *payload.Status
	}
	if payload.IssueType != nil {
		updates["issue_type"] = *payload.IssueType
	}
	if payload.IssueSource != nil {
		updates["issue_source"] = *payload.IssueSource
	}
	if payload.Description != nil {
		if err := utils.ValidateIssueDescription(*payload.Description); err != nil {
			return err
		}
		updates["description"] = *payload.Description
	}
	if payload.Solution != nil {
		updates["solution"] = *payload.Solution
	}
	if payload.ExpectedResolveDate != nil {
		updates["expected_resolve_date"] = *payload.ExpectedResolveDate
	}

	updates["update_by"] = operator
	updates["update_time"] = time.Now()

	env := systemEnvFromPayload(payload.SystemEnv)

	var tagNames []string
	if payload.Tags != nil {
		tagNames = cleanTagNames(*payload.Tags)
	}

	return s.repo.UpdateIssueGraph(payload.IssueID, updates, env, payload.Tags, tagNames)
}

// DeleteIssues 处理批量软删除Issue的业务逻辑
// issueIDs 为逗号分隔的ID列表；无法解析或不存在的ID静默跳过，整批一个事务
func (s *issueService) DeleteIssues(issueIDs string, operator string) error {
	var ids []int64
	for _, raw := range strings.Split(issueIDs, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}

	if len(ids) == 0 {
		return nil
	}

	return s.repo.SoftDeleteIssues(ids, operator, time.Now())
}

// AddDiagnosisLog 处理新增诊断记录的业务逻辑
// 状态推进（pending -> diagnosing）作为本操作的文档化副作用，在仓库层同一事务内完成
func (s *issueService) AddDiagnosisLog(payload *models.AddDiagnosisLogPayload, operator string) error {
	logEntry := &models.IssueDiagnosisLog{
		IssueID:           payload.IssueID,
		StepName:          payload.StepName,
		MethodDescription: payload.MethodDescription,
		Operator:          operator,
		OperateTime:       time.Now(),
	}

	err := s.repo.AddDiagnosisLog(logEntry)
	if errors.Is(err, repositories.ErrRecordNotFound) {
		return ErrIssueNotFound
	}
	return err
}

// UpdateIssueStatus 处理显式状态覆写的业务逻辑
// 注意：这里有意不限制状态迁移图，任意状态都可以切换到任意状态（例如 completed 重开为 diagnosing）
func (s *issueService) UpdateIssueStatus(issueID int64, status string, operator string) error {
	if !models.IsValidStatus(status) {
		return ErrInvalidStatus
	}

	if _, err := s.repo.GetIssueByID(issueID); err != nil {
		if errors.Is(err, repositories.ErrRecordNotFound) {
			return ErrIssueNotFound
		}
		return err
	}

	updates := map[string]interface{}{
		"status":      status,
		"update_by":   operator,
		"update_time": time.Now(),
	}
	return s.repo.UpdateIssueGraph(issueID, updates, nil, nil, nil)
}

// GetIssueDetail 获取Issue详情聚合信息
func (s *issueService) GetIssueDetail(issueID int64) (*models.IssueDetail, error) {
	detail, err := s.repo.GetIssueDetail(issueID)
	if err != nil {
		if errors.Is(err, repositories.ErrRecordNotFound) {
			return nil, ErrIssueNotFound
		}
		return nil, err
	}
	return detail, nil
}

// GetIssueList 获取Issue列表
func (s *issueService) GetIssueList(query models.IssueQuery, page, pageSize int) ([]models.Issue, int64, error) {
	return s.repo.GetIssueList(query, page, pageSize)
}

// GetIssueStatistics 获取Issue统计数据
func (s *issueService) GetIssueStatistics() (*models.IssueStatistics, error) {
	return s.repo.GetIssueStatistics()
}

// GetIssueTypeOptions 获取Issue类型选项
func (s *issueService) GetIssueTypeOptions() []models.OptionItem {
	return []models.OptionItem{
		{Label: "BUG报告", Value: "BUG"},
		{Label: "问题工单", Value: "工单"},
		{Label: "系统日志", Value: "系统日志"},
		{Label: "测试报告", Value: "测试报告"},
		{Label: "功能需求", Value: "功能需求"},
		{Label: "性能优化", Value: "性能优化"},
		{Label: "其他", Value: "其他"},
	}
}

// GetPriorityOptions 获取优先级选项
func (s *issueService) GetPriorityOptions() []models.OptionItem {
	return []models.OptionItem{
		{Label: "高", Value: models.PriorityHigh},
		{Label: "中", Value: models.PriorityMedium},
		{Label: "低", Value: models.PriorityLow},
	}
}

// GetStatusOptions 获取状态选项
func (s *issueService) GetStatusOptions() []models.OptionItem {
	return []models.OptionItem{
		{Label: "待诊断", Value: models.StatusPending},
		{Label: "诊断中", Value: models.StatusDiagnosing},
		{Label: "已完成", Value: models.StatusCompleted},
		{Label: "已取消", Value: models.StatusCancelled},
	}
}

// systemEnvFromPayload 将环境信息载荷转换为数据库模型，载荷为 nil 时返回 nil
func systemEnvFromPayload(payload *models.SystemEnvPayload) *models.IssueSystemEnv {
	if payload == nil {
		return nil
	}
	return &models.IssueSystemEnv{
		CPUInfo:          payload.CPUInfo,
		MemoryInfo:       payload.MemoryInfo,
		GPUInfo:          payload.GPUInfo,
		OSInfo:           payload.OSInfo,
		GPUDriverVersion: payload.GPUDriverVersion,
		BIOSVersion:      payload.BIOSVersion,
	}
}

// cleanTagNames 去除标签名首尾空白并过滤空字符串
func cleanTagNames(tags []string) []string {
	var cleaned []string
	for _, tag := range tags {
		trimmed := strings.TrimSpace(tag)
		if trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}
