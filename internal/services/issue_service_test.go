package services

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/xutong0258/LCFC/internal/models"
	"github.com/xutong0258/LCFC/internal/repositories"
	"github.com/xutong0258/LCFC/pkg/utils"
)

// newTestDB 创建每个测试独立的 SQLite 数据库并迁移全部表结构
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db") + "?_busy_timeout=10000"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)

	err = gdb.AutoMigrate(
		&models.Issue{},
		&models.IssueSystemEnv{},
		&models.IssueDiagnosisLog{},
		&models.IssueAttachment{},
		&models.IssueTag{},
	)
	require.NoError(t, err)

	return gdb
}

func newIssueService(t *testing.T) (IssueService, *gorm.DB) {
	t.Helper()
	gdb := newTestDB(t)
	return NewIssueService(repositories.NewGormIssueRepository(gdb)), gdb
}

func strPtr(s string) *string { return &s }

func basicAddPayload(title string) *models.AddIssuePayload {
	return &models.AddIssuePayload{
		Title:     title,
		Priority:  models.PriorityMedium,
		IssueType: "BUG",
	}
}

func TestCreateIssueGeneratesSequentialNumbers(t *testing.T) {
	svc, _ := newIssueService(t)

	prefix := fmt.Sprintf("ISU-%s-", time.Now().Format("2006-01-02"))
	for i := 1; i <= 3; i++ {
		issue, err := svc.CreateIssue(basicAddPayload(fmt.Sprintf("显卡驱动异常 %d", i)), "tester")
		require.NoError(t, err)
		require.Equal(t, fmt.Sprintf("%s%04d", prefix, i), issue.IssueNumber)
		require.Equal(t, models.StatusPending, issue.Status)
		require.Equal(t, "tester", issue.CreateBy)
		require.Equal(t, "tester", issue.UpdateBy)
	}
}

func TestCreateIssueConcurrentNumbersUnique(t *testing.T) {
	svc, gdb := newIssueService(t)

	const workers = 50
	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := svc.CreateIssue(basicAddPayload(fmt.Sprintf("并发创建 %d", n)), "tester")
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	var numbers []string
	require.NoError(t, gdb.Model(&models.Issue{}).Pluck("issue_number", &numbers).Error)
	require.Len(t, numbers, workers)

	seen := make(map[string]struct{}, workers)
	for _, number := range numbers {
		_, dup := seen[number]
		require.False(t, dup, "duplicate issue number: %s", number)
		seen[number] = struct{}{}
	}
}

func TestCreateIssueTitleBoundary(t *testing.T) {
	svc, _ := newIssueService(t)

	_, err := svc.CreateIssue(basicAddPayload(strings.Repeat("标", 200)), "tester")
	require.NoError(t, err)

	_, err = svc.CreateIssue(basicAddPayload(strings.Repeat("标", 201)), "tester")
	require.Error(t, err)
}

func TestCreateIssueDescriptionBoundary(t *testing.T) {
	svc, _ := newIssueService(t)

	ok := basicAddPayload("描述边界")
	ok.Description = strPtr(strings.Repeat("述", 5000))
	_, err := svc.CreateIssue(ok, "tester")
	require.NoError(t, err)

	tooLong := basicAddPayload("描述超限")
	tooLong.Description = strPtr(strings.Repeat("述", 5001))
	_, err = svc.CreateIssue(tooLong, "tester")
	require.Error(t, err)
}

func TestCreateIssueRejectsScriptTitle(t *testing.T) {
	svc, gdb := newIssueService(t)

	_, err := svc.CreateIssue(basicAddPayload(`<script>alert(1)</script>`), "tester")
	require.Error(t, err)

	var count int64
	require.NoError(t, gdb.Model(&models.Issue{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestCreateIssueLinksAttachments(t *testing.T) {
	svc, gdb := newIssueService(t)

	att := models.IssueAttachment{
		FileName:   "crash.log",
		FilePath:   "/tmp/crash.log",
		FileSize:   128,
		FileType:   ".log",
		UploadTime: time.Now(),
		UploadBy:   "tester",
		Status:     models.AttachmentStatusTemporary,
	}
	require.NoError(t, gdb.Create(&att).Error)
	require.Nil(t, att.IssueID)

	payload := basicAddPayload("带附件的Issue")
	payload.AttachmentIDs = []int64{att.AttachmentID}
	payload.Tags = []string{" 显卡 ", "", "驱动"}
	payload.SystemEnv = &models.SystemEnvPayload{CPUInfo: strPtr("i7-13700H")}

	issue, err := svc.CreateIssue(payload, "tester")
	require.NoError(t, err)

	var linked models.IssueAttachment
	require.NoError(t, gdb.First(&linked, att.AttachmentID).Error)
	require.Equal(t, models.AttachmentStatusLinked, linked.Status)
	require.NotNil(t, linked.IssueID)
	require.Equal(t, issue.IssueID, *linked.IssueID)

	// 空白标签被过滤，剩余标签去除首尾空白
	var tags []models.IssueTag
	require.NoError(t, gdb.Where("issue_id = ?", issue.IssueID).Find(&tags).Error)
	require.Len(t, tags, 2)

	var env models.IssueSystemEnv
	require.NoError(t, gdb.Where("issue_id = ?", issue.IssueID).First(&env).Error)
	require.Equal(t, "i7-13700H", *env.CPUInfo)
}

func TestEditIssuePartialUpdate(t *testing.T) {
	svc, _ := newIssueService(t)

	payload := basicAddPayload("原始标题")
	payload.Description = strPtr("原始描述")
	issue, err := svc.CreateIssue(payload, "tester")
	require.NoError(t, err)

	err = svc.EditIssue(&models.EditIssuePayload{
		IssueID: issue.IssueID,
		Status:  strPtr(models.StatusCompleted),
	}, "editor")
	require.NoError(t, err)

	detail, err := svc.GetIssueDetail(issue.IssueID)
	require.NoError(t, err)
	require.Equal(t, models.StatusCompleted, detail.IssueInfo.Status)
	require.Equal(t, "原始标题", detail.IssueInfo.Title)
	require.Equal(t, models.PriorityMedium, detail.IssueInfo.Priority)
	require.Equal(t, "原始描述", *detail.IssueInfo.Description)
	require.Equal(t, "editor", detail.IssueInfo.UpdateBy)
	// 编号不可变更
	require.Equal(t, issue.IssueNumber, detail.IssueInfo.IssueNumber)
}

func TestEditIssueTagsReplaceVsPreserve(t *testing.T) {
	svc, gdb := newIssueService(t)

	payload := basicAddPayload("标签语义")
	payload.Tags = []string{"原标签A", "原标签B"}
	issue, err := svc.CreateIssue(payload, "tester")
	require.NoError(t, err)

	countTags := func() int64 {
		var count int64
		require.NoError(t, gdb.Model(&models.IssueTag{}).Where("issue_id = ?", issue.IssueID).Count(&count).Error)
		return count
	}

	// 省略 Tags 字段：保留现有标签
	err = svc.EditIssue(&models.EditIssuePayload{
		IssueID: issue.IssueID,
		Title:   strPtr("改标题不动标签"),
	}, "editor")
	require.NoError(t, err)
	require.EqualValues(t, 2, countTags())

	// 提供新集合：整体替换
	newTags := []string{"新标签"}
	err = svc.EditIssue(&models.EditIssuePayload{IssueID: issue.IssueID, Tags: &newTags}, "editor")
	require.NoError(t, err)
	require.EqualValues(t, 1, countTags())

	// 显式空列表：清空全部标签
	empty := []string{}
	err = svc.EditIssue(&models.EditIssuePayload{IssueID: issue.IssueID, Tags: &empty}, "editor")
	require.NoError(t, err)
	require.EqualValues(t, 0, countTags())
}

func TestEditIssueEnvUpsert(t *testing.T) {
	svc, gdb := newIssueService(t)

	issue, err := svc.CreateIssue(basicAddPayload("环境信息"), "tester")
	require.NoError(t, err)

	err = svc.EditIssue(&models.EditIssuePayload{
		IssueID:   issue.IssueID,
		SystemEnv: &models.SystemEnvPayload{OSInfo: strPtr("Windows 11 23H2")},
	}, "editor")
	require.NoError(t, err)

	var first models.IssueSystemEnv
	require.NoError(t, gdb.Where("issue_id = ?", issue.IssueID).First(&first).Error)

	// 再次编辑：原地更新，保留 env_id，不产生第二行
	err = svc.EditIssue(&models.EditIssuePayload{
		IssueID:   issue.IssueID,
		SystemEnv: &models.SystemEnvPayload{OSInfo: strPtr("Windows 11 24H2")},
	}, "editor")
	require.NoError(t, err)

	var count int64
	require.NoError(t, gdb.Model(&models.IssueSystemEnv{}).Where("issue_id = ?", issue.IssueID).Count(&count).Error)
	require.EqualValues(t, 1, count)

	var second models.IssueSystemEnv
	require.NoError(t, gdb.Where("issue_id = ?", issue.IssueID).First(&second).Error)
	require.Equal(t, first.EnvID, second.EnvID)
	require.Equal(t, "Windows 11 24H2", *second.OSInfo)
}

func TestEditIssueNotFound(t *testing.T) {
	svc, _ := newIssueService(t)

	err := svc.EditIssue(&models.EditIssuePayload{IssueID: 99999, Title: strPtr("不存在")}, "editor")
	require.ErrorIs(t, err, ErrIssueNotFound)
}

func TestDeleteIssuesSoftDelete(t *testing.T) {
	svc, gdb := newIssueService(t)

	first, err := svc.CreateIssue(basicAddPayload("将被删除"), "tester")
	require.NoError(t, err)

	err = svc.DeleteIssues(fmt.Sprintf("%d, abc, 99999", first.IssueID), "deleter")
	require.NoError(t, err)

	// 行仍然存在，仅打上删除标记
	var row models.Issue
	require.NoError(t, gdb.First(&row, first.IssueID).Error)
	require.Equal(t, models.DelFlagDeleted, row.DelFlag)
	require.Equal(t, "deleter", row.UpdateBy)

	// 详情与列表不再可见
	_, err = svc.GetIssueDetail(first.IssueID)
	require.ErrorIs(t, err, ErrIssueNotFound)

	issues, total, err := svc.GetIssueList(models.IssueQuery{}, 1, 10)
	require.NoError(t, err)
	require.Zero(t, total)
	require.Empty(t, issues)

	// 已删除的编号仍被占用，新Issue拿到下一个序号而不是复用
	second, err := svc.CreateIssue(basicAddPayload("删除之后新建"), "tester")
	require.NoError(t, err)
	require.NotEqual(t, first.IssueNumber, second.IssueNumber)
	require.True(t, strings.HasSuffix(second.IssueNumber, "-0002"))
}

func TestAddDiagnosisLogAdvancesPendingOnly(t *testing.T) {
	svc, gdb := newIssueService(t)

	issue, err := svc.CreateIssue(basicAddPayload("诊断状态推进"), "tester")
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, issue.Status)

	err = svc.AddDiagnosisLog(&models.AddDiagnosisLogPayload{
		IssueID:  issue.IssueID,
		StepName: "检查驱动版本",
	}, "engineer")
	require.NoError(t, err)

	var after models.Issue
	require.NoError(t, gdb.First(&after, issue.IssueID).Error)
	require.Equal(t, models.StatusDiagnosing, after.Status)
	// 自动推进同样盖审计戳：更新人是诊断记录的操作人
	require.Equal(t, "engineer", after.UpdateBy)

	// 第二条记录不再触发任何状态变化
	err = svc.AddDiagnosisLog(&models.AddDiagnosisLogPayload{
		IssueID:  issue.IssueID,
		StepName: "复现问题",
	}, "engineer")
	require.NoError(t, err)

	require.NoError(t, gdb.First(&after, issue.IssueID).Error)
	require.Equal(t, models.StatusDiagnosing, after.Status)

	var logCount int64
	require.NoError(t, gdb.Model(&models.IssueDiagnosisLog{}).Where("issue_id = ?", issue.IssueID).Count(&logCount).Error)
	require.EqualValues(t, 2, logCount)
}

func TestAddDiagnosisLogIssueNotFound(t *testing.T) {
	svc, _ := newIssueService(t)

	err := svc.AddDiagnosisLog(&models.AddDiagnosisLogPayload{IssueID: 12345, StepName: "步骤"}, "engineer")
	require.ErrorIs(t, err, ErrIssueNotFound)
}

func TestUpdateIssueStatusAnyTransition(t *testing.T) {
	svc, _ := newIssueService(t)

	issue, err := svc.CreateIssue(basicAddPayload("状态覆写"), "tester")
	require.NoError(t, err)

	// 不限制状态迁移图：completed 之后仍可回到 pending
	require.NoError(t, svc.UpdateIssueStatus(issue.IssueID, models.StatusCompleted, "admin"))
	require.NoError(t, svc.UpdateIssueStatus(issue.IssueID, models.StatusPending, "admin"))

	detail, err := svc.GetIssueDetail(issue.IssueID)
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, detail.IssueInfo.Status)

	require.ErrorIs(t, svc.UpdateIssueStatus(issue.IssueID, "archived", "admin"), ErrInvalidStatus)
}

func TestGetIssueListDateRangeFormats(t *testing.T) {
	svc, _ := newIssueService(t)

	_, err := svc.CreateIssue(basicAddPayload("时间范围过滤"), "tester")
	require.NoError(t, err)

	// 日期范围支持补零与不补零、斜杠与横杠的常见写法
	today := time.Now()
	for _, layout := range []string{"2006-01-02", "2006/1/2"} {
		issues, total, err := svc.GetIssueList(models.IssueQuery{
			BeginTime: today.Format(layout),
			EndTime:   today.Format(layout),
		}, 1, 10)
		require.NoError(t, err, "layout: %s", layout)
		require.EqualValues(t, 1, total, "layout: %s", layout)
		require.Len(t, issues, 1, "layout: %s", layout)
	}

	// 昨天为界查不到今天创建的Issue
	yesterday := today.AddDate(0, 0, -1).Format("2006-01-02")
	_, total, err := svc.GetIssueList(models.IssueQuery{BeginTime: yesterday, EndTime: yesterday}, 1, 10)
	require.NoError(t, err)
	require.Zero(t, total)

	// 无法解析的日期直接报错
	_, _, err = svc.GetIssueList(models.IssueQuery{BeginTime: "not-a-date", EndTime: "2026-01-01"}, 1, 10)
	require.ErrorIs(t, err, utils.ErrInvalidDateFormat)
}

func TestGetIssueStatistics(t *testing.T) {
	svc, _ := newIssueService(t)

	high := basicAddPayload("高优先级")
	high.Priority = models.PriorityHigh
	issue, err := svc.CreateIssue(high, "tester")
	require.NoError(t, err)

	_, err = svc.CreateIssue(basicAddPayload("普通"), "tester")
	require.NoError(t, err)

	require.NoError(t, svc.AddDiagnosisLog(&models.AddDiagnosisLogPayload{
		IssueID:  issue.IssueID,
		StepName: "初步分析",
	}, "engineer"))

	stats, err := svc.GetIssueStatistics()
	require.NoError(t, err)
	require.EqualValues(t, 2, stats.TotalCount)
	require.EqualValues(t, 2, stats.MonthlyNewCount)
	require.EqualValues(t, 1, stats.PendingCount)
	require.EqualValues(t, 1, stats.DiagnosisCount)
	require.EqualValues(t, 1, stats.HighPriorityCount)
	require.EqualValues(t, 0, stats.CompletedCount)
}

func TestDiagnosisLogsOrderedNewestFirst(t *testing.T) {
	svc, gdb := newIssueService(t)

	issue, err := svc.CreateIssue(basicAddPayload("记录排序"), "tester")
	require.NoError(t, err)

	old := models.IssueDiagnosisLog{
		IssueID:     issue.IssueID,
		StepName:    "较早的步骤",
		Operator:    "engineer",
		OperateTime: time.Now().Add(-2 * time.Hour),
	}
	require.NoError(t, gdb.Create(&old).Error)

	require.NoError(t, svc.AddDiagnosisLog(&models.AddDiagnosisLogPayload{
		IssueID:  issue.IssueID,
		StepName: "最新的步骤",
	}, "engineer"))

	detail, err := svc.GetIssueDetail(issue.IssueID)
	require.NoError(t, err)
	require.Len(t, detail.DiagnosisLogs, 2)
	require.Equal(t, "最新的步骤", detail.DiagnosisLogs[0].StepName)
	require.Equal(t, "较早的步骤", detail.DiagnosisLogs[1].StepName)
}
