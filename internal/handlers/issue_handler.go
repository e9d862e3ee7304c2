package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/xutong0258/LCFC/internal/auth"
	"github.com/xutong0258/LCFC/internal/models"
	"github.com/xutong0258/LCFC/internal/services"
	"github.com/xutong0258/LCFC/pkg/utils"
)

// IssueHandler 封装了Issue相关的 HTTP 处理逻辑
type IssueHandler struct {
	service services.IssueService
}

// NewIssueHandler 创建一个新的 IssueHandler 实例
func NewIssueHandler(service services.IssueService) *IssueHandler {
	return &IssueHandler{service: service}
}

// PagedIssuesData 定义 GetIssueList 的分页响应结构
type PagedIssuesData struct {
	Items      []models.Issue `json:"items"`
	Pagination PaginationInfo `json:"pagination"`
}

// isValidationError 判断是否为应返回 400 的字段校验类错误
func isValidationError(err error) bool {
	return errors.Is(err, utils.ErrTitleBlank) ||
		errors.Is(err, utils.ErrTitleTooLong) ||
		errors.Is(err, utils.ErrTitleContainsScript) ||
		errors.Is(err, utils.ErrDescriptionTooLong) ||
		errors.Is(err, services.ErrInvalidPriority) ||
		errors.Is(err, services.ErrInvalidStatus)
}

// CreateIssue godoc
// @Summary 新增Issue
// @Description 创建Issue主记录，可附带系统环境信息、标签列表与已上传的临时附件ID列表，整体在一个事务中完成
// @Tags Issues
// @Accept json
// @Produce json
// @Param issue body models.AddIssuePayload true "Issue信息"
// @Success 201 {object} utils.SuccessResponse{data=models.Issue} "创建成功的Issue对象"
// @Failure 400 {object} utils.APIErrorResponse "请求参数错误或数据校验失败"
// @Failure 500 {object} utils.APIErrorResponse "服务器内部错误"
// @Router /issues [post]
func (h *IssueHandler) CreateIssue(c *gin.Context) {
	var payload models.AddIssuePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.RespondValidationError(c, err.Error())
		return
	}

	issue, err := h.service.CreateIssue(&payload, auth.CurrentOperator(c))
	if err != nil {
		if isValidationError(err) {
			utils.RespondValidationError(c, err.Error())
		} else {
			utils.RespondInternalServerError(c, "新增失败", err.Error())
		}
		return
	}

	utils.RespondSuccess(c, http.StatusCreated, issue, "新增成功")
}

// EditIssue godoc
// @Summary 编辑Issue
// @Description 部分更新：只应用请求中出现的字段；Issue编号不可修改；标签字段省略时保留，提供时整体替换
// @Tags Issues
// @Accept json
// @Produce json
// @Param issue body models.EditIssuePayload true "Issue编辑信息"
// @Success 200 {object} utils.SuccessResponse "编辑成功"
// @Failure 400 {object} utils.APIErrorResponse "请求参数错误或数据校验失败"
// @Failure 404 {object} utils.APIErrorResponse "Issue不存在"
// @Failure 500 {object} utils.APIErrorResponse "服务器内部错误"
// @Router /issues [put]
func (h *IssueHandler) EditIssue(c *gin.Context) {
	var payload models.EditIssuePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.RespondValidationError(c, err.Error())
		return
	}

	err := h.service.EditIssue(&payload, auth.CurrentOperator(c))
	if err != nil {
		if errors.Is(err, services.ErrIssueNotFound) {
			utils.RespondNotFoundError(c, "Issue")
		} else if isValidationError(err) {
			utils.RespondValidationError(c, err.Error())
		} else {
			utils.RespondInternalServerError(c, "编辑失败", err.Error())
		}
		return
	}

	utils.RespondSuccess(c, http.StatusOK, nil, "编辑成功")
}

// DeleteIssues godoc
// @Summary 删除Issue
// @Description 批量软删除逗号分隔的Issue ID列表；不存在的ID静默跳过；行保留以保证编号唯一性历史
// @Tags Issues
// @Produce json
// @Param issueIds path string true "逗号分隔的Issue ID列表"
// @Success 200 {object} utils.SuccessResponse "删除成功"
// @Failure 500 {object} utils.APIErrorResponse "服务器内部错误"
// @Router /issues/{issueIds} [delete]
func (h *IssueHandler) DeleteIssues(c *gin.Context) {
	issueIDs := c.Param("issueIds")

	if err := h.service.DeleteIssues(issueIDs, auth.CurrentOperator(c)); err != nil {
		utils.RespondInternalServerError(c, "删除失败", err.Error())
		return
	}

	utils.RespondSuccess(c, http.StatusOK, nil, "删除成功")
}

// GetIssueDetail godoc
// @Summary 获取Issue详细信息
// @Description 返回Issue主记录及环境信息、诊断记录（按时间倒序）、附件、标签的聚合
// @Tags Issues
// @Produce json
// @Param issueId path int true "Issue ID"
// @Success 200 {object} utils.SuccessResponse{data=models.IssueDetail}
// @Failure 404 {object} utils.APIErrorResponse "Issue不存在"
// @Failure 500 {object} utils.APIErrorResponse "服务器内部错误"
// @Router /issues/{issueId} [get]
func (h *IssueHandler) GetIssueDetail(c *gin.Context) {
	issueID, err := strconv.ParseInt(c.Param("issueId"), 10, 64)
	if err != nil {
		utils.RespondValidationError(c, "Issue ID格式无效")
		return
	}

	detail, err := h.service.GetIssueDetail(issueID)
	if err != nil {
		if errors.Is(err, services.ErrIssueNotFound) {
			utils.RespondNotFoundError(c, "Issue")
		} else {
			utils.RespondInternalServerError(c, "获取Issue详情失败", err.Error())
		}
		return
	}

	utils.RespondSuccess(c, http.StatusOK, detail, "")
}

// GetIssueList godoc
// @Summary 获取Issue列表
// @Description 根据查询参数获取Issue列表，支持编号/标题模糊搜索、优先级/状态/类型筛选和创建时间范围，按创建时间倒序分页
// @Tags Issues
// @Produce json
// @Param page query int false "页码" default(1)
// @Param pageSize query int false "每页数量" default(10)
// @Param issueNumber query string false "Issue编号（模糊）"
// @Param title query string false "标题（模糊）"
// @Param priority query string false "优先级筛选"
// @Param status query string false "状态筛选"
// @Param issueType query string false "类型筛选"
// @Param beginTime query string false "创建时间起点 YYYY-MM-DD"
// @Param endTime query string false "创建时间终点 YYYY-MM-DD"
// @Success 200 {object} utils.SuccessResponse{data=PagedIssuesData}
// @Failure 400 {object} utils.APIErrorResponse "请求参数错误"
// @Failure 500 {object} utils.APIErrorResponse "服务器内部错误"
// @Router /issues [get]
func (h *IssueHandler) GetIssueList(c *gin.Context) {
	var query models.IssueQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		utils.RespondValidationError(c, err.Error())
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "10"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}

	issues, total, err := h.service.GetIssueList(query, page, pageSize)
	if err != nil {
		utils.RespondInternalServerError(c, "获取Issue列表失败", err.Error())
		return
	}

	totalPages := total / int64(pageSize)
	if total%int64(pageSize) != 0 {
		totalPages++
	}

	utils.RespondSuccess(c, http.StatusOK, PagedIssuesData{
		Items: issues,
		Pagination: PaginationInfo{
			TotalItems:  total,
			TotalPages:  totalPages,
			CurrentPage: page,
			PageSize:    pageSize,
		},
	}, "")
}

// GetIssueStatistics godoc
// @Summary 获取Issue统计数据
// @Tags Issues
// @Produce json
// @Success 200 {object} utils.SuccessResponse{data=models.IssueStatistics}
// @Failure 500 {object} utils.APIErrorResponse "服务器内部错误"
// @Router /issues/statistics [get]
func (h *IssueHandler) GetIssueStatistics(c *gin.Context) {
	stats, err := h.service.GetIssueStatistics()
	if err != nil {
		utils.RespondInternalServerError(c, "获取统计数据失败", err.Error())
		return
	}

	utils.RespondSuccess(c, http.StatusOK, stats, "")
}

// AddDiagnosisLog godoc
// @Summary 新增Issue诊断记录
// @Description 追加一条诊断记录；Issue处于待诊断状态时在同一事务中自动推进为诊断中
// @Tags Issues
// @Accept json
// @Produce json
// @Param diagnosisLog body models.AddDiagnosisLogPayload true "诊断记录"
// @Success 201 {object} utils.SuccessResponse "新增诊断记录成功"
// @Failure 400 {object} utils.APIErrorResponse "请求参数错误"
// @Failure 404 {object} utils.APIErrorResponse "Issue不存在"
// @Failure 500 {object} utils.APIErrorResponse "服务器内部错误"
// @Router /issues/diagnosis/logs [post]
func (h *IssueHandler) AddDiagnosisLog(c *gin.Context) {
	var payload models.AddDiagnosisLogPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.RespondValidationError(c, err.Error())
		return
	}

	err := h.service.AddDiagnosisLog(&payload, auth.CurrentOperator(c))
	if err != nil {
		if errors.Is(err, services.ErrIssueNotFound) {
			utils.RespondNotFoundError(c, "Issue")
		} else {
			utils.RespondInternalServerError(c, "新增诊断记录失败", err.Error())
		}
		return
	}

	utils.RespondSuccess(c, http.StatusCreated, nil, "新增诊断记录成功")
}

// UpdateStatusPayload 是状态覆写请求的载荷
type UpdateStatusPayload struct {
	Status string `json:"status" binding:"required,oneof=pending diagnosing completed cancelled"`
}

// UpdateIssueStatus godoc
// @Summary 更新Issue状态
// @Description 显式状态覆写，任意状态可切换到任意状态
// @Tags Issues
// @Accept json
// @Produce json
// @Param issueId path int true "Issue ID"
// @Param status body UpdateStatusPayload true "目标状态"
// @Success 200 {object} utils.SuccessResponse "状态更新成功"
// @Failure 400 {object} utils.APIErrorResponse "请求参数错误"
// @Failure 404 {object} utils.APIErrorResponse "Issue不存在"
// @Failure 500 {object} utils.APIErrorResponse "服务器内部错误"
// @Router /issues/{issueId}/status [patch]
func (h *IssueHandler) UpdateIssueStatus(c *gin.Context) {
	issueID, err := strconv.ParseInt(c.Param("issueId"), 10, 64)
	if err != nil {
		utils.RespondValidationError(c, "Issue ID格式无效")
		return
	}

	var payload UpdateStatusPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.RespondValidationError(c, err.Error())
		return
	}

	err = h.service.UpdateIssueStatus(issueID, payload.Status, auth.CurrentOperator(c))
	if err != nil {
		if errors.Is(err, services.ErrIssueNotFound) {
			utils.RespondNotFoundError(c, "Issue")
		} else if errors.Is(err, services.ErrInvalidStatus) {
			utils.RespondValidationError(c, err.Error())
		} else {
			utils.RespondInternalServerError(c, "状态更新失败", err.Error())
		}
		return
	}

	utils.RespondSuccess(c, http.StatusOK, nil, "状态更新成功")
}

// GetIssueTypeOptions godoc
// @Summary 获取Issue类型选项
// @Tags Issues
// @Produce json
// @Success 200 {object} utils.SuccessResponse{data=[]models.OptionItem}
// @Router /issues/options/types [get]
func (h *IssueHandler) GetIssueTypeOptions(c *gin.Context) {
	utils.RespondSuccess(c, http.StatusOK, h.service.GetIssueTypeOptions(), "")
}

// GetPriorityOptions godoc
// @Summary 获取优先级选项
// @Tags Issues
// @Produce json
// @Success 200 {object} utils.SuccessResponse{data=[]models.OptionItem}
// @Router /issues/options/priorities [get]
func (h *IssueHandler) GetPriorityOptions(c *gin.Context) {
	utils.RespondSuccess(c, http.StatusOK, h.service.GetPriorityOptions(), "")
}

// GetStatusOptions godoc
// @Summary 获取状态选项
// @Tags Issues
// @Produce json
// @Success 200 {object} utils.SuccessResponse{data=[]models.OptionItem}
// @Router /issues/options/status [get]
func (h *IssueHandler) GetStatusOptions(c *gin.Context) {
	utils.RespondSuccess(c, http.StatusOK, h.service.GetStatusOptions(), "")
}
