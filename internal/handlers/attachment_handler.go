package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/xutong0258/LCFC/internal/auth"
	"github.com/xutong0258/LCFC/internal/services"
	"github.com/xutong0258/LCFC/pkg/upload"
	"github.com/xutong0258/LCFC/pkg/utils"
)

// AttachmentHandler 封装了附件相关的 HTTP 处理逻辑
type AttachmentHandler struct {
	service services.AttachmentService
}

// NewAttachmentHandler 创建一个新的 AttachmentHandler 实例
func NewAttachmentHandler(service services.AttachmentService) *AttachmentHandler {
	return &AttachmentHandler{service: service}
}

// UploadAttachment godoc
// @Summary 上传Issue附件（临时）
// @Description 上传临时附件，不需要issue_id；返回attachment_id，在创建Issue时通过attachmentIds关联
// @Tags Attachments
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "附件文件"
// @Success 201 {object} utils.SuccessResponse{data=models.UploadAttachmentResult} "上传成功，包含附件ID"
// @Failure 400 {object} utils.APIErrorResponse "文件类型不支持或大小超限"
// @Failure 500 {object} utils.APIErrorResponse "服务器内部错误"
// @Router /issues/attachments/upload [post]
func (h *AttachmentHandler) UploadAttachment(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		utils.RespondValidationError(c, "未找到上传文件: "+err.Error())
		return
	}

	result, err := h.service.UploadTemporary(fileHeader, auth.CurrentOperator(c))
	if err != nil {
		if errors.Is(err, upload.ErrExtensionNotAllowed) || errors.Is(err, upload.ErrFileTooLarge) {
			utils.RespondValidationError(c, err.Error())
		} else {
			utils.RespondInternalServerError(c, "上传附件失败", err.Error())
		}
		return
	}

	utils.RespondSuccess(c, http.StatusCreated, result, "上传附件成功")
}

// DeleteAttachment godoc
// @Summary 删除Issue附件
// @Description 删除附件记录并移除对应的物理文件（文件删除为尽力而为，不影响记录删除）
// @Tags Attachments
// @Produce json
// @Param attachmentId path int true "附件ID"
// @Success 200 {object} utils.SuccessResponse "删除附件成功"
// @Failure 404 {object} utils.APIErrorResponse "附件不存在"
// @Failure 500 {object} utils.APIErrorResponse "服务器内部错误"
// @Router /issues/attachments/{attachmentId} [delete]
func (h *AttachmentHandler) DeleteAttachment(c *gin.Context) {
	attachmentID, err := strconv.ParseInt(c.Param("attachmentId"), 10, 64)
	if err != nil {
		utils.RespondValidationError(c, "附件ID格式无效")
		return
	}

	if err := h.service.DeleteAttachment(attachmentID); err != nil {
		if errors.Is(err, services.ErrAttachmentNotFound) {
			utils.RespondNotFoundError(c, "附件")
		} else {
			utils.RespondInternalServerError(c, "删除附件失败", err.Error())
		}
		return
	}

	utils.RespondSuccess(c, http.StatusOK, nil, "删除附件成功")
}
