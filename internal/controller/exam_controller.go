package controller

import (
	"errors"
	"strconv"

	"exam_platform_backend/internal/service"
	"exam_platform_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// ExamController 教师端试卷管理
type ExamController struct {
	ExamService *service.ExamService
}

func NewExamController(examService *service.ExamService) *ExamController {
	return &ExamController{ExamService: examService}
}

// @Summary 创建试卷
// @Description 创建试卷及其章节、题目和选项,创建后默认未发布
// @Tags 试卷管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.ExamReq true "试卷信息"
// @Success 201 {object} util.Response
// @Router /api/exams [post]
func (c *ExamController) Create(ctx *gin.Context) {
	var req service.ExamReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	exam, err := c.ExamService.CreateExam(claims.UserID, req)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	util.Created(ctx, exam)
}

// @Summary 更新试卷
// @Description 更新试卷基本信息,若包含 sections 则整体替换试卷结构
// @Tags 试卷管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "试卷ID"
// @Param body body service.ExamReq true "更新内容"
// @Success 200 {object} util.Response
// @Router /api/exams/{id} [put]
func (c *ExamController) Update(ctx *gin.Context) {
	var req service.ExamReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	exam, err := c.ExamService.UpdateExam(ctx.Param("id"), req)
	if err != nil {
		if errors.Is(err, util.ErrExamNotFound) {
			util.NotFound(ctx)
		} else {
			util.BadRequest(ctx, err.Error())
		}
		return
	}

	util.Success(ctx, exam)
}

type PublishRequest struct {
	Publish *bool `json:"publish" binding:"required"`
}

// @Summary 发布或下线试卷
// @Description 发布前会校验试卷结构完整性
// @Tags 试卷管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "试卷ID"
// @Param body body PublishRequest true "发布状态"
// @Success 200 {object} util.Response
// @Router /api/exams/{id}/publish [post]
func (c *ExamController) Publish(ctx *gin.Context) {
	var req PublishRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	exam, err := c.ExamService.PublishExam(ctx.Param("id"), *req.Publish)
	if err != nil {
		if errors.Is(err, util.ErrExamNotFound) {
			util.NotFound(ctx)
		} else {
			util.BadRequest(ctx, err.Error())
		}
		return
	}

	util.Success(ctx, exam)
}

// @Summary 删除试卷
// @Tags 试卷管理
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "试卷ID"
// @Success 200 {object} util.Response
// @Router /api/exams/{id} [delete]
func (c *ExamController) Delete(ctx *gin.Context) {
	if err := c.ExamService.DeleteExam(ctx.Param("id")); err != nil {
		if errors.Is(err, util.ErrExamNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, nil)
}

// @Summary 试卷详情(含答案)
// @Tags 试卷管理
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "试卷ID"
// @Success 200 {object} util.Response
// @Router /api/exams/{id} [get]
func (c *ExamController) Get(ctx *gin.Context) {
	exam, err := c.ExamService.GetExam(ctx.Param("id"))
	if err != nil {
		if errors.Is(err, util.ErrExamNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, exam)
}

// @Summary 试卷列表
// @Tags 试卷管理
// @Produce json
// @Security ApiKeyAuth
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(10)
// @Success 200 {object} util.PageResponse
// @Router /api/exams [get]
func (c *ExamController) List(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "10"))

	rows, total, err := c.ExamService.ListExams(page, limit, false)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.SuccessPage(ctx, rows, total, page, limit)
}

// @Summary 试卷的作答记录列表
// @Tags 试卷管理
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "试卷ID"
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(20)
// @Success 200 {object} util.PageResponse
// @Router /api/exams/{id}/attempts [get]
func (c *ExamController) Attempts(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))

	attempts, total, err := c.ExamService.ListAttempts(ctx.Param("id"), page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.SuccessPage(ctx, attempts, total, page, limit)
}

// @Summary 试卷的成绩列表
// @Tags 试卷管理
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "试卷ID"
// @Success 200 {object} util.Response
// @Router /api/exams/{id}/results [get]
func (c *ExamController) Results(ctx *gin.Context) {
	results, err := c.ExamService.ListResults(ctx.Param("id"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, results)
}
