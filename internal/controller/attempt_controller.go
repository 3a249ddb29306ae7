package controller

import (
	"errors"
	"strconv"

	"exam_platform_backend/internal/service"
	"exam_platform_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// AttemptController 学生端作答入口:开始/恢复作答、自动保存、提交与成绩查询
type AttemptController struct {
	AttemptService *service.AttemptService
	ExamService    *service.ExamService
}

func NewAttemptController(attemptService *service.AttemptService, examService *service.ExamService) *AttemptController {
	return &AttemptController{
		AttemptService: attemptService,
		ExamService:    examService,
	}
}

// @Summary 可参加的试卷列表
// @Description 仅返回已发布的试卷
// @Tags 作答
// @Produce json
// @Security ApiKeyAuth
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(10)
// @Success 200 {object} util.PageResponse
// @Router /api/exams/published [get]
func (c *AttemptController) PublishedExams(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "10"))

	rows, total, err := c.ExamService.ListExams(page, limit, true)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.SuccessPage(ctx, rows, total, page, limit)
}

// @Summary 开始或恢复作答
// @Description 已有进行中的作答则恢复,已交卷且未带 retake=true 则返回 409
// @Tags 作答
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "试卷ID"
// @Param retake query bool false "已交卷后是否开启新一次作答"
// @Success 200 {object} util.Response
// @Failure 409 {object} util.Response "已交卷或次数用尽"
// @Router /api/exams/{id}/attempts [post]
func (c *AttemptController) Start(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	retake := ctx.Query("retake") == "true"
	session, err := c.AttemptService.Resolve(ctx.Param("id"), claims.UserID, retake)
	if err != nil {
		c.writeAttemptError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{
		"state": session.Snapshot(),
		"exam":  service.SanitizeExamView(session.View()),
	})
}

// @Summary 作答会话快照
// @Description 返回剩余时间、已作答答案和答题卡状态
// @Tags 作答
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "作答ID"
// @Success 200 {object} util.Response
// @Router /api/attempts/{id} [get]
func (c *AttemptController) State(ctx *gin.Context) {
	session, err := c.session(ctx)
	if err != nil {
		return
	}
	util.Success(ctx, session.Snapshot())
}

type AnswerRequest struct {
	OptionID  string   `json:"optionId"`
	OptionIDs []string `json:"optionIds"`
	Text      string   `json:"text"`
}

// @Summary 保存单题答案
// @Description 内存同步生效,持久化异步完成;同一题后写覆盖先写
// @Tags 作答
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "作答ID"
// @Param questionId path string true "题目ID"
// @Param body body AnswerRequest true "答案内容"
// @Success 200 {object} util.Response
// @Router /api/attempts/{id}/answers/{questionId} [put]
func (c *AttemptController) SaveAnswer(ctx *gin.Context) {
	var req AnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	session, err := c.session(ctx)
	if err != nil {
		return
	}

	value := service.AnswerValue{
		OptionID:  req.OptionID,
		OptionIDs: req.OptionIDs,
		Text:      req.Text,
	}
	if err := session.SetAnswer(ctx.Param("questionId"), value); err != nil {
		c.writeAttemptError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"remaining": session.RemainingSeconds()})
}

// @Summary 标记题目已浏览
// @Tags 作答
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "作答ID"
// @Param questionId path string true "题目ID"
// @Success 200 {object} util.Response
// @Router /api/attempts/{id}/visited/{questionId} [post]
func (c *AttemptController) MarkVisited(ctx *gin.Context) {
	session, err := c.session(ctx)
	if err != nil {
		return
	}
	if err := session.MarkVisited(ctx.Param("questionId")); err != nil {
		c.writeAttemptError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary 交卷
// @Description 刷盘未保存答案、判分并落库;重复提交返回首次结果
// @Tags 作答
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "作答ID"
// @Success 200 {object} util.Response
// @Router /api/attempts/{id}/submit [post]
func (c *AttemptController) Submit(ctx *gin.Context) {
	session, err := c.session(ctx)
	if err != nil {
		return
	}

	result, sectionResults, err := session.Submit(service.SubmitReasonUser)
	if err != nil {
		c.writeAttemptError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{
		"result":   result,
		"sections": sectionResults,
	})
}

// @Summary 作答成绩
// @Tags 作答
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "作答ID"
// @Success 200 {object} util.Response
// @Router /api/attempts/{id}/result [get]
func (c *AttemptController) Result(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	result, err := c.AttemptService.Result(ctx.Param("id"), claims.UserID)
	if err != nil {
		c.writeAttemptError(ctx, err)
		return
	}

	util.Success(ctx, result)
}

// @Summary 作答实时推送
// @Description WebSocket:倒计时、保存确认、到时与交卷事件
// @Tags 作答
// @Security ApiKeyAuth
// @Param id path string true "作答ID"
// @Router /api/attempts/{id}/live [get]
func (c *AttemptController) Live(ctx *gin.Context) {
	session, err := c.session(ctx)
	if err != nil {
		return
	}
	service.ServeSessionWS(session, ctx.Writer, ctx.Request)
}

// session 取出当前请求对应的活动会话,出错时已写响应
func (c *AttemptController) session(ctx *gin.Context) (*service.ExamSession, error) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return nil, util.ErrPermissionDenied
	}

	session, err := c.AttemptService.Session(ctx.Param("id"), claims.UserID)
	if err != nil {
		c.writeAttemptError(ctx, err)
		return nil, err
	}
	return session, nil
}

// writeAttemptError 作答域错误到 HTTP 状态码的映射
func (c *AttemptController) writeAttemptError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrExamNotFound),
		errors.Is(err, util.ErrExamNotPublished),
		errors.Is(err, util.ErrAttemptNotFound),
		errors.Is(err, util.ErrQuestionNotFound),
		errors.Is(err, util.ErrResultNotFound):
		util.NotFound(ctx)
	case errors.Is(err, util.ErrAlreadySubmitted):
		util.Conflict(ctx, "该试卷已交卷,如需重考请带 retake=true")
	case errors.Is(err, util.ErrAttemptsExhausted):
		util.Conflict(ctx, "作答次数已用尽")
	case errors.Is(err, util.ErrAttemptSubmitted):
		util.Conflict(ctx, "该次作答已交卷")
	case errors.Is(err, util.ErrNotYourAttempt):
		util.Forbidden(ctx)
	case errors.Is(err, util.ErrInvalidAnswer):
		util.BadRequest(ctx, "答案格式与题型不匹配")
	default:
		util.LogInternalError(ctx, err)
	}
}
