/*
 * @module api/controllers/recompute_controller
 * @description DQI重算控制器，提供手工触发重算与运行记录查询
 * @architecture MVC架构 - 控制器层
 * @documentReference dev_docs/dqi_requirements.md
 * @stateFlow HTTP请求处理流程；重算同步执行，响应返回完整运行记录
 * @rules 同一范围并发触发返回409；研究不存在返回404
 * @dependencies dqi-service/service/dqi, github.com/go-chi/render, github.com/spf13/cast
 * @refs service/dqi/recompute.go
 */

package controllers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/spf13/cast"

	"dqi-service/service"
	"dqi-service/service/dqi"
	"dqi-service/service/models"
)

// RecomputeController DQI重算控制器
type RecomputeController struct {
	dqiService *dqi.Service
}

// NewRecomputeController 创建重算控制器实例
func NewRecomputeController() *RecomputeController {
	return &RecomputeController{
		dqiService: service.GlobalDQIService,
	}
}

// RecomputeRequest 重算触发请求
type RecomputeRequest struct {
	StudyID string `json:"study_id"` // 为空表示全量重算
}

// TriggerRecompute 触发DQI重算
// @Summary 触发DQI重算
// @Description 同步执行指定研究（或全量）的DQI重算，返回运行记录
// @Tags DQI重算
// @Accept json
// @Produce json
// @Param request body RecomputeRequest false "重算范围"
// @Success 200 {object} APIResponse{data=models.RecomputeRun} "重算完成"
// @Failure 404 {object} APIResponse "研究不存在"
// @Failure 409 {object} APIResponse "该范围的重算正在执行中"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /recompute [post]
func (c *RecomputeController) TriggerRecompute(w http.ResponseWriter, r *http.Request) {
	var req RecomputeRequest
	if r.ContentLength > 0 {
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			render.JSON(w, r, BadRequestResponse("请求参数格式错误", err))
			return
		}
	}

	run, err := c.dqiService.Recompute(r.Context(), req.StudyID)
	if err != nil {
		if errors.Is(err, dqi.ErrAlreadyRunning) {
			render.JSON(w, r, ConflictResponse("该范围的DQI重算正在执行中", err))
			return
		}
		if errors.Is(err, dqi.ErrStudyNotFound) {
			render.JSON(w, r, NotFoundResponse("研究不存在", err))
			return
		}
		render.JSON(w, r, InternalErrorResponse("DQI重算失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("DQI重算完成", run))
}

// GetRecomputeRuns 获取重算运行记录列表
// @Summary 获取重算运行记录列表
// @Description 分页获取重算运行记录，按开始时间倒序
// @Tags DQI重算
// @Produce json
// @Param page query int false "页码" default(1)
// @Param size query int false "每页数量" default(10)
// @Param status query string false "运行状态" Enums(running,completed,completed_with_skips,failed)
// @Success 200 {object} PaginatedResponse{data=[]models.RecomputeRun} "获取成功"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /recompute/runs [get]
func (c *RecomputeController) GetRecomputeRuns(w http.ResponseWriter, r *http.Request) {
	page := cast.ToInt(r.URL.Query().Get("page"))
	if page <= 0 {
		page = 1
	}
	size := cast.ToInt(r.URL.Query().Get("size"))
	if size <= 0 {
		size = 10
	}

	query := service.DB.Model(&models.RecomputeRun{})
	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		render.JSON(w, r, InternalErrorResponse("查询运行记录总数失败", err))
		return
	}

	var runs []models.RecomputeRun
	if err := query.Order("start_time DESC").Offset((page - 1) * size).Limit(size).Find(&runs).Error; err != nil {
		render.JSON(w, r, InternalErrorResponse("查询运行记录失败", err))
		return
	}

	render.JSON(w, r, SuccessPaginatedResponse("获取运行记录成功", runs, total, page, size))
}

// GetRecomputeRun 获取单条重算运行记录
// @Summary 获取单条重算运行记录
// @Description 按运行ID查询重算运行记录详情
// @Tags DQI重算
// @Produce json
// @Param id path string true "运行ID"
// @Success 200 {object} APIResponse{data=models.RecomputeRun} "获取成功"
// @Failure 404 {object} APIResponse "运行记录不存在"
// @Router /recompute/runs/{id} [get]
func (c *RecomputeController) GetRecomputeRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var run models.RecomputeRun
	if err := service.DB.Where("id = ?", id).First(&run).Error; err != nil {
		render.JSON(w, r, NotFoundResponse("运行记录不存在", err))
		return
	}

	render.JSON(w, r, SuccessResponse("获取运行记录成功", run))
}
