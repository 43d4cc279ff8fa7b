/*
 * @module api/controllers/dqi_controller
 * @description DQI评分与Clean Patient状态查询控制器，集市层只读接口
 * @architecture MVC架构 - 控制器层
 * @documentReference dev_docs/dqi_requirements.md
 * @stateFlow HTTP请求处理流程；全部接口只读集市表，不触发计算
 * @rules 集市行不存在返回404，提示先执行重算
 * @dependencies dqi-service/service/models, github.com/go-chi/render, github.com/spf13/cast
 * @refs service/dqi/recompute.go
 */

package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/spf13/cast"

	"dqi-service/service"
	"dqi-service/service/models"
)

// DQIController DQI评分查询控制器
type DQIController struct{}

// NewDQIController 创建DQI查询控制器实例
func NewDQIController() *DQIController {
	return &DQIController{}
}

// GetStudyScores 获取全部研究DQI汇总
// @Summary 获取全部研究DQI汇总
// @Description 返回全部研究级DQI汇总行，按研究ID排序
// @Tags DQI查询
// @Produce json
// @Success 200 {object} APIResponse{data=[]models.DQIScoreStudy} "获取成功"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /dqi/studies [get]
func (c *DQIController) GetStudyScores(w http.ResponseWriter, r *http.Request) {
	var rows []models.DQIScoreStudy
	if err := service.DB.Order("study_id ASC").Find(&rows).Error; err != nil {
		render.JSON(w, r, InternalErrorResponse("查询研究DQI汇总失败", err))
		return
	}
	render.JSON(w, r, SuccessResponse("获取研究DQI汇总成功", rows))
}

// GetStudyScore 获取单个研究DQI汇总
// @Summary 获取单个研究DQI汇总
// @Description 按研究ID查询研究级DQI汇总行
// @Tags DQI查询
// @Produce json
// @Param study_id path string true "研究ID"
// @Success 200 {object} APIResponse{data=models.DQIScoreStudy} "获取成功"
// @Failure 404 {object} APIResponse "汇总行不存在"
// @Router /dqi/studies/{study_id} [get]
func (c *DQIController) GetStudyScore(w http.ResponseWriter, r *http.Request) {
	studyID := chi.URLParam(r, "study_id")

	var row models.DQIScoreStudy
	if err := service.DB.Where("study_id = ?", studyID).First(&row).Error; err != nil {
		render.JSON(w, r, NotFoundResponse("研究DQI汇总不存在，请先执行重算", err))
		return
	}
	render.JSON(w, r, SuccessResponse("获取研究DQI汇总成功", row))
}

// GetStudySiteScores 获取研究下全部中心DQI汇总
// @Summary 获取研究下全部中心DQI汇总
// @Description 按研究ID返回其全部中心级DQI汇总行
// @Tags DQI查询
// @Produce json
// @Param study_id path string true "研究ID"
// @Success 200 {object} APIResponse{data=[]models.DQIScoreSite} "获取成功"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /dqi/studies/{study_id}/sites [get]
func (c *DQIController) GetStudySiteScores(w http.ResponseWriter, r *http.Request) {
	studyID := chi.URLParam(r, "study_id")

	var rows []models.DQIScoreSite
	if err := service.DB.Where("study_id = ?", studyID).Order("site_id ASC").Find(&rows).Error; err != nil {
		render.JSON(w, r, InternalErrorResponse("查询中心DQI汇总失败", err))
		return
	}
	render.JSON(w, r, SuccessResponse("获取中心DQI汇总成功", rows))
}

// GetSiteScore 获取单个中心DQI汇总
// @Summary 获取单个中心DQI汇总
// @Description 按中心ID查询中心级DQI汇总行
// @Tags DQI查询
// @Produce json
// @Param site_id path string true "中心ID"
// @Success 200 {object} APIResponse{data=models.DQIScoreSite} "获取成功"
// @Failure 404 {object} APIResponse "汇总行不存在"
// @Router /dqi/sites/{site_id} [get]
func (c *DQIController) GetSiteScore(w http.ResponseWriter, r *http.Request) {
	siteID := chi.URLParam(r, "site_id")

	var row models.DQIScoreSite
	if err := service.DB.Where("site_id = ?", siteID).First(&row).Error; err != nil {
		render.JSON(w, r, NotFoundResponse("中心DQI汇总不存在，请先执行重算", err))
		return
	}
	render.JSON(w, r, SuccessResponse("获取中心DQI汇总成功", row))
}

// GetSubjectScores 获取受试者DQI评分列表
// @Summary 获取受试者DQI评分列表
// @Description 分页获取受试者级DQI评分，支持按研究、中心、风险等级过滤
// @Tags DQI查询
// @Produce json
// @Param study_id query string false "研究ID"
// @Param site_id query string false "中心ID"
// @Param risk_band query string false "风险等级" Enums(Low,Medium,High,Critical)
// @Param page query int false "页码" default(1)
// @Param size query int false "每页数量" default(10)
// @Success 200 {object} PaginatedResponse{data=[]models.DQIScoreSubject} "获取成功"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /dqi/subjects [get]
func (c *DQIController) GetSubjectScores(w http.ResponseWriter, r *http.Request) {
	page := cast.ToInt(r.URL.Query().Get("page"))
	if page <= 0 {
		page = 1
	}
	size := cast.ToInt(r.URL.Query().Get("size"))
	if size <= 0 {
		size = 10
	}

	query := service.DB.Model(&models.DQIScoreSubject{})
	if studyID := r.URL.Query().Get("study_id"); studyID != "" {
		query = query.Where("study_id = ?", studyID)
	}
	if siteID := r.URL.Query().Get("site_id"); siteID != "" {
		query = query.Where("site_id = ?", siteID)
	}
	if riskBand := r.URL.Query().Get("risk_band"); riskBand != "" {
		query = query.Where("risk_band = ?", riskBand)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		render.JSON(w, r, InternalErrorResponse("查询受试者评分总数失败", err))
		return
	}

	var rows []models.DQIScoreSubject
	if err := query.Order("composite_dqi_score DESC").Offset((page - 1) * size).Limit(size).Find(&rows).Error; err != nil {
		render.JSON(w, r, InternalErrorResponse("查询受试者DQI评分失败", err))
		return
	}

	render.JSON(w, r, SuccessPaginatedResponse("获取受试者DQI评分成功", rows, total, page, size))
}

// GetSubjectScore 获取单个受试者DQI评分
// @Summary 获取单个受试者DQI评分
// @Description 按受试者ID查询受试者级DQI评分行
// @Tags DQI查询
// @Produce json
// @Param subject_id path string true "受试者ID"
// @Success 200 {object} APIResponse{data=models.DQIScoreSubject} "获取成功"
// @Failure 404 {object} APIResponse "评分行不存在"
// @Router /dqi/subjects/{subject_id} [get]
func (c *DQIController) GetSubjectScore(w http.ResponseWriter, r *http.Request) {
	subjectID := chi.URLParam(r, "subject_id")

	var row models.DQIScoreSubject
	if err := service.DB.Where("subject_id = ?", subjectID).First(&row).Error; err != nil {
		render.JSON(w, r, NotFoundResponse("受试者DQI评分不存在，请先执行重算", err))
		return
	}
	render.JSON(w, r, SuccessResponse("获取受试者DQI评分成功", row))
}

// GetCleanStatuses 获取Clean Patient状态列表
// @Summary 获取Clean Patient状态列表
// @Description 分页获取Clean Patient状态，支持按研究、中心、是否clean过滤
// @Tags Clean状态查询
// @Produce json
// @Param study_id query string false "研究ID"
// @Param site_id query string false "中心ID"
// @Param is_clean query bool false "是否clean"
// @Param page query int false "页码" default(1)
// @Param size query int false "每页数量" default(10)
// @Success 200 {object} PaginatedResponse{data=[]models.CleanPatientStatus} "获取成功"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /clean-status [get]
func (c *DQIController) GetCleanStatuses(w http.ResponseWriter, r *http.Request) {
	page := cast.ToInt(r.URL.Query().Get("page"))
	if page <= 0 {
		page = 1
	}
	size := cast.ToInt(r.URL.Query().Get("size"))
	if size <= 0 {
		size = 10
	}

	query := service.DB.Model(&models.CleanPatientStatus{})
	if studyID := r.URL.Query().Get("study_id"); studyID != "" {
		query = query.Where("study_id = ?", studyID)
	}
	if siteID := r.URL.Query().Get("site_id"); siteID != "" {
		query = query.Where("site_id = ?", siteID)
	}
	if isClean := r.URL.Query().Get("is_clean"); isClean != "" {
		query = query.Where("is_clean = ?", cast.ToBool(isClean))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		render.JSON(w, r, InternalErrorResponse("查询Clean状态总数失败", err))
		return
	}

	var rows []models.CleanPatientStatus
	if err := query.Order("subject_id ASC").Offset((page - 1) * size).Limit(size).Find(&rows).Error; err != nil {
		render.JSON(w, r, InternalErrorResponse("查询Clean状态失败", err))
		return
	}

	render.JSON(w, r, SuccessPaginatedResponse("获取Clean状态成功", rows, total, page, size))
}

// GetCleanStatus 获取单个受试者Clean Patient状态
// @Summary 获取单个受试者Clean Patient状态
// @Description 按受试者ID查询Clean Patient状态行（含有序阻断项列表）
// @Tags Clean状态查询
// @Produce json
// @Param subject_id path string true "受试者ID"
// @Success 200 {object} APIResponse{data=models.CleanPatientStatus} "获取成功"
// @Failure 404 {object} APIResponse "状态行不存在"
// @Router /clean-status/{subject_id} [get]
func (c *DQIController) GetCleanStatus(w http.ResponseWriter, r *http.Request) {
	subjectID := chi.URLParam(r, "subject_id")

	var row models.CleanPatientStatus
	if err := service.DB.Where("subject_id = ?", subjectID).First(&row).Error; err != nil {
		render.JSON(w, r, NotFoundResponse("Clean状态不存在，请先执行重算", err))
		return
	}
	render.JSON(w, r, SuccessResponse("获取Clean状态成功", row))
}
