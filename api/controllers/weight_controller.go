/*
 * @module api/controllers/weight_controller
 * @description DQI权重配置控制器，提供权重查询与调整
 * @architecture MVC架构 - 控制器层
 * @documentReference dev_docs/dqi_requirements.md
 * @stateFlow HTTP请求处理流程；权重调整在下一次重算生效
 * @rules 指标名必须属于固定指标集；权重必须在[0,1]区间内
 * @dependencies dqi-service/service/meta, dqi-service/service/models, github.com/go-chi/render
 * @refs service/dqi/weights.go
 */

package controllers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"dqi-service/service"
	"dqi-service/service/meta"
	"dqi-service/service/models"
)

// WeightController DQI权重配置控制器
type WeightController struct{}

// NewWeightController 创建权重控制器实例
func NewWeightController() *WeightController {
	return &WeightController{}
}

// UpdateWeightRequest 权重调整请求
type UpdateWeightRequest struct {
	Weight      *float64 `json:"weight"`
	Description *string  `json:"description"`
	IsActive    *bool    `json:"is_active"`
}

// GetWeights 获取全部权重配置
// @Summary 获取全部权重配置
// @Description 按指标名排序返回全部DQI权重配置
// @Tags 权重配置
// @Produce json
// @Success 200 {object} APIResponse{data=[]models.DQIWeightConfig} "获取成功"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /weights [get]
func (c *WeightController) GetWeights(w http.ResponseWriter, r *http.Request) {
	var configs []models.DQIWeightConfig
	if err := service.DB.Order("metric_name ASC").Find(&configs).Error; err != nil {
		render.JSON(w, r, InternalErrorResponse("查询权重配置失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("获取权重配置成功", configs))
}

// UpdateWeight 调整指标权重
// @Summary 调整指标权重
// @Description 按指标名调整权重值、描述或启停状态，下一次重算生效
// @Tags 权重配置
// @Accept json
// @Produce json
// @Param metric_name path string true "指标名"
// @Param request body UpdateWeightRequest true "权重调整内容"
// @Success 200 {object} APIResponse{data=models.DQIWeightConfig} "调整成功"
// @Failure 400 {object} APIResponse "未知指标或非法权重"
// @Failure 404 {object} APIResponse "权重配置不存在"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /weights/{metric_name} [put]
func (c *WeightController) UpdateWeight(w http.ResponseWriter, r *http.Request) {
	metricName := chi.URLParam(r, "metric_name")
	if !meta.IsKnownMetric(metricName) {
		render.JSON(w, r, BadRequestResponse("未知指标", fmt.Errorf("指标 %s 不在固定指标集内", metricName)))
		return
	}

	var req UpdateWeightRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.JSON(w, r, BadRequestResponse("请求参数格式错误", err))
		return
	}
	if req.Weight != nil {
		if err := meta.ValidateWeight(*req.Weight); err != nil {
			render.JSON(w, r, BadRequestResponse("权重超出允许区间", err))
			return
		}
	}

	var config models.DQIWeightConfig
	if err := service.DB.Where("metric_name = ?", metricName).First(&config).Error; err != nil {
		render.JSON(w, r, NotFoundResponse("权重配置不存在", err))
		return
	}

	if req.Weight != nil {
		config.Weight = *req.Weight
	}
	if req.Description != nil {
		config.Description = *req.Description
	}
	if req.IsActive != nil {
		config.IsActive = *req.IsActive
	}

	if err := service.DB.Save(&config).Error; err != nil {
		render.JSON(w, r, InternalErrorResponse("保存权重配置失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("权重调整成功", config))
}
