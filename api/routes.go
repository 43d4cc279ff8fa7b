/*
 * @module api/routes
 * @description API路由配置模块，负责初始化和配置所有HTTP路由
 * @architecture RESTful API架构
 * @documentReference dev_docs/dqi_requirements.md
 * @stateFlow 无状态HTTP请求处理
 * @rules 遵循RESTful API设计规范，统一错误处理和响应格式
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/cors, github.com/go-chi/render
 * @refs dev_docs/model.md
 */

package api

import (
	"dqi-service/api/controllers"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
)

// InitRoute 初始化所有API路由
func InitRoute(r *chi.Mux) {
	// 基础中间件
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	// CORS配置
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// 健康检查
	healthController := controllers.NewHealthController()
	r.Get("/health", healthController.Health)
	r.Get("/ready", healthController.Ready)

	// DQI重算
	recomputeController := controllers.NewRecomputeController()
	r.Route("/recompute", func(r chi.Router) {
		r.Post("/", recomputeController.TriggerRecompute)
		r.Get("/runs", recomputeController.GetRecomputeRuns)
		r.Get("/runs/{id}", recomputeController.GetRecomputeRun)
	})

	// 权重配置管理
	weightController := controllers.NewWeightController()
	r.Route("/weights", func(r chi.Router) {
		r.Get("/", weightController.GetWeights)
		r.Put("/{metric_name}", weightController.UpdateWeight)
	})

	// DQI评分查询
	dqiController := controllers.NewDQIController()
	r.Route("/dqi", func(r chi.Router) {
		r.Get("/studies", dqiController.GetStudyScores)
		r.Get("/studies/{study_id}", dqiController.GetStudyScore)
		r.Get("/studies/{study_id}/sites", dqiController.GetStudySiteScores)
		r.Get("/sites/{site_id}", dqiController.GetSiteScore)
		r.Get("/subjects", dqiController.GetSubjectScores)
		r.Get("/subjects/{subject_id}", dqiController.GetSubjectScore)
	})

	// Clean Patient状态查询
	r.Route("/clean-status", func(r chi.Router) {
		r.Get("/", dqiController.GetCleanStatuses)
		r.Get("/{subject_id}", dqiController.GetCleanStatus)
	})
}
