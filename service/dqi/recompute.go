/*
 * @module service/dqi/recompute
 * @description DQI重算编排器：加载权重 -> 逐受试者评分与Clean状态 -> 中心/研究汇总，全程记录运行记录
 * @architecture 分层架构 - 服务层
 * @documentReference dev_docs/dqi_requirements.md
 * @stateFlow load_weights -> score_subjects -> rollup_sites_and_studies；每个研究一个事务
 * @rules 配置错误在任何写入前中止；单受试者错误记录后跳过；同一研究的重算由分布式锁串行化（全量重算逐研究取锁）；输出对同一输入幂等（last_computed除外）
 * @dependencies gorm.io/gorm, dqi-service/service/distributed_lock, dqi-service/service/event
 * @refs api/controllers/recompute_controller.go, service/scheduler/recompute_scheduler.go
 */

package dqi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"dqi-service/service/distributed_lock"
	"dqi-service/service/event"
	"dqi-service/service/meta"
	"dqi-service/service/models"
)

// 运行状态
const (
	RunStatusRunning            = "running"
	RunStatusCompleted          = "completed"
	RunStatusCompletedWithSkips = "completed_with_skips"
	RunStatusFailed             = "failed"
)

// 运行阶段
const (
	PhaseLoadWeights = "load_weights"
	PhaseScore       = "score_subjects"
	PhaseRollup      = "rollup_sites_and_studies"
)

// 重算锁TTL，超过后锁自动过期，防止实例崩溃导致范围永久锁死
const recomputeLockTTL = 30 * time.Minute

// ErrAlreadyRunning 同一范围的重算正在其他实例上执行
var ErrAlreadyRunning = errors.New("该范围的DQI重算正在执行中")

// ErrStudyNotFound 指定的研究范围在研究维度中不存在
var ErrStudyNotFound = errors.New("指定的研究不存在")

// Service DQI重算服务
type Service struct {
	db        *gorm.DB
	executor  *distributed_lock.LockExecutor
	publisher event.Publisher
}

// NewService 创建重算服务
func NewService(db *gorm.DB, lock distributed_lock.DistributedLock, publisher event.Publisher) *Service {
	return &Service{
		db:        db,
		executor:  distributed_lock.NewLockExecutor(lock),
		publisher: publisher,
	}
}

// Recompute 执行一次DQI重算
// studyScope为空表示全量重算，否则仅重算指定研究
// 锁粒度为研究：范围重算在入口处锁定该研究，撞锁返回ErrAlreadyRunning；
// 全量重算在入口处锁定"all"防重复调度，管道内再逐研究取锁与范围重算互斥
func (s *Service) Recompute(ctx context.Context, studyScope string) (*models.RecomputeRun, error) {
	lockKey := studyScope
	if lockKey == "" {
		lockKey = "all"
	}

	var run *models.RecomputeRun
	executed, err := s.executor.ExecuteWithLock(ctx, lockKey, recomputeLockTTL, func() error {
		var runErr error
		run, runErr = s.runPipeline(ctx, studyScope)
		return runErr
	})
	if err != nil {
		return run, err
	}
	if !executed {
		return nil, ErrAlreadyRunning
	}
	return run, nil
}

// runPipeline 在持锁状态下执行三阶段管道
func (s *Service) runPipeline(ctx context.Context, studyScope string) (*models.RecomputeRun, error) {
	startTime := time.Now().UTC()
	run := &models.RecomputeRun{
		StudyScope: studyScope,
		Status:     RunStatusRunning,
		Phase:      PhaseLoadWeights,
		StartTime:  startTime,
	}
	if err := s.db.Create(run).Error; err != nil {
		return nil, fmt.Errorf("创建重算运行记录失败: %w", err)
	}

	slog.Info("DQI重算开始", "run_id", run.ID, "study_scope", studyScope)

	// === 阶段1：加载权重快照 ===
	weights, err := LoadWeightSnapshot(s.db)
	if err != nil {
		return run, s.failRun(run, err)
	}

	studies, err := s.resolveStudies(studyScope)
	if err != nil {
		return run, s.failRun(run, err)
	}

	// === 阶段2+3：逐研究评分与汇总，每个研究一个事务 ===
	// 范围重算在入口处已持有该研究的锁；全量重算在处理每个研究前
	// 单独取该研究的锁，保证与同研究的范围重算互斥，撞锁的研究跳过
	loader := NewFactLoader(s.db)
	for _, study := range studies {
		if err := ctx.Err(); err != nil {
			return run, s.failRun(run, fmt.Errorf("重算被取消: %w", err))
		}
		if studyScope != "" {
			if err := s.recomputeStudy(loader, study, weights, startTime, run); err != nil {
				return run, s.failRun(run, fmt.Errorf("研究 %s 重算失败: %w", study.StudyID, err))
			}
			run.StudiesProcessed++
			continue
		}
		executed, err := s.executor.ExecuteWithLock(ctx, study.StudyID, recomputeLockTTL, func() error {
			return s.recomputeStudy(loader, study, weights, startTime, run)
		})
		if err != nil {
			return run, s.failRun(run, fmt.Errorf("研究 %s 重算失败: %w", study.StudyID, err))
		}
		if !executed {
			slog.Warn("研究正在被其他重算处理，跳过", "run_id", run.ID, "study_id", study.StudyID)
			run.StudiesSkipped++
			run.SkippedStudies = append(run.SkippedStudies, models.JSONB{
				"study_id": study.StudyID,
				"cause":    "该研究的重算正在其他运行中执行",
			})
			continue
		}
		run.StudiesProcessed++
	}

	// === 收尾：更新运行记录并发布完成事件 ===
	run.Status = RunStatusCompleted
	if run.SubjectsSkipped > 0 || run.StudiesSkipped > 0 {
		run.Status = RunStatusCompletedWithSkips
	}
	endTime := time.Now().UTC()
	run.EndTime = &endTime
	run.Duration = endTime.Sub(startTime).Milliseconds()
	if err := s.db.Save(run).Error; err != nil {
		return run, fmt.Errorf("更新重算运行记录失败: %w", err)
	}

	recomputeRunsTotal.WithLabelValues(run.Status).Inc()
	recomputeDuration.Observe(endTime.Sub(startTime).Seconds())

	if err := s.publisher.PublishRecomputeCompleted(ctx, &event.RecomputeCompletedEvent{
		RunID:             run.ID,
		StudyScope:        studyScope,
		Status:            run.Status,
		StudiesProcessed:  run.StudiesProcessed,
		StudiesSkipped:    run.StudiesSkipped,
		SubjectsProcessed: run.SubjectsProcessed,
		SubjectsSkipped:   run.SubjectsSkipped,
		CompletedAt:       endTime,
	}); err != nil {
		// 事件发布失败不回滚，集市行已落库
		slog.Error("发布重算完成事件失败", "run_id", run.ID, "error", err)
	}

	slog.Info("DQI重算完成",
		"run_id", run.ID,
		"status", run.Status,
		"studies", run.StudiesProcessed,
		"subjects", run.SubjectsProcessed,
		"skipped", run.SubjectsSkipped,
		"duration_ms", run.Duration)
	return run, nil
}

// resolveStudies 解析重算范围对应的研究列表
func (s *Service) resolveStudies(studyScope string) ([]models.Study, error) {
	var studies []models.Study
	query := s.db.Order("study_id ASC")
	if studyScope != "" {
		query = query.Where("study_id = ?", studyScope)
	}
	if err := query.Find(&studies).Error; err != nil {
		return nil, fmt.Errorf("查询研究维度失败: %w", err)
	}
	if studyScope != "" && len(studies) == 0 {
		return nil, fmt.Errorf("研究 %s: %w", studyScope, ErrStudyNotFound)
	}
	return studies, nil
}

// recomputeStudy 重算单个研究：受试者评分、Clean状态、中心与研究汇总，整体一个事务
func (s *Service) recomputeStudy(loader *FactLoader, study models.Study, weights map[string]float64, snapshotTime time.Time, run *models.RecomputeRun) error {
	facts, err := loader.LoadStudyFacts(study, snapshotTime)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		run.Phase = PhaseScore

		// 本次运行计算出的集市行，汇总阶段直接复用，不回查数据库
		dqiRows := make(map[string]*models.DQIScoreSubject, len(facts.Subjects))
		cleanRows := make(map[string]*models.CleanPatientStatus, len(facts.Subjects))
		subjectsBySite := make(map[string][]string)

		for _, subject := range facts.Subjects {
			subjectsBySite[subject.SiteID] = append(subjectsBySite[subject.SiteID], subject.SubjectID)

			sf := facts.BySubjct[subject.SubjectID]
			scoreRow, cleanRow, err := scoreSubject(sf, weights)
			if err != nil {
				// 单受试者数据畸形：记录后跳过，不阻断整批
				var sce *SubjectComputeError
				if errors.As(err, &sce) {
					slog.Warn("受试者评分失败，跳过", "subject_id", sce.SubjectID, "cause", sce.Cause)
					run.SubjectsSkipped++
					run.SkippedSubjects = append(run.SkippedSubjects, models.JSONB{
						"subject_id": sce.SubjectID,
						"cause":      sce.Cause,
					})
					subjectsSkippedTotal.Inc()
					continue
				}
				return err
			}

			if err := UpsertSubjectScore(tx, scoreRow); err != nil {
				return err
			}
			if err := UpsertCleanStatus(tx, cleanRow); err != nil {
				return err
			}
			dqiRows[subject.SubjectID] = scoreRow
			cleanRows[subject.SubjectID] = cleanRow
			run.SubjectsProcessed++
			subjectsProcessedTotal.Inc()
		}

		run.Phase = PhaseRollup
		siteRows := make([]*models.DQIScoreSite, 0, len(facts.Sites))
		for i := range facts.Sites {
			site := &facts.Sites[i]
			siteRow, inconsistency := RollupSite(site, subjectsBySite[site.SiteID], dqiRows, cleanRows, snapshotTime)
			if inconsistency != nil {
				slog.Warn("中心汇总不一致", "site_id", site.SiteID, "detail", inconsistency.Error())
			}
			if err := UpsertSiteScore(tx, siteRow); err != nil {
				return err
			}
			siteRows = append(siteRows, siteRow)
			run.SitesProcessed++
		}

		studyRow := RollupStudy(&facts.Study, siteRows, snapshotTime)
		return UpsertStudyScore(tx, studyRow)
	})
}

// scoreSubject 计算单个受试者的DQI评分行与Clean状态行
func scoreSubject(f *SubjectFacts, weights map[string]float64) (*models.DQIScoreSubject, *models.CleanPatientStatus, error) {
	scores, err := ExtractAll(f)
	if err != nil {
		return nil, nil, err
	}
	composite, riskBand := ComputeComposite(scores, weights)

	cleanRow, err := EvaluateCleanStatus(f)
	if err != nil {
		return nil, nil, err
	}

	scoreRow := &models.DQIScoreSubject{
		SubjectID:             f.SubjectID,
		StudyID:               f.StudyID,
		SiteID:                f.SiteID,
		SAEUnresolvedScore:    scores[meta.MetricSAEUnresolved],
		MissingVisitsScore:    scores[meta.MetricMissingVisits],
		MissingPagesScore:     scores[meta.MetricMissingPages],
		OpenQueriesScore:      scores[meta.MetricOpenQueries],
		OverdueQueriesScore:   scores[meta.MetricOverdueQueries],
		NonConformantScore:    scores[meta.MetricNonConformant],
		SDVIncompleteScore:    scores[meta.MetricSDVIncomplete],
		UnsignedCasebookScore: scores[meta.MetricUnsignedCasebooks],
		LabIssuesScore:        scores[meta.MetricLabIssues],
		CodingIssuesScore:     scores[meta.MetricCodingIssues],
		EDRRIssuesScore:       scores[meta.MetricEDRRIssues],
		CompositeDQIScore:     composite,
		RiskBand:              riskBand,
		LastComputed:          f.SnapshotTime,
	}
	return scoreRow, cleanRow, nil
}

// failRun 将运行标记为失败并落库，返回原始错误
func (s *Service) failRun(run *models.RecomputeRun, cause error) error {
	run.Status = RunStatusFailed
	run.ErrorMessage = cause.Error()
	endTime := time.Now().UTC()
	run.EndTime = &endTime
	run.Duration = endTime.Sub(run.StartTime).Milliseconds()
	if err := s.db.Save(run).Error; err != nil {
		slog.Error("保存失败的重算运行记录失败", "run_id", run.ID, "error", err)
	}
	recomputeRunsTotal.WithLabelValues(RunStatusFailed).Inc()
	slog.Error("DQI重算失败", "run_id", run.ID, "error", cause)
	return cause
}
