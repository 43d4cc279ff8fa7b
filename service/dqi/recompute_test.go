/*
 * @module service/dqi/recompute_test
 * @description 重算编排器集成测试（sqlite内存库），覆盖三阶段管道、幂等性、配置错误、局部跳过与并发锁
 * @architecture 测试层 - 服务集成测试
 * @documentReference dev_docs/test_plan.md
 * @stateFlow 工厂造数 -> 执行重算 -> 断言集市行与运行记录
 * @rules 配置错误在任何写入前中止；单受试者错误跳过不阻断；重复运行输出一致
 * @dependencies testing, testify, dqi-service/testutil
 * @refs recompute.go
 */

package dqi

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"dqi-service/service/distributed_lock"
	"dqi-service/service/event"
	"dqi-service/service/models"
	"dqi-service/testutil"
)

// RecomputeTestSuite 重算编排器测试套件
type RecomputeTestSuite struct {
	suite.Suite
	testDB  *testutil.TestDB
	factory *testutil.TestDataFactory
	lock    *distributed_lock.LocalLock
	service *Service
}

// SetupSuite 设置测试套件
func (s *RecomputeTestSuite) SetupSuite() {
	s.testDB = testutil.NewTestDB()
	s.factory = testutil.NewTestDataFactory(s.testDB.DB)
	s.lock = distributed_lock.NewLocalLock()
	s.service = NewService(s.testDB.DB, s.lock, event.NoopPublisher{})
}

// TearDownSuite 清理测试套件
func (s *RecomputeTestSuite) TearDownSuite() {
	s.testDB.Close()
}

// SetupTest 设置每个测试
func (s *RecomputeTestSuite) SetupTest() {
	s.testDB.CleanDB()
}

func (s *RecomputeTestSuite) TestFullPipeline() {
	s.factory.SeedDefaultWeights()
	study := s.factory.CreateStudy()
	site := s.factory.CreateSite(study.StudyID)
	cleanSubject := s.factory.CreateSubject(study.StudyID, site.SiteID)
	dirtySubject := s.factory.CreateSubject(study.StudyID, site.SiteID)

	// 脏受试者：2条未决质询 + 1个缺失访视
	s.factory.CreateQueryEvent(study.StudyID, site.SiteID, dirtySubject.SubjectID)
	s.factory.CreateQueryEvent(study.StudyID, site.SiteID, dirtySubject.SubjectID)
	s.factory.CreateMissingVisit(study.StudyID, site.SiteID, dirtySubject.SubjectID)

	run, err := s.service.Recompute(context.Background(), study.StudyID)
	s.Require().NoError(err)
	s.Equal(RunStatusCompleted, run.Status)
	s.Equal(1, run.StudiesProcessed)
	s.Equal(1, run.SitesProcessed)
	s.Equal(2, run.SubjectsProcessed)
	s.Equal(0, run.SubjectsSkipped)
	s.NotNil(run.EndTime)

	// 脏受试者：missing_visits=10分权重0.15，open_queries=6分权重0.15，
	// 激活权重之和1.10 -> composite = (10*0.15 + 6*0.15) / 1.10 = 2.18
	var dirtyScore models.DQIScoreSubject
	s.Require().NoError(s.testDB.DB.Where("subject_id = ?", dirtySubject.SubjectID).First(&dirtyScore).Error)
	s.Equal(10.0, dirtyScore.MissingVisitsScore)
	s.Equal(6.0, dirtyScore.OpenQueriesScore)
	s.Equal(2.18, dirtyScore.CompositeDQIScore)
	s.Equal(models.RiskBandLow, dirtyScore.RiskBand)

	var cleanScore models.DQIScoreSubject
	s.Require().NoError(s.testDB.DB.Where("subject_id = ?", cleanSubject.SubjectID).First(&cleanScore).Error)
	s.Equal(0.0, cleanScore.CompositeDQIScore)

	// Clean状态
	var dirtyClean models.CleanPatientStatus
	s.Require().NoError(s.testDB.DB.Where("subject_id = ?", dirtySubject.SubjectID).First(&dirtyClean).Error)
	s.False(dirtyClean.IsClean)
	s.Len(dirtyClean.Blockers, 2)

	var cleanClean models.CleanPatientStatus
	s.Require().NoError(s.testDB.DB.Where("subject_id = ?", cleanSubject.SubjectID).First(&cleanClean).Error)
	s.True(cleanClean.IsClean)

	// 中心汇总
	var siteRow models.DQIScoreSite
	s.Require().NoError(s.testDB.DB.Where("site_id = ?", site.SiteID).First(&siteRow).Error)
	s.Equal(1.09, siteRow.AvgDQIScore)
	s.Equal(0.0, siteRow.MinDQIScore)
	s.Equal(2.18, siteRow.MaxDQIScore)
	s.Equal(2, siteRow.TotalSubjects)
	s.Equal(1, siteRow.CleanSubjects)
	s.Equal(50.0, siteRow.CleanPercentage)

	// 研究汇总
	var studyRow models.DQIScoreStudy
	s.Require().NoError(s.testDB.DB.Where("study_id = ?", study.StudyID).First(&studyRow).Error)
	s.Equal(1.09, studyRow.AvgDQIScore)
	s.Equal(1, studyRow.TotalSites)
	s.Equal(2, studyRow.TotalSubjects)
	s.Equal(models.ReadinessInProgress, studyRow.ReadinessStatus)
}

func (s *RecomputeTestSuite) TestIdempotentRerun() {
	s.factory.SeedDefaultWeights()
	study := s.factory.CreateStudy()
	site := s.factory.CreateSite(study.StudyID)
	subject := s.factory.CreateSubject(study.StudyID, site.SiteID)
	s.factory.CreateQueryEvent(study.StudyID, site.SiteID, subject.SubjectID)

	_, err := s.service.Recompute(context.Background(), study.StudyID)
	s.Require().NoError(err)

	var first models.DQIScoreSubject
	s.Require().NoError(s.testDB.DB.Where("subject_id = ?", subject.SubjectID).First(&first).Error)

	_, err = s.service.Recompute(context.Background(), study.StudyID)
	s.Require().NoError(err)

	// 重复运行整行替换而非追加，主键与评分保持稳定
	var count int64
	s.testDB.DB.Model(&models.DQIScoreSubject{}).Where("subject_id = ?", subject.SubjectID).Count(&count)
	s.Equal(int64(1), count)

	var second models.DQIScoreSubject
	s.Require().NoError(s.testDB.DB.Where("subject_id = ?", subject.SubjectID).First(&second).Error)
	s.Equal(first.DQISubjectID, second.DQISubjectID)
	s.Equal(first.CompositeDQIScore, second.CompositeDQIScore)

	s.testDB.DB.Model(&models.CleanPatientStatus{}).Where("subject_id = ?", subject.SubjectID).Count(&count)
	s.Equal(int64(1), count)
}

func (s *RecomputeTestSuite) TestNoActiveWeightsFailsBeforeWrites() {
	study := s.factory.CreateStudy()
	site := s.factory.CreateSite(study.StudyID)
	s.factory.CreateSubject(study.StudyID, site.SiteID)

	run, err := s.service.Recompute(context.Background(), study.StudyID)
	s.Require().Error(err)

	var ce *ConfigError
	s.ErrorAs(err, &ce)
	s.Equal(RunStatusFailed, run.Status)
	s.NotEmpty(run.ErrorMessage)

	// 配置错误在任何集市写入之前中止
	var count int64
	s.testDB.DB.Model(&models.DQIScoreSubject{}).Count(&count)
	s.Equal(int64(0), count)
}

func (s *RecomputeTestSuite) TestMalformedSubjectSkipped() {
	s.factory.SeedDefaultWeights()
	study := s.factory.CreateStudy()
	site := s.factory.CreateSite(study.StudyID)

	for i := 0; i < 4; i++ {
		s.factory.CreateSubject(study.StudyID, site.SiteID)
	}
	bad := s.factory.CreateSubject(study.StudyID, site.SiteID)
	// 畸形事实：已核查记录数超过应核查记录数
	s.factory.CreateSDVStatus(study.StudyID, site.SiteID, bad.SubjectID, func(sdv *models.SDVStatus) {
		sdv.ExpectedRecords = 5
		sdv.VerifiedRecords = 9
	})

	run, err := s.service.Recompute(context.Background(), study.StudyID)
	s.Require().NoError(err)

	s.Equal(RunStatusCompletedWithSkips, run.Status)
	s.Equal(4, run.SubjectsProcessed)
	s.Equal(1, run.SubjectsSkipped)
	s.Require().Len(run.SkippedSubjects, 1)
	s.Equal(bad.SubjectID, run.SkippedSubjects[0]["subject_id"])

	// 被跳过的受试者没有集市行
	var count int64
	s.testDB.DB.Model(&models.DQIScoreSubject{}).Where("subject_id = ?", bad.SubjectID).Count(&count)
	s.Equal(int64(0), count)

	// 其余受试者正常评分；中心总数包含被跳过者
	var siteRow models.DQIScoreSite
	s.Require().NoError(s.testDB.DB.Where("site_id = ?", site.SiteID).First(&siteRow).Error)
	s.Equal(5, siteRow.TotalSubjects)
	s.Equal(4, siteRow.CleanSubjects)
	s.Equal(80.0, siteRow.CleanPercentage)
}

func (s *RecomputeTestSuite) TestUnknownStudyScope() {
	s.factory.SeedDefaultWeights()

	run, err := s.service.Recompute(context.Background(), "STUDY-DOES-NOT-EXIST")
	s.Require().Error(err)
	s.ErrorIs(err, ErrStudyNotFound)
	s.Equal(RunStatusFailed, run.Status)
}

func (s *RecomputeTestSuite) TestConcurrentRunRejected() {
	s.factory.SeedDefaultWeights()
	study := s.factory.CreateStudy()

	// 预先占住该研究的锁，模拟其他运行（范围或全量）正在处理该研究
	locked, err := s.lock.TryLock(context.Background(), study.StudyID, time.Minute)
	s.Require().NoError(err)
	s.Require().True(locked)
	defer s.lock.Unlock(context.Background(), study.StudyID)

	_, err = s.service.Recompute(context.Background(), study.StudyID)
	s.ErrorIs(err, ErrAlreadyRunning)
}

func (s *RecomputeTestSuite) TestFullRunSkipsLockedStudy() {
	s.factory.SeedDefaultWeights()
	lockedStudy := s.factory.CreateStudy()
	lockedSite := s.factory.CreateSite(lockedStudy.StudyID)
	s.factory.CreateSubject(lockedStudy.StudyID, lockedSite.SiteID)
	freeStudy := s.factory.CreateStudy()
	freeSite := s.factory.CreateSite(freeStudy.StudyID)
	s.factory.CreateSubject(freeStudy.StudyID, freeSite.SiteID)

	// 某研究正在被范围重算锁定，全量重算不得触碰其集市行
	locked, err := s.lock.TryLock(context.Background(), lockedStudy.StudyID, time.Minute)
	s.Require().NoError(err)
	s.Require().True(locked)
	defer s.lock.Unlock(context.Background(), lockedStudy.StudyID)

	run, err := s.service.Recompute(context.Background(), "")
	s.Require().NoError(err)
	s.Equal(RunStatusCompletedWithSkips, run.Status)
	s.Equal(1, run.StudiesProcessed)
	s.Equal(1, run.StudiesSkipped)
	s.Require().Len(run.SkippedStudies, 1)
	s.Equal(lockedStudy.StudyID, run.SkippedStudies[0]["study_id"])

	// 被锁定研究的集市行未被写入，未锁定研究正常落库
	var count int64
	s.testDB.DB.Model(&models.DQIScoreStudy{}).Where("study_id = ?", lockedStudy.StudyID).Count(&count)
	s.Equal(int64(0), count)
	s.testDB.DB.Model(&models.DQIScoreStudy{}).Where("study_id = ?", freeStudy.StudyID).Count(&count)
	s.Equal(int64(1), count)
	s.testDB.DB.Model(&models.DQIScoreSubject{}).Where("study_id = ?", lockedStudy.StudyID).Count(&count)
	s.Equal(int64(0), count)
}

func TestRecomputeTestSuite(t *testing.T) {
	suite.Run(t, new(RecomputeTestSuite))
}
