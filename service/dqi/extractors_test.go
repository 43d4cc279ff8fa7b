/*
 * @module service/dqi/extractors_test
 * @description 指标提取器单元测试，覆盖计数型/百分率型评分、封顶、逾期判定与事实校验
 * @architecture 测试层 - 纯函数单元测试
 * @documentReference dev_docs/test_plan.md
 * @stateFlow 构造事实快照 -> 提取指标 -> 断言评分与阻断项
 * @rules 计数型 score = min(100, count * penalty)；百分率型 score = 100 - 完成率
 * @dependencies testing, testify
 * @refs extractors.go
 */

package dqi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dqi-service/service/meta"
	"dqi-service/service/models"
)

// newCleanFacts 构造一个没有任何质量问题的受试者事实快照
func newCleanFacts() *SubjectFacts {
	return &SubjectFacts{
		SubjectID:    "SUBJ-001",
		StudyID:      "STUDY-001",
		SiteID:       "SITE-001",
		SnapshotTime: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func openQuery(daysAgo int, snapshot time.Time) models.QueryEvent {
	openDate := snapshot.AddDate(0, 0, -daysAgo)
	return models.QueryEvent{
		SubjectID:     "SUBJ-001",
		QueryStatus:   models.QueryStatusOpen,
		QueryOpenDate: &openDate,
	}
}

func TestExtractAll_CleanSubjectScoresAllZero(t *testing.T) {
	f := newCleanFacts()

	scores, err := ExtractAll(f)
	require.NoError(t, err)

	// 无任何事实行的受试者所有分项评分为0，SDV/PI视为无欠账
	for _, name := range meta.MetricNames {
		assert.Equal(t, 0.0, scores[name], "metric %s", name)
	}
}

func TestExtractAll_CountMetricPenalties(t *testing.T) {
	f := newCleanFacts()
	f.Queries = []models.QueryEvent{
		openQuery(7, f.SnapshotTime),
		openQuery(7, f.SnapshotTime),
	}
	f.MissingVisits = []models.MissingVisit{
		{SubjectID: f.SubjectID},
		{SubjectID: f.SubjectID, IsResolved: true},
	}
	f.SAEDiscrepancies = []models.SAEDiscrepancy{
		{SubjectID: f.SubjectID, ResolutionStatus: "Unresolved"},
	}

	scores, err := ExtractAll(f)
	require.NoError(t, err)

	assert.Equal(t, 6.0, scores[meta.MetricOpenQueries])    // 2 * 3
	assert.Equal(t, 10.0, scores[meta.MetricMissingVisits]) // 已解决的访视不计
	assert.Equal(t, 25.0, scores[meta.MetricSAEUnresolved])
	assert.Equal(t, 0.0, scores[meta.MetricOverdueQueries]) // 7天未超过14天阈值
}

func TestExtractAll_ScoreCappedAt100(t *testing.T) {
	f := newCleanFacts()
	for i := 0; i < 6; i++ {
		f.SAEDiscrepancies = append(f.SAEDiscrepancies, models.SAEDiscrepancy{
			SubjectID:        f.SubjectID,
			ResolutionStatus: "Unresolved",
		})
	}

	scores, err := ExtractAll(f)
	require.NoError(t, err)

	// 6 * 25 = 150，封顶100
	assert.Equal(t, 100.0, scores[meta.MetricSAEUnresolved])
}

func TestOverdueQueryCount(t *testing.T) {
	f := newCleanFacts()
	repairDate := f.SnapshotTime.AddDate(0, 0, -1)
	oldOpen := f.SnapshotTime.AddDate(0, 0, -30)

	f.Queries = []models.QueryEvent{
		openQuery(20, f.SnapshotTime), // 未决20天，逾期
		openQuery(14, f.SnapshotTime), // 恰好14天，不逾期（严格大于）
		openQuery(7, f.SnapshotTime),  // 未决7天，不逾期
		{ // 开启30天后才修复：按修复日期计龄，逾期
			SubjectID:       f.SubjectID,
			QueryStatus:     models.QueryStatusClosed,
			QueryOpenDate:   &oldOpen,
			QueryRepairDate: &repairDate,
		},
	}

	assert.Equal(t, 2, f.OverdueQueryCount(meta.OverdueQueryDays))
}

func TestExtractAll_PctMetrics(t *testing.T) {
	f := newCleanFacts()
	f.SDV = &models.SDVStatus{SubjectID: f.SubjectID, ExpectedRecords: 10, VerifiedRecords: 4}
	f.PISignature = &models.PISignatureStatus{SubjectID: f.SubjectID, ExpectedCasebooks: 3, SignedCasebooks: 3}

	scores, err := ExtractAll(f)
	require.NoError(t, err)

	assert.Equal(t, 60.0, scores[meta.MetricSDVIncomplete])
	assert.Equal(t, 0.0, scores[meta.MetricUnsignedCasebooks])
}

func TestExtractAll_ZeroExpectedTreatedAsComplete(t *testing.T) {
	f := newCleanFacts()
	// 应核查记录数为0：无欠账，完成率100，不产生除零
	f.SDV = &models.SDVStatus{SubjectID: f.SubjectID, ExpectedRecords: 0, VerifiedRecords: 0}
	f.PISignature = &models.PISignatureStatus{SubjectID: f.SubjectID, ExpectedCasebooks: 0, SignedCasebooks: 0}

	scores, err := ExtractAll(f)
	require.NoError(t, err)

	assert.Equal(t, 0.0, scores[meta.MetricSDVIncomplete])
	assert.Equal(t, 0.0, scores[meta.MetricUnsignedCasebooks])
}

func TestExtractAll_CodingOnlyCountsRequired(t *testing.T) {
	f := newCleanFacts()
	f.CodingItems = []models.CodingItem{
		{SubjectID: f.SubjectID, CodingStatus: "Uncoded", RequireCoding: true},
		{SubjectID: f.SubjectID, CodingStatus: "Pending", RequireCoding: true},
		{SubjectID: f.SubjectID, CodingStatus: "Uncoded", RequireCoding: false}, // 不需编码，不计
		{SubjectID: f.SubjectID, CodingStatus: "Coded", RequireCoding: true},
	}

	scores, err := ExtractAll(f)
	require.NoError(t, err)

	assert.Equal(t, 4.0, scores[meta.MetricCodingIssues]) // 2 * 2
}

func TestValidate_MalformedFactsRejected(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *SubjectFacts)
	}{
		{
			name: "SDV已核查超过应核查",
			setup: func(f *SubjectFacts) {
				f.SDV = &models.SDVStatus{SubjectID: f.SubjectID, ExpectedRecords: 5, VerifiedRecords: 8}
			},
		},
		{
			name: "PI签名册计数为负",
			setup: func(f *SubjectFacts) {
				f.PISignature = &models.PISignatureStatus{SubjectID: f.SubjectID, ExpectedCasebooks: -1}
			},
		},
		{
			name: "EDRR计数为负",
			setup: func(f *SubjectFacts) {
				f.EDRR = &models.EDRROpenIssue{SubjectID: f.SubjectID, TotalOpenIssueCount: -3}
			},
		},
		{
			name: "未决质询缺少开启日期",
			setup: func(f *SubjectFacts) {
				f.Queries = []models.QueryEvent{{SubjectID: f.SubjectID, QueryStatus: models.QueryStatusOpen}}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCleanFacts()
			tt.setup(f)

			_, err := ExtractAll(f)
			require.Error(t, err)

			var sce *SubjectComputeError
			assert.ErrorAs(t, err, &sce)
			assert.Equal(t, f.SubjectID, sce.SubjectID)
		})
	}
}
