/*
 * @module service/dqi/rollup_test
 * @description 中心/研究汇总单元测试，覆盖均值极值、clean比例、空中心与缺行不一致处理
 * @architecture 测试层 - 纯函数单元测试
 * @documentReference dev_docs/test_plan.md
 * @stateFlow 构造受试者集市行 -> 中心汇总 -> 研究汇总 -> 断言统计量
 * @rules 缺行受试者零贡献但计入总数；研究均值按中心加权
 * @dependencies testing, testify
 * @refs rollup.go
 */

package dqi

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dqi-service/service/models"
)

var rollupTime = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func buildSiteRows(composites []float64, cleanFlags []bool) ([]string, map[string]*models.DQIScoreSubject, map[string]*models.CleanPatientStatus) {
	subjectIDs := make([]string, len(composites))
	dqiRows := make(map[string]*models.DQIScoreSubject, len(composites))
	cleanRows := make(map[string]*models.CleanPatientStatus, len(composites))

	for i, composite := range composites {
		id := fmt.Sprintf("SUBJ-%03d", i+1)
		subjectIDs[i] = id
		dqiRows[id] = &models.DQIScoreSubject{SubjectID: id, CompositeDQIScore: composite}
		cleanRows[id] = &models.CleanPatientStatus{SubjectID: id, IsClean: cleanFlags[i]}
	}
	return subjectIDs, dqiRows, cleanRows
}

func TestRollupSite_AvgMinMax(t *testing.T) {
	site := &models.Site{SiteID: "SITE-001", StudyID: "STUDY-001"}
	subjectIDs, dqiRows, cleanRows := buildSiteRows(
		[]float64{10, 50, 90},
		[]bool{true, false, false},
	)

	row, inconsistency := RollupSite(site, subjectIDs, dqiRows, cleanRows, rollupTime)
	assert.Nil(t, inconsistency)

	assert.Equal(t, 50.0, row.AvgDQIScore)
	assert.Equal(t, 10.0, row.MinDQIScore)
	assert.Equal(t, 90.0, row.MaxDQIScore)
	assert.Equal(t, 3, row.TotalSubjects)
	assert.Equal(t, 1, row.CleanSubjects)
	assert.Equal(t, 33.33, row.CleanPercentage)
	assert.Equal(t, models.RiskBandHigh, row.RiskBand)
}

func TestRollupSite_CleanPercentage(t *testing.T) {
	site := &models.Site{SiteID: "SITE-001", StudyID: "STUDY-001"}
	composites := make([]float64, 20)
	cleanFlags := make([]bool, 20)
	for i := 0; i < 14; i++ {
		cleanFlags[i] = true
	}
	subjectIDs, dqiRows, cleanRows := buildSiteRows(composites, cleanFlags)

	row, _ := RollupSite(site, subjectIDs, dqiRows, cleanRows, rollupTime)
	assert.Equal(t, 70.0, row.CleanPercentage) // 14/20
}

func TestRollupSite_EmptySiteAllZero(t *testing.T) {
	site := &models.Site{SiteID: "SITE-EMPTY", StudyID: "STUDY-001"}

	row, inconsistency := RollupSite(site, nil, nil, nil, rollupTime)
	assert.Nil(t, inconsistency)

	// 空中心输出全零/Low行，不产生除零
	assert.Equal(t, 0.0, row.AvgDQIScore)
	assert.Equal(t, 0.0, row.CleanPercentage)
	assert.Equal(t, 0, row.TotalSubjects)
	assert.Equal(t, models.RiskBandLow, row.RiskBand)
}

func TestRollupSite_MissingSubjectRowsZeroContribution(t *testing.T) {
	site := &models.Site{SiteID: "SITE-001", StudyID: "STUDY-001"}
	subjectIDs, dqiRows, cleanRows := buildSiteRows(
		[]float64{40, 60},
		[]bool{false, false},
	)
	// 第三个受试者没有集市行（例如评分被跳过）
	subjectIDs = append(subjectIDs, "SUBJ-MISSING")

	row, inconsistency := RollupSite(site, subjectIDs, dqiRows, cleanRows, rollupTime)

	require.NotNil(t, inconsistency)
	assert.Equal(t, "SITE-001", inconsistency.SiteID)
	assert.Equal(t, 1, inconsistency.MissingSubjects)

	// 缺行受试者零贡献，但计入total_subjects
	assert.Equal(t, 50.0, row.AvgDQIScore)
	assert.Equal(t, 3, row.TotalSubjects)
}

func TestRollupStudy_SiteWeightedAverage(t *testing.T) {
	study := &models.Study{StudyID: "STUDY-001"}
	siteRows := []*models.DQIScoreSite{
		{SiteID: "SITE-BIG", AvgDQIScore: 20, TotalSubjects: 10, CleanSubjects: 5},
		{SiteID: "SITE-SMALL", AvgDQIScore: 40, TotalSubjects: 2, CleanSubjects: 2},
	}

	row := RollupStudy(study, siteRows, rollupTime)

	// 按中心加权：(20+40)/2=30，而不是按受试者加权的23.33
	assert.Equal(t, 30.0, row.AvgDQIScore)
	assert.Equal(t, 2, row.TotalSites)
	assert.Equal(t, 12, row.TotalSubjects)
	assert.Equal(t, 7, row.CleanSubjects)
	assert.Equal(t, 58.33, row.CleanPercentage)
	assert.Equal(t, models.ReadinessInProgress, row.ReadinessStatus)
}

func TestRollupStudy_NoSites(t *testing.T) {
	study := &models.Study{StudyID: "STUDY-EMPTY"}

	row := RollupStudy(study, nil, rollupTime)

	assert.Equal(t, 0.0, row.AvgDQIScore)
	assert.Equal(t, models.RiskBandLow, row.RiskBand)
	assert.Equal(t, models.ReadinessNotReady, row.ReadinessStatus)
}
