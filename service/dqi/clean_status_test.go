/*
 * @module service/dqi/clean_status_test
 * @description Clean Patient状态评估单元测试，覆盖七项判定条件、阻断项固定顺序与信息性计数
 * @architecture 测试层 - 纯函数单元测试
 * @documentReference dev_docs/test_plan.md
 * @stateFlow 构造事实快照 -> 评估Clean状态 -> 断言is_clean与阻断项
 * @rules is_clean当且仅当七项条件全满足；编码/EDRR计数不参与判定
 * @dependencies testing, testify
 * @refs clean_status.go
 */

package dqi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dqi-service/service/models"
)

func TestEvaluateCleanStatus_CleanSubject(t *testing.T) {
	f := newCleanFacts()

	status, err := EvaluateCleanStatus(f)
	require.NoError(t, err)

	assert.True(t, status.IsClean)
	assert.Empty(t, status.Blockers)
	assert.Equal(t, 100.0, status.SDVCompletionPct)
	assert.Equal(t, 100.0, status.PISignatureCompletionPct)
	assert.Equal(t, f.SnapshotTime, status.LastComputed)
}

func TestEvaluateCleanStatus_SingleOpenQueryBlocksClean(t *testing.T) {
	f := newCleanFacts()
	f.Queries = []models.QueryEvent{openQuery(3, f.SnapshotTime)}

	status, err := EvaluateCleanStatus(f)
	require.NoError(t, err)

	assert.False(t, status.IsClean)
	assert.True(t, status.HasOpenQueries)
	assert.Equal(t, 1, status.OpenQueriesCount)
	require.Len(t, status.Blockers, 1)
	assert.Equal(t, BlockerOpenQueries, status.Blockers[0]["type"])
	assert.Equal(t, "medium", status.Blockers[0]["severity"])
}

func TestEvaluateCleanStatus_BlockerOrderFixed(t *testing.T) {
	f := newCleanFacts()
	f.MissingVisits = []models.MissingVisit{{SubjectID: f.SubjectID}}
	f.Queries = []models.QueryEvent{openQuery(3, f.SnapshotTime)}
	f.MissingPages = []models.MissingPage{{SubjectID: f.SubjectID}}
	f.NonConformant = []models.NonConformantEvent{{SubjectID: f.SubjectID, Status: "Open"}}
	f.SAEDiscrepancies = []models.SAEDiscrepancy{{SubjectID: f.SubjectID, ResolutionStatus: "Unresolved"}}
	f.SDV = &models.SDVStatus{SubjectID: f.SubjectID, ExpectedRecords: 10, VerifiedRecords: 5}
	f.PISignature = &models.PISignatureStatus{SubjectID: f.SubjectID, ExpectedCasebooks: 4, SignedCasebooks: 1}

	status, err := EvaluateCleanStatus(f)
	require.NoError(t, err)

	assert.False(t, status.IsClean)
	require.Len(t, status.Blockers, 7)

	// 阻断项按固定顺序输出，便于看板展示与快照比对
	expected := []string{
		BlockerMissingVisits,
		BlockerOpenQueries,
		BlockerMissingPages,
		BlockerNonConformant,
		BlockerSAEDiscrepancy,
		BlockerSDVIncomplete,
		BlockerPIIncomplete,
	}
	for i, blockerType := range expected {
		assert.Equal(t, blockerType, status.Blockers[i]["type"], "blocker %d", i)
	}

	// SAE差异是最高严重级
	assert.Equal(t, "critical", status.Blockers[4]["severity"])
	// SDV/PI阻断项计数为完成率缺口
	assert.Equal(t, 50.0, status.Blockers[5]["count"])
	assert.Equal(t, 75.0, status.Blockers[6]["count"])
}

func TestEvaluateCleanStatus_InformationalCountsDoNotBlock(t *testing.T) {
	f := newCleanFacts()
	f.CodingItems = []models.CodingItem{
		{SubjectID: f.SubjectID, CodingStatus: "Uncoded", RequireCoding: true},
	}
	f.EDRR = &models.EDRROpenIssue{SubjectID: f.SubjectID, TotalOpenIssueCount: 5}

	status, err := EvaluateCleanStatus(f)
	require.NoError(t, err)

	// 编码积压与EDRR问题只记录，不阻断is_clean
	assert.True(t, status.IsClean)
	assert.Empty(t, status.Blockers)
	assert.Equal(t, 1, status.CodingUncodedCount)
	assert.Equal(t, 5, status.EDRROpenIssueCount)
}

func TestEvaluateCleanStatus_ResolvedFactsDoNotBlock(t *testing.T) {
	f := newCleanFacts()
	f.MissingVisits = []models.MissingVisit{{SubjectID: f.SubjectID, IsResolved: true}}
	f.MissingPages = []models.MissingPage{{SubjectID: f.SubjectID, IsResolved: true}}
	f.NonConformant = []models.NonConformantEvent{{SubjectID: f.SubjectID, Status: "Resolved"}}
	f.SAEDiscrepancies = []models.SAEDiscrepancy{{SubjectID: f.SubjectID, ResolutionStatus: "Resolved"}}
	closedOpen := f.SnapshotTime.AddDate(0, 0, -5)
	f.Queries = []models.QueryEvent{{
		SubjectID:     f.SubjectID,
		QueryStatus:   models.QueryStatusClosed,
		QueryOpenDate: &closedOpen,
	}}

	status, err := EvaluateCleanStatus(f)
	require.NoError(t, err)

	assert.True(t, status.IsClean)
	assert.Empty(t, status.Blockers)
}

func TestEvaluateCleanStatus_MalformedFactsRejected(t *testing.T) {
	f := newCleanFacts()
	f.SDV = &models.SDVStatus{SubjectID: f.SubjectID, ExpectedRecords: 2, VerifiedRecords: 5}

	_, err := EvaluateCleanStatus(f)
	require.Error(t, err)

	var sce *SubjectComputeError
	assert.ErrorAs(t, err, &sce)
}
