/*
 * @module service/models/jsonb_test
 * @description JSONB类型测试，验证阻断项列表的数据库读写行为
 * @architecture 测试层 - 数据模型验证
 * @documentReference dev_docs/test_plan.md
 * @stateFlow Value序列化 -> Scan反序列化 -> 断言内容一致
 * @rules Scan兼容[]byte与string两种驱动返回类型
 * @dependencies testing, testify
 * @refs jsonb.go
 */

package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONBArray_ValueAndScan(t *testing.T) {
	blockers := JSONBArray{
		{"type": "missing_visits", "count": 2.0, "severity": "high"},
		{"type": "open_queries", "count": 3.0, "severity": "medium"},
	}

	value, err := blockers.Value()
	require.NoError(t, err)

	var scanned JSONBArray
	require.NoError(t, scanned.Scan(value))
	require.Len(t, scanned, 2)
	assert.Equal(t, "missing_visits", scanned[0]["type"])
	assert.Equal(t, 2.0, scanned[0]["count"])
	assert.Equal(t, "medium", scanned[1]["severity"])
}

func TestJSONBArray_ScanString(t *testing.T) {
	// sqlite驱动以string返回jsonb列
	var scanned JSONBArray
	require.NoError(t, scanned.Scan(`[{"type":"sdv_incomplete","count":40,"severity":"high"}]`))
	require.Len(t, scanned, 1)
	assert.Equal(t, "sdv_incomplete", scanned[0]["type"])
}

func TestJSONBArray_ScanNilAndInvalidType(t *testing.T) {
	var scanned JSONBArray
	require.NoError(t, scanned.Scan(nil))
	assert.Nil(t, scanned)

	assert.Error(t, scanned.Scan(12345))
}
