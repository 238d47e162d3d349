// File: internal/portal/records_test.go
package portal

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterAssignments(t *testing.T) {
	rows := []AssignmentRecord{
		{Course: "数学I", Title: "第3回レポート", Deadline: "2025-12-03 13:00:00", URL: "https://portal.example.ac.jp/task/1"},
		{Course: "数学I", Title: "", Deadline: "2025/12/04 10:00:00", URL: "https://portal.example.ac.jp/task/2"},
		{Course: "物理", Title: "実験ノート", Deadline: "", URL: "https://portal.example.ac.jp/task/3"},
		{Course: "物理", Title: "実験ノート", Deadline: "2025/12/05 10:00:00", URL: ""},
		{Course: "化学", Title: "小テスト", Deadline: "期限未定", URL: "https://portal.example.ac.jp/task/4"},
		{Course: "数学I(再掲)", Title: "第3回レポート", Deadline: "2025/12/03 13:00:00", URL: "https://portal.example.ac.jp/task/1"},
	}

	got := FilterAssignments(rows)
	want := []AssignmentRecord{
		{Course: "数学I", Title: "第3回レポート", Deadline: "2025/12/03 13:00:00", URL: "https://portal.example.ac.jp/task/1"},
		{Course: "化学", Title: "小テスト", Deadline: "期限未定", URL: "https://portal.example.ac.jp/task/4"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FilterAssignments mismatch (-want +got):\n%s", diff)
	}
}

func TestFilterAssignmentsEmpty(t *testing.T) {
	got := FilterAssignments(nil)
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFilterTimetable(t *testing.T) {
	rows := []TimetableRecord{
		{Code: "MA101", Day: "月", Period: 1, Title: "微分積分学", Room: "Ａ１０１"},
		{Code: "", Day: "月", Period: 2, Title: "無名講義"},
		{Code: "PH201", Day: "月", Period: 2, Title: ""},
		{Code: "CH110", Day: "土", Period: 1, Title: "化学基礎"},
		{Code: "EN100", Day: "火", Period: 0, Title: "英語"},
		{Code: "EN101", Day: "火", Period: 6, Title: "英語演習"},
		{Code: "CS150", Day: "金", Period: 5, Title: "プログラミング", Room: ""},
	}

	got := FilterTimetable(rows, 3)
	want := []TimetableRecord{
		{Code: "MA101", Day: "月", Period: 1, Title: "微分積分学", Room: "A101", Quarter: 3},
		{Code: "CS150", Day: "金", Period: 5, Title: "プログラミング", Quarter: 3},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FilterTimetable mismatch (-want +got):\n%s", diff)
	}
}
