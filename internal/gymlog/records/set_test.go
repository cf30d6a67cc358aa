package records_test

import (
	"encoding/json"
	"testing"

	"github.com/2beens/gymlog/internal/gymlog/records"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSet_UnmarshalJSON_LegacyFlags(t *testing.T) {
	testCases := []struct {
		name          string
		json          string
		expectedState records.SetState
		candidate     bool
	}{
		{name: "explicit committed", json: `{"weight":"50","reps":"8","committed":true}`, expectedState: records.Committed, candidate: true},
		{name: "explicit draft", json: `{"weight":"50","reps":"8","committed":false}`, expectedState: records.Draft},
		{name: "legacy done flag", json: `{"weight":"50","reps":"8","done":true}`, expectedState: records.Committed, candidate: true},
		{name: "legacy not done", json: `{"weight":"50","reps":"8","done":false}`, expectedState: records.Draft},
		{name: "values without any flag", json: `{"weight":"50","reps":"8"}`, expectedState: records.Committed, candidate: true},
		{name: "empty with committed flag", json: `{"weight":"","reps":"","committed":true}`, expectedState: records.Draft},
		{name: "empty without flag", json: `{"weight":"","reps":""}`, expectedState: records.Draft},
		{name: "numeric fields", json: `{"weight":62.5,"reps":10}`, expectedState: records.Committed, candidate: true},
		{name: "null fields", json: `{"weight":null,"reps":null,"committed":true}`, expectedState: records.Draft},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var s records.Set
			require.NoError(t, json.Unmarshal([]byte(tc.json), &s))
			assert.Equal(t, tc.expectedState, s.State)
			assert.Equal(t, tc.candidate, s.IsRecordCandidate())
		})
	}
}

func TestSet_MarshalJSON_AlwaysWritesExplicitFlag(t *testing.T) {
	s := records.Set{Weight: "62.5", Reps: "10", State: records.Committed}
	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"weight":"62.5","reps":"10","committed":true}`, string(data))

	var back records.Set
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, s, back)
}

func TestSet_ParsesDefensively(t *testing.T) {
	assert.Equal(t, 62.5, records.Set{Weight: " 62,5 "}.WeightValue())
	assert.Equal(t, float64(0), records.Set{Weight: "abc"}.WeightValue())
	assert.Equal(t, float64(0), records.Set{Weight: "-5"}.WeightValue())
	assert.Equal(t, 8, records.Set{Reps: "8.9"}.RepsValue())
	assert.Equal(t, 0, records.Set{Reps: ""}.RepsValue())
	assert.False(t, records.Set{Weight: "  ", Reps: ""}.HasValues())
}

func TestWorkout_UnmarshalJSON_LegacyCompleted(t *testing.T) {
	var w records.Workout
	require.NoError(t, json.Unmarshal([]byte(`{"routineType":"push","completed":true}`), &w))
	assert.True(t, w.Committed)
	assert.NotNil(t, w.Exercises)

	require.NoError(t, json.Unmarshal([]byte(`{"routineType":"pull","exercises":[],"committed":false}`), &w))
	assert.False(t, w.Committed)
	assert.Equal(t, "pull", w.RoutineType)
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "62.5", records.FormatNumber(62.5))
	assert.Equal(t, "100", records.FormatNumber(100))
	assert.Equal(t, "0.33", records.FormatNumber(1.0/3))
}
