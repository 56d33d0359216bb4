package problemio

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetopt/internal/model"
)

func TestAppendJobsCSV(t *testing.T) {
	csv := strings.Join([]string{
		"id,location_index,service,delivery,priority,tw_start,tw_end,budget,pinned",
		"1,2,300,4|1,10,0,3600,500,true",
		"2,3,,,,,,,",
	}, "\n")

	var doc model.ProblemDoc
	require.NoError(t, AppendJobsCSV(&doc, strings.NewReader(csv)))
	require.Len(t, doc.Jobs, 2)

	j := doc.Jobs[0]
	assert.Equal(t, int64(1), j.ID)
	assert.Equal(t, 2, j.LocationIndex)
	assert.Equal(t, int64(300), j.Service)
	assert.Equal(t, []int64{4, 1}, j.Delivery)
	assert.Equal(t, 10, j.Priority)
	assert.Equal(t, [][2]int64{{0, 3600}}, j.TimeWindows)
	assert.Equal(t, int64(500), j.Budget)
	assert.True(t, j.Pinned)

	j = doc.Jobs[1]
	assert.Equal(t, int64(2), j.ID)
	assert.Empty(t, j.Delivery)
	assert.False(t, j.Pinned)
}

func TestAppendJobsCSVKeepsExistingJobs(t *testing.T) {
	doc := model.ProblemDoc{Jobs: []model.JobDoc{{ID: 99, LocationIndex: 0}}}
	require.NoError(t, AppendJobsCSV(&doc, strings.NewReader("id,location_index\n1,1\n")))
	require.Len(t, doc.Jobs, 2)
	assert.Equal(t, int64(99), doc.Jobs[0].ID)
}

func TestAppendJobsCSVErrors(t *testing.T) {
	cases := []struct {
		name string
		csv  string
		want string
	}{
		{"missing id column", "location_index\n1\n", "missing the id column"},
		{"missing location column", "id\n1\n", "missing the location_index column"},
		{"bad id", "id,location_index\nx,1\n", "bad id"},
		{"bad amount", "id,location_index,delivery\n1,1,a|b\n", "bad amount"},
		{"half time window", "id,location_index,tw_start\n1,1,5\n", "tw_start and tw_end"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var doc model.ProblemDoc
			err := AppendJobsCSV(&doc, strings.NewReader(tc.csv))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
