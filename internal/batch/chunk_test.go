package batch

import (
	"fmt"
	"testing"

	"ats-job-pipeline/internal/models"
)

func makeJobs(n int) []models.RawJob {
	jobs := make([]models.RawJob, n)
	for i := range jobs {
		jobs[i] = models.RawJob{ID: fmt.Sprintf("j%d", i)}
	}
	return jobs
}

func TestChunkSizes(t *testing.T) {
	cases := []struct {
		jobs, size int
		want       []int
	}{
		{23, 10, []int{10, 10, 3}},
		{10, 10, []int{10}},
		{9, 10, []int{9}},
		{0, 10, nil},
	}
	for _, tc := range cases {
		chunks := Chunk(makeJobs(tc.jobs), tc.size)
		if len(chunks) != len(tc.want) {
			t.Fatalf("Chunk(%d, %d): %d chunks, want %d", tc.jobs, tc.size, len(chunks), len(tc.want))
		}
		for i, want := range tc.want {
			if len(chunks[i]) != want {
				t.Errorf("Chunk(%d, %d)[%d]: len %d, want %d", tc.jobs, tc.size, i, len(chunks[i]), want)
			}
		}
	}
}

func TestChunkPreservesOrder(t *testing.T) {
	jobs := makeJobs(23)
	var flat []models.RawJob
	for _, chunk := range Chunk(jobs, 10) {
		flat = append(flat, chunk...)
	}
	if len(flat) != len(jobs) {
		t.Fatalf("flattened %d jobs, want %d", len(flat), len(jobs))
	}
	for i := range jobs {
		if flat[i].ID != jobs[i].ID {
			t.Fatalf("order broken at %d: %s != %s", i, flat[i].ID, jobs[i].ID)
		}
	}
}
