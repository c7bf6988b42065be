// Package batch splits scraped job lists into fixed-size extraction
// batches and merges finished batch artifacts back into one file per
// company.
package batch

import "ats-job-pipeline/internal/models"

// Chunk splits jobs into consecutive slices of at most size elements.
// Order is preserved and the last chunk may be short.
func Chunk(jobs []models.RawJob, size int) [][]models.RawJob {
	if size <= 0 || len(jobs) == 0 {
		return nil
	}
	chunks := make([][]models.RawJob, 0, (len(jobs)+size-1)/size)
	for start := 0; start < len(jobs); start += size {
		end := start + size
		if end > len(jobs) {
			end = len(jobs)
		}
		chunks = append(chunks, jobs[start:end])
	}
	return chunks
}
