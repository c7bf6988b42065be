package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"ats-job-pipeline/internal/artifact"
	"ats-job-pipeline/internal/models"
)

var batchKeyPattern = regexp.MustCompile(`_batch_(\d+)\.json$`)

// Aggregator merges the batch artifacts of a company into the single
// <ats>/<company>.json file the downstream loader reads.
type Aggregator struct {
	Store artifact.Store
}

// Aggregate collects every <ats>/<company>_batch_N.json in batch-id
// order, concatenates their jobs, writes the merged artifact, and
// removes the batch files. Running it again after completion is a
// no-op that returns the existing merged artifact.
func (a *Aggregator) Aggregate(ctx context.Context, ats, company string) (models.AggregatedCompany, error) {
	merged := models.AggregatedCompany{Company: company, ATS: ats}

	prefix := fmt.Sprintf("%s/%s_batch_", ats, company)
	keys, err := a.Store.List(ctx, prefix)
	if err != nil {
		return merged, fmt.Errorf("list batches: %w", err)
	}

	finalKey := fmt.Sprintf("%s/%s.json", ats, company)
	if len(keys) == 0 {
		data, err := a.Store.Read(ctx, finalKey)
		if errors.Is(err, artifact.ErrNotFound) {
			return merged, fmt.Errorf("no batches for %s/%s", ats, company)
		}
		if err != nil {
			return merged, fmt.Errorf("read aggregate: %w", err)
		}
		if err := json.Unmarshal(data, &merged); err != nil {
			return merged, fmt.Errorf("decode aggregate: %w", err)
		}
		return merged, nil
	}

	sortByBatchID(keys)

	for _, key := range keys {
		data, err := a.Store.Read(ctx, key)
		if err != nil {
			return merged, fmt.Errorf("read batch %s: %w", key, err)
		}
		var b models.ExtractionBatch
		if err := json.Unmarshal(data, &b); err != nil {
			return merged, fmt.Errorf("decode batch %s: %w", key, err)
		}
		merged.Jobs = append(merged.Jobs, b.Jobs...)
		merged.Extracted += b.Extracted
		merged.Errors += b.Errors
	}
	merged.TotalJobs = len(merged.Jobs)

	data, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return merged, fmt.Errorf("encode aggregate: %w", err)
	}
	if _, err := a.Store.Write(ctx, finalKey, data); err != nil {
		return merged, fmt.Errorf("save aggregate: %w", err)
	}

	for _, key := range keys {
		if err := a.Store.Remove(ctx, key); err != nil {
			return merged, fmt.Errorf("remove batch %s: %w", key, err)
		}
	}

	log.Printf("[aggregate] %s/%s: %d batches, %d jobs", ats, company, len(keys), merged.TotalJobs)
	return merged, nil
}

// Companies reports the (ats, company) pairs that still have pending
// batch artifacts under the store.
func (a *Aggregator) Companies(ctx context.Context) ([][2]string, error) {
	keys, err := a.Store.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}

	seen := map[[2]string]bool{}
	var pairs [][2]string
	for _, key := range keys {
		m := batchKeyPattern.FindStringIndex(key)
		if m == nil {
			continue
		}
		ats, rest, ok := strings.Cut(key, "/")
		if !ok {
			continue
		}
		company := rest[:strings.LastIndex(rest, "_batch_")]
		pair := [2]string{ats, company}
		if !seen[pair] {
			seen[pair] = true
			pairs = append(pairs, pair)
		}
	}
	return pairs, nil
}

// sortByBatchID orders batch keys by their numeric batch id so jobs
// come out in enqueue order, not lexical file order.
func sortByBatchID(keys []string) {
	sort.Slice(keys, func(i, j int) bool {
		return batchID(keys[i]) < batchID(keys[j])
	})
}

func batchID(key string) int {
	m := batchKeyPattern.FindStringSubmatch(key)
	if m == nil {
		return 0
	}
	id, _ := strconv.Atoi(m[1])
	return id
}
