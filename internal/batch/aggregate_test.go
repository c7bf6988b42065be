package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"ats-job-pipeline/internal/artifact"
	"ats-job-pipeline/internal/models"
)

func writeBatch(t *testing.T, store artifact.Store, ats, company string, id int, jobIDs ...string) {
	t.Helper()
	b := models.ExtractionBatch{Company: company, ATS: ats, BatchID: id}
	for _, jid := range jobIDs {
		b.Jobs = append(b.Jobs, models.ExtractedJob{JobID: jid, Department: "Engineering"})
		b.Extracted++
	}
	data, err := json.Marshal(b)
	if err != nil {
		t.Fatal(err)
	}
	key := fmt.Sprintf("%s/%s_batch_%d.json", ats, company, id)
	if _, err := store.Write(context.Background(), key, data); err != nil {
		t.Fatalf("write %s: %v", key, err)
	}
}

func TestAggregateOrdersAndCleansUp(t *testing.T) {
	store := &artifact.LocalStore{BaseDir: t.TempDir()}
	// batch 10 sorts before batch 2 lexically; numeric order must win
	writeBatch(t, store, "greenhouse", "acme", 10, "j100")
	writeBatch(t, store, "greenhouse", "acme", 2, "j20", "j21")
	writeBatch(t, store, "greenhouse", "acme", 1, "j10")

	agg := &Aggregator{Store: store}
	merged, err := agg.Aggregate(context.Background(), "greenhouse", "acme")
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if merged.TotalJobs != 4 || merged.Extracted != 4 || merged.Errors != 0 {
		t.Fatalf("merged = %+v", merged)
	}

	wantOrder := []string{"j10", "j20", "j21", "j100"}
	for i, want := range wantOrder {
		if merged.Jobs[i].JobID != want {
			t.Fatalf("jobs[%d] = %s, want %s", i, merged.Jobs[i].JobID, want)
		}
	}

	keys, err := store.List(context.Background(), "greenhouse/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(keys) != 1 || keys[0] != "greenhouse/acme.json" {
		t.Fatalf("keys = %v, want only the merged artifact", keys)
	}
}

func TestAggregateSumsErrors(t *testing.T) {
	store := &artifact.LocalStore{BaseDir: t.TempDir()}
	b := models.ExtractionBatch{
		Company: "acme", ATS: "lever", BatchID: 1,
		Jobs:      []models.ExtractedJob{{JobID: "a"}, {Error: "No description"}},
		Extracted: 1, Errors: 1,
	}
	data, _ := json.Marshal(b)
	if _, err := store.Write(context.Background(), "lever/acme_batch_1.json", data); err != nil {
		t.Fatal(err)
	}

	merged, err := (&Aggregator{Store: store}).Aggregate(context.Background(), "lever", "acme")
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if merged.TotalJobs != 2 || merged.Extracted != 1 || merged.Errors != 1 {
		t.Fatalf("merged = %+v", merged)
	}
}

func TestAggregateIdempotentRerun(t *testing.T) {
	store := &artifact.LocalStore{BaseDir: t.TempDir()}
	writeBatch(t, store, "ashby", "acme", 1, "j1", "j2")

	agg := &Aggregator{Store: store}
	first, err := agg.Aggregate(context.Background(), "ashby", "acme")
	if err != nil {
		t.Fatalf("first Aggregate: %v", err)
	}

	second, err := agg.Aggregate(context.Background(), "ashby", "acme")
	if err != nil {
		t.Fatalf("second Aggregate: %v", err)
	}
	if second.TotalJobs != first.TotalJobs || len(second.Jobs) != len(first.Jobs) {
		t.Fatalf("rerun diverged: %+v vs %+v", second, first)
	}
}

func TestAggregateNothingToDo(t *testing.T) {
	store := &artifact.LocalStore{BaseDir: t.TempDir()}
	if _, err := (&Aggregator{Store: store}).Aggregate(context.Background(), "lever", "ghost"); err == nil {
		t.Fatal("expected error for unknown company")
	}
}

func TestCompaniesDiscovery(t *testing.T) {
	store := &artifact.LocalStore{BaseDir: t.TempDir()}
	writeBatch(t, store, "greenhouse", "acme", 1, "a")
	writeBatch(t, store, "greenhouse", "acme", 2, "b")
	writeBatch(t, store, "lever", "globex", 1, "c")
	// a finished aggregate must not show up as pending
	if _, err := store.Write(context.Background(), "lever/done.json", []byte(`{}`)); err != nil {
		t.Fatal(err)
	}

	pairs, err := (&Aggregator{Store: store}).Companies(context.Background())
	if err != nil {
		t.Fatalf("Companies: %v", err)
	}
	if len(pairs) != 2 {
		t.Fatalf("pairs = %v, want 2 entries", pairs)
	}
	seen := map[[2]string]bool{}
	for _, p := range pairs {
		seen[p] = true
	}
	if !seen[[2]string{"greenhouse", "acme"}] || !seen[[2]string{"lever", "globex"}] {
		t.Fatalf("pairs = %v", pairs)
	}
}
