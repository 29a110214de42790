// Package expand provides comprehensive tests for the run orchestration.
package expand

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/tablemateio/airlink/internal/airtable"
	"github.com/tablemateio/airlink/internal/config"
	"github.com/tablemateio/airlink/internal/logger"
	"github.com/tablemateio/airlink/internal/record"
)

// ============================================================================
// Test Helpers
// ============================================================================

// fakeStore implements StoreClient over the in-memory record fixture.
type fakeStore struct {
	*fakeFetcher
	tables      []airtable.TableSchema
	schemaErr   error
	schemaCalls int
	listFn      func(table string, q airtable.ListQuery) ([]*record.Record, error)
	listCalls   []airtable.ListQuery
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		fakeFetcher: newFakeFetcher(),
		tables:      testTables(),
	}
}

func (f *fakeStore) ListRecords(_ context.Context, table string, q airtable.ListQuery) ([]*record.Record, error) {
	f.listCalls = append(f.listCalls, q)
	if f.listFn == nil {
		return nil, fmt.Errorf("unexpected list call for %s", table)
	}
	return f.listFn(table, q)
}

func (f *fakeStore) GetBaseSchema(_ context.Context) ([]airtable.TableSchema, error) {
	f.schemaCalls++
	if f.schemaErr != nil {
		return nil, f.schemaErr
	}
	return f.tables, nil
}

func testRunnerConfig() *config.Config {
	return &config.Config{
		API: config.APIConfig{
			BaseID: "appTESTBASE000001",
			Token:  "keyTESTTOKEN",
		},
		Expansion: config.ExpansionConfig{
			ExpandTables: []string{"Contacts", "Invoices"},
			MaxDepth:     2,
		},
	}
}

func testJobConfig() *config.JobConfig {
	return &config.JobConfig{
		Table:  "Clients",
		Filter: "{Status}='active'",
	}
}

func newTestRunner(t *testing.T, store *fakeStore, jobCfg *config.JobConfig) *Runner {
	t.Helper()

	runner, err := NewRunner(testRunnerConfig(), "test-job", jobCfg, store, logger.NewDefault())
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}
	return runner
}

// ============================================================================
// NewRunner Tests
// ============================================================================

func TestNewRunner_Success(t *testing.T) {
	runner := newTestRunner(t, newFakeStore(), testJobConfig())

	if runner.GetJobName() != "test-job" {
		t.Errorf("Expected job name test-job, got %s", runner.GetJobName())
	}
	if runner.GetJobConfig().Table != "Clients" {
		t.Errorf("Expected job table Clients, got %s", runner.GetJobConfig().Table)
	}
}

func TestNewRunner_NilConfig(t *testing.T) {
	_, err := NewRunner(nil, "test-job", testJobConfig(), newFakeStore(), logger.NewDefault())
	if err == nil {
		t.Error("Expected error for nil config")
	}
}

func TestNewRunner_NilJobConfig(t *testing.T) {
	_, err := NewRunner(testRunnerConfig(), "test-job", nil, newFakeStore(), logger.NewDefault())
	if err == nil {
		t.Error("Expected error for nil job config")
	}
}

func TestNewRunner_NilClient(t *testing.T) {
	_, err := NewRunner(testRunnerConfig(), "test-job", testJobConfig(), nil, logger.NewDefault())
	if err == nil {
		t.Error("Expected error for nil client")
	}
}

func TestNewRunner_JobExpansionOverride(t *testing.T) {
	jobCfg := testJobConfig()
	jobCfg.Expansion = &config.ExpansionConfig{MaxDepth: 4}

	runner := newTestRunner(t, newFakeStore(), jobCfg)

	effective := runner.GetExpansionConfig()
	if effective.MaxDepth != 4 {
		t.Errorf("Expected job max depth 4, got %d", effective.MaxDepth)
	}
	if len(effective.ExpandTables) != 2 {
		t.Errorf("Expected global expand tables kept, got %v", effective.ExpandTables)
	}
}

func TestRunner_UpdateExpansionConfig(t *testing.T) {
	runner := newTestRunner(t, newFakeStore(), testJobConfig())

	cfg := runner.GetExpansionConfig()
	cfg.MaxDepth = 3
	cfg.IncludeOriginalIDs = true
	runner.UpdateExpansionConfig(cfg)

	updated := runner.GetExpansionConfig()
	if updated.MaxDepth != 3 || !updated.IncludeOriginalIDs {
		t.Errorf("Expected override applied, got %+v", updated)
	}
}

// ============================================================================
// Run Tests
// ============================================================================

func TestRunner_Run_FilterSelection(t *testing.T) {
	store := newFakeStore()
	store.add(record.New("tblCONTACTS000001", "recCONTACT0000001", map[string]interface{}{
		"Name": "Ada",
	}))
	store.listFn = func(table string, q airtable.ListQuery) ([]*record.Record, error) {
		return []*record.Record{
			record.New(table, "recCLIENT00000001", map[string]interface{}{
				"Contacts": []interface{}{"recCONTACT0000001"},
			}),
		}, nil
	}

	runner := newTestRunner(t, store, testJobConfig())

	result, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !result.Success {
		t.Error("Expected a successful run")
	}
	if result.RunID == "" {
		t.Error("Expected a run id")
	}
	if result.JobName != "test-job" {
		t.Errorf("Expected job name test-job, got %s", result.JobName)
	}
	if len(result.Records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(result.Records))
	}

	children := mergedChildren(t, result.Records[0], "Contacts")
	childRecord(t, children, 0)

	if result.Stats == nil || result.Stats.RecordsFetched != 1 {
		t.Errorf("Expected stats with 1 fetch, got %+v", result.Stats)
	}
	if result.Stats.RunID != result.RunID {
		t.Errorf("Expected stats run id %s, got %s", result.RunID, result.Stats.RunID)
	}
	if result.CompletedAt.Before(result.StartedAt) {
		t.Error("Expected completion after start")
	}

	if len(store.listCalls) != 1 {
		t.Fatalf("Expected 1 list call, got %d", len(store.listCalls))
	}
	if store.listCalls[0].Filter != "{Status}='active'" {
		t.Errorf("Expected job filter passed through, got %q", store.listCalls[0].Filter)
	}
}

func TestRunner_Run_ListQueryParams(t *testing.T) {
	store := newFakeStore()
	store.listFn = func(table string, q airtable.ListQuery) ([]*record.Record, error) {
		return nil, nil
	}

	jobCfg := &config.JobConfig{
		Table:      "Clients",
		Filter:     "{Status}='active'",
		View:       "Active clients",
		MaxRecords: 25,
	}
	runner := newTestRunner(t, store, jobCfg)

	if _, err := runner.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	q := store.listCalls[0]
	if q.View != "Active clients" {
		t.Errorf("Expected view passed through, got %q", q.View)
	}
	if q.MaxRecords != 25 {
		t.Errorf("Expected max records 25, got %d", q.MaxRecords)
	}
}

func TestRunner_Run_ByIDSelection(t *testing.T) {
	store := newFakeStore()
	recA := record.New("Clients", "recCLIENT00000001", map[string]interface{}{"Name": "A"})
	recB := record.New("Clients", "recCLIENT00000002", map[string]interface{}{"Name": "B"})
	store.listFn = func(table string, q airtable.ListQuery) ([]*record.Record, error) {
		// Store order differs from the configured order
		return []*record.Record{recB, recA}, nil
	}

	jobCfg := &config.JobConfig{
		Table:     "Clients",
		RecordIDs: []string{"recCLIENT00000001", "recCLIENT00000002"},
	}
	runner := newTestRunner(t, store, jobCfg)

	result, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(result.Records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(result.Records))
	}
	if result.Records[0].ID != "recCLIENT00000001" || result.Records[1].ID != "recCLIENT00000002" {
		t.Errorf("Expected configured id order, got %s then %s",
			result.Records[0].ID, result.Records[1].ID)
	}

	filter := store.listCalls[0].Filter
	if !strings.Contains(filter, "RECORD_ID()='recCLIENT00000001'") {
		t.Errorf("Expected RECORD_ID formula, got %q", filter)
	}
	if !strings.HasPrefix(filter, "OR(") {
		t.Errorf("Expected OR formula for multiple ids, got %q", filter)
	}
}

func TestRunner_Run_ByIDMissingRecords(t *testing.T) {
	store := newFakeStore()
	recA := record.New("Clients", "recCLIENT00000001", map[string]interface{}{"Name": "A"})
	store.listFn = func(table string, q airtable.ListQuery) ([]*record.Record, error) {
		return []*record.Record{recA}, nil
	}

	jobCfg := &config.JobConfig{
		Table:     "Clients",
		RecordIDs: []string{"recCLIENT00000001", "recGONE0000000001"},
	}
	runner := newTestRunner(t, store, jobCfg)

	result, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(result.Records) != 1 {
		t.Fatalf("Expected missing id dropped, got %d records", len(result.Records))
	}
	if result.Records[0].ID != "recCLIENT00000001" {
		t.Errorf("Expected surviving record, got %s", result.Records[0].ID)
	}
}

func TestRunner_Run_ByIDDuplicatesCollapsed(t *testing.T) {
	store := newFakeStore()
	recA := record.New("Clients", "recCLIENT00000001", map[string]interface{}{"Name": "A"})
	store.listFn = func(table string, q airtable.ListQuery) ([]*record.Record, error) {
		return []*record.Record{recA}, nil
	}

	jobCfg := &config.JobConfig{
		Table:     "Clients",
		RecordIDs: []string{"recCLIENT00000001", "recCLIENT00000001"},
	}
	runner := newTestRunner(t, store, jobCfg)

	result, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(result.Records) != 1 {
		t.Errorf("Expected duplicate id collapsed, got %d records", len(result.Records))
	}
}

func TestRunner_Run_ByIDChunking(t *testing.T) {
	ids := make([]string, 0, rootFetchChunk+10)
	for i := 0; i < rootFetchChunk+10; i++ {
		ids = append(ids, fmt.Sprintf("recBULK%010d", i))
	}

	store := newFakeStore()
	store.listFn = func(table string, q airtable.ListQuery) ([]*record.Record, error) {
		var out []*record.Record
		for _, id := range ids {
			if strings.Contains(q.Filter, id) {
				out = append(out, record.New(table, id, map[string]interface{}{}))
			}
		}
		return out, nil
	}

	jobCfg := &config.JobConfig{Table: "Clients", RecordIDs: ids}
	runner := newTestRunner(t, store, jobCfg)

	result, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(store.listCalls) != 2 {
		t.Fatalf("Expected 2 chunked list calls, got %d", len(store.listCalls))
	}
	if strings.Contains(store.listCalls[0].Filter, ids[rootFetchChunk]) {
		t.Error("Expected second chunk's ids out of the first formula")
	}
	if len(result.Records) != len(ids) {
		t.Errorf("Expected %d records, got %d", len(ids), len(result.Records))
	}
}

// ============================================================================
// Degraded Run Tests
// ============================================================================

func TestRunner_Run_SchemaFailureFallback(t *testing.T) {
	store := newFakeStore()
	store.schemaErr = errors.New("metadata api down")
	store.listFn = func(table string, q airtable.ListQuery) ([]*record.Record, error) {
		return []*record.Record{
			record.New(table, "recCLIENT00000001", map[string]interface{}{
				"Contacts": []interface{}{"recCONTACT0000001"},
			}),
		}, nil
	}

	runner := newTestRunner(t, store, testJobConfig())

	result, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Expected degraded run, not an error: %v", err)
	}

	if result.Success {
		t.Error("Expected degraded run to report Success=false")
	}
	if result.SchemaErr == nil {
		t.Error("Expected schema error recorded on the result")
	}
	if len(result.Records) != 1 {
		t.Fatalf("Expected unexpanded roots returned, got %d records", len(result.Records))
	}

	// The root ships untouched: still a raw reference list
	value, _ := result.Records[0].Get("Contacts")
	list, ok := value.([]interface{})
	if !ok || list[0] != "recCONTACT0000001" {
		t.Errorf("Expected raw reference list, got %v", value)
	}

	if len(store.calls) != 0 {
		t.Errorf("Expected no record fetches, got %v", store.calls)
	}
	if result.Stats.RootRecords != 1 {
		t.Errorf("Expected stats to count roots, got %d", result.Stats.RootRecords)
	}
}

func TestRunner_Run_PreflightFailure(t *testing.T) {
	store := newFakeStore()

	jobCfg := &config.JobConfig{Table: "Ghosts", Filter: "{Status}='active'"}
	runner := newTestRunner(t, store, jobCfg)

	_, err := runner.Run(context.Background())
	if err == nil {
		t.Fatal("Expected preflight failure")
	}

	var pfErr *PreflightError
	if !errors.As(err, &pfErr) {
		t.Fatalf("Expected PreflightError, got %T", err)
	}
	if len(store.listCalls) != 0 {
		t.Errorf("Expected no root selection after preflight failure, got %d calls", len(store.listCalls))
	}
}

func TestRunner_Run_InvalidOptionsBeforeAnyCall(t *testing.T) {
	store := newFakeStore()
	runner := newTestRunner(t, store, testJobConfig())

	cfg := runner.GetExpansionConfig()
	cfg.MaxDepth = 0
	runner.UpdateExpansionConfig(cfg)

	_, err := runner.Run(context.Background())
	if err == nil {
		t.Fatal("Expected options error")
	}

	var optsErr *OptionsError
	if !errors.As(err, &optsErr) {
		t.Fatalf("Expected OptionsError, got %T", err)
	}
	if store.schemaCalls != 0 {
		t.Errorf("Expected no schema call before validation, got %d", store.schemaCalls)
	}
	if len(store.listCalls) != 0 {
		t.Errorf("Expected no list calls before validation, got %d", len(store.listCalls))
	}
}

// ============================================================================
// ExpandRecords Tests
// ============================================================================

func TestRunner_ExpandRecords(t *testing.T) {
	store := newFakeStore()
	store.add(record.New("tblCONTACTS000001", "recCONTACT0000001", map[string]interface{}{
		"Name": "Ada",
	}))

	runner := newTestRunner(t, store, testJobConfig())

	// No table on the input record; the job's table applies
	root := record.New("", "recCLIENT00000001", map[string]interface{}{
		"Contacts": []interface{}{"recCONTACT0000001"},
	})

	result, err := runner.ExpandRecords(context.Background(), []*record.Record{root})
	if err != nil {
		t.Fatalf("ExpandRecords failed: %v", err)
	}

	if !result.Success {
		t.Error("Expected a successful run")
	}
	if len(store.listCalls) != 0 {
		t.Errorf("Expected no root selection for supplied records, got %d calls", len(store.listCalls))
	}

	children := mergedChildren(t, result.Records[0], "Contacts")
	contact := childRecord(t, children, 0)
	if name, _ := contact.Get("Name"); name != "Ada" {
		t.Errorf("Expected expanded contact, got %v", name)
	}

	// The caller's record is not relabeled in place
	if root.Table != "" {
		t.Errorf("Expected input record table untouched, got %q", root.Table)
	}
}

func TestRunner_ExpandRecords_KeepsExplicitTable(t *testing.T) {
	store := newFakeStore()
	runner := newTestRunner(t, store, testJobConfig())

	root := record.New("Invoices", "recINVOICE0000001", map[string]interface{}{
		"Amount": 250,
	})

	result, err := runner.ExpandRecords(context.Background(), []*record.Record{root})
	if err != nil {
		t.Fatalf("ExpandRecords failed: %v", err)
	}

	if result.Records[0].Table != "Invoices" {
		t.Errorf("Expected explicit table kept, got %q", result.Records[0].Table)
	}
}
