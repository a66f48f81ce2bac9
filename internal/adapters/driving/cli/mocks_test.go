package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/portfolio-rag/internal/core/domain"
	"github.com/custodia-labs/portfolio-rag/internal/core/ports/driving"
)

type mockSynchronizer struct {
	report  *domain.SyncReport
	err     error
	status  *driving.SyncStatus
	synced  []string
	deleted []string
	full    int
}

func (m *mockSynchronizer) Sync(_ context.Context) (*domain.SyncReport, error) {
	m.full++
	return m.report, m.err
}

func (m *mockSynchronizer) SyncDocuments(_ context.Context, _ []domain.SourceDocument) (*domain.SyncReport, error) {
	return m.report, m.err
}

func (m *mockSynchronizer) SyncOne(_ context.Context, id string) (*domain.SyncReport, error) {
	m.synced = append(m.synced, id)
	return m.report, m.err
}

func (m *mockSynchronizer) DeleteOne(_ context.Context, id string) (*domain.SyncReport, error) {
	m.deleted = append(m.deleted, id)
	return m.report, m.err
}

func (m *mockSynchronizer) Status(_ context.Context) (*driving.SyncStatus, error) {
	if m.status == nil {
		return &driving.SyncStatus{}, nil
	}
	return m.status, nil
}

type mockRetriever struct {
	results []domain.RetrievedChunk
	err     error
	query   string
	opts    *domain.RetrieveOptions
}

func (m *mockRetriever) Retrieve(_ context.Context, query string, opts *domain.RetrieveOptions) ([]domain.RetrievedChunk, error) {
	m.query = query
	m.opts = opts
	return m.results, m.err
}

type mockIndexService struct {
	stats domain.IndexStats
	err   error
}

func (m *mockIndexService) Stats(_ context.Context) (domain.IndexStats, error) {
	return m.stats, m.err
}

type mockSettingsService struct {
	settings domain.AppSettings
	set      map[string]string
	setErr   error
}

func newMockSettingsService() *mockSettingsService {
	return &mockSettingsService{settings: domain.DefaultAppSettings(), set: map[string]string{}}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(s *domain.AppSettings) error {
	m.settings = *s
	return nil
}

func (m *mockSettingsService) Set(key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.set[key] = value
	return nil
}

func (m *mockSettingsService) Validate() error {
	return m.settings.Validate()
}

func (m *mockSettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

func (m *mockSettingsService) ConfigPath() string {
	return "/home/test/.portfolio-rag/config.toml"
}

// testServices holds the mocks installed by setupTestServices.
type testServices struct {
	sync      *mockSynchronizer
	retriever *mockRetriever
	index     *mockIndexService
	settings  *mockSettingsService
	closed    int
}

func sampleReport() *domain.SyncReport {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := &domain.SyncReport{RunID: "run-1", StartedAt: start, FinishedAt: start.Add(1500 * time.Millisecond)}
	r.Record(domain.ChangeRecord{SourceID: "casa-bonita", SourceType: domain.SourceTypeProject, Action: domain.ChangeAdded, Chunks: 3})
	r.Record(domain.ChangeRecord{SourceID: "me", SourceType: domain.SourceTypeProfile, Action: domain.ChangeUnchanged, Chunks: 2})
	return r
}

// setupTestServices installs mock services and returns a cleanup that restores globals.
func setupTestServices(t *testing.T) *testServices {
	t.Helper()
	ts := &testServices{
		sync:      &mockSynchronizer{report: sampleReport()},
		retriever: &mockRetriever{},
		index:     &mockIndexService{},
		settings:  newMockSettingsService(),
	}

	origLoader, origSettings := servicesLoader, settingsService
	SetSettingsService(ts.settings)
	SetServicesLoader(func(context.Context) (*Services, error) {
		return &Services{
			Synchronizer: ts.sync,
			Retriever:    ts.retriever,
			Index:        ts.index,
			ServerAddr:   ":0",
			Close: func() error {
				ts.closed++
				return nil
			},
		}, nil
	})
	t.Cleanup(func() {
		servicesLoader, settingsService = origLoader, origSettings
	})
	return ts
}

// execute runs the root command with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

// resetFlags restores every flag to its default, since cobra keeps values between runs.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if !f.Changed {
			return
		}
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

var errBoom = errors.New("boom")
