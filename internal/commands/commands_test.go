package commands

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mileagekit/mileage/internal/config"
	"github.com/mileagekit/mileage/internal/gitops"
	"github.com/mileagekit/mileage/internal/history"
	"github.com/mileagekit/mileage/internal/model"
	"github.com/mileagekit/mileage/internal/notify"
)

var fixedNow = time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

type stubSender struct {
	sent []notify.Message
	err  error
}

func (s *stubSender) Send(_ context.Context, m notify.Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, m)
	return nil
}

type testEnv struct {
	dir    string
	sender *stubSender
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return &testEnv{dir: t.TempDir(), sender: &stubSender{}}
}

func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	a := &app{
		now:    func() time.Time { return fixedNow },
		logger: zap.NewNop(),
		sender: e.sender,
	}
	cmd := newRootCommand(a)
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(append([]string{"--config", filepath.Join(e.dir, config.FileName)}, args...))
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func (e *testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	require.NoError(t, err, out)
	return out
}

// addedID pulls the short ID out of "Added 1a2b3c4d: ...".
func addedID(t *testing.T, out string) string {
	t.Helper()
	fields := strings.Fields(out)
	require.GreaterOrEqual(t, len(fields), 2, out)
	return strings.TrimSuffix(fields[1], ":")
}

func TestInit_WritesConfigAndStore(t *testing.T) {
	env := newTestEnv(t)
	project := filepath.Join(env.dir, "books")

	out := env.mustRun(t, "init", project, "--owner", "alice", "--year", "2024")
	assert.Contains(t, out, "owner alice")

	cfg, err := config.Load(filepath.Join(project, config.FileName))
	require.NoError(t, err)
	assert.Equal(t, "alice", cfg.Owner)
	assert.Equal(t, 2024, cfg.TaxYear)
	assert.FileExists(t, filepath.Join(project, "mileage.db"))

	gitignore, err := os.ReadFile(filepath.Join(project, ".gitignore"))
	require.NoError(t, err)
	assert.Contains(t, string(gitignore), "mileage.db")

	_, err = env.run(t, "init", project)
	assert.Error(t, err, "existing config without --force")
	env.mustRun(t, "init", project, "--force")
}

func TestInit_UnknownYear(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(t, "init", filepath.Join(env.dir, "p"), "--year", "1999")
	assert.Error(t, err)
}

func TestRates(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun(t, "rates", "get", "business", "--year", "2024")
	assert.Equal(t, "2024 Business: $0.670/mile\n", out)

	out = env.mustRun(t, "rates", "get", "medical")
	assert.Equal(t, "2025 Medical/Moving: $0.210/mile\n", out)

	_, err := env.run(t, "rates", "get", "commuting")
	assert.Error(t, err)

	_, err = env.run(t, "rates", "get", "business", "--year", "1990")
	assert.Error(t, err)

	out = env.mustRun(t, "rates", "list", "--year", "2023")
	assert.Contains(t, out, "BUSINESS CHANGE")
	assert.Contains(t, out, "$0.655")

	out = env.mustRun(t, "rates", "list", "--csv", "--year", "2025")
	assert.Contains(t, out, "0.70")
}

func TestCalc_Business(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun(t, "calc", "--business", "1000", "--year", "2025")
	assert.Contains(t, out, "Total Deduction: $700.00")
	assert.Contains(t, out, "22% bracket: $154.00")
	assert.Contains(t, out, "Disclaimer")
}

func TestCalc_MultiCategoryWithReimbursement(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun(t, "calc", "--business", "1,000", "--medical", "100", "--reimbursement", "$200", "--year", "2025")
	assert.Contains(t, out, "Total Deduction: $521.00")
	assert.Contains(t, out, "22% bracket: $114.62")
}

func TestCalc_ReimbursementExceedsGross(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun(t, "calc", "--business", "100", "--reimbursement", "500", "--year", "2025")
	assert.Contains(t, out, "Total Deduction: $0.00")
}

func TestCalc_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no miles", []string{"calc"}},
		{"negative miles", []string{"calc", "--business", "-5"}},
		{"not a number", []string{"calc", "--business", "lots"}},
		{"unknown year", []string{"calc", "--business", "10", "--year", "1990"}},
		{"negative reimbursement", []string{"calc", "--business", "10", "--reimbursement", "-1"}},
		{"pdf to stdout", []string{"calc", "--business", "10", "--format", "pdf"}},
		{"unknown format", []string{"calc", "--business", "10", "--format", "docx"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			_, err := env.run(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestCalc_Outputs(t *testing.T) {
	env := newTestEnv(t)

	csvPath := filepath.Join(env.dir, "calc.csv")
	out := env.mustRun(t, "calc", "--business", "250", "--format", "csv", "--output", csvPath)
	assert.Contains(t, out, "Wrote "+csvPath)
	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "tax_year,purpose,miles,rate,gross,reimbursement,net\n"))

	pdfPath := filepath.Join(env.dir, "calc.pdf")
	env.mustRun(t, "calc", "--business", "250", "--format", "pdf", "--output", pdfPath)
	data, err = os.ReadFile(pdfPath)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestCalc_SaveAndHistory(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun(t, "history")
	assert.Contains(t, out, "No saved calculations.")

	env.mustRun(t, "calc", "--business", "1000", "--year", "2025", "--save")
	env.mustRun(t, "calc", "--charitable", "50", "--year", "2025", "--save")

	entries, err := history.Read(filepath.Join(env.dir, "calculations.csv"))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "7.00", entries[0].TotalDeduction.StringFixed(2), "newest first")
	assert.Equal(t, "700.00", entries[1].TotalDeduction.StringFixed(2))

	out = env.mustRun(t, "history")
	assert.Contains(t, out, "$700.00")
	assert.Contains(t, out, "$7.00")
}

func TestCalc_Email(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "calc", "--business", "1000", "--email", "not-an-address")
	var verr model.ValidationError
	require.True(t, errors.As(err, &verr), "got %v", err)
	assert.Equal(t, "email", verr.Field)
	assert.Empty(t, env.sender.sent)

	out := env.mustRun(t, "calc", "--business", "1000", "--year", "2025", "--email", "Pat <pat@example.com>")
	assert.Contains(t, out, "Emailed summary to pat@example.com.")
	require.Len(t, env.sender.sent, 1)
	assert.Equal(t, "pat@example.com", env.sender.sent[0].To)
	assert.Contains(t, env.sender.sent[0].Body, "700.00")

	out = env.mustRun(t, "emails")
	assert.Contains(t, out, "pat@example.com")
	assert.Contains(t, out, "calculation")
	assert.Contains(t, out, "sent")
}

func TestEmails_RecordsFailure(t *testing.T) {
	env := newTestEnv(t)
	env.sender.err = errors.New("connection refused")

	_, err := env.run(t, "calc", "--business", "10", "--email", "pat@example.com")
	require.Error(t, err)

	out := env.mustRun(t, "emails")
	assert.Contains(t, out, "failed: connection refused")
}

func TestLog_OdometerTrip(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun(t, "log", "add", "--date", "2025-01-15", "--from", "Office", "--to", "Client Site",
		"--purpose", "Quarterly review", "--start-odometer", "1000", "--end-odometer", "1250")
	assert.Contains(t, out, "Office -> Client Site, 250.0 miles")

	out = env.mustRun(t, "log", "list")
	assert.Contains(t, out, "1000-1250")
	assert.Contains(t, out, "1 trips, 250.0 miles")
}

func TestLog_AddValidation(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "log", "add", "--date", "15/01/2025", "--from", "A", "--purpose", "x", "--miles", "abc")
	var verrs model.ValidationErrors
	require.True(t, errors.As(err, &verrs), "got %v", err)
	assert.True(t, verrs.Has("date"))
	assert.True(t, verrs.Has("miles"))

	_, err = env.run(t, "log", "add", "--from", "A", "--purpose", "x", "--miles", "5")
	require.True(t, errors.As(err, &verrs), "got %v", err)
	assert.True(t, verrs.Has("end_location"))

	out := env.mustRun(t, "log", "list")
	assert.Contains(t, out, "No trips logged.")
}

func TestLog_AddDefaultsToToday(t *testing.T) {
	env := newTestEnv(t)

	env.mustRun(t, "log", "add", "--from", "A", "--to", "B", "--purpose", "Errand", "--miles", "3")
	out := env.mustRun(t, "log", "list", "--month", "2025-03")
	assert.Contains(t, out, "2025-03-10")
}

func TestLog_AddRemoveTotals(t *testing.T) {
	env := newTestEnv(t)

	var ids []string
	for _, miles := range []string{"100", "50", "25"} {
		out := env.mustRun(t, "log", "add", "--date", "2025-02-01", "--from", "A", "--to", "B",
			"--purpose", "Visit", "--miles", miles)
		ids = append(ids, addedID(t, out))
	}

	out := env.mustRun(t, "log", "list")
	assert.Contains(t, out, "3 trips, 175.0 miles")

	out = env.mustRun(t, "log", "rm", ids[1])
	assert.Contains(t, out, "Removed "+ids[1])
	assert.Contains(t, out, "Total: 125.0 miles")

	_, err := env.run(t, "log", "rm", ids[1])
	assert.Error(t, err, "already removed")

	out = env.mustRun(t, "log", "list")
	assert.Contains(t, out, "2 trips, 125.0 miles")
	assert.NotContains(t, out, ids[1])
}

func TestLog_ListMonthFilter(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "log", "add", "--date", "2025-01-31", "--from", "A", "--to", "B", "--purpose", "P", "--miles", "10")
	env.mustRun(t, "log", "add", "--date", "2025-02-01", "--from", "A", "--to", "B", "--purpose", "P", "--miles", "20")

	out := env.mustRun(t, "log", "list", "--month", "2025-02")
	assert.Contains(t, out, "1 trips, 20.0 miles")

	_, err := env.run(t, "log", "list", "--month", "Feb")
	assert.Error(t, err)
}

func TestLog_Clear(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "log", "add", "--date", "2025-01-31", "--from", "A", "--to", "B", "--purpose", "P", "--miles", "10")

	_, err := env.run(t, "log", "clear")
	assert.Error(t, err)

	out := env.mustRun(t, "log", "clear", "--yes")
	assert.Contains(t, out, "Cleared 1 trips.")

	out = env.mustRun(t, "log", "list")
	assert.Contains(t, out, "No trips logged.")
}

func TestLog_Export(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "log", "add", "--date", "2025-01-15", "--from", "Office", "--to", "Client Site",
		"--purpose", "Quarterly review", "--start-odometer", "1000", "--end-odometer", "1250")

	out := env.mustRun(t, "log", "export", "--year", "2025")
	assert.Contains(t, out, "Mileage Log - 2025")
	assert.Contains(t, out, "Total miles: 250.0")
	assert.Contains(t, out, "Total deduction: $175.00 (Business @ $0.700/mile)")

	out = env.mustRun(t, "log", "export", "--format", "csv")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "id,date,start_location,end_location,business_purpose,start_odometer,end_odometer,total_miles,country", lines[0])
	assert.Contains(t, lines[1], "2025-01-15,Office,Client Site,Quarterly review,1000.0,1250.0,250.0,US")

	pdfPath := filepath.Join(env.dir, "log.pdf")
	env.mustRun(t, "log", "export", "--format", "pdf", "--output", pdfPath, "--purpose", "charitable")
	data, err := os.ReadFile(pdfPath)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestLog_ImportFile(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun(t, "log", "import", filepath.Join("..", "..", "testdata", "web_log.csv"))
	assert.Contains(t, out, "Imported 3 trips")
	assert.Contains(t, out, "(web)")
	assert.Contains(t, out, "Total: 3 trips, 310.9 miles")

	out = env.mustRun(t, "log", "import", filepath.Join("..", "..", "testdata", "native_log.csv"), "--format", "native")
	assert.Contains(t, out, "Total: 5 trips, 348.4 miles")
}

func TestLog_ImportDir(t *testing.T) {
	env := newTestEnv(t)
	inbox := filepath.Join(env.dir, "inbox")
	require.NoError(t, os.MkdirAll(inbox, 0o755))
	for _, name := range []string{"web_log.csv", "native_log.csv"} {
		data, err := os.ReadFile(filepath.Join("..", "..", "testdata", name))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(inbox, name), data, 0o644))
	}

	out := env.mustRun(t, "log", "import", inbox)
	assert.Contains(t, out, "Total: 5 trips, 348.4 miles")
	assert.FileExists(t, filepath.Join(inbox, "processed", "web_log.csv"))
	assert.NoFileExists(t, filepath.Join(inbox, "web_log.csv"))

	out = env.mustRun(t, "log", "import", inbox)
	assert.Contains(t, out, "No CSV files to import.")
}

func TestLog_Email(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "log", "add", "--date", "2025-01-15", "--from", "Office", "--to", "Bank",
		"--purpose", "Deposit", "--miles", "12")

	out := env.mustRun(t, "log", "email", "pat@example.com")
	assert.Contains(t, out, "Emailed log to pat@example.com.")
	require.Len(t, env.sender.sent, 1)
	assert.Equal(t, model.EmailLog, env.sender.sent[0].Kind)
	assert.Contains(t, env.sender.sent[0].Subject, "mileage log")

	out = env.mustRun(t, "emails")
	assert.Contains(t, out, "log")
}

func TestOwnerFromEnvFile(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(env.dir, ".env"), []byte("MILEAGE_OWNER=bob\n"), 0o644))

	env.mustRun(t, "log", "add", "--date", "2025-01-15", "--from", "A", "--to", "B", "--purpose", "P", "--miles", "4")
	out := env.mustRun(t, "log", "export")
	assert.Contains(t, out, "Owner: bob")

	require.NoError(t, os.Remove(filepath.Join(env.dir, ".env")))
	out = env.mustRun(t, "log", "list")
	assert.Contains(t, out, "No trips logged.", "trips belong to bob")
}

func TestInit_GitAndCommitExport(t *testing.T) {
	if !gitops.Available() {
		t.Skip("git not installed")
	}
	env := newTestEnv(t)

	out := env.mustRun(t, "init", env.dir, "--owner", "alice", "--git")
	assert.Contains(t, out, "Committed ")
	assert.True(t, gitops.IsRepo(env.dir))

	env.mustRun(t, "log", "add", "--date", "2025-01-15", "--from", "A", "--to", "B", "--purpose", "P", "--miles", "4")
	exported := filepath.Join(env.dir, "trips.csv")
	out = env.mustRun(t, "log", "export", "--format", "csv", "--output", exported, "--commit")
	assert.Contains(t, out, "Committed ")

	repo := &gitops.Repo{Dir: env.dir}
	msg, err := repo.LastMessage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "log: export 1 trips for 2025", msg)

	_, err = env.run(t, "log", "export", "--commit")
	assert.Error(t, err, "--commit without --output")
}

func TestLog_ImportUsesConfiguredCountry(t *testing.T) {
	env := newTestEnv(t)
	cfg := config.Default("alice")
	cfg.Country = "CA"
	require.NoError(t, config.Save(filepath.Join(env.dir, config.FileName), cfg))

	env.mustRun(t, "log", "import", filepath.Join("..", "..", "testdata", "web_log.csv"))

	out := env.mustRun(t, "log", "export", "--format", "csv")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	for _, line := range lines[1:] {
		assert.True(t, strings.HasSuffix(line, ",CA"), line)
	}

	// Rows that carry a country keep it.
	env.mustRun(t, "log", "import", filepath.Join("..", "..", "testdata", "native_log.csv"))
	out = env.mustRun(t, "log", "export", "--format", "csv")
	lines = strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 6)
	assert.True(t, strings.HasSuffix(lines[4], ",US"), lines[4])
}

func TestProjectRelative(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{"inside", filepath.Join(dir, "trips.csv"), "trips.csv", false},
		{"nested", filepath.Join(dir, "exports", "trips.pdf"), filepath.Join("exports", "trips.pdf"), false},
		{"dot-dot file name", filepath.Join(dir, "..trips.csv"), "..trips.csv", false},
		{"parent", filepath.Join(dir, "..", "trips.csv"), "", true},
		{"parent itself", filepath.Dir(dir), "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := projectRelative(dir, tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
