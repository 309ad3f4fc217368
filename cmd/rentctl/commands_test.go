package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/rent-engine/rent"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

const bundle = `{
	"tenancy": {"id": "t-1", "join_date": "2024-01-15", "policy": "CALENDAR", "bed_price": 9000},
	"payments": [{"id": "p-1", "amount": 2000, "paid_on": "2024-01-20"}],
	"as_of": "2024-02-05"
}`

func TestReconcile_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bundle.json")
	require.NoError(t, os.WriteFile(path, []byte(bundle), 0o600))

	out, err := execute(t, "", "reconcile", "-f", path)

	require.NoError(t, err)
	var report rent.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "2024-02-05", report.AsOf.String())
	require.Len(t, report.Gaps, 1)
	assert.Equal(t, "2935.48", report.Gaps[0].RemainingDue.StringFixed(2))
}

func TestReconcile_StdinSummaryAsOfOverride(t *testing.T) {
	out, err := execute(t, bundle, "reconcile", "--summary", "--as-of", "2024-03-05")

	require.NoError(t, err)
	assert.Contains(t, out, "2024-01-15/2024-01-31")
	assert.Contains(t, out, "2024-02-01/2024-02-29")
	assert.Contains(t, out, "11935.48")
}

func TestReconcile_PriorityFlag(t *testing.T) {
	// GIVEN: January and February gaps as of 2024-03-05
	// WHEN: Prioritizing February on the command line
	// THEN: February is listed and recommended first

	out, err := execute(t, bundle, "reconcile", "--as-of", "2024-03-05",
		"--priority", "2024-02-01/2024-02-29=0")

	require.NoError(t, err)
	var report rent.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Gaps, 2)
	assert.Equal(t, "2024-02-01/2024-02-29", report.Gaps[0].CycleID)
	require.NotNil(t, report.Gaps[0].Priority)
	assert.Equal(t, 0, *report.Gaps[0].Priority)
	assert.Nil(t, report.Gaps[1].Priority)
}

func TestReconcile_PriorityFlagOverridesBundle(t *testing.T) {
	hinted := strings.Replace(bundle, `"as_of": "2024-02-05"`,
		`"as_of": "2024-03-05", "priority_hints": {"2024-02-01/2024-02-29": 0}`, 1)

	out, err := execute(t, hinted, "reconcile", "--priority", "2024-02-01/2024-02-29=9",
		"--priority", "2024-01-15/2024-01-31=1")

	require.NoError(t, err)
	var report rent.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Gaps, 2)
	assert.Equal(t, "2024-01-15/2024-01-31", report.Gaps[0].CycleID)
	assert.Equal(t, 9, *report.Gaps[1].Priority)
}

func TestReconcile_BadAsOf(t *testing.T) {
	_, err := execute(t, bundle, "reconcile", "--as-of", "05/03/2024")

	assert.Error(t, err)
}

func TestCycles_MidMonthAnchor31(t *testing.T) {
	out, err := execute(t, "", "cycles", "--policy", "MIDMONTH", "--join", "2024-01-31",
		"--anchor", "31", "--as-of", "2024-04-15", "--price", "9000")

	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[1], "2024-01-31/2024-02-29")
	assert.Contains(t, lines[2], "2024-03-01/2024-03-30")
	assert.Contains(t, lines[3], "2024-03-31/2024-04-30")
}

func TestCycles_InvalidPolicy(t *testing.T) {
	_, err := execute(t, "", "cycles", "--policy", "WEEKLY", "--join", "2024-01-01", "--as-of", "2024-02-01")

	assert.ErrorIs(t, err, rent.ErrInvalidTenancy)
}

func TestTransfer(t *testing.T) {
	out, err := execute(t, "", "transfer", "--start", "2024-03-01", "--end", "2024-03-31",
		"--old", "6000", "--new", "9000", "--on", "2024-03-16")

	require.NoError(t, err)
	var res rent.TransferResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "1548.39", res.Difference.StringFixed(2))
	assert.Equal(t, 16, res.RemainderDays)
}
