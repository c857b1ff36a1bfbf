package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestPowerCommand(t *testing.T) {
	out, err := run(t, "power", "--n", "50")
	require.NoError(t, err)
	assert.Contains(t, out, "0.6969")

	out, err = run(t, "power", "--target", "200", "--actual", "100")
	require.NoError(t, err)
	assert.Regexp(t, `Recommended total:\s+128\n`, out)
	assert.Regexp(t, `Underpowered:\s+true`, out)

	_, err = run(t, "power")
	assert.Error(t, err)

	_, err = run(t, "power", "--n", "50", "--alpha", "2")
	assert.Error(t, err)
}

func TestSampleSizeCommand(t *testing.T) {
	out, err := run(t, "sample-size")
	require.NoError(t, err)
	assert.Contains(t, out, "64 per group (128 total)")

	out, err = run(t, "sample-size", "--effect-size", "0.8")
	require.NoError(t, err)
	assert.Contains(t, out, "26 per group")
}

func TestBudgetCommand(t *testing.T) {
	args := []string{"budget", "--phase", "Phase 3", "--target", "200", "--actual", "85", "--sites", "15", "--months", "8"}

	out, err := run(t, args...)
	require.NoError(t, err)
	assert.Regexp(t, `Cost tier:\s+PHASE3`, out)
	assert.Contains(t, out, "Total budget: $20.6M")
	assert.Regexp(t, `Runway:\s+12\.1 months`, out)
	assert.Regexp(t, `Status:\s+ON TRACK`, out)

	out, err = run(t, append(args, "--json")...)
	require.NoError(t, err)
	var r map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	assert.Equal(t, 20_550_000.0, r["total_budget"])

	_, err = run(t, "budget", "--actual=-1")
	assert.Error(t, err)
}

func TestForecastCommand(t *testing.T) {
	out, err := run(t, "forecast", "--target", "300", "--days", "120", "--final", "60", "--json")
	require.NoError(t, err)

	var fc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &fc))
	assert.EqualValues(t, 60, fc["current_enrolled"])
	assert.EqualValues(t, 120, fc["current_day"])
	assert.NotNil(t, fc["completion_date"])

	out, err = run(t, "forecast", "--target", "300", "--days", "120", "--final", "60")
	require.NoError(t, err)
	assert.Regexp(t, `Enrolled:\s+60 of 300 \(day 120\)`, out)
	assert.Contains(t, out, "95% CI:")

	_, err = run(t, "forecast", "--start", "not-a-date")
	assert.Error(t, err)
}
