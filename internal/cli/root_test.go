package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfigueroa/rutero/internal/api"
	"github.com/mfigueroa/rutero/internal/api/apitest"
	"github.com/mfigueroa/rutero/internal/model"
	"github.com/mfigueroa/rutero/internal/store"
)

// cliEnv is a scratch config file, store, and fake server for running
// whole commands.
type cliEnv struct {
	configPath string
	storePath  string
	server     *apitest.Server
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	dir := t.TempDir()

	srv := apitest.NewServer()
	t.Cleanup(srv.Close)
	srv.AllowUpload("agent-1")

	configPath := filepath.Join(dir, "rutero.yaml")
	storePath := filepath.Join(dir, "rutero.db")
	cfg := fmt.Sprintf("api:\n  base_url: %s\nstore:\n  path: %s\n", srv.URL(), storePath)
	require.NoError(t, os.WriteFile(configPath, []byte(cfg), 0o644))

	return &cliEnv{configPath: configPath, storePath: storePath, server: srv}
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(append(args, "--config", e.configPath, "--agent", "agent-1"))
	err := cmd.Execute()
	return buf.String(), err
}

func (e *cliEnv) seedLoan(t *testing.T, code string) {
	t.Helper()
	st, err := store.Open(e.storePath)
	require.NoError(t, err)
	defer st.Close()

	loans, err := st.Loans(context.Background())
	require.NoError(t, err)
	loans = append(loans, model.LoanRecord{
		Code:         code,
		AgentID:      "agent-1",
		ClientName:   "Ana",
		Principal:    decimal.NewFromInt(500000),
		InterestRate: decimal.NewFromInt(20),
		Installments: 30,
		Modality:     model.ModalityDaily,
		CreatedOn:    "2025-03-01",
		RouteNumber:  100,
	})
	require.NoError(t, st.SaveLoans(context.Background(), loans))
}

func TestStatusCommand_EmptyStore(t *testing.T) {
	e := newCLIEnv(t)

	out, err := e.run(t, "status", "--format", "json")
	require.NoError(t, err)

	var decoded struct {
		Pending int `json:"pending"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, 0, decoded.Pending)
}

func TestPaymentAddThenStatus(t *testing.T) {
	e := newCLIEnv(t)
	e.seedLoan(t, "L-1")

	_, err := e.run(t, "payment", "add", "L-1", "20000")
	require.NoError(t, err)

	out, err := e.run(t, "status", "--format", "json")
	require.NoError(t, err)

	var decoded struct {
		Pending int `json:"pending"`
		Counts  struct {
			Payments int `json:"payments"`
		} `json:"counts"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, 1, decoded.Pending)
	assert.Equal(t, 1, decoded.Counts.Payments)
}

func TestPaymentAdd_UnknownLoan(t *testing.T) {
	e := newCLIEnv(t)

	_, err := e.run(t, "payment", "add", "L-404", "20000")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestLoanCommand_CreatesTempLoan(t *testing.T) {
	e := newCLIEnv(t)

	out, err := e.run(t, "loan",
		"--client", "Luis",
		"--principal", "300000",
		"--interest", "20",
		"--installments", "30",
		"--format", "json",
	)
	require.NoError(t, err)
	assert.Contains(t, out, model.TempIDPrefix)
	assert.Contains(t, out, "300000")
}

func TestSyncCommand_EndToEnd(t *testing.T) {
	e := newCLIEnv(t)
	e.seedLoan(t, "L-1")

	_, err := e.run(t, "payment", "add", "L-1", "20000")
	require.NoError(t, err)
	_, err = e.run(t, "cash-base", "150000")
	require.NoError(t, err)

	out, err := e.run(t, "sync", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Synced batch")

	batches := e.server.Batches()
	require.Len(t, batches, 1)
	assert.Len(t, batches[0].Payments, 1)
	assert.Len(t, batches[0].CashBases, 1)

	// The queue drained.
	statusOut, err := e.run(t, "status", "--format", "json")
	require.NoError(t, err)
	var decoded struct {
		Pending int `json:"pending"`
	}
	require.NoError(t, json.Unmarshal([]byte(statusOut), &decoded))
	assert.Equal(t, 0, decoded.Pending)
}

func TestSyncCommand_NothingPending(t *testing.T) {
	e := newCLIEnv(t)

	_, err := e.run(t, "sync", "--yes")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "nothing pending")
}

func TestSyncCommand_DeniedLeavesQueue(t *testing.T) {
	e := newCLIEnv(t)
	e.seedLoan(t, "L-1")
	e.server.DenyUpload("agent-1", api.ReasonAlreadyUsedToday)

	_, err := e.run(t, "payment", "add", "L-1", "20000")
	require.NoError(t, err)

	_, err = e.run(t, "sync", "--yes")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already synced today")

	out, err := e.run(t, "status", "--format", "json")
	require.NoError(t, err)
	var decoded struct {
		Pending int `json:"pending"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, 1, decoded.Pending, "failed sync must not clear the outbox")
}

func TestDownloadCommand(t *testing.T) {
	e := newCLIEnv(t)
	e.server.SetWorkingSet("agent-1", api.WorkingSet{
		Loans: []model.LoanRecord{{Code: "L-1", AgentID: "agent-1", Principal: decimal.NewFromInt(500000),
			InterestRate: decimal.NewFromInt(20), Installments: 30, CreatedOn: "2025-03-01"}},
	})

	out, err := e.run(t, "download")
	require.NoError(t, err)
	assert.Contains(t, out, "1 loans")

	// Second download the same day is refused.
	_, err = e.run(t, "download")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already downloaded today")
}

func TestResetCommand_RefusedWithPendingEntries(t *testing.T) {
	e := newCLIEnv(t)
	e.seedLoan(t, "L-1")

	_, err := e.run(t, "payment", "add", "L-1", "20000")
	require.NoError(t, err)

	_, err = e.run(t, "reset")
	require.Error(t, err)

	out, err := e.run(t, "reset", "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "Local store reset")

	statusOut, err := e.run(t, "status", "--format", "json")
	require.NoError(t, err)
	var decoded struct {
		Pending int `json:"pending"`
	}
	require.NoError(t, json.Unmarshal([]byte(statusOut), &decoded))
	assert.Equal(t, 0, decoded.Pending)
}

func TestRootCommand_RejectsBadFormat(t *testing.T) {
	e := newCLIEnv(t)

	_, err := e.run(t, "status", "--format", "xml")
	require.Error(t, err)
}

func TestShowCommand(t *testing.T) {
	e := newCLIEnv(t)
	e.seedLoan(t, "L-1")

	out, err := e.run(t, "show", "L-1", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, "L-1")
}
