package storage

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logx "hwbot/pkg/logx"
)

func TestOpenDisabled(t *testing.T) {
	for _, d := range []string{"", "none", " NONE "} {
		st, err := Open(Config{Driver: d}, logx.Nop())
		require.NoError(t, err)
		assert.Nil(t, st)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "redis"}, logx.Nop())
	require.Error(t, err)
}

func TestFileStoreAppendsJSONLines(t *testing.T) {
	dir := t.TempDir()
	st, err := Open(Config{Driver: "file", Path: filepath.Join(dir, "hwbot.db")}, logx.Nop())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, st.AppendAudit(ctx, AuditEntry{Kind: KindNotify, Target: "42", Text: "a", Status: "sent"}))
	require.NoError(t, st.AppendAudit(ctx, AuditEntry{Kind: KindPoll, Status: "approved"}))
	require.NoError(t, st.Close())

	f, err := os.Open(filepath.Join(dir, "hwbot.audit.jsonl"))
	require.NoError(t, err)
	defer f.Close()

	var got []AuditEntry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e AuditEntry
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e))
		got = append(got, e)
	}
	require.Len(t, got, 2)
	assert.Equal(t, KindNotify, got[0].Kind)
	assert.Equal(t, "sent", got[0].Status)
	assert.False(t, got[0].At.IsZero())
	assert.Equal(t, KindPoll, got[1].Kind)

	// Closed store refuses writes.
	require.Error(t, st.AppendAudit(ctx, AuditEntry{Kind: KindPoll}))
}

func TestSQLiteStoreInsertsRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.sqlite")
	st, err := Open(Config{Driver: "sqlite", Path: path}, logx.Nop())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, st.AppendAudit(ctx, AuditEntry{Kind: KindNotify, Target: "42", Text: "hi", Status: "sent", TookMS: 12}))
	require.NoError(t, st.AppendAudit(ctx, AuditEntry{Kind: KindPoll, Error: "boom"}))
	require.NoError(t, st.Close())

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM audit`).Scan(&n))
	assert.Equal(t, 2, n)

	var text string
	var took int64
	require.NoError(t, db.QueryRow(`SELECT text, took_ms FROM audit WHERE kind = 'notify'`).Scan(&text, &took))
	assert.Equal(t, "hi", text)
	assert.Equal(t, int64(12), took)
}
