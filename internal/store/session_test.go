package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronostack-lang/chronostack/internal/compiler"
	"github.com/chronostack-lang/chronostack/internal/engine"
	"github.com/chronostack-lang/chronostack/internal/ir"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleSession(t *testing.T, name string) Session {
	t.Helper()
	tl := engine.NewTimeline()
	tl.Tick([]ir.Value{ir.NewNumber(10)})
	tl.Tick([]ir.Value{ir.NewNumber(10), ir.NewText("café")})
	require.NoError(t, tl.Fork("alt"))
	tl.Tick([]ir.Value{ir.NewNumber(10), ir.NewText("café"), ir.NewBool(true)})
	_, err := tl.Send(ir.NewNumber(99), 1)
	require.NoError(t, err)

	body, err := compiler.ParseSource("dup +")
	require.NoError(t, err)

	return Session{
		Name:     name,
		Timeline: tl.Snapshot(),
		Stack:    []ir.Value{ir.NewNumber(42), ir.NewText("working")},
		Words:    map[string][]ir.Instruction{"double": body},
	}
}

func TestStore_Open_AppliesPragmas(t *testing.T) {
	s := openTestStore(t)

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
}

func TestStore_SaveLoadSession_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	want := sampleSession(t, "experiment")

	id, err := s.SaveSession(ctx, want)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := s.LoadSession(ctx, "experiment")
	require.NoError(t, err)

	assert.Equal(t, id, got.ID)
	assert.Equal(t, want.Timeline.Active, got.Timeline.Active)
	assert.Equal(t, want.Timeline.Index, got.Timeline.Index)
	assert.True(t, ir.EqualStacks(want.Stack, got.Stack))

	require.Len(t, got.Timeline.Branches, len(want.Timeline.Branches))
	for i, wb := range want.Timeline.Branches {
		gb := got.Timeline.Branches[i]
		assert.Equal(t, wb.Name, gb.Name)
		assert.Equal(t, wb.Parent, gb.Parent)
		assert.Equal(t, wb.ForkIndex, gb.ForkIndex)
		assert.Equal(t, wb.ForkLen, gb.ForkLen)
		assert.Equal(t, wb.HasParent, gb.HasParent)
		require.Len(t, gb.Moments, len(wb.Moments))
		for j, wm := range wb.Moments {
			gm := gb.Moments[j]
			assert.True(t, ir.EqualStacks(wm.Stack, gm.Stack), "moment %s/%d", wb.Name, j)
			assert.Equal(t, wm.Paradox, gm.Paradox)
			if wm.Resolved != nil {
				require.NotNil(t, gm.Resolved)
				assert.True(t, ir.Equal(wm.Resolved, gm.Resolved))
			}
		}
	}

	require.Contains(t, got.Words, "double")
	assert.Len(t, got.Words["double"], 2)
}

func TestStore_LoadedSessionResumes(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.SaveSession(ctx, sampleSession(t, "resumable"))
	require.NoError(t, err)

	got, err := s.LoadSession(ctx, "resumable")
	require.NoError(t, err)

	tl, err := engine.RestoreTimeline(got.Timeline)
	require.NoError(t, err)
	assert.Equal(t, "alt", tl.ActiveBranch())

	tl.Tick([]ir.Value{ir.NewNumber(1)})
	assert.Equal(t, 3, tl.Active().Len())
}

func TestStore_SaveSession_OverwriteKeepsID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first, err := s.SaveSession(ctx, sampleSession(t, "same"))
	require.NoError(t, err)

	updated := sampleSession(t, "same")
	updated.Stack = []ir.Value{ir.NewNumber(7)}
	second, err := s.SaveSession(ctx, updated)
	require.NoError(t, err)

	assert.Equal(t, first, second)

	got, err := s.LoadSession(ctx, "same")
	require.NoError(t, err)
	assert.True(t, ir.EqualStacks(updated.Stack, got.Stack))
}

func TestStore_LoadSession_NotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.LoadSession(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_LoadSession_DetectsTampering(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.SaveSession(ctx, sampleSession(t, "tampered"))
	require.NoError(t, err)

	altered, err := ir.MarshalStack([]ir.Value{ir.NewNumber(666)})
	require.NoError(t, err)
	_, err = s.db.ExecContext(ctx, `UPDATE moments SET stack = ? WHERE branch = ? AND idx = 0`,
		string(altered), engine.MainBranch)
	require.NoError(t, err)

	_, err = s.LoadSession(ctx, "tampered")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hash mismatch")
}

func TestStore_ListSessions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.SaveSession(ctx, sampleSession(t, "one"))
	require.NoError(t, err)
	_, err = s.SaveSession(ctx, sampleSession(t, "two"))
	require.NoError(t, err)

	metas, err := s.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, metas, 2)
	names := []string{metas[0].Name, metas[1].Name}
	assert.ElementsMatch(t, []string{"one", "two"}, names)
	assert.False(t, metas[0].UpdatedAt.IsZero())
}

func TestStore_DeleteSession(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.SaveSession(ctx, sampleSession(t, "doomed"))
	require.NoError(t, err)

	require.NoError(t, s.DeleteSession(ctx, "doomed"))

	_, err = s.LoadSession(ctx, "doomed")
	assert.ErrorIs(t, err, ErrNotFound)

	var moments int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM moments`).Scan(&moments))
	assert.Zero(t, moments, "cascade removes the timeline rows")

	assert.ErrorIs(t, s.DeleteSession(ctx, "doomed"), ErrNotFound)
}
