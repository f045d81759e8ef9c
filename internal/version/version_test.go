package version

import (
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2026, 10, 17, 23, 59, 0, 0, time.UTC)

func TestAllocate_StartsAtOne(t *testing.T) {
	t.Parallel()

	tag, err := Allocate(memfs.New(), "dist", day)

	require.NoError(t, err)
	require.Equal(t, Tag{Date: "2026-10-17", Counter: 1}, tag)
}

func TestAllocate_IsStableWithoutWrites(t *testing.T) {
	t.Parallel()

	fs := memfs.New()
	require.NoError(t, fs.MkdirAll("dist/v/2026-10-17/v1", 0o755))

	first, err := Allocate(fs, "dist", day)
	require.NoError(t, err)
	second, err := Allocate(fs, "dist", day)
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, 2, first.Counter)
}

func TestAllocate_AdvancesAfterCreate(t *testing.T) {
	t.Parallel()

	fs := memfs.New()
	for want := 1; want <= 4; want++ {
		tag, err := Allocate(fs, "dist", day)
		require.NoError(t, err)
		require.Equal(t, want, tag.Counter)
		require.NoError(t, fs.MkdirAll(tag.SnapshotPath(fs, "dist"), 0o755))
	}
}

func TestAllocate_NewDateRestartsAtOne(t *testing.T) {
	t.Parallel()

	fs := memfs.New()
	for _, n := range []string{"v1", "v2", "v3"} {
		require.NoError(t, fs.MkdirAll("dist/v/2026-10-17/"+n, 0o755))
	}

	tag, err := Allocate(fs, "dist", day.Add(time.Minute))

	require.NoError(t, err)
	require.Equal(t, Tag{Date: "2026-10-18", Counter: 1}, tag)
}

func TestAllocate_FirstGapWins(t *testing.T) {
	t.Parallel()

	fs := memfs.New()
	require.NoError(t, fs.MkdirAll("dist/v/2026-10-17/v1", 0o755))
	require.NoError(t, fs.MkdirAll("dist/v/2026-10-17/v3", 0o755))

	tag, err := Allocate(fs, "dist", day)

	require.NoError(t, err)
	require.Equal(t, 2, tag.Counter)
}

func TestTag_Apply(t *testing.T) {
	t.Parallel()

	tag := Tag{Date: "2026-10-17", Counter: 3}
	testCases := []struct {
		in   string
		want string
	}{
		{in: "main.min.css", want: "main.2026-10-17-v3.min.css"},
		{in: "main.css", want: "main.2026-10-17-v3.css"},
		{in: "tooltip.js", want: "tooltip.2026-10-17-v3.js"},
		{in: "vendor/lib.js", want: "vendor/lib.2026-10-17-v3.js"},
		{in: "README", want: "README.2026-10-17-v3"},
		{in: ".hidden", want: ".hidden.2026-10-17-v3"},
	}
	for _, tc := range testCases {
		require.Equal(t, tc.want, tag.Apply(tc.in), tc.in)
		require.True(t, IsTagged(tag.Apply(tc.in)), tc.in)
		require.False(t, IsTagged(tc.in), tc.in)
	}
}

func TestTag_Strings(t *testing.T) {
	t.Parallel()

	tag := Tag{Date: "2026-10-17", Counter: 12}
	require.Equal(t, "2026-10-17-v12", tag.String())
	require.Equal(t, "2026-10-17/v12", tag.Dir())
}
