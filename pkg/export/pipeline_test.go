package export

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/exportsrc/pkg/config"
	"github.com/walteh/exportsrc/pkg/log"
	"github.com/walteh/exportsrc/pkg/text"
)

func newTestPipeline(t *testing.T, copier copyFunc) (*pipeline, *log.Recorder) {
	t.Helper()
	rec := &log.Recorder{}
	return &pipeline{
		settings:   &config.Settings{ComputeHash: true},
		translator: text.NewTranslator(nil),
		sink:       rec,
		logger:     zerolog.New(zerolog.NewTestWriter(t)),
		copier:     copier,
	}, rec
}

// truncatingCopier writes half of the source for the first bad copies
func truncatingCopier(bad int, calls *int) copyFunc {
	return func(src, dst string) error {
		*calls++
		if *calls > bad {
			return copyBytes(src, dst)
		}
		b, err := os.ReadFile(src)
		if err != nil {
			return err
		}
		return os.WriteFile(dst, b[:len(b)/2], 0o644)
	}
}

func verifyEvents(rec *log.Recorder) []log.VerifyEvent {
	var out []log.VerifyEvent
	for _, ev := range rec.OfKind(log.KindVerify) {
		out = append(out, ev.(log.VerifyEvent))
	}
	return out
}

func TestCopyBinary_RetriesTruncatedCopy(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")
	require.NoError(t, os.WriteFile(src, []byte("0123456789"), 0o644))

	calls := 0
	p, rec := newTestPipeline(t, truncatingCopier(1, &calls))

	require.NoError(t, p.copyBinary(src, dst))

	assert.Equal(t, 2, calls)
	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(got))
	assert.Equal(t, []log.VerifyEvent{
		{Path: dst, OK: false, Mismatches: 1},
		{Path: dst, OK: true},
	}, verifyEvents(rec))
	assert.Zero(t, p.mismatches)
}

func TestCopyBinary_Escalates(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")
	require.NoError(t, os.WriteFile(src, []byte("0123456789"), 0o644))

	calls := 0
	p, rec := newTestPipeline(t, truncatingCopier(100, &calls))

	err := p.copyBinary(src, dst)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIntegrity)
	assert.Contains(t, err.Error(), dst)
	assert.Equal(t, maxMismatches+2, calls)

	events := verifyEvents(rec)
	require.Len(t, events, maxMismatches+1)
	for i, ev := range events {
		assert.False(t, ev.OK)
		assert.Equal(t, i+1, ev.Mismatches)
	}
}

func TestCopyBinary_CounterSpansFiles(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	require.NoError(t, os.WriteFile(src, []byte("0123456789"), 0o644))

	// every copy fails three times before it verifies
	calls := 0
	copier := func(s, d string) error {
		calls++
		if calls%4 != 0 {
			b, err := os.ReadFile(s)
			if err != nil {
				return err
			}
			return os.WriteFile(d, b[:1], 0o644)
		}
		return copyBytes(s, d)
	}
	p, _ := newTestPipeline(t, copier)

	for i := 0; i < 5; i++ {
		require.NoError(t, p.copyBinary(src, filepath.Join(dir, "dst.bin")))
		assert.Zero(t, p.mismatches)
	}
}

func TestCopyBinary_NoHash(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	require.NoError(t, os.WriteFile(src, []byte("0123456789"), 0o644))

	calls := 0
	p, rec := newTestPipeline(t, truncatingCopier(100, &calls))
	p.settings.ComputeHash = false

	require.NoError(t, p.copyBinary(src, filepath.Join(dir, "dst.bin")))
	assert.Equal(t, 1, calls)
	assert.Empty(t, rec.Events())
}

func TestExport_IntegrityAborts(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "out")
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.bin"), []byte("0123456789"), 0o644))

	rec := &log.Recorder{}
	e, err := New(&config.Settings{ComputeHash: true, OverwriteExisting: true}, rec)
	require.NoError(t, err)
	calls := 0
	e.copier = truncatingCopier(100, &calls)

	ctx := zerolog.New(zerolog.NewTestWriter(t)).WithContext(context.Background())
	_, err = e.Export(ctx, src, dst)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIntegrity)
	assert.Empty(t, rec.OfKind(log.KindSummary))
}

func TestExport_Locked(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "out")

	held, err := lockDestination(dst)
	require.NoError(t, err)

	e, err := New(&config.Settings{}, nil)
	require.NoError(t, err)

	ctx := zerolog.New(zerolog.NewTestWriter(t)).WithContext(context.Background())
	_, err = e.Export(ctx, src, dst)
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, held.Unlock())
	assert.NoFileExists(t, lockPath(dst))

	_, err = e.Export(ctx, src, dst)
	assert.NoError(t, err)
	assert.NoFileExists(t, lockPath(dst), "lock file removed after export")
}

func TestResolveHintPath(t *testing.T) {
	root := filepath.Join(t.TempDir(), "work", "src")
	system := filepath.Join(filepath.Dir(filepath.Dir(root)), "system")

	tests := []struct {
		name    string
		value   string
		want    string
		outcome HintPathOutcome
	}{
		{name: "inside source", value: `packages\Foo\lib\Foo.dll`, want: `packages\Foo\lib\Foo.dll`, outcome: HintPathUnchanged},
		{name: "outside, not a system directory", value: `..\..\other\Foo.dll`, want: `..\..\other\Foo.dll`, outcome: HintPathUnchanged},
		{name: "outside, in a system directory", value: `..\..\system\Foo.dll`, want: filepath.Join(system, "Foo.dll"), outcome: HintPathResolved},
		{name: "absolute in a system directory", value: filepath.Join(system, "x", "Bar.dll"), want: filepath.Join(system, "x", "Bar.dll"), outcome: HintPathResolved},
		{name: "empty", value: "", want: "", outcome: HintPathUnchanged},
		{name: "sibling sharing a prefix", value: `..\..\system2\Foo.dll`, want: `..\..\system2\Foo.dll`, outcome: HintPathUnchanged},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, outcome := resolveHintPath(root, tt.value, []string{"", system})
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.outcome, outcome)
		})
	}
}

func TestHintPathOutcome_String(t *testing.T) {
	assert.Equal(t, "unchanged", HintPathUnchanged.String())
	assert.Equal(t, "resolved", HintPathResolved.String())
}

func TestFilterSolution(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		removeSCM bool
		ids       []string
		want      string
	}{
		{
			name:      "source control section",
			in:        "a\n\tGlobalSection(SourceCodeControl) = preSolution\n\t\tx = y\n\tEndGlobalSection\nb\n",
			removeSCM: true,
			want:      "a\nb\n",
		},
		{
			name: "section kept without removal",
			in:   "a\nGlobalSection(SourceCodeControl)\nEndGlobalSection\n",
			want: "a\nGlobalSection(SourceCodeControl)\nEndGlobalSection\n",
		},
		{
			name: "excluded id is case insensitive",
			in:   "keep\nProject = \"{ABCDEF00-0000-0000-0000-000000000000}\"\nlast",
			ids:  []string{"{abcdef00-0000-0000-0000-000000000000}"},
			want: "keep\nlast",
		},
		{
			name:      "unterminated section drops the rest",
			in:        "a\nGlobalSection(TeamFoundationVersionControl)\nb\n",
			removeSCM: true,
			want:      "a\n",
		},
		{
			name: "empty",
			in:   "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(filterSolution([]byte(tt.in), tt.removeSCM, tt.ids)))
		})
	}
}

func TestSniffText(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    bool
	}{
		{name: "ascii", content: "hello world\n", want: true},
		{name: "empty", content: "", want: true},
		{name: "utf-8 bom", content: "\ufeffhi", want: true},
		{name: "utf-16le bom", content: "\xff\xfeh\x00i\x00", want: true},
		{name: "nul byte", content: "abc\x00def", want: false},
		{name: "png", content: "\x89PNG\r\n\x1a\n", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "f")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			got, err := sniffText(path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeText_UTF16(t *testing.T) {
	got, bom, err := decodeText([]byte("\xff\xfeh\x00i\x00"))
	require.NoError(t, err)
	assert.True(t, bom)
	assert.Equal(t, "hi", got)
}

func TestIsWithin(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "a", "b")
	assert.True(t, isWithin(root, root))
	assert.True(t, isWithin(root, filepath.Join(root, "c")))
	assert.False(t, isWithin(root, filepath.Join(root, "..", "bc")))
	assert.False(t, isWithin(root, filepath.Dir(root)))
}
