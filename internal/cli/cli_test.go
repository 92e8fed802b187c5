package cli

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, fs afero.Fs, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRoot(WithFs(fs), WithIO(strings.NewReader(stdin), &out, &errOut))
	root.SetArgs(append(args, "--log-level=error"))
	err := root.Execute()
	return out.String(), err
}

func writeScript(t *testing.T, fs afero.Fs, path, body string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, []byte(body), 0o644))
}

func TestVersion(t *testing.T) {
	var out bytes.Buffer
	root := NewRoot(WithFs(afero.NewMemMapFs()), WithIO(strings.NewReader(""), &out, &out))
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
	assert.Equal(t, "animctl dev\n", out.String())
}

func TestScriptBuildsTree(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeScript(t, fs, "/tree.yaml", `
visualization: bst
commands:
  - insert 5
  - f
  - insert 3
  - f
  - insert 8
  - f
`)
	out, err := run(t, fs, "", "script", "/tree.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "-- idle | log 3")
	assert.Contains(t, out, "bst size=20 nodes=3 height=2")
	assert.Contains(t, out, "  8 (40,20)")
}

func TestScriptRewind(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeScript(t, fs, "/rewind.yaml", `
commands:
  - insert 5
  - f
  - insert 3
  - n
  - b
`)
	out, err := run(t, fs, "", "script", "/rewind.yaml", "--element-size=10")
	require.NoError(t, err)
	assert.Contains(t, out, "-- live | insert #1 step 0 (stop 0) | log 2")
	assert.Contains(t, out, "Comparing 3 with 5")
	assert.Contains(t, out, "* 5 (0,0)")
}

func TestScriptResizeAndSorting(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeScript(t, fs, "/sort.yaml", `
visualization: sorting
commands:
  - load 3 1 2
  - f
  - bubble
  - f
  - size 3
`)
	out, err := run(t, fs, "", "script", "/sort.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "Array is sorted")
	assert.Contains(t, out, "array size=3 n=3\n[1][2][3]")
}

func TestScriptErrors(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeScript(t, fs, "/bad.yaml", "commands:\n  - rotate 4\n")
	writeScript(t, fs, "/empty.yaml", "commands: []\n")
	writeScript(t, fs, "/disabled.yaml", "commands:\n  - n\n")

	_, err := run(t, fs, "", "script", "/bad.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `command 1 "rotate 4"`)

	_, err = run(t, fs, "", "script", "/empty.yaml")
	assert.Error(t, err)

	_, err = run(t, fs, "", "script", "/missing.yaml")
	assert.Error(t, err)

	// step-forward is not part of the Idle listener set.
	_, err = run(t, fs, "", "script", "/disabled.yaml")
	assert.Error(t, err)
}

func TestScriptRecordsHistory(t *testing.T) {
	fs := afero.NewOsFs()
	dir := t.TempDir()
	db := filepath.Join(dir, "replay.db")
	script := filepath.Join(dir, "s.yaml")
	writeScript(t, fs, script, "commands:\n  - insert 5\n  - f\n  - insert 7\n  - f\n")

	dbArgs := []string{"--db-driver=sqlite", "--db-dsn=" + db}
	_, err := run(t, fs, "", append([]string{"script", script, "--session=demo"}, dbArgs...)...)
	require.NoError(t, err)

	out, err := run(t, fs, "", append([]string{"history"}, dbArgs...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "SESSION")
	assert.Contains(t, out, "demo")

	out, err = run(t, fs, "", append([]string{"history", "demo"}, dbArgs...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "complete")
	assert.Contains(t, out, "sha256:")

	_, err = run(t, fs, "", append([]string{"history", "nobody"}, dbArgs...)...)
	assert.Error(t, err)
}

func TestPlayReadsStdin(t *testing.T) {
	out, err := run(t, afero.NewMemMapFs(), "bogus\ninsert 5\nq\n", "play", "--keymap=j=step-forward")
	require.NoError(t, err)
	assert.Contains(t, out, "keys: b=step-backward f=fast-forward j=step-forward p=toggle-run r=fast-backward")
	assert.Contains(t, out, "Inserting 5 as the root")
	assert.Contains(t, out, `error: unknown operation: "bogus"`)
}

// runWithin fails the test instead of hanging when a command never returns.
func runWithin(t *testing.T, fs afero.Fs, stdin string, args ...string) (string, error) {
	t.Helper()
	type result struct {
		out string
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := run(t, fs, stdin, args...)
		done <- result{out, err}
	}()
	select {
	case r := <-done:
		return r.out, r.err
	case <-time.After(5 * time.Second):
		t.Fatalf("%v did not return", args)
		return "", nil
	}
}

func TestBlankLinesAreIgnored(t *testing.T) {
	out, err := runWithin(t, afero.NewMemMapFs(), "insert 5\n\n   \nq\n", "play")
	require.NoError(t, err)
	assert.Contains(t, out, "Inserting 5 as the root")
	assert.NotContains(t, out, "error:")

	fs := afero.NewMemMapFs()
	writeScript(t, fs, "/blank.yaml", "commands:\n  - insert 5\n  - \"\"\n  - f\n")
	out, err = runWithin(t, fs, "", "script", "/blank.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "-- idle | log 1")
	assert.Contains(t, out, "  5 (0,0)")
}

func TestInvalidConfig(t *testing.T) {
	_, err := run(t, afero.NewMemMapFs(), "", "play", "--viz=heap")
	assert.Error(t, err)
}

func TestDispatchSize(t *testing.T) {
	for _, line := range []string{"size", "size x", "size 1 2"} {
		err := dispatch(nil, nil, line)
		assert.Error(t, err, line)
	}
	assert.ErrorIs(t, dispatch(nil, nil, "   "), errNoControl)
	assert.ErrorIs(t, dispatch(nil, nil, "q"), errQuit)
}
