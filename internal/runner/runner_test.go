package runner

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tapkit-labs/tapkit/internal/event"
	"github.com/tapkit-labs/tapkit/internal/gotest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeGo writes a shell script standing in for the go tool.
func fakeGo(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	path := filepath.Join(t.TempDir(), "go")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func newDecoder() (*gotest.Decoder, *[]event.Event) {
	var got []event.Event
	bus := event.NewBus()
	bus.Subscribe(event.SinkFunc(func(e event.Event) error {
		got = append(got, e)
		return nil
	}))
	return gotest.NewDecoder(bus, "r"), &got
}

func TestCommand(t *testing.T) {
	r := &Runner{}
	assert.Equal(t, []string{"go", "test", "-json", "./..."}, r.Command([]string{"./..."}))

	r.GoBinary = "/opt/go/bin/go"
	assert.Equal(t, []string{"/opt/go/bin/go", "test", "-json"}, r.Command(nil))
}

func TestRun_DecodesStdout(t *testing.T) {
	bin := fakeGo(t, `echo "args: $*" >&2
echo '{"Action":"run","Package":"p","Test":"TestA"}'
echo '{"Action":"pass","Package":"p","Test":"TestA"}'
echo '{"Action":"pass","Package":"p"}'
`)
	var stderr bytes.Buffer
	dec, got := newDecoder()
	r := &Runner{GoBinary: bin, Dir: t.TempDir(), Stderr: &stderr}

	code, err := r.Run(context.Background(), dec, []string{"./..."})
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, "args: test -json ./...\n", stderr.String())

	require.Len(t, *got, 5)
	assert.Equal(t, event.SuiteEnd, (*got)[4].Type)
	assert.Equal(t, 1, dec.Counts().Passed)
}

func TestRun_ExitCodeIsNotAnError(t *testing.T) {
	bin := fakeGo(t, `echo '{"Action":"fail","Package":"p"}'
exit 1
`)
	dec, _ := newDecoder()
	code, err := (&Runner{GoBinary: bin, Stderr: &bytes.Buffer{}}).Run(context.Background(), dec, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, code)
	assert.True(t, dec.Failed())
}

func TestRun_RunsInDir(t *testing.T) {
	bin := fakeGo(t, `pwd >&2`)
	dir := t.TempDir()
	var stderr bytes.Buffer
	dec, _ := newDecoder()

	_, err := (&Runner{GoBinary: bin, Dir: dir, Stderr: &stderr}).Run(context.Background(), dec, nil)
	require.NoError(t, err)

	want, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	got, err := filepath.EvalSymlinks(strings.TrimSpace(stderr.String()))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRun_Env(t *testing.T) {
	bin := fakeGo(t, `echo "$TAPKIT_PROBE" >&2`)
	var stderr bytes.Buffer
	dec, _ := newDecoder()

	_, err := (&Runner{GoBinary: bin, Env: []string{"TAPKIT_PROBE=on"}, Stderr: &stderr}).Run(context.Background(), dec, nil)
	require.NoError(t, err)
	assert.Equal(t, "on\n", stderr.String())
}

func TestRun_MissingBinary(t *testing.T) {
	dec, _ := newDecoder()
	code, err := (&Runner{GoBinary: filepath.Join(t.TempDir(), "missing")}).Run(context.Background(), dec, nil)
	assert.Equal(t, -1, code)
	assert.ErrorContains(t, err, "starting")
}

func TestRun_MalformedStream(t *testing.T) {
	bin := fakeGo(t, `echo '{"Action":'
echo '{"Action":"pass","Package":"p"}'
`)
	dec, _ := newDecoder()
	code, err := (&Runner{GoBinary: bin, Stderr: &bytes.Buffer{}}).Run(context.Background(), dec, nil)
	assert.Equal(t, 0, code)
	assert.ErrorContains(t, err, "decoding test2json record")
}

func TestRun_Cancelled(t *testing.T) {
	bin := fakeGo(t, `exec sleep 10`)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	dec, _ := newDecoder()
	_, err := (&Runner{GoBinary: bin, Stderr: &bytes.Buffer{}}).Run(ctx, dec, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
