package fasttext

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeScript mimics the fastText CLI closely enough for the backend:
// supervised touches <output>.bin, test prints a report and predict picks a
// label from the words on stdin.
const fakeScript = `#!/bin/sh
echo "$@" >> "$(dirname "$0")/calls.log"
case "$1" in
supervised)
  out=""
  while [ $# -gt 0 ]; do
    if [ "$1" = "-output" ]; then out="$2"; fi
    shift
  done
  echo "Read 0M words" >&2
  : > "$out.bin"
  ;;
test)
  [ -f "$2" ] || { echo "$2 cannot be opened for loading!" >&2; exit 1; }
  printf 'N\t3\nP@1\t0.667\nR@1\t0.667\n'
  ;;
predict)
  [ -f "$2" ] || { echo "$2 cannot be opened for loading!" >&2; exit 1; }
  read line
  case "$line" in
  *良い*) echo "__label__pos" ;;
  *) echo "__label__neg" ;;
  esac
  ;;
sleep)
  exec sleep 5
  ;;
*)
  echo "unknown command $1" >&2
  exit 1
  ;;
esac
`

func installFake(t *testing.T) (string, string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake fasttext is a shell script")
	}
	dir := t.TempDir()
	bin := filepath.Join(dir, "fasttext")
	require.NoError(t, os.WriteFile(bin, []byte(fakeScript), 0o755))
	return dir, bin
}

func TestNew(t *testing.T) {
	t.Run("defaults to fasttext on PATH", func(t *testing.T) {
		b, err := New(Config{}, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{DefaultCommand}, b.argv)
	})

	t.Run("splits a quoted command line", func(t *testing.T) {
		b, err := New(Config{Command: `docker run --rm -v "/my data:/data" fasttext`}, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"docker", "run", "--rm", "-v", "/my data:/data", "fasttext"}, b.argv)
	})

	t.Run("rejects unterminated quotes", func(t *testing.T) {
		_, err := New(Config{Command: `fasttext "oops`}, nil)
		assert.Error(t, err)
	})
}

func TestBackend(t *testing.T) {
	dir, bin := installFake(t)
	ctx := context.Background()
	b, err := New(Config{Command: bin, TrainArgs: []string{"-epoch", "25"}}, nil)
	require.NoError(t, err)

	base := filepath.Join(dir, "model")
	input := filepath.Join(dir, "model.csv")
	require.NoError(t, os.WriteFile(input, []byte("__label__pos とても 良い\n"), 0o644))

	t.Run("train invokes supervised mode", func(t *testing.T) {
		require.NoError(t, b.Train(ctx, input, base))
		assert.FileExists(t, base+".bin")
		calls, err := os.ReadFile(filepath.Join(dir, "calls.log"))
		require.NoError(t, err)
		assert.Contains(t, string(calls), "supervised -input "+input+" -output "+base+" -epoch 25")
	})

	t.Run("test parses the report", func(t *testing.T) {
		m, err := b.Test(ctx, base+".bin", input)
		require.NoError(t, err)
		assert.Equal(t, 3, m.Samples)
		assert.InDelta(t, 0.667, m.Precision, 1e-9)
		assert.InDelta(t, 0.667, m.Recall, 1e-9)
		assert.Contains(t, m.Raw, "P@1")
	})

	t.Run("predict returns the first label", func(t *testing.T) {
		label, err := b.PredictLabel(ctx, base+".bin", "とても 良い")
		require.NoError(t, err)
		assert.Equal(t, "__label__pos", label)

		label, err = b.PredictLabel(ctx, base+".bin", "全く 使え ない")
		require.NoError(t, err)
		assert.Equal(t, "__label__neg", label)
	})

	t.Run("failure carries stderr", func(t *testing.T) {
		_, err := b.PredictLabel(ctx, filepath.Join(dir, "missing.bin"), "x")
		require.Error(t, err)
		var invErr *InvocationError
		require.True(t, errors.As(err, &invErr))
		assert.Equal(t, "predict", invErr.Op)
		assert.Contains(t, invErr.Stderr, "cannot be opened")
	})
}

func TestBackendMissingBinary(t *testing.T) {
	b, err := New(Config{Command: filepath.Join(t.TempDir(), "no-such-fasttext")}, nil)
	require.NoError(t, err)
	err = b.Train(context.Background(), "in.csv", "out")
	var invErr *InvocationError
	require.True(t, errors.As(err, &invErr))
	assert.Equal(t, "supervised", invErr.Op)
}

func TestBackendHonoursContext(t *testing.T) {
	_, bin := installFake(t)
	b, err := New(Config{Command: bin}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = b.run(ctx, "sleep", nil, []string{"sleep"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestParseTestOutput(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		want    [3]float64
		wantErr bool
	}{
		{name: "tab separated", out: "N\t10\nP@1\t0.900\nR@1\t0.800\n", want: [3]float64{10, 0.9, 0.8}},
		{name: "colon form", out: "P@1: 0.5\nR@1: 0.25\nNumber of examples: 4\n", want: [3]float64{4, 0.5, 0.25}},
		{name: "progress noise ignored", out: "Progress: 100.0%\nN\t2\nP@1\t1.000\nR@1\t1.000\n", want: [3]float64{2, 1, 1}},
		{name: "garbage", out: "nothing useful here", wantErr: true},
		{name: "bad number", out: "N\tmany\n", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := parseTestOutput(tt.out)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, int(tt.want[0]), m.Samples)
			assert.InDelta(t, tt.want[1], m.Precision, 1e-9)
			assert.InDelta(t, tt.want[2], m.Recall, 1e-9)
			assert.Equal(t, strings.TrimSpace(tt.out), m.Raw)
		})
	}
}
