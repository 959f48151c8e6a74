package classifier_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yashubustudio/textclassifier/classifier"
	"yashubustudio/textclassifier/corpus"
	"yashubustudio/textclassifier/fasttext"
	"yashubustudio/textclassifier/tokenize"
)

var (
	positive = []string{"とても良い", "良い商品です", "素晴らしい品質", "とても満足", "良い買い物でした"}
	negative = []string{"最悪でした", "全く使えない", "ひどい品質", "がっかりした", "二度と買わない"}
)

func fixture() string {
	var b strings.Builder
	for i := 0; i < 20; i++ {
		for j := range positive {
			fmt.Fprintf(&b, "pos,%s\n", positive[j])
			fmt.Fprintf(&b, "neg,%s\n", negative[j])
		}
	}
	return b.String()
}

func TestEndToEnd(t *testing.T) {
	if _, err := exec.LookPath(fasttext.DefaultCommand); err != nil {
		t.Skip("fasttext binary not on PATH")
	}
	tok, err := tokenize.Default()
	require.NoError(t, err)
	backend, err := fasttext.New(fasttext.Config{TrainArgs: []string{"-epoch", "50", "-minCount", "1", "-seed", "1"}}, nil)
	require.NoError(t, err)

	dir := t.TempDir()
	svc, err := classifier.NewService(classifier.Config{
		BasePath: filepath.Join(dir, "model"),
		SideFile: corpus.Format{Separator: " ", LabelPrefix: "__label__"},
	}, tok, backend, nil)
	require.NoError(t, err)

	data := filepath.Join(dir, "train.csv")
	require.NoError(t, os.WriteFile(data, []byte(fixture()), 0o644))

	ctx := context.Background()
	require.NoError(t, svc.Fit(ctx, data))
	assert.FileExists(t, filepath.Join(dir, "model.bin"))

	m, err := svc.Evaluate(ctx, data, "")
	require.NoError(t, err)
	assert.Equal(t, 200, m.Samples)
	assert.Greater(t, m.Precision, 0.5)

	m, err = svc.Evaluate(ctx, data, "pos")
	require.NoError(t, err)
	assert.Equal(t, 100, m.Samples)

	label, err := svc.Predict(ctx, "とても良い")
	require.NoError(t, err)
	assert.Equal(t, "pos", label)
}
