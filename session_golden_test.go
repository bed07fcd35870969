package cfront_test

import (
	"bytes"
	"path/filepath"
	"testing"

	cfront "github.com/mna/cfront"
	"github.com/mna/cfront/internal/filetest"
)

var testUpdatePreprocessTests = false

// TestPreprocessGolden drives Session.Preprocess/OutputPreprocessed over
// every fixture in testdata/in against the golden output in testdata/out,
// in the spirit of the teacher's lang/scanner golden-file tests (see
// DESIGN.md's internal/filetest entry).
func TestPreprocessGolden(t *testing.T) {
	srcDir, resultDir := filepath.Join("testdata", "in"), filepath.Join("testdata", "out")

	for _, fi := range filetest.SourceFiles(t, srcDir, ".c") {
		t.Run(fi.Name(), func(t *testing.T) {
			sess := cfront.New()
			defer sess.Destroy()

			res, err := sess.Preprocess(filepath.Join(srcDir, fi.Name()))

			var out, errBuf bytes.Buffer
			if err == nil {
				err = sess.OutputPreprocessed(&out, res.Tokens)
			}
			if err != nil {
				errBuf.WriteString(err.Error())
			}
			sess.PrintAllErrors(&errBuf)

			filetest.DiffOutput(t, fi, out.String(), resultDir, &testUpdatePreprocessTests)
			filetest.DiffErrors(t, fi, errBuf.String(), resultDir, &testUpdatePreprocessTests)
		})
	}
}
