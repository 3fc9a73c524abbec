package dataset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/KaramelBytes/tabletalk/internal/apperr"
)

// Loader reads the dataset at Path. It holds no table between calls; every
// Load reads the file again.
type Loader struct {
	Path  string
	Sheet string
	Log   logrus.FieldLogger
}

// NewLoader returns a loader for path.
func NewLoader(path, sheet string, log logrus.FieldLogger) *Loader {
	return &Loader{Path: path, Sheet: sheet, Log: log}
}

// Load reads and parses the dataset. Any failure, including a panic in a
// parsing library, is returned as an apperr.KindDatasetLoad error.
func (l *Loader) Load(ctx context.Context) (t *Table, err error) {
	defer func() {
		if r := recover(); r != nil {
			t = nil
			err = apperr.New(apperr.KindDatasetLoad, "cannot load dataset %s: %v", l.Path, r)
			l.logFailure(err)
		}
	}()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t, err = l.load()
	if err != nil {
		err = apperr.Wrap(err, apperr.KindDatasetLoad, "cannot load dataset %s: %v", l.Path, err)
		l.logFailure(err)
		return nil, err
	}
	return t, nil
}

func (l *Loader) load() (*Table, error) {
	if l.Path == "" {
		return nil, fmt.Errorf("dataset path is empty")
	}
	st, err := os.Stat(l.Path)
	if err != nil {
		return nil, err
	}
	if st.IsDir() {
		return nil, fmt.Errorf("%s is a directory", l.Path)
	}
	f := FormatFor(l.Path)
	recs, err := f.Read(l.Path, ReadOptions{Sheet: l.Sheet})
	if err != nil {
		return nil, err
	}
	return NewTable(filepath.Base(l.Path), recs[0], recs[1:])
}

func (l *Loader) logFailure(err error) {
	if l.Log == nil {
		return
	}
	l.Log.WithFields(logrus.Fields{"path": l.Path, "kind": apperr.KindOf(err)}).Error(apperr.Message(err))
}
