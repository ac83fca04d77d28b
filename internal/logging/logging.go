// Package logging configures the process-wide logrus logger.
package logging

import (
	"fmt"
	"io"
	"path"
	"runtime"

	"github.com/sirupsen/logrus"
)

// New returns a text logger writing to w at the named level.
func New(w io.Writer, level string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetLevel(lvl)
	logger.SetReportCaller(true)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:    true,
		CallerPrettyfier: prettyCaller,
	})
	return logger, nil
}

// prettyCaller shortens the reported caller to package.Function and drops the file.
func prettyCaller(f *runtime.Frame) (function string, file string) {
	return path.Base(f.Function), ""
}
