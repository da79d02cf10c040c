/*

Package `zap` wraps Zap logging.

We use the convenient structured logging API of `Levelw(msg, kv ...)`
functions of the sugared logger.  `New()` optionally adds a log file as a
second output, which keeps a verbose record of a long batch run.

*/
package zap

import (
	"go.uber.org/zap"
)

type Logger = zap.SugaredLogger

// `New()` creates a production or development logger that writes to stderr
// and, if `logFile` is not empty, also appends to `logFile`.  The file output
// is always at debug level.
func New(dev bool, logFile string) (*Logger, error) {
	var cfg zap.Config
	if dev {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	if logFile != "" {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		cfg.OutputPaths = append(cfg.OutputPaths, logFile)
	}
	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}
