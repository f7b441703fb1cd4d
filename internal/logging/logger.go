package logging

import (
	"log"
	"os"
	"strings"
	"sync"
)

// Log levels, numerically ordered so a threshold comparison is enough.
const (
	Critical = 50
	Error    = 40
	Warning  = 30
	Info     = 20
	Debug    = 10
	NotSet   = 0
)

var (
	level   = Info
	levelMu sync.Mutex
)

func init() {
	localEnv := os.Getenv("LOCAL")
	if strings.EqualFold(localEnv, "true") || localEnv == "1" {
		SetLevel(Debug)
	}
}

// SetLevel sets the minimum level that will be written.
func SetLevel(l int) {
	levelMu.Lock()
	defer levelMu.Unlock()
	level = l
}

func logf(min int, tag, format string, v ...interface{}) {
	levelMu.Lock()
	defer levelMu.Unlock()
	if level <= min {
		log.Printf(tag+" "+format, v...)
	}
}

func Debugf(format string, v ...interface{}) {
	logf(Debug, "[DEBUG]", format, v...)
}

func Infof(format string, v ...interface{}) {
	logf(Info, "[INFO]", format, v...)
}

func Warningf(format string, v ...interface{}) {
	logf(Warning, "[WARN]", format, v...)
}

func Errorf(format string, v ...interface{}) {
	logf(Error, "[ERROR]", format, v...)
}

func Criticalf(format string, v ...interface{}) {
	logf(Critical, "[CRITICAL]", format, v...)
}

func Fatalf(format string, v ...interface{}) {
	log.Fatalf("[FATAL] "+format, v...)
}
