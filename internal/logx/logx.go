// Package logx builds the process logger.
package logx

import (
    "io"
    "os"
    "strings"

    "github.com/sirupsen/logrus"
)

// New returns a logrus logger writing to w (stderr when nil). Unknown levels
// fall back to info; format "json" selects the JSON formatter, anything else text.
func New(level, format string, w io.Writer) *logrus.Logger {
    l := logrus.New()
    if w == nil {
        w = os.Stderr
    }
    l.SetOutput(w)

    lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
    if err != nil {
        lvl = logrus.InfoLevel
    }
    l.SetLevel(lvl)

    if strings.EqualFold(format, "json") {
        l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
    } else {
        l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
    }
    return l
}
