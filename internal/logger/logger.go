// Package logger configures the process-wide logrus logger.
package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New returns a configured logger. Production environments log JSON to
// stdout; everything else keeps the human-readable text formatter.
func New(env string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	if env == "production" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	log.SetLevel(logrus.InfoLevel)
	if os.Getenv("LOG_DEBUG") == "true" {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}
