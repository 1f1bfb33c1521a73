package config

import (
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// InitLogger configures the process logger. Output goes to logs/<name>.log when the
// directory is writable, otherwise stdout.
func InitLogger(name string) *logrus.Logger {
	logger := logrus.New()

	if os.Getenv("LOG_FORMAT") == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	dir := os.Getenv("LOG_DIR")
	if dir == "" {
		dir = "logs"
	}
	if dir == "-" {
		return logger
	}
	if err := os.MkdirAll(dir, 0755); err == nil {
		file, err := os.OpenFile(filepath.Join(dir, name+".log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err == nil {
			logger.SetOutput(file)
			return logger
		}
	}
	logger.Warn("无法打开日志文件，日志将输出到标准输出")
	return logger
}
