package storecrawl

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"time"
)

// storageRoot anchors log files and failure HTML dumps.
var storageRoot = "storage"

// defaultLogger writes to a per-instance dated log file and the terminal.
type defaultLogger struct {
	logger *log.Logger
	name   string
}

func newDefaultLogger(name string) *defaultLogger {
	currentDate := time.Now().Format("2006-01-02")
	directory := filepath.Join(storageRoot, "logs", name)
	err := os.MkdirAll(directory, 0755)
	if err != nil {
		log.Fatalf("Failed to create log directory: %v", err)
	}

	logFilePath := filepath.Join(directory, currentDate+"_application.log")
	file, err := os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	multiWriter := io.MultiWriter(file, os.Stdout)

	return &defaultLogger{
		logger: log.New(multiWriter, "⏱️ ", log.LstdFlags),
		name:   name,
	}
}

func (l *defaultLogger) Info(format string, args ...interface{}) {
	l.logger.Printf("📢 INFO: "+format, args...)
}

func (l *defaultLogger) Error(format string, args ...interface{}) {
	l.logger.Printf("🛑 ERROR: "+format, args...)
}

func (l *defaultLogger) Fatal(format string, args ...interface{}) {
	l.logger.Fatalf("🚨 FATAL: "+format, args...)
}

func (l *defaultLogger) Printf(format string, args ...interface{}) {
	l.logger.Printf(format, args...)
}

// Html archives failing page content next to the logs for post-mortem.
func (l *defaultLogger) Html(html, url, msg string) {
	l.Error("%s", msg)
	if err := writePageContentToFile(l.name, html, url, msg); err != nil {
		l.logger.Printf("⚛️ HTML: %v", err)
	}
}
