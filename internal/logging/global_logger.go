package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	setupOnce      sync.Once
	writerMu       sync.Mutex
	logWriter      *lumberjack.Logger
	ginInfoWriter  io.Writer
	ginErrorWriter io.Writer
)

// SetupBaseLogger points the logger at stdout and routes gin's own output through it.
func SetupBaseLogger() {
	setupOnce.Do(func() {
		SetOutput(os.Stdout)
		SetLevel(slog.LevelInfo)
		SetReportCaller(true)

		gin.SetMode(gin.ReleaseMode)

		ginInfoWriter = Writer()
		gin.DefaultWriter = ginInfoWriter
		ginErrorWriter = WriterLevel(slog.LevelError)
		gin.DefaultErrorWriter = ginErrorWriter
		gin.DebugPrintFunc = func(format string, values ...any) {
			Debugf(format, values...)
		}

		RegisterExitHandler(closeLogOutputs)
	})
}

// ConfigureLogOutput switches between stdout and a rotated file under dir
// (or WRITABLE_PATH/logs, or ./logs when dir is empty).
func ConfigureLogOutput(loggingToFile bool, dir string) error {
	SetupBaseLogger()

	writerMu.Lock()
	defer writerMu.Unlock()

	if !loggingToFile {
		if logWriter != nil {
			_ = logWriter.Close()
			logWriter = nil
		}
		SetOutput(os.Stdout)
		return nil
	}

	logDir := dir
	if logDir == "" {
		logDir = defaultLogDir()
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return fmt.Errorf("logging: failed to create log directory: %w", err)
	}
	if logWriter != nil {
		_ = logWriter.Close()
	}
	logWriter = &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "llm-wire.log"),
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     14,
	}
	SetOutput(logWriter)
	return nil
}

func closeLogOutputs() {
	writerMu.Lock()
	defer writerMu.Unlock()

	if logWriter != nil {
		_ = logWriter.Close()
		logWriter = nil
	}
}

func defaultLogDir() string {
	if base := strings.TrimSpace(os.Getenv("WRITABLE_PATH")); base != "" {
		return filepath.Join(filepath.Clean(base), "logs")
	}
	return "logs"
}
