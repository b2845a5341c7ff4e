package common

import (
	"bytes"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	_ "liyu1981.xyz/greenhouse-telemetry/pkg/testing"
)

func TestLoggingCapture(t *testing.T) {
	var buf bytes.Buffer
	SetTestCaptureLogger(&buf, zapcore.InfoLevel)

	logger := GetLogger()
	logger.Info("Test log message", zap.String("key", "value"))

	logOutput := buf.String()
	if !strings.Contains(logOutput, "Test log message") {
		t.Errorf("expected log output to contain message, got: %s", logOutput)
	}
}

func TestCategoryLogger(t *testing.T) {
	var buf bytes.Buffer
	SetTestCaptureLogger(&buf, zapcore.InfoLevel)

	GetCategoryLogger(LoggerCategoryIngest, zap.String("device_id", "pi-1")).Info("hello")

	out := buf.String()
	for _, want := range []string{`"logger":"iot_core"`, `"category":"ingest"`, `"device_id":"pi-1"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in %s", want, out)
		}
	}
}

func TestCategoryLoggerDebugFiltered(t *testing.T) {
	var buf bytes.Buffer
	SetTestCaptureLogger(&buf, zapcore.WarnLevel)

	GetCategoryLogger(LoggerCategoryAuth).Info("below threshold")

	if buf.Len() != 0 {
		t.Errorf("expected no output, got: %s", buf.String())
	}
}
