package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestLoggerFunctions(t *testing.T) {
	Init("invalid") // should default to info
	if log == nil {
		t.Fatal("log not initialized")
	}
	if Level() != "info" {
		t.Fatalf("expected info level, got %s", Level())
	}
	// Avoid os.Exit on Fatal
	log.ExitFunc = func(int) {}
	var buf bytes.Buffer
	SetOutput(&buf)

	Debug("debug")
	Info("info")
	Warn("warn")
	Error("error")
	Debugf("%s", "debugf")
	Infof("%s", "infof")
	Warnf("%s", "warnf")
	Errorf("%s", "errorf")
	Fatal("fatal")
	Fatalf("%s", "fatalf")

	out := buf.String()
	if strings.Contains(out, "debugf") {
		t.Fatal("debug output should be filtered at info level")
	}
	if !strings.Contains(out, "warnf") {
		t.Fatalf("expected warnf in output, got %q", out)
	}
}

func TestWithFieldsAndJSON(t *testing.T) {
	Init("debug")
	defer Init("info")
	var buf bytes.Buffer
	SetOutput(&buf)
	SetJSON()
	defer log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	WithFields(logrus.Fields{"path": "/x/pack.zip"}).Debug("skipped")
	if !strings.Contains(buf.String(), `"path":"/x/pack.zip"`) {
		t.Fatalf("expected structured field, got %q", buf.String())
	}
}
