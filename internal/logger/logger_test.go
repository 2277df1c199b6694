package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/sirupsen/logrus"
)

func capture(t *testing.T, level logrus.Level) *bytes.Buffer {
	t.Helper()
	old := Log
	t.Cleanup(func() { Log = old })
	var buf bytes.Buffer
	Log = newLogger(&buf, level)
	return &buf
}

func TestLineFormatter(t *testing.T) {
	buf := capture(t, logrus.InfoLevel)
	Log.WithField("topic", "AI").Warn("hello")

	line := buf.String()
	for _, want := range []string{"[WARN]", "logger_test.go:", "hello", "topic=AI"} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q missing %q", line, want)
		}
	}
	if !strings.HasSuffix(line, "\n") {
		t.Error("line should end with a newline")
	}
}

func TestInitLoggerLevel(t *testing.T) {
	old := Log
	t.Cleanup(func() { Log = old })

	if err := InitLogger("debug", ""); err != nil {
		t.Fatal(err)
	}
	if Log.GetLevel() != logrus.DebugLevel {
		t.Errorf("level = %v", Log.GetLevel())
	}
	if err := InitLogger("nonsense", ""); err != nil {
		t.Fatal(err)
	}
	if Log.GetLevel() != logrus.InfoLevel {
		t.Errorf("unknown level should default to info, got %v", Log.GetLevel())
	}
}

func TestInitLoggerFile(t *testing.T) {
	old := Log
	t.Cleanup(func() { Log = old })

	path := t.TempDir() + "/logs/weflow.log"
	if err := InitLogger("info", path); err != nil {
		t.Fatalf("InitLogger() error = %v", err)
	}
	Log.Info("to file")
}

func TestKratosAdapter(t *testing.T) {
	buf := capture(t, logrus.DebugLevel)

	tests := []struct {
		level log.Level
		kv    []interface{}
		want  []string
	}{
		{log.LevelInfo, []interface{}{log.DefaultMessageKey, "server started", "addr", ":8000"}, []string{"[INFO]", "server started", "addr=:8000"}},
		{log.LevelError, []interface{}{"msg", "boom"}, []string{"[ERRO]", "boom"}},
		{log.LevelDebug, []interface{}{"dangling"}, []string{"[DEBU]", "dangling=(MISSING)"}},
	}
	for _, tt := range tests {
		buf.Reset()
		if err := (Kratos{}).Log(tt.level, tt.kv...); err != nil {
			t.Fatal(err)
		}
		for _, w := range tt.want {
			if !strings.Contains(buf.String(), w) {
				t.Errorf("Log(%v, %v) = %q, missing %q", tt.level, tt.kv, buf.String(), w)
			}
		}
	}
}
