package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNew_Defaults(t *testing.T) {
	l := New(Config{})
	if l.Component() != "relayer" {
		t.Errorf("Component() = %s, want relayer", l.Component())
	}
	if l.GetLevel() != logrus.InfoLevel {
		t.Errorf("GetLevel() = %v, want info", l.GetLevel())
	}
}

func TestNew_InvalidLevelFallsBackToInfo(t *testing.T) {
	l := New(Config{Level: "chatty"})
	if l.GetLevel() != logrus.InfoLevel {
		t.Errorf("GetLevel() = %v, want info", l.GetLevel())
	}
}

func TestWithField_JSONCarriesComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Component: "sdk", Level: "debug", Format: "json", Output: &buf})

	l.WithField("job_id", "abc").Debug("polling")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if entry["component"] != "sdk" {
		t.Errorf("component = %v, want sdk", entry["component"])
	}
	if entry["job_id"] != "abc" {
		t.Errorf("job_id = %v, want abc", entry["job_id"])
	}
	if entry["msg"] != "polling" {
		t.Errorf("msg = %v, want polling", entry["msg"])
	}
}

func TestNewDiscard(t *testing.T) {
	l := NewDiscard("quiet")
	l.WithFields(logrus.Fields{"a": 1}).Error("dropped")
	if l.Component() != "quiet" {
		t.Errorf("Component() = %s, want quiet", l.Component())
	}
}

func TestWithError_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Component: "sdk", Output: &buf})
	l.WithError(errTest("boom")).Warn("failed")

	line := buf.String()
	if !strings.Contains(line, "component=sdk") {
		t.Errorf("line %q missing component", line)
	}
	if !strings.Contains(line, "error=boom") {
		t.Errorf("line %q missing error", line)
	}
}

type errTest string

func (e errTest) Error() string { return string(e) }
