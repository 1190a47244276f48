package logging

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func TestConfigure(t *testing.T) {
	defer func() { _ = Configure("info", "json") }()

	tests := []struct {
		name    string
		level   string
		format  string
		want    logrus.Level
		wantErr bool
	}{
		{name: "debug text", level: "debug", format: "text", want: logrus.DebugLevel},
		{name: "warn json", level: "warn", format: "json", want: logrus.WarnLevel},
		{name: "bad level", level: "loud", format: "json", wantErr: true},
		{name: "bad format", level: "info", format: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Configure(tt.level, tt.format)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Configure() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && Log.GetLevel() != tt.want {
				t.Errorf("level = %v, want %v", Log.GetLevel(), tt.want)
			}
		})
	}
}

func TestForRun(t *testing.T) {
	entry := ForRun("abc")
	if entry.Data["run_id"] != "abc" {
		t.Errorf("run_id = %v, want abc", entry.Data["run_id"])
	}
}
