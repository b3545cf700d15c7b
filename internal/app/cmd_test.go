package app

import (
	"strings"
	"testing"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want Invocation
	}{
		{"引数なしはserve", nil, Invocation{Command: CommandServe}},
		{"serve", []string{"serve"}, Invocation{Command: CommandServe}},
		{"worker", []string{"worker", "--flag", "value"}, Invocation{Command: CommandWorker}},
		{"healthcheck", []string{"healthcheck"}, Invocation{Command: CommandHealthcheck}},
		{"migrateの既定はup", []string{"migrate"}, Invocation{Command: CommandMigrate, Direction: MigrateUp}},
		{"migrate up", []string{"migrate", "up"}, Invocation{Command: CommandMigrate, Direction: MigrateUp}},
		{"migrate down", []string{"migrate", "down"}, Invocation{Command: CommandMigrate, Direction: MigrateDown}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseArgs(tt.args)
			if err != nil {
				t.Fatalf("ParseArgs(%v) returned error: %v", tt.args, err)
			}
			if got != tt.want {
				t.Errorf("ParseArgs(%v) = %+v, want %+v", tt.args, got, tt.want)
			}
		})
	}
}

func TestParseArgs_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantMsg string
	}{
		{"未知のコマンド", []string{"unknown"}, `unknown command "unknown"`},
		{"未知の方向", []string{"migrate", "sideways"}, `unknown migrate direction "sideways"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseArgs(tt.args)
			if err == nil || !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("ParseArgs(%v) error = %v, want containing %q", tt.args, err, tt.wantMsg)
			}
		})
	}
}

// 未知のコマンドのエラーには利用可能なコマンドが列挙される
func TestParseArgs_UnknownListsCommands(t *testing.T) {
	_, err := ParseArgs([]string{"serv"})
	if err == nil {
		t.Fatal("expected error")
	}
	for _, c := range commands {
		if !strings.Contains(err.Error(), string(c)) {
			t.Errorf("error %q should mention %q", err, c)
		}
	}
}
