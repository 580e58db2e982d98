package branding

import "testing"

func TestEmbeddedValues(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"CLIName", CLIName(), "blast"},
		{"HomeDir", HomeDir(), ".blast"},
		{"EnvPrefix", EnvPrefix(), "BLAST"},
		{"EnvVar", EnvVar("project"), "BLAST_PROJECT"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s() = %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}
