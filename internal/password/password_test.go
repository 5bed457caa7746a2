package password

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestResolveLiteral(t *testing.T) {
	got, err := Resolve("hunter2")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != "hunter2" {
		t.Errorf("Resolve(literal) = %q, want hunter2", got)
	}
}

func TestResolveEnv(t *testing.T) {
	t.Setenv("PASSH_TEST_SECRET", "from-env")

	got, err := Resolve("env:PASSH_TEST_SECRET")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != "from-env" {
		t.Errorf("Resolve(env:) = %q, want from-env", got)
	}
}

func TestResolveEnvMissing(t *testing.T) {
	if _, err := Resolve("env:PASSH_TEST_NO_SUCH_VAR"); err == nil {
		t.Error("Resolve(missing env) = nil error, want failure")
	}
}

func TestResolveFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"plain", "s3cret\n", "s3cret"},
		{"first token only", "s3cret trailing junk\n", "s3cret"},
		{"leading whitespace", "  s3cret\n", "s3cret"},
		{"crlf", "s3cret\r\n", "s3cret"},
		{"first line only", "s3cret\nsecond\n", "s3cret"},
		{"empty file", "", ""},
		{"blank line", "\n", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "pw")
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatal(err)
			}
			got, err := Resolve("file:" + path)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if got != tt.want {
				t.Errorf("Resolve(file:) = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveFileMissing(t *testing.T) {
	if _, err := Resolve("file:/no/such/path"); err == nil {
		t.Error("Resolve(missing file) = nil error, want failure")
	}
}

func TestMaskArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "separate value",
			args: []string{"passh", "-p", "secret", "ssh", "host"},
			want: []string{"passh", "-p", "******", "ssh", "host"},
		},
		{
			name: "long flag",
			args: []string{"passh", "--password", "secret", "cmd"},
			want: []string{"passh", "--password", "******", "cmd"},
		},
		{
			name: "long flag with equals",
			args: []string{"passh", "--password=secret", "cmd"},
			want: []string{"passh", "--password=******", "cmd"},
		},
		{
			name: "attached short value",
			args: []string{"passh", "-psecret", "cmd"},
			want: []string{"passh", "-p******", "cmd"},
		},
		{
			name: "no password flag",
			args: []string{"passh", "-y", "cmd"},
			want: []string{"passh", "-y", "cmd"},
		},
		{
			name: "trailing flag without value",
			args: []string{"passh", "-p"},
			want: []string{"passh", "-p"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string(nil), tt.args...)
			MaskArgs(args)
			if !reflect.DeepEqual(args, tt.want) {
				t.Errorf("MaskArgs(%v) = %v, want %v", tt.args, args, tt.want)
			}
		})
	}
}
