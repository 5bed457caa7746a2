package prompt

import "testing"

func TestTranslateBRE(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		want    string
	}{
		{
			name:    "default password prompt",
			pattern: `[Pp]assword: \{0,1\}$`,
			want:    `[Pp]assword: {0,1}$`,
		},
		{
			name:    "default yesno prompt",
			pattern: `(yes/no)? \{0,1\}$`,
			want:    `\(yes/no\)\? {0,1}$`,
		},
		{
			name:    "escaped group becomes group",
			pattern: `\(ab\)*`,
			want:    `(ab)*`,
		},
		{
			name:    "bare braces are literal",
			pattern: `a{2}`,
			want:    `a\{2\}`,
		},
		{
			name:    "escaped alternation and plus",
			pattern: `a\|b\+`,
			want:    `a|b+`,
		},
		{
			name:    "escaped dot stays escaped",
			pattern: `host\.example`,
			want:    `host\.example`,
		},
		{
			name:    "escaped backslash",
			pattern: `a\\b`,
			want:    `a\\b`,
		},
		{
			name:    "bracket expression passes through",
			pattern: `[a-z?+()]+end`,
			want:    `[a-z?+()]\+end`,
		},
		{
			name:    "leading close bracket is literal",
			pattern: `[]x]`,
			want:    `[]x]`,
		},
		{
			name:    "negated class with class name",
			pattern: `[^[:space:]]*$`,
			want:    `[^[:space:]]*$`,
		},
		{
			name:    "anchors untouched",
			pattern: `^login: $`,
			want:    `^login: $`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TranslateBRE(tt.pattern)
			if err != nil {
				t.Fatalf("TranslateBRE(%q) error: %v", tt.pattern, err)
			}
			if got != tt.want {
				t.Errorf("TranslateBRE(%q) = %q, want %q", tt.pattern, got, tt.want)
			}
		})
	}
}

func TestTranslateBREErrors(t *testing.T) {
	for _, pattern := range []string{`abc\`, `[abc`, `[[:alpha:]`, `x[[:bad`} {
		if _, err := TranslateBRE(pattern); err == nil {
			t.Errorf("TranslateBRE(%q) = nil error, want failure", pattern)
		}
	}
}
