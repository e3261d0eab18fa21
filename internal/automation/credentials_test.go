package automation

import (
	"encoding/json"
	"testing"
)

func TestNormalizeCredentials(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []Cookie
	}{
		{
			name: "json array",
			raw:  `[{"name":"f.session","value":"abc","domain":".tirabeauty.com"},{"name":"csrf","value":"tok"}]`,
			want: []Cookie{{"f.session", "abc"}, {"csrf", "tok"}},
		},
		{
			name: "single object",
			raw:  `{"name":"f.session","value":"abc"}`,
			want: []Cookie{{"f.session", "abc"}},
		},
		{
			name: "quoted header string",
			raw:  `"f.session=abc; csrf=tok"`,
			want: []Cookie{{"f.session", "abc"}, {"csrf", "tok"}},
		},
		{
			name: "raw header string",
			raw:  `f.session=abc;csrf=tok`,
			want: []Cookie{{"f.session", "abc"}, {"csrf", "tok"}},
		},
		{
			name: "array entries without names are dropped",
			raw:  `[{"value":"orphan"},{"name":"keep","value":"v"}]`,
			want: []Cookie{{"keep", "v"}},
		},
		{
			name: "empty segments in header string",
			raw:  `"f.session=abc; ; =bare; csrf=tok"`,
			want: []Cookie{{"f.session", "abc"}, {"csrf", "tok"}},
		},
		{
			name: "empty input",
			raw:  ``,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeCredentials(json.RawMessage(tt.raw))
			if len(got) != len(tt.want) {
				t.Fatalf("got %d cookies, want %d: %v", len(got), len(tt.want), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("cookie %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestCookieHeader(t *testing.T) {
	cookies := []Cookie{{"a", "1"}, {"b", "2"}}
	if got := CookieHeader(cookies); got != "a=1; b=2" {
		t.Errorf("CookieHeader = %q, want %q", got, "a=1; b=2")
	}
	if got := CookieHeader(nil); got != "" {
		t.Errorf("CookieHeader(nil) = %q, want empty", got)
	}
}

func TestHasSession(t *testing.T) {
	cookies := []Cookie{{"f.session", "abc"}, {"csrf", "tok"}}
	if !HasSession(cookies, "f.session") {
		t.Error("HasSession should find f.session")
	}
	if HasSession(cookies, "missing") {
		t.Error("HasSession found a cookie that is not there")
	}
}
