package extract

import "testing"

func TestIssueID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want uint64
		ok   bool
	}{
		{"tests/crashes/12345.rs", 12345, true},
		{"tests/crashes/12345-foo.rs", 12345, true},
		{"tests/crashes/98765-bar-baz.rs", 98765, true},
		{"tests/crashes/0.rs", 0, true},
		{"12345.rs", 12345, true},
		{"tests/crashes/12345", 12345, true},
		{"tests/crashes/foo.rs", 0, false},
		{"tests/crashes/foo-12345.rs", 0, false},
		{"tests/crashes/-12345.rs", 0, false},
		{"tests/crashes/.rs", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		got, ok := IssueID(tt.path)
		if got != tt.want || ok != tt.ok {
			t.Errorf("IssueID(%q) = (%d, %v), want (%d, %v)", tt.path, got, ok, tt.want, tt.ok)
		}
	}
}

func TestPRNumber(t *testing.T) {
	t.Parallel()

	tests := []struct {
		message string
		want    uint64
		ok      bool
	}{
		{"Auto merge of #147900 - Zalathar:rollup-ril6jsi, r=Zalathar", 147900, true},
		{"Auto merge of #12345 - username:branch, r=reviewer", 12345, true},
		{"Regular commit message without PR", 0, false},
		{"Mention #12345 but not auto merge", 0, false},
		{"Auto merge of # - missing digits", 0, false},
		{"prefix then Auto merge of #7", 7, true},
		{"", 0, false},
	}

	for _, tt := range tests {
		got, ok := PRNumber(tt.message, "")
		if got != tt.want || ok != tt.ok {
			t.Errorf("PRNumber(%q) = (%d, %v), want (%d, %v)", tt.message, got, ok, tt.want, tt.ok)
		}
	}
}

func TestPRNumberCustomMarker(t *testing.T) {
	t.Parallel()

	got, ok := PRNumber("Merged via bors: #42 (cleanup)", "Merged via bors: #")
	if !ok || got != 42 {
		t.Errorf("PRNumber with custom marker = (%d, %v), want (42, true)", got, ok)
	}

	// Default marker must not match the custom convention.
	if _, ok := PRNumber("Merged via bors: #42", ""); ok {
		t.Error("default marker matched a custom merge message")
	}
}
