package schema

import "testing"

func TestRawField(t *testing.T) {
	tests := []struct {
		field string
		want  string
	}{
		{FieldContent, "content_raw"},
		{FieldFileName, "file_name_raw"},
		{FieldFilePath, "file_path_raw"},
	}
	for _, tt := range tests {
		if got := RawField(tt.field); got != tt.want {
			t.Errorf("RawField(%q) = %q, want %q", tt.field, got, tt.want)
		}
	}
}

func TestBuildReturnsUsableMapping(t *testing.T) {
	im := Build()
	if im == nil {
		t.Fatal("Build() returned nil mapping")
	}
	if err := im.Validate(); err != nil {
		t.Fatalf("Build() returned an invalid mapping: %v", err)
	}
}

func TestKeywordAndTextFieldsDisjoint(t *testing.T) {
	seen := make(map[string]bool)
	for _, f := range TextFields {
		seen[f] = true
	}
	for _, f := range KeywordFields {
		if seen[f] {
			t.Errorf("field %q appears in both TextFields and KeywordFields", f)
		}
	}
}
