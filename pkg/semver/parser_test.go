package semver

import (
	"testing"
)

func TestParseConversionRef(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantSource string
		wantTarget string
		wantRange  string
		wantErr    bool
	}{
		{name: "no version", input: "smiles:inchi", wantSource: "smiles", wantTarget: "inchi"},
		{name: "major only", input: "smiles:inchi@2", wantSource: "smiles", wantTarget: "inchi", wantRange: "2"},
		{name: "exact version", input: "smiles:inchi@2.1.0", wantSource: "smiles", wantTarget: "inchi", wantRange: "2.1.0"},
		{name: "caret range", input: "celsius:fahrenheit@^1.2.0", wantSource: "celsius", wantTarget: "fahrenheit", wantRange: "^1.2.0"},
		{name: "underscored names", input: "iupac_name:smiles", wantSource: "iupac_name", wantTarget: "smiles"},
		{name: "surrounding space", input: "  a:b@1  ", wantSource: "a", wantTarget: "b", wantRange: "1"},
		{name: "missing colon", input: "smiles_to_inchi", wantErr: true},
		{name: "empty source", input: ":inchi", wantErr: true},
		{name: "empty target", input: "smiles:", wantErr: true},
		{name: "empty range", input: "smiles:inchi@", wantErr: true},
		{name: "digit first", input: "1abc:inchi", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := ParseConversionRef(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("semver:parser_test - expected error for %q, got %+v", tt.input, ref)
				}
				return
			}
			if err != nil {
				t.Fatalf("semver:parser_test - unexpected error: %v", err)
			}
			if ref.Source != tt.wantSource || ref.Target != tt.wantTarget || ref.Range != tt.wantRange {
				t.Errorf("semver:parser_test - got (%q, %q, %q), want (%q, %q, %q)",
					ref.Source, ref.Target, ref.Range, tt.wantSource, tt.wantTarget, tt.wantRange)
			}
		})
	}
}

func TestConversionRef_String(t *testing.T) {
	ref, err := ParseConversionRef("smiles:inchi@^2")
	if err != nil {
		t.Fatalf("semver:parser_test - unexpected error: %v", err)
	}
	if ref.String() != "smiles:inchi@^2" {
		t.Errorf("semver:parser_test - String() = %q", ref.String())
	}
	ref.Range = ""
	if ref.String() != "smiles:inchi" {
		t.Errorf("semver:parser_test - String() = %q", ref.String())
	}
}

func TestIsMajorOnly(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"3", true},
		{"12", true},
		{"3.0", false},
		{"^3", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsMajorOnly(tt.input); got != tt.want {
			t.Errorf("semver:parser_test - IsMajorOnly(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestIsExactVersion(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"1.2.3", true},
		{"1.2.3-alpha.1", true},
		{"1.2.3+build.5", true},
		{"1.2", false},
		{"^1.2.3", false},
	}
	for _, tt := range tests {
		if got := IsExactVersion(tt.input); got != tt.want {
			t.Errorf("semver:parser_test - IsExactVersion(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestExtractMajorFromRange(t *testing.T) {
	if got := ExtractMajorFromRange("4"); got != 4 {
		t.Errorf("semver:parser_test - ExtractMajorFromRange(4) = %d", got)
	}
	if got := ExtractMajorFromRange("^4"); got != -1 {
		t.Errorf("semver:parser_test - ExtractMajorFromRange(^4) = %d, want -1", got)
	}
}
