package commsutil

import "testing"

func TestBuildConversionSubject(t *testing.T) {
	tests := []struct {
		name   string
		source string
		target string
		want   string
	}{
		{"basic", "smiles", "inchi", "converter.converted.smiles.inchi"},
		{"underscored", "iupac_name", "smiles", "converter.converted.iupac_name.smiles"},
		{"dotted", "temp.celsius", "temp.fahrenheit", "converter.converted.temp_celsius.temp_fahrenheit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildConversionSubject(tt.source, tt.target)
			if got != tt.want {
				t.Errorf("commsutil:subjects_test - BuildConversionSubject(%q, %q) = %q, want %q", tt.source, tt.target, got, tt.want)
			}
		})
	}
}

func TestDefaultSubjects(t *testing.T) {
	if SubjectConverter != "cap.more0.converter.v1" {
		t.Errorf("commsutil:subjects_test - SubjectConverter = %q", SubjectConverter)
	}
	if SubjectConversionEvent != "converter.converted" {
		t.Errorf("commsutil:subjects_test - SubjectConversionEvent = %q", SubjectConversionEvent)
	}
}
