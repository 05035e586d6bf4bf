package commsutil

import (
	"fmt"
	"strings"
)

// Default COMMS subjects.
const (
	SubjectConverter       = "cap.more0.converter.v1"
	SubjectConversionEvent = "converter.converted"
)

// BuildConversionSubject builds the granular subject a conversion event is published on.
// Dots inside attribute names would split the subject into extra tokens, so they become
// underscores.
func BuildConversionSubject(source, target string) string {
	return fmt.Sprintf("%s.%s.%s", SubjectConversionEvent, subjectToken(source), subjectToken(target))
}

func subjectToken(s string) string {
	return strings.ReplaceAll(s, ".", "_")
}
