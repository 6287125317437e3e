package logging

import (
	"regexp"
	"strings"
)

// LoggerPatternConfig sets Level on every logger whose dotted name matches Pattern. A "*"
// section matches any run of characters, dots included.
type LoggerPatternConfig struct {
	Pattern string `json:"pattern" mapstructure:"pattern"`
	Level   string `json:"level" mapstructure:"level"`
}

// A pattern is one or more dot-separated sections. Each section is "*" or an alphanumeric word
// that may contain inner runs of '_' and '-', e.g. "lightscan.*.session".
var loggerPatternRegexp = func() *regexp.Regexp {
	section := `([a-zA-Z0-9]+([_-]*[a-zA-Z0-9]+)*|\*)`
	return regexp.MustCompile(`^` + section + `(\.` + section + `)*$`)
}()

func validatePattern(pattern string) bool {
	return loggerPatternRegexp.MatchString(pattern)
}

// compilePattern turns a validated pattern into a regexp anchored at both ends.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	sections := strings.Split(pattern, ".")
	for i, s := range sections {
		if s == "*" {
			sections[i] = ".*"
		} else {
			sections[i] = regexp.QuoteMeta(s)
		}
	}
	return regexp.Compile(`^` + strings.Join(sections, `\.`) + `$`)
}
