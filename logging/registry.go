package logging

import (
	"regexp"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// LoggerPatternConfig sets the level of every logger whose name matches Pattern. A pattern is a
// dotted logger name in which any section may be `*`, e.g. "drive.*".
type LoggerPatternConfig struct {
	Pattern string `json:"pattern"`
	Level   string `json:"level"`
}

var loggerPatternRegexp = regexp.MustCompile(
	`^([a-zA-Z0-9]+([_-]*[a-zA-Z0-9]+)*|\*)(\.([a-zA-Z0-9]+([_-]*[a-zA-Z0-9]+)*|\*))*$`)

// ValidatePattern reports whether a logger pattern such as "drive.*" is well formed.
func ValidatePattern(pattern string) bool {
	return loggerPatternRegexp.MatchString(pattern)
}

// patternRegexp turns a valid pattern into an anchored regexp. A `*` section matches one or more
// whole sections.
func patternRegexp(pattern string) *regexp.Regexp {
	sections := lo.Map(strings.Split(pattern, "."), func(section string, _ int) string {
		if section == "*" {
			return `.+`
		}
		return regexp.QuoteMeta(section)
	})
	return regexp.MustCompile(`^` + strings.Join(sections, `\.`) + `$`)
}

type levelRule struct {
	match *regexp.Regexp
	level Level
}

// Registry owns the drive's named loggers: the root ("drive") and the subloggers handed to each
// component ("drive.navigation", "drive.feed"). Update re-levels all of them from the config's
// log patterns.
type Registry struct {
	mu           sync.Mutex
	name         string
	root         Logger
	loggers      map[string]Logger
	rules        []levelRule
	defaultLevel Level
}

// NewRegistry registers root under name.
func NewRegistry(name string, root Logger) *Registry {
	return &Registry{
		name:         name,
		root:         root,
		loggers:      map[string]Logger{name: root},
		defaultLevel: root.GetLevel(),
	}
}

// Sublogger returns a child of the root logger registered as "<name>.<subname>". It starts at the
// level the current patterns give that name.
func (r *Registry) Sublogger(subname string) Logger {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := r.name + "." + subname
	logger := r.root.Sublogger(subname)
	logger.SetLevel(r.levelFor(name))
	r.loggers[name] = logger
	return logger
}

// Update replaces the patterns and re-levels every registered logger. Later patterns win over
// earlier ones; a logger matching none gets defaultLevel. Malformed patterns are skipped with a
// warning on the root logger.
func (r *Registry) Update(patterns []LoggerPatternConfig, defaultLevel Level) error {
	rules := make([]levelRule, 0, len(patterns))
	for _, lpc := range patterns {
		if !ValidatePattern(lpc.Pattern) {
			r.root.Warnw("ignoring malformed logger pattern", "pattern", lpc.Pattern)
			continue
		}
		level, err := LevelFromString(lpc.Level)
		if err != nil {
			return errors.Wrapf(err, "logger pattern %q", lpc.Pattern)
		}
		rules = append(rules, levelRule{patternRegexp(lpc.Pattern), level})
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = rules
	r.defaultLevel = defaultLevel
	for name, logger := range r.loggers {
		logger.SetLevel(r.levelFor(name))
	}
	return nil
}

// levelFor must be called with mu held.
func (r *Registry) levelFor(name string) Level {
	level := r.defaultLevel
	for _, rule := range r.rules {
		if rule.match.MatchString(name) {
			level = rule.level
		}
	}
	return level
}
