package logger

import (
	"sort"
	"strings"
)

// Config provides the logging Level for a particular namespace.
type Config interface {
	LevelForNamespace(namespace string) Level
}

// ConfigMap maps namespace patterns to levels. Namespace sections are
// separated by colons. A "*" section matches exactly one section and a "**"
// section matches any number of sections, including none. The empty key
// configures the root level.
type ConfigMap map[string]Level

type namespacePattern struct {
	sections []string
	level    Level
	score    int
}

type patternConfig struct {
	root     Level
	exact    map[string]Level
	patterns []namespacePattern
}

var _ Config = &patternConfig{}

// NewConfig creates a Config from the ConfigMap. The most specific pattern
// wins: literal sections weigh more than "*" which weighs more than "**".
func NewConfig(configMap ConfigMap) Config {
	if configMap == nil {
		return nil
	}

	c := &patternConfig{
		root:  configMap[""],
		exact: map[string]Level{},
	}

	for namespace, level := range configMap {
		if namespace == "" {
			continue
		}

		if !strings.Contains(namespace, "*") {
			c.exact[namespace] = level

			continue
		}

		sections := strings.Split(namespace, ":")

		c.patterns = append(c.patterns, namespacePattern{
			sections: sections,
			level:    level,
			score:    patternScore(sections),
		})
	}

	sort.SliceStable(c.patterns, func(i, j int) bool {
		return c.patterns[i].score > c.patterns[j].score
	})

	return c
}

// NewConfigFromString parses a comma separated list of namespace:level
// pairs, for example "**:pion:**:warn,signaller:trace,:info". The level
// suffix is optional and defaults to info. It returns nil for an empty
// string.
func NewConfigFromString(str string) Config {
	if str == "" {
		return nil
	}

	configMap := ConfigMap{}

	for _, namespace := range strings.Split(str, ",") {
		level := LevelInfo

		if index := strings.LastIndex(namespace, ":"); index > -1 {
			if l, ok := LevelFromString(namespace[index+1:]); ok {
				level = l
				namespace = namespace[:index]
			}
		} else if l, ok := LevelFromString(namespace); ok {
			level = l
			namespace = ""
		}

		configMap[namespace] = level
	}

	return NewConfig(configMap)
}

func patternScore(sections []string) int {
	score := 0

	for _, section := range sections {
		switch section {
		case "**":
		case "*":
			score++
		default:
			score += 2
		}
	}

	return score
}

func matchSections(pattern []string, names []string) bool {
	if len(pattern) == 0 {
		return len(names) == 0
	}

	switch pattern[0] {
	case "**":
		for i := 0; i <= len(names); i++ {
			if matchSections(pattern[1:], names[i:]) {
				return true
			}
		}

		return false
	case "*":
		return len(names) > 0 && matchSections(pattern[1:], names[1:])
	default:
		return len(names) > 0 && names[0] == pattern[0] && matchSections(pattern[1:], names[1:])
	}
}

// LevelForNamespace implements Config.
func (c *patternConfig) LevelForNamespace(namespace string) Level {
	if namespace == "" {
		return c.root
	}

	if level, ok := c.exact[namespace]; ok {
		return level
	}

	names := strings.Split(namespace, ":")

	for _, p := range c.patterns {
		if matchSections(p.sections, names) {
			return p.level
		}
	}

	return c.root
}
