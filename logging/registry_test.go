package logging

import (
	"testing"

	"go.viam.com/test"
)

func TestValidatePattern(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		pattern string
		isValid bool
	}{
		{"drive", true},
		{"drive.navigation", true},
		{"drive.*", true},
		{"*.feed", true},
		{"drive.sub-logger_1", true},
		{"*", true},

		{"drive..navigation", false},
		{"drive.navigation.", false},
		{".drive", false},
		{"drive.**", false},
		{"_.drive", false},
		{"drive.-", false},
	} {
		t.Run(tc.pattern, func(t *testing.T) {
			t.Parallel()
			test.That(t, ValidatePattern(tc.pattern), test.ShouldEqual, tc.isValid)
		})
	}
}

func newDriveRegistry(t *testing.T) (*Registry, Logger, Logger, Logger) {
	t.Helper()
	root := NewTestLogger(t)
	root.SetLevel(INFO)
	registry := NewRegistry("drive", root)
	return registry, root, registry.Sublogger("navigation"), registry.Sublogger("feed")
}

func TestRegistryUpdate(t *testing.T) {
	for _, tc := range []struct {
		name                 string
		patterns             []LoggerPatternConfig
		root, navigation, fd Level
	}{
		{
			name:       "default only",
			root:       INFO,
			navigation: INFO,
			fd:         INFO,
		},
		{
			name:       "exact name",
			patterns:   []LoggerPatternConfig{{Pattern: "drive.navigation", Level: "debug"}},
			root:       INFO,
			navigation: DEBUG,
			fd:         INFO,
		},
		{
			name:       "wildcard skips root",
			patterns:   []LoggerPatternConfig{{Pattern: "drive.*", Level: "warn"}},
			root:       INFO,
			navigation: WARN,
			fd:         WARN,
		},
		{
			name: "later pattern wins",
			patterns: []LoggerPatternConfig{
				{Pattern: "*", Level: "error"},
				{Pattern: "drive.feed", Level: "debug"},
			},
			root:       ERROR,
			navigation: ERROR,
			fd:         DEBUG,
		},
		{
			name:       "malformed pattern ignored",
			patterns:   []LoggerPatternConfig{{Pattern: "_.*.navigation", Level: "debug"}},
			root:       INFO,
			navigation: INFO,
			fd:         INFO,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			registry, root, nav, feed := newDriveRegistry(t)
			test.That(t, registry.Update(tc.patterns, INFO), test.ShouldBeNil)
			test.That(t, root.GetLevel(), test.ShouldEqual, tc.root)
			test.That(t, nav.GetLevel(), test.ShouldEqual, tc.navigation)
			test.That(t, feed.GetLevel(), test.ShouldEqual, tc.fd)
		})
	}
}

func TestRegistryDefaultLevel(t *testing.T) {
	registry, root, nav, feed := newDriveRegistry(t)
	test.That(t, registry.Update(nil, DEBUG), test.ShouldBeNil)
	test.That(t, root.GetLevel(), test.ShouldEqual, DEBUG)
	test.That(t, nav.GetLevel(), test.ShouldEqual, DEBUG)
	test.That(t, feed.GetLevel(), test.ShouldEqual, DEBUG)
}

func TestRegistryRejectsBadLevel(t *testing.T) {
	registry, _, nav, _ := newDriveRegistry(t)
	err := registry.Update([]LoggerPatternConfig{{Pattern: "drive.navigation", Level: "loud"}}, INFO)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "drive.navigation")
	test.That(t, nav.GetLevel(), test.ShouldEqual, INFO)
}

func TestRegistrySubloggerAfterUpdate(t *testing.T) {
	root, logs := NewObservedTestLogger(t)
	registry := NewRegistry("drive", root)
	test.That(t, registry.Update([]LoggerPatternConfig{{Pattern: "drive.feed", Level: "error"}}, INFO), test.ShouldBeNil)

	feed := registry.Sublogger("feed")
	test.That(t, feed.GetLevel(), test.ShouldEqual, ERROR)
	feed.Warn("rosbag replay stopped")
	test.That(t, logs.Len(), test.ShouldEqual, 0)

	nav := registry.Sublogger("navigation")
	test.That(t, nav.GetLevel(), test.ShouldEqual, INFO)
	nav.Info("route complete")
	test.That(t, logs.FilterMessage("route complete").Len(), test.ShouldEqual, 1)
}
