// Package config provides the configuration of a linkaudit run: defaults,
// the .linkaudit project file, validation, and XDG directory locations.
package config
