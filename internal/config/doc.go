// Package config defines the tables the build and packaging tools work from
// and provides helpers to load, validate and save them in YAML format.
//
// Every value has a built-in default matching the stock release layout, so
// both tools run without a config file. Environment variables are never read.
package config
