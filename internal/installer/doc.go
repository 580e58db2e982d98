// Package installer sequences the installation of a spark into a Catalyst
// project: fetch, validate, record, merge dependencies, register environment
// variables, integrate sources and run migrations. It also installs every
// spark recorded in the project descriptor, one after another, and reports
// the outcome of each stage.
package installer
