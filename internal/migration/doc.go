// Package migration runs a spark's database migrations through the external
// migration tool (diesel by default) and classifies the outcome of each
// migration entry.
package migration
