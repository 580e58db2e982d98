// Package project describes the layout of a Catalyst host project and finds
// its root directory.
package project
