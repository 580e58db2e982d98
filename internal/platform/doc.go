// Package platform provides cross-platform permission management. On Unix
// systems it uses chmod directly; on Windows permission bits are ignored.
package platform
