// Package fetcher clones spark repositories into a working directory next to
// the host project and strips their VCS metadata.
package fetcher
