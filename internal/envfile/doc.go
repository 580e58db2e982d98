// Package envfile reads and edits the host project's .env file. It registers
// the environment variables a spark requires as placeholder entries, reports
// placeholders the user has not replaced yet, and loads the file into a
// subprocess environment.
package envfile
