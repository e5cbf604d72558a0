// Package paths resolves the filesystem locations the sandbox works with.
//
// Every component that touches the workspace goes through this package so
// relative paths behave the same for shell commands, file operations and
// skill storage.
package paths
