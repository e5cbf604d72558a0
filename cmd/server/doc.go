// Package main is the entry point for the agent sandbox server.
//
// The server runs inside an isolated container and exposes the sandbox to
// an agent over HTTP:
//
//	Agent → Sandbox Server → shell processes
//	                      → headless browser
//	                      → skill store (<workspace>/.skills)
//	                      → TEE guest agent (optional)
//
// The server provides:
//   - Shell and code execution, buffered, SSE or WebSocket streamed
//   - Workspace file transfer
//   - Browser automation
//   - Skill registry and the skill factory dialogue
//   - Attestation when TEE_ENABLED is set
//
// Configuration:
//   - CONFIG_FILE names an optional TOML file
//   - Environment variables override the file (PORT, WORKSPACE, DISPLAY,
//     SKILLS_DIR, EXEC_MAX_TIMEOUT, TEE_ENABLED, LOG_LEVEL, ...)
//   - CLI flags override both
//
// Usage:
//
//	# Production mode
//	WORKSPACE=/home/user ./server -port 8080
//
//	# Development mode (colored logs, debug level)
//	./server -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
