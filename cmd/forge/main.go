// Forge is a rewrite-request admission and streaming execution service.
//
// It sits between resume-rewrite clients and an OpenAI-compatible
// generation backend, providing:
//   - Ordered admission control (global cap, result cache, quota, rate limit)
//   - Live SSE streaming of generated rewrite variations
//   - Exactly-once quota refunds for failed generations
//   - Durable rewrite history with retention sweeps
//
// Usage:
//
//	# Start server with default configuration
//	forge run
//
//	# Start with custom configuration file
//	forge run --config /path/to/config.yaml
//
//	# Validate a configuration file without starting
//	forge validate
//
//	# Show version information
//	forge version
package main

func main() {
	Execute()
}
