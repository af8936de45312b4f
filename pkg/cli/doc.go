/*
Package cli provides command-line utilities shared by the forge command.

It includes typed errors for config and command failures and signal
helpers for graceful shutdown:

	ctx := cli.SetupSignalHandler()
	// Use ctx for operations that should be cancelled on shutdown
*/
package cli
