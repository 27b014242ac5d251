/*
Package cli provides command-line utilities for the saturn command.

It includes output formatters, a progress reporter for load runs, common
error types, and signal handling helpers.

Output Formatting:

Command results can be rendered as plain text or JSON:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, result); err != nil {
		return err
	}

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx := cli.SetupSignalHandler()
	// Use ctx for operations that should be cancelled on shutdown
*/
package cli
