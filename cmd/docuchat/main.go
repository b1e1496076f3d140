// Copyright (C) 2026 DocuChat Labs (oss@docuchat.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command docuchat is the CLI companion for the DocuChat gateway.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:   "docuchat",
		Short: "A CLI for chatting with a DocuChat gateway",
		Long: `DocuChat is a document-grounded chat gateway. This CLI streams
answers from a running gateway instance to your terminal.`,
	}

	askCmd = &cobra.Command{
		Use:   "ask [question]",
		Short: "Asks a single question and streams the answer",
		Args:  cobra.MinimumNArgs(1),
		Run:   runAskCommand,
	}

	chatCmd = &cobra.Command{
		Use:   "chat",
		Short: "Starts an interactive chat session against the gateway",
		Run:   runChatCommand,
	}

	healthCmd = &cobra.Command{
		Use:   "health",
		Short: "Checks whether the gateway is reachable",
		Run:   runHealthCommand,
	}
)

func getGatewayBaseURL() string {
	if url := strings.TrimSuffix(os.Getenv("DOCUCHAT_GATEWAY_URL"), "/"); url != "" {
		return url
	}
	return "http://localhost:8080"
}

func main() {
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(healthCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
