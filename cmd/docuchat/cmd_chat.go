// Copyright (C) 2026 DocuChat Labs (oss@docuchat.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// chatMessage mirrors the gateway's message wire shape. Content stays a
// plain string here; the CLI never sends multi-part content.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatStreamRequest struct {
	Messages []chatMessage `json:"messages"`
}

// sseEvent is the data payload of one gateway SSE event.
type sseEvent struct {
	Type      string `json:"type"`
	Content   string `json:"content,omitempty"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	SessionId string `json:"session_id,omitempty"`
}

func runAskCommand(cmd *cobra.Command, args []string) {
	question := strings.Join(args, " ")

	messages := []chatMessage{{Role: "user", Content: question}}
	if _, err := streamChatTurn(messages); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func runChatCommand(cmd *cobra.Command, args []string) {
	cyan := color.New(color.FgCyan)
	cyan.Println("DocuChat interactive session. Type 'exit' or Ctrl-D to quit.")

	history := []chatMessage{}
	stdin := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("\nYou> ")
		if !stdin.Scan() {
			fmt.Println()
			return
		}
		input := strings.TrimSpace(stdin.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			return
		}

		history = append(history, chatMessage{Role: "user", Content: input})
		answer, err := streamChatTurn(history)
		if err != nil {
			color.Red("Error: %v", err)
			// Drop the failed turn so the history stays consistent
			history = history[:len(history)-1]
			continue
		}
		history = append(history, chatMessage{Role: "assistant", Content: answer})
	}
}

func runHealthCommand(cmd *cobra.Command, args []string) {
	baseURL := getGatewayBaseURL()
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		color.Red("Gateway unreachable at %s: %v", baseURL, err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		color.Red("Gateway returned status %d", resp.StatusCode)
		os.Exit(1)
	}
	color.Green("Gateway healthy at %s", baseURL)
}

// streamChatTurn sends the conversation to the gateway and renders the SSE
// stream. Returns the assembled answer for history tracking.
func streamChatTurn(messages []chatMessage) (string, error) {
	payload, err := json.Marshal(chatStreamRequest{Messages: messages})
	if err != nil {
		return "", fmt.Errorf("failed to create request body: %w", err)
	}

	baseURL := getGatewayBaseURL()
	client := &http.Client{Timeout: 5 * time.Minute}

	sp := spinner.New(spinner.CharSets[14], 80*time.Millisecond, spinner.WithWriter(os.Stderr))
	sp.Suffix = "  Waiting for the gateway..."
	_ = sp.Color("cyan")
	sp.Start()
	spinning := true
	stopSpinner := func() {
		if spinning {
			sp.Stop()
			spinning = false
		}
	}
	defer stopSpinner()

	resp, err := client.Post(baseURL+"/v1/chat/stream", "application/json", bytes.NewBuffer(payload))
	if err != nil {
		return "", fmt.Errorf("failed to reach the gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		stopSpinner()
		body, _ := io.ReadAll(resp.Body)
		var errBody struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &errBody) == nil && errBody.Error != "" {
			return "", fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, errBody.Error)
		}
		return "", fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, string(body))
	}

	var answer strings.Builder
	green := color.New(color.FgGreen)

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		// SSE framing: only data lines carry payloads; comments (keepalives)
		// and event-name lines are skipped.
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var event sseEvent
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event); err != nil {
			continue
		}

		switch event.Type {
		case "token":
			stopSpinner()
			green.Print(event.Content)
			answer.WriteString(event.Content)
		case "error":
			stopSpinner()
			return answer.String(), fmt.Errorf("%s", event.Error)
		case "done":
			stopSpinner()
			fmt.Println()
			return answer.String(), nil
		}
	}
	if err := scanner.Err(); err != nil {
		return answer.String(), fmt.Errorf("stream read failed: %w", err)
	}
	return answer.String(), fmt.Errorf("stream ended without a done event")
}
