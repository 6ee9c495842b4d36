package client

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/gorilla/websocket"
)

// ws_client.go = live support chat from the terminal.

// ChatURL turns the API base URL into the chat socket URL
func ChatURL(apiURL string) (string, error) {
	u, err := url.Parse(apiURL)
	if err != nil {
		return "", fmt.Errorf("invalid api url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http", "":
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/chat"
	return u.String(), nil
}

// JoinChat connects to the chat, prints incoming frames and sends every
// line read from in. "/quit", EOF or ctx cancellation end the session.
func JoinChat(ctx context.Context, apiURL, username string, in io.Reader) error {
	chatURL, err := ChatURL(apiURL)
	if err != nil {
		return err
	}

	fmt.Printf("Connecting to %s...\n", chatURL)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, chatURL, nil)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer conn.Close()
	fmt.Println("Connected! Type your messages (or /quit to exit)")

	// receive loop
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var frame ChatFrame
			if err := conn.ReadJSON(&frame); err != nil {
				return
			}
			PrintMessage(frame)
		}
	}()

	// send loop
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return closeChat(conn)
		case <-done:
			fmt.Println("Connection closed by server")
			return nil
		case text, ok := <-lines:
			if !ok || text == "/quit" {
				return closeChat(conn)
			}
			payload := map[string]string{"message": text}
			if username != "" {
				payload["username"] = username
			}
			if err := conn.WriteJSON(payload); err != nil {
				return fmt.Errorf("send failed: %w", err)
			}
		}
	}
}

func closeChat(conn *websocket.Conn) error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
	return conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}

// FormatMessage renders a frame as one terminal line; pings render empty
func FormatMessage(frame ChatFrame) string {
	ts := time.Unix(0, int64(frame.Timestamp*float64(time.Second))).Format("15:04:05")
	switch frame.Type {
	case "message":
		return fmt.Sprintf("%s [%s] %s", ts, frame.Username, frame.Message)
	case "info":
		return fmt.Sprintf("%s * %s", ts, frame.Message)
	case "error":
		return fmt.Sprintf("%s ! %s", ts, frame.Message)
	}
	return ""
}

func PrintMessage(frame ChatFrame) {
	line := FormatMessage(frame)
	if line == "" {
		return
	}
	attr := color.FgCyan
	switch frame.Type {
	case "info":
		attr = color.FgYellow
	case "error":
		attr = color.FgRed
	}
	color.New(attr).Println(line)
}
