package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch [task-id]",
	Short: "Watch the activity stream of a task in real time",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wsURL, err := streamURL(serverURL, args[0])
		if err != nil {
			return err
		}
		c, _, err := websocket.DefaultDialer.DialContext(cmd.Context(), wsURL, nil)
		if err != nil {
			return fmt.Errorf("dial %s: %w", wsURL, err)
		}
		defer c.Close()
		fmt.Fprintln(cmd.ErrOrStderr(), "WebSocket connected. Waiting for activities...")
		return watchTask(c, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

// streamURL maps the HTTP server URL to the task's websocket endpoint.
func streamURL(server, taskID string) (string, error) {
	u, err := url.Parse(server)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http", "":
		u.Scheme = "ws"
	}
	u.Path = "/ws/tasks/" + taskID
	u.RawPath = "/ws/tasks/" + url.PathEscape(taskID)
	return u.String(), nil
}

// watchTask prints events until the server closes the stream.
func watchTask(c *websocket.Conn, out io.Writer) error {
	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) && closeErr.Code == websocket.CloseNormalClosure {
				fmt.Fprintf(out, "Stream closed: %s\n", closeErr.Text)
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		var event eventView
		if err := json.Unmarshal(message, &event); err != nil {
			fmt.Fprintf(out, "unrecognised message: %s\n", message)
			continue
		}
		printActivity(out, event.Activity)
	}
}
