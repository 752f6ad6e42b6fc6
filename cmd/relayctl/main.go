package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"wa-relay/internal/relayclient"
)

var (
	baseURL string
	token   string
	timeout time.Duration
)

func main() {
	root := &cobra.Command{
		Use:           "relayctl",
		Short:         "Command-line client for a running wa-relay",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&baseURL, "url", envOr("RELAY_URL", "http://localhost:8000"), "relay base URL")
	root.PersistentFlags().StringVar(&token, "token", os.Getenv("API_TOKEN"), "API bearer token")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "request timeout")

	root.AddCommand(
		sendCmd(),
		uploadCmd(),
		listCmd(),
		getCmd(),
		mediaTestCmd(),
		healthCmd(),
		configCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func client() (*relayclient.Client, context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	return relayclient.New(baseURL, token), ctx, cancel
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func sendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a message through the relay",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "text <to> <text>",
		Short: "Send a text message",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, ctx, cancel := client()
			defer cancel()
			m, err := c.SendText(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(m)
		},
	})

	var caption string
	media := &cobra.Command{
		Use:   "media <to> <audio|document|image|video> <media-url>",
		Short: "Send a media message from a public URL",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, ctx, cancel := client()
			defer cancel()
			m, err := c.SendMedia(ctx, args[0], args[1], args[2], caption)
			if err != nil {
				return err
			}
			return printJSON(m)
		},
	}
	media.Flags().StringVarP(&caption, "caption", "c", "", "caption (ignored for audio)")
	cmd.AddCommand(media)

	var fileCaption string
	file := &cobra.Command{
		Use:   "file <to> <audio|document|image|video> <path>",
		Short: "Upload a local file and send it",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, ctx, cancel := client()
			defer cancel()
			m, err := c.UploadAndSend(ctx, args[0], args[2], args[1], fileCaption)
			if err != nil {
				return err
			}
			return printJSON(m)
		},
	}
	file.Flags().StringVarP(&fileCaption, "caption", "c", "", "caption (ignored for audio)")
	cmd.AddCommand(file)

	return cmd
}

func uploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <path>",
		Short: "Upload a file and print its public URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, ctx, cancel := client()
			defer cancel()
			res, err := c.UploadFile(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(res)
		},
	}
}

func listCmd() *cobra.Command {
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List received messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, ctx, cancel := client()
			defer cancel()
			p, err := c.List(ctx, limit, offset)
			if err != nil {
				return err
			}
			return printJSON(p)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "messages to skip")
	return cmd
}

func getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <message-id>",
		Short: "Show one received message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, ctx, cancel := client()
			defer cancel()
			m, err := c.Get(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(m)
		},
	}
}

func mediaTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "media-test <stored-filename>",
		Short: "Check that an uploaded file is being served",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, ctx, cancel := client()
			defer cancel()
			res, err := c.TestMedia(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(res)
		},
	}
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check relay health",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, ctx, cancel := client()
			defer cancel()
			res, err := c.Health(ctx)
			if err != nil {
				return err
			}
			return printJSON(res)
		},
	}
}

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show relay configuration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, ctx, cancel := client()
			defer cancel()
			res, err := c.Config(ctx)
			if err != nil {
				return err
			}
			return printJSON(res)
		},
	}
}
