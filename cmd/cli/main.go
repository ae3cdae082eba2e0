package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	token     string
	rootCmd   = &cobra.Command{
		Use:   "video-dl",
		Short: "Video download API client",
		Long:  `A command-line client that asks a video-dl-api server for a QuickTime-compatible MP4.`,

		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("VDL_SERVER", "http://localhost:8000"), "Server URL")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("VDL_TOKEN"), "Bearer token (default $VDL_TOKEN)")

	downloadCmd.Flags().StringP("output", "o", "", "Output file (default: server-provided filename)")
	downloadCmd.Flags().Duration("timeout", 15*time.Minute, "Request timeout")

	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(healthCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var downloadCmd = &cobra.Command{
	Use:   "download [url]",
	Short: "Download a video as MP4",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		if token == "" {
			return fmt.Errorf("no token: pass --token or set VDL_TOKEN")
		}

		data, err := json.Marshal(map[string]string{"url": args[0]})
		if err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, serverURL+"/download", bytes.NewReader(data))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)

		client := &http.Client{Timeout: timeout}
		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, errorDetail(resp.Body))
		}

		if output == "" {
			output = attachmentName(resp.Header.Get("Content-Disposition"))
		}

		written, err := saveBody(resp.Body, output)
		if err != nil {
			return err
		}

		fmt.Printf("Saved %s (%d bytes)\n", output, written)
		return nil
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check server health",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := &http.Client{Timeout: 5 * time.Second}
		resp, err := client.Get(serverURL + "/health")
		if err != nil {
			return fmt.Errorf("server unreachable: %w", err)
		}
		defer resp.Body.Close()

		var health struct {
			Status  string `json:"status"`
			Version string `json:"version"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
			return fmt.Errorf("unexpected health response: %w", err)
		}

		fmt.Printf("Status:  %s\n", health.Status)
		fmt.Printf("Version: %s\n", health.Version)
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("server returned %d", resp.StatusCode)
		}
		return nil
	},
}

// errorDetail extracts the detail field of an error response
func errorDetail(body io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(body, 64*1024))
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Detail != "" {
		return payload.Detail
	}
	return string(raw)
}

// attachmentName reads the filename from a Content-Disposition header
func attachmentName(header string) string {
	_, params, err := mime.ParseMediaType(header)
	if err == nil {
		if name := filepath.Base(params["filename"]); name != "." && name != "/" && name != "" {
			return name
		}
	}
	return "video.mp4"
}

// saveBody writes body to path through a temp file so partial downloads never land at path
func saveBody(body io.Reader, path string) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".video-dl-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create output file: %w", err)
	}
	defer os.Remove(tmp.Name())

	written, err := io.Copy(tmp, body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return written, fmt.Errorf("failed to write output: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return written, fmt.Errorf("failed to move output into place: %w", err)
	}
	return written, nil
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
