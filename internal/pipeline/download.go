package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

const maxAudioBytes = 200 * 1024 * 1024

var errEmptyDownload = errors.New("downloaded file is empty")

// download streams rawURL into path. A partial file is removed on failure.
func download(ctx context.Context, client *http.Client, rawURL, path string) (err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "lunemusic/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			return fmt.Errorf("failed to download: HTTP %d", resp.StatusCode)
		}
		return fmt.Errorf("failed to download: HTTP %d: %s", resp.StatusCode, msg)
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		closeErr := file.Close()
		if err == nil {
			err = closeErr
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	written, err := io.Copy(file, io.LimitReader(resp.Body, maxAudioBytes+1))
	if err != nil {
		return err
	}
	if written == 0 {
		return errEmptyDownload
	}
	if written > maxAudioBytes {
		return fmt.Errorf("download exceeds %d bytes", maxAudioBytes)
	}
	return nil
}
