// Package netx holds small HTTP helpers shared by the client.
package netx

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// maxDownloadSize caps a single image download.
const maxDownloadSize = 32 << 20

// Download streams the body of a GET on url into w and returns the number of
// bytes written. Presigned URLs carry their own credentials, so client should
// not add an Authorization header.
func Download(ctx context.Context, client *http.Client, url string, w io.Writer) (int64, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("download failed: %s; body: %s", resp.Status, string(b))
	}

	n, err := io.Copy(w, io.LimitReader(resp.Body, maxDownloadSize+1))
	if err != nil {
		return n, err
	}
	if n > maxDownloadSize {
		return n, fmt.Errorf("download exceeds %d bytes", maxDownloadSize)
	}
	return n, nil
}
