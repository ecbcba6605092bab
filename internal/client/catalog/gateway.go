// Package catalog is the client of the equipment catalog HTTP API. It
// validates input before any request is made and normalises failures into
// common.ValidationError and common.RemoteError.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/equiplookup/internal/client/models"
	"github.com/dmitrijs2005/equiplookup/internal/common"
	"golang.org/x/oauth2"
)

// maxErrorBody caps how much of a failed response is read for the message.
const maxErrorBody = 4 << 10

// Gateway is stateless; every call is one request.
type Gateway struct {
	baseURL string
	client  *http.Client
}

// NewGateway returns a Gateway for the API rooted at baseURL (service path
// included). client carries authentication, see NewAuthorizedClient.
func NewGateway(baseURL string, client *http.Client) *Gateway {
	if client == nil {
		client = http.DefaultClient
	}
	return &Gateway{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

// NewAuthorizedClient returns an HTTP client that asks src for a bearer
// token on every request. src is consulted each time, so a sign-out or a
// new sign-in takes effect immediately.
func NewAuthorizedClient(src oauth2.TokenSource, timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: &oauth2.Transport{Source: src, Base: http.DefaultTransport},
		Timeout:   timeout,
	}
}

// BulkResult is the outcome of an accepted batch.
type BulkResult struct {
	Records []models.Equipment
	Count   int
}

type listResponse struct {
	Equipment []models.Equipment `json:"equipment"`
}

type recordResponse struct {
	Equipment models.Equipment `json:"equipment"`
}

type bulkResponse struct {
	Equipment []models.Equipment `json:"equipment"`
	Count     int                `json:"count"`
}

type bulkRequest struct {
	Equipment []models.EquipmentInput `json:"equipment"`
}

// Search returns records whose serial number contains pattern, ignoring
// case, in the order the server returns them.
func (g *Gateway) Search(ctx context.Context, pattern string) ([]models.Equipment, error) {
	pattern = common.NormalizeSerial(pattern)
	if pattern == "" {
		return nil, &common.ValidationError{Message: "search pattern is empty"}
	}

	var out listResponse
	q := url.Values{"serial_number": {pattern}}
	if err := g.do(ctx, http.MethodGet, "/equipment/search?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	if out.Equipment == nil {
		return []models.Equipment{}, nil
	}
	return out.Equipment, nil
}

// List returns every record, newest first.
func (g *Gateway) List(ctx context.Context) ([]models.Equipment, error) {
	var out listResponse
	if err := g.do(ctx, http.MethodGet, "/equipment", nil, &out); err != nil {
		return nil, err
	}
	if out.Equipment == nil {
		return []models.Equipment{}, nil
	}
	return out.Equipment, nil
}

// Insert stores one record and returns it as stored by the server.
func (g *Gateway) Insert(ctx context.Context, in models.EquipmentInput) (*models.Equipment, error) {
	in.SerialNumber = common.NormalizeSerial(in.SerialNumber)
	if in.SerialNumber == "" {
		return nil, &common.ValidationError{Message: "serial_number is required"}
	}

	var out recordResponse
	if err := g.do(ctx, http.MethodPost, "/equipment", in, &out); err != nil {
		return nil, err
	}
	return &out.Equipment, nil
}

// BulkInsert stores batch all-or-nothing. An empty batch or any item
// without a serial number fails before a request is made, listing the
// offending indexes.
func (g *Gateway) BulkInsert(ctx context.Context, batch []models.EquipmentInput) (*BulkResult, error) {
	if len(batch) == 0 {
		return nil, &common.ValidationError{Message: "batch is empty"}
	}

	items := make([]models.EquipmentInput, len(batch))
	var missing []int
	for i, in := range batch {
		in.SerialNumber = common.NormalizeSerial(in.SerialNumber)
		if in.SerialNumber == "" {
			missing = append(missing, i)
		}
		items[i] = in
	}
	if len(missing) > 0 {
		return nil, &common.ValidationError{Message: "every item needs a serial_number", Indexes: missing}
	}

	var out bulkResponse
	if err := g.do(ctx, http.MethodPost, "/equipment/bulk", bulkRequest{Equipment: items}, &out); err != nil {
		return nil, err
	}
	if out.Count != len(items) || len(out.Equipment) != out.Count {
		return nil, &common.RemoteError{Message: fmt.Sprintf("server stored %d of %d records", out.Count, len(items))}
	}
	return &BulkResult{Records: out.Equipment, Count: out.Count}, nil
}

// Health reports whether the catalog API answers.
func (g *Gateway) Health(ctx context.Context) error {
	var out struct {
		Status string `json:"status"`
	}
	if err := g.do(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return err
	}
	if out.Status != "ok" {
		return &common.RemoteError{Message: "unexpected health status " + out.Status}
	}
	return nil
}

func (g *Gateway) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, rd)
	if err != nil {
		return &common.RemoteError{Message: err.Error(), Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return &common.RemoteError{Message: transportMessage(err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &common.RemoteError{Status: resp.StatusCode, Message: errorMessage(resp)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &common.RemoteError{Status: resp.StatusCode, Message: "malformed response", Err: err}
	}
	return nil
}

// transportMessage unwraps url.Error so token source failures read well.
func transportMessage(err error) string {
	var ue *url.Error
	if errors.As(err, &ue) && ue.Err != nil {
		return ue.Err.Error()
	}
	return err.Error()
}

func errorMessage(resp *http.Response) string {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		return body.Error
	}
	if msg := strings.TrimSpace(string(raw)); msg != "" {
		return msg
	}
	return http.StatusText(resp.StatusCode)
}
