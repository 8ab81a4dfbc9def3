// Package airtable implements the record store driver against the Airtable
// REST API. Records are fetched with filterByFormula and offset-based
// pagination (page size capped at 100 by the API), and every raw record is
// normalized into typed store structs at this boundary so the rest of the
// codebase never branches on field shape.
package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/narrinai/companion/internal/profile"
	"github.com/narrinai/companion/store"
)

const (
	tableUsers         = "Users"
	tableMemories      = "Memories"
	tableRelationships = "Relationships"
	tableReferrals     = "Referrals"
)

// Driver talks to one Airtable base.
type Driver struct {
	client   *http.Client
	profile  *profile.Profile
	baseURL  string
	apiKey   string
	pageSize int

	// The API allows 5 requests per second per base.
	limiter *rate.Limiter

	// relMu serializes relationship upserts per (owner, character) key.
	// Airtable has no conditional write, so without this two concurrent
	// turns for the same pair could both pass the existence check and
	// create duplicate summaries.
	relMu   sync.Mutex
	relKeys map[string]*sync.Mutex
}

// NewDriver creates an Airtable record store driver.
func NewDriver(profile *profile.Profile) (store.Driver, error) {
	if profile.AirtableAPIKey == "" {
		return nil, errors.New("airtable api key required")
	}
	if profile.AirtableBaseID == "" {
		return nil, errors.New("airtable base id required")
	}
	pageSize := profile.AirtablePageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 100
	}
	return &Driver{
		client:   &http.Client{Timeout: 30 * time.Second},
		profile:  profile,
		baseURL:  strings.TrimRight(profile.AirtableBaseURL, "/") + "/" + profile.AirtableBaseID,
		apiKey:   profile.AirtableAPIKey,
		pageSize: pageSize,
		limiter:  rate.NewLimiter(rate.Limit(5), 1),
		relKeys:  map[string]*sync.Mutex{},
	}, nil
}

// Migrate is a no-op: the Airtable base schema is managed externally.
func (*Driver) Migrate(_ context.Context) error {
	return nil
}

func (*Driver) Close() error {
	return nil
}

// rawRecord is the Airtable wire representation of one record.
type rawRecord struct {
	ID          string         `json:"id"`
	CreatedTime time.Time      `json:"createdTime"`
	Fields      map[string]any `json:"fields"`
}

type listResponse struct {
	Records []rawRecord `json:"records"`
	Offset  string      `json:"offset"`
}

func (d *Driver) doRequest(ctx context.Context, method string, path string, body any) ([]byte, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal request body")
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, d.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+d.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(store.ErrUpstreamUnavailable, "airtable request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(store.ErrUpstreamUnavailable, "failed to read airtable response: %v", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, errors.Wrapf(store.ErrUpstreamUnavailable, "airtable returned status %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return nil, errors.Errorf("airtable returned status %d: %s", resp.StatusCode, string(raw))
	}
	return raw, nil
}

// listAll walks offset pagination until exhaustion or maxRecords.
func (d *Driver) listAll(ctx context.Context, table string, formula string, maxRecords int) ([]rawRecord, error) {
	var records []rawRecord
	offset := ""
	for {
		query := url.Values{}
		query.Set("pageSize", fmt.Sprintf("%d", d.pageSize))
		if formula != "" {
			query.Set("filterByFormula", formula)
		}
		if maxRecords > 0 {
			query.Set("maxRecords", fmt.Sprintf("%d", maxRecords))
		}
		if offset != "" {
			query.Set("offset", offset)
		}
		// Newest first.
		query.Set("sort[0][field]", "CreatedTime")
		query.Set("sort[0][direction]", "desc")

		raw, err := d.doRequest(ctx, http.MethodGet, "/"+url.PathEscape(table)+"?"+query.Encode(), nil)
		if err != nil {
			return nil, err
		}
		var page listResponse
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, errors.Wrap(err, "failed to decode airtable list response")
		}
		records = append(records, page.Records...)

		if page.Offset == "" || (maxRecords > 0 && len(records) >= maxRecords) {
			break
		}
		offset = page.Offset
	}
	if maxRecords > 0 && len(records) > maxRecords {
		records = records[:maxRecords]
	}
	return records, nil
}

func (d *Driver) createRecord(ctx context.Context, table string, fields map[string]any) (*rawRecord, error) {
	raw, err := d.doRequest(ctx, http.MethodPost, "/"+url.PathEscape(table), map[string]any{"fields": fields})
	if err != nil {
		return nil, err
	}
	var record rawRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, errors.Wrap(err, "failed to decode airtable create response")
	}
	return &record, nil
}

func (d *Driver) updateRecord(ctx context.Context, table string, id string, fields map[string]any) (*rawRecord, error) {
	raw, err := d.doRequest(ctx, http.MethodPatch, "/"+url.PathEscape(table)+"/"+id, map[string]any{"fields": fields})
	if err != nil {
		return nil, err
	}
	var record rawRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, errors.Wrap(err, "failed to decode airtable update response")
	}
	return &record, nil
}

// relLock returns the mutex guarding one (owner, character) upsert key.
func (d *Driver) relLock(key string) *sync.Mutex {
	d.relMu.Lock()
	defer d.relMu.Unlock()
	mu, ok := d.relKeys[key]
	if !ok {
		mu = &sync.Mutex{}
		d.relKeys[key] = mu
	}
	return mu
}

// escapeFormulaString escapes a value for inclusion in filterByFormula.
func escapeFormulaString(s string) string {
	return strings.ReplaceAll(s, "'", "\\'")
}
