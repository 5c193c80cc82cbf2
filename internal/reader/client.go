// Package reader polls the URA4 RFID reader's HTTP API and normalizes its
// tag reports into canonical readings. The reader does not push; this server
// passively polls whatever inventory the reader is currently running.
package reader

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"
)

const tagReportingPath = "/InventoryController/tagReporting"

// TagReading is one normalized antenna read. EPC and TID are uppercase hex;
// TID may be empty when the reader omits it.
type TagReading struct {
	EPC     string
	TID     string
	Antenna int
	RSSI    float64
	Count   int
}

// Client polls the reader. The cookie jar preserves the reader's session
// across polls, matching how its own web UI talks to it.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a poll client for the reader at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
	}
}

// rawTag mirrors the reader's JSON tag shape. Older firmware reports "tid"
// and "count" instead of "tidHex" and "readCount".
type rawTag struct {
	EPCHex      string   `json:"epcHex"`
	TIDHex      string   `json:"tidHex"`
	TID         string   `json:"tid"`
	AntennaPort *int     `json:"antennaPort"`
	RSSI        *float64 `json:"rssi"`
	ReadCount   *int     `json:"readCount"`
	Count       *int     `json:"count"`
}

type tagReportingResponse struct {
	Data []rawTag `json:"data"`
}

// Poll fetches the current tag report. Transport failures are returned as
// errors so the caller can back off; normalization itself never fails -
// malformed entries are dropped and a malformed body yields an empty list.
func (c *Client) Poll(ctx context.Context) ([]TagReading, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+tagReportingPath, strings.NewReader(""))
	if err != nil {
		return nil, fmt.Errorf("build poll request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("poll reader: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("poll reader: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read poll response: %w", err)
	}
	return Normalize(body), nil
}

// Normalize converts a raw tag-reporting payload into readings. A reading
// with no EPC is discarded; missing numeric fields take the reader's
// documented defaults (antenna 1, RSSI -60, count 1). Anything unparseable
// normalizes to an empty list.
func Normalize(payload []byte) []TagReading {
	if len(payload) == 0 {
		return nil
	}

	var report tagReportingResponse
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil
	}

	readings := make([]TagReading, 0, len(report.Data))
	for _, tag := range report.Data {
		epc := strings.ToUpper(strings.TrimSpace(tag.EPCHex))
		if epc == "" {
			continue
		}

		tid := tag.TIDHex
		if tid == "" {
			tid = tag.TID
		}

		reading := TagReading{
			EPC:     epc,
			TID:     strings.ToUpper(strings.TrimSpace(tid)),
			Antenna: 1,
			RSSI:    -60.0,
			Count:   1,
		}
		if tag.AntennaPort != nil {
			reading.Antenna = *tag.AntennaPort
		}
		if tag.RSSI != nil {
			reading.RSSI = *tag.RSSI
		}
		if tag.ReadCount != nil {
			reading.Count = *tag.ReadCount
		} else if tag.Count != nil {
			reading.Count = *tag.Count
		}
		readings = append(readings, reading)
	}
	return readings
}
