// Package orthanc is a minimal client for the Orthanc REST API, covering
// the handful of endpoints the ingestion pipeline needs: listing studies,
// resolving a study's DICOM Study Instance UID, and fetching the raw bytes
// of one representative instance.
//
// Orthanc's hierarchy is Study -> Series -> Instances; /instances/{id}/file
// returns the instance as application/dicom.
package orthanc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to one Orthanc server. Safe for concurrent use; the
// underlying http.Client manages its own connection pool.
type Client struct {
	baseURL  string
	username string
	password string
	http     *http.Client
}

// NewClient creates a client for the Orthanc server at baseURL. Username and
// password may be empty for unauthenticated servers.
func NewClient(baseURL, username, password string) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		password: password,
		http:     &http.Client{Timeout: 60 * time.Second},
	}
}

// studyResponse is the subset of GET /studies/{id} we read.
type studyResponse struct {
	MainDicomTags map[string]string `json:"MainDicomTags"`
	Series        []string          `json:"Series"`
}

// seriesResponse is the subset of GET /series/{id} we read.
type seriesResponse struct {
	Instances []string `json:"Instances"`
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", path, err)
	}
	if c.username != "" || c.password != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode > 299 {
		return nil, fmt.Errorf("GET %s: status %d %s", path, resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body of %s: %w", path, err)
	}
	return body, nil
}

// ListStudies returns all study IDs currently known to Orthanc. These are
// Orthanc-internal identifiers, not DICOM UIDs.
func (c *Client) ListStudies(ctx context.Context) ([]string, error) {
	body, err := c.get(ctx, "/studies")
	if err != nil {
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal(body, &ids); err != nil {
		return nil, fmt.Errorf("decode study list: %w", err)
	}
	return ids, nil
}

// StudyInstanceUID resolves an Orthanc study ID to its DICOM Study Instance
// UID without fetching any payload. Returns "" when Orthanc does not report
// the tag.
func (c *Client) StudyInstanceUID(ctx context.Context, studyID string) (string, error) {
	body, err := c.get(ctx, "/studies/"+studyID)
	if err != nil {
		return "", err
	}
	var study studyResponse
	if err := json.Unmarshal(body, &study); err != nil {
		return "", fmt.Errorf("decode study %s: %w", studyID, err)
	}
	return study.MainDicomTags["StudyInstanceUID"], nil
}

// FirstInstanceBytes walks study -> first series -> first instance and
// returns that instance's raw DICOM bytes. The first instance is not
// clinically meaningful, only a representative sample sufficient for
// header extraction.
func (c *Client) FirstInstanceBytes(ctx context.Context, studyID string) ([]byte, error) {
	body, err := c.get(ctx, "/studies/"+studyID)
	if err != nil {
		return nil, err
	}
	var study studyResponse
	if err := json.Unmarshal(body, &study); err != nil {
		return nil, fmt.Errorf("decode study %s: %w", studyID, err)
	}
	if len(study.Series) == 0 {
		return nil, fmt.Errorf("no series in study %s", studyID)
	}

	seriesBody, err := c.get(ctx, "/series/"+study.Series[0])
	if err != nil {
		return nil, err
	}
	var series seriesResponse
	if err := json.Unmarshal(seriesBody, &series); err != nil {
		return nil, fmt.Errorf("decode series %s: %w", study.Series[0], err)
	}
	if len(series.Instances) == 0 {
		return nil, fmt.Errorf("no instances in study %s", studyID)
	}

	return c.get(ctx, "/instances/"+series.Instances[0]+"/file")
}
