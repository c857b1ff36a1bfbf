// Package registry reads trial records from the ClinicalTrials.gov v2 API.
package registry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"trialmetrics/domain/core"
	"trialmetrics/domain/trial"
	"trialmetrics/internal"
	"trialmetrics/internal/config"
	"trialmetrics/internal/errors"
)

const (
	serviceName = "clinicaltrials.gov"
	maxPageSize = 1000

	searchFields = "NCTId,BriefTitle,Phase,OverallStatus,EnrollmentCount,EnrollmentType," +
		"StartDate,PrimaryCompletionDate,LocationFacility,LeadSponsorName,Condition,InterventionName"
)

// Client is a registry API client. Construct one per process with NewClient
// and pass it to the services that need it.
type Client struct {
	baseURL    string
	pageSize   int
	httpClient *http.Client
	logger     *internal.Logger
}

// NewClient builds a client from registry settings.
func NewClient(cfg config.RegistryConfig, logger *internal.Logger) *Client {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		pageSize:   pageSize,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.With("registry"),
	}
}

// Search finds trials for a condition. An empty status searches every
// status; pageSize <= 0 uses the configured default.
func (c *Client) Search(ctx context.Context, condition string, status trial.Status, pageSize int) (trial.SearchPage, error) {
	if strings.TrimSpace(condition) == "" {
		return trial.SearchPage{}, errors.InvalidInput("condition is required")
	}
	if pageSize <= 0 {
		pageSize = c.pageSize
	}
	pageSize = min(pageSize, maxPageSize)

	q := url.Values{}
	q.Set("query.cond", condition)
	q.Set("pageSize", strconv.Itoa(pageSize))
	q.Set("countTotal", "true")
	q.Set("fields", searchFields)
	if status != "" {
		q.Set("filter.overallStatus", string(status))
	}

	body, err := c.get(ctx, c.baseURL+"?"+q.Encode())
	if err != nil {
		return trial.SearchPage{}, err
	}

	doc := gjson.ParseBytes(body)
	res := trial.SearchPage{
		TotalCount:    int(doc.Get("totalCount").Int()),
		NextPageToken: doc.Get("nextPageToken").String(),
	}
	for _, study := range doc.Get("studies").Array() {
		res.Trials = append(res.Trials, ParseSummary(study))
	}
	c.logger.Debug("search %q status=%q returned %d of %d", condition, status, len(res.Trials), res.TotalCount)
	return res, nil
}

// Get fetches one trial by NCT id.
func (c *Client) Get(ctx context.Context, nctID string) (trial.Summary, error) {
	id, err := core.ParseNCTID(nctID)
	if err != nil {
		return trial.Summary{}, errors.WithCode(errors.CodeInvalidInput, err)
	}

	body, err := c.get(ctx, c.baseURL+"/"+url.PathEscape(id.String()))
	if err != nil {
		return trial.Summary{}, err
	}
	return ParseStudy(body), nil
}

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build registry request")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.ExternalServiceError(serviceName, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.ExternalServiceError(serviceName, fmt.Errorf("read response: %w", err))
	}
	c.logger.Trace("GET %s -> %d in %s", u, resp.StatusCode, time.Since(start))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, &errors.AppError{Code: errors.CodeNotFound, Message: "trial not found", Cause: core.ErrTrialNotFound}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, errors.ExternalServiceError(serviceName, fmt.Errorf("http %d: %s", resp.StatusCode, truncate(string(body), 200)))
	}
	if !gjson.ValidBytes(body) {
		return nil, errors.ExternalServiceError(serviceName, fmt.Errorf("invalid JSON response"))
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
