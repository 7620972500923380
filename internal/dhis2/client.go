// Package dhis2 is a thin client for the DHIS2 Web API: metadata lookups for
// the selection flow and the data value set submission endpoint.
package dhis2

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"tallyocr/internal/config"
	"tallyocr/internal/domain"
)

// Client talks to one DHIS2 instance with basic auth.
type Client struct {
	baseURL  string
	username string
	password string
	client   *http.Client
}

// NewClient creates a DHIS2 client from config.
func NewClient(cfg *config.DHIS2Config) *Client {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:  cfg.BaseURL,
		username: cfg.Username,
		password: cfg.Password,
		client:   &http.Client{Timeout: timeout},
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling DHIS2 API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("DHIS2 API error (status %d): %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("unmarshaling response: %w", err)
	}
	return nil
}

// SearchOrgUnitUIDs returns the organisation units whose name contains the
// search text, case-insensitively, as (displayName, id) pairs.
func (c *Client) SearchOrgUnitUIDs(ctx context.Context, name string) ([]domain.NameID, error) {
	q := url.Values{}
	q.Set("filter", "name:ilike:"+name)
	q.Set("fields", "displayName,id")
	q.Set("paging", "false")

	var resp struct {
		OrganisationUnits []struct {
			DisplayName string `json:"displayName"`
			ID          string `json:"id"`
		} `json:"organisationUnits"`
	}
	if err := c.get(ctx, "/api/organisationUnits", q, &resp); err != nil {
		return nil, err
	}

	out := make([]domain.NameID, len(resp.OrganisationUnits))
	for i, ou := range resp.OrganisationUnits {
		out[i] = domain.NameID{Name: ou.DisplayName, ID: ou.ID}
	}
	return out, nil
}

// OrgUnitChildren returns the direct children of an organisation unit along
// with the ids of the datasets each child reports on.
func (c *Client) OrgUnitChildren(ctx context.Context, orgUnitID string) ([]domain.OrgUnitChild, error) {
	q := url.Values{}
	q.Set("fields", "children[name,id,dataSets[id]]")

	var resp struct {
		Children []struct {
			Name     string `json:"name"`
			ID       string `json:"id"`
			DataSets []struct {
				ID string `json:"id"`
			} `json:"dataSets"`
		} `json:"children"`
	}
	if err := c.get(ctx, "/api/organisationUnits/"+orgUnitID, q, &resp); err != nil {
		return nil, err
	}

	out := make([]domain.OrgUnitChild, len(resp.Children))
	for i, ch := range resp.Children {
		ids := make([]string, len(ch.DataSets))
		for j, ds := range ch.DataSets {
			ids[j] = ds.ID
		}
		out[i] = domain.OrgUnitChild{Name: ch.Name, ID: ch.ID, DataSetIDs: ids}
	}
	return out, nil
}

// DataSets resolves dataset ids to (name, id, periodType) triples.
func (c *Client) DataSets(ctx context.Context, ids []string) ([]domain.DataSetInfo, error) {
	out := make([]domain.DataSetInfo, 0, len(ids))
	for _, id := range ids {
		q := url.Values{}
		q.Set("fields", "name,id,periodType")

		var resp struct {
			Name       string `json:"name"`
			ID         string `json:"id"`
			PeriodType string `json:"periodType"`
		}
		if err := c.get(ctx, "/api/dataSets/"+id, q, &resp); err != nil {
			return nil, err
		}
		out = append(out, domain.DataSetInfo{Name: resp.Name, ID: resp.ID, PeriodType: resp.PeriodType})
	}
	return out, nil
}

// FormCatalog fetches the field catalog behind a dataset's entry form: its
// data elements and the category option combos their values disaggregate
// over. Category option combos are deduplicated in first-seen order.
func (c *Client) FormCatalog(ctx context.Context, dataSetID string) (*domain.FieldCatalog, error) {
	q := url.Values{}
	q.Set("fields", "dataSetElements[dataElement[id,name,categoryCombo[categoryOptionCombos[id,name]]]]")

	var resp struct {
		DataSetElements []struct {
			DataElement struct {
				ID            string `json:"id"`
				Name          string `json:"name"`
				CategoryCombo struct {
					CategoryOptionCombos []struct {
						ID   string `json:"id"`
						Name string `json:"name"`
					} `json:"categoryOptionCombos"`
				} `json:"categoryCombo"`
			} `json:"dataElement"`
		} `json:"dataSetElements"`
	}
	if err := c.get(ctx, "/api/dataSets/"+dataSetID, q, &resp); err != nil {
		return nil, err
	}

	catalog := &domain.FieldCatalog{}
	seen := map[string]bool{}
	for _, dse := range resp.DataSetElements {
		de := dse.DataElement
		catalog.DataElements = append(catalog.DataElements, domain.NameID{Name: de.Name, ID: de.ID})
		for _, coc := range de.CategoryCombo.CategoryOptionCombos {
			if seen[coc.ID] {
				continue
			}
			seen[coc.ID] = true
			catalog.CategoryOptionCombos = append(catalog.CategoryOptionCombos, domain.NameID{Name: coc.Name, ID: coc.ID})
		}
	}
	return catalog, nil
}

// SubmitDataValues posts a data value set, optionally as a dry run. A non-200
// status becomes a *domain.SubmissionError carrying the response verbatim.
func (c *Client) SubmitDataValues(ctx context.Context, payload *domain.SubmissionPayload, dryRun bool) (*domain.SubmissionResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling payload: %w", err)
	}

	u := fmt.Sprintf("%s/api/dataValueSets?dryRun=%t", c.baseURL, dryRun)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling DHIS2 API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &domain.SubmissionError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return &domain.SubmissionResult{
		StatusCode: resp.StatusCode,
		Body:       string(respBody),
		DryRun:     dryRun,
	}, nil
}
