package secop

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/radarcol/radarcol/internal/analysis"
	apperrors "github.com/radarcol/radarcol/internal/errors"
)

// Quality filters applied to every query. The open dataset carries malformed
// rows (zero values, absurd outliers, empty descriptions) that would poison
// the entity statistics.
var qualityFilters = []string{
	"valor_del_contrato < 50000000000",
	"valor_del_contrato > 0",
	"fecha_de_inicio_del_contrato >= '2010-01-01'",
	"fecha_de_inicio_del_contrato <= '2026-12-31'",
	"objeto_del_contrato IS NOT NULL",
	"LENGTH(objeto_del_contrato) > 10",
}

// Client fetches contract records from the SECOP II open-data API (Socrata)
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a SECOP client for the given dataset resource URL
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// rawContract mirrors the Socrata response shape; numeric fields arrive as
// strings
type rawContract struct {
	ID          string `json:"id_contrato"`
	EntityName  string `json:"nombre_entidad"`
	EntityID    string `json:"nit_entidad"`
	Value       string `json:"valor_del_contrato"`
	Description string `json:"objeto_del_contrato"`
	StartDate   string `json:"fecha_de_inicio_del_contrato"`
	Duration    string `json:"plazo_de_ejec_del_contrato"`
}

// FetchContracts queries the dataset with the caller's SoQL where clause
// combined with the quality filters, newest first
func (c *Client) FetchContracts(ctx context.Context, where string, limit int) ([]analysis.ContractRecord, error) {
	params := url.Values{}
	params.Set("$limit", strconv.Itoa(limit))
	params.Set("$order", "fecha_de_inicio_del_contrato DESC")
	params.Set("$where", combineFilters(where))

	return c.query(ctx, params)
}

// FetchContract retrieves a single record by contract id
func (c *Client) FetchContract(ctx context.Context, contractID string) (*analysis.ContractRecord, error) {
	params := url.Values{}
	params.Set("$limit", "1")
	params.Set("$where", fmt.Sprintf("id_contrato = '%s'", strings.ReplaceAll(contractID, "'", "''")))

	records, err := c.query(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, apperrors.NewValidationError(fmt.Sprintf("contract %s not found", contractID))
	}

	return &records[0], nil
}

func (c *Client) query(ctx context.Context, params url.Values) ([]analysis.ContractRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build SECOP request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewExternalAPIError("secop", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, apperrors.NewExternalAPIError("secop",
			fmt.Errorf("status %d: %s", resp.StatusCode, string(body)))
	}

	var raw []rawContract
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, apperrors.NewExternalAPIError("secop", fmt.Errorf("failed to decode response: %w", err))
	}

	records := make([]analysis.ContractRecord, 0, len(raw))
	for _, r := range raw {
		if record, ok := r.toRecord(); ok {
			records = append(records, record)
		}
	}

	return records, nil
}

// toRecord normalizes a raw row. Rows the quality filters should have
// excluded but that arrived anyway are dropped.
func (r rawContract) toRecord() (analysis.ContractRecord, bool) {
	value, err := strconv.ParseFloat(r.Value, 64)
	if err != nil || value <= 0 || value > 50_000_000_000 {
		return analysis.ContractRecord{}, false
	}

	if len(r.Description) <= 10 {
		return analysis.ContractRecord{}, false
	}

	duration, _ := strconv.ParseFloat(r.Duration, 64)

	year, month := 2025, 1
	if len(r.StartDate) >= 10 {
		if t, err := time.Parse("2006-01-02", r.StartDate[:10]); err == nil {
			year, month = t.Year(), int(t.Month())
		}
	}

	return analysis.ContractRecord{
		ID:           r.ID,
		Value:        value,
		Description:  r.Description,
		EntityID:     r.EntityID,
		EntityName:   r.EntityName,
		StartDate:    r.StartDate,
		DurationDays: duration,
		SigningYear:  year,
		SigningMonth: month,
	}, true
}

func combineFilters(where string) string {
	filters := make([]string, len(qualityFilters), len(qualityFilters)+1)
	copy(filters, qualityFilters)
	if where != "" {
		filters = append(filters, "("+where+")")
	}
	return strings.Join(filters, " AND ")
}
