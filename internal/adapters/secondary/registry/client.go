package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lorrc/case-event-hub/internal/core/domain"
	apperrors "github.com/lorrc/case-event-hub/internal/core/errors"
	"github.com/lorrc/case-event-hub/internal/core/ports"
)

// Betrokkene types of a role.
const (
	involvedEmployee = "medewerker"
	involvedUnit     = "organisatorische_eenheid"
)

// maxPages bounds how many result pages ListHandlerRoles follows.
const maxPages = 20

// Config configures the case registry client.
type Config struct {
	// BaseURL is the root of the cases API, e.g. https://zaken.example/zaken/api/v1.
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Client reads roles and case documents from the case registry.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	logger     *slog.Logger
}

var _ ports.CaseRegistry = (*Client)(nil)

// New creates a registry client.
func New(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		logger:     logger.With("component", "case_registry"),
	}
}

type identification struct {
	ID string `json:"identificatie"`
}

type roleResponse struct {
	URL            string          `json:"url"`
	Case           string          `json:"zaak"`
	InvolvedType   string          `json:"betrokkeneType"`
	Generic        string          `json:"omschrijvingGeneriek"`
	Description    string          `json:"roltoelichting"`
	Identification *identification `json:"betrokkeneIdentificatie"`
}

func (r roleResponse) toDomain() *domain.CaseRole {
	role := &domain.CaseRole{
		ID:          domain.ResourceIDFromURL(r.URL),
		CaseID:      domain.ResourceIDFromURL(r.Case),
		Generic:     r.Generic,
		Description: r.Description,
	}
	if r.Identification == nil {
		return role
	}
	switch r.InvolvedType {
	case involvedEmployee:
		role.UserID = r.Identification.ID
	case involvedUnit:
		role.GroupID = r.Identification.ID
	}
	return role
}

type rolePage struct {
	Count   int            `json:"count"`
	Next    string         `json:"next"`
	Results []roleResponse `json:"results"`
}

type caseDocumentResponse struct {
	URL      string `json:"url"`
	Case     string `json:"zaak"`
	Document string `json:"informatieobject"`
}

// ReadRole fetches a single role by its URL.
func (c *Client) ReadRole(ctx context.Context, roleURL string) (*domain.CaseRole, error) {
	var resp roleResponse
	if err := c.getJSON(ctx, roleURL, &resp); err != nil {
		return nil, fmt.Errorf("read role %s: %w", roleURL, err)
	}
	return resp.toDomain(), nil
}

// ListHandlerRoles returns the roles of a case with the generic handler
// description.
func (c *Client) ListHandlerRoles(ctx context.Context, caseURL string) ([]*domain.CaseRole, error) {
	query := url.Values{}
	query.Set("zaak", caseURL)
	query.Set("omschrijvingGeneriek", domain.RoleGenericHandler)
	next := c.baseURL + "/rollen?" + query.Encode()

	var roles []*domain.CaseRole
	for page := 0; next != "" && page < maxPages; page++ {
		var resp rolePage
		if err := c.getJSON(ctx, next, &resp); err != nil {
			return nil, fmt.Errorf("list roles of %s: %w", caseURL, err)
		}
		for _, r := range resp.Results {
			roles = append(roles, r.toDomain())
		}
		next = resp.Next
	}
	if next != "" {
		c.logger.WarnContext(ctx, "role listing truncated", "case", caseURL, "pages", maxPages)
	}
	return roles, nil
}

// ReadCaseDocument fetches the link between a case and a document.
func (c *Client) ReadCaseDocument(ctx context.Context, caseDocumentURL string) (*domain.CaseDocument, error) {
	var resp caseDocumentResponse
	if err := c.getJSON(ctx, caseDocumentURL, &resp); err != nil {
		return nil, fmt.Errorf("read case document %s: %w", caseDocumentURL, err)
	}
	return &domain.CaseDocument{
		ID:         domain.ResourceIDFromURL(resp.URL),
		CaseID:     domain.ResourceIDFromURL(resp.Case),
		DocumentID: domain.ResourceIDFromURL(resp.Document),
	}, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Crs", "EPSG:4326")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "registry request",
		"url", rawURL,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return apperrors.ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
