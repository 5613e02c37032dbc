package plausibleclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/vfg2006/plausible-stats-aggregator/internal/domain"
	"github.com/vfg2006/plausible-stats-aggregator/pkg/apiErrors"
)

// maxSitePages limita a paginação para o loop nunca ficar infinito mesmo
// com uma resposta defeituosa que sempre devolva cursor
const maxSitePages = 1000

type siteEntry struct {
	Domain   string `json:"domain"`
	Timezone string `json:"timezone"`
}

type sitesMeta struct {
	After string `json:"after"`
}

type sitesResponse struct {
	Sites []siteEntry `json:"sites"`
	Meta  sitesMeta   `json:"meta"`
}

// ListSites percorre o endpoint de sites página a página até o cursor se
// esgotar, retornando os sites na ordem devolvida pela API
func (c *PlausibleClient) ListSites(ctx context.Context) ([]domain.Site, error) {
	sites := make([]domain.Site, 0)
	after := ""

	for page := 0; page < maxSitePages; page++ {
		endpoint, err := url.Parse(c.cfg.Plausible.SitesURL + "/sites")
		if err != nil {
			return nil, apiErrors.Wrap(err, apiErrors.ErrInvalidBaseURL, "erro ao montar a URL de sites")
		}

		query := endpoint.Query()
		query.Set("limit", strconv.Itoa(c.cfg.Plausible.SitesPageSize))
		if after != "" {
			query.Set("after", after)
		}
		endpoint.RawQuery = query.Encode()

		logrus.WithFields(logrus.Fields{
			"limit": c.cfg.Plausible.SitesPageSize,
			"after": after,
		}).Debug("plausible: fetching sites page")

		body, err := c.doRequest(ctx, http.MethodGet, endpoint.String(), c.cfg.Plausible.SitesAPIKey, "sites", nil)
		if err != nil {
			return nil, err
		}

		var response sitesResponse
		if err := json.Unmarshal(body, &response); err != nil {
			return nil, apiErrors.Wrap(err, apiErrors.ErrMalformedPayload, "erro ao decodificar a lista de sites")
		}

		for _, entry := range response.Sites {
			if entry.Domain == "" {
				return nil, apiErrors.New(apiErrors.ErrMalformedPayload, "site sem domínio na resposta da API")
			}

			timezone := entry.Timezone
			if timezone == "" {
				timezone = "UTC"
			}

			sites = append(sites, domain.Site{
				Domain:   entry.Domain,
				Timezone: timezone,
			})
		}

		// Sem cursor ou página vazia encerram a paginação
		if response.Meta.After == "" || len(response.Sites) == 0 {
			break
		}
		after = response.Meta.After
	}

	logrus.WithField("total_sites", len(sites)).Info("plausible: site listing completed")
	return sites, nil
}
