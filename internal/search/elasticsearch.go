// Package search indexes completed deliveries so history lookups by DR
// number, customer, or route stay fast without scanning the relational store.
// Indexing is best effort: a search outage never blocks a completion.
package search

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/johnmangawang-git/mci-delivery-tracker/config"
	"github.com/johnmangawang-git/mci-delivery-tracker/internal/models"
)

// Client provides integration with Elasticsearch.
type Client struct {
	client *elasticsearch.Client
	config config.ElasticConfig
}

// NewClient creates a new Elasticsearch client.
func NewClient(cfg config.ElasticConfig) (*Client, error) {
	esConfig := elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	}

	client, err := elasticsearch.NewClient(esConfig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Elasticsearch client")
	}

	return &Client{
		client: client,
		config: cfg,
	}, nil
}

// IndexCompletedDelivery indexes a completed delivery together with its
// proof metadata, keyed by DR number so a re-signed proof replaces the
// earlier document instead of duplicating it.
func (c *Client) IndexCompletedDelivery(ctx context.Context, delivery *models.Delivery, proof *models.ProofOfDelivery) error {
	doc := map[string]interface{}{
		"dr_number":        delivery.DRNumber,
		"customer_name":    delivery.CustomerName,
		"customer_contact": delivery.CustomerContact,
		"origin":           delivery.Origin,
		"destination":      delivery.Destination,
		"truck_plate":      delivery.TruckPlate,
		"distance_km":      delivery.DistanceKM,
		"additional_costs": delivery.AdditionalCosts.Total(),
		"status":           delivery.Status,
		"completed_at":     delivery.CompletedAt,
		"signed_at":        proof.SignedAt,
	}

	docJSON, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "failed to marshal delivery document")
	}

	req := esapi.IndexRequest{
		Index:      config.FormatIndex(c.config, c.config.Index),
		DocumentID: delivery.DRNumber,
		Body:       bytes.NewReader(docJSON),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return errors.Wrap(err, "failed to execute Elasticsearch index request")
	}
	defer res.Body.Close()

	if res.IsError() {
		var e map[string]interface{}
		if err := json.NewDecoder(res.Body).Decode(&e); err != nil {
			return errors.Wrap(err, "failed to parse Elasticsearch error response")
		}
		return errors.Errorf("Elasticsearch index error: %v", e)
	}

	log.Info().Str("dr_number", delivery.DRNumber).Msg("completed delivery indexed")
	return nil
}

// SearchHistory runs a free-text query across indexed completions and
// returns the matching documents.
func (c *Client) SearchHistory(ctx context.Context, term string) ([]map[string]interface{}, error) {
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  term,
				"fields": []string{"dr_number^2", "customer_name", "origin", "destination", "truck_plate"},
			},
		},
	}

	queryJSON, err := json.Marshal(query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal search query")
	}

	req := esapi.SearchRequest{
		Index: []string{config.FormatIndex(c.config, c.config.Index)},
		Body:  bytes.NewReader(queryJSON),
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute Elasticsearch search request")
	}
	defer res.Body.Close()

	if res.IsError() {
		var e map[string]interface{}
		if err := json.NewDecoder(res.Body).Decode(&e); err != nil {
			return nil, errors.Wrap(err, "failed to parse Elasticsearch error response")
		}
		return nil, errors.Errorf("Elasticsearch search error: %v", e)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, errors.Wrap(err, "failed to parse Elasticsearch search response")
	}

	hits, ok := result["hits"].(map[string]interface{})
	if !ok {
		return nil, errors.New("unexpected search result format")
	}
	hitsArray, ok := hits["hits"].([]interface{})
	if !ok {
		return nil, errors.New("unexpected hits format")
	}

	var docs []map[string]interface{}
	for _, hit := range hitsArray {
		hitMap, ok := hit.(map[string]interface{})
		if !ok {
			continue
		}
		source, ok := hitMap["_source"].(map[string]interface{})
		if !ok {
			continue
		}
		docs = append(docs, source)
	}
	return docs, nil
}
