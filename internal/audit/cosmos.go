package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/azcosmos"
	"github.com/ashureev/agent-relay/internal/domain"
)

// PartitionKeyPath is the container partition key; thread ID is the only
// correlation key between the relay and the audit store.
const PartitionKeyPath = "/thread_id"

// CosmosConfig identifies a Cosmos DB container.
type CosmosConfig struct {
	Endpoint  string
	Key       string
	Database  string
	Container string
}

// CosmosStore implements Store on an Azure Cosmos DB container.
type CosmosStore struct {
	container *azcosmos.ContainerClient
	database  string
	name      string
}

// NewCosmos connects to Cosmos DB, creating the database and container when
// they do not exist yet.
func NewCosmos(ctx context.Context, cfg CosmosConfig) (*CosmosStore, error) {
	cred, err := azcosmos.NewKeyCredential(cfg.Key)
	if err != nil {
		return nil, fmt.Errorf("cosmos key credential: %w", err)
	}
	client, err := azcosmos.NewClientWithKey(cfg.Endpoint, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("cosmos client: %w", err)
	}

	if _, err := client.CreateDatabase(ctx, azcosmos.DatabaseProperties{ID: cfg.Database}, nil); err != nil && !isConflict(err) {
		return nil, fmt.Errorf("create database %s: %w", cfg.Database, err)
	}
	db, err := client.NewDatabase(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("database client: %w", err)
	}

	// Serverless accounts reject explicit throughput, so none is requested.
	props := azcosmos.ContainerProperties{
		ID: cfg.Container,
		PartitionKeyDefinition: azcosmos.PartitionKeyDefinition{
			Paths: []string{PartitionKeyPath},
		},
	}
	if _, err := db.CreateContainer(ctx, props, nil); err != nil && !isConflict(err) {
		return nil, fmt.Errorf("create container %s: %w", cfg.Container, err)
	}
	container, err := db.NewContainer(cfg.Container)
	if err != nil {
		return nil, fmt.Errorf("container client: %w", err)
	}

	return &CosmosStore{container: container, database: cfg.Database, name: cfg.Container}, nil
}

func isConflict(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusConflict
}

// Put creates one item in the thread's partition.
func (s *CosmosStore) Put(ctx context.Context, doc domain.LogDocument) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	if _, err := s.container.CreateItem(ctx, azcosmos.NewPartitionKeyString(doc.ThreadID), body, nil); err != nil {
		return fmt.Errorf("create item: %w", err)
	}
	return nil
}

// ThreadLogs runs a single-partition query ordered by timestamp.
func (s *CosmosStore) ThreadLogs(ctx context.Context, threadID string) ([]domain.LogDocument, error) {
	query := "SELECT * FROM c WHERE c.thread_id = @thread_id ORDER BY c.timestamp ASC"
	opts := &azcosmos.QueryOptions{
		QueryParameters: []azcosmos.QueryParameter{{Name: "@thread_id", Value: threadID}},
	}
	pager := s.container.NewQueryItemsPager(query, azcosmos.NewPartitionKeyString(threadID), opts)

	logs := []domain.LogDocument{}
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("query thread logs: %w", err)
		}
		for _, item := range page.Items {
			var doc domain.LogDocument
			if err := json.Unmarshal(item, &doc); err != nil {
				return nil, fmt.Errorf("decode thread log: %w", err)
			}
			logs = append(logs, doc)
		}
	}
	return logs, nil
}

type cosmosIndexRow struct {
	ThreadID  string         `json:"thread_id"`
	LogType   domain.LogType `json:"log_type"`
	Timestamp string         `json:"timestamp"`
}

// scanIndex reads the thread, type and timestamp of every document across
// partitions.
// Aggregation happens client-side because the Go SDK only serves
// cross-partition queries without DISTINCT, GROUP BY or aggregates.
func (s *CosmosStore) scanIndex(ctx context.Context) ([]cosmosIndexRow, error) {
	pager := s.container.NewQueryItemsPager("SELECT c.thread_id, c.log_type, c.timestamp FROM c", azcosmos.NewPartitionKey(), nil)

	var rows []cosmosIndexRow
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan documents: %w", err)
		}
		for _, item := range page.Items {
			var row cosmosIndexRow
			if err := json.Unmarshal(item, &row); err != nil {
				return nil, fmt.Errorf("decode document: %w", err)
			}
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// ThreadIDs returns the distinct thread IDs, most recently active first.
func (s *CosmosStore) ThreadIDs(ctx context.Context) ([]string, error) {
	rows, err := s.scanIndex(ctx)
	if err != nil {
		return nil, err
	}
	return distinctThreads(rows), nil
}

// Stats aggregates document counts.
func (s *CosmosStore) Stats(ctx context.Context) (domain.AuditStats, error) {
	rows, err := s.scanIndex(ctx)
	if err != nil {
		return domain.AuditStats{}, err
	}
	return aggregate(rows), nil
}

// distinctThreads orders threads by their latest timestamp, newest first.
// Timestamps use domain.TimestampLayout, so string order is time order.
func distinctThreads(rows []cosmosIndexRow) []string {
	latest := make(map[string]string)
	ids := []string{}
	for _, r := range rows {
		if r.ThreadID == "" {
			continue
		}
		last, seen := latest[r.ThreadID]
		if !seen {
			ids = append(ids, r.ThreadID)
		}
		if !seen || r.Timestamp > last {
			latest[r.ThreadID] = r.Timestamp
		}
	}
	sort.SliceStable(ids, func(i, j int) bool {
		return latest[ids[i]] > latest[ids[j]]
	})
	return ids
}

func aggregate(rows []cosmosIndexRow) domain.AuditStats {
	counts := make(map[domain.LogType]int64)
	for _, r := range rows {
		counts[r.LogType]++
	}
	stats := domain.AuditStats{
		TotalLogs:    int64(len(rows)),
		TotalThreads: len(distinctThreads(rows)),
		LogTypes:     make([]domain.LogTypeCount, 0, len(counts)),
	}
	for t, n := range counts {
		stats.LogTypes = append(stats.LogTypes, domain.LogTypeCount{LogType: t, Count: n})
	}
	sort.Slice(stats.LogTypes, func(i, j int) bool {
		return stats.LogTypes[i].LogType < stats.LogTypes[j].LogType
	})
	return stats
}

// Location returns the database and container names.
func (s *CosmosStore) Location() (string, string) {
	return s.database, s.name
}

// Ping reads the container properties.
func (s *CosmosStore) Ping(ctx context.Context) error {
	if _, err := s.container.Read(ctx, nil); err != nil {
		return fmt.Errorf("read container: %w", err)
	}
	return nil
}

// Close is a no-op; the SDK client holds no closable resources.
func (s *CosmosStore) Close() error { return nil }
