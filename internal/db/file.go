package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/ukydev/garage-tracking/internal/fsx"
	"github.com/ukydev/garage-tracking/internal/models"
)

const recordsFileName = "records.json"

// FileRecordCollection keeps every record in one JSON file. The file is
// rewritten atomically on each mutation, so a crash leaves either the old or
// the new contents. It is safe for concurrent use within one process.
type FileRecordCollection struct {
	dir     string
	mu      sync.Mutex
	records map[string]*models.Record
}

// OpenFileRecordCollection loads dir/records.json, starting empty if the file
// does not exist yet.
func OpenFileRecordCollection(dir string) (*FileRecordCollection, error) {
	c := &FileRecordCollection{dir: dir, records: make(map[string]*models.Record)}

	data, err := os.ReadFile(c.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c, nil
		}
		return nil, storeErr("open", err)
	}

	var stored []*models.Record
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, storeErr("open", fmt.Errorf("%s: %w", c.Path(), err))
	}
	for _, r := range stored {
		r.Recompute()
		c.records[r.VehicleNumber] = r
	}
	return c, nil
}

// Path is the location of the backing file.
func (c *FileRecordCollection) Path() string {
	return filepath.Join(c.dir, recordsFileName)
}

func (c *FileRecordCollection) CreateRecord(ctx context.Context, record *models.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.records[record.VehicleNumber]; exists {
		return fmt.Errorf("%w: %s", models.ErrDuplicateVehicle, record.VehicleNumber)
	}

	stored := record.Clone()
	now := time.Now().UTC()
	stored.Version = 1
	stored.CreatedAt = now
	stored.UpdatedAt = now
	stored.Recompute()

	c.records[stored.VehicleNumber] = stored
	if err := c.flush(); err != nil {
		delete(c.records, stored.VehicleNumber)
		return storeErr("insert", err)
	}

	record.Version = stored.Version
	record.CreatedAt = stored.CreatedAt
	record.UpdatedAt = stored.UpdatedAt
	record.TotalPrice = stored.TotalPrice
	return nil
}

func (c *FileRecordCollection) FindRecord(ctx context.Context, vehicleNumber string) (*models.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.records[vehicleNumber]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrRecordNotFound, vehicleNumber)
	}
	return r.Clone(), nil
}

// UpdateServiceStatus holds the collection lock across read, update and
// flush. A failed flush leaves the in-memory copy unchanged.
func (c *FileRecordCollection) UpdateServiceStatus(ctx context.Context, vehicleNumber, service string, status models.ServiceStatus) (*models.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	current, ok := c.records[vehicleNumber]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrRecordNotFound, vehicleNumber)
	}
	next, err := current.ServiceStatus.Update(service, status)
	if err != nil {
		return nil, err
	}

	updated := current.Clone()
	updated.ServiceStatus = next
	updated.Version++
	updated.UpdatedAt = time.Now().UTC()

	c.records[vehicleNumber] = updated
	if err := c.flush(); err != nil {
		c.records[vehicleNumber] = current
		return nil, storeErr("update", err)
	}
	return updated.Clone(), nil
}

func (c *FileRecordCollection) ListRecords(ctx context.Context) ([]models.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]models.Record, 0, len(c.records))
	for _, r := range c.sorted() {
		out = append(out, *r.Clone())
	}
	return out, nil
}

func (c *FileRecordCollection) Close(ctx context.Context) error { return nil }

// flush must be called with mu held.
func (c *FileRecordCollection) flush() error {
	data, err := json.MarshalIndent(c.sorted(), "", "  ")
	if err != nil {
		return err
	}
	return fsx.WriteFileAtomic(c.dir, recordsFileName, data, 0o644)
}

func (c *FileRecordCollection) sorted() []*models.Record {
	out := make([]*models.Record, 0, len(c.records))
	for _, r := range c.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].VehicleNumber < out[j].VehicleNumber
	})
	return out
}
