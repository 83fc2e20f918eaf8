package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ukydev/garage-tracking/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// recordRow is the relational layout of a record. Services and the status
// map are stored as JSON text.
type recordRow struct {
	ID            uint   `gorm:"primaryKey"`
	FirstName     string `gorm:"not null"`
	LastName      string `gorm:"not null"`
	MobileNo      string `gorm:"size:10;not null"`
	Address       string
	Pincode       string
	VehicleType   string `gorm:"not null"`
	VehicleBrand  string `gorm:"not null"`
	VehicleNumber string `gorm:"uniqueIndex;not null"`
	Services      string `gorm:"type:text;not null"`
	TotalPrice    int64  `gorm:"not null"`
	ServiceStatus string `gorm:"type:text;not null"`
	QRImage       []byte
	Version       int64 `gorm:"not null;default:1"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (recordRow) TableName() string { return "records" }

func toRow(r *models.Record) (*recordRow, error) {
	services, err := json.Marshal(r.Services)
	if err != nil {
		return nil, err
	}
	status, err := json.Marshal(r.ServiceStatus)
	if err != nil {
		return nil, err
	}
	return &recordRow{
		FirstName:     r.FirstName,
		LastName:      r.LastName,
		MobileNo:      r.MobileNo,
		Address:       r.Address,
		Pincode:       r.Pincode,
		VehicleType:   string(r.VehicleType),
		VehicleBrand:  r.VehicleBrand,
		VehicleNumber: r.VehicleNumber,
		Services:      string(services),
		TotalPrice:    models.TotalPrice(r.Services),
		ServiceStatus: string(status),
		QRImage:       r.QRImage,
		Version:       r.Version,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}, nil
}

func (row *recordRow) toRecord() (*models.Record, error) {
	r := &models.Record{
		FirstName:     row.FirstName,
		LastName:      row.LastName,
		MobileNo:      row.MobileNo,
		Address:       row.Address,
		Pincode:       row.Pincode,
		VehicleType:   models.VehicleType(row.VehicleType),
		VehicleBrand:  row.VehicleBrand,
		VehicleNumber: row.VehicleNumber,
		QRImage:       row.QRImage,
		Version:       row.Version,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
	if err := json.Unmarshal([]byte(row.Services), &r.Services); err != nil {
		return nil, fmt.Errorf("services column of %s: %w", row.VehicleNumber, err)
	}
	if err := json.Unmarshal([]byte(row.ServiceStatus), &r.ServiceStatus); err != nil {
		return nil, fmt.Errorf("service_status column of %s: %w", row.VehicleNumber, err)
	}
	r.Recompute()
	return r, nil
}

// PostgresRecordCollection stores records in PostgreSQL through gorm.
type PostgresRecordCollection struct {
	db *gorm.DB
}

// OpenPostgres connects to dsn and creates the records table if needed.
func OpenPostgres(dsn string) (*PostgresRecordCollection, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	return NewPostgresRecordCollection(gdb)
}

// NewPostgresRecordCollection wraps an open gorm handle.
func NewPostgresRecordCollection(gdb *gorm.DB) (*PostgresRecordCollection, error) {
	if err := gdb.AutoMigrate(&recordRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &PostgresRecordCollection{db: gdb}, nil
}

func (c *PostgresRecordCollection) CreateRecord(ctx context.Context, record *models.Record) error {
	row, err := toRow(record)
	if err != nil {
		return storeErr("insert", err)
	}
	row.Version = 1

	if err := c.db.WithContext(ctx).Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: %s", models.ErrDuplicateVehicle, record.VehicleNumber)
		}
		return storeErr("insert", err)
	}

	record.Version = row.Version
	record.CreatedAt = row.CreatedAt
	record.UpdatedAt = row.UpdatedAt
	record.TotalPrice = row.TotalPrice
	return nil
}

func (c *PostgresRecordCollection) FindRecord(ctx context.Context, vehicleNumber string) (*models.Record, error) {
	return findRow(c.db.WithContext(ctx), vehicleNumber)
}

func findRow(tx *gorm.DB, vehicleNumber string) (*models.Record, error) {
	var row recordRow
	if err := tx.Where("vehicle_number = ?", vehicleNumber).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", models.ErrRecordNotFound, vehicleNumber)
		}
		return nil, storeErr("find", err)
	}
	r, err := row.toRecord()
	if err != nil {
		return nil, storeErr("find", err)
	}
	return r, nil
}

// UpdateServiceStatus locks the row for the duration of the transaction so
// concurrent updates to the same vehicle serialize.
func (c *PostgresRecordCollection) UpdateServiceStatus(ctx context.Context, vehicleNumber, service string, status models.ServiceStatus) (*models.Record, error) {
	var updated *models.Record
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := findRow(tx.Clauses(clause.Locking{Strength: "UPDATE"}), vehicleNumber)
		if err != nil {
			return err
		}
		next, err := current.ServiceStatus.Update(service, status)
		if err != nil {
			return err
		}
		encoded, err := json.Marshal(next)
		if err != nil {
			return storeErr("update", err)
		}

		now := time.Now().UTC()
		res := tx.Model(&recordRow{}).
			Where("vehicle_number = ?", vehicleNumber).
			Updates(map[string]interface{}{
				"service_status": string(encoded),
				"version":        gorm.Expr("version + 1"),
				"updated_at":     now,
			})
		if res.Error != nil {
			return storeErr("update", res.Error)
		}

		current.ServiceStatus = next
		current.Version++
		current.UpdatedAt = now
		updated = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (c *PostgresRecordCollection) ListRecords(ctx context.Context) ([]models.Record, error) {
	var rows []recordRow
	if err := c.db.WithContext(ctx).Order("created_at").Find(&rows).Error; err != nil {
		return nil, storeErr("list", err)
	}
	out := make([]models.Record, 0, len(rows))
	for i := range rows {
		r, err := rows[i].toRecord()
		if err != nil {
			return nil, storeErr("list", err)
		}
		out = append(out, *r)
	}
	return out, nil
}

func (c *PostgresRecordCollection) Close(ctx context.Context) error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
