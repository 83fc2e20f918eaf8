package garage

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/garage-tracking/internal/config"
	"github.com/ukydev/garage-tracking/internal/db"
	"github.com/ukydev/garage-tracking/internal/notify"
	"github.com/ukydev/garage-tracking/internal/storage"
)

// OpenStore opens the record store selected by cfg.Store.Backend.
func OpenStore(ctx context.Context, cfg *config.Config) (db.RecordCollection, error) {
	switch cfg.Store.Backend {
	case config.BackendMongo:
		client, err := db.ConnectMongo(ctx, cfg.Mongo.URI)
		if err != nil {
			return nil, err
		}
		coll, err := db.NewMongoRecordCollection(ctx, client, cfg.Mongo.DB, cfg.Mongo.Collection)
		if err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		return coll, nil
	case config.BackendPostgres:
		return db.OpenPostgres(cfg.Postgres.DSN)
	case config.BackendFile:
		return db.OpenFileRecordCollection(cfg.Data.Dir)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// OpenImageSink returns the configured QR export targets, or nil when
// neither a directory nor a bucket is configured.
func OpenImageSink(ctx context.Context, cfg *config.Config) (storage.ImageSink, error) {
	var sinks storage.MultiSink
	if cfg.QR.Dir != "" {
		sinks = append(sinks, storage.NewDirSink(cfg.QR.Dir))
	}
	if cfg.MinIO.Enabled() {
		m, err := storage.NewMinIOSink(ctx, storage.MinIOConfig{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			Bucket:    cfg.MinIO.Bucket,
			UseSSL:    cfg.MinIO.UseSSL,
		})
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, m)
	}
	switch len(sinks) {
	case 0:
		return nil, nil
	case 1:
		return sinks[0], nil
	}
	return sinks, nil
}

// OpenNotifier connects to the MQTT broker when one is configured.
func OpenNotifier(cfg *config.Config) (notify.Notifier, error) {
	if !cfg.MQTT.Enabled() {
		return notify.NopNotifier{}, nil
	}
	return notify.NewMQTTNotifier(notify.MQTTConfig{
		Broker:      cfg.MQTT.Broker,
		ClientID:    cfg.MQTT.ClientID,
		Username:    cfg.MQTT.Username,
		Password:    cfg.MQTT.Password,
		TopicPrefix: cfg.MQTT.TopicPrefix,
	})
}

// Open builds a Service from cfg. The returned close function releases the
// store and the notifier.
func Open(ctx context.Context, cfg *config.Config) (*Service, func(), error) {
	records, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	images, err := OpenImageSink(ctx, cfg)
	if err != nil {
		_ = records.Close(ctx)
		return nil, nil, err
	}
	notifier, err := OpenNotifier(cfg)
	if err != nil {
		_ = records.Close(ctx)
		return nil, nil, err
	}

	svc := NewService(records)
	svc.Images = images
	svc.Notifier = notifier
	svc.DefaultStatus = cfg.DefaultStatus
	log.WithFields(log.Fields{
		"backend": cfg.Store.Backend,
		"qr_dir":  cfg.QR.Dir,
		"mqtt":    cfg.MQTT.Enabled(),
	}).Debug("Garage service ready")

	closeFn := func() {
		notifier.Close()
		if err := records.Close(context.Background()); err != nil {
			log.WithError(err).Warn("Failed to close record store")
		}
	}
	return svc, closeFn, nil
}
