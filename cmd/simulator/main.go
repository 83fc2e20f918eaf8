package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/garage-tracking/internal/config"
	"github.com/ukydev/garage-tracking/internal/garage"
	"github.com/ukydev/garage-tracking/internal/models"
	"golang.org/x/sync/errgroup"
)

var (
	firstNames = []string{"Asha", "Ravi", "Meera", "Arjun", "Priya", "Karan", "Divya", "Suresh"}
	lastNames  = []string{"Rao", "Sharma", "Iyer", "Patel", "Nair", "Reddy", "Singh", "Das"}
	brands     = map[models.VehicleType][]string{
		models.VehicleCar:   {"Maruti", "Hyundai", "Tata", "Honda", "Toyota"},
		models.VehicleBike:  {"Hero", "Bajaj", "TVS", "Royal Enfield"},
		models.VehicleTruck: {"Ashok Leyland", "Tata", "Eicher", "BharatBenz"},
	}
	stateCodes = []string{"KA", "MH", "DL", "TN", "KL", "GJ"}
)

// Garage is what the simulator drives.
type Garage interface {
	Register(ctx context.Context, reg garage.Registration) (*garage.Receipt, error)
	UpdateStatus(ctx context.Context, vehicleNumber, service string, status models.ServiceStatus) (*models.Record, error)
}

func randomVehicleNumber() string {
	return fmt.Sprintf("%s%02d%c%c%04d",
		stateCodes[rand.Intn(len(stateCodes))],
		1+rand.Intn(99),
		'A'+rune(rand.Intn(26)),
		'A'+rune(rand.Intn(26)),
		rand.Intn(10000))
}

func randomMobile() string {
	return fmt.Sprintf("%d%09d", 6+rand.Intn(4), rand.Intn(1_000_000_000))
}

func randomRegistration() garage.Registration {
	vtype := models.VehicleTypes[rand.Intn(len(models.VehicleTypes))]
	names := make([]string, 0, 3)
	for _, i := range rand.Perm(len(models.Catalog))[:1+rand.Intn(3)] {
		names = append(names, models.Catalog[i].Name)
	}
	return garage.Registration{
		FirstName:     firstNames[rand.Intn(len(firstNames))],
		LastName:      lastNames[rand.Intn(len(lastNames))],
		MobileNo:      randomMobile(),
		Address:       fmt.Sprintf("%d MG Road", 1+rand.Intn(200)),
		Pincode:       fmt.Sprintf("5600%02d", rand.Intn(100)),
		VehicleType:   string(vtype),
		VehicleBrand:  brands[vtype][rand.Intn(len(brands[vtype]))],
		VehicleNumber: randomVehicleNumber(),
		Services:      names,
	}
}

// nextStatus moves a service one step along Pending, In Process, Completed.
func nextStatus(s models.ServiceStatus) models.ServiceStatus {
	switch s {
	case models.StatusPending:
		return models.StatusInProcess
	default:
		return models.StatusCompleted
	}
}

func registerVehicle(ctx context.Context, g Garage) (*models.Record, error) {
	for attempt := 0; attempt < 5; attempt++ {
		reg := randomRegistration()
		receipt, err := g.Register(ctx, reg)
		var exportErr *garage.ExportError
		switch {
		case errors.Is(err, models.ErrDuplicateVehicle):
			continue
		case err != nil && !errors.As(err, &exportErr):
			return nil, err
		case err != nil:
			log.WithError(err).Warn("QR export failed")
		}
		log.WithFields(log.Fields{
			"vehicle_number": receipt.Record.VehicleNumber,
			"type":           receipt.Record.VehicleType,
			"brand":          receipt.Record.VehicleBrand,
			"services":       len(receipt.Record.Services),
		}).Info("Registered vehicle")
		return receipt.Record, nil
	}
	return nil, errors.New("could not find a free vehicle number")
}

// advance moves one random unfinished service forward and returns the stored
// record.
func advance(ctx context.Context, g Garage, rec *models.Record) (*models.Record, error) {
	var open []string
	for _, s := range rec.Services {
		if rec.ServiceStatus[s.Name] != models.StatusCompleted {
			open = append(open, s.Name)
		}
	}
	if len(open) == 0 {
		return rec, nil
	}
	name := open[rand.Intn(len(open))]
	return g.UpdateStatus(ctx, rec.VehicleNumber, name, nextStatus(rec.ServiceStatus[name]))
}

func simulateVehicle(ctx context.Context, g Garage, rec *models.Record, interval time.Duration) error {
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for !garage.AllCompleted(rec) {
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
		}
		next, err := advance(ctx, g, rec)
		if err != nil {
			return fmt.Errorf("vehicle %s: %w", rec.VehicleNumber, err)
		}
		rec = next
	}
	log.WithField("vehicle_number", rec.VehicleNumber).Info("All services completed")
	return nil
}

// simulate registers fleetSize vehicles and works through their services
// until every one is completed or ctx is cancelled.
func simulate(ctx context.Context, g Garage, fleetSize int, interval time.Duration) error {
	records := make([]*models.Record, 0, fleetSize)
	for i := 0; i < fleetSize; i++ {
		rec, err := registerVehicle(ctx, g)
		if err != nil {
			log.WithError(err).Error("Failed to register vehicle")
			continue
		}
		records = append(records, rec)
	}
	log.WithField("registered_vehicles", len(records)).Info("Vehicle registration completed")
	if len(records) == 0 {
		return errors.New("no vehicles registered")
	}

	eg, ctx := errgroup.WithContext(ctx)
	for _, rec := range records {
		rec := rec
		eg.Go(func() error { return simulateVehicle(ctx, g, rec, interval) })
	}
	return eg.Wait()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.Load(nil)
	if err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}
	if err := config.ConfigureLogging(cfg.Log); err != nil {
		log.WithError(err).Fatal("Invalid logging configuration")
	}
	svc, closeFn, err := garage.Open(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to open garage service")
	}
	defer closeFn()

	interval := time.Duration(cfg.Sim.TickSeconds) * time.Second
	log.WithFields(log.Fields{
		"fleet_size": cfg.FleetSize,
		"backend":    cfg.Store.Backend,
		"interval":   interval,
	}).Info("Starting garage simulation")

	if err := simulate(ctx, svc, cfg.FleetSize, interval); err != nil {
		log.WithError(err).Error("Simulation stopped")
		return
	}
	log.Info("Simulation finished")
}
