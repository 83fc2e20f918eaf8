// Command garage registers vehicles for service and tracks the status of
// each service through the QR code printed at registration.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/ukydev/garage-tracking/internal/capture"
	"github.com/ukydev/garage-tracking/internal/config"
	"github.com/ukydev/garage-tracking/internal/garage"
	"github.com/ukydev/garage-tracking/internal/handlers"
	"github.com/ukydev/garage-tracking/internal/models"
)

const usage = `usage: garage <command> [flags]

commands:
  register   register a vehicle and write its QR code
  show       show a record (garage show <vehicle> | garage show --all)
  track      scan a QR code from image frames and update statuses
  status     set one service status (garage status <vehicle> <service> <status>)
  catalog    list the services on offer
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		fmt.Fprint(stderr, usage)
		return 2
	}
	cmd, args := args[0], args[1:]
	if cmd == "catalog" {
		printCatalog(stdout)
		return 0
	}

	var err error
	switch cmd {
	case "register":
		err = runRegister(ctx, args, stdout)
	case "show":
		err = runShow(ctx, args, stdout)
	case "track":
		err = runTrack(ctx, args, stdout)
	case "status":
		err = runStatus(ctx, args, stdout)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", cmd, usage)
		return 2
	}
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 2
		}
		fmt.Fprintf(stderr, "garage %s: %v\n", cmd, err)
		return 1
	}
	return 0
}

func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("store", config.BackendFile, "record store: file, mongo or postgres")
	fs.String("data-dir", "data", "directory of the file store")
	fs.String("qr-dir", "qr_codes", "directory QR images are written to")
	fs.String("mongo-uri", "", "MongoDB connection string")
	fs.String("postgres-dsn", "", "PostgreSQL DSN")
	fs.String("mqtt-broker", "", "MQTT broker URL for status events")
	fs.Duration("scan-interval", 200*time.Millisecond, "delay between frames while scanning")
	fs.String("log-level", "info", "log level")
	fs.String("log-format", "text", "log format: text or json")
	fs.String("default-status", string(models.DefaultStatus), "status new services start in")
	return fs
}

// open loads the configuration for fs and builds the garage service.
func open(ctx context.Context, fs *pflag.FlagSet) (*garage.Service, func(), *config.Config, error) {
	cfg, err := config.Load(fs)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := config.ConfigureLogging(cfg.Log); err != nil {
		return nil, nil, nil, err
	}
	svc, closeFn, err := garage.Open(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return svc, closeFn, cfg, nil
}

func runRegister(ctx context.Context, args []string, out io.Writer) error {
	fs := newFlagSet("register")
	form := handlers.NewFormState()
	fs.StringVar(&form.FirstName, "first-name", "", "customer first name")
	fs.StringVar(&form.LastName, "last-name", "", "customer last name")
	fs.StringVar(&form.MobileNo, "mobile", "", "10 digit mobile number")
	fs.StringVar(&form.Address, "address", "", "customer address")
	fs.StringVar(&form.Pincode, "pincode", "", "postal code")
	fs.StringVar(&form.VehicleType, "vehicle-type", string(models.VehicleCar), "Car, Bike or Truck")
	fs.StringVar(&form.VehicleBrand, "vehicle-brand", "", "vehicle brand")
	fs.StringVar(&form.VehicleNumber, "vehicle-number", "", "registration number")
	services := fs.StringArray("service", nil, "service to book, repeatable")
	show := fs.Bool("show", false, "print the stored record afterwards")
	if err := fs.Parse(args); err != nil {
		return err
	}

	for _, name := range *services {
		opt, ok := models.LookupService(name)
		if !ok {
			return fmt.Errorf("%w: %q is not in the catalog", models.ErrServiceNotFound, name)
		}
		form = form.Toggle(opt.Name, true)
	}

	svc, closeFn, _, err := open(ctx, fs)
	if err != nil {
		return err
	}
	defer closeFn()

	next := handlers.NewFormHandler(svc).Submit(ctx, form)
	fmt.Fprintln(out, next.Message)
	if next.Location != "" {
		fmt.Fprintf(out, "QR code: %s\n", next.Location)
	}
	var exportErr *garage.ExportError
	if next.Err != nil && !errors.As(next.Err, &exportErr) {
		return next.Err
	}
	if *show {
		rec, err := svc.Find(ctx, form.VehicleNumber)
		if err != nil {
			return err
		}
		printRecord(out, rec)
	}
	return nil
}

func runShow(ctx context.Context, args []string, out io.Writer) error {
	fs := newFlagSet("show")
	all := fs.Bool("all", false, "show every record")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !*all && fs.NArg() != 1 {
		return errors.New("expected a vehicle number or --all")
	}

	svc, closeFn, _, err := open(ctx, fs)
	if err != nil {
		return err
	}
	defer closeFn()

	if *all {
		records, err := svc.List(ctx)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Fprintln(out, "No records")
		}
		for i := range records {
			if i > 0 {
				fmt.Fprintln(out)
			}
			printRecord(out, &records[i])
		}
		return nil
	}

	rec, err := svc.Find(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	printRecord(out, rec)
	return nil
}

func runStatus(ctx context.Context, args []string, out io.Writer) error {
	fs := newFlagSet("status")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 3 {
		return errors.New("expected <vehicle> <service> <status>")
	}
	status, err := models.ParseServiceStatus(fs.Arg(2))
	if err != nil {
		return err
	}

	svc, closeFn, _, err := open(ctx, fs)
	if err != nil {
		return err
	}
	defer closeFn()

	rec, err := svc.UpdateStatus(ctx, fs.Arg(0), fs.Arg(1), status)
	if err != nil {
		return err
	}
	printRecord(out, rec)
	return nil
}

func runTrack(ctx context.Context, args []string, out io.Writer) error {
	fs := newFlagSet("track")
	frames := fs.String("frames", "", "image file or directory of frames to scan")
	sets := fs.StringArray("set", nil, `status change "Service=Status", repeatable`)
	timeout := fs.Duration("timeout", 0, "give up scanning after this long")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *frames == "" {
		return errors.New("--frames is required")
	}
	changes, err := parseSets(*sets)
	if err != nil {
		return err
	}

	svc, closeFn, cfg, err := open(ctx, fs)
	if err != nil {
		return err
	}
	defer closeFn()

	scanCtx := ctx
	if *timeout > 0 {
		var cancel context.CancelFunc
		scanCtx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}
	scanner := capture.NewScanner(capture.OpenDir(*frames, cfg.Scan.Interval), nil, log.StandardLogger())
	th := handlers.NewTrackingHandler(svc)
	state := th.HandleScan(ctx, scanner.Scan(scanCtx))
	fmt.Fprintln(out, state.Message)
	if state.Err != nil {
		return state.Err
	}

	for _, c := range changes {
		i := editorIndex(state.Editors, c.service)
		if i < 0 {
			return fmt.Errorf("%w: %s is not booked for %s", models.ErrServiceNotFound, c.service, state.Record.VehicleNumber)
		}
		state = th.Select(state, i, c.status)
		if state.Err != nil {
			return state.Err
		}
		state = th.Apply(ctx, state, i)
		fmt.Fprintln(out, state.Message)
		if state.Err != nil {
			return state.Err
		}
	}
	printRecord(out, state.Record)
	return nil
}

type statusChange struct {
	service string
	status  models.ServiceStatus
}

func parseSets(sets []string) ([]statusChange, error) {
	out := make([]statusChange, 0, len(sets))
	for _, s := range sets {
		name, value, ok := strings.Cut(s, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid --set %q, want Service=Status", s)
		}
		st, err := models.ParseServiceStatus(value)
		if err != nil {
			return nil, err
		}
		out = append(out, statusChange{service: strings.TrimSpace(name), status: st})
	}
	return out, nil
}

func editorIndex(eds []handlers.StatusEditor, service string) int {
	for i, ed := range eds {
		if strings.EqualFold(ed.Option.Name, service) {
			return i
		}
	}
	return -1
}

func printCatalog(out io.Writer) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SERVICE\tPRICE")
	for _, o := range models.Catalog {
		fmt.Fprintf(tw, "%s\t₹%d\n", o.Name, o.Price)
	}
	tw.Flush()
}

func printRecord(out io.Writer, r *models.Record) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Vehicle:\t%s (%s %s)\n", r.VehicleNumber, r.VehicleBrand, r.VehicleType)
	fmt.Fprintf(tw, "Customer:\t%s, %s\n", r.FullName(), r.MobileNo)
	if r.Address != "" || r.Pincode != "" {
		fmt.Fprintf(tw, "Address:\t%s\n", strings.TrimSpace(r.Address+" "+r.Pincode))
	}
	for _, s := range r.Services {
		fmt.Fprintf(tw, "  %s\t%s\n", s.Label(), r.ServiceStatus[s.Name])
	}
	fmt.Fprintf(tw, "Total:\t₹%d\n", r.TotalPrice)
	tw.Flush()
}
