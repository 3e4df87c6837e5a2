package collector

import (
	"context"
	"fmt"

	"github.com/siderolabs/go-smbios/smbios"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

const serialLookupConcurrency = 4

// Collector gathers a hardware inventory from the local host by running
// lshw, fdisk, smartctl and fastfetch.
type Collector struct {
	Runner Runner
	// SMBIOS fills identity fields lshw could not provide. Nil disables it.
	SMBIOS SMBIOSReader
}

// New returns a Collector that runs the diagnostic tools as local processes.
func New() *Collector {
	return &Collector{
		Runner: NewExecRunner(),
		SMBIOS: smbios.New,
	}
}

// Collect gathers a full hardware inventory. It always returns a record;
// sub-probes that fail degrade to neutral values and are reported in the
// returned error.
func (c *Collector) Collect(ctx context.Context) (*Record, error) {
	var errs error

	root, err := c.deviceTree(ctx)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("device tree: %w", err))
	}

	sys := systemInfo(root)
	cpu := cpuName(root)
	board := mainboardName(root)

	if c.needsSMBIOS(sys, cpu, board) {
		tables, err := c.SMBIOS()
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("smbios: %w", err))
		} else {
			sys = fallbackSystem(sys, tables)
			cpu = fallbackName(cpu, smbiosCPU(tables))
			board = fallbackName(board, smbiosBoard(tables))
		}
	}

	host := sys.Host()
	rec := &Record{
		Host:      host,
		Serial:    sys.SerialFor(host),
		Mainboard: board,
		CPU:       cpu,
		GPUs:      gpuNames(root),
		RAM:       ParseMemory(root),
	}

	disks, err := c.disks(ctx)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("disks: %w", err))
	}
	rec.Disks = disks

	resolution, err := c.resolution(ctx)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("displays: %w", err))
	}
	rec.Resolution = resolution

	return rec, errs
}

func (c *Collector) needsSMBIOS(sys SystemInfo, cpu, board string) bool {
	if c.SMBIOS == nil {
		return false
	}
	return sys.Vendor == "" || sys.Product == "" || sys.Serial == "" ||
		cpu == notAvailable || board == notAvailable
}

func (c *Collector) deviceTree(ctx context.Context) (*Node, error) {
	out, err := privilegedRun(ctx, c.Runner, "lshw", "-json")
	if err != nil {
		return nil, err
	}
	return ParseTree([]byte(out))
}

func (c *Collector) disks(ctx context.Context) ([]Disk, error) {
	out, err := privilegedRun(ctx, c.Runner, "fdisk", "-l")
	if err != nil {
		return []Disk{}, err
	}

	entries := ParseDiskTable(out)
	disks := make([]Disk, len(entries))

	var g errgroup.Group
	g.SetLimit(serialLookupConcurrency)
	for i, e := range entries {
		g.Go(func() error {
			disks[i] = e.toDisk(c.diskSerial(ctx, e.Path))
			return nil
		})
	}
	_ = g.Wait()

	return disks, nil
}

// diskSerial asks smartctl for the serial of the device at path. Missing
// tools and unmatched output report "None".
func (c *Collector) diskSerial(ctx context.Context, path string) string {
	out, err := privilegedRun(ctx, c.Runner, "smartctl", "-i", path)
	if err != nil {
		return noSerial
	}
	serial, ok := ParseSmartSerial(out)
	if !ok {
		return noSerial
	}
	return serial
}

func (c *Collector) resolution(ctx context.Context) (string, error) {
	out, err := c.Runner.Run(ctx, "fastfetch", "-l", "none")
	if err != nil {
		return notAvailable, err
	}
	return ParseDisplays(out), nil
}
