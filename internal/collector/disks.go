package collector

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	diskRe   = regexp.MustCompile(`Disk\s+(/dev/(?:sd[a-z]|nvme\d+n\d+)):\s+([\d,.]+)\s+(TiB|GiB|MiB|bytes).*\nDisk model:\s+([^\n]+)`)
	serialRe = regexp.MustCompile(`Serial Number:\s*(.+)`)

	gib = decimal.NewFromInt(bytesPerGiB)
)

// DiskEntry is one device matched in an fdisk listing, before its serial is known.
type DiskEntry struct {
	Path   string
	SizeGB int64
	Model  string
}

// ParseDiskTable extracts block devices from `fdisk -l` output. Sizes are
// converted to whole gigabytes, truncated toward zero.
func ParseDiskTable(out string) []DiskEntry {
	disks := []DiskEntry{}
	for _, m := range diskRe.FindAllStringSubmatch(out, -1) {
		disks = append(disks, DiskEntry{
			Path:   m[1],
			SizeGB: sizeToGB(m[2], m[3]),
			Model:  orDefault(m[4], unknown),
		})
	}
	return disks
}

func sizeToGB(value, unit string) int64 {
	d, err := decimal.NewFromString(strings.ReplaceAll(value, ",", "."))
	if err != nil {
		return 0
	}
	switch unit {
	case "TiB":
		return d.Mul(decimal.NewFromInt(1024)).IntPart()
	case "GiB":
		return d.IntPart()
	case "MiB":
		return d.Div(decimal.NewFromInt(1024)).IntPart()
	default:
		return d.Div(gib).IntPart()
	}
}

// ParseSmartSerial returns the serial number from `smartctl -i` output.
func ParseSmartSerial(out string) (string, bool) {
	m := serialRe.FindStringSubmatch(out)
	if m == nil {
		return "", false
	}
	serial := strings.TrimSpace(m[1])
	return serial, serial != ""
}

func (d DiskEntry) toDisk(serial string) Disk {
	return Disk{
		Path:   d.Path,
		Size:   fmt.Sprintf("%dG", d.SizeGB),
		Model:  d.Model,
		Serial: orDefault(serial, notAvailable),
	}
}
