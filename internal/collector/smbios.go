package collector

import (
	"strings"

	"github.com/siderolabs/go-smbios/smbios"
)

// SMBIOSReader loads the firmware SMBIOS tables of the local host.
type SMBIOSReader func() (*smbios.SMBIOS, error)

// fallbackSystem fills identity fields that the device tree left empty.
func fallbackSystem(sys SystemInfo, s *smbios.SMBIOS) SystemInfo {
	if s == nil {
		return sys
	}
	if sys.Vendor == "" {
		sys.Vendor = strings.TrimSpace(s.SystemInformation.Manufacturer)
	}
	if sys.Product == "" {
		sys.Product = strings.TrimSpace(s.SystemInformation.ProductName)
	}
	if sys.Serial == "" {
		sys.Serial = strings.TrimSpace(s.SystemInformation.SerialNumber)
	}
	return sys
}

// fallbackName replaces a "N/A" name with value when value is non-empty.
func fallbackName(name, value string) string {
	if name != notAvailable {
		return name
	}
	return orDefault(value, notAvailable)
}

func smbiosBoard(s *smbios.SMBIOS) string {
	if s == nil {
		return ""
	}
	return s.BaseboardInformation.Product
}

func smbiosCPU(s *smbios.SMBIOS) string {
	if s == nil || len(s.ProcessorInformation) == 0 {
		return ""
	}
	return s.ProcessorInformation[0].ProcessorVersion
}
