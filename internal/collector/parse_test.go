package collector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const vmMemoryTree = `{
  "id": "vm", "class": "system", "vendor": "QEMU", "product": "Standard PC (Q35 + ICH9, 2009)",
  "children": [{
    "id": "core", "class": "bus", "product": "",
    "children": [{
      "id": "memory", "class": "memory", "description": "System Memory",
      "children": [
        {"id": "bank", "class": "memory", "description": "DIMM RAM", "product": "QEMU DIMM", "size": 8589934592},
        {"id": "bank", "class": "memory", "description": "DIMM RAM", "size": 0},
        {"id": "bank", "class": "memory", "description": "DIMM RAM"}
      ]
    }]
  }]
}`

const physicalMemoryTree = `{
  "id": "pc", "class": "system",
  "children": [{
    "id": "memory", "class": "memory", "description": "System Memory",
    "children": [
      {"id": "bank:0", "class": "memory", "description": "DIMM DDR4 Synchronous 3200 MHz (0.3 ns)", "product": "CMK16GX4M2B3200C16", "size": 8589934592},
      {"id": "bank:1", "class": "memory", "description": "[empty]", "product": "NO DIMM"},
      {"id": "bank:2", "class": "memory", "description": "DIMM DDR4 Synchronous 3200 MHz (0.3 ns)", "product": "CMK16GX4M2B3200C16", "size": 17179869184},
      {"id": "bank:3", "class": "memory", "description": "DIMM Synchronous [empty]", "size": 8589934592},
      {"id": "bank:4", "class": "memory", "description": "DIMM DDR4", "product": "NO DIMM", "size": 8589934592}
    ]
  }]
}`

func TestParseMemoryVirtualLayout(t *testing.T) {
	root, err := ParseTree([]byte(vmMemoryTree))
	require.NoError(t, err)

	ram := ParseMemory(root)
	assert.Equal(t, int64(8), ram.TotalSizeGB)
	assert.Equal(t, "1/3", ram.Slots)
	require.Len(t, ram.Sticks, 1)
	assert.Equal(t, RAMStick{SizeGB: 8, Type: "DIMM RAM", Model: "QEMU DIMM"}, ram.Sticks[0])
}

func TestParseMemoryPhysicalLayout(t *testing.T) {
	root, err := ParseTree([]byte(physicalMemoryTree))
	require.NoError(t, err)

	ram := ParseMemory(root)
	assert.Equal(t, int64(24), ram.TotalSizeGB)
	assert.Equal(t, "2/5", ram.Slots)
	require.Len(t, ram.Sticks, 2)
	assert.Equal(t, int64(8), ram.Sticks[0].SizeGB)
	assert.Equal(t, "CMK16GX4M2B3200C16", ram.Sticks[0].Model)
	assert.Equal(t, "DIMM DDR4 Synchronous 3200 MHz (0.3 ns)", ram.Sticks[0].Type)
	assert.Equal(t, int64(16), ram.Sticks[1].SizeGB)
}

func TestParseMemoryTruncatesPartialGigabytes(t *testing.T) {
	root, err := ParseTree([]byte(`{"id":"bank:0","class":"memory","description":"DIMM","size":2147483647}`))
	require.NoError(t, err)

	ram := ParseMemory(root)
	assert.Equal(t, int64(1), ram.TotalSizeGB)
	assert.Equal(t, "1/1", ram.Slots)
	assert.Equal(t, "Unknown", ram.Sticks[0].Model)
}

func TestParseMemoryEmptyTree(t *testing.T) {
	ram := ParseMemory(nil)
	assert.Equal(t, int64(0), ram.TotalSizeGB)
	assert.Equal(t, "0/0", ram.Slots)
	assert.NotNil(t, ram.Sticks)
	assert.Empty(t, ram.Sticks)
}

const fdiskOutput = `Disk /dev/nvme0n1: 476.94 GiB, 512110190592 bytes, 1000215216 sectors
Disk model: Samsung SSD 970 EVO Plus 512GB
Units: sectors of 1 * 512 = 512 bytes
Sector size (logical/physical): 512 bytes / 512 bytes

Device           Start        End   Sectors   Size Type
/dev/nvme0n1p1    2048    1050623   1048576   512M EFI System

Disk /dev/sda: 1,82 TiB, 2000398934016 bytes, 3907029168 sectors
Disk model: WDC WD20EZAZ-00G
Units: sectors of 1 * 512 = 512 bytes

Disk /dev/sdb: 15032385536 bytes, 29360128 sectors
Disk model: USB Flash Drive
Units: sectors of 1 * 512 = 512 bytes

Disk /dev/loop0: 63.28 MiB, 66355200 bytes, 129600 sectors
Units: sectors of 1 * 512 = 512 bytes
`

func TestParseDiskTable(t *testing.T) {
	disks := ParseDiskTable(fdiskOutput)
	require.Len(t, disks, 3)

	assert.Equal(t, DiskEntry{Path: "/dev/nvme0n1", SizeGB: 476, Model: "Samsung SSD 970 EVO Plus 512GB"}, disks[0])
	assert.Equal(t, DiskEntry{Path: "/dev/sda", SizeGB: 1863, Model: "WDC WD20EZAZ-00G"}, disks[1])
	assert.Equal(t, DiskEntry{Path: "/dev/sdb", SizeGB: 14, Model: "USB Flash Drive"}, disks[2])
}

func TestParseDiskTableNoDisks(t *testing.T) {
	disks := ParseDiskTable("fdisk: cannot open /dev/sda: Permission denied\n")
	assert.NotNil(t, disks)
	assert.Empty(t, disks)
}

func TestParseSmartSerial(t *testing.T) {
	out := `smartctl 7.3 2022-02-28 r5338 [x86_64-linux-6.1.0] (local build)
=== START OF INFORMATION SECTION ===
Model Number:                       Samsung SSD 970 EVO Plus 512GB
Serial Number:                      S4EWNX0N123456A
Firmware Version:                   2B2QEXM7
`
	serial, ok := ParseSmartSerial(out)
	require.True(t, ok)
	assert.Equal(t, "S4EWNX0N123456A", serial)

	_, ok = ParseSmartSerial("Smartctl open device: /dev/sdz failed: No such device\n")
	assert.False(t, ok)
}

func TestParseDisplays(t *testing.T) {
	out := `user@host
---------
OS: Debian GNU/Linux 12 (bookworm) x86_64
Display (DELL U2414H): 1920x1080 @ 60 Hz in 24" [External]
Display (BOE0868): 2560x1600 @ 165.01 Hz in 16" [Built-in]
DE: GNOME 43.9
`
	got := ParseDisplays(out)
	assert.Equal(t, `[External] DELL U2414H: 1920x1080 @ 60 Hz in 24", [Built-in] BOE0868: 2560x1600 @ 165.01 Hz in 16"`, got)
}

func TestParseDisplaysNone(t *testing.T) {
	assert.Equal(t, "N/A", ParseDisplays("OS: Debian GNU/Linux 12\n"))
	assert.Equal(t, "N/A", ParseDisplays(""))
}
