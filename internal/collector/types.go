package collector

// Record is the canonical hardware inventory of one host. Its JSON form is
// the body the probe submits to the inventory service.
type Record struct {
	Host       string   `json:"host"`
	Serial     string   `json:"serial"`
	Mainboard  string   `json:"mainboard"`
	CPU        string   `json:"cpu"`
	GPUs       []string `json:"gpus"`
	Resolution string   `json:"resolution"`
	RAM        RAMInfo  `json:"ram"`
	Disks      []Disk   `json:"disks"`
}

// RAMInfo holds total installed memory, slot occupancy and per-stick details.
type RAMInfo struct {
	TotalSizeGB int64      `json:"total_size_gb"`
	Slots       string     `json:"slots"`
	Sticks      []RAMStick `json:"sticks"`
}

// RAMStick holds details for one populated memory slot.
type RAMStick struct {
	SizeGB int64  `json:"size_gb"`
	Type   string `json:"type"`
	Model  string `json:"model"`
}

// Disk holds one block device as reported by fdisk and smartctl.
type Disk struct {
	Path   string `json:"path"`
	Size   string `json:"size"`
	Model  string `json:"model"`
	Serial string `json:"serial"`
}

const (
	notAvailable = "N/A"
	unknown      = "Unknown"
	noSerial     = "None"
)
