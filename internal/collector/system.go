package collector

import "strings"

// virtualizationMarkers identify hypervisor vendors in the host string.
// Virtual machines share the serial "VM".
var virtualizationMarkers = []string{"QEMU", "VMware", "VirtualBox", "innotek", "Bochs", "Xen", "KVM"}

// SystemInfo holds the identity of the host as read from the device tree root.
type SystemInfo struct {
	Vendor  string
	Product string
	Serial  string
}

// systemInfo reads vendor, product and serial from the lshw root node.
func systemInfo(root *Node) SystemInfo {
	top := root.First()
	return SystemInfo{
		Vendor:  strings.TrimSpace(top.Str("vendor")),
		Product: strings.TrimSpace(top.Str("product")),
		Serial:  strings.TrimSpace(top.Str("serial")),
	}
}

// Host returns "<vendor> <product>" with "Unknown" for missing parts.
func (s SystemInfo) Host() string {
	return orDefault(s.Vendor, unknown) + " " + orDefault(s.Product, unknown)
}

// SerialFor returns the serial to report for host. Virtual machines
// report "VM"; a missing serial reports "N/A".
func (s SystemInfo) SerialFor(host string) string {
	if isVirtual(host) {
		return "VM"
	}
	return orDefault(s.Serial, notAvailable)
}

func isVirtual(host string) bool {
	for _, m := range virtualizationMarkers {
		if strings.Contains(host, m) {
			return true
		}
	}
	return false
}

// firstProduct returns the product of the first node of class, or "N/A"
// when the tree holds no such node.
func firstProduct(root *Node, class string) string {
	nodes := FindByClass(root, class)
	if len(nodes) == 0 {
		return notAvailable
	}
	return orDefault(nodes[0].Str("product"), notAvailable)
}

// cpuName returns the product name of the first processor.
func cpuName(root *Node) string { return firstProduct(root, "processor") }

// mainboardName returns the product name of the first bus node.
func mainboardName(root *Node) string { return firstProduct(root, "bus") }

// gpuNames lists the product of every display adapter.
func gpuNames(root *Node) []string {
	nodes := FindByClass(root, "display")
	names := make([]string, 0, len(nodes))
	for _, n := range nodes {
		names = append(names, orDefault(n.Str("product"), unknown))
	}
	return names
}
