package collector

import (
	"fmt"
	"strings"
)

const bytesPerGiB = 1 << 30

// ParseMemory derives RAM totals and sticks from the "memory" nodes of an
// lshw tree. Two layouts exist: virtual machines report a "memory" container
// whose DIMM children carry sizes, physical machines report explicit
// bank:N nodes that are marked empty through their description or product.
func ParseMemory(root *Node) RAMInfo {
	var (
		sticks    = []RAMStick{}
		total     int64
		slots     int
		usedSlots int
	)

	for _, bank := range FindByClass(root, "memory") {
		id := bank.Str("id")
		switch {
		case id == "memory" && len(bank.Children()) > 0:
			for _, child := range bank.Children() {
				// bank:N children are visited on their own below.
				if strings.HasPrefix(child.Str("id"), "bank:") {
					continue
				}
				desc := child.Str("description")
				if !strings.HasPrefix(desc, "DIMM") {
					continue
				}
				slots++
				size, _ := child.Int("size")
				if size <= 0 {
					continue
				}
				usedSlots++
				stick := newStick(child, size)
				total += stick.SizeGB
				sticks = append(sticks, stick)
			}

		case strings.HasPrefix(id, "bank:"):
			slots++
			size, _ := bank.Int("size")
			if size <= 0 ||
				strings.Contains(bank.Str("description"), "[empty]") ||
				bank.Str("product") == "NO DIMM" {
				continue
			}
			usedSlots++
			stick := newStick(bank, size)
			total += stick.SizeGB
			sticks = append(sticks, stick)
		}
	}

	return RAMInfo{
		TotalSizeGB: total,
		Slots:       fmt.Sprintf("%d/%d", usedSlots, slots),
		Sticks:      sticks,
	}
}

func newStick(n *Node, size int64) RAMStick {
	return RAMStick{
		SizeGB: size / bytesPerGiB,
		Type:   orDefault(n.Str("description"), unknown),
		Model:  orDefault(n.Str("product"), unknown),
	}
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}
