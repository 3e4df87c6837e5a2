package inventory

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CollectionOps lists the child collections a submission replaces. A nil
// field leaves that collection untouched; a non-nil pointer to an empty slice
// clears it.
type CollectionOps struct {
	GPUs      *[]string
	RAMSticks *[]RAMStick
	Disks     *[]Disk
}

// Empty reports whether no collection is replaced.
func (o CollectionOps) Empty() bool {
	return o.GPUs == nil && o.RAMSticks == nil && o.Disks == nil
}

// MergeFunc computes the record to store from the currently stored one (nil
// when the id is new). The store calls it inside the write transaction.
type MergeFunc func(existing *PC) (*PC, CollectionOps)

// Reconcile merges a submission into the stored record. Supplied scalars win,
// absent ones keep the stored value, and a new record starts from zero values.
// submitted_at always becomes now.
func Reconcile(id string, in *Payload, existing *PC, now time.Time) (*PC, CollectionOps) {
	pc := PC{ID: id, Serial: in.Serial}
	if existing != nil {
		pc = *existing
		pc.ID = id
	}

	pick(&pc.Host, in.Host)
	pick(&pc.CPU, in.CPU)
	pick(&pc.Mainboard, in.Mainboard)
	pick(&pc.Resolution, in.Resolution)
	pick(&pc.Notes, in.Notes)

	var ops CollectionOps
	if in.RAM != nil {
		if in.RAM.TotalSizeGB != nil {
			pc.RAMTotalGB = *in.RAM.TotalSizeGB
		}
		pick(&pc.RAMSlots, in.RAM.Slots)
		if in.RAM.Sticks != nil {
			sticks := make([]RAMStick, 0, len(*in.RAM.Sticks))
			for _, s := range *in.RAM.Sticks {
				sticks = append(sticks, RAMStick{SizeGB: s.SizeGB, Type: s.Type, Model: s.Model})
			}
			ops.RAMSticks = &sticks
		}
	}

	if in.GPUs != nil {
		gpus := append(make([]string, 0, len(*in.GPUs)), *in.GPUs...)
		ops.GPUs = &gpus
	}

	if in.Disks != nil {
		disks := make([]Disk, 0, len(*in.Disks))
		for _, d := range *in.Disks {
			disks = append(disks, Disk{
				SizeGB: ParseSizeGB(d.Size),
				Model:  d.Model,
				Serial: d.Serial,
				Path:   d.Path,
			})
		}
		ops.Disks = &disks
	}

	pc.SubmittedAt = now.UTC()
	return &pc, ops
}

func pick(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

var sizeRe = regexp.MustCompile(`^(\d+\.?\d*|\.\d+)$`)

// ParseSizeGB turns "931.5G" into 931. Anything that is not a plain
// non-negative decimal once the trailing G is removed yields 0.
func ParseSizeGB(s string) int64 {
	s = strings.TrimRight(strings.ToUpper(strings.TrimSpace(s)), "G")
	if !sizeRe.MatchString(s) {
		return 0
	}
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	d, err := decimal.NewFromString(strings.TrimSuffix(s, "."))
	if err != nil {
		return 0
	}
	return d.IntPart()
}
