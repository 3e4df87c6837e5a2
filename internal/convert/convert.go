// Package convert maps probe records onto submission payloads and moves
// JSON-shaped values in and out of google.protobuf.Struct for the gRPC
// transport.
package convert

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/go-tangra/go-tangra-hwdb/internal/collector"
	"github.com/go-tangra/go-tangra-hwdb/internal/inventory"
)

// RecordToPayload builds a full submission from a probe record. Every key is
// present, so the server replaces all collections with what was probed.
func RecordToPayload(rec *collector.Record) *inventory.Payload {
	sticks := make([]inventory.StickPayload, 0, len(rec.RAM.Sticks))
	for _, s := range rec.RAM.Sticks {
		sticks = append(sticks, inventory.StickPayload{SizeGB: s.SizeGB, Type: s.Type, Model: s.Model})
	}

	gpus := append(make([]string, 0, len(rec.GPUs)), rec.GPUs...)

	disks := make([]inventory.DiskPayload, 0, len(rec.Disks))
	for _, d := range rec.Disks {
		disks = append(disks, inventory.DiskPayload{Size: d.Size, Model: d.Model, Serial: d.Serial, Path: d.Path})
	}

	total := rec.RAM.TotalSizeGB
	return &inventory.Payload{
		Serial:     rec.Serial,
		Host:       strPtr(rec.Host),
		CPU:        strPtr(rec.CPU),
		Mainboard:  strPtr(rec.Mainboard),
		Resolution: strPtr(rec.Resolution),
		RAM: &inventory.RAMPayload{
			TotalSizeGB: &total,
			Slots:       strPtr(rec.RAM.Slots),
			Sticks:      &sticks,
		},
		GPUs:  &gpus,
		Disks: &disks,
	}
}

func strPtr(s string) *string { return &s }

// ToStruct encodes v as JSON and decodes it into a Struct. v must encode to
// a JSON object.
func ToStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	s := &structpb.Struct{}
	if err := protojson.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("decode struct: %w", err)
	}
	return s, nil
}

// FromStruct decodes a Struct into v through its JSON form.
func FromStruct(s *structpb.Struct, v any) error {
	if s == nil {
		s = &structpb.Struct{}
	}
	data, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode struct: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	return nil
}
