package server

import (
	"context"
	"errors"
	"time"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"

	"github.com/go-tangra/go-tangra-hwdb/internal/inventory"
	"github.com/go-tangra/go-tangra-hwdb/internal/metrics"
)

// Error reasons carried by kratos errors.
const (
	ReasonValidation = "VALIDATION_ERROR"
	ReasonNotFound   = "NOT_FOUND"
	ReasonConflict   = "CONFLICT"
	ReasonStorage    = "STORAGE_ERROR"
)

// Transport names used in logs and metrics.
const (
	TransportHTTP = "http"
	TransportGRPC = "grpc"
)

type SubmitReply struct {
	Status string `json:"status"`
	PCID   string `json:"pc_id"`
}

type MessageReply struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Handler is the service context shared by the HTTP and gRPC transports.
type Handler struct {
	gw      inventory.Gateway
	metrics *metrics.SubmitMetrics
	log     *log.Helper
	now     func() time.Time
}

// NewHandler creates a handler backed by gw. m may be nil.
func NewHandler(gw inventory.Gateway, m *metrics.SubmitMetrics, logger log.Logger) *Handler {
	return &Handler{
		gw:      gw,
		metrics: m,
		log:     log.NewHelper(log.With(logger, "module", "server")),
		now:     time.Now,
	}
}

// Submit merges a probe submission into the stored record of its serial.
func (h *Handler) Submit(ctx context.Context, transport string, in *inventory.Payload) (*SubmitReply, error) {
	start := h.now()
	if err := inventory.Validate(in); err != nil {
		h.metrics.ObserveSubmit(transport, metrics.ResultRejected, time.Since(start))
		return nil, kerrors.BadRequest(ReasonValidation, err.Error())
	}

	id := inventory.DeriveID(in.Serial)
	var replaced inventory.CollectionOps
	_, err := h.gw.Upsert(ctx, id, func(existing *inventory.PC) (*inventory.PC, inventory.CollectionOps) {
		pc, ops := inventory.Reconcile(id, in, existing, h.now())
		replaced = ops
		return pc, ops
	})
	if err != nil {
		h.metrics.ObserveSubmit(transport, metrics.ResultFailed, time.Since(start))
		return nil, h.storeError("submit", err)
	}

	if replaced.GPUs != nil {
		h.metrics.IncReplacement("gpus")
	}
	if replaced.RAMSticks != nil {
		h.metrics.IncReplacement("ram_sticks")
	}
	if replaced.Disks != nil {
		h.metrics.IncReplacement("disks")
	}
	h.metrics.ObserveSubmit(transport, metrics.ResultOK, time.Since(start))
	h.log.WithContext(ctx).Infof("stored submission for pc %s via %s", id, transport)

	return &SubmitReply{Status: "success", PCID: id}, nil
}

func (h *Handler) UpdateNotes(ctx context.Context, in *inventory.NotesUpdate) (*SubmitReply, error) {
	if err := inventory.Validate(in); err != nil {
		return nil, kerrors.BadRequest(ReasonValidation, err.Error())
	}
	if err := h.gw.UpdateNotes(ctx, in.PCID, in.Notes); err != nil {
		return nil, h.storeError("update notes", err)
	}
	return &SubmitReply{Status: "success", PCID: in.PCID}, nil
}

func (h *Handler) ListPCs(ctx context.Context, f inventory.ListFilter) ([]inventory.Summary, error) {
	list, err := h.gw.ListPCs(ctx, f)
	if err != nil {
		return nil, h.storeError("list pcs", err)
	}
	return list, nil
}

func (h *Handler) GetPC(ctx context.Context, id string) (*inventory.PCDetails, error) {
	pc, err := h.gw.GetPC(ctx, id)
	if err != nil {
		return nil, h.storeError("get pc", err)
	}
	return pc, nil
}

func (h *Handler) DeletePC(ctx context.Context, id string) (*MessageReply, error) {
	if err := h.gw.DeletePC(ctx, id); err != nil {
		return nil, h.storeError("delete pc", err)
	}
	h.log.WithContext(ctx).Infof("deleted pc %s", id)
	return &MessageReply{Status: "success", Message: "PC and all related data deleted"}, nil
}

func (h *Handler) ListTags(ctx context.Context) ([]inventory.Tag, error) {
	tags, err := h.gw.ListTags(ctx)
	if err != nil {
		return nil, h.storeError("list tags", err)
	}
	return tags, nil
}

func (h *Handler) CreateTag(ctx context.Context, in *inventory.NewTag) (*inventory.Tag, error) {
	in.Normalize()
	if err := inventory.Validate(in); err != nil {
		return nil, kerrors.BadRequest(ReasonValidation, err.Error())
	}
	tag, err := h.gw.CreateTag(ctx, in.Name, in.Color)
	if err != nil {
		return nil, h.storeError("create tag", err)
	}
	return tag, nil
}

func (h *Handler) DeleteTag(ctx context.Context, id int64) (*MessageReply, error) {
	if err := h.gw.DeleteTag(ctx, id); err != nil {
		return nil, h.storeError("delete tag", err)
	}
	return &MessageReply{Status: "success", Message: "Tag deleted"}, nil
}

func (h *Handler) PCTags(ctx context.Context, pcID string) ([]inventory.Tag, error) {
	tags, err := h.gw.PCTags(ctx, pcID)
	if err != nil {
		return nil, h.storeError("list pc tags", err)
	}
	return tags, nil
}

func (h *Handler) AddTag(ctx context.Context, pcID string, in *inventory.TagAssignment) (*MessageReply, error) {
	if err := inventory.Validate(in); err != nil {
		return nil, kerrors.BadRequest(ReasonValidation, err.Error())
	}
	if err := h.gw.AddTag(ctx, pcID, in.TagID); err != nil {
		return nil, h.storeError("add tag", err)
	}
	return &MessageReply{Status: "success", Message: "Tag added to PC"}, nil
}

func (h *Handler) RemoveTag(ctx context.Context, pcID string, tagID int64) (*MessageReply, error) {
	if err := h.gw.RemoveTag(ctx, pcID, tagID); err != nil {
		return nil, h.storeError("remove tag", err)
	}
	return &MessageReply{Status: "success", Message: "Tag removed from PC"}, nil
}

// storeError maps gateway errors onto kratos errors. Unexpected errors are
// logged and hidden behind a generic message.
func (h *Handler) storeError(op string, err error) error {
	switch {
	case errors.Is(err, inventory.ErrNotFound):
		return kerrors.NotFound(ReasonNotFound, err.Error())
	case errors.Is(err, inventory.ErrConflict):
		return kerrors.Conflict(ReasonConflict, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return kerrors.ClientClosed("CANCELED", err.Error())
	}
	h.log.Errorf("%s: %v", op, err)
	return kerrors.InternalServer(ReasonStorage, "storage error")
}
