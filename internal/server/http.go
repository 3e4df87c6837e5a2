package server

import (
	"context"
	"net/http"
	"strconv"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/middleware/logging"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	kratoshttp "github.com/go-kratos/kratos/v2/transport/http"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerUI "github.com/tx7do/kratos-swagger-ui"

	"github.com/go-tangra/go-tangra-hwdb/internal/config"
	"github.com/go-tangra/go-tangra-hwdb/internal/inventory"
)

// Operation names reported to middleware.
const (
	OperationSubmit      = "/hwdb.v1.InventoryService/Submit"
	OperationUpdateNotes = "/hwdb.v1.InventoryService/UpdateNotes"
	OperationListPCs     = "/hwdb.v1.InventoryService/ListPCs"
	OperationGetPC       = "/hwdb.v1.InventoryService/GetPC"
	OperationDeletePC    = "/hwdb.v1.InventoryService/DeletePC"
	OperationListTags    = "/hwdb.v1.TagService/ListTags"
	OperationCreateTag   = "/hwdb.v1.TagService/CreateTag"
	OperationDeleteTag   = "/hwdb.v1.TagService/DeleteTag"
	OperationPCTags      = "/hwdb.v1.TagService/PCTags"
	OperationAddTag      = "/hwdb.v1.TagService/AddTag"
	OperationRemoveTag   = "/hwdb.v1.TagService/RemoveTag"
)

// HTTPOptions configures NewHTTPServer.
type HTTPOptions struct {
	Addr     string
	Features config.Features
	// Registry serves /metrics when set.
	Registry *prometheus.Registry
	// OpenAPI serves the Swagger UI under /docs/ when non-empty.
	OpenAPI []byte
}

// NewHTTPServer builds the kratos HTTP server with every enabled route.
func NewHTTPServer(h *Handler, opts HTTPOptions, logger log.Logger) *kratoshttp.Server {
	srvOpts := []kratoshttp.ServerOption{
		kratoshttp.Middleware(
			recovery.Recovery(),
			RequestID(),
			logging.Server(logger),
		),
		kratoshttp.ErrorEncoder(encodeError),
	}
	if opts.Addr != "" {
		srvOpts = append(srvOpts, kratoshttp.Address(opts.Addr))
	}
	srv := kratoshttp.NewServer(srvOpts...)

	r := srv.Route("/")
	r.POST("/submit", h.httpSubmit)
	r.POST("/update_notes", h.httpUpdateNotes)
	r.GET("/pcs", h.httpListPCs)
	r.GET("/pc/{id}", h.httpGetPC)
	if opts.Features.Delete {
		r.DELETE("/pc/{id}/delete", h.httpDeletePC)
	}
	if opts.Features.Tags {
		r.GET("/tags", h.httpListTags)
		r.POST("/tags", h.httpCreateTag)
		r.DELETE("/tags/{id}", h.httpDeleteTag)
		r.GET("/pc/{id}/tags", h.httpPCTags)
		r.POST("/pc/{id}/tags", h.httpAddTag)
		r.DELETE("/pc/{id}/tags/{tag_id}", h.httpRemoveTag)
	}

	if opts.Registry != nil {
		srv.Handle("/metrics", promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{}))
	}

	// Swagger UI is registered via HandlePrefix and bypasses the middleware chain.
	if len(opts.OpenAPI) > 0 {
		swaggerUI.RegisterSwaggerUIServerWithOption(
			srv,
			swaggerUI.WithTitle("hwdb"),
			swaggerUI.WithMemoryData(opts.OpenAPI, "yaml"),
		)
	}

	return srv
}

// encodeError writes kratos errors as {"error": "<message>"}.
func encodeError(w http.ResponseWriter, r *http.Request, err error) {
	se := kerrors.FromError(err)
	codec, _ := kratoshttp.CodecForRequest(r, "Accept")
	body, mErr := codec.Marshal(map[string]string{"error": se.Message})
	if mErr != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/"+codec.Name())
	w.WriteHeader(int(se.Code))
	_, _ = w.Write(body)
}

// serve runs fn through the server middleware chain under op and writes the
// result with the given status code.
func serve(ctx kratoshttp.Context, op string, code int, req any, fn middleware.Handler) error {
	kratoshttp.SetOperation(ctx, op)
	out, err := ctx.Middleware(fn)(ctx, req)
	if err != nil {
		return err
	}
	return ctx.Result(code, out)
}

func (h *Handler) httpSubmit(ctx kratoshttp.Context) error {
	var in inventory.Payload
	if err := ctx.Bind(&in); err != nil {
		return err
	}
	return serve(ctx, OperationSubmit, http.StatusOK, &in, func(c context.Context, req any) (any, error) {
		return h.Submit(c, TransportHTTP, req.(*inventory.Payload))
	})
}

func (h *Handler) httpUpdateNotes(ctx kratoshttp.Context) error {
	var in inventory.NotesUpdate
	if err := ctx.Bind(&in); err != nil {
		return err
	}
	return serve(ctx, OperationUpdateNotes, http.StatusOK, &in, func(c context.Context, req any) (any, error) {
		return h.UpdateNotes(c, req.(*inventory.NotesUpdate))
	})
}

func (h *Handler) httpListPCs(ctx kratoshttp.Context) error {
	q := ctx.Query()
	f := inventory.ListFilter{
		SortBy:    q.Get("sort_by"),
		SortOrder: q.Get("sort_order"),
		Tag:       q.Get("tag"),
	}
	return serve(ctx, OperationListPCs, http.StatusOK, f, func(c context.Context, req any) (any, error) {
		return h.ListPCs(c, req.(inventory.ListFilter))
	})
}

func (h *Handler) httpGetPC(ctx kratoshttp.Context) error {
	id := ctx.Vars().Get("id")
	return serve(ctx, OperationGetPC, http.StatusOK, id, func(c context.Context, req any) (any, error) {
		return h.GetPC(c, req.(string))
	})
}

func (h *Handler) httpDeletePC(ctx kratoshttp.Context) error {
	id := ctx.Vars().Get("id")
	return serve(ctx, OperationDeletePC, http.StatusOK, id, func(c context.Context, req any) (any, error) {
		return h.DeletePC(c, req.(string))
	})
}

func (h *Handler) httpListTags(ctx kratoshttp.Context) error {
	return serve(ctx, OperationListTags, http.StatusOK, nil, func(c context.Context, _ any) (any, error) {
		return h.ListTags(c)
	})
}

func (h *Handler) httpCreateTag(ctx kratoshttp.Context) error {
	var in inventory.NewTag
	if err := ctx.Bind(&in); err != nil {
		return err
	}
	return serve(ctx, OperationCreateTag, http.StatusCreated, &in, func(c context.Context, req any) (any, error) {
		return h.CreateTag(c, req.(*inventory.NewTag))
	})
}

func (h *Handler) httpDeleteTag(ctx kratoshttp.Context) error {
	id, err := tagIDVar(ctx, "id")
	if err != nil {
		return err
	}
	return serve(ctx, OperationDeleteTag, http.StatusOK, id, func(c context.Context, req any) (any, error) {
		return h.DeleteTag(c, req.(int64))
	})
}

func (h *Handler) httpPCTags(ctx kratoshttp.Context) error {
	id := ctx.Vars().Get("id")
	return serve(ctx, OperationPCTags, http.StatusOK, id, func(c context.Context, req any) (any, error) {
		return h.PCTags(c, req.(string))
	})
}

func (h *Handler) httpAddTag(ctx kratoshttp.Context) error {
	var in inventory.TagAssignment
	if err := ctx.Bind(&in); err != nil {
		return err
	}
	pcID := ctx.Vars().Get("id")
	return serve(ctx, OperationAddTag, http.StatusOK, &in, func(c context.Context, req any) (any, error) {
		return h.AddTag(c, pcID, req.(*inventory.TagAssignment))
	})
}

func (h *Handler) httpRemoveTag(ctx kratoshttp.Context) error {
	tagID, err := tagIDVar(ctx, "tag_id")
	if err != nil {
		return err
	}
	pcID := ctx.Vars().Get("id")
	return serve(ctx, OperationRemoveTag, http.StatusOK, tagID, func(c context.Context, req any) (any, error) {
		return h.RemoveTag(c, pcID, req.(int64))
	})
}

// tagIDVar parses a numeric tag id path segment. A non-numeric id cannot
// name a tag, so it is reported as not found.
func tagIDVar(ctx kratoshttp.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(ctx.Vars().Get(name), 10, 64)
	if err != nil {
		return 0, kerrors.NotFound(ReasonNotFound, "tag not found")
	}
	return id, nil
}
