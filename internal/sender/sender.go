package sender

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"time"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	kratoshttp "github.com/go-kratos/kratos/v2/transport/http"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/go-tangra/go-tangra-hwdb/internal/convert"
	"github.com/go-tangra/go-tangra-hwdb/internal/inventory"
)

const submitMethod = "/hwdb.v1.InventoryService/Submit"

// Transports understood by the sender.
const (
	TransportHTTP = "http"
	TransportGRPC = "grpc"
)

// Dialer opens a TCP connection to addr.
type Dialer func(ctx context.Context, addr string) (net.Conn, error)

// Options configures a Sender.
type Options struct {
	// Server is the base URL of the HTTP API, e.g. http://inventory:5000.
	Server    string
	Transport string
	// GRPCAddr is host:port of the gRPC listener.
	GRPCAddr      string
	WaitTimeout   time.Duration
	WaitInterval  time.Duration
	UploadTimeout time.Duration
	// Dialer replaces the default TCP dialer for the connectivity check and
	// the gRPC transport.
	Dialer Dialer
}

// Sender waits for the server to become reachable and uploads one payload.
type Sender struct {
	opts Options
	log  *log.Helper
}

type submitReply struct {
	Status string `json:"status"`
	PCID   string `json:"pc_id"`
}

// New returns a Sender with defaults filled in for zero durations.
func New(opts Options, logger log.Logger) *Sender {
	if opts.Transport == "" {
		opts.Transport = TransportHTTP
	}
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = 300 * time.Second
	}
	if opts.WaitInterval <= 0 {
		opts.WaitInterval = time.Second
	}
	if opts.UploadTimeout <= 0 {
		opts.UploadTimeout = 10 * time.Second
	}
	if opts.Dialer == nil {
		var d net.Dialer
		opts.Dialer = func(ctx context.Context, addr string) (net.Conn, error) {
			return d.DialContext(ctx, "tcp", addr)
		}
	}
	return &Sender{opts: opts, log: log.NewHelper(log.With(logger, "module", "sender"))}
}

// Upload waits for connectivity and submits p exactly once. It returns the
// pc id assigned by the server.
func (s *Sender) Upload(ctx context.Context, p *inventory.Payload) (string, error) {
	if err := s.WaitForConnectivity(ctx); err != nil {
		return "", err
	}
	return s.Send(ctx, p)
}

// target returns host:port the selected transport connects to.
func (s *Sender) target() (string, error) {
	if s.opts.Transport == TransportGRPC {
		if s.opts.GRPCAddr == "" {
			return "", errors.New("grpc address is empty")
		}
		return s.opts.GRPCAddr, nil
	}
	u, err := url.Parse(s.opts.Server)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("server url %q has no host", s.opts.Server)
	}
	if u.Port() != "" {
		return u.Host, nil
	}
	port := "80"
	if u.Scheme == "https" {
		port = "443"
	}
	return net.JoinHostPort(u.Hostname(), port), nil
}

// WaitForConnectivity dials the server every WaitInterval until a
// connection succeeds or WaitTimeout elapses.
func (s *Sender) WaitForConnectivity(ctx context.Context) error {
	addr, err := s.target()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.WaitTimeout)
	defer cancel()

	ticker := time.NewTicker(s.opts.WaitInterval)
	defer ticker.Stop()

	for attempt := 1; ; attempt++ {
		dialCtx, dialCancel := context.WithTimeout(ctx, s.opts.WaitInterval)
		conn, err := s.opts.Dialer(dialCtx, addr)
		dialCancel()
		if err == nil {
			conn.Close()
			if attempt > 1 {
				s.log.Infof("server %s reachable after %d attempts", addr, attempt)
			}
			return nil
		}
		s.log.Debugf("waiting for %s: %v", addr, err)

		select {
		case <-ctx.Done():
			return fmt.Errorf("server %s not reachable within %s: %w", addr, s.opts.WaitTimeout, err)
		case <-ticker.C:
		}
	}
}

// Send submits p once over the configured transport.
func (s *Sender) Send(ctx context.Context, p *inventory.Payload) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.UploadTimeout)
	defer cancel()

	switch s.opts.Transport {
	case TransportHTTP:
		return s.sendHTTP(ctx, p)
	case TransportGRPC:
		return s.sendGRPC(ctx, p)
	default:
		return "", fmt.Errorf("unsupported transport %q", s.opts.Transport)
	}
}

func (s *Sender) sendHTTP(ctx context.Context, p *inventory.Payload) (string, error) {
	u, err := url.Parse(s.opts.Server)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}

	opts := []kratoshttp.ClientOption{
		kratoshttp.WithEndpoint(u.Host),
		kratoshttp.WithTimeout(s.opts.UploadTimeout),
		kratoshttp.WithErrorDecoder(decodeError),
	}
	if u.Scheme == "https" {
		opts = append(opts, kratoshttp.WithTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12}))
	}
	client, err := kratoshttp.NewClient(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("create http client: %w", err)
	}
	defer client.Close()

	var reply submitReply
	if err := client.Invoke(ctx, http.MethodPost, path.Join("/", u.Path, "submit"), p, &reply); err != nil {
		return "", fmt.Errorf("submit inventory: %w", err)
	}
	return reply.PCID, nil
}

func (s *Sender) sendGRPC(ctx context.Context, p *inventory.Payload) (string, error) {
	conn, err := grpc.NewClient(s.opts.GRPCAddr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithContextDialer(s.opts.Dialer),
	)
	if err != nil {
		return "", fmt.Errorf("connect to server: %w", err)
	}
	defer conn.Close()

	in, err := convert.ToStruct(p)
	if err != nil {
		return "", err
	}
	out := new(structpb.Struct)
	if err := conn.Invoke(ctx, submitMethod, in, out); err != nil {
		return "", fmt.Errorf("submit inventory: %w", err)
	}

	var reply submitReply
	if err := convert.FromStruct(out, &reply); err != nil {
		return "", err
	}
	return reply.PCID, nil
}

// decodeError turns a non-2xx {"error": "..."} reply into a kratos error.
func decodeError(_ context.Context, res *http.Response) error {
	if res.StatusCode >= 200 && res.StatusCode <= 299 {
		return nil
	}
	data, err := io.ReadAll(res.Body)
	defer res.Body.Close()
	if err != nil {
		return kerrors.New(res.StatusCode, "UPLOAD_FAILED", err.Error())
	}
	var body struct {
		Error string `json:"error"`
	}
	msg := http.StatusText(res.StatusCode)
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		msg = body.Error
	}
	return kerrors.New(res.StatusCode, "UPLOAD_FAILED", msg)
}
