package source

import (
	"context"
	"crypto/tls"
	"net"
	"strconv"

	pb "github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/Siddhant-K-code/minelab/pkg/errors"
	"github.com/Siddhant-K-code/minelab/pkg/logging"
	"github.com/Siddhant-K-code/minelab/pkg/types"
)

const (
	defaultQdrantPort = "6334"
	qdrantPageSize    = 256
)

// Qdrant scrolls a collection over gRPC and returns the stored vectors.
type Qdrant struct {
	conn       *grpc.ClientConn
	points     pb.PointsClient
	collection string
	apiKey     string
	log        *zap.SugaredLogger
}

// NewQdrant connects to cfg.Host (default port 6334).
func NewQdrant(_ context.Context, cfg Config) (*Qdrant, error) {
	if cfg.Host == "" {
		return nil, errors.InvalidParameter("host", "host is required for the qdrant backend")
	}
	if cfg.Collection == "" {
		return nil, errors.InvalidParameter("collection", "collection is required for the qdrant backend")
	}

	creds := insecure.NewCredentials()
	if cfg.UseTLS {
		creds = credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	addr := qdrantAddr(cfg.Host)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, errors.Wrapf(err, "connect to qdrant at %s", addr)
	}

	q := newQdrant(pb.NewPointsClient(conn), cfg)
	q.conn = conn
	return q, nil
}

func newQdrant(points pb.PointsClient, cfg Config) *Qdrant {
	return &Qdrant{
		points:     points,
		collection: cfg.Collection,
		apiKey:     cfg.APIKey,
		log:        logging.Named("source.qdrant"),
	}
}

// Name implements Source.
func (q *Qdrant) Name() string { return BackendQdrant }

// Fetch scrolls the collection page by page until limit vectors are read or
// the collection is exhausted. Points without a dense vector are skipped.
func (q *Qdrant) Fetch(ctx context.Context, limit int) ([]types.Vector, error) {
	limit = effectiveLimit(limit)
	if q.apiKey != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "api-key", q.apiKey)
	}

	vectors := make([]types.Vector, 0, min(limit, qdrantPageSize))
	var offset *pb.PointId
	skipped := 0

	for len(vectors) < limit {
		page := uint32(min(limit-len(vectors), qdrantPageSize))
		resp, err := q.points.Scroll(ctx, &pb.ScrollPoints{
			CollectionName: q.collection,
			Offset:         offset,
			Limit:          &page,
			WithPayload: &pb.WithPayloadSelector{
				SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true},
			},
			WithVectors: &pb.WithVectorsSelector{
				SelectorOptions: &pb.WithVectorsSelector_Enable{Enable: true},
			},
		})
		if err != nil {
			return nil, errors.Wrapf(err, "scroll qdrant collection %q", q.collection)
		}

		for _, point := range resp.GetResult() {
			var values []float32
			if vec := point.GetVectors().GetVector(); vec != nil {
				values = vec.GetData()
			}
			if len(values) == 0 {
				skipped++
				continue
			}
			vectors = append(vectors, types.Vector{
				ID:       pointID(point.GetId()),
				Values:   values,
				Metadata: payloadToMap(point.GetPayload()),
			})
			if len(vectors) == limit {
				break
			}
		}

		offset = resp.GetNextPageOffset()
		if offset == nil || len(resp.GetResult()) == 0 {
			break
		}
	}

	if skipped > 0 {
		q.log.Debugw("skipped points without dense vectors", "collection", q.collection, "skipped", skipped)
	}
	return vectors, nil
}

// Close implements Source.
func (q *Qdrant) Close() error {
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}

func qdrantAddr(host string) string {
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	return net.JoinHostPort(host, defaultQdrantPort)
}

func pointID(id *pb.PointId) string {
	switch v := id.GetPointIdOptions().(type) {
	case *pb.PointId_Num:
		return strconv.FormatUint(v.Num, 10)
	case *pb.PointId_Uuid:
		return v.Uuid
	}
	return ""
}

func payloadToMap(payload map[string]*pb.Value) map[string]interface{} {
	if len(payload) == 0 {
		return nil
	}
	out := make(map[string]interface{}, len(payload))
	for k, v := range payload {
		out[k] = qdrantValue(v)
	}
	return out
}

func qdrantValue(v *pb.Value) interface{} {
	switch val := v.GetKind().(type) {
	case *pb.Value_DoubleValue:
		return val.DoubleValue
	case *pb.Value_IntegerValue:
		return val.IntegerValue
	case *pb.Value_StringValue:
		return val.StringValue
	case *pb.Value_BoolValue:
		return val.BoolValue
	case *pb.Value_ListValue:
		list := make([]interface{}, len(val.ListValue.GetValues()))
		for i, item := range val.ListValue.GetValues() {
			list[i] = qdrantValue(item)
		}
		return list
	case *pb.Value_StructValue:
		return payloadToMap(val.StructValue.GetFields())
	}
	return nil
}
