// Package semantic owns all Qdrant operations: k-NN similarity search for
// the vector branch, filtered scrolling for the exact-match branch, and
// upserts for ingestion.
package semantic

import (
	"context"
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/MotorMindAI/motormind-mvp/engine/domain"
)

// VectorStore is the sole owner of all Qdrant operations.
type VectorStore struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
}

// New creates a VectorStore connected to Qdrant at the given gRPC address.
func New(addr string, collection string) (*VectorStore, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("semantic: dial qdrant %s: %w", addr, err)
	}
	return &VectorStore{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
	}, nil
}

// Close closes the underlying gRPC connection.
func (v *VectorStore) Close() error {
	return v.conn.Close()
}

// Ping verifies the Qdrant connection by listing collections.
func (v *VectorStore) Ping(ctx context.Context) error {
	if _, err := v.collections.List(ctx, &pb.ListCollectionsRequest{}); err != nil {
		return fmt.Errorf("semantic: ping: %w", err)
	}
	return nil
}

// EnsureCollection creates the collection if it doesn't exist.
func (v *VectorStore) EnsureCollection(ctx context.Context, dims int) error {
	list, err := v.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("semantic: list collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == v.collection {
			return nil
		}
	}

	d := uint64(dims)
	_, err = v.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: v.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     d,
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("semantic: create collection %s: %w", v.collection, err)
	}
	return nil
}

// DeleteCollection deletes the collection. Used by re-ingestion.
func (v *VectorStore) DeleteCollection(ctx context.Context) error {
	_, err := v.collections.Delete(ctx, &pb.DeleteCollection{
		CollectionName: v.collection,
	})
	if err != nil {
		return fmt.Errorf("semantic: delete collection %s: %w", v.collection, err)
	}
	return nil
}

// Upsert stores embedded vehicle records. Called by engine/ingest.
func (v *VectorStore) Upsert(ctx context.Context, records []VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]*pb.PointStruct, len(records))
	for i, r := range records {
		points[i] = &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{Uuid: r.ID},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: r.Embedding},
				},
			},
			Payload: toPayload(r.Payload),
		}
	}

	wait := true
	_, err := v.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: v.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("semantic: upsert %d points: %w", len(records), err)
	}
	return nil
}

// Search performs k-NN similarity search over the whole collection,
// unconstrained by filters, and returns candidates with similarity scores.
func (v *VectorStore) Search(ctx context.Context, embedding []float32, limit int) ([]domain.SearchResult, error) {
	resp, err := v.points.Search(ctx, &pb.SearchPoints{
		CollectionName: v.collection,
		Vector:         embedding,
		Limit:          uint64(limit),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("semantic: search: %w", err)
	}

	results := make([]domain.SearchResult, len(resp.GetResult()))
	for i, p := range resp.GetResult() {
		results[i] = domain.SearchResult{
			Record: recordFromPayload(p.GetId().GetUuid(), p.GetPayload()),
			Score:  p.GetScore(),
		}
	}
	return results, nil
}

// Scroll performs an exact-match filtered scan with no similarity
// computation. Every returned result satisfies all predicates and is
// tagged with maximal relevance.
func (v *VectorStore) Scroll(ctx context.Context, filter ScanFilter, limit int) ([]domain.SearchResult, error) {
	lim := uint32(limit)
	resp, err := v.points.Scroll(ctx, &pb.ScrollPoints{
		CollectionName: v.collection,
		Filter:         buildFilter(filter),
		Limit:          &lim,
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("semantic: scroll: %w", err)
	}

	results := make([]domain.SearchResult, len(resp.GetResult()))
	for i, p := range resp.GetResult() {
		results[i] = domain.SearchResult{
			Record:  recordFromPayload(p.GetId().GetUuid(), p.GetPayload()),
			Score:   1.0,
			Scanned: true,
		}
	}
	return results, nil
}

// buildFilter translates a ScanFilter into Qdrant must-conditions.
func buildFilter(f ScanFilter) *pb.Filter {
	var must []*pb.Condition

	if cond := rangeCondition(fieldPrice, f.MinPrice, f.MaxPrice); cond != nil {
		must = append(must, cond)
	}
	if cond := rangeCondition(fieldMileage, f.MinMileage, f.MaxMileage); cond != nil {
		must = append(must, cond)
	}
	if f.Color != "" {
		must = append(must, keywordMatch(fieldColor, f.Color))
	}
	if f.City != "" {
		must = append(must, keywordMatch(fieldCity, f.City))
	}
	if f.Engine != "" {
		must = append(must, keywordMatch(fieldEngine, f.Engine))
	}
	if f.Model != "" {
		must = append(must, textMatch(fieldModel, f.Model))
	}
	if f.Year != 0 {
		must = append(must, integerMatch(fieldModelYear, int64(f.Year)))
	}

	if len(must) == 0 {
		return nil
	}
	return &pb.Filter{Must: must}
}

func rangeCondition(key string, min, max *int) *pb.Condition {
	if min == nil && max == nil {
		return nil
	}
	r := &pb.Range{}
	if min != nil {
		gte := float64(*min)
		r.Gte = &gte
	}
	if max != nil {
		lte := float64(*max)
		r.Lte = &lte
	}
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{Key: key, Range: r},
		},
	}
}

func keywordMatch(key, value string) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key:   key,
				Match: &pb.Match{MatchValue: &pb.Match_Keyword{Keyword: value}},
			},
		},
	}
}

func textMatch(key, value string) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key:   key,
				Match: &pb.Match{MatchValue: &pb.Match_Text{Text: value}},
			},
		},
	}
}

func integerMatch(key string, value int64) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key:   key,
				Match: &pb.Match{MatchValue: &pb.Match_Integer{Integer: value}},
			},
		},
	}
}

func toPayload(m map[string]any) map[string]*pb.Value {
	payload := make(map[string]*pb.Value, len(m))
	for k, val := range m {
		switch tv := val.(type) {
		case string:
			payload[k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: tv}}
		case int:
			payload[k] = &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: int64(tv)}}
		case int64:
			payload[k] = &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: tv}}
		case float64:
			payload[k] = &pb.Value{Kind: &pb.Value_DoubleValue{DoubleValue: tv}}
		case bool:
			payload[k] = &pb.Value{Kind: &pb.Value_BoolValue{BoolValue: tv}}
		default:
			payload[k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: fmt.Sprint(tv)}}
		}
	}
	return payload
}

// recordFromPayload rebuilds a VehicleRecord from a Qdrant payload.
func recordFromPayload(id string, payload map[string]*pb.Value) domain.VehicleRecord {
	rec := domain.VehicleRecord{ID: id}
	for k, val := range payload {
		switch k {
		case fieldModel:
			rec.Model = val.GetStringValue()
		case fieldGeneration:
			rec.Generation = val.GetStringValue()
		case fieldPrice:
			rec.Price = int(intValue(val))
		case fieldMileage:
			rec.Mileage = int(intValue(val))
		case fieldColor:
			rec.Color = val.GetStringValue()
		case fieldCity:
			rec.City = val.GetStringValue()
		case fieldEngine:
			rec.Engine = val.GetStringValue()
		case fieldModelYear:
			rec.ModelYear = int(intValue(val))
		case fieldURL:
			rec.URL = val.GetStringValue()
		}
	}
	return rec
}

// intValue reads an integer payload value that may have been stored as a
// double by a foreign writer.
func intValue(v *pb.Value) int64 {
	if i, ok := v.GetKind().(*pb.Value_IntegerValue); ok {
		return i.IntegerValue
	}
	if d, ok := v.GetKind().(*pb.Value_DoubleValue); ok {
		return int64(d.DoubleValue)
	}
	return 0
}

// RecordPayload builds the canonical payload map for a vehicle record and
// its semantic description. Shared by engine/ingest.
func RecordPayload(rec domain.VehicleRecord, description string) map[string]any {
	return map[string]any{
		fieldModel:      rec.Model,
		fieldGeneration: rec.Generation,
		fieldPrice:      rec.Price,
		fieldMileage:    rec.Mileage,
		fieldColor:      rec.Color,
		fieldCity:       rec.City,
		fieldEngine:     rec.Engine,
		fieldModelYear:  rec.ModelYear,
		fieldURL:        rec.URL,
		fieldContent:    description,
	}
}
