// Package mongo stores reports as MongoDB documents ordered by a sequence
// number drawn from a counters collection.
package mongo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/civic-report-service/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	mongodrv "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	reportsCollection  = "reports"
	countersCollection = "counters"
	counterID          = "civic_report"
	connectTimeout     = 15 * time.Second
	indexTimeout       = 10 * time.Second
)

// Store appends reports to the reports collection.
type Store struct {
	client   *mongodrv.Client
	reports  *mongodrv.Collection
	counters *mongodrv.Collection
	logger   *slog.Logger
}

// Connect dials uri, verifies the connection and ensures the indexes exist.
func Connect(ctx context.Context, uri, database string, logger *slog.Logger) (*Store, error) {
	dctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongodrv.Connect(dctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(dctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := client.Database(database)
	s := &Store{
		client:   client,
		reports:  db.Collection(reportsCollection),
		counters: db.Collection(countersCollection),
		logger:   logger,
	}
	if err := s.createIndexes(ctx); err != nil {
		logger.Warn("mongo index creation failed", "error", err)
	}
	return s, nil
}

func (s *Store) createIndexes(ctx context.Context) error {
	ictx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()

	_, err := s.reports.Indexes().CreateMany(ictx, []mongodrv.IndexModel{
		{Keys: bson.D{{Key: "seq", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "report_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "type", Value: 1}}},
	})
	return err
}

// LoadAll returns every stored report in insertion order.
func (s *Store) LoadAll(ctx context.Context) ([]domain.Report, error) {
	cur, err := s.reports.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find reports: %w", err)
	}
	defer cur.Close(ctx)

	reports := []domain.Report{}
	for cur.Next(ctx) {
		var doc reportDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode report document: %w", err)
		}
		reports = append(reports, doc.toReport())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	return reports, nil
}

// Append assigns the next sequence number and inserts r.
func (s *Store) Append(ctx context.Context, r domain.Report) (domain.Report, error) {
	seq, err := s.nextSeq(ctx)
	if err != nil {
		return domain.Report{}, err
	}
	doc := toDocument(r, seq, domain.Now().UTC())
	if _, err := s.reports.InsertOne(ctx, doc); err != nil {
		return domain.Report{}, fmt.Errorf("insert report %d: %w", r.ID, err)
	}
	return r, nil
}

func (s *Store) nextSeq(ctx context.Context) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": counterID},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("next report sequence: %w", err)
	}
	return counter.Seq, nil
}

// Ping checks the primary is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	if s.client == nil {
		return errors.New("mongo store not connected")
	}
	return s.client.Disconnect(ctx)
}

// reportDocument is the stored shape. A well-formed location is kept as a
// [lat, lon] array; any other value is kept as its JSON text.
type reportDocument struct {
	Seq         int64     `bson:"seq"`
	ReportID    int64     `bson:"report_id"`
	Type        string    `bson:"type"`
	Description string    `bson:"description"`
	Location    []float64 `bson:"location,omitempty"`
	LocationRaw string    `bson:"location_raw,omitempty"`
	Timestamp   string    `bson:"timestamp"`
	Status      string    `bson:"status"`
	Address     string    `bson:"address,omitempty"`
	CreatedAt   time.Time `bson:"created_at"`
}

func toDocument(r domain.Report, seq int64, createdAt time.Time) reportDocument {
	doc := reportDocument{
		Seq:         seq,
		ReportID:    r.ID,
		Type:        string(r.Type),
		Description: r.Description,
		Timestamp:   r.Timestamp,
		Status:      string(r.Status),
		Address:     r.Address,
		CreatedAt:   createdAt,
	}
	if c, ok := r.Location.Coord(); ok {
		doc.Location = []float64{c.Lat, c.Lon}
	} else if raw, err := r.Location.MarshalJSON(); err == nil && string(raw) != "null" {
		doc.LocationRaw = string(raw)
	}
	return doc
}

func (d reportDocument) toReport() domain.Report {
	r := domain.Report{
		ID:          d.ReportID,
		Type:        domain.IssueType(d.Type),
		Description: d.Description,
		Timestamp:   d.Timestamp,
		Status:      domain.Status(d.Status),
		Address:     d.Address,
	}
	switch {
	case len(d.Location) == 2:
		r.Location = domain.NewLocation(d.Location[0], d.Location[1])
	case d.LocationRaw != "":
		_ = json.Unmarshal([]byte(d.LocationRaw), &r.Location)
	}
	return r
}
