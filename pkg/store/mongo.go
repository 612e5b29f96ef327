package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/sitecraft/pkg/document"
	apperrors "github.com/matzehuels/sitecraft/pkg/errors"
)

// MongoConfig configures a MongoStore.
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
	Timeout    time.Duration
	// AppName is reported to the server in the handshake.
	AppName string
}

// Defaults for MongoConfig.
const (
	DefaultMongoDatabase   = "sitecraft"
	DefaultMongoCollection = "tenants"
)

// MongoStore keeps one document per tenant, with _id set to the tenant id
// and pages stored under pages.<slug>.
type MongoStore struct {
	client  *mongo.Client
	coll    *mongo.Collection
	timeout time.Duration
	now     func() time.Time
}

// NewMongoStore connects to MongoDB and pings the primary.
func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	if cfg.Database == "" {
		cfg.Database = DefaultMongoDatabase
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultMongoCollection
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetTimeout(cfg.Timeout).
		SetAppName(cfg.AppName).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, classify(err, "connect to mongo")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, classify(err, "ping mongo")
	}
	return &MongoStore{
		client:  client,
		coll:    client.Database(cfg.Database).Collection(cfg.Collection),
		timeout: cfg.Timeout,
		now:     time.Now,
	}, nil
}

// Load fetches the tenant's document.
func (s *MongoStore) Load(ctx context.Context, tenantID string) (*document.Snapshot, error) {
	if err := apperrors.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}
	var snap document.Snapshot
	err := s.coll.FindOne(ctx, bson.M{"_id": tenantID}).Decode(&snap)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("tenant %q: %w", tenantID, ErrNotFound)
	}
	if err != nil {
		return nil, classify(err, "load tenant %q", tenantID)
	}
	normalizeSnapshot(&snap)
	snap.Normalize()
	return &snap, nil
}

// Save applies req with a single upserting update.
func (s *MongoStore) Save(ctx context.Context, req SaveRequest) (SaveResult, error) {
	if err := req.Validate(); err != nil {
		return SaveResult{}, err
	}
	update, res := buildUpdate(req, s.now())
	_, err := s.coll.UpdateOne(ctx, bson.M{"_id": req.TenantID}, update, options.Update().SetUpsert(true))
	if err != nil {
		return SaveResult{}, classify(err, "save tenant %q", req.TenantID)
	}
	return res, nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// buildUpdate turns req into $set/$unset operators. Deleted pages are
// unset rather than stored empty.
func buildUpdate(req SaveRequest, now time.Time) (bson.M, SaveResult) {
	set := bson.M{"updatedAt": now.UTC()}
	unset := bson.M{}
	var res SaveResult

	for slug, insts := range req.Pages {
		key := "pages." + slug
		if len(insts) == 0 {
			unset[key] = ""
			res.PagesDeleted++
			continue
		}
		page := document.CloneInstances(insts)
		for i := range page {
			page[i].Position = i
		}
		set[key] = page
		res.PagesSaved++
		res.ComponentsSaved += len(insts)
	}
	if req.Global != nil {
		set["globalComponentsData"] = req.Global
	}
	if req.Layout != nil {
		set["websiteLayout"] = req.Layout
	}
	if req.ThemeBackups != nil {
		set["themeBackups"] = req.ThemeBackups
	}
	if req.ActiveTheme > 0 {
		set["activeTheme"] = req.ActiveTheme
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return update, res
}

// classify maps driver errors onto the store's error codes. Network errors
// and timeouts are marked retryable.
func classify(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return Retryable(fmt.Errorf("%s: %w: %w", msg, ErrNetwork, err))
	}
	return apperrors.Wrap(apperrors.ErrCodeStorage, err, "%s", msg)
}

// normalizeSnapshot converts BSON container types in free-form data into
// plain maps and slices.
func normalizeSnapshot(s *document.Snapshot) {
	for _, insts := range s.Pages {
		for i := range insts {
			insts[i].Data = normalizeMap(insts[i].Data)
		}
	}
	for k, v := range s.Global {
		s.Global[k] = normalizeMap(v)
	}
	s.Layout = normalizeMap(s.Layout)
	for k, b := range s.ThemeBackups {
		for _, insts := range b.Pages {
			for i := range insts {
				insts[i].Data = normalizeMap(insts[i].Data)
			}
		}
		for g, v := range b.Global {
			b.Global[g] = normalizeMap(v)
		}
		b.Layout = normalizeMap(b.Layout)
		s.ThemeBackups[k] = b
	}
}

func normalizeMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case primitive.M:
		return normalizeMap(t)
	case map[string]any:
		return normalizeMap(t)
	case primitive.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = normalizeValue(e.Value)
		}
		return out
	case primitive.A:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeValue(e)
		}
		return out
	case int32:
		return int64(t)
	}
	return v
}

var _ Gateway = (*MongoStore)(nil)
