// Package couchdapter is a DataAdapter (C6) over a CouchDB database,
// registered for the "couch" URL scheme. Documents are read through the
// Kivik driver's AllDocs iterator and exposed as one bundlebase row
// per document, schema sampled from the first page of documents.
package couchdapter

import (
	"context"
	"encoding/json"
	"fmt"

	kivik "github.com/go-kivik/kivik/v4"
	_ "github.com/go-kivik/kivik/v4/couchdb"

	"bundlebase.dev/bundlebase/internal/adapter"
	"bundlebase.dev/bundlebase/internal/bberr"
	"bundlebase.dev/bundlebase/internal/config"
	"bundlebase.dev/bundlebase/internal/planexec"
	"bundlebase.dev/bundlebase/internal/types"
)

// sampleSize bounds how many documents are read to infer a schema before
// scanning the whole database, keeping schema() cheap relative to scan().
const sampleSize = 200

// Adapter reads documents from one CouchDB database as bundlebase rows.
type Adapter struct {
	client *kivik.Client
	db     *kivik.DB
	dbName string
}

// New connects to a CouchDB server using cfg and opens database dbName.
func New(ctx context.Context, cfg config.CouchConfig) (*Adapter, error) {
	dsn := cfg.URL
	if cfg.Username != "" {
		dsn = fmt.Sprintf("%s://%s:%s@%s", "http", cfg.Username, cfg.Password, trimScheme(cfg.URL))
	}

	client, err := kivik.New("couch", dsn)
	if err != nil {
		return nil, bberr.New("couchdapter.New", bberr.DataSource, err).WithContext("url", cfg.URL)
	}

	exists, err := client.DBExists(ctx, cfg.Database)
	if err != nil {
		return nil, bberr.New("couchdapter.New", bberr.DataSource, err).WithContext("database", cfg.Database)
	}
	if !exists {
		return nil, bberr.Newf("couchdapter.New", bberr.DataSource, "database %q does not exist", cfg.Database)
	}

	return &Adapter{client: client, db: client.DB(cfg.Database), dbName: cfg.Database}, nil
}

func trimScheme(url string) string {
	for _, prefix := range []string{"http://", "https://"} {
		if len(url) > len(prefix) && url[:len(prefix)] == prefix {
			return url[len(prefix):]
		}
	}
	return url
}

func (a *Adapter) sampleDocs(ctx context.Context, limit int) ([]map[string]interface{}, error) {
	params := map[string]interface{}{"include_docs": true}
	if limit > 0 {
		params["limit"] = limit
	}
	rows := a.db.AllDocs(ctx, kivik.Params(params))
	defer rows.Close()

	var docs []map[string]interface{}
	for rows.Next() {
		var raw json.RawMessage
		if err := rows.ScanDoc(&raw); err != nil {
			return nil, bberr.New("couchdapter.sampleDocs", bberr.DataSource, err).WithContext("database", a.dbName)
		}
		var doc map[string]interface{}
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, bberr.New("couchdapter.sampleDocs", bberr.DataSource, err).WithContext("database", a.dbName)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, bberr.New("couchdapter.sampleDocs", bberr.DataSource, err).WithContext("database", a.dbName)
	}
	return docs, nil
}

func (a *Adapter) Schema(ctx context.Context) (types.Schema, error) {
	docs, err := a.sampleDocs(ctx, sampleSize)
	if err != nil {
		return types.Schema{}, err
	}
	return inferSchema(docs), nil
}

func (a *Adapter) ApproxRowCount(ctx context.Context) (uint64, error) {
	info, err := a.db.Stats(ctx)
	if err != nil {
		return 0, bberr.New("couchdapter.approxRowCount", bberr.DataSource, err).WithContext("database", a.dbName)
	}
	return uint64(info.DocCount), nil
}

func (a *Adapter) ByteSize(ctx context.Context) (uint64, error) {
	info, err := a.db.Stats(ctx)
	if err != nil {
		return 0, bberr.New("couchdapter.byteSize", bberr.DataSource, err).WithContext("database", a.dbName)
	}
	return uint64(info.DiskSize), nil
}

func (a *Adapter) Scan(ctx context.Context, _ []types.IndexPredicate, _ []string) (planexec.TableSource, error) {
	docs, err := a.sampleDocs(ctx, 0)
	if err != nil {
		return nil, err
	}
	schema := inferSchema(docs)

	fields := schema.Fields()
	columns := make([]interface{}, len(fields))
	for i, f := range fields {
		values := make([]interface{}, len(docs))
		for r, doc := range docs {
			values[r] = doc[f.Name]
		}
		columns[i] = values
	}
	return adapter.NewColumnarTableSource(schema, columns), nil
}

func inferSchema(docs []map[string]interface{}) types.Schema {
	seen := make(map[string]bool)
	var fields []types.Field
	for _, doc := range docs {
		for key, value := range doc {
			if key == "_rev" || seen[key] || value == nil {
				continue
			}
			seen[key] = true
			fields = append(fields, types.Field{Name: key, Type: types.FieldType{Kind: inferType(value)}})
		}
	}
	return types.NewSchema(fields...)
}

func inferType(value interface{}) types.DataType {
	switch value.(type) {
	case float64:
		return types.Float64
	case bool:
		return types.Boolean
	default:
		return types.Utf8
	}
}

func (a *Adapter) Close() error {
	return a.client.Close()
}
