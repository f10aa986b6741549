package stores

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/datastore"
	"google.golang.org/api/option"
)

const reportKind = "Report"

type reportRecord struct {
	Operation string
	CreatedAt time.Time
	Report    []byte `datastore:",noindex"`
}

// DatastoreJournal stores reports as Google Cloud Datastore entities.
type DatastoreJournal struct {
	client *datastore.Client
}

// NewDatastoreJournal connects to projectID, in the named database when one is given.
func NewDatastoreJournal(ctx context.Context, projectID, database string, opts ...option.ClientOption) (*DatastoreJournal, error) {
	var (
		client *datastore.Client
		err    error
	)
	if database != "" {
		client, err = datastore.NewClientWithDatabase(ctx, projectID, database, opts...)
	} else {
		client, err = datastore.NewClient(ctx, projectID, opts...)
	}
	if err != nil {
		return nil, err
	}
	return &DatastoreJournal{client: client}, nil
}

func (s *DatastoreJournal) key(id string) *datastore.Key {
	return datastore.NameKey(reportKind, id, nil)
}

func (s *DatastoreJournal) Append(ctx context.Context, entry Entry) error {
	_, err := s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		var existing reportRecord
		err := tx.Get(s.key(entry.ID), &existing)
		if err == nil {
			return ErrReportExists
		}
		if !errors.Is(err, datastore.ErrNoSuchEntity) {
			return err
		}
		_, err = tx.Put(s.key(entry.ID), &reportRecord{
			Operation: entry.Operation,
			CreatedAt: entry.CreatedAt,
			Report:    entry.Report,
		})
		return err
	})
	return err
}

func (s *DatastoreJournal) Get(ctx context.Context, id string) (Entry, error) {
	var rec reportRecord
	err := s.client.Get(ctx, s.key(id), &rec)
	if errors.Is(err, datastore.ErrNoSuchEntity) {
		return Entry{}, ErrReportNotFound
	}
	if err != nil {
		return Entry{}, err
	}
	return Entry{ID: id, Operation: rec.Operation, CreatedAt: rec.CreatedAt, Report: rec.Report}, nil
}

func (s *DatastoreJournal) List(ctx context.Context, limit int) ([]Entry, error) {
	q := datastore.NewQuery(reportKind).Order("-CreatedAt")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var recs []reportRecord
	keys, err := s.client.GetAll(ctx, q, &recs)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, len(recs))
	for i, rec := range recs {
		entries[i] = Entry{ID: keys[i].Name, Operation: rec.Operation, CreatedAt: rec.CreatedAt, Report: rec.Report}
	}
	return entries, nil
}

func (s *DatastoreJournal) Close() error {
	return s.client.Close()
}

var _ Journal = (*DatastoreJournal)(nil)
