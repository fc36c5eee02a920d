package cassandra

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ValentinKolb/dFeed/lib/activity"
	"github.com/ValentinKolb/dFeed/lib/storage"
	"github.com/gocql/gocql"
)

// Config holds the connection settings for the cassandra timeline
// storage.
type Config struct {
	// Hosts are the contact points of the cluster.
	Hosts []string
	// Keyspace must exist; the table is created on demand.
	Keyspace string
	// Table defaults to "timelines".
	Table string
	// Consistency defaults to quorum.
	Consistency gocql.Consistency
}

// NewSession connects to the cluster and ensures the timeline table
// exists.
func NewSession(cfg Config) (*gocql.Session, error) {
	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Keyspace = cfg.Keyspace
	if cfg.Consistency == 0 {
		cluster.Consistency = gocql.Quorum
	} else {
		cluster.Consistency = cfg.Consistency
	}
	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("connecting to cassandra %v: %w", cfg.Hosts, err)
	}

	table := cfg.Table
	if table == "" {
		table = "timelines"
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		feed_key    text,
		activity_id varint,
		payload     text,
		PRIMARY KEY (feed_key, activity_id)
	) WITH CLUSTERING ORDER BY (activity_id DESC)`, table)
	if err := session.Query(ddl).Exec(); err != nil {
		session.Close()
		return nil, fmt.Errorf("creating table %s: %w", table, err)
	}
	return session, nil
}

// NewTimelineStorage creates a cassandra backed timeline storage on an
// existing session.
func NewTimelineStorage(session *gocql.Session, table string) storage.ITimelineStorage {
	if table == "" {
		table = "timelines"
	}
	return &timelineStorageImpl{session: session, table: table}
}

// timelineStorageImpl implements the storage.ITimelineStorage interface
type timelineStorageImpl struct {
	session *gocql.Session
	table   string
}

// idToVarint converts the decimal id string to the varint column value.
func idToVarint(id activity.ID) (*big.Int, error) {
	v, ok := new(big.Int).SetString(string(id), 10)
	if !ok {
		return nil, storage.NewStorageError("cassandra", "encode id", fmt.Errorf("id %q is not a number", id))
	}
	return v, nil
}

// --------------------------------------------------------------------------
// Batch
// --------------------------------------------------------------------------

// timelineBatch buffers writes in an unlogged gocql batch. Not safe for
// concurrent use.
type timelineBatch struct {
	session *gocql.Session
	batch   *gocql.Batch
}

func (b *timelineBatch) Flush() error {
	if err := b.session.ExecuteBatch(b.batch); err != nil {
		return storage.NewStorageError("cassandra", "batch exec", err)
	}
	b.batch = b.session.NewBatch(gocql.UnloggedBatch)
	return nil
}

func (b *timelineBatch) Close() error {
	b.batch = nil
	return nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see storage.ITimelineStorage)
// --------------------------------------------------------------------------

func (s *timelineStorageImpl) AddMany(key string, entries []storage.Entry, batch storage.Batch) error {
	stmt := fmt.Sprintf("INSERT INTO %s (feed_key, activity_id, payload) VALUES (?, ?, ?)", s.table)
	b, buffered := batch.(*timelineBatch)

	for _, e := range entries {
		id, err := idToVarint(e.ID)
		if err != nil {
			return err
		}
		if buffered {
			b.batch.Query(stmt, key, id, e.Payload)
			continue
		}
		if err := s.session.Query(stmt, key, id, e.Payload).Exec(); err != nil {
			return storage.NewStorageError("cassandra", "insert", err)
		}
	}
	return nil
}

func (s *timelineStorageImpl) RemoveMany(key string, entries []storage.Entry, batch storage.Batch) error {
	stmt := fmt.Sprintf("DELETE FROM %s WHERE feed_key = ? AND activity_id = ?", s.table)
	b, buffered := batch.(*timelineBatch)

	for _, e := range entries {
		id, err := idToVarint(e.ID)
		if err != nil {
			return err
		}
		if buffered {
			b.batch.Query(stmt, key, id)
			continue
		}
		if err := s.session.Query(stmt, key, id).Exec(); err != nil {
			return storage.NewStorageError("cassandra", "delete", err)
		}
	}
	return nil
}

func (s *timelineStorageImpl) GetSlice(key string, start, stop int, filter storage.SliceFilter, order storage.Order) ([]storage.Entry, error) {
	if start < 0 {
		return nil, storage.NewStorageError("cassandra", "slice", fmt.Errorf("negative start %d", start))
	}

	stmt := fmt.Sprintf("SELECT activity_id, payload FROM %s WHERE feed_key = ?", s.table)
	args := []interface{}{key}

	appendBound := func(op string, id activity.ID) error {
		v, err := idToVarint(id)
		if err != nil {
			return err
		}
		stmt += fmt.Sprintf(" AND activity_id %s ?", op)
		args = append(args, v)
		return nil
	}
	for _, bound := range []struct {
		op string
		id activity.ID
	}{
		{">=", filter.IDGte}, {">", filter.IDGt}, {"<=", filter.IDLte}, {"<", filter.IDLt},
	} {
		if bound.id.IsZero() {
			continue
		}
		if err := appendBound(bound.op, bound.id); err != nil {
			return nil, err
		}
	}

	if order == storage.OrderAsc {
		stmt += " ORDER BY activity_id ASC"
	}

	// cassandra has no offset; read start+stop rows and cut client side
	if stop >= 0 {
		if stop <= start {
			return nil, nil
		}
		stmt += " LIMIT ?"
		args = append(args, stop)
	}

	iter := s.session.Query(stmt, args...).Iter()
	var (
		entries []storage.Entry
		id      big.Int
		payload string
	)
	for iter.Scan(&id, &payload) {
		entries = append(entries, storage.Entry{ID: activity.ID(id.String()), Payload: payload})
	}
	if err := iter.Close(); err != nil {
		return nil, storage.NewStorageError("cassandra", "select", err)
	}

	if start > len(entries) {
		return nil, nil
	}
	return entries[start:], nil
}

func (s *timelineStorageImpl) Trim(key string, maxLength int) error {
	if maxLength < 0 {
		return storage.NewStorageError("cassandra", "trim", fmt.Errorf("negative max length %d", maxLength))
	}
	// find the cutoff id, then range delete everything older
	overflow, err := s.GetSlice(key, maxLength, maxLength+1, storage.SliceFilter{}, storage.OrderDesc)
	if err != nil {
		return err
	}
	if len(overflow) == 0 {
		return nil
	}
	cutoff, err := idToVarint(overflow[0].ID)
	if err != nil {
		return err
	}
	stmt := fmt.Sprintf("DELETE FROM %s WHERE feed_key = ? AND activity_id <= ?", s.table)
	if err := s.session.Query(stmt, key, cutoff).Exec(); err != nil {
		return storage.NewStorageError("cassandra", "trim delete", err)
	}
	return nil
}

func (s *timelineStorageImpl) Count(key string) (int, error) {
	stmt := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE feed_key = ?", s.table)
	var n int
	if err := s.session.Query(stmt, key).Scan(&n); err != nil {
		return 0, storage.NewStorageError("cassandra", "count", err)
	}
	return n, nil
}

func (s *timelineStorageImpl) Delete(key string) error {
	stmt := fmt.Sprintf("DELETE FROM %s WHERE feed_key = ?", s.table)
	if err := s.session.Query(stmt, key).Exec(); err != nil {
		return storage.NewStorageError("cassandra", "delete", err)
	}
	return nil
}

func (s *timelineStorageImpl) IndexOf(key string, id activity.ID) (int, error) {
	ok, err := s.Contains(key, id)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("timeline %s: id %s: %w", key, id, activity.ErrActivityNotFound)
	}
	// the descending position equals the number of newer entries
	v, err := idToVarint(id)
	if err != nil {
		return 0, err
	}
	stmt := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE feed_key = ? AND activity_id > ?", s.table)
	var n int
	if err := s.session.Query(stmt, key, v).Scan(&n); err != nil {
		return 0, storage.NewStorageError("cassandra", "index of", err)
	}
	return n, nil
}

func (s *timelineStorageImpl) Contains(key string, id activity.ID) (bool, error) {
	v, err := idToVarint(id)
	if err != nil {
		return false, err
	}
	stmt := fmt.Sprintf("SELECT payload FROM %s WHERE feed_key = ? AND activity_id = ?", s.table)
	var payload string
	err = s.session.Query(stmt, key, v).Scan(&payload)
	if errors.Is(err, gocql.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, storage.NewStorageError("cassandra", "contains", err)
	}
	return true, nil
}

func (s *timelineStorageImpl) NewBatch() storage.Batch {
	return &timelineBatch{session: s.session, batch: s.session.NewBatch(gocql.UnloggedBatch)}
}
