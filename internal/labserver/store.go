package labserver

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var (
	prefixEntry = []byte("e:")
	prefixMeta  = []byte("m:")
)

// snapshot is one version of a cached response. Headers and Body hold JSON so
// arbitrary body values survive gob.
type snapshot struct {
	Status  int
	Headers []byte
	Body    []byte
}

// record is the stored form of a cache entry with its optional override.
type record struct {
	Method    string
	Host      string
	Path      string
	KeySource string
	StoredAt  int64 // unix seconds
	TTL       int64 // seconds, 0 when unset
	Hash32    uint32

	Current snapshot
	// Original is set while Current carries an override.
	Original *snapshot

	ModifiedBy     string
	ModifiedAt     int64
	Notes          string
	ModificationID string
}

func (r *record) modified() bool { return r.Original != nil }

type storeMeta struct {
	Size       int64
	LastAccess int64
	// Pinned records carry overrides and are never evicted.
	Pinned bool
}

// store keeps records in leveldb with an in-memory index of sizes and access
// times. Writes of records are synchronous; access touches go through a
// writer goroutine.
type store struct {
	maxBytes int64

	db *leveldb.DB

	mu        sync.Mutex
	index     map[string]storeMeta
	totalSize int64

	touches chan string
	done    chan struct{}

	evictLog *rateLimitedLogger
}

func openStore(path string, maxBytes int64) (*store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	s := &store{
		maxBytes: maxBytes,
		db:       db,
		index:    map[string]storeMeta{},
		touches:  make(chan string, 1024),
		done:     make(chan struct{}),
		evictLog: newRateLimitedLogger(time.Minute),
	}
	if err := s.loadIndex(); err != nil {
		_ = db.Close()
		return nil, err
	}
	go s.writerLoop()
	return s, nil
}

func (s *store) close() error {
	close(s.touches)
	<-s.done
	return s.db.Close()
}

func (s *store) loadIndex() error {
	it := s.db.NewIterator(util.BytesPrefix(prefixMeta), nil)
	defer it.Release()

	var total int64
	idx := map[string]storeMeta{}
	for it.Next() {
		key := string(bytes.TrimPrefix(it.Key(), prefixMeta))
		var meta storeMeta
		if err := decodeGob(it.Value(), &meta); err != nil {
			continue
		}
		idx[key] = meta
		total += meta.Size
	}
	if err := it.Error(); err != nil {
		return fmt.Errorf("load index: %w", err)
	}
	s.mu.Lock()
	s.index = idx
	s.totalSize = total
	s.mu.Unlock()
	return nil
}

func (s *store) TotalSize() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalSize
}

func (s *store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.index)
}

// Keys returns all keys in sorted order.
func (s *store) Keys() []string {
	s.mu.Lock()
	out := make([]string, 0, len(s.index))
	for k := range s.index {
		out = append(out, k)
	}
	s.mu.Unlock()
	sort.Strings(out)
	return out
}

// Peek reads a record without touching its access time.
func (s *store) Peek(key string) (record, bool) {
	b, err := s.db.Get(append(bytes.Clone(prefixEntry), key...), nil)
	if err != nil {
		return record{}, false
	}
	var rec record
	if err := decodeGob(b, &rec); err != nil {
		return record{}, false
	}
	return rec, true
}

// Get reads a record and schedules an access time update.
func (s *store) Get(key string) (record, bool) {
	rec, ok := s.Peek(key)
	if !ok {
		return record{}, false
	}
	select {
	case s.touches <- key:
	default:
	}
	return rec, true
}

func (s *store) Put(key string, rec record) error {
	b, err := encodeGob(rec)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	size := int64(len(b))

	s.mu.Lock()
	meta := storeMeta{Size: size, LastAccess: time.Now().Unix(), Pinned: rec.modified()}
	mb, err := encodeGob(meta)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("encode meta %s: %w", key, err)
	}
	batch := new(leveldb.Batch)
	batch.Put(append(bytes.Clone(prefixEntry), key...), b)
	batch.Put(append(bytes.Clone(prefixMeta), key...), mb)
	if err := s.db.Write(batch, nil); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("write %s: %w", key, err)
	}
	s.totalSize += size - s.index[key].Size
	s.index[key] = meta
	over := s.maxBytes > 0 && s.totalSize > s.maxBytes
	s.mu.Unlock()

	if over {
		s.evictSome(key)
	}
	return nil
}

func (s *store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteLocked(key)
}

func (s *store) deleteLocked(key string) error {
	batch := new(leveldb.Batch)
	batch.Delete(append(bytes.Clone(prefixEntry), key...))
	batch.Delete(append(bytes.Clone(prefixMeta), key...))
	if err := s.db.Write(batch, nil); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	if meta, ok := s.index[key]; ok {
		s.totalSize -= meta.Size
		delete(s.index, key)
	}
	return nil
}

func (s *store) writerLoop() {
	defer close(s.done)
	for key := range s.touches {
		s.touch(key)
	}
}

func (s *store) touch(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	meta, ok := s.index[key]
	if !ok {
		return
	}
	meta.LastAccess = time.Now().Unix()
	mb, err := encodeGob(meta)
	if err != nil {
		return
	}
	if err := s.db.Put(append(bytes.Clone(prefixMeta), key...), mb, nil); err != nil {
		return
	}
	s.index[key] = meta
}

// evictSome drops the least recently accessed tenth of unpinned records
// other than keep.
func (s *store) evictSome(keep string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	type item struct {
		key string
		m   storeMeta
	}
	items := make([]item, 0, len(s.index))
	for k, m := range s.index {
		if !m.Pinned && k != keep {
			items = append(items, item{k, m})
		}
	}
	if len(items) == 0 {
		s.evictLog.Printf("[WARN] store over %d bytes but every record is pinned", s.maxBytes)
		return
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].m.LastAccess < items[j].m.LastAccess
	})

	n := max(len(items)/10, 1)
	for _, it := range items[:n] {
		if err := s.deleteLocked(it.key); err != nil {
			s.evictLog.Printf("[WARN] evict %s: %v", it.key, err)
		}
	}
	s.evictLog.Printf("[INFO] store over %d bytes, evicted %d record(s)", s.maxBytes, n)
}

func encodeGob(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeGob(b []byte, v any) error {
	if len(b) == 0 {
		return errors.New("empty gob")
	}
	return gob.NewDecoder(bytes.NewReader(b)).Decode(v)
}
